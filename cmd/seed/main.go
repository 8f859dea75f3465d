package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"cs-chatbot-be/internal/model"
	"cs-chatbot-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Seeds the policy knowledge base from plain text / markdown files in
// DATA_DIR. File name becomes the title, parent directory the category.
// Embedding happens later, either through the ingest API or a re-index run.
func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Printf("Seeding Policy Documents from %s...", dataDir)

	seeded := 0
	err = filepath.Walk(dataDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Error reading '%s': %v", path, err)
			return nil
		}

		title := strings.TrimSuffix(info.Name(), ext)
		category := filepath.Base(filepath.Dir(path))
		if category == filepath.Base(dataDir) {
			category = "general"
		}

		// Skip documents already seeded under the same title
		var existing model.PolicyDocument
		if err := db.Where("title = ?", title).First(&existing).Error; err == nil {
			log.Printf("Document '%s' already exists, skipping...", title)
			return nil
		}

		doc := model.PolicyDocument{
			Id:       uuid.New(),
			Title:    title,
			Content:  string(content),
			Category: category,
			Indexed:  false,
		}

		if err := db.Create(&doc).Error; err != nil {
			log.Printf("Error creating document '%s': %v", title, err)
			return nil
		}

		log.Printf("Created document: %s (%s)", title, category)
		seeded++
		return nil
	})
	if err != nil {
		log.Fatal("Error walking data dir:", err)
	}

	log.Printf("Policy document seeding completed! (%d new)", seeded)
}
