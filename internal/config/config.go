package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Session  SessionConfig
	Chat     ChatConfig
	SMTP     SMTPConfig
	Admin    AdminConfig
	Ai       AIConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	DataDir            string
}

type DatabaseConfig struct {
	Connection string
}

type SessionConfig struct {
	TimeoutSeconds   int
	MemoryTokenLimit int
	Resolution       string // "strict" | "lenient" handling of unknown supplied ids
}

type ChatConfig struct {
	ContentBatchSize int // tokens per SSE content event
	ChunkDelayMs     int // pacing pause between content events
}

type SMTPConfig struct {
	Host         string
	Port         int
	Email        string
	Password     string
	SenderName   string
	SupportEmail string // escalation inbox
}

type AdminConfig struct {
	Email        string
	PasswordHash string // bcrypt hash of the admin password
	JwtSecret    string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama"
	LLMModel          string // e.g. "llama3", "qwen2.5"
	GeminiApiKey      string
	RetrievalTopK     int
	RetrievalMinScore float64 // similarity floor for retrieved chunks
	EmbedTopic        string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			DataDir:            getEnv("DATA_DIR", "./data"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Session: SessionConfig{
			TimeoutSeconds:   getEnvAsInt("SESSION_TIMEOUT_SECONDS", 3600),
			MemoryTokenLimit: getEnvAsInt("SESSION_MEMORY_TOKEN_LIMIT", 3000),
			Resolution:       getEnv("SESSION_RESOLUTION", "strict"),
		},
		Chat: ChatConfig{
			ContentBatchSize: getEnvAsInt("CHAT_CONTENT_BATCH_SIZE", 5),
			ChunkDelayMs:     getEnvAsInt("CHAT_CHUNK_DELAY_MS", 100),
		},
		SMTP: SMTPConfig{
			Host:         getEnv("SMTP_HOST", ""),
			Port:         getEnvAsInt("SMTP_PORT", 587),
			Email:        getEnv("SMTP_EMAIL", ""),
			Password:     getEnv("SMTP_PASSWORD", ""),
			SenderName:   getEnv("SMTP_SENDER_NAME", "Foodie Support"),
			SupportEmail: getEnv("SUPPORT_ESCALATION_EMAIL", ""),
		},
		Admin: AdminConfig{
			Email:        getEnv("ADMIN_EMAIL", "admin@localhost"),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			JwtSecret:    getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			GeminiApiKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			RetrievalTopK:     getEnvAsInt("RETRIEVAL_TOP_K", 5),
			RetrievalMinScore: getEnvAsFloat("RETRIEVAL_MIN_SCORE", 0.3),
			EmbedTopic:        getEnv("EMBED_POLICY_DOCUMENT_TOPIC_NAME", "EMBED_POLICY_DOCUMENT"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
