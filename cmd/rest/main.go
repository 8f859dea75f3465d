package main

import (
	"context"
	"log"
	"time"

	"cs-chatbot-be/internal/bootstrap"
	"cs-chatbot-be/internal/config"
	"cs-chatbot-be/internal/server"
	"cs-chatbot-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer - DISABLED
	// shutdownTracer := tracer.InitTracer()
	// defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	go func() {
		log.Println("Background: Starting Session Event Feed...")
		if err := container.SessionEventService.Consume(context.Background()); err != nil {
			log.Printf("Background Session Event Error: %v", err)
		}
	}()

	// Expiry sweeper: idle sessions are reaped on a fixed cadence so the
	// store does not depend on request traffic to shrink.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if n := container.SessionManager.SweepExpired(); n > 0 {
				log.Printf("Background: Swept %d expired session(s)", n)
			}
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
