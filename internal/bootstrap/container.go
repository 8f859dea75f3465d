package bootstrap

import (
	"context"
	"log"
	"time"

	"cs-chatbot-be/internal/config"
	"cs-chatbot-be/internal/controller"
	"cs-chatbot-be/internal/handler"
	"cs-chatbot-be/internal/pkg/logger"
	"cs-chatbot-be/internal/pkg/mailer"
	"cs-chatbot-be/internal/repository/implementation"
	"cs-chatbot-be/internal/service"
	"cs-chatbot-be/internal/websocket"
	"cs-chatbot-be/pkg/embedding"
	"cs-chatbot-be/pkg/llm/factory"
	"cs-chatbot-be/pkg/rag"
	"cs-chatbot-be/pkg/session"

	pktNats "cs-chatbot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController
	AuthController     controller.IAuthController

	// Background Services (Exposed for main.go to run)
	ConsumerService     service.IConsumerService
	SessionEventService service.ISessionEventService

	// Session store (Exposed for the sweeper loop in main.go)
	SessionManager *session.Manager

	// WebSockets
	SessionEventHandler *handler.SessionEventHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "gemini" {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiApiKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Repositories
	docRepo := implementation.NewPolicyDocumentRepository(db)
	chunkRepo := implementation.NewDocumentChunkRepository(db)

	// 5. Infrastructure
	// NATS is optional: single-instance deployments run on the in-process
	// bus alone.
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		}
	}

	// Redis (optional): fans session events out across instances.
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/session_events.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 6. Domain Core
	sessionManager := session.NewManager(session.Config{
		Timeout:          time.Duration(cfg.Session.TimeoutSeconds) * time.Second,
		MemoryTokenLimit: cfg.Session.MemoryTokenLimit,
		Resolution:       cfg.Session.Resolution,
	})

	answerEngine := rag.NewEngine(
		chunkRepo,
		embeddingProvider,
		llmProvider,
		cfg.Ai.RetrievalTopK,
		cfg.Ai.RetrievalMinScore,
		sysLogger,
	)

	// 7. Services
	publisherService := service.NewPublisherService(pubSub, cfg.Ai.EmbedTopic)

	sessionEventService := service.NewSessionEventService(
		pubSub,
		"SESSION_EVENTS",
		wsHub,
		natsPub,
		natsSub,
		wsLogger,
	)

	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Ai.EmbedTopic,
		docRepo,
		chunkRepo,
		embeddingProvider,
		sessionEventService,
	)

	chatService := service.NewChatService(
		sessionManager,
		answerEngine,
		sessionEventService,
		sysLogger,
		cfg.Chat.ContentBatchSize,
		time.Duration(cfg.Chat.ChunkDelayMs)*time.Millisecond,
	)

	documentService := service.NewDocumentService(docRepo, chunkRepo, publisherService, sysLogger)
	authService := service.NewAuthService(cfg.Admin)
	escalationService := service.NewEscalationService(
		sessionManager,
		emailService,
		cfg.SMTP.SupportEmail,
		sysLogger,
	)

	// 8. Handlers & Controllers
	sessionEventHandler := handler.NewSessionEventHandler(wsHub, wsLogger)

	return &Container{
		ChatController:     controller.NewChatController(chatService, escalationService),
		DocumentController: controller.NewDocumentController(documentService),
		AuthController:     controller.NewAuthController(authService),

		ConsumerService:     consumerService,
		SessionEventService: sessionEventService,
		SessionManager:      sessionManager,

		SessionEventHandler: sessionEventHandler,
		WebSocketHub:        wsHub,
	}
}
