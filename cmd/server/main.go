package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/voxscribe/api/internal/client"
	"github.com/voxscribe/api/internal/config"
	"github.com/voxscribe/api/internal/fetcher"
	"github.com/voxscribe/api/internal/handler"
	"github.com/voxscribe/api/internal/middleware"
	"github.com/voxscribe/api/internal/service"
	"github.com/voxscribe/api/internal/storage"
	"github.com/voxscribe/api/internal/store"
	"github.com/voxscribe/api/internal/worker"
	ws "github.com/voxscribe/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Auth.Mode == middleware.AuthModeAPIKey && cfg.Auth.APIKey == "" {
		log.Println("WARNING: no API key configured, endpoints are unprotected")
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Job store and transcript storage
	jobStore := store.NewRedisStore(redisClient)
	transcripts, err := newTranscriptStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize transcript storage: %v", err)
	}

	// External collaborators
	whisperClient := client.NewWhisperClient(&cfg.Whisper)
	if !whisperClient.IsConfigured() {
		log.Println("WARNING: transcription service URL not configured")
	}
	mediaFetcher := fetcher.NewYTDLP(cfg.Fetcher.BinPath)

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize services
	transcribeService := service.NewTranscribeService(whisperClient, cfg.Whisper.DefaultModel)
	jobService := service.NewJobService(jobStore, asynqClient, transcripts, cfg.Whisper.DefaultModel)

	// Initialize handlers
	transcribeHandler := handler.NewTranscribeHandler(transcribeService, validate, cfg.Upload.MaxFileSizeMB)
	jobHandler := handler.NewJobHandler(jobService, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(&cfg.Auth)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    (cfg.Upload.MaxFileSizeMB + 1) * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key",
	}))

	// Health check
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "VoxScribe API is running"})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Transcription routes
	auth := authMiddleware.Authenticate()
	app.Post("/transcribe-audio", auth, rateLimiter.AudioLimit(cfg.RateLimit.AudioPerHour), transcribeHandler.Audio)
	app.Post("/transcribe-youtube", auth, rateLimiter.SubmitLimit(cfg.RateLimit.SubmitPerHour), jobHandler.Submit)
	app.Get("/status/:jobId", jobHandler.Status)
	app.Get("/result/:jobId", jobHandler.Result)
	app.Get("/models", auth, transcribeHandler.Models)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, jobStore, mediaFetcher, whisperClient, transcripts, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func newTranscriptStore(cfg *config.Config) (storage.TranscriptStore, error) {
	if cfg.Storage.Backend == "s3" {
		return storage.NewS3Store(&cfg.Storage.S3)
	}
	return storage.NewFileStore(cfg.Storage.TranscriptDir)
}

func startWorkerServer(cfg *config.Config, jobStore store.Store, mediaFetcher fetcher.Fetcher, transcriber client.Transcriber, transcripts storage.TranscriptStore, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// Bounds simultaneous pipelines
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"transcribe": 10,
			},
		},
	)

	transcribeWorker := worker.NewTranscribeWorker(jobStore, mediaFetcher, transcriber, transcripts, hub, cfg.Fetcher.WorkDir)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeTranscribe, transcribeWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
