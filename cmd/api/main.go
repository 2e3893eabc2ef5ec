package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"jobfit/cv-tailor/internal/config"
	"jobfit/cv-tailor/internal/handlers"
	"jobfit/cv-tailor/internal/repositories"
	"jobfit/cv-tailor/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Println("✅ Config loaded successfully")

	// Initialize session store
	sessionRepo := repositories.NewSessionRepository()
	sessionRepo.StartJanitor(cfg.Session.TTL, cfg.Session.SweepInterval)
	log.Println("✅ Session store initialized")

	// Initialize ingestion services
	extractor := services.NewExtractorService()
	normalizer := services.NewNormalizerService(extractor)
	log.Println("✅ Ingestion services initialized")

	// Initialize Gemini AI
	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini AI: %v", err)
	}
	log.Println("✅ Gemini AI initialized successfully")

	// Initialize generation gateway
	gateway, err := services.NewGatewayService(geminiService, cfg.Ingest.MinInputLength, cfg.Worker.RetryMaxAttempts)
	if err != nil {
		log.Fatalf("❌ Failed to initialize generation gateway: %v", err)
	}
	log.Println("✅ Generation gateway initialized")

	// Initialize orchestrator
	orchestrator := services.NewOrchestratorService(sessionRepo, gateway, cfg.Ingest.MinInputLength)
	log.Println("✅ Orchestrator initialized")

	// Initialize worker
	worker := services.NewWorker(orchestrator, cfg.Worker.Concurrency)
	ctx := context.Background()
	worker.Start(ctx)
	log.Println("✅ Worker started successfully")

	// Initialize handlers
	extractHandler := handlers.NewExtractHandler(extractor, cfg.Ingest.MaxUploadSize)
	sessionHandler := handlers.NewSessionHandler(sessionRepo, normalizer, cfg.Ingest.MaxUploadSize)
	stageHandler := handlers.NewStageHandler(orchestrator, worker)
	downloadHandler := handlers.NewDownloadHandler(sessionRepo)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "CV Tailor API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Ingest.MaxUploadSize) + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// API endpoints
	api.Post("/extract", extractHandler.HandleExtract)
	api.Post("/sessions", sessionHandler.HandleCreateSession)
	api.Get("/sessions/:id", sessionHandler.HandleGetSession)
	api.Put("/sessions/:id/inputs/:role", sessionHandler.HandleSetInput)
	api.Delete("/sessions/:id/inputs/:role", sessionHandler.HandleClearInput)
	api.Post("/sessions/:id/analyze", stageHandler.HandleAnalyze)
	api.Post("/sessions/:id/cv", stageHandler.HandleCreateCV)
	api.Post("/sessions/:id/cover-letter", stageHandler.HandleCoverLetter)
	api.Post("/sessions/:id/regenerate", stageHandler.HandleRegenerate)
	api.Get("/sessions/:id/download/:artifact", downloadHandler.HandleDownload)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "CV Tailor API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/extract",
				"POST /api/v1/sessions",
				"GET /api/v1/sessions/:id",
				"PUT /api/v1/sessions/:id/inputs/:role",
				"POST /api/v1/sessions/:id/analyze",
				"POST /api/v1/sessions/:id/cv",
				"POST /api/v1/sessions/:id/cover-letter",
				"POST /api/v1/sessions/:id/regenerate",
				"GET /api/v1/sessions/:id/download/:artifact",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		worker.Stop()
		sessionRepo.StopJanitor()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
