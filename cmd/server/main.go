package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fieldvault/revisiondb/internal/config"
	"github.com/fieldvault/revisiondb/internal/database"
	"github.com/fieldvault/revisiondb/internal/handlers"
	"github.com/fieldvault/revisiondb/internal/middleware"
	"github.com/fieldvault/revisiondb/internal/services"
	"github.com/fieldvault/revisiondb/internal/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"

	_ "github.com/fieldvault/revisiondb/docs/api" // Swagger docs
)

// @title RevisionDB API
// @version 1.0.0
// @description Field-level content revision service with multi-database support
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/fieldvault/revisiondb

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Pull in history from a predecessor installation, if one is present
	if err := database.ImportLegacy(db); err != nil {
		log.Fatalf("Failed to import legacy history: %v", err)
	}

	// File store
	files, err := services.NewFileStore(db, cfg.FilesPath)
	if err != nil {
		log.Fatalf("Failed to open file store: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("revisiondb")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(cfg, db)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	historyHandler := &handlers.HistoryHandler{DB: db}
	dataHandler := &handlers.DataHandler{DB: db, Files: files, PurgeMaxAge: cfg.PurgeMaxAge}
	revisionHandler := &handlers.RevisionHandler{DB: db}
	fileHandler := &handlers.FileHandler{Files: files}

	// History and audit routes (public GET)
	api.Get("/pages/state", dataHandler.GetPagesState)
	api.Get("/pages/revisions", historyHandler.GetPagesRevisions)
	api.Get("/pages/:page/history", historyHandler.GetPageHistory)
	api.Get("/pages/:page/revisions", historyHandler.GetPageRevisions)
	api.Get("/pages/:page/users", historyHandler.GetPageUsers)
	api.Get("/fields/:field/data", dataHandler.GetFieldData)
	api.Get("/revisions/:id", revisionHandler.GetRevision)
	api.Get("/files/:id", fileHandler.GetFile)

	// Editor routes
	api.Post("/pages/:page/revisions", middleware.AuthEditor(), dataHandler.CreateRevision)
	api.Patch("/revisions/:id", middleware.AuthEditor(), revisionHandler.UpdateRevision)
	api.Delete("/revisions/:id", middleware.AuthEditor(), revisionHandler.DeleteRevision)

	// Admin-only destructive routes
	api.Delete("/templates/:id/data", middleware.AuthAdmin(), dataHandler.DeleteTemplateData)
	api.Delete("/fields/:field/data", middleware.AuthAdmin(), dataHandler.DeleteFieldData)
	api.Delete("/pages/:page/data", middleware.AuthAdmin(), dataHandler.DeletePageData)
	api.Delete("/files/:id", middleware.AuthAdmin(), fileHandler.DeleteFile)
	api.Post("/maintenance/purge", middleware.AuthAdmin(), dataHandler.Purge)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Initialize Authorizer on demand
	log.Printf("Authorizer will be initialized on first authenticated request")

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Authorization failures carry their own code and type
	var customErr *types.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
		errorType = customErr.Type
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}
