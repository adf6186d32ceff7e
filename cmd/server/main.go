package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/document-intelligence-api/internal/config"
	"github.com/BerylCAtieno/document-intelligence-api/internal/db"
	"github.com/BerylCAtieno/document-intelligence-api/internal/extractor"
	"github.com/BerylCAtieno/document-intelligence-api/internal/jobs"
	"github.com/BerylCAtieno/document-intelligence-api/internal/nlp"
	"github.com/BerylCAtieno/document-intelligence-api/internal/pipeline"
	"github.com/BerylCAtieno/document-intelligence-api/internal/repository"
	"github.com/BerylCAtieno/document-intelligence-api/internal/router"
	"github.com/BerylCAtieno/document-intelligence-api/internal/services"
	"github.com/BerylCAtieno/document-intelligence-api/internal/storage"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Run migrations
	if err := db.RunMigrations(database); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	docRepo, err := repository.NewCachedRepository(repository.NewRepository(database), cfg.CacheSize)
	if err != nil {
		logger.Fatal("Failed to create analysis cache", "error", err)
	}

	// No worker survives a restart, so anything still marked processing is stale.
	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()
	if n, err := docRepo.ResetStuckProcessing(startCtx); err != nil {
		logger.Fatal("Failed to reset stuck documents", "error", err)
	} else if n > 0 {
		logger.Warn("Reset documents left in processing", "count", n)
	}

	store, err := storage.New(startCtx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err, "backend", cfg.StorageBackend)
	}

	// Analysis pipeline
	formats := extractor.NewRouter(extractor.RouterOptions{MinNativeTextChars: cfg.MinNativeTextChars})
	extractOpts := extractor.DefaultOptions()
	extractOpts.OCRTimeout = cfg.OCRTimeout
	extractOpts.OCRWorkers = cfg.Workers
	textExtractor := extractor.New(
		extractor.NewTesseractEngine(cfg.TesseractPath, cfg.OCRLanguages),
		extractor.NewPDFPageImager(),
		extractOpts,
		logger,
	)
	pipelineOpts := pipeline.DefaultOptions()
	pipelineOpts.StageTimeout = cfg.StageTimeout
	analysisPipeline := pipeline.New(formats, textExtractor, pipeline.DefaultStages(nlp.DefaultLexicon()), pipelineOpts, logger)

	coordinator := jobs.NewCoordinator(docRepo, store, analysisPipeline, jobs.Options{
		Workers:    cfg.Workers,
		RunTimeout: cfg.RunTimeout,
	}, logger)

	docService := services.NewService(docRepo, store, formats, coordinator, cfg, logger)
	analysisService := services.NewAnalysisService(docRepo, logger)

	// Setup HTTP router
	handler := router.NewRouter(docService, analysisService, cfg.MaxFileSize, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "workers", cfg.Workers, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := coordinator.Shutdown(ctx); err != nil {
		logger.Error("Analysis workers did not stop cleanly", "error", err)
	}

	logger.Info("Server exited")
}
