package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voskhod/whisperd/internal/app"
	"github.com/voskhod/whisperd/internal/artifact"
	"github.com/voskhod/whisperd/internal/config"
	"github.com/voskhod/whisperd/internal/constants"
	"github.com/voskhod/whisperd/internal/domain"
	"github.com/voskhod/whisperd/internal/engine"
	"github.com/voskhod/whisperd/internal/handlers"
	"github.com/voskhod/whisperd/internal/logger"
	"github.com/voskhod/whisperd/internal/store"
	"github.com/voskhod/whisperd/internal/worker"
)

func main() {
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	files, err := artifact.NewStore(cfg.UploadsDir, cfg.OutputsDir)
	if err != nil {
		appLogger.Error("Failed to init artifact store", "error", err)
		os.Exit(1)
	}

	maxFileSize, err := cfg.MaxFileSizeBytes()
	if err != nil {
		appLogger.Error("Invalid max file size", "error", err)
		os.Exit(1)
	}

	jobService := app.NewJobService(db, files, appLogger)

	transcriber := engine.NewWhisperCLI(cfg.FFmpegBin, cfg.FFprobeBin, cfg.WhisperBin, cfg.WhisperModel)

	dispatcher := worker.NewDispatcher()
	dispatcher.Register(domain.JobTypeTranscribe, worker.NewTranscribeHandler(transcriber, files))

	if cfg.GeminiAPIKey != "" {
		enhancer, err := engine.NewGeminiEnhancer(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			appLogger.Error("Failed to init enhancer", "error", err)
			os.Exit(1)
		}
		defer enhancer.Close()
		dispatcher.Register(domain.JobTypeEnhance, worker.NewEnhanceHandler(enhancer, files))
	} else {
		appLogger.Warn("GEMINI_API_KEY not set, enhancement jobs will fail")
	}

	pool := worker.NewPool(db, dispatcher, jobService, appLogger, cfg.Concurrency, cfg.HardTimeout)
	pool.Start()
	defer pool.Stop()

	reconcilerCtx, stopReconciler := context.WithCancel(context.Background())
	defer stopReconciler()
	reconciler := app.NewReconciler(db, appLogger, constants.ReconcileInterval, constants.PendingGracePeriod)
	go reconciler.Run(reconcilerCtx)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	prober := engine.NewFFProbe(cfg.FFprobeBin)
	h := handlers.NewHandler(jobService, files, prober, appLogger, maxFileSize)
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		appLogger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server shutdown error", "error", err)
	}
}
