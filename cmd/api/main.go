package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipforge/clipforge/internal/api"
	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/cutter"
	"github.com/clipforge/clipforge/internal/db"
	"github.com/clipforge/clipforge/internal/queue"
	"github.com/clipforge/clipforge/internal/render"
	"github.com/clipforge/clipforge/internal/storage"
	"github.com/clipforge/clipforge/internal/worker"
)

func main() {
	log.Println("Starting ClipForge API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize object storage (optional — renders stay local when unset)
	var stor *storage.Storage
	if cfg.StorageURL != "" {
		stor = storage.New(cfg.StorageURL, cfg.StorageKey, cfg.StorageBucket)
		log.Println("Initialized object storage")
	} else {
		log.Println("Object storage not configured — render outputs stay local")
	}

	cut := cutter.New(cfg.TempDir)

	// Create API handler
	handler := api.NewHandler(database, q, stor, cut)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		var backend render.Backend
		switch cfg.RenderBackend {
		case "farm":
			backend = render.NewFarmBackend(cfg.FarmURL, cfg.FarmAPIKey)
			log.Printf("Render backend: farm (%s)", cfg.FarmURL)
		default:
			engine := &render.ExecEngine{
				BundlerBin:  cfg.BundlerBin,
				RendererBin: cfg.RendererBin,
				BundleDir:   cfg.BundleDir,
			}
			backend = render.NewLocalBackend(engine, stor, cfg.OutputDir, cfg.TempDir)
			log.Println("Render backend: local")
		}

		orch := render.NewOrchestrator(database, backend)
		w := worker.New(q, orch)

		// Start worker in background
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentRenders)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
