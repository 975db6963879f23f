package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Object storage (optional — renders stay local when unset)
	StorageURL    string
	StorageKey    string
	StorageBucket string

	// Render backend: "local" or "farm"
	RenderBackend string

	// Local backend toolchain
	RendererBin string
	BundlerBin  string
	BundleDir   string
	OutputDir   string
	TempDir     string

	// Render farm (required when RenderBackend is "farm")
	FarmURL    string
	FarmAPIKey string

	// Worker
	MaxConcurrentRenders int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:              getEnv("API_PORT", "8080"),
		WorkerEnabled:        getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:        getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379"),
		StorageURL:           getEnv("STORAGE_URL", ""),
		StorageKey:           getEnv("STORAGE_SERVICE_KEY", ""),
		StorageBucket:        getEnv("STORAGE_BUCKET", "clipforge-renders"),
		RenderBackend:        getEnv("RENDER_BACKEND", "local"),
		RendererBin:          getEnv("RENDERER_BIN", "clipforge-renderer"),
		BundlerBin:           getEnv("BUNDLER_BIN", "clipforge-bundler"),
		BundleDir:            getEnv("BUNDLE_DIR", "/tmp/clipforge/bundle"),
		OutputDir:            getEnv("OUTPUT_DIR", "/tmp/clipforge/out"),
		TempDir:              getEnv("TEMP_DIR", "/tmp/clipforge/tmp"),
		FarmURL:              getEnv("FARM_URL", ""),
		FarmAPIKey:           getEnv("FARM_API_KEY", ""),
		MaxConcurrentRenders: getEnvInt("MAX_CONCURRENT_RENDERS", 2),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RenderBackend != "local" && cfg.RenderBackend != "farm" {
		return nil, fmt.Errorf("RENDER_BACKEND must be \"local\" or \"farm\", got %q", cfg.RenderBackend)
	}

	if cfg.RenderBackend == "farm" && cfg.FarmURL == "" {
		return nil, fmt.Errorf("FARM_URL is required when RENDER_BACKEND is farm")
	}

	// Storage is all-or-nothing
	if (cfg.StorageURL == "") != (cfg.StorageKey == "") {
		return nil, fmt.Errorf("STORAGE_URL and STORAGE_SERVICE_KEY must be set together")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
