package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends understood by STORE_BACKEND.
const (
	StoreBackendSQLite = "sqlite"
	StoreBackendMemory = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort string

	StoreBackend       string
	DBPath             string
	StoreMaxValueBytes int
	StoreMaxTotalBytes int
	StoreWatch         bool
	MutateRetries      int

	UpstreamBaseURL string
	UpstreamAPIKey  string
	UpstreamTimeout time.Duration
	DefaultProvider string
	DefaultModel    string

	KeySecret string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	// Walk up a few directories looking for a project-level .env
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIPort:         getEnv("API_PORT", "9000"),
		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", StoreBackendSQLite)),
		DBPath:          getEnv("DB_PATH", "./data/moonscribe.db"),
		UpstreamBaseURL: strings.TrimRight(getEnv("UPSTREAM_BASE_URL", "http://localhost:8000"), "/"),
		UpstreamAPIKey:  getEnv("UPSTREAM_API_KEY", ""),
		DefaultProvider: getEnv("DEFAULT_PROVIDER", "ollama"),
		DefaultModel:    getEnv("DEFAULT_MODEL", "llama3.1"),
		KeySecret:       getEnv("KEY_SECRET", ""),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	switch cfg.StoreBackend {
	case StoreBackendSQLite, StoreBackendMemory:
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendSQLite, StoreBackendMemory, cfg.StoreBackend)
	}

	// 5 MiB mirrors the usual per-origin browser storage budget
	if cfg.StoreMaxTotalBytes, err = getPositiveInt("STORE_MAX_TOTAL_BYTES", 5*1024*1024); err != nil {
		return nil, err
	}
	if cfg.StoreMaxValueBytes, err = getPositiveInt("STORE_MAX_VALUE_BYTES", cfg.StoreMaxTotalBytes); err != nil {
		return nil, err
	}
	if cfg.StoreMaxValueBytes > cfg.StoreMaxTotalBytes {
		return nil, fmt.Errorf("STORE_MAX_VALUE_BYTES (%d) cannot exceed STORE_MAX_TOTAL_BYTES (%d)", cfg.StoreMaxValueBytes, cfg.StoreMaxTotalBytes)
	}
	if cfg.MutateRetries, err = getPositiveInt("MUTATE_RETRIES", 3); err != nil {
		return nil, err
	}

	cfg.StoreWatch, err = strconv.ParseBool(getEnv("STORE_WATCH", "true"))
	if err != nil {
		return nil, fmt.Errorf("STORE_WATCH must be a boolean: %w", err)
	}

	cfg.UpstreamTimeout, err = time.ParseDuration(getEnv("UPSTREAM_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT must be a duration: %w", err)
	}
	if cfg.UpstreamTimeout <= 0 {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT must be greater than 0")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	// API keys are sealed at rest, so a secret is mandatory
	if cfg.KeySecret == "" {
		return nil, fmt.Errorf("KEY_SECRET is required")
	}
	if len(cfg.KeySecret) < 16 {
		return nil, fmt.Errorf("KEY_SECRET must be at least 16 characters")
	}

	if cfg.StoreBackend == StoreBackendSQLite {
		dataDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getPositiveInt parses an integer environment variable that must be greater than zero.
func getPositiveInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}
