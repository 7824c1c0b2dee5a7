// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all SkyBox daemon configuration.
type Config struct {
	// Local index database
	DBPath string

	// Identity whose saved-message stream is indexed
	OwnerID string
	ChatID  int64

	// Sync behaviour
	BatchSize    int
	PollInterval time.Duration

	// Thumbnails
	ThumbnailDir     string
	ThumbnailWorkers int

	// Logging
	LogLevel  string
	LogFormat string

	// Metrics (empty = disabled)
	MetricsAddr string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:           envOr("SKYBOX_DB_PATH", "skybox.db"),
		OwnerID:          envOr("SKYBOX_OWNER_ID", ""),
		ChatID:           envInt64("SKYBOX_CHAT_ID", 0),
		BatchSize:        envInt("SKYBOX_BATCH_SIZE", 50),
		PollInterval:     envDuration("SKYBOX_POLL_INTERVAL", 2*time.Second),
		ThumbnailDir:     envOr("SKYBOX_THUMBNAIL_DIR", ".thumbnails"),
		ThumbnailWorkers: envInt("SKYBOX_THUMBNAIL_WORKERS", 2),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "json"),
		MetricsAddr:      envOr("METRICS_ADDR", ""),
	}

	if cfg.OwnerID == "" {
		return nil, fmt.Errorf("SKYBOX_OWNER_ID is required")
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("SKYBOX_BATCH_SIZE must be positive")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
