package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	Debug        bool
	HTTPPort     string
	DatabasePath string
	LogDir       string
	Sync         SyncConfig
	// NotifyURLs are shoutrrr service URLs that receive source sync events.
	NotifyURLs []string
}

// SyncConfig controls how rule sources are fetched and refreshed.
type SyncConfig struct {
	FetchTimeout time.Duration
	// FetchesPerMinute bounds outbound HTTP feed downloads.
	FetchesPerMinute int
	// Schedule is a cron expression; empty disables periodic refresh.
	Schedule    string
	Concurrency int
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
// A .env file in the working directory (or SCIRIUS_ENV_FILE) is applied first without
// overriding variables that are already set.
func Load() (Config, error) {
	envFile := getEnv("SCIRIUS_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	timeout, err := time.ParseDuration(getEnv("SCIRIUS_FETCH_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCIRIUS_FETCH_TIMEOUT: %w", err)
	}
	rate, err := strconv.Atoi(getEnv("SCIRIUS_FETCH_RATE", "30"))
	if err != nil || rate <= 0 {
		return Config{}, fmt.Errorf("invalid SCIRIUS_FETCH_RATE %q", os.Getenv("SCIRIUS_FETCH_RATE"))
	}
	concurrency, err := strconv.Atoi(getEnv("SCIRIUS_SYNC_CONCURRENCY", "2"))
	if err != nil || concurrency <= 0 {
		return Config{}, fmt.Errorf("invalid SCIRIUS_SYNC_CONCURRENCY %q", os.Getenv("SCIRIUS_SYNC_CONCURRENCY"))
	}

	cfg := Config{
		Environment:  getEnv("SCIRIUS_ENV", "development"),
		Debug:        strings.EqualFold(getEnv("SCIRIUS_DEBUG", "false"), "true"),
		HTTPPort:     getEnv("SCIRIUS_HTTP_PORT", "8080"),
		DatabasePath: getEnv("SCIRIUS_DB_PATH", filepath.Join("data", "scirius.db")),
		LogDir:       getEnv("SCIRIUS_LOG_DIR", filepath.Join("data", "logs")),
		Sync: SyncConfig{
			FetchTimeout:     timeout,
			FetchesPerMinute: rate,
			Schedule:         os.Getenv("SCIRIUS_SYNC_SCHEDULE"),
			Concurrency:      concurrency,
		},
		NotifyURLs: splitList(os.Getenv("SCIRIUS_NOTIFY_URLS")),
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
