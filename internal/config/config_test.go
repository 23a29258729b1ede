package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCIRIUS_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("SCIRIUS_DB_PATH", filepath.Join(dir, "db", "scirius.db"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Sync.FetchTimeout)
	assert.Equal(t, 30, cfg.Sync.FetchesPerMinute)
	assert.Equal(t, 2, cfg.Sync.Concurrency)
	assert.Empty(t, cfg.Sync.Schedule)
	assert.Empty(t, cfg.NotifyURLs)
	assert.DirExists(t, filepath.Join(dir, "db"))
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := "SCIRIUS_HTTP_PORT=9090\nSCIRIUS_SYNC_SCHEDULE=@every 1h\nSCIRIUS_NOTIFY_URLS=generic://example.com/hook, logger://\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("SCIRIUS_ENV_FILE", envFile)
	t.Setenv("SCIRIUS_DB_PATH", filepath.Join(dir, "scirius.db"))
	// godotenv must not clobber variables that are already set
	t.Setenv("SCIRIUS_HTTP_PORT", "7000")
	for _, key := range []string{"SCIRIUS_SYNC_SCHEDULE", "SCIRIUS_NOTIFY_URLS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.HTTPPort)
	assert.Equal(t, "@every 1h", cfg.Sync.Schedule)
	assert.Equal(t, []string{"generic://example.com/hook", "logger://"}, cfg.NotifyURLs)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCIRIUS_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("SCIRIUS_DB_PATH", filepath.Join(dir, "scirius.db"))

	t.Setenv("SCIRIUS_FETCH_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SCIRIUS_FETCH_TIMEOUT", "5s")
	t.Setenv("SCIRIUS_SYNC_CONCURRENCY", "0")
	_, err = Load()
	assert.Error(t, err)
}
