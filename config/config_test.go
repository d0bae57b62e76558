package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 50, cfg.Lock.MaxQueue)
	assert.Equal(t, 3, cfg.Lock.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Context.DisambiguationTTL)
	assert.Equal(t, 30*time.Minute, cfg.Context.GeneralTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.ValidateInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
lock:
  ttl: 10s
  max_queue: 5
cache:
  ttl: 1m
redis:
  addr: localhost:6379
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 5, cfg.Lock.MaxQueue)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Untouched knobs keep their defaults.
	assert.Equal(t, 3, cfg.Lock.MaxRetries)
	assert.Equal(t, 30*time.Minute, cfg.Context.GeneralTTL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
redis:
  addr: from-file:6379
log_level: warn
`)
	t.Setenv("REDIS_ADDR", "from-env:6379")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env:6379", cfg.Redis.Addr)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Lock.TTL, cfg.Lock.TTL)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "lock: [not a map")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MetricsEnabledByEnv(t *testing.T) {
	t.Setenv("METRICS_ADDR", ":9999")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
}
