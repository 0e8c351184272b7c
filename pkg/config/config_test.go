package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, "sportscenter", cfg.API.ClientID)
	assert.Equal(t, StoreBackendFile, cfg.Store.Backend)
	assert.True(t, cfg.Reconciler.Enabled)
	assert.Equal(t, "@every 1m", cfg.Reconciler.Schedule)
	assert.Equal(t, 10, cfg.Reconciler.MaxAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://booking.example.com/")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("STORE_BACKEND", StoreBackendRedis)
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("RECONCILER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	// Trailing slash is trimmed so path joins stay predictable.
	assert.Equal(t, "https://booking.example.com", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, StoreBackendRedis, cfg.Store.Backend)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.False(t, cfg.Reconciler.Enabled)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("garbage", time.Minute))
	assert.Equal(t, 30*time.Second, parseDuration("30s", time.Minute))
}
