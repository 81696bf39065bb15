package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonsw/gonsw/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_SIGNING_KEY", "")
	t.Setenv("FAVORITES_STORE", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "https://api.transport.nsw.gov.au", cfg.TfNSWBaseURL)
	assert.Equal(t, "sydneytrains", cfg.TfNSWVehicleFeed)
	assert.Equal(t, "Australia/Sydney", cfg.Location.String())
	assert.Equal(t, 30*time.Second, cfg.JourneyCacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.JourneyStaleTTL)
	assert.Equal(t, 24*time.Hour, cfg.StopCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.WorkerInterval)
	assert.Equal(t, config.FavoritesPostgres, cfg.FavoritesStore)
	assert.True(t, cfg.UsesDevSigningKey())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("TFNSW_API_KEY", "secret")
	t.Setenv("TFNSW_VEHICLE_FEED", "metro")
	t.Setenv("TRIP_TIMEZONE", "UTC")
	t.Setenv("JOURNEY_CACHE_TTL", "45s")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("REQUIRE_TLS", "true")
	t.Setenv("FAVORITES_STORE", "Memory")
	t.Setenv("JWT_SIGNING_KEY", "real-key")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "secret", cfg.TfNSWAPIKey)
	assert.Equal(t, "metro", cfg.TfNSWVehicleFeed)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 45*time.Second, cfg.JourneyCacheTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.True(t, cfg.OTelEnabled)
	assert.True(t, cfg.RequireTLS)
	assert.Equal(t, config.FavoritesMemory, cfg.FavoritesStore)
	assert.False(t, cfg.UsesDevSigningKey())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "JOURNEY_CACHE_TTL", "soon"},
		{"negative duration", "WORKER_INTERVAL", "-5s"},
		{"bad int", "REDIS_DB", "two"},
		{"bad bool", "OTEL_ENABLED", "maybe"},
		{"sample ratio above one", "OTEL_TRACES_SAMPLER_ARG", "1.5"},
		{"bad timezone", "TRIP_TIMEZONE", "Mars/Olympus"},
		{"bad store", "FAVORITES_STORE", "sqlite"},
		{"stale shorter than fresh", "JOURNEY_STALE_TTL", "5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_ProductionRequiresSigningKey(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")
}
