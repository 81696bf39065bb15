// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Favorites store backends.
const (
	FavoritesPostgres = "postgres"
	FavoritesMemory   = "memory"
)

// devSigningKey is only accepted outside production.
const devSigningKey = "local-dev-signing-key-change-in-production"

// Config holds configuration shared by the API server, the worker and the CLI.
type Config struct {
	Port        string
	Environment string
	RequireTLS  bool

	LogLevel  string
	LogFormat string

	TfNSWAPIKey      string
	TfNSWBaseURL     string
	TfNSWVehicleFeed string
	Location         *time.Location

	JourneyCacheTTL time.Duration
	JourneyStaleTTL time.Duration
	StopCacheTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	JWTTokenTTL   time.Duration

	FavoritesStore string

	OTelEnabled     bool
	OTLPEndpoint    string
	OTelSampleRatio float64

	PubSubProjectID    string
	PubSubSubscription string
	WorkerInterval     time.Duration
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnvOrDefault("APP_PORT", "8080"),
		Environment:        getEnvOrDefault("APP_ENV", "development"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "json"),
		TfNSWAPIKey:        os.Getenv("TFNSW_API_KEY"),
		TfNSWBaseURL:       getEnvOrDefault("TFNSW_BASE_URL", "https://api.transport.nsw.gov.au"),
		TfNSWVehicleFeed:   getEnvOrDefault("TFNSW_VEHICLE_FEED", "sydneytrains"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		JWTSigningKey:      os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:          getEnvOrDefault("JWT_ISSUER", "https://api.gonsw.app"),
		JWTAudience:        getEnvOrDefault("JWT_AUDIENCE", "gonsw-api"),
		FavoritesStore:     strings.ToLower(getEnvOrDefault("FAVORITES_STORE", FavoritesPostgres)),
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "gonsw-worker-jobs"),
	}

	var errs []error

	tz := getEnvOrDefault("TRIP_TIMEZONE", "Australia/Sydney")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TRIP_TIMEZONE %q: %w", tz, err))
	}
	cfg.Location = loc

	cfg.JourneyCacheTTL = getEnvDuration("JOURNEY_CACHE_TTL", 30*time.Second, &errs)
	cfg.JourneyStaleTTL = getEnvDuration("JOURNEY_STALE_TTL", 10*time.Minute, &errs)
	cfg.StopCacheTTL = getEnvDuration("STOP_CACHE_TTL", 24*time.Hour, &errs)
	cfg.JWTTokenTTL = getEnvDuration("JWT_TOKEN_TTL", 24*time.Hour, &errs)
	cfg.WorkerInterval = getEnvDuration("WORKER_INTERVAL", 30*time.Second, &errs)
	cfg.RedisDB = getEnvInt("REDIS_DB", 0, &errs)
	cfg.OTelEnabled = getEnvBool("OTEL_ENABLED", false, &errs)
	cfg.RequireTLS = getEnvBool("REQUIRE_TLS", false, &errs)
	cfg.OTelSampleRatio = getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1, &errs)

	switch cfg.FavoritesStore {
	case FavoritesPostgres, FavoritesMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid FAVORITES_STORE %q: want %s or %s", cfg.FavoritesStore, FavoritesPostgres, FavoritesMemory))
	}

	if cfg.JourneyStaleTTL < cfg.JourneyCacheTTL {
		errs = append(errs, errors.New("JOURNEY_STALE_TTL must not be shorter than JOURNEY_CACHE_TTL"))
	}

	if cfg.JWTSigningKey == "" {
		if cfg.IsProduction() {
			errs = append(errs, errors.New("JWT_SIGNING_KEY is required in production"))
		}
		cfg.JWTSigningKey = devSigningKey
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesDevSigningKey reports whether the insecure fallback JWT key is in use.
func (c *Config) UsesDevSigningKey() bool {
	return c.JWTSigningKey == devSigningKey
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %q", key, v))
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		*errs = append(*errs, fmt.Errorf("invalid %s: %q (want 0..1)", key, v))
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("invalid %s: %q", key, v))
		return defaultValue
	}
	return d
}

func getEnvBool(key string, defaultValue bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		*errs = append(*errs, fmt.Errorf("invalid %s: %q", key, v))
		return defaultValue
	}
}
