// Package app wires configuration into the services shared by the API server,
// the worker and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gonsw/gonsw/internal/cache"
	"github.com/gonsw/gonsw/internal/config"
	"github.com/gonsw/gonsw/internal/database"
	"github.com/gonsw/gonsw/internal/favorite"
	"github.com/gonsw/gonsw/internal/provider/resilience"
	"github.com/gonsw/gonsw/internal/telemetry"
	"github.com/gonsw/gonsw/internal/transit"
	"github.com/gonsw/gonsw/internal/transit/tfnsw"
	"github.com/gonsw/gonsw/internal/trip"
)

// Transit holds the journey search stack.
type Transit struct {
	Service  *transit.Service
	Cache    cache.Store
	Registry *resilience.Registry

	closers []func() error
}

// Close releases the cache connection.
func (t *Transit) Close() error {
	var firstErr error
	for _, c := range t.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewTransit builds the TfNSW client, journey cache and transit service.
// Without REDIS_ADDR journeys are cached in memory.
func NewTransit(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Transit, error) {
	if cfg.TfNSWAPIKey == "" {
		log.Warn().Msg("TFNSW_API_KEY not set - trip planner requests will be rejected")
	}

	t := &Transit{Registry: resilience.NewRegistry()}

	if cfg.RedisAddr != "" {
		store, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		t.Cache = store
		t.closers = append(t.closers, store.Close)
		log.Info().Str("addr", cfg.RedisAddr).Msg("journey cache using redis")
	} else {
		t.Cache = cache.NewMemoryStore()
		log.Info().Msg("journey cache using memory")
	}

	httpCfg := resilience.DefaultClientConfig(tfnsw.ProviderName)
	httpCfg.Registry = t.Registry
	httpCfg.Logger = log

	client := tfnsw.NewClient(tfnsw.ClientConfig{
		APIKey:      cfg.TfNSWAPIKey,
		BaseURL:     cfg.TfNSWBaseURL,
		VehicleFeed: cfg.TfNSWVehicleFeed,
		Location:    cfg.Location,
		HTTPClient:  resilience.NewClient(httpCfg),
		Logger:      log.With().Str("provider", tfnsw.ProviderName).Logger(),
	})

	metrics, err := telemetry.NewProviderMetrics(tfnsw.ProviderName)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("creating provider metrics: %w", err)
	}

	t.Service = transit.NewService(transit.ServiceConfig{
		Provider:    client,
		VehicleFeed: client,
		Cache:       t.Cache,
		Normalizer: trip.NewNormalizer(trip.NormalizerConfig{
			Location:         cfg.Location,
			Logger:           log,
			IncludePaths:     true,
			PathSampleMeters: 25,
		}),
		Metrics:         metrics,
		Logger:          log,
		CacheTTL:        cfg.JourneyCacheTTL,
		StopCacheTTL:    cfg.StopCacheTTL,
		StaleIfErrorTTL: cfg.JourneyStaleTTL,
	})

	return t, nil
}

// Favorites holds the saved routes service and its database pool, if any.
type Favorites struct {
	Service *favorite.Service
	Pool    *pgxpool.Pool
}

// Close closes the database pool.
func (f *Favorites) Close() {
	if f.Pool != nil {
		f.Pool.Close()
	}
}

// NewFavorites builds the saved routes service on the configured store.
// The postgres store is migrated on startup.
func NewFavorites(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Favorites, error) {
	f := &Favorites{}

	var repo favorite.Repository
	switch cfg.FavoritesStore {
	case config.FavoritesMemory:
		repo = favorite.NewInMemoryRepository()
		log.Warn().Msg("saved routes kept in memory - they are lost on restart")
	default:
		dbConfig, err := database.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Str("target", dbConfig.Target()).Msg("database connected")

		f.Pool = pool
		repo = favorite.NewPostgresRepository(pool)
	}

	f.Service = favorite.NewService(favorite.ServiceConfig{
		Repository: repo,
		Logger:     log,
	})
	return f, nil
}
