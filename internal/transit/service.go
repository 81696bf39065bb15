package transit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/gonsw/gonsw/internal/cache"
	"github.com/gonsw/gonsw/internal/telemetry"
	"github.com/gonsw/gonsw/internal/trip"
)

const tracerName = "github.com/gonsw/gonsw/internal/transit"

// maxStationNameLength bounds free-text station input.
const maxStationNameLength = 120

// Provider defines the interface for trip planning providers.
type Provider interface {
	// FindStop resolves a station name to a stop. Returns ErrStationNotFound when nothing matches.
	FindStop(ctx context.Context, name string) (*Stop, error)

	// NearestStation finds the closest rail station to a coordinate.
	// Returns ErrNoStationNearby when none is in range.
	NearestStation(ctx context.Context, lat, lon float64) (*NearbyStation, error)

	// PlanTrip returns raw candidate journeys between two stops.
	PlanTrip(ctx context.Context, req PlanRequest) ([]*trip.RawJourney, error)

	// Name returns the provider name for logging.
	Name() string
}

// VehicleFeed provides live vehicle positions.
type VehicleFeed interface {
	VehiclePositions(ctx context.Context) ([]*VehiclePosition, error)
}

// ServiceConfig holds configuration for the transit service.
type ServiceConfig struct {
	// Provider is the trip planning provider.
	Provider Provider

	// VehicleFeed is optional; without it VehicleLocations returns ErrVehicleFeedDisabled.
	VehicleFeed VehicleFeed

	// Cache stores journey results. Defaults to an in-memory store.
	Cache cache.Store

	// Normalizer converts provider journeys. Defaults to a Sydney-time normalizer.
	Normalizer *trip.Normalizer

	// Metrics is optional.
	Metrics *telemetry.ProviderMetrics

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long a journey search is served without refetching (default: 30 seconds).
	// Matches the polling interval of the mobile client.
	CacheTTL time.Duration

	// StopCacheTTL is how long resolved stop ids are kept (default: 24 hours).
	StopCacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale journeys on provider errors (default: 10 minutes).
	StaleIfErrorTTL time.Duration

	// MaxJourneys is passed to the provider (default: 10).
	MaxJourneys int

	// FetchTimeout bounds a shared provider call (default: 20 seconds).
	// Shared calls outlive the request that started them.
	FetchTimeout time.Duration

	// Now overrides the clock (optional).
	Now func() time.Time
}

// Service searches journeys with caching and stale-if-error fallback.
type Service struct {
	provider        Provider
	vehicles        VehicleFeed
	store           cache.Store
	normalizer      *trip.Normalizer
	metrics         *telemetry.ProviderMetrics
	tracer          trace.Tracer
	logger          zerolog.Logger
	cacheTTL        time.Duration
	stopCacheTTL    time.Duration
	staleIfErrorTTL time.Duration
	maxJourneys     int
	fetchTimeout    time.Duration
	now             func() time.Time

	group singleflight.Group

	mu              sync.RWMutex
	stopCache       map[string]*cachedStop
	lastCleanup     time.Time
	cleanupInterval time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
	stale  atomic.Uint64
}

type cachedStop struct {
	stop      *Stop
	expiresAt time.Time
}

// cachedJourneys is the serialized cache entry for a search.
type cachedJourneys struct {
	Journeys  []*trip.Journey `json:"journeys"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// NewService creates a new transit service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 30 * time.Second
	}

	stopCacheTTL := cfg.StopCacheTTL
	if stopCacheTTL == 0 {
		stopCacheTTL = 24 * time.Hour
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 10 * time.Minute
	}
	if staleIfErrorTTL < cacheTTL {
		staleIfErrorTTL = cacheTTL
	}

	maxJourneys := cfg.MaxJourneys
	if maxJourneys == 0 {
		maxJourneys = 10
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = 20 * time.Second
	}

	store := cfg.Cache
	if store == nil {
		store = cache.NewMemoryStore()
	}

	normalizer := cfg.Normalizer
	if normalizer == nil {
		normalizer = trip.NewNormalizer(trip.NormalizerConfig{Logger: cfg.Logger})
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider:        cfg.Provider,
		vehicles:        cfg.VehicleFeed,
		store:           store,
		normalizer:      normalizer,
		metrics:         cfg.Metrics,
		tracer:          telemetry.Tracer(tracerName),
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		stopCacheTTL:    stopCacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		maxJourneys:     maxJourneys,
		fetchTimeout:    fetchTimeout,
		now:             now,
		stopCache:       make(map[string]*cachedStop),
		cleanupInterval: 10 * time.Minute,
	}
}

// SearchJourneys resolves both stations, then returns normalized, de-duplicated
// journeys. Fresh cached results are served without a provider call; stale ones
// are served only when the provider fails.
func (s *Service) SearchJourneys(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	ctx, span := s.tracer.Start(ctx, "transit.SearchJourneys")
	defer span.End()

	from, to, err := validateSearch(req)
	if err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	departAt := req.DepartAt
	departNow := departAt.IsZero()
	if departNow {
		departAt = s.now()
	}
	departAt = departAt.Truncate(time.Minute)

	span.SetAttributes(
		attribute.String("journey.from", from),
		attribute.String("journey.to", to),
	)

	fromStop, toStop, err := s.resolvePair(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolving stations")
		return nil, err
	}

	key := journeyCacheKey(fromStop.ID, toStop.ID, departAt)

	cached, cacheErr := s.loadJourneys(ctx, key)
	if cacheErr == nil && s.now().Before(cached.FetchedAt.Add(s.cacheTTL)) {
		s.hits.Add(1)
		s.metrics.RecordCacheHit("search_journeys")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &SearchResult{From: *fromStop, To: *toStop, Journeys: cached.Journeys, FetchedAt: cached.FetchedAt}, nil
	}
	s.misses.Add(1)
	s.metrics.RecordCacheMiss("search_journeys")

	// Departing-now searches also keep the latest result per pair, so the
	// stale fallback survives the minute rolling over.
	keys := []string{key}
	flight := key
	if departNow {
		keys = append(keys, latestJourneysKey(fromStop.ID, toStop.ID))
		flight += ":now"
	}

	// Concurrent identical searches share one provider call, detached from
	// any single caller's cancellation.
	ch := s.group.DoChan(flight, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetchJourneys(fetchCtx, PlanRequest{
			OriginID:      fromStop.ID,
			DestinationID: toStop.ID,
			DepartAt:      departAt,
			MaxJourneys:   s.maxJourneys,
		}, keys...)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		span.SetStatus(codes.Error, "request cancelled")
		return nil, ctx.Err()
	}
	if res.Err == nil {
		entry := res.Val.(*cachedJourneys)
		span.SetAttributes(attribute.Int("journey.count", len(entry.Journeys)))
		return &SearchResult{From: *fromStop, To: *toStop, Journeys: entry.Journeys, FetchedAt: entry.FetchedAt}, nil
	}
	err = res.Err

	s.logger.Error().Err(err).
		Str("from", from).
		Str("to", to).
		Msg("failed to fetch journeys")

	if cacheErr != nil && departNow {
		cached, cacheErr = s.loadJourneys(ctx, latestJourneysKey(fromStop.ID, toStop.ID))
	}
	if cacheErr == nil && s.now().Before(cached.FetchedAt.Add(s.staleIfErrorTTL)) {
		s.stale.Add(1)
		s.metrics.RecordStaleServed("search_journeys")
		s.logger.Warn().
			Time("fetched_at", cached.FetchedAt).
			Msg("serving stale journeys due to provider error")
		return &SearchResult{From: *fromStop, To: *toStop, Journeys: cached.Journeys, FetchedAt: cached.FetchedAt, Stale: true}, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "provider unavailable")
	return nil, ErrProviderUnavailable
}

// fetchJourneys calls the provider, normalizes and de-duplicates the result,
// then stores it under each key for the stale window.
func (s *Service) fetchJourneys(ctx context.Context, req PlanRequest, keys ...string) (*cachedJourneys, error) {
	s.logger.Debug().
		Str("provider", s.provider.Name()).
		Str("origin", req.OriginID).
		Str("destination", req.DestinationID).
		Msg("fetching journeys from provider")

	start := time.Now()
	raw, err := s.provider.PlanTrip(ctx, req)
	s.metrics.RecordRequest("plan_trip", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	entry := &cachedJourneys{
		Journeys:  trip.Dedupe(s.normalizer.Normalize(raw)),
		FetchedAt: s.now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encoding journeys: %w", err)
	}
	for _, key := range keys {
		if err := s.store.Set(ctx, key, data, s.staleIfErrorTTL); err != nil {
			// The result is still usable without the cache.
			s.logger.Warn().Err(err).Str("store", s.store.Name()).Str("key", key).Msg("failed to cache journeys")
		}
	}

	s.logger.Info().
		Str("origin", req.OriginID).
		Str("destination", req.DestinationID).
		Int("raw", len(raw)).
		Int("journeys", len(entry.Journeys)).
		Msg("journeys refreshed")

	return entry, nil
}

func (s *Service) loadJourneys(ctx context.Context, key string) (*cachedJourneys, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn().Err(err).Str("store", s.store.Name()).Msg("journey cache read failed")
		}
		return nil, err
	}

	var entry cachedJourneys
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding corrupt journey cache entry")
		return nil, fmt.Errorf("decoding cached journeys: %w", err)
	}
	return &entry, nil
}

// resolvePair looks up both stations concurrently; the first error wins.
func (s *Service) resolvePair(ctx context.Context, from, to string) (*Stop, *Stop, error) {
	var fromStop, toStop *Stop

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		stop, err := s.ResolveStop(ctx, from)
		fromStop = stop
		return err
	})
	p.Go(func(ctx context.Context) error {
		stop, err := s.ResolveStop(ctx, to)
		toStop = stop
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}

	return fromStop, toStop, nil
}

// ResolveStop returns the stop for a station name, using the stop cache.
func (s *Service) ResolveStop(ctx context.Context, name string) (*Stop, error) {
	name = trip.CleanStationName(name)
	if name == "" {
		return nil, ErrStationNotFound
	}
	key := strings.ToLower(name)

	s.mu.RLock()
	if cached, ok := s.stopCache[key]; ok && s.now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.stop, nil
	}
	s.mu.RUnlock()

	start := time.Now()
	stop, err := s.provider.FindStop(ctx, name)
	s.metrics.RecordRequest("find_stop", time.Since(start), err)
	if err != nil {
		if errors.Is(err, ErrStationNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrStationNotFound, name)
		}
		s.logger.Error().Err(err).Str("station", name).Msg("failed to resolve station")
		return nil, ErrProviderUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCache[key] = &cachedStop{stop: stop, expiresAt: s.now().Add(s.stopCacheTTL)}
	s.cleanupIfNeeded()

	return stop, nil
}

// NearestStation returns the closest station to a coordinate, with its name cleaned.
func (s *Service) NearestStation(ctx context.Context, lat, lon float64) (*NearbyStation, error) {
	if err := validateCoordinate(lat, lon); err != nil {
		return nil, err
	}

	start := time.Now()
	station, err := s.provider.NearestStation(ctx, lat, lon)
	s.metrics.RecordRequest("nearest_station", time.Since(start), err)
	if err != nil {
		if errors.Is(err, ErrNoStationNearby) {
			return nil, err
		}
		s.logger.Error().Err(err).Msg("failed to find nearest station")
		return nil, ErrProviderUnavailable
	}

	out := *station
	out.Name = trip.CleanStationName(station.Name)
	return &out, nil
}

// VehicleLocations returns live positions for one realtime trip id.
func (s *Service) VehicleLocations(ctx context.Context, realtimeTripID string) ([]*VehiclePosition, error) {
	realtimeTripID = strings.TrimSpace(realtimeTripID)
	if realtimeTripID == "" {
		return nil, &ValidationError{Errors: []FieldError{{Field: "tripId", Message: "is required"}}}
	}
	if s.vehicles == nil {
		return nil, ErrVehicleFeedDisabled
	}

	start := time.Now()
	positions, err := s.vehicles.VehiclePositions(ctx)
	s.metrics.RecordRequest("vehicle_positions", time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch vehicle positions")
		return nil, ErrProviderUnavailable
	}

	matched := make([]*VehiclePosition, 0, 1)
	for _, p := range positions {
		if p != nil && p.TripID == realtimeTripID {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// PingCache reports whether the journey cache is reachable.
func (s *Service) PingCache(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// InvalidateCache clears the stop cache. Journey entries expire on their own.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCache = make(map[string]*cachedStop)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	entries := len(s.stopCache)
	s.mu.RUnlock()

	return CacheStats{
		Provider:         s.provider.Name(),
		Store:            s.store.Name(),
		StopCacheEntries: entries,
		JourneyHits:      s.hits.Load(),
		JourneyMisses:    s.misses.Load(),
		StaleServed:      s.stale.Load(),
	}
}

// cleanupIfNeeded removes expired stop cache entries. Caller must hold the write lock.
func (s *Service) cleanupIfNeeded() {
	now := s.now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := 0
	for key, cached := range s.stopCache {
		if !now.Before(cached.expiresAt) {
			delete(s.stopCache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired stop cache entries")
	}
}

func journeyCacheKey(originID, destinationID string, departAt time.Time) string {
	return "journeys:" + originID + ":" + destinationID + ":" + departAt.UTC().Format("200601021504")
}

// latestJourneysKey holds the most recent departing-now result for a pair.
func latestJourneysKey(originID, destinationID string) string {
	return "journeys:latest:" + originID + ":" + destinationID
}

func validateSearch(req SearchRequest) (string, string, error) {
	from := trip.CleanStationName(req.From)
	to := trip.CleanStationName(req.To)

	var errs []FieldError
	check := func(field, value string) {
		switch {
		case value == "":
			errs = append(errs, FieldError{Field: field, Message: "is required"})
		case len(value) > maxStationNameLength:
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters", maxStationNameLength)})
		}
	}
	check("from", from)
	check("to", to)

	if len(errs) == 0 && strings.EqualFold(from, to) {
		errs = append(errs, FieldError{Field: "to", Message: "must differ from origin"})
	}

	if len(errs) > 0 {
		return "", "", &ValidationError{Errors: errs}
	}
	return from, to, nil
}

func validateCoordinate(lat, lon float64) error {
	var errs []FieldError
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		errs = append(errs, FieldError{Field: "lat", Message: "must be between -90 and 90"})
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		errs = append(errs, FieldError{Field: "lon", Message: "must be between -180 and 180"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
