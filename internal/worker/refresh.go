package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/gonsw/gonsw/internal/favorite"
	"github.com/gonsw/gonsw/internal/transit"
)

// JourneySearcher searches journeys, filling the journey cache as a side effect.
type JourneySearcher interface {
	SearchJourneys(ctx context.Context, req transit.SearchRequest) (*transit.SearchResult, error)
}

// PairSource lists the station pairs users save most often.
type PairSource interface {
	PopularPairs(ctx context.Context, limit int) ([]favorite.Pair, error)
}

// RefreshJob keeps journeys for watched routes warm in the cache.
type RefreshJob struct {
	config    RefreshConfig
	logger    zerolog.Logger
	searcher  JourneySearcher
	favorites PairSource

	mu    sync.Mutex
	stats RefreshMetrics
}

// RefreshMetrics accumulates run outcomes since the job was created.
type RefreshMetrics struct {
	Runs            int64
	RoutesSucceeded int64
	RoutesFailed    int64
	StaleResults    int64
	JourneysFetched int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

func (m *RefreshMetrics) add(r *RefreshResult) {
	m.Runs++
	m.RoutesSucceeded += int64(r.Successful)
	m.RoutesFailed += int64(r.Failed)
	m.StaleResults += int64(r.Stale)
	m.JourneysFetched += int64(r.Journeys)
	m.LastRunAt = r.EndTime
	m.LastRunDuration = r.Duration
	m.TotalDuration += r.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config   RefreshConfig
	Logger   zerolog.Logger
	Searcher JourneySearcher

	// Favorites adds the most saved pairs to each run (optional).
	Favorites PairSource
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Routes) == 0 {
		config.Routes = DefaultWatchedRoutes()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &RefreshJob{
		config:    config,
		logger:    cfg.Logger,
		searcher:  cfg.Searcher,
		favorites: cfg.Favorites,
	}
}

// RefreshResult contains the result of a refresh operation.
type RefreshResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalRoutes int
	Successful  int
	Failed      int
	Stale       int
	Journeys    int
	Errors      []RefreshError
}

// RefreshError represents an error during refresh.
type RefreshError struct {
	Route WatchedRoute
	Error string
}

type routeResult struct {
	route    WatchedRoute
	journeys int
	stale    bool
	err      error
}

// Run searches every watched route once.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	routes := j.routes(ctx)

	result := &RefreshResult{
		StartTime:   startTime,
		TotalRoutes: len(routes),
	}

	j.logger.Info().
		Int("total_routes", result.TotalRoutes).
		Int("concurrency", j.config.Concurrency).
		Msg("starting journey refresh job")

	p := pool.NewWithResults[routeResult]().WithMaxGoroutines(j.config.Concurrency)
	for _, route := range routes {
		p.Go(func() routeResult {
			return j.refreshRoute(ctx, route)
		})
	}

	for _, rr := range p.Wait() {
		switch {
		case rr.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{Route: rr.route, Error: rr.err.Error()})
		case rr.stale:
			// The provider failed and the cache answered; nothing was refreshed.
			result.Failed++
			result.Stale++
			result.Errors = append(result.Errors, RefreshError{Route: rr.route, Error: "provider unavailable, served stale"})
		default:
			result.Successful++
			result.Journeys += rr.journeys
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.mu.Lock()
	j.stats.add(result)
	j.mu.Unlock()

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("stale", result.Stale).
		Int("journeys", result.Journeys).
		Msg("journey refresh job completed")

	return result
}

// HealthCheck searches the highest priority route to verify provider connectivity.
func (j *RefreshJob) HealthCheck(ctx context.Context) error {
	routes := j.config.SortedRoutes()
	if len(routes) == 0 {
		return nil
	}

	rr := j.refreshRoute(ctx, routes[0])
	if rr.err != nil {
		return fmt.Errorf("health check failed: %w", rr.err)
	}
	if rr.stale {
		return fmt.Errorf("health check failed: %w", transit.ErrProviderUnavailable)
	}
	return nil
}

// routes returns the configured routes followed by popular favorite pairs not already watched.
func (j *RefreshJob) routes(ctx context.Context) []WatchedRoute {
	routes := j.config.SortedRoutes()
	if j.favorites == nil || j.config.FavoriteLimit <= 0 {
		return routes
	}

	pairs, err := j.favorites.PopularPairs(ctx, j.config.FavoriteLimit)
	if err != nil {
		j.logger.Warn().Err(err).Msg("failed to load popular saved routes")
		return routes
	}

	seen := make(map[string]struct{}, len(routes)+len(pairs))
	for _, r := range routes {
		seen[routeKey(r.From, r.To)] = struct{}{}
	}

	lowest := 0
	for _, r := range routes {
		lowest = max(lowest, r.Priority)
	}

	for _, pair := range pairs {
		key := routeKey(pair.From, pair.To)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		routes = append(routes, WatchedRoute{From: pair.From, To: pair.To, Priority: lowest + 1})
	}
	return routes
}

func (j *RefreshJob) refreshRoute(ctx context.Context, route WatchedRoute) routeResult {
	rr := routeResult{route: route}

	if err := ctx.Err(); err != nil {
		rr.err = err
		return rr
	}

	routeCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	res, err := j.searcher.SearchJourneys(routeCtx, transit.SearchRequest{From: route.From, To: route.To})
	if err != nil {
		j.logger.Debug().Err(err).
			Str("from", route.From).
			Str("to", route.To).
			Msg("route refresh failed")
		rr.err = err
		return rr
	}

	rr.journeys = len(res.Journeys)
	rr.stale = res.Stale
	return rr
}

func routeKey(from, to string) string {
	return strings.ToLower(from) + "|" + strings.ToLower(to)
}

// Metrics returns a copy of the accumulated run metrics.
func (j *RefreshJob) Metrics() RefreshMetrics {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

// MetricsSnapshot renders Metrics for the worker health endpoint.
func (j *RefreshJob) MetricsSnapshot() map[string]any {
	m := j.Metrics()
	return map[string]any{
		"runs":              m.Runs,
		"routes_succeeded":  m.RoutesSucceeded,
		"routes_failed":     m.RoutesFailed,
		"stale_results":     m.StaleResults,
		"journeys_fetched":  m.JourneysFetched,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
