package worker_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonsw/gonsw/internal/favorite"
	"github.com/gonsw/gonsw/internal/transit"
	"github.com/gonsw/gonsw/internal/trip"
	"github.com/gonsw/gonsw/internal/worker"
)

// mockSearcher records searches and answers from a per-route table.
type mockSearcher struct {
	mu       sync.Mutex
	searched []string
	failing  map[string]bool
	stale    map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (m *mockSearcher) SearchJourneys(ctx context.Context, req transit.SearchRequest) (*transit.SearchResult, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.peak.Load()
		if n <= peak || m.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	key := req.From + "->" + req.To
	m.mu.Lock()
	m.searched = append(m.searched, key)
	m.mu.Unlock()

	if m.failing[key] {
		return nil, transit.ErrProviderUnavailable
	}
	return &transit.SearchResult{
		Journeys: []*trip.Journey{{}, {}},
		Stale:    m.stale[key],
	}, nil
}

func (m *mockSearcher) routes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.searched))
	copy(out, m.searched)
	return out
}

type mockPairs struct {
	pairs []favorite.Pair
	err   error
	limit int
}

func (m *mockPairs) PopularPairs(_ context.Context, limit int) ([]favorite.Pair, error) {
	m.limit = limit
	return m.pairs, m.err
}

func testRoutes() []worker.WatchedRoute {
	return []worker.WatchedRoute{
		{From: "Central", To: "Town Hall", Priority: 1},
		{From: "Parramatta", To: "Central", Priority: 2},
	}
}

func TestDefaultRefreshConfig(t *testing.T) {
	cfg := worker.DefaultRefreshConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 20, cfg.FavoriteLimit)
	assert.NotEmpty(t, cfg.Routes)
}

func TestDefaultWatchedRoutes(t *testing.T) {
	routes := worker.DefaultWatchedRoutes()

	assert.GreaterOrEqual(t, len(routes), 10)

	for _, r := range routes {
		assert.NotEmpty(t, r.From)
		assert.NotEmpty(t, r.To)
		assert.NotEqual(t, strings.ToLower(r.From), strings.ToLower(r.To))
		assert.Equal(t, r.From, trip.CleanStationName(r.From), "route names should already be clean")
	}
}

func TestRefreshConfig_SortedRoutes(t *testing.T) {
	cfg := worker.RefreshConfig{
		Routes: []worker.WatchedRoute{
			{From: "A", To: "B", Priority: 3},
			{From: "C", To: "D", Priority: 1},
			{From: "E", To: "F", Priority: 3},
		},
	}

	sorted := cfg.SortedRoutes()
	require.Len(t, sorted, 3)
	assert.Equal(t, "C", sorted[0].From)
	assert.Equal(t, "A", sorted[1].From)
	assert.Equal(t, "E", sorted[2].From)

	// The configured order is untouched.
	assert.Equal(t, "A", cfg.Routes[0].From)
}

func TestRefreshJob_Run(t *testing.T) {
	searcher := &mockSearcher{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Routes: testRoutes(), Concurrency: 1, Timeout: time.Second},
		Logger:   zerolog.Nop(),
		Searcher: searcher,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 2, result.TotalRoutes)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 4, result.Journeys)
	assert.ElementsMatch(t, []string{"Central->Town Hall", "Parramatta->Central"}, searcher.routes())
}

func TestRefreshJob_Run_FailuresAndStale(t *testing.T) {
	searcher := &mockSearcher{
		failing: map[string]bool{"Central->Town Hall": true},
		stale:   map[string]bool{"Parramatta->Central": true},
	}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Routes: append(testRoutes(), worker.WatchedRoute{From: "Hornsby", To: "Central"}), Timeout: time.Second},
		Logger:   zerolog.Nop(),
		Searcher: searcher,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 3, result.TotalRoutes)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 1, result.Stale)
	require.Len(t, result.Errors, 2)
}

func TestRefreshJob_Run_AddsPopularFavorites(t *testing.T) {
	searcher := &mockSearcher{}
	pairs := &mockPairs{pairs: []favorite.Pair{
		{From: "central", To: "town hall", Saves: 9}, // already watched
		{From: "Epping", To: "Macquarie Park", Saves: 4},
	}}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    worker.RefreshConfig{Routes: testRoutes(), FavoriteLimit: 5, Timeout: time.Second},
		Logger:    zerolog.Nop(),
		Searcher:  searcher,
		Favorites: pairs,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 5, pairs.limit)
	assert.Equal(t, 3, result.TotalRoutes)
	assert.Contains(t, searcher.routes(), "Epping->Macquarie Park")
}

func TestRefreshJob_Run_FavoritesError(t *testing.T) {
	searcher := &mockSearcher{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    worker.RefreshConfig{Routes: testRoutes(), FavoriteLimit: 5, Timeout: time.Second},
		Logger:    zerolog.Nop(),
		Searcher:  searcher,
		Favorites: &mockPairs{err: errors.New("database down")},
	})

	result := job.Run(context.Background())

	// Watched routes are still refreshed.
	assert.Equal(t, 2, result.TotalRoutes)
	assert.Equal(t, 2, result.Successful)
}

func TestRefreshJob_Run_ConcurrencyLimit(t *testing.T) {
	routes := make([]worker.WatchedRoute, 12)
	for i := range routes {
		routes[i] = worker.WatchedRoute{From: "Origin" + string(rune('A'+i)), To: "Central"}
	}

	searcher := &mockSearcher{delay: 10 * time.Millisecond}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Routes: routes, Concurrency: 3, Timeout: time.Second},
		Logger:   zerolog.Nop(),
		Searcher: searcher,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 12, result.Successful)
	assert.LessOrEqual(t, searcher.peak.Load(), int32(3))
}

func TestRefreshJob_Run_PerRouteTimeout(t *testing.T) {
	searcher := &mockSearcher{delay: time.Second}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Routes: testRoutes(), Timeout: 20 * time.Millisecond},
		Logger:   zerolog.Nop(),
		Searcher: searcher,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 2, result.Failed)
	for _, e := range result.Errors {
		assert.Contains(t, e.Error, "deadline exceeded")
	}
}

func TestRefreshJob_Run_ContextCancellation(t *testing.T) {
	searcher := &mockSearcher{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Routes: testRoutes(), Concurrency: 1, Timeout: time.Second},
		Logger:   zerolog.Nop(),
		Searcher: searcher,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)

	assert.Equal(t, 2, result.Failed)
	assert.Empty(t, searcher.routes())
}

func TestRefreshJob_Metrics(t *testing.T) {
	searcher := &mockSearcher{stale: map[string]bool{"Parramatta->Central": true}}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Routes: testRoutes(), Timeout: time.Second},
		Logger:   zerolog.Nop(),
		Searcher: searcher,
	})

	_ = job.Run(context.Background())
	_ = job.Run(context.Background())

	metrics := job.Metrics()
	assert.Equal(t, int64(2), metrics.Runs)
	assert.Equal(t, int64(2), metrics.RoutesSucceeded)
	assert.Equal(t, int64(2), metrics.RoutesFailed)
	assert.Equal(t, int64(2), metrics.StaleResults)
	assert.Equal(t, int64(4), metrics.JourneysFetched)
	assert.False(t, metrics.LastRunAt.IsZero())
	assert.GreaterOrEqual(t, metrics.TotalDuration, metrics.LastRunDuration)
}

func TestRefreshJob_MetricsSnapshot(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Routes: testRoutes(), Timeout: time.Second},
		Logger:   zerolog.Nop(),
		Searcher: &mockSearcher{},
	})

	_ = job.Run(context.Background())

	snapshot := job.MetricsSnapshot()

	assert.Equal(t, int64(1), snapshot["runs"])
	assert.Equal(t, int64(2), snapshot["routes_succeeded"])
	assert.Equal(t, int64(0), snapshot["routes_failed"])
	assert.Equal(t, int64(4), snapshot["journeys_fetched"])
	assert.IsType(t, "", snapshot["last_run_duration"])
}

func TestRefreshJob_HealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		searcher := &mockSearcher{}
		job := worker.NewRefreshJob(worker.RefreshJobConfig{
			Config:   worker.RefreshConfig{Routes: testRoutes(), Timeout: time.Second},
			Logger:   zerolog.Nop(),
			Searcher: searcher,
		})

		require.NoError(t, job.HealthCheck(context.Background()))
		assert.Equal(t, []string{"Central->Town Hall"}, searcher.routes())
	})

	t.Run("provider down", func(t *testing.T) {
		job := worker.NewRefreshJob(worker.RefreshJobConfig{
			Config:   worker.RefreshConfig{Routes: testRoutes(), Timeout: time.Second},
			Logger:   zerolog.Nop(),
			Searcher: &mockSearcher{failing: map[string]bool{"Central->Town Hall": true}},
		})

		err := job.HealthCheck(context.Background())
		assert.ErrorIs(t, err, transit.ErrProviderUnavailable)
	})

	t.Run("stale", func(t *testing.T) {
		job := worker.NewRefreshJob(worker.RefreshJobConfig{
			Config:   worker.RefreshConfig{Routes: testRoutes(), Timeout: time.Second},
			Logger:   zerolog.Nop(),
			Searcher: &mockSearcher{stale: map[string]bool{"Central->Town Hall": true}},
		})

		err := job.HealthCheck(context.Background())
		assert.ErrorIs(t, err, transit.ErrProviderUnavailable)
	})
}
