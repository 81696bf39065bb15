// Package worker provides background journey cache refresh for the trip planner.
package worker

import (
	"sort"
	"time"
)

// WatchedRoute is a station pair whose journeys are kept warm in the cache.
type WatchedRoute struct {
	From string
	To   string

	// Priority determines refresh order (lower = higher priority).
	Priority int
}

// RefreshConfig holds configuration for the journey refresh job.
type RefreshConfig struct {
	// Routes are the station pairs to refresh.
	// If empty, uses DefaultWatchedRoutes.
	Routes []WatchedRoute

	// Concurrency is the number of concurrent searches.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each search.
	// Default: 30 seconds
	Timeout time.Duration

	// FavoriteLimit is how many of the most saved station pairs are added to Routes.
	// Zero disables favorites. Default: 20
	FavoriteLimit int
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Routes:        DefaultWatchedRoutes(),
		Concurrency:   3,
		Timeout:       30 * time.Second,
		FavoriteLimit: 20,
	}
}

// DefaultWatchedRoutes returns the busiest Sydney Trains and Metro commuter pairs.
func DefaultWatchedRoutes() []WatchedRoute {
	return []WatchedRoute{
		{From: "Central", To: "Town Hall", Priority: 1},
		{From: "Parramatta", To: "Central", Priority: 1},
		{From: "Chatswood", To: "Central", Priority: 1},
		{From: "Strathfield", To: "Central", Priority: 1},
		{From: "Bondi Junction", To: "Martin Place", Priority: 2},
		{From: "Hornsby", To: "Central", Priority: 2},
		{From: "Epping", To: "Chatswood", Priority: 2},
		{From: "Liverpool", To: "Central", Priority: 2},
		{From: "Penrith", To: "Parramatta", Priority: 3},
		{From: "Sydenham", To: "Central", Priority: 3},
		{From: "Hurstville", To: "Central", Priority: 3},
		{From: "Blacktown", To: "Parramatta", Priority: 3},
	}
}

// SortedRoutes returns the configured routes ordered by priority.
func (c RefreshConfig) SortedRoutes() []WatchedRoute {
	routes := make([]WatchedRoute, len(c.Routes))
	copy(routes, c.Routes)
	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].Priority < routes[j].Priority
	})
	return routes
}
