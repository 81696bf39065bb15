package transit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gonsw/gonsw/internal/trip"
)

// Transit errors.
var (
	ErrProviderUnavailable = errors.New("transit provider unavailable")
	ErrStationNotFound     = errors.New("invalid station name")
	ErrNoStationNearby     = errors.New("no station found near you")
	ErrVehicleFeedDisabled = errors.New("vehicle feed not configured")
)

// Stop is a resolved stop or station.
type Stop struct {
	// ID is the provider stop id used for trip planning.
	ID string

	// Name is the display name.
	Name string

	Lat float64
	Lon float64
}

// NearbyStation is a station close to a coordinate.
type NearbyStation struct {
	ID   string
	Name string

	// DistanceMeters from the queried coordinate.
	DistanceMeters int
}

// PlanRequest asks the provider for journeys between two stops.
type PlanRequest struct {
	OriginID      string
	DestinationID string

	// DepartAt is the earliest departure time.
	DepartAt time.Time

	// MaxJourneys limits how many candidates the provider computes (0 uses the provider default).
	MaxJourneys int
}

// SearchRequest is a journey search by station name.
type SearchRequest struct {
	From     string
	To       string
	DepartAt time.Time
}

// SearchResult is the normalized, de-duplicated outcome of a journey search.
type SearchResult struct {
	From     Stop
	To       Stop
	Journeys []*trip.Journey

	// FetchedAt is when the provider was queried.
	FetchedAt time.Time

	// Stale is set when a cached result is served because the provider failed.
	Stale bool
}

// VehiclePosition is a live vehicle location for the map view.
type VehiclePosition struct {
	TripID    string
	StopID    string
	VehicleID string
	Label     string
	Lat       float64
	Lon       float64
	Bearing   float32
	Timestamp time.Time
}

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned when request input is invalid.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Provider         string
	Store            string
	StopCacheEntries int
	JourneyHits      uint64
	JourneyMisses    uint64
	StaleServed      uint64
}
