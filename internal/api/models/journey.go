package models

import "github.com/gonsw/gonsw/internal/trip"

// Station is a resolved station in a journey search.
type Station struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Point *Point `json:"point,omitempty"`
}

// JourneySearchResponse is the response for GET /v1/journeys.
type JourneySearchResponse struct {
	From      Station         `json:"from"`
	To        Station         `json:"to"`
	Journeys  []*trip.Journey `json:"journeys"`
	FetchedAt Timestamp       `json:"fetchedAt"`

	// Stale is set when the provider was unreachable and a cached result is returned.
	Stale bool `json:"stale"`
}

// NearestStationResponse is the response for GET /v1/stations/nearest.
type NearestStationResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DistanceMeters int    `json:"distanceMeters"`
}

// VehiclePosition is a live vehicle on the map.
type VehiclePosition struct {
	TripID    string     `json:"tripId"`
	StopID    string     `json:"stopId,omitempty"`
	VehicleID string     `json:"vehicleId,omitempty"`
	Label     string     `json:"label,omitempty"`
	Point     Point      `json:"point"`
	Bearing   float32    `json:"bearing"`
	Timestamp *Timestamp `json:"timestamp,omitempty"`
}

// VehiclePositionsResponse is the response for GET /v1/vehicles.
type VehiclePositionsResponse struct {
	Items []VehiclePosition `json:"items"`
}
