package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gonsw/gonsw/internal/api/models"
	"github.com/gonsw/gonsw/internal/api/response"
	"github.com/gonsw/gonsw/internal/transit"
)

// JourneyHandler handles journey search, station lookup and vehicle endpoints.
type JourneyHandler struct {
	transit *transit.Service
	logger  zerolog.Logger
}

// NewJourneyHandler creates a new JourneyHandler.
func NewJourneyHandler(transitService *transit.Service, logger zerolog.Logger) *JourneyHandler {
	return &JourneyHandler{
		transit: transitService,
		logger:  logger,
	}
}

// SearchJourneys handles GET /v1/journeys?from=&to=&departAt=.
func (h *JourneyHandler) SearchJourneys(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := transit.SearchRequest{
		From: q.Get("from"),
		To:   q.Get("to"),
	}

	if v := q.Get("departAt"); v != "" {
		departAt, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(w, r, "validation error", []models.FieldError{
				{Field: "departAt", Message: "must be an RFC 3339 timestamp", Code: "INVALID_FORMAT"},
			})
			return
		}
		req.DepartAt = departAt
	}

	result, err := h.transit.SearchJourneys(r.Context(), req)
	if err != nil {
		h.logger.Debug().Err(err).Str("from", req.From).Str("to", req.To).Msg("journey search failed")
		writeDomainError(w, r, err)
		return
	}

	if result.Stale {
		w.Header().Set("Warning", `110 - "Response is Stale"`)
	}

	response.JSON(w, r, http.StatusOK, models.JourneySearchResponse{
		From:      toStation(result.From),
		To:        toStation(result.To),
		Journeys:  result.Journeys,
		FetchedAt: models.Timestamp(result.FetchedAt),
		Stale:     result.Stale,
	})
}

// NearestStation handles GET /v1/stations/nearest?lat=&lon=.
func (h *JourneyHandler) NearestStation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var fieldErrors []models.FieldError
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lat", Message: "must be a number", Code: "INVALID_FORMAT"})
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "lon", Message: "must be a number", Code: "INVALID_FORMAT"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	station, err := h.transit.NearestStation(r.Context(), lat, lon)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NearestStationResponse{
		ID:             station.ID,
		Name:           station.Name,
		DistanceMeters: station.DistanceMeters,
	})
}

// VehiclePositions handles GET /v1/vehicles?tripId=.
func (h *JourneyHandler) VehiclePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.transit.VehicleLocations(r.Context(), r.URL.Query().Get("tripId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	items := make([]models.VehiclePosition, 0, len(positions))
	for _, p := range positions {
		v := models.VehiclePosition{
			TripID:    p.TripID,
			StopID:    p.StopID,
			VehicleID: p.VehicleID,
			Label:     p.Label,
			Point:     models.Point{Lat: p.Lat, Lon: p.Lon},
			Bearing:   p.Bearing,
		}
		if !p.Timestamp.IsZero() {
			ts := models.Timestamp(p.Timestamp)
			v.Timestamp = &ts
		}
		items = append(items, v)
	}

	response.JSON(w, r, http.StatusOK, models.VehiclePositionsResponse{Items: items})
}

func toStation(s transit.Stop) models.Station {
	st := models.Station{ID: s.ID, Name: s.Name}
	if s.Lat != 0 || s.Lon != 0 {
		st.Point = &models.Point{Lat: s.Lat, Lon: s.Lon}
	}
	return st
}
