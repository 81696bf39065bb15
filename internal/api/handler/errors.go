package handler

import (
	"errors"
	"net/http"

	"github.com/gonsw/gonsw/internal/api/models"
	"github.com/gonsw/gonsw/internal/api/response"
	"github.com/gonsw/gonsw/internal/favorite"
	"github.com/gonsw/gonsw/internal/transit"
)

// writeDomainError maps service errors onto problem responses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var transitErr *transit.ValidationError
	if errors.As(err, &transitErr) {
		fieldErrors := make([]models.FieldError, 0, len(transitErr.Errors))
		for _, fe := range transitErr.Errors {
			fieldErrors = append(fieldErrors, models.FieldError{Field: fe.Field, Message: fe.Message})
		}
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	var favoriteErr *favorite.ValidationError
	if errors.As(err, &favoriteErr) {
		fieldErrors := make([]models.FieldError, 0, len(favoriteErr.Errors))
		for _, fe := range favoriteErr.Errors {
			fieldErrors = append(fieldErrors, models.FieldError{Field: fe.Field, Message: fe.Message})
		}
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	switch {
	case errors.Is(err, transit.ErrStationNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, transit.ErrNoStationNearby):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, transit.ErrVehicleFeedDisabled):
		response.NotFound(w, r, "live vehicle positions are not available")
	case errors.Is(err, transit.ErrProviderUnavailable):
		response.ServiceUnavailable(w, r, "trip planner is temporarily unavailable")
	case errors.Is(err, favorite.ErrOwnerRequired):
		response.Unauthorized(w, r, "device authentication required")
	default:
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
