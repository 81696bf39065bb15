package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gonsw/gonsw/internal/api/models"
	"github.com/gonsw/gonsw/internal/api/response"
	"github.com/gonsw/gonsw/internal/auth"
)

// AuthHandler serves anonymous device authentication.
type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// IssueDeviceToken handles POST /v1/auth/device. An empty body registers a
// new device; a known deviceId renews that device's token.
func (h *AuthHandler) IssueDeviceToken(w http.ResponseWriter, r *http.Request) {
	var req auth.DeviceTokenRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	token, err := h.auth.IssueDeviceToken(req.DeviceID)
	switch {
	case errors.Is(err, auth.ErrInvalidDeviceID):
		code := "INVALID_FORMAT"
		if len(req.DeviceID) > auth.MaxDeviceIDLength {
			code = "TOO_LONG"
		}
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "deviceId", Message: strings.TrimPrefix(err.Error(), auth.ErrInvalidDeviceID.Error()+": "), Code: code},
		})
	case err != nil:
		response.InternalError(w, r, "authentication failed")
	default:
		response.JSON(w, r, http.StatusOK, token)
	}
}
