package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gonsw/gonsw/internal/api/models"
	"github.com/gonsw/gonsw/internal/api/response"
	"github.com/gonsw/gonsw/internal/favorite"
)

// FavoriteHandler handles the saved routes of the authenticated device.
type FavoriteHandler struct {
	favorites *favorite.Service
}

// NewFavoriteHandler creates a new FavoriteHandler.
func NewFavoriteHandler(favorites *favorite.Service) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

// ListFavorites handles GET /v1/me/favorites.
// With from and to query parameters it reports whether that route is saved instead.
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	deviceID := GetDeviceID(r.Context())
	q := r.URL.Query()

	if q.Has("from") || q.Has("to") {
		saved, err := h.favorites.IsSaved(r.Context(), deviceID, favorite.Input{
			From:    q.Get("from"),
			To:      q.Get("to"),
			RouteNo: q.Get("routeNo"),
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		response.JSON(w, r, http.StatusOK, models.SavedStatusResponse{Saved: saved})
		return
	}

	items, err := h.favorites.List(r.Context(), deviceID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]models.SavedRoute, 0, len(items))
	for _, f := range items {
		out = append(out, toAPISavedRoute(f))
	}
	response.JSON(w, r, http.StatusOK, models.SavedRoutesResponse{Items: out})
}

// SaveFavorite handles POST /v1/me/favorites. Saving an existing route returns it unchanged.
func (h *FavoriteHandler) SaveFavorite(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeSavedRoute(w, r)
	if !ok {
		return
	}

	f, err := h.favorites.Save(r.Context(), GetDeviceID(r.Context()), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/me/favorites", toAPISavedRoute(*f))
}

// ToggleFavorite handles POST /v1/me/favorites:toggle.
func (h *FavoriteHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeSavedRoute(w, r)
	if !ok {
		return
	}

	saved, err := h.favorites.Toggle(r.Context(), GetDeviceID(r.Context()), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.SavedStatusResponse{Saved: saved})
}

// RemovePair handles DELETE /v1/me/favorites?from=&to= - removes every route between two stations.
func (h *FavoriteHandler) RemovePair(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	removed, err := h.favorites.RemovePair(r.Context(), GetDeviceID(r.Context()), q.Get("from"), q.Get("to"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.RemovedResponse{Removed: removed})
}

// ClearFavorites handles DELETE /v1/me/favorites/all.
func (h *FavoriteHandler) ClearFavorites(w http.ResponseWriter, r *http.Request) {
	if err := h.favorites.Clear(r.Context(), GetDeviceID(r.Context())); err != nil {
		writeDomainError(w, r, err)
		return
	}

	response.NoContent(w, r)
}

func decodeSavedRoute(w http.ResponseWriter, r *http.Request) (favorite.Input, bool) {
	var req models.SavedRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return favorite.Input{}, false
	}
	return favorite.Input{From: req.From, To: req.To, RouteNo: req.RouteNo}, true
}

func toAPISavedRoute(f favorite.Favorite) models.SavedRoute {
	return models.SavedRoute{
		From:      f.From,
		To:        f.To,
		RouteNo:   f.RouteNo,
		CreatedAt: models.Timestamp(f.CreatedAt),
	}
}
