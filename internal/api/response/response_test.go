package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonsw/gonsw/internal/api/middleware"
	"github.com/gonsw/gonsw/internal/api/models"
	"github.com/gonsw/gonsw/internal/api/response"
)

const testRequestID = "req_response_test"

// withRequestID runs fn behind the RequestID middleware so the request
// carries a known id.
func withRequestID(method, path string, fn http.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	req.Header.Set("X-Request-Id", testRequestID)
	rec := httptest.NewRecorder()
	middleware.RequestID(fn).ServeHTTP(rec, req)
	return rec
}

func TestJSON(t *testing.T) {
	rec := withRequestID(http.MethodGet, "/v1/journeys", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]int{"count": 3})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, testRequestID, rec.Header().Get("X-Request-Id"))
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
}

func TestJSON_WithoutRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	response.JSON(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody), http.StatusOK, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Request-Id"))
	assert.Empty(t, rec.Body.String())
}

func TestCreated(t *testing.T) {
	rec := withRequestID(http.MethodPost, "/v1/me/favorites", func(w http.ResponseWriter, r *http.Request) {
		response.Created(w, r, "/v1/me/favorites", map[string]bool{"saved": true})
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/v1/me/favorites", rec.Header().Get("Location"))
	assert.Equal(t, testRequestID, rec.Header().Get("X-Request-Id"))
	assert.JSONEq(t, `{"saved":true}`, rec.Body.String())
}

func TestNoContent(t *testing.T) {
	rec := withRequestID(http.MethodDelete, "/v1/me/favorites/all", func(w http.ResponseWriter, r *http.Request) {
		response.NoContent(w, r)
	})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testRequestID, rec.Header().Get("X-Request-Id"))
	assert.Empty(t, rec.Body.String())
}

func TestProblemResponses(t *testing.T) {
	tests := []struct {
		name     string
		write    func(http.ResponseWriter, *http.Request)
		status   int
		wantType string
	}{
		{
			name: "bad request",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.BadRequest(w, r, "invalid query", []models.FieldError{{Field: "from", Message: "is required", Code: "REQUIRED"}})
			},
			status:   http.StatusBadRequest,
			wantType: models.ProblemTypeValidation,
		},
		{
			name:     "unauthorized",
			write:    func(w http.ResponseWriter, r *http.Request) { response.Unauthorized(w, r, "invalid query") },
			status:   http.StatusUnauthorized,
			wantType: models.ProblemTypeUnauthorized,
		},
		{
			name:     "not found",
			write:    func(w http.ResponseWriter, r *http.Request) { response.NotFound(w, r, "invalid query") },
			status:   http.StatusNotFound,
			wantType: models.ProblemTypeNotFound,
		},
		{
			name:     "internal",
			write:    func(w http.ResponseWriter, r *http.Request) { response.InternalError(w, r, "invalid query") },
			status:   http.StatusInternalServerError,
			wantType: models.ProblemTypeInternal,
		},
		{
			name:     "unavailable",
			write:    func(w http.ResponseWriter, r *http.Request) { response.ServiceUnavailable(w, r, "invalid query") },
			status:   http.StatusServiceUnavailable,
			wantType: models.ProblemTypeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := withRequestID(http.MethodGet, "/v1/journeys", tt.write)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var problem models.Problem
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.status, problem.Status)
			assert.Equal(t, "invalid query", problem.Detail)
			assert.Equal(t, "/v1/journeys", problem.Instance)
			assert.Equal(t, testRequestID, problem.TraceID)
		})
	}
}

func TestBadRequest_FieldErrors(t *testing.T) {
	rec := withRequestID(http.MethodGet, "/v1/journeys", func(w http.ResponseWriter, r *http.Request) {
		response.BadRequest(w, r, "invalid query", []models.FieldError{
			{Field: "from", Message: "is required", Code: "REQUIRED"},
			{Field: "to", Message: "must differ from from", Code: "SAME_STATION"},
		})
	})

	var problem models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Len(t, problem.Errors, 2)
	assert.Equal(t, "to", problem.Errors[1].Field)
	assert.Equal(t, "SAME_STATION", problem.Errors[1].Code)
}
