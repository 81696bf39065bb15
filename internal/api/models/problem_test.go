package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonsw/gonsw/internal/api/models"
)

func TestProblem_Builders(t *testing.T) {
	p := models.NewProblem(models.ProblemTypeValidation, "Validation error", http.StatusBadRequest, "req_b1")
	assert.Empty(t, p.Detail)
	assert.Empty(t, p.Instance)
	assert.Nil(t, p.Errors)

	errs := []models.FieldError{
		{Field: "from", Message: "must be at most 120 characters", Code: "TOO_LONG"},
		{Field: "to", Message: "is required", Code: "REQUIRED"},
	}
	same := p.WithDetail("from: too long").WithInstance("/v1/trips").WithErrors(errs)

	assert.Same(t, p, same)
	assert.Equal(t, &models.Problem{
		Type:     models.ProblemTypeValidation,
		Title:    "Validation error",
		Status:   http.StatusBadRequest,
		Detail:   "from: too long",
		Instance: "/v1/trips",
		TraceID:  "req_b1",
		Errors:   errs,
	}, p)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewBadRequest("req_test123", "invalid input", []models.FieldError{
		{Field: "routeNo", Message: "must be at most 16 characters"},
	})
	p.Instance = "/v1/me/favorites"

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var result models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)

	assert.Equal(t, models.ProblemTypeValidation, result.Type)
	assert.Equal(t, "Validation error", result.Title)
	assert.Equal(t, http.StatusBadRequest, result.Status)
	assert.Equal(t, "invalid input", result.Detail)
	assert.Equal(t, "/v1/me/favorites", result.Instance)
	assert.Equal(t, "req_test123", result.TraceID)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "routeNo", result.Errors[0].Field)
}

func TestProblemConstructors(t *testing.T) {
	tests := []struct {
		name      string
		problem   *models.Problem
		wantType  string
		wantTitle string
		status    int
	}{
		{"bad request", models.NewBadRequest("req_123", "invalid data", nil), models.ProblemTypeValidation, "Validation error", http.StatusBadRequest},
		{"unauthorized", models.NewUnauthorized("req_123", "invalid data"), models.ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized},
		{"forbidden", models.NewForbidden("req_123", "invalid data"), models.ProblemTypeForbidden, "TLS required", http.StatusForbidden},
		{"not found", models.NewNotFound("req_123", "invalid data"), models.ProblemTypeNotFound, "Not found", http.StatusNotFound},
		{"conflict", models.NewConflict("req_123", "invalid data"), models.ProblemTypeConflict, "Conflict", http.StatusConflict},
		{"unsupported media type", models.NewUnsupportedMediaType("req_123", "invalid data"), models.ProblemTypeUnsupportedMediaType, "Unsupported Media Type", http.StatusUnsupportedMediaType},
		{"too many requests", models.NewTooManyRequests("req_123", "invalid data"), models.ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests},
		{"internal", models.NewInternalError("req_123", "invalid data"), models.ProblemTypeInternal, "Internal server error", http.StatusInternalServerError},
		{"unavailable", models.NewServiceUnavailable("req_123", "invalid data"), models.ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.problem.Type)
			assert.Equal(t, tt.wantTitle, tt.problem.Title)
			assert.Equal(t, tt.status, tt.problem.Status)
			assert.Equal(t, "invalid data", tt.problem.Detail)
			assert.Equal(t, "req_123", tt.problem.TraceID)
		})
	}
}

func TestProblem_WriteOmitsEmptyFields(t *testing.T) {
	w := httptest.NewRecorder()
	models.NewProblem(models.ProblemTypeNotFound, "Not found", http.StatusNotFound, "req_1").Write(w)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "detail")
	assert.NotContains(t, raw, "instance")
	assert.NotContains(t, raw, "errors")
	assert.Equal(t, "req_1", raw["traceId"])
}
