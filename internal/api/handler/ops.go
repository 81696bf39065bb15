// Package handler provides HTTP handlers for the trip planner API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gonsw/gonsw/internal/api/models"
	"github.com/gonsw/gonsw/internal/api/response"
	"github.com/gonsw/gonsw/internal/provider/resilience"
	"github.com/gonsw/gonsw/internal/transit"
)

// readyTimeout bounds dependency checks in the readiness probe.
const readyTimeout = 2 * time.Second

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// OpsHandlerConfig holds dependencies for the ops endpoints.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string

	// Transit reports cache statistics (optional).
	Transit *transit.Service

	// Registry reports provider circuit breaker state (optional).
	Registry *resilience.Registry

	// Dependencies are checked by the readiness probe, keyed by subsystem name.
	Dependencies map[string]Pinger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsHandlerConfig
	now func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg, now: time.Now}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// Returns 503 when any dependency fails its ping.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	subsystems := h.checkDependencies(ctx)

	status := models.HealthStatusOK
	details := make(map[string]any, len(subsystems))
	for _, s := range subsystems {
		details[s.Name] = s.Status
		if s.Status != models.HealthStatusOK {
			status = models.HealthStatusFail
		}
	}

	health := models.Health{
		Status:  status,
		Time:    models.Timestamp(h.now()),
		Details: details,
	}

	code := http.StatusOK
	if status != models.HealthStatusOK {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Subsystems: h.checkDependencies(ctx),
		Providers:  h.providerStatuses(),
	}

	for _, s := range status.Subsystems {
		if s.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}
	for _, p := range status.Providers {
		if p.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}

	if h.cfg.Transit != nil {
		stats := h.cfg.Transit.CacheStats()
		status.Cache = &models.CacheStatus{
			Store:            stats.Store,
			StopCacheEntries: stats.StopCacheEntries,
			JourneyHits:      stats.JourneyHits,
			JourneyMisses:    stats.JourneyMisses,
			StaleServed:      stats.StaleServed,
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) checkDependencies(ctx context.Context) []models.SubsystemStatus {
	subsystems := make([]models.SubsystemStatus, 0, len(h.cfg.Dependencies))
	for _, name := range sortedKeys(h.cfg.Dependencies) {
		s := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := h.cfg.Dependencies[name].Ping(ctx); err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		subsystems = append(subsystems, s)
	}
	return subsystems
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.cfg.Registry == nil {
		return []models.ProviderStatus{}
	}

	snap := h.cfg.Registry.Snapshot()
	providers := make([]models.ProviderStatus, 0, len(snap))
	for _, ph := range snap {
		p := models.ProviderStatus{
			Provider:            ph.Name,
			Status:              providerStatus(ph.State()),
			CircuitState:        ph.CircuitState.String(),
			ConsecutiveFailures: int(ph.Counts.ConsecutiveFailures),
			LastSuccessAt:       optionalTimestamp(ph.LastSuccessAt),
			LastFailureAt:       optionalTimestamp(ph.LastFailureAt),
		}
		if ph.LastError != "" {
			msg := ph.LastError
			p.Message = &msg
		}
		providers = append(providers, p)
	}
	return providers
}

func providerStatus(state resilience.HealthState) models.HealthStatus {
	switch state {
	case resilience.Unhealthy:
		return models.HealthStatusFail
	case resilience.Degraded:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

func optionalTimestamp(t time.Time) *models.Timestamp {
	if t.IsZero() {
		return nil
	}
	ts := models.Timestamp(t)
	return &ts
}
