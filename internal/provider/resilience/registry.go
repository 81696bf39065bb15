package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// HealthState classifies a provider by its breaker state.
type HealthState string

const (
	Healthy   HealthState = "healthy"
	Degraded  HealthState = "degraded"
	Unhealthy HealthState = "unhealthy"
)

// Breaker exposes circuit breaker state. *Client implements it.
type Breaker interface {
	CircuitBreakerState() gobreaker.State
	CircuitBreakerCounts() gobreaker.Counts
}

// ProviderHealth is a point-in-time view of one provider. Zero times mean
// the event has not happened since registration.
type ProviderHealth struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt time.Time
	LastFailureAt time.Time
	LastError     string
}

// State maps the breaker state: closed is healthy, half-open degraded, open unhealthy.
func (h ProviderHealth) State() HealthState {
	switch h.CircuitState {
	case gobreaker.StateOpen:
		return Unhealthy
	case gobreaker.StateHalfOpen:
		return Degraded
	default:
		return Healthy
	}
}

// Registry tracks provider breakers and the outcome of their latest calls
// for the ops status endpoint.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
	now     func() time.Time
}

type registryEntry struct {
	breaker     Breaker
	lastSuccess time.Time
	lastFailure time.Time
	lastError   string
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry), now: time.Now}
}

// Register adds or replaces a provider. Replacing resets its history.
func (r *Registry) Register(name string, b Breaker) {
	r.mu.Lock()
	r.entries[name] = &registryEntry{breaker: b}
	r.mu.Unlock()
}

// Report records the outcome of a call. A nil err is a success.
// Unknown providers are ignored.
func (r *Registry) Report(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return
	}
	if err == nil {
		e.lastSuccess = r.now()
		return
	}
	e.lastFailure = r.now()
	e.lastError = err.Error()
}

// Health returns the named provider's health.
func (r *Registry) Health(name string) (ProviderHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return ProviderHealth{}, false
	}
	return e.health(name), true
}

// Snapshot returns every provider's health ordered by name.
func (r *Registry) Snapshot() []ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, e.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names lists registered providers in order.
func (r *Registry) Names() []string {
	snap := r.Snapshot()
	names := make([]string, len(snap))
	for i, h := range snap {
		names[i] = h.Name
	}
	return names
}

func (e *registryEntry) health(name string) ProviderHealth {
	return ProviderHealth{
		Name:          name,
		CircuitState:  e.breaker.CircuitBreakerState(),
		Counts:        e.breaker.CircuitBreakerCounts(),
		LastSuccessAt: e.lastSuccess,
		LastFailureAt: e.lastFailure,
		LastError:     e.lastError,
	}
}
