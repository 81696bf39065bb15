package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const providerMeterName = "github.com/gonsw/gonsw/internal/transit"

// Journey cache outcomes, recorded as the "outcome" attribute.
const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheStale = "stale"
)

// ProviderMetrics records outbound provider calls and journey cache outcomes.
// A nil *ProviderMetrics records nothing.
type ProviderMetrics struct {
	provider attribute.KeyValue
	latency  metric.Float64Histogram
	calls    metric.Int64Counter
	lookups  metric.Int64Counter
}

// NewProviderMetrics creates the instruments for the named provider.
func NewProviderMetrics(provider string) (*ProviderMetrics, error) {
	meter := Meter(providerMeterName)

	latency, err1 := meter.Float64Histogram("provider.request.duration",
		metric.WithDescription("Upstream call latency"), metric.WithUnit("s"))
	calls, err2 := meter.Int64Counter("provider.request.total",
		metric.WithDescription("Upstream calls"), metric.WithUnit("{request}"))
	lookups, err3 := meter.Int64Counter("journey.cache.lookups",
		metric.WithDescription("Journey cache lookups by outcome"), metric.WithUnit("{lookup}"))
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		provider: attribute.String("provider.name", provider),
		latency:  latency,
		calls:    calls,
		lookups:  lookups,
	}, nil
}

// RecordRequest records one upstream call; err marks it failed.
func (m *ProviderMetrics) RecordRequest(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	labels := metric.WithAttributes(
		m.provider,
		attribute.String("provider.operation", operation),
		attribute.Bool("error", err != nil),
	)

	// Recorded on a detached context so a cancelled request still counts.
	ctx := context.Background()
	m.latency.Record(ctx, duration.Seconds(), labels)
	m.calls.Add(ctx, 1, labels)
}

func (m *ProviderMetrics) RecordCacheHit(operation string)    { m.lookup(operation, cacheHit) }
func (m *ProviderMetrics) RecordCacheMiss(operation string)   { m.lookup(operation, cacheMiss) }
func (m *ProviderMetrics) RecordStaleServed(operation string) { m.lookup(operation, cacheStale) }

func (m *ProviderMetrics) lookup(operation, outcome string) {
	if m == nil {
		return
	}
	m.lookups.Add(context.Background(), 1, metric.WithAttributes(
		m.provider,
		attribute.String("provider.operation", operation),
		attribute.String("outcome", outcome),
	))
}
