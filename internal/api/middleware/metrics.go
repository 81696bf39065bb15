package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/gonsw/gonsw/internal/api/middleware"

// unmatchedRoute labels requests no route matched, so raw paths never become labels.
const unmatchedRoute = "unmatched"

// Metrics records per-route HTTP server instruments.
type Metrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	active   metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics registers the HTTP server instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	duration, err1 := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time to serve a request"), metric.WithUnit("s"))
	requests, err2 := meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Requests served"), metric.WithUnit("{request}"))
	active, err3 := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Requests in flight"), metric.WithUnit("{request}"))
	size, err4 := meter.Int64Histogram("http.server.response.body.size",
		metric.WithDescription("Response body size"), metric.WithUnit("By"))
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return nil, err
	}

	return &Metrics{duration: duration, requests: requests, active: active, size: size}, nil
}

// Middleware records each request labelled by method, route pattern and status.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()
			method := attribute.String("http.request.method", r.Method)

			m.active.Add(ctx, 1, metric.WithAttributes(method))
			defer m.active.Add(ctx, -1, metric.WithAttributes(method))

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			route := routePattern(r)
			if route == "" {
				route = unmatchedRoute
			}
			labels := metric.WithAttributes(
				method,
				attribute.String("http.route", route),
				attribute.String("http.response.status_code", strconv.Itoa(rec.statusCode)),
				attribute.Bool("error", rec.statusCode >= http.StatusBadRequest),
			)

			m.duration.Record(ctx, time.Since(start).Seconds(), labels)
			m.requests.Add(ctx, 1, labels)
			m.size.Record(ctx, rec.written, labels)
		})
	}
}
