package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/gonsw/gonsw/internal/api/models"
)

// RateLimitConfig is a fixed budget of RequestLimit requests per
// WindowLength, counted per key.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// Budgets by endpoint class, per minute: token issue 10, trip planning 30,
// everything else 100.
var (
	AuthRateLimit      = RateLimitConfig{RequestLimit: 10, WindowLength: time.Minute}
	ExpensiveRateLimit = RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute}
	StandardRateLimit  = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}
)

// RateLimitByIP limits anonymous endpoints per client IP, as resolved by chi's RealIP.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return cfg.limiter(httprate.KeyByRealIP)
}

// RateLimitByDevice limits authenticated endpoints per device, falling back
// to the client IP when no device is on the context.
func RateLimitByDevice(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return cfg.limiter(keyByDeviceOrIP)
}

func (cfg RateLimitConfig) limiter(key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(cfg.exceeded),
	)
}

func keyByDeviceOrIP(r *http.Request) (string, error) {
	if deviceID := GetDeviceID(r.Context()); deviceID != "" {
		return "device:" + deviceID, nil
	}
	return httprate.KeyByRealIP(r)
}

// exceeded writes a 429 problem. httprate does not expose the window reset,
// so Retry-After advertises the full window.
func (cfg RateLimitConfig) exceeded(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(cfg.WindowLength.Seconds()))))
	models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").
		WithInstance(r.URL.Path).
		Write(w)
}
