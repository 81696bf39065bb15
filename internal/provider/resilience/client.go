package resilience

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without a network call while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// maxRetryAfter caps how long a provider's Retry-After may hold a retry.
const maxRetryAfter = 10 * time.Second

// ClientConfig configures a Client. Zero durations and counts take the
// values DefaultClientConfig uses.
type ClientConfig struct {
	// Name labels the breaker, log lines and registry entry.
	Name string

	// Timeout bounds a single attempt, not the whole retry sequence.
	Timeout time.Duration

	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// CircuitBreaker overrides DefaultCircuitBreakerConfig(Name).
	CircuitBreaker *CircuitBreakerConfig

	// Registry, when set, tracks this client's health.
	Registry *Registry

	Logger zerolog.Logger

	// Transport replaces http.DefaultTransport, mainly for tests.
	Transport http.RoundTripper
}

// DefaultClientConfig returns the settings used for the TfNSW APIs: 10s per
// attempt, 3 retries backing off from 100ms to 5s.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		CircuitBreaker:  &cb,
		Logger:          zerolog.Nop(),
	}
}

func (cfg ClientConfig) withDefaults() ClientConfig {
	def := DefaultClientConfig(cfg.Name)
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.CircuitBreaker == nil {
		cfg.CircuitBreaker = def.CircuitBreaker
	}
	return cfg
}

// Client sends provider requests through a circuit breaker, retrying
// transport errors, 5xx and 429 responses with exponential backoff.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	log     zerolog.Logger
}

// NewClient builds a Client and registers it with cfg.Registry.
func NewClient(cfg ClientConfig) *Client {
	cfg = cfg.withDefaults()

	cb := *cfg.CircuitBreaker
	if cb.OnStateChange == nil {
		cb.OnStateChange = LogStateChange(cfg.Logger)
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		breaker: NewCircuitBreaker[*http.Response](cb), //nolint:bodyclose // type param, not response
		log:     cfg.Logger.With().Str("provider", cfg.Name).Logger(),
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the configured client name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// Do sends req, bounded by its context. Once retries run out on a 5xx or
// 429, the last response is returned with a nil error so callers see the
// status. The request must be replayable: use http.NoBody or set GetBody.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var (
		last     *http.Response
		attempts int
	)
	err := backoff.Retry(func() error {
		attempts++
		drainAndClose(last)

		resp, err := c.try(ctx, req)
		last = resp
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrCircuitOpen) {
			return backoff.Permanent(err)
		}

		c.log.Debug().
			Err(err).
			Int("attempt", attempts).
			Str("url", req.URL.Redacted()).
			Msg("provider request failed, retrying")

		var se *StatusError
		if errors.As(err, &se) && se.RetryAfter > 0 {
			sleep(ctx, se.RetryAfter)
		}
		return err
	}, policy)

	c.report(err, last)

	if err != nil && last == nil {
		return nil, err
	}
	return last, nil
}

// try makes one attempt through the breaker. A retryable status comes back
// as both the response and a *StatusError.
func (c *Client) try(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if retryableStatus(resp.StatusCode) {
			return resp, &StatusError{
				StatusCode: resp.StatusCode,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return resp, err
}

// report feeds the outcome to the registry. A throttled final response is
// not a failure, a 5xx one is.
func (c *Client) report(err error, resp *http.Response) {
	if c.cfg.Registry == nil {
		return
	}
	var se *StatusError
	switch {
	case errors.As(err, &se) && !se.countsAsFailure():
		err = nil
	case err == nil && resp != nil && resp.StatusCode >= http.StatusInternalServerError:
		err = &StatusError{StatusCode: resp.StatusCode}
	}
	c.cfg.Registry.Report(c.cfg.Name, err)
}

// StatusError is a retryable HTTP status returned by a provider.
type StatusError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.StatusCode == http.StatusTooManyRequests {
		return "provider throttled: " + http.StatusText(e.StatusCode)
	}
	return "server error: " + http.StatusText(e.StatusCode)
}

func (e *StatusError) countsAsFailure() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// CircuitBreakerState returns the breaker state.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

// CircuitBreakerCounts returns the breaker counters for the current generation.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}

func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

// parseRetryAfter reads the delay-seconds form only; HTTP dates are ignored.
func parseRetryAfter(v string) time.Duration {
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds <= 0 {
		return 0
	}
	return min(time.Duration(seconds)*time.Second, maxRetryAfter)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
