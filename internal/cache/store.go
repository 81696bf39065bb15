// Package cache provides byte-oriented key/value stores with expiry used for
// journey search results.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a key/value store with per-entry expiry.
type Store interface {
	// Get returns the value for key or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl. A zero ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Name identifies the backend for logging and status reporting.
	Name() string
}
