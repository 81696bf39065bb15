// Package database manages the PostgreSQL pool backing saved routes.
package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config describes how to reach PostgreSQL. URL, when set, wins over the
// individual fields.
type Config struct {
	URL string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration

	// ConnectTimeout bounds how long Connect keeps retrying a database
	// that is still starting up.
	ConnectTimeout time.Duration
}

// ConfigFromEnv reads DATABASE_URL or the DB_* variables.
func ConfigFromEnv() (Config, error) {
	var errs []error
	cfg := Config{
		URL:             os.Getenv("DATABASE_URL"),
		Host:            envOr("DB_HOST", "localhost"),
		Port:            envInt("DB_PORT", 5432, &errs),
		User:            envOr("DB_USER", "gonsw"),
		Password:        envOr("DB_PASSWORD", "localdev"),
		Database:        envOr("DB_NAME", "gonsw"),
		SSLMode:         envOr("DB_SSL_MODE", "disable"),
		MaxConns:        int32(envInt("DB_MAX_CONNS", 10, &errs)), //nolint:gosec // small pool sizes
		MinConns:        int32(envInt("DB_MIN_CONNS", 1, &errs)),  //nolint:gosec // small pool sizes
		ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute, &errs),
		ConnectTimeout:  envDuration("DB_CONNECT_TIMEOUT", 30*time.Second, &errs),
	}
	if cfg.MinConns > cfg.MaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.MinConns, cfg.MaxConns))
	}
	return cfg, errors.Join(errs...)
}

// ConnectionString returns the pgx DSN. Credentials are URL-escaped.
func (c Config) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Target describes the database for logs without credentials.
func (c Config) Target() string {
	if c.URL != "" {
		if u, err := url.Parse(c.URL); err == nil {
			return u.Host + u.Path
		}
		return "DATABASE_URL"
	}
	return c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.Database
}

// Connect opens a pool and pings it, retrying with exponential backoff
// until ConnectTimeout elapses or ctx is done. A zero timeout pings once.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if cfg.ConnectTimeout > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = cfg.ConnectTimeout
		b = eb
	}
	if err := backoff.Retry(func() error { return pool.Ping(ctx) }, backoff.WithContext(b, ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		*errs = append(*errs, fmt.Errorf("invalid %s: %q", key, v))
		return def
	}
	return n
}

func envDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("invalid %s: %q", key, v))
		return def
	}
	return d
}
