package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gonsw/gonsw/internal/config"
	"github.com/gonsw/gonsw/internal/telemetry"
)

const telemetryFlushTimeout = 5 * time.Second

// Build identifies the running binary in logs, traces and the ops endpoints.
type Build struct {
	Service string
	Version string
	Time    string
}

// Logger builds the service logger from cfg.
func (b Build) Logger(cfg *config.Config) zerolog.Logger {
	return telemetry.NewLogger(telemetry.LoggerConfig{
		ServiceName:    b.Service,
		ServiceVersion: b.Version,
		Level:          cfg.LogLevel,
		Format:         cfg.LogFormat,
	})
}

// BootLogger logs startup failures that happen before configuration is loaded.
func (b Build) BootLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().
		Timestamp().
		Str("service", b.Service).
		Str("version", b.Version).
		Logger()
}

// StartTelemetry installs the OpenTelemetry providers. The returned func
// flushes them and should be deferred.
func (b Build) StartTelemetry(ctx context.Context, cfg *config.Config, log zerolog.Logger) (func(), error) {
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    b.Service,
		ServiceVersion: b.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	if cfg.OTelEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Float64("sample_ratio", cfg.OTelSampleRatio).
			Msg("telemetry exporting")
	}

	return func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			log.Error().Err(err).Msg("telemetry flush failed")
		}
	}, nil
}

// Serve runs srv until ctx is done, then drains in-flight requests for up
// to drain. It returns nil after a clean shutdown.
func Serve(ctx context.Context, srv *http.Server, drain time.Duration, log zerolog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listening on %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("draining connections: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
