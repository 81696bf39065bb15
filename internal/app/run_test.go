package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonsw/gonsw/internal/app"
	"github.com/gonsw/gonsw/internal/config"
)

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, srv, time.Second, zerolog.Nop()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := &http.Server{Addr: ln.Addr().String(), ReadHeaderTimeout: time.Second}
	err = app.Serve(context.Background(), srv, time.Second, zerolog.Nop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on "+ln.Addr().String())
}

func TestBuild_StartTelemetryDisabled(t *testing.T) {
	build := app.Build{Service: "gonsw-test", Version: "dev"}
	cfg := &config.Config{LogLevel: "info", LogFormat: "json"}

	flush, err := build.StartTelemetry(context.Background(), cfg, build.Logger(cfg))
	require.NoError(t, err)
	flush()
}

func TestBuild_BootLogger(t *testing.T) {
	var buf bytes.Buffer
	build := app.Build{Service: "gonsw-worker", Version: "1.2.3"}

	boot := build.BootLogger(&buf)
	boot.Error().Err(errors.New("JWT_SIGNING_KEY is required")).Msg("invalid configuration")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "gonsw-worker", line["service"])
	assert.Equal(t, "1.2.3", line["version"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "invalid configuration", line["message"])
	assert.Equal(t, "JWT_SIGNING_KEY is required", line["error"])
	assert.Contains(t, line, "time")
}
