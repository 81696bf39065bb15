// Command api serves the trip planner HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gonsw/gonsw/internal/api"
	"github.com/gonsw/gonsw/internal/api/handler"
	"github.com/gonsw/gonsw/internal/api/middleware"
	"github.com/gonsw/gonsw/internal/app"
	"github.com/gonsw/gonsw/internal/auth"
	"github.com/gonsw/gonsw/internal/config"

	_ "time/tzdata"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	build := app.Build{Service: "gonsw-api", Version: Version, Time: BuildTime}

	cfg, err := config.Load()
	if err != nil {
		boot := build.BootLogger(os.Stderr)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := build.Logger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, build, log); err != nil {
		log.Error().Err(err).Msg("api exited")
		os.Exit(1) //nolint:gocritic // deferred stop only releases the signal handler
	}
	log.Info().Msg("api stopped")
}

func run(ctx context.Context, cfg *config.Config, build app.Build, log zerolog.Logger) error {
	log.Info().
		Str("build_time", build.Time).
		Str("environment", cfg.Environment).
		Msg("starting trip planner api")

	flush, err := build.StartTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer flush()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("registering http metrics: %w", err)
	}

	transitStack, err := app.NewTransit(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("building transit service: %w", err)
	}
	defer transitStack.Close()

	favorites, err := app.NewFavorites(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("building saved routes: %w", err)
	}
	defer favorites.Close()

	if cfg.UsesDevSigningKey() {
		log.Warn().Msg("JWT_SIGNING_KEY not set - device tokens use the development key")
	}
	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.JWTSigningKey,
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
			TTL:        cfg.JWTTokenTTL,
		}),
	})

	deps := map[string]handler.Pinger{
		"cache": handler.PingFunc(transitStack.Service.PingCache),
	}
	if favorites.Pool != nil {
		deps["database"] = favorites.Pool
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.RouterConfig{
			Version:         build.Version,
			BuildTime:       build.Time,
			Logger:          log,
			ServiceName:     build.Service,
			Metrics:         metrics,
			AuthService:     authService,
			TransitService:  transitStack.Service,
			FavoriteService: favorites.Service,
			Registry:        transitStack.Registry,
			Dependencies:    deps,
			RequireTLS:      cfg.RequireTLS,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app.Serve(ctx, srv, 30*time.Second, log)
}
