// Command worker keeps cached journeys for watched routes warm and runs
// refresh jobs published to Pub/Sub.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/gonsw/gonsw/internal/app"
	"github.com/gonsw/gonsw/internal/config"
	"github.com/gonsw/gonsw/internal/worker"

	_ "time/tzdata"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	build := app.Build{Service: "gonsw-worker", Version: Version, Time: BuildTime}

	cfg, err := config.Load()
	if err != nil {
		boot := build.BootLogger(os.Stderr)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := build.Logger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, build, log); err != nil {
		log.Error().Err(err).Msg("worker exited")
		os.Exit(1) //nolint:gocritic // deferred stop only releases the signal handler
	}
	log.Info().Msg("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, build app.Build, log zerolog.Logger) error {
	log.Info().
		Str("build_time", build.Time).
		Dur("interval", cfg.WorkerInterval).
		Msg("starting journey refresh worker")

	flush, err := build.StartTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer flush()

	transitStack, err := app.NewTransit(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("building transit service: %w", err)
	}
	defer transitStack.Close()

	jobCfg := worker.RefreshJobConfig{
		Config:   worker.DefaultRefreshConfig(),
		Logger:   log,
		Searcher: transitStack.Service,
	}

	// Saved routes only add watched pairs; the worker runs without them.
	if favorites, err := app.NewFavorites(ctx, cfg, log); err != nil {
		log.Warn().Err(err).Msg("saved routes unavailable - refreshing default routes only")
	} else {
		defer favorites.Close()
		jobCfg.Favorites = favorites.Service
	}

	job := worker.NewRefreshJob(jobCfg)

	var subscriber *worker.PubSubHandler
	if cfg.PubSubProjectID != "" {
		subscriber, err = worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			Jobs:             job,
			Logger:           log,
		})
		if err != nil {
			return fmt.Errorf("subscribing to refresh jobs: %w", err)
		}
		defer subscriber.Close()
	} else {
		log.Info().Msg("PUBSUB_PROJECT_ID not set - running on schedule only")
	}

	var wg conc.WaitGroup
	wg.Go(func() { job.Schedule(ctx, cfg.WorkerInterval, log) })
	if subscriber != nil {
		wg.Go(func() {
			if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub receive stopped")
			}
		})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           healthMux(build, job),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	err = app.Serve(ctx, srv, 10*time.Second, log)

	// Serve only returns early on a listen failure; the jobs still need ctx.
	<-ctx.Done()
	wg.Wait()
	return err
}

// healthMux answers the platform's liveness probe with the refresh counters.
func healthMux(build app.Build, job *worker.RefreshJob) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "healthy",
			"version": build.Version,
			"refresh": job.MetricsSnapshot(),
		})
	})
	return mux
}
