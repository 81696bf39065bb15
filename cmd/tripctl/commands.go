package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/gonsw/gonsw/internal/app"
	"github.com/gonsw/gonsw/internal/config"
	"github.com/gonsw/gonsw/internal/transit"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "list journeys between two stations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "origin station", Required: true},
			&cli.StringFlag{Name: "to", Usage: "destination station", Required: true},
			&cli.StringFlag{Name: "at", Usage: "departure time, RFC 3339 or HH:MM today (default: now)"},
		},
		Action: func(c *cli.Context) error {
			return withTransit(c, func(ctx context.Context, svc *transit.Service, cfg *config.Config) error {
				departAt, err := parseDepartAt(c.String("at"), time.Now().In(cfg.Location))
				if err != nil {
					return err
				}

				result, err := svc.SearchJourneys(ctx, transit.SearchRequest{
					From:     c.String("from"),
					To:       c.String("to"),
					DepartAt: departAt,
				})
				if err != nil {
					return err
				}

				return writeJourneys(c.App.Writer, result)
			})
		},
	}
}

func nearestCommand() *cli.Command {
	return &cli.Command{
		Name:  "nearest",
		Usage: "find the closest station to a coordinate",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "lat", Usage: "latitude", Required: true},
			&cli.Float64Flag{Name: "lon", Usage: "longitude", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withTransit(c, func(ctx context.Context, svc *transit.Service, _ *config.Config) error {
				station, err := svc.NearestStation(ctx, c.Float64("lat"), c.Float64("lon"))
				if err != nil {
					return err
				}
				return writeStation(c.App.Writer, station)
			})
		},
	}
}

func vehiclesCommand() *cli.Command {
	return &cli.Command{
		Name:  "vehicles",
		Usage: "show live positions for a realtime trip id",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "trip", Usage: "realtime trip id from a journey leg", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withTransit(c, func(ctx context.Context, svc *transit.Service, _ *config.Config) error {
				positions, err := svc.VehicleLocations(ctx, c.String("trip"))
				if err != nil {
					return err
				}
				return writeVehicles(c.App.Writer, positions)
			})
		},
	}
}

// withTransit loads configuration, builds an in-memory transit service and runs fn.
func withTransit(c *cli.Context, fn func(context.Context, *transit.Service, *config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if key := c.String("api-key"); key != "" {
		cfg.TfNSWAPIKey = key
	}
	if cfg.TfNSWAPIKey == "" {
		return errors.New("missing API key: set TFNSW_API_KEY or --api-key")
	}

	// The CLI never shares a cache.
	cfg.RedisAddr = ""

	stack, err := app.NewTransit(c.Context, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	return fn(c.Context, stack.Service, cfg)
}

// parseDepartAt accepts an RFC 3339 timestamp or a clock time on the day of now.
func parseDepartAt(v string, now time.Time) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}

	clock, err := time.ParseInLocation("15:04", v, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want RFC 3339 or HH:MM", v)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location()), nil
}
