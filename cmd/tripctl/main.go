// Package main provides tripctl, a command line client for journey search.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.WarnLevel)

	app := &cli.App{
		Name:    "tripctl",
		Usage:   "Search Sydney train journeys from the terminal",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "TfNSW Open Data API key",
				EnvVars: []string{"TFNSW_API_KEY"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log provider requests",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			searchCommand(),
			nearestCommand(),
			vehiclesCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}
