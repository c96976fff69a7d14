package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/rubiojr/gasrank/internal/config"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(cfg).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp(cfg *config.Config) *cli.App {
	return &cli.App{
		Name:  "gasrank",
		Usage: "Rank nearby fuel stations by distance and price",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "Database file",
				Value: cfg.DBPath,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug output to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			setupLogger(cfg.LogLevel, c.Bool("verbose"))
			return nil
		},
		Commands: []*cli.Command{
			updateCommand(cfg),
			nearestCommand(cfg),
			searchCommand(cfg),
			exportGPXCommand(cfg),
			checkStatusCommand(),
			pruneCommand(),
			serveCommand(cfg),
		},
	}
}

func setupLogger(level slog.Level, verbose bool) {
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
