package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rubiojr/gasrank/internal/config"
	"github.com/rubiojr/gasrank/internal/gasdb"
	"github.com/rubiojr/gasrank/internal/locate"
	"github.com/rubiojr/gasrank/internal/server"
	"github.com/rubiojr/gasrank/pkg/api"
	"github.com/urfave/cli/v2"
)

func serveCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve ranked stations over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: cfg.Addr,
			},
			&cli.DurationFlag{
				Name:  "update-interval",
				Usage: "How often to refresh prices from the API",
				Value: cfg.UpdateInterval,
			},
			&cli.BoolFlag{
				Name:  "no-update",
				Usage: "Serve the stored prices without refreshing them",
			},
		},
		Action: func(c *cli.Context) error {
			return serveAction(c, cfg)
		},
	}
}

func serveAction(c *cli.Context, cfg *config.Config) error {
	level := cfg.LogLevel
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := httplog.NewLogger("gasrank", httplog.Options{
		JSON:            false,
		LogLevel:        level,
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})

	ctx := c.Context
	storage, err := gasdb.NewStorage(ctx, c.String("db"), logger.Logger)
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}
	defer storage.Close()

	if !c.Bool("no-update") {
		fetcher := api.NewFuelPriceAPI(api.WithBaseURL(cfg.APIBaseURL))
		go server.RunUpdater(ctx, storage, fetcher, clockwork.NewRealClock(), c.Duration("update-interval"), logger.Logger)
	}

	locator := locate.NewLocator(locate.NewNominatim(cfg.NominatimServer), cfg.GeolocateTimeout, cfg.Fallback, logger.Logger)
	srv := server.New(storage, locator, cfg, logger, server.WithRateLimit(cfg.RateLimit))

	httpServer := &http.Server{
		Addr:              c.String("addr"),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting server", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
