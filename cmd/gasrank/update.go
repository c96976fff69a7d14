package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rubiojr/gasrank/internal/config"
	"github.com/rubiojr/gasrank/internal/gasdb"
	"github.com/rubiojr/gasrank/pkg/api"
	"github.com/urfave/cli/v2"
)

func updateCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Update the fuel price database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Backfill every missing day before storing today's prices",
			},
			&cli.StringFlag{
				Name:  "start",
				Usage: "First day to backfill (YYYY-MM-DD), used with --all",
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "Fuel price API base URL",
				Value: cfg.APIBaseURL,
			},
		},
		Action: updateAction,
	}
}

func updateAction(c *cli.Context) error {
	storage, err := openStorage(c)
	if err != nil {
		return err
	}
	defer storage.Close()

	fetcher := api.NewFuelPriceAPI(api.WithBaseURL(c.String("api-url")))

	if !c.Bool("all") {
		if err := storage.Update(c.Context, fetcher); err != nil {
			return fmt.Errorf("error updating prices: %w", err)
		}
		fmt.Println("Prices updated.")
		return nil
	}

	var start time.Time
	if c.String("start") != "" {
		start, err = parseDate(c.String("start"))
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
	}
	return storage.UpdateAll(c.Context, fetcher, start)
}

func openStorage(c *cli.Context) (*gasdb.Storage, error) {
	storage, err := gasdb.NewStorage(c.Context, c.String("db"), slog.Default())
	if err != nil {
		return nil, fmt.Errorf("error initializing storage: %w", err)
	}
	return storage, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
