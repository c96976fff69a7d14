package main

import (
	"github.com/rubiojr/gasrank/internal/config"
	"github.com/urfave/cli/v2"
)

func nearestCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:    "nearest",
		Aliases: []string{"list-nearby"},
		Usage:   "List the stations closest to a location",
		Flags:   rankFlags(cfg, cfg.RadiusKm),
		Action: func(c *cli.Context) error {
			return nearestAction(c, cfg)
		},
	}
}

func nearestAction(c *cli.Context, cfg *config.Config) error {
	res, err := rankStations(c, cfg, "")
	if err != nil {
		return err
	}
	printLocation(res.Location)
	printStations(res)
	return nil
}
