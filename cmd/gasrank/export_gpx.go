package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rubiojr/gasrank/internal/config"
	"github.com/rubiojr/gasrank/internal/export"
	"github.com/urfave/cli/v2"
)

func exportGPXCommand(cfg *config.Config) *cli.Command {
	flags := rankFlags(cfg, cfg.RadiusKm)
	flags = append(flags,
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "GPX file to write, - for stdout",
			Value:   "-",
		},
		&cli.StringFlag{
			Name:  "filter",
			Usage: "Only export stations matching this term",
		},
	)

	return &cli.Command{
		Name:  "export-gpx",
		Usage: "Export ranked stations as GPX waypoints",
		Flags: flags,
		Action: func(c *cli.Context) error {
			return exportGPXAction(c, cfg)
		},
	}
}

func exportGPXAction(c *cli.Context, cfg *config.Config) error {
	res, err := rankStations(c, cfg, c.String("filter"))
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out := c.String("output"); out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("error creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	name := "Stations near " + res.Location.Name
	if err := export.WriteGPX(w, name, res.Stations, res.Fuel); err != nil {
		return err
	}
	if w != os.Stdout {
		fmt.Printf("Exported %d stations to %s\n", len(res.Stations), c.String("output"))
	}
	return nil
}
