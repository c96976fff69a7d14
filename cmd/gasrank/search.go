package main

import (
	"errors"
	"strings"

	"github.com/rubiojr/gasrank/internal/config"
	"github.com/urfave/cli/v2"
)

func searchCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find stations by municipality, name or address",
		ArgsUsage: "TERM",
		Flags:     rankFlags(cfg, 0),
		Action: func(c *cli.Context) error {
			return searchAction(c, cfg)
		},
	}
}

func searchAction(c *cli.Context, cfg *config.Config) error {
	term := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(term) == "" {
		return errors.New("a search term is required")
	}

	res, err := rankStations(c, cfg, term)
	if err != nil {
		return err
	}
	printLocation(res.Location)
	printStations(res)
	return nil
}
