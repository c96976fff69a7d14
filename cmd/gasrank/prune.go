package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
)

func pruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Delete old price snapshots and reclaim space",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "days",
				Usage: "Keep snapshots newer than this many days",
				Value: 90,
			},
		},
		Action: pruneAction,
	}
}

func pruneAction(c *cli.Context) error {
	days := c.Int("days")
	if days < 1 {
		return errors.New("--days must be at least 1")
	}

	storage, err := openStorage(c)
	if err != nil {
		return err
	}
	defer storage.Close()

	deleted, err := storage.DeleteOldRecords(c.Context, days)
	if err != nil {
		return err
	}
	if err := storage.VacuumDatabase(c.Context); err != nil {
		return err
	}
	fmt.Printf("Deleted %d snapshots older than %d days.\n", deleted, days)
	return nil
}
