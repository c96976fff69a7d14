package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

func checkStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-status",
		Usage: "Check for days with missing fuel prices",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "start",
				Usage: "Start date (YYYY-MM-DD)",
				Value: "2007-01-01",
			},
			&cli.StringFlag{
				Name:  "end",
				Usage: "End date (YYYY-MM-DD), today when unset",
			},
		},
		Action: checkStatusAction,
	}
}

func checkStatusAction(c *cli.Context) error {
	storage, err := openStorage(c)
	if err != nil {
		return err
	}
	defer storage.Close()

	last, err := storage.GetLastUpdateDate(c.Context)
	if err != nil {
		return err
	}
	if last == nil {
		fmt.Println("No dates found in database.")
		return nil
	}
	fmt.Println("Last update:", last.Format("2006-01-02"))

	startDate, err := parseDate(c.String("start"))
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	endDate := time.Now()
	if c.String("end") != "" {
		endDate, err = parseDate(c.String("end"))
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}

	fmt.Printf("Checking for missing days in range: %s to %s\n", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))

	missing, err := storage.MissingDates(c.Context, startDate, endDate)
	if err != nil {
		return err
	}

	if len(missing) == 0 {
		fmt.Println("No missing days in the given range.")
		return nil
	}
	fmt.Printf("Missing days (%d):\n", len(missing))
	for _, m := range missing {
		fmt.Println(m.Format("2006-01-02"))
	}
	return nil
}
