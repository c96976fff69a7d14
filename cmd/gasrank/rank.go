package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rubiojr/gasrank/internal/config"
	"github.com/rubiojr/gasrank/internal/gasdb"
	"github.com/rubiojr/gasrank/internal/locate"
	"github.com/rubiojr/gasrank/internal/search"
	"github.com/rubiojr/gasrank/pkg/api"
	"github.com/rubiojr/gasrank/pkg/geo"
	"github.com/urfave/cli/v2"
)

// rankFlags are shared by every command that ranks stations around a point.
func rankFlags(cfg *config.Config, radiusKm float64) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "location",
			Usage: "Place name to rank stations from",
		},
		&cli.Float64Flag{
			Name:  "lat",
			Usage: "Latitude of the location",
		},
		&cli.Float64Flag{
			Name:  "long",
			Usage: "Longitude of the location",
		},
		&cli.Float64Flag{
			Name:    "radius",
			Aliases: []string{"r"},
			Usage:   "Search radius in kilometers, 0 for no limit",
			Value:   radiusKm,
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Maximum number of stations, 0 for all",
			Value:   cfg.Limit,
		},
		&cli.StringFlag{
			Name:  "fuel",
			Usage: "Fuel used for prices and tiers",
			Value: string(cfg.Fuel),
		},
		&cli.Float64Flag{
			Name:  "epsilon",
			Usage: "Clustering distance in degrees, 0 disables clustering",
			Value: cfg.Epsilon,
		},
		&cli.Float64Flag{
			Name:  "threshold",
			Usage: "Percent above the regional average considered expensive",
			Value: cfg.Threshold,
		},
		&cli.BoolFlag{
			Name:  "sort-by-price",
			Usage: "Order by price instead of distance",
		},
		&cli.BoolFlag{
			Name:  "exact-clustering",
			Usage: "Compare every pair of stations instead of using the spatial grid",
		},
		&cli.StringFlag{
			Name:  "date",
			Usage: "Use the stored snapshot of this day (YYYY-MM-DD)",
		},
		&cli.BoolFlag{
			Name:  "live",
			Usage: "Query the fuel price API instead of the database",
		},
		&cli.StringFlag{
			Name:  "province",
			Usage: "Province ID to query, used with --live",
		},
		&cli.StringFlag{
			Name:  "municipality",
			Usage: "Municipality ID to query, used with --live",
		},
		&cli.StringFlag{
			Name:  "station",
			Usage: "Station ID (IDEESS) to look up, used with --live",
		},
	}
}

type rankResult struct {
	Location locate.Result
	Fuel     geo.Fuel
	Stations []geo.RankedStation
}

// rankStations resolves the reference point, loads stations and runs them
// through the ranking pipeline. A non-empty term filters stations first.
func rankStations(c *cli.Context, cfg *config.Config, term string) (*rankResult, error) {
	fuel, ok := geo.ParseFuel(c.String("fuel"))
	if !ok {
		return nil, fmt.Errorf("unknown fuel %q", c.String("fuel"))
	}

	locator := locate.NewLocator(
		locate.NewNominatim(cfg.NominatimServer),
		cfg.GeolocateTimeout,
		cfg.Fallback,
		slog.Default(),
	)
	hasCoords := c.IsSet("lat") || c.IsSet("long")
	loc, err := locator.Resolve(c.Context, c.String("location"), c.Float64("lat"), c.Float64("long"), hasCoords)
	if err != nil {
		return nil, err
	}

	stations, err := loadStations(c, cfg)
	if err != nil {
		return nil, err
	}

	q := search.Query{
		Ref:             loc.Point,
		Term:            term,
		Fuel:            fuel,
		Limit:           c.Int("limit"),
		RadiusKm:        c.Float64("radius"),
		Epsilon:         c.Float64("epsilon"),
		Threshold:       c.Float64("threshold"),
		SortByPrice:     c.Bool("sort-by-price"),
		ExactClustering: c.Bool("exact-clustering"),
	}
	ranked, err := search.Rank(stations, q, slog.Default())
	if err != nil {
		return nil, err
	}
	return &rankResult{Location: loc, Fuel: fuel, Stations: ranked}, nil
}

func loadStations(c *cli.Context, cfg *config.Config) ([]geo.Station, error) {
	if c.Bool("live") {
		return fetchStations(c, cfg)
	}

	storage, err := openStorage(c)
	if err != nil {
		return nil, err
	}
	defer storage.Close()

	if c.String("date") != "" {
		date, err := parseDate(c.String("date"))
		if err != nil {
			return nil, fmt.Errorf("invalid date: %w", err)
		}
		list, err := storage.GetPrices(c.Context, date)
		if err != nil {
			return nil, noDataHint(err)
		}
		return list.Stations(), nil
	}

	stations, err := storage.Stations(c.Context)
	if err != nil {
		return nil, noDataHint(err)
	}
	return stations, nil
}

// fetchStations queries the fuel price API, narrowed by station,
// municipality or province when one is given.
func fetchStations(c *cli.Context, cfg *config.Config) ([]geo.Station, error) {
	client := api.NewFuelPriceAPI(api.WithBaseURL(cfg.APIBaseURL))

	if id := c.String("station"); id != "" {
		st, err := client.FetchStation(c.Context, id)
		if err != nil {
			return nil, fmt.Errorf("error fetching station: %w", err)
		}
		return []geo.Station{st.ToStation()}, nil
	}

	var list *api.GasStationList
	var err error
	switch {
	case c.String("municipality") != "":
		list, err = client.FetchByMunicipality(c.Context, c.String("municipality"))
	case c.String("province") != "":
		list, err = client.FetchByProvince(c.Context, c.String("province"))
	default:
		list, err = client.FetchPrices(c.Context)
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching prices: %w", err)
	}
	return list.Stations(), nil
}

func noDataHint(err error) error {
	if errors.Is(err, gasdb.ErrNoData) {
		return fmt.Errorf("%w, run 'gasrank update' or use --live", err)
	}
	return err
}

func printLocation(loc locate.Result) {
	switch loc.Source {
	case locate.SourceFallback:
		if loc.Err != nil {
			fmt.Printf("Location not found (%v), using %s\n", loc.Err, loc.Name)
		} else {
			fmt.Println("No location given, using", loc.Name)
		}
	default:
		fmt.Println("Location found:", loc.Name)
	}
}

func printStations(res *rankResult) {
	for i, r := range res.Stations {
		s := r.Station
		fmt.Printf("%d. %s (%s)\n", i+1, s.Name, s.Address)
		fmt.Printf("   Municipio: %s\n", s.Municipality)
		fmt.Printf("   Distance: %.2f km\n", r.DistanceKm)
		if price := s.Price(res.Fuel); price > 0 {
			fmt.Printf("   %s: %.3f € (%s, avg %.3f €)\n", res.Fuel, price, r.Tier, s.Average(res.Fuel))
		} else {
			fmt.Printf("   %s: n/a\n", res.Fuel)
		}
		fmt.Printf("   Coordinates: %s\n\n", r.Point)
	}
	fmt.Printf("Found %d stations\n", len(res.Stations))
}
