package geo

import (
	"fmt"
	"log/slog"
	"sort"
)

// RankedStation is a Station decorated with its distance to a reference point.
type RankedStation struct {
	Station    Station
	Point      Point
	DistanceKm float64
	Tier       PriceTier
}

// Options tunes a Ranker. The zero value ranks every valid station by
// distance without clustering.
type Options struct {
	// Clusterer collapses overlapping markers before sorting; nil disables it.
	Clusterer Clusterer
	// Limit truncates the result; <= 0 returns everything.
	Limit int
	// RadiusKm drops stations farther than the radius; <= 0 disables it.
	RadiusKm float64
	// Fuel selects the price used for tiers and price ordering.
	Fuel Fuel
	// Threshold is the NORMAL/EXPENSIVE boundary in percent.
	Threshold float64
	// SortByPrice orders by ascending Fuel price, stations without a
	// price last, ties by distance.
	SortByPrice bool
}

// Ranker turns a raw station list into the ordered sequence shown to users.
type Ranker struct {
	opts Options
	log  *slog.Logger
}

// NewRanker returns a Ranker. A nil logger selects slog.Default.
func NewRanker(opts Options, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{opts: opts, log: logger}
}

// Rank decorates stations with their distance to ref, clusters them,
// sorts them and applies the limit. Stations with invalid coordinates are
// logged and skipped. An invalid ref fails with ErrInvalidReferencePoint.
// The result is never nil.
func (r *Ranker) Rank(stations []Station, ref Point) ([]RankedStation, error) {
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReferencePoint, err)
	}

	candidates := make([]Station, 0, len(stations))
	for i := range stations {
		p, err := stations[i].Point()
		if err != nil {
			r.log.Debug("skipping station with invalid coordinates", "id", stations[i].ID, "error", err)
			continue
		}
		if r.opts.RadiusKm > 0 && Haversine(ref.Lat, ref.Lon, p.Lat, p.Lon) > r.opts.RadiusKm {
			continue
		}
		candidates = append(candidates, stations[i])
	}

	if r.opts.Clusterer != nil {
		before := len(candidates)
		candidates = r.opts.Clusterer.Cluster(candidates)
		r.log.Debug("clustered stations", "before", before, "after", len(candidates))
	}

	ranked := make([]RankedStation, 0, len(candidates))
	for i := range candidates {
		// candidates only holds stations whose coordinates already parsed
		p, _ := candidates[i].Point()
		rs := RankedStation{
			Station:    candidates[i],
			Point:      p,
			DistanceKm: Haversine(ref.Lat, ref.Lon, p.Lat, p.Lon),
		}
		if r.opts.Fuel != "" {
			rs.Tier = candidates[i].Tier(r.opts.Fuel, r.opts.Threshold)
		}
		ranked = append(ranked, rs)
	}

	if r.opts.SortByPrice && r.opts.Fuel != "" {
		sortByPrice(ranked, r.opts.Fuel)
	} else {
		SortByDistance(ranked)
	}

	if r.opts.Limit > 0 && len(ranked) > r.opts.Limit {
		ranked = ranked[:r.opts.Limit]
	}
	return ranked, nil
}

// Nearest orders stations by ascending distance to ref, keeping the input
// order for equal distances, and returns at most limit entries (all when
// limit <= 0).
func Nearest(stations []Station, ref Point, limit int) ([]RankedStation, error) {
	return NewRanker(Options{Limit: limit}, nil).Rank(stations, ref)
}

// SortByDistance stable-sorts ranked by ascending DistanceKm.
func SortByDistance(ranked []RankedStation) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
}

func sortByPrice(ranked []RankedStation, fuel Fuel) {
	sort.SliceStable(ranked, func(i, j int) bool {
		priceI := ranked[i].Station.Price(fuel)
		priceJ := ranked[j].Station.Price(fuel)

		if priceI > 0 && priceJ > 0 && priceI != priceJ {
			return priceI < priceJ
		}
		if priceI > 0 && priceJ == 0 {
			return true
		}
		if priceI == 0 && priceJ > 0 {
			return false
		}
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
}
