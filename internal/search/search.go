// Package search runs a station query through the ranking pipeline shared
// by the CLI and the HTTP server.
package search

import (
	"log/slog"

	"github.com/rubiojr/gasrank/pkg/geo"
)

// Query describes a ranking request around a reference point.
type Query struct {
	Ref  geo.Point
	Term string
	Fuel geo.Fuel

	Limit       int
	RadiusKm    float64
	Epsilon     float64
	Threshold   float64
	SortByPrice bool
	// ExactClustering compares every pair instead of using the spatial grid.
	ExactClustering bool
}

// Options converts q to ranker options. A non-positive Epsilon disables
// clustering.
func (q Query) Options() geo.Options {
	opts := geo.Options{
		Limit:       q.Limit,
		RadiusKm:    q.RadiusKm,
		Fuel:        q.Fuel,
		Threshold:   q.Threshold,
		SortByPrice: q.SortByPrice,
	}
	if q.Epsilon > 0 {
		if q.ExactClustering {
			opts.Clusterer = geo.EpsilonClusterer{Epsilon: q.Epsilon}
		} else {
			opts.Clusterer = geo.GridClusterer{Epsilon: q.Epsilon}
		}
	}
	return opts
}

// Rank attaches per-province averages for q.Fuel, filters stations by
// q.Term and ranks the result around q.Ref. Averages are computed over the
// whole input so tiers do not depend on the term. stations is modified in
// place by the average computation.
func Rank(stations []geo.Station, q Query, logger *slog.Logger) ([]geo.RankedStation, error) {
	if q.Fuel != "" {
		geo.ApplyAverages(stations, q.Fuel)
	}
	stations = geo.Filter(stations, q.Term)
	return geo.NewRanker(q.Options(), logger).Rank(stations, q.Ref)
}
