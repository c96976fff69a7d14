// Package export writes ranked stations to formats map tools understand.
package export

import (
	"fmt"
	"io"

	"github.com/rubiojr/gasrank/pkg/geo"
	"github.com/tkrajina/gpxgo/gpx"
)

const gpxCreator = "gasrank"

// tierSymbols maps price tiers to GPX waypoint symbols.
var tierSymbols = map[geo.PriceTier]string{
	geo.TierCheap:     "Flag, Green",
	geo.TierNormal:    "Flag, Yellow",
	geo.TierExpensive: "Flag, Red",
	geo.TierUnknown:   "Flag, Blue",
}

// GPX builds a GPX document with one waypoint per ranked station. The
// waypoint description carries the fuel price, its tier and the distance.
func GPX(name string, ranked []geo.RankedStation, fuel geo.Fuel) *gpx.GPX {
	g := &gpx.GPX{
		Creator: gpxCreator,
		Name:    name,
	}

	for i := range ranked {
		r := &ranked[i]
		wp := gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  r.Point.Lat,
				Longitude: r.Point.Lon,
			},
			Name:        fmt.Sprintf("%s (%s)", r.Station.Name, r.Station.ID),
			Comment:     r.Station.Address,
			Description: describe(r, fuel),
			Symbol:      tierSymbols[r.Tier],
			Type:        r.Tier.String(),
		}
		g.Waypoints = append(g.Waypoints, wp)
	}
	return g
}

// WriteGPX serialises ranked stations as GPX 1.1 to w.
func WriteGPX(w io.Writer, name string, ranked []geo.RankedStation, fuel geo.Fuel) error {
	data, err := GPX(name, ranked, fuel).ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return fmt.Errorf("error encoding gpx: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("error writing gpx: %w", err)
	}
	return nil
}

func describe(r *geo.RankedStation, fuel geo.Fuel) string {
	desc := fmt.Sprintf("%.2f km", r.DistanceKm)
	if fuel == "" {
		return desc
	}
	price := r.Station.Price(fuel)
	if price == 0 {
		return fmt.Sprintf("%s, %s n/a", desc, fuel)
	}
	return fmt.Sprintf("%s, %s %.3f € (%s)", desc, fuel, price, r.Tier)
}
