package export

import (
	"bytes"
	"testing"

	"github.com/rubiojr/gasrank/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"
)

func TestWriteGPX(t *testing.T) {
	ranked := []geo.RankedStation{
		{
			Station: geo.Station{ID: "1001", Name: "REPSOL", Address: "CALLE ALCALA, 10",
				Prices: map[geo.Fuel]float64{geo.Gasoline95: 1.529}},
			Point:      geo.Point{Lat: 40.4168, Lon: -3.7038},
			DistanceKm: 0.25,
			Tier:       geo.TierCheap,
		},
		{
			Station:    geo.Station{ID: "1002", Name: "CEPSA"},
			Point:      geo.Point{Lat: 40.547, Lon: -3.6417},
			DistanceKm: 15.3,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGPX(&buf, "nearest", ranked, geo.Gasoline95))

	doc, err := gpx.ParseBytes(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, doc.Waypoints, 2)
	assert.Equal(t, "nearest", doc.Name)

	first := doc.Waypoints[0]
	assert.Equal(t, "REPSOL (1001)", first.Name)
	assert.InDelta(t, 40.4168, first.Latitude, 1e-9)
	assert.InDelta(t, -3.7038, first.Longitude, 1e-9)
	assert.Equal(t, "0.25 km, gasolina95 1.529 € (cheap)", first.Description)
	assert.Equal(t, "cheap", first.Type)
	assert.Equal(t, "Flag, Green", first.Symbol)

	second := doc.Waypoints[1]
	assert.Equal(t, "15.30 km, gasolina95 n/a", second.Description)
	assert.Equal(t, "unknown", second.Type)
}

func TestGPXWithoutFuel(t *testing.T) {
	g := GPX("plain", []geo.RankedStation{{Station: geo.Station{ID: "1", Name: "BP"}, DistanceKm: 1}}, "")
	require.Len(t, g.Waypoints, 1)
	assert.Equal(t, "1.00 km", g.Waypoints[0].Description)
}
