// Package geo ranks fuel stations for map and list display: great-circle
// distances, marker deduplication, nearest-first ordering, price tiers and
// free-text filtering. Every function is pure and safe for concurrent use.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

var (
	// ErrInvalidCoordinate is returned for missing, unparseable or out of
	// range coordinates.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrInvalidReferencePoint is returned when the point distances are
	// measured from is itself invalid.
	ErrInvalidReferencePoint = errors.New("invalid reference point")
)

// Haversine returns the great-circle distance in kilometers between two
// points given in decimal degrees. Inputs are not validated.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := degreesToRadians(lat1)
	lat2Rad := degreesToRadians(lat2)
	deltaLat := degreesToRadians(lat2 - lat1)
	deltaLon := degreesToRadians(lon2 - lon1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	// rounding can push a past 1 for near-antipodal points
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(math.Max(0, 1-a)))

	return EarthRadiusKm * c
}

// Distance returns the great-circle distance in kilometers between a and b.
// It fails with ErrInvalidCoordinate when either point is invalid.
func Distance(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon), nil
}

// DistanceTo is a convenience wrapper around Distance for a station.
func (s *Station) DistanceTo(ref Point) (float64, error) {
	p, err := s.Point()
	if err != nil {
		return 0, err
	}
	if err := ref.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidReferencePoint, err)
	}
	return Haversine(ref.Lat, ref.Lon, p.Lat, p.Lon), nil
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
