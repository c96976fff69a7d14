package geo

import "math"

// DefaultEpsilon is the per-axis clustering distance in degrees (~100 m).
const DefaultEpsilon = 0.001

// Clusterer collapses stations that would render as overlapping markers.
// Implementations must return representatives in first-occurrence order
// and must never merge stations with invalid coordinates.
type Clusterer interface {
	Cluster(stations []Station) []Station
}

// Group is a cluster representative together with the stations merged into it.
type Group struct {
	Station Station
	Members []Station
}

// EpsilonClusterer merges every station whose latitude and longitude both
// differ by less than Epsilon from an earlier, still unmerged station.
// The check is per axis, not radial. It scans all pairs.
type EpsilonClusterer struct {
	Epsilon float64
}

// Cluster implements Clusterer.
func (c EpsilonClusterer) Cluster(stations []Station) []Station {
	return representatives(c.Groups(stations))
}

// Groups returns each cluster with its merged members.
func (c EpsilonClusterer) Groups(stations []Station) []Group {
	eps := epsilonOrDefault(c.Epsilon)
	points, valid := parsePoints(stations)
	processed := make([]bool, len(stations))
	groups := make([]Group, 0, len(stations))

	for i := range stations {
		if processed[i] {
			continue
		}
		processed[i] = true
		g := Group{Station: stations[i]}
		if valid[i] {
			for j := i + 1; j < len(stations); j++ {
				if processed[j] || !valid[j] {
					continue
				}
				if withinEpsilon(points[i], points[j], eps) {
					processed[j] = true
					g.Members = append(g.Members, stations[j])
				}
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// Cluster collapses near-duplicate stations using an EpsilonClusterer.
// A non-positive eps selects DefaultEpsilon.
func Cluster(stations []Station, eps float64) []Station {
	return EpsilonClusterer{Epsilon: eps}.Cluster(stations)
}

func withinEpsilon(a, b Point, eps float64) bool {
	return math.Abs(a.Lat-b.Lat) < eps && math.Abs(a.Lon-b.Lon) < eps
}

func epsilonOrDefault(eps float64) float64 {
	if eps <= 0 || math.IsNaN(eps) || math.IsInf(eps, 0) {
		return DefaultEpsilon
	}
	return eps
}

func parsePoints(stations []Station) ([]Point, []bool) {
	points := make([]Point, len(stations))
	valid := make([]bool, len(stations))
	for i := range stations {
		p, err := stations[i].Point()
		if err != nil {
			continue
		}
		points[i] = p
		valid[i] = true
	}
	return points, valid
}

func representatives(groups []Group) []Station {
	out := make([]Station, len(groups))
	for i := range groups {
		out[i] = groups[i].Station
	}
	return out
}
