package geo

import (
	"math"
	"sort"
)

type cellKey struct {
	lat, lon int64
}

// GridClusterer produces the same clusters as EpsilonClusterer but buckets
// stations into Epsilon sized cells, so each station is only compared
// against the stations in its own and the eight surrounding cells.
type GridClusterer struct {
	Epsilon float64
}

// Cluster implements Clusterer.
func (c GridClusterer) Cluster(stations []Station) []Station {
	return representatives(c.Groups(stations))
}

// Groups returns each cluster with its merged members.
func (c GridClusterer) Groups(stations []Station) []Group {
	eps := epsilonOrDefault(c.Epsilon)
	points, valid := parsePoints(stations)

	grid := make(map[cellKey][]int)
	keys := make([]cellKey, len(stations))
	for i := range stations {
		if !valid[i] {
			continue
		}
		keys[i] = cellOf(points[i], eps)
		grid[keys[i]] = append(grid[keys[i]], i)
	}

	processed := make([]bool, len(stations))
	groups := make([]Group, 0, len(stations))
	var candidates []int

	for i := range stations {
		if processed[i] {
			continue
		}
		processed[i] = true
		g := Group{Station: stations[i]}
		if valid[i] {
			candidates = candidates[:0]
			k := keys[i]
			for dLat := int64(-1); dLat <= 1; dLat++ {
				for dLon := int64(-1); dLon <= 1; dLon++ {
					for _, j := range grid[cellKey{k.lat + dLat, k.lon + dLon}] {
						if j > i && !processed[j] && withinEpsilon(points[i], points[j], eps) {
							candidates = append(candidates, j)
						}
					}
				}
			}
			// keep members in input order, like the exhaustive scan
			sort.Ints(candidates)
			for _, j := range candidates {
				processed[j] = true
				g.Members = append(g.Members, stations[j])
			}
		}
		groups = append(groups, g)
	}
	return groups
}

func cellOf(p Point, eps float64) cellKey {
	return cellKey{
		lat: int64(math.Floor(p.Lat / eps)),
		lon: int64(math.Floor(p.Lon / eps)),
	}
}
