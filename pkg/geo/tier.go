package geo

import "math"

// DefaultThreshold is the percentage above the average at which a price
// stops being NORMAL and becomes EXPENSIVE.
const DefaultThreshold = 3.0

// PriceTier classifies a price against a regional average.
type PriceTier int

const (
	TierUnknown PriceTier = iota
	TierCheap
	TierNormal
	TierExpensive
)

func (t PriceTier) String() string {
	switch t {
	case TierCheap:
		return "cheap"
	case TierNormal:
		return "normal"
	case TierExpensive:
		return "expensive"
	default:
		return "unknown"
	}
}

// ClassifyPrice compares price with average. Prices below the average are
// CHEAP, prices up to threshold percent above it are NORMAL, the rest are
// EXPENSIVE. A missing (zero) price or average yields TierUnknown.
// A non-positive threshold selects DefaultThreshold.
func ClassifyPrice(price, average, threshold float64) PriceTier {
	if !usable(price) || !usable(average) {
		return TierUnknown
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	diffPercent := (price - average) / average * 100
	switch {
	case diffPercent < 0:
		return TierCheap
	case diffPercent < threshold:
		return TierNormal
	default:
		return TierExpensive
	}
}

// Tier classifies the station's own price for fuel against its own average.
func (s *Station) Tier(fuel Fuel, threshold float64) PriceTier {
	return ClassifyPrice(s.Price(fuel), s.Average(fuel), threshold)
}

// RegionalAverages returns the mean price of fuel per province, ignoring
// stations that do not sell it.
func RegionalAverages(stations []Station, fuel Fuel) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i := range stations {
		price := stations[i].Price(fuel)
		if !usable(price) {
			continue
		}
		sums[stations[i].Province] += price
		counts[stations[i].Province]++
	}

	averages := make(map[string]float64, len(sums))
	for province, sum := range sums {
		averages[province] = sum / float64(counts[province])
	}
	return averages
}

// ApplyAverages fills each station's average for fuel from its province's
// regional average. Stations keep any average they already carry.
func ApplyAverages(stations []Station, fuel Fuel) {
	averages := RegionalAverages(stations, fuel)
	for i := range stations {
		if usable(stations[i].Average(fuel)) {
			continue
		}
		avg, ok := averages[stations[i].Province]
		if !ok {
			continue
		}
		if stations[i].Averages == nil {
			stations[i].Averages = make(map[Fuel]float64)
		}
		stations[i].Averages[fuel] = avg
	}
}

func usable(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
