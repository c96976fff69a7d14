package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Fuel names a fuel type sold at a station.
type Fuel string

const (
	Gasoline95        Fuel = "gasolina95"
	Gasoline95E10     Fuel = "gasolina95e10"
	Gasoline95Premium Fuel = "gasolina95premium"
	Gasoline98        Fuel = "gasolina98"
	Gasoline98E10     Fuel = "gasolina98e10"
	DieselA           Fuel = "gasoleoA"
	DieselB           Fuel = "gasoleoB"
	DieselPremium     Fuel = "gasoleoPremium"
	Biodiesel         Fuel = "biodiesel"
	Bioethanol        Fuel = "bioetanol"
	LPG               Fuel = "glp"
	CNG               Fuel = "gnc"
	LNG               Fuel = "gnl"
	Hydrogen          Fuel = "hidrogeno"
)

// Fuels lists every known fuel in display order.
var Fuels = []Fuel{
	Gasoline95, Gasoline95E10, Gasoline95Premium, Gasoline98, Gasoline98E10,
	DieselA, DieselB, DieselPremium, Biodiesel, Bioethanol, LPG, CNG, LNG, Hydrogen,
}

// ParseFuel maps a user supplied fuel name, including the common aliases,
// to a Fuel. ok is false for unknown names.
func ParseFuel(name string) (fuel Fuel, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gasolina95", "gasolina95e5", "95":
		return Gasoline95, true
	case "gasolina95e10":
		return Gasoline95E10, true
	case "gasolina95premium":
		return Gasoline95Premium, true
	case "gasolina98", "gasolina98e5", "98":
		return Gasoline98, true
	case "gasolina98e10":
		return Gasoline98E10, true
	case "gasoleo", "gasoleoa", "diesel":
		return DieselA, true
	case "gasoleob":
		return DieselB, true
	case "gasoleopremium", "premiumdiesel":
		return DieselPremium, true
	case "biodiesel":
		return Biodiesel, true
	case "bioetanol":
		return Bioethanol, true
	case "glp", "gaseslicuados":
		return LPG, true
	case "gnc", "gasnatural":
		return CNG, true
	case "gnl", "gasnaturallicuado":
		return LNG, true
	case "hidrogeno":
		return Hydrogen, true
	}
	return "", false
}

// Station is a single fuel station as returned by the data provider.
// Coordinates are kept as the provider sent them and parsed on demand.
type Station struct {
	ID           string
	Name         string
	Address      string
	Locality     string
	Municipality string
	Province     string
	PostalCode   string
	Schedule     string
	Latitude     string
	Longitude    string

	// Prices and Averages are keyed by fuel. A missing key or a zero
	// value means the price is not available.
	Prices   map[Fuel]float64
	Averages map[Fuel]float64
}

// Price returns the station price for fuel, or 0 when absent.
func (s *Station) Price(fuel Fuel) float64 {
	return s.Prices[fuel]
}

// Average returns the regional average for fuel, or 0 when absent.
func (s *Station) Average(fuel Fuel) float64 {
	return s.Averages[fuel]
}

// Point parses and validates the station coordinates.
func (s *Station) Point() (Point, error) {
	lat, err := ParseCoordinate(s.Latitude)
	if err != nil {
		return Point{}, fmt.Errorf("station %s latitude: %w", s.ID, err)
	}
	lon, err := ParseCoordinate(s.Longitude)
	if err != nil {
		return Point{}, fmt.Errorf("station %s longitude: %w", s.ID, err)
	}
	p := Point{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return Point{}, fmt.Errorf("station %s: %w", s.ID, err)
	}
	return p, nil
}

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Validate reports whether the point is finite and within
// [-90, 90] latitude and [-180, 180] longitude.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: non-finite value (%v, %v)", ErrInvalidCoordinate, p.Lat, p.Lon)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, p.Lon)
	}
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lon)
}

// ParseCoordinate parses a latitude or longitude string, accepting either
// a comma or a dot as decimal separator.
func ParseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidCoordinate)
	}
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	return v, nil
}

// ParseDecimal parses a provider decimal such as "1,459". Empty values and
// the provider's "-" placeholder yield 0 with no error.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, nil
	}
	s = strings.Replace(s, ",", ".", 1)
	return strconv.ParseFloat(s, 64)
}
