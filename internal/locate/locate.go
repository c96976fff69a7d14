// Package locate resolves the reference point stations are ranked from:
// explicit coordinates, a geocoded place name, or a fallback location.
package locate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rubiojr/gasrank/pkg/geo"
)

const DefaultTimeout = 8 * time.Second

// Madrid is the fallback reference point.
var Madrid = geo.Point{Lat: 40.4168, Lon: -3.7038}

// ErrNoResults is returned when a geocoder finds nothing for a query.
var ErrNoResults = errors.New("no results found for location")

// Source tells where a resolved point came from.
type Source string

const (
	SourceCoordinates Source = "coordinates"
	SourceGeocoded    Source = "geocoded"
	SourceFallback    Source = "fallback"
)

// Place is a named point.
type Place struct {
	Name  string
	Point geo.Point
}

// Result is a resolved reference point.
type Result struct {
	Place
	Source Source
	// Err holds the geocoding failure when Source is SourceFallback.
	Err error
}

// Geocoder turns a free-form place name into a point.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Place, error)
}

// Locator resolves reference points with a timeout and a fallback.
type Locator struct {
	geocoder Geocoder
	timeout  time.Duration
	fallback geo.Point
	log      *slog.Logger
}

// NewLocator returns a Locator. A non-positive timeout selects
// DefaultTimeout. A nil logger discards log output.
func NewLocator(geocoder Geocoder, timeout time.Duration, fallback geo.Point, logger *slog.Logger) *Locator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Locator{
		geocoder: geocoder,
		timeout:  timeout,
		fallback: fallback,
		log:      logger,
	}
}

// Locate geocodes query. On timeout, provider failure or an empty result
// the fallback point is returned instead with Source set to
// SourceFallback. Only an invalid fallback is an error.
func (l *Locator) Locate(ctx context.Context, query string) (Result, error) {
	if query != "" && l.geocoder != nil {
		ctx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()

		place, err := l.geocoder.Geocode(ctx, query)
		if err == nil {
			err = place.Point.Validate()
		}
		if err == nil {
			l.log.Debug("location geocoded", "query", query, "name", place.Name, "point", place.Point.String())
			return Result{Place: place, Source: SourceGeocoded}, nil
		}
		l.log.Warn("geocoding failed, using fallback", "query", query, "error", err)
		return l.useFallback(err)
	}
	return l.useFallback(nil)
}

// Resolve prefers explicit coordinates, then a geocoded query, then the
// fallback. Explicit coordinates that are out of range fail with
// geo.ErrInvalidReferencePoint rather than silently falling back.
func (l *Locator) Resolve(ctx context.Context, query string, lat, lon float64, hasCoords bool) (Result, error) {
	if hasCoords {
		p := geo.Point{Lat: lat, Lon: lon}
		if err := p.Validate(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", geo.ErrInvalidReferencePoint, err)
		}
		return Result{Place: Place{Name: p.String(), Point: p}, Source: SourceCoordinates}, nil
	}
	return l.Locate(ctx, query)
}

func (l *Locator) useFallback(cause error) (Result, error) {
	if err := l.fallback.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: fallback: %v", geo.ErrInvalidReferencePoint, err)
	}
	return Result{
		Place:  Place{Name: "fallback " + l.fallback.String(), Point: l.fallback},
		Source: SourceFallback,
		Err:    cause,
	}, nil
}
