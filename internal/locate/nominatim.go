package locate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muesli/gominatim"
	"github.com/patrickmn/go-cache"
	"github.com/rubiojr/gasrank/pkg/geo"
)

const (
	DefaultNominatimServer = "https://nominatim.openstreetmap.org/"
	geocodeCacheExpiry     = 30 * time.Minute
	geocodeCacheCleanup    = 90 * time.Minute
	// maxLookups bounds the concurrent requests to the Nominatim server.
	maxLookups = 4
)

// gominatim keeps its server in a package variable.
var setServerOnce sync.Once

// Nominatim geocodes place names through OpenStreetMap's Nominatim service.
// Results are cached per query.
type Nominatim struct {
	cache   *cache.Cache
	search  func(query string) ([]gominatim.SearchResult, error)
	lookups chan struct{}
}

// NewNominatim returns a geocoder talking to server. The server can only be
// set once per process; later calls reuse the first value.
func NewNominatim(server string) *Nominatim {
	if server == "" {
		server = DefaultNominatimServer
	}
	setServerOnce.Do(func() {
		gominatim.SetServer(server)
	})
	return &Nominatim{
		cache:   cache.New(geocodeCacheExpiry, geocodeCacheCleanup),
		search:  searchNominatim,
		lookups: make(chan struct{}, maxLookups),
	}
}

func searchNominatim(query string) ([]gominatim.SearchResult, error) {
	q := gominatim.SearchQuery{
		Q: query,
	}
	return q.Get()
}

// Geocode implements Geocoder. gominatim has no context support and sends
// its requests through http.Get with no timeout, so the lookup runs in its
// own goroutine and is abandoned when ctx is done. An abandoned lookup keeps
// its goroutine until the server answers. At most maxLookups lookups run at
// once; further calls wait for a slot or for ctx.
func (n *Nominatim) Geocode(ctx context.Context, query string) (Place, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if cached, ok := n.cache.Get(key); ok {
		return cached.(Place), nil
	}

	type outcome struct {
		results []gominatim.SearchResult
		err     error
	}
	select {
	case n.lookups <- struct{}{}:
	case <-ctx.Done():
		return Place{}, ctx.Err()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() { <-n.lookups }()
		results, err := n.search(query)
		done <- outcome{results, err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		return Place{}, ctx.Err()
	case out = <-done:
	}

	if out.err != nil {
		return Place{}, fmt.Errorf("geocoding error: %w", out.err)
	}
	if len(out.results) == 0 {
		return Place{}, fmt.Errorf("%w: %s", ErrNoResults, query)
	}

	place, err := placeFromResult(out.results[0])
	if err != nil {
		return Place{}, err
	}
	n.cache.Set(key, place, cache.DefaultExpiration)
	return place, nil
}

func placeFromResult(result gominatim.SearchResult) (Place, error) {
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("error parsing latitude: %w", err)
	}

	lng, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("error parsing longitude: %w", err)
	}

	return Place{Name: result.DisplayName, Point: geo.Point{Lat: lat, Lon: lng}}, nil
}
