package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rubiojr/gasrank/internal/config"
	"github.com/rubiojr/gasrank/internal/gasdb"
	"github.com/rubiojr/gasrank/internal/locate"
	"github.com/rubiojr/gasrank/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"
)

type fakeSource struct {
	last *time.Time
	err  error
}

func (f *fakeSource) Stations(ctx context.Context) ([]geo.Station, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []geo.Station{
		{ID: "1001", Name: "REPSOL", Municipality: "Madrid", Province: "MADRID",
			Latitude: "40,416800", Longitude: "-3,703800", Prices: map[geo.Fuel]float64{geo.Gasoline95: 1.529}},
		{ID: "1002", Name: "CEPSA", Municipality: "Alcobendas", Province: "MADRID",
			Latitude: "40,547000", Longitude: "-3,641700", Prices: map[geo.Fuel]float64{geo.Gasoline95: 1.629}},
		{ID: "1003", Name: "BP", Municipality: "Madrid", Province: "MADRID"},
	}, nil
}

func (f *fakeSource) GetLastUpdateDate(ctx context.Context) (*time.Time, error) {
	return f.last, f.err
}

func newTestServer(src Source, opts ...Option) http.Handler {
	cfg := &config.Config{
		Epsilon:   geo.DefaultEpsilon,
		Threshold: geo.DefaultThreshold,
		Limit:     10,
		RadiusKm:  5,
		Fuel:      geo.Gasoline95,
	}
	logger := httplog.NewLogger("gasrank-test", httplog.Options{
		LogLevel: slog.LevelError,
		Concise:  true,
	})
	locator := locate.NewLocator(nil, time.Second, locate.Madrid, nil)
	return New(src, locator, cfg, logger, opts...).Handler()
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestStatus(t *testing.T) {
	rec := get(newTestServer(&fakeSource{}), "/api/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"last_update":null}`, rec.Body.String())

	day := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	rec = get(newTestServer(&fakeSource{last: &day}), "/api/status")
	assert.JSONEq(t, `{"last_update":"2026-10-17"}`, rec.Body.String())
}

func TestStations(t *testing.T) {
	rec := get(newTestServer(&fakeSource{}), "/api/stations?lat=40,4168&lng=-3.7038&radius=20")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp stationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "coordinates", resp.Location.Source)
	assert.Equal(t, geo.Gasoline95, resp.Fuel)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "1001", resp.Stations[0].ID)
	assert.Equal(t, "cheap", resp.Stations[0].Tier)
	assert.InDelta(t, 0, resp.Stations[0].DistanceKm, 1e-9)
	assert.Equal(t, "1002", resp.Stations[1].ID)
	assert.Equal(t, "expensive", resp.Stations[1].Tier)
	assert.InDelta(t, 1.579, resp.Stations[1].Average, 1e-9)
}

func TestStationsFallbackAndFilter(t *testing.T) {
	rec := get(newTestServer(&fakeSource{}), "/api/stations?q=alcobendas&radius=0&sort=price")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp stationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fallback", resp.Location.Source)
	require.Len(t, resp.Stations, 1)
	assert.Equal(t, "1002", resp.Stations[0].ID)
}

func TestStationsBadRequests(t *testing.T) {
	h := newTestServer(&fakeSource{}, WithRateLimit(100))

	tests := []string{
		"/api/stations?fuel=kerosene",
		"/api/stations?radius=far",
		"/api/stations?radius=-1",
		"/api/stations?limit=-1",
		"/api/stations?sort=name",
		"/api/stations?lat=abc&lng=1",
		"/api/stations?lat=40",
		"/api/stations?lat=95&lng=0",
	}
	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			rec := get(h, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestStationsNoData(t *testing.T) {
	rec := get(newTestServer(&fakeSource{err: gasdb.ErrNoData}), "/api/stations")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = get(newTestServer(&fakeSource{err: errors.New("disk on fire")}), "/api/stations")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStationsGPX(t *testing.T) {
	rec := get(newTestServer(&fakeSource{}), "/api/stations.gpx?lat=40.4168&lng=-3.7038&radius=20")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/gpx+xml", rec.Header().Get("Content-Type"))

	doc, err := gpx.ParseBytes(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, doc.Waypoints, 2)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(&fakeSource{}, WithRateLimit(2))

	assert.Equal(t, http.StatusOK, get(h, "/api/status").Code)
	assert.Equal(t, http.StatusOK, get(h, "/api/status").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(h, "/api/status").Code)
}

type countingStore struct {
	calls chan struct{}
}

func (c *countingStore) Update(ctx context.Context, fetcher gasdb.Fetcher) error {
	c.calls <- struct{}{}
	return errors.New("provider down")
}

func TestRunUpdater(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &countingStore{calls: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		RunUpdater(ctx, store, nil, clock, time.Hour, slog.New(slog.DiscardHandler))
		close(done)
	}()

	<-store.calls
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Hour)
	<-store.calls

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("updater did not stop")
	}
}
