package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rubiojr/gasrank/internal/config"
	"github.com/rubiojr/gasrank/internal/locate"
	"github.com/rubiojr/gasrank/pkg/api"
	"github.com/rubiojr/gasrank/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"
)

func fixtureList() api.GasStationList {
	return api.GasStationList{
		Fecha:             "17/10/2026 10:00:00",
		ResultadoConsulta: api.ApiResultOK,
		ListaEESSPrecio: []api.GasStation{
			{IDEESS: "1001", Rotulo: "REPSOL", Municipio: "Madrid", Provincia: "MADRID",
				Latitud: "40,416800", Longitud: "-3,703800", PrecioGasolina95E5: "1,529"},
			{IDEESS: "1002", Rotulo: "CEPSA", Municipio: "Alcobendas", Provincia: "MADRID",
				Latitud: "40,547000", Longitud: "-3,641700", PrecioGasolina95E5: "1,629"},
			{IDEESS: "1003", Rotulo: "BP", Municipio: "Madrid", Provincia: "MADRID"},
		},
	}
}

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	list := fixtureList()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	return &config.Config{
		DBPath:           filepath.Join(t.TempDir(), "test.db"),
		Epsilon:          geo.DefaultEpsilon,
		Threshold:        geo.DefaultThreshold,
		Limit:            10,
		RadiusKm:         5,
		Fuel:             geo.Gasoline95,
		GeolocateTimeout: locate.DefaultTimeout,
		Fallback:         locate.Madrid,
		APIBaseURL:       apiURL,
		LogLevel:         slog.LevelError,
	}
}

func exportedIDs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := gpx.ParseBytes(data)
	require.NoError(t, err)
	var names []string
	for _, wp := range doc.Waypoints {
		names = append(names, wp.Name)
	}
	return names
}

func TestExportGPXLive(t *testing.T) {
	srv := fixtureServer(t)
	cfg := testConfig(t, srv.URL)
	out := filepath.Join(t.TempDir(), "out.gpx")

	err := newApp(cfg).Run([]string{"gasrank", "export-gpx", "--live",
		"--lat=40.4168", "--long=-3.7038", "--radius=20", "--output", out})
	require.NoError(t, err)

	assert.Equal(t, []string{"REPSOL (1001)", "CEPSA (1002)"}, exportedIDs(t, out))
}

func TestUpdateThenRankFromDatabase(t *testing.T) {
	srv := fixtureServer(t)
	cfg := testConfig(t, srv.URL)
	app := newApp(cfg)

	require.NoError(t, app.Run([]string{"gasrank", "update"}))

	out := filepath.Join(t.TempDir(), "out.gpx")
	err := newApp(cfg).Run([]string{"gasrank", "export-gpx",
		"--lat=40.547", "--long=-3.6417", "--radius=0", "--sort-by-price", "--output", out})
	require.NoError(t, err)

	// cheapest first even though CEPSA is closer
	assert.Equal(t, []string{"REPSOL (1001)", "CEPSA (1002)"}, exportedIDs(t, out))

	require.NoError(t, newApp(cfg).Run([]string{"gasrank", "check-status", "--start", "2026-10-01", "--end", "2026-10-02"}))
	require.NoError(t, newApp(cfg).Run([]string{"gasrank", "prune", "--days", "30"}))
}

func TestExportGPXFilter(t *testing.T) {
	srv := fixtureServer(t)
	cfg := testConfig(t, srv.URL)
	out := filepath.Join(t.TempDir(), "out.gpx")

	err := newApp(cfg).Run([]string{"gasrank", "export-gpx", "--live", "--filter", "alcobendas",
		"--lat=40.4168", "--long=-3.7038", "--radius=0", "--output", out})
	require.NoError(t, err)

	assert.Equal(t, []string{"CEPSA (1002)"}, exportedIDs(t, out))
}

func TestLiveLookups(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	list := fixtureList()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}))
	t.Cleanup(srv.Close)
	cfg := testConfig(t, srv.URL)

	tests := []struct {
		name     string
		flag     string
		wantPath string
		want     []string
	}{
		{"municipality", "--municipality=4354", "/EstacionesTerrestres/FiltroMunicipio/4354",
			[]string{"REPSOL (1001)", "CEPSA (1002)"}},
		{"province", "--province=28", "/EstacionesTerrestres/FiltroProvincia/28",
			[]string{"REPSOL (1001)", "CEPSA (1002)"}},
		{"station", "--station=1002", "/EstacionesTerrestres/",
			[]string{"CEPSA (1002)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mu.Lock()
			paths = nil
			mu.Unlock()
			out := filepath.Join(t.TempDir(), "out.gpx")
			err := newApp(cfg).Run([]string{"gasrank", "export-gpx", "--live", tt.flag,
				"--lat=40.4168", "--long=-3.7038", "--radius=0", "--output", out})
			require.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, []string{tt.wantPath}, paths)
			assert.Equal(t, tt.want, exportedIDs(t, out))
		})
	}
}

func TestCommandErrors(t *testing.T) {
	srv := fixtureServer(t)
	cfg := testConfig(t, srv.URL)

	tests := []struct {
		name string
		args []string
	}{
		{"search without term", []string{"gasrank", "search", "--live"}},
		{"unknown fuel", []string{"gasrank", "nearest", "--live", "--fuel", "kerosene", "--lat=40", "--long=-3"}},
		{"invalid coordinates", []string{"gasrank", "nearest", "--live", "--lat=91", "--long=0"}},
		{"empty database", []string{"gasrank", "nearest", "--lat=40", "--long=-3"}},
		{"unknown station", []string{"gasrank", "nearest", "--live", "--station=9999", "--lat=40", "--long=-3"}},
		{"prune zero days", []string{"gasrank", "prune", "--days", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, newApp(cfg).Run(tt.args))
		})
	}
}
