// Package api provides types and functions to interact with the Spanish government
// fuel price API, fetch fuel station data, and perform geospatial queries.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rubiojr/gasrank/pkg/geo"
	"github.com/tkrajina/gpxgo/gpx"
)

const (
	ApiResultOK    = "OK"
	DefaultTimeout = 30 * time.Second
	DefaultBaseURL = "https://sedeaplicaciones.minetur.gob.es/ServiciosRESTCarburantes/PreciosCarburantes"
)

// ErrStationNotFound is returned by FetchStation when no station has the requested ID.
var ErrStationNotFound = errors.New("station not found")

// FuelPriceAPI provides methods to fetch fuel price data from the official API.
type FuelPriceAPI struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a FuelPriceAPI.
type Option func(*FuelPriceAPI)

// WithBaseURL points the client at a different server, mostly for tests.
func WithBaseURL(u string) Option {
	return func(api *FuelPriceAPI) {
		api.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(api *FuelPriceAPI) {
		api.httpClient = c
	}
}

// NewFuelPriceAPI creates a new FuelPriceAPI client with default settings.
func NewFuelPriceAPI(opts ...Option) *FuelPriceAPI {
	api := &FuelPriceAPI{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(api)
	}
	return api
}

// FetchPrices fetches the latest available fuel station prices.
func (api *FuelPriceAPI) FetchPrices(ctx context.Context) (*GasStationList, error) {
	return api.fetch(ctx, "/EstacionesTerrestres/")
}

// FetchPricesForDate fetches fuel station prices for a specific date.
func (api *FuelPriceAPI) FetchPricesForDate(ctx context.Context, date time.Time) (*GasStationList, error) {
	return api.fetch(ctx, "/EstacionesTerrestresHist/"+date.Format("02-01-2006"))
}

// FetchByMunicipality fetches the stations of a single municipality (IDMunicipio).
func (api *FuelPriceAPI) FetchByMunicipality(ctx context.Context, id string) (*GasStationList, error) {
	return api.fetch(ctx, "/EstacionesTerrestres/FiltroMunicipio/"+id)
}

// FetchByProvince fetches the stations of a single province (IDProvincia).
func (api *FuelPriceAPI) FetchByProvince(ctx context.Context, id string) (*GasStationList, error) {
	return api.fetch(ctx, "/EstacionesTerrestres/FiltroProvincia/"+id)
}

// FetchStation returns the station with the given IDEESS from the latest prices.
func (api *FuelPriceAPI) FetchStation(ctx context.Context, id string) (*GasStation, error) {
	prices, err := api.FetchPrices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range prices.ListaEESSPrecio {
		if prices.ListaEESSPrecio[i].IDEESS == id {
			return &prices.ListaEESSPrecio[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrStationNotFound, id)
}

// NearbyPrices returns a list of gas stations within a given distance (meters) from the specified coordinates.
func (api *FuelPriceAPI) NearbyPrices(ctx context.Context, lat, lng, distance float64) ([]*GasStation, error) {
	prices, err := api.FetchPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("error fetching current prices: %w", err)
	}

	return Nearby(prices, lat, lng, distance), nil
}

// Nearby filters a station list down to the stations within distance meters
// of the given coordinates. Stations with unparseable coordinates are skipped.
func Nearby(prices *GasStationList, lat, lng, distance float64) []*GasStation {
	var nearbyStations []*GasStation
	for i := range prices.ListaEESSPrecio {
		station := &prices.ListaEESSPrecio[i]
		stationLat, err := geo.ParseCoordinate(station.Latitud)
		if err != nil {
			continue
		}

		stationLng, err := geo.ParseCoordinate(station.Longitud)
		if err != nil {
			continue
		}

		calculatedDistance := gpx.Distance2D(lat, lng, stationLat, stationLng, true)
		if calculatedDistance <= distance {
			nearbyStations = append(nearbyStations, station)
		}
	}

	return nearbyStations
}

func (api *FuelPriceAPI) fetch(ctx context.Context, path string) (*GasStationList, error) {
	url := api.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := api.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var pricesResponse GasStationList
	if err := json.Unmarshal(body, &pricesResponse); err != nil {
		return nil, fmt.Errorf("error unmarshaling JSON: %w", err)
	}

	if pricesResponse.ResultadoConsulta != ApiResultOK {
		return nil, fmt.Errorf("API returned non-OK result: %s", pricesResponse.ResultadoConsulta)
	}

	return &pricesResponse, nil
}
