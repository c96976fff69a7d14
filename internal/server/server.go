// Package server exposes the station ranking over HTTP as JSON and GPX.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"
	"github.com/rubiojr/gasrank/internal/config"
	"github.com/rubiojr/gasrank/internal/export"
	"github.com/rubiojr/gasrank/internal/gasdb"
	"github.com/rubiojr/gasrank/internal/locate"
	"github.com/rubiojr/gasrank/internal/search"
	"github.com/rubiojr/gasrank/pkg/geo"
)

const DefaultRateLimit = 20 // requests per minute and IP

// Source provides the stations to rank.
type Source interface {
	Stations(ctx context.Context) ([]geo.Station, error)
	GetLastUpdateDate(ctx context.Context) (*time.Time, error)
}

// Resolver turns request parameters into a reference point.
type Resolver interface {
	Resolve(ctx context.Context, query string, lat, lon float64, hasCoords bool) (locate.Result, error)
}

type Server struct {
	source    Source
	resolver  Resolver
	cfg       *config.Config
	log       *httplog.Logger
	rateLimit int
}

type Option func(*Server)

// WithRateLimit sets the allowed requests per minute and client IP.
func WithRateLimit(n int) Option {
	return func(s *Server) {
		s.rateLimit = n
	}
}

func New(source Source, resolver Resolver, cfg *config.Config, logger *httplog.Logger, opts ...Option) *Server {
	s := &Server{
		source:    source,
		resolver:  resolver,
		cfg:       cfg,
		log:       logger,
		rateLimit: DefaultRateLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/stations", s.handleStations)
	r.Get("/api/stations.gpx", s.handleGPX)
	return r
}

type statusResponse struct {
	LastUpdate *string `json:"last_update"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	last, err := s.source.GetLastUpdateDate(r.Context())
	if err != nil {
		s.log.Error("Error getting last update date", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var resp statusResponse
	if last != nil {
		day := last.Format("2006-01-02")
		resp.LastUpdate = &day
	}
	writeJSON(w, http.StatusOK, resp)
}

type locationResponse struct {
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Source string  `json:"source"`
}

type stationResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Municipality string  `json:"municipality"`
	Province     string  `json:"province"`
	Schedule     string  `json:"schedule,omitempty"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	DistanceKm   float64 `json:"distance_km"`
	Price        float64 `json:"price,omitempty"`
	Average      float64 `json:"average,omitempty"`
	Tier         string  `json:"tier"`
}

type stationsResponse struct {
	Location locationResponse  `json:"location"`
	Fuel     geo.Fuel          `json:"fuel"`
	Count    int               `json:"count"`
	Stations []stationResponse `json:"stations"`
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	loc, q, ranked, ok := s.rank(w, r)
	if !ok {
		return
	}

	resp := stationsResponse{
		Location: locationResponse{
			Name:   loc.Name,
			Lat:    loc.Point.Lat,
			Lon:    loc.Point.Lon,
			Source: string(loc.Source),
		},
		Fuel:     q.Fuel,
		Count:    len(ranked),
		Stations: make([]stationResponse, 0, len(ranked)),
	}
	for _, rs := range ranked {
		st := rs.Station
		resp.Stations = append(resp.Stations, stationResponse{
			ID:           st.ID,
			Name:         st.Name,
			Address:      st.Address,
			Municipality: st.Municipality,
			Province:     st.Province,
			Schedule:     st.Schedule,
			Lat:          rs.Point.Lat,
			Lon:          rs.Point.Lon,
			DistanceKm:   rs.DistanceKm,
			Price:        st.Price(q.Fuel),
			Average:      st.Average(q.Fuel),
			Tier:         rs.Tier.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGPX(w http.ResponseWriter, r *http.Request) {
	loc, q, ranked, ok := s.rank(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="stations.gpx"`)
	if err := export.WriteGPX(w, "Stations near "+loc.Name, ranked, q.Fuel); err != nil {
		s.log.Error("Error writing gpx", "error", err)
	}
}

// rank runs the request through the ranking pipeline. On failure it writes
// the error response and returns false.
func (s *Server) rank(w http.ResponseWriter, r *http.Request) (locate.Result, search.Query, []geo.RankedStation, bool) {
	q, err := s.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return locate.Result{}, q, nil, false
	}

	params := r.URL.Query()
	lat, lng := params.Get("lat"), params.Get("lng")
	hasCoords := lat != "" || lng != ""
	var latV, lngV float64
	if hasCoords {
		if latV, err = geo.ParseCoordinate(lat); err == nil {
			lngV, err = geo.ParseCoordinate(lng)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return locate.Result{}, q, nil, false
		}
	}

	loc, err := s.resolver.Resolve(r.Context(), params.Get("location"), latV, lngV, hasCoords)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return loc, q, nil, false
	}
	q.Ref = loc.Point

	stations, err := s.source.Stations(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gasdb.ErrNoData) {
			status = http.StatusServiceUnavailable
		}
		s.log.Error("Error loading stations", "error", err)
		writeError(w, status, err)
		return loc, q, nil, false
	}

	ranked, err := search.Rank(stations, q, s.log.Logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return loc, q, nil, false
	}
	return loc, q, ranked, true
}

func (s *Server) parseQuery(r *http.Request) (search.Query, error) {
	params := r.URL.Query()
	q := search.Query{
		Term:      params.Get("q"),
		Fuel:      s.cfg.Fuel,
		Epsilon:   s.cfg.Epsilon,
		Threshold: s.cfg.Threshold,
		Limit:     s.cfg.Limit,
		RadiusKm:  s.cfg.RadiusKm,
	}

	if name := params.Get("fuel"); name != "" {
		fuel, ok := geo.ParseFuel(name)
		if !ok {
			return q, fmt.Errorf("unknown fuel %q", name)
		}
		q.Fuel = fuel
	}

	if v := params.Get("radius"); v != "" {
		radius, err := geo.ParseDecimal(v)
		if err != nil || radius < 0 {
			return q, fmt.Errorf("invalid radius %q", v)
		}
		q.RadiusKm = radius
	}

	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return q, fmt.Errorf("invalid limit %q", v)
		}
		q.Limit = limit
	}

	switch strings.ToLower(params.Get("sort")) {
	case "", "distance":
	case "price":
		q.SortByPrice = true
	default:
		return q, fmt.Errorf("invalid sort %q", params.Get("sort"))
	}
	return q, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
