// Package config provides application configuration management,
// loading settings from environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rubiojr/gasrank/internal/locate"
	"github.com/rubiojr/gasrank/pkg/api"
	"github.com/rubiojr/gasrank/pkg/geo"
)

// Config holds all settings, populated from environment variables.
type Config struct {
	DBPath string

	// Ranking defaults
	Epsilon   float64
	Threshold float64
	Limit     int
	RadiusKm  float64
	Fuel      geo.Fuel

	// Reference point resolution
	GeolocateTimeout time.Duration
	Fallback         geo.Point

	// Upstream services
	APIBaseURL      string
	NominatimServer string

	// HTTP server
	Addr           string
	UpdateInterval time.Duration
	RateLimit      int

	LogLevel slog.Level
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:          getEnv("GASRANK_DB", "fuel_prices.db"),
		APIBaseURL:      getEnv("GASRANK_API_URL", api.DefaultBaseURL),
		NominatimServer: getEnv("GASRANK_NOMINATIM_URL", locate.DefaultNominatimServer),
		Addr:            getEnv("GASRANK_ADDR", "127.0.0.1:8080"),
	}

	var err error
	if cfg.Epsilon, err = parseFloat("GASRANK_EPSILON", geo.DefaultEpsilon); err != nil {
		return nil, err
	}
	if cfg.Threshold, err = parseFloat("GASRANK_THRESHOLD", geo.DefaultThreshold); err != nil {
		return nil, err
	}
	if cfg.RadiusKm, err = parseFloat("GASRANK_RADIUS_KM", 5.0); err != nil {
		return nil, err
	}
	if cfg.Fallback.Lat, err = parseFloat("GASRANK_FALLBACK_LAT", locate.Madrid.Lat); err != nil {
		return nil, err
	}
	if cfg.Fallback.Lon, err = parseFloat("GASRANK_FALLBACK_LON", locate.Madrid.Lon); err != nil {
		return nil, err
	}

	cfg.Limit, err = strconv.Atoi(getEnv("GASRANK_LIMIT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid GASRANK_LIMIT: %w", err)
	}

	cfg.GeolocateTimeout, err = time.ParseDuration(getEnv("GASRANK_GEOLOCATE_TIMEOUT", locate.DefaultTimeout.String()))
	if err != nil || cfg.GeolocateTimeout <= 0 {
		return nil, errors.New("invalid GASRANK_GEOLOCATE_TIMEOUT")
	}

	cfg.UpdateInterval, err = time.ParseDuration(getEnv("GASRANK_UPDATE_INTERVAL", "6h"))
	if err != nil || cfg.UpdateInterval <= 0 {
		return nil, errors.New("invalid GASRANK_UPDATE_INTERVAL")
	}

	cfg.RateLimit, err = strconv.Atoi(getEnv("GASRANK_RATE_LIMIT", "20"))
	if err != nil || cfg.RateLimit <= 0 {
		return nil, errors.New("invalid GASRANK_RATE_LIMIT")
	}

	fuel, ok := geo.ParseFuel(getEnv("GASRANK_FUEL", string(geo.Gasoline95)))
	if !ok {
		return nil, fmt.Errorf("invalid GASRANK_FUEL: %q", os.Getenv("GASRANK_FUEL"))
	}
	cfg.Fuel = fuel

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Epsilon <= 0 {
		return errors.New("GASRANK_EPSILON must be positive")
	}
	if c.Threshold <= 0 {
		return errors.New("GASRANK_THRESHOLD must be positive")
	}
	if c.Limit < 0 {
		return errors.New("GASRANK_LIMIT must not be negative")
	}
	if err := c.Fallback.Validate(); err != nil {
		return fmt.Errorf("invalid fallback location: %w", err)
	}
	if c.DBPath == "" {
		return errors.New("GASRANK_DB is required")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parseFloat parses a float64 from an environment variable, accepting a
// decimal comma, or returns the default when unset.
func parseFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue, nil
	}
	v, err := geo.ParseDecimal(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
