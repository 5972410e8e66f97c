package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/vrp"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port        string
	DBDriver    string
	DatabaseURL string
	SeedPath    string

	DepotAddress string
	Depot        domain.Opt[domain.Coordinates]

	ORSAPIKey  string
	ORSBaseURL string
	RedisURL   string

	OracleTimeout      time.Duration
	CacheTTLGeocode    time.Duration
	CacheTTLDirections time.Duration
	CacheTTLMatrix     time.Duration

	CapacityPolicy vrp.CapacityPolicy
	Timezone       *time.Location

	LogLevel  string
	LogFormat string
}

// LoadDotEnv reads .env when present. A missing file is not an error.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		logrus.Info("No .env file found (using environment variables)")
	}
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Load reads the service configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Port:         Get("PORT", "8080"),
		DBDriver:     Get("DB_DRIVER", "sqlite"),
		DatabaseURL:  Get("DATABASE_URL", "data/app.db"),
		SeedPath:     Get("SEED_PATH", ""),
		DepotAddress: Get("DEPOT_ADDRESS", ""),
		ORSAPIKey:    Get("ORS_API_KEY", ""),
		ORSBaseURL:   Get("ORS_BASE_URL", "https://api.openrouteservice.org"),
		RedisURL:     Get("REDIS_URL", ""),
		LogLevel:     Get("LOG_LEVEL", "info"),
		LogFormat:    Get("LOG_FORMAT", "text"),
	}

	var errs []error
	dur := func(key string, fallback time.Duration) time.Duration {
		raw := Get(key, "")
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("config: %s=%q is not a positive duration", key, raw))
			return fallback
		}
		return d
	}

	cfg.OracleTimeout = dur("ORACLE_TIMEOUT", 10*time.Second)
	cfg.CacheTTLGeocode = dur("CACHE_TTL_GEOCODE", 30*24*time.Hour)
	cfg.CacheTTLDirections = dur("CACHE_TTL_DIRECTIONS", 24*time.Hour)
	cfg.CacheTTLMatrix = dur("CACHE_TTL_MATRIX", 6*time.Hour)

	policy, err := vrp.ParseCapacityPolicy(Get("CAPACITY_POLICY", "shared"))
	if err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	cfg.CapacityPolicy = policy

	tz, err := time.LoadLocation(Get("TIMEZONE", "Local"))
	if err != nil {
		errs = append(errs, fmt.Errorf("config: TIMEZONE: %w", err))
		tz = time.Local
	}
	cfg.Timezone = tz

	lat, lon := Get("DEPOT_LAT", ""), Get("DEPOT_LON", "")
	if lat != "" || lon != "" {
		c, err := parseCoordinates(lat, lon)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: depot: %w", err))
		} else {
			cfg.Depot = domain.Some(c)
		}
	}

	if !cfg.Depot.IsSome() && cfg.DepotAddress == "" {
		errs = append(errs, errors.New("config: DEPOT_LAT/DEPOT_LON or DEPOT_ADDRESS is required"))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseCoordinates(lat, lon string) (domain.Coordinates, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("latitude %q: %w", lat, err)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("longitude %q: %w", lon, err)
	}
	c := domain.Coordinates{Lat: la, Lon: lo}
	if err := c.Validate(); err != nil {
		return domain.Coordinates{}, err
	}
	return c, nil
}
