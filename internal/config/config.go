// Package config builds the explicit application configuration from the
// environment, once, at process start. Components receive it by parameter;
// nothing reads the environment after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// AppConfig is the full configuration surface of the worker.
type AppConfig struct {
	// Pipeline target.
	City         string
	CountryCode  string
	TimezoneName string

	// Expected localized country display names, used as a secondary
	// geocoding ranking signal.
	CountryNames map[string]string

	// External API endpoints.
	GeocodingURL string
	ForecastURL  string
	Language     string
	HTTPTimeout  time.Duration

	// Store.
	StoreDriver     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	MongoTimeout    time.Duration

	// Scheduling and retries.
	ScheduleCron     string
	RunTimeout       time.Duration
	RetryMaxAttempts int
	RetryDelay       time.Duration

	// Ops surface.
	Port string

	// Telemetry.
	Environment      string
	OTLPEndpoint     string
	TelemetryEnabled bool
}

// Load reads configuration from the environment with documented defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		City:         getenvDefault("DEFAULT_CITY", "San Jose"),
		CountryCode:  getenvDefault("DEFAULT_COUNTRY_CODE", "CR"),
		TimezoneName: getenvDefault("DEFAULT_TIMEZONE", "America/Costa_Rica"),

		CountryNames: map[string]string{"CR": "Costa Rica"},

		GeocodingURL: getenvDefault("GEOCODING_URL", "https://geocoding-api.open-meteo.com/v1/search"),
		ForecastURL:  getenvDefault("FORECAST_URL", "https://api.open-meteo.com/v1/forecast"),
		Language:     getenvDefault("GEOCODING_LANGUAGE", "es"),

		StoreDriver:     strings.ToLower(getenvDefault("STORE_DRIVER", StoreDriverMongo)),
		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDatabase:   getenvDefault("DB_NAME", "clima_data"),
		MongoCollection: getenvDefault("COLLECTION_NAME", "clima_data"),

		ScheduleCron: getenvDefault("SCHEDULE_CRON", "0 2 * * *"),

		Port: getenvDefault("APP_PORT", "8080"),

		Environment:      getenvDefault("APP_ENV", "development"),
		OTLPEndpoint:     getenvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled: os.Getenv("OTEL_ENABLED") == "true",
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.MongoTimeout, err = getenvDuration("MONGO_TIMEOUT", 8*time.Second); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getenvDuration("RUN_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = getenvDuration("RETRY_DELAY", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryMaxAttempts, err = getenvInt("RETRY_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.City == "" {
		return fmt.Errorf("DEFAULT_CITY must not be empty")
	}
	if len(c.CountryCode) != 2 {
		return fmt.Errorf("DEFAULT_COUNTRY_CODE must be an ISO 3166-1 alpha-2 code, got %q", c.CountryCode)
	}
	if c.TimezoneName == "" {
		return fmt.Errorf("DEFAULT_TIMEZONE must not be empty")
	}

	switch c.StoreDriver {
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_DRIVER=%s", StoreDriverMongo)
		}
	case StoreDriverMemory:
		// No connection parameters needed.
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts)
	}

	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
