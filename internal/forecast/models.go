// Package forecast fetches raw hourly forecast data for a coordinate pair.
package forecast

import (
	"context"
	"fmt"
	"time"
)

// DefaultHourlyVariables is the default set of hourly variables requested
// from the forecast service.
var DefaultHourlyVariables = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"precipitation",
	"windspeed_10m",
}

// HourlyForecast is the raw forecast payload: parallel arrays keyed by
// variable name, aligned by index. Values are kept untyped so that nulls and
// malformed entries survive to the transform stage, which owns coercion.
type HourlyForecast struct {
	Latitude  float64
	Longitude float64
	Timezone  string

	// Hourly holds one array per requested variable plus "time".
	Hourly map[string][]any

	FetchedAt time.Time
}

// Fetcher abstracts a forecast backend.
type Fetcher interface {
	// FetchHourly retrieves hourly data for the given coordinates, IANA
	// timezone and variable names.
	FetchHourly(ctx context.Context, lat, lon float64, timezoneName string, variables []string) (*HourlyForecast, error)

	// Name returns the provider name for logging.
	Name() string
}

// FetchError represents a network or HTTP failure reaching the forecast
// service. It is retryable at the orchestrator level.
type FetchError struct {
	Provider string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("forecast fetch via %s: %v", e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable marks fetch failures as transient.
func (e *FetchError) Retryable() bool { return true }
