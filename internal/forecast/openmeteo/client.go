// Package openmeteo implements the forecast.Fetcher interface against the
// Open-Meteo forecast API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/climafeed/climafeed/internal/forecast"
	"github.com/climafeed/climafeed/internal/provider/resilience"
)

const (
	// ProviderName identifies this forecast provider.
	ProviderName = "openmeteo"

	// DefaultBaseURL is the Open-Meteo forecast endpoint.
	DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"
)

// ClientConfig holds configuration for the forecast client.
type ClientConfig struct {
	// BaseURL is the forecast endpoint (optional, defaults to Open-Meteo).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an Open-Meteo forecast API client.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new forecast client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchHourly retrieves the hourly forecast for the given coordinates.
// Variables are joined into a comma-separated list; timestamps come back in
// the given IANA timezone as naive local strings.
func (c *Client) FetchHourly(ctx context.Context, lat, lon float64, timezoneName string, variables []string) (*forecast.HourlyForecast, error) {
	if len(variables) == 0 {
		variables = forecast.DefaultHourlyVariables
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("hourly", strings.Join(variables, ","))
	q.Set("timezone", timezoneName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &forecast.FetchError{Provider: ProviderName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &forecast.FetchError{
			Provider: ProviderName,
			Err:      fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &forecast.FetchError{Provider: ProviderName, Err: fmt.Errorf("decoding response: %w", err)}
	}

	hourly := payload.Hourly
	if hourly == nil {
		hourly = map[string][]any{}
	}

	c.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Int("hours", len(hourly["time"])).
		Msg("hourly forecast fetched")

	return &forecast.HourlyForecast{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Timezone:  payload.Timezone,
		Hourly:    hourly,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Open-Meteo forecast API response structure. Hourly arrays stay untyped so
// null entries decode to nil instead of failing the whole payload.

type forecastResponse struct {
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	Timezone  string           `json:"timezone"`
	Hourly    map[string][]any `json:"hourly"`
}
