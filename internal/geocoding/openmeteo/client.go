// Package openmeteo implements the geocoding.Provider interface against the
// Open-Meteo geocoding API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/climafeed/climafeed/internal/geocoding"
	"github.com/climafeed/climafeed/internal/provider/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "openmeteo-geocoding"

	// DefaultBaseURL is the Open-Meteo geocoding search endpoint.
	DefaultBaseURL = "https://geocoding-api.open-meteo.com/v1/search"

	// DefaultLanguage localizes candidate display names.
	DefaultLanguage = "es"

	// DefaultCount is the number of candidates requested per search.
	DefaultCount = 10
)

// ClientConfig holds configuration for the geocoding client.
type ClientConfig struct {
	// BaseURL is the search endpoint (optional, defaults to Open-Meteo).
	BaseURL string

	// Language localizes candidate display names (optional, defaults to "es").
	Language string

	// Count is the number of candidates to request (optional, defaults to 10).
	Count int

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an Open-Meteo geocoding API client.
type Client struct {
	baseURL    string
	language   string
	count      int
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new geocoding client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	language := cfg.Language
	if language == "" {
		language = DefaultLanguage
	}

	count := cfg.Count
	if count == 0 {
		count = DefaultCount
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    baseURL,
		language:   language,
		count:      count,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Search queries the geocoding endpoint for candidates matching name,
// passing the country code through as a server-side hint. An empty result
// set is returned as a nil slice, not an error.
func (c *Client) Search(ctx context.Context, name, countryCode string) ([]geocoding.Candidate, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("count", strconv.Itoa(c.count))
	q.Set("language", c.language)
	q.Set("format", "json")
	q.Set("country_code", countryCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &geocoding.LookupError{Provider: ProviderName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &geocoding.LookupError{
			Provider: ProviderName,
			Err:      fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &geocoding.LookupError{Provider: ProviderName, Err: fmt.Errorf("decoding response: %w", err)}
	}

	candidates := make([]geocoding.Candidate, 0, len(payload.Results))
	for _, r := range payload.Results {
		candidates = append(candidates, geocoding.Candidate{
			Name:        r.Name,
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			Country:     r.Country,
			CountryCode: r.CountryCode,
			Admin1:      r.Admin1,
		})
	}

	return candidates, nil
}

// Open-Meteo geocoding API response structure.

type searchResponse struct {
	Results []struct {
		Name        string  `json:"name"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		Country     string  `json:"country"`
		CountryCode string  `json:"country_code"`
		Admin1      string  `json:"admin1"`
	} `json:"results"`
}
