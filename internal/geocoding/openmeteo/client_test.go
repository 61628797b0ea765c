package openmeteo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climafeed/climafeed/internal/geocoding"
	"github.com/climafeed/climafeed/internal/provider/resilience"
)

func newTestClient(serverURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:    serverURL,
		HTTPClient: resilience.NewClient(resilience.ClientConfig{Name: "test", MaxRetries: 1}),
	})
}

func TestSearch_QueryParameters(t *testing.T) {
	var gotQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"name":         r.URL.Query().Get("name"),
			"count":        r.URL.Query().Get("count"),
			"language":     r.URL.Query().Get("language"),
			"format":       r.URL.Query().Get("format"),
			"country_code": r.URL.Query().Get("country_code"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "San Jose", "CR")
	require.NoError(t, err)

	assert.Equal(t, "San Jose", gotQuery["name"])
	assert.Equal(t, "10", gotQuery["count"])
	assert.Equal(t, "es", gotQuery["language"])
	assert.Equal(t, "json", gotQuery["format"])
	assert.Equal(t, "CR", gotQuery["country_code"])
}

func TestSearch_DecodesCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"name":"San José","latitude":9.93274,"longitude":-84.08705,"country":"Costa Rica","country_code":"CR","admin1":"San José"},
			{"name":"San Jose","latitude":37.34,"longitude":-121.89,"country":"United States","country_code":"US","admin1":"California"}
		]}`))
	}))
	defer server.Close()

	candidates, err := newTestClient(server.URL).Search(context.Background(), "San Jose", "CR")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, geocoding.Candidate{
		Name:        "San José",
		Latitude:    9.93274,
		Longitude:   -84.08705,
		Country:     "Costa Rica",
		CountryCode: "CR",
		Admin1:      "San José",
	}, candidates[0])
	assert.Equal(t, "US", candidates[1].CountryCode)
}

func TestSearch_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Open-Meteo omits the results key entirely when nothing matches.
		w.Write([]byte(`{"generationtime_ms":0.5}`))
	}))
	defer server.Close()

	candidates, err := newTestClient(server.URL).Search(context.Background(), "Nowhere", "CR")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSearch_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "San Jose", "CR")
	require.Error(t, err)

	var le *geocoding.LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ProviderName, le.Provider)
	assert.True(t, le.Retryable())
}

func TestSearch_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "San Jose", "CR")
	require.Error(t, err)

	var le *geocoding.LookupError
	assert.ErrorAs(t, err, &le)
}
