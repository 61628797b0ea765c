package openmeteo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climafeed/climafeed/internal/forecast"
	"github.com/climafeed/climafeed/internal/provider/resilience"
)

func newTestClient(serverURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:    serverURL,
		HTTPClient: resilience.NewClient(resilience.ClientConfig{Name: "test", MaxRetries: 1}),
	})
}

func TestFetchHourly_QueryParameters(t *testing.T) {
	var gotQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"latitude":  r.URL.Query().Get("latitude"),
			"longitude": r.URL.Query().Get("longitude"),
			"hourly":    r.URL.Query().Get("hourly"),
			"timezone":  r.URL.Query().Get("timezone"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"latitude":9.93,"longitude":-84.08,"timezone":"America/Costa_Rica","hourly":{}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchHourly(context.Background(), 9.93274, -84.08705, "America/Costa_Rica", nil)
	require.NoError(t, err)

	assert.Equal(t, "9.93274", gotQuery["latitude"])
	assert.Equal(t, "-84.08705", gotQuery["longitude"])
	assert.Equal(t, "temperature_2m,relative_humidity_2m,precipitation,windspeed_10m", gotQuery["hourly"])
	assert.Equal(t, "America/Costa_Rica", gotQuery["timezone"])
}

func TestFetchHourly_NullEntriesSurvive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"latitude": 9.93,
			"longitude": -84.08,
			"timezone": "America/Costa_Rica",
			"hourly": {
				"time": ["2026-01-15T00:00", "2026-01-15T01:00"],
				"temperature_2m": [19.4, null],
				"precipitation": [null, 0.3]
			}
		}`))
	}))
	defer server.Close()

	hf, err := newTestClient(server.URL).FetchHourly(context.Background(), 9.93, -84.08, "America/Costa_Rica", nil)
	require.NoError(t, err)

	require.Len(t, hf.Hourly["time"], 2)
	assert.Equal(t, 19.4, hf.Hourly["temperature_2m"][0])
	assert.Nil(t, hf.Hourly["temperature_2m"][1])
	assert.Nil(t, hf.Hourly["precipitation"][0])
	assert.Equal(t, 0.3, hf.Hourly["precipitation"][1])
	assert.False(t, hf.FetchedAt.IsZero())
}

func TestFetchHourly_MissingHourlyBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"latitude":9.93,"longitude":-84.08,"timezone":"America/Costa_Rica"}`))
	}))
	defer server.Close()

	hf, err := newTestClient(server.URL).FetchHourly(context.Background(), 9.93, -84.08, "America/Costa_Rica", nil)
	require.NoError(t, err)
	assert.NotNil(t, hf.Hourly)
	assert.Empty(t, hf.Hourly)
}

func TestFetchHourly_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchHourly(context.Background(), 9.93, -84.08, "America/Costa_Rica", nil)
	require.Error(t, err)

	var fe *forecast.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ProviderName, fe.Provider)
	assert.True(t, fe.Retryable())
}

func TestFetchHourly_CustomVariables(t *testing.T) {
	var gotHourly string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHourly = r.URL.Query().Get("hourly")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hourly":{}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchHourly(context.Background(), 9.93, -84.08, "UTC", []string{"temperature_2m"})
	require.NoError(t, err)
	assert.Equal(t, "temperature_2m", gotHourly)
}
