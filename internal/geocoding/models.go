// Package geocoding resolves free-text city names into trusted coordinates.
package geocoding

import (
	"context"
	"errors"
	"fmt"
)

// Geocoding errors.
var (
	// ErrNotFound is returned when the geocoding lookup yields no candidates at all.
	ErrNotFound = errors.New("no geocoding results")

	// ErrAmbiguousLocation is returned when candidates exist but none match the
	// requested country code. The resolver never falls back to a foreign match.
	ErrAmbiguousLocation = errors.New("no geocoding candidate matches requested country")
)

// Location is the resolved, validated place a forecast is fetched for.
// CountryCode is the provider's value and may differ from the request in case only.
type Location struct {
	CityInput    string
	CountryCode  string
	LocationName string
	Latitude     float64
	Longitude    float64
}

// Candidate is a single geocoding match as returned by a provider,
// in the provider's original ranking order.
type Candidate struct {
	Name        string
	Latitude    float64
	Longitude   float64
	Country     string
	CountryCode string
	Admin1      string
}

// Provider abstracts a geocoding backend.
type Provider interface {
	// Search returns up to the provider's candidate limit for the given name,
	// in the provider's original order. An empty result is not an error.
	Search(ctx context.Context, name, countryCode string) ([]Candidate, error)

	// Name returns the provider name for logging.
	Name() string
}

// LookupError represents a transport-level failure reaching the geocoding
// service. It is retryable; ErrNotFound and ErrAmbiguousLocation are not.
type LookupError struct {
	Provider string
	Err      error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("geocoding lookup via %s: %v", e.Provider, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Retryable marks lookup failures as transient.
func (e *LookupError) Retryable() bool { return true }
