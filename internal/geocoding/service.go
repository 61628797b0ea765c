package geocoding

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Candidate scoring weights: country code dominates, localized country
// name refines, admin1 breaks near-ties toward more specific places.
const (
	scoreCountryCode = 10
	scoreCountryName = 5
	scoreAdmin1      = 1
)

// ResolverConfig holds configuration for the Resolver.
type ResolverConfig struct {
	// Provider is the geocoding backend (required).
	Provider Provider

	// CountryNames maps upper-case ISO country codes to the expected
	// localized display name, e.g. "CR" -> "Costa Rica". Optional; used
	// only as a secondary ranking signal.
	CountryNames map[string]string

	// Logger for resolver operations.
	Logger zerolog.Logger
}

// Resolver turns (city, country code) into a single validated Location.
type Resolver struct {
	provider     Provider
	countryNames map[string]string
	logger       zerolog.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	return &Resolver{
		provider:     cfg.Provider,
		countryNames: cfg.CountryNames,
		logger:       cfg.Logger,
	}
}

// Resolve looks up the city and selects a single candidate inside the
// requested country. Candidates outside the country are never selected,
// regardless of name similarity; resolving a forecast for the wrong country
// is considered worse than failing the run.
func (r *Resolver) Resolve(ctx context.Context, city, countryCode string) (Location, error) {
	candidates, err := r.provider.Search(ctx, city, countryCode)
	if err != nil {
		return Location{}, err
	}

	if len(candidates) == 0 {
		return Location{}, newNotFound(city, countryCode)
	}

	matching := filterByCountry(candidates, countryCode)
	if len(matching) == 0 {
		top := candidates[0]
		r.logger.Warn().
			Str("city", city).
			Str("requested_country", countryCode).
			Str("top_name", top.Name).
			Str("top_country", top.CountryCode).
			Msg("geocoding returned no candidate in requested country")
		return Location{}, newAmbiguous(city, countryCode)
	}

	chosen := r.pick(matching, countryCode)

	loc := Location{
		CityInput:    city,
		CountryCode:  chosen.CountryCode,
		LocationName: composeName(chosen),
		Latitude:     chosen.Latitude,
		Longitude:    chosen.Longitude,
	}

	r.logger.Info().
		Str("city", city).
		Str("location", loc.LocationName).
		Float64("lat", loc.Latitude).
		Float64("lon", loc.Longitude).
		Msg("location resolved")

	return loc, nil
}

// filterByCountry keeps only candidates whose country code matches the
// request, case-insensitively, preserving the original order.
func filterByCountry(candidates []Candidate, countryCode string) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if strings.EqualFold(c.CountryCode, countryCode) {
			out = append(out, c)
		}
	}
	return out
}

// pick returns the highest-scoring candidate. Ties keep the provider's
// original ordering (first max wins).
func (r *Resolver) pick(matching []Candidate, countryCode string) Candidate {
	best := matching[0]
	bestScore := r.score(best, countryCode)
	for _, c := range matching[1:] {
		if s := r.score(c, countryCode); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

func (r *Resolver) score(c Candidate, countryCode string) int {
	s := 0
	if strings.EqualFold(c.CountryCode, countryCode) {
		s += scoreCountryCode
	}
	if want, ok := r.countryNames[strings.ToUpper(countryCode)]; ok {
		if strings.EqualFold(strings.TrimSpace(c.Country), want) {
			s += scoreCountryName
		}
	}
	if c.Admin1 != "" {
		s += scoreAdmin1
	}
	return s
}

// composeName joins the non-empty name, admin region and country.
func composeName(c Candidate) string {
	var parts []string
	for _, p := range []string{c.Name, c.Admin1, c.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func newNotFound(city, countryCode string) error {
	return &resolveError{err: ErrNotFound, city: city, countryCode: countryCode}
}

func newAmbiguous(city, countryCode string) error {
	return &resolveError{err: ErrAmbiguousLocation, city: city, countryCode: countryCode}
}

// resolveError attaches request context to a sentinel resolution error.
type resolveError struct {
	err         error
	city        string
	countryCode string
}

func (e *resolveError) Error() string {
	return e.err.Error() + " for city=" + e.city + " country_code=" + e.countryCode
}

func (e *resolveError) Unwrap() error { return e.err }

// IsResolutionFailure reports whether err is a non-retryable resolution
// outcome rather than a transport fault.
func IsResolutionFailure(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAmbiguousLocation)
}
