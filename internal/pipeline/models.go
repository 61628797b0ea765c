// Package pipeline implements the hourly weather ETL: staging, cleaning,
// feature derivation and the orchestrated run.
package pipeline

import (
	"context"
	"errors"
	"time"
)

// SourceTag is the provenance tag stamped on every staged record.
const SourceTag = "open-meteo"

// ErrSecurityValidation is returned when the resolved location's country
// disagrees with the requested country code. Persisting weather under the
// wrong location key is worse than failing the run, so this aborts it.
var ErrSecurityValidation = errors.New("resolved location does not match requested country")

// StagingRecord is one raw-but-shaped row per hourly timestamp, pre-cleaning.
// Weather values stay untyped until the transform stage coerces them.
type StagingRecord struct {
	Time               any
	Temperature2M      any
	RelativeHumidity2M any
	Precipitation      any
	WindSpeed10M       any

	LocationName string
	CityInput    string
	CountryCode  string
	Latitude     float64
	Longitude    float64
	TimezoneName string

	Source        string
	IngestedAtUTC time.Time
}

// CuratedRecord is a staging record that passed the quality gate and received
// derived fields. Time and Temperature2M are always set; the other weather
// fields are nil when the source value was missing or not coercible.
type CuratedRecord struct {
	Time               time.Time `bson:"time"`
	Temperature2M      float64   `bson:"temperature_2m"`
	RelativeHumidity2M *float64  `bson:"relative_humidity_2m"`
	Precipitation      *float64  `bson:"precipitation"`
	WindSpeed10M       *float64  `bson:"windspeed_10m"`

	LocationName string  `bson:"location_name"`
	CityInput    string  `bson:"city_input"`
	CountryCode  string  `bson:"country_code"`
	Latitude     float64 `bson:"latitude"`
	Longitude    float64 `bson:"longitude"`
	TimezoneName string  `bson:"timezone_name"`

	Source        string    `bson:"source"`
	IngestedAtUTC time.Time `bson:"ingested_at_utc"`

	IsRain bool   `bson:"is_rain"`
	Date   string `bson:"date"`
	Hour   int    `bson:"hour"`
}

// Key returns the natural key of the persisted document: (location_name, time).
func (r CuratedRecord) Key() string {
	return r.LocationName + "|" + r.Time.Format(time.RFC3339)
}

// UpsertResult summarizes one load: documents matched and updated, documents
// whose content actually changed, and documents newly inserted.
type UpsertResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
	Upserted int64 `json:"upserted"`
}

// Store is the idempotent persistence layer for curated records.
// Upsert with an empty slice must return a zero result without attempting
// a connection.
type Store interface {
	Upsert(ctx context.Context, records []CuratedRecord) (UpsertResult, error)
}
