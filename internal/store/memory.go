package store

import (
	"context"
	"sync"

	"github.com/climafeed/climafeed/internal/pipeline"
)

// MemoryStore is a concurrency-safe in-memory implementation of
// pipeline.Store with the same counting semantics as the Mongo store:
// modified counts only documents whose content actually changed. Used in
// tests and for local runs without a database.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]pipeline.CuratedRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]pipeline.CuratedRecord)}
}

// Upsert replaces or inserts each record keyed by (location_name, time).
func (s *MemoryStore) Upsert(_ context.Context, records []pipeline.CuratedRecord) (pipeline.UpsertResult, error) {
	if len(records) == 0 {
		return pipeline.UpsertResult{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result pipeline.UpsertResult
	for _, r := range records {
		key := r.Key()
		existing, ok := s.docs[key]
		if !ok {
			result.Upserted++
		} else {
			result.Matched++
			if !recordsEqual(existing, r) {
				result.Modified++
			}
		}
		s.docs[key] = r
	}

	return result, nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Get returns the stored document for a key, if present.
func (s *MemoryStore) Get(key string) (pipeline.CuratedRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.docs[key]
	return r, ok
}

// recordsEqual compares records by value, dereferencing the nullable fields.
func recordsEqual(a, b pipeline.CuratedRecord) bool {
	return a.Time.Equal(b.Time) &&
		a.Temperature2M == b.Temperature2M &&
		floatPtrEqual(a.RelativeHumidity2M, b.RelativeHumidity2M) &&
		floatPtrEqual(a.Precipitation, b.Precipitation) &&
		floatPtrEqual(a.WindSpeed10M, b.WindSpeed10M) &&
		a.LocationName == b.LocationName &&
		a.CityInput == b.CityInput &&
		a.CountryCode == b.CountryCode &&
		a.Latitude == b.Latitude &&
		a.Longitude == b.Longitude &&
		a.TimezoneName == b.TimezoneName &&
		a.Source == b.Source &&
		a.IngestedAtUTC.Equal(b.IngestedAtUTC) &&
		a.IsRain == b.IsRain &&
		a.Date == b.Date &&
		a.Hour == b.Hour
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
