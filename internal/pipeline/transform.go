package pipeline

import (
	"strconv"
	"time"
)

// Timestamp layouts accepted from the source, tried in order. Open-Meteo
// returns naive local timestamps without seconds.
var timeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Transform coerces staged rows into curated records and applies the sole
// data-quality gate: rows whose time or temperature cannot be coerced are
// dropped, not repaired. Surviving rows keep their input order and gain the
// derived is_rain, date and hour fields.
func Transform(staged []StagingRecord) []CuratedRecord {
	curated := make([]CuratedRecord, 0, len(staged))

	for _, row := range staged {
		ts, ok := coerceTime(row.Time)
		if !ok {
			continue
		}

		temp := coerceFloat(row.Temperature2M)
		if temp == nil {
			continue
		}

		precip := coerceFloat(row.Precipitation)

		// Missing precipitation counts as 0 for the rain flag only; the
		// stored field stays null.
		rain := precip != nil && *precip > 0

		curated = append(curated, CuratedRecord{
			Time:               ts,
			Temperature2M:      *temp,
			RelativeHumidity2M: coerceFloat(row.RelativeHumidity2M),
			Precipitation:      precip,
			WindSpeed10M:       coerceFloat(row.WindSpeed10M),

			LocationName: row.LocationName,
			CityInput:    row.CityInput,
			CountryCode:  row.CountryCode,
			Latitude:     row.Latitude,
			Longitude:    row.Longitude,
			TimezoneName: row.TimezoneName,

			Source:        row.Source,
			IngestedAtUTC: row.IngestedAtUTC,

			IsRain: rain,
			Date:   ts.Format("2006-01-02"),
			Hour:   ts.Hour(),
		})
	}

	return curated
}

// coerceTime parses the source timestamp. Coercion failure means the row is
// dropped by the caller.
func coerceTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// coerceFloat coerces a raw value to a number, returning nil instead of
// raising on failure.
func coerceFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return &f
		}
	}
	return nil
}
