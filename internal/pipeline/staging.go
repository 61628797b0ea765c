package pipeline

import (
	"time"

	"github.com/climafeed/climafeed/internal/forecast"
	"github.com/climafeed/climafeed/internal/geocoding"
)

// timeNow is swapped out in tests to pin the ingestion timestamp.
var timeNow = time.Now

// Hourly variable names expected in the raw payload.
const (
	varTime          = "time"
	varTemperature   = "temperature_2m"
	varHumidity      = "relative_humidity_2m"
	varPrecipitation = "precipitation"
	varWindSpeed     = "windspeed_10m"
)

// BuildStaging zips the raw parallel arrays into one record per hourly
// timestamp, denormalizing the location and provenance onto every row.
// The row count follows the time array; a missing time array yields zero
// rows, and shorter value arrays pad with nil at the tail. The ingestion
// timestamp is captured once per build, not per row.
func BuildStaging(raw *forecast.HourlyForecast, loc geocoding.Location, timezoneName string) []StagingRecord {
	if raw == nil || raw.Hourly == nil {
		return nil
	}

	times := raw.Hourly[varTime]
	if len(times) == 0 {
		return nil
	}

	temps := raw.Hourly[varTemperature]
	humidity := raw.Hourly[varHumidity]
	precip := raw.Hourly[varPrecipitation]
	wind := raw.Hourly[varWindSpeed]

	ingestedAt := timeNow().UTC()

	records := make([]StagingRecord, 0, len(times))
	for i := range times {
		records = append(records, StagingRecord{
			Time:               times[i],
			Temperature2M:      valueAt(temps, i),
			RelativeHumidity2M: valueAt(humidity, i),
			Precipitation:      valueAt(precip, i),
			WindSpeed10M:       valueAt(wind, i),

			LocationName: loc.LocationName,
			CityInput:    loc.CityInput,
			CountryCode:  loc.CountryCode,
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
			TimezoneName: timezoneName,

			Source:        SourceTag,
			IngestedAtUTC: ingestedAt,
		})
	}

	return records
}

func valueAt(arr []any, i int) any {
	if i >= len(arr) {
		return nil
	}
	return arr[i]
}
