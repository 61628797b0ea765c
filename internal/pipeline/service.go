package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/climafeed/climafeed/internal/forecast"
	"github.com/climafeed/climafeed/internal/geocoding"
)

const meterName = "github.com/climafeed/climafeed/internal/pipeline"

// LocationResolver resolves a city/country pair into a validated location.
type LocationResolver interface {
	Resolve(ctx context.Context, city, countryCode string) (geocoding.Location, error)
}

// ServiceConfig holds the collaborators of the orchestrator.
type ServiceConfig struct {
	// Resolver turns the configured city into coordinates (required).
	Resolver LocationResolver

	// Fetcher retrieves the raw hourly forecast (required).
	Fetcher forecast.Fetcher

	// Store persists curated records idempotently (required).
	Store Store

	// Retry is applied around the transient-prone stages.
	// Zero value means no retries.
	Retry RetryPolicy

	// Variables overrides the default hourly variable set (optional).
	Variables []string

	// Logger for run progress.
	Logger zerolog.Logger
}

// Service sequences resolve, fetch, stage, transform and load for one city.
// A run either persists the full curated batch or persists nothing.
type Service struct {
	resolver  LocationResolver
	fetcher   forecast.Fetcher
	store     Store
	retry     RetryPolicy
	variables []string
	logger    zerolog.Logger

	runsTotal   metric.Int64Counter
	runDuration metric.Float64Histogram
	rowsLoaded  metric.Int64Counter
}

// RunSummary is the result surfaced to the invoking scheduler or CLI.
type RunSummary struct {
	RunID       string             `json:"run_id"`
	Location    geocoding.Location `json:"location"`
	StagedRows  int                `json:"staged_rows"`
	CuratedRows int                `json:"curated_rows"`
	DroppedRows int                `json:"dropped_rows"`
	Result      UpsertResult       `json:"result"`
	StartedAt   time.Time          `json:"started_at"`
	Duration    time.Duration      `json:"duration"`
}

// NewService creates the pipeline orchestrator.
func NewService(cfg ServiceConfig) (*Service, error) {
	meter := otel.Meter(meterName)

	runsTotal, err := meter.Int64Counter(
		"pipeline.runs.total",
		metric.WithDescription("Total number of pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"pipeline.run.duration",
		metric.WithDescription("Duration of pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rowsLoaded, err := meter.Int64Counter(
		"pipeline.rows.loaded",
		metric.WithDescription("Curated rows handed to the store"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	variables := cfg.Variables
	if len(variables) == 0 {
		variables = forecast.DefaultHourlyVariables
	}

	return &Service{
		resolver:    cfg.Resolver,
		fetcher:     cfg.Fetcher,
		store:       cfg.Store,
		retry:       cfg.Retry,
		variables:   variables,
		logger:      cfg.Logger,
		runsTotal:   runsTotal,
		runDuration: runDuration,
		rowsLoaded:  rowsLoaded,
	}, nil
}

// Run executes one full pipeline pass for the given city. Any stage failure
// aborts the run before the store is touched; there are no partial loads.
func (s *Service) Run(ctx context.Context, city, countryCode, timezoneName string) (RunSummary, error) {
	summary := RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	logger := s.logger.With().Str("run_id", summary.RunID).Logger()
	logger.Info().
		Str("city", city).
		Str("country_code", countryCode).
		Str("timezone", timezoneName).
		Msg("pipeline run started")

	err := s.run(ctx, &summary, logger, city, countryCode, timezoneName)
	summary.Duration = time.Since(summary.StartedAt)

	status := "ok"
	if err != nil {
		status = "error"
		logger.Error().Err(err).Dur("duration", summary.Duration).Msg("pipeline run failed")
	} else {
		logger.Info().
			Dur("duration", summary.Duration).
			Int64("matched", summary.Result.Matched).
			Int64("modified", summary.Result.Modified).
			Int64("upserted", summary.Result.Upserted).
			Msg("pipeline run completed")
	}

	attrs := metric.WithAttributes(attribute.String("status", status))
	s.runsTotal.Add(ctx, 1, attrs)
	s.runDuration.Record(ctx, summary.Duration.Seconds(), attrs)

	return summary, err
}

func (s *Service) run(ctx context.Context, summary *RunSummary, logger zerolog.Logger, city, countryCode, timezoneName string) error {
	// 1) Resolve. Only transport faults qualify for retry; NotFound and
	// Ambiguous outcomes surface immediately.
	var loc geocoding.Location
	err := s.retry.Execute(ctx, func() error {
		var resolveErr error
		loc, resolveErr = s.resolver.Resolve(ctx, city, countryCode)
		return resolveErr
	})
	if err != nil {
		return fmt.Errorf("resolving location: %w", err)
	}

	// 2) Re-validate the resolver's output against the caller's intent.
	// Redundant with the resolver's own filter, kept because both are
	// usable independently.
	if !strings.EqualFold(loc.CountryCode, countryCode) {
		return fmt.Errorf("%w: requested %s, resolved %s",
			ErrSecurityValidation, countryCode, loc.CountryCode)
	}
	summary.Location = loc

	// 3) Fetch the raw hourly forecast.
	var raw *forecast.HourlyForecast
	err = s.retry.Execute(ctx, func() error {
		var fetchErr error
		raw, fetchErr = s.fetcher.FetchHourly(ctx, loc.Latitude, loc.Longitude, timezoneName, s.variables)
		return fetchErr
	})
	if err != nil {
		return fmt.Errorf("fetching forecast: %w", err)
	}

	// 4) Stage and 5) transform, both pure.
	staged := BuildStaging(raw, loc, timezoneName)
	summary.StagedRows = len(staged)

	curated := Transform(staged)
	summary.CuratedRows = len(curated)
	summary.DroppedRows = len(staged) - len(curated)

	logger.Info().
		Int("staged", summary.StagedRows).
		Int("curated", summary.CuratedRows).
		Int("dropped", summary.DroppedRows).
		Msg("forecast staged and transformed")

	// 6) Load. The upsert key makes a retried batch harmless.
	err = s.retry.Execute(ctx, func() error {
		var storeErr error
		summary.Result, storeErr = s.store.Upsert(ctx, curated)
		return storeErr
	})
	if err != nil {
		return fmt.Errorf("loading curated records: %w", err)
	}

	s.rowsLoaded.Add(ctx, int64(summary.CuratedRows))
	return nil
}
