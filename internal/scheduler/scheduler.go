// Package scheduler drives the periodic pipeline run.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/climafeed/climafeed/internal/pipeline"
)

// Runner is the pipeline entry point the scheduler invokes.
type Runner interface {
	Run(ctx context.Context, city, countryCode, timezoneName string) (pipeline.RunSummary, error)
}

// Config holds scheduler configuration.
type Config struct {
	// CronExpr is the schedule in standard five-field cron syntax,
	// evaluated in UTC.
	CronExpr string

	// City, CountryCode and TimezoneName identify the single tracked
	// location.
	City         string
	CountryCode  string
	TimezoneName string

	// RunTimeout bounds one pipeline run. Default: 5 minutes.
	RunTimeout time.Duration

	// Runner executes the pipeline (required).
	Runner Runner

	// Logger for scheduler events.
	Logger zerolog.Logger
}

// Scheduler invokes the pipeline on a cron schedule and remembers the most
// recent run for the ops surface. Overlapping runs for the same city are
// not prevented here; the store's upsert key keeps them harmless.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cfg       Config
	logger    zerolog.Logger

	mu      sync.RWMutex
	lastRun *pipeline.RunSummary
	lastErr error
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.RunTimeout == 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		cfg:       cfg,
		logger:    cfg.Logger,
	}
}

// Start registers the cron job and starts the scheduler asynchronously.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Cron(s.cfg.CronExpr).Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info().
		Str("cron", s.cfg.CronExpr).
		Str("city", s.cfg.City).
		Msg("scheduler started")
	return nil
}

// Stop stops the scheduler and discards future jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunOnce executes one bounded pipeline run and records its outcome.
// Also used directly by the -once CLI path.
func (s *Scheduler) RunOnce(ctx context.Context) (pipeline.RunSummary, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	summary, err := s.cfg.Runner.Run(runCtx, s.cfg.City, s.cfg.CountryCode, s.cfg.TimezoneName)

	s.mu.Lock()
	s.lastRun = &summary
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled pipeline run failed")
	}
	return summary, err
}

// RunStatus is the recorded outcome of the most recent run.
type RunStatus struct {
	Summary pipeline.RunSummary `json:"summary"`
	Error   string              `json:"error,omitempty"`
}

// LastRun returns the most recent run outcome, if any run has happened yet.
func (s *Scheduler) LastRun() (RunStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return RunStatus{}, false
	}
	status := RunStatus{Summary: *s.lastRun}
	if s.lastErr != nil {
		status.Error = s.lastErr.Error()
	}
	return status, true
}
