package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climafeed/climafeed/internal/pipeline"
	"github.com/climafeed/climafeed/internal/scheduler"
)

type fakeRunner struct {
	summary pipeline.RunSummary
	err     error

	gotCity     string
	gotCountry  string
	gotTimezone string
	gotDeadline bool
}

func (f *fakeRunner) Run(ctx context.Context, city, countryCode, timezoneName string) (pipeline.RunSummary, error) {
	f.gotCity = city
	f.gotCountry = countryCode
	f.gotTimezone = timezoneName
	_, f.gotDeadline = ctx.Deadline()
	return f.summary, f.err
}

func newScheduler(runner *fakeRunner) *scheduler.Scheduler {
	return scheduler.New(scheduler.Config{
		CronExpr:     "0 2 * * *",
		City:         "San Jose",
		CountryCode:  "CR",
		TimezoneName: "America/Costa_Rica",
		RunTimeout:   time.Second,
		Runner:       runner,
		Logger:       zerolog.Nop(),
	})
}

func TestRunOnce_PassesConfiguredLocation(t *testing.T) {
	runner := &fakeRunner{summary: pipeline.RunSummary{RunID: "run-1"}}
	s := newScheduler(runner)

	summary, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, "San Jose", runner.gotCity)
	assert.Equal(t, "CR", runner.gotCountry)
	assert.Equal(t, "America/Costa_Rica", runner.gotTimezone)
	assert.True(t, runner.gotDeadline, "runs are bounded by the run timeout")
}

func TestLastRun_EmptyBeforeFirstRun(t *testing.T) {
	s := newScheduler(&fakeRunner{})

	_, ok := s.LastRun()
	assert.False(t, ok)
}

func TestLastRun_RecordsOutcome(t *testing.T) {
	runner := &fakeRunner{summary: pipeline.RunSummary{
		RunID:  "run-2",
		Result: pipeline.UpsertResult{Upserted: 24},
	}}
	s := newScheduler(runner)

	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	status, ok := s.LastRun()
	require.True(t, ok)
	assert.Equal(t, "run-2", status.Summary.RunID)
	assert.Equal(t, int64(24), status.Summary.Result.Upserted)
	assert.Empty(t, status.Error)
}

func TestLastRun_RecordsFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("forecast provider down")}
	s := newScheduler(runner)

	_, err := s.RunOnce(context.Background())
	require.Error(t, err)

	status, ok := s.LastRun()
	require.True(t, ok)
	assert.Equal(t, "forecast provider down", status.Error)
}

func TestStartAndStop(t *testing.T) {
	s := newScheduler(&fakeRunner{})

	require.NoError(t, s.Start())
	s.Stop()
}

func TestStart_RejectsBadCronExpr(t *testing.T) {
	s := scheduler.New(scheduler.Config{
		CronExpr: "not a cron expression",
		Runner:   &fakeRunner{},
		Logger:   zerolog.Nop(),
	})

	assert.Error(t, s.Start())
}
