package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is an explicit stage-level retry policy applied by the
// orchestrator around calls whose failures are plausibly transient. The
// stages themselves stay pure and retry-free.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// DefaultRetryPolicy mirrors the scheduler defaults: one initial attempt
// plus two retries, 30 seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 30 * time.Second}
}

// Execute runs op, retrying only errors classified as transient by
// Retryable. Request/config failures surface immediately.
func (p RetryPolicy) Execute(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1)),
		ctx,
	)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}

// Retryable reports whether the error belongs to a transient class (network
// or store faults). Resolution and validation failures indicate a request or
// configuration problem and are never retried.
func Retryable(err error) bool {
	var t interface{ Retryable() bool }
	if errors.As(err, &t) {
		return t.Retryable()
	}
	return false
}
