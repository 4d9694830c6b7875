// Package update runs the batch surfaces: retried price refreshes, analysis
// backfills over the filing tree, and the cron scheduler that drives them.
package update

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"disclosure_pipeline/pkg/core/llm"
)

// Decision tells a batch runner what to do after retries are exhausted for
// one item.
type Decision int

const (
	// Skip records the failure and moves on to the next item.
	Skip Decision = iota
	// Abort stops the whole run.
	Abort
)

// RetryPolicy controls how a transient failure is retried. Delays double
// from BaseDelay: 5s before the second attempt, 10s before the third.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the historical batch behavior: three attempts
// with 5s then 10s between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second}
}

// Retrier runs operations under a RetryPolicy. The sleep function is a
// field so tests can observe delays without waiting them out.
type Retrier struct {
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
	log    zerolog.Logger
}

func NewRetrier(policy RetryPolicy, log zerolog.Logger) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Retrier{
		policy: policy,
		sleep:  sleepCtx,
		log:    log.With().Str("component", "retry").Logger(),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op, retrying on failure until the policy is exhausted. The last
// error is returned wrapped with the attempt count. Rate-limit failures are
// logged at warn level since they indicate pacing, not data problems.
func (r *Retrier) Do(ctx context.Context, label string, op func(ctx context.Context) error) error {
	delay := r.policy.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		event := r.log.Error()
		if llm.IsRateLimit(lastErr) {
			event = r.log.Warn().Bool("rate_limited", true)
		}
		event.Str("op", label).Int("attempt", attempt).Err(lastErr).Msg("attempt failed")

		if attempt == r.policy.MaxAttempts {
			break
		}
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", label, r.policy.MaxAttempts, lastErr)
}
