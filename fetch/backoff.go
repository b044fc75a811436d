package fetch

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry policy defaults, matching the behavior the supported sources are
// known to tolerate. The delay is deliberately fixed rather than exponential:
// the sources' rate-limit window is constant, and a longer wait buys nothing.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 3500 * time.Millisecond
)

// RetryPolicy holds the fixed-delay retry settings applied to one unit of
// work (a batch of pages or a bulk call).
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	Delay       time.Duration // constant wait between attempts
}

// DefaultRetryPolicy returns the policy observed to work against the
// supported sources.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultRetryDelay,
	}
}

// Retry runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget is exhausted. Only rate-limit signals are retried; every
// other error kind is permanent for this unit of work. The wait between
// attempts honors ctx, so cancelling the job unblocks a pending delay
// immediately.
func (p RetryPolicy) Retry(ctx context.Context, label string, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(p.MaxAttempts-1)),
		ctx,
	)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++

		err := op()
		if err == nil {
			if attempt > 1 {
				log.Printf("[Backoff] ✓ %s succeeded on attempt %d/%d", label, attempt, p.MaxAttempts)
			}
			return nil
		}

		if _, ok := IsRateLimited(err); ok {
			log.Printf("[Backoff] %s rate limited (attempt %d/%d), waiting %v", label, attempt, p.MaxAttempts, p.Delay)
			return err
		}

		// Anything that is not a rate limit is not worth retrying here
		return backoff.Permanent(err)
	}, policy)
}
