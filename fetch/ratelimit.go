package fetch

import (
	"time"
)

// RateLimiter spaces out sequential operations by a fixed interval. The
// unknown-total paginated walk uses it between page requests so a long
// catalog does not hammer the source.
type RateLimiter struct {
	ticker   *time.Ticker
	interval time.Duration
}

// NewRateLimiter creates a rate limiter with the specified interval.
//
// Example usage:
//
//	limiter := fetch.NewRateLimiter(750 * time.Millisecond)
//	defer limiter.Stop()
//
//	for page := 1; ; page++ {
//	    limiter.Wait()
//	    // ... fetch page ...
//	}
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		ticker:   time.NewTicker(interval),
		interval: interval,
	}
}

// Wait blocks until the next tick occurs.
func (rl *RateLimiter) Wait() {
	<-rl.ticker.C
}

// Stop stops the rate limiter and releases resources.
// Typically used with defer: defer limiter.Stop()
func (rl *RateLimiter) Stop() {
	rl.ticker.Stop()
}

// GetInterval returns the configured interval for this rate limiter.
func (rl *RateLimiter) GetInterval() time.Duration {
	return rl.interval
}
