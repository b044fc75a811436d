package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPolicy keeps delays tiny so the retry tests stay fast
func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Millisecond}
}

func TestRetryPolicy(t *testing.T) {
	t.Run("succeeds without retrying", func(t *testing.T) {
		attempts := 0
		err := testPolicy().Retry(context.Background(), "op", func() error {
			attempts++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries rate limits up to the attempt budget", func(t *testing.T) {
		attempts := 0
		err := testPolicy().Retry(context.Background(), "op", func() error {
			attempts++
			return &RateLimitedError{URL: "https://example.com/list", StatusCode: 200}
		})

		require.Error(t, err)
		assert.Equal(t, 3, attempts)
		_, ok := IsRateLimited(err)
		assert.True(t, ok)
	})

	t.Run("succeeds on a later attempt after transient rate limits", func(t *testing.T) {
		attempts := 0
		err := testPolicy().Retry(context.Background(), "op", func() error {
			attempts++
			if attempts < 3 {
				return &RateLimitedError{URL: "https://example.com/list"}
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("waits the fixed delay between attempts", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 3, Delay: 30 * time.Millisecond}

		start := time.Now()
		_ = policy.Retry(context.Background(), "op", func() error {
			return &RateLimitedError{URL: "https://example.com/list"}
		})
		elapsed := time.Since(start)

		// Two waits between three attempts
		assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	})

	t.Run("does not retry non-rate-limit errors", func(t *testing.T) {
		boom := errors.New("malformed response")
		attempts := 0

		err := testPolicy().Retry(context.Background(), "op", func() error {
			attempts++
			return boom
		})

		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, attempts)
	})

	t.Run("does not retry endpoint-not-found", func(t *testing.T) {
		attempts := 0
		err := testPolicy().Retry(context.Background(), "op", func() error {
			attempts++
			return &EndpointNotFoundError{URL: "https://example.com/listChapterDataAjax"}
		})

		require.Error(t, err)
		assert.Equal(t, 1, attempts)
		_, ok := IsEndpointNotFound(err)
		assert.True(t, ok)
	})

	t.Run("cancellation unblocks a pending delay", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second}
		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		err := policy.Retry(ctx, "op", func() error {
			return &RateLimitedError{URL: "https://example.com/list"}
		})

		require.Error(t, err)
		assert.Less(t, time.Since(start), time.Second)
	})
}
