package fetch

import (
	"context"
	"log"

	"rodoku/models"
)

// BulkFetchFunc issues the single-request bulk listing call for a catalog.
// Implementations return an EndpointNotFoundError when the source does not
// support a bulk endpoint and a RateLimitedError when it throttles.
type BulkFetchFunc func(ctx context.Context) ([]models.Chapter, error)

// FetchBulk runs the bulk path under the retry policy. It is preferred over
// pagination because it is strictly cheaper: one request for the whole list.
//
// An EndpointNotFoundError passes through untouched so the caller can fall
// back to the paginated path. An empty chapter list is a valid result and is
// not retried.
func FetchBulk(ctx context.Context, policy RetryPolicy, fn BulkFetchFunc) ([]models.Chapter, error) {
	var chapters []models.Chapter

	err := policy.Retry(ctx, "bulk list", func() error {
		fetched, err := fn(ctx)
		if err != nil {
			return err
		}
		chapters = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Fetch] Bulk list returned %d chapters", len(chapters))
	return Merge(chapters), nil
}
