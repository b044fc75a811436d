package fetch

import (
	"context"
	"log"

	"rodoku/models"
)

// ListChapters obtains the full ordered chapter list for a catalog. The bulk
// path runs first because it is strictly cheaper; when the source answers
// with an endpoint-not-found signal, control falls to the paginated fetcher.
// Any other bulk failure (rate-limit exhaustion included) is fatal rather
// than a fallback trigger, since the paginated endpoint sits behind the same
// rate limiter.
//
// Pass a nil bulk func for sources with no bulk endpoint at all.
func ListChapters(ctx context.Context, catalog *models.Catalog, bulk BulkFetchFunc, paginated *PaginatedFetcher) ([]models.Chapter, error) {
	if bulk != nil {
		chapters, err := FetchBulk(ctx, paginated.Policy, bulk)
		if err == nil {
			return chapters, nil
		}
		if _, ok := IsEndpointNotFound(err); !ok {
			return nil, err
		}
		log.Printf("[Fetch] Bulk endpoint unsupported for %q, falling back to pagination", catalog.Slug)
	}

	return paginated.FetchAll(ctx, catalog.TotalChapters)
}
