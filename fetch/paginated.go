package fetch

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"rodoku/models"
)

// Paginated fetch defaults. Batches are small on purpose: pages within a
// batch run concurrently, and the strictly sequential batches are what pace
// the request rate against the sources' rate limiters.
const (
	DefaultPageSize  = 100
	DefaultBatchSize = 5
	DefaultMaxPages  = 100
	DefaultPageDelay = 750 * time.Millisecond
)

// PageFetchFunc fetches one page of a source's chapter list. Page numbers
// are 1-based. Implementations return a RateLimitedError when the source
// throttles and a ParseError when the page body is malformed.
type PageFetchFunc func(ctx context.Context, page int) ([]models.Chapter, error)

// PaginatedFetcher walks a chapter list page by page, used when the bulk
// endpoint is unsupported or failed. Two modes:
//
//   - Known total: pages grouped into fixed-size batches; all pages in a
//     batch fetched concurrently, batches strictly sequential. Each batch is
//     retried as a whole when the source rate-limits.
//   - Unknown total: strictly sequential from page 1, stopping on an empty
//     page, an undersized page, or the MaxPages safety cap.
//
// Either way, every fetched page feeds a concurrency-safe dedup set keyed by
// chapter URL, and the final output is sorted by Order.
type PaginatedFetcher struct {
	PageSize  int           // chapters per page the source serves
	BatchSize int           // pages fetched concurrently per batch
	MaxPages  int           // safety cap for the unknown-total walk
	PageDelay time.Duration // pacing between sequential page requests
	Policy    RetryPolicy

	// RetainPartial controls what happens when a unit of work exhausts its
	// retries: false discards the whole fetch (fail fast, the behavior the
	// sources were observed to get), true returns whatever was merged before
	// the failure. Chapters merged from other pages are never lost either
	// way; the flag only decides whether the caller sees them.
	RetainPartial bool

	FetchPage PageFetchFunc
}

// NewPaginatedFetcher returns a fetcher with the observed-good defaults.
func NewPaginatedFetcher(fetchPage PageFetchFunc) *PaginatedFetcher {
	return &PaginatedFetcher{
		PageSize:  DefaultPageSize,
		BatchSize: DefaultBatchSize,
		MaxPages:  DefaultMaxPages,
		PageDelay: DefaultPageDelay,
		Policy:    DefaultRetryPolicy(),
		FetchPage: fetchPage,
	}
}

// FetchAll retrieves the full chapter list. totalChapters is the advisory
// count from the catalog; pass 0 when unknown. The advertised total being
// wrong is tolerated: the walk stops early on a short page regardless.
func (f *PaginatedFetcher) FetchAll(ctx context.Context, totalChapters int) ([]models.Chapter, error) {
	if totalChapters > 0 {
		return f.fetchKnownTotal(ctx, totalChapters)
	}
	return f.fetchUnknownTotal(ctx)
}

// fetchKnownTotal fetches ceil(total/pageSize) pages in sequential batches
// with in-batch parallelism.
func (f *PaginatedFetcher) fetchKnownTotal(ctx context.Context, totalChapters int) ([]models.Chapter, error) {
	pageCount := (totalChapters + f.PageSize - 1) / f.PageSize
	set := newChapterSet()

	log.Printf("[Paginated] Fetching %d pages in batches of %d (advertised total: %d)",
		pageCount, f.BatchSize, totalChapters)

	for start := 1; start <= pageCount; start += f.BatchSize {
		end := min(start+f.BatchSize-1, pageCount)

		var sawShortPage atomic.Bool

		label := fmt.Sprintf("pages %d-%d", start, end)
		err := f.Policy.Retry(ctx, label, func() error {
			g, gctx := errgroup.WithContext(ctx)
			for page := start; page <= end; page++ {
				page := page
				g.Go(func() error {
					chapters, err := f.fetchPageOnce(gctx, page)
					if err != nil {
						return err
					}
					if len(chapters) < f.PageSize {
						sawShortPage.Store(true)
					}
					set.Add(chapters)
					return nil
				})
			}
			return g.Wait()
		})
		if err != nil {
			return f.finishFailed(set, fmt.Errorf("%s failed permanently: %w", label, err))
		}

		if sawShortPage.Load() {
			// Advertised total was too high; a short page means we walked
			// past the real end of the list.
			log.Printf("[Paginated] Short page in %s, stopping early with %d chapters", label, set.Len())
			break
		}
	}

	return set.Sorted(), nil
}

// fetchUnknownTotal walks pages sequentially from page 1 until the list runs
// out or the safety cap is hit. Rate limits retry the same page rather than
// advancing.
func (f *PaginatedFetcher) fetchUnknownTotal(ctx context.Context) ([]models.Chapter, error) {
	set := newChapterSet()

	limiter := NewRateLimiter(f.PageDelay)
	defer limiter.Stop()

	page := 1
	for ; page <= f.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return f.finishFailed(set, err)
		}
		if page > 1 {
			limiter.Wait()
		}

		var chapters []models.Chapter
		err := f.Policy.Retry(ctx, fmt.Sprintf("page %d", page), func() error {
			fetched, err := f.fetchPageOnce(ctx, page)
			if err != nil {
				return err
			}
			chapters = fetched
			return nil
		})
		if err != nil {
			return f.finishFailed(set, fmt.Errorf("page %d failed permanently: %w", page, err))
		}

		if len(chapters) == 0 {
			log.Printf("[Paginated] Page %d empty, list exhausted at %d chapters", page, set.Len())
			break
		}
		set.Add(chapters)

		if len(chapters) < f.PageSize {
			log.Printf("[Paginated] Page %d undersized (%d < %d), treating as last page",
				page, len(chapters), f.PageSize)
			break
		}
	}

	if page > f.MaxPages {
		log.Printf("[Paginated] ⚠️ Hit page safety cap (%d) with %d chapters; list may be truncated",
			f.MaxPages, set.Len())
	}

	return set.Sorted(), nil
}

// fetchPageOnce runs a single page fetch. A malformed page aborts that page
// only: it is logged and treated as empty, per the list-fetch parse policy.
func (f *PaginatedFetcher) fetchPageOnce(ctx context.Context, page int) ([]models.Chapter, error) {
	chapters, err := f.FetchPage(ctx, page)
	if err != nil {
		if pErr, ok := IsParseError(err); ok {
			log.Printf("[Paginated] Page %d malformed, treating as empty: %v", page, pErr)
			return nil, nil
		}
		return nil, err
	}
	return chapters, nil
}

// finishFailed applies the RetainPartial policy after a permanent failure.
// The dedup set always keeps what was merged before the failure; the flag
// only decides whether the caller gets it.
func (f *PaginatedFetcher) finishFailed(set *chapterSet, err error) ([]models.Chapter, error) {
	if f.RetainPartial && set.Len() > 0 {
		log.Printf("[Paginated] ⚠️ Fetch failed after %d chapters merged, returning partial list: %v",
			set.Len(), err)
		return set.Sorted(), nil
	}
	return nil, err
}
