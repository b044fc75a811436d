package sources

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"rodoku/config"
	"rodoku/fetch"
	"rodoku/models"
)

// Acquire runs the full pipeline for one catalog URL against one source:
// resolve the landing page, list chapters (bulk first, pagination as the
// fallback), then decode chapter bodies concurrently and hand each one to the
// request's sink. Per-chapter failures are logged and skipped; only a listing
// failure or context cancellation aborts the job.
func Acquire(ctx context.Context, src Source, settings config.Settings, req *config.AcquireRequest, progress config.ProgressFunc) error {
	if progress == nil {
		progress = func(string, float64, int, int) {}
	}

	progress("Resolving catalog", 0, 0, 0)
	catalog, err := src.Resolve(ctx, req.URL)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", req.URL, err)
	}

	progress(fmt.Sprintf("Listing chapters for %s", catalog.Title), 0.05, 0, catalog.TotalChapters)
	chapters, err := listChapters(ctx, src, settings, catalog)
	if err != nil {
		return fmt.Errorf("listing chapters for %q: %w", catalog.Slug, err)
	}

	log.Printf("<%s> %q: %d chapters listed", src.Name(), catalog.Title, len(chapters))

	if req.OnList != nil {
		req.OnList(chapters)
	}
	if req.ListOnly {
		progress("Listing complete", 1.0, 0, len(chapters))
		return nil
	}
	if req.Sink == nil {
		return fmt.Errorf("acquisition for %q has no chapter sink", catalog.Slug)
	}

	return decodeChapters(ctx, src, settings, catalog, chapters, req, progress)
}

// listChapters builds the paginated fetcher from settings and runs the
// bulk-then-paginated listing flow.
func listChapters(ctx context.Context, src Source, settings config.Settings, catalog *models.Catalog) ([]models.Chapter, error) {
	policy := fetch.RetryPolicy{
		MaxAttempts: settings.MaxAttempts,
		Delay:       settings.RetryDelay(),
	}

	paginated := &fetch.PaginatedFetcher{
		PageSize:      settings.PageSize,
		BatchSize:     settings.BatchSize,
		MaxPages:      settings.MaxPages,
		PageDelay:     settings.PageDelay(),
		Policy:        policy,
		RetainPartial: settings.RetainPartial,
		FetchPage: func(ctx context.Context, page int) ([]models.Chapter, error) {
			return src.PageList(ctx, catalog, page)
		},
	}

	bulk := func(ctx context.Context) ([]models.Chapter, error) {
		return src.BulkList(ctx, catalog)
	}

	return fetch.ListChapters(ctx, catalog, bulk, paginated)
}

// decodeChapters fetches and decodes chapter bodies with bounded parallelism,
// feeding the sink in completion order. Sink calls are serialized so sinks
// need not be safe for concurrent use.
func decodeChapters(ctx context.Context, src Source, settings config.Settings, catalog *models.Catalog, chapters []models.Chapter, req *config.AcquireRequest, progress config.ProgressFunc) error {
	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = settings.DecodeConcurrency
	}

	pool := newWorkerPool(concurrency)
	total := len(chapters)

	var (
		wg       sync.WaitGroup
		sinkMu   sync.Mutex
		done     atomic.Int64
		failures atomic.Int64
	)

	for _, chapter := range chapters {
		if err := ctx.Err(); err != nil {
			break
		}

		pool.Acquire()
		wg.Add(1)
		go func(ch models.Chapter) {
			defer wg.Done()
			defer pool.Release()

			html, err := src.ChapterContent(ctx, catalog, ch)
			if err != nil {
				failures.Add(1)
				log.Printf("<%s> ERROR: Chapter %d (%s) failed: %v", src.Name(), ch.Order, ch.URL, err)
				return
			}
			if html == "" {
				log.Printf("<%s> Chapter %d (%s) decoded empty, skipping", src.Name(), ch.Order, ch.URL)
				return
			}

			sinkMu.Lock()
			sinkErr := req.Sink(ch, html)
			sinkMu.Unlock()
			if sinkErr != nil {
				failures.Add(1)
				log.Printf("<%s> ERROR: Sink rejected chapter %d: %v", src.Name(), ch.Order, sinkErr)
				return
			}

			completed := int(done.Add(1))
			progress(fmt.Sprintf("Decoded chapter %d", ch.Order), float64(completed)/float64(total), completed, total)
		}(chapter)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	if n := failures.Load(); n > 0 {
		log.Printf("<%s> %q finished with %d of %d chapters failed", src.Name(), catalog.Title, n, total)
	}
	progress("Acquisition complete", 1.0, int(done.Load()), total)
	return nil
}
