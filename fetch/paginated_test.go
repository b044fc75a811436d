package fetch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rodoku/models"
)

// fakeListing simulates a paginated source serving a fixed chapter count,
// with optional per-page failure injection.
type fakeListing struct {
	mu           sync.Mutex
	total        int
	pageSize     int
	pageRequests map[int]int // page -> times requested
	failPage     func(page, requestNo int) error
}

func newFakeListing(total, pageSize int) *fakeListing {
	return &fakeListing{
		total:        total,
		pageSize:     pageSize,
		pageRequests: make(map[int]int),
	}
}

func (l *fakeListing) fetch(_ context.Context, page int) ([]models.Chapter, error) {
	l.mu.Lock()
	l.pageRequests[page]++
	requestNo := l.pageRequests[page]
	l.mu.Unlock()

	if l.failPage != nil {
		if err := l.failPage(page, requestNo); err != nil {
			return nil, err
		}
	}

	first := (page-1)*l.pageSize + 1
	if first > l.total {
		return nil, nil
	}

	var chapters []models.Chapter
	for n := first; n <= l.total && n < first+l.pageSize; n++ {
		chapters = append(chapters, models.Chapter{
			Order: n,
			Title: fmt.Sprintf("Chapter %d", n),
			URL:   fmt.Sprintf("https://example.com/novel/ch/chapter-%d", n),
		})
	}
	return chapters, nil
}

// fetchAllAtOnce returns the full listing the way a bulk endpoint would
func (l *fakeListing) fetchAllAtOnce() []models.Chapter {
	chapters := make([]models.Chapter, 0, l.total)
	for n := 1; n <= l.total; n++ {
		chapters = append(chapters, models.Chapter{
			Order: n,
			Title: fmt.Sprintf("Chapter %d", n),
			URL:   fmt.Sprintf("https://example.com/novel/ch/chapter-%d", n),
		})
	}
	return chapters
}

func (l *fakeListing) requests(page int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pageRequests[page]
}

// fastFetcher returns a fetcher tuned for tests: tiny delays, small pages
func fastFetcher(listing *fakeListing) *PaginatedFetcher {
	f := NewPaginatedFetcher(listing.fetch)
	f.PageSize = listing.pageSize
	f.PageDelay = time.Millisecond
	f.Policy = RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}
	return f
}

func assertCompleteList(t *testing.T, chapters []models.Chapter, total int) {
	t.Helper()
	require.Len(t, chapters, total)
	for i, ch := range chapters {
		assert.Equal(t, i+1, ch.Order)
	}
}

func TestPaginatedFetcher_KnownTotal(t *testing.T) {
	t.Run("fetches all pages in batches and returns the ordered list", func(t *testing.T) {
		listing := newFakeListing(1200, 100)
		f := fastFetcher(listing)

		chapters, err := f.FetchAll(context.Background(), 1200)

		require.NoError(t, err)
		assertCompleteList(t, chapters, 1200)
		// 12 pages, each requested exactly once
		for page := 1; page <= 12; page++ {
			assert.Equal(t, 1, listing.requests(page), "page %d", page)
		}
	})

	t.Run("retries a whole batch on rate limit and recovers", func(t *testing.T) {
		listing := newFakeListing(1000, 100)
		listing.failPage = func(page, requestNo int) error {
			// Page 7 throttles on its first request; the second batch retries
			if page == 7 && requestNo == 1 {
				return &RateLimitedError{URL: "https://example.com/chapters?page=7"}
			}
			return nil
		}
		f := fastFetcher(listing)

		chapters, err := f.FetchAll(context.Background(), 1000)

		require.NoError(t, err)
		assertCompleteList(t, chapters, 1000)
		assert.Equal(t, 2, listing.requests(7))
	})

	t.Run("no duplicates when a retried batch refetches sibling pages", func(t *testing.T) {
		listing := newFakeListing(500, 100)
		listing.failPage = func(page, requestNo int) error {
			if page == 3 && requestNo == 1 {
				return &RateLimitedError{URL: "https://example.com/chapters?page=3"}
			}
			return nil
		}
		f := fastFetcher(listing)

		chapters, err := f.FetchAll(context.Background(), 500)

		require.NoError(t, err)
		assertCompleteList(t, chapters, 500)
		// Sibling pages in the failed batch were fetched twice but merged once
		assert.Equal(t, 2, listing.requests(1))
	})

	t.Run("stops early when the advertised total overshoots", func(t *testing.T) {
		// Source really has 430 chapters but advertises 2000
		listing := newFakeListing(430, 100)
		f := fastFetcher(listing)

		chapters, err := f.FetchAll(context.Background(), 2000)

		require.NoError(t, err)
		assertCompleteList(t, chapters, 430)
		// The short page lands in the first batch (pages 1-5); batch two never runs
		assert.Equal(t, 0, listing.requests(6))
	})

	t.Run("discards everything on permanent failure by default", func(t *testing.T) {
		listing := newFakeListing(1000, 100)
		listing.failPage = func(page, _ int) error {
			if page == 8 {
				return &RateLimitedError{URL: "https://example.com/chapters?page=8"}
			}
			return nil
		}
		f := fastFetcher(listing)

		chapters, err := f.FetchAll(context.Background(), 1000)

		require.Error(t, err)
		assert.Nil(t, chapters)
		_, ok := IsRateLimited(err)
		assert.True(t, ok)
		assert.Equal(t, 3, listing.requests(8))
	})

	t.Run("returns the partial list when RetainPartial is set", func(t *testing.T) {
		listing := newFakeListing(1000, 100)
		listing.failPage = func(page, _ int) error {
			if page == 8 {
				return &RateLimitedError{URL: "https://example.com/chapters?page=8"}
			}
			return nil
		}
		f := fastFetcher(listing)
		f.RetainPartial = true

		chapters, err := f.FetchAll(context.Background(), 1000)

		require.NoError(t, err)
		// Everything merged before the failure survives: batch one plus the
		// sibling pages of the failed batch. Only page 8 is missing.
		require.Len(t, chapters, 900)
		for _, ch := range chapters {
			assert.False(t, ch.Order >= 701 && ch.Order <= 800, "chapter %d should be missing", ch.Order)
		}
	})

	t.Run("malformed page aborts that page only", func(t *testing.T) {
		listing := newFakeListing(300, 100)
		listing.failPage = func(page, _ int) error {
			if page == 2 {
				return &ParseError{URL: "https://example.com/chapters?page=2", Err: fmt.Errorf("unexpected markup")}
			}
			return nil
		}
		f := fastFetcher(listing)

		chapters, err := f.FetchAll(context.Background(), 300)

		require.NoError(t, err)
		// Page 2's chapters are simply missing; pages 1 and 3 survive
		require.Len(t, chapters, 200)
		assert.Equal(t, 1, chapters[0].Order)
		assert.Equal(t, 201, chapters[100].Order)
	})
}

func TestPaginatedFetcher_UnknownTotal(t *testing.T) {
	t.Run("walks sequentially until an undersized page", func(t *testing.T) {
		listing := newFakeListing(250, 100)
		f := fastFetcher(listing)

		chapters, err := f.FetchAll(context.Background(), 0)

		require.NoError(t, err)
		assertCompleteList(t, chapters, 250)
		assert.Equal(t, 1, listing.requests(3))
		assert.Equal(t, 0, listing.requests(4))
	})

	t.Run("stops on an empty page", func(t *testing.T) {
		listing := newFakeListing(200, 100)
		f := fastFetcher(listing)

		chapters, err := f.FetchAll(context.Background(), 0)

		require.NoError(t, err)
		assertCompleteList(t, chapters, 200)
		// Pages 1 and 2 are full, so page 3 was probed and came back empty
		assert.Equal(t, 1, listing.requests(3))
	})

	t.Run("retries the same page on rate limit instead of advancing", func(t *testing.T) {
		listing := newFakeListing(150, 100)
		listing.failPage = func(page, requestNo int) error {
			if page == 2 && requestNo == 1 {
				return &RateLimitedError{URL: "https://example.com/chapters?page=2"}
			}
			return nil
		}
		f := fastFetcher(listing)

		chapters, err := f.FetchAll(context.Background(), 0)

		require.NoError(t, err)
		assertCompleteList(t, chapters, 150)
		assert.Equal(t, 2, listing.requests(2))
	})

	t.Run("honors the page safety cap", func(t *testing.T) {
		// Source never stops serving full pages
		listing := newFakeListing(1<<20, 10)
		f := fastFetcher(listing)
		f.MaxPages = 5

		chapters, err := f.FetchAll(context.Background(), 0)

		require.NoError(t, err)
		assert.Len(t, chapters, 50)
		assert.Equal(t, 0, listing.requests(6))
	})

	t.Run("cancellation stops the walk", func(t *testing.T) {
		listing := newFakeListing(1<<20, 10)
		f := fastFetcher(listing)
		f.PageDelay = 50 * time.Millisecond

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := f.FetchAll(ctx, 0)

		require.ErrorIs(t, err, context.Canceled)
	})
}
