package fetch

import (
	"sort"
	"sync"

	"rodoku/models"
)

// Merge combines chapter sequences from any fetch path into one gap-free,
// duplicate-free, order-stable list. Deduplication is by URL (first
// occurrence wins) because broken sources occasionally repeat order numbers;
// the result is sorted by Order ascending with a stable sort, so equal Order
// values keep their relative input order.
//
// Merge is a pure function: merging the same input twice yields the same
// output as merging it once.
func Merge(lists ...[]models.Chapter) []models.Chapter {
	seen := make(map[string]bool)
	merged := make([]models.Chapter, 0)

	for _, list := range lists {
		for _, chapter := range list {
			if seen[chapter.URL] {
				continue
			}
			seen[chapter.URL] = true
			merged = append(merged, chapter)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Order < merged[j].Order
	})

	return merged
}

// chapterSet accumulates chapters from concurrent page fetches within a
// batch. First-seen URL wins; insertion is safe from parallel goroutines.
// A failed batch never removes chapters that earlier batches merged.
type chapterSet struct {
	mu       sync.Mutex
	seen     map[string]bool
	chapters []models.Chapter
}

func newChapterSet() *chapterSet {
	return &chapterSet{
		seen: make(map[string]bool),
	}
}

// Add inserts chapters, skipping URLs already present.
func (s *chapterSet) Add(chapters []models.Chapter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chapter := range chapters {
		if s.seen[chapter.URL] {
			continue
		}
		s.seen[chapter.URL] = true
		s.chapters = append(s.chapters, chapter)
	}
}

// Len returns the number of distinct chapters merged so far.
func (s *chapterSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chapters)
}

// Sorted returns the merged chapters sorted by Order.
func (s *chapterSet) Sorted() []models.Chapter {
	s.mu.Lock()
	snapshot := make([]models.Chapter, len(s.chapters))
	copy(snapshot, s.chapters)
	s.mu.Unlock()

	return Merge(snapshot)
}
