package fetch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rodoku/models"
)

func makeChapters(orders ...int) []models.Chapter {
	chapters := make([]models.Chapter, 0, len(orders))
	for _, n := range orders {
		chapters = append(chapters, models.Chapter{
			Order: n,
			Title: fmt.Sprintf("Chapter %d", n),
			URL:   fmt.Sprintf("https://example.com/novel/ch/chapter-%d", n),
		})
	}
	return chapters
}

func TestMerge(t *testing.T) {
	t.Run("drops duplicate URLs keeping the first occurrence", func(t *testing.T) {
		first := []models.Chapter{
			{Order: 1, Title: "One (bulk)", URL: "https://example.com/chapter-1"},
			{Order: 2, Title: "Two", URL: "https://example.com/chapter-2"},
		}
		second := []models.Chapter{
			{Order: 1, Title: "One (paginated)", URL: "https://example.com/chapter-1"},
			{Order: 3, Title: "Three", URL: "https://example.com/chapter-3"},
		}

		merged := Merge(first, second)

		require.Len(t, merged, 3)
		assert.Equal(t, "One (bulk)", merged[0].Title)
	})

	t.Run("sorts by order regardless of input order", func(t *testing.T) {
		merged := Merge(makeChapters(5, 2, 9), makeChapters(1, 7))

		require.Len(t, merged, 5)
		for i := 1; i < len(merged); i++ {
			assert.LessOrEqual(t, merged[i-1].Order, merged[i].Order)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		input := makeChapters(3, 1, 2)

		once := Merge(input)
		twice := Merge(once)

		assert.Equal(t, once, twice)
	})

	t.Run("sort is stable for equal orders", func(t *testing.T) {
		// Two distinct URLs sharing an order number keep their input order
		a := models.Chapter{Order: 4, Title: "Part 1", URL: "https://example.com/chapter-4"}
		b := models.Chapter{Order: 4, Title: "Part 2", URL: "https://example.com/chapter-4-part-2"}

		merged := Merge([]models.Chapter{a, b})

		require.Len(t, merged, 2)
		assert.Equal(t, "Part 1", merged[0].Title)
		assert.Equal(t, "Part 2", merged[1].Title)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		assert.Empty(t, Merge())
		assert.Empty(t, Merge(nil, nil))
	})
}

func TestChapterSet(t *testing.T) {
	t.Run("deduplicates across concurrent adds", func(t *testing.T) {
		set := newChapterSet()

		done := make(chan struct{})
		for i := 0; i < 4; i++ {
			go func() {
				set.Add(makeChapters(1, 2, 3, 4, 5))
				done <- struct{}{}
			}()
		}
		for i := 0; i < 4; i++ {
			<-done
		}

		assert.Equal(t, 5, set.Len())

		sorted := set.Sorted()
		require.Len(t, sorted, 5)
		for i, ch := range sorted {
			assert.Equal(t, i+1, ch.Order)
		}
	})
}
