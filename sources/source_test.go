package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rodoku/models"
)

func TestChapterOrderFromURL(t *testing.T) {
	tests := []struct {
		name  string
		href  string
		want  int
		found bool
	}{
		{"hyphenated", "https://example.com/novel/x/chapter-18/", 18, true},
		{"underscored", "https://example.com/novel/x/chapter_7", 7, true},
		{"with suffix", "https://example.com/novel/x/chapter-18-part-2", 18, true},
		{"relative path", "/novel/x/chapter-203", 203, true},
		{"no chapter segment", "https://example.com/novel/x/epilogue", 0, false},
		{"word only", "https://example.com/novel/x/chapter-final", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, found := chapterOrderFromURL(tt.href)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, order)
		})
	}
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://example.com/a/b", absoluteURL("https://example.com", "/a/b"))
	assert.Equal(t, "https://example.com/a/b", absoluteURL("https://example.com/", "a/b"))
	assert.Equal(t, "https://other.com/x", absoluteURL("https://example.com", "https://other.com/x"))
}

func TestSlugFromURL(t *testing.T) {
	assert.Equal(t, "blade-of-dawn", slugFromURL("https://example.com/novel/blade-of-dawn/"))
	assert.Equal(t, "blade-of-dawn", slugFromURL("https://example.com/novel/blade-of-dawn"))
	assert.Equal(t, "chapter-3", slugFromURL("https://example.com/novel/x/chapter-3?tab=comments"))
}

func TestParseTimestamp(t *testing.T) {
	assert.Equal(t, 2024, parseTimestamp("2024-03-01 08:30:00").Year())
	assert.Equal(t, 2023, parseTimestamp("2023-11-05T12:00:00Z").Year())
	assert.Equal(t, time.March, parseTimestamp("2024-03-01").Month())
	assert.True(t, parseTimestamp("").IsZero())
	assert.True(t, parseTimestamp("yesterday").IsZero())
}

func TestDetectSource(t *testing.T) {
	assert.Equal(t, novelpressName, DetectSource("https://novelpress.org/novel/blade-of-dawn/"))
	assert.Equal(t, novelpressName, DetectSource("https://www.novelpress.org/novel/blade-of-dawn/"))
	assert.Equal(t, readerhubName, DetectSource("https://readerhub.io/novel/ashes-of-the-empire"))
	assert.Empty(t, DetectSource("https://unknown.example/novel/x"))
	assert.Empty(t, DetectSource("::not a url"))
}

func TestIdentifierCacheWriteOnce(t *testing.T) {
	cache := NewIdentifierCache()

	cache.Put("slug", &models.Catalog{Slug: "slug", Title: "First"})
	cache.Put("slug", &models.Catalog{Slug: "slug", Title: "Second"})

	got, ok := cache.Get("slug")
	assert.True(t, ok)
	assert.Equal(t, "First", got.Title)

	cache.Put("", &models.Catalog{Title: "ignored"})
	_, ok = cache.Get("")
	assert.False(t, ok)
}
