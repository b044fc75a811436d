package sources

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rodoku/models"
)

// Source defines the interface that all novel sources must implement.
// Sources provide resolution and endpoint knowledge ONLY - the fetch package
// handles retries, batching and merging.
type Source interface {
	// Name returns the source identifier (e.g. "novelpress")
	Name() string

	// Resolve extracts the catalog identifiers from a novel's landing page
	Resolve(ctx context.Context, landingURL string) (*models.Catalog, error)

	// BulkList issues the single-request bulk listing call. Sources whose
	// bulk endpoint is absent return an EndpointNotFoundError, which routes
	// the caller to PageList.
	BulkList(ctx context.Context, catalog *models.Catalog) ([]models.Chapter, error)

	// PageList fetches one page of the chapter list (1-based)
	PageList(ctx context.Context, catalog *models.Catalog, page int) ([]models.Chapter, error)

	// ChapterContent fetches and decodes one chapter's body to clean HTML
	ChapterContent(ctx context.Context, catalog *models.Catalog, chapter models.Chapter) (string, error)
}

// chapterOrderPattern matches the chapter-<n> segment most sources embed in
// chapter URLs. Handles /chapter-18/, /chapter_18 and chapter-18-part-2.
var chapterOrderPattern = regexp.MustCompile(`chapter[-_](\d+)`)

// chapterOrderFromURL derives a chapter's order number from its URL when the
// list markup does not carry it explicitly.
func chapterOrderFromURL(href string) (int, bool) {
	matches := chapterOrderPattern.FindStringSubmatch(href)
	if len(matches) < 2 {
		return 0, false
	}
	order, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return order, true
}

// absoluteURL resolves href against base when the source serves relative links
func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
}

// slugFromURL returns the last non-empty path segment
func slugFromURL(raw string) string {
	trimmed := strings.TrimRight(raw, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	// Strip any query string
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}

// timestampLayouts covers the formats observed across the supported sources
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// parseTimestamp parses a source timestamp, returning the zero time when the
// field is absent or in an unknown format. Timestamps are advisory metadata,
// never worth failing a chapter over.
func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}
