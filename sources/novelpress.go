package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rodoku/decode"
	"rodoku/fetch"
	"rodoku/models"
)

const (
	novelpressName = "novelpress"
	novelpressBase = "https://novelpress.org"

	// Body marker the site ships with HTTP 200 when throttling
	novelpressRateLimitMarker = "you are being rate limited"
)

var digitsPattern = regexp.MustCompile(`\d+`)

// NovelpressSource reads WordPress/Madara-style novel sites: a
// listChapterDataAjax bulk endpoint with HTML pagination as the fallback,
// and plain chapter pages with injected ad blocks and obfuscation elements.
type NovelpressSource struct {
	client  fetch.Client
	base    string
	cache   *IdentifierCache
	decoder *decode.Decoder
}

// NewNovelpress creates the adapter with its cleanup rules baked in.
func NewNovelpress(client fetch.Client) *NovelpressSource {
	return &NovelpressSource{
		client: client,
		base:   novelpressBase,
		cache:  NewIdentifierCache(),
		decoder: &decode.Decoder{
			Strategy:        models.StrippedHTML,
			ContentSelector: "div.reading-content",
			BlockedMarkers:  []string{"adsbygoogle", "googletag.cmd", "pub-ad-network"},
			RemoveSelectors: []string{".ads", ".ad-container", "[id^='div-gpt-ad']", "[style*='display:none']"},
		},
	}
}

func (s *NovelpressSource) Name() string {
	return novelpressName
}

// Resolve extracts the post id, slug and advertised chapter count from a
// novel's landing page.
func (s *NovelpressSource) Resolve(ctx context.Context, landingURL string) (*models.Catalog, error) {
	slug := slugFromURL(landingURL)
	if catalog, ok := s.cache.Get(slug); ok {
		return catalog, nil
	}

	resp, err := s.client.Get(ctx, landingURL)
	if err != nil {
		return nil, err
	}
	if sigErr := fetch.ClassifyBody(landingURL, resp, novelpressRateLimitMarker, ""); sigErr != nil {
		return nil, sigErr
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		return nil, &fetch.ParseError{URL: landingURL, Err: err}
	}

	title := strings.TrimSpace(doc.Find("div.post-title h1").First().Text())
	if title == "" {
		return nil, &fetch.NotFoundError{URL: landingURL, Missing: "post title"}
	}

	holder := doc.Find("#manga-chapters-holder")
	if holder.Length() == 0 {
		return nil, &fetch.NotFoundError{URL: landingURL, Missing: "chapter data holder"}
	}

	postID, err := strconv.Atoi(holder.AttrOr("data-id", ""))
	if err != nil {
		return nil, &fetch.ParseError{URL: landingURL, Err: fmt.Errorf("chapter holder data-id: %w", err)}
	}

	// The advertised count is advisory; missing or garbled means unknown
	total := 0
	if countText := doc.Find("span.chapter-count").First().Text(); countText != "" {
		if digits := digitsPattern.FindString(countText); digits != "" {
			total, _ = strconv.Atoi(digits)
		}
	}

	catalog := &models.Catalog{
		Slug:          slug,
		Title:         title,
		PostID:        postID,
		TotalChapters: total,
	}
	s.cache.Put(slug, catalog)

	log.Printf("<%s> Resolved %q (post_id=%d, advertised chapters: %d)", novelpressName, title, postID, total)
	return catalog, nil
}

// BulkList hits the ajax endpoint that returns the whole list in one call.
func (s *NovelpressSource) BulkList(ctx context.Context, catalog *models.Catalog) ([]models.Chapter, error) {
	endpoint := fmt.Sprintf("%s/listChapterDataAjax?post_id=%d", s.base, catalog.PostID)

	resp, err := s.client.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if sigErr := fetch.ClassifyBody(endpoint, resp, novelpressRateLimitMarker, fetch.DefaultNotFoundMarker); sigErr != nil {
		return nil, sigErr
	}

	var payload struct {
		Data []struct {
			NSort     int    `json:"n_sort"`
			Title     string `json:"title"`
			Slug      string `json:"slug"`
			UpdatedAt string `json:"updated_at"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &payload); err != nil {
		return nil, &fetch.ParseError{URL: endpoint, Err: err}
	}

	chapters := make([]models.Chapter, 0, len(payload.Data))
	for _, el := range payload.Data {
		chapters = append(chapters, models.Chapter{
			Order:       el.NSort,
			Title:       el.Title,
			URL:         fmt.Sprintf("%s/novel/%s/%s", s.base, catalog.Slug, el.Slug),
			PublishedAt: parseTimestamp(el.UpdatedAt),
		})
	}
	return chapters, nil
}

// PageList scrapes one page of the HTML chapter listing.
func (s *NovelpressSource) PageList(ctx context.Context, catalog *models.Catalog, page int) ([]models.Chapter, error) {
	pageURL := fmt.Sprintf("%s/novel/%s/chapters?page=%d", s.base, catalog.Slug, page)

	resp, err := s.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if sigErr := fetch.ClassifyBody(pageURL, resp, novelpressRateLimitMarker, ""); sigErr != nil {
		return nil, sigErr
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		return nil, &fetch.ParseError{URL: pageURL, Err: err}
	}

	var chapters []models.Chapter
	doc.Find("ul.main.version-chap li.wp-manga-chapter > a").Each(func(_ int, e *goquery.Selection) {
		href := e.AttrOr("href", "")
		if href == "" {
			return
		}

		order, ok := chapterOrderFromURL(href)
		if !ok {
			log.Printf("<%s> WARNING: Could not parse chapter number from URL: %s", novelpressName, href)
			return
		}

		chapters = append(chapters, models.Chapter{
			Order: order,
			Title: strings.TrimSpace(e.Text()),
			URL:   absoluteURL(s.base, href),
		})
	})

	return chapters, nil
}

// ChapterContent fetches a chapter page and strips it down to clean HTML.
func (s *NovelpressSource) ChapterContent(ctx context.Context, catalog *models.Catalog, chapter models.Chapter) (string, error) {
	resp, err := s.client.Get(ctx, chapter.URL)
	if err != nil {
		return "", err
	}
	if sigErr := fetch.ClassifyBody(chapter.URL, resp, novelpressRateLimitMarker, ""); sigErr != nil {
		return "", sigErr
	}

	return s.decoder.Decode(chapter.URL, resp.Body)
}
