package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rodoku/decode"
	"rodoku/fetch"
	"rodoku/models"
)

const (
	readerhubName = "readerhub"
	readerhubBase = "https://readerhub.io"

	// The content API serves one envelope per chapter, keyed per site build.
	readerhubContentKey = "vK9mQ2xR7pLw4tYe8uHn3bGc6fJa1sDz"

	readerhubRateLimitMarker = "too many requests, slow down"

	readerhubPrimaryBackend  = "gemini"
	readerhubFallbackBackend = "gpt"

	// Upper bound passed to the bulk endpoint when the catalog page does
	// not advertise a total
	readerhubBulkCeiling = 10000
)

// ReaderhubSource reads sites that serve chapter bodies as AES-GCM sealed
// envelopes from a reader API, with an HTML chapter index as the fallback
// listing path.
type ReaderhubSource struct {
	client  fetch.Client
	base    string
	cache   *IdentifierCache
	decoder *decode.Decoder
}

func NewReaderhub(client fetch.Client) *ReaderhubSource {
	return &ReaderhubSource{
		client: client,
		base:   readerhubBase,
		cache:  NewIdentifierCache(),
		decoder: &decode.Decoder{
			Strategy:        models.EncryptedEnvelope,
			ContentSelector: "div.chapter-body",
			BlockedMarkers:  []string{"adsbygoogle", "window.googletag"},
			Key:             []byte(readerhubContentKey),
		},
	}
}

func (s *ReaderhubSource) Name() string {
	return readerhubName
}

// Resolve reads the embedded novel-data JSON block from the landing page.
func (s *ReaderhubSource) Resolve(ctx context.Context, landingURL string) (*models.Catalog, error) {
	slug := slugFromURL(landingURL)
	if catalog, ok := s.cache.Get(slug); ok {
		return catalog, nil
	}

	resp, err := s.client.Get(ctx, landingURL)
	if err != nil {
		return nil, err
	}
	if sigErr := fetch.ClassifyBody(landingURL, resp, readerhubRateLimitMarker, ""); sigErr != nil {
		return nil, sigErr
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		return nil, &fetch.ParseError{URL: landingURL, Err: err}
	}

	title := strings.TrimSpace(doc.Find("h1.novel-title").First().Text())
	if title == "" {
		return nil, &fetch.NotFoundError{URL: landingURL, Missing: "novel title"}
	}

	dataBlock := doc.Find("script#novel-data").First()
	if dataBlock.Length() == 0 {
		return nil, &fetch.NotFoundError{URL: landingURL, Missing: "novel data block"}
	}

	var novelData struct {
		ID            int    `json:"id"`
		Slug          string `json:"slug"`
		TotalChapters int    `json:"total_chapters"`
	}
	if err := json.Unmarshal([]byte(dataBlock.Text()), &novelData); err != nil {
		return nil, &fetch.ParseError{URL: landingURL, Err: fmt.Errorf("novel data block: %w", err)}
	}

	if novelData.Slug != "" {
		slug = novelData.Slug
	}

	catalog := &models.Catalog{
		Slug:          slug,
		Title:         title,
		RawID:         fmt.Sprintf("%d", novelData.ID),
		PostID:        novelData.ID,
		TotalChapters: novelData.TotalChapters,
	}
	s.cache.Put(slug, catalog)

	log.Printf("<%s> Resolved %q (id=%d, advertised chapters: %d)", readerhubName, title, novelData.ID, novelData.TotalChapters)
	return catalog, nil
}

// BulkList asks the chapter API for the full range in one request.
func (s *ReaderhubSource) BulkList(ctx context.Context, catalog *models.Catalog) ([]models.Chapter, error) {
	end := catalog.TotalChapters
	if end <= 0 {
		end = readerhubBulkCeiling
	}
	endpoint := fmt.Sprintf("%s/api/chapters/%d?start=1&end=%d", s.base, catalog.PostID, end)

	resp, err := s.client.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if sigErr := fetch.ClassifyBody(endpoint, resp, readerhubRateLimitMarker, fetch.DefaultNotFoundMarker); sigErr != nil {
		return nil, sigErr
	}

	var payload struct {
		Chapters []struct {
			Order     int    `json:"order"`
			Title     string `json:"title"`
			Slug      string `json:"slug"`
			CreatedAt string `json:"created_at"`
		} `json:"chapters"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &payload); err != nil {
		return nil, &fetch.ParseError{URL: endpoint, Err: err}
	}

	chapters := make([]models.Chapter, 0, len(payload.Chapters))
	for _, el := range payload.Chapters {
		chapters = append(chapters, models.Chapter{
			Order:       el.Order,
			Title:       el.Title,
			URL:         fmt.Sprintf("%s/novel/%s/%s", s.base, catalog.Slug, el.Slug),
			PublishedAt: parseTimestamp(el.CreatedAt),
		})
	}
	return chapters, nil
}

// PageList scrapes one page of the HTML chapter index.
func (s *ReaderhubSource) PageList(ctx context.Context, catalog *models.Catalog, page int) ([]models.Chapter, error) {
	pageURL := fmt.Sprintf("%s/novel/%s/chapters?page=%d", s.base, catalog.Slug, page)

	resp, err := s.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if sigErr := fetch.ClassifyBody(pageURL, resp, readerhubRateLimitMarker, ""); sigErr != nil {
		return nil, sigErr
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		return nil, &fetch.ParseError{URL: pageURL, Err: err}
	}

	var chapters []models.Chapter
	doc.Find("ul.chapter-list li > a").Each(func(_ int, e *goquery.Selection) {
		href := e.AttrOr("href", "")
		if href == "" {
			return
		}

		order, ok := chapterOrderFromURL(href)
		if !ok {
			log.Printf("<%s> WARNING: Could not parse chapter number from URL: %s", readerhubName, href)
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

// ChapterContent asks the reader API for the sealed body and decrypts it.
// When the primary backend returns an empty body the fallback backend is
// tried once before giving up.
func (s *ReaderhubSource) ChapterContent(ctx context.Context, catalog *models.Catalog, chapter models.Chapter) (string, error) {
	content, err := s.fetchBody(ctx, catalog, chapter, readerhubPrimaryBackend)
	if err != nil {
		return "", err
	}
	if content != "" {
		return content, nil
	}

	log.Printf("<%s> Empty body from %s backend for %s, trying %s", readerhubName, readerhubPrimaryBackend, chapter.URL, readerhubFallbackBackend)
	return s.fetchBody(ctx, catalog, chapter, readerhubFallbackBackend)
}

func (s *ReaderhubSource) fetchBody(ctx context.Context, catalog *models.Catalog, chapter models.Chapter, backend string) (string, error) {
	endpoint := s.base + "/api/reader/get"
	form := map[string]string{
		"chapter": slugFromURL(chapter.URL),
		"nv":      catalog.RawID,
		"lang":    "en",
		"backend": backend,
	}

	resp, err := s.client.PostForm(ctx, endpoint, form)
	if err != nil {
		return "", err
	}
	if sigErr := fetch.ClassifyBody(chapter.URL, resp, readerhubRateLimitMarker, fetch.DefaultNotFoundMarker); sigErr != nil {
		return "", sigErr
	}

	var payload struct {
		Data struct {
			Data struct {
				Body string `json:"body"`
			} `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &payload); err != nil {
		return "", &fetch.ParseError{URL: chapter.URL, Err: err}
	}

	return s.decoder.Decode(chapter.URL, payload.Data.Data.Body)
}
