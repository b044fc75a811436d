package decode

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rodoku/fetch"
	"rodoku/models"
)

// obfuscatedTag matches the generated tag names some sources inject between
// real paragraphs to break scrapers (e.g. <jqzkhs>gibberish</jqzkhs>).
// Standard tags are checked against the allowlist first, so this only ever
// sees unknown element names.
var obfuscatedTag = regexp.MustCompile(`^[a-z][a-z0-9]{4,}$`)

// standardTags lists element names that are never obfuscation wrappers.
var standardTags = map[string]bool{
	"a": true, "abbr": true, "article": true, "aside": true, "b": true,
	"blockquote": true, "body": true, "br": true, "code": true, "div": true,
	"em": true, "figcaption": true, "figure": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"head": true, "header": true, "hr": true, "html": true, "i": true,
	"iframe": true, "img": true, "li": true, "main": true, "nav": true,
	"noscript": true, "ol": true, "p": true, "picture": true, "pre": true,
	"s": true, "script": true, "section": true, "small": true, "source": true,
	"span": true, "strong": true, "style": true, "sub": true, "sup": true,
	"table": true, "tbody": true, "td": true, "th": true, "thead": true,
	"tr": true, "u": true, "ul": true,
}

// Decoder turns a raw chapter payload into display-ready HTML: an ordered
// sequence of <p> blocks. The zero strategy is PlainHTML.
type Decoder struct {
	Strategy models.Strategy

	// ContentSelector addresses the subtree holding the chapter body in a
	// plain document. Defaults to "body".
	ContentSelector string

	// BlockedMarkers are ad/tracking script signatures. Any single content
	// unit containing one is dropped; the rest of the document survives.
	BlockedMarkers []string

	// RemoveSelectors is the class/id/style denylist for ad containers.
	RemoveSelectors []string

	// Key is the fixed 32-byte envelope key, required only for the
	// EncryptedEnvelope strategy.
	Key []byte
}

// Decode converts one chapter's raw payload. Failures are always scoped to
// this single chapter. An empty string with a nil error means the chapter
// genuinely decoded to nothing; callers may then try a fallback backend.
func (d *Decoder) Decode(chapterURL, raw string) (string, error) {
	switch d.Strategy {
	case models.EncryptedEnvelope:
		if IsEnvelope(raw) {
			paragraphs, err := DecodeEnvelope(chapterURL, raw, d.Key)
			if err != nil {
				return "", err
			}
			return wrapParagraphs(d.dropBlocked(paragraphs)), nil
		}
		// No envelope shape means the source served a plain document
		fallthrough
	case models.PlainHTML, models.StrippedHTML:
		return d.decodeDocument(chapterURL, raw)
	default:
		return "", fmt.Errorf("unknown decode strategy: %v", d.Strategy)
	}
}

// decodeDocument selects the content subtree and cleans it up.
func (d *Decoder) decodeDocument(chapterURL, raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", &fetch.ParseError{URL: chapterURL, Err: err}
	}

	selector := d.ContentSelector
	if selector == "" {
		selector = "body"
	}

	content := doc.Find(selector).First()
	if content.Length() == 0 {
		return "", &fetch.NotFoundError{URL: chapterURL, Missing: selector}
	}

	// PlainHTML trusts the subtree as-is; every other path strips
	// obfuscation elements and ad containers first.
	if d.Strategy != models.PlainHTML {
		removed := removeObfuscated(content)
		if removed > 0 {
			log.Printf("[Decode] Removed %d obfuscation elements from %s", removed, chapterURL)
		}
		for _, sel := range d.RemoveSelectors {
			content.Find(sel).Remove()
		}
	}

	var paragraphs []string
	content.Find("p").Each(func(_ int, s *goquery.Selection) {
		inner, err := s.Html()
		if err != nil {
			return
		}
		inner = strings.TrimSpace(inner)
		if inner != "" {
			paragraphs = append(paragraphs, inner)
		}
	})

	// Sources that serve bare text without <p> markup get the whole subtree
	// as one paragraph.
	if len(paragraphs) == 0 {
		if text := strings.TrimSpace(content.Text()); text != "" {
			paragraphs = []string{text}
		}
	}

	return wrapParagraphs(d.dropBlocked(paragraphs)), nil
}

// dropBlocked removes content units carrying an ad/tracking signature.
func (d *Decoder) dropBlocked(paragraphs []string) []string {
	if len(d.BlockedMarkers) == 0 {
		return paragraphs
	}

	kept := paragraphs[:0]
	for _, paragraph := range paragraphs {
		blocked := false
		for _, marker := range d.BlockedMarkers {
			if strings.Contains(paragraph, marker) {
				blocked = true
				break
			}
		}
		if !blocked {
			kept = append(kept, paragraph)
		}
	}
	return kept
}

// removeObfuscated deletes elements with generated tag names from the
// subtree and returns how many were dropped.
func removeObfuscated(content *goquery.Selection) int {
	removed := 0
	content.Find("*").Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		if standardTags[name] {
			return
		}
		if obfuscatedTag.MatchString(name) {
			s.Remove()
			removed++
		}
	})
	return removed
}

// wrapParagraphs assembles the final output, one <p> block per retained
// paragraph, concatenated in order.
func wrapParagraphs(paragraphs []string) string {
	if len(paragraphs) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, paragraph := range paragraphs {
		builder.WriteString("<p>")
		builder.WriteString(paragraph)
		builder.WriteString("</p>")
	}
	return builder.String()
}
