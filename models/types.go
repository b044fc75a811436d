package models

import "time"

// Catalog holds the source-assigned identifiers extracted from a novel's
// landing page. It is created once per acquisition job and never mutated.
// Which fields are populated depends on the source: WordPress-style sites
// carry a numeric post id, reader-API sites carry a raw id plus a slug.
type Catalog struct {
	Slug   string // source-local slug (e.g. "martial-peak")
	Title  string // display title from the landing page
	RawID  string // opaque id string passed through to reader-API forms
	PostID int    // numeric id used by ajax and chapter-API list endpoints

	// TotalChapters is the chapter count advertised by the landing page.
	// It is advisory only: 0 means unknown, and the fetchers must tolerate
	// it being wrong in either direction.
	TotalChapters int
}

// Chapter is one entry in a catalog's chapter list. Chapters are identified
// uniquely by URL; Order values occasionally repeat on broken sources, so the
// URL is the deduplication key.
type Chapter struct {
	Order       int
	Title       string
	URL         string
	PublishedAt time.Time // zero when the source does not expose a timestamp
}

// Strategy selects how a source's raw chapter payload is turned into
// display-ready HTML.
type Strategy int

const (
	// PlainHTML selects the content subtree and serializes it as-is.
	PlainHTML Strategy = iota
	// StrippedHTML is PlainHTML plus ad-tag and obfuscation-element removal.
	StrippedHTML
	// EncryptedEnvelope expects the iv:short:long encrypted wire format.
	EncryptedEnvelope
)

func (s Strategy) String() string {
	switch s {
	case PlainHTML:
		return "plain_html"
	case StrippedHTML:
		return "stripped_html"
	case EncryptedEnvelope:
		return "encrypted_envelope"
	default:
		return "unknown"
	}
}
