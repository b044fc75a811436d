package fetch

import "strings"

// Default body markers for the supported sources. Individual source adapters
// may override them via ClassifyBody arguments.
const (
	DefaultRateLimitMarker = "rate limited"
	DefaultNotFoundMarker  = "404 Not Found"
)

// ClassifyBody maps body-level signals onto the typed error kinds. The
// supported sources return HTTP 200 with a rate-limit banner when throttling
// and a 404-equivalent body when an endpoint variant does not exist, so
// classification cannot rely on the status code alone.
//
// Returns nil when the body carries neither signal.
func ClassifyBody(url string, resp *Response, rateLimitMarker, notFoundMarker string) error {
	if rateLimitMarker != "" && strings.Contains(resp.Body, rateLimitMarker) {
		return &RateLimitedError{URL: url, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode == 404 {
		return &EndpointNotFoundError{URL: url}
	}
	if notFoundMarker != "" && strings.Contains(resp.Body, notFoundMarker) {
		return &EndpointNotFoundError{URL: url}
	}
	return nil
}
