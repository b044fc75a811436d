package fetch

import (
	"errors"
	"fmt"
)

// RateLimitedError is returned when a source signals "slow down" via a
// literal marker string in the response body. Observed sources do this with
// an HTTP 200, so the status code is carried only for logging.
type RateLimitedError struct {
	URL        string
	StatusCode int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate_limited: status=%d url=%s", e.StatusCode, e.URL)
}

// IsRateLimited checks if an error is (or wraps) a RateLimitedError
func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rlErr *RateLimitedError
	if errors.As(err, &rlErr) {
		return rlErr, true
	}
	return nil, false
}

// EndpointNotFoundError signals that a specific endpoint variant is not
// supported by this source. It is a routing signal, not a failure: callers
// fall back to the alternate fetch strategy instead of retrying.
type EndpointNotFoundError struct {
	URL string
}

func (e *EndpointNotFoundError) Error() string {
	return fmt.Sprintf("endpoint_not_found: url=%s", e.URL)
}

// IsEndpointNotFound checks if an error is (or wraps) an EndpointNotFoundError
func IsEndpointNotFound(err error) (*EndpointNotFoundError, bool) {
	var enfErr *EndpointNotFoundError
	if errors.As(err, &enfErr) {
		return enfErr, true
	}
	return nil, false
}

// NotFoundError is returned when a required structural element is absent
// from a page (catalog title, embedded data block, content subtree).
// Fatal for that one item; never retried.
type NotFoundError struct {
	URL     string
	Missing string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not_found: missing %q at %s", e.Missing, e.URL)
}

// IsNotFound checks if an error is (or wraps) a NotFoundError
func IsNotFound(err error) (*NotFoundError, bool) {
	var nfErr *NotFoundError
	if errors.As(err, &nfErr) {
		return nfErr, true
	}
	return nil, false
}

// ParseError is returned when JSON or HTML structure was expected but the
// body was malformed. For list fetches the affected page is treated as
// empty; for content decodes only that chapter fails.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse_error: url=%s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError checks if an error is (or wraps) a ParseError
func IsParseError(err error) (*ParseError, bool) {
	var pErr *ParseError
	if errors.As(err, &pErr) {
		return pErr, true
	}
	return nil, false
}
