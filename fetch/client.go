package fetch

import (
	"context"
	"fmt"
	"log"
	"net/http/cookiejar"
	"time"

	"github.com/gocolly/colly"
	"golang.org/x/net/publicsuffix"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"

// Response carries the portion of an HTTP exchange the fetchers care about.
// Rate-limit and endpoint-not-found detection is done on the body by the
// source adapters, because observed sources return both with HTTP 200.
type Response struct {
	StatusCode int
	Body       string
}

// Client abstracts the HTTP collaborator. The engine needs a page GET and a
// form POST; cookies, compression and headers are the implementation's
// concern. Tests inject fakes.
type Client interface {
	Get(ctx context.Context, targetURL string) (*Response, error)
	PostForm(ctx context.Context, targetURL string, form map[string]string) (*Response, error)
}

// WebClient is the default Client implementation, backed by colly collectors
// with automatic response decompression and a shared cookie jar.
type WebClient struct {
	jar     *cookiejar.Jar
	timeout time.Duration
}

// NewWebClient creates a WebClient with a publicsuffix-aware cookie jar.
func NewWebClient() (*WebClient, error) {
	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &WebClient{
		jar:     jar,
		timeout: 30 * time.Second,
	}, nil
}

// Get fetches targetURL and returns the response regardless of status code.
// A fresh collector is created per request so response callbacks never leak
// between calls.
func (c *WebClient) Get(ctx context.Context, targetURL string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := c.newCollector()

	var resp Response
	var gotResponse bool
	var transportErr error

	collector.OnResponse(func(r *colly.Response) {
		c.captureResponse(r, &resp, targetURL)
		gotResponse = true
	})

	collector.OnError(func(r *colly.Response, err error) {
		// Non-2xx still carries a body we need for marker detection
		if r != nil && len(r.Body) > 0 {
			c.captureResponse(r, &resp, targetURL)
			gotResponse = true
			return
		}
		transportErr = err
	})

	if err := collector.Visit(targetURL); err != nil && !gotResponse {
		return nil, fmt.Errorf("request failed for %s: %w", targetURL, err)
	}
	collector.Wait()

	if transportErr != nil {
		return nil, fmt.Errorf("request failed for %s: %w", targetURL, transportErr)
	}
	if !gotResponse {
		return nil, fmt.Errorf("no response received for %s", targetURL)
	}

	return &resp, nil
}

// PostForm submits a form POST and returns the response regardless of status.
func (c *WebClient) PostForm(ctx context.Context, targetURL string, form map[string]string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := c.newCollector()

	var resp Response
	var gotResponse bool
	var transportErr error

	collector.OnResponse(func(r *colly.Response) {
		c.captureResponse(r, &resp, targetURL)
		gotResponse = true
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && len(r.Body) > 0 {
			c.captureResponse(r, &resp, targetURL)
			gotResponse = true
			return
		}
		transportErr = err
	})

	if err := collector.Post(targetURL, form); err != nil && !gotResponse {
		return nil, fmt.Errorf("post failed for %s: %w", targetURL, err)
	}
	collector.Wait()

	if transportErr != nil {
		return nil, fmt.Errorf("post failed for %s: %w", targetURL, transportErr)
	}
	if !gotResponse {
		return nil, fmt.Errorf("no response received for %s", targetURL)
	}

	return &resp, nil
}

// newCollector builds a single-use collector with shared cookies
func (c *WebClient) newCollector() *colly.Collector {
	collector := colly.NewCollector(
		colly.UserAgent(defaultUserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(c.timeout)
	collector.SetCookieJar(c.jar)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Encoding", "gzip, deflate, br")
	})

	return collector
}

// captureResponse decompresses the body if needed and fills resp
func (c *WebClient) captureResponse(r *colly.Response, resp *Response, targetURL string) {
	body := r.Body

	decompressed, wasCompressed, err := decompressBody(body, r.Headers.Get("Content-Encoding"))
	if err != nil {
		log.Printf("[WebClient] Failed to decompress response from %s: %v", targetURL, err)
	} else if wasCompressed {
		body = decompressed
	}

	resp.StatusCode = r.StatusCode
	resp.Body = string(body)
}
