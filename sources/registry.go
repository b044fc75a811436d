package sources

import (
	"context"
	"log"
	"net/url"
	"strings"
	"sync"

	"rodoku/config"
	"rodoku/fetch"
)

var (
	sharedClientOnce sync.Once
	sharedClient     fetch.Client
)

// httpClient returns the process-wide web client, built on first use so
// sources that are never exercised cost nothing.
func httpClient() fetch.Client {
	sharedClientOnce.Do(func() {
		client, err := fetch.NewWebClient()
		if err != nil {
			log.Fatalf("[Sources] Failed to create web client: %v", err)
		}
		sharedClient = client
	})
	return sharedClient
}

// acquireFunc adapts a source constructor into the dispatcher's signature.
// Settings are loaded per job so config file edits apply without a restart.
func acquireFunc(build func(fetch.Client) Source) config.SourceFetchFunc {
	var (
		once sync.Once
		src  Source
	)
	return func(ctx context.Context, req *config.AcquireRequest, progress config.ProgressFunc) error {
		once.Do(func() {
			src = build(httpClient())
		})
		return Acquire(ctx, src, config.LoadSettings(), req, progress)
	}
}

func init() {
	config.RegisterSource(novelpressName, acquireFunc(func(c fetch.Client) Source {
		return NewNovelpress(c)
	}))
	config.RegisterSource(readerhubName, acquireFunc(func(c fetch.Client) Source {
		return NewReaderhub(c)
	}))
}

// sourceHosts maps registrable domains to source names
var sourceHosts = map[string]string{
	"novelpress.org": novelpressName,
	"readerhub.io":   readerhubName,
}

// DetectSource returns the registered source name for a catalog URL, or ""
// when no source claims its host.
func DetectSource(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	return sourceHosts[host]
}
