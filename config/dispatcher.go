package config

import (
	"context"
	"fmt"

	"rodoku/models"
)

// ProgressFunc reports acquisition progress to the caller.
// Parameters: status message, progress (0.0-1.0), chapters done, chapters total
type ProgressFunc func(status string, progress float64, done, total int)

// ChapterSink receives each decoded chapter. What happens to it (storage,
// rendering, TTS) is the caller's concern, not the engine's.
type ChapterSink func(chapter models.Chapter, html string) error

// AcquireRequest describes one catalog-acquisition job.
type AcquireRequest struct {
	URL         string
	Concurrency int         // parallel per-chapter decodes; 0 means the configured default
	ListOnly    bool        // resolve + list without decoding chapter bodies
	Sink        ChapterSink // required unless ListOnly

	// OnList is called once with the merged, ordered chapter list before
	// any content decoding starts. Optional.
	OnList func([]models.Chapter)
}

// SourceFetchFunc is the function signature for source-specific acquisition functions
type SourceFetchFunc func(context.Context, *AcquireRequest, ProgressFunc) error

// registeredSources maps source names to their acquisition functions
var registeredSources = make(map[string]SourceFetchFunc)

// RegisterSource registers a source's acquisition function
// This should be called during initialization by the sources package
func RegisterSource(sourceName string, fetchFunc SourceFetchFunc) {
	registeredSources[sourceName] = fetchFunc
}

// ExecuteSourceFetch dispatches to the appropriate source-specific acquisition function
func ExecuteSourceFetch(ctx context.Context, sourceName string, req *AcquireRequest, progress ProgressFunc) error {
	fetchFunc, exists := registeredSources[sourceName]
	if !exists {
		return fmt.Errorf("acquisition not supported for source: %s", sourceName)
	}

	return fetchFunc(ctx, req, progress)
}

// RegisteredSources returns the names of all registered sources
func RegisteredSources() []string {
	names := make([]string, 0, len(registeredSources))
	for name := range registeredSources {
		names = append(names, name)
	}
	return names
}
