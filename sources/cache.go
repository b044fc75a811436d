package sources

import (
	"sync"

	"rodoku/models"
)

// IdentifierCache maps source-local slugs to resolved catalogs so the content
// decoder can reuse identifiers the resolver already extracted. The cache is
// owned by the adapter instance (not process-global); it is guarded because
// page fetches within a batch run in parallel.
type IdentifierCache struct {
	mu       sync.RWMutex
	catalogs map[string]*models.Catalog
}

// NewIdentifierCache creates an empty cache
func NewIdentifierCache() *IdentifierCache {
	return &IdentifierCache{
		catalogs: make(map[string]*models.Catalog),
	}
}

// Get returns the cached catalog for a slug, if any
func (c *IdentifierCache) Get(slug string) (*models.Catalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	catalog, ok := c.catalogs[slug]
	return catalog, ok
}

// Put stores a catalog under its slug. Each distinct slug is written once;
// later writes are ignored, matching the write-once read-thereafter model.
func (c *IdentifierCache) Put(slug string, catalog *models.Catalog) {
	if slug == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.catalogs[slug]; exists {
		return
	}
	c.catalogs[slug] = catalog
}
