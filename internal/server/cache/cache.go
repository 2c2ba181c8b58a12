// Package cache holds rendered catalog documents between harvests.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CatalogKey is the key of the rendered data.json document.
const CatalogKey = "data.json"

// Cache wraps go-cache with typed accessors for rendered documents.
type Cache struct {
	store *gocache.Cache
}

// New creates a new cache with the given TTL and cleanup interval.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a rendered document.
func (c *Cache) Get(key string) ([]byte, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	doc, ok := v.([]byte)
	return doc, ok
}

// Set stores a rendered document with the default TTL.
func (c *Cache) Set(key string, doc []byte) {
	c.store.Set(key, doc, gocache.DefaultExpiration)
}

// Delete removes a document.
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Clear removes all documents.
func (c *Cache) Clear() {
	c.store.Flush()
}

// ItemCount returns the number of cached documents.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}

// Stats returns cache statistics.
type Stats struct {
	ItemCount int `json:"item_count"`
}

// GetStats returns current cache statistics.
func (c *Cache) GetStats() Stats {
	return Stats{
		ItemCount: c.store.ItemCount(),
	}
}
