// Package cache provides caching utilities for schema loading.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/usestring/baselib/pkg/schema"
)

// DocumentCache provides thread-safe LRU caching for loaded schema documents.
type DocumentCache struct {
	cache *lru.Cache[string, *schema.Document]
}

var _ schema.Cache = (*DocumentCache)(nil)

// NewDocumentCache creates a new LRU cache with the specified maximum number of items.
func NewDocumentCache(maxItems int) (*DocumentCache, error) {
	c, err := lru.New[string, *schema.Document](maxItems)
	if err != nil {
		return nil, err
	}
	return &DocumentCache{cache: c}, nil
}

// Get retrieves a document from the cache by its file path.
// Returns the document and true if found, nil and false otherwise.
func (c *DocumentCache) Get(path string) (*schema.Document, bool) {
	return c.cache.Get(path)
}

// Put adds or updates a document in the cache.
func (c *DocumentCache) Put(path string, doc *schema.Document) {
	c.cache.Add(path, doc)
}

// Len returns the current number of items in the cache.
func (c *DocumentCache) Len() int {
	return c.cache.Len()
}

// Purge drops every cached document.
func (c *DocumentCache) Purge() {
	c.cache.Purge()
}

// LoaderOptions returns the loader options for a cache of maxItems
// documents. A non-positive size disables caching.
func LoaderOptions(maxItems int) ([]schema.LoaderOption, error) {
	if maxItems <= 0 {
		return nil, nil
	}
	c, err := NewDocumentCache(maxItems)
	if err != nil {
		return nil, err
	}
	return []schema.LoaderOption{schema.WithCache(c)}, nil
}
