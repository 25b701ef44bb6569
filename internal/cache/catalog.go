package cache

import (
	"sync"
	"time"

	"github.com/dialforge/campaign-api/internal/types"
)

// CatalogCache keeps the response category and voice catalogs in memory.
// Both change rarely but are read on every dashboard request, so each is
// cached with a TTL and refetched lazily after it expires.
type CatalogCache struct {
	mu  sync.RWMutex
	ttl time.Duration

	categories       []types.ResponseCategory
	categoriesLoaded time.Time

	voices       []types.Voice
	voicesLoaded time.Time
}

// NewCatalogCache creates a catalog cache with the given TTL.
func NewCatalogCache(ttl time.Duration) *CatalogCache {
	return &CatalogCache{ttl: ttl}
}

// Categories returns the cached categories, or nil when stale or unset.
func (c *CatalogCache) Categories() []types.ResponseCategory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.categories == nil || time.Since(c.categoriesLoaded) > c.ttl {
		return nil
	}
	return c.categories
}

// SetCategories stores a fresh category catalog.
func (c *CatalogCache) SetCategories(categories []types.ResponseCategory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = categories
	c.categoriesLoaded = time.Now()
}

// Voices returns the cached voices, or nil when stale or unset.
func (c *CatalogCache) Voices() []types.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.voices == nil || time.Since(c.voicesLoaded) > c.ttl {
		return nil
	}
	return c.voices
}

// SetVoices stores a fresh voice catalog.
func (c *CatalogCache) SetVoices(voices []types.Voice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voices = voices
	c.voicesLoaded = time.Now()
}

// InvalidateVoices drops the voice catalog after a write.
func (c *CatalogCache) InvalidateVoices() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voices = nil
}
