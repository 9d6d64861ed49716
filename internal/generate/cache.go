package generate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// Cache stores raw generation batches keyed by (word, era, count, generator
// identity). Entries never expire by time; reproducibility is favored over
// freshness, so staleness is handled by explicit invalidation only.
type Cache struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewCache creates an empty generation cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// CacheKey derives the cache key for a generation request. The word must
// already be normalized; the identity is the completer's vendor/model string.
func CacheKey(word, era string, count int, identity string) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%s", word, era, count, identity))
	return hex.EncodeToString(h[:])
}

// Get returns the cached raw batch for a key, if present.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch, ok := c.entries[key]
	return batch, ok
}

// Put stores a raw batch under a key, replacing any previous entry.
func (c *Cache) Put(key, batch string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = batch
}

// Invalidate removes the entry for one generation request.
// Returns true if an entry was removed.
func (c *Cache) Invalidate(word, era string, count int, identity string) bool {
	key := CacheKey(word, era, count, identity)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
}

// Len returns the number of cached batches.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
