package generate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ResponseCache is the caching contract the Generator needs. Both the
// in-memory Cache and the disk-backed FileCache satisfy it.
type ResponseCache interface {
	Get(key string) (string, bool)
	Put(key, batch string)
	Len() int
}

// FileCache is a ResponseCache persisted as a single JSON file, so cached
// generation batches survive across process runs and stay valid until
// explicitly invalidated.
type FileCache struct {
	mu      sync.Mutex
	path    string
	entries map[string]string
}

// OpenFileCache opens or creates a file-backed cache at the given path.
func OpenFileCache(path string) (*FileCache, error) {
	c := &FileCache{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("parsing cache: %w", err)
	}
	return c, nil
}

// Get returns the cached raw batch for a key, if present.
func (c *FileCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch, ok := c.entries[key]
	return batch, ok
}

// Put stores a raw batch and persists the cache. Persistence is best-effort;
// a failed write costs a regeneration later, not correctness.
func (c *FileCache) Put(key, batch string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = batch
	c.persistLocked()
}

// Invalidate removes the entry for one generation request and persists.
// Returns true if an entry was removed.
func (c *FileCache) Invalidate(word, era string, count int, identity string) (bool, error) {
	key := CacheKey(word, era, count, identity)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	delete(c.entries, key)
	return true, c.persistLocked()
}

// Clear removes all entries and persists.
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	return c.persistLocked()
}

// Len returns the number of cached batches.
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// persistLocked writes the entries atomically. Callers hold c.mu.
func (c *FileCache) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming cache: %w", err)
	}
	return nil
}
