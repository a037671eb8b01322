package templates

import (
	"path/filepath"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a loaded corpus is served from memory.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	corpus   []EmailTemplate
	loadedAt time.Time
}

// Cache holds loaded corpora keyed by file path.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   func() time.Time
	load    func(path string) ([]EmailTemplate, error)
	entries map[string]cacheEntry
}

// NewCache returns a cache that reloads a corpus once it is older than ttl.
// A non-positive ttl uses DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		clock:   time.Now,
		load:    Load,
		entries: make(map[string]cacheEntry),
	}
}

// WithClock overrides the time source. Used in tests.
func (c *Cache) WithClock(clock func() time.Time) *Cache {
	c.clock = clock
	return c
}

// WithLoader overrides how a corpus file is read.
func (c *Cache) WithLoader(load func(path string) ([]EmailTemplate, error)) *Cache {
	c.load = load
	return c
}

// Get returns the cached corpus for path, loading it when missing or stale.
// Load errors are not cached.
func (c *Cache) Get(path string) ([]EmailTemplate, error) {
	key := cacheKey(path)
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if entry, ok := c.entries[key]; ok && now.Sub(entry.loadedAt) < c.ttl {
		return entry.corpus, nil
	}
	corpus, err := c.load(path)
	if err != nil {
		return nil, err
	}
	c.entries[key] = cacheEntry{corpus: corpus, loadedAt: now}
	return corpus, nil
}

// Invalidate drops the cached corpus for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(path))
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
