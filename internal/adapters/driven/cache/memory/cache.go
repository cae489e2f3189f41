// Package memory provides an in-process implementation of the
// translation cache port. Entries expire after a TTL and the store is
// bounded; when full, the oldest entries make room for new ones.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/glotdeck/glotdeck/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.TranslationCache = (*Cache)(nil)

// Default limits. A slide deck rarely holds more than a few hundred
// fragments, so the defaults comfortably cover many concurrent jobs.
const (
	DefaultTTL        = 24 * time.Hour
	DefaultMaxEntries = 10000
)

// Config tunes the cache.
type Config struct {
	// TTL is how long entries stay valid. Zero means the default;
	// negative disables expiry.
	TTL time.Duration

	// MaxEntries bounds the store. Zero means the default; negative
	// disables the bound.
	MaxEntries int
}

type entry struct {
	translated string
	insertedAt time.Time
}

// Cache is a bounded TTL map, safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time // test hook
}

// New creates a cache from cfg.
func New(cfg Config) *Cache {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}

	return &Cache{
		entries:    make(map[string]entry),
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		now:        time.Now,
	}
}

// Get returns the cached translation for key. Expired entries are
// treated as absent and removed.
func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if c.expired(e) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, ok := c.entries[key]; ok && c.expired(cur) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false, nil
	}
	return e.translated, true, nil
}

// Set stores the translation for key, overwriting any previous value.
func (c *Cache) Set(_ context.Context, key, translated string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.makeRoom()
	}
	c.entries[key] = entry{translated: translated, insertedAt: c.now()}
	return nil
}

// Close releases resources.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	return nil
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) expired(e entry) bool {
	return c.ttl > 0 && c.now().Sub(e.insertedAt) > c.ttl
}

// makeRoom evicts expired entries first, then the oldest remaining
// entry, until one slot is free. Caller holds the write lock.
func (c *Cache) makeRoom() {
	if c.maxEntries <= 0 || len(c.entries) < c.maxEntries {
		return
	}

	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
		}
	}

	for len(c.entries) >= c.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for key, e := range c.entries {
			if oldestKey == "" || e.insertedAt.Before(oldest) {
				oldestKey = key
				oldest = e.insertedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}
