// Package memory provides in-memory implementations of storage ports.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nordbeam/nb-inertia-sub000/ports"
)

// OnceCache is an in-memory implementation of ports.OnceCache.
// Suitable for single-process deployments; entries vanish on restart.
type OnceCache struct {
	mu      sync.RWMutex
	entries map[string]ports.OnceEntry
}

// NewOnceCache creates a new in-memory once cache.
func NewOnceCache() *OnceCache {
	return &OnceCache{
		entries: make(map[string]ports.OnceEntry),
	}
}

// Get returns the live entry for key. Expired entries are treated as
// absent; they are removed lazily by PurgeExpired.
func (c *OnceCache) Get(ctx context.Context, key string, now time.Time) (ports.OnceEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return ports.OnceEntry{}, ports.ErrNotFound
	}
	if entry.Expiry != 0 && now.UnixMilli() >= entry.Expiry {
		return ports.OnceEntry{}, ports.ErrNotFound
	}
	return entry, nil
}

// Put stores an entry, replacing any existing value for its key.
func (c *OnceCache) Put(ctx context.Context, entry ports.OnceEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.Key] = entry
	return nil
}

// Delete removes an entry.
func (c *OnceCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// PurgeExpired removes entries expired at now.
func (c *OnceCache) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nowMillis := now.UnixMilli()
	removed := 0
	for key, entry := range c.entries {
		if entry.Expiry != 0 && nowMillis >= entry.Expiry {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (c *OnceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure interface compliance.
var _ ports.OnceCache = (*OnceCache)(nil)
