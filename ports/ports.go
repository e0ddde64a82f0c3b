// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"
)

// Clock abstracts time for testability. Once-prop expiry arithmetic is
// computed against this clock.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers (request ids).
type IDGenerator interface {
	New() string
}

// ErrNotFound is returned by OnceCache.Get when no live entry exists.
var ErrNotFound = errors.New("not found")

// OnceEntry is a memoized once-prop value with its expiry metadata.
type OnceEntry struct {
	// Key is the cache key the entry is stored under.
	Key string

	// Value is the JSON-encoded prop value.
	Value []byte

	// Expiry is the absolute expiry in epoch-millis, 0 if unbounded.
	Expiry int64
}

// OnceCache memoizes evaluated once-prop values server-side so a thunk is
// not re-invoked before its expiry. The client keeps its own cache; this
// store only spares the server recomputation.
type OnceCache interface {
	// Get returns the live entry for key, or ErrNotFound when the key is
	// absent or expired relative to now.
	Get(ctx context.Context, key string, now time.Time) (OnceEntry, error)

	// Put stores an entry, replacing any existing value for its key.
	Put(ctx context.Context, entry OnceEntry) error

	// Delete removes an entry.
	Delete(ctx context.Context, key string) error

	// PurgeExpired removes entries expired at now and reports how many.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
