package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nordbeam/nb-inertia-sub000/ports"
)

// OnceCache implements ports.OnceCache using SQLite.
// Database-backed so memoized once-props survive restarts.
type OnceCache struct {
	db *DB
}

// NewOnceCache creates a new SQLite once cache.
func NewOnceCache(db *DB) *OnceCache {
	return &OnceCache{db: db}
}

// Get returns the live entry for key. Entries expired relative to now
// are reported as not found.
func (c *OnceCache) Get(ctx context.Context, key string, now time.Time) (ports.OnceEntry, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT key, value, expiry_ms
		FROM once_cache
		WHERE key = ? AND (expiry_ms = 0 OR expiry_ms > ?)
	`, key, now.UnixMilli())

	var entry ports.OnceEntry
	if err := row.Scan(&entry.Key, &entry.Value, &entry.Expiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.OnceEntry{}, ports.ErrNotFound
		}
		return ports.OnceEntry{}, fmt.Errorf("get once entry: %w", err)
	}
	return entry, nil
}

// Put stores an entry, replacing any existing value for its key.
func (c *OnceCache) Put(ctx context.Context, entry ports.OnceEntry) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO once_cache (key, value, expiry_ms, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expiry_ms = excluded.expiry_ms,
			updated_at = CURRENT_TIMESTAMP
	`, entry.Key, entry.Value, entry.Expiry)
	if err != nil {
		return fmt.Errorf("put once entry: %w", err)
	}
	return nil
}

// Delete removes an entry.
func (c *OnceCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM once_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete once entry: %w", err)
	}
	return nil
}

// PurgeExpired removes entries expired at now.
func (c *OnceCache) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM once_cache WHERE expiry_ms != 0 AND expiry_ms <= ?
	`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge once entries: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return int(n), nil
}

// Ensure interface compliance.
var _ ports.OnceCache = (*OnceCache)(nil)
