// Package sqlite provides a persistent implementation of the
// translation cache port backed by modernc.org/sqlite, a pure Go
// SQLite driver requiring no CGO. Translations survive process
// restarts, so re-uploading a revised deck only pays for the fragments
// that actually changed.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/glotdeck/glotdeck/internal/core/domain"
	"github.com/glotdeck/glotdeck/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.TranslationCache = (*Cache)(nil)

// DefaultTTL matches the in-memory cache default.
const DefaultTTL = 24 * time.Hour

const schema = `
CREATE TABLE IF NOT EXISTS translations (
	key         TEXT PRIMARY KEY,
	translated  TEXT NOT NULL,
	inserted_at INTEGER NOT NULL
);
`

// Config tunes the cache.
type Config struct {
	// Path is the database file. Empty defaults to
	// ~/.glotdeck/data/translations.db.
	Path string

	// TTL is how long entries stay valid. Zero means the default;
	// negative disables expiry.
	TTL time.Duration
}

// Cache is a single-table SQLite store, safe for concurrent use via
// SQLite's own locking in WAL mode.
type Cache struct {
	db   *sql.DB
	ttl  time.Duration
	path string
}

// New opens (or creates) the cache database at cfg.Path.
func New(cfg Config) (*Cache, error) {
	if cfg.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		cfg.Path = filepath.Join(home, ".glotdeck", "data", "translations.db")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db, ttl: cfg.TTL, path: cfg.Path}, nil
}

// Get returns the cached translation for key. The TTL filter lives in
// the query, so a logically expired row can never be returned.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT translated FROM translations WHERE key = ?`
	args := []any{key}
	if c.ttl > 0 {
		query += ` AND inserted_at > ?`
		args = append(args, time.Now().Add(-c.ttl).Unix())
	}

	var translated string
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&translated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return translated, true, nil
}

// Set stores the translation for key, overwriting any previous value.
func (c *Cache) Set(ctx context.Context, key, translated string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO translations (key, translated, inserted_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			translated = excluded.translated,
			inserted_at = excluded.inserted_at
	`, key, translated, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// PurgeExpired removes rows past their TTL and returns how many went.
// Expired rows are already invisible to Get; purging just reclaims space.
func (c *Cache) PurgeExpired(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM translations WHERE inserted_at <= ?`,
		time.Now().Add(-c.ttl).Unix())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return res.RowsAffected()
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
