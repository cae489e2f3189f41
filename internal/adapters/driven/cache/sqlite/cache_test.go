package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(Config{
		Path: filepath.Join(t.TempDir(), "translations.db"),
		TTL:  ttl,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetSetRoundTrip(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "translated"))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "translated", got)
}

func TestSetOverwrites(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "first"))
	require.NoError(t, c.Set(ctx, "k", "second"))

	got, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestExpiredRowIsInvisible(t *testing.T) {
	c := newTestCache(t, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))

	// Backdate the row past the TTL rather than sleeping.
	_, err := c.db.Exec(`UPDATE translations SET inserted_at = ?`,
		time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPurgeExpired(t *testing.T) {
	c := newTestCache(t, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "old", "v"))
	_, err := c.db.Exec(`UPDATE translations SET inserted_at = ? WHERE key = 'old'`,
		time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "fresh", "v"))

	purged, err := c.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	_, ok, _ := c.Get(ctx, "fresh")
	assert.True(t, ok)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "translations.db")
	ctx := context.Background()

	c, err := New(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "k", "persisted"))
	require.NoError(t, c.Close())

	c2, err := New(Config{Path: path})
	require.NoError(t, err)
	defer c2.Close()

	got, ok, err := c2.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", got)
	assert.Equal(t, path, c2.Path())
}

func TestNegativeTTLNeverExpires(t *testing.T) {
	c := newTestCache(t, -1)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	_, err := c.db.Exec(`UPDATE translations SET inserted_at = 0`)
	require.NoError(t, err)

	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	purged, err := c.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged)
}
