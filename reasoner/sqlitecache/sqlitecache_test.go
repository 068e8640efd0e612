package sqlitecache_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/reasoner/sqlitecache"
	"github.com/c360/semreason/testutil"
	"github.com/c360/semreason/triple"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func open(t *testing.T, path string, opts ...sqlitecache.Option) *sqlitecache.Cache {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "cache.db")
	}
	c, err := sqlitecache.Open(context.Background(), path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func entry(hash string, triples ...triple.Triple) reasoner.CacheEntry {
	res := testutil.Consistent(triples...)
	res.SetMetadata("explanations", []string{"a", "b"})
	return reasoner.CacheEntry{
		DatasetHash:   hash,
		Configuration: reasoner.Configuration{Kind: reasoner.KindFullInference, Timeout: time.Minute},
		Result:        res,
	}
}

func TestCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c := open(t, "")

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	e := entry("h1", testutil.T("a", "b", "c"))
	key := reasoner.CacheKey("h1", e.Configuration)
	require.NoError(t, c.Put(ctx, key, e))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "h1", got.DatasetHash)
	assert.Equal(t, e.Configuration, got.Configuration)
	assert.True(t, got.Result.Consistent)
	assert.True(t, got.Result.InferredDataset.Equal(e.Result.InferredDataset))
	assert.Equal(t, []string{"a", "b"}, got.Result.Metadata["explanations"])
	assert.Equal(t, 1, c.Len())
}

func TestCache_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	first, err := sqlitecache.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "k", entry("h", testutil.T("a", "b", "c"))))
	require.NoError(t, first.Close())

	second := open(t, path)
	_, ok, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_TTL(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	c := open(t, "", sqlitecache.WithTTL(time.Minute), sqlitecache.WithClock(clk.Now))

	require.NoError(t, c.Put(ctx, "k", entry("h")))
	clk.Advance(30 * time.Second)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	clk.Advance(time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired row deleted on read")
}

func TestCache_EvictsLeastRecentlyAccessed(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	c := open(t, "", sqlitecache.WithMaxRows(2), sqlitecache.WithTTL(0), sqlitecache.WithClock(clk.Now))

	require.NoError(t, c.Put(ctx, "a", entry("a")))
	clk.Advance(time.Second)
	require.NoError(t, c.Put(ctx, "b", entry("b")))
	clk.Advance(time.Second)

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	clk.Advance(time.Second)

	require.NoError(t, c.Put(ctx, "c", entry("c")))
	assert.Equal(t, 2, c.Len())

	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok, "b was least recently accessed")
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
}

func TestCache_InvalidateIsSubstringMatch(t *testing.T) {
	ctx := context.Background()
	c := open(t, "")

	cfg := reasoner.Configuration{Kind: reasoner.KindClassification}
	require.NoError(t, c.Put(ctx, reasoner.CacheKey("h1", cfg), entry("h1")))
	require.NoError(t, c.Put(ctx, reasoner.CacheKey("h2", cfg), entry("h2")))
	require.NoError(t, c.Put(ctx, "100%_literal", entry("x")))

	n, err := c.Invalidate(ctx, "%")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "pattern characters match literally")

	n, err = c.Invalidate(ctx, "h1_")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = c.Invalidate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, c.Len())
}

func TestCache_WithService(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewStubBackend()
	svc, err := reasoner.NewService(backend, reasoner.WithCache(open(t, "")))
	require.NoError(t, err)

	ds := triple.NewDataset(testutil.T("a", "b", "c"))
	for i := 0; i < 3; i++ {
		got, err := svc.InferTriples(ctx, ds, reasoner.KindFullInference)
		require.NoError(t, err)
		assert.True(t, got.Equal(ds))
	}
	assert.Equal(t, 1, backend.Reasons())
	assert.Equal(t, int64(2), svc.GetStatistics().CacheHits)
}
