package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestLRU(t *testing.T, size int, opts ...Option[string]) Cache[string] {
	t.Helper()
	c, err := NewLRU[string](context.Background(), size, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLRU_BasicOperations(t *testing.T) {
	c := newTestLRU(t, 10)

	_, ok := c.Get("key1")
	assert.False(t, ok)

	isNew, err := c.Set("key1", "value1")
	require.NoError(t, err)
	assert.True(t, isNew)

	v, ok := c.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", v)

	isNew, err = c.Set("key1", "value2")
	require.NoError(t, err)
	assert.False(t, isNew)
	v, _ = c.Get("key1")
	assert.Equal(t, "value2", v)

	deleted, err := c.Delete("key1")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = c.Delete("key1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, 0, c.Size())
}

func TestLRU_EmptyKeyRejected(t *testing.T) {
	c := newTestLRU(t, 10)
	_, err := c.Set("", "v")
	assert.Error(t, err)
	_, err = c.Delete("")
	assert.Error(t, err)
}

func TestLRU_InvalidSize(t *testing.T) {
	_, err := NewLRU[string](context.Background(), 0)
	assert.Error(t, err)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := newTestLRU(t, 3, WithEvictionCallback[string](func(key string, _ string) {
		evicted = append(evicted, key)
	}))

	for i := 1; i <= 3; i++ {
		_, _ = c.Set(fmt.Sprintf("k%d", i), "v")
	}
	// Touch k1 so k2 becomes the eviction candidate
	_, _ = c.Get("k1")
	_, _ = c.Set("k4", "v")

	assert.Equal(t, 3, c.Size())
	_, ok := c.Get("k2")
	assert.False(t, ok)
	assert.Equal(t, []string{"k2"}, evicted)
	assert.Equal(t, []string{"k4", "k1", "k3"}, c.Keys())
	assert.Equal(t, int64(1), c.Stats().Evictions())
}

func TestLRU_TTLExpiresLazily(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := newTestLRU(t, 10,
		WithTTL[string](time.Hour, 0),
		WithClock[string](clock.Now))

	_, _ = c.Set("k", "v")
	clock.Advance(59 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
	assert.Equal(t, int64(1), c.Stats().Expirations())
}

func TestLRU_TTLRefreshedOnWrite(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := newTestLRU(t, 10,
		WithTTL[string](time.Minute, 0),
		WithClock[string](clock.Now))

	_, _ = c.Set("k", "v1")
	clock.Advance(50 * time.Second)
	_, _ = c.Set("k", "v2")
	clock.Advance(50 * time.Second)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestLRU_BackgroundSweep(t *testing.T) {
	c := newTestLRU(t, 10, WithTTL[string](20*time.Millisecond, 5*time.Millisecond))
	_, _ = c.Set("k", "v")

	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLRU_DeleteFunc(t *testing.T) {
	c := newTestLRU(t, 10)
	_, _ = c.Set("abc_full_inference", "1")
	_, _ = c.Set("abc_classification", "2")
	_, _ = c.Set("def_full_inference", "3")

	removed := c.DeleteFunc(func(key string) bool { return key[:3] == "abc" })
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"def_full_inference"}, c.Keys())
}

func TestLRU_ClearAndStats(t *testing.T) {
	c := newTestLRU(t, 10)
	_, _ = c.Set("a", "1")
	_, _ = c.Set("b", "2")
	_, _ = c.Get("a")
	_, _ = c.Get("missing")

	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Size())

	s := c.Stats().Summary()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(2), s.Sets)
	assert.Equal(t, int64(2), s.MaxSize)
	assert.Equal(t, int64(0), s.CurrentSize)
	assert.InDelta(t, 0.5, s.HitRatio, 0.0001)
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := newTestLRU(t, 50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				_, _ = c.Set(key, "v")
				_, _ = c.Get(key)
				if i%10 == 0 {
					c.DeleteFunc(func(k string) bool { return k == key })
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 50)
}

func TestNoopCache(t *testing.T) {
	c := NewNoop[string]()
	isNew, err := c.Set("k", "v")
	require.NoError(t, err)
	assert.False(t, isNew)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.DeleteFunc(func(string) bool { return true }))
	assert.Nil(t, c.Stats())
	assert.NoError(t, c.Close())
}
