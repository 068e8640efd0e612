package reasoner

import (
	"context"
	"strings"
	"time"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/pkg/cache"
)

// CacheEntry is a stored reasoning result. Entries only ever hold
// consistent results.
type CacheEntry struct {
	DatasetHash   string        `json:"dataset_hash"`
	Configuration Configuration `json:"configuration"`
	Result        *Result       `json:"result"`
	StoredAt      time.Time     `json:"stored_at"`
}

// ResultCache stores reasoning results by cache key. Implementations must
// be safe for concurrent use and must not let callers mutate stored
// results. Errors are reported wrapping errors.ErrCacheUnavailable; the
// service treats them as misses.
type ResultCache interface {
	Get(ctx context.Context, key string) (*CacheEntry, bool, error)
	Put(ctx context.Context, key string, entry CacheEntry) error

	// Invalidate removes entries whose key contains pattern, or every
	// entry when pattern is empty, and returns how many were removed.
	Invalidate(ctx context.Context, pattern string) (int, error)

	Len() int
	Close() error
}

// MemoryCache is a ResultCache backed by the in-process LRU cache.
type MemoryCache struct {
	entries cache.Cache[*CacheEntry]
}

// NewMemoryCache builds a memory cache from cache configuration. Options
// such as cache.WithMetrics are passed to the underlying LRU.
func NewMemoryCache(ctx context.Context, cfg cache.Config, opts ...cache.Option[*CacheEntry]) (*MemoryCache, error) {
	if !cfg.Enabled {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "MemoryCache", "NewMemoryCache", "cache disabled")
	}
	entries, err := cache.NewFromConfig[*CacheEntry](ctx, cfg, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "MemoryCache", "NewMemoryCache", "create lru")
	}
	return &MemoryCache{entries: entries}, nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (*CacheEntry, bool, error) {
	entry, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	return cloneEntry(entry), true, nil
}

func (m *MemoryCache) Put(_ context.Context, key string, entry CacheEntry) error {
	if _, err := m.entries.Set(key, cloneEntry(&entry)); err != nil {
		return errors.WrapTransient(errors.ErrCacheUnavailable, "MemoryCache", "Put", err.Error())
	}
	return nil
}

func (m *MemoryCache) Invalidate(_ context.Context, pattern string) (int, error) {
	if pattern == "" {
		n := m.entries.Size()
		if err := m.entries.Clear(); err != nil {
			return 0, errors.WrapTransient(errors.ErrCacheUnavailable, "MemoryCache", "Invalidate", err.Error())
		}
		return n, nil
	}
	return m.entries.DeleteFunc(func(key string) bool {
		return strings.Contains(key, pattern)
	}), nil
}

func (m *MemoryCache) Len() int {
	return m.entries.Size()
}

// Stats exposes the underlying LRU statistics.
func (m *MemoryCache) Stats() *cache.Statistics {
	return m.entries.Stats()
}

func (m *MemoryCache) Close() error {
	return m.entries.Close()
}

func cloneEntry(e *CacheEntry) *CacheEntry {
	return &CacheEntry{
		DatasetHash:   e.DatasetHash,
		Configuration: e.Configuration,
		Result:        e.Result.Clone(),
		StoredAt:      e.StoredAt,
	}
}
