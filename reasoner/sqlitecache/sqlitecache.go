// Package sqlitecache is a persistent reasoner.ResultCache stored in a
// SQLite database. Entries survive restarts, expire after a TTL and are
// bounded by row count with least-recently-accessed eviction.
package sqlitecache

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/reasoner"
)

const component = "SQLiteCache"

// Defaults match the in-memory cache.
const (
	DefaultMaxRows = 1000
	DefaultTTL     = time.Hour
)

// Cache implements reasoner.ResultCache.
type Cache struct {
	db      *sql.DB
	maxRows int
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

var _ reasoner.ResultCache = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithMaxRows bounds the number of stored entries. Zero or less disables
// the bound.
func WithMaxRows(n int) Option {
	return func(c *Cache) { c.maxRows = n }
}

// WithTTL sets how long an entry stays valid. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Open opens or creates the cache database at path.
func Open(ctx context.Context, path string, opts ...Option) (*Cache, error) {
	c := &Cache{
		maxRows: DefaultMaxRows,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "sqlite-cache", "path", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapFatal(err, component, "Open", "open database")
	}
	// One writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.WrapFatal(err, component, "Open", "enable WAL")
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, errors.WrapFatal(err, component, "Open", "initialize schema")
	}

	c.db = db
	c.logger.Debug("Result cache opened", "max_rows", c.maxRows, "ttl", c.ttl)
	return c, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS reasoning_results (
	cache_key TEXT PRIMARY KEY,
	dataset_hash TEXT NOT NULL,
	configuration TEXT NOT NULL,
	result TEXT NOT NULL,
	stored_at INTEGER NOT NULL,
	accessed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_accessed ON reasoning_results(accessed_at);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Get implements reasoner.ResultCache. Expired rows are deleted on read.
func (c *Cache) Get(ctx context.Context, key string) (*reasoner.CacheEntry, bool, error) {
	var (
		hash, cfgJSON, resJSON string
		storedAt               int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT dataset_hash, configuration, result, stored_at FROM reasoning_results WHERE cache_key = ?`,
		key).Scan(&hash, &cfgJSON, &resJSON, &storedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable(err, "Get", "select entry")
	}

	now := c.now()
	stored := time.Unix(0, storedAt)
	if c.ttl > 0 && now.Sub(stored) > c.ttl {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM reasoning_results WHERE cache_key = ?`, key); err != nil {
			return nil, false, unavailable(err, "Get", "delete expired entry")
		}
		return nil, false, nil
	}

	entry := &reasoner.CacheEntry{DatasetHash: hash, StoredAt: stored}
	if err := json.Unmarshal([]byte(cfgJSON), &entry.Configuration); err != nil {
		return nil, false, errors.WrapInvalid(err, component, "Get", "decode configuration")
	}
	entry.Result = &reasoner.Result{}
	if err := json.Unmarshal([]byte(resJSON), entry.Result); err != nil {
		return nil, false, errors.WrapInvalid(err, component, "Get", "decode result")
	}
	normalizeMetadata(entry.Result)

	if _, err := c.db.ExecContext(ctx,
		`UPDATE reasoning_results SET accessed_at = ? WHERE cache_key = ?`, now.UnixNano(), key); err != nil {
		c.logger.Warn("Failed to touch cache entry", "error", err)
	}
	return entry, true, nil
}

// Put implements reasoner.ResultCache.
func (c *Cache) Put(ctx context.Context, key string, entry reasoner.CacheEntry) error {
	if entry.Result == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, component, "Put", "entry without result")
	}
	cfgJSON, err := json.Marshal(entry.Configuration)
	if err != nil {
		return errors.WrapInvalid(err, component, "Put", "encode configuration")
	}
	resJSON, err := json.Marshal(entry.Result)
	if err != nil {
		return errors.WrapInvalid(err, component, "Put", "encode result")
	}

	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = c.now()
	}
	_, err = c.db.ExecContext(ctx, `
INSERT INTO reasoning_results (cache_key, dataset_hash, configuration, result, stored_at, accessed_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET
	dataset_hash = excluded.dataset_hash,
	configuration = excluded.configuration,
	result = excluded.result,
	stored_at = excluded.stored_at,
	accessed_at = excluded.accessed_at`,
		key, entry.DatasetHash, string(cfgJSON), string(resJSON), storedAt.UnixNano(), c.now().UnixNano())
	if err != nil {
		return unavailable(err, "Put", "upsert entry")
	}

	return c.evict(ctx)
}

// evict keeps the maxRows most recently accessed rows.
func (c *Cache) evict(ctx context.Context) error {
	if c.maxRows <= 0 {
		return nil
	}
	res, err := c.db.ExecContext(ctx, `
DELETE FROM reasoning_results WHERE cache_key IN (
	SELECT cache_key FROM reasoning_results ORDER BY accessed_at DESC, cache_key LIMIT -1 OFFSET ?
)`, c.maxRows)
	if err != nil {
		return unavailable(err, "Put", "evict entries")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		c.logger.Debug("Evicted cache entries", "count", n)
	}
	return nil
}

// Invalidate implements reasoner.ResultCache. A non-empty pattern matches
// as a plain substring of the key.
func (c *Cache) Invalidate(ctx context.Context, pattern string) (int, error) {
	var (
		res sql.Result
		err error
	)
	if pattern == "" {
		res, err = c.db.ExecContext(ctx, `DELETE FROM reasoning_results`)
	} else {
		res, err = c.db.ExecContext(ctx, `DELETE FROM reasoning_results WHERE instr(cache_key, ?) > 0`, pattern)
	}
	if err != nil {
		return 0, unavailable(err, "Invalidate", "delete entries")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err, "Invalidate", "count deleted entries")
	}
	return int(n), nil
}

// Len implements reasoner.ResultCache. It returns 0 when the count fails.
func (c *Cache) Len() int {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM reasoning_results`).Scan(&n); err != nil {
		c.logger.Warn("Failed to count cache entries", "error", err)
		return 0
	}
	return n
}

// Close implements reasoner.ResultCache.
func (c *Cache) Close() error {
	return c.db.Close()
}

func unavailable(err error, method, action string) error {
	return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrCacheUnavailable, err), component, method, action)
}

// normalizeMetadata restores []string values that JSON decoded as []any.
func normalizeMetadata(r *reasoner.Result) {
	for k, v := range r.Metadata {
		items, ok := v.([]any)
		if !ok {
			continue
		}
		strs := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				strs = nil
				break
			}
			strs = append(strs, s)
		}
		if strs != nil {
			r.Metadata[k] = strs
		}
	}
}
