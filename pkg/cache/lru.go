package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/c360/semreason/errors"
)

// lruCache evicts the least recently used entry once maxSize is exceeded.
// With a positive ttl, entries also expire ttl after their last write.
type lruCache[V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List
	stats   *Statistics
	metrics *cacheMetrics
	evictFn EvictCallback[V]
	now     func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func newLRUCache[V any](ctx context.Context, maxSize int, opts *cacheOptions[V]) (*lruCache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "newLRUCache", "max size must be positive")
	}

	var metrics *cacheMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "newLRUCache", "metrics registration")
		}
	}

	c := &lruCache[V]{
		maxSize: maxSize,
		ttl:     opts.ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   NewStatistics(),
		metrics: metrics,
		evictFn: opts.evictCallback,
		now:     opts.clock,
	}

	if c.ttl > 0 && opts.cleanupInterval > 0 {
		cleanupCtx, cancel := context.WithCancel(ctx)
		c.cancel = cancel
		c.done = make(chan struct{})
		go c.cleanupLoop(cleanupCtx, opts.cleanupInterval)
	}

	return c, nil
}

func (c *lruCache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		c.recordMiss()
		return zero, false
	}

	entry := element.Value.(*Entry[V])
	now := c.now()
	if entry.IsExpired(now) {
		c.removeElementLocked(element)
		c.stats.Expiration()
		c.updateSizeLocked()
		c.mu.Unlock()
		c.notifyEvicted([]*Entry[V]{entry})
		c.recordMiss()
		return zero, false
	}

	c.order.MoveToFront(element)
	entry.AccessedAt = now
	value := entry.Value
	c.mu.Unlock()

	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
	return value, true
}

func (c *lruCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	now := c.now()
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}

	c.mu.Lock()
	c.stats.Set()
	if c.metrics != nil {
		c.metrics.recordSet()
	}

	if element, exists := c.items[key]; exists {
		entry := element.Value.(*Entry[V])
		entry.Value = value
		entry.ExpiresAt = expiresAt
		entry.AccessedAt = now
		c.order.MoveToFront(element)
		c.mu.Unlock()
		return false, nil
	}

	entry := &Entry[V]{Key: key, Value: value, CreatedAt: now, AccessedAt: now, ExpiresAt: expiresAt}
	c.items[key] = c.order.PushFront(entry)

	var evicted []*Entry[V]
	for len(c.items) > c.maxSize {
		back := c.order.Back()
		evicted = append(evicted, back.Value.(*Entry[V]))
		c.removeElementLocked(back)
		c.stats.Eviction()
		if c.metrics != nil {
			c.metrics.recordEviction()
		}
	}
	c.updateSizeLocked()
	c.mu.Unlock()

	c.notifyEvicted(evicted)
	return true, nil
}

func (c *lruCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false, nil
	}
	entry := element.Value.(*Entry[V])
	c.removeElementLocked(element)
	c.stats.Delete()
	if c.metrics != nil {
		c.metrics.recordDelete()
	}
	c.updateSizeLocked()
	c.mu.Unlock()

	c.notifyEvicted([]*Entry[V]{entry})
	return true, nil
}

func (c *lruCache[V]) DeleteFunc(match func(key string) bool) int {
	c.mu.Lock()
	var removed []*Entry[V]
	for element := c.order.Front(); element != nil; {
		next := element.Next()
		entry := element.Value.(*Entry[V])
		if match(entry.Key) {
			removed = append(removed, entry)
			c.removeElementLocked(element)
			c.stats.Delete()
			if c.metrics != nil {
				c.metrics.recordDelete()
			}
		}
		element = next
	}
	c.updateSizeLocked()
	c.mu.Unlock()

	c.notifyEvicted(removed)
	return len(removed)
}

func (c *lruCache[V]) Clear() error {
	c.mu.Lock()
	var removed []*Entry[V]
	if c.evictFn != nil {
		removed = make([]*Entry[V], 0, len(c.items))
		for element := c.order.Back(); element != nil; element = element.Prev() {
			removed = append(removed, element.Value.(*Entry[V]))
		}
	}
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.updateSizeLocked()
	c.mu.Unlock()

	c.notifyEvicted(removed)
	return nil
}

func (c *lruCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *lruCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		keys = append(keys, element.Value.(*Entry[V]).Key)
	}
	return keys
}

func (c *lruCache[V]) Stats() *Statistics {
	return c.stats
}

func (c *lruCache[V]) Close() error {
	if c.cancel != nil {
		c.cancel()
		<-c.done
		c.cancel = nil
	}
	return nil
}

// purgeExpired removes every expired entry and returns how many were removed.
func (c *lruCache[V]) purgeExpired() int {
	now := c.now()

	c.mu.Lock()
	var expired []*Entry[V]
	for element := c.order.Back(); element != nil; {
		prev := element.Prev()
		entry := element.Value.(*Entry[V])
		if entry.IsExpired(now) {
			expired = append(expired, entry)
			c.removeElementLocked(element)
			c.stats.Expiration()
		}
		element = prev
	}
	if len(expired) > 0 {
		c.updateSizeLocked()
	}
	c.mu.Unlock()

	c.notifyEvicted(expired)
	return len(expired)
}

func (c *lruCache[V]) cleanupLoop(ctx context.Context, interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *lruCache[V]) recordMiss() {
	c.stats.Miss()
	if c.metrics != nil {
		c.metrics.recordMiss()
	}
}

// notifyEvicted runs the eviction callback outside the lock.
func (c *lruCache[V]) notifyEvicted(entries []*Entry[V]) {
	if c.evictFn == nil {
		return
	}
	for _, entry := range entries {
		c.evictFn(entry.Key, entry.Value)
	}
}

// Must be called with mu held.
func (c *lruCache[V]) removeElementLocked(element *list.Element) {
	entry := element.Value.(*Entry[V])
	delete(c.items, entry.Key)
	c.order.Remove(element)
}

// Must be called with mu held.
func (c *lruCache[V]) updateSizeLocked() {
	c.stats.UpdateSize(int64(len(c.items)))
	if c.metrics != nil {
		c.metrics.updateSize(len(c.items))
	}
}
