package cache

import (
	"time"

	"github.com/c360/semreason/metric"
)

// Option configures cache behavior using the functional options pattern.
type Option[V any] func(*cacheOptions[V])

// cacheOptions holds internal configuration for cache instances.
// Statistics are always collected; metrics are optional.
type cacheOptions[V any] struct {
	metricsReg      *metric.MetricsRegistry
	metricsPrefix   string
	evictCallback   EvictCallback[V]
	ttl             time.Duration
	cleanupInterval time.Duration
	clock           func() time.Time
}

// WithMetrics exports cache statistics as Prometheus metrics labelled with
// prefix as the component. Ignored when registry is nil or prefix is empty.
func WithMetrics[V any](registry *metric.MetricsRegistry, prefix string) Option[V] {
	return func(opts *cacheOptions[V]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictionCallback sets a callback invoked whenever an entry leaves the cache.
func WithEvictionCallback[V any](callback EvictCallback[V]) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.evictCallback = callback
	}
}

// WithTTL expires entries ttl after their last write. A positive
// cleanupInterval also starts a background sweep; otherwise expired
// entries are dropped lazily on Get.
func WithTTL[V any](ttl, cleanupInterval time.Duration) Option[V] {
	return func(opts *cacheOptions[V]) {
		if ttl > 0 {
			opts.ttl = ttl
			opts.cleanupInterval = cleanupInterval
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(opts *cacheOptions[V]) {
		if now != nil {
			opts.clock = now
		}
	}
}

func applyOptions[V any](options ...Option[V]) *cacheOptions[V] {
	opts := &cacheOptions[V]{
		clock: time.Now,
	}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	return opts
}
