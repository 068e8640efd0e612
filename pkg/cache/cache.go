// Package cache provides a generic, thread-safe LRU cache with optional
// time-to-live expiry, always-on statistics and optional Prometheus metrics.
package cache

import (
	"time"

	"github.com/c360/semreason/errors"
)

// Cache represents a generic cache keyed by string.
type Cache[V any] interface {
	// Get retrieves a value by key. Expired entries are reported as misses.
	Get(key string) (V, bool)

	// Set stores a value. Returns true if a new entry was created, false if updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// DeleteFunc removes every entry whose key satisfies match and returns
	// how many were removed.
	DeleteFunc(match func(key string) bool) int

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns all keys, most recently used first.
	Keys() []string

	// Stats returns cache statistics, nil for the noop cache.
	Stats() *Statistics

	// Close stops background cleanup.
	Close() error
}

// EvictCallback is called when an entry leaves the cache through eviction,
// expiry or deletion.
type EvictCallback[V any] func(key string, value V)

// Entry represents a cached value with metadata.
type Entry[V any] struct {
	Key        string
	Value      V
	CreatedAt  time.Time
	ExpiresAt  time.Time // zero means no expiration
	AccessedAt time.Time
}

// IsExpired reports whether the entry is past its expiry at now.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
