package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/semreason/errors"
)

// Config contains configuration for cache creation.
type Config struct {
	// Enabled determines if caching is enabled.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxSize is the maximum number of entries before LRU eviction.
	MaxSize int `json:"max_size" yaml:"max_size"`

	// TTL is the time-to-live for entries. Zero disables expiry.
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// CleanupInterval is how often expired entries are swept. Zero sweeps lazily.
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

// DefaultConfig returns the default cache configuration: 1000 entries,
// one hour TTL, swept every five minutes.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		MaxSize:         1000,
		TTL:             time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxSize <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("max_size must be positive, got %d", c.MaxSize))
	}
	if c.TTL < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("ttl cannot be negative, got %v", c.TTL))
	}
	if c.CleanupInterval < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("cleanup_interval cannot be negative, got %v", c.CleanupInterval))
	}
	return nil
}

// NewFromConfig creates a cache based on the provided configuration.
// Returns a noop cache if config.Enabled is false.
func NewFromConfig[V any](ctx context.Context, config Config, options ...Option[V]) (Cache[V], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if !config.Enabled {
		return NewNoop[V](), nil
	}

	if config.TTL > 0 {
		options = append(options, WithTTL[V](config.TTL, config.CleanupInterval))
	}
	return NewLRU[V](ctx, config.MaxSize, options...)
}

// NewLRU creates a new LRU cache with the specified maximum size. The
// context bounds the background sweep started by WithTTL.
func NewLRU[V any](ctx context.Context, maxSize int, options ...Option[V]) (Cache[V], error) {
	opts := applyOptions(options...)
	return newLRUCache[V](ctx, maxSize, opts)
}

// NewNoop creates a cache that stores nothing and always misses.
func NewNoop[V any]() Cache[V] {
	return &noopCache[V]{}
}

type noopCache[V any] struct{}

func (c *noopCache[V]) Get(_ string) (V, bool) {
	var zero V
	return zero, false
}

func (c *noopCache[V]) Set(_ string, _ V) (bool, error)    { return false, nil }
func (c *noopCache[V]) Delete(_ string) (bool, error)      { return false, nil }
func (c *noopCache[V]) DeleteFunc(_ func(string) bool) int { return 0 }
func (c *noopCache[V]) Clear() error                       { return nil }
func (c *noopCache[V]) Size() int                          { return 0 }
func (c *noopCache[V]) Keys() []string                     { return nil }
func (c *noopCache[V]) Stats() *Statistics                 { return nil }
func (c *noopCache[V]) Close() error                       { return nil }

// rawConfig mirrors Config with durations as strings ("1h", "300s").
type rawConfig struct {
	Enabled         *bool  `json:"enabled" yaml:"enabled"`
	MaxSize         *int   `json:"max_size" yaml:"max_size"`
	TTL             string `json:"ttl" yaml:"ttl"`
	CleanupInterval string `json:"cleanup_interval" yaml:"cleanup_interval"`
}

func (c *Config) apply(raw rawConfig) error {
	if raw.Enabled != nil {
		c.Enabled = *raw.Enabled
	}
	if raw.MaxSize != nil {
		c.MaxSize = *raw.MaxSize
	}
	if raw.TTL != "" {
		ttl, err := parseDuration(raw.TTL, "ttl")
		if err != nil {
			return err
		}
		c.TTL = ttl
	}
	if raw.CleanupInterval != "" {
		interval, err := parseDuration(raw.CleanupInterval, "cleanup_interval")
		if err != nil {
			return err
		}
		c.CleanupInterval = interval
	}
	return nil
}

// UnmarshalJSON accepts duration strings such as "1h" or "30s".
// Fields absent from the document keep their current values.
func (c *Config) UnmarshalJSON(data []byte) error {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return c.apply(raw)
}

// UnmarshalYAML accepts duration strings such as "1h" or "30s".
// Fields absent from the document keep their current values.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw rawConfig
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return c.apply(raw)
}

func parseDuration(s, field string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.WrapInvalid(err, "cache", "parseDuration", fmt.Sprintf("parse %s", field))
	}
	return d, nil
}
