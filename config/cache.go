package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// cacheDocument is the wire form of CacheConfig. Durations are strings
// such as "1h" so YAML and JSON files read the same way.
type cacheDocument struct {
	Enabled         *bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	MaxSize         *int    `json:"max_size,omitempty" yaml:"max_size,omitempty"`
	TTL             string  `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	CleanupInterval string  `json:"cleanup_interval,omitempty" yaml:"cleanup_interval,omitempty"`
	Type            *string `json:"type,omitempty" yaml:"type,omitempty"`
	Path            *string `json:"path,omitempty" yaml:"path,omitempty"`
}

func (c CacheConfig) document() cacheDocument {
	return cacheDocument{
		Enabled:         &c.Enabled,
		MaxSize:         &c.MaxSize,
		TTL:             c.TTL.String(),
		CleanupInterval: c.CleanupInterval.String(),
		Type:            &c.Type,
		Path:            &c.Path,
	}
}

// apply copies the fields present in doc. Absent fields keep their values.
func (c *CacheConfig) apply(doc cacheDocument) error {
	if doc.Enabled != nil {
		c.Enabled = *doc.Enabled
	}
	if doc.MaxSize != nil {
		c.MaxSize = *doc.MaxSize
	}
	if doc.Type != nil {
		c.Type = *doc.Type
	}
	if doc.Path != nil {
		c.Path = *doc.Path
	}
	for _, d := range []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"ttl", doc.TTL, &c.TTL},
		{"cleanup_interval", doc.CleanupInterval, &c.CleanupInterval},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("cache.%s: %w", d.field, err)
		}
		*d.dst = v
	}
	return nil
}

// MarshalYAML writes durations as strings.
func (c CacheConfig) MarshalYAML() (any, error) {
	return c.document(), nil
}

// UnmarshalYAML reads the LRU settings and the tier selection together.
func (c *CacheConfig) UnmarshalYAML(node *yaml.Node) error {
	var doc cacheDocument
	if err := node.Decode(&doc); err != nil {
		return err
	}
	return c.apply(doc)
}

// MarshalJSON writes durations as strings.
func (c CacheConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.document())
}

// UnmarshalJSON reads the LRU settings and the tier selection together.
func (c *CacheConfig) UnmarshalJSON(data []byte) error {
	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return c.apply(doc)
}
