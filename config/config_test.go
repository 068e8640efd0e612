package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/pkg/security"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Scheduler.AutoReasoning)
	assert.Equal(t, 100, cfg.Scheduler.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.ReasoningDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Scheduler.EscapeDelay)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 1000, cfg.Cache.MaxSize)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, CacheTypeMemory, cfg.Cache.Type)
	assert.Equal(t, BackendRules, cfg.Reasoner.Backend)
	assert.Equal(t, ProfileBalanced, cfg.Reasoner.Profile)
	assert.False(t, cfg.NeedsNATS())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Reasoner.Backend = "hermit" }},
		{"unknown profile", func(c *Config) { c.Reasoner.Profile = "turbo" }},
		{"unknown size", func(c *Config) { c.Reasoner.OntologySize = "huge" }},
		{"negative timeout", func(c *Config) { c.Reasoner.DefaultTimeout = -time.Second }},
		{"bad remote prefix", func(c *Config) {
			c.Reasoner.Backend = BackendRemote
			c.Reasoner.Remote.Prefix = "semreason.*"
		}},
		{"explainer without model", func(c *Config) {
			c.Reasoner.Explainer = ExplainerConfig{Enabled: true, BaseURL: "http://localhost:8080/v1"}
		}},
		{"unknown cache type", func(c *Config) { c.Cache.Type = "redis" }},
		{"sqlite without path", func(c *Config) {
			c.Cache.Type = CacheTypeSQLite
			c.Cache.Path = ""
		}},
		{"zero batch size", func(c *Config) { c.Scheduler.BatchSize = 0 }},
		{"zero delay", func(c *Config) { c.Scheduler.ReasoningDelay = 0 }},
		{"bad publish subject", func(c *Config) { c.Scheduler.PublishSubject = "a..b" }},
		{"unknown store", func(c *Config) { c.Store.Type = "postgres" }},
		{"kv without bucket", func(c *Config) {
			c.Store.Type = StoreTypeKV
			c.Store.Bucket = ""
		}},
		{"gateway without addr", func(c *Config) { c.Gateway.Addr = "" }},
		{"gateway tls without cert", func(c *Config) { c.Gateway.TLS.Enabled = true }},
		{"nats tls bad version", func(c *Config) {
			c.Store.Type = StoreTypeKV
			c.NATS.TLS = security.ClientTLS{Enabled: true, MinVersion: "1.1"}
		}},
		{"kv retry shrinking backoff", func(c *Config) {
			c.Store.Type = StoreTypeKV
			c.Store.Retry.BackoffFactor = 0.5
		}},
		{"nats zero handler timeout", func(c *Config) {
			c.Store.Type = StoreTypeKV
			c.NATS.HandlerTimeout = 0
		}},
		{"nats required", func(c *Config) {
			c.Store.Type = StoreTypeKV
			c.NATS.URLs = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "got %v", err)
		})
	}
}

func TestValidate_DisabledSectionsSkipChecks(t *testing.T) {
	cfg := Default()
	cfg.Cache.Enabled = false
	cfg.Cache.Type = "whatever"
	cfg.Gateway.Enabled = false
	cfg.Gateway.Addr = ""
	assert.NoError(t, cfg.Validate())
}

func TestNeedsNATS(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.PublishSubject = "semreason.inconsistency"
	assert.True(t, cfg.NeedsNATS())

	cfg = Default()
	cfg.Reasoner.Remote.Serve = true
	assert.True(t, cfg.NeedsNATS())
}

func TestClone_Independent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.NATS.URLs[0] = "nats://other:4222"
	clone.Scheduler.BatchSize = 7

	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URLs[0])
	assert.Equal(t, 100, cfg.Scheduler.BatchSize)
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.NATS.Token = "s3cret"
	cfg.Reasoner.Explainer.APIKey = "sk-live"

	out := cfg.String()
	assert.NotContains(t, out, "s3cret")
	assert.NotContains(t, out, "sk-live")
	assert.Contains(t, out, "****")
	assert.Equal(t, "s3cret", cfg.NATS.Token)
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")

	cfg := Default()
	cfg.Scheduler.ReasoningDelay = 42 * time.Second
	cfg.Cache.Type = CacheTypeSQLite
	require.NoError(t, cfg.SaveToFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, loaded.Scheduler.ReasoningDelay)
	assert.Equal(t, CacheTypeSQLite, loaded.Cache.Type)
	assert.Equal(t, time.Hour, loaded.Cache.TTL)
}
