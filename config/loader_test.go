package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semreason/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoader_YAML(t *testing.T) {
	path := writeFile(t, "semreason.yaml", `
reasoner:
  backend: remote
  profile: fast
  remote:
    prefix: reasoning.backend
scheduler:
  batch_size: 25
  reasoning_delay: 2s
cache:
  type: sqlite
  path: /var/lib/semreason/cache.db
  ttl: 30m
`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, BackendRemote, cfg.Reasoner.Backend)
	assert.Equal(t, ProfileFast, cfg.Reasoner.Profile)
	assert.Equal(t, "reasoning.backend", cfg.Reasoner.Remote.Prefix)
	assert.Equal(t, "semreason-backend", cfg.Reasoner.Remote.Queue, "untouched defaults survive")
	assert.Equal(t, 25, cfg.Scheduler.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.ReasoningDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Scheduler.EscapeDelay)
	assert.Equal(t, CacheTypeSQLite, cfg.Cache.Type)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 1000, cfg.Cache.MaxSize)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoader_JSON(t *testing.T) {
	path := writeFile(t, "semreason.json", `{
		"scheduler": {"auto_reasoning": false, "escape_delay": "250ms"},
		"store": {"type": "kv", "bucket": "TRIPLES"}
	}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.False(t, cfg.Scheduler.AutoReasoning)
	assert.Equal(t, 250*time.Millisecond, cfg.Scheduler.EscapeDelay)
	assert.Equal(t, StoreTypeKV, cfg.Store.Type)
	assert.Equal(t, "TRIPLES", cfg.Store.Bucket)
}

func TestLoader_LayersLastWins(t *testing.T) {
	base := writeFile(t, "base.yaml", "scheduler:\n  batch_size: 50\n  reasoning_delay: 2s\n")
	prod := writeFile(t, "prod.yaml", "scheduler:\n  batch_size: 500\n")

	l := NewLoader()
	l.AddLayer(base)
	l.AddLayer(prod)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Scheduler.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.ReasoningDelay)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("SEMREASON_NATS_URLS", "nats://a:4222, nats://b:4222")
	t.Setenv("SEMREASON_REASONER_PROFILE", "comprehensive")
	t.Setenv("SEMREASON_SCHEDULER_BATCH_SIZE", "7")
	t.Setenv("SEMREASON_SCHEDULER_REASONING_DELAY", "1500ms")
	t.Setenv("SEMREASON_CACHE_ENABLED", "false")
	t.Setenv("SEMREASON_GATEWAY_ADDR", ":9090")
	t.Setenv("SEMREASON_STORE_RETRY_MAX_RETRIES", "5")
	t.Setenv("SEMREASON_NATS_DRAIN_TIMEOUT", "7s")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.NATS.URLs)
	assert.Equal(t, ProfileComprehensive, cfg.Reasoner.Profile)
	assert.Equal(t, 7, cfg.Scheduler.BatchSize)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scheduler.ReasoningDelay)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, ":9090", cfg.Gateway.Addr)
	assert.Equal(t, 5, cfg.Store.Retry.MaxRetries)
	assert.Equal(t, 7*time.Second, cfg.NATS.DrainTimeout)
	assert.Equal(t, 30*time.Second, cfg.NATS.PingInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.Store.Retry.InitialDelay)
}

func TestLoader_EnvOverrideParseError(t *testing.T) {
	t.Setenv("SEMREASON_SCHEDULER_BATCH_SIZE", "many")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "SEMREASON_SCHEDULER_BATCH_SIZE")
}

func TestLoader_ValidationToggle(t *testing.T) {
	path := writeFile(t, "bad.yaml", "reasoner:\n  backend: hermit\n")

	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	l := NewLoader()
	l.EnableValidation(false)
	cfg, err := l.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hermit", cfg.Reasoner.Backend)
}

func TestLoader_RejectsFiles(t *testing.T) {
	t.Run("extension", func(t *testing.T) {
		path := writeFile(t, "semreason.toml", "x = 1")
		_, err := NewLoader().LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only YAML or JSON")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		path := writeFile(t, "broken.yaml", "scheduler: [unclosed")
		_, err := NewLoader().LoadFile(path)
		assert.Error(t, err)
	})

	t.Run("too deep", func(t *testing.T) {
		doc := strings.Repeat("[", maxDepth+2) + strings.Repeat("]", maxDepth+2)
		path := writeFile(t, "deep.json", `{"x": `+doc+`}`)
		_, err := NewLoader().LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nesting too deep")
	})

	t.Run("directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "dir.yaml")
		require.NoError(t, os.Mkdir(dir, 0700))
		_, err := NewLoader().LoadFile(dir)
		assert.Error(t, err)
	})
}

func TestDeepMergeMaps(t *testing.T) {
	base := map[string]any{"a": map[string]any{"x": 1, "y": 2}, "b": "keep"}
	override := map[string]any{"a": map[string]any{"y": 3}, "c": nil}

	merged := deepMergeMaps(base, override)
	assert.Equal(t, map[string]any{"a": map[string]any{"x": 1, "y": 3}, "b": "keep"}, merged)
	assert.Equal(t, 2, base["a"].(map[string]any)["y"], "base is not mutated")
}
