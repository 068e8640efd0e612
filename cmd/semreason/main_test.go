package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semreason/config"
	"github.com/c360/semreason/natsclient"
	"github.com/c360/semreason/testutil"
	"github.com/c360/semreason/vocabulary"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SEMREASON_CONFIG", "SEMREASON_LOG_LEVEL", "SEMREASON_LOG_FORMAT",
		"SEMREASON_DEBUG", "SEMREASON_SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := parseFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, cfg.ConfigPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	require.NoError(t, validateFlags(cfg))
}

func TestParseFlags_EnvAndDebug(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEMREASON_LOG_FORMAT", "text")
	t.Setenv("SEMREASON_DEBUG", "true")

	cfg, err := parseFlags([]string{"-shutdown-timeout", "5s"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name string
		cfg  CLIConfig
	}{
		{"missing config file", CLIConfig{ConfigPath: "/nonexistent/semreason.yaml", LogLevel: "info", LogFormat: "json", ShutdownTimeout: time.Second}},
		{"bad level", CLIConfig{LogLevel: "trace", LogFormat: "json", ShutdownTimeout: time.Second}},
		{"bad format", CLIConfig{LogLevel: "info", LogFormat: "xml", ShutdownTimeout: time.Second}},
		{"bad timeout", CLIConfig{LogLevel: "info", LogFormat: "json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, validateFlags(&tt.cfg))
		})
	}

	assert.NoError(t, validateFlags(&CLIConfig{ShowVersion: true, LogLevel: "trace"}))
}

func TestRun_Version(t *testing.T) {
	clearEnv(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-v"}, &out, io.Discard))
	assert.Equal(t, "semreason version "+Version+"\n", out.String())
}

func TestRun_Validate(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "semreason.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  batch_size: 10\n"), 0o600))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-c", path, "-validate"}, &out, io.Discard))
	assert.Contains(t, out.String(), "Configuration is valid")
}

func TestRun_InvalidConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "semreason.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reasoner:\n  backend: hermit\n"), 0o600))

	err := run(context.Background(), []string{"-c", path, "-validate"}, io.Discard, io.Discard)
	assert.Error(t, err)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Gateway.Enabled = false
	cfg.Scheduler.ReasoningDelay = 10 * time.Millisecond
	cfg.Scheduler.EscapeDelay = 5 * time.Millisecond
	return cfg
}

func TestBuild_SeedIsReasonedOver(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.json")
	data, err := json.Marshal(testutil.AnimalOntology())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(seed, data, 0o600))

	cfg := testConfig()
	cfg.Store.SeedFile = seed

	a, err := build(context.Background(), cfg, setupLogger(io.Discard, "info", "json"))
	require.NoError(t, err)
	defer a.close(context.Background())

	inferred := testutil.T(testutil.Rex, vocabulary.RdfType, testutil.Mammal)
	require.Eventually(t, func() bool {
		ds, err := a.store.Get(context.Background())
		return err == nil && ds.Contains(inferred)
	}, 2*time.Second, 10*time.Millisecond)

	stats := a.sched.GetIntegrationStatistics()
	assert.True(t, stats.AutoReasoningEnabled)
	assert.GreaterOrEqual(t, stats.Scheduler.AutoInferences, int64(1))
	assert.Nil(t, a.nats)
	assert.Equal(t, 2, a.monitor.Count(), "no nats check without nats")
	a.monitor.Run(context.Background())
	for _, name := range []string{"store", "scheduler"} {
		_, ok := a.monitor.Get(name)
		assert.True(t, ok, name)
	}
	_, ok := a.monitor.Get("nats")
	assert.False(t, ok)
}

func TestBuild_BadSeedClosesEverything(t *testing.T) {
	cfg := testConfig()
	cfg.Store.SeedFile = filepath.Join(t.TempDir(), "missing.json")

	a, err := build(context.Background(), cfg, setupLogger(io.Discard, "info", "json"))
	require.Error(t, err)
	assert.Nil(t, a)
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Gateway.Enabled = true
	cfg.Gateway.Addr = "127.0.0.1:0"

	a, err := build(context.Background(), cfg, setupLogger(io.Discard, "info", "json"))
	require.NoError(t, err)
	defer a.close(context.Background())
	require.NotNil(t, a.server)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestBackendInfos(t *testing.T) {
	infos := backendInfos(config.BackendRules)
	require.Len(t, infos, 2)
	for _, b := range infos {
		assert.Equal(t, b.Name == config.BackendRules, b.Active)
		assert.NotEmpty(t, b.Kinds)
	}
}

func TestNATSOptions(t *testing.T) {
	cfg := config.Default().NATS
	cfg.Token = "secret"
	cfg.HandlerTimeout = 2 * time.Second

	opts, err := natsOptions(cfg, nil, setupLogger(io.Discard, "info", "json"))
	require.NoError(t, err)
	_, err = natsclient.NewClient("nats://127.0.0.1:4222", opts...)
	require.NoError(t, err)

	cfg.HandlerTimeout = 0
	opts, err = natsOptions(cfg, nil, setupLogger(io.Discard, "info", "json"))
	require.NoError(t, err)
	_, err = natsclient.NewClient("nats://127.0.0.1:4222", opts...)
	assert.Error(t, err, "zero handler timeout is rejected by the client")

	cfg.TLS.Enabled = true
	cfg.TLS.CAFiles = []string{filepath.Join(t.TempDir(), "missing.pem")}
	_, err = natsOptions(cfg, nil, setupLogger(io.Discard, "info", "json"))
	assert.Error(t, err)
}
