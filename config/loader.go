package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/semreason/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SEMREASON"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  EnvPrefix,
		lookupEnv:  os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer. Later layers win.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load starts from Default, merges every layer, applies environment
// overrides and validates.
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		raw, err := loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "load "+path)
		}
		merged = deepMergeMaps(merged, raw)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "decode configuration")
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "apply environment overrides")
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadRaw reads a YAML or JSON file as a generic map.
func loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validateDepth(raw, 0); err != nil {
		return nil, fmt.Errorf("invalid structure: %w", err)
	}
	return raw, nil
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	o := envOverrides{l: l}

	o.setStrings("NATS_URLS", &cfg.NATS.URLs)
	o.setString("NATS_USERNAME", &cfg.NATS.Username)
	o.setString("NATS_PASSWORD", &cfg.NATS.Password)
	o.setString("NATS_TOKEN", &cfg.NATS.Token)
	o.setDuration("NATS_PING_INTERVAL", &cfg.NATS.PingInterval)
	o.setDuration("NATS_DRAIN_TIMEOUT", &cfg.NATS.DrainTimeout)
	o.setDuration("NATS_HANDLER_TIMEOUT", &cfg.NATS.HandlerTimeout)
	o.setBool("NATS_TLS_ENABLED", &cfg.NATS.TLS.Enabled)
	o.setStrings("NATS_TLS_CA_FILES", &cfg.NATS.TLS.CAFiles)

	o.setString("REASONER_BACKEND", &cfg.Reasoner.Backend)
	o.setString("REASONER_PROFILE", &cfg.Reasoner.Profile)
	o.setString("REASONER_ONTOLOGY_SIZE", &cfg.Reasoner.OntologySize)
	o.setDuration("REASONER_DEFAULT_TIMEOUT", &cfg.Reasoner.DefaultTimeout)
	o.setString("REASONER_REMOTE_PREFIX", &cfg.Reasoner.Remote.Prefix)
	o.setBool("REASONER_REMOTE_SERVE", &cfg.Reasoner.Remote.Serve)
	o.setBool("REASONER_EXPLAINER_ENABLED", &cfg.Reasoner.Explainer.Enabled)
	o.setString("REASONER_EXPLAINER_BASE_URL", &cfg.Reasoner.Explainer.BaseURL)
	o.setString("REASONER_EXPLAINER_MODEL", &cfg.Reasoner.Explainer.Model)
	o.setString("REASONER_EXPLAINER_API_KEY", &cfg.Reasoner.Explainer.APIKey)

	o.setBool("CACHE_ENABLED", &cfg.Cache.Enabled)
	o.setString("CACHE_TYPE", &cfg.Cache.Type)
	o.setString("CACHE_PATH", &cfg.Cache.Path)
	o.setInt("CACHE_MAX_SIZE", &cfg.Cache.MaxSize)
	o.setDuration("CACHE_TTL", &cfg.Cache.TTL)

	o.setBool("SCHEDULER_AUTO_REASONING", &cfg.Scheduler.AutoReasoning)
	o.setInt("SCHEDULER_BATCH_SIZE", &cfg.Scheduler.BatchSize)
	o.setDuration("SCHEDULER_REASONING_DELAY", &cfg.Scheduler.ReasoningDelay)
	o.setDuration("SCHEDULER_ESCAPE_DELAY", &cfg.Scheduler.EscapeDelay)
	o.setString("SCHEDULER_PUBLISH_SUBJECT", &cfg.Scheduler.PublishSubject)

	o.setString("STORE_TYPE", &cfg.Store.Type)
	o.setString("STORE_BUCKET", &cfg.Store.Bucket)
	o.setString("STORE_SEED_FILE", &cfg.Store.SeedFile)
	o.setInt("STORE_RETRY_MAX_RETRIES", &cfg.Store.Retry.MaxRetries)
	o.setDuration("STORE_RETRY_INITIAL_DELAY", &cfg.Store.Retry.InitialDelay)
	o.setDuration("STORE_RETRY_MAX_DELAY", &cfg.Store.Retry.MaxDelay)

	o.setBool("GATEWAY_ENABLED", &cfg.Gateway.Enabled)
	o.setString("GATEWAY_ADDR", &cfg.Gateway.Addr)
	o.setBool("GATEWAY_TLS_ENABLED", &cfg.Gateway.TLS.Enabled)
	o.setString("GATEWAY_TLS_CERT_FILE", &cfg.Gateway.TLS.CertFile)
	o.setString("GATEWAY_TLS_KEY_FILE", &cfg.Gateway.TLS.KeyFile)

	return o.err
}

// envOverrides keeps the first parse error so the override list reads
// as a flat table.
type envOverrides struct {
	l   *Loader
	err error
}

func (o *envOverrides) lookup(key string) (string, bool) {
	if o.err != nil {
		return "", false
	}
	name := o.l.envPrefix + "_" + key
	val, ok := o.l.lookupEnv(name)
	if !ok || val == "" {
		return "", false
	}
	if err := validateEnvVar(name, val); err != nil {
		o.err = err
		return "", false
	}
	return val, true
}

func (o *envOverrides) setString(key string, dst *string) {
	if val, ok := o.lookup(key); ok {
		*dst = val
	}
}

func (o *envOverrides) setStrings(key string, dst *[]string) {
	if val, ok := o.lookup(key); ok {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func (o *envOverrides) setBool(key string, dst *bool) {
	if val, ok := o.lookup(key); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			o.err = fmt.Errorf("%s_%s: %w", o.l.envPrefix, key, err)
			return
		}
		*dst = b
	}
}

func (o *envOverrides) setInt(key string, dst *int) {
	if val, ok := o.lookup(key); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			o.err = fmt.Errorf("%s_%s: %w", o.l.envPrefix, key, err)
			return
		}
		*dst = n
	}
}

func (o *envOverrides) setDuration(key string, dst *time.Duration) {
	if val, ok := o.lookup(key); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			o.err = fmt.Errorf("%s_%s: %w", o.l.envPrefix, key, err)
			return
		}
		*dst = d
	}
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.WrapFatal(err, "Config", "SaveToFile", "encode configuration")
	}
	return safeWriteFile(path, data)
}
