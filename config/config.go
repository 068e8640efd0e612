package config

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/pkg/cache"
	"github.com/c360/semreason/pkg/security"
)

// Backend names.
const (
	BackendRules  = "rules"  // in-process rule engine
	BackendRemote = "remote" // reasoning server reached over NATS
)

// Cache types.
const (
	CacheTypeMemory = "memory" // in-process LRU
	CacheTypeSQLite = "sqlite" // persistent, survives restarts
)

// Store types.
const (
	StoreTypeMemory = "memory" // in-process triple set
	StoreTypeKV     = "kv"     // NATS JetStream KV bucket
)

// Performance profiles.
const (
	ProfileDevelopment   = "development"
	ProfileFast          = "fast"
	ProfileBalanced      = "balanced"
	ProfileComprehensive = "comprehensive"
)

// Ontology sizes scale the profile timeout.
const (
	SizeSmall      = "small"
	SizeMedium     = "medium"
	SizeLarge      = "large"
	SizeEnterprise = "enterprise"
)

// Config is the complete application configuration.
type Config struct {
	Version   string          `json:"version,omitempty" yaml:"version,omitempty"`
	NATS      NATSConfig      `json:"nats" yaml:"nats"`
	Reasoner  ReasonerConfig  `json:"reasoner" yaml:"reasoner"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Gateway   GatewayConfig   `json:"gateway" yaml:"gateway"`
}

// NATSConfig defines NATS connection settings. NATS is only dialed when a
// component needs it.
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty" yaml:"urls,omitempty"`
	Name          string        `json:"name,omitempty" yaml:"name,omitempty"`
	MaxReconnects int           `json:"max_reconnects" yaml:"max_reconnects"`
	ReconnectWait time.Duration `json:"reconnect_wait" yaml:"reconnect_wait"`
	Username      string        `json:"username,omitempty" yaml:"username,omitempty"`
	Password      string        `json:"password,omitempty" yaml:"password,omitempty"`
	Token         string        `json:"token,omitempty" yaml:"token,omitempty"`

	PingInterval time.Duration `json:"ping_interval" yaml:"ping_interval"`
	// DrainTimeout bounds the drain on shutdown.
	DrainTimeout time.Duration `json:"drain_timeout" yaml:"drain_timeout"`
	// HandlerTimeout bounds the context given to remote backend handlers.
	HandlerTimeout time.Duration `json:"handler_timeout" yaml:"handler_timeout"`

	TLS security.ClientTLS `json:"tls" yaml:"tls"`
}

// ReasonerConfig selects and tunes the reasoning backend.
type ReasonerConfig struct {
	Backend string `json:"backend" yaml:"backend"`

	// Profile picks timeout and closure limits: development, fast,
	// balanced or comprehensive.
	Profile      string `json:"profile" yaml:"profile"`
	OntologySize string `json:"ontology_size" yaml:"ontology_size"`

	// DefaultTimeout overrides the profile timeout when non-zero.
	DefaultTimeout time.Duration `json:"default_timeout,omitempty" yaml:"default_timeout,omitempty"`

	// MaxTriples overrides the profile closure limit when non-zero.
	MaxTriples int `json:"max_triples,omitempty" yaml:"max_triples,omitempty"`

	OWLProfile  string          `json:"owl_profile,omitempty" yaml:"owl_profile,omitempty"`
	Incremental bool            `json:"incremental,omitempty" yaml:"incremental,omitempty"`
	Remote      RemoteConfig    `json:"remote" yaml:"remote"`
	Explainer   ExplainerConfig `json:"explainer" yaml:"explainer"`
}

// RemoteConfig configures the NATS request/reply backend and server.
type RemoteConfig struct {
	Prefix string `json:"prefix" yaml:"prefix"`

	// Serve exposes the local rules backend on Prefix.
	Serve bool   `json:"serve,omitempty" yaml:"serve,omitempty"`
	Queue string `json:"queue,omitempty" yaml:"queue,omitempty"`
}

// ExplainerConfig enables plain-language inconsistency summaries from an
// OpenAI-compatible endpoint.
type ExplainerConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	BaseURL  string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model    string        `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey   string        `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxLines int           `json:"max_lines,omitempty" yaml:"max_lines,omitempty"`
}

// CacheConfig extends the LRU settings with the cache tier.
type CacheConfig struct {
	cache.Config `yaml:",inline"`

	// Type is memory or sqlite. Empty picks memory, or sqlite for
	// enterprise-sized ontologies.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// SchedulerConfig tunes change-driven reasoning.
type SchedulerConfig struct {
	AutoReasoning  bool          `json:"auto_reasoning" yaml:"auto_reasoning"`
	BatchSize      int           `json:"batch_size" yaml:"batch_size"`
	ReasoningDelay time.Duration `json:"reasoning_delay" yaml:"reasoning_delay"`
	EscapeDelay    time.Duration `json:"escape_delay" yaml:"escape_delay"`

	// PublishSubject receives a JSON report for every inconsistent pass.
	// Empty disables publishing.
	PublishSubject string `json:"publish_subject,omitempty" yaml:"publish_subject,omitempty"`
}

// StoreConfig selects the knowledge store.
type StoreConfig struct {
	Type   string `json:"type" yaml:"type"`
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// SeedFile is a JSON array of triples loaded into the store at startup.
	SeedFile string `json:"seed_file,omitempty" yaml:"seed_file,omitempty"`

	// Retry is the backoff for kv bucket writes.
	Retry errors.RetryConfig `json:"retry" yaml:"retry"`
}

// GatewayConfig configures the operator HTTP API.
type GatewayConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`

	// RateLimit bounds manual reasoning triggers per second.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`
	Burst     int     `json:"burst" yaml:"burst"`

	// CORSOrigins enables CORS for the listed origins. "*" allows any.
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`

	TLS security.ServerTLS `json:"tls" yaml:"tls"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		NATS: NATSConfig{
			URLs:           []string{"nats://localhost:4222"},
			Name:           "semreason",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			PingInterval:   30 * time.Second,
			DrainTimeout:   30 * time.Second,
			HandlerTimeout: 30 * time.Second,
		},
		Reasoner: ReasonerConfig{
			Backend:      BackendRules,
			Profile:      ProfileBalanced,
			OntologySize: SizeMedium,
			Remote: RemoteConfig{
				Prefix: "semreason.backend",
				Queue:  "semreason-backend",
			},
		},
		Cache: CacheConfig{
			Config: cache.DefaultConfig(),
			Type:   CacheTypeMemory,
			Path:   "semreason-cache.db",
		},
		Scheduler: SchedulerConfig{
			AutoReasoning:  true,
			BatchSize:      100,
			ReasoningDelay: 5 * time.Second,
			EscapeDelay:    100 * time.Millisecond,
		},
		Store: StoreConfig{
			Type:   StoreTypeMemory,
			Bucket: "SEMREASON_TRIPLES",
			Retry:  errors.DefaultRetryConfig(),
		},
		Gateway: GatewayConfig{
			Enabled:   true,
			Addr:      ":8080",
			RateLimit: 1,
			Burst:     3,
		},
	}
}

// NeedsNATS reports whether any configured component uses NATS.
func (c *Config) NeedsNATS() bool {
	return c.Reasoner.Backend == BackendRemote ||
		c.Reasoner.Remote.Serve ||
		c.Store.Type == StoreTypeKV ||
		c.Scheduler.PublishSubject != ""
}

// Validate checks the configuration. Errors are classified invalid.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "check configuration")
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Reasoner.Backend {
	case BackendRules, BackendRemote:
	default:
		return fmt.Errorf("%w: reasoner.backend %q (must be %q or %q)",
			errors.ErrInvalidConfig, c.Reasoner.Backend, BackendRules, BackendRemote)
	}
	switch c.Reasoner.Profile {
	case ProfileDevelopment, ProfileFast, ProfileBalanced, ProfileComprehensive:
	default:
		return fmt.Errorf("%w: reasoner.profile %q", errors.ErrInvalidConfig, c.Reasoner.Profile)
	}
	switch c.Reasoner.OntologySize {
	case "", SizeSmall, SizeMedium, SizeLarge, SizeEnterprise:
	default:
		return fmt.Errorf("%w: reasoner.ontology_size %q", errors.ErrInvalidConfig, c.Reasoner.OntologySize)
	}
	if c.Reasoner.DefaultTimeout < 0 {
		return fmt.Errorf("%w: reasoner.default_timeout must not be negative", errors.ErrInvalidConfig)
	}
	if c.Reasoner.MaxTriples < 0 {
		return fmt.Errorf("%w: reasoner.max_triples must not be negative", errors.ErrInvalidConfig)
	}
	if (c.Reasoner.Backend == BackendRemote || c.Reasoner.Remote.Serve) &&
		!isValidSubject(c.Reasoner.Remote.Prefix) {
		return fmt.Errorf("%w: reasoner.remote.prefix %q is not a valid NATS subject",
			errors.ErrInvalidConfig, c.Reasoner.Remote.Prefix)
	}
	if ex := c.Reasoner.Explainer; ex.Enabled && (ex.BaseURL == "" || ex.Model == "") {
		return fmt.Errorf("%w: reasoner.explainer requires base_url and model", errors.ErrInvalidConfig)
	}

	if c.Cache.Enabled {
		if err := c.Cache.Config.Validate(); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		switch c.Cache.Type {
		case "", CacheTypeMemory:
		case CacheTypeSQLite:
			if c.Cache.Path == "" {
				return fmt.Errorf("%w: cache.path is required for sqlite", errors.ErrInvalidConfig)
			}
		default:
			return fmt.Errorf("%w: cache.type %q", errors.ErrInvalidConfig, c.Cache.Type)
		}
	}

	if c.Scheduler.BatchSize < 1 {
		return fmt.Errorf("%w: scheduler.batch_size must be at least 1", errors.ErrInvalidConfig)
	}
	if c.Scheduler.ReasoningDelay <= 0 || c.Scheduler.EscapeDelay <= 0 {
		return fmt.Errorf("%w: scheduler delays must be positive", errors.ErrInvalidConfig)
	}
	if c.Scheduler.PublishSubject != "" && !isValidSubject(c.Scheduler.PublishSubject) {
		return fmt.Errorf("%w: scheduler.publish_subject %q is not a valid NATS subject",
			errors.ErrInvalidConfig, c.Scheduler.PublishSubject)
	}

	switch c.Store.Type {
	case StoreTypeMemory:
	case StoreTypeKV:
		if c.Store.Bucket == "" {
			return fmt.Errorf("%w: store.bucket is required for kv", errors.ErrInvalidConfig)
		}
		if err := c.Store.Retry.Validate(); err != nil {
			return fmt.Errorf("store.retry: %w", err)
		}
	default:
		return fmt.Errorf("%w: store.type %q", errors.ErrInvalidConfig, c.Store.Type)
	}

	if c.Gateway.Enabled {
		if c.Gateway.Addr == "" {
			return fmt.Errorf("%w: gateway.addr is required", errors.ErrInvalidConfig)
		}
		if c.Gateway.RateLimit <= 0 || c.Gateway.Burst < 1 {
			return fmt.Errorf("%w: gateway.rate_limit and gateway.burst must be positive", errors.ErrInvalidConfig)
		}
		if err := c.Gateway.TLS.Validate(); err != nil {
			return fmt.Errorf("gateway.tls: %w", err)
		}
	}

	if c.NeedsNATS() {
		if len(c.NATS.URLs) == 0 {
			return fmt.Errorf("%w: nats.urls is required", errors.ErrInvalidConfig)
		}
		if c.NATS.PingInterval <= 0 || c.NATS.DrainTimeout <= 0 || c.NATS.HandlerTimeout <= 0 {
			return fmt.Errorf("%w: nats ping_interval, drain_timeout and handler_timeout must be positive",
				errors.ErrInvalidConfig)
		}
		if err := c.NATS.TLS.Validate(); err != nil {
			return fmt.Errorf("nats.tls: %w", err)
		}
	}
	return nil
}

// isValidSubject checks a literal NATS subject: dot-separated tokens of
// letters, digits, dashes and underscores.
func isValidSubject(s string) bool {
	if s == "" {
		return false
	}
	for _, token := range strings.Split(s, ".") {
		if token == "" {
			return false
		}
		for _, r := range token {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}
	out := *c
	out.NATS.URLs = append([]string(nil), c.NATS.URLs...)
	out.NATS.TLS.CAFiles = append([]string(nil), c.NATS.TLS.CAFiles...)
	out.Gateway.CORSOrigins = append([]string(nil), c.Gateway.CORSOrigins...)
	out.Gateway.TLS.ClientCAFiles = append([]string(nil), c.Gateway.TLS.ClientCAFiles...)
	out.Gateway.TLS.AllowedClientCNs = append([]string(nil), c.Gateway.TLS.AllowedClientCNs...)
	return &out
}

// String renders the configuration as YAML with secrets masked.
func (c *Config) String() string {
	masked := c.Clone()
	for _, secret := range []*string{&masked.NATS.Password, &masked.NATS.Token, &masked.Reasoner.Explainer.APIKey} {
		if *secret != "" {
			*secret = "****"
		}
	}
	data, _ := yaml.Marshal(masked)
	return string(data)
}
