// Package factory builds a reasoning Service from configuration: backend
// selection, performance profile, result cache tier and the optional
// explanation decorator.
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/c360/semreason/config"
	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/metric"
	"github.com/c360/semreason/pkg/cache"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/reasoner/explainer"
	"github.com/c360/semreason/reasoner/remote"
	"github.com/c360/semreason/reasoner/rules"
	"github.com/c360/semreason/reasoner/sqlitecache"
)

// Profile is a resolved performance profile.
type Profile struct {
	Name       string
	Timeout    time.Duration
	MaxTriples int

	// PersistentCache selects the sqlite tier when the cache type is unset.
	PersistentCache bool
}

var profiles = map[string]Profile{
	config.ProfileDevelopment:   {Timeout: 30 * time.Second, MaxTriples: 100_000},
	config.ProfileFast:          {Timeout: 60 * time.Second, MaxTriples: 250_000},
	config.ProfileBalanced:      {Timeout: 300 * time.Second, MaxTriples: rules.DefaultMaxTriples},
	config.ProfileComprehensive: {Timeout: 600 * time.Second, MaxTriples: 5_000_000},
}

// ResolveProfile applies the ontology size to a named profile: large
// doubles the timeout, enterprise triples it and prefers a persistent
// cache.
func ResolveProfile(name, size string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, errors.WrapInvalid(errors.ErrInvalidConfig, "Factory", "ResolveProfile",
			fmt.Sprintf("unknown profile %q", name))
	}
	p.Name = name

	switch size {
	case "", config.SizeSmall, config.SizeMedium:
	case config.SizeLarge:
		p.Timeout *= 2
	case config.SizeEnterprise:
		p.Timeout *= 3
		p.PersistentCache = true
	default:
		return Profile{}, errors.WrapInvalid(errors.ErrInvalidConfig, "Factory", "ResolveProfile",
			fmt.Sprintf("unknown ontology size %q", size))
	}
	return p, nil
}

// BackendInfo describes a selectable backend.
type BackendInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Kinds       []reasoner.Kind `json:"kinds"`
	NeedsNATS   bool            `json:"needs_nats"`
}

// SupportedBackends lists the backends NewBackend can build, sorted by
// name.
func SupportedBackends() []BackendInfo {
	out := []BackendInfo{
		{
			Name:        config.BackendRules,
			Description: "In-process RDFS and OWL RL rule closure with derivation tracking",
			Kinds:       reasoner.Kinds,
		},
		{
			Name:        config.BackendRemote,
			Description: "Reasoning server reached over NATS request/reply",
			Kinds:       reasoner.Kinds,
			NeedsNATS:   true,
		},
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Deps are the runtime collaborators the factory wires in.
type Deps struct {
	// Requester carries remote backend calls. Required for the remote
	// backend.
	Requester remote.Requester
	Metrics   *metric.MetricsRegistry
	Logger    *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// NewBackend builds the configured backend, decorated with the LLM
// explainer when enabled.
func NewBackend(cfg config.ReasonerConfig, deps Deps) (reasoner.Backend, error) {
	profile, err := ResolveProfile(cfg.Profile, cfg.OntologySize)
	if err != nil {
		return nil, err
	}

	var backend reasoner.Backend
	switch cfg.Backend {
	case config.BackendRules:
		maxTriples := profile.MaxTriples
		if cfg.MaxTriples > 0 {
			maxTriples = cfg.MaxTriples
		}
		backend = rules.New(rules.WithLogger(deps.logger()), rules.WithMaxTriples(maxTriples))
	case config.BackendRemote:
		if deps.Requester == nil {
			return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Factory", "NewBackend",
				"remote backend requires a NATS connection")
		}
		backend = remote.New(deps.Requester,
			remote.WithPrefix(cfg.Remote.Prefix),
			remote.WithLogger(deps.logger()))
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Factory", "NewBackend",
			fmt.Sprintf("unsupported backend %q", cfg.Backend))
	}

	if ex := cfg.Explainer; ex.Enabled {
		backend, err = explainer.New(backend, explainer.Config{
			BaseURL:  ex.BaseURL,
			Model:    ex.Model,
			APIKey:   ex.APIKey,
			Timeout:  ex.Timeout,
			MaxLines: ex.MaxLines,
			Logger:   deps.logger(),
		})
		if err != nil {
			return nil, err
		}
	}
	return backend, nil
}

// NewCache builds the configured result cache. It returns nil when
// caching is disabled.
func NewCache(ctx context.Context, cfg config.CacheConfig, profile Profile, deps Deps) (reasoner.ResultCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	cacheType := cfg.Type
	if cacheType == "" {
		cacheType = config.CacheTypeMemory
		if profile.PersistentCache {
			cacheType = config.CacheTypeSQLite
		}
	}

	switch cacheType {
	case config.CacheTypeMemory:
		mc, err := reasoner.NewMemoryCache(ctx, cfg.Config,
			cache.WithMetrics[*reasoner.CacheEntry](deps.Metrics, "reasoning_results"))
		if err != nil {
			return nil, err
		}
		return mc, nil
	case config.CacheTypeSQLite:
		sc, err := sqlitecache.Open(ctx, cfg.Path,
			sqlitecache.WithMaxRows(cfg.MaxSize),
			sqlitecache.WithTTL(cfg.TTL),
			sqlitecache.WithLogger(deps.logger()))
		if err != nil {
			return nil, err
		}
		return sc, nil
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Factory", "NewCache",
			fmt.Sprintf("unsupported cache type %q", cacheType))
	}
}

// NewService builds the backend, the cache and the service around them.
func NewService(ctx context.Context, rc config.ReasonerConfig, cc config.CacheConfig, deps Deps) (*reasoner.Service, error) {
	profile, err := ResolveProfile(rc.Profile, rc.OntologySize)
	if err != nil {
		return nil, err
	}

	backend, err := NewBackend(rc, deps)
	if err != nil {
		return nil, err
	}

	resultCache, err := NewCache(ctx, cc, profile, deps)
	if err != nil {
		return nil, err
	}

	timeout := profile.Timeout
	if rc.DefaultTimeout > 0 {
		timeout = rc.DefaultTimeout
	}

	svc, err := reasoner.NewService(backend,
		reasoner.WithCache(resultCache),
		reasoner.WithDefaultTimeout(timeout),
		reasoner.WithProfile(rc.OWLProfile),
		reasoner.WithIncremental(rc.Incremental),
		reasoner.WithLogger(deps.logger()),
		reasoner.WithMetrics(deps.Metrics))
	if err != nil {
		if resultCache != nil {
			_ = resultCache.Close()
		}
		return nil, err
	}

	deps.logger().Info("Created reasoning service",
		"backend", backend.Name(),
		"profile", profile.Name,
		"timeout", timeout,
		"cache_enabled", resultCache != nil)
	return svc, nil
}
