// Package reasoner is the facade over pluggable reasoning backends. The
// Service combines a Backend with a content-addressed ResultCache and
// keeps running statistics for its own lifetime.
package reasoner

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/metric"
	"github.com/c360/semreason/triple"
)

// DefaultTimeout bounds a single backend call when no timeout is configured.
const DefaultTimeout = 300 * time.Second

// Explainer is implemented by backends that can justify individual
// inferred triples.
type Explainer interface {
	ExplainTriple(ctx context.Context, ds triple.Dataset, t triple.Triple) ([]string, error)
}

// Service is safe for concurrent use.
type Service struct {
	backend        Backend
	cache          ResultCache
	defaultTimeout time.Duration
	profile        string
	incremental    bool
	logger         *slog.Logger
	metrics        *serviceMetrics
	stats          Statistics
}

type serviceOptions struct {
	cache       ResultCache
	timeout     time.Duration
	profile     string
	incremental bool
	logger      *slog.Logger
	registry    *metric.MetricsRegistry
}

// Option configures a Service.
type Option func(*serviceOptions)

// WithCache enables result caching. A nil cache leaves caching disabled.
func WithCache(c ResultCache) Option {
	return func(o *serviceOptions) { o.cache = c }
}

// WithDefaultTimeout sets the per-call backend timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *serviceOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithProfile sets the OWL profile passed to the backend.
func WithProfile(profile string) Option {
	return func(o *serviceOptions) {
		if profile != "" {
			o.profile = profile
		}
	}
}

// WithIncremental asks backends that support it to reason incrementally.
func WithIncremental(incremental bool) Option {
	return func(o *serviceOptions) { o.incremental = incremental }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics exports service metrics to registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *serviceOptions) { o.registry = registry }
}

// NewService creates a Service around backend.
func NewService(backend Backend, opts ...Option) (*Service, error) {
	if backend == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "ReasoningService", "NewService", "backend is required")
	}

	o := serviceOptions{
		timeout: DefaultTimeout,
		profile: DefaultProfile,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &Service{
		backend:        backend,
		cache:          o.cache,
		defaultTimeout: o.timeout,
		profile:        o.profile,
		incremental:    o.incremental,
		logger:         o.logger.With("component", "reasoning-service", "backend", backend.Name()),
		metrics:        newServiceMetrics(o.registry),
	}, nil
}

// Backend returns the wrapped backend.
func (s *Service) Backend() Backend {
	return s.backend
}

// Configuration returns the configuration the service uses for kind.
func (s *Service) Configuration(kind Kind) Configuration {
	return Configuration{
		Kind:         kind,
		Timeout:      s.defaultTimeout,
		CacheEnabled: s.cache != nil,
		Profile:      s.profile,
		Incremental:  s.incremental,
	}
}

// InferTriples returns ds together with everything the backend infers
// for kind. Consistent results are cached by content hash; inconsistent
// results are returned but never cached.
func (s *Service) InferTriples(ctx context.Context, ds triple.Dataset, kind Kind) (triple.Dataset, error) {
	res, err := s.reason(ctx, "InferTriples", ds, s.Configuration(kind))
	if err != nil {
		return triple.Dataset{}, err
	}
	return res.InferredDataset, nil
}

// Reason infers kind over ds and returns the whole result, so callers
// can see the consistency verdict next to the inferred dataset.
func (s *Service) Reason(ctx context.Context, ds triple.Dataset, kind Kind) (*Result, error) {
	return s.reason(ctx, "Reason", ds, s.Configuration(kind))
}

// CheckConsistency asks the backend directly. Results are never cached.
func (s *Service) CheckConsistency(ctx context.Context, ds triple.Dataset) (bool, error) {
	start := time.Now()
	consistent, err := invoke(ctx, s.defaultTimeout, func(ctx context.Context) (bool, error) {
		return s.backend.CheckConsistency(ctx, ds)
	})
	d := time.Since(start)
	s.stats.record(opConsistency, d, false)

	if err != nil {
		s.stats.fail()
		s.metrics.observe("CheckConsistency", "error", d.Seconds())
		s.logger.Error("Consistency check failed", "triples", ds.Len(), "error", err)
		return false, errors.WrapClassified(err, "ReasoningService", "CheckConsistency", "backend consistency check")
	}

	s.metrics.observe("CheckConsistency", outcome(consistent), d.Seconds())
	s.logger.Info("Consistency check completed", "triples", ds.Len(), "consistent", consistent, "duration", d)
	return consistent, nil
}

// ValidateOntology runs full inference with explanations enabled. When
// the dataset is inconsistent the result metadata also carries the
// unsatisfiable classes and the backend's explanations.
func (s *Service) ValidateOntology(ctx context.Context, ds triple.Dataset) (*Result, error) {
	cfg := s.Configuration(KindFullInference)
	cfg.ExplainInconsistencies = true

	res, err := s.reason(ctx, "ValidateOntology", ds, cfg)
	if err != nil {
		return nil, err
	}
	if res.Consistent {
		return res, nil
	}

	if err := s.annotateInconsistency(ctx, ds, res); err != nil {
		s.stats.fail()
		return nil, err
	}
	return res, nil
}

func (s *Service) annotateInconsistency(ctx context.Context, ds triple.Dataset, res *Result) error {
	unsat, err := invoke(ctx, s.defaultTimeout, func(ctx context.Context) ([]string, error) {
		return s.backend.UnsatisfiableEntities(ctx, ds)
	})
	switch {
	case err == nil:
	case stderrors.Is(err, errors.ErrCapabilityUnsupported):
		res.AddWarning("backend %s cannot list unsatisfiable classes", s.backend.Name())
	default:
		s.logger.Error("Unsatisfiable class lookup failed", "error", err)
		return errors.WrapClassified(err, "ReasoningService", "ValidateOntology", "unsatisfiable class lookup")
	}
	if unsat == nil {
		unsat = []string{}
	}
	res.SetMetadata(MetadataUnsatisfiableClasses, unsat)

	explanations, err := invoke(ctx, s.defaultTimeout, func(ctx context.Context) ([]string, error) {
		return s.backend.ExplainInconsistency(ctx, ds)
	})
	switch {
	case err == nil:
	case stderrors.Is(err, errors.ErrCapabilityUnsupported):
		res.AddWarning("backend %s cannot explain inconsistencies", s.backend.Name())
	default:
		s.logger.Error("Inconsistency explanation failed", "error", err)
		return errors.WrapClassified(err, "ReasoningService", "ValidateOntology", "inconsistency explanation")
	}
	if explanations == nil {
		explanations = []string{}
	}
	res.SetMetadata(MetadataInconsistencyExplanations, explanations)
	return nil
}

// GetEntailments infers the full closure of ds and returns the triples
// matching pattern.
func (s *Service) GetEntailments(ctx context.Context, ds triple.Dataset, pattern triple.Pattern) (triple.Dataset, error) {
	inferred, err := s.InferTriples(ctx, ds, KindFullInference)
	if err != nil {
		return triple.Dataset{}, err
	}
	matches := inferred.Match(pattern)
	s.logger.Debug("Entailment query completed", "pattern", pattern, "matches", matches.Len())
	return matches, nil
}

// ExplainInference explains why t is, or is not, entailed by ds.
func (s *Service) ExplainInference(ctx context.Context, ds triple.Dataset, t triple.Triple) ([]string, error) {
	inferred, err := s.InferTriples(ctx, ds, KindFullInference)
	if err != nil {
		return nil, err
	}
	if !inferred.Contains(t) {
		return []string{"Triple is not present in the inferred graph"}, nil
	}
	if ds.Contains(t) {
		return []string{"Triple is explicitly asserted in the original graph"}, nil
	}

	if explainer, ok := s.backend.(Explainer); ok {
		lines, err := invoke(ctx, s.defaultTimeout, func(ctx context.Context) ([]string, error) {
			return explainer.ExplainTriple(ctx, ds, t)
		})
		if err != nil {
			return nil, errors.WrapClassified(err, "ReasoningService", "ExplainInference", "backend derivation")
		}
		return lines, nil
	}

	return []string{
		fmt.Sprintf("Triple %s was inferred through reasoning", t),
		fmt.Sprintf("Backend %s does not report derivations", s.backend.Name()),
	}, nil
}

// GetStatistics returns a copy of the running statistics.
func (s *Service) GetStatistics() StatisticsSnapshot {
	snap := s.stats.snapshot()
	snap.Backend = s.backend.Name()
	snap.CacheEnabled = s.cache != nil
	if s.cache != nil {
		snap.CacheEntries = s.cache.Len()
	}
	return snap
}

// InvalidateCache removes cache entries whose key contains pattern, or all
// entries when pattern is empty. It returns false when no cache is
// configured or the cache failed.
func (s *Service) InvalidateCache(ctx context.Context, pattern string) bool {
	if s.cache == nil {
		s.logger.Warn("Cache invalidation requested but no cache is configured")
		return false
	}
	n, err := s.cache.Invalidate(ctx, pattern)
	if err != nil {
		s.metrics.cacheError()
		s.logger.Error("Cache invalidation failed", "pattern", pattern, "error", err)
		return false
	}
	s.logger.Info("Cache invalidated", "pattern", pattern, "removed", n)
	return true
}

// Close releases the result cache.
func (s *Service) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

func (s *Service) reason(ctx context.Context, method string, ds triple.Dataset, cfg Configuration) (*Result, error) {
	start := time.Now()
	useCache := cfg.CacheEnabled && s.cache != nil

	var hash, key string
	if useCache {
		hash = triple.ContentHash(ds)
		key = CacheKey(hash, cfg)
		if res, ok := s.lookup(ctx, key); ok {
			d := time.Since(start)
			s.stats.record(opInference, d, true)
			s.metrics.cache(cfg.Kind, true)
			s.metrics.observe(method, "cache_hit", d.Seconds())
			s.logger.Debug("Reasoning result served from cache", "method", method, "kind", cfg.Kind)
			return res, nil
		}
		s.metrics.cache(cfg.Kind, false)
	}

	res, err := invoke(ctx, cfg.Timeout, func(ctx context.Context) (*Result, error) {
		return s.backend.Reason(ctx, ds, cfg)
	})
	if err == nil && res == nil {
		err = fmt.Errorf("%w: backend returned no result", errors.ErrBackendUnavailable)
	}
	d := time.Since(start)

	if err != nil {
		s.stats.fail()
		s.metrics.observe(method, "error", d.Seconds())
		s.logger.Error("Reasoning failed", "method", method, "kind", cfg.Kind, "triples", ds.Len(), "error", err)
		return nil, errors.WrapClassified(err, "ReasoningService", method, "backend reasoning")
	}

	if res.Duration == 0 {
		res.Duration = d
	}
	s.stats.record(opInference, d, false)
	s.metrics.observe(method, outcome(res.Consistent), d.Seconds())

	if !res.Consistent {
		s.metrics.inconsistencies(res.Inconsistencies)
		s.logger.Warn("Dataset is inconsistent", "method", method, "kind", cfg.Kind,
			"inconsistencies", res.Inconsistencies)
		return res, nil
	}

	if useCache {
		s.store(ctx, key, hash, cfg, res)
	}

	s.logger.Info("Reasoning completed", "method", method, "kind", cfg.Kind, "duration", d,
		"triples", ds.Len(), "inferred", res.InferredDataset.Len()-ds.Len())
	return res, nil
}

// lookup returns a consistent cached result. Cache failures count as misses.
func (s *Service) lookup(ctx context.Context, key string) (*Result, bool) {
	entry, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.metrics.cacheError()
		s.logger.Warn("Result cache read failed, treating as miss", "error", err)
		return nil, false
	}
	if !ok || entry == nil || entry.Result == nil || !entry.Result.Consistent {
		return nil, false
	}
	return entry.Result, true
}

func (s *Service) store(ctx context.Context, key, hash string, cfg Configuration, res *Result) {
	err := s.cache.Put(ctx, key, CacheEntry{
		DatasetHash:   hash,
		Configuration: cfg,
		Result:        res,
		StoredAt:      time.Now(),
	})
	if err != nil {
		s.metrics.cacheError()
		s.logger.Warn("Result cache write failed", "error", err)
	}
}

func outcome(consistent bool) string {
	if consistent {
		return "consistent"
	}
	return "inconsistent"
}
