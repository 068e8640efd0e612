// Package rules provides a forward-chaining reasoning backend over a
// subset of the RDFS and OWL 2 RL rules. It saturates the dataset to a
// fixpoint, remembers which rule produced each inferred triple and
// reports disjointness and owl:Nothing violations as inconsistencies.
//
// The backend is a reference implementation of reasoner.Backend for
// deployments without an external reasoner. It is not a complete OWL
// reasoner: cardinality and property chain axioms are ignored.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/triple"
)

// Name is the backend name reported by Backend.Name.
const Name = "rules"

// DefaultMaxTriples caps the size of a saturated dataset.
const DefaultMaxTriples = 1_000_000

// Backend is safe for concurrent use; it keeps no state between calls.
type Backend struct {
	logger     *slog.Logger
	maxTriples int
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMaxTriples bounds the saturated dataset. Zero or less disables the
// bound.
func WithMaxTriples(n int) Option {
	return func(b *Backend) { b.maxTriples = n }
}

// New creates a rules backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		logger:     slog.Default(),
		maxTriples: DefaultMaxTriples,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "rules-backend")
	return b
}

var _ reasoner.Backend = (*Backend)(nil)
var _ reasoner.Explainer = (*Backend)(nil)

// Name implements reasoner.Backend.
func (b *Backend) Name() string {
	return Name
}

// rulesFor selects the rule subset a reasoning kind needs.
func rulesFor(kind reasoner.Kind) ([]rule, error) {
	switch kind {
	case reasoner.KindClassification, reasoner.KindSubsumption:
		return schemaRules, nil
	case reasoner.KindInstanceRealization:
		return concat(schemaRules, instanceRules), nil
	case reasoner.KindPropertyAssertion:
		return concat(schemaRules, propertyRules), nil
	case reasoner.KindFullInference, reasoner.KindConsistencyCheck:
		return allRules, nil
	default:
		return nil, errors.WrapInvalid(errors.ErrCapabilityUnsupported, "RulesBackend", "Reason",
			fmt.Sprintf("reasoning kind %q", kind))
	}
}

// Reason implements reasoner.Backend. The inferred dataset is the closure
// under the rules of cfg.Kind; the consistency verdict always uses the
// full rule set.
func (b *Backend) Reason(ctx context.Context, ds triple.Dataset, cfg reasoner.Configuration) (*reasoner.Result, error) {
	start := time.Now()

	rs, err := rulesFor(cfg.Kind)
	if err != nil {
		return nil, err
	}

	c, err := b.saturate(ctx, "Reason", ds, rs)
	if err != nil {
		return nil, err
	}

	full := c
	if len(rs) != len(allRules) {
		if full, err = b.saturate(ctx, "Reason", ds, allRules); err != nil {
			return nil, err
		}
	}
	vs := full.violations()

	res := &reasoner.Result{
		InferredDataset: c.dataset,
		Consistent:      len(vs) == 0,
		Inconsistencies: kinds(vs),
	}
	res.SetMetadata("iterations", c.iterations)
	res.SetMetadata("rules_applied", c.fired)
	if cfg.Incremental {
		res.AddWarning("backend %s does not reason incrementally; computed the full closure", Name)
	}
	if cfg.ExplainInconsistencies && len(vs) > 0 {
		res.SetMetadata(reasoner.MetadataInconsistencyExplanations, full.explainViolations(vs))
	}
	res.Duration = time.Since(start)

	b.logger.Debug("Closure computed", "kind", cfg.Kind, "asserted", ds.Len(),
		"inferred", c.inferred(), "iterations", c.iterations, "violations", len(vs))
	return res, nil
}

// CheckConsistency implements reasoner.Backend.
func (b *Backend) CheckConsistency(ctx context.Context, ds triple.Dataset) (bool, error) {
	c, err := b.saturate(ctx, "CheckConsistency", ds, allRules)
	if err != nil {
		return false, err
	}
	return len(c.violations()) == 0, nil
}

// UnsatisfiableEntities implements reasoner.Backend.
func (b *Backend) UnsatisfiableEntities(ctx context.Context, ds triple.Dataset) ([]string, error) {
	c, err := b.saturate(ctx, "UnsatisfiableEntities", ds, schemaRules)
	if err != nil {
		return nil, err
	}
	out := c.unsatisfiable()
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// ExplainInconsistency implements reasoner.Backend. Each violation is
// followed by the derivation of its premises. A consistent dataset
// yields no lines.
func (b *Backend) ExplainInconsistency(ctx context.Context, ds triple.Dataset) ([]string, error) {
	c, err := b.saturate(ctx, "ExplainInconsistency", ds, allRules)
	if err != nil {
		return nil, err
	}
	lines := c.explainViolations(c.violations())
	if lines == nil {
		lines = []string{}
	}
	return lines, nil
}

// ExplainTriple implements reasoner.Explainer.
func (b *Backend) ExplainTriple(ctx context.Context, ds triple.Dataset, t triple.Triple) ([]string, error) {
	c, err := b.saturate(ctx, "ExplainTriple", ds, allRules)
	if err != nil {
		return nil, err
	}
	if !c.dataset.Contains(t) {
		return []string{fmt.Sprintf("%s is not entailed", t)}, nil
	}
	return c.justify(t, 0, make(map[triple.Triple]bool)), nil
}

func (b *Backend) saturate(ctx context.Context, method string, ds triple.Dataset, rs []rule) (*closure, error) {
	c, err := saturate(ctx, ds, rs, b.maxTriples)
	if err != nil {
		if errors.IsInvalid(err) {
			return nil, err
		}
		return nil, errors.WrapTransient(err, "RulesBackend", method, "rule saturation")
	}
	return c, nil
}

func errClosureTooLarge(size, limit int) error {
	return errors.WrapInvalid(errors.ErrResourceExhausted, "RulesBackend", "saturate",
		fmt.Sprintf("closure grew to %d triples, limit %d", size, limit))
}
