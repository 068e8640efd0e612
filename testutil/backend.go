package testutil

import (
	"context"
	"sync"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/triple"
)

// StubBackend is a scriptable reasoner.Backend that records every call.
// Zero-valued funcs fall back to defaults: Reason echoes the input as a
// consistent result, CheckConsistency reports true, UnsatisfiableEntities
// is unsupported and ExplainInconsistency returns a generic line.
type StubBackend struct {
	mu sync.Mutex

	BackendName       string
	ReasonFunc        func(ctx context.Context, ds triple.Dataset, cfg reasoner.Configuration) (*reasoner.Result, error)
	ConsistencyFunc   func(ctx context.Context, ds triple.Dataset) (bool, error)
	UnsatisfiableFunc func(ctx context.Context, ds triple.Dataset) ([]string, error)
	ExplainFunc       func(ctx context.Context, ds triple.Dataset) ([]string, error)

	script []*reasoner.Result

	ReasonCalls        int
	ConsistencyCalls   int
	UnsatisfiableCalls int
	ExplainCalls       int
	Configs            []reasoner.Configuration
}

// NewStubBackend creates a stub with default behavior.
func NewStubBackend() *StubBackend {
	return &StubBackend{BackendName: "stub"}
}

// Returning scripts the results of successive Reason calls. The last
// result repeats once the script is exhausted. Each call gets a clone.
func (s *StubBackend) Returning(results ...*reasoner.Result) *StubBackend {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = results
	return s
}

// Name implements reasoner.Backend.
func (s *StubBackend) Name() string {
	return s.BackendName
}

// Reason implements reasoner.Backend.
func (s *StubBackend) Reason(ctx context.Context, ds triple.Dataset, cfg reasoner.Configuration) (*reasoner.Result, error) {
	s.mu.Lock()
	s.ReasonCalls++
	s.Configs = append(s.Configs, cfg)
	fn := s.ReasonFunc
	var scripted *reasoner.Result
	if len(s.script) > 0 {
		scripted = s.script[0]
		if len(s.script) > 1 {
			s.script = s.script[1:]
		}
	}
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, ds, cfg)
	}
	if scripted != nil {
		return scripted.Clone(), nil
	}
	return &reasoner.Result{InferredDataset: ds.Clone(), Consistent: true}, nil
}

// CheckConsistency implements reasoner.Backend.
func (s *StubBackend) CheckConsistency(ctx context.Context, ds triple.Dataset) (bool, error) {
	s.mu.Lock()
	s.ConsistencyCalls++
	fn := s.ConsistencyFunc
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, ds)
	}
	return true, nil
}

// UnsatisfiableEntities implements reasoner.Backend.
func (s *StubBackend) UnsatisfiableEntities(ctx context.Context, ds triple.Dataset) ([]string, error) {
	s.mu.Lock()
	s.UnsatisfiableCalls++
	fn := s.UnsatisfiableFunc
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, ds)
	}
	return nil, errors.WrapInvalid(errors.ErrCapabilityUnsupported, "StubBackend", "UnsatisfiableEntities", "list unsatisfiable")
}

// ExplainInconsistency implements reasoner.Backend.
func (s *StubBackend) ExplainInconsistency(ctx context.Context, ds triple.Dataset) ([]string, error) {
	s.mu.Lock()
	s.ExplainCalls++
	fn := s.ExplainFunc
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, ds)
	}
	return []string{"stub backend cannot produce a proof"}, nil
}

// Reasons returns the number of Reason calls so far.
func (s *StubBackend) Reasons() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ReasonCalls
}
