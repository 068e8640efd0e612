package reasoner

import (
	"context"

	"github.com/c360/semreason/triple"
)

// Backend is the port to one pluggable reasoning engine. A backend may
// implement only some operations; the rest return an error wrapping
// errors.ErrCapabilityUnsupported. Implementations must be safe for
// concurrent use on different datasets, must honor ctx cancellation, and
// must not retry internally.
type Backend interface {
	// Name identifies the backend in logs, metrics and statistics.
	Name() string

	// Reason runs the reasoning kind selected by cfg and returns the input
	// dataset together with everything it entails.
	Reason(ctx context.Context, ds triple.Dataset, cfg Configuration) (*Result, error)

	// CheckConsistency reports whether ds is free of contradictions.
	CheckConsistency(ctx context.Context, ds triple.Dataset) (bool, error)

	// UnsatisfiableEntities returns the classes that can have no instances.
	UnsatisfiableEntities(ctx context.Context, ds triple.Dataset) ([]string, error)

	// ExplainInconsistency returns human-readable diagnostics. Generic text
	// is acceptable, but a failure must be returned as an error.
	ExplainInconsistency(ctx context.Context, ds triple.Dataset) ([]string, error)
}
