package reasoner

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/triple"
)

// Kind selects which reasoning capability a backend runs.
type Kind string

const (
	KindConsistencyCheck    Kind = "consistency_check"
	KindClassification      Kind = "classification"
	KindInstanceRealization Kind = "instance_realization"
	KindFullInference       Kind = "full_inference"
	KindSubsumption         Kind = "subsumption"
	KindPropertyAssertion   Kind = "property_assertion"
)

// Kinds lists every reasoning kind in a stable order.
var Kinds = []Kind{
	KindConsistencyCheck,
	KindClassification,
	KindInstanceRealization,
	KindFullInference,
	KindSubsumption,
	KindPropertyAssertion,
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.WrapInvalid(errors.ErrInvalidData, "reasoner", "ParseKind",
		fmt.Sprintf("unknown reasoning kind %q", s))
}

// InconsistencyKind names a class of logical contradiction.
type InconsistencyKind string

const (
	LogicalContradiction InconsistencyKind = "logical_contradiction"
	ClassDisjointness    InconsistencyKind = "class_disjointness"
	PropertyDomainRange  InconsistencyKind = "property_domain_range"
	CardinalityViolation InconsistencyKind = "cardinality_violation"
	UnsatisfiableClass   InconsistencyKind = "unsatisfiable_class"
)

// DefaultProfile is the OWL profile requested when none is configured.
const DefaultProfile = "OWL2_DL"

// Configuration parameterizes a single backend call.
type Configuration struct {
	Kind                   Kind          `json:"kind"`
	Timeout                time.Duration `json:"timeout"`
	CacheEnabled           bool          `json:"cache_enabled"`
	ExplainInconsistencies bool          `json:"explain_inconsistencies"`
	Profile                string        `json:"profile,omitempty"`
	Incremental            bool          `json:"incremental,omitempty"`
}

// Fingerprint identifies every field that changes what the backend
// computes. CacheEnabled is not part of it.
func (c Configuration) Fingerprint() string {
	profile := c.Profile
	if profile == "" {
		profile = DefaultProfile
	}
	return strings.Join([]string{
		string(c.Kind),
		profile,
		strconv.FormatInt(c.Timeout.Milliseconds(), 10) + "ms",
		"explain=" + strconv.FormatBool(c.ExplainInconsistencies),
		"incremental=" + strconv.FormatBool(c.Incremental),
	}, "_")
}

// CacheKey combines a dataset content hash with a configuration fingerprint.
func CacheKey(datasetHash string, cfg Configuration) string {
	return datasetHash + "_" + cfg.Fingerprint()
}

// Result is the outcome of one reasoning call. An inconsistent dataset is
// a successful result with Consistent set to false, never an error.
type Result struct {
	InferredDataset triple.Dataset      `json:"inferred_dataset"`
	Consistent      bool                `json:"consistent"`
	Duration        time.Duration       `json:"duration"`
	Inconsistencies []InconsistencyKind `json:"inconsistencies,omitempty"`
	Warnings        []string            `json:"warnings,omitempty"`
	Metadata        map[string]any      `json:"metadata,omitempty"`
}

// Clone returns a deep copy of r. Cached results are cloned on the way in
// and on the way out so callers can never mutate a stored entry.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{
		InferredDataset: r.InferredDataset.Clone(),
		Consistent:      r.Consistent,
		Duration:        r.Duration,
	}
	if r.Inconsistencies != nil {
		out.Inconsistencies = append([]InconsistencyKind(nil), r.Inconsistencies...)
	}
	if r.Warnings != nil {
		out.Warnings = append([]string(nil), r.Warnings...)
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = cloneValue(v)
		}
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// AddWarning appends a warning to the result.
func (r *Result) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// SetMetadata sets a metadata key, allocating the map on first use.
func (r *Result) SetMetadata(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// Metadata keys populated by ValidateOntology on inconsistent results.
const (
	MetadataUnsatisfiableClasses      = "unsatisfiable_classes"
	MetadataInconsistencyExplanations = "inconsistency_explanations"
)
