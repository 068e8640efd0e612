package gateway

import (
	"time"

	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/triple"
)

// RunResponse answers a manual reasoning run.
type RunResponse struct {
	Kind     reasoner.Kind  `json:"kind"`
	Triples  int            `json:"triples"`
	Dataset  triple.Dataset `json:"dataset"`
	Duration string         `json:"duration"`
}

// ConsistencyResponse answers a manual consistency check.
type ConsistencyResponse struct {
	Consistent bool   `json:"consistent"`
	Duration   string `json:"duration"`
}

// ValidationResponse answers a manual validation.
type ValidationResponse struct {
	Consistent           bool                         `json:"consistent"`
	Inconsistencies      []reasoner.InconsistencyKind `json:"inconsistencies,omitempty"`
	Explanations         []string                     `json:"explanations,omitempty"`
	UnsatisfiableClasses []string                     `json:"unsatisfiable_classes,omitempty"`
	Warnings             []string                     `json:"warnings,omitempty"`
	InferredTriples      int                          `json:"inferred_triples"`
	Duration             string                       `json:"duration"`
}

// NewValidationResponse flattens a validation result.
func NewValidationResponse(res *reasoner.Result, took time.Duration) ValidationResponse {
	return ValidationResponse{
		Consistent:           res.Consistent,
		Inconsistencies:      res.Inconsistencies,
		Explanations:         stringsMetadata(res, reasoner.MetadataInconsistencyExplanations),
		UnsatisfiableClasses: stringsMetadata(res, reasoner.MetadataUnsatisfiableClasses),
		Warnings:             res.Warnings,
		InferredTriples:      res.InferredDataset.Len(),
		Duration:             took.String(),
	}
}

func stringsMetadata(res *reasoner.Result, key string) []string {
	switch v := res.Metadata[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ToggleResponse answers enable and disable requests.
type ToggleResponse struct {
	AutoReasoningEnabled bool `json:"auto_reasoning_enabled"`
}

// CacheResponse answers a cache invalidation.
type CacheResponse struct {
	Pattern     string `json:"pattern"`
	Invalidated bool   `json:"invalidated"`
}

// BackendInfo describes a reasoning backend.
type BackendInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Kinds       []reasoner.Kind `json:"kinds"`
	NeedsNATS   bool            `json:"needs_nats"`
	Active      bool            `json:"active"`
}

// BackendsResponse lists the available backends.
type BackendsResponse struct {
	Active   string        `json:"active"`
	Backends []BackendInfo `json:"backends"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}
