// Package errors implements the three-class error taxonomy used across the
// reasoning engine.
//
// # Classification
//
//   - Transient: backend unavailable, reasoning timeout, lost connections.
//     Retrying may succeed.
//   - Invalid: unsupported capabilities, malformed data. Do not retry.
//   - Fatal: corrupted state, invalid configuration. Stop processing.
//
// # Wrapping
//
// All wrapping follows the pattern
//
//	"component.method: action failed: %w"
//
// and keeps the chain intact for errors.Is and errors.As:
//
//	res, err := backend.Reason(ctx, ds, cfg)
//	if err != nil {
//	    return nil, errors.WrapTransient(err, "ReasoningService", "InferTriples", "backend reasoning")
//	}
//
// Inconsistency of a dataset is never reported as an error. It is a normal
// outcome carried on the reasoning result.
//
// # Retry
//
// RetryConfig bridges to the retry package. ToRetryConfig only retries
// errors that IsTransient accepts:
//
//	err := retry.Do(ctx, errors.DefaultRetryConfig().ToRetryConfig(), func() error {
//	    return kv.Put(ctx, key, value)
//	})
package errors
