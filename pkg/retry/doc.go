// Package retry provides exponential backoff retry logic for transient failures.
//
// Do runs a function until it succeeds, the attempt budget is spent, the
// context is cancelled, or the error is rejected by Config.Retryable or
// wrapped with NonRetryable. The NATS KV wrapper and the kv knowledge store
// use it for bucket operations.
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return kv.Put(ctx, key, value)
//	})
package retry
