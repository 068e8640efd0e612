package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/pkg/retry"
)

// KV errors
var (
	ErrKVKeyNotFound = fmt.Errorf("kv: %w", errors.ErrKeyNotFound)
	ErrKVKeyExists   = stderrors.New("kv: key already exists")
)

// KVEntry is a value with its revision
type KVEntry struct {
	Key      string
	Value    []byte
	Revision uint64
}

// KVOptions configures KV operations
type KVOptions struct {
	Timeout time.Duration // per-operation timeout
	Retry   retry.Config  // applied to transient failures of writes and reads
}

// DefaultKVOptions returns defaults suited to small, frequent writes
func DefaultKVOptions() KVOptions {
	return KVOptions{
		Timeout: 5 * time.Second,
		Retry: retry.Config{
			MaxAttempts:  4,
			InitialDelay: 20 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2.0,
			AddJitter:    true,
			Retryable:    isRetryableKVError,
		},
	}
}

// KVStore wraps a bucket with timeouts and retries
type KVStore struct {
	bucket  jetstream.KeyValue
	options KVOptions
	logger  *slog.Logger
}

// NewKVStore wraps bucket
func (c *Client) NewKVStore(bucket jetstream.KeyValue, opts ...func(*KVOptions)) *KVStore {
	options := DefaultKVOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &KVStore{
		bucket:  bucket,
		options: options,
		logger:  c.logger.With("bucket", bucket.Bucket()),
	}
}

// Bucket returns the bucket name
func (kv *KVStore) Bucket() string {
	return kv.bucket.Bucket()
}

func (kv *KVStore) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if kv.options.Timeout > 0 {
		return context.WithTimeout(ctx, kv.options.Timeout)
	}
	return ctx, func() {}
}

// Get returns the current value of key
func (kv *KVStore) Get(ctx context.Context, key string) (*KVEntry, error) {
	return retry.DoWithResult(ctx, kv.options.Retry, func() (*KVEntry, error) {
		ctx, cancel := kv.applyTimeout(ctx)
		defer cancel()

		entry, err := kv.bucket.Get(ctx, key)
		if err != nil {
			if IsKVNotFoundError(err) {
				return nil, ErrKVKeyNotFound
			}
			return nil, fmt.Errorf("kv get %s: %w", key, err)
		}
		return &KVEntry{Key: key, Value: entry.Value(), Revision: entry.Revision()}, nil
	})
}

// Put writes key unconditionally
func (kv *KVStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	return retry.DoWithResult(ctx, kv.options.Retry, func() (uint64, error) {
		ctx, cancel := kv.applyTimeout(ctx)
		defer cancel()

		rev, err := kv.bucket.Put(ctx, key, value)
		if err != nil {
			return 0, fmt.Errorf("kv put %s: %w", key, err)
		}
		return rev, nil
	})
}

// Create writes key only if it does not exist
func (kv *KVStore) Create(ctx context.Context, key string, value []byte) (uint64, error) {
	return retry.DoWithResult(ctx, kv.options.Retry, func() (uint64, error) {
		ctx, cancel := kv.applyTimeout(ctx)
		defer cancel()

		rev, err := kv.bucket.Create(ctx, key, value)
		if err != nil {
			if stderrors.Is(err, jetstream.ErrKeyExists) {
				return 0, ErrKVKeyExists
			}
			return 0, fmt.Errorf("kv create %s: %w", key, err)
		}
		return rev, nil
	})
}

// Delete removes key. Deleting a missing key returns ErrKVKeyNotFound.
func (kv *KVStore) Delete(ctx context.Context, key string) error {
	return retry.Do(ctx, kv.options.Retry, func() error {
		ctx, cancel := kv.applyTimeout(ctx)
		defer cancel()

		if err := kv.bucket.Delete(ctx, key); err != nil {
			if IsKVNotFoundError(err) {
				return ErrKVKeyNotFound
			}
			return fmt.Errorf("kv delete %s: %w", key, err)
		}
		return nil
	})
}

// Keys lists the live keys of the bucket. An empty bucket yields no keys
// and no error.
func (kv *KVStore) Keys(ctx context.Context) ([]string, error) {
	return retry.DoWithResult(ctx, kv.options.Retry, func() ([]string, error) {
		ctx, cancel := kv.applyTimeout(ctx)
		defer cancel()

		keys, err := kv.bucket.Keys(ctx)
		if err != nil {
			if stderrors.Is(err, jetstream.ErrNoKeysFound) {
				return []string{}, nil
			}
			return nil, fmt.Errorf("kv keys: %w", err)
		}
		return keys, nil
	})
}

// Watch watches keys matching pattern. The watcher lives until ctx ends
// or Stop is called.
func (kv *KVStore) Watch(ctx context.Context, pattern string, opts ...jetstream.WatchOpt) (jetstream.KeyWatcher, error) {
	watcher, err := kv.bucket.Watch(ctx, pattern, opts...)
	if err != nil {
		return nil, errors.WrapTransient(err, "KVStore", "Watch", "watch "+pattern)
	}
	return watcher, nil
}

// IsKVNotFoundError reports whether err means the key does not exist
func IsKVNotFoundError(err error) bool {
	return stderrors.Is(err, ErrKVKeyNotFound) ||
		stderrors.Is(err, jetstream.ErrKeyNotFound) ||
		stderrors.Is(err, jetstream.ErrKeyDeleted)
}

// isRetryableKVError retries everything except outcomes that will not
// change on another attempt.
func isRetryableKVError(err error) bool {
	switch {
	case IsKVNotFoundError(err), stderrors.Is(err, ErrKVKeyExists),
		stderrors.Is(err, context.Canceled), stderrors.Is(err, jetstream.ErrInvalidKey):
		return false
	}
	return true
}
