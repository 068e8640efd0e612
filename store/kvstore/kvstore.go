// Package kvstore keeps the knowledge base in a NATS JetStream KV bucket,
// one key per triple. The key is the base64url encoding of the triple's
// canonical form, so a key listing is enough to rebuild the dataset.
// Events come from a bucket watcher and therefore also report writes made
// by other processes.
package kvstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/natsclient"
	"github.com/c360/semreason/pkg/retry"
	"github.com/c360/semreason/store"
	"github.com/c360/semreason/triple"
)

const component = "KVStore"

// Bucket is the part of natsclient.KVStore the store needs.
type Bucket interface {
	Bucket() string
	Get(ctx context.Context, key string) (*natsclient.KVEntry, error)
	Create(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Watch(ctx context.Context, pattern string, opts ...jetstream.WatchOpt) (jetstream.KeyWatcher, error)
}

// Store is safe for concurrent use.
type Store struct {
	kv     Bucket
	subs   *store.Subscriptions
	logger *slog.Logger
	retry  retry.Config

	mu    sync.Mutex
	known map[string]struct{}

	cancel    context.CancelFunc
	watcher   jetstream.KeyWatcher
	done      chan struct{}
	closeOnce sync.Once
}

var _ store.KnowledgeStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetry sets the backoff applied to bucket writes.
func WithRetry(cfg retry.Config) Option {
	return func(s *Store) {
		s.retry = cfg
	}
}

// DefaultRetry retries bucket writes briefly. Key conflicts and missing
// keys are outcomes, not failures, and are never retried.
func DefaultRetry() retry.Config {
	rc := errors.DefaultRetryConfig()
	rc.MaxRetries = 2
	rc.InitialDelay = 50 * time.Millisecond
	rc.MaxDelay = time.Second
	return rc.ToRetryConfig()
}

// unavailable marks a bucket failure as a storage outage so transient-only
// retry policies pick it up. The original error stays in the chain.
func unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errors.ErrStorageUnavailable, err)
}

// Open creates or opens bucket and returns a store over it.
func Open(ctx context.Context, client *natsclient.Client, bucket string, opts ...Option) (*Store, error) {
	kv, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "semreason asserted triples",
		History:     1,
	})
	if err != nil {
		return nil, err
	}
	return New(ctx, client.NewKVStore(kv), opts...)
}

// New starts watching kv and returns once the watcher has caught up with
// the bucket's current contents. Existing triples produce no events.
func New(ctx context.Context, kv Bucket, opts ...Option) (*Store, error) {
	s := &Store{
		kv:     kv,
		logger: slog.Default(),
		retry:  DefaultRetry(),
		known:  make(map[string]struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "kvstore", "bucket", kv.Bucket())
	s.subs = store.NewSubscriptions(s.logger)

	watchCtx, cancel := context.WithCancel(context.Background())
	watcher, err := kv.Watch(watchCtx, ">")
	if err != nil {
		cancel()
		return nil, err
	}
	s.cancel = cancel
	s.watcher = watcher

	ready := make(chan struct{})
	go s.watch(watchCtx, ready)

	select {
	case <-ready:
	case <-ctx.Done():
		_ = s.Close()
		return nil, errors.WrapTransient(ctx.Err(), component, "New", "wait for initial bucket state")
	}

	s.logger.Info("Knowledge store ready", "triples", s.Len())
	return s, nil
}

func (s *Store) watch(ctx context.Context, ready chan struct{}) {
	defer close(s.done)

	live := false
	markLive := func() {
		if !live {
			live = true
			close(ready)
		}
	}
	defer markLive()

	updates := s.watcher.Updates()
	for {
		var entry jetstream.KeyValueEntry
		select {
		case <-ctx.Done():
			return
		case e, ok := <-updates:
			if !ok {
				return
			}
			entry = e
		}

		if entry == nil {
			markLive()
			continue
		}

		t, err := decodeKey(entry.Key())
		if err != nil {
			s.logger.Warn("Ignoring foreign key", "key", entry.Key(), "error", err)
			continue
		}

		var op store.Operation
		switch entry.Operation() {
		case jetstream.KeyValuePut:
			op = store.OpInsert
		case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
			op = store.OpDelete
		default:
			continue
		}

		if s.track(entry.Key(), op) && live {
			s.subs.Dispatch(op, t)
		}
	}
}

// track records a key change and reports whether it was effective.
func (s *Store) track(key string, op store.Operation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, had := s.known[key]
	if op == store.OpInsert {
		s.known[key] = struct{}{}
		return !had
	}
	delete(s.known, key)
	return had
}

// Len returns the number of triples the watcher has seen live.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.known)
}

// Get implements store.KnowledgeStore. It reads the bucket, not the
// watcher's view, so it observes this process's writes immediately.
func (s *Store) Get(ctx context.Context) (triple.Dataset, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return triple.Dataset{}, errors.WrapTransient(err, component, "Get", "list keys")
	}

	ds := triple.NewDataset()
	for _, key := range keys {
		t, err := decodeKey(key)
		if err != nil {
			s.logger.Warn("Ignoring foreign key", "key", key, "error", err)
			continue
		}
		ds.Add(t)
	}
	return ds, nil
}

// Insert implements store.KnowledgeStore. Create makes a triple that is
// already stored a no-op, so it is never rewritten.
func (s *Store) Insert(ctx context.Context, ds triple.Dataset) error {
	for _, t := range ds.Triples() {
		value, err := json.Marshal(t)
		if err != nil {
			return errors.WrapInvalid(err, component, "Insert", "encode triple")
		}
		key := EncodeKey(t)
		err = retry.Do(ctx, s.retry, func() error {
			_, err := s.kv.Create(ctx, key, value)
			if stderrors.Is(err, natsclient.ErrKVKeyExists) {
				return nil
			}
			return unavailable(err)
		})
		if err != nil {
			return errors.WrapTransient(err, component, "Insert", "create "+t.String())
		}
	}
	return nil
}

// Remove implements store.KnowledgeStore.
func (s *Store) Remove(ctx context.Context, ds triple.Dataset) error {
	for _, t := range ds.Triples() {
		key := EncodeKey(t)
		err := retry.Do(ctx, s.retry, func() error {
			if _, err := s.kv.Get(ctx, key); err != nil {
				if natsclient.IsKVNotFoundError(err) {
					return nil
				}
				return unavailable(err)
			}
			if err := s.kv.Delete(ctx, key); err != nil && !natsclient.IsKVNotFoundError(err) {
				return unavailable(err)
			}
			return nil
		})
		if err != nil {
			return errors.WrapTransient(err, component, "Remove", "delete "+t.String())
		}
	}
	return nil
}

// Subscribe implements store.KnowledgeStore.
func (s *Store) Subscribe(pattern triple.Pattern, op store.Operation, cb store.Callback) (store.SubscriptionID, error) {
	return s.subs.Add(pattern, op, cb)
}

// Unsubscribe implements store.KnowledgeStore.
func (s *Store) Unsubscribe(id store.SubscriptionID) error {
	return s.subs.Remove(id)
}

// Close stops the watcher. Subsequent events are not delivered.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.watcher.Stop()
		s.cancel()
		<-s.done
	})
	return err
}

// EncodeKey returns the bucket key of t.
func EncodeKey(t triple.Triple) string {
	return base64.RawURLEncoding.EncodeToString([]byte(t.Canonical()))
}

func decodeKey(key string) (triple.Triple, error) {
	raw, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return triple.Triple{}, err
	}
	return triple.ParseCanonical(string(raw))
}
