// Package memstore is an in-process knowledge store. Events are
// dispatched synchronously, after the write lock is released, and only
// for triples that actually changed.
package memstore

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360/semreason/store"
	"github.com/c360/semreason/triple"
)

// Store is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	data   triple.Dataset
	subs   *store.Subscriptions
	logger *slog.Logger
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

// WithDataset seeds the store without emitting events.
func WithDataset(ds triple.Dataset) Option {
	return func(s *Store) { s.data = ds.Clone() }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		data:   triple.NewDataset(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "memstore")
	s.subs = store.NewSubscriptions(s.logger)
	return s
}

// Get implements store.KnowledgeStore.
func (s *Store) Get(ctx context.Context) (triple.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return triple.Dataset{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone(), nil
}

// Insert implements store.KnowledgeStore.
func (s *Store) Insert(ctx context.Context, ds triple.Dataset) error {
	return s.apply(ctx, store.OpInsert, ds)
}

// Remove implements store.KnowledgeStore.
func (s *Store) Remove(ctx context.Context, ds triple.Dataset) error {
	return s.apply(ctx, store.OpDelete, ds)
}

func (s *Store) apply(ctx context.Context, op store.Operation, ds triple.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var changed []triple.Triple
	s.mu.Lock()
	for _, t := range ds.Triples() {
		var ok bool
		if op == store.OpInsert {
			ok = s.data.Add(t)
		} else {
			ok = s.data.Remove(t)
		}
		if ok {
			changed = append(changed, t)
		}
	}
	s.mu.Unlock()

	if len(changed) > 0 {
		s.logger.Debug("Store changed", "operation", op, "triples", len(changed))
	}
	for _, t := range changed {
		s.subs.Dispatch(op, t)
	}
	return nil
}

// Len returns the number of stored triples.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Len()
}

// Subscribe implements store.KnowledgeStore.
func (s *Store) Subscribe(pattern triple.Pattern, op store.Operation, cb store.Callback) (store.SubscriptionID, error) {
	return s.subs.Add(pattern, op, cb)
}

// Unsubscribe implements store.KnowledgeStore.
func (s *Store) Unsubscribe(id store.SubscriptionID) error {
	return s.subs.Remove(id)
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	return s.subs.Len()
}
