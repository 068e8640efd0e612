// Package store defines the knowledge store the reasoning scheduler
// observes, and the subscription registry its implementations share.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/triple"
)

// Operation is the kind of mutation an event reports.
type Operation string

const (
	OpInsert Operation = "insert"
	OpDelete Operation = "delete"
)

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	return o == OpInsert || o == OpDelete
}

// SubscriptionID identifies a registered callback.
type SubscriptionID string

// Callback receives one event per effectively inserted or removed triple.
// Callbacks must not block.
type Callback func(op Operation, t triple.Triple)

// ErrSubscriptionNotFound is returned when unsubscribing an unknown ID.
var ErrSubscriptionNotFound = fmt.Errorf("subscription not found: %w", errors.ErrInvalidData)

// KnowledgeStore holds the asserted triples.
type KnowledgeStore interface {
	// Get returns a snapshot of every stored triple.
	Get(ctx context.Context) (triple.Dataset, error)

	// Insert adds triples. Triples already present are not re-added and
	// produce no events.
	Insert(ctx context.Context, ds triple.Dataset) error

	// Remove deletes triples. Absent triples produce no events.
	Remove(ctx context.Context, ds triple.Dataset) error

	Subscribe(pattern triple.Pattern, op Operation, cb Callback) (SubscriptionID, error)
	Unsubscribe(id SubscriptionID) error
}

type subscription struct {
	pattern triple.Pattern
	op      Operation
	cb      Callback
}

// Subscriptions is a concurrency-safe callback registry. Dispatch calls
// matching callbacks synchronously, outside the registry lock, so a
// callback may subscribe or unsubscribe.
type Subscriptions struct {
	mu     sync.RWMutex
	subs   map[SubscriptionID]subscription
	order  []SubscriptionID
	logger *slog.Logger
}

// NewSubscriptions creates an empty registry.
func NewSubscriptions(logger *slog.Logger) *Subscriptions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriptions{
		subs:   make(map[SubscriptionID]subscription),
		logger: logger,
	}
}

// Add registers cb.
func (s *Subscriptions) Add(pattern triple.Pattern, op Operation, cb Callback) (SubscriptionID, error) {
	if !op.Valid() {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "Subscriptions", "Add",
			fmt.Sprintf("unknown operation %q", op))
	}
	if cb == nil {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "Subscriptions", "Add", "callback is required")
	}

	id := SubscriptionID(uuid.NewString())
	s.mu.Lock()
	s.subs[id] = subscription{pattern: pattern, op: op, cb: cb}
	s.order = append(s.order, id)
	s.mu.Unlock()
	return id, nil
}

// Remove unregisters id.
func (s *Subscriptions) Remove(id SubscriptionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[id]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(s.subs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of registered callbacks.
func (s *Subscriptions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Dispatch delivers one event to every matching callback in
// registration order. A panicking callback is logged and skipped.
func (s *Subscriptions) Dispatch(op Operation, t triple.Triple) {
	s.mu.RLock()
	targets := make([]Callback, 0, len(s.order))
	for _, id := range s.order {
		sub := s.subs[id]
		if sub.op == op && sub.pattern.Matches(t) {
			targets = append(targets, sub.cb)
		}
	}
	s.mu.RUnlock()

	for _, cb := range targets {
		s.invoke(cb, op, t)
	}
}

func (s *Subscriptions) invoke(cb Callback, op Operation, t triple.Triple) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Subscription callback panicked", "operation", op, "triple", t.String(), "panic", r)
		}
	}()
	cb(op, t)
}
