// Package remote runs reasoning on another process over NATS
// request/reply. Backend is the calling side and implements
// reasoner.Backend; Serve exposes any reasoner.Backend on the same
// subjects. Messages are JSON.
package remote

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/triple"
)

const component = "RemoteBackend"

// Requester sends a request and waits for one reply. *natsclient.Client
// implements it.
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// Backend forwards every call to a remote server.
type Backend struct {
	client Requester
	prefix string
	name   string
	logger *slog.Logger
}

var _ reasoner.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithPrefix sets the subject prefix.
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

// WithName overrides the reported backend name.
func WithName(name string) Option {
	return func(b *Backend) {
		if name != "" {
			b.name = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a remote backend using client.
func New(client Requester, opts ...Option) *Backend {
	b := &Backend{
		client: client,
		prefix: DefaultPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.name == "" {
		b.name = "remote:" + b.prefix
	}
	b.logger = b.logger.With("component", "remote-backend", "prefix", b.prefix)
	return b
}

// Name implements reasoner.Backend.
func (b *Backend) Name() string {
	return b.name
}

// Reason implements reasoner.Backend.
func (b *Backend) Reason(ctx context.Context, ds triple.Dataset, cfg reasoner.Configuration) (*reasoner.Result, error) {
	reply, err := b.call(ctx, "Reason", SubjectReason, Request{Dataset: ds, Configuration: &cfg})
	if err != nil {
		return nil, err
	}
	if reply.Result == nil {
		return nil, malformed("Reason", "missing result")
	}
	return reply.Result, nil
}

// CheckConsistency implements reasoner.Backend.
func (b *Backend) CheckConsistency(ctx context.Context, ds triple.Dataset) (bool, error) {
	reply, err := b.call(ctx, "CheckConsistency", SubjectConsistency, Request{Dataset: ds})
	if err != nil {
		return false, err
	}
	if reply.Consistent == nil {
		return false, malformed("CheckConsistency", "missing verdict")
	}
	return *reply.Consistent, nil
}

// UnsatisfiableEntities implements reasoner.Backend.
func (b *Backend) UnsatisfiableEntities(ctx context.Context, ds triple.Dataset) ([]string, error) {
	reply, err := b.call(ctx, "UnsatisfiableEntities", SubjectUnsatisfiable, Request{Dataset: ds})
	if err != nil {
		return nil, err
	}
	return nonNil(reply.Lines), nil
}

// ExplainInconsistency implements reasoner.Backend.
func (b *Backend) ExplainInconsistency(ctx context.Context, ds triple.Dataset) ([]string, error) {
	reply, err := b.call(ctx, "ExplainInconsistency", SubjectExplain, Request{Dataset: ds})
	if err != nil {
		return nil, err
	}
	return nonNil(reply.Lines), nil
}

func (b *Backend) call(ctx context.Context, method, suffix string, req Request) (*Reply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.WrapInvalid(err, component, method, "encode request")
	}

	subject := b.prefix + "." + suffix
	data, err := b.client.Request(ctx, subject, body)
	if err != nil {
		b.logger.Warn("Remote reasoning call failed", "subject", subject, "error", err)
		return nil, transportError(err, method)
	}

	var reply Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, malformed(method, err.Error())
	}
	if reply.Error != nil {
		return nil, fromReplyError(reply.Error, method)
	}
	return &reply, nil
}

// transportError keeps context errors intact so deadlines surface as
// reasoning timeouts, and reports everything else as an unavailable
// backend.
func transportError(err error, method string) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, nats.ErrTimeout) {
		return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrReasoningTimeout, err), component, method, "remote call")
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.WrapTransient(err, component, method, "remote call")
	}
	return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrBackendUnavailable, err), component, method, "remote call")
}

func malformed(method, detail string) error {
	return errors.WrapTransient(fmt.Errorf("%w: malformed reply: %s", errors.ErrBackendUnavailable, detail),
		component, method, "decode reply")
}

func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
