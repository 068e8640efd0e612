package scheduler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/metric"
	"github.com/c360/semreason/pkg/worker"
)

// Publisher sends a message on a subject. natsclient.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// InconsistencyPublisher is an Observer that publishes inconsistent pass
// reports as JSON. Publishing happens on a worker so a slow bus never
// holds up the pass that produced the report.
type InconsistencyPublisher struct {
	pub     Publisher
	subject string
	timeout time.Duration
	logger  *slog.Logger
	pool    *worker.Pool[PassReport]
}

// PublisherOption configures an InconsistencyPublisher.
type PublisherOption func(*publisherOptions)

type publisherOptions struct {
	logger    *slog.Logger
	registry  *metric.MetricsRegistry
	queueSize int
	timeout   time.Duration
}

// WithPublisherLogger sets the logger.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(o *publisherOptions) {
		o.logger = logger
	}
}

// WithPublisherMetrics exports the delivery queue metrics.
func WithPublisherMetrics(registry *metric.MetricsRegistry) PublisherOption {
	return func(o *publisherOptions) {
		o.registry = registry
	}
}

// WithPublishQueue bounds the reports waiting for delivery. Default 64.
func WithPublishQueue(size int) PublisherOption {
	return func(o *publisherOptions) {
		o.queueSize = size
	}
}

// WithPublishTimeout bounds a single publish. Default 5s.
func WithPublishTimeout(d time.Duration) PublisherOption {
	return func(o *publisherOptions) {
		o.timeout = d
	}
}

// NewInconsistencyPublisher creates an observer publishing on subject.
// Reports are only delivered between Start and Stop.
func NewInconsistencyPublisher(pub Publisher, subject string, opts ...PublisherOption) (*InconsistencyPublisher, error) {
	if pub == nil || subject == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "InconsistencyPublisher", "New",
			"publisher and subject are required")
	}

	o := publisherOptions{logger: slog.Default(), queueSize: 64, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	p := &InconsistencyPublisher{
		pub:     pub,
		subject: subject,
		timeout: o.timeout,
		logger:  o.logger.With("component", "inconsistency-publisher", "subject", subject),
	}

	pool, err := worker.NewPool(1, o.queueSize, p.publish,
		worker.WithName[PassReport]("inconsistency_publisher"),
		worker.WithMetrics[PassReport](o.registry))
	if err != nil {
		return nil, errors.WrapInvalid(err, "InconsistencyPublisher", "New", "create delivery pool")
	}
	p.pool = pool
	return p, nil
}

// Start begins delivering reports.
func (p *InconsistencyPublisher) Start(ctx context.Context) error {
	return p.pool.Start(ctx)
}

// Stop delivers the queued reports, waiting at most timeout.
func (p *InconsistencyPublisher) Stop(timeout time.Duration) error {
	return p.pool.Stop(timeout)
}

// Stats returns delivery counters.
func (p *InconsistencyPublisher) Stats() worker.Stats {
	return p.pool.Stats()
}

// PassCompleted queues r when it found the store inconsistent.
func (p *InconsistencyPublisher) PassCompleted(r PassReport) {
	if r.Outcome != OutcomeInconsistent {
		return
	}
	if err := p.pool.Submit(r); err != nil {
		level := slog.LevelWarn
		if stderrors.Is(err, worker.ErrPoolStopped) {
			level = slog.LevelDebug
		}
		p.logger.Log(context.Background(), level, "Inconsistency report not queued", "pass", r.ID, "error", err)
	}
}

func (p *InconsistencyPublisher) publish(ctx context.Context, r PassReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		p.logger.Error("Failed to encode pass report", "pass", r.ID, "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.pub.Publish(ctx, p.subject, data); err != nil {
		p.logger.Warn("Failed to publish inconsistency report", "pass", r.ID, "error", err)
		return err
	}
	return nil
}
