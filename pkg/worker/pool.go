package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semreason/metric"
)

// Pool processes items of type T on a fixed set of goroutines.
type Pool[T any] struct {
	name      string
	workers   int
	queueSize int
	processor func(context.Context, T) error

	queue   chan T
	wg      sync.WaitGroup
	metrics *poolMetrics

	mu      sync.Mutex
	started bool
	stopped bool

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

type poolMetrics struct {
	depth     prometheus.Gauge
	submitted prometheus.Counter
	dropped   prometheus.Counter
	duration  *prometheus.HistogramVec
}

// Option configures a Pool.
type Option[T any] func(*Pool[T]) error

// WithName labels the pool in logs and metrics. Default "default".
func WithName[T any](name string) Option[T] {
	return func(p *Pool[T]) error {
		if name != "" {
			p.name = name
		}
		return nil
	}
}

// WithMetrics registers the pool metrics. A nil registry disables them.
func WithMetrics[T any](registry *metric.MetricsRegistry) Option[T] {
	return func(p *Pool[T]) error {
		if registry == nil {
			return nil
		}
		m, err := newPoolMetrics(registry, p.name)
		if err != nil {
			return err
		}
		p.metrics = m
		return nil
	}
}

// NewPool creates a pool. Non-positive workers or queueSize fall back to
// 1 and 100. Options apply in order, so WithName goes before WithMetrics.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) (*Pool[T], error) {
	if processor == nil {
		return nil, ErrNilProcessor
	}
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	p := &Pool[T]{
		name:      "default",
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		queue:     make(chan T, queueSize),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func newPoolMetrics(registry *metric.MetricsRegistry, name string) (*poolMetrics, error) {
	labels := prometheus.Labels{"pool": name}
	component := "worker_" + name

	m := &poolMetrics{
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "worker",
			Name:        "queue_depth",
			Help:        "Items waiting in the pool queue",
			ConstLabels: labels,
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "worker",
			Name:        "submitted_total",
			Help:        "Items accepted by the pool",
			ConstLabels: labels,
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "worker",
			Name:        "dropped_total",
			Help:        "Items dropped because the queue was full",
			ConstLabels: labels,
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "worker",
			Name:        "processing_duration_seconds",
			Help:        "Time spent processing one item",
			ConstLabels: labels,
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"status"}),
	}

	if err := registry.RegisterGauge(component, "queue_depth", m.depth); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(component, "submitted_total", m.submitted); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(component, "dropped_total", m.dropped); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec(component, "processing_duration_seconds", m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// Name returns the pool name.
func (p *Pool[T]) Name() string {
	return p.name
}

// Submit queues work without blocking.
func (p *Pool[T]) Submit(work T) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.queue <- work:
		p.submitted.Add(1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.depth.Set(float64(len(p.queue)))
		}
		return nil
	default:
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// Start launches the workers. They exit when ctx is cancelled or after
// Stop drains the queue.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.started = true
	return nil
}

// Stop refuses new work and waits up to timeout for queued items.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats is a point-in-time view of the pool counters.
type Stats struct {
	Name       string `json:"name"`
	Workers    int    `json:"workers"`
	QueueSize  int    `json:"queue_size"`
	QueueDepth int    `json:"queue_depth"`
	Submitted  int64  `json:"submitted"`
	Processed  int64  `json:"processed"`
	Failed     int64  `json:"failed"`
	Dropped    int64  `json:"dropped"`
}

// Stats returns the current counters.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Name:       p.name,
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.queue),
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
	}
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(ctx, work)
		}
	}
}

func (p *Pool[T]) process(ctx context.Context, work T) {
	start := time.Now()
	err := p.processor(ctx, work)

	p.processed.Add(1)
	status := "success"
	if err != nil {
		p.failed.Add(1)
		status = "error"
	}
	if p.metrics != nil {
		p.metrics.duration.WithLabelValues(status).Observe(time.Since(start).Seconds())
		p.metrics.depth.Set(float64(len(p.queue)))
	}
}
