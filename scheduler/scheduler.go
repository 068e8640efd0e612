package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/metric"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/store"
	"github.com/c360/semreason/triple"
)

// Reasoner is the part of reasoner.Service the scheduler drives.
type Reasoner interface {
	Reason(ctx context.Context, ds triple.Dataset, kind reasoner.Kind) (*reasoner.Result, error)
	CheckConsistency(ctx context.Context, ds triple.Dataset) (bool, error)
	ValidateOntology(ctx context.Context, ds triple.Dataset) (*reasoner.Result, error)
	GetStatistics() reasoner.StatisticsSnapshot
}

// State is the scheduler's position in the Idle, Accumulating, Scheduled
// cycle.
type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateScheduled
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateScheduled:
		return "scheduled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config controls debouncing.
type Config struct {
	AutoReasoning  bool
	BatchSize      int
	ReasoningDelay time.Duration
	EscapeDelay    time.Duration
}

// DefaultConfig returns the default debounce settings.
func DefaultConfig() Config {
	return Config{
		AutoReasoning:  true,
		BatchSize:      100,
		ReasoningDelay: 5 * time.Second,
		EscapeDelay:    100 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Scheduler", "Validate",
			fmt.Sprintf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.ReasoningDelay < 0 || c.EscapeDelay < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Scheduler", "Validate",
			"delays must not be negative")
	}
	return nil
}

// PendingChange is a buffered store mutation.
type PendingChange struct {
	Operation store.Operation
	Triple    triple.Triple
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConfig replaces the debounce settings.
func WithConfig(cfg Config) Option {
	return func(s *Scheduler) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger.With("component", "scheduler")
		}
	}
}

// WithMetrics enables Prometheus metrics. A nil registry disables them.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Scheduler) {
		s.metrics = newSchedulerMetrics(registry)
	}
}

// WithObserver adds an observer notified after every pass.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Scheduler batches store changes into reasoning passes.
type Scheduler struct {
	store     store.KnowledgeStore
	reasoner  Reasoner
	cfg       Config
	logger    *slog.Logger
	metrics   *schedulerMetrics
	observers []Observer
	stats     statistics

	// mu guards the buffer, timer and lifecycle fields
	mu            sync.Mutex
	enabled       bool
	closed        bool
	state         State
	pending       []PendingChange
	timer         *time.Timer
	timerSeq      uint64
	generation    uint64
	subscriptions []store.SubscriptionID

	// passMu serializes passes
	passMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler. When auto reasoning is configured it
// subscribes to the store immediately.
func New(st store.KnowledgeStore, r Reasoner, opts ...Option) (*Scheduler, error) {
	if st == nil || r == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Scheduler", "New",
			"store and reasoner are required")
	}

	s := &Scheduler{
		store:    st,
		reasoner: r,
		cfg:      DefaultConfig(),
		logger:   slog.Default().With("component", "scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if s.cfg.AutoReasoning {
		if err := s.Enable(); err != nil {
			s.cancel()
			return nil, err
		}
	}
	return s, nil
}

// OnChange buffers a store mutation and rearms the timer. Changes
// arriving while the scheduler is disabled are dropped.
func (s *Scheduler) OnChange(op store.Operation, t triple.Triple) {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		s.stats.changeDropped()
		return
	}
	s.pending = append(s.pending, PendingChange{Operation: op, Triple: t})
	s.state = StateAccumulating
	s.reschedule()
	n := len(s.pending)
	s.mu.Unlock()

	s.stats.changeReceived()
	s.metrics.change(op, n)
}

// reschedule arms the single outstanding timer. Caller holds mu.
func (s *Scheduler) reschedule() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerSeq++
	seq := s.timerSeq

	delay := s.cfg.ReasoningDelay
	if len(s.pending) >= s.cfg.BatchSize {
		delay = s.cfg.EscapeDelay
	}
	s.timer = time.AfterFunc(delay, func() { s.fire(seq) })
	s.state = StateScheduled
}

// cancelTimer invalidates any armed timer. Caller holds mu.
func (s *Scheduler) cancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
}

func (s *Scheduler) fire(seq uint64) {
	s.mu.Lock()
	// a stopped timer may still run if it fired concurrently with Stop
	if seq != s.timerSeq || s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.RunScheduledReasoning(s.ctx)
}

// RunScheduledReasoning drains the buffer and runs one validation pass
// over the whole store. It returns nil when nothing was pending. Errors
// are logged and recorded as failed passes rather than returned.
func (s *Scheduler) RunScheduledReasoning(ctx context.Context) *PassReport {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	s.mu.Lock()
	changes := s.pending
	s.pending = nil
	gen := s.generation
	// the drained changes were what any armed timer was waiting for
	s.cancelTimer()
	s.mu.Unlock()

	if len(changes) == 0 {
		s.settle()
		return nil
	}
	s.metrics.setPending(0)

	report := PassReport{
		ID:        uuid.NewString(),
		Trigger:   TriggerScheduled,
		Kind:      reasoner.KindFullInference,
		Changes:   len(changes),
		StartedAt: time.Now(),
	}
	s.logger.Debug("Starting reasoning pass", "pass", report.ID, "changes", len(changes))

	// errors stop at the scheduling boundary; fail has logged them
	_, _ = s.validatePass(ctx, gen, true, &report)
	s.finish(&report)
	return &report
}

// validatePass validates the current store and, when merge is set,
// writes back new inferences unless the generation moved on.
func (s *Scheduler) validatePass(ctx context.Context, gen uint64, merge bool, report *PassReport) (*reasoner.Result, error) {
	current, err := s.store.Get(ctx)
	if err != nil {
		s.fail(report, "read store", err)
		return nil, errors.WrapTransient(err, "Scheduler", "validatePass", "read store")
	}

	res, err := s.reasoner.ValidateOntology(ctx, current)
	if err != nil {
		s.fail(report, "validate", err)
		return nil, errors.WrapClassified(err, "Scheduler", "validatePass", "validate ontology")
	}

	if !res.Consistent {
		s.handleInconsistency(res, report)
		return res, nil
	}

	report.Outcome = OutcomeNoChange
	if !merge || !res.InferredDataset.IsStrictSupersetOf(current) {
		return res, nil
	}

	added := res.InferredDataset.Difference(current)
	if !s.stillCurrent(gen) {
		report.Outcome = OutcomeDiscarded
		s.logger.Info("Discarding inferences, scheduler was disabled during the pass",
			"pass", report.ID, "inferred", added.Len())
		return res, nil
	}
	if err := s.store.Insert(ctx, added); err != nil {
		s.fail(report, "merge inferences", err)
		return nil, errors.WrapTransient(err, "Scheduler", "validatePass", "insert inferences")
	}
	report.Outcome = OutcomeMerged
	report.Inferred = added.Len()
	s.logger.Info("Merged inferred triples", "pass", report.ID, "inferred", added.Len())
	return res, nil
}

func (s *Scheduler) stillCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled && s.generation == gen
}

func (s *Scheduler) handleInconsistency(res *reasoner.Result, report *PassReport) {
	report.Outcome = OutcomeInconsistent
	report.Inconsistencies = append([]reasoner.InconsistencyKind(nil), res.Inconsistencies...)
	report.Explanations = explanations(res)

	s.logger.Warn("Knowledge store is inconsistent",
		"pass", report.ID, "kinds", report.Inconsistencies)
	for _, line := range report.Explanations {
		s.logger.Warn("Inconsistency explanation", "pass", report.ID, "explanation", line)
	}
}

func (s *Scheduler) fail(report *PassReport, action string, err error) {
	report.Outcome = OutcomeFailed
	report.Error = err.Error()
	s.logger.Error("Reasoning pass failed", "pass", report.ID, "action", action, "error", err)
}

// settle returns to Idle once a pass is over, unless changes that arrived
// meanwhile armed a new timer.
func (s *Scheduler) settle() {
	s.mu.Lock()
	if s.timer == nil && len(s.pending) == 0 {
		s.state = StateIdle
	}
	s.mu.Unlock()
}

func (s *Scheduler) finish(report *PassReport) {
	report.Duration = time.Since(report.StartedAt)
	s.settle()
	s.stats.record(*report)
	s.metrics.pass(*report)
	for _, o := range s.observers {
		o.PassCompleted(*report)
	}
}

// explanations reads the explanation lines from result metadata. Remote
// backends decode them from JSON as []any.
func explanations(res *reasoner.Result) []string {
	switch v := res.Metadata[reasoner.MetadataInconsistencyExplanations].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if line, ok := e.(string); ok {
				out = append(out, line)
			}
		}
		return out
	default:
		return nil
	}
}

// Enable subscribes to store changes. It is a no-op when already enabled.
func (s *Scheduler) Enable() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrShuttingDown, "Scheduler", "Enable", "scheduler is closed")
	}
	if s.enabled {
		s.mu.Unlock()
		return nil
	}
	s.enabled = true
	s.mu.Unlock()

	var ids []store.SubscriptionID
	for _, op := range []store.Operation{store.OpInsert, store.OpDelete} {
		id, err := s.store.Subscribe(triple.Wildcard, op, s.OnChange)
		if err != nil {
			s.unsubscribe(ids)
			s.mu.Lock()
			s.enabled = false
			s.mu.Unlock()
			return errors.WrapTransient(err, "Scheduler", "Enable", "subscribe to "+string(op))
		}
		ids = append(ids, id)
	}

	s.mu.Lock()
	s.subscriptions = ids
	if len(s.pending) > 0 && s.timer == nil {
		s.reschedule()
	}
	s.mu.Unlock()

	s.logger.Info("Automatic reasoning enabled")
	return nil
}

// Disable stops automatic reasoning. It is idempotent.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	s.enabled = false
	s.cancelTimer()
	s.generation++
	ids := s.subscriptions
	s.subscriptions = nil
	if len(s.pending) > 0 {
		s.state = StateAccumulating
	} else {
		s.state = StateIdle
	}
	s.mu.Unlock()

	s.unsubscribe(ids)
	s.logger.Info("Automatic reasoning disabled")
}

func (s *Scheduler) unsubscribe(ids []store.SubscriptionID) {
	for _, id := range ids {
		if err := s.store.Unsubscribe(id); err != nil {
			s.logger.Warn("Failed to unsubscribe", "subscription", id, "error", err)
		}
	}
}

// Enabled reports whether automatic reasoning is on.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// State returns the current scheduling state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the number of buffered changes.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close disables the scheduler, clears the buffer and waits for a timer
// pass in flight to return.
func (s *Scheduler) Close() error {
	s.Disable()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.pending = nil
	s.state = StateIdle
	s.mu.Unlock()

	s.metrics.setPending(0)
	s.cancel()
	s.wg.Wait()
	return nil
}
