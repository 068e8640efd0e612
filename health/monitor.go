package health

import (
	"context"
	"sync"
	"time"
)

// Checker reports the current health of one part of the engine.
type Checker interface {
	Check(ctx context.Context) Status
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) Status

// Check calls f.
func (f CheckerFunc) Check(ctx context.Context) Status {
	return f(ctx)
}

// Monitor runs registered checks and keeps their latest statuses.
type Monitor struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	statuses map[string]Status
	timeout  time.Duration
}

// NewMonitor creates a monitor. Each check gets timeout to answer; zero
// means five seconds.
func NewMonitor(timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{
		checkers: make(map[string]Checker),
		statuses: make(map[string]Status),
		timeout:  timeout,
	}
}

// Register adds or replaces the check for name.
func (m *Monitor) Register(name string, c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = c
}

// Update records a status for name directly.
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.statuses[name] = status
}

// Get retrieves the latest status for name.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[name]
	return status, ok
}

// Remove drops name and its check.
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkers, name)
	delete(m.statuses, name)
}

// Count returns the number of tracked components.
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.statuses)
	for name := range m.checkers {
		if _, ok := m.statuses[name]; !ok {
			n++
		}
	}
	return n
}

// Run executes every registered check concurrently and stores the
// results. A check that does not answer in time is recorded unhealthy.
func (m *Monitor) Run(ctx context.Context) {
	m.mu.RLock()
	checkers := make(map[string]Checker, len(m.checkers))
	for name, c := range m.checkers {
		checkers[name] = c
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for name, c := range checkers {
		wg.Add(1)
		go func(name string, c Checker) {
			defer wg.Done()
			m.Update(name, m.runOne(ctx, name, c))
		}(name, c)
	}
	wg.Wait()
}

func (m *Monitor) runOne(ctx context.Context, name string, c Checker) Status {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	result := make(chan Status, 1)
	go func() { result <- c.Check(ctx) }()

	select {
	case s := <-result:
		return s
	case <-ctx.Done():
		return NewUnhealthy(name, "health check timed out")
	}
}

// AggregateHealth runs every check and aggregates the results.
func (m *Monitor) AggregateHealth(ctx context.Context, systemName string) Status {
	m.Run(ctx)

	m.mu.RLock()
	defer m.mu.RUnlock()
	subStatuses := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		subStatuses = append(subStatuses, status)
	}
	return Aggregate(systemName, subStatuses)
}
