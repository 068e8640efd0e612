package worker

import "errors"

// Sentinel errors for pool operations
var (
	// ErrPoolNotStarted is returned by Submit before Start.
	ErrPoolNotStarted = errors.New("worker pool not started")

	// ErrPoolStopped is returned by Submit after Stop.
	ErrPoolStopped = errors.New("worker pool stopped")

	// ErrPoolAlreadyStarted is returned by a second Start.
	ErrPoolAlreadyStarted = errors.New("worker pool already started")

	// ErrQueueFull means the item was dropped.
	ErrQueueFull = errors.New("worker pool queue full")

	// ErrNilProcessor is returned by NewPool without a processor.
	ErrNilProcessor = errors.New("processor function cannot be nil")

	// ErrStopTimeout means queued items were still in flight when Stop
	// gave up waiting.
	ErrStopTimeout = errors.New("timeout waiting for workers to stop")
)
