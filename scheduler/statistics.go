package scheduler

import (
	"sync"
	"time"

	"github.com/c360/semreason/reasoner"
)

// StatisticsSnapshot is a point-in-time copy of the scheduler counters.
type StatisticsSnapshot struct {
	ChangesReceived     int64     `json:"changes_received"`
	ChangesDropped      int64     `json:"changes_dropped"`
	ReasoningOperations int64     `json:"reasoning_operations"`
	AutoInferences      int64     `json:"auto_inferences"`
	ConflictsDetected   int64     `json:"conflicts_detected"`
	ConsistencyChecks   int64     `json:"consistency_checks"`
	FailedPasses        int64     `json:"failed_passes"`
	DiscardedPasses     int64     `json:"discarded_passes"`
	LastPassAt          time.Time `json:"last_pass_at,omitempty"`
	LastOutcome         Outcome   `json:"last_outcome,omitempty"`
}

// IntegrationStatistics combines scheduler and reasoning service state.
type IntegrationStatistics struct {
	Scheduler            StatisticsSnapshot          `json:"scheduler"`
	Reasoner             reasoner.StatisticsSnapshot `json:"reasoner"`
	ActiveSubscriptions  int                         `json:"active_subscriptions"`
	PendingChanges       int                         `json:"pending_changes"`
	AutoReasoningEnabled bool                        `json:"auto_reasoning_enabled"`
	State                string                      `json:"state"`
}

type statistics struct {
	mu   sync.Mutex
	snap StatisticsSnapshot
}

func (s *statistics) changeReceived() {
	s.mu.Lock()
	s.snap.ChangesReceived++
	s.mu.Unlock()
}

func (s *statistics) changeDropped() {
	s.mu.Lock()
	s.snap.ChangesDropped++
	s.mu.Unlock()
}

func (s *statistics) consistencyCheck() {
	s.mu.Lock()
	s.snap.ConsistencyChecks++
	s.mu.Unlock()
}

func (s *statistics) record(r PassReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.LastPassAt = r.StartedAt
	s.snap.LastOutcome = r.Outcome

	switch r.Outcome {
	case OutcomeFailed:
		s.snap.FailedPasses++
		return
	case OutcomeDiscarded:
		s.snap.DiscardedPasses++
	case OutcomeInconsistent:
		s.snap.ConflictsDetected++
	case OutcomeMerged:
		s.snap.AutoInferences += int64(r.Inferred)
	}
	s.snap.ReasoningOperations++
}

func (s *statistics) snapshot() StatisticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
