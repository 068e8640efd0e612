package scheduler

import (
	"time"

	"github.com/c360/semreason/reasoner"
)

// Trigger records what started a pass.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Outcome is the result class of a pass.
type Outcome string

const (
	OutcomeMerged       Outcome = "merged"
	OutcomeNoChange     Outcome = "no_change"
	OutcomeInconsistent Outcome = "inconsistent"
	OutcomeFailed       Outcome = "failed"
	OutcomeDiscarded    Outcome = "discarded"
)

// PassReport describes one completed reasoning pass.
type PassReport struct {
	ID              string                       `json:"id"`
	Trigger         Trigger                      `json:"trigger"`
	Kind            reasoner.Kind                `json:"kind"`
	Changes         int                          `json:"changes"`
	StartedAt       time.Time                    `json:"started_at"`
	Duration        time.Duration                `json:"duration"`
	Outcome         Outcome                      `json:"outcome"`
	Inferred        int                          `json:"inferred"`
	Inconsistencies []reasoner.InconsistencyKind `json:"inconsistencies,omitempty"`
	Explanations    []string                     `json:"explanations,omitempty"`
	Error           string                       `json:"error,omitempty"`
}

// Observer is notified after every pass. PassCompleted runs on the pass
// goroutine and should return quickly.
type Observer interface {
	PassCompleted(report PassReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(report PassReport)

// PassCompleted calls f.
func (f ObserverFunc) PassCompleted(report PassReport) {
	f(report)
}
