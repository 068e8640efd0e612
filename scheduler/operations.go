package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/triple"
)

// RunFullReasoningNow infers kind over the whole store and inserts the
// new triples. It runs regardless of whether automatic reasoning is
// enabled and returns the inferred dataset. An inconsistent store is
// reported to observers and left unchanged.
func (s *Scheduler) RunFullReasoningNow(ctx context.Context, kind reasoner.Kind) (triple.Dataset, error) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	report := PassReport{
		ID:        uuid.NewString(),
		Trigger:   TriggerManual,
		Kind:      kind,
		StartedAt: time.Now(),
	}
	defer s.finish(&report)

	current, err := s.store.Get(ctx)
	if err != nil {
		s.fail(&report, "read store", err)
		return triple.Dataset{}, errors.WrapTransient(err, "Scheduler", "RunFullReasoningNow", "read store")
	}

	res, err := s.reasoner.Reason(ctx, current, kind)
	if err != nil {
		s.fail(&report, "infer", err)
		return triple.Dataset{}, errors.WrapClassified(err, "Scheduler", "RunFullReasoningNow", "infer triples")
	}
	inferred := res.InferredDataset
	if !res.Consistent {
		s.handleInconsistency(res, &report)
		return inferred, nil
	}

	report.Outcome = OutcomeNoChange
	if inferred.IsStrictSupersetOf(current) {
		added := inferred.Difference(current)
		if err := s.store.Insert(ctx, added); err != nil {
			s.fail(&report, "merge inferences", err)
			return triple.Dataset{}, errors.WrapTransient(err, "Scheduler", "RunFullReasoningNow", "insert inferences")
		}
		report.Outcome = OutcomeMerged
		report.Inferred = added.Len()
	}

	s.logger.Info("Manual reasoning completed", "kind", kind, "inferred", report.Inferred)
	return inferred, nil
}

// CheckConsistencyNow checks the whole store without modifying it.
func (s *Scheduler) CheckConsistencyNow(ctx context.Context) (bool, error) {
	current, err := s.store.Get(ctx)
	if err != nil {
		return false, errors.WrapTransient(err, "Scheduler", "CheckConsistencyNow", "read store")
	}

	consistent, err := s.reasoner.CheckConsistency(ctx, current)
	if err != nil {
		return false, errors.WrapClassified(err, "Scheduler", "CheckConsistencyNow", "check consistency")
	}
	s.stats.consistencyCheck()

	if !consistent {
		s.logger.Warn("Knowledge store is inconsistent")
	}
	return consistent, nil
}

// ValidateNow validates the whole store and reports inconsistencies to
// observers. Inferences are not written back.
func (s *Scheduler) ValidateNow(ctx context.Context) (*reasoner.Result, error) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	report := PassReport{
		ID:        uuid.NewString(),
		Trigger:   TriggerManual,
		Kind:      reasoner.KindFullInference,
		StartedAt: time.Now(),
	}
	res, err := s.validatePass(ctx, 0, false, &report)
	s.finish(&report)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetIntegrationStatistics combines scheduler counters with the
// reasoning service statistics.
func (s *Scheduler) GetIntegrationStatistics() IntegrationStatistics {
	s.mu.Lock()
	stats := IntegrationStatistics{
		ActiveSubscriptions:  len(s.subscriptions),
		PendingChanges:       len(s.pending),
		AutoReasoningEnabled: s.enabled,
		State:                s.state.String(),
	}
	s.mu.Unlock()

	stats.Scheduler = s.stats.snapshot()
	stats.Reasoner = s.reasoner.GetStatistics()
	return stats
}
