package scheduler_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/metric"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/scheduler"
	"github.com/c360/semreason/testutil"
)

const subject = "semreason.inconsistency"

func startPublisher(t *testing.T, nc scheduler.Publisher, opts ...scheduler.PublisherOption) *scheduler.InconsistencyPublisher {
	t.Helper()
	p, err := scheduler.NewInconsistencyPublisher(nc, subject, opts...)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Stop(time.Second) })
	return p
}

func TestInconsistencyPublisher_PublishesInconsistentPasses(t *testing.T) {
	nc := testutil.NewRecordingPublisher()
	p := startPublisher(t, nc)

	p.PassCompleted(scheduler.PassReport{
		ID:              "pass-1",
		Trigger:         scheduler.TriggerScheduled,
		Outcome:         scheduler.OutcomeInconsistent,
		Inconsistencies: []reasoner.InconsistencyKind{reasoner.ClassDisjointness},
		Explanations:    []string{"rex is both an Animal and a Plant"},
	})

	data := testutil.WaitForMessage(t, nc, subject, time.Second)
	var got scheduler.PassReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "pass-1", got.ID)
	assert.Equal(t, scheduler.OutcomeInconsistent, got.Outcome)
	assert.Equal(t, []reasoner.InconsistencyKind{reasoner.ClassDisjointness}, got.Inconsistencies)
	assert.Equal(t, []string{"rex is both an Animal and a Plant"}, got.Explanations)
}

func TestInconsistencyPublisher_IgnoresOtherOutcomes(t *testing.T) {
	nc := testutil.NewRecordingPublisher()
	p := startPublisher(t, nc)

	for _, outcome := range []scheduler.Outcome{
		scheduler.OutcomeMerged,
		scheduler.OutcomeNoChange,
		scheduler.OutcomeFailed,
		scheduler.OutcomeDiscarded,
	} {
		p.PassCompleted(scheduler.PassReport{ID: string(outcome), Outcome: outcome})
	}
	require.NoError(t, p.Stop(time.Second))
	testutil.AssertNoMessages(t, nc, subject)
	assert.Zero(t, p.Stats().Submitted)
}

func TestInconsistencyPublisher_StopDeliversQueued(t *testing.T) {
	nc := testutil.NewRecordingPublisher()
	p := startPublisher(t, nc, scheduler.WithPublishQueue(8))

	for _, id := range []string{"a", "b", "c"} {
		p.PassCompleted(scheduler.PassReport{ID: id, Outcome: scheduler.OutcomeInconsistent})
	}
	require.NoError(t, p.Stop(time.Second))

	assert.Equal(t, 3, nc.Count(subject))
	assert.Equal(t, int64(3), p.Stats().Processed)
}

func TestInconsistencyPublisher_PublishErrorIsCounted(t *testing.T) {
	nc := testutil.NewRecordingPublisher()
	nc.FailWith(stderrors.New("nats: connection closed"))
	p := startPublisher(t, nc, scheduler.WithPublishTimeout(100*time.Millisecond))

	p.PassCompleted(scheduler.PassReport{ID: "x", Outcome: scheduler.OutcomeInconsistent})
	require.NoError(t, p.Stop(time.Second))
	assert.Equal(t, int64(1), p.Stats().Failed)
}

func TestInconsistencyPublisher_NotStarted(t *testing.T) {
	nc := testutil.NewRecordingPublisher()
	p, err := scheduler.NewInconsistencyPublisher(nc, subject)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		p.PassCompleted(scheduler.PassReport{ID: "x", Outcome: scheduler.OutcomeInconsistent})
	})
	testutil.AssertNoMessages(t, nc, subject)
}

func TestInconsistencyPublisher_Validation(t *testing.T) {
	_, err := scheduler.NewInconsistencyPublisher(nil, subject)
	assert.True(t, errors.IsInvalid(err))

	_, err = scheduler.NewInconsistencyPublisher(testutil.NewRecordingPublisher(), "")
	assert.True(t, errors.IsInvalid(err))
}

func TestInconsistencyPublisher_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	_ = startPublisher(t, testutil.NewRecordingPublisher(), scheduler.WithPublisherMetrics(registry))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "semreason_worker_queue_depth")
}

func TestObserverFunc(t *testing.T) {
	var got scheduler.PassReport
	var o scheduler.Observer = scheduler.ObserverFunc(func(r scheduler.PassReport) { got = r })
	o.PassCompleted(scheduler.PassReport{ID: "abc"})
	assert.Equal(t, "abc", got.ID)
}
