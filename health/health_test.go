package health

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semreason/natsclient"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/scheduler"
	"github.com/c360/semreason/store/memstore"
	"github.com/c360/semreason/testutil"
)

func TestStatus_States(t *testing.T) {
	assert.True(t, NewHealthy("a", "ok").IsHealthy())
	assert.True(t, NewHealthy("a", "ok").Healthy)
	assert.True(t, NewDegraded("a", "slow").IsDegraded())
	assert.False(t, NewDegraded("a", "slow").Healthy)
	assert.True(t, NewUnhealthy("a", "down").IsUnhealthy())
	assert.False(t, Status{}.IsHealthy())
}

func TestStatus_WithDetailCopies(t *testing.T) {
	base := NewHealthy("a", "ok").WithDetail("x", 1)
	derived := base.WithDetail("y", 2)

	assert.Equal(t, map[string]any{"x": 1}, base.Details)
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, derived.Details)
}

func TestStatus_WithSubStatusCopies(t *testing.T) {
	base := NewHealthy("sys", "ok").WithSubStatus(NewHealthy("a", "ok"))
	derived := base.WithSubStatus(NewHealthy("b", "ok"))

	assert.Len(t, base.SubStatuses, 1)
	assert.Len(t, derived.SubStatuses, 2)
}

func TestFromError(t *testing.T) {
	ok := FromError("store", nil, "fine")
	assert.True(t, ok.IsHealthy())
	assert.Equal(t, "fine", ok.Message)

	bad := FromError("store", stderrors.New("dial nats://user:pw@10.0.0.1:4222 failed"), "")
	assert.True(t, bad.IsUnhealthy())
	assert.NotContains(t, bad.Message, "10.0.0.1")
	assert.NotContains(t, bad.Message, "pw@")
	assert.Contains(t, bad.Message, "[URL]")
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		absent  string
		present string
	}{
		{"http url", "GET https://llm.internal/v1/chat failed", "llm.internal", "[URL]"},
		{"unix path", "open /var/lib/semreason/cache.db: denied", "/var/lib", "[PATH]"},
		{"ip address", "connect to 192.168.1.10 refused", "192.168.1.10", "[IP]"},
		{"port", "listen on localhost:8080", ":8080", "[PORT]"},
		{"credential", "auth failed password=hunter2", "hunter2", "[REDACTED]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeErrorMessage(tt.in)
			assert.NotContains(t, got, tt.absent)
			assert.Contains(t, got, tt.present)
		})
	}
	assert.Empty(t, sanitizeErrorMessage(""))
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name  string
		subs  []Status
		state string
	}{
		{"empty", nil, StateHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, StateHealthy},
		{"degraded wins over healthy", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, StateDegraded},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, StateUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("sys", tt.subs)
			assert.Equal(t, tt.state, got.Status)
			assert.Equal(t, "sys", got.Component)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}

	got := Aggregate("sys", []Status{NewHealthy("z", ""), NewHealthy("a", "")})
	assert.Equal(t, "a", got.SubStatuses[0].Component)
}

func TestMonitor_RunsChecks(t *testing.T) {
	m := NewMonitor(time.Second)
	m.Register("store", StoreCheck(memstore.New(memstore.WithDataset(testutil.AnimalOntology()))))
	m.Register("broken", CheckerFunc(func(context.Context) Status {
		return NewDegraded("broken", "half")
	}))
	assert.Equal(t, 2, m.Count())

	status := m.AggregateHealth(context.Background(), "semreason")
	assert.True(t, status.IsDegraded())
	require.Len(t, status.SubStatuses, 2)

	st, ok := m.Get("store")
	require.True(t, ok)
	assert.True(t, st.IsHealthy())
	assert.Equal(t, testutil.AnimalOntology().Len(), st.Details["triples"])

	m.Remove("broken")
	assert.True(t, m.AggregateHealth(context.Background(), "semreason").IsHealthy())
}

func TestMonitor_CheckTimeout(t *testing.T) {
	m := NewMonitor(20 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	m.Register("slow", CheckerFunc(func(context.Context) Status {
		<-release
		return NewHealthy("slow", "late")
	}))

	status := m.AggregateHealth(context.Background(), "semreason")
	assert.True(t, status.IsUnhealthy())
	got, _ := m.Get("slow")
	assert.Equal(t, "health check timed out", got.Message)
}

func TestMonitor_UpdateSetsNameAndTimestamp(t *testing.T) {
	m := NewMonitor(0)
	m.Update("gateway", Status{Status: StateHealthy, Healthy: true})

	got, ok := m.Get("gateway")
	require.True(t, ok)
	assert.Equal(t, "gateway", got.Component)
	assert.False(t, got.Timestamp.IsZero())
}

func TestStoreCheck_Failure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := StoreCheck(memstore.New()).Check(ctx)
	assert.True(t, got.IsUnhealthy())
}

type natsStatus natsclient.Status

func (s natsStatus) GetStatus() natsclient.Status { return natsclient.Status(s) }

func TestNATSCheck(t *testing.T) {
	tests := []struct {
		status natsclient.ConnectionStatus
		state  string
	}{
		{natsclient.StatusConnected, StateHealthy},
		{natsclient.StatusReconnecting, StateDegraded},
		{natsclient.StatusConnecting, StateDegraded},
		{natsclient.StatusDisconnected, StateUnhealthy},
		{natsclient.StatusCircuitOpen, StateUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			got := NATSCheck(natsStatus{Status: tt.status, FailureCount: 2}).Check(context.Background())
			assert.Equal(t, tt.state, got.Status)
			assert.Equal(t, int32(2), got.Details["failures"])
		})
	}
}

type schedStats scheduler.IntegrationStatistics

func (s schedStats) GetIntegrationStatistics() scheduler.IntegrationStatistics {
	return scheduler.IntegrationStatistics(s)
}

func TestSchedulerCheck(t *testing.T) {
	healthy := SchedulerCheck(schedStats{
		AutoReasoningEnabled: true,
		State:                "idle",
		Reasoner:             reasoner.StatisticsSnapshot{Backend: "rules"},
	}).Check(context.Background())
	assert.True(t, healthy.IsHealthy())
	assert.Equal(t, "rules", healthy.Details["backend"])

	disabled := SchedulerCheck(schedStats{}).Check(context.Background())
	assert.True(t, disabled.IsHealthy())
	assert.Equal(t, "Automatic reasoning disabled", disabled.Message)

	failed := SchedulerCheck(schedStats{
		AutoReasoningEnabled: true,
		Scheduler:            scheduler.StatisticsSnapshot{LastOutcome: scheduler.OutcomeFailed},
	}).Check(context.Background())
	assert.True(t, failed.IsDegraded())
}
