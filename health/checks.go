package health

import (
	"context"
	"fmt"

	"github.com/c360/semreason/natsclient"
	"github.com/c360/semreason/scheduler"
	"github.com/c360/semreason/store"
)

// NATSStatus is implemented by natsclient.Client.
type NATSStatus interface {
	GetStatus() natsclient.Status
}

// NATSCheck reports the NATS connection: connected is healthy, a
// connection in progress is degraded, anything else unhealthy.
func NATSCheck(client NATSStatus) Checker {
	return CheckerFunc(func(context.Context) Status {
		st := client.GetStatus()
		var s Status
		switch st.Status {
		case natsclient.StatusConnected:
			s = NewHealthy("nats", "Connected")
		case natsclient.StatusConnecting, natsclient.StatusReconnecting:
			s = NewDegraded("nats", "Connection in progress")
		default:
			s = NewUnhealthy("nats", "Connection "+st.Status.String())
		}
		return s.
			WithDetail("failures", st.FailureCount).
			WithDetail("rtt", st.RTT.String())
	})
}

// StoreCheck reads the knowledge store and reports its size.
func StoreCheck(st store.KnowledgeStore) Checker {
	return CheckerFunc(func(ctx context.Context) Status {
		ds, err := st.Get(ctx)
		if err != nil {
			return FromError("store", err, "")
		}
		return NewHealthy("store", fmt.Sprintf("%d triples", ds.Len())).
			WithDetail("triples", ds.Len())
	})
}

// SchedulerStats is implemented by scheduler.Scheduler.
type SchedulerStats interface {
	GetIntegrationStatistics() scheduler.IntegrationStatistics
}

// SchedulerCheck is degraded when the last reasoning pass failed.
// Disabled automatic reasoning is an operator choice and stays healthy.
func SchedulerCheck(src SchedulerStats) Checker {
	return CheckerFunc(func(context.Context) Status {
		stats := src.GetIntegrationStatistics()

		var s Status
		switch {
		case stats.Scheduler.LastOutcome == scheduler.OutcomeFailed:
			s = NewDegraded("scheduler", "Last reasoning pass failed")
		case !stats.AutoReasoningEnabled:
			s = NewHealthy("scheduler", "Automatic reasoning disabled")
		default:
			s = NewHealthy("scheduler", "Automatic reasoning enabled")
		}
		return s.
			WithDetail("state", stats.State).
			WithDetail("pending_changes", stats.PendingChanges).
			WithDetail("backend", stats.Reasoner.Backend).
			WithDetail("failed_operations", stats.Reasoner.FailedOperations)
	})
}
