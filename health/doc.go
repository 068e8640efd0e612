// Package health reports the health of the reasoning engine.
//
// A Status is healthy, degraded or unhealthy. A Monitor runs registered
// Checkers (the NATS connection, the knowledge store, the scheduler) and
// aggregates their statuses: any unhealthy check makes the system
// unhealthy, otherwise any degraded check makes it degraded.
//
//	monitor := health.NewMonitor(2 * time.Second)
//	monitor.Register("store", health.StoreCheck(st))
//	monitor.Register("scheduler", health.SchedulerCheck(sched))
//	status := monitor.AggregateHealth(ctx, "semreason")
//
// Error messages are sanitized before they are stored so URLs, paths,
// addresses and credentials never reach the health endpoint.
package health
