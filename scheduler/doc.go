// Package scheduler turns knowledge store mutations into debounced
// reasoning passes.
//
// A Scheduler subscribes to every insert and delete on a
// store.KnowledgeStore. Changes are buffered and a single timer is
// rearmed on each change: after ReasoningDelay of quiet, or after
// EscapeDelay once BatchSize changes are pending, the buffer is drained
// and the whole store is validated through the reasoning service.
//
// A consistent pass whose inferred dataset is a strict superset of the
// stored triples inserts only the new triples. An inconsistent pass is
// logged, counted and reported to observers; it never writes to the
// store. At most one pass runs at a time while changes keep buffering.
//
// Basic usage:
//
//	reports, err := scheduler.NewInconsistencyPublisher(nc, "semreason.inconsistency")
//	if err != nil {
//	    return err
//	}
//	_ = reports.Start(ctx)
//	defer reports.Stop(5 * time.Second)
//
//	sched, err := scheduler.New(st, svc,
//	    scheduler.WithConfig(scheduler.DefaultConfig()),
//	    scheduler.WithObserver(reports),
//	)
//	if err != nil {
//	    return err
//	}
//	defer sched.Close()
//
// Disabling the scheduler cancels the timer and drops subsequent
// changes. A pass already running when Disable is called finishes but
// its merge is discarded.
package scheduler
