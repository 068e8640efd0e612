// Package worker provides a bounded generic worker pool.
//
// A Pool runs a fixed number of goroutines over a buffered queue. Submit
// never blocks: when the queue is full the item is dropped and
// ErrQueueFull returned, so slow consumers cannot stall the caller. Stop
// closes the queue and waits for the items already accepted.
//
// Statistics are always tracked. Prometheus metrics are registered when
// a registry is supplied with WithMetrics; the pool name becomes the
// "pool" label so several pools can share one registry.
//
//	pool, err := worker.NewPool(2, 64, func(ctx context.Context, r Report) error {
//	    return publish(ctx, r)
//	}, worker.WithName[Report]("reports"))
//	if err != nil {
//	    return err
//	}
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(5 * time.Second)
package worker
