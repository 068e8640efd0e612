// Package cache provides the in-memory cache used for reasoning results.
//
// There is one implementation: an LRU bounded by entry count, with optional
// time-to-live expiry. Statistics are always collected; Prometheus metrics
// are exported when WithMetrics is given a registry.
//
//	c, err := cache.NewFromConfig[*Result](ctx, cfg.Cache,
//	    cache.WithMetrics[*Result](registry, "reasoning_results"))
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
// Keys are arbitrary non-empty strings. DeleteFunc supports bulk removal by
// key predicate, which the result cache uses for substring invalidation.
package cache
