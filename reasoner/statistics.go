package reasoner

import (
	"sync"
	"time"
)

type operation int

const (
	opInference operation = iota
	opConsistency
)

// Statistics accumulates counters for one Service. Every recorded
// operation is either a cache hit or a cache miss, so hits plus misses
// always equals the total.
type Statistics struct {
	mu                  sync.Mutex
	totalOperations     int64
	cacheHits           int64
	cacheMisses         int64
	consistencyChecks   int64
	inferenceOperations int64
	failedOperations    int64
	averageDuration     time.Duration
}

func (s *Statistics) record(op operation, d time.Duration, cacheHit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalOperations++
	if cacheHit {
		s.cacheHits++
	} else {
		s.cacheMisses++
	}

	// Running mean over every recorded operation
	n := time.Duration(s.totalOperations)
	s.averageDuration = (s.averageDuration*(n-1) + d) / n

	switch op {
	case opConsistency:
		s.consistencyChecks++
	case opInference:
		s.inferenceOperations++
	}
}

func (s *Statistics) fail() {
	s.mu.Lock()
	s.failedOperations++
	s.mu.Unlock()
}

// StatisticsSnapshot is an immutable copy of the service statistics.
type StatisticsSnapshot struct {
	Backend             string        `json:"backend"`
	TotalOperations     int64         `json:"total_operations"`
	CacheHits           int64         `json:"cache_hits"`
	CacheMisses         int64         `json:"cache_misses"`
	ConsistencyChecks   int64         `json:"consistency_checks"`
	InferenceOperations int64         `json:"inference_operations"`
	FailedOperations    int64         `json:"failed_operations"`
	AverageDuration     time.Duration `json:"average_duration"`
	CacheHitRatePercent float64       `json:"cache_hit_rate_percent"`
	CacheEnabled        bool          `json:"cache_enabled"`
	CacheEntries        int           `json:"cache_entries"`
}

func (s *Statistics) snapshot() StatisticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatisticsSnapshot{
		TotalOperations:     s.totalOperations,
		CacheHits:           s.cacheHits,
		CacheMisses:         s.cacheMisses,
		ConsistencyChecks:   s.consistencyChecks,
		InferenceOperations: s.inferenceOperations,
		FailedOperations:    s.failedOperations,
		AverageDuration:     s.averageDuration,
	}
	if s.totalOperations > 0 {
		snap.CacheHitRatePercent = float64(s.cacheHits) / float64(s.totalOperations) * 100
	}
	return snap
}
