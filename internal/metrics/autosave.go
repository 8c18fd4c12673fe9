package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// AutosaveMetrics tracks save-cycle outcomes from the design studio's
// autosave sessions. Strategy and outcome arrive as plain strings so this
// package stays import-free of the autosave package.
type AutosaveMetrics struct {
	// Cycle counters
	SaveCount      int64
	SavedCount     int64
	UnchangedCount int64
	ConflictCount  int64
	FailureCount   int64

	// Retry tracking
	RetriedCount  int64 // cycles that needed more than one attempt
	TotalAttempts int64

	// Per-strategy breakdown
	mu         sync.RWMutex
	byStrategy map[string]int64
}

// SaveMetric represents a single completed autosave cycle
type SaveMetric struct {
	Strategy string // "immediate", "debounce", "interval", "manual"
	Outcome  string // "saved", "unchanged", "conflict", "failed"
	Attempts int
}

// NewAutosaveMetrics creates a new autosave metrics tracker
func NewAutosaveMetrics() *AutosaveMetrics {
	return &AutosaveMetrics{
		byStrategy: make(map[string]int64),
	}
}

// RecordSave records one completed save cycle
func (am *AutosaveMetrics) RecordSave(metric SaveMetric) {
	atomic.AddInt64(&am.SaveCount, 1)

	switch metric.Outcome {
	case "saved":
		atomic.AddInt64(&am.SavedCount, 1)
	case "unchanged":
		atomic.AddInt64(&am.UnchangedCount, 1)
	case "conflict":
		atomic.AddInt64(&am.ConflictCount, 1)
	case "failed":
		atomic.AddInt64(&am.FailureCount, 1)
	}

	if metric.Attempts > 1 {
		atomic.AddInt64(&am.RetriedCount, 1)
	}
	atomic.AddInt64(&am.TotalAttempts, int64(metric.Attempts))

	am.mu.Lock()
	am.byStrategy[metric.Strategy]++
	am.mu.Unlock()
}

// GetStats returns current metrics as a map
func (am *AutosaveMetrics) GetStats() map[string]interface{} {
	saveCount := atomic.LoadInt64(&am.SaveCount)
	conflicts := atomic.LoadInt64(&am.ConflictCount)
	failures := atomic.LoadInt64(&am.FailureCount)
	retried := atomic.LoadInt64(&am.RetriedCount)
	attempts := atomic.LoadInt64(&am.TotalAttempts)

	var conflictRate float64
	if saveCount > 0 {
		conflictRate = float64(conflicts) / float64(saveCount) * 100
	}

	var failureRate float64
	if saveCount > 0 {
		failureRate = float64(failures) / float64(saveCount) * 100
	}

	var retryRate float64
	if saveCount > 0 {
		retryRate = float64(retried) / float64(saveCount) * 100
	}

	var avgAttempts float64
	if saveCount > 0 {
		avgAttempts = float64(attempts) / float64(saveCount)
	}

	am.mu.RLock()
	byStrategy := make(map[string]int64, len(am.byStrategy))
	for strategy, count := range am.byStrategy {
		byStrategy[strategy] = count
	}
	am.mu.RUnlock()

	return map[string]interface{}{
		"total_saves":     saveCount,
		"saved_count":     atomic.LoadInt64(&am.SavedCount),
		"unchanged_count": atomic.LoadInt64(&am.UnchangedCount),
		"conflict_count":  conflicts,
		"conflict_rate":   conflictRate,
		"failure_count":   failures,
		"failure_rate":    failureRate,
		"retried_count":   retried,
		"retry_rate":      retryRate,
		"avg_attempts":    avgAttempts,
		"by_strategy":     byStrategy,
		"timestamp":       time.Now().Unix(),
	}
}

// Reset clears all metrics
func (am *AutosaveMetrics) Reset() {
	atomic.StoreInt64(&am.SaveCount, 0)
	atomic.StoreInt64(&am.SavedCount, 0)
	atomic.StoreInt64(&am.UnchangedCount, 0)
	atomic.StoreInt64(&am.ConflictCount, 0)
	atomic.StoreInt64(&am.FailureCount, 0)
	atomic.StoreInt64(&am.RetriedCount, 0)
	atomic.StoreInt64(&am.TotalAttempts, 0)

	am.mu.Lock()
	am.byStrategy = make(map[string]int64)
	am.mu.Unlock()
}
