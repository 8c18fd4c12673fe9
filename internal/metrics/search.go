package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search metrics exported to Prometheus
var (
	SearchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Total number of search queries",
		},
		[]string{"type"},
	)

	SearchQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_query_duration_seconds",
			Help:    "Search query duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"type"},
	)

	SearchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_results_total",
			Help: "Total number of search results returned",
		},
		[]string{"type"},
	)

	SearchFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_fallbacks_total",
			Help: "Total number of searches served by the SQL fallback",
		},
	)

	SearchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_errors_total",
			Help: "Total number of search errors",
		},
		[]string{"type", "error_type"},
	)
)

// SearchMetrics tracks performance and usage metrics for search operations
type SearchMetrics struct {
	// Query counters
	QueryCount       int64
	ProductsSearched int64
	StoresSearched   int64

	// Fallback tracking
	FallbackCount int64

	// Performance metrics (in milliseconds)
	TotalQueryTime int64 // sum of all query times
	MaxQueryTime   int64 // slowest query
	MinQueryTime   int64 // fastest query

	// Error tracking
	ErrorCount   int64
	TimeoutCount int64

	// Result metrics
	TotalResults int64 // cumulative result count

	// Per-operation timing
	mu             sync.RWMutex
	queryTimings   []int64 // recent query timings for percentile calculation
	maxTimingsSize int
}

// QueryMetric represents a single search query's metrics
type QueryMetric struct {
	Type        string // "products", "stores"
	Query       string
	ResultCount int
	Duration    time.Duration
	Fallback    bool
	Error       bool
	Timestamp   time.Time
}

// NewSearchMetrics creates a new search metrics tracker
func NewSearchMetrics() *SearchMetrics {
	return &SearchMetrics{
		queryTimings:   make([]int64, 0, 10000),
		maxTimingsSize: 10000,
	}
}

// RecordQuery records a search query metric
func (sm *SearchMetrics) RecordQuery(metric QueryMetric) {
	// Increment query count
	atomic.AddInt64(&sm.QueryCount, 1)

	// Type-specific counters
	switch metric.Type {
	case "products":
		atomic.AddInt64(&sm.ProductsSearched, 1)
	case "stores":
		atomic.AddInt64(&sm.StoresSearched, 1)
	}

	// Result tracking
	atomic.AddInt64(&sm.TotalResults, int64(metric.ResultCount))

	// Fallback tracking
	if metric.Fallback {
		atomic.AddInt64(&sm.FallbackCount, 1)
		SearchFallbacksTotal.Inc()
	}

	// Error tracking
	if metric.Error {
		atomic.AddInt64(&sm.ErrorCount, 1)
		SearchErrorsTotal.WithLabelValues(metric.Type, "query_failed").Inc()
	}

	// Duration tracking (in milliseconds)
	durationMs := metric.Duration.Milliseconds()
	durationSec := float64(durationMs) / 1000.0

	// Update total time
	atomic.AddInt64(&sm.TotalQueryTime, durationMs)

	// Update min/max
	sm.updateMinMax(durationMs)

	// Store for percentile calculation
	sm.mu.Lock()
	if len(sm.queryTimings) < sm.maxTimingsSize {
		sm.queryTimings = append(sm.queryTimings, durationMs)
	}
	sm.mu.Unlock()

	// Export to Prometheus
	SearchQueriesTotal.WithLabelValues(metric.Type).Inc()
	SearchQueryDuration.WithLabelValues(metric.Type).Observe(durationSec)
	SearchResultsTotal.WithLabelValues(metric.Type).Add(float64(metric.ResultCount))
}

// RecordTimeout records a query timeout
func (sm *SearchMetrics) RecordTimeout() {
	atomic.AddInt64(&sm.TimeoutCount, 1)
	atomic.AddInt64(&sm.ErrorCount, 1)
}

// updateMinMax updates min and max query times
func (sm *SearchMetrics) updateMinMax(duration int64) {
	for {
		oldMin := atomic.LoadInt64(&sm.MinQueryTime)
		if oldMin == 0 || duration < oldMin {
			if atomic.CompareAndSwapInt64(&sm.MinQueryTime, oldMin, duration) {
				break
			}
		} else {
			break
		}
	}

	for {
		oldMax := atomic.LoadInt64(&sm.MaxQueryTime)
		if duration > oldMax {
			if atomic.CompareAndSwapInt64(&sm.MaxQueryTime, oldMax, duration) {
				break
			}
		} else {
			break
		}
	}
}

// GetStats returns current metrics as a map
func (sm *SearchMetrics) GetStats() map[string]interface{} {
	queryCount := atomic.LoadInt64(&sm.QueryCount)
	fallbacks := atomic.LoadInt64(&sm.FallbackCount)
	totalTime := atomic.LoadInt64(&sm.TotalQueryTime)

	var avgTime float64
	if queryCount > 0 {
		avgTime = float64(totalTime) / float64(queryCount)
	}

	var fallbackRate float64
	if queryCount > 0 {
		fallbackRate = float64(fallbacks) / float64(queryCount) * 100
	}

	var errorRate float64
	if queryCount > 0 {
		errorRate = float64(atomic.LoadInt64(&sm.ErrorCount)) / float64(queryCount) * 100
	}

	// Calculate percentiles
	sm.mu.RLock()
	p50, p95, p99 := sm.calculatePercentiles()
	sm.mu.RUnlock()

	return map[string]interface{}{
		"total_queries":     queryCount,
		"products_searched": atomic.LoadInt64(&sm.ProductsSearched),
		"stores_searched":   atomic.LoadInt64(&sm.StoresSearched),
		"fallback_count":    fallbacks,
		"fallback_rate":     fallbackRate,
		"total_results":     atomic.LoadInt64(&sm.TotalResults),
		"error_count":       atomic.LoadInt64(&sm.ErrorCount),
		"error_rate":        errorRate,
		"timeout_count":     atomic.LoadInt64(&sm.TimeoutCount),
		"avg_query_time_ms": avgTime,
		"min_query_time_ms": atomic.LoadInt64(&sm.MinQueryTime),
		"max_query_time_ms": atomic.LoadInt64(&sm.MaxQueryTime),
		"p50_query_time_ms": p50,
		"p95_query_time_ms": p95,
		"p99_query_time_ms": p99,
		"timestamp":         time.Now().Unix(),
	}
}

// calculatePercentiles calculates p50, p95, p99 from recent timings
// Note: assumes mu is already locked
func (sm *SearchMetrics) calculatePercentiles() (p50, p95, p99 int64) {
	if len(sm.queryTimings) == 0 {
		return 0, 0, 0
	}

	timings := make([]int64, len(sm.queryTimings))
	copy(timings, sm.queryTimings)

	for i := 0; i < len(timings); i++ {
		for j := i + 1; j < len(timings); j++ {
			if timings[j] < timings[i] {
				timings[i], timings[j] = timings[j], timings[i]
			}
		}
	}

	n := len(timings)
	p50 = timings[(n*50)/100]
	p95 = timings[(n*95)/100]
	p99 = timings[(n*99)/100]

	return
}

// Reset clears all metrics
func (sm *SearchMetrics) Reset() {
	atomic.StoreInt64(&sm.QueryCount, 0)
	atomic.StoreInt64(&sm.ProductsSearched, 0)
	atomic.StoreInt64(&sm.StoresSearched, 0)
	atomic.StoreInt64(&sm.FallbackCount, 0)
	atomic.StoreInt64(&sm.TotalQueryTime, 0)
	atomic.StoreInt64(&sm.MaxQueryTime, 0)
	atomic.StoreInt64(&sm.MinQueryTime, 0)
	atomic.StoreInt64(&sm.ErrorCount, 0)
	atomic.StoreInt64(&sm.TimeoutCount, 0)
	atomic.StoreInt64(&sm.TotalResults, 0)

	sm.mu.Lock()
	sm.queryTimings = sm.queryTimings[:0]
	sm.mu.Unlock()
}
