package alerts

import (
	"fmt"
	"time"

	"github.com/vendora/backend/internal/metrics"
)

// Evaluator evaluates alert rules against the in-memory metrics snapshots
type Evaluator struct {
	manager *AlertManager
}

// NewEvaluator creates a new alert evaluator
func NewEvaluator(manager *AlertManager) *Evaluator {
	return &Evaluator{
		manager: manager,
	}
}

// EvaluateRules checks all enabled rules against current metrics
func (e *Evaluator) EvaluateRules() {
	rules := e.manager.GetAllRules()

	searchStats := metrics.GetManager().GetSearchStats()
	autosaveStats := metrics.GetManager().GetAutosaveStats()

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		// Cooldown gate
		if rule.LastTriggered != nil {
			timeSinceLastTrigger := time.Since(*rule.LastTriggered).Seconds()
			if timeSinceLastTrigger < float64(rule.CooldownSec) {
				continue
			}
		}

		triggered, details := e.evaluateRule(rule, searchStats, autosaveStats)

		if triggered {
			e.manager.TriggerAlert(
				rule.Type,
				rule.Level,
				fmt.Sprintf("[%s] %s", rule.Name, rule.Condition),
				details,
				rule.ID,
			)

			now := time.Now()
			rule.LastTriggered = &now
		}
	}
}

// evaluateRule checks a specific rule against the relevant stats snapshot
func (e *Evaluator) evaluateRule(rule *AlertRule, searchStats, autosaveStats map[string]interface{}) (bool, map[string]interface{}) {
	details := make(map[string]interface{})

	switch rule.Type {
	case AlertTypeHighErrorRate:
		errorRate, ok := searchStats["error_rate"].(float64)
		if ok && errorRate >= rule.Threshold {
			details["current_error_rate"] = errorRate
			details["threshold"] = rule.Threshold
			details["error_count"] = searchStats["error_count"]
			return true, details
		}

	case AlertTypeSlowQueries:
		avgTime, ok := searchStats["avg_query_time_ms"].(float64)
		if ok && avgTime >= rule.Threshold {
			details["avg_query_time_ms"] = avgTime
			details["threshold"] = rule.Threshold
			details["p95_query_time_ms"] = searchStats["p95_query_time_ms"]
			details["p99_query_time_ms"] = searchStats["p99_query_time_ms"]
			return true, details
		}

	case AlertTypeHighFallbackRate:
		fallbackRate, ok := searchStats["fallback_rate"].(float64)
		if ok && fallbackRate >= rule.Threshold {
			details["current_fallback_rate"] = fallbackRate
			details["threshold"] = rule.Threshold
			details["fallback_count"] = searchStats["fallback_count"]
			details["total_queries"] = searchStats["total_queries"]
			return true, details
		}

	case AlertTypeHighTimeoutRate:
		timeoutCount, ok := searchStats["timeout_count"].(int64)
		totalQueries, ok2 := searchStats["total_queries"].(int64)
		if ok && ok2 && totalQueries > 0 {
			timeoutRate := float64(timeoutCount) / float64(totalQueries) * 100
			if timeoutRate >= rule.Threshold {
				details["current_timeout_rate"] = timeoutRate
				details["threshold"] = rule.Threshold
				details["timeout_count"] = timeoutCount
				details["total_queries"] = totalQueries
				return true, details
			}
		}

	case AlertTypeHighConflictRate:
		conflictRate, ok := autosaveStats["conflict_rate"].(float64)
		if ok && conflictRate >= rule.Threshold {
			details["current_conflict_rate"] = conflictRate
			details["threshold"] = rule.Threshold
			details["conflict_count"] = autosaveStats["conflict_count"]
			details["total_saves"] = autosaveStats["total_saves"]
			return true, details
		}

	case AlertTypeHighSaveFailureRate:
		failureRate, ok := autosaveStats["failure_rate"].(float64)
		if ok && failureRate >= rule.Threshold {
			details["current_failure_rate"] = failureRate
			details["threshold"] = rule.Threshold
			details["failure_count"] = autosaveStats["failure_count"]
			details["total_saves"] = autosaveStats["total_saves"]
			return true, details
		}
	}

	return false, details
}

// InitializeDefaultRules sets up default alert rules
func (e *Evaluator) InitializeDefaultRules() {
	rules := []*AlertRule{
		{
			Name:        "High Search Error Rate",
			Type:        AlertTypeHighErrorRate,
			Enabled:     true,
			Level:       AlertLevelCritical,
			Condition:   "Search error rate > 5%",
			Threshold:   5.0,
			Duration:    5 * time.Minute,
			CooldownSec: 300, // 5 minute cooldown
		},
		{
			Name:        "Slow Search Queries",
			Type:        AlertTypeSlowQueries,
			Enabled:     true,
			Level:       AlertLevelWarning,
			Condition:   "Average query time > 100ms",
			Threshold:   100.0,
			Duration:    5 * time.Minute,
			CooldownSec: 300,
		},
		{
			Name:        "High SQL Fallback Rate",
			Type:        AlertTypeHighFallbackRate,
			Enabled:     true,
			Level:       AlertLevelInfo,
			Condition:   "Fallback rate > 25%",
			Threshold:   25.0,
			Duration:    10 * time.Minute,
			CooldownSec: 600,
		},
		{
			Name:        "High Search Timeout Rate",
			Type:        AlertTypeHighTimeoutRate,
			Enabled:     true,
			Level:       AlertLevelWarning,
			Condition:   "Timeout rate > 2%",
			Threshold:   2.0,
			Duration:    5 * time.Minute,
			CooldownSec: 300,
		},
		{
			Name:        "High Design Save Conflict Rate",
			Type:        AlertTypeHighConflictRate,
			Enabled:     true,
			Level:       AlertLevelWarning,
			Condition:   "Autosave conflict rate > 10%",
			Threshold:   10.0,
			Duration:    5 * time.Minute,
			CooldownSec: 300,
		},
		{
			Name:        "High Design Save Failure Rate",
			Type:        AlertTypeHighSaveFailureRate,
			Enabled:     true,
			Level:       AlertLevelCritical,
			Condition:   "Autosave failure rate > 5%",
			Threshold:   5.0,
			Duration:    5 * time.Minute,
			CooldownSec: 300,
		},
	}

	for _, rule := range rules {
		e.manager.AddRule(rule)
	}
}

// StartEvaluationLoop starts periodic evaluation of rules
func (e *Evaluator) StartEvaluationLoop(interval time.Duration) chan struct{} {
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.EvaluateRules()
			case <-stop:
				return
			}
		}
	}()

	return stop
}
