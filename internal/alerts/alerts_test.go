package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vendora/backend/internal/metrics"
)

func TestAlertManagerTriggerAndResolve(t *testing.T) {
	am := NewAlertManager()

	alert := am.TriggerAlert(AlertTypeHighErrorRate, AlertLevelCritical, "error rate exceeded", map[string]interface{}{"rate": 12.5}, "rule_1")
	assert.NotEmpty(t, alert.ID)
	assert.False(t, alert.IsResolved)

	active := am.GetActiveAlerts()
	assert.Len(t, active, 1)

	err := am.ResolveAlert(alert.ID)
	assert.NoError(t, err)
	assert.Empty(t, am.GetActiveAlerts())
	assert.Len(t, am.GetAllAlerts(), 1)

	err = am.ResolveAlert("missing")
	assert.Error(t, err)
}

func TestAlertManagerFilters(t *testing.T) {
	am := NewAlertManager()

	am.TriggerAlert(AlertTypeHighErrorRate, AlertLevelCritical, "errors", nil, "r1")
	am.TriggerAlert(AlertTypeSlowQueries, AlertLevelWarning, "slow", nil, "r2")
	am.TriggerAlert(AlertTypeHighConflictRate, AlertLevelWarning, "conflicts", nil, "r3")

	byType := am.GetAlertsByType(AlertTypeSlowQueries)
	assert.Len(t, byType, 1)
	assert.Equal(t, AlertTypeSlowQueries, byType[0].Type)

	warnings := am.GetAlertsBySeverity(AlertLevelWarning)
	assert.Len(t, warnings, 2)

	stats := am.GetStats()
	assert.Equal(t, 3, stats["total_alerts"])
	assert.Equal(t, 3, stats["active_alerts"])
	assert.Equal(t, 1, stats["critical_count"])
	assert.Equal(t, 2, stats["warning_count"])
}

func TestAlertManagerUpdateRule(t *testing.T) {
	am := NewAlertManager()

	rule := &AlertRule{
		Name:        "Test Rule",
		Type:        AlertTypeHighErrorRate,
		Enabled:     true,
		Level:       AlertLevelWarning,
		Condition:   "Error rate > 5%",
		Threshold:   5.0,
		CooldownSec: 300,
	}
	am.AddRule(rule)
	assert.NotEmpty(t, rule.ID)

	err := am.UpdateRule(rule.ID, &AlertRule{
		Name:      "Updated Rule",
		Threshold: 10.0,
		Enabled:   false,
	})
	assert.NoError(t, err)

	updated := am.GetRule(rule.ID)
	assert.Equal(t, "Updated Rule", updated.Name)
	assert.Equal(t, 10.0, updated.Threshold)
	assert.False(t, updated.Enabled)

	err = am.UpdateRule("missing", &AlertRule{})
	assert.Error(t, err)
}

func TestInitializeDefaultRules(t *testing.T) {
	am := NewAlertManager()
	e := NewEvaluator(am)

	e.InitializeDefaultRules()

	rules := am.GetAllRules()
	assert.Len(t, rules, 6)

	types := make(map[AlertType]bool)
	for _, rule := range rules {
		assert.True(t, rule.Enabled)
		types[rule.Type] = true
	}
	assert.True(t, types[AlertTypeHighErrorRate])
	assert.True(t, types[AlertTypeHighConflictRate])
	assert.True(t, types[AlertTypeHighSaveFailureRate])
}

func TestEvaluatorTriggersOnConflictRate(t *testing.T) {
	metrics.GetManager().ResetAll()
	defer metrics.GetManager().ResetAll()

	// One conflicted cycle out of two puts the conflict rate at 50%
	metrics.GetManager().Autosave.RecordSave(metrics.SaveMetric{Strategy: "debounce", Outcome: "saved", Attempts: 1})
	metrics.GetManager().Autosave.RecordSave(metrics.SaveMetric{Strategy: "debounce", Outcome: "conflict", Attempts: 1})

	am := NewAlertManager()
	e := NewEvaluator(am)
	am.AddRule(&AlertRule{
		Name:      "Conflict Spike",
		Type:      AlertTypeHighConflictRate,
		Enabled:   true,
		Level:     AlertLevelWarning,
		Condition: "Autosave conflict rate > 10%",
		Threshold: 10.0,
	})

	e.EvaluateRules()

	alerts := am.GetAlertsByType(AlertTypeHighConflictRate)
	assert.Len(t, alerts, 1)

	details, ok := alerts[0].Details.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, 50.0, details["current_conflict_rate"])
}

func TestEvaluatorTriggersOnSearchErrorRate(t *testing.T) {
	metrics.GetManager().ResetAll()
	defer metrics.GetManager().ResetAll()

	metrics.GetManager().Search.RecordQuery(metrics.QueryMetric{
		Type:     "products",
		Query:    "lamp",
		Error:    true,
		Duration: 20 * time.Millisecond,
	})

	am := NewAlertManager()
	e := NewEvaluator(am)
	am.AddRule(&AlertRule{
		Name:      "Search Errors",
		Type:      AlertTypeHighErrorRate,
		Enabled:   true,
		Level:     AlertLevelCritical,
		Condition: "Search error rate > 5%",
		Threshold: 5.0,
	})

	e.EvaluateRules()

	assert.Len(t, am.GetAlertsByType(AlertTypeHighErrorRate), 1)
}

func TestEvaluatorRespectsCooldown(t *testing.T) {
	metrics.GetManager().ResetAll()
	defer metrics.GetManager().ResetAll()

	metrics.GetManager().Autosave.RecordSave(metrics.SaveMetric{Strategy: "manual", Outcome: "failed", Attempts: 3})

	am := NewAlertManager()
	e := NewEvaluator(am)
	am.AddRule(&AlertRule{
		Name:        "Save Failures",
		Type:        AlertTypeHighSaveFailureRate,
		Enabled:     true,
		Level:       AlertLevelCritical,
		Condition:   "Autosave failure rate > 5%",
		Threshold:   5.0,
		CooldownSec: 600,
	})

	e.EvaluateRules()
	e.EvaluateRules()

	// Second evaluation lands inside the cooldown window
	assert.Len(t, am.GetAlertsByType(AlertTypeHighSaveFailureRate), 1)
}

func TestEvaluatorSkipsDisabledRules(t *testing.T) {
	metrics.GetManager().ResetAll()
	defer metrics.GetManager().ResetAll()

	metrics.GetManager().Autosave.RecordSave(metrics.SaveMetric{Strategy: "interval", Outcome: "conflict", Attempts: 1})

	am := NewAlertManager()
	e := NewEvaluator(am)
	am.AddRule(&AlertRule{
		Name:      "Disabled Rule",
		Type:      AlertTypeHighConflictRate,
		Enabled:   false,
		Level:     AlertLevelWarning,
		Threshold: 1.0,
	})

	e.EvaluateRules()

	assert.Empty(t, am.GetAllAlerts())
}
