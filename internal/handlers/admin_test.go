package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora/backend/internal/alerts"
	"github.com/vendora/backend/internal/container"
	"github.com/vendora/backend/internal/metrics"
)

// newAdminRouter wires the admin handler into a bare router, no auth layer
func newAdminRouter(c *container.Container) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(c)

	r := gin.New()
	r.GET("/admin/metrics", h.GetMetrics)
	r.GET("/admin/alerts", h.GetAlerts)
	r.POST("/admin/alerts/:id/resolve", h.ResolveAlert)
	r.GET("/admin/alerts/rules", h.GetAlertRules)
	r.PUT("/admin/alerts/rules/:id", h.UpdateAlertRule)
	r.POST("/admin/search/reindex", h.ReindexSearch)
	return r
}

func TestAdminMetricsIncludesAlertStats(t *testing.T) {
	metrics.GetManager().ResetAll()

	am := alerts.NewAlertManager()
	am.TriggerAlert(alerts.AlertTypeSlowQueries, alerts.AlertLevelWarning, "slow", nil, "r1")

	c := container.New().WithAlertManager(am)
	router := newAdminRouter(c)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/metrics", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Contains(t, response, "metrics")
	assert.Contains(t, response, "alerts")

	inner := response["metrics"].(map[string]interface{})
	assert.Contains(t, inner, "search")
	assert.Contains(t, inner, "autosave")
}

func TestAdminAlertsLifecycle(t *testing.T) {
	am := alerts.NewAlertManager()
	alert := am.TriggerAlert(alerts.AlertTypeHighConflictRate, alerts.AlertLevelWarning, "conflicts", nil, "r1")

	router := newAdminRouter(container.New().WithAlertManager(am))

	// Active listing sees the alert
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/alerts?active=true", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	// Resolve it
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/admin/alerts/"+alert.ID+"/resolve", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/alerts?active=true", nil))
	assert.Equal(t, float64(0), decodeBody(t, w)["count"])

	// Unknown alert 404s
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/admin/alerts/missing/resolve", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminAlertRules(t *testing.T) {
	am := alerts.NewAlertManager()
	ev := alerts.NewEvaluator(am)
	ev.InitializeDefaultRules()

	router := newAdminRouter(container.New().WithAlertManager(am).WithAlertEvaluator(ev))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/alerts/rules", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	require.Equal(t, float64(6), response["count"])

	rules := response["rules"].([]interface{})
	ruleID := rules[0].(map[string]interface{})["id"].(string)

	// Empty body rejected
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("PUT", "/admin/alerts/rules/"+ruleID, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := `{"name":"Tuned Rule","threshold":42,"enabled":true}`
	req := httptest.NewRequest("PUT", "/admin/alerts/rules/"+ruleID, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	updated := am.GetRule(ruleID)
	assert.Equal(t, "Tuned Rule", updated.Name)
	assert.Equal(t, 42.0, updated.Threshold)
}

func TestAdminEndpointsWithoutAlerting(t *testing.T) {
	router := newAdminRouter(container.New())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/alerts", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/admin/search/reindex", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
