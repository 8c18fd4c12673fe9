package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vendora/backend/internal/alerts"
	"github.com/vendora/backend/internal/container"
	"github.com/vendora/backend/internal/metrics"
	"github.com/vendora/backend/internal/util"
)

// AdminHandler serves the operator endpoints behind the admin role.
// Dependencies are accessed through the container.
type AdminHandler struct {
	container *container.Container
}

// NewAdminHandler creates a new admin handler backed by the container
func NewAdminHandler(c *container.Container) *AdminHandler {
	return &AdminHandler{
		container: c,
	}
}

// GetMetrics returns the in-memory metrics snapshots plus alert statistics
// GET /api/v1/admin/metrics
func (h *AdminHandler) GetMetrics(c *gin.Context) {
	payload := gin.H{
		"metrics":   metrics.GetManager().GetAllMetrics(),
		"timestamp": time.Now().Unix(),
	}

	if am := h.container.AlertManager(); am != nil {
		payload["alerts"] = am.GetStats()
	}

	c.JSON(http.StatusOK, payload)
}

// GetAlerts lists alerts, filterable by state and severity
// GET /api/v1/admin/alerts?active=true&level=critical
func (h *AdminHandler) GetAlerts(c *gin.Context) {
	am := h.container.AlertManager()
	if am == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alerts_unavailable", "message": "Alerting is not configured"})
		return
	}

	var list []*alerts.Alert
	switch {
	case c.Query("level") != "":
		list = am.GetAlertsBySeverity(alerts.AlertLevel(c.Query("level")))
	case c.Query("active") == "true":
		list = am.GetActiveAlerts()
	default:
		list = am.GetAllAlerts()
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": list,
		"count":  len(list),
	})
}

// ResolveAlert marks one alert resolved
// POST /api/v1/admin/alerts/:id/resolve
func (h *AdminHandler) ResolveAlert(c *gin.Context) {
	am := h.container.AlertManager()
	if am == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alerts_unavailable", "message": "Alerting is not configured"})
		return
	}

	if err := am.ResolveAlert(c.Param("id")); err != nil {
		util.RespondNotFound(c, "Alert")
		return
	}

	c.JSON(http.StatusOK, gin.H{"resolved": true})
}

// GetAlertRules lists the configured alert rules
// GET /api/v1/admin/alerts/rules
func (h *AdminHandler) GetAlertRules(c *gin.Context) {
	am := h.container.AlertManager()
	if am == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alerts_unavailable", "message": "Alerting is not configured"})
		return
	}

	rules := am.GetAllRules()
	c.JSON(http.StatusOK, gin.H{
		"rules": rules,
		"count": len(rules),
	})
}

// UpdateAlertRule changes one rule's threshold, condition, or enabled flag
// PUT /api/v1/admin/alerts/rules/:id
func (h *AdminHandler) UpdateAlertRule(c *gin.Context) {
	am := h.container.AlertManager()
	if am == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alerts_unavailable", "message": "Alerting is not configured"})
		return
	}

	var updates alerts.AlertRule
	if err := c.ShouldBindJSON(&updates); err != nil {
		util.RespondBadRequest(c, "Invalid rule payload")
		return
	}

	if err := am.UpdateRule(c.Param("id"), &updates); err != nil {
		util.RespondNotFound(c, "Alert rule")
		return
	}

	c.JSON(http.StatusOK, gin.H{"rule": am.GetRule(c.Param("id"))})
}

// ReindexSearch rebuilds the product and store search indices from Postgres
// POST /api/v1/admin/search/reindex
func (h *AdminHandler) ReindexSearch(c *gin.Context) {
	client := h.container.Search()
	if client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search_unavailable", "message": "Search is not configured"})
		return
	}

	products, err := client.ReindexAllProducts(c.Request.Context())
	if err != nil {
		util.RespondInternalError(c, "Product reindex failed")
		return
	}

	stores, err := client.ReindexAllStores(c.Request.Context())
	if err != nil {
		util.RespondInternalError(c, "Store reindex failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products_indexed": products,
		"stores_indexed":   stores,
	})
}
