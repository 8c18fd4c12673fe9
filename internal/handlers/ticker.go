package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendora/backend/internal/util"
)

// GetTicker serves the current price ticker frame from the Redis snapshot,
// rebuilding from the database when the cache is cold
// GET /api/v1/ticker
func (h *Handlers) GetTicker(c *gin.Context) {
	if h.ticker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ticker_unavailable", "message": "The price ticker is not configured"})
		return
	}

	snapshot, err := h.ticker.GetSnapshot(c.Request.Context())
	if err != nil {
		util.RespondInternalError(c, "Failed to load ticker")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":      snapshot.Entries,
		"refreshed_at": snapshot.RefreshedAt,
	})
}

// GetTickerHistory returns the recorded price moves of one product, newest
// first. Only distinct price changes are kept, so a flat price yields a
// single point.
// GET /api/v1/ticker/:product_id/history
func (h *Handlers) GetTickerHistory(c *gin.Context) {
	if h.ticker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ticker_unavailable", "message": "The price ticker is not configured"})
		return
	}

	points, err := h.ticker.History(c.Request.Context(), c.Param("product_id"))
	if err != nil {
		util.RespondInternalError(c, "Failed to load price history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"points": points})
}
