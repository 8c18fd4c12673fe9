package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/metrics"
	"github.com/vendora/backend/internal/models"
	"github.com/vendora/backend/internal/util"
	"gorm.io/gorm"
)

// AddCartItem puts a product in the cart, merging quantities when the
// product is already there. Quantity is clamped to current stock, and the
// product price is snapshotted so later changes can be flagged.
// POST /api/v1/cart/items
func (h *Handlers) AddCartItem(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		ProductID string `json:"product_id" binding:"required"`
		Quantity  int    `json:"quantity" binding:"omitempty,gte=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	var product models.Product
	if err := database.DB.Preload("Store").First(&product, "id = ?", req.ProductID).Error; err != nil {
		util.HandleDBError(c, err, "product")
		return
	}

	if !product.IsAvailable || product.Stock == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "out_of_stock", "message": "This product is not available"})
		return
	}
	if !product.Store.IsOpen {
		c.JSON(http.StatusConflict, gin.H{"error": "store_closed", "message": "This store is currently closed"})
		return
	}

	var item models.CartItem
	wanted := req.Quantity
	err := database.DB.First(&item, "user_id = ? AND product_id = ?", userID, req.ProductID).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		item = models.CartItem{
			UserID:     userID,
			ProductID:  req.ProductID,
			Quantity:   clampQuantity(req.Quantity, product.Stock),
			PriceCents: product.PriceCents,
		}
		if err := database.DB.Create(&item).Error; err != nil {
			logger.ErrorErr("Failed to create cart item", err)
			util.RespondInternalError(c, "Failed to add to cart")
			return
		}
	case err != nil:
		util.RespondInternalError(c, "Failed to check cart")
		return
	default:
		wanted = item.Quantity + req.Quantity
		merged := clampQuantity(wanted, product.Stock)
		if err := database.DB.Model(&item).UpdateColumn("quantity", merged).Error; err != nil {
			util.RespondInternalError(c, "Failed to update cart")
			return
		}
		item.Quantity = merged
	}

	metrics.App().CartOperations.WithLabelValues("add").Inc()

	c.JSON(http.StatusOK, gin.H{
		"item":    item,
		"clamped": item.Quantity < wanted,
	})
}

// UpdateCartItem sets a line's quantity; zero removes the line
// PUT /api/v1/cart/items/:product_id
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Quantity *int `json:"quantity" binding:"required,gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var item models.CartItem
	if err := database.DB.First(&item, "user_id = ? AND product_id = ?", userID, c.Param("product_id")).Error; err != nil {
		util.HandleDBError(c, err, "cart item")
		return
	}

	if *req.Quantity == 0 {
		if err := database.DB.Delete(&item).Error; err != nil {
			util.RespondInternalError(c, "Failed to remove cart item")
			return
		}
		metrics.App().CartOperations.WithLabelValues("remove").Inc()
		c.JSON(http.StatusOK, gin.H{"message": "item_removed"})
		return
	}

	var product models.Product
	if err := database.DB.First(&product, "id = ?", item.ProductID).Error; err != nil {
		util.HandleDBError(c, err, "product")
		return
	}

	quantity := clampQuantity(*req.Quantity, product.Stock)
	if err := database.DB.Model(&item).UpdateColumn("quantity", quantity).Error; err != nil {
		util.RespondInternalError(c, "Failed to update cart item")
		return
	}
	item.Quantity = quantity

	metrics.App().CartOperations.WithLabelValues("update").Inc()

	c.JSON(http.StatusOK, gin.H{
		"item":    item,
		"clamped": quantity < *req.Quantity,
	})
}

// RemoveCartItem deletes one line from the cart
// DELETE /api/v1/cart/items/:product_id
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result := database.DB.Where("user_id = ? AND product_id = ?", userID, c.Param("product_id")).Delete(&models.CartItem{})
	if result.Error != nil {
		util.RespondInternalError(c, "Failed to remove cart item")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "cart item")
		return
	}

	metrics.App().CartOperations.WithLabelValues("remove").Inc()

	c.JSON(http.StatusOK, gin.H{"message": "item_removed"})
}

// GetCart returns the cart with per-line drift flags: price_changed when
// the live price differs from the snapshot, unavailable when the product
// or its store left the catalog. Totals use live prices of available
// lines only.
// GET /api/v1/cart
func (h *Handlers) GetCart(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var items []models.CartItem
	err := database.DB.
		Preload("Product").
		Preload("Product.Store").
		Preload("Product.Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to load cart")
		return
	}

	lines := make([]gin.H, 0, len(items))
	var subtotalCents int64
	itemCount := 0

	for _, item := range items {
		// Preload leaves a zero-value Product when the row was soft-deleted
		gone := item.Product.ID == ""
		unavailable := gone || !item.Product.IsAvailable || !item.Product.Store.IsOpen
		priceChanged := !gone && item.Product.PriceCents != item.PriceCents

		line := gin.H{
			"item":          item,
			"unavailable":   unavailable,
			"price_changed": priceChanged,
		}
		if !gone {
			line["current_price_cents"] = item.Product.PriceCents
			line["stock"] = item.Product.Stock
		}
		lines = append(lines, line)

		if !unavailable {
			subtotalCents += item.Product.PriceCents * int64(item.Quantity)
			itemCount += item.Quantity
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"items": lines,
		"totals": gin.H{
			"item_count":     itemCount,
			"subtotal_cents": subtotalCents,
		},
	})
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (h *Handlers) ClearCart(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := database.DB.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		util.RespondInternalError(c, "Failed to clear cart")
		return
	}

	metrics.App().CartOperations.WithLabelValues("clear").Inc()

	c.JSON(http.StatusOK, gin.H{"message": "cart_cleared"})
}

func clampQuantity(quantity, stock int) int {
	if quantity > stock {
		return stock
	}
	return quantity
}
