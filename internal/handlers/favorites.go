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

// FavoriteProduct adds a product to the user's favorites. Idempotent, a
// second call answers 200 without touching the count.
// PUT /api/v1/products/:id/favorite
func (h *Handlers) FavoriteProduct(c *gin.Context) {
	productID := c.Param("id")
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var product models.Product
	if err := database.DB.Preload("Store").First(&product, "id = ?", productID).Error; err != nil {
		util.HandleDBError(c, err, "product")
		return
	}

	var existing models.Favorite
	err := database.DB.First(&existing, "user_id = ? AND product_id = ?", userID, productID).Error
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"favorited": true, "favorite_count": product.FavoriteCount})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.RespondInternalError(c, "Failed to check favorite")
		return
	}

	favorite := models.Favorite{
		UserID:    userID,
		ProductID: productID,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&favorite).Error; err != nil {
			return err
		}
		return recomputeFavoriteCount(tx, productID)
	})
	if err != nil {
		logger.ErrorErr("Failed to create favorite", err)
		util.RespondInternalError(c, "Failed to favorite product")
		return
	}

	metrics.App().FavoritesTotal.WithLabelValues("add").Inc()

	var count int
	database.DB.Model(&models.Product{}).
		Where("id = ?", productID).
		Select("favorite_count").
		Scan(&count)

	product.FavoriteCount = count
	h.indexProductAsync(product, product.Store)

	c.JSON(http.StatusOK, gin.H{"favorited": true, "favorite_count": count})
}

// UnfavoriteProduct removes a product from the user's favorites.
// Idempotent like its counterpart.
// DELETE /api/v1/products/:id/favorite
func (h *Handlers) UnfavoriteProduct(c *gin.Context) {
	productID := c.Param("id")
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var product models.Product
	if err := database.DB.Preload("Store").First(&product, "id = ?", productID).Error; err != nil {
		util.HandleDBError(c, err, "product")
		return
	}

	var favorite models.Favorite
	err := database.DB.First(&favorite, "user_id = ? AND product_id = ?", userID, productID).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusOK, gin.H{"favorited": false, "favorite_count": product.FavoriteCount})
		return
	}
	if err != nil {
		util.RespondInternalError(c, "Failed to check favorite")
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&favorite).Error; err != nil {
			return err
		}
		return recomputeFavoriteCount(tx, productID)
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to unfavorite product")
		return
	}

	metrics.App().FavoritesTotal.WithLabelValues("remove").Inc()

	var count int
	database.DB.Model(&models.Product{}).
		Where("id = ?", productID).
		Select("favorite_count").
		Scan(&count)

	product.FavoriteCount = count
	h.indexProductAsync(product, product.Store)

	c.JSON(http.StatusOK, gin.H{"favorited": false, "favorite_count": count})
}

// ListFavorites returns the user's favorites with product snapshots,
// newest first
// GET /api/v1/favorites
func (h *Handlers) ListFavorites(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), 20, 100)

	var total int64
	if err := database.DB.Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to count favorites")
		return
	}

	var favorites []models.Favorite
	err := database.DB.
		Preload("Product").
		Preload("Product.Store").
		Preload("Product.Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&favorites).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to list favorites")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"favorites": favorites,
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// recomputeFavoriteCount refreshes the cached favorite count on a product
func recomputeFavoriteCount(tx *gorm.DB, productID string) error {
	var count int64
	if err := tx.Model(&models.Favorite{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
		return err
	}
	return tx.Model(&models.Product{}).Where("id = ?", productID).
		UpdateColumn("favorite_count", count).Error
}
