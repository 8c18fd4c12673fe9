package handlers

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/models"
	"github.com/vendora/backend/internal/util"
	"gorm.io/gorm"
)

func applyUserUpdates(user *models.User, updates map[string]interface{}) error {
	return database.DB.Model(user).Updates(updates).Error
}

// findOwnedStore loads a store and enforces that the authenticated user
// owns it (admins pass too). Responds and returns false on any failure,
// so callers can bail with a bare return.
func findOwnedStore(c *gin.Context, storeID string) (*models.Store, bool) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return nil, false
	}

	var store models.Store
	if err := database.DB.First(&store, "id = ?", storeID).Error; err != nil {
		util.HandleDBError(c, err, "store")
		return nil, false
	}

	if store.VendorID != user.ID && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "not_store_owner", "message": "You do not own this store"})
		return nil, false
	}

	return &store, true
}

type ratingRollup struct {
	Count int64
	Avg   float64
}

// recomputeProductRating refreshes the cached rating aggregate on a
// product from its live reviews. Runs inside the caller's transaction so
// the review write and the rollup land together.
func recomputeProductRating(tx *gorm.DB, productID string) error {
	var rollup ratingRollup
	err := tx.Model(&models.Review{}).
		Where("product_id = ?", productID).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS avg").
		Scan(&rollup).Error
	if err != nil {
		return err
	}

	return tx.Model(&models.Product{}).Where("id = ?", productID).Updates(map[string]interface{}{
		"rating_avg":   roundRating(rollup.Avg),
		"rating_count": rollup.Count,
	}).Error
}

// recomputeStoreRating refreshes a store's rating aggregate across the
// live reviews of its live products.
func recomputeStoreRating(tx *gorm.DB, storeID string) error {
	var rollup ratingRollup
	err := tx.Model(&models.Review{}).
		Joins("JOIN products ON products.id = reviews.product_id AND products.deleted_at IS NULL").
		Where("products.store_id = ?", storeID).
		Select("COUNT(*) AS count, COALESCE(AVG(reviews.rating), 0) AS avg").
		Scan(&rollup).Error
	if err != nil {
		return err
	}

	return tx.Model(&models.Store{}).Where("id = ?", storeID).Updates(map[string]interface{}{
		"rating_avg":   roundRating(rollup.Avg),
		"rating_count": rollup.Count,
	}).Error
}

// recomputeStoreProductCount refreshes the cached live-product count on a store
func recomputeStoreProductCount(tx *gorm.DB, storeID string) error {
	var count int64
	if err := tx.Model(&models.Product{}).Where("store_id = ?", storeID).Count(&count).Error; err != nil {
		return err
	}
	return tx.Model(&models.Store{}).Where("id = ?", storeID).
		UpdateColumn("product_count", count).Error
}

// roundRating keeps stored averages at display precision (2 decimals)
func roundRating(avg float64) float64 {
	return math.Round(avg*100) / 100
}
