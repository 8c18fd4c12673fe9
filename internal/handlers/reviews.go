package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/metrics"
	"github.com/vendora/backend/internal/models"
	"github.com/vendora/backend/internal/realtime"
	"github.com/vendora/backend/internal/util"
	"gorm.io/gorm"
)

// CreateReview posts a review on a product. One live review per user per
// product; vendors cannot review their own listings. The product and
// store rating rollups refresh in the same transaction.
// POST /api/v1/products/:id/reviews
func (h *Handlers) CreateReview(c *gin.Context) {
	productID := c.Param("id")
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Rating int    `json:"rating" binding:"required,min=1,max=5"`
		Title  string `json:"title" binding:"max=120"`
		Body   string `json:"body" binding:"max=5000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var product models.Product
	if err := database.DB.Preload("Store").First(&product, "id = ?", productID).Error; err != nil {
		util.HandleDBError(c, err, "product")
		return
	}

	if product.Store.VendorID == user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "own_product", "message": "You cannot review your own product"})
		return
	}

	var existing models.Review
	err := database.DB.First(&existing, "product_id = ? AND author_id = ?", productID, user.ID).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "review_exists", "message": "You have already reviewed this product"})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.RespondInternalError(c, "Failed to check existing review")
		return
	}

	review := models.Review{
		ProductID: productID,
		AuthorID:  user.ID,
		Rating:    req.Rating,
		Title:     req.Title,
		Body:      req.Body,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		if err := recomputeProductRating(tx, productID); err != nil {
			return err
		}
		return recomputeStoreRating(tx, product.StoreID)
	})
	if err != nil {
		logger.ErrorErr("Failed to create review", err)
		util.RespondInternalError(c, "Failed to create review")
		return
	}

	metrics.App().ReviewsCreated.WithLabelValues(strconv.Itoa(req.Rating)).Inc()

	if err := database.DB.Preload("Author").First(&review, "id = ?", review.ID).Error; err != nil {
		logger.WarnErr("Failed to reload review with author", err)
	}

	if h.realtime != nil {
		var refreshed models.Product
		if err := database.DB.Select("rating_avg", "rating_count").First(&refreshed, "id = ?", productID).Error; err == nil {
			h.realtime.NotifyReviewCreated(&realtime.ReviewCreatedPayload{
				ReviewID:    review.ID,
				ProductID:   productID,
				StoreID:     product.StoreID,
				Rating:      review.Rating,
				RatingAvg:   refreshed.RatingAvg,
				RatingCount: refreshed.RatingCount,
				Timestamp:   time.Now().UnixMilli(),
			})
		}
	}

	h.indexProductAsync(product, product.Store)

	c.JSON(http.StatusCreated, gin.H{"review": review})
}

// ListProductReviews returns a product's reviews, newest first
// GET /api/v1/products/:id/reviews
func (h *Handlers) ListProductReviews(c *gin.Context) {
	productID := c.Param("id")
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), 20, 100)

	var product models.Product
	if err := database.DB.Select("id").First(&product, "id = ?", productID).Error; err != nil {
		util.HandleDBError(c, err, "product")
		return
	}

	var total int64
	if err := database.DB.Model(&models.Review{}).Where("product_id = ?", productID).Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to count reviews")
		return
	}

	var reviews []models.Review
	err := database.DB.
		Preload("Author").
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reviews).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to list reviews")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// UpdateReview edits the author's own review and refreshes the rollups
// PUT /api/v1/reviews/:id
func (h *Handlers) UpdateReview(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var review models.Review
	if err := database.DB.First(&review, "id = ?", c.Param("id")).Error; err != nil {
		util.HandleDBError(c, err, "review")
		return
	}

	if review.AuthorID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not_review_author", "message": "You can only edit your own reviews"})
		return
	}

	var req struct {
		Rating *int    `json:"rating" binding:"omitempty,min=1,max=5"`
		Title  *string `json:"title" binding:"omitempty,max=120"`
		Body   *string `json:"body" binding:"omitempty,max=5000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"is_edited": true,
		"edited_at": &now,
	}
	if req.Rating != nil {
		updates["rating"] = *req.Rating
	}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&review).Updates(updates).Error; err != nil {
			return err
		}
		if req.Rating == nil {
			return nil
		}
		if err := recomputeProductRating(tx, review.ProductID); err != nil {
			return err
		}
		var product models.Product
		if err := tx.Select("store_id").First(&product, "id = ?", review.ProductID).Error; err != nil {
			return err
		}
		return recomputeStoreRating(tx, product.StoreID)
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to update review")
		return
	}

	c.JSON(http.StatusOK, gin.H{"review": review})
}

// DeleteReview removes a review (author or admin) and refreshes rollups
// DELETE /api/v1/reviews/:id
func (h *Handlers) DeleteReview(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var review models.Review
	if err := database.DB.First(&review, "id = ?", c.Param("id")).Error; err != nil {
		util.HandleDBError(c, err, "review")
		return
	}

	if review.AuthorID != user.ID && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "not_review_author", "message": "You can only delete your own reviews"})
		return
	}

	var product models.Product
	if err := database.DB.Select("id", "store_id").First(&product, "id = ?", review.ProductID).Error; err != nil {
		util.HandleDBError(c, err, "product")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		if err := recomputeProductRating(tx, review.ProductID); err != nil {
			return err
		}
		return recomputeStoreRating(tx, product.StoreID)
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to delete review")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "review_deleted"})
}
