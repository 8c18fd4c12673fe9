package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/metrics"
	"github.com/vendora/backend/internal/models"
	"github.com/vendora/backend/internal/util"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// withdrawalSummary carries the row counts out of the cleanup transaction
type withdrawalSummary struct {
	CartItemsRemoved int
	FavoritesRemoved int
	ReviewsRemoved   int
	StoreClosed      bool
	ProductsRemoved  int
	StoreID          string
}

// WithdrawAccount closes the authenticated account for good: cart,
// favorites and reviews are removed with their rollups refreshed, an
// owned store is closed and taken down with its products and design, an
// audit row records what was removed, and the user row is soft-deleted.
// Everything runs in one transaction; email and search de-indexing happen
// best-effort after commit.
// POST /api/v1/account/withdraw
func (h *Handlers) WithdrawAccount(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Password string `json:"password"`
		TOTPCode string `json:"totp_code"`
		Reason   string `json:"reason" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	// Re-prove identity before anything destructive
	if user.PasswordHash != nil {
		if req.Password == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "password_required", "message": "Password required to withdraw the account"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "message": "Invalid password"})
			return
		}
	}
	if user.TOTPEnabled {
		if user.TOTPSecret == nil {
			util.RespondInternalError(c, "Two-factor configuration is invalid")
			return
		}
		if req.TOTPCode == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "totp_required", "message": "Two-factor code required"})
			return
		}
		if !totp.Validate(req.TOTPCode, *user.TOTPSecret) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_totp_code", "message": "Invalid two-factor code"})
			return
		}
	}

	var summary withdrawalSummary
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		summary, err = h.runWithdrawal(tx, user, req.Reason)
		return err
	})
	if err != nil {
		logger.ErrorErr("Account withdrawal failed", err)
		util.RespondInternalError(c, "Failed to withdraw account")
		return
	}

	metrics.App().AccountWithdrawals.WithLabelValues(strconv.FormatBool(summary.StoreClosed)).Inc()

	logger.Log.Info("👋 Account withdrawn",
		zap.String("user_id", user.ID),
		zap.Int("cart_items", summary.CartItemsRemoved),
		zap.Int("favorites", summary.FavoritesRemoved),
		zap.Int("reviews", summary.ReviewsRemoved),
		zap.Bool("store_closed", summary.StoreClosed),
		zap.Int("products", summary.ProductsRemoved))

	h.withdrawalAftermath(user, summary)

	c.JSON(http.StatusOK, gin.H{
		"message": "account_withdrawn",
		"summary": gin.H{
			"cart_items_removed": summary.CartItemsRemoved,
			"favorites_removed":  summary.FavoritesRemoved,
			"reviews_removed":    summary.ReviewsRemoved,
			"store_closed":       summary.StoreClosed,
			"products_removed":   summary.ProductsRemoved,
		},
	})
}

// runWithdrawal is the transactional part of the cleanup. Collects the
// rows to remove first so the rating and favorite rollups of everything
// the user touched can be recomputed after their rows are gone.
func (h *Handlers) runWithdrawal(tx *gorm.DB, user *models.User, reason string) (withdrawalSummary, error) {
	var summary withdrawalSummary

	// Cart
	result := tx.Where("user_id = ?", user.ID).Delete(&models.CartItem{})
	if result.Error != nil {
		return summary, result.Error
	}
	summary.CartItemsRemoved = int(result.RowsAffected)

	// Favorites, remembering which products need a fresh count
	var favoritedProductIDs []string
	if err := tx.Model(&models.Favorite{}).
		Where("user_id = ?", user.ID).
		Pluck("product_id", &favoritedProductIDs).Error; err != nil {
		return summary, err
	}
	result = tx.Where("user_id = ?", user.ID).Delete(&models.Favorite{})
	if result.Error != nil {
		return summary, result.Error
	}
	summary.FavoritesRemoved = int(result.RowsAffected)
	for _, productID := range favoritedProductIDs {
		if err := recomputeFavoriteCount(tx, productID); err != nil {
			return summary, err
		}
	}

	// Reviews, with product and store rollups refreshed afterwards
	var reviewedProductIDs []string
	if err := tx.Model(&models.Review{}).
		Where("author_id = ?", user.ID).
		Pluck("product_id", &reviewedProductIDs).Error; err != nil {
		return summary, err
	}
	var reviewedStoreIDs []string
	if len(reviewedProductIDs) > 0 {
		if err := tx.Model(&models.Product{}).
			Where("id IN ?", reviewedProductIDs).
			Distinct().
			Pluck("store_id", &reviewedStoreIDs).Error; err != nil {
			return summary, err
		}
	}
	result = tx.Where("author_id = ?", user.ID).Delete(&models.Review{})
	if result.Error != nil {
		return summary, result.Error
	}
	summary.ReviewsRemoved = int(result.RowsAffected)
	for _, productID := range reviewedProductIDs {
		if err := recomputeProductRating(tx, productID); err != nil {
			return summary, err
		}
	}
	for _, storeID := range reviewedStoreIDs {
		if err := recomputeStoreRating(tx, storeID); err != nil {
			return summary, err
		}
	}

	// Store, products, design and policies if the user is a vendor
	var store models.Store
	err := tx.First(&store, "vendor_id = ?", user.ID).Error
	switch {
	case err == nil:
		summary.StoreClosed = true
		summary.StoreID = store.ID

		if err := tx.Model(&store).Update("is_open", false).Error; err != nil {
			return summary, err
		}
		result = tx.Where("store_id = ?", store.ID).Delete(&models.Product{})
		if result.Error != nil {
			return summary, result.Error
		}
		summary.ProductsRemoved = int(result.RowsAffected)

		if err := tx.Where("store_id = ?", store.ID).Delete(&models.StoreDesign{}).Error; err != nil {
			return summary, err
		}
		if err := tx.Where("store_id = ?", store.ID).Delete(&models.StorePolicy{}).Error; err != nil {
			return summary, err
		}
		if err := tx.Delete(&store).Error; err != nil {
			return summary, err
		}
	case err != gorm.ErrRecordNotFound:
		return summary, err
	}

	// Audit row, then the user goes
	audit := models.WithdrawnAccount{
		UserID:           user.ID,
		EmailHash:        hashEmail(user.Email),
		Reason:           reason,
		CartItemsRemoved: summary.CartItemsRemoved,
		FavoritesRemoved: summary.FavoritesRemoved,
		ReviewsRemoved:   summary.ReviewsRemoved,
		StoreClosed:      summary.StoreClosed,
		ProductsRemoved:  summary.ProductsRemoved,
	}
	if err := tx.Create(&audit).Error; err != nil {
		return summary, err
	}

	if err := tx.Delete(user).Error; err != nil {
		return summary, err
	}

	return summary, nil
}

// withdrawalAftermath runs the external cleanup that must not hold the
// transaction open: farewell email and search de-indexing
func (h *Handlers) withdrawalAftermath(user *models.User, summary withdrawalSummary) {
	if h.email != nil {
		emailAddr := user.Email
		displayName := user.DisplayName
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.email.SendFarewellEmail(ctx, emailAddr, displayName); err != nil {
				logger.WarnErr("Failed to send farewell email", err)
			}
		}()
	}

	if h.search != nil && summary.StoreClosed {
		storeID := summary.StoreID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			if err := h.search.DeleteStoreProducts(ctx, storeID); err != nil {
				logger.WarnErr("Failed to de-index withdrawn store's products", err)
			}
			if err := h.search.DeleteStore(ctx, storeID); err != nil {
				logger.WarnErr("Failed to de-index withdrawn store", err)
			}
			h.search.InvalidateProductCache(ctx)
			h.search.InvalidateStoreCache(ctx)
		}()
	}
}

// hashEmail is the audit-trail form of an address: SHA-256 over the
// lowercased email
func hashEmail(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(email)))
	return hex.EncodeToString(sum[:])
}
