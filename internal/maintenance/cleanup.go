// Package maintenance runs the background housekeeping sweeps: purging
// spent password-reset tokens and erasing withdrawn accounts once their
// retention window has passed.
package maintenance

import (
	"context"
	"strings"
	"time"

	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/models"
	"go.uber.org/zap"
)

// FileDeleter deletes media objects by key. Satisfied by storage.S3Uploader.
type FileDeleter interface {
	DeleteFile(ctx context.Context, key string) error
}

// PreviewDeleter deletes design preview snapshots by URL.
// Satisfied by storage.SnapshotStorage.
type PreviewDeleter interface {
	DeletePreview(previewURL string) error
}

// CleanupService periodically purges expired password resets and
// hard-deletes withdrawn accounts past the retention window, together
// with their remaining media objects.
type CleanupService struct {
	fileDeleter FileDeleter
	previews    PreviewDeleter
	ctx         context.Context
	cancel      context.CancelFunc
	interval    time.Duration
	retention   time.Duration
}

// NewCleanupService creates a new maintenance sweep. A zero retention
// falls back to 30 days.
func NewCleanupService(fileDeleter FileDeleter, previews PreviewDeleter, interval, retention time.Duration) *CleanupService {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupService{
		fileDeleter: fileDeleter,
		previews:    previews,
		ctx:         ctx,
		cancel:      cancel,
		interval:    interval,
		retention:   retention,
	}
}

// Start begins the periodic sweep
func (s *CleanupService) Start() {
	logger.Log.Info("🧹 Starting maintenance sweep",
		zap.Duration("interval", s.interval),
		zap.Duration("retention", s.retention))
	go s.run()
}

// Stop stops the sweep
func (s *CleanupService) Stop() {
	logger.Log.Info("🧹 Stopping maintenance sweep")
	s.cancel()
}

// run executes the sweep on the configured interval
func (s *CleanupService) run() {
	// Run immediately on startup
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.ctx.Done():
			return
		}
	}
}

// sweep runs both passes
func (s *CleanupService) sweep() {
	s.purgeSpentPasswordResets()
	s.purgeWithdrawnAccounts()
}

// purgeSpentPasswordResets deletes reset tokens that were used or expired
func (s *CleanupService) purgeSpentPasswordResets() {
	result := database.DB.
		Where("used = ? OR expires_at < ?", true, time.Now().UTC()).
		Delete(&models.PasswordReset{})
	if result.Error != nil {
		logger.Log.Error("❌ Failed to purge password resets", zap.Error(result.Error))
		return
	}
	if result.RowsAffected > 0 {
		logger.Log.Info("✅ Purged spent password resets", zap.Int64("count", result.RowsAffected))
	}
}

// purgeWithdrawnAccounts hard-deletes users soft-deleted longer ago than the
// retention window, their soft-deleted stores/products/designs, and the rows
// other shoppers still hold against those products. The withdrawn_accounts
// audit rows are kept.
func (s *CleanupService) purgeWithdrawnAccounts() {
	startTime := time.Now()
	cutoff := time.Now().UTC().Add(-s.retention)

	var users []models.User
	err := database.DB.Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Find(&users).Error
	if err != nil {
		logger.Log.Error("❌ Failed to query withdrawn accounts", zap.Error(err))
		return
	}

	if len(users) == 0 {
		return
	}

	logger.Log.Info("🗑️ Found withdrawn accounts past retention", zap.Int("count", len(users)))

	purged := 0
	filesDeleted := 0
	errors := 0

	for _, user := range users {
		files, err := s.purgeUser(&user)
		filesDeleted += files
		if err != nil {
			logger.Log.Error("❌ Failed to purge withdrawn account",
				zap.String("user_id", user.ID),
				zap.Error(err))
			errors++
			continue
		}
		purged++
	}

	logger.Log.Info("✅ Withdrawn-account purge completed",
		zap.Int("users_purged", purged),
		zap.Int("files_deleted", filesDeleted),
		zap.Int("errors", errors),
		zap.Duration("took", time.Since(startTime)))
}

// purgeUser erases one user's remaining rows and media. Returns the number
// of storage objects deleted. Media failures are logged and skipped; the
// database purge is the part that must not be left half-done.
func (s *CleanupService) purgeUser(user *models.User) (int, error) {
	filesDeleted := 0
	db := database.DB

	var stores []models.Store
	if err := db.Unscoped().Where("vendor_id = ?", user.ID).Find(&stores).Error; err != nil {
		return filesDeleted, err
	}

	for _, store := range stores {
		var products []models.Product
		if err := db.Unscoped().Where("store_id = ?", store.ID).Find(&products).Error; err != nil {
			return filesDeleted, err
		}

		productIDs := make([]string, 0, len(products))
		for _, p := range products {
			productIDs = append(productIDs, p.ID)
		}

		if len(productIDs) > 0 {
			// Media objects first, then the rows referencing the products
			var images []models.ProductImage
			db.Where("product_id IN ?", productIDs).Find(&images)
			for _, img := range images {
				if s.deleteObject(img.S3Key, img.URL) {
					filesDeleted++
				}
			}

			db.Where("product_id IN ?", productIDs).Delete(&models.ProductImage{})
			db.Unscoped().Where("product_id IN ?", productIDs).Delete(&models.Review{})
			db.Unscoped().Where("product_id IN ?", productIDs).Delete(&models.Favorite{})
			db.Where("product_id IN ?", productIDs).Delete(&models.CartItem{})

			if err := db.Unscoped().Where("store_id = ?", store.ID).Delete(&models.Product{}).Error; err != nil {
				return filesDeleted, err
			}
		}

		var design models.StoreDesign
		if err := db.Unscoped().Where("store_id = ?", store.ID).First(&design).Error; err == nil {
			if design.PreviewURL != "" && s.previews != nil {
				if err := s.previews.DeletePreview(design.PreviewURL); err != nil {
					logger.Log.Warn("⚠️ Failed to delete design preview",
						zap.String("store_id", store.ID),
						zap.Error(err))
				} else {
					filesDeleted++
				}
			}
			db.Unscoped().Where("store_id = ?", store.ID).Delete(&models.StoreDesign{})
		}

		db.Unscoped().Where("store_id = ?", store.ID).Delete(&models.StorePolicy{})

		if s.deleteObject(store.LogoKey, store.LogoURL) {
			filesDeleted++
		}

		if err := db.Unscoped().Delete(&models.Store{}, "id = ?", store.ID).Error; err != nil {
			return filesDeleted, err
		}
	}

	// Rows the user authored against other vendors' products. Withdrawal
	// soft-deletes these; retention erases them.
	db.Unscoped().Where("author_id = ?", user.ID).Delete(&models.Review{})
	db.Unscoped().Where("user_id = ?", user.ID).Delete(&models.Favorite{})
	db.Where("user_id = ?", user.ID).Delete(&models.CartItem{})
	db.Where("user_id = ?", user.ID).Delete(&models.PasswordReset{})

	if err := db.Unscoped().Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
		return filesDeleted, err
	}

	return filesDeleted, nil
}

// deleteObject removes one storage object, resolving the key from the URL
// when the row predates stored keys. Returns true when an object was deleted.
func (s *CleanupService) deleteObject(key, url string) bool {
	if s.fileDeleter == nil {
		return false
	}
	if key == "" {
		key = extractStorageKeyFromURL(url)
	}
	if key == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.fileDeleter.DeleteFile(ctx, key); err != nil {
		logger.Log.Warn("⚠️ Failed to delete storage object",
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return true
}

// extractStorageKeyFromURL extracts the object key from a CDN URL.
// Example: https://cdn.vendora.shop/products/2025/07/store1/img.jpg
// -> products/2025/07/store1/img.jpg
func extractStorageKeyFromURL(url string) string {
	parts := strings.Split(url, "/")
	if len(parts) < 4 {
		return ""
	}

	// The path starts at one of the uploader's known prefixes
	for i, part := range parts {
		if part == "products" || part == "logos" || part == "designs" {
			return strings.Join(parts[i:], "/")
		}
	}

	return ""
}
