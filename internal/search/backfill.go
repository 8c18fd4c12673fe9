package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/models"
)

// ReindexAllProducts walks the whole catalog in batches and re-indexes
// every product. Run after mapping changes or when the index is rebuilt.
// Returns the number of products indexed.
func (c *Client) ReindexAllProducts(ctx context.Context) (int, error) {
	indexed := 0
	failed := 0

	var products []models.Product
	err := database.DB.WithContext(ctx).
		Preload("Store").
		FindInBatches(&products, 500, func(tx *gorm.DB, batch int) error {
			for _, product := range products {
				doc := ProductToSearchDoc(product, product.Store)
				if err := c.IndexProduct(ctx, product.ID, doc); err != nil {
					logger.Log.Warn("Failed to reindex product",
						zap.String("product_id", product.ID), zap.Error(err))
					failed++
					continue
				}
				indexed++
			}
			logger.Log.Info("📦 Reindexed product batch",
				zap.Int("batch", batch), zap.Int("indexed", indexed))
			return nil
		}).Error
	if err != nil {
		return indexed, fmt.Errorf("failed to walk products: %w", err)
	}

	if failed > 0 {
		return indexed, fmt.Errorf("%d products failed to index", failed)
	}
	return indexed, nil
}

// ReindexStoreProducts re-indexes every product of one store. Called when
// a store toggles open/closed or renames, since product documents carry
// those fields denormalized.
func (c *Client) ReindexStoreProducts(ctx context.Context, storeID string) (int, error) {
	indexed := 0
	failed := 0

	var products []models.Product
	err := database.DB.WithContext(ctx).
		Preload("Store").
		Where("store_id = ?", storeID).
		FindInBatches(&products, 500, func(tx *gorm.DB, batch int) error {
			for _, product := range products {
				doc := ProductToSearchDoc(product, product.Store)
				if err := c.IndexProduct(ctx, product.ID, doc); err != nil {
					logger.Log.Warn("Failed to reindex product",
						zap.String("product_id", product.ID), zap.Error(err))
					failed++
					continue
				}
				indexed++
			}
			return nil
		}).Error
	if err != nil {
		return indexed, fmt.Errorf("failed to walk store products: %w", err)
	}

	if failed > 0 {
		return indexed, fmt.Errorf("%d products failed to index", failed)
	}
	return indexed, nil
}

// ReindexAllStores re-indexes every store. Returns the number indexed.
func (c *Client) ReindexAllStores(ctx context.Context) (int, error) {
	indexed := 0
	failed := 0

	var stores []models.Store
	err := database.DB.WithContext(ctx).
		FindInBatches(&stores, 500, func(tx *gorm.DB, batch int) error {
			for _, store := range stores {
				if err := c.IndexStore(ctx, store.ID, StoreToSearchDoc(store)); err != nil {
					logger.Log.Warn("Failed to reindex store",
						zap.String("store_id", store.ID), zap.Error(err))
					failed++
					continue
				}
				indexed++
			}
			return nil
		}).Error
	if err != nil {
		return indexed, fmt.Errorf("failed to walk stores: %w", err)
	}

	if failed > 0 {
		return indexed, fmt.Errorf("%d stores failed to index", failed)
	}
	return indexed, nil
}
