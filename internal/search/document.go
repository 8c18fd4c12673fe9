package search

import (
	"time"

	"github.com/vendora/backend/internal/models"
)

// ProductToSearchDoc converts a product (with its store) to an
// Elasticsearch document. Store fields ride along so availability
// filtering never needs a join at query time.
func ProductToSearchDoc(product models.Product, store models.Store) map[string]interface{} {
	tags := []string(product.Tags)
	if tags == nil {
		tags = []string{}
	}

	return map[string]interface{}{
		"id":             product.ID,
		"store_id":       product.StoreID,
		"store_name":     store.Name,
		"name":           product.Name,
		"description":    product.Description,
		"category":       product.Category,
		"tags":           tags,
		"price_cents":    product.PriceCents,
		"currency":       product.Currency,
		"stock":          product.Stock,
		"is_available":   product.IsAvailable,
		"store_open":     store.IsOpen,
		"rating_avg":     product.RatingAvg,
		"rating_count":   product.RatingCount,
		"favorite_count": product.FavoriteCount,
		"created_at":     product.CreatedAt.Format(time.RFC3339),
	}
}

// StoreToSearchDoc converts a store to an Elasticsearch document
func StoreToSearchDoc(store models.Store) map[string]interface{} {
	return map[string]interface{}{
		"id":            store.ID,
		"name":          store.Name,
		"description":   store.Description,
		"city":          store.City,
		"country":       store.Country,
		"is_open":       store.IsOpen,
		"product_count": store.ProductCount,
		"rating_avg":    store.RatingAvg,
		"rating_count":  store.RatingCount,
		"created_at":    store.CreatedAt.Format(time.RFC3339),
	}
}
