package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/models"
	"github.com/vendora/backend/internal/search"
	"github.com/vendora/backend/internal/util"
	"gorm.io/gorm"
)

// SearchProducts is full-text product search backed by Elasticsearch,
// falling back to SQL ILIKE matching when the search cluster is not
// configured or errors out
// GET /api/v1/search/products
func (h *Handlers) SearchProducts(c *gin.Context) {
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), 24, 100)

	params := search.SearchProductsParams{
		Query:         c.Query("q"),
		Category:      c.Query("category"),
		Tags:          util.ParseTagList(c.Query("tags")),
		StoreID:       c.Query("store_id"),
		AvailableOnly: c.Query("available") != "false",
		Limit:         limit,
		Offset:        offset,
	}
	if raw := c.Query("price_min"); raw != "" {
		v := util.ParseInt64(raw, 0)
		params.PriceMinCents = &v
	}
	if raw := c.Query("price_max"); raw != "" {
		if v := util.ParseInt64(raw, 0); v > 0 {
			params.PriceMaxCents = &v
		}
	}
	if raw := c.Query("rating_min"); raw != "" {
		if v := float64(util.ParseInt64(raw, 0)); v > 0 {
			params.RatingMin = &v
		}
	}

	if h.search != nil {
		result, err := h.search.SearchProducts(c.Request.Context(), params)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{
				"products": result.Products,
				"meta": gin.H{
					"total":  result.Total,
					"limit":  limit,
					"offset": offset,
					"source": "search",
				},
			})
			return
		}
		logger.WarnErr("Product search failed, falling back to SQL", err)
	}

	h.searchProductsSQL(c, params)
}

// searchProductsSQL is the degraded-mode product search: ILIKE matching
// with the same filters, no relevance ranking
func (h *Handlers) searchProductsSQL(c *gin.Context, params search.SearchProductsParams) {
	query := database.DB.Model(&models.Product{}).
		Joins("JOIN stores ON stores.id = products.store_id AND stores.deleted_at IS NULL")

	if params.Query != "" {
		pattern := "%" + params.Query + "%"
		query = query.Where("products.name ILIKE ? OR products.description ILIKE ?", pattern, pattern)
	}
	if params.Category != "" {
		query = query.Where("LOWER(products.category) = LOWER(?)", params.Category)
	}
	if len(params.Tags) > 0 {
		query = query.Where("products.tags && ?", pq.Array(params.Tags))
	}
	if params.StoreID != "" {
		query = query.Where("products.store_id = ?", params.StoreID)
	}
	if params.PriceMinCents != nil {
		query = query.Where("products.price_cents >= ?", *params.PriceMinCents)
	}
	if params.PriceMaxCents != nil {
		query = query.Where("products.price_cents <= ?", *params.PriceMaxCents)
	}
	if params.RatingMin != nil {
		query = query.Where("products.rating_avg >= ?", *params.RatingMin)
	}
	if params.AvailableOnly {
		query = query.Where("products.is_available = ? AND stores.is_open = ?", true, true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Search failed")
		return
	}

	var products []models.Product
	err := query.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Store").
		Order("products.favorite_count DESC, products.created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&products).Error
	if err != nil {
		util.RespondInternalError(c, "Search failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"meta": gin.H{
			"total":  total,
			"limit":  params.Limit,
			"offset": params.Offset,
			"source": "sql",
		},
	})
}

// SearchStores is store search with the same degradation path
// GET /api/v1/search/stores
func (h *Handlers) SearchStores(c *gin.Context) {
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), 20, 100)
	q := c.Query("q")

	if h.search != nil {
		result, err := h.search.SearchStores(c.Request.Context(), q, limit, offset)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{
				"stores": result.Stores,
				"meta": gin.H{
					"total":  result.Total,
					"limit":  limit,
					"offset": offset,
					"source": "search",
				},
			})
			return
		}
		logger.WarnErr("Store search failed, falling back to SQL", err)
	}

	query := database.DB.Model(&models.Store{}).Where("is_open = ?", true)
	if q != "" {
		pattern := "%" + q + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Search failed")
		return
	}

	var stores []models.Store
	err := query.
		Order("rating_avg DESC, rating_count DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&stores).Error
	if err != nil {
		util.RespondInternalError(c, "Search failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stores": stores,
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
			"source": "sql",
		},
	})
}

// SuggestProducts returns typeahead completions for the search box.
// Empty without Elasticsearch; the storefront hides the dropdown then.
// GET /api/v1/search/suggest
func (h *Handlers) SuggestProducts(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusOK, gin.H{"suggestions": []string{}})
		return
	}

	limit := util.ParseInt(c.Query("limit"), 8)
	if limit <= 0 || limit > 20 {
		limit = 8
	}

	if h.search == nil {
		c.JSON(http.StatusOK, gin.H{"suggestions": []string{}})
		return
	}

	suggestions, err := h.search.SuggestProducts(c.Request.Context(), q, limit)
	if err != nil {
		logger.WarnErr("Product suggest failed", err)
		c.JSON(http.StatusOK, gin.H{"suggestions": []string{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
