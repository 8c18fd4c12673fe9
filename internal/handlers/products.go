package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/metrics"
	"github.com/vendora/backend/internal/models"
	"github.com/vendora/backend/internal/realtime"
	"github.com/vendora/backend/internal/search"
	"github.com/vendora/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateProduct lists a new product in an owned store
// POST /api/v1/stores/:id/products
func (h *Handlers) CreateProduct(c *gin.Context) {
	store, ok := findOwnedStore(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		Name        string   `json:"name" binding:"required,min=1,max=140"`
		Description string   `json:"description" binding:"max=5000"`
		PriceCents  int64    `json:"price_cents" binding:"required,gt=0"`
		Currency    string   `json:"currency" binding:"omitempty,len=3"`
		Stock       int      `json:"stock" binding:"gte=0"`
		Category    string   `json:"category" binding:"max=60"`
		Tags        []string `json:"tags" binding:"max=10,dive,min=1,max=40"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	product := models.Product{
		StoreID:     store.ID,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    currency,
		Stock:       req.Stock,
		IsAvailable: req.Stock > 0,
		Category:    req.Category,
		Tags:        models.StringArray(util.ParseTagList(strings.Join(req.Tags, ","))),
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		return recomputeStoreProductCount(tx, store.ID)
	})
	if err != nil {
		logger.ErrorErr("Failed to create product", err)
		util.RespondInternalError(c, "Failed to create product")
		return
	}

	category := product.Category
	if category == "" {
		category = "uncategorized"
	}
	metrics.App().ProductsCreated.WithLabelValues(category).Inc()

	logger.Log.Info("📦 Product listed",
		zap.String("product_id", product.ID),
		zap.String("store_id", store.ID),
		zap.Int64("price_cents", product.PriceCents))

	if h.realtime != nil {
		h.realtime.NotifyProductListed(&realtime.ProductListingPayload{
			ProductID: product.ID,
			StoreID:   store.ID,
			Name:      product.Name,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	h.indexProductAsync(product, *store)

	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// ListProducts is the catalog listing with the storefront's filter and
// sort surface. All filters compose.
// GET /api/v1/products
func (h *Handlers) ListProducts(c *gin.Context) {
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), 24, 100)

	query := database.DB.Model(&models.Product{}).
		Joins("JOIN stores ON stores.id = products.store_id AND stores.deleted_at IS NULL")

	if storeID := c.Query("store_id"); storeID != "" {
		query = query.Where("products.store_id = ?", storeID)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("LOWER(products.category) = LOWER(?)", category)
	}
	if tags := util.ParseTagList(c.Query("tags")); len(tags) > 0 {
		query = query.Where("products.tags && ?", pq.Array(tags))
	}
	if raw := c.Query("price_min"); raw != "" {
		query = query.Where("products.price_cents >= ?", util.ParseInt64(raw, 0))
	}
	if raw := c.Query("price_max"); raw != "" {
		if priceMax := util.ParseInt64(raw, 0); priceMax > 0 {
			query = query.Where("products.price_cents <= ?", priceMax)
		}
	}
	if c.Query("available") == "true" {
		query = query.Where("products.is_available = ?", true)
	}
	if c.Query("open_stores") == "true" {
		query = query.Where("stores.is_open = ?", true)
	}
	if q := c.Query("q"); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("products.name ILIKE ? OR products.description ILIKE ?", pattern, pattern)
	}

	switch c.Query("sort") {
	case "price_asc":
		query = query.Order("products.price_cents ASC, products.created_at DESC")
	case "price_desc":
		query = query.Order("products.price_cents DESC, products.created_at DESC")
	case "rating":
		query = query.Order("products.rating_avg DESC, products.rating_count DESC, products.created_at DESC")
	case "favorites":
		query = query.Order("products.favorite_count DESC, products.created_at DESC")
	default:
		query = query.Order("products.created_at DESC")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to count products")
		return
	}

	var products []models.Product
	err := query.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Store").
		Limit(limit).
		Offset(offset).
		Find(&products).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// GetProduct returns one product with images and store. Unavailable
// products and products of closed stores 404 for everyone except the
// owning vendor.
// GET /api/v1/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	var product models.Product
	err := database.DB.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Store").
		First(&product, "id = ?", c.Param("id")).Error
	if err != nil {
		util.HandleDBError(c, err, "product")
		return
	}

	if !product.IsAvailable || !product.Store.IsOpen {
		isOwner := false
		if viewer, ok := c.Get("user"); ok {
			if u, ok := viewer.(*models.User); ok {
				isOwner = u.ID == product.Store.VendorID || u.Role == models.RoleAdmin
			}
		}
		if !isOwner {
			util.RespondNotFound(c, "product")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// UpdateProduct edits product fields; price and availability changes are
// broadcast to store watchers
// PUT /api/v1/products/:id
func (h *Handlers) UpdateProduct(c *gin.Context) {
	product, store, ok := h.findOwnedProduct(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		Name        *string   `json:"name" binding:"omitempty,min=1,max=140"`
		Description *string   `json:"description" binding:"omitempty,max=5000"`
		PriceCents  *int64    `json:"price_cents" binding:"omitempty,gt=0"`
		Currency    *string   `json:"currency" binding:"omitempty,len=3"`
		Category    *string   `json:"category" binding:"omitempty,max=60"`
		Tags        *[]string `json:"tags" binding:"omitempty,max=10,dive,min=1,max=40"`
		IsAvailable *bool     `json:"is_available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	oldPrice := product.PriceCents

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.PriceCents != nil {
		updates["price_cents"] = *req.PriceCents
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Tags != nil {
		updates["tags"] = models.StringArray(util.ParseTagList(strings.Join(*req.Tags, ",")))
	}
	if req.IsAvailable != nil {
		if *req.IsAvailable && product.Stock == 0 {
			util.RespondValidationError(c, "is_available", "Cannot mark an out-of-stock product available")
			return
		}
		updates["is_available"] = *req.IsAvailable
	}
	if len(updates) == 0 {
		util.RespondBadRequest(c, "No fields to update")
		return
	}

	if err := database.DB.Model(product).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "Failed to update product")
		return
	}

	if req.PriceCents != nil && *req.PriceCents != oldPrice && h.realtime != nil {
		h.realtime.NotifyPriceChange(&realtime.PriceChangePayload{
			ProductID:     product.ID,
			StoreID:       product.StoreID,
			OldPriceCents: oldPrice,
			NewPriceCents: product.PriceCents,
			Currency:      product.Currency,
			Timestamp:     time.Now().UnixMilli(),
		})
	}

	h.indexProductAsync(*product, *store)

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// AdjustStock sets the stock level. Hitting zero clears IsAvailable;
// restocking does not set it back, the vendor relists explicitly.
// PUT /api/v1/products/:id/stock
func (h *Handlers) AdjustStock(c *gin.Context) {
	product, store, ok := h.findOwnedProduct(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		Stock *int `json:"stock" binding:"required,gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	oldStock := product.Stock
	updates := map[string]interface{}{"stock": *req.Stock}
	if *req.Stock == 0 {
		updates["is_available"] = false
	}

	if err := database.DB.Model(product).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "Failed to update stock")
		return
	}

	if oldStock != product.Stock && h.realtime != nil {
		h.realtime.NotifyStockChange(&realtime.StockChangePayload{
			ProductID: product.ID,
			StoreID:   product.StoreID,
			OldStock:  oldStock,
			NewStock:  product.Stock,
			Available: product.IsAvailable,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	h.indexProductAsync(*product, *store)

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct removes a product from the catalog
// DELETE /api/v1/products/:id
func (h *Handlers) DeleteProduct(c *gin.Context) {
	product, _, ok := h.findOwnedProduct(c, c.Param("id"))
	if !ok {
		return
	}

	var imageKeys []string
	for _, img := range product.Images {
		if img.S3Key != "" {
			imageKeys = append(imageKeys, img.S3Key)
		}
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(product).Error; err != nil {
			return err
		}
		return recomputeStoreProductCount(tx, product.StoreID)
	})
	if err != nil {
		logger.ErrorErr("Failed to delete product", err)
		util.RespondInternalError(c, "Failed to delete product")
		return
	}

	logger.Log.Info("🗑️ Product removed",
		zap.String("product_id", product.ID),
		zap.String("store_id", product.StoreID))

	if h.realtime != nil {
		h.realtime.NotifyProductRemoved(&realtime.ProductListingPayload{
			ProductID: product.ID,
			StoreID:   product.StoreID,
			Name:      product.Name,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	if h.search != nil {
		productID := product.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := h.search.DeleteProduct(ctx, productID); err != nil {
				logger.WarnErr("Failed to de-index product", err)
			}
			h.search.InvalidateProductCache(ctx)
		}()
	}

	if h.uploader != nil && len(imageKeys) > 0 {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			for _, key := range imageKeys {
				if err := h.uploader.DeleteFile(ctx, key); err != nil {
					logger.WarnErr("Failed to delete product image from S3", err)
				}
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{"message": "product_deleted"})
}

// UploadProductImage appends an image to the product gallery
// POST /api/v1/products/:id/images
func (h *Handlers) UploadProductImage(c *gin.Context) {
	product, _, ok := h.findOwnedProduct(c, c.Param("id"))
	if !ok {
		return
	}

	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads_unavailable", "message": "Image uploads are not configured"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		util.RespondBadRequest(c, "Image file required in 'image' field")
		return
	}
	defer file.Close()

	if !util.IsValidImageFile(header.Filename) {
		util.RespondValidationError(c, "image", "File must be a jpg, png, gif, or webp image")
		return
	}

	result, err := h.uploader.UploadProductImage(c.Request.Context(), file, header, product.StoreID)
	if err != nil {
		logger.ErrorErr("Failed to upload product image", err)
		util.RespondInternalError(c, "Failed to upload image")
		return
	}

	var maxPosition int
	database.DB.Model(&models.ProductImage{}).
		Where("product_id = ?", product.ID).
		Select("COALESCE(MAX(position), -1)").
		Scan(&maxPosition)

	image := models.ProductImage{
		ProductID: product.ID,
		URL:       result.URL,
		S3Key:     result.Key,
		Position:  maxPosition + 1,
	}
	if err := database.DB.Create(&image).Error; err != nil {
		util.RespondInternalError(c, "Failed to save image")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"image": image})
}

// DeleteProductImage removes a gallery image and closes the position gap
// DELETE /api/v1/products/:id/images/:image_id
func (h *Handlers) DeleteProductImage(c *gin.Context) {
	product, _, ok := h.findOwnedProduct(c, c.Param("id"))
	if !ok {
		return
	}

	var image models.ProductImage
	if err := database.DB.First(&image, "id = ? AND product_id = ?", c.Param("image_id"), product.ID).Error; err != nil {
		util.HandleDBError(c, err, "image")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&image).Error; err != nil {
			return err
		}
		return tx.Model(&models.ProductImage{}).
			Where("product_id = ? AND position > ?", product.ID, image.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to delete image")
		return
	}

	if h.uploader != nil && image.S3Key != "" {
		key := image.S3Key
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := h.uploader.DeleteFile(ctx, key); err != nil {
				logger.WarnErr("Failed to delete product image from S3", err)
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{"message": "image_deleted"})
}

// ReorderProductImages applies an explicit gallery order. The list must
// name every image exactly once.
// PUT /api/v1/products/:id/images/reorder
func (h *Handlers) ReorderProductImages(c *gin.Context) {
	product, _, ok := h.findOwnedProduct(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		ImageIDs []string `json:"image_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var images []models.ProductImage
	if err := database.DB.Where("product_id = ?", product.ID).Find(&images).Error; err != nil {
		util.RespondInternalError(c, "Failed to load images")
		return
	}

	if len(req.ImageIDs) != len(images) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_image_order", "message": "Order list must name every image exactly once"})
		return
	}
	byID := make(map[string]*models.ProductImage, len(images))
	for i := range images {
		byID[images[i].ID] = &images[i]
	}
	for _, id := range req.ImageIDs {
		if _, ok := byID[id]; !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_image_order", "message": "Unknown image ID: " + id})
			return
		}
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		for position, id := range req.ImageIDs {
			if err := tx.Model(&models.ProductImage{}).
				Where("id = ?", id).
				UpdateColumn("position", position).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to reorder images")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "images_reordered"})
}

// findOwnedProduct loads a product with its store and enforces ownership.
// Responds and returns false on failure.
func (h *Handlers) findOwnedProduct(c *gin.Context, productID string) (*models.Product, *models.Store, bool) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return nil, nil, false
	}

	var product models.Product
	err := database.DB.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Store").
		First(&product, "id = ?", productID).Error
	if err != nil {
		util.HandleDBError(c, err, "product")
		return nil, nil, false
	}

	if product.Store.VendorID != user.ID && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "not_store_owner", "message": "You do not own this product"})
		return nil, nil, false
	}

	store := product.Store
	return &product, &store, true
}

// indexProductAsync pushes the product document to Elasticsearch without
// blocking the request
func (h *Handlers) indexProductAsync(product models.Product, store models.Store) {
	if h.search == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.search.IndexProduct(ctx, product.ID, search.ProductToSearchDoc(product, store)); err != nil {
			logger.WarnErr("Failed to index product", err)
		}
		h.search.InvalidateProductCache(ctx)
	}()
}
