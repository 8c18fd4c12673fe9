package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/models"
	"github.com/vendora/backend/internal/realtime"
	"github.com/vendora/backend/internal/search"
	"github.com/vendora/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateStore opens a new store for a vendor account. One live store per
// vendor; a second create attempt answers 409.
// POST /api/v1/stores
func (h *Handlers) CreateStore(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if !user.IsVendor() {
		c.JSON(http.StatusForbidden, gin.H{"error": "vendor_access_required", "message": "Only vendor accounts can open a store"})
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required,min=1,max=80"`
		Description string `json:"description" binding:"max=2000"`
		AddressLine string `json:"address_line" binding:"max=200"`
		City        string `json:"city" binding:"max=100"`
		Country     string `json:"country" binding:"max=100"`
		PostalCode  string `json:"postal_code" binding:"max=20"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var existing models.Store
	err := database.DB.First(&existing, "vendor_id = ?", user.ID).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "store_exists", "message": "You already have a store"})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.RespondInternalError(c, "Failed to check existing store")
		return
	}

	store := models.Store{
		VendorID:    user.ID,
		Name:        req.Name,
		Slug:        h.uniqueStoreSlug(req.Name),
		Description: req.Description,
		AddressLine: req.AddressLine,
		City:        req.City,
		Country:     req.Country,
		PostalCode:  req.PostalCode,
		IsOpen:      true,
	}

	if err := database.DB.Create(&store).Error; err != nil {
		logger.ErrorErr("Failed to create store", err)
		util.RespondInternalError(c, "Failed to create store")
		return
	}

	logger.Log.Info("🏪 Store created",
		zap.String("store_id", store.ID),
		zap.String("vendor_id", user.ID),
		zap.String("slug", store.Slug))

	h.indexStoreAsync(store)

	c.JSON(http.StatusCreated, gin.H{"store": store})
}

// ListStores returns public stores, open ones first
// GET /api/v1/stores
func (h *Handlers) ListStores(c *gin.Context) {
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), 20, 100)

	query := database.DB.Model(&models.Store{})
	if c.Query("open") == "true" {
		query = query.Where("is_open = ?", true)
	}
	if country := c.Query("country"); country != "" {
		query = query.Where("LOWER(country) = LOWER(?)", country)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to count stores")
		return
	}

	var stores []models.Store
	err := query.
		Order("is_open DESC, rating_count DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&stores).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to list stores")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stores": stores,
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// GetStore returns a single store by ID or slug
// GET /api/v1/stores/:id
func (h *Handlers) GetStore(c *gin.Context) {
	idOrSlug := c.Param("id")

	// Slugs are never valid UUIDs, so the shape picks the column
	var store models.Store
	var err error
	if _, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		err = database.DB.First(&store, "id = ?", idOrSlug).Error
	} else {
		err = database.DB.First(&store, "slug = ?", idOrSlug).Error
	}
	if err != nil {
		util.HandleDBError(c, err, "store")
		return
	}

	var policies []models.StorePolicy
	if err := database.DB.Where("store_id = ?", store.ID).Find(&policies).Error; err != nil {
		logger.WarnErr("Failed to load store policies", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"store":    store,
		"policies": policies,
	})
}

// GetMyStore returns the authenticated vendor's store
// GET /api/v1/my/store
func (h *Handlers) GetMyStore(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var store models.Store
	if err := database.DB.First(&store, "vendor_id = ?", user.ID).Error; err != nil {
		util.HandleDBError(c, err, "store")
		return
	}

	c.JSON(http.StatusOK, gin.H{"store": store})
}

// UpdateStore edits store profile fields. The slug is assigned at
// creation and never changes, so product links stay stable.
// PUT /api/v1/stores/:id
func (h *Handlers) UpdateStore(c *gin.Context) {
	store, ok := findOwnedStore(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		Name        *string `json:"name" binding:"omitempty,min=1,max=80"`
		Description *string `json:"description" binding:"omitempty,max=2000"`
		AddressLine *string `json:"address_line" binding:"omitempty,max=200"`
		City        *string `json:"city" binding:"omitempty,max=100"`
		Country     *string `json:"country" binding:"omitempty,max=100"`
		PostalCode  *string `json:"postal_code" binding:"omitempty,max=20"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.AddressLine != nil {
		updates["address_line"] = *req.AddressLine
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}
	if req.PostalCode != nil {
		updates["postal_code"] = *req.PostalCode
	}
	if len(updates) == 0 {
		util.RespondBadRequest(c, "No fields to update")
		return
	}

	if err := database.DB.Model(store).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "Failed to update store")
		return
	}

	h.indexStoreAsync(*store)

	c.JSON(http.StatusOK, gin.H{"store": store})
}

// SetStoreOpen toggles the open/closed flag and tells watchers
// PUT /api/v1/stores/:id/open
func (h *Handlers) SetStoreOpen(c *gin.Context) {
	store, ok := findOwnedStore(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		IsOpen *bool `json:"is_open" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if store.IsOpen == *req.IsOpen {
		c.JSON(http.StatusOK, gin.H{"store": store})
		return
	}

	if err := database.DB.Model(store).Update("is_open", *req.IsOpen).Error; err != nil {
		util.RespondInternalError(c, "Failed to update store")
		return
	}
	store.IsOpen = *req.IsOpen

	if store.IsOpen {
		logger.Log.Info("🏪 Store opened", zap.String("store_id", store.ID))
	} else {
		logger.Log.Info("🚪 Store closed", zap.String("store_id", store.ID))
	}

	if h.realtime != nil {
		h.realtime.NotifyStoreStatus(&realtime.StoreStatusPayload{
			StoreID:   store.ID,
			IsOpen:    store.IsOpen,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	// Product documents carry store_open for availability filtering, so a
	// toggle has to touch every product of the store in the index.
	h.indexStoreAsync(*store)
	h.reindexStoreProductsAsync(store.ID)

	c.JSON(http.StatusOK, gin.H{"store": store})
}

// DeleteStore closes a store permanently: products and design go with it
// DELETE /api/v1/stores/:id
func (h *Handlers) DeleteStore(c *gin.Context) {
	store, ok := findOwnedStore(c, c.Param("id"))
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("store_id = ?", store.ID).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		if err := tx.Where("store_id = ?", store.ID).Delete(&models.StoreDesign{}).Error; err != nil {
			return err
		}
		if err := tx.Where("store_id = ?", store.ID).Delete(&models.StorePolicy{}).Error; err != nil {
			return err
		}
		return tx.Delete(store).Error
	})
	if err != nil {
		logger.ErrorErr("Failed to delete store", err)
		util.RespondInternalError(c, "Failed to delete store")
		return
	}

	logger.Log.Info("🗑️ Store deleted",
		zap.String("store_id", store.ID),
		zap.String("vendor_id", store.VendorID))

	if h.search != nil {
		storeID := store.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.search.DeleteStoreProducts(ctx, storeID); err != nil {
				logger.WarnErr("Failed to de-index store products", err)
			}
			if err := h.search.DeleteStore(ctx, storeID); err != nil {
				logger.WarnErr("Failed to de-index store", err)
			}
			h.search.InvalidateProductCache(ctx)
			h.search.InvalidateStoreCache(ctx)
		}()
	}

	c.JSON(http.StatusOK, gin.H{"message": "store_deleted"})
}

// UploadStoreLogo replaces the store logo image
// POST /api/v1/stores/:id/logo
func (h *Handlers) UploadStoreLogo(c *gin.Context) {
	store, ok := findOwnedStore(c, c.Param("id"))
	if !ok {
		return
	}

	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads_unavailable", "message": "Image uploads are not configured"})
		return
	}

	file, header, err := c.Request.FormFile("logo")
	if err != nil {
		util.RespondBadRequest(c, "Logo file required in 'logo' field")
		return
	}
	defer file.Close()

	if !util.IsValidImageFile(header.Filename) {
		util.RespondValidationError(c, "logo", "File must be a jpg, png, gif, or webp image")
		return
	}

	result, err := h.uploader.UploadStoreLogo(c.Request.Context(), file, header, store.ID)
	if err != nil {
		logger.ErrorErr("Failed to upload store logo", err)
		util.RespondInternalError(c, "Failed to upload logo")
		return
	}

	oldKey := store.LogoKey
	updates := map[string]interface{}{
		"logo_url": result.URL,
		"logo_key": result.Key,
	}
	if err := database.DB.Model(store).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "Failed to save logo")
		return
	}

	if oldKey != "" && oldKey != result.Key {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := h.uploader.DeleteFile(ctx, oldKey); err != nil {
				logger.WarnErr("Failed to delete old store logo", err)
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{
		"logo_url": result.URL,
		"size":     result.Size,
	})
}

// uniqueStoreSlug derives a URL slug from the store name, suffixing a
// counter when the plain slug is taken
func (h *Handlers) uniqueStoreSlug(name string) string {
	base := util.Slugify(name)
	if base == "" {
		base = "store"
	}

	slug := base
	for i := 2; ; i++ {
		var count int64
		if err := database.DB.Model(&models.Store{}).Where("slug = ?", slug).Count(&count).Error; err != nil || count == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// indexStoreAsync pushes the store document to Elasticsearch without
// blocking the request
func (h *Handlers) indexStoreAsync(store models.Store) {
	if h.search == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.search.IndexStore(ctx, store.ID, search.StoreToSearchDoc(store)); err != nil {
			logger.WarnErr("Failed to index store", err)
		}
		h.search.InvalidateStoreCache(ctx)
	}()
}

// reindexStoreProductsAsync refreshes every product document of a store,
// keeping the denormalized store fields (name, open flag) current
func (h *Handlers) reindexStoreProductsAsync(storeID string) {
	if h.search == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if _, err := h.search.ReindexStoreProducts(ctx, storeID); err != nil {
			logger.WarnErr("Failed to reindex store products", err)
		}
		h.search.InvalidateProductCache(ctx)
	}()
}
