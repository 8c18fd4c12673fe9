package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/models"
	"github.com/vendora/backend/internal/util"
	"gorm.io/gorm"
)

// ListPolicyTemplates returns the policy boilerplate catalog, defaults first
// GET /api/v1/policy-templates
func (h *Handlers) ListPolicyTemplates(c *gin.Context) {
	query := database.DB.Model(&models.PolicyTemplate{})
	if kind := c.Query("kind"); kind != "" {
		if !models.ValidPolicyKind(models.PolicyKind(kind)) {
			util.RespondValidationError(c, "kind", "Must be one of: shipping, returns, refunds")
			return
		}
		query = query.Where("kind = ?", kind)
	}

	var templates []models.PolicyTemplate
	if err := query.Order("kind ASC, is_default DESC, created_at ASC").Find(&templates).Error; err != nil {
		util.RespondInternalError(c, "Failed to list policy templates")
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// CreatePolicyTemplate adds a template to the catalog. Marking it default
// clears the previous default of the same kind.
// POST /api/v1/policy-templates (admin)
func (h *Handlers) CreatePolicyTemplate(c *gin.Context) {
	var req struct {
		Kind      string `json:"kind" binding:"required"`
		Title     string `json:"title" binding:"required,min=1,max=120"`
		Body      string `json:"body" binding:"required,min=1"`
		IsDefault bool   `json:"is_default"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	kind := models.PolicyKind(req.Kind)
	if !models.ValidPolicyKind(kind) {
		util.RespondValidationError(c, "kind", "Must be one of: shipping, returns, refunds")
		return
	}

	template := models.PolicyTemplate{
		Kind:      kind,
		Title:     req.Title,
		Body:      req.Body,
		IsDefault: req.IsDefault,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := tx.Model(&models.PolicyTemplate{}).
				Where("kind = ? AND is_default = ?", kind, true).
				UpdateColumn("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&template).Error
	})
	if err != nil {
		logger.ErrorErr("Failed to create policy template", err)
		util.RespondInternalError(c, "Failed to create template")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"template": template})
}

// UpdatePolicyTemplate edits a template
// PUT /api/v1/policy-templates/:id (admin)
func (h *Handlers) UpdatePolicyTemplate(c *gin.Context) {
	var template models.PolicyTemplate
	if err := database.DB.First(&template, "id = ?", c.Param("id")).Error; err != nil {
		util.HandleDBError(c, err, "policy template")
		return
	}

	var req struct {
		Title     *string `json:"title" binding:"omitempty,min=1,max=120"`
		Body      *string `json:"body" binding:"omitempty,min=1"`
		IsDefault *bool   `json:"is_default"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}
	if req.IsDefault != nil {
		updates["is_default"] = *req.IsDefault
	}
	if len(updates) == 0 {
		util.RespondBadRequest(c, "No fields to update")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault != nil && *req.IsDefault {
			if err := tx.Model(&models.PolicyTemplate{}).
				Where("kind = ? AND is_default = ? AND id <> ?", template.Kind, true, template.ID).
				UpdateColumn("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Model(&template).Updates(updates).Error
	})
	if err != nil {
		util.RespondInternalError(c, "Failed to update template")
		return
	}

	c.JSON(http.StatusOK, gin.H{"template": template})
}

// DeletePolicyTemplate removes a template from the catalog. Store policies
// created from it keep their text, only the source link goes stale.
// DELETE /api/v1/policy-templates/:id (admin)
func (h *Handlers) DeletePolicyTemplate(c *gin.Context) {
	result := database.DB.Where("id = ?", c.Param("id")).Delete(&models.PolicyTemplate{})
	if result.Error != nil {
		util.RespondInternalError(c, "Failed to delete template")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "policy template")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "template_deleted"})
}

// GetStorePolicies returns every policy a store has filled in
// GET /api/v1/stores/:id/policies
func (h *Handlers) GetStorePolicies(c *gin.Context) {
	storeID := c.Param("id")

	var store models.Store
	if err := database.DB.Select("id").First(&store, "id = ?", storeID).Error; err != nil {
		util.HandleDBError(c, err, "store")
		return
	}

	var policies []models.StorePolicy
	if err := database.DB.Where("store_id = ?", storeID).Order("kind ASC").Find(&policies).Error; err != nil {
		util.RespondInternalError(c, "Failed to list store policies")
		return
	}

	c.JSON(http.StatusOK, gin.H{"policies": policies})
}

// GetStorePolicy returns one policy slot of a store
// GET /api/v1/stores/:id/policies/:kind
func (h *Handlers) GetStorePolicy(c *gin.Context) {
	kind := models.PolicyKind(c.Param("kind"))
	if !models.ValidPolicyKind(kind) {
		util.RespondValidationError(c, "kind", "Must be one of: shipping, returns, refunds")
		return
	}

	var policy models.StorePolicy
	if err := database.DB.First(&policy, "store_id = ? AND kind = ?", c.Param("id"), kind).Error; err != nil {
		util.HandleDBError(c, err, "store policy")
		return
	}

	c.JSON(http.StatusOK, gin.H{"policy": policy})
}

// PutStorePolicy fills a store's policy slot, either with custom text or
// instantiated from a template. Upserts on (store, kind).
// PUT /api/v1/stores/:id/policies/:kind
func (h *Handlers) PutStorePolicy(c *gin.Context) {
	store, ok := findOwnedStore(c, c.Param("id"))
	if !ok {
		return
	}

	kind := models.PolicyKind(c.Param("kind"))
	if !models.ValidPolicyKind(kind) {
		util.RespondValidationError(c, "kind", "Must be one of: shipping, returns, refunds")
		return
	}

	var req struct {
		Body       string  `json:"body" binding:"max=20000"`
		TemplateID *string `json:"template_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	body := req.Body
	if req.TemplateID != nil {
		var template models.PolicyTemplate
		if err := database.DB.First(&template, "id = ?", *req.TemplateID).Error; err != nil {
			util.RespondValidationError(c, "template_id", "Template not found")
			return
		}
		if template.Kind != kind {
			util.RespondValidationError(c, "template_id", "Template is for a different policy kind")
			return
		}
		if body == "" {
			body = template.Body
		}
	}
	if body == "" {
		util.RespondValidationError(c, "body", "Policy text or a template_id is required")
		return
	}

	var policy models.StorePolicy
	err := database.DB.First(&policy, "store_id = ? AND kind = ?", store.ID, kind).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		policy = models.StorePolicy{
			StoreID:    store.ID,
			Kind:       kind,
			Body:       body,
			TemplateID: req.TemplateID,
		}
		if err := database.DB.Create(&policy).Error; err != nil {
			util.RespondInternalError(c, "Failed to save policy")
			return
		}
	case err != nil:
		util.RespondInternalError(c, "Failed to check policy")
		return
	default:
		updates := map[string]interface{}{
			"body":        body,
			"template_id": req.TemplateID,
		}
		if err := database.DB.Model(&policy).Updates(updates).Error; err != nil {
			util.RespondInternalError(c, "Failed to save policy")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"policy": policy})
}
