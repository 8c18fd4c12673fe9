package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vendora/backend/internal/autosave"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/designs"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/metrics"
	"github.com/vendora/backend/internal/models"
	"github.com/vendora/backend/internal/realtime"
	"github.com/vendora/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxPreviewBytes = 5 << 20 // 5MB PNG cap for studio previews

// GetDesign returns a store's page layout. The owning vendor sees the
// draft alongside the published layout; everyone else sees published only.
// GET /api/v1/stores/:id/design
func (h *Handlers) GetDesign(c *gin.Context) {
	storeID := c.Param("id")

	var store models.Store
	if err := database.DB.First(&store, "id = ?", storeID).Error; err != nil {
		util.HandleDBError(c, err, "store")
		return
	}

	isOwner := false
	if viewer, ok := c.Get("user"); ok {
		if u, ok := viewer.(*models.User); ok {
			isOwner = u.ID == store.VendorID || u.Role == models.RoleAdmin
		}
	}

	var design models.StoreDesign
	err := database.DB.First(&design, "store_id = ?", storeID).Error
	if err == gorm.ErrRecordNotFound {
		if !isOwner {
			util.RespondNotFound(c, "design")
			return
		}
		design = models.StoreDesign{StoreID: storeID}
		if err := database.DB.Create(&design).Error; err != nil {
			util.RespondInternalError(c, "Failed to create design")
			return
		}
	} else if err != nil {
		util.RespondInternalError(c, "Failed to load design")
		return
	}

	if !isOwner {
		if design.PublishedAt == nil {
			util.RespondNotFound(c, "design")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"design": gin.H{
				"store_id":     design.StoreID,
				"blocks":       design.PublishedBlocks,
				"published_at": design.PublishedAt,
				"preview_url":  design.PreviewURL,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"design": design})
}

// OpenDesignSession starts an editing session with a chosen save mode.
// The session tracks the design version it opened at; every later write
// is checked against the live row before anything is overwritten.
// POST /api/v1/stores/:id/design/sessions
func (h *Handlers) OpenDesignSession(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if h.autosave == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "autosave_unavailable", "message": "Design sessions are not configured"})
		return
	}

	design, _, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		SaveMode string `json:"save_mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if req.SaveMode == "" {
		req.SaveMode = string(autosave.StrategyDebounce)
	}

	strategy := autosave.Strategy(req.SaveMode)
	if !autosave.ValidStrategy(strategy) {
		util.RespondValidationError(c, "save_mode", "Must be one of: immediate, debounce, interval, manual")
		return
	}

	session, err := h.autosave.Open(design.ID, design.StoreID, user.ID, design.Version, autosave.Config{
		Strategy: strategy,
	})
	if err != nil {
		logger.ErrorErr("Failed to open design session", err)
		util.RespondInternalError(c, "Failed to open design session")
		return
	}

	logger.Log.Info("🎨 Design session opened",
		zap.String("session_id", session.ID),
		zap.String("design_id", design.ID),
		zap.String("save_mode", string(strategy)))

	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"design_id":  design.ID,
		"store_id":   design.StoreID,
		"save_mode":  string(strategy),
		"version":    design.Version,
		"blocks":     design.Blocks,
	})
}

// UpdateDesign queues a full draft replacement through the session's save
// strategy. Immediate mode saves straight away; debounce and interval
// modes pick the change up on their own schedule and report the outcome
// over the realtime channel.
// PUT /api/v1/stores/:id/design
func (h *Handlers) UpdateDesign(c *gin.Context) {
	design, _, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		SessionID string           `json:"session_id" binding:"required"`
		Blocks    models.BlockList `json:"blocks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	session, ok2 := h.getDesignSession(c, req.SessionID, design.ID)
	if !ok2 {
		return
	}

	blocks, ok2 := h.prepareBlocks(c, req.Blocks)
	if !ok2 {
		return
	}

	if err := session.Queue(blocks); err != nil {
		c.JSON(http.StatusGone, gin.H{"error": "session_closed", "message": "This editing session has ended"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"queued":    true,
		"save_mode": string(session.Strategy()),
		"dirty":     session.Dirty(),
		"version":   session.Version(),
	})
}

// SaveDesignNow forces an immediate save of the session's pending draft
// POST /api/v1/stores/:id/design/save
func (h *Handlers) SaveDesignNow(c *gin.Context) {
	design, _, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	session, ok2 := h.getDesignSession(c, req.SessionID, design.ID)
	if !ok2 {
		return
	}

	result, err := session.SaveNow(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusGone, gin.H{"error": "session_closed", "message": "This editing session has ended"})
		return
	}

	h.respondSaveResult(c, result)
}

// RebaseDesignSession advances a session onto the current row version
// after the editor has reconciled a reported conflict
// POST /api/v1/stores/:id/design/sessions/:session_id/rebase
func (h *Handlers) RebaseDesignSession(c *gin.Context) {
	design, _, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	session, ok2 := h.getDesignSession(c, c.Param("session_id"), design.ID)
	if !ok2 {
		return
	}

	// Re-read the live row so the rebase lands on what is actually there
	var current models.StoreDesign
	if err := database.DB.First(&current, "id = ?", design.ID).Error; err != nil {
		util.RespondInternalError(c, "Failed to load design")
		return
	}

	session.Rebase(current.Version)

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"version":    current.Version,
		"blocks":     current.Blocks,
	})
}

// CloseDesignSession ends a session, flushing any dirty draft first
// DELETE /api/v1/stores/:id/design/sessions/:session_id
func (h *Handlers) CloseDesignSession(c *gin.Context) {
	design, _, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	if h.autosave == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "autosave_unavailable", "message": "Design sessions are not configured"})
		return
	}

	sessionID := c.Param("session_id")
	if session, found := h.autosave.Get(sessionID); !found || session.DesignID != design.ID {
		util.RespondNotFound(c, "design session")
		return
	}

	result, err := h.autosave.CloseSession(c.Request.Context(), sessionID)
	if err != nil {
		util.RespondNotFound(c, "design session")
		return
	}

	resp := gin.H{"closed": true}
	if result != nil {
		resp["outcome"] = result.Outcome
		resp["version"] = result.Version
		if result.Conflict != nil {
			resp["conflict"] = result.Conflict
		}
	}
	c.JSON(http.StatusOK, resp)
}

// AppendBlock adds one block to the end of the draft outside any session.
// Takes the caller's last seen version and refuses to overwrite a draft
// that moved on.
// POST /api/v1/stores/:id/design/blocks
func (h *Handlers) AppendBlock(c *gin.Context) {
	design, _, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		Version  int64              `json:"version"`
		Kind     models.BlockKind   `json:"kind" binding:"required"`
		Config   models.BlockConfig `json:"config"`
		Position *int               `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	position := len(design.Blocks)
	if req.Position != nil && *req.Position >= 0 && *req.Position < position {
		position = *req.Position
	}

	blocks := make(models.BlockList, len(design.Blocks), len(design.Blocks)+1)
	copy(blocks, design.Blocks)
	blocks = append(blocks, models.DesignBlock{
		Kind:     req.Kind,
		Position: position,
		Config:   req.Config,
	})

	// Shift later blocks down when inserting mid-layout
	if req.Position != nil {
		for i := range blocks[:len(blocks)-1] {
			if blocks[i].Position >= position {
				blocks[i].Position++
			}
		}
	}

	prepared, ok2 := h.prepareBlocks(c, blocks)
	if !ok2 {
		return
	}

	if !h.saveDraftGuarded(c, design, prepared, req.Version) {
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"blocks":  design.Blocks,
		"version": design.Version,
	})
}

// UpdateBlock edits one block's config or position in place
// PUT /api/v1/stores/:id/design/blocks/:block_id
func (h *Handlers) UpdateBlock(c *gin.Context) {
	design, _, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		Version  int64               `json:"version"`
		Config   *models.BlockConfig `json:"config"`
		Position *int                `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	blockID := c.Param("block_id")
	blocks := make(models.BlockList, len(design.Blocks))
	copy(blocks, design.Blocks)

	found := false
	for i := range blocks {
		if blocks[i].ID != blockID {
			continue
		}
		found = true
		if req.Config != nil {
			blocks[i].Config = *req.Config
		}
		if req.Position != nil {
			blocks[i].Position = *req.Position
		}
		break
	}
	if !found {
		util.RespondNotFound(c, "block")
		return
	}

	prepared, ok2 := h.prepareBlocks(c, blocks)
	if !ok2 {
		return
	}

	if !h.saveDraftGuarded(c, design, prepared, req.Version) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"blocks":  design.Blocks,
		"version": design.Version,
	})
}

// DeleteBlock removes one block; remaining positions close ranks
// DELETE /api/v1/stores/:id/design/blocks/:block_id
func (h *Handlers) DeleteBlock(c *gin.Context) {
	design, _, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	version := util.ParseInt64(c.Query("version"), design.Version)
	blockID := c.Param("block_id")

	blocks := make(models.BlockList, 0, len(design.Blocks))
	found := false
	for _, block := range design.Blocks {
		if block.ID == blockID {
			found = true
			continue
		}
		blocks = append(blocks, block)
	}
	if !found {
		util.RespondNotFound(c, "block")
		return
	}

	blocks = designs.Normalize(blocks)

	if !h.saveDraftGuarded(c, design, blocks, version) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"blocks":  design.Blocks,
		"version": design.Version,
	})
}

// ReorderBlocks applies an explicit block order. The list must name every
// block exactly once or the layout stays untouched.
// POST /api/v1/stores/:id/design/blocks/reorder
func (h *Handlers) ReorderBlocks(c *gin.Context) {
	design, _, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	var req struct {
		Version  int64    `json:"version"`
		BlockIDs []string `json:"block_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	reordered, err := designs.Reorder(design.Blocks, req.BlockIDs)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_block_order", "message": err.Error()})
		return
	}

	if !h.saveDraftGuarded(c, design, reordered, req.Version) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"blocks":  design.Blocks,
		"version": design.Version,
	})
}

// PublishDesign copies the draft to the live layout shoppers see
// POST /api/v1/stores/:id/design/publish
func (h *Handlers) PublishDesign(c *gin.Context) {
	design, store, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	if err := designs.Validate(design.Blocks); err != nil {
		metrics.App().DesignPublishesTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_blocks", "message": err.Error()})
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"published_blocks": design.Blocks,
		"published_at":     &now,
	}
	if err := database.DB.Model(design).Updates(updates).Error; err != nil {
		metrics.App().DesignPublishesTotal.WithLabelValues("error").Inc()
		logger.ErrorErr("Failed to publish design", err)
		util.RespondInternalError(c, "Failed to publish design")
		return
	}

	metrics.App().DesignPublishesTotal.WithLabelValues("success").Inc()

	logger.Log.Info("🚀 Design published",
		zap.String("design_id", design.ID),
		zap.String("store_id", store.ID),
		zap.Int64("version", design.Version),
		zap.Int("blocks", len(design.Blocks)))

	if h.realtime != nil {
		h.realtime.NotifyDesignPublished(&realtime.DesignPublishedPayload{
			DesignID:    design.ID,
			StoreID:     store.ID,
			Version:     design.Version,
			PreviewURL:  design.PreviewURL,
			PublishedAt: now.UnixMilli(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"design":       design,
		"published_at": now,
	})
}

// RevertDesign discards the draft and restores the published layout
// POST /api/v1/stores/:id/design/revert
func (h *Handlers) RevertDesign(c *gin.Context) {
	design, _, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	if design.PublishedAt == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "never_published", "message": "This design has never been published"})
		return
	}

	var req struct {
		Version int64 `json:"version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if !h.saveDraftGuarded(c, design, design.PublishedBlocks, req.Version) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"blocks":  design.Blocks,
		"version": design.Version,
	})
}

// UploadDesignPreview stores the studio-rendered PNG snapshot of the draft
// POST /api/v1/stores/:id/design/preview
func (h *Handlers) UploadDesignPreview(c *gin.Context) {
	design, store, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	if h.snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "previews_unavailable", "message": "Preview uploads are not configured"})
		return
	}

	file, header, err := c.Request.FormFile("preview")
	if err != nil {
		util.RespondBadRequest(c, "Preview file required in 'preview' field")
		return
	}
	defer file.Close()

	if header.Size > maxPreviewBytes {
		util.RespondValidationError(c, "preview", "Preview must be 5MB or smaller")
		return
	}

	pngData, err := io.ReadAll(io.LimitReader(file, maxPreviewBytes+1))
	if err != nil || len(pngData) > maxPreviewBytes {
		util.RespondBadRequest(c, "Failed to read preview file")
		return
	}

	oldURL := design.PreviewURL
	previewURL, err := h.snapshots.UploadPreview(pngData, store.ID, design.ID)
	if err != nil {
		logger.ErrorErr("Failed to upload design preview", err)
		util.RespondInternalError(c, "Failed to upload preview")
		return
	}

	if err := database.DB.Model(design).Update("preview_url", previewURL).Error; err != nil {
		util.RespondInternalError(c, "Failed to save preview URL")
		return
	}

	if oldURL != "" && oldURL != previewURL {
		go func() {
			if err := h.snapshots.DeletePreview(oldURL); err != nil {
				logger.WarnErr("Failed to delete old design preview", err)
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{"preview_url": previewURL})
}

// UploadDesignAsset stores an image for use in banner and image blocks
// POST /api/v1/stores/:id/design/assets
func (h *Handlers) UploadDesignAsset(c *gin.Context) {
	_, store, ok := h.findOwnedDesign(c, c.Param("id"))
	if !ok {
		return
	}

	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads_unavailable", "message": "Image uploads are not configured"})
		return
	}

	file, header, err := c.Request.FormFile("asset")
	if err != nil {
		util.RespondBadRequest(c, "Asset file required in 'asset' field")
		return
	}
	defer file.Close()

	if !util.IsValidImageFile(header.Filename) {
		util.RespondValidationError(c, "asset", "File must be a jpg, png, gif, or webp image")
		return
	}

	result, err := h.uploader.UploadDesignAsset(c.Request.Context(), file, header, store.ID)
	if err != nil {
		logger.ErrorErr("Failed to upload design asset", err)
		util.RespondInternalError(c, "Failed to upload asset")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url":  result.URL,
		"size": result.Size,
	})
}

// findOwnedDesign resolves the design row of an owned store, creating the
// row on first access. Responds and returns false on failure.
func (h *Handlers) findOwnedDesign(c *gin.Context, storeID string) (*models.StoreDesign, *models.Store, bool) {
	store, ok := findOwnedStore(c, storeID)
	if !ok {
		return nil, nil, false
	}

	var design models.StoreDesign
	err := database.DB.First(&design, "store_id = ?", store.ID).Error
	if err == gorm.ErrRecordNotFound {
		design = models.StoreDesign{StoreID: store.ID}
		if err := database.DB.Create(&design).Error; err != nil {
			util.RespondInternalError(c, "Failed to create design")
			return nil, nil, false
		}
	} else if err != nil {
		util.RespondInternalError(c, "Failed to load design")
		return nil, nil, false
	}

	return &design, store, true
}

// getDesignSession resolves a session ID and pins it to the design the
// route addresses. Responds and returns false on failure.
func (h *Handlers) getDesignSession(c *gin.Context, sessionID, designID string) (*autosave.Session, bool) {
	if h.autosave == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "autosave_unavailable", "message": "Design sessions are not configured"})
		return nil, false
	}

	session, found := h.autosave.Get(sessionID)
	if !found || session.DesignID != designID {
		util.RespondNotFound(c, "design session")
		return nil, false
	}
	return session, true
}

// prepareBlocks runs the block pipeline a draft write goes through:
// assign IDs, normalize positions, validate configs. Responds 422 with
// the per-field breakdown and returns false when validation fails.
func (h *Handlers) prepareBlocks(c *gin.Context, blocks models.BlockList) (models.BlockList, bool) {
	blocks = designs.EnsureIDs(blocks)
	blocks = designs.Normalize(blocks)

	if err := designs.Validate(blocks); err != nil {
		if verrs, ok := err.(designs.ValidationErrors); ok {
			for _, ve := range verrs {
				metrics.App().ValidationFailures.WithLabelValues(ve.Field, "invalid_value").Inc()
			}
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "invalid_blocks",
				"message": "One or more blocks failed validation",
				"details": verrs,
			})
			return nil, false
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_blocks", "message": err.Error()})
		return nil, false
	}

	return blocks, true
}

// saveDraftGuarded writes the draft only if the row still carries the
// version the caller saw. On a lost race it answers 409 with the
// field-level diff against the live row and writes nothing.
func (h *Handlers) saveDraftGuarded(c *gin.Context, design *models.StoreDesign, blocks models.BlockList, baseVersion int64) bool {
	result := database.DB.Model(&models.StoreDesign{}).
		Where("id = ? AND version = ?", design.ID, baseVersion).
		Updates(map[string]interface{}{
			"blocks":  blocks,
			"version": baseVersion + 1,
		})
	if result.Error != nil {
		logger.ErrorErr("Failed to save design draft", result.Error)
		util.RespondInternalError(c, "Failed to save design")
		return false
	}

	if result.RowsAffected == 0 {
		var remote models.StoreDesign
		if err := database.DB.First(&remote, "id = ?", design.ID).Error; err != nil {
			util.RespondInternalError(c, "Failed to load design")
			return false
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":          "stale_version",
			"message":        "design was modified by another session",
			"local_version":  baseVersion,
			"remote_version": remote.Version,
			"changes":        designs.Diff(blocks, remote.Blocks),
		})
		return false
	}

	design.Blocks = blocks
	design.Version = baseVersion + 1
	return true
}

// respondSaveResult maps an autosave outcome onto an HTTP response
func (h *Handlers) respondSaveResult(c *gin.Context, result *autosave.SaveResult) {
	switch result.Outcome {
	case autosave.OutcomeConflict:
		c.JSON(http.StatusConflict, gin.H{
			"error":          "stale_version",
			"message":        "design was modified by another session",
			"local_version":  result.Conflict.LocalVersion,
			"remote_version": result.Conflict.RemoteVersion,
			"changes":        result.Conflict.Changes,
		})
	case autosave.OutcomeFailed:
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    "save_failed",
			"message":  "The draft could not be saved; it stays pending for retry",
			"attempts": result.Attempts,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"outcome":  result.Outcome,
			"version":  result.Version,
			"saved_at": result.SavedAt,
		})
	}
}
