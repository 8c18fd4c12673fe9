package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/util"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Setup2FA generates a new TOTP secret for the authenticated user and
// returns the provisioning URL for authenticator apps. The secret stays
// inactive until Enable2FA verifies a code generated from it.
// POST /api/v1/2fa/setup
func (h *Handlers) Setup2FA(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if user.TOTPEnabled {
		c.JSON(http.StatusConflict, gin.H{"error": "totp_already_enabled", "message": "Two-factor authentication is already enabled"})
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Vendora",
		AccountName: user.Email,
		SecretSize:  32,
	})
	if err != nil {
		logger.ErrorErr("Failed to generate TOTP secret", err)
		util.RespondInternalError(c, "Failed to set up two-factor authentication")
		return
	}

	secret := key.Secret()
	if err := database.DB.Model(user).Update("totp_secret", secret).Error; err != nil {
		util.RespondInternalError(c, "Failed to store two-factor secret")
		return
	}

	logger.Log.Info("🔐 2FA setup started", zap.String("user_id", user.ID))

	c.JSON(http.StatusOK, gin.H{
		"secret":      secret,
		"otpauth_url": key.URL(),
		"issuer":      "Vendora",
		"account":     user.Email,
	})
}

// Enable2FA verifies a code against the pending secret and turns
// two-factor on for the account
// POST /api/v1/2fa/enable
func (h *Handlers) Enable2FA(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if user.TOTPEnabled {
		c.JSON(http.StatusConflict, gin.H{"error": "totp_already_enabled", "message": "Two-factor authentication is already enabled"})
		return
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp_not_setup", "message": "Run setup before enabling two-factor authentication"})
		return
	}

	if !totp.Validate(req.Code, *user.TOTPSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_totp_code", "message": "Invalid two-factor code"})
		return
	}

	if err := database.DB.Model(user).Update("totp_enabled", true).Error; err != nil {
		util.RespondInternalError(c, "Failed to enable two-factor authentication")
		return
	}

	logger.Log.Info("✅ 2FA enabled", zap.String("user_id", user.ID))

	c.JSON(http.StatusOK, gin.H{"message": "totp_enabled"})
}

// Disable2FA turns two-factor off. Requires a current TOTP code, plus the
// account password when one is set (OAuth-only accounts have none).
// POST /api/v1/2fa/disable
func (h *Handlers) Disable2FA(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Code     string `json:"code" binding:"required,len=6"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if !user.TOTPEnabled || user.TOTPSecret == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp_not_enabled", "message": "Two-factor authentication is not enabled"})
		return
	}

	if user.PasswordHash != nil {
		if req.Password == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "password_required", "message": "Password required to disable two-factor authentication"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "message": "Invalid password"})
			return
		}
	}

	if !totp.Validate(req.Code, *user.TOTPSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_totp_code", "message": "Invalid two-factor code"})
		return
	}

	updates := map[string]interface{}{
		"totp_enabled": false,
		"totp_secret":  nil,
	}
	if err := database.DB.Model(user).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "Failed to disable two-factor authentication")
		return
	}

	logger.Log.Info("🔓 2FA disabled", zap.String("user_id", user.ID))

	c.JSON(http.StatusOK, gin.H{"message": "totp_disabled"})
}

// Get2FAStatus reports whether two-factor is enabled or mid-setup
// GET /api/v1/2fa/status
func (h *Handlers) Get2FAStatus(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	pending := !user.TOTPEnabled && user.TOTPSecret != nil && *user.TOTPSecret != ""

	c.JSON(http.StatusOK, gin.H{
		"enabled":       user.TOTPEnabled,
		"setup_pending": pending,
	})
}
