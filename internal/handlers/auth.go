package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/vendora/backend/internal/auth"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/util"
)

const oauthStateCookie = "vendora_oauth_state"

// Register creates a new shopper account with email and password
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.RegisterNativeUser(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "email_exists", "message": "An account with this email already exists"})
		case errors.Is(err, auth.ErrUsernameExists):
			c.JSON(http.StatusConflict, gin.H{"error": "username_taken", "message": "This username is already taken"})
		default:
			logger.ErrorErr("Failed to register user", err)
			util.RespondInternalError(c, "Failed to create account")
		}
		return
	}

	if h.email != nil {
		user := resp.User
		go func() {
			if err := h.email.SendWelcomeEmail(c.Copy().Request.Context(), user.Email, user.DisplayName); err != nil {
				logger.WarnErr("Failed to send welcome email", err)
			}
		}()
	}

	c.JSON(http.StatusCreated, resp)
}

// Login authenticates with email/password, plus a TOTP code when the
// account has two-factor enabled
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		TOTPCode string `json:"totp_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.LoginNativeUser(auth.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountWithdrawn):
			c.JSON(http.StatusForbidden, gin.H{"error": "account_withdrawn", "message": "This account has been closed"})
		case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "message": "Invalid email or password"})
		default:
			logger.ErrorErr("Failed to log in user", err)
			util.RespondInternalError(c, "Login failed")
		}
		return
	}

	// Two-factor challenge happens after the password check so we never
	// reveal whether an email has 2FA before credentials are proven.
	if resp.User.TOTPEnabled {
		if resp.User.TOTPSecret == nil {
			util.RespondInternalError(c, "Two-factor configuration is invalid")
			return
		}
		if req.TOTPCode == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "totp_required", "message": "Two-factor code required"})
			return
		}
		if !totp.Validate(req.TOTPCode, *resp.User.TOTPSecret) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_totp_code", "message": "Invalid two-factor code"})
			return
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetMe returns the authenticated user's profile
// GET /api/v1/me
func (h *Handlers) GetMe(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateMe updates the authenticated user's display profile
// PUT /api/v1/me
func (h *Handlers) UpdateMe(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=50"`
		Bio         *string `json:"bio" binding:"omitempty,max=500"`
		AvatarURL   *string `json:"avatar_url" binding:"omitempty,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if len(updates) == 0 {
		util.RespondBadRequest(c, "No fields to update")
		return
	}

	if err := applyUserUpdates(user, updates); err != nil {
		util.RespondInternalError(c, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GoogleLogin starts the Google OAuth flow
// GET /api/v1/auth/google
func (h *Handlers) GoogleLogin(c *gin.Context) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		util.RespondInternalError(c, "Failed to start OAuth flow")
		return
	}
	state := hex.EncodeToString(stateBytes)

	authURL := h.authService.GetGoogleOAuthURL(state)
	if authURL == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "oauth_disabled", "message": "Google sign-in is not configured"})
		return
	}

	// 10 minute window to complete the consent screen
	c.SetCookie(oauthStateCookie, state, 600, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"auth_url": authURL,
	})
}

// GoogleCallback completes the Google OAuth flow and issues a JWT
// GET /api/v1/auth/google/callback
func (h *Handlers) GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	expectedState, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != expectedState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_oauth_state", "message": "OAuth state mismatch"})
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_code", "message": "Authorization code required"})
		return
	}

	resp, err := h.authService.HandleGoogleCallback(code)
	if err != nil {
		if errors.Is(err, auth.ErrAccountWithdrawn) {
			c.JSON(http.StatusForbidden, gin.H{"error": "account_withdrawn", "message": "This account has been closed"})
			return
		}
		logger.ErrorErr("Google OAuth callback failed", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "oauth_failed", "message": "Google sign-in failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RequestPasswordReset issues a reset token and emails it to the account.
// Always answers 200 so the endpoint cannot be used to probe for emails.
// POST /api/v1/auth/password-reset/request
func (h *Handlers) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	reset, err := h.authService.RequestPasswordReset(req.Email)
	if err != nil {
		logger.WarnErr("Password reset request failed", err)
	}

	if err == nil && reset != nil && h.email != nil {
		token := reset.Token
		emailAddr := req.Email
		go func() {
			if err := h.email.SendPasswordResetEmail(c.Copy().Request.Context(), emailAddr, token); err != nil {
				logger.WarnErr("Failed to send password reset email", err)
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If an account exists for that email, a reset link has been sent",
	})
}

// ResetPassword consumes a reset token and sets a new password
// POST /api/v1/auth/password-reset/confirm
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.authService.ResetPassword(req.Token, req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_reset_token", "message": "Reset token is invalid or expired"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password_updated"})
}
