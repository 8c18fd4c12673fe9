package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/models"
	"gorm.io/gorm"
)

// OAuthUserInfo represents user info from OAuth providers
type OAuthUserInfo struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	AvatarURL   string     `json:"avatar_url"`
	AccessToken string     `json:"-"`
	TokenExpiry *time.Time `json:"-"`
}

// GoogleUserInfo represents Google OAuth user response
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// HandleGoogleCallback processes Google OAuth callback
func (s *Service) HandleGoogleCallback(code string) (*AuthResponse, error) {
	userInfo, err := s.getGoogleUserInfo(code)
	if err != nil {
		logger.Errorf("Google OAuth: failed to get user info: %v", err)
		return nil, fmt.Errorf("failed to get Google user info: %w", err)
	}

	return s.findOrCreateGoogleUser(userInfo)
}

// findOrCreateGoogleUser implements email-based account unification. The
// Google subject ID lives directly on the user row, so linking is a column
// update rather than a join table.
func (s *Service) findOrCreateGoogleUser(userInfo *OAuthUserInfo) (*AuthResponse, error) {
	// First, check if this Google account is already linked
	var linkedUser models.User
	err := database.DB.Where("google_id = ?", userInfo.ID).First(&linkedUser).Error

	if err == nil {
		// Refresh avatar if Google has one and we don't
		if linkedUser.AvatarURL == "" && userInfo.AvatarURL != "" {
			linkedUser.AvatarURL = userInfo.AvatarURL
			database.DB.Save(&linkedUser)
		}
		now := time.Now()
		linkedUser.LastActiveAt = &now
		database.DB.Save(&linkedUser)
		return s.generateAuthResponse(&linkedUser)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error checking Google link: %w", err)
	}

	// Check if user exists by email (account unification)
	existingUser, err := s.FindUserByEmail(userInfo.Email)
	if err == nil {
		// User exists with this email - link Google to existing account
		return s.linkGoogleToExistingUser(existingUser, userInfo)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("database error finding user: %w", err)
	}

	// No existing user - create new account with Google
	return s.createUserWithGoogle(userInfo)
}

// linkGoogleToExistingUser links a Google subject to an existing account
func (s *Service) linkGoogleToExistingUser(user *models.User, userInfo *OAuthUserInfo) (*AuthResponse, error) {
	user.GoogleID = &userInfo.ID
	user.EmailVerified = true // Google emails are pre-verified

	if user.AvatarURL == "" && userInfo.AvatarURL != "" {
		user.AvatarURL = userInfo.AvatarURL
	}

	if err := database.DB.Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to link Google account: %w", err)
	}

	return s.generateAuthResponse(user)
}

// createUserWithGoogle creates a new account from Google info
func (s *Service) createUserWithGoogle(userInfo *OAuthUserInfo) (*AuthResponse, error) {
	// Generate unique username from the Google display name
	username := generateUsernameFromName(userInfo.Name)

	username, err := s.ensureUniqueUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate unique username: %w", err)
	}

	user := models.User{
		ID:            uuid.New().String(),
		Email:         userInfo.Email,
		Username:      username,
		DisplayName:   userInfo.Name,
		AvatarURL:     userInfo.AvatarURL,
		EmailVerified: true, // OAuth emails are pre-verified
		GoogleID:      &userInfo.ID,
		Role:          models.RoleShopper,
	}

	if err := database.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user with Google: %w", err)
	}

	return s.generateAuthResponse(&user)
}

// getGoogleUserInfo fetches user info from Google OAuth
func (s *Service) getGoogleUserInfo(code string) (*OAuthUserInfo, error) {
	if s.googleConfig == nil {
		return nil, errors.New("google sign-in is not configured")
	}
	token, err := s.googleConfig.Exchange(context.Background(), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	client := s.googleConfig.Client(context.Background(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var googleUser GoogleUserInfo
	err = json.Unmarshal(body, &googleUser)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}

	var tokenExpiry *time.Time
	if !token.Expiry.IsZero() {
		tokenExpiry = &token.Expiry
	}

	return &OAuthUserInfo{
		ID:          googleUser.Sub,
		Email:       googleUser.Email,
		Name:        googleUser.Name,
		AvatarURL:   googleUser.Picture,
		AccessToken: token.AccessToken,
		TokenExpiry: tokenExpiry,
	}, nil
}

// ensureUniqueUsername generates a unique username
func (s *Service) ensureUniqueUsername(baseUsername string) (string, error) {
	username := baseUsername
	counter := 1

	for {
		var existingUser models.User
		err := database.DB.Where("LOWER(username) = LOWER(?)", username).First(&existingUser).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Username is available
			return username, nil
		} else if err != nil {
			return "", fmt.Errorf("database error: %w", err)
		}

		// Username taken, try with counter
		username = fmt.Sprintf("%s%d", baseUsername, counter)
		counter++

		if counter > 999 {
			return "", errors.New("unable to generate unique username")
		}
	}
}

// generateUsernameFromName creates a username from display name
func generateUsernameFromName(name string) string {
	// Clean the name to create a valid username
	username := strings.ToLower(strings.ReplaceAll(name, " ", ""))

	// Remove non-alphanumeric characters
	cleaned := ""
	for _, char := range username {
		if (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') {
			cleaned += string(char)
		}
	}

	if cleaned == "" {
		cleaned = "shopper"
	}

	if len(cleaned) > 20 {
		cleaned = cleaned[:20]
	}

	return cleaned
}
