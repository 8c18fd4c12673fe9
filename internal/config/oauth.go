package config

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuthConfig holds OAuth provider configurations
type OAuthConfig struct {
	GoogleConfig *oauth2.Config
}

// LoadOAuthConfig loads OAuth configuration from environment variables
// REQUIRED environment variables:
// - OAUTH_REDIRECT_URL: Base URL for OAuth callbacks (e.g., https://api.example.com)
// - GOOGLE_CLIENT_ID: Google OAuth client ID
// - GOOGLE_CLIENT_SECRET: Google OAuth client secret
func LoadOAuthConfig() (*OAuthConfig, error) {
	// These must be set - fail fast if missing
	redirectURL := os.Getenv("OAUTH_REDIRECT_URL")
	if redirectURL == "" {
		return nil, fmt.Errorf("OAUTH_REDIRECT_URL environment variable not set - this is REQUIRED for OAuth to work")
	}

	googleClientID := os.Getenv("GOOGLE_CLIENT_ID")
	if googleClientID == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID environment variable not set")
	}

	googleClientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if googleClientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_SECRET environment variable not set")
	}

	googleCallbackURL := redirectURL + "/api/v1/auth/google/callback"

	return &OAuthConfig{
		GoogleConfig: &oauth2.Config{
			ClientID:     googleClientID,
			ClientSecret: googleClientSecret,
			RedirectURL:  googleCallbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
	}, nil
}
