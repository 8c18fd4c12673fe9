package auth

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AuthServiceTestSuite contains auth service tests
type AuthServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	authService *Service
}

// SetupSuite initializes test database and auth service
func (suite *AuthServiceTestSuite) SetupSuite() {
	// Build test DSN from environment or use defaults
	host := getEnvOrDefault("POSTGRES_HOST", "localhost")
	port := getEnvOrDefault("POSTGRES_PORT", "5432")
	user := getEnvOrDefault("POSTGRES_USER", "postgres")
	password := getEnvOrDefault("POSTGRES_PASSWORD", "")
	dbname := getEnvOrDefault("POSTGRES_DB", "vendora_test")

	testDSN := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable", host, port, user, dbname)
	if password != "" {
		testDSN = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, password, dbname)
	}

	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet during tests
	})
	if err != nil {
		suite.T().Skipf("Skipping auth tests: database not available (%v)", err)
		return
	}

	// Set global DB for database package
	database.DB = db

	// Create test tables
	err = db.AutoMigrate(
		&models.User{},
		&models.PasswordReset{},
	)
	require.NoError(suite.T(), err)

	suite.db = db

	// Initialize auth service with a test secret; Google sign-in stays off
	suite.authService = NewService([]byte("test_jwt_secret_key"), nil)
}

// TearDownSuite cleans up after tests
func (suite *AuthServiceTestSuite) TearDownSuite() {
	// Clean up test database
	suite.db.Exec("DROP TABLE IF EXISTS users, password_resets CASCADE")

	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

// SetupTest cleans database before each test
func (suite *AuthServiceTestSuite) SetupTest() {
	// Clean tables
	suite.db.Exec("DELETE FROM password_resets")
	suite.db.Exec("DELETE FROM users")
}

// TestRegisterNativeUser tests user registration
func (suite *AuthServiceTestSuite) TestRegisterNativeUser() {
	t := suite.T()

	// Test successful registration
	req := RegisterRequest{
		Email:       "test@shopper.com",
		Username:    "testshopper",
		Password:    "password123",
		DisplayName: "Test Shopper",
	}

	authResp, err := suite.authService.RegisterNativeUser(req)
	require.NoError(t, err)
	require.NotNil(t, authResp)

	// Verify user was created
	assert.NotEmpty(t, authResp.Token)
	assert.Equal(t, req.Email, authResp.User.Email)
	assert.Equal(t, req.Username, authResp.User.Username)
	assert.Equal(t, req.DisplayName, authResp.User.DisplayName)
	assert.NotNil(t, authResp.User.PasswordHash)
	assert.Equal(t, models.RoleShopper, authResp.User.Role)

	// Test duplicate email registration
	_, err = suite.authService.RegisterNativeUser(req)
	assert.Error(t, err)
	assert.Equal(t, ErrUserExists, err)

	// Test duplicate username
	req2 := RegisterRequest{
		Email:       "different@shopper.com",
		Username:    "testshopper", // Same username
		Password:    "password456",
		DisplayName: "Different Shopper",
	}

	_, err = suite.authService.RegisterNativeUser(req2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "username already taken")
}

// TestLoginNativeUser tests user login
func (suite *AuthServiceTestSuite) TestLoginNativeUser() {
	t := suite.T()

	// Create test user first
	registerReq := RegisterRequest{
		Email:       "login@test.com",
		Username:    "logintest",
		Password:    "testpass123",
		DisplayName: "Login Test",
	}

	_, err := suite.authService.RegisterNativeUser(registerReq)
	require.NoError(t, err)

	// Test successful login
	loginReq := LoginRequest{
		Email:    "login@test.com",
		Password: "testpass123",
	}

	authResp, err := suite.authService.LoginNativeUser(loginReq)
	require.NoError(t, err)
	require.NotNil(t, authResp)

	assert.NotEmpty(t, authResp.Token)
	assert.Equal(t, loginReq.Email, authResp.User.Email)
	assert.NotNil(t, authResp.User.LastActiveAt)

	// Test invalid email
	loginReq.Email = "nonexistent@test.com"
	_, err = suite.authService.LoginNativeUser(loginReq)
	assert.Error(t, err)
	assert.Equal(t, ErrUserNotFound, err)

	// Test invalid password
	loginReq.Email = "login@test.com"
	loginReq.Password = "wrongpassword"
	_, err = suite.authService.LoginNativeUser(loginReq)
	assert.Error(t, err)
	assert.Equal(t, ErrInvalidCredentials, err)

	// Test case-insensitive email
	loginReq.Email = "LOGIN@TEST.COM"
	loginReq.Password = "testpass123"
	_, err = suite.authService.LoginNativeUser(loginReq)
	assert.NoError(t, err)
}

// TestJWTTokenValidation tests JWT token generation and validation
func (suite *AuthServiceTestSuite) TestJWTTokenValidation() {
	t := suite.T()

	// Create test user
	user := models.User{
		Email:       "jwt@test.com",
		Username:    "jwttest",
		DisplayName: "JWT Test",
		Role:        models.RoleVendor,
	}

	// Save user to database first
	err := suite.db.Create(&user).Error
	require.NoError(t, err)

	// Generate token
	authResp, err := suite.authService.generateAuthResponse(&user)
	require.NoError(t, err)

	// Validate token
	validatedUser, err := suite.authService.ValidateToken(authResp.Token)
	require.NoError(t, err)

	assert.Equal(t, user.ID, validatedUser.ID)
	assert.Equal(t, user.Email, validatedUser.Email)
	assert.Equal(t, user.Username, validatedUser.Username)
	assert.Equal(t, models.RoleVendor, validatedUser.Role)

	// Test invalid token
	_, err = suite.authService.ValidateToken("invalid.jwt.token")
	assert.Error(t, err)

	// Test with wrong signing key
	wrongService := NewService([]byte("wrong_secret"), nil)
	_, err = wrongService.ValidateToken(authResp.Token)
	assert.Error(t, err)
}

// TestTokenInvalidAfterWithdrawal tests that tokens stop working once the
// user row is soft-deleted
func (suite *AuthServiceTestSuite) TestTokenInvalidAfterWithdrawal() {
	t := suite.T()

	registerReq := RegisterRequest{
		Email:       "withdraw@test.com",
		Username:    "withdrawtest",
		Password:    "testpass123",
		DisplayName: "Withdraw Test",
	}

	authResp, err := suite.authService.RegisterNativeUser(registerReq)
	require.NoError(t, err)

	// Token works before withdrawal
	_, err = suite.authService.ValidateToken(authResp.Token)
	require.NoError(t, err)

	// Soft-delete the user
	err = suite.db.Delete(&models.User{}, "id = ?", authResp.User.ID).Error
	require.NoError(t, err)

	// Token no longer resolves to a user
	_, err = suite.authService.ValidateToken(authResp.Token)
	assert.Error(t, err)
}

// TestAccountUnification tests email-based account linking
func (suite *AuthServiceTestSuite) TestAccountUnification() {
	t := suite.T()

	email := "unify@test.com"

	// Create native account first
	registerReq := RegisterRequest{
		Email:       email,
		Username:    "unifytest",
		Password:    "password123",
		DisplayName: "Unify Test",
	}

	authResp1, err := suite.authService.RegisterNativeUser(registerReq)
	require.NoError(t, err)

	// Simulate Google user info with same email
	oauthInfo := &OAuthUserInfo{
		ID:        "google_123456",
		Email:     email, // Same email!
		Name:      "Unify Test Google",
		AvatarURL: "https://example.com/avatar.jpg",
	}

	// This should link Google to existing account, not create new user
	authResp2, err := suite.authService.findOrCreateGoogleUser(oauthInfo)
	require.NoError(t, err)

	// Should be the same user
	assert.Equal(t, authResp1.User.ID, authResp2.User.ID)
	assert.Equal(t, authResp1.User.Email, authResp2.User.Email)

	// Verify Google ID was linked
	var linkedUser models.User
	err = suite.db.First(&linkedUser, "id = ?", authResp1.User.ID).Error
	require.NoError(t, err)
	require.NotNil(t, linkedUser.GoogleID)
	assert.Equal(t, "google_123456", *linkedUser.GoogleID)

	// Verify user can now login with password (original account still works)
	loginReq := LoginRequest{
		Email:    email,
		Password: "password123",
	}
	_, err = suite.authService.LoginNativeUser(loginReq)
	assert.NoError(t, err)
}

// TestReverseAccountUnification tests OAuth first, then native account
func (suite *AuthServiceTestSuite) TestReverseAccountUnification() {
	t := suite.T()

	email := "reverse@test.com"

	// Create Google account first
	oauthInfo := &OAuthUserInfo{
		ID:        "google_789012",
		Email:     email,
		Name:      "Reverse Test",
		AvatarURL: "https://example.com/avatar.jpg",
	}

	authResp1, err := suite.authService.findOrCreateGoogleUser(oauthInfo)
	require.NoError(t, err)

	// User should have no password initially
	assert.Nil(t, authResp1.User.PasswordHash)

	// Try to register with same email - should add password to OAuth account
	registerReq := RegisterRequest{
		Email:       email,
		Username:    "reversetest",
		Password:    "newpassword123",
		DisplayName: "Reverse Test Updated",
	}

	authResp2, err := suite.authService.RegisterNativeUser(registerReq)
	require.NoError(t, err)

	// Should be the same user with password added
	assert.Equal(t, authResp1.User.ID, authResp2.User.ID)
	assert.NotNil(t, authResp2.User.PasswordHash)

	// User can now login with password
	loginReq := LoginRequest{
		Email:    email,
		Password: "newpassword123",
	}
	_, err = suite.authService.LoginNativeUser(loginReq)
	assert.NoError(t, err)
}

// TestUsernameGeneration tests username generation from OAuth names
func (suite *AuthServiceTestSuite) TestUsernameGeneration() {
	t := suite.T()

	testCases := []struct {
		name     string
		expected string
	}{
		{"John Doe", "johndoe"},
		{"UPPERCASE NAME", "uppercasename"},
		{"Special@Characters!", "specialcharacters"},
		{"", "shopper"},
		{"VeryLongNameThatExceedsTwentyCharacters", "verylongnamethatexce"}, // Truncated to 20
	}

	for _, tc := range testCases {
		result := generateUsernameFromName(tc.name)
		assert.Equal(t, tc.expected, result, "Failed for input: %s", tc.name)
	}
}

// TestConcurrentRegistration tests concurrent user registration
func (suite *AuthServiceTestSuite) TestConcurrentRegistration() {
	t := suite.T()

	const numGoroutines = 10
	results := make(chan error, numGoroutines)

	// Attempt to register multiple users concurrently
	for i := 0; i < numGoroutines; i++ {
		go func(index int) {
			req := RegisterRequest{
				Email:       fmt.Sprintf("concurrent%d@test.com", index),
				Username:    fmt.Sprintf("concurrent%d", index),
				Password:    "password123",
				DisplayName: fmt.Sprintf("Concurrent User %d", index),
			}

			_, err := suite.authService.RegisterNativeUser(req)
			results <- err
		}(i)
	}

	// Check all registrations succeeded
	for i := 0; i < numGoroutines; i++ {
		err := <-results
		assert.NoError(t, err, "Concurrent registration %d failed", i)
	}

	// Verify all users were created
	var userCount int64
	suite.db.Model(&models.User{}).Where("email LIKE 'concurrent%@test.com'").Count(&userCount)
	assert.Equal(t, int64(numGoroutines), userCount)
}

// Run the test suite
func TestAuthServiceSuite(t *testing.T) {
	// Skip if no test database available
	if os.Getenv("SKIP_DB_TESTS") == "true" {
		t.Skip("Skipping database tests")
	}

	suite.Run(t, new(AuthServiceTestSuite))
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
