package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// ACCOUNT WITHDRAWAL TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestWithdrawShopperAccount() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 10)

	// Leave traces everywhere: cart, favorite, review
	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{"product_id": product.ID})
	require.Equal(t, http.StatusOK, w.Code)
	w = suite.doJSON("PUT", "/api/v1/products/"+product.ID+"/favorite", suite.testUser.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", suite.testUser.ID, map[string]interface{}{"rating": 4})
	require.Equal(t, http.StatusCreated, w.Code)

	w = suite.doJSON("POST", "/api/v1/account/withdraw", suite.testUser.ID, map[string]interface{}{
		"reason": "moving on",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "account_withdrawn", response["message"])
	summary := response["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["cart_items_removed"])
	assert.Equal(t, float64(1), summary["favorites_removed"])
	assert.Equal(t, float64(1), summary["reviews_removed"])
	assert.Equal(t, false, summary["store_closed"])

	// No live rows remain for the user
	var cartCount, favCount, reviewCount int64
	suite.db.Model(&models.CartItem{}).Where("user_id = ?", suite.testUser.ID).Count(&cartCount)
	suite.db.Model(&models.Favorite{}).Where("user_id = ?", suite.testUser.ID).Count(&favCount)
	suite.db.Model(&models.Review{}).Where("author_id = ?", suite.testUser.ID).Count(&reviewCount)
	assert.Equal(t, int64(0), cartCount)
	assert.Equal(t, int64(0), favCount)
	assert.Equal(t, int64(0), reviewCount)

	// Rollups on the touched product went back to zero
	var dbProduct models.Product
	require.NoError(t, suite.db.First(&dbProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 0, dbProduct.FavoriteCount)
	assert.Equal(t, 0, dbProduct.RatingCount)
	assert.InDelta(t, 0.0, dbProduct.RatingAvg, 0.001)

	// User row is soft-deleted, so the account cannot authenticate again
	var liveCount int64
	suite.db.Model(&models.User{}).Where("id = ?", suite.testUser.ID).Count(&liveCount)
	assert.Equal(t, int64(0), liveCount)
	var deleted models.User
	require.NoError(t, suite.db.Unscoped().First(&deleted, "id = ?", suite.testUser.ID).Error)
	assert.True(t, deleted.DeletedAt.Valid)

	// Audit row keeps the counts and a hash of the address, not the address
	var audit models.WithdrawnAccount
	require.NoError(t, suite.db.First(&audit, "user_id = ?", suite.testUser.ID).Error)
	assert.Equal(t, 1, audit.CartItemsRemoved)
	assert.Equal(t, "moving on", audit.Reason)

	sum := sha256.Sum256([]byte(strings.ToLower(suite.testUser.Email)))
	assert.Equal(t, hex.EncodeToString(sum[:]), audit.EmailHash)
}

func (suite *HandlersTestSuite) TestWithdrawVendorAccountClosesStore() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	suite.createTestProduct(store.ID, 2000, 10)
	suite.createTestProduct(store.ID, 3000, 5)

	w := suite.doJSON("POST", "/api/v1/account/withdraw", suite.vendor.ID, map[string]interface{}{})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	summary := response["summary"].(map[string]interface{})
	assert.Equal(t, true, summary["store_closed"])
	assert.Equal(t, float64(2), summary["products_removed"])

	// Store and products leave the catalog
	var storeCount, productCount int64
	suite.db.Model(&models.Store{}).Where("id = ?", store.ID).Count(&storeCount)
	suite.db.Model(&models.Product{}).Where("store_id = ?", store.ID).Count(&productCount)
	assert.Equal(t, int64(0), storeCount)
	assert.Equal(t, int64(0), productCount)
}

func (suite *HandlersTestSuite) TestWithdrawRequiresPasswordWhenSet() {
	t := suite.T()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.DefaultCost)
	require.NoError(t, err)
	hashStr := string(hash)
	require.NoError(t, suite.db.Model(suite.testUser).Update("password_hash", &hashStr).Error)

	// Missing password
	w := suite.doJSON("POST", "/api/v1/account/withdraw", suite.testUser.ID, map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "password_required", decodeBody(t, w)["error"])

	// Wrong password
	w = suite.doJSON("POST", "/api/v1/account/withdraw", suite.testUser.ID, map[string]interface{}{
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", decodeBody(t, w)["error"])

	// Correct password goes through
	w = suite.doJSON("POST", "/api/v1/account/withdraw", suite.testUser.ID, map[string]interface{}{
		"password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestWithdrawRequiresTOTPWhenEnabled() {
	t := suite.T()

	w := suite.doJSON("POST", "/api/v1/2fa/setup", suite.testUser.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	secret := decodeBody(t, w)["secret"].(string)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	w = suite.doJSON("POST", "/api/v1/2fa/enable", suite.testUser.ID, map[string]interface{}{"code": code})
	require.Equal(t, http.StatusOK, w.Code)

	// Missing code
	w = suite.doJSON("POST", "/api/v1/account/withdraw", suite.testUser.ID, map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "totp_required", decodeBody(t, w)["error"])

	// Valid code goes through
	code, err = totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	w = suite.doJSON("POST", "/api/v1/account/withdraw", suite.testUser.ID, map[string]interface{}{
		"totp_code": code,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}
