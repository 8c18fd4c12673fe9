package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/models"
)

func (suite *HandlersTestSuite) createSecondShopper() *models.User {
	otherID := fmt.Sprintf("%d", time.Now().UnixNano())
	other := &models.User{
		Email:       fmt.Sprintf("shopper2_%s@test.com", otherID),
		Username:    fmt.Sprintf("shopper2_%s", otherID[:12]),
		DisplayName: "Second Shopper",
		Role:        models.RoleShopper,
	}
	require.NoError(suite.T(), suite.db.Create(other).Error)
	return other
}

// =============================================================================
// REVIEW TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestCreateReviewUpdatesRollups() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2500, 4)

	w := suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", suite.testUser.ID, map[string]interface{}{
		"rating": 5,
		"title":  "Lovely",
		"body":   "Exactly as pictured.",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	response := decodeBody(t, w)
	review := response["review"].(map[string]interface{})
	assert.Equal(t, float64(5), review["rating"])
	author := review["author"].(map[string]interface{})
	assert.Equal(t, suite.testUser.ID, author["id"])

	second := suite.createSecondShopper()
	w = suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", second.ID, map[string]interface{}{
		"rating": 4,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var dbProduct models.Product
	require.NoError(t, suite.db.First(&dbProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 2, dbProduct.RatingCount)
	assert.InDelta(t, 4.5, dbProduct.RatingAvg, 0.001)

	// Store rollup follows the product's reviews
	var dbStore models.Store
	require.NoError(t, suite.db.First(&dbStore, "id = ?", store.ID).Error)
	assert.Equal(t, 2, dbStore.RatingCount)
	assert.InDelta(t, 4.5, dbStore.RatingAvg, 0.001)
}

func (suite *HandlersTestSuite) TestCreateReviewOwnProductForbidden() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2500, 4)

	w := suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", suite.vendor.ID, map[string]interface{}{
		"rating": 5,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "own_product", response["error"])
}

func (suite *HandlersTestSuite) TestCreateReviewOnlyOncePerProduct() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2500, 4)

	w := suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", suite.testUser.ID, map[string]interface{}{
		"rating": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", suite.testUser.ID, map[string]interface{}{
		"rating": 4,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "review_exists", response["error"])
}

func (suite *HandlersTestSuite) TestCreateReviewRatingBounds() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2500, 4)

	w := suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", suite.testUser.ID, map[string]interface{}{
		"rating": 6,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", suite.testUser.ID, map[string]interface{}{
		"rating": 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestListProductReviews() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2500, 4)
	second := suite.createSecondShopper()

	w := suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", suite.testUser.ID, map[string]interface{}{"rating": 5})
	require.Equal(t, http.StatusCreated, w.Code)
	w = suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", second.ID, map[string]interface{}{"rating": 2})
	require.Equal(t, http.StatusCreated, w.Code)

	w = suite.doJSON("GET", "/api/v1/products/"+product.ID+"/reviews", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	reviews := response["reviews"].([]interface{})
	require.Len(t, reviews, 2)
	// Newest first
	first := reviews[0].(map[string]interface{})
	assert.Equal(t, float64(2), first["rating"])

	meta := response["meta"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["total"])
}

func (suite *HandlersTestSuite) TestUpdateReviewRecomputesRating() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2500, 4)

	w := suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", suite.testUser.ID, map[string]interface{}{"rating": 5})
	require.Equal(t, http.StatusCreated, w.Code)
	reviewID := decodeBody(t, w)["review"].(map[string]interface{})["id"].(string)

	w = suite.doJSON("PUT", "/api/v1/reviews/"+reviewID, suite.testUser.ID, map[string]interface{}{
		"rating": 2,
		"body":   "Changed my mind after a week.",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var dbReview models.Review
	require.NoError(t, suite.db.First(&dbReview, "id = ?", reviewID).Error)
	assert.Equal(t, 2, dbReview.Rating)
	assert.True(t, dbReview.IsEdited)
	assert.NotNil(t, dbReview.EditedAt)

	var dbProduct models.Product
	require.NoError(t, suite.db.First(&dbProduct, "id = ?", product.ID).Error)
	assert.InDelta(t, 2.0, dbProduct.RatingAvg, 0.001)

	var dbStore models.Store
	require.NoError(t, suite.db.First(&dbStore, "id = ?", store.ID).Error)
	assert.InDelta(t, 2.0, dbStore.RatingAvg, 0.001)
}

func (suite *HandlersTestSuite) TestUpdateReviewNotAuthor() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2500, 4)

	w := suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", suite.testUser.ID, map[string]interface{}{"rating": 5})
	require.Equal(t, http.StatusCreated, w.Code)
	reviewID := decodeBody(t, w)["review"].(map[string]interface{})["id"].(string)

	second := suite.createSecondShopper()
	w = suite.doJSON("PUT", "/api/v1/reviews/"+reviewID, second.ID, map[string]interface{}{"rating": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "not_review_author", response["error"])
}

func (suite *HandlersTestSuite) TestDeleteReviewRecomputesRating() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2500, 4)
	second := suite.createSecondShopper()

	w := suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", suite.testUser.ID, map[string]interface{}{"rating": 5})
	require.Equal(t, http.StatusCreated, w.Code)
	reviewID := decodeBody(t, w)["review"].(map[string]interface{})["id"].(string)

	w = suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", second.ID, map[string]interface{}{"rating": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	w = suite.doJSON("DELETE", "/api/v1/reviews/"+reviewID, suite.testUser.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var dbProduct models.Product
	require.NoError(t, suite.db.First(&dbProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 1, dbProduct.RatingCount)
	assert.InDelta(t, 1.0, dbProduct.RatingAvg, 0.001)
}

func (suite *HandlersTestSuite) TestDeleteReviewAsAdmin() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2500, 4)

	w := suite.doJSON("POST", "/api/v1/products/"+product.ID+"/reviews", suite.testUser.ID, map[string]interface{}{"rating": 5})
	require.Equal(t, http.StatusCreated, w.Code)
	reviewID := decodeBody(t, w)["review"].(map[string]interface{})["id"].(string)

	admin := suite.createAdminUser()
	w = suite.doJSON("DELETE", "/api/v1/reviews/"+reviewID, admin.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.Review{}).Where("id = ?", reviewID).Count(&count)
	assert.Equal(t, int64(0), count)
}
