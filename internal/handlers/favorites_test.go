package handlers

import (
	"net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/models"
)

// =============================================================================
// FAVORITE TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestFavoriteProduct() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 5)

	w := suite.doJSON("PUT", "/api/v1/products/"+product.ID+"/favorite", suite.testUser.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, true, response["favorited"])
	assert.Equal(t, float64(1), response["favorite_count"])

	var dbProduct models.Product
	require.NoError(t, suite.db.First(&dbProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 1, dbProduct.FavoriteCount)
}

func (suite *HandlersTestSuite) TestFavoriteProductIdempotent() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 5)

	w := suite.doJSON("PUT", "/api/v1/products/"+product.ID+"/favorite", suite.testUser.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Second favorite is a no-op, not an error
	w = suite.doJSON("PUT", "/api/v1/products/"+product.ID+"/favorite", suite.testUser.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, true, response["favorited"])
	assert.Equal(t, float64(1), response["favorite_count"])

	var count int64
	suite.db.Model(&models.Favorite{}).Where("user_id = ?", suite.testUser.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func (suite *HandlersTestSuite) TestUnfavoriteProduct() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 5)

	w := suite.doJSON("PUT", "/api/v1/products/"+product.ID+"/favorite", suite.testUser.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.doJSON("DELETE", "/api/v1/products/"+product.ID+"/favorite", suite.testUser.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, false, response["favorited"])
	assert.Equal(t, float64(0), response["favorite_count"])

	var dbProduct models.Product
	require.NoError(t, suite.db.First(&dbProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 0, dbProduct.FavoriteCount)
}

func (suite *HandlersTestSuite) TestUnfavoriteProductNeverFavorited() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 5)

	w := suite.doJSON("DELETE", "/api/v1/products/"+product.ID+"/favorite", suite.testUser.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, false, response["favorited"])
}

func (suite *HandlersTestSuite) TestListFavorites() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	first := suite.createTestProduct(store.ID, 2000, 5)
	second := suite.createTestProduct(store.ID, 4000, 5)

	for _, id := range []string{first.ID, second.ID} {
		w := suite.doJSON("PUT", "/api/v1/products/"+id+"/favorite", suite.testUser.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := suite.doJSON("GET", "/api/v1/favorites", suite.testUser.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	favorites := response["favorites"].([]interface{})
	require.Len(t, favorites, 2)

	// Newest first, with the product snapshot embedded
	newest := favorites[0].(map[string]interface{})
	embedded := newest["product"].(map[string]interface{})
	assert.Equal(t, second.ID, embedded["id"])

	meta := response["meta"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["total"])
}
