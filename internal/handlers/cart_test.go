package handlers

import (
	"net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/models"
)

// =============================================================================
// CART TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestAddCartItem() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 10)

	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   2,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	item := response["item"].(map[string]interface{})
	assert.Equal(t, float64(2), item["quantity"])
	// Price is snapshotted at add time
	assert.Equal(t, float64(2000), item["price_cents"])
	assert.Equal(t, false, response["clamped"])
}

func (suite *HandlersTestSuite) TestAddCartItemDefaultsToOne() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 10)

	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	item := response["item"].(map[string]interface{})
	assert.Equal(t, float64(1), item["quantity"])
}

func (suite *HandlersTestSuite) TestAddCartItemClampsToStock() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 3)

	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   5,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	item := response["item"].(map[string]interface{})
	assert.Equal(t, float64(3), item["quantity"])
	assert.Equal(t, true, response["clamped"])
}

func (suite *HandlersTestSuite) TestAddCartItemMergesExistingLine() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 3)

	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Second add merges into the same line and clamps at stock
	w = suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   2,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	item := response["item"].(map[string]interface{})
	assert.Equal(t, float64(3), item["quantity"])
	assert.Equal(t, true, response["clamped"])

	var count int64
	suite.db.Model(&models.CartItem{}).Where("user_id = ?", suite.testUser.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func (suite *HandlersTestSuite) TestAddCartItemOutOfStock() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 0)

	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "out_of_stock", response["error"])
}

func (suite *HandlersTestSuite) TestAddCartItemStoreClosed() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 5)
	suite.db.Model(&models.Store{}).Where("id = ?", store.ID).UpdateColumn("is_open", false)

	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "store_closed", response["error"])
}

func (suite *HandlersTestSuite) TestUpdateCartItemQuantity() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 10)

	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.doJSON("PUT", "/api/v1/cart/items/"+product.ID, suite.testUser.ID, map[string]interface{}{
		"quantity": 4,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	item := response["item"].(map[string]interface{})
	assert.Equal(t, float64(4), item["quantity"])
	assert.Equal(t, false, response["clamped"])
}

func (suite *HandlersTestSuite) TestUpdateCartItemZeroRemovesLine() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 10)

	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.doJSON("PUT", "/api/v1/cart/items/"+product.ID, suite.testUser.ID, map[string]interface{}{
		"quantity": 0,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "item_removed", response["message"])

	var count int64
	suite.db.Model(&models.CartItem{}).Where("user_id = ?", suite.testUser.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func (suite *HandlersTestSuite) TestRemoveCartItem() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 10)

	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.doJSON("DELETE", "/api/v1/cart/items/"+product.ID, suite.testUser.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// A second delete finds nothing
	w = suite.doJSON("DELETE", "/api/v1/cart/items/"+product.ID, suite.testUser.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestGetCartFlagsPriceDrift() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 10)

	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Vendor raises the price after the add
	suite.db.Model(product).UpdateColumn("price_cents", 2500)

	w = suite.doJSON("GET", "/api/v1/cart", suite.testUser.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	items := response["items"].([]interface{})
	require.Len(t, items, 1)

	line := items[0].(map[string]interface{})
	assert.Equal(t, true, line["price_changed"])
	assert.Equal(t, false, line["unavailable"])
	assert.Equal(t, float64(2500), line["current_price_cents"])

	// Snapshot stays on the line itself
	item := line["item"].(map[string]interface{})
	assert.Equal(t, float64(2000), item["price_cents"])

	// Totals use the live price
	totals := response["totals"].(map[string]interface{})
	assert.Equal(t, float64(5000), totals["subtotal_cents"])
	assert.Equal(t, float64(2), totals["item_count"])
}

func (suite *HandlersTestSuite) TestGetCartFlagsUnavailableLines() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 10)

	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Store closes; the line stays but drops out of the totals
	suite.db.Model(&models.Store{}).Where("id = ?", store.ID).UpdateColumn("is_open", false)

	w = suite.doJSON("GET", "/api/v1/cart", suite.testUser.ID, nil)
	response := decodeBody(t, w)
	items := response["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0].(map[string]interface{})["unavailable"])

	totals := response["totals"].(map[string]interface{})
	assert.Equal(t, float64(0), totals["subtotal_cents"])
	assert.Equal(t, float64(0), totals["item_count"])
}

func (suite *HandlersTestSuite) TestGetCartDeletedProduct() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 10)

	w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{
		"product_id": product.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, suite.db.Delete(product).Error)

	w = suite.doJSON("GET", "/api/v1/cart", suite.testUser.ID, nil)
	response := decodeBody(t, w)
	items := response["items"].([]interface{})
	require.Len(t, items, 1)

	line := items[0].(map[string]interface{})
	assert.Equal(t, true, line["unavailable"])
	// No live product, so no current price on the line
	_, hasCurrent := line["current_price_cents"]
	assert.False(t, hasCurrent)
}

func (suite *HandlersTestSuite) TestClearCart() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	first := suite.createTestProduct(store.ID, 2000, 10)
	second := suite.createTestProduct(store.ID, 3000, 10)

	for _, id := range []string{first.ID, second.ID} {
		w := suite.doJSON("POST", "/api/v1/cart/items", suite.testUser.ID, map[string]interface{}{"product_id": id})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := suite.doJSON("DELETE", "/api/v1/cart", suite.testUser.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.CartItem{}).Where("user_id = ?", suite.testUser.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}
