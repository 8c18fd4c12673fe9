package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/models"
)

// =============================================================================
// PRODUCT CRUD TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestCreateProduct() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)

	w := suite.doJSON("POST", "/api/v1/stores/"+store.ID+"/products", suite.vendor.ID, map[string]interface{}{
		"name":        "Walnut Desk Organizer",
		"description": "Handmade, oiled finish",
		"price_cents": 4900,
		"stock":       12,
		"category":    "Office",
		"tags":        []string{"Walnut", "HANDMADE"},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	response := decodeBody(t, w)
	product := response["product"].(map[string]interface{})
	assert.Equal(t, "Walnut Desk Organizer", product["name"])
	assert.Equal(t, float64(4900), product["price_cents"])
	assert.Equal(t, "usd", product["currency"])
	assert.Equal(t, true, product["is_available"])

	// Tags come back normalized to lowercase
	tags := product["tags"].([]interface{})
	assert.ElementsMatch(t, []interface{}{"walnut", "handmade"}, tags)

	// The store's cached product count follows the write
	var dbStore models.Store
	require.NoError(t, suite.db.First(&dbStore, "id = ?", store.ID).Error)
	assert.Equal(t, 1, dbStore.ProductCount)
}

func (suite *HandlersTestSuite) TestCreateProductZeroStockStartsHidden() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)

	w := suite.doJSON("POST", "/api/v1/stores/"+store.ID+"/products", suite.vendor.ID, map[string]interface{}{
		"name":        "Preorder Lamp",
		"price_cents": 9900,
		"stock":       0,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	response := decodeBody(t, w)
	product := response["product"].(map[string]interface{})
	assert.Equal(t, false, product["is_available"])
}

func (suite *HandlersTestSuite) TestCreateProductNotOwner() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)

	w := suite.doJSON("POST", "/api/v1/stores/"+store.ID+"/products", suite.testUser.ID, map[string]interface{}{
		"name":        "Sneaky Listing",
		"price_cents": 100,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "not_store_owner", response["error"])
}

func (suite *HandlersTestSuite) TestCreateProductRequiresPrice() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)

	w := suite.doJSON("POST", "/api/v1/stores/"+store.ID+"/products", suite.vendor.ID, map[string]interface{}{
		"name": "Free Thing",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// CATALOG LISTING TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestListProductsFilters() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	cheap := suite.createTestProduct(store.ID, 500, 10)
	suite.db.Model(cheap).Updates(map[string]interface{}{"category": "kitchen", "name": "Ceramic Mug"})
	pricey := suite.createTestProduct(store.ID, 25000, 2)
	suite.db.Model(pricey).Updates(map[string]interface{}{"category": "furniture", "name": "Oak Stool"})

	// No filters returns everything
	w := suite.doJSON("GET", "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Len(t, response["products"], 2)

	// Category filter is case-insensitive
	w = suite.doJSON("GET", "/api/v1/products?category=Kitchen", "", nil)
	response = decodeBody(t, w)
	products := response["products"].([]interface{})
	require.Len(t, products, 1)
	assert.Equal(t, cheap.ID, products[0].(map[string]interface{})["id"])

	// Price window
	w = suite.doJSON("GET", "/api/v1/products?price_min=1000&price_max=30000", "", nil)
	response = decodeBody(t, w)
	products = response["products"].([]interface{})
	require.Len(t, products, 1)
	assert.Equal(t, pricey.ID, products[0].(map[string]interface{})["id"])

	// Text search hits the name
	w = suite.doJSON("GET", "/api/v1/products?q=mug", "", nil)
	response = decodeBody(t, w)
	products = response["products"].([]interface{})
	require.Len(t, products, 1)
	assert.Equal(t, cheap.ID, products[0].(map[string]interface{})["id"])

	// Cheapest first
	w = suite.doJSON("GET", "/api/v1/products?sort=price_asc", "", nil)
	response = decodeBody(t, w)
	products = response["products"].([]interface{})
	require.Len(t, products, 2)
	assert.Equal(t, cheap.ID, products[0].(map[string]interface{})["id"])
}

func (suite *HandlersTestSuite) TestListProductsHidesClosedStores() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 1000, 5)
	suite.db.Model(&models.Store{}).Where("id = ?", store.ID).UpdateColumn("is_open", false)

	// Default listing still carries the product
	w := suite.doJSON("GET", "/api/v1/products", "", nil)
	response := decodeBody(t, w)
	products := response["products"].([]interface{})
	require.Len(t, products, 1)
	assert.Equal(t, product.ID, products[0].(map[string]interface{})["id"])

	// The storefront passes open_stores=true and loses it
	w = suite.doJSON("GET", "/api/v1/products?open_stores=true", "", nil)
	response = decodeBody(t, w)
	assert.Len(t, response["products"], 0)
}

func (suite *HandlersTestSuite) TestGetProductVisibility() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 2000, 0)
	suite.db.Model(product).UpdateColumn("is_available", false)

	// Hidden from shoppers and anonymous visitors
	w := suite.doJSON("GET", "/api/v1/products/"+product.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = suite.doJSON("GET", "/api/v1/products/"+product.ID, suite.testUser.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The owning vendor still sees it
	w = suite.doJSON("GET", "/api/v1/products/"+product.ID, suite.vendor.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, product.ID, response["product"].(map[string]interface{})["id"])
}

// =============================================================================
// PRODUCT UPDATE TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestUpdateProduct() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 3000, 8)

	w := suite.doJSON("PUT", "/api/v1/products/"+product.ID, suite.vendor.ID, map[string]interface{}{
		"name":        "Refreshed Name",
		"price_cents": 3500,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var dbProduct models.Product
	require.NoError(t, suite.db.First(&dbProduct, "id = ?", product.ID).Error)
	assert.Equal(t, "Refreshed Name", dbProduct.Name)
	assert.Equal(t, int64(3500), dbProduct.PriceCents)
}

func (suite *HandlersTestSuite) TestUpdateProductCannotRelistOutOfStock() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 3000, 0)
	suite.db.Model(product).UpdateColumn("is_available", false)

	w := suite.doJSON("PUT", "/api/v1/products/"+product.ID, suite.vendor.ID, map[string]interface{}{
		"is_available": true,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestAdjustStockZeroHidesProduct() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 3000, 8)

	w := suite.doJSON("PUT", "/api/v1/products/"+product.ID+"/stock", suite.vendor.ID, map[string]interface{}{
		"stock": 0,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var dbProduct models.Product
	require.NoError(t, suite.db.First(&dbProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 0, dbProduct.Stock)
	assert.False(t, dbProduct.IsAvailable)

	// Restocking alone does not relist; the vendor flips availability explicitly
	w = suite.doJSON("PUT", "/api/v1/products/"+product.ID+"/stock", suite.vendor.ID, map[string]interface{}{
		"stock": 5,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, suite.db.First(&dbProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 5, dbProduct.Stock)
	assert.False(t, dbProduct.IsAvailable)

	w = suite.doJSON("PUT", "/api/v1/products/"+product.ID, suite.vendor.ID, map[string]interface{}{
		"is_available": true,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, suite.db.First(&dbProduct, "id = ?", product.ID).Error)
	assert.True(t, dbProduct.IsAvailable)
}

func (suite *HandlersTestSuite) TestDeleteProduct() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 3000, 8)

	w := suite.doJSON("DELETE", "/api/v1/products/"+product.ID, suite.vendor.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "product_deleted", response["message"])

	var count int64
	suite.db.Model(&models.Product{}).Where("id = ?", product.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	var dbStore models.Store
	require.NoError(t, suite.db.First(&dbStore, "id = ?", store.ID).Error)
	assert.Equal(t, 0, dbStore.ProductCount)
}

// =============================================================================
// PRODUCT IMAGE TESTS
// =============================================================================

func (suite *HandlersTestSuite) createTestImages(productID string, n int) []models.ProductImage {
	images := make([]models.ProductImage, 0, n)
	for i := 0; i < n; i++ {
		img := models.ProductImage{
			ProductID: productID,
			URL:       fmt.Sprintf("https://cdn.test/img-%d-%d.jpg", time.Now().UnixNano(), i),
			S3Key:     fmt.Sprintf("products/%s/%d.jpg", productID, i),
			Position:  i,
		}
		require.NoError(suite.T(), suite.db.Create(&img).Error)
		images = append(images, img)
	}
	return images
}

func (suite *HandlersTestSuite) TestReorderProductImages() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 3000, 8)
	images := suite.createTestImages(product.ID, 3)

	w := suite.doJSON("PUT", "/api/v1/products/"+product.ID+"/images/reorder", suite.vendor.ID, map[string]interface{}{
		"image_ids": []string{images[2].ID, images[0].ID, images[1].ID},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var ordered []models.ProductImage
	require.NoError(t, suite.db.Where("product_id = ?", product.ID).Order("position ASC").Find(&ordered).Error)
	require.Len(t, ordered, 3)
	assert.Equal(t, images[2].ID, ordered[0].ID)
	assert.Equal(t, images[0].ID, ordered[1].ID)
	assert.Equal(t, images[1].ID, ordered[2].ID)
}

func (suite *HandlersTestSuite) TestReorderProductImagesMustBeComplete() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 3000, 8)
	images := suite.createTestImages(product.ID, 3)

	// Leaving one out is rejected
	w := suite.doJSON("PUT", "/api/v1/products/"+product.ID+"/images/reorder", suite.vendor.ID, map[string]interface{}{
		"image_ids": []string{images[0].ID, images[1].ID},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "invalid_image_order", response["error"])
}

func (suite *HandlersTestSuite) TestDeleteProductImageClosesGap() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 3000, 8)
	images := suite.createTestImages(product.ID, 3)

	w := suite.doJSON("DELETE", "/api/v1/products/"+product.ID+"/images/"+images[1].ID, suite.vendor.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var remaining []models.ProductImage
	require.NoError(t, suite.db.Where("product_id = ?", product.ID).Order("position ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, images[0].ID, remaining[0].ID)
	assert.Equal(t, 0, remaining[0].Position)
	assert.Equal(t, images[2].ID, remaining[1].ID)
	assert.Equal(t, 1, remaining[1].Position)
}
