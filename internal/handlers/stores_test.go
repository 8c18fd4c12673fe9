package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/models"
)

// =============================================================================
// STORE CRUD TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestCreateStore() {
	t := suite.T()

	w := suite.doJSON("POST", "/api/v1/stores", suite.vendor.ID, map[string]interface{}{
		"name":        "Analog Attic",
		"description": "Synths and tape machines",
		"city":        "Berlin",
		"country":     "de",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	response := decodeBody(t, w)
	store := response["store"].(map[string]interface{})
	assert.Equal(t, "Analog Attic", store["name"])
	assert.Equal(t, "analog-attic", store["slug"])
	assert.Equal(t, true, store["is_open"])
	assert.Equal(t, suite.vendor.ID, store["vendor_id"])

	var dbStore models.Store
	require.NoError(t, suite.db.First(&dbStore, "vendor_id = ?", suite.vendor.ID).Error)
	assert.Equal(t, "analog-attic", dbStore.Slug)
}

func (suite *HandlersTestSuite) TestCreateStoreRequiresVendorRole() {
	t := suite.T()

	w := suite.doJSON("POST", "/api/v1/stores", suite.testUser.ID, map[string]interface{}{
		"name": "Shopper Store",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "vendor_access_required", response["error"])
}

func (suite *HandlersTestSuite) TestCreateStoreOnePerVendor() {
	t := suite.T()

	suite.createTestStore(suite.vendor.ID)

	w := suite.doJSON("POST", "/api/v1/stores", suite.vendor.ID, map[string]interface{}{
		"name": "Second Store",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "store_exists", response["error"])
}

func (suite *HandlersTestSuite) TestCreateStoreSlugCollision() {
	t := suite.T()

	w := suite.doJSON("POST", "/api/v1/stores", suite.vendor.ID, map[string]interface{}{
		"name": "Corner Shop",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	otherID := fmt.Sprintf("%d", time.Now().UnixNano())
	otherVendor := &models.User{
		Email:       fmt.Sprintf("vendor2_%s@test.com", otherID),
		Username:    fmt.Sprintf("vendor2_%s", otherID[:12]),
		DisplayName: "Other Vendor",
		Role:        models.RoleVendor,
	}
	require.NoError(t, suite.db.Create(otherVendor).Error)

	w = suite.doJSON("POST", "/api/v1/stores", otherVendor.ID, map[string]interface{}{
		"name": "Corner Shop",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	response := decodeBody(t, w)
	store := response["store"].(map[string]interface{})
	assert.Equal(t, "corner-shop-2", store["slug"])
}

func (suite *HandlersTestSuite) TestListStores() {
	t := suite.T()

	open := suite.createTestStore(suite.vendor.ID)

	otherID := fmt.Sprintf("%d", time.Now().UnixNano())
	otherVendor := &models.User{
		Email:       fmt.Sprintf("vendor3_%s@test.com", otherID),
		Username:    fmt.Sprintf("vendor3_%s", otherID[:12]),
		DisplayName: "Closed Vendor",
		Role:        models.RoleVendor,
	}
	require.NoError(t, suite.db.Create(otherVendor).Error)
	closed := &models.Store{
		VendorID: otherVendor.ID,
		Name:     "Closed Corner",
		Slug:     fmt.Sprintf("closed-corner-%s", otherID),
		Country:  "fr",
		IsOpen:   false,
	}
	require.NoError(t, suite.db.Create(closed).Error)

	w := suite.doJSON("GET", "/api/v1/stores", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Len(t, response["stores"], 2)
	meta := response["meta"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["total"])

	// Open-only filter hides the closed store
	w = suite.doJSON("GET", "/api/v1/stores?open=true", "", nil)
	response = decodeBody(t, w)
	stores := response["stores"].([]interface{})
	require.Len(t, stores, 1)
	assert.Equal(t, open.ID, stores[0].(map[string]interface{})["id"])

	// Country filter is case-insensitive
	w = suite.doJSON("GET", "/api/v1/stores?country=FR", "", nil)
	response = decodeBody(t, w)
	stores = response["stores"].([]interface{})
	require.Len(t, stores, 1)
	assert.Equal(t, closed.ID, stores[0].(map[string]interface{})["id"])
}

func (suite *HandlersTestSuite) TestGetStoreByIDAndSlug() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)

	w := suite.doJSON("GET", "/api/v1/stores/"+store.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, store.ID, response["store"].(map[string]interface{})["id"])

	w = suite.doJSON("GET", "/api/v1/stores/"+store.Slug, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	response = decodeBody(t, w)
	assert.Equal(t, store.ID, response["store"].(map[string]interface{})["id"])
}

func (suite *HandlersTestSuite) TestGetStoreNotFound() {
	t := suite.T()

	// Slug-shaped miss
	w := suite.doJSON("GET", "/api/v1/stores/no-such-store", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// UUID-shaped miss
	w = suite.doJSON("GET", "/api/v1/stores/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestGetMyStore() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)

	w := suite.doJSON("GET", "/api/v1/my/store", suite.vendor.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, store.ID, response["store"].(map[string]interface{})["id"])

	// A user without a store gets a 404, not an empty object
	w = suite.doJSON("GET", "/api/v1/my/store", suite.testUser.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestUpdateStore() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)

	w := suite.doJSON("PUT", "/api/v1/stores/"+store.ID, suite.vendor.ID, map[string]interface{}{
		"name":        "Renamed Goods",
		"description": "Fresh copy",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var dbStore models.Store
	require.NoError(t, suite.db.First(&dbStore, "id = ?", store.ID).Error)
	assert.Equal(t, "Renamed Goods", dbStore.Name)
	// Renames never touch the slug
	assert.Equal(t, store.Slug, dbStore.Slug)
}

func (suite *HandlersTestSuite) TestUpdateStoreNotOwner() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)

	w := suite.doJSON("PUT", "/api/v1/stores/"+store.ID, suite.testUser.ID, map[string]interface{}{
		"name": "Hijacked",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "not_store_owner", response["error"])
}

func (suite *HandlersTestSuite) TestUpdateStoreAdminOverride() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	admin := suite.createAdminUser()

	w := suite.doJSON("PUT", "/api/v1/stores/"+store.ID, admin.ID, map[string]interface{}{
		"name": "Moderated Name",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestSetStoreOpen() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)

	w := suite.doJSON("PUT", "/api/v1/stores/"+store.ID+"/open", suite.vendor.ID, map[string]interface{}{
		"is_open": false,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var dbStore models.Store
	require.NoError(t, suite.db.First(&dbStore, "id = ?", store.ID).Error)
	assert.False(t, dbStore.IsOpen)

	w = suite.doJSON("PUT", "/api/v1/stores/"+store.ID+"/open", suite.vendor.ID, map[string]interface{}{
		"is_open": true,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, suite.db.First(&dbStore, "id = ?", store.ID).Error)
	assert.True(t, dbStore.IsOpen)
}

func (suite *HandlersTestSuite) TestDeleteStoreCascades() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	product := suite.createTestProduct(store.ID, 1500, 3)
	design := &models.StoreDesign{StoreID: store.ID, Blocks: models.BlockList{}}
	require.NoError(t, suite.db.Create(design).Error)
	policy := &models.StorePolicy{StoreID: store.ID, Kind: models.PolicyShipping, Body: "Ships in 2 days"}
	require.NoError(t, suite.db.Create(policy).Error)

	w := suite.doJSON("DELETE", "/api/v1/stores/"+store.ID, suite.vendor.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "store_deleted", response["message"])

	// Store and products disappear from default queries
	var storeCount, productCount, designCount int64
	suite.db.Model(&models.Store{}).Where("id = ?", store.ID).Count(&storeCount)
	suite.db.Model(&models.Product{}).Where("id = ?", product.ID).Count(&productCount)
	suite.db.Model(&models.StoreDesign{}).Where("id = ?", design.ID).Count(&designCount)
	assert.Equal(t, int64(0), storeCount)
	assert.Equal(t, int64(0), productCount)
	assert.Equal(t, int64(0), designCount)

	// Soft delete keeps the rows recoverable
	var deletedStore models.Store
	require.NoError(t, suite.db.Unscoped().First(&deletedStore, "id = ?", store.ID).Error)
	assert.True(t, deletedStore.DeletedAt.Valid)
}
