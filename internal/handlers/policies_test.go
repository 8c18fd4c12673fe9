package handlers

import (
	"net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/models"
)

// =============================================================================
// POLICY TEMPLATE TESTS
// =============================================================================

func (suite *HandlersTestSuite) createPolicyTemplate(admin *models.User, kind, title string, isDefault bool) string {
	w := suite.doJSON("POST", "/api/v1/policy-templates", admin.ID, map[string]interface{}{
		"kind":       kind,
		"title":      title,
		"body":       "Template text for " + title,
		"is_default": isDefault,
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	return decodeBody(suite.T(), w)["template"].(map[string]interface{})["id"].(string)
}

func (suite *HandlersTestSuite) TestCreatePolicyTemplateRequiresAdmin() {
	t := suite.T()

	w := suite.doJSON("POST", "/api/v1/policy-templates", suite.vendor.ID, map[string]interface{}{
		"kind":  "shipping",
		"title": "Standard Shipping",
		"body":  "Ships within 3 days.",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "admin_access_required", response["error"])
}

func (suite *HandlersTestSuite) TestCreatePolicyTemplateInvalidKind() {
	t := suite.T()

	admin := suite.createAdminUser()
	w := suite.doJSON("POST", "/api/v1/policy-templates", admin.ID, map[string]interface{}{
		"kind":  "warranty",
		"title": "Warranty",
		"body":  "Not a real policy slot.",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestCreatePolicyTemplateDefaultSwap() {
	t := suite.T()

	admin := suite.createAdminUser()
	firstID := suite.createPolicyTemplate(admin, "shipping", "Standard Shipping", true)
	secondID := suite.createPolicyTemplate(admin, "shipping", "Express Shipping", true)

	// The newer default displaces the older one, per kind
	var first, second models.PolicyTemplate
	require.NoError(t, suite.db.First(&first, "id = ?", firstID).Error)
	require.NoError(t, suite.db.First(&second, "id = ?", secondID).Error)
	assert.False(t, first.IsDefault)
	assert.True(t, second.IsDefault)

	// Defaults of other kinds are untouched
	returnsID := suite.createPolicyTemplate(admin, "returns", "Standard Returns", true)
	var returns models.PolicyTemplate
	require.NoError(t, suite.db.First(&returns, "id = ?", returnsID).Error)
	assert.True(t, returns.IsDefault)
	require.NoError(t, suite.db.First(&second, "id = ?", secondID).Error)
	assert.True(t, second.IsDefault)
}

func (suite *HandlersTestSuite) TestListPolicyTemplates() {
	t := suite.T()

	admin := suite.createAdminUser()
	suite.createPolicyTemplate(admin, "shipping", "Standard Shipping", true)
	suite.createPolicyTemplate(admin, "returns", "Standard Returns", false)

	// Catalog is public
	w := suite.doJSON("GET", "/api/v1/policy-templates", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Len(t, response["templates"], 2)

	// Kind filter
	w = suite.doJSON("GET", "/api/v1/policy-templates?kind=returns", "", nil)
	response = decodeBody(t, w)
	templates := response["templates"].([]interface{})
	require.Len(t, templates, 1)
	assert.Equal(t, "returns", templates[0].(map[string]interface{})["kind"])

	// Unknown kind is rejected, not silently empty
	w = suite.doJSON("GET", "/api/v1/policy-templates?kind=warranty", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestDeletePolicyTemplateKeepsStorePolicies() {
	t := suite.T()

	admin := suite.createAdminUser()
	templateID := suite.createPolicyTemplate(admin, "shipping", "Standard Shipping", false)

	store := suite.createTestStore(suite.vendor.ID)
	w := suite.doJSON("PUT", "/api/v1/stores/"+store.ID+"/policies/shipping", suite.vendor.ID, map[string]interface{}{
		"template_id": templateID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.doJSON("DELETE", "/api/v1/policy-templates/"+templateID, admin.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// The instantiated policy keeps its text
	var policy models.StorePolicy
	require.NoError(t, suite.db.First(&policy, "store_id = ? AND kind = ?", store.ID, "shipping").Error)
	assert.Contains(t, policy.Body, "Standard Shipping")

	// Deleting again finds nothing
	w = suite.doJSON("DELETE", "/api/v1/policy-templates/"+templateID, admin.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =============================================================================
// STORE POLICY TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestPutStorePolicyCustomText() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)

	w := suite.doJSON("PUT", "/api/v1/stores/"+store.ID+"/policies/returns", suite.vendor.ID, map[string]interface{}{
		"body": "Returns accepted within 30 days.",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	policy := response["policy"].(map[string]interface{})
	assert.Equal(t, "returns", policy["kind"])
	assert.Equal(t, "Returns accepted within 30 days.", policy["body"])

	// Second put upserts the same slot
	w = suite.doJSON("PUT", "/api/v1/stores/"+store.ID+"/policies/returns", suite.vendor.ID, map[string]interface{}{
		"body": "Returns accepted within 14 days.",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.StorePolicy{}).Where("store_id = ?", store.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	var dbPolicy models.StorePolicy
	require.NoError(t, suite.db.First(&dbPolicy, "store_id = ? AND kind = ?", store.ID, "returns").Error)
	assert.Equal(t, "Returns accepted within 14 days.", dbPolicy.Body)
}

func (suite *HandlersTestSuite) TestPutStorePolicyFromTemplate() {
	t := suite.T()

	admin := suite.createAdminUser()
	templateID := suite.createPolicyTemplate(admin, "refunds", "Standard Refunds", true)

	store := suite.createTestStore(suite.vendor.ID)
	w := suite.doJSON("PUT", "/api/v1/stores/"+store.ID+"/policies/refunds", suite.vendor.ID, map[string]interface{}{
		"template_id": templateID,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	policy := response["policy"].(map[string]interface{})
	assert.Contains(t, policy["body"], "Standard Refunds")
	assert.Equal(t, templateID, policy["template_id"])
}

func (suite *HandlersTestSuite) TestPutStorePolicyTemplateKindMismatch() {
	t := suite.T()

	admin := suite.createAdminUser()
	templateID := suite.createPolicyTemplate(admin, "shipping", "Standard Shipping", false)

	store := suite.createTestStore(suite.vendor.ID)
	w := suite.doJSON("PUT", "/api/v1/stores/"+store.ID+"/policies/returns", suite.vendor.ID, map[string]interface{}{
		"template_id": templateID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestPutStorePolicyRequiresText() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	w := suite.doJSON("PUT", "/api/v1/stores/"+store.ID+"/policies/shipping", suite.vendor.ID, map[string]interface{}{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestPutStorePolicyNotOwner() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	w := suite.doJSON("PUT", "/api/v1/stores/"+store.ID+"/policies/shipping", suite.testUser.ID, map[string]interface{}{
		"body": "Not my store.",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func (suite *HandlersTestSuite) TestGetStorePolicies() {
	t := suite.T()

	store := suite.createTestStore(suite.vendor.ID)
	w := suite.doJSON("PUT", "/api/v1/stores/"+store.ID+"/policies/shipping", suite.vendor.ID, map[string]interface{}{
		"body": "Ships worldwide.",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.doJSON("GET", "/api/v1/stores/"+store.ID+"/policies", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Len(t, response["policies"], 1)

	w = suite.doJSON("GET", "/api/v1/stores/"+store.ID+"/policies/shipping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	response = decodeBody(t, w)
	assert.Equal(t, "Ships worldwide.", response["policy"].(map[string]interface{})["body"])

	// Unfilled slot is a 404, not an empty body
	w = suite.doJSON("GET", "/api/v1/stores/"+store.ID+"/policies/refunds", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
