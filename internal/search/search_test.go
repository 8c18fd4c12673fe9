package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora/backend/internal/models"
)

func TestProductToSearchDoc(t *testing.T) {
	createdAt := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)
	product := models.Product{
		ID:            "prod-1",
		StoreID:       "store-1",
		Name:          "Walnut Desk Organizer",
		Description:   "Hand-finished walnut organizer",
		PriceCents:    4999,
		Currency:      "usd",
		Stock:         12,
		IsAvailable:   true,
		Category:      "home",
		Tags:          models.StringArray{"wood", "desk"},
		RatingAvg:     4.5,
		RatingCount:   8,
		FavoriteCount: 21,
		CreatedAt:     createdAt,
	}
	store := models.Store{
		ID:     "store-1",
		Name:   "Oak & Iron",
		IsOpen: true,
	}

	doc := ProductToSearchDoc(product, store)

	assert.Equal(t, "prod-1", doc["id"])
	assert.Equal(t, "store-1", doc["store_id"])
	assert.Equal(t, "Oak & Iron", doc["store_name"])
	assert.Equal(t, "Walnut Desk Organizer", doc["name"])
	assert.Equal(t, "home", doc["category"])
	assert.Equal(t, []string{"wood", "desk"}, doc["tags"])
	assert.Equal(t, int64(4999), doc["price_cents"])
	assert.Equal(t, "usd", doc["currency"])
	assert.Equal(t, 12, doc["stock"])
	assert.Equal(t, true, doc["is_available"])
	assert.Equal(t, true, doc["store_open"])
	assert.Equal(t, 4.5, doc["rating_avg"])
	assert.Equal(t, 8, doc["rating_count"])
	assert.Equal(t, 21, doc["favorite_count"])
	assert.Equal(t, "2025-03-07T12:00:00Z", doc["created_at"])
}

func TestProductToSearchDocNilTags(t *testing.T) {
	doc := ProductToSearchDoc(models.Product{ID: "p"}, models.Store{})

	tags, ok := doc["tags"].([]string)
	require.True(t, ok)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}

func TestStoreToSearchDoc(t *testing.T) {
	createdAt := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	store := models.Store{
		ID:           "store-2",
		Name:         "Cerami Studio",
		Description:  "Small-batch ceramics",
		City:         "Lisbon",
		Country:      "PT",
		IsOpen:       true,
		ProductCount: 34,
		RatingAvg:    4.8,
		RatingCount:  120,
		CreatedAt:    createdAt,
	}

	doc := StoreToSearchDoc(store)

	assert.Equal(t, "store-2", doc["id"])
	assert.Equal(t, "Cerami Studio", doc["name"])
	assert.Equal(t, "Lisbon", doc["city"])
	assert.Equal(t, "PT", doc["country"])
	assert.Equal(t, true, doc["is_open"])
	assert.Equal(t, 34, doc["product_count"])
	assert.Equal(t, 4.8, doc["rating_avg"])
	assert.Equal(t, 120, doc["rating_count"])
	assert.Equal(t, "2025-01-15T09:30:00Z", doc["created_at"])
}

// unwrapFunctionScore digs out the base query wrapped by function_score
func unwrapFunctionScore(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	query, ok := body["query"].(map[string]interface{})
	require.True(t, ok)
	fs, ok := query["function_score"].(map[string]interface{})
	require.True(t, ok)
	base, ok := fs["query"].(map[string]interface{})
	require.True(t, ok)
	return base
}

func TestBuildProductSearchQueryMatchAll(t *testing.T) {
	body := buildProductSearchQuery(SearchProductsParams{Limit: 20, Offset: 0})

	base := unwrapFunctionScore(t, body)
	_, ok := base["match_all"]
	assert.True(t, ok, "empty params should build match_all")

	assert.Equal(t, 0, body["from"])
	assert.Equal(t, 20, body["size"])
}

func TestBuildProductSearchQueryTextSearch(t *testing.T) {
	body := buildProductSearchQuery(SearchProductsParams{Query: "walnut desk", Limit: 10})

	base := unwrapFunctionScore(t, body)
	boolQuery, ok := base["bool"].(map[string]interface{})
	require.True(t, ok)

	should, ok := boolQuery["should"].([]map[string]interface{})
	require.True(t, ok)
	assert.Len(t, should, 5, "name, store_name, category, tags, description")
	assert.Equal(t, 1, boolQuery["minimum_should_match"])

	// Name carries the highest boost
	nameMatch := should[0]["match"].(map[string]interface{})["name"].(map[string]interface{})
	assert.Equal(t, "walnut desk", nameMatch["query"])
	assert.Equal(t, 3.5, nameMatch["boost"])
	assert.Equal(t, "AUTO", nameMatch["fuzziness"])

	// No filters requested, so no must clauses
	_, hasMust := boolQuery["must"]
	assert.False(t, hasMust)
}

func TestBuildProductSearchQueryFilters(t *testing.T) {
	minPrice := int64(1000)
	maxPrice := int64(5000)
	minRating := 4.0

	body := buildProductSearchQuery(SearchProductsParams{
		Category:      "home",
		Tags:          []string{"wood"},
		StoreID:       "store-1",
		PriceMinCents: &minPrice,
		PriceMaxCents: &maxPrice,
		RatingMin:     &minRating,
		AvailableOnly: true,
		Limit:         10,
		Offset:        20,
	})

	base := unwrapFunctionScore(t, body)
	boolQuery, ok := base["bool"].(map[string]interface{})
	require.True(t, ok)

	must, ok := boolQuery["must"].([]map[string]interface{})
	require.True(t, ok)
	// category, tags, store, price range, rating, is_available, store_open
	assert.Len(t, must, 7)

	// AvailableOnly must pin both product and store flags
	foundAvailable := false
	foundStoreOpen := false
	for _, clause := range must {
		term, ok := clause["term"].(map[string]interface{})
		if !ok {
			continue
		}
		if v, ok := term["is_available"]; ok && v == true {
			foundAvailable = true
		}
		if v, ok := term["store_open"]; ok && v == true {
			foundStoreOpen = true
		}
	}
	assert.True(t, foundAvailable)
	assert.True(t, foundStoreOpen)

	// No query text, so no should clauses
	_, hasShould := boolQuery["should"]
	assert.False(t, hasShould)

	assert.Equal(t, 20, body["from"])
	assert.Equal(t, 10, body["size"])
}

func TestBuildProductSearchQueryPriceRange(t *testing.T) {
	minPrice := int64(2500)

	body := buildProductSearchQuery(SearchProductsParams{
		PriceMinCents: &minPrice,
		Limit:         10,
	})

	base := unwrapFunctionScore(t, body)
	must := base["bool"].(map[string]interface{})["must"].([]map[string]interface{})
	require.Len(t, must, 1)

	priceRange := must[0]["range"].(map[string]interface{})["price_cents"].(map[string]interface{})
	assert.Equal(t, int64(2500), priceRange["gte"])
	_, hasLte := priceRange["lte"]
	assert.False(t, hasLte, "no max requested")
}

func TestBuildProductSearchQueryScoring(t *testing.T) {
	body := buildProductSearchQuery(SearchProductsParams{Query: "mug", Limit: 10})

	fs := body["query"].(map[string]interface{})["function_score"].(map[string]interface{})
	assert.Equal(t, "sum", fs["score_mode"])
	assert.Equal(t, "multiply", fs["boost_mode"])

	functions, ok := fs["functions"].([]map[string]interface{})
	require.True(t, ok)
	assert.Len(t, functions, 3, "favorites, ratings, recency")

	favorites := functions[0]["field_value_factor"].(map[string]interface{})
	assert.Equal(t, "favorite_count", favorites["field"])
	assert.Equal(t, "log1p", favorites["modifier"])
}

func TestCacheKeyDeterministic(t *testing.T) {
	params := SearchProductsParams{Query: "lamp", Category: "home", Limit: 20}

	first := cacheKey("products", params)
	second := cacheKey("products", params)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "search:products:")

	other := cacheKey("products", SearchProductsParams{Query: "lamp", Category: "decor", Limit: 20})
	assert.NotEqual(t, first, other)

	stores := cacheKey("stores", params)
	assert.NotEqual(t, first, stores)
}

func TestIndexVersionConstant(t *testing.T) {
	assert.GreaterOrEqual(t, IndexVersion, 2)
}
