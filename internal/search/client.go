// Package search maintains the Elasticsearch product and store indices and
// runs the catalog search queries behind GET /search. The database stays the
// source of truth; handlers fall back to SQL when no search client is wired.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/vendora/backend/internal/telemetry"
)

// Index names
const (
	IndexProducts = "products"
	IndexStores   = "stores"
)

// Client wraps the Elasticsearch client with Vendora-specific functionality
type Client struct {
	es *elasticsearch.Client
}

// NewClient creates a new Elasticsearch client
func NewClient() (*Client, error) {
	// Get Elasticsearch URL from environment, default to localhost
	esURL := os.Getenv("ELASTICSEARCH_URL")
	if esURL == "" {
		esURL = "http://localhost:9200"
	}

	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &Client{es: es}

	// Verify connection
	_, err = es.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	return client, nil
}

// InitializeIndices creates the search indices with proper mappings
func (c *Client) InitializeIndices(ctx context.Context) error {
	if err := c.createProductsIndex(ctx); err != nil {
		return fmt.Errorf("failed to create products index: %w", err)
	}

	if err := c.createStoresIndex(ctx); err != nil {
		return fmt.Errorf("failed to create stores index: %w", err)
	}

	return nil
}

// createProductsIndex creates the products search index with mapping
func (c *Client) createProductsIndex(ctx context.Context) error {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type": "keyword",
				},
				"store_id": map[string]interface{}{
					"type": "keyword",
				},
				"store_name": map[string]interface{}{
					"type":     "text",
					"analyzer": "standard",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{
							"type": "keyword",
						},
					},
				},
				"name": map[string]interface{}{
					"type":     "text",
					"analyzer": "standard",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{
							"type": "keyword",
						},
						"suggest": map[string]interface{}{
							"type":     "completion",
							"analyzer": "simple",
						},
					},
				},
				"description": map[string]interface{}{
					"type":     "text",
					"analyzer": "standard",
				},
				"category": map[string]interface{}{
					"type": "keyword",
				},
				"tags": map[string]interface{}{
					"type": "keyword",
				},
				"price_cents": map[string]interface{}{
					"type": "long",
				},
				"currency": map[string]interface{}{
					"type": "keyword",
				},
				"stock": map[string]interface{}{
					"type": "integer",
				},
				"is_available": map[string]interface{}{
					"type": "boolean",
				},
				"store_open": map[string]interface{}{
					"type": "boolean",
				},
				"rating_avg": map[string]interface{}{
					"type": "float",
				},
				"rating_count": map[string]interface{}{
					"type": "integer",
				},
				"favorite_count": map[string]interface{}{
					"type": "integer",
				},
				"created_at": map[string]interface{}{
					"type": "date",
				},
			},
		},
	}

	return c.createIndex(ctx, IndexProducts, mapping)
}

// createStoresIndex creates the stores search index with mapping
func (c *Client) createStoresIndex(ctx context.Context) error {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type": "keyword",
				},
				"name": map[string]interface{}{
					"type":     "text",
					"analyzer": "standard",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{
							"type": "keyword",
						},
						"suggest": map[string]interface{}{
							"type":     "completion",
							"analyzer": "simple",
						},
					},
				},
				"description": map[string]interface{}{
					"type":     "text",
					"analyzer": "standard",
				},
				"city": map[string]interface{}{
					"type": "keyword",
				},
				"country": map[string]interface{}{
					"type": "keyword",
				},
				"is_open": map[string]interface{}{
					"type": "boolean",
				},
				"product_count": map[string]interface{}{
					"type": "integer",
				},
				"rating_avg": map[string]interface{}{
					"type": "float",
				},
				"rating_count": map[string]interface{}{
					"type": "integer",
				},
				"created_at": map[string]interface{}{
					"type": "date",
				},
			},
		},
	}

	return c.createIndex(ctx, IndexStores, mapping)
}

// createIndex creates an Elasticsearch index with the given mapping
func (c *Client) createIndex(ctx context.Context, indexName string, mapping map[string]interface{}) error {
	// Check if index exists
	res, err := c.es.Indices.Exists([]string{indexName})
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()

	// If index exists (status 200), skip creation
	if res.StatusCode == 200 {
		return nil
	}

	// Create index with mapping
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = c.es.Indices.Create(indexName,
		c.es.Indices.Create.WithBody(bytes.NewReader(mappingJSON)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var errResp map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil {
			return fmt.Errorf("error response [%s]", res.Status())
		}
		return fmt.Errorf("error creating index: [%s] %v", res.Status(), errResp["error"])
	}

	return nil
}

// IndexProduct indexes a product document for search
func (c *Client) IndexProduct(ctx context.Context, productID string, doc map[string]interface{}) error {
	ctx, span := telemetry.TraceElasticsearchCall(ctx, "index", map[string]interface{}{
		"index":  IndexProducts,
		"doc_id": productID,
	})
	defer span.End()

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal product document: %w", err)
	}

	res, err := c.es.Index(IndexProducts, bytes.NewReader(body),
		c.es.Index.WithDocumentID(productID),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		telemetry.RecordServiceError(span, "elasticsearch", err)
		return fmt.Errorf("failed to index product: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var errResp map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil {
			return fmt.Errorf("error response [%s]", res.Status())
		}
		return fmt.Errorf("error indexing product: [%s] %v", res.Status(), errResp["error"])
	}

	return nil
}

// IndexStore indexes a store document for search
func (c *Client) IndexStore(ctx context.Context, storeID string, doc map[string]interface{}) error {
	ctx, span := telemetry.TraceElasticsearchCall(ctx, "index", map[string]interface{}{
		"index":  IndexStores,
		"doc_id": storeID,
	})
	defer span.End()

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal store document: %w", err)
	}

	res, err := c.es.Index(IndexStores, bytes.NewReader(body),
		c.es.Index.WithDocumentID(storeID),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		telemetry.RecordServiceError(span, "elasticsearch", err)
		return fmt.Errorf("failed to index store: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var errResp map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil {
			return fmt.Errorf("error response [%s]", res.Status())
		}
		return fmt.Errorf("error indexing store: [%s] %v", res.Status(), errResp["error"])
	}

	return nil
}

// DeleteProduct deletes a product document from the search index
func (c *Client) DeleteProduct(ctx context.Context, productID string) error {
	res, err := c.es.Delete(IndexProducts, productID,
		c.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	defer res.Body.Close()

	// 404 is OK - document doesn't exist
	if res.IsError() && res.StatusCode != 404 {
		var errResp map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil {
			return fmt.Errorf("error response [%s]", res.Status())
		}
		return fmt.Errorf("error deleting product: [%s] %v", res.Status(), errResp["error"])
	}

	return nil
}

// DeleteStore deletes a store document from the search index
func (c *Client) DeleteStore(ctx context.Context, storeID string) error {
	res, err := c.es.Delete(IndexStores, storeID,
		c.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	defer res.Body.Close()

	// 404 is OK - document doesn't exist
	if res.IsError() && res.StatusCode != 404 {
		var errResp map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil {
			return fmt.Errorf("error response [%s]", res.Status())
		}
		return fmt.Errorf("error deleting store: [%s] %v", res.Status(), errResp["error"])
	}

	return nil
}

// DeleteStoreProducts removes every product of one store from the index.
// Used when a store closes or its owner withdraws, so the catalog stops
// surfacing listings the storefront would 404 on.
func (c *Client) DeleteStoreProducts(ctx context.Context, storeID string) error {
	ctx, span := telemetry.TraceElasticsearchCall(ctx, "delete_by_query", map[string]interface{}{
		"index": IndexProducts,
	})
	defer span.End()

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"store_id": storeID,
			},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to marshal delete query: %w", err)
	}

	res, err := c.es.DeleteByQuery(
		[]string{IndexProducts},
		bytes.NewReader(body),
		c.es.DeleteByQuery.WithContext(ctx),
		c.es.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		telemetry.RecordServiceError(span, "elasticsearch", err)
		return fmt.Errorf("failed to delete store products: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var errResp map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil {
			return fmt.Errorf("error response [%s]", res.Status())
		}
		return fmt.Errorf("error deleting store products: [%s] %v", res.Status(), errResp["error"])
	}

	return nil
}

// CountDocuments returns the number of documents in an index. Used to
// compare index size against the database when checking for drift.
func (c *Client) CountDocuments(ctx context.Context, indexName string) (int64, error) {
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(indexName),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("error counting documents: [%s]", res.Status())
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("failed to parse count response: %w", err)
	}

	return countResp.Count, nil
}

// SearchProductsResult represents a product search result
type SearchProductsResult struct {
	Products []ProductSearchHit `json:"products"`
	Total    int                `json:"total"`
}

// ProductSearchHit represents a single product search hit
type ProductSearchHit struct {
	ID            string   `json:"id"`
	StoreID       string   `json:"store_id"`
	StoreName     string   `json:"store_name"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags,omitempty"`
	PriceCents    int64    `json:"price_cents"`
	Currency      string   `json:"currency"`
	Stock         int      `json:"stock"`
	IsAvailable   bool     `json:"is_available"`
	RatingAvg     float64  `json:"rating_avg"`
	RatingCount   int      `json:"rating_count"`
	FavoriteCount int      `json:"favorite_count"`
	CreatedAt     string   `json:"created_at"`
	Score         float64  `json:"score"`
}

// SearchProductsParams contains parameters for product search
type SearchProductsParams struct {
	Query         string
	Category      string
	Tags          []string
	StoreID       string
	PriceMinCents *int64
	PriceMaxCents *int64
	RatingMin     *float64
	AvailableOnly bool
	Limit         int
	Offset        int
}

// buildProductSearchQuery assembles the products query body. Text matches
// rank by relevance; availability and price constraints filter hard.
func buildProductSearchQuery(params SearchProductsParams) map[string]interface{} {
	mustClauses := []map[string]interface{}{}
	shouldClauses := []map[string]interface{}{}

	// Text search across name, store name, category, tags, description
	if params.Query != "" {
		shouldClauses = append(shouldClauses,
			map[string]interface{}{
				"match": map[string]interface{}{
					"name": map[string]interface{}{
						"query":     params.Query,
						"boost":     3.5,
						"fuzziness": "AUTO",
					},
				},
			},
			map[string]interface{}{
				"match": map[string]interface{}{
					"store_name": map[string]interface{}{
						"query":     params.Query,
						"boost":     2.0,
						"fuzziness": "AUTO",
					},
				},
			},
			map[string]interface{}{
				"match": map[string]interface{}{
					"category": map[string]interface{}{
						"query":     params.Query,
						"boost":     1.5,
						"fuzziness": "AUTO",
					},
				},
			},
			map[string]interface{}{
				"match": map[string]interface{}{
					"tags": map[string]interface{}{
						"query":     params.Query,
						"boost":     1.5,
						"fuzziness": "AUTO",
					},
				},
			},
			map[string]interface{}{
				"match": map[string]interface{}{
					"description": map[string]interface{}{
						"query":     params.Query,
						"boost":     1.0,
						"fuzziness": "AUTO",
					},
				},
			},
		)
	}

	// Category filter
	if params.Category != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"term": map[string]interface{}{
				"category": params.Category,
			},
		})
	}

	// Tags filter
	if len(params.Tags) > 0 {
		mustClauses = append(mustClauses, map[string]interface{}{
			"terms": map[string]interface{}{
				"tags": params.Tags,
			},
		})
	}

	// Store filter
	if params.StoreID != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"term": map[string]interface{}{
				"store_id": params.StoreID,
			},
		})
	}

	// Price range filter
	if params.PriceMinCents != nil || params.PriceMaxCents != nil {
		priceRange := map[string]interface{}{}
		if params.PriceMinCents != nil {
			priceRange["gte"] = *params.PriceMinCents
		}
		if params.PriceMaxCents != nil {
			priceRange["lte"] = *params.PriceMaxCents
		}
		mustClauses = append(mustClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"price_cents": priceRange,
			},
		})
	}

	// Minimum rating filter
	if params.RatingMin != nil {
		mustClauses = append(mustClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"rating_avg": map[string]interface{}{
					"gte": *params.RatingMin,
				},
			},
		})
	}

	// Shopper-facing searches only see purchasable products of open stores
	if params.AvailableOnly {
		mustClauses = append(mustClauses,
			map[string]interface{}{
				"term": map[string]interface{}{
					"is_available": true,
				},
			},
			map[string]interface{}{
				"term": map[string]interface{}{
					"store_open": true,
				},
			},
		)
	}

	// Build base query
	var baseQuery map[string]interface{}

	if len(shouldClauses) > 0 || len(mustClauses) > 0 {
		boolQuery := map[string]interface{}{}
		if len(mustClauses) > 0 {
			boolQuery["must"] = mustClauses
		}
		if len(shouldClauses) > 0 {
			boolQuery["should"] = shouldClauses
			boolQuery["minimum_should_match"] = 1
		}
		baseQuery = map[string]interface{}{
			"bool": boolQuery,
		}
	} else {
		// No query text and no filters - match all
		baseQuery = map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	// Combine relevance with popularity and recency
	scoredQuery := map[string]interface{}{
		"function_score": map[string]interface{}{
			"query": baseQuery,
			"functions": []map[string]interface{}{
				{
					"field_value_factor": map[string]interface{}{
						"field":    "favorite_count",
						"factor":   3.0,
						"modifier": "log1p",
					},
				},
				{
					"field_value_factor": map[string]interface{}{
						"field":    "rating_count",
						"factor":   2.0,
						"modifier": "log1p",
					},
				},
				{
					"exp": map[string]interface{}{
						"created_at": map[string]interface{}{
							"origin": "now",
							"scale":  "30d",
							"decay":  0.5,
						},
					},
					"weight": 0.5,
				},
			},
			"score_mode": "sum",
			"boost_mode": "multiply",
		},
	}

	return map[string]interface{}{
		"query": scoredQuery,
		"from":  params.Offset,
		"size":  params.Limit,
		"sort": []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
}

// SearchProducts searches for products with filters
func (c *Client) SearchProducts(ctx context.Context, params SearchProductsParams) (*SearchProductsResult, error) {
	ctx, span := telemetry.TraceElasticsearchCall(ctx, "search", map[string]interface{}{
		"index": IndexProducts,
		"query": params.Query,
	})
	defer span.End()

	result, err := c.executeProductSearch(ctx, buildProductSearchQuery(params))
	if err != nil {
		telemetry.RecordServiceError(span, "elasticsearch", err)
		return nil, err
	}

	telemetry.RecordServiceSuccess(span, map[string]interface{}{
		"item_count": len(result.Products),
	})
	return result, nil
}

// executeProductSearch executes a product search query
func (c *Client) executeProductSearch(ctx context.Context, query map[string]interface{}) (*SearchProductsResult, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(IndexProducts),
		c.es.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var errResp map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil {
			return nil, fmt.Errorf("error response [%s]", res.Status())
		}
		return nil, fmt.Errorf("error searching products: [%s] %v", res.Status(), errResp["error"])
	}

	var searchResp struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string                 `json:"_id"`
				Score  float64                `json:"_score"`
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	products := make([]ProductSearchHit, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		product := ProductSearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if storeID, ok := hit.Source["store_id"].(string); ok {
			product.StoreID = storeID
		}
		if storeName, ok := hit.Source["store_name"].(string); ok {
			product.StoreName = storeName
		}
		if name, ok := hit.Source["name"].(string); ok {
			product.Name = name
		}
		if description, ok := hit.Source["description"].(string); ok {
			product.Description = description
		}
		if category, ok := hit.Source["category"].(string); ok {
			product.Category = category
		}
		if tags, ok := hit.Source["tags"].([]interface{}); ok {
			product.Tags = make([]string, 0, len(tags))
			for _, t := range tags {
				if ts, ok := t.(string); ok {
					product.Tags = append(product.Tags, ts)
				}
			}
		}
		if priceCents, ok := hit.Source["price_cents"].(float64); ok {
			product.PriceCents = int64(priceCents)
		}
		if currency, ok := hit.Source["currency"].(string); ok {
			product.Currency = currency
		}
		if stock, ok := hit.Source["stock"].(float64); ok {
			product.Stock = int(stock)
		}
		if isAvailable, ok := hit.Source["is_available"].(bool); ok {
			product.IsAvailable = isAvailable
		}
		if ratingAvg, ok := hit.Source["rating_avg"].(float64); ok {
			product.RatingAvg = ratingAvg
		}
		if ratingCount, ok := hit.Source["rating_count"].(float64); ok {
			product.RatingCount = int(ratingCount)
		}
		if favoriteCount, ok := hit.Source["favorite_count"].(float64); ok {
			product.FavoriteCount = int(favoriteCount)
		}
		if createdAt, ok := hit.Source["created_at"].(string); ok {
			product.CreatedAt = createdAt
		}

		products = append(products, product)
	}

	return &SearchProductsResult{
		Products: products,
		Total:    searchResp.Hits.Total.Value,
	}, nil
}

// SearchStoresResult represents a store search result
type SearchStoresResult struct {
	Stores []StoreSearchHit `json:"stores"`
	Total  int              `json:"total"`
}

// StoreSearchHit represents a single store search hit
type StoreSearchHit struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	City         string  `json:"city"`
	Country      string  `json:"country"`
	IsOpen       bool    `json:"is_open"`
	ProductCount int     `json:"product_count"`
	RatingAvg    float64 `json:"rating_avg"`
	RatingCount  int     `json:"rating_count"`
	Score        float64 `json:"score"`
}

// SearchStores searches for stores by query
func (c *Client) SearchStores(ctx context.Context, query string, limit, offset int) (*SearchStoresResult, error) {
	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []map[string]interface{}{
					{
						"match": map[string]interface{}{
							"name": map[string]interface{}{
								"query":         query,
								"boost":         2.0,
								"fuzziness":     "AUTO",
								"prefix_length": 1,
							},
						},
					},
					{
						"match": map[string]interface{}{
							"description": map[string]interface{}{
								"query":     query,
								"boost":     0.5,
								"fuzziness": "AUTO",
							},
						},
					},
				},
				"minimum_should_match": 1,
				"must": []map[string]interface{}{
					{
						"term": map[string]interface{}{
							"is_open": true,
						},
					},
				},
			},
		},
		"sort": []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"rating_avg": map[string]interface{}{"order": "desc"}},
		},
		"from": offset,
		"size": limit,
	}

	ctx, span := telemetry.TraceElasticsearchCall(ctx, "search", map[string]interface{}{
		"index": IndexStores,
		"query": query,
	})
	defer span.End()

	result, err := c.executeStoreSearch(ctx, searchQuery)
	if err != nil {
		telemetry.RecordServiceError(span, "elasticsearch", err)
		return nil, err
	}

	telemetry.RecordServiceSuccess(span, map[string]interface{}{
		"item_count": len(result.Stores),
	})
	return result, nil
}

// executeStoreSearch executes a store search query
func (c *Client) executeStoreSearch(ctx context.Context, query map[string]interface{}) (*SearchStoresResult, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(IndexStores),
		c.es.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var errResp map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil {
			return nil, fmt.Errorf("error response [%s]", res.Status())
		}
		return nil, fmt.Errorf("error searching stores: [%s] %v", res.Status(), errResp["error"])
	}

	var searchResp struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string                 `json:"_id"`
				Score  float64                `json:"_score"`
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	stores := make([]StoreSearchHit, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		store := StoreSearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if name, ok := hit.Source["name"].(string); ok {
			store.Name = name
		}
		if description, ok := hit.Source["description"].(string); ok {
			store.Description = description
		}
		if city, ok := hit.Source["city"].(string); ok {
			store.City = city
		}
		if country, ok := hit.Source["country"].(string); ok {
			store.Country = country
		}
		if isOpen, ok := hit.Source["is_open"].(bool); ok {
			store.IsOpen = isOpen
		}
		if productCount, ok := hit.Source["product_count"].(float64); ok {
			store.ProductCount = int(productCount)
		}
		if ratingAvg, ok := hit.Source["rating_avg"].(float64); ok {
			store.RatingAvg = ratingAvg
		}
		if ratingCount, ok := hit.Source["rating_count"].(float64); ok {
			store.RatingCount = int(ratingCount)
		}

		stores = append(stores, store)
	}

	return &SearchStoresResult{
		Stores: stores,
		Total:  searchResp.Hits.Total.Value,
	}, nil
}

// SuggestProducts returns autocomplete suggestions for product names
func (c *Client) SuggestProducts(ctx context.Context, query string, limit int) ([]string, error) {
	suggestQuery := map[string]interface{}{
		"suggest": map[string]interface{}{
			"name_suggest": map[string]interface{}{
				"prefix": query,
				"completion": map[string]interface{}{
					"field": "name.suggest",
					"size":  limit,
				},
			},
		},
	}

	queryJSON, err := json.Marshal(suggestQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal suggest query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(IndexProducts),
		c.es.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute suggest: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var errResp map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&errResp); err != nil {
			return nil, fmt.Errorf("error response [%s]", res.Status())
		}
		return nil, fmt.Errorf("error suggesting products: [%s] %v", res.Status(), errResp["error"])
	}

	var suggestResp struct {
		Suggest struct {
			NameSuggest []struct {
				Options []struct {
					Text string `json:"text"`
				} `json:"options"`
			} `json:"name_suggest"`
		} `json:"suggest"`
	}

	if err := json.NewDecoder(res.Body).Decode(&suggestResp); err != nil {
		return nil, fmt.Errorf("failed to decode suggest response: %w", err)
	}

	suggestions := make([]string, 0)
	if len(suggestResp.Suggest.NameSuggest) > 0 {
		for _, option := range suggestResp.Suggest.NameSuggest[0].Options {
			suggestions = append(suggestions, option.Text)
		}
	}

	return suggestions, nil
}
