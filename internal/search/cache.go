package search

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/telemetry"
)

// CachedClient wraps the search client with Redis caching for hot queries
type CachedClient struct {
	*Client
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedClient creates a search client with Redis caching.
// If Redis is unreachable the client still works, just uncached.
func NewCachedClient(client *Client) *CachedClient {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	var rdb *redis.Client
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Log.Warn("⚠️ Search cache disabled, invalid REDIS_URL", zap.Error(err))
	} else {
		rdb = redis.NewClient(opt)
	}

	return &CachedClient{
		Client: client,
		redis:  rdb,
		ttl:    5 * time.Minute,
	}
}

// cacheKey builds a deterministic key from the search parameters
func cacheKey(prefix string, params interface{}) string {
	data, _ := json.Marshal(params)
	return fmt.Sprintf("search:%s:%x", prefix, md5.Sum(data))
}

// SearchProducts searches products, serving repeated queries from cache
func (c *CachedClient) SearchProducts(ctx context.Context, params SearchProductsParams) (*SearchProductsResult, error) {
	if c.redis == nil {
		return c.Client.SearchProducts(ctx, params)
	}

	key := cacheKey("products", params)

	ctx, span := telemetry.TraceCacheCall(ctx, "get", map[string]interface{}{
		"key": key,
	})
	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var result SearchProductsResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			telemetry.RecordServiceSuccess(span, map[string]interface{}{"cached": true})
			span.End()
			return &result, nil
		}
	}
	span.End()

	result, err := c.Client.SearchProducts(ctx, params)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.Log.Warn("⚠️ Failed to cache product search", zap.Error(err))
		}
	}

	return result, nil
}

// SearchStores searches stores, serving repeated queries from cache
func (c *CachedClient) SearchStores(ctx context.Context, query string, limit, offset int) (*SearchStoresResult, error) {
	if c.redis == nil {
		return c.Client.SearchStores(ctx, query, limit, offset)
	}

	key := cacheKey("stores", struct {
		Query  string
		Limit  int
		Offset int
	}{query, limit, offset})

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var result SearchStoresResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return &result, nil
		}
	}

	result, err := c.Client.SearchStores(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.Log.Warn("⚠️ Failed to cache store search", zap.Error(err))
		}
	}

	return result, nil
}

// InvalidateProductCache drops cached product searches after catalog writes
func (c *CachedClient) InvalidateProductCache(ctx context.Context) error {
	return c.invalidatePrefix(ctx, "search:products:*")
}

// InvalidateStoreCache drops cached store searches after store updates
func (c *CachedClient) InvalidateStoreCache(ctx context.Context) error {
	return c.invalidatePrefix(ctx, "search:stores:*")
}

func (c *CachedClient) invalidatePrefix(ctx context.Context, pattern string) error {
	if c.redis == nil {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Log.Warn("⚠️ Failed to delete cache key", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if deleted > 0 {
		logger.Log.Debug("Invalidated search cache", zap.String("pattern", pattern), zap.Int("keys", deleted))
	}

	return nil
}

// Close releases the cache connection
func (c *CachedClient) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}
