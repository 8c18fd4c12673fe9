// Package ticker maintains the storefront price ticker: a Redis-cached
// snapshot of the most-favorited purchasable products, refreshed on an
// interval and pushed to realtime clients. The database is only hit on
// refresh or when the cache is cold.
package ticker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vendora/backend/internal/cache"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/middleware"
	"github.com/vendora/backend/internal/realtime"
)

const (
	// SnapshotKey holds the serialized ticker snapshot in Redis
	SnapshotKey = "ticker:snapshot"

	historyPrefix = "ticker:history:"

	// DefaultInterval matches the storefront's header rotation cadence
	DefaultInterval = 15 * time.Second
	// DefaultSize is how many products the ticker carries
	DefaultSize = 20

	snapshotTTL = 2 * time.Minute

	// ~24 minutes of distinct price moves at the default interval
	historyDepth = 96
	historyTTL   = 24 * time.Hour
)

// PricePoint is one recorded price in a product's history, newest first
type PricePoint struct {
	PriceCents int64 `json:"price_cents"`
	At         int64 `json:"at"`
}

// Entry is one product line in the ticker
type Entry struct {
	ProductID     string  `json:"product_id"`
	Name          string  `json:"name"`
	StoreID       string  `json:"store_id"`
	StoreName     string  `json:"store_name,omitempty"`
	PriceCents    int64   `json:"price_cents"`
	Currency      string  `json:"currency"`
	ChangeCents   int64   `json:"change_cents"`
	ChangePct     float64 `json:"change_pct"`
	FavoriteCount int     `json:"favorite_count"`
}

// Snapshot is the full ticker state served by GET /ticker
type Snapshot struct {
	Entries     []Entry   `json:"entries"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Service refreshes the ticker in the background and serves snapshots
type Service struct {
	cache    *cache.RedisClient
	realtime *realtime.Handler
	interval time.Duration
	size     int

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewService creates a ticker service. The realtime handler may be nil;
// snapshots are then cached but not pushed.
func NewService(redisClient *cache.RedisClient, rt *realtime.Handler) *Service {
	return &Service{
		cache:    redisClient,
		realtime: rt,
		interval: DefaultInterval,
		size:     DefaultSize,
	}
}

// SetInterval overrides the refresh interval. Call before Start.
func (s *Service) SetInterval(interval time.Duration) {
	if interval > 0 {
		s.interval = interval
	}
}

// Start begins the background refresh loop
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go s.run()

	logger.Log.Info("📈 Price ticker started",
		zap.Duration("interval", s.interval),
		zap.Int("size", s.size),
	)
}

// Stop halts the refresh loop and waits for the current pass
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	stopChan := s.stopChan
	s.mu.Unlock()

	close(stopChan)
	s.wg.Wait()

	logger.Log.Info("Price ticker stopped")
}

func (s *Service) run() {
	defer s.wg.Done()

	// Populate the cache right away so the first page load has a ticker
	s.refresh()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refresh()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	snapshot, err := s.rebuild(ctx)
	middleware.RecordTickerRefresh("background", time.Since(start), err)
	if err != nil {
		logger.Log.Error("Ticker refresh failed", zap.Error(err))
		return
	}

	if s.realtime != nil {
		s.realtime.BroadcastTicker(snapshotToPayload(snapshot))
	}
}

// GetSnapshot returns the current ticker, preferring the cached copy and
// rebuilding from the database when the cache is cold or unavailable.
func (s *Service) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	if s.cache != nil {
		var snapshot Snapshot
		err := s.cache.GetJSON(ctx, SnapshotKey, &snapshot)
		if err == nil {
			return &snapshot, nil
		}
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("Ticker cache read failed", zap.Error(err))
		}
	}

	start := time.Now()
	snapshot, err := s.rebuild(ctx)
	middleware.RecordTickerRefresh("fallback", time.Since(start), err)
	return snapshot, err
}

// History returns the recorded price points for one product, newest first
func (s *Service) History(ctx context.Context, productID string) ([]PricePoint, error) {
	if s.cache == nil {
		return []PricePoint{}, nil
	}

	raw, err := s.cache.LRange(ctx, historyPrefix+productID, 0, historyDepth-1)
	if err != nil {
		return nil, err
	}

	points := make([]PricePoint, 0, len(raw))
	for _, r := range raw {
		points = append(points, parsePricePoint(r))
	}
	return points, nil
}

// rebuild queries the featured products and assembles a fresh snapshot,
// caching it when Redis is available.
func (s *Service) rebuild(ctx context.Context) (*Snapshot, error) {
	rows, err := s.queryFeatured(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		change, pct := s.recordPrice(ctx, row.ID, row.PriceCents)
		entries = append(entries, Entry{
			ProductID:     row.ID,
			Name:          row.Name,
			StoreID:       row.StoreID,
			StoreName:     row.StoreName,
			PriceCents:    row.PriceCents,
			Currency:      row.Currency,
			ChangeCents:   change,
			ChangePct:     pct,
			FavoriteCount: row.FavoriteCount,
		})
	}

	snapshot := &Snapshot{
		Entries:     entries,
		RefreshedAt: time.Now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, SnapshotKey, snapshot, snapshotTTL); err != nil {
			logger.Log.Warn("Failed to cache ticker snapshot", zap.Error(err))
		}
	}

	return snapshot, nil
}

type featuredRow struct {
	ID            string
	Name          string
	StoreID       string
	StoreName     string
	PriceCents    int64
	Currency      string
	FavoriteCount int
}

// queryFeatured selects the top-favorited purchasable products of open
// stores. Explicit join because the snapshot needs the store name without
// loading full store rows.
func (s *Service) queryFeatured(ctx context.Context) ([]featuredRow, error) {
	var rows []featuredRow
	err := database.DB.WithContext(ctx).
		Table("products").
		Select("products.id, products.name, products.store_id, stores.name AS store_name, products.price_cents, products.currency, products.favorite_count").
		Joins("JOIN stores ON stores.id = products.store_id AND stores.deleted_at IS NULL").
		Where("products.deleted_at IS NULL").
		Where("products.is_available = ?", true).
		Where("products.stock > 0").
		Where("stores.is_open = ?", true).
		Order("products.favorite_count DESC, products.created_at DESC").
		Limit(s.size).
		Scan(&rows).Error
	return rows, err
}

// recordPrice appends to the product's history when the price moved and
// returns the delta against the previous distinct price.
func (s *Service) recordPrice(ctx context.Context, productID string, current int64) (int64, float64) {
	if s.cache == nil {
		return 0, 0
	}

	key := historyPrefix + productID

	head, err := s.cache.LRange(ctx, key, 0, 0)
	if err != nil || len(head) == 0 || parsePricePoint(head[0]).PriceCents != current {
		point, _ := json.Marshal(PricePoint{PriceCents: current, At: time.Now().Unix()})
		if err := s.cache.LPush(ctx, key, string(point)); err != nil {
			logger.Log.Warn("Failed to record ticker price",
				zap.String("product_id", productID), zap.Error(err))
			return 0, 0
		}
		if err := s.cache.LTrim(ctx, key, 0, historyDepth-1); err != nil {
			logger.Log.Warn("Failed to trim ticker history",
				zap.String("product_id", productID), zap.Error(err))
		}
		if err := s.cache.Expire(ctx, key, historyTTL); err != nil {
			logger.Log.Warn("Failed to expire ticker history",
				zap.String("product_id", productID), zap.Error(err))
		}
	}

	top, err := s.cache.LRange(ctx, key, 0, 1)
	if err != nil || len(top) < 2 {
		return 0, 0
	}

	return computeChange(parsePricePoint(top[1]).PriceCents, current)
}

func parsePricePoint(raw string) PricePoint {
	var p PricePoint
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return PricePoint{}
	}
	return p
}

// computeChange returns the cent delta and percent move from prev to current
func computeChange(prev, current int64) (int64, float64) {
	if prev <= 0 {
		return 0, 0
	}
	change := current - prev
	return change, float64(change) / float64(prev) * 100
}

// snapshotToPayload maps a snapshot onto the realtime broadcast shape
func snapshotToPayload(s *Snapshot) *realtime.TickerUpdatePayload {
	entries := make([]realtime.TickerEntryPayload, 0, len(s.Entries))
	for _, e := range s.Entries {
		entries = append(entries, realtime.TickerEntryPayload{
			ProductID:     e.ProductID,
			Name:          e.Name,
			StoreID:       e.StoreID,
			StoreName:     e.StoreName,
			PriceCents:    e.PriceCents,
			Currency:      e.Currency,
			ChangeCents:   e.ChangeCents,
			ChangePct:     e.ChangePct,
			FavoriteCount: e.FavoriteCount,
		})
	}
	return &realtime.TickerUpdatePayload{
		Entries:     entries,
		RefreshedAt: s.RefreshedAt.UnixMilli(),
	}
}
