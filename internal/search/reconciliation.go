package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/models"
)

// ReconciliationService periodically re-indexes random samples of products
// and stores so that rating and favorite counters in Elasticsearch don't
// drift too far from the database between write-path updates.
type ReconciliationService struct {
	searchClient *Client
	interval     time.Duration

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewReconciliationService creates a reconciliation service
func NewReconciliationService(searchClient *Client) *ReconciliationService {
	return &ReconciliationService{
		searchClient: searchClient,
		interval:     15 * time.Minute,
	}
}

// Start begins the background reconciliation loop
func (s *ReconciliationService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go s.run()

	logger.Log.Info("🔄 Search reconciliation service started",
		zap.Duration("interval", s.interval))
}

// Stop halts the reconciliation loop and waits for the current pass
func (s *ReconciliationService) Stop() {
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

	logger.Log.Info("Search reconciliation service stopped")
}

func (s *ReconciliationService) run() {
	defer s.wg.Done()

	// First pass right away so a fresh deploy converges quickly
	s.reconcile()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reconcile()
		case <-s.stopChan:
			return
		}
	}
}

func (s *ReconciliationService) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.reconcileProductEngagement(ctx); err != nil {
		logger.Log.Error("Product reconciliation failed", zap.Error(err))
	}
	if err := s.reconcileStoreRatings(ctx); err != nil {
		logger.Log.Error("Store reconciliation failed", zap.Error(err))
	}
}

// reconcileProductEngagement re-indexes a random sample of products.
// Random sampling spreads coverage across the catalog over successive
// passes without ever scanning the whole table.
func (s *ReconciliationService) reconcileProductEngagement(ctx context.Context) error {
	var products []models.Product
	if err := database.DB.WithContext(ctx).
		Preload("Store").
		Order("RANDOM()").
		Limit(100).
		Find(&products).Error; err != nil {
		return err
	}

	reindexed := 0
	for _, product := range products {
		doc := ProductToSearchDoc(product, product.Store)
		if err := s.searchClient.IndexProduct(ctx, product.ID, doc); err != nil {
			logger.Log.Warn("Failed to reconcile product",
				zap.String("product_id", product.ID), zap.Error(err))
			continue
		}
		reindexed++
	}

	if reindexed > 0 {
		logger.Log.Debug("Reconciled product sample", zap.Int("count", reindexed))
	}
	return nil
}

// reconcileStoreRatings re-indexes a random sample of stores
func (s *ReconciliationService) reconcileStoreRatings(ctx context.Context) error {
	var stores []models.Store
	if err := database.DB.WithContext(ctx).
		Order("RANDOM()").
		Limit(50).
		Find(&stores).Error; err != nil {
		return err
	}

	reindexed := 0
	for _, store := range stores {
		if err := s.searchClient.IndexStore(ctx, store.ID, StoreToSearchDoc(store)); err != nil {
			logger.Log.Warn("Failed to reconcile store",
				zap.String("store_id", store.ID), zap.Error(err))
			continue
		}
		reindexed++
	}

	if reindexed > 0 {
		logger.Log.Debug("Reconciled store sample", zap.Int("count", reindexed))
	}
	return nil
}
