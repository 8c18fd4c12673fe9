// Package container provides dependency injection management for the Vendora backend.
// It consolidates all services and provides type-safe access to dependencies.
package container

import (
	"context"
	"sync"

	"github.com/vendora/backend/internal/alerts"
	"github.com/vendora/backend/internal/auth"
	"github.com/vendora/backend/internal/autosave"
	"github.com/vendora/backend/internal/cache"
	"github.com/vendora/backend/internal/email"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/realtime"
	"github.com/vendora/backend/internal/search"
	"github.com/vendora/backend/internal/storage"
	"github.com/vendora/backend/internal/ticker"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies and provides type-safe access.
// It implements the Service Locator pattern with additional lifecycle management.
type Container struct {
	// Core infrastructure
	db     *gorm.DB
	logger *zap.Logger
	cache  *cache.RedisClient

	// API clients
	search       *search.Client
	cachedSearch *search.CachedClient
	s3           *storage.S3Uploader
	snapshots    *storage.SnapshotStorage
	email        *email.EmailService
	auth         *auth.Service
	realtime     *realtime.Handler

	// Features
	autosave       *autosave.Manager
	ticker         *ticker.Service
	alertManager   *alerts.AlertManager
	alertEvaluator *alerts.Evaluator

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty container.
// Services should be registered using Set* methods.
func New() *Container {
	return &Container{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// ============================================================================
// CORE INFRASTRUCTURE SETTERS/GETTERS
// ============================================================================

// SetDB registers the database connection
func (c *Container) SetDB(db *gorm.DB) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

// DB returns the database connection
func (c *Container) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// SetLogger registers the logger
func (c *Container) SetLogger(l *zap.Logger) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
	return c
}

// Logger returns the logger instance
func (c *Container) Logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.logger == nil {
		return logger.Log
	}
	return c.logger
}

// SetCache registers the Redis cache client
func (c *Container) SetCache(client *cache.RedisClient) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = client
	return c
}

// Cache returns the Redis cache client
func (c *Container) Cache() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

// ============================================================================
// API CLIENT SETTERS/GETTERS
// ============================================================================

// SetSearchClient registers the Elasticsearch client
func (c *Container) SetSearchClient(client *search.Client) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = client
	return c
}

// Search returns the Elasticsearch client
func (c *Container) Search() *search.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.search
}

// SetCachedSearch registers the cache-wrapped search client
func (c *Container) SetCachedSearch(client *search.CachedClient) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedSearch = client
	return c
}

// CachedSearch returns the cache-wrapped search client
func (c *Container) CachedSearch() *search.CachedClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cachedSearch
}

// SetS3Uploader registers the S3 media uploader
func (c *Container) SetS3Uploader(uploader *storage.S3Uploader) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s3 = uploader
	return c
}

// S3 returns the S3 media uploader
func (c *Container) S3() *storage.S3Uploader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s3
}

// SetSnapshotStorage registers the design preview snapshot storage
func (c *Container) SetSnapshotStorage(snapshots *storage.SnapshotStorage) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = snapshots
	return c
}

// Snapshots returns the design preview snapshot storage
func (c *Container) Snapshots() *storage.SnapshotStorage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshots
}

// SetEmailService registers the SES email service
func (c *Container) SetEmailService(service *email.EmailService) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.email = service
	return c
}

// Email returns the SES email service
func (c *Container) Email() *email.EmailService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.email
}

// SetAuthService registers the authentication service
func (c *Container) SetAuthService(service *auth.Service) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = service
	return c
}

// Auth returns the authentication service
func (c *Container) Auth() *auth.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

// SetRealtimeHandler registers the WebSocket realtime handler
func (c *Container) SetRealtimeHandler(handler *realtime.Handler) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.realtime = handler
	return c
}

// Realtime returns the WebSocket realtime handler
func (c *Container) Realtime() *realtime.Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.realtime
}

// ============================================================================
// FEATURE SETTERS/GETTERS
// ============================================================================

// SetAutosaveManager registers the design autosave manager
func (c *Container) SetAutosaveManager(manager *autosave.Manager) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autosave = manager
	return c
}

// Autosave returns the design autosave manager
func (c *Container) Autosave() *autosave.Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.autosave
}

// SetTickerService registers the price ticker service
func (c *Container) SetTickerService(service *ticker.Service) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticker = service
	return c
}

// Ticker returns the price ticker service
func (c *Container) Ticker() *ticker.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticker
}

// SetAlertManager registers the alert manager
func (c *Container) SetAlertManager(manager *alerts.AlertManager) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alertManager = manager
	return c
}

// AlertManager returns the alert manager
func (c *Container) AlertManager() *alerts.AlertManager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alertManager
}

// SetAlertEvaluator registers the alert evaluator
func (c *Container) SetAlertEvaluator(evaluator *alerts.Evaluator) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alertEvaluator = evaluator
	return c
}

// AlertEvaluator returns the alert evaluator
func (c *Container) AlertEvaluator() *alerts.Evaluator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alertEvaluator
}

// ============================================================================
// LIFECYCLE MANAGEMENT
// ============================================================================

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first cleaned up).
// This ensures proper dependency ordering during shutdown.
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup performs graceful shutdown of all registered services.
// It calls cleanup functions in reverse order of registration.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	funcs := make([]func(context.Context) error, len(c.cleanupFuncs))
	copy(funcs, c.cleanupFuncs)
	c.mu.Unlock()

	// Call cleanup functions in reverse order (LIFO)
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			// Log error but continue cleanup
			c.Logger().Error("Cleanup function failed",
				zap.Int("index", i),
				zap.Error(err))
		}
	}

	return nil
}

// ============================================================================
// VALIDATION
// ============================================================================

// Validate checks that all required dependencies are registered.
// This should be called after initialization and before starting the server.
func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	missingDeps := []string{}

	if c.db == nil {
		missingDeps = append(missingDeps, "database (DB)")
	}
	if c.auth == nil {
		missingDeps = append(missingDeps, "auth service")
	}
	if c.realtime == nil {
		missingDeps = append(missingDeps, "realtime handler")
	}
	if c.autosave == nil {
		missingDeps = append(missingDeps, "autosave manager")
	}

	// Optional services degrade features rather than break startup
	optionalDeps := []struct {
		name  string
		value interface{}
	}{
		{"Redis cache", c.cache},
		{"Elasticsearch search", c.search},
		{"S3 uploader", c.s3},
		{"Snapshot storage", c.snapshots},
		{"SES email", c.email},
		{"Price ticker", c.ticker},
	}
	for _, dep := range optionalDeps {
		if isNilValue(dep.value) {
			c.Logger().Warn("Optional dependency not registered", zap.String("dependency", dep.name))
		}
	}

	if len(missingDeps) > 0 {
		return NewInitializationError("Missing required dependencies", missingDeps)
	}

	return nil
}

// isNilValue reports whether an interface wraps a nil concrete pointer
func isNilValue(v interface{}) bool {
	switch t := v.(type) {
	case *cache.RedisClient:
		return t == nil
	case *search.Client:
		return t == nil
	case *storage.S3Uploader:
		return t == nil
	case *storage.SnapshotStorage:
		return t == nil
	case *email.EmailService:
		return t == nil
	case *ticker.Service:
		return t == nil
	}
	return v == nil
}

// ============================================================================
// FLUENT API SUPPORT
// ============================================================================

// WithDB is a fluent setter for database
func (c *Container) WithDB(db *gorm.DB) *Container {
	return c.SetDB(db)
}

// WithLogger is a fluent setter for logger
func (c *Container) WithLogger(l *zap.Logger) *Container {
	return c.SetLogger(l)
}

// WithCache is a fluent setter for cache
func (c *Container) WithCache(client *cache.RedisClient) *Container {
	return c.SetCache(client)
}

// WithSearchClient is a fluent setter for Elasticsearch
func (c *Container) WithSearchClient(client *search.Client) *Container {
	return c.SetSearchClient(client)
}

// WithCachedSearch is a fluent setter for the cached search client
func (c *Container) WithCachedSearch(client *search.CachedClient) *Container {
	return c.SetCachedSearch(client)
}

// WithS3Uploader is a fluent setter for S3
func (c *Container) WithS3Uploader(uploader *storage.S3Uploader) *Container {
	return c.SetS3Uploader(uploader)
}

// WithSnapshotStorage is a fluent setter for snapshot storage
func (c *Container) WithSnapshotStorage(snapshots *storage.SnapshotStorage) *Container {
	return c.SetSnapshotStorage(snapshots)
}

// WithEmailService is a fluent setter for email
func (c *Container) WithEmailService(service *email.EmailService) *Container {
	return c.SetEmailService(service)
}

// WithAuthService is a fluent setter for auth
func (c *Container) WithAuthService(service *auth.Service) *Container {
	return c.SetAuthService(service)
}

// WithRealtimeHandler is a fluent setter for the realtime handler
func (c *Container) WithRealtimeHandler(handler *realtime.Handler) *Container {
	return c.SetRealtimeHandler(handler)
}

// WithAutosaveManager is a fluent setter for the autosave manager
func (c *Container) WithAutosaveManager(manager *autosave.Manager) *Container {
	return c.SetAutosaveManager(manager)
}

// WithTickerService is a fluent setter for the price ticker
func (c *Container) WithTickerService(service *ticker.Service) *Container {
	return c.SetTickerService(service)
}

// WithAlertManager is a fluent setter for alert manager
func (c *Container) WithAlertManager(manager *alerts.AlertManager) *Container {
	return c.SetAlertManager(manager)
}

// WithAlertEvaluator is a fluent setter for alert evaluator
func (c *Container) WithAlertEvaluator(evaluator *alerts.Evaluator) *Container {
	return c.SetAlertEvaluator(evaluator)
}
