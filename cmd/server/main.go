package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vendora/backend/internal/alerts"
	"github.com/vendora/backend/internal/auth"
	"github.com/vendora/backend/internal/autosave"
	"github.com/vendora/backend/internal/cache"
	"github.com/vendora/backend/internal/config"
	"github.com/vendora/backend/internal/container"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/email"
	"github.com/vendora/backend/internal/handlers"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/maintenance"
	"github.com/vendora/backend/internal/middleware"
	"github.com/vendora/backend/internal/realtime"
	"github.com/vendora/backend/internal/search"
	"github.com/vendora/backend/internal/storage"
	"github.com/vendora/backend/internal/telemetry"
	"github.com/vendora/backend/internal/ticker"
	"github.com/vendora/backend/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const serviceName = "vendora-backend"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Structured logging with rotation
	if err := logger.Initialize(getEnv("LOG_LEVEL", "info"), getEnv("LOG_FILE", "logs/server.log")); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log.Info("=== Vendora server starting ===")

	// Distributed tracing (no-op unless OTEL_ENABLED=true)
	otelCfg := telemetry.LoadConfigFromEnv(serviceName)
	tracerProvider, err := telemetry.InitTracer(otelCfg)
	if err != nil {
		logger.WarnErr("Failed to initialize tracing, continuing without it", err)
		tracerProvider = nil
	}

	// Initialize database
	if err := database.Initialize(); err != nil {
		logger.FatalErr("Failed to initialize database", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.FatalErr("Failed to run migrations", err)
	}

	// Fail fast when a service listed in REQUIRED_SERVICES is unreachable
	if err := validation.NewServiceValidator().ValidateServices(context.Background()); err != nil {
		logger.FatalErr("Required service validation failed", err)
	}

	// Auth service
	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}

	var googleCfg *oauth2.Config
	if oauthCfg, err := config.LoadOAuthConfig(); err != nil {
		logger.WarnErr("Google sign-in disabled", err)
	} else {
		googleCfg = oauthCfg.GoogleConfig
	}
	authService := auth.NewService(jwtSecret, googleCfg)

	// Redis cache (optional - response caching and ticker caching degrade without it)
	redisClient, err := cache.NewRedisClient(
		os.Getenv("REDIS_HOST"),
		os.Getenv("REDIS_PORT"),
		os.Getenv("REDIS_PASSWORD"),
	)
	if err != nil {
		logger.WarnErr("Redis unavailable, continuing without response caching", err)
		redisClient = nil
	}

	// Realtime hub for studio presence, save results, and ticker pushes
	hub := realtime.NewHub()
	go hub.Run()
	realtimeHandler := realtime.NewHandler(hub, jwtSecret)
	realtimeHandler.RegisterDefaultHandlers()

	// Autosave manager for design studio sessions
	autosaveManager := autosave.NewManager(autosave.NewGormStore(database.DB))
	autosaveManager.SetResultCallback(func(result autosave.SaveResult) {
		realtimeHandler.PublishSaveResult(&result)
	})

	// Elasticsearch (optional - search falls back to SQL without it)
	var searchClient *search.Client
	var cachedSearch *search.CachedClient
	var reconciliation *search.ReconciliationService
	searchClient, err = search.NewClient()
	if err != nil {
		logger.WarnErr("Elasticsearch unavailable, search will use database fallback", err)
		searchClient = nil
	} else {
		initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := searchClient.InitializeIndices(initCtx); err != nil {
			logger.WarnErr("Failed to initialize search indices", err)
		}
		cancel()

		cachedSearch = search.NewCachedClient(searchClient)
		reconciliation = search.NewReconciliationService(searchClient)
		reconciliation.Start()
	}

	// Price ticker refresh loop
	tickerService := ticker.NewService(redisClient, realtimeHandler)
	tickerService.Start()

	// SES email (optional - password reset emails are skipped without it)
	var emailService *email.EmailService
	if fromEmail := os.Getenv("SES_FROM_EMAIL"); fromEmail != "" {
		emailService, err = email.NewEmailService(
			os.Getenv("AWS_REGION"),
			fromEmail,
			getEnv("SES_FROM_NAME", "Vendora"),
			getEnv("APP_BASE_URL", "http://localhost:3000"),
		)
		if err != nil {
			logger.WarnErr("SES unavailable, password reset emails disabled", err)
			emailService = nil
		}
	} else {
		logger.Log.Info("SES_FROM_EMAIL not set - password reset emails disabled")
	}

	// S3 media storage (optional - upload endpoints return 503 without it)
	var s3Uploader *storage.S3Uploader
	var snapshotStorage *storage.SnapshotStorage
	if bucket := os.Getenv("AWS_BUCKET"); bucket != "" {
		s3Uploader, err = storage.NewS3Uploader(os.Getenv("AWS_REGION"), bucket, os.Getenv("CDN_BASE_URL"))
		if err != nil {
			logger.WarnErr("Failed to initialize S3 uploader", err)
			s3Uploader = nil
		} else if err := s3Uploader.CheckBucketAccess(context.Background()); err != nil {
			logger.WarnErr("S3 bucket access failed, media uploads will fail", err)
		}

		snapshotStorage, err = storage.NewSnapshotStorage(os.Getenv("AWS_REGION"), bucket, os.Getenv("CDN_BASE_URL"))
		if err != nil {
			logger.WarnErr("Failed to initialize snapshot storage", err)
			snapshotStorage = nil
		}
	} else {
		logger.Log.Info("AWS_BUCKET not set - media uploads disabled")
	}

	// Alerting on search and autosave health
	alertManager := alerts.NewAlertManager()
	alertEvaluator := alerts.NewEvaluator(alertManager)
	alertEvaluator.InitializeDefaultRules()
	evaluatorStop := alertEvaluator.StartEvaluationLoop(time.Minute)

	// Background housekeeping: spent reset tokens and withdrawn-account erasure
	var fileDeleter maintenance.FileDeleter
	if s3Uploader != nil {
		fileDeleter = s3Uploader
	}
	var previewDeleter maintenance.PreviewDeleter
	if snapshotStorage != nil {
		previewDeleter = snapshotStorage
	}
	cleanupService := maintenance.NewCleanupService(fileDeleter, previewDeleter, 1*time.Hour, retentionFromEnv())
	cleanupService.Start()

	// Service container for the admin surface and shutdown bookkeeping
	c := container.New().
		WithDB(database.DB).
		WithLogger(logger.Log).
		WithAuthService(authService).
		WithRealtimeHandler(realtimeHandler).
		WithAutosaveManager(autosaveManager).
		WithTickerService(tickerService).
		WithAlertManager(alertManager).
		WithAlertEvaluator(alertEvaluator)
	if redisClient != nil {
		c.SetCache(redisClient)
		c.OnCleanup(func(ctx context.Context) error { return redisClient.Close() })
	}
	if searchClient != nil {
		c.SetSearchClient(searchClient)
		c.SetCachedSearch(cachedSearch)
		c.OnCleanup(func(ctx context.Context) error { return cachedSearch.Close() })
	}
	if s3Uploader != nil {
		c.SetS3Uploader(s3Uploader)
	}
	if snapshotStorage != nil {
		c.SetSnapshotStorage(snapshotStorage)
	}
	if emailService != nil {
		c.SetEmailService(emailService)
	}
	if err := c.Validate(); err != nil {
		logger.FatalErr("Service container validation failed", err)
	}

	// Handlers
	h := handlers.NewHandlers(authService)
	h.SetRealtimeHandler(realtimeHandler)
	h.SetAutosaveManager(autosaveManager)
	h.SetTickerService(tickerService)
	if cachedSearch != nil {
		h.SetSearchClient(cachedSearch)
	}
	if s3Uploader != nil {
		h.SetUploader(s3Uploader)
	}
	if snapshotStorage != nil {
		h.SetSnapshotStorage(snapshotStorage)
	}
	if emailService != nil {
		h.SetEmailService(emailService)
	}
	adminHandlers := handlers.NewAdminHandler(c)

	// Setup Gin router
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CorrelationMiddleware())
	if otelCfg.Enabled && tracerProvider != nil {
		r.Use(middleware.TracingMiddleware(serviceName))
		r.Use(middleware.SpanEnrichmentMiddleware())
	}
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	// Response compression. The websocket upgrade and the Prometheus scrape
	// endpoint handle their own encoding.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/ws", "/metrics"})))

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000"), ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true // OAuth state cookie
	r.Use(cors.New(corsConfig))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
	searchLimiter := middleware.NewRateLimiter(middleware.SearchRateLimitConfig())
	uploadLimiter := middleware.NewRateLimiter(middleware.UploadRateLimitConfig())

	// Public routes
	public := r.Group("/api/v1")
	{
		// Authentication
		authGroup := public.Group("/auth")
		{
			authGroup.POST("/register", authLimiter, h.Register)
			authGroup.POST("/login", authLimiter, h.Login)
			authGroup.GET("/google", h.GoogleLogin)
			authGroup.GET("/google/callback", h.GoogleCallback)
			authGroup.POST("/reset-password", authLimiter, h.RequestPasswordReset)
			authGroup.POST("/reset-password/confirm", authLimiter, h.ResetPassword)
		}

		// Browse
		public.GET("/stores", h.ListStores)
		public.GET("/stores/:id", h.GetStore)
		public.GET("/stores/:id/policies", h.GetStorePolicies)
		public.GET("/stores/:id/policies/:kind", h.GetStorePolicy)
		public.GET("/stores/:id/design", h.OptionalAuthMiddleware(), h.GetDesign)
		public.GET("/products", h.ListProducts)
		public.GET("/products/:id", h.OptionalAuthMiddleware(), h.GetProduct)
		public.GET("/products/:id/reviews", h.ListProductReviews)
		public.GET("/policy-templates", h.ListPolicyTemplates)

		// Search
		public.GET("/search/products", searchLimiter, h.SearchProducts)
		public.GET("/search/stores", searchLimiter, h.SearchStores)
		public.GET("/search/suggest", searchLimiter, h.SuggestProducts)

		// Price ticker
		public.GET("/ticker", h.GetTicker)
		public.GET("/ticker/:product_id/history", h.GetTickerHistory)

		// Realtime socket - authenticates inside via token query param or header
		public.GET("/ws", realtimeHandler.HandleWebSocket)
		public.GET("/ws/connect", realtimeHandler.HandleWebSocket)
	}

	// Authenticated routes
	api := r.Group("/api/v1")
	api.Use(h.AuthMiddleware())
	{
		// Account
		api.GET("/me", h.GetMe)
		api.PUT("/me", h.UpdateMe)
		api.POST("/2fa/setup", h.Setup2FA)
		api.POST("/2fa/enable", h.Enable2FA)
		api.POST("/2fa/disable", h.Disable2FA)
		api.GET("/2fa/status", h.Get2FAStatus)
		api.POST("/account/withdraw", h.WithdrawAccount)

		// Store management
		api.POST("/stores", h.CreateStore)
		api.GET("/my/store", h.GetMyStore)
		api.PUT("/stores/:id", h.UpdateStore)
		api.PUT("/stores/:id/open", h.SetStoreOpen)
		api.DELETE("/stores/:id", h.DeleteStore)
		api.POST("/stores/:id/logo", uploadLimiter, h.UploadStoreLogo)
		api.PUT("/stores/:id/policies/:kind", h.PutStorePolicy)

		// Catalog management
		api.POST("/stores/:id/products", h.CreateProduct)
		api.PUT("/products/:id", h.UpdateProduct)
		api.PUT("/products/:id/stock", h.AdjustStock)
		api.DELETE("/products/:id", h.DeleteProduct)
		api.POST("/products/:id/images", uploadLimiter, h.UploadProductImage)
		api.DELETE("/products/:id/images/:image_id", h.DeleteProductImage)
		api.PUT("/products/:id/images/reorder", h.ReorderProductImages)

		// Reviews and favorites
		api.POST("/products/:id/reviews", h.CreateReview)
		api.PUT("/reviews/:id", h.UpdateReview)
		api.DELETE("/reviews/:id", h.DeleteReview)
		api.PUT("/products/:id/favorite", h.FavoriteProduct)
		api.DELETE("/products/:id/favorite", h.UnfavoriteProduct)
		api.GET("/favorites", h.ListFavorites)

		// Cart
		api.POST("/cart/items", h.AddCartItem)
		api.PUT("/cart/items/:product_id", h.UpdateCartItem)
		api.DELETE("/cart/items/:product_id", h.RemoveCartItem)
		api.GET("/cart", h.GetCart)
		api.DELETE("/cart", h.ClearCart)

		// Design studio
		api.POST("/stores/:id/design/blocks", h.AppendBlock)
		api.PUT("/stores/:id/design/blocks/:block_id", h.UpdateBlock)
		api.DELETE("/stores/:id/design/blocks/:block_id", h.DeleteBlock)
		api.POST("/stores/:id/design/blocks/reorder", h.ReorderBlocks)
		api.POST("/stores/:id/design/publish", h.PublishDesign)
		api.POST("/stores/:id/design/revert", h.RevertDesign)
		api.POST("/stores/:id/design/preview", uploadLimiter, h.UploadDesignPreview)
		api.POST("/stores/:id/design/assets", uploadLimiter, h.UploadDesignAsset)

		// Autosave sessions
		api.POST("/stores/:id/design/sessions", h.OpenDesignSession)
		api.PUT("/stores/:id/design", h.UpdateDesign)
		api.POST("/stores/:id/design/save", h.SaveDesignNow)
		api.POST("/stores/:id/design/sessions/:session_id/rebase", h.RebaseDesignSession)
		api.DELETE("/stores/:id/design/sessions/:session_id", h.CloseDesignSession)
	}

	// Admin routes
	admin := r.Group("/api/v1")
	admin.Use(h.AuthMiddleware(), middleware.RequireAdmin())
	{
		admin.POST("/policy-templates", h.CreatePolicyTemplate)
		admin.PUT("/policy-templates/:id", h.UpdatePolicyTemplate)
		admin.DELETE("/policy-templates/:id", h.DeletePolicyTemplate)

		admin.GET("/admin/metrics", adminHandlers.GetMetrics)
		admin.GET("/admin/alerts", adminHandlers.GetAlerts)
		admin.POST("/admin/alerts/:id/resolve", adminHandlers.ResolveAlert)
		admin.GET("/admin/alerts/rules", adminHandlers.GetAlertRules)
		admin.PUT("/admin/alerts/rules/:id", adminHandlers.UpdateAlertRule)
		admin.POST("/admin/search/reindex", adminHandlers.ReindexSearch)
	}

	// Server configuration
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("🏪 Vendora backend listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalErr("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests and pending saves 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := realtimeHandler.Shutdown(ctx); err != nil {
		logger.WarnErr("Realtime shutdown warning", err)
	}

	tickerService.Stop()
	if reconciliation != nil {
		reconciliation.Stop()
	}
	cleanupService.Stop()
	close(evaluatorStop)

	// Flush every open autosave session before the DB goes away
	if err := autosaveManager.Close(ctx); err != nil {
		logger.WarnErr("Autosave flush warning", err)
	}

	if err := c.Cleanup(ctx); err != nil {
		logger.WarnErr("Container cleanup warning", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorErr("Server forced to shutdown", err)
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.WarnErr("Tracer shutdown warning", err)
		}
	}

	logger.Log.Info("Server exited")
}

// retentionFromEnv reads the withdrawn-account retention window, default 30 days
func retentionFromEnv() time.Duration {
	if v := os.Getenv("WITHDRAWAL_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	return 30 * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
