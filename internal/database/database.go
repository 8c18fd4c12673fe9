package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vendora/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection
func Initialize() error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		// Fallback to individual components
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "vendora")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	log.Println("✅ Database connected successfully")

	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	// Enable UUID extension for PostgreSQL
	err := DB.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
	if err != nil {
		log.Printf("Warning: Could not create uuid-ossp extension: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.PasswordReset{},
		&models.WithdrawnAccount{},
		&models.Store{},
		&models.PolicyTemplate{},
		&models.StorePolicy{},
		&models.Product{},
		&models.ProductImage{},
		&models.Review{},
		&models.Favorite{},
		&models.CartItem{},
		&models.StoreDesign{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("✅ Database migrations completed")
	return nil
}

// createIndexes creates performance and uniqueness indexes. The partial
// unique indexes are what hold the one-per-pair invariants among live rows.
func createIndexes() error {
	// User indexes
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))")

	// One live store per vendor
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_stores_vendor_live ON stores (vendor_id) WHERE deleted_at IS NULL")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_stores_open ON stores (is_open) WHERE deleted_at IS NULL")

	// Product browse paths
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_products_store_created ON products (store_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_products_category ON products (category) WHERE deleted_at IS NULL")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_products_price ON products (price_cents)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_products_rating ON products (rating_avg DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_products_favorites ON products (favorite_count DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_products_tags ON products USING GIN (tags)")

	// Product image ordering
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_product_images_product ON product_images (product_id, position)")

	// One live review per (product, author)
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_reviews_product_author ON reviews (product_id, author_id) WHERE deleted_at IS NULL")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reviews_product_created ON reviews (product_id, created_at DESC)")

	// One live favorite per (user, product)
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_favorites_user_product ON favorites (user_id, product_id) WHERE deleted_at IS NULL")

	// One cart row per (user, product)
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_user_product ON cart_items (user_id, product_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_cart_items_user ON cart_items (user_id, updated_at DESC)")

	// One policy row per (store, kind)
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_store_policies_store_kind ON store_policies (store_id, kind)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_policy_templates_kind ON policy_templates (kind) WHERE deleted_at IS NULL")

	// Designs: the store_id unique index comes from the model tag; add the
	// autosave conflict-read path
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_store_designs_updated ON store_designs (store_id, updated_at DESC)")

	// Password reset lookups
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_password_resets_user ON password_resets (user_id)")

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
