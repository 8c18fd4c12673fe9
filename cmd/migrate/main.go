package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/vendora/backend/internal/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Parse command
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		runMigrationsUp()
	case "status":
		printStatus()
	case "down":
		runMigrationsDown()
	default:
		fmt.Println("Usage: migrate [up|status|down]")
		fmt.Println("  up     - Run all pending migrations")
		fmt.Println("  status - Show row counts for the core tables")
		fmt.Println("  down   - Rollback last migration (not implemented)")
		os.Exit(1)
	}
}

func runMigrationsUp() {
	log.Println("🔄 Connecting to database...")

	// Initialize database connection
	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	log.Println("✅ Database connected")
	log.Println("📈 Running migrations...")

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ All migrations completed successfully!")
}

func printStatus() {
	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	tables := []string{
		"users", "stores", "store_policies", "policy_templates",
		"products", "product_images", "reviews", "favorites",
		"cart_items", "store_designs", "password_resets", "withdrawn_accounts",
	}

	fmt.Println("Table row counts:")
	for _, table := range tables {
		var count int64
		if err := database.DB.Table(table).Count(&count).Error; err != nil {
			fmt.Printf("  %-20s (missing)\n", table)
			continue
		}
		fmt.Printf("  %-20s %d\n", table, count)
	}
}

func runMigrationsDown() {
	log.Println("❌ Migration rollback not yet implemented")
	log.Println("💡 Tip: Use GORM's AutoMigrate for schema updates in development")
	os.Exit(1)
}
