package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/vendora/backend/internal/database"
)

// Removes rows that reference a product no longer in the products table.
// The retention purge hard-deletes a withdrawn vendor's catalog and
// cleans referencing rows best-effort; anything it missed, or rows left
// by manual data surgery, ends up dangling here.

// Tables carrying a product_id foreign reference, in delete order
var orphanTables = []string{
	"cart_items",
	"favorites",
	"reviews",
	"product_images",
}

type orphanRow struct {
	ID        string
	ProductID string
}

func main() {
	log.Println("🧹 Cleaning up orphaned product references")
	log.Println("==========================================")
	log.Println()

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Connect to database
	log.Println("🔄 Connecting to database...")
	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("✅ Database connected")
	log.Println()

	var totalRemoved int64
	for _, table := range orphanTables {
		totalRemoved += cleanupTable(table)
	}

	log.Println()
	if totalRemoved == 0 {
		log.Println("✅ No orphaned rows found")
	} else {
		log.Printf("✅ Removed %d orphaned rows\n", totalRemoved)
	}
	log.Println()
	log.Println("💡 Rows referencing live or soft-deleted products have been preserved")
}

func cleanupTable(table string) int64 {
	// Soft-deleted products still have a row, so NOT EXISTS only matches
	// references to products that are gone for good
	where := "NOT EXISTS (SELECT 1 FROM products WHERE products.id = " + table + ".product_id)"

	var count int64
	if err := database.DB.Table(table).Where(where).Count(&count).Error; err != nil {
		log.Printf("❌ Failed to count orphaned %s: %v\n", table, err)
		return 0
	}

	if count == 0 {
		log.Printf("✅ %s: no orphans\n", table)
		return 0
	}

	log.Printf("📊 %s: found %d orphaned rows\n", table, count)

	// Show a sample of what will be deleted
	var sample []orphanRow
	if err := database.DB.Table(table).Select("id, product_id").Where(where).Limit(10).Scan(&sample).Error; err == nil {
		for i, row := range sample {
			log.Printf("  [%d] %s (product: %s)\n", i+1, row.ID, row.ProductID)
		}
		if count > int64(len(sample)) {
			log.Printf("  ... and %d more\n", count-int64(len(sample)))
		}
	}

	result := database.DB.Exec("DELETE FROM " + table + " WHERE " + where)
	if result.Error != nil {
		log.Printf("❌ Failed to delete orphaned %s: %v\n", table, result.Error)
		return 0
	}

	log.Printf("🗑️ %s: removed %d rows\n", table, result.RowsAffected)
	log.Println()
	return result.RowsAffected
}
