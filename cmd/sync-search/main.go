package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/models"
	"github.com/vendora/backend/internal/search"
)

func main() {
	log.Println("🔄 Syncing catalog to Elasticsearch")
	log.Println("===================================")
	log.Println()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Initialize database
	log.Println("🔄 Connecting to database...")
	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("✅ Database connected")
	log.Println()

	// Initialize search client
	log.Println("🔍 Connecting to Elasticsearch...")
	searchClient, err := search.NewClient()
	if err != nil {
		log.Fatalf("❌ Failed to initialize search client: %v", err)
	}
	log.Println("✅ Elasticsearch connected")
	log.Println()

	// Parse command
	command := "all"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	switch command {
	case "all":
		initIndices(ctx, searchClient)
		syncProducts(ctx, searchClient)
		syncStores(ctx, searchClient)
	case "products":
		initIndices(ctx, searchClient)
		syncProducts(ctx, searchClient)
	case "stores":
		initIndices(ctx, searchClient)
		syncStores(ctx, searchClient)
	case "check":
		check(ctx, searchClient)
	default:
		fmt.Println("Usage: sync-search [all|products|stores|check]")
		fmt.Println("  all       - Reindex products and stores (default)")
		fmt.Println("  products  - Reindex products only")
		fmt.Println("  stores    - Reindex stores only")
		fmt.Println("  check     - Compare index counts against the database")
		os.Exit(1)
	}
}

func initIndices(ctx context.Context, client *search.Client) {
	// Creates missing indices with their mappings; existing ones are kept
	if err := client.InitializeIndices(ctx); err != nil {
		log.Fatalf("❌ Failed to initialize indices: %v", err)
	}
}

func syncProducts(ctx context.Context, client *search.Client) {
	log.Println("📦 Reindexing Products")
	log.Println("======================")

	count, err := client.ReindexAllProducts(ctx)
	if err != nil {
		log.Printf("❌ Product reindex finished with errors after %d documents: %v\n", count, err)
	} else {
		log.Printf("✅ Indexed %d products\n", count)
	}
	log.Println()
}

func syncStores(ctx context.Context, client *search.Client) {
	log.Println("🏪 Reindexing Stores")
	log.Println("====================")

	count, err := client.ReindexAllStores(ctx)
	if err != nil {
		log.Printf("❌ Store reindex finished with errors after %d documents: %v\n", count, err)
	} else {
		log.Printf("✅ Indexed %d stores\n", count)
	}
	log.Println()
}

func check(ctx context.Context, client *search.Client) {
	log.Println("🔍 Checking index counts against the database")
	log.Println("=============================================")
	log.Println()

	drifted := false

	var productCount int64
	if err := database.DB.Model(&models.Product{}).Count(&productCount).Error; err != nil {
		log.Fatalf("❌ Failed to count products: %v", err)
	}
	indexedProducts, err := client.CountDocuments(ctx, search.IndexProducts)
	if err != nil {
		log.Fatalf("❌ Failed to count indexed products: %v", err)
	}
	if productCount != indexedProducts {
		drifted = true
		log.Printf("⚠️  Products: %d in database, %d indexed\n", productCount, indexedProducts)
	} else {
		log.Printf("✅ Products: %d in database, %d indexed\n", productCount, indexedProducts)
	}

	var storeCount int64
	if err := database.DB.Model(&models.Store{}).Count(&storeCount).Error; err != nil {
		log.Fatalf("❌ Failed to count stores: %v", err)
	}
	indexedStores, err := client.CountDocuments(ctx, search.IndexStores)
	if err != nil {
		log.Fatalf("❌ Failed to count indexed stores: %v", err)
	}
	if storeCount != indexedStores {
		drifted = true
		log.Printf("⚠️  Stores: %d in database, %d indexed\n", storeCount, indexedStores)
	} else {
		log.Printf("✅ Stores: %d in database, %d indexed\n", storeCount, indexedStores)
	}

	log.Println()
	if drifted {
		log.Println("💡 Run 'sync-search all' to rebuild the indices")
	} else {
		log.Println("✅ Indices match the database")
	}
}
