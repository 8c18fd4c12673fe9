package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/models"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Initialize database connection
	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	fmt.Println("🔍 Verifying seed data...")
	fmt.Println()

	// Count records
	var userCount, storeCount, productCount, reviewCount, favoriteCount, cartItemCount, designCount, templateCount, policyCount int64

	database.DB.Model(&models.User{}).Count(&userCount)
	database.DB.Model(&models.Store{}).Count(&storeCount)
	database.DB.Model(&models.Product{}).Count(&productCount)
	database.DB.Model(&models.Review{}).Count(&reviewCount)
	database.DB.Model(&models.Favorite{}).Count(&favoriteCount)
	database.DB.Model(&models.CartItem{}).Count(&cartItemCount)
	database.DB.Model(&models.StoreDesign{}).Count(&designCount)
	database.DB.Model(&models.PolicyTemplate{}).Count(&templateCount)
	database.DB.Model(&models.StorePolicy{}).Count(&policyCount)

	fmt.Println("📊 Record Counts:")
	fmt.Printf("  Users:            %d\n", userCount)
	fmt.Printf("  Stores:           %d\n", storeCount)
	fmt.Printf("  Products:         %d\n", productCount)
	fmt.Printf("  Reviews:          %d\n", reviewCount)
	fmt.Printf("  Favorites:        %d\n", favoriteCount)
	fmt.Printf("  Cart Items:       %d\n", cartItemCount)
	fmt.Printf("  Store Designs:    %d\n", designCount)
	fmt.Printf("  Policy Templates: %d\n", templateCount)
	fmt.Printf("  Store Policies:   %d\n", policyCount)
	fmt.Println()

	// Sample data
	fmt.Println("📝 Sample Data:")
	fmt.Println()

	// Sample users
	var users []models.User
	database.DB.Limit(3).Find(&users)
	fmt.Println("  Sample Users:")
	for _, u := range users {
		fmt.Printf("    - %s (@%s) - %s\n", u.DisplayName, u.Username, u.Role)
	}
	fmt.Println()

	// Sample stores
	var stores []models.Store
	database.DB.Limit(3).Find(&stores)
	fmt.Println("  Sample Stores:")
	for _, s := range stores {
		open := "closed"
		if s.IsOpen {
			open = "open"
		}
		fmt.Printf("    - %s (%s) - %d products, rating %.1f\n", s.Name, open, s.ProductCount, s.RatingAvg)
	}
	fmt.Println()

	// Sample products
	var products []models.Product
	database.DB.Limit(3).Find(&products)
	fmt.Println("  Sample Products:")
	for _, p := range products {
		fmt.Printf("    - %s - $%.2f, %s, ★ %.1f (%d)\n",
			p.Name, float64(p.PriceCents)/100, p.Category, p.RatingAvg, p.RatingCount)
	}
	fmt.Println()

	// Category distribution
	type categoryCount struct {
		Category string
		Count    int64
	}
	var categories []categoryCount
	database.DB.Model(&models.Product{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("count DESC").
		Limit(5).
		Scan(&categories)
	fmt.Println("  Top Categories:")
	for _, c := range categories {
		fmt.Printf("    - %s (%d products)\n", c.Category, c.Count)
	}
	fmt.Println()

	// Verify relationships
	fmt.Println("🔗 Relationship Verification:")
	var productWithStore models.Product
	database.DB.Preload("Store").First(&productWithStore)
	if productWithStore.Store.ID != "" {
		fmt.Printf("  ✅ Products have store relationships\n")
	}

	var reviewWithAuthor models.Review
	database.DB.Preload("Author").Preload("Product").First(&reviewWithAuthor)
	if reviewWithAuthor.Author.ID != "" && reviewWithAuthor.Product.ID != "" {
		fmt.Printf("  ✅ Reviews have author and product relationships\n")
	}

	var designWithBlocks models.StoreDesign
	database.DB.First(&designWithBlocks)
	if len(designWithBlocks.Blocks) > 0 {
		fmt.Printf("  ✅ Store designs carry blocks (%d in first design)\n", len(designWithBlocks.Blocks))
	}

	var defaultTemplates int64
	database.DB.Model(&models.PolicyTemplate{}).Where("is_default = true").Count(&defaultTemplates)
	if defaultTemplates > 0 {
		fmt.Printf("  ✅ Default policy templates present (%d)\n", defaultTemplates)
	}
	fmt.Println()

	// Export sample data as JSON for API testing
	if len(os.Args) > 1 && os.Args[1] == "--json" && len(users) > 0 && len(stores) > 0 && len(products) > 0 {
		sampleData := map[string]interface{}{
			"user_id":    users[0].ID,
			"username":   users[0].Username,
			"store_id":   stores[0].ID,
			"product_id": products[0].ID,
		}
		jsonData, _ := json.MarshalIndent(sampleData, "", "  ")
		fmt.Println("📋 Sample IDs for API testing:")
		fmt.Println(string(jsonData))
	}

	fmt.Println("✅ Seed data verification complete!")
}
