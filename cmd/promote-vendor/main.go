package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/vendora/backend/internal/database"
	"github.com/vendora/backend/internal/models"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Parse command-line flags
	email := flag.String("email", "", "Email address of the user to change")
	admin := flag.Bool("admin", false, "Grant the admin role instead of vendor")
	revoke := flag.Bool("revoke", false, "Demote the user back to shopper")
	flag.Parse()

	if *email == "" {
		fmt.Println("Usage: go run cmd/promote-vendor/main.go -email=user@example.com")
		fmt.Println("       go run cmd/promote-vendor/main.go -email=user@example.com -admin")
		fmt.Println("       go run cmd/promote-vendor/main.go -email=user@example.com -revoke")
		return
	}

	// Initialize database
	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	defer database.Close()

	db := database.DB
	if db == nil {
		log.Fatal("Failed to get database connection")
	}

	// Find user by email
	var user models.User
	result := db.Where("email = ?", *email).First(&user)

	if result.Error != nil {
		fmt.Printf("❌ User not found: %s\n", *email)
		return
	}

	target := models.RoleVendor
	if *admin {
		target = models.RoleAdmin
	}
	if *revoke {
		target = models.RoleShopper
	}

	if user.Role == target {
		fmt.Printf("⚠️  User %s already has role %s\n", user.Username, target)
		return
	}

	previous := user.Role
	user.Role = target
	if err := db.Save(&user).Error; err != nil {
		fmt.Printf("❌ Failed to update role: %v\n", err)
		return
	}

	fmt.Printf("✓ Role changed for %s (%s): %s -> %s\n", user.Username, user.Email, previous, target)
	fmt.Printf("  User ID: %s\n", user.ID)
	if target == models.RoleShopper {
		var store models.Store
		if err := db.Where("vendor_id = ?", user.ID).First(&store).Error; err == nil {
			fmt.Printf("⚠️  User still owns store %q (%s); close or delete it separately\n", store.Name, store.ID)
		}
	} else {
		fmt.Printf("  The user must log out and log back in for changes to take effect\n")
	}
}
