package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/models"
	"github.com/vendora/backend/internal/search"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db           *gorm.DB
	searchClient *search.Client
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	// Seed random generator for reproducible results
	// Note: Seed returns an error only for invalid sources, time.Now().UnixNano() is always valid
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SetSearchClient sets the Elasticsearch client for indexing seeded catalogs
func (s *Seeder) SetSearchClient(sc *search.Client) {
	s.searchClient = sc
}

// SeedDev seeds the development database with a realistic marketplace:
// shoppers, vendors with stores, catalogs of varied size, reviews,
// favorites, carts, store designs, and the policy template library.
func (s *Seeder) SeedDev() error {
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating shoppers...")
	shoppers, err := s.seedShoppers(60)
	if err != nil {
		return fmt.Errorf("failed to seed shoppers: %w", err)
	}

	log("Creating vendors and stores...")
	stores, err := s.seedVendorsWithStores(15)
	if err != nil {
		return fmt.Errorf("failed to seed stores: %w", err)
	}

	log("Creating policy templates...")
	templates, err := s.seedPolicyTemplates()
	if err != nil {
		return fmt.Errorf("failed to seed policy templates: %w", err)
	}

	log("Creating store policies...")
	if err := s.seedStorePolicies(stores, templates); err != nil {
		return fmt.Errorf("failed to seed store policies: %w", err)
	}

	log("Creating products...")
	products, err := s.seedProductsWithVariedDistribution(stores)
	if err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	log("Creating reviews...")
	if err := s.seedReviews(shoppers, products, 600); err != nil {
		return fmt.Errorf("failed to seed reviews: %w", err)
	}

	log("Creating favorites...")
	if err := s.seedFavorites(shoppers, products, 800); err != nil {
		return fmt.Errorf("failed to seed favorites: %w", err)
	}

	log("Creating carts...")
	if err := s.seedCarts(shoppers, products); err != nil {
		return fmt.Errorf("failed to seed carts: %w", err)
	}

	log("Creating store designs...")
	if err := s.seedDesigns(stores, products); err != nil {
		return fmt.Errorf("failed to seed store designs: %w", err)
	}

	log("Recomputing cached aggregates...")
	if err := s.recomputeAggregates(); err != nil {
		return fmt.Errorf("failed to recompute aggregates: %w", err)
	}

	// Index to Elasticsearch if client is available
	if s.searchClient != nil {
		log("Indexing catalogs to Elasticsearch...")
		if err := s.syncToSearch(); err != nil {
			// Search can be backfilled later; don't fail the whole seed
			logger.Log.Warn("Failed to index seed data", zap.Error(err))
		}
	} else {
		log("Search client not configured - skipping index sync")
	}

	return nil
}

// SeedTest seeds the test database with fixed fixture accounts
func (s *Seeder) SeedTest() error {
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating test users...")
	// Create specific test users matching web/e2e/fixtures/test-users.ts
	testUserSpecs := []struct {
		username    string
		email       string
		displayName string
		role        models.UserRole
	}{
		{"alice", "alice@example.com", "Alice Smith", models.RoleShopper},
		{"bob", "bob@example.com", "Bob Johnson", models.RoleVendor},
		{"charlie", "charlie@example.com", "Charlie Brown", models.RoleShopper},
		{"diana", "diana@example.com", "Diana Prince", models.RoleVendor},
		{"eve", "eve@example.com", "Eve Wilson", models.RoleShopper},
	}

	var users []models.User
	for _, spec := range testUserSpecs {
		var user models.User
		err := s.db.Where("username = ? OR email = ?", spec.username, spec.email).First(&user).Error
		if err == nil {
			// User already exists
			users = append(users, user)
			continue
		}

		// Hash password (default: "password123" for test)
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		hashedPasswordStr := string(hashedPassword)

		user = models.User{
			Email:         spec.email,
			Username:      spec.username,
			DisplayName:   spec.displayName,
			PasswordHash:  &hashedPasswordStr,
			EmailVerified: true,
			AvatarURL:     fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", spec.username),
			Role:          spec.role,
		}

		if err := s.db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create test user %s: %w", spec.username, err)
		}

		users = append(users, user)
	}

	if len(users) == 0 {
		return fmt.Errorf("no test users available")
	}

	log("Creating test stores...")
	storeSpecs := []struct {
		vendorUsername string
		name           string
		slug           string
	}{
		{"bob", "Bob's Woodshop", "bobs-woodshop"},
		{"diana", "Diana Designs", "diana-designs"},
	}

	var stores []models.Store
	for _, spec := range storeSpecs {
		var store models.Store
		if err := s.db.Where("slug = ?", spec.slug).First(&store).Error; err == nil {
			stores = append(stores, store)
			continue
		}

		var vendor models.User
		if err := s.db.Where("username = ?", spec.vendorUsername).First(&vendor).Error; err != nil {
			return fmt.Errorf("test vendor %s not found: %w", spec.vendorUsername, err)
		}

		store = models.Store{
			VendorID:    vendor.ID,
			Name:        spec.name,
			Slug:        spec.slug,
			Description: fmt.Sprintf("Test storefront for %s", spec.name),
			City:        "Portland",
			Country:     "US",
			IsOpen:      true,
		}
		if err := s.db.Create(&store).Error; err != nil {
			return fmt.Errorf("failed to create test store %s: %w", spec.name, err)
		}
		stores = append(stores, store)
	}

	log("Creating test products...")
	for _, store := range stores {
		var count int64
		s.db.Model(&models.Product{}).Where("store_id = ?", store.ID).Count(&count)
		if count > 0 {
			continue
		}
		for i := 0; i < 3; i++ {
			product := models.Product{
				StoreID:     store.ID,
				Name:        fmt.Sprintf("%s Item %d", store.Name, i+1),
				Description: "Fixture product for end-to-end tests",
				PriceCents:  int64(1000 + i*500),
				Currency:    "usd",
				Stock:       10,
				IsAvailable: true,
				Category:    "home-goods",
			}
			if err := s.db.Create(&product).Error; err != nil {
				return fmt.Errorf("failed to create test product: %w", err)
			}
		}
	}

	if err := s.recomputeAggregates(); err != nil {
		return fmt.Errorf("failed to recompute aggregates: %w", err)
	}

	return nil
}

// Clean removes all seed data (use with caution!)
func (s *Seeder) Clean() error {
	// Delete in reverse order of dependencies
	if err := s.db.Exec("DELETE FROM cart_items").Error; err != nil {
		return fmt.Errorf("failed to clean cart_items: %w", err)
	}
	if err := s.db.Exec("DELETE FROM favorites").Error; err != nil {
		return fmt.Errorf("failed to clean favorites: %w", err)
	}
	if err := s.db.Exec("DELETE FROM reviews").Error; err != nil {
		return fmt.Errorf("failed to clean reviews: %w", err)
	}
	if err := s.db.Exec("DELETE FROM product_images").Error; err != nil {
		return fmt.Errorf("failed to clean product_images: %w", err)
	}
	if err := s.db.Exec("DELETE FROM products").Error; err != nil {
		return fmt.Errorf("failed to clean products: %w", err)
	}
	if err := s.db.Exec("DELETE FROM store_designs").Error; err != nil {
		return fmt.Errorf("failed to clean store_designs: %w", err)
	}
	if err := s.db.Exec("DELETE FROM store_policies").Error; err != nil {
		return fmt.Errorf("failed to clean store_policies: %w", err)
	}
	if err := s.db.Exec("DELETE FROM policy_templates").Error; err != nil {
		return fmt.Errorf("failed to clean policy_templates: %w", err)
	}
	if err := s.db.Exec("DELETE FROM stores").Error; err != nil {
		return fmt.Errorf("failed to clean stores: %w", err)
	}
	if err := s.db.Exec("DELETE FROM password_resets").Error; err != nil {
		return fmt.Errorf("failed to clean password_resets: %w", err)
	}
	if err := s.db.Exec("DELETE FROM withdrawn_accounts").Error; err != nil {
		return fmt.Errorf("failed to clean withdrawn_accounts: %w", err)
	}
	if err := s.db.Exec("DELETE FROM users").Error; err != nil {
		return fmt.Errorf("failed to clean users: %w", err)
	}

	return nil
}

// seedShoppers creates shopper accounts with realistic profiles
func (s *Seeder) seedShoppers(count int) ([]models.User, error) {
	var users []models.User

	// Check if we already have seed users (users with @example.com email)
	var seedUserCount int64
	s.db.Model(&models.User{}).Where("email LIKE '%@example.com'").Count(&seedUserCount)
	if seedUserCount >= int64(count) {
		if err := s.db.Where("role = ?", models.RoleShopper).Find(&users).Error; err != nil {
			return nil, err
		}
		logger.Log.Info("Found existing shoppers, skipping creation",
			zap.Int("total_shoppers", len(users)),
			zap.Int64("seed_users", seedUserCount))
		return users, nil
	}

	// Same password for every dev account, so hash once
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashedStr := string(hashed)

	for i := 0; i < count; i++ {
		username := gofakeit.Username()
		email := fmt.Sprintf("%s@example.com", strings.ToLower(username))

		// Ensure unique username/email
		var existingUser models.User
		for {
			if err := s.db.Where("username = ? OR email = ?", username, email).First(&existingUser).Error; err == gorm.ErrRecordNotFound {
				break
			}
			username = gofakeit.Username()
			email = fmt.Sprintf("%s@example.com", strings.ToLower(username))
		}

		user := models.User{
			Email:         email,
			Username:      username,
			DisplayName:   gofakeit.Name(),
			Bio:           gofakeit.HipsterSentence(),
			PasswordHash:  &hashedStr,
			EmailVerified: true,
			AvatarURL:     fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
			Role:          models.RoleShopper,
		}

		lastActive := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
		user.LastActiveAt = &lastActive

		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create shopper: %w", err)
		}

		users = append(users, user)
	}

	logger.Log.Info("Created seed shoppers", zap.Int("count", len(users)))
	return users, nil
}

// seedVendorsWithStores creates vendor accounts, each owning one store
func (s *Seeder) seedVendorsWithStores(count int) ([]models.Store, error) {
	var stores []models.Store

	var existingCount int64
	s.db.Model(&models.Store{}).Count(&existingCount)
	if existingCount >= int64(count) {
		if err := s.db.Find(&stores).Error; err != nil {
			return nil, err
		}
		logger.Log.Info("Found existing stores, skipping creation",
			zap.Int("total_stores", len(stores)))
		return stores, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashedStr := string(hashed)

	storeKinds := []string{"Goods", "Supply", "Studio", "Collective", "Market", "Atelier", "Workshop", "Emporium"}

	for i := 0; i < count; i++ {
		username := gofakeit.Username()
		email := fmt.Sprintf("%s@example.com", strings.ToLower(username))

		var existingUser models.User
		for {
			if err := s.db.Where("username = ? OR email = ?", username, email).First(&existingUser).Error; err == gorm.ErrRecordNotFound {
				break
			}
			username = gofakeit.Username()
			email = fmt.Sprintf("%s@example.com", strings.ToLower(username))
		}

		vendor := models.User{
			Email:         email,
			Username:      username,
			DisplayName:   gofakeit.Name(),
			Bio:           gofakeit.HipsterSentence(),
			PasswordHash:  &hashedStr,
			EmailVerified: true,
			AvatarURL:     fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
			Role:          models.RoleVendor,
		}
		if err := s.db.Create(&vendor).Error; err != nil {
			return nil, fmt.Errorf("failed to create vendor: %w", err)
		}

		word := gofakeit.Word()
		name := fmt.Sprintf("%s%s %s", strings.ToUpper(word[:1]), word[1:], storeKinds[rand.Intn(len(storeKinds))])
		slug := slugify(name)

		// Ensure unique slug
		var existingStore models.Store
		for {
			if err := s.db.Where("slug = ?", slug).First(&existingStore).Error; err == gorm.ErrRecordNotFound {
				break
			}
			slug = fmt.Sprintf("%s-%d", slugify(name), rand.Intn(10000))
		}

		store := models.Store{
			VendorID:    vendor.ID,
			Name:        name,
			Slug:        slug,
			Description: gofakeit.HipsterSentence(),
			City:        gofakeit.City(),
			Country:     gofakeit.Country(),
			IsOpen:      rand.Float32() < 0.9, // a few closed stores for filter coverage
		}
		if err := s.db.Create(&store).Error; err != nil {
			return nil, fmt.Errorf("failed to create store: %w", err)
		}

		stores = append(stores, store)
	}

	logger.Log.Info("Created seed stores", zap.Int("count", len(stores)))
	return stores, nil
}

// seedPolicyTemplates creates the admin-curated policy boilerplate library
func (s *Seeder) seedPolicyTemplates() ([]models.PolicyTemplate, error) {
	var templates []models.PolicyTemplate

	var existingCount int64
	s.db.Model(&models.PolicyTemplate{}).Count(&existingCount)
	if existingCount > 0 {
		if err := s.db.Find(&templates).Error; err != nil {
			return nil, err
		}
		return templates, nil
	}

	specs := []struct {
		kind      models.PolicyKind
		title     string
		body      string
		isDefault bool
	}{
		{
			models.PolicyShipping, "Standard shipping",
			"Orders ship within 3 business days. Domestic delivery takes 5-7 business days; international delivery takes 10-21 business days. Tracking is emailed once the order leaves our workshop.",
			true,
		},
		{
			models.PolicyShipping, "Made to order",
			"Every item is made after you order it. Please allow 1-2 weeks of production time before shipping. Once shipped, delivery takes 5-7 business days.",
			false,
		},
		{
			models.PolicyReturns, "30-day returns",
			"Returns are accepted within 30 days of delivery. Items must be unused and in their original packaging. Buyers cover return shipping unless the item arrived damaged.",
			true,
		},
		{
			models.PolicyReturns, "Final sale",
			"All sales are final. We cannot accept returns or exchanges on custom or personalized items. If your order arrives damaged, contact us within 7 days and we will make it right.",
			false,
		},
		{
			models.PolicyRefunds, "Full refund on return",
			"Refunds are issued to the original payment method within 5 business days of receiving the returned item. Original shipping costs are not refundable.",
			true,
		},
		{
			models.PolicyRefunds, "Store credit",
			"Approved returns are refunded as store credit valid for one year. Damaged or lost orders are refunded in full to the original payment method.",
			false,
		},
	}

	for _, spec := range specs {
		template := models.PolicyTemplate{
			Kind:      spec.kind,
			Title:     spec.title,
			Body:      spec.body,
			IsDefault: spec.isDefault,
		}
		if err := s.db.Create(&template).Error; err != nil {
			return nil, fmt.Errorf("failed to create policy template: %w", err)
		}
		templates = append(templates, template)
	}

	logger.Log.Info("Created policy templates", zap.Int("count", len(templates)))
	return templates, nil
}

// seedStorePolicies fills policy slots for most stores from the template library
func (s *Seeder) seedStorePolicies(stores []models.Store, templates []models.PolicyTemplate) error {
	byKind := make(map[models.PolicyKind][]models.PolicyTemplate)
	for _, t := range templates {
		byKind[t.Kind] = append(byKind[t.Kind], t)
	}

	created := 0
	for _, store := range stores {
		// 70% of stores have filled in their policies
		if rand.Float32() > 0.7 {
			continue
		}

		for _, kind := range []models.PolicyKind{models.PolicyShipping, models.PolicyReturns, models.PolicyRefunds} {
			options := byKind[kind]
			if len(options) == 0 {
				continue
			}
			// Refunds slot stays empty for some stores
			if kind == models.PolicyRefunds && rand.Float32() < 0.4 {
				continue
			}

			template := options[rand.Intn(len(options))]
			templateID := template.ID
			policy := models.StorePolicy{
				StoreID:    store.ID,
				Kind:       kind,
				Body:       template.Body,
				TemplateID: &templateID,
			}
			if err := s.db.Create(&policy).Error; err != nil {
				return fmt.Errorf("failed to create store policy: %w", err)
			}
			created++
		}
	}

	logger.Log.Info("Created store policies", zap.Int("count", created))
	return nil
}

// seedProductsWithVariedDistribution creates catalogs whose sizes follow the
// shape of a real marketplace: a few big stores, a long tail of small ones.
func (s *Seeder) seedProductsWithVariedDistribution(stores []models.Store) ([]models.Product, error) {
	var products []models.Product

	var existingCount int64
	s.db.Model(&models.Product{}).Count(&existingCount)
	if existingCount > 0 {
		if err := s.db.Find(&products).Error; err != nil {
			return nil, err
		}
		logger.Log.Info("Found existing products, skipping creation",
			zap.Int("total_products", len(products)))
		return products, nil
	}

	categories := []string{"apparel", "home-goods", "jewelry", "art", "electronics", "beauty", "toys", "stationery", "food", "outdoors"}

	catalogSize := func(storeIndex, storeCount int) int {
		// Top 10% of stores carry large catalogs, the middle carries modest
		// ones, and the tail is nearly empty
		position := float64(storeIndex) / float64(storeCount)
		switch {
		case position < 0.1:
			return 25 + rand.Intn(16) // 25-40
		case position < 0.4:
			return 8 + rand.Intn(13) // 8-20
		case position < 0.8:
			return 2 + rand.Intn(7) // 2-8
		default:
			return rand.Intn(3) // 0-2
		}
	}

	for i, store := range stores {
		count := catalogSize(i, len(stores))
		for j := 0; j < count; j++ {
			category := categories[rand.Intn(len(categories))]

			// Tag pool: the category plus a couple of descriptive words
			tags := models.StringArray{category}
			for t := 0; t < rand.Intn(3); t++ {
				tags = append(tags, strings.ToLower(gofakeit.Word()))
			}

			product := models.Product{
				StoreID:     store.ID,
				Name:        gofakeit.ProductName(),
				Description: gofakeit.ProductDescription(),
				PriceCents:  int64(500 + rand.Intn(29501)), // $5.00 - $300.00
				Currency:    "usd",
				Stock:       rand.Intn(50),
				IsAvailable: rand.Float32() < 0.92,
				Category:    category,
				Tags:        tags,
			}
			product.CreatedAt = gofakeit.DateRange(time.Now().AddDate(0, -6, 0), time.Now())

			if err := s.db.Create(&product).Error; err != nil {
				return nil, fmt.Errorf("failed to create product: %w", err)
			}

			// 0-4 gallery images; external placeholder URLs, so no S3 key
			imageCount := rand.Intn(5)
			for p := 0; p < imageCount; p++ {
				image := models.ProductImage{
					ProductID: product.ID,
					URL:       fmt.Sprintf("https://picsum.photos/seed/%s-%d/800/600", product.ID[:8], p),
					S3Key:     "",
					Position:  p,
				}
				if err := s.db.Create(&image).Error; err != nil {
					return nil, fmt.Errorf("failed to create product image: %w", err)
				}
			}

			products = append(products, product)
		}
	}

	logger.Log.Info("Created seed products", zap.Int("count", len(products)))
	return products, nil
}

// seedReviews creates reviews with a positively skewed rating distribution
func (s *Seeder) seedReviews(shoppers []models.User, products []models.Product, count int) error {
	if len(shoppers) == 0 || len(products) == 0 {
		return nil
	}

	titles := []string{
		"Exactly as described",
		"Better than expected",
		"Love it",
		"Solid quality",
		"Would buy again",
		"Not quite what I hoped",
		"Decent for the price",
		"Arrived quickly",
	}
	bodies := []string{
		"Shipping was fast and the packaging was careful. The photos match what arrived.",
		"Quality is great for the price. The vendor answered my questions within a day.",
		"It's fine, but the color is a little different from the listing photos.",
		"Third time ordering from this store and it never disappoints.",
		"Took longer to arrive than listed, though the item itself is well made.",
	}

	// One live review per (product, author)
	seen := make(map[string]bool)
	created := 0
	for attempts := 0; created < count && attempts < count*3; attempts++ {
		shopper := shoppers[rand.Intn(len(shoppers))]
		product := products[rand.Intn(len(products))]
		key := product.ID + ":" + shopper.ID
		if seen[key] {
			continue
		}
		seen[key] = true

		// Skew positive, the way live marketplaces rate
		var rating int
		switch r := rand.Float32(); {
		case r < 0.35:
			rating = 5
		case r < 0.65:
			rating = 4
		case r < 0.83:
			rating = 3
		case r < 0.93:
			rating = 2
		default:
			rating = 1
		}

		var body string
		if rand.Float32() < 0.5 {
			body = bodies[rand.Intn(len(bodies))]
		} else {
			body = gofakeit.HipsterSentence()
		}

		review := models.Review{
			ProductID: product.ID,
			AuthorID:  shopper.ID,
			Rating:    rating,
			Title:     titles[rand.Intn(len(titles))],
			Body:      body,
		}
		review.CreatedAt = gofakeit.DateRange(product.CreatedAt, time.Now())

		if err := s.db.Create(&review).Error; err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}
		created++
	}

	logger.Log.Info("Created seed reviews", zap.Int("count", created))
	return nil
}

// seedFavorites creates favorite marks across shoppers and products
func (s *Seeder) seedFavorites(shoppers []models.User, products []models.Product, count int) error {
	if len(shoppers) == 0 || len(products) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	created := 0
	for attempts := 0; created < count && attempts < count*3; attempts++ {
		shopper := shoppers[rand.Intn(len(shoppers))]
		// Bias toward the front of the product list so the ticker has clear leaders
		idx := rand.Intn(len(products))
		if rand.Float32() < 0.5 {
			idx = rand.Intn((len(products) / 4) + 1)
		}
		product := products[idx%len(products)]

		key := shopper.ID + ":" + product.ID
		if seen[key] {
			continue
		}
		seen[key] = true

		favorite := models.Favorite{
			UserID:    shopper.ID,
			ProductID: product.ID,
		}
		if err := s.db.Create(&favorite).Error; err != nil {
			return fmt.Errorf("failed to create favorite: %w", err)
		}
		created++
	}

	logger.Log.Info("Created seed favorites", zap.Int("count", created))
	return nil
}

// seedCarts puts open carts on a portion of shoppers
func (s *Seeder) seedCarts(shoppers []models.User, products []models.Product) error {
	if len(shoppers) == 0 || len(products) == 0 {
		return nil
	}

	created := 0
	for _, shopper := range shoppers {
		// 40% of shoppers left something in a cart
		if rand.Float32() > 0.4 {
			continue
		}

		itemCount := 1 + rand.Intn(4)
		seen := make(map[string]bool)
		for i := 0; i < itemCount; i++ {
			product := products[rand.Intn(len(products))]
			if seen[product.ID] || !product.IsAvailable {
				continue
			}
			seen[product.ID] = true

			item := models.CartItem{
				UserID:     shopper.ID,
				ProductID:  product.ID,
				Quantity:   1 + rand.Intn(3),
				PriceCents: product.PriceCents,
			}
			if err := s.db.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create cart item: %w", err)
			}
			created++
		}
	}

	logger.Log.Info("Created seed cart items", zap.Int("count", created))
	return nil
}

// seedDesigns gives every store a block layout; most are published
func (s *Seeder) seedDesigns(stores []models.Store, products []models.Product) error {
	productsByStore := make(map[string][]string)
	for _, p := range products {
		productsByStore[p.StoreID] = append(productsByStore[p.StoreID], p.ID)
	}

	created := 0
	for _, store := range stores {
		var existing models.StoreDesign
		if err := s.db.Where("store_id = ?", store.ID).First(&existing).Error; err == nil {
			continue
		}

		blocks := models.BlockList{
			{
				ID:       gofakeit.UUID(),
				Kind:     models.BlockBanner,
				Position: 0,
				Config: models.BlockConfig{
					ImageURL: fmt.Sprintf("https://picsum.photos/seed/%s-banner/1600/400", store.Slug),
					Headline: fmt.Sprintf("Welcome to %s", store.Name),
					AltText:  store.Name,
				},
			},
			{
				ID:       gofakeit.UUID(),
				Kind:     models.BlockText,
				Position: 1,
				Config: models.BlockConfig{
					Markdown:  fmt.Sprintf("## Our story\n\n%s", gofakeit.HipsterSentence()),
					Alignment: "center",
				},
			},
		}

		// Feature a grid when the store has products to show
		if ids := productsByStore[store.ID]; len(ids) > 0 {
			gridIDs := ids
			if len(gridIDs) > 8 {
				gridIDs = gridIDs[:8]
			}
			blocks = append(blocks, models.DesignBlock{
				ID:       gofakeit.UUID(),
				Kind:     models.BlockProductGrid,
				Position: len(blocks),
				Config: models.BlockConfig{
					ProductIDs: gridIDs,
					Columns:    2 + rand.Intn(3),
					ShowPrices: true,
				},
			})
		}

		blocks = append(blocks, models.DesignBlock{
			ID:       gofakeit.UUID(),
			Kind:     models.BlockDivider,
			Position: len(blocks),
		})

		design := models.StoreDesign{
			StoreID: store.ID,
			Blocks:  blocks,
			Version: int64(1 + rand.Intn(12)),
		}

		// 60% of stores have published their layout
		if rand.Float32() < 0.6 {
			publishedAt := gofakeit.DateRange(time.Now().AddDate(0, -3, 0), time.Now())
			design.PublishedBlocks = blocks
			design.PublishedAt = &publishedAt
		}

		if err := s.db.Create(&design).Error; err != nil {
			return fmt.Errorf("failed to create store design: %w", err)
		}
		created++
	}

	logger.Log.Info("Created store designs", zap.Int("count", created))
	return nil
}

// recomputeAggregates refreshes the cached rollup columns from source rows.
// Seeding writes rows directly, bypassing the handler-side rollup updates.
func (s *Seeder) recomputeAggregates() error {
	if err := s.db.Exec(`
		UPDATE products SET
			rating_count = sub.cnt,
			rating_avg   = sub.avg
		FROM (
			SELECT product_id, COUNT(*) AS cnt, ROUND(AVG(rating)::numeric, 2) AS avg
			FROM reviews WHERE deleted_at IS NULL GROUP BY product_id
		) sub
		WHERE products.id = sub.product_id`).Error; err != nil {
		return fmt.Errorf("product rating rollup: %w", err)
	}

	if err := s.db.Exec(`
		UPDATE products SET favorite_count = sub.cnt
		FROM (
			SELECT product_id, COUNT(*) AS cnt
			FROM favorites WHERE deleted_at IS NULL GROUP BY product_id
		) sub
		WHERE products.id = sub.product_id`).Error; err != nil {
		return fmt.Errorf("favorite rollup: %w", err)
	}

	if err := s.db.Exec(`
		UPDATE stores SET product_count = COALESCE(sub.cnt, 0)
		FROM (
			SELECT store_id, COUNT(*) AS cnt
			FROM products WHERE deleted_at IS NULL GROUP BY store_id
		) sub
		WHERE stores.id = sub.store_id`).Error; err != nil {
		return fmt.Errorf("product count rollup: %w", err)
	}

	if err := s.db.Exec(`
		UPDATE stores SET
			rating_count = sub.cnt,
			rating_avg   = sub.avg
		FROM (
			SELECT p.store_id, COUNT(r.id) AS cnt, ROUND(AVG(r.rating)::numeric, 2) AS avg
			FROM reviews r
			JOIN products p ON p.id = r.product_id AND p.deleted_at IS NULL
			WHERE r.deleted_at IS NULL
			GROUP BY p.store_id
		) sub
		WHERE stores.id = sub.store_id`).Error; err != nil {
		return fmt.Errorf("store rating rollup: %w", err)
	}

	return nil
}

// syncToSearch bulk indexes the seeded catalog into Elasticsearch
func (s *Seeder) syncToSearch() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.searchClient.InitializeIndices(ctx); err != nil {
		return fmt.Errorf("initialize indices: %w", err)
	}

	productCount, err := s.searchClient.ReindexAllProducts(ctx)
	if err != nil {
		return fmt.Errorf("index products: %w", err)
	}
	storeCount, err := s.searchClient.ReindexAllStores(ctx)
	if err != nil {
		return fmt.Errorf("index stores: %w", err)
	}

	logger.Log.Info("Indexed seed data",
		zap.Int("products", productCount),
		zap.Int("stores", storeCount))
	return nil
}

// slugify turns a display name into a URL-safe store slug
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
