package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/vendora/backend/internal/database"
)

// Cached rollups (product ratings and favorite counts, store ratings and
// product counts) are refreshed on the write path, but a crashed request
// or manual data surgery can leave them stale. This tool rebuilds them
// from the source rows.

// rollup pairs the drift check for one cached counter with the statements
// that fix it. Fix statements only touch drifted rows, so RowsAffected
// reports how much drift there was.
type rollup struct {
	name  string
	check string
	fix   []string
}

var productRollups = []rollup{
	{
		name: "product ratings",
		check: `
			SELECT COUNT(*) FROM products
			LEFT JOIN (
				SELECT product_id,
				       ROUND(AVG(rating)::numeric, 2) AS avg_rating,
				       COUNT(*) AS review_count
				FROM reviews
				WHERE deleted_at IS NULL
				GROUP BY product_id
			) sub ON products.id = sub.product_id
			WHERE ROUND(products.rating_avg::numeric, 2) IS DISTINCT FROM COALESCE(sub.avg_rating, 0)
			   OR products.rating_count IS DISTINCT FROM COALESCE(sub.review_count, 0)`,
		fix: []string{
			`
			UPDATE products
			SET rating_avg = sub.avg_rating, rating_count = sub.review_count
			FROM (
				SELECT product_id,
				       ROUND(AVG(rating)::numeric, 2) AS avg_rating,
				       COUNT(*) AS review_count
				FROM reviews
				WHERE deleted_at IS NULL
				GROUP BY product_id
			) sub
			WHERE products.id = sub.product_id
			  AND (ROUND(products.rating_avg::numeric, 2) IS DISTINCT FROM sub.avg_rating
			       OR products.rating_count IS DISTINCT FROM sub.review_count)`,
			`
			UPDATE products
			SET rating_avg = 0, rating_count = 0
			WHERE (rating_avg <> 0 OR rating_count <> 0)
			  AND NOT EXISTS (
				SELECT 1 FROM reviews
				WHERE reviews.product_id = products.id AND reviews.deleted_at IS NULL)`,
		},
	},
	{
		name: "product favorite counts",
		check: `
			SELECT COUNT(*) FROM products
			LEFT JOIN (
				SELECT product_id, COUNT(*) AS fav_count
				FROM favorites
				WHERE deleted_at IS NULL
				GROUP BY product_id
			) sub ON products.id = sub.product_id
			WHERE products.favorite_count IS DISTINCT FROM COALESCE(sub.fav_count, 0)`,
		fix: []string{
			`
			UPDATE products
			SET favorite_count = sub.fav_count
			FROM (
				SELECT product_id, COUNT(*) AS fav_count
				FROM favorites
				WHERE deleted_at IS NULL
				GROUP BY product_id
			) sub
			WHERE products.id = sub.product_id
			  AND products.favorite_count IS DISTINCT FROM sub.fav_count`,
			`
			UPDATE products
			SET favorite_count = 0
			WHERE favorite_count <> 0
			  AND NOT EXISTS (
				SELECT 1 FROM favorites
				WHERE favorites.product_id = products.id AND favorites.deleted_at IS NULL)`,
		},
	},
}

var storeRollups = []rollup{
	{
		name: "store product counts",
		check: `
			SELECT COUNT(*) FROM stores
			LEFT JOIN (
				SELECT store_id, COUNT(*) AS live_count
				FROM products
				WHERE deleted_at IS NULL
				GROUP BY store_id
			) sub ON stores.id = sub.store_id
			WHERE stores.product_count IS DISTINCT FROM COALESCE(sub.live_count, 0)`,
		fix: []string{
			`
			UPDATE stores
			SET product_count = sub.live_count
			FROM (
				SELECT store_id, COUNT(*) AS live_count
				FROM products
				WHERE deleted_at IS NULL
				GROUP BY store_id
			) sub
			WHERE stores.id = sub.store_id
			  AND stores.product_count IS DISTINCT FROM sub.live_count`,
			`
			UPDATE stores
			SET product_count = 0
			WHERE product_count <> 0
			  AND NOT EXISTS (
				SELECT 1 FROM products
				WHERE products.store_id = stores.id AND products.deleted_at IS NULL)`,
		},
	},
	{
		name: "store ratings",
		check: `
			SELECT COUNT(*) FROM stores
			LEFT JOIN (
				SELECT products.store_id,
				       ROUND(AVG(reviews.rating)::numeric, 2) AS avg_rating,
				       COUNT(*) AS review_count
				FROM reviews
				JOIN products ON products.id = reviews.product_id AND products.deleted_at IS NULL
				WHERE reviews.deleted_at IS NULL
				GROUP BY products.store_id
			) sub ON stores.id = sub.store_id
			WHERE ROUND(stores.rating_avg::numeric, 2) IS DISTINCT FROM COALESCE(sub.avg_rating, 0)
			   OR stores.rating_count IS DISTINCT FROM COALESCE(sub.review_count, 0)`,
		fix: []string{
			`
			UPDATE stores
			SET rating_avg = sub.avg_rating, rating_count = sub.review_count
			FROM (
				SELECT products.store_id,
				       ROUND(AVG(reviews.rating)::numeric, 2) AS avg_rating,
				       COUNT(*) AS review_count
				FROM reviews
				JOIN products ON products.id = reviews.product_id AND products.deleted_at IS NULL
				WHERE reviews.deleted_at IS NULL
				GROUP BY products.store_id
			) sub
			WHERE stores.id = sub.store_id
			  AND (ROUND(stores.rating_avg::numeric, 2) IS DISTINCT FROM sub.avg_rating
			       OR stores.rating_count IS DISTINCT FROM sub.review_count)`,
			`
			UPDATE stores
			SET rating_avg = 0, rating_count = 0
			WHERE (rating_avg <> 0 OR rating_count <> 0)
			  AND NOT EXISTS (
				SELECT 1 FROM reviews
				JOIN products ON products.id = reviews.product_id AND products.deleted_at IS NULL
				WHERE products.store_id = stores.id AND reviews.deleted_at IS NULL)`,
		},
	},
}

func main() {
	log.Println("🔄 Rollup Recompute Tool")
	log.Println("========================")
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

	// Parse command
	command := "all"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "all":
		applyRollups("🛍️ Recomputing Product Rollups", productRollups)
		applyRollups("🏪 Recomputing Store Rollups", storeRollups)
	case "products":
		applyRollups("🛍️ Recomputing Product Rollups", productRollups)
	case "stores":
		applyRollups("🏪 Recomputing Store Rollups", storeRollups)
	case "dry-run":
		dryRun()
	default:
		fmt.Println("Usage: recompute-rollups [all|products|stores|dry-run]")
		fmt.Println("  all       - Recompute product and store rollups (default)")
		fmt.Println("  products  - Recompute product ratings and favorite counts only")
		fmt.Println("  stores    - Recompute store ratings and product counts only")
		fmt.Println("  dry-run   - Report drifted rows without fixing them")
		os.Exit(1)
	}
}

func applyRollups(title string, rollups []rollup) {
	log.Println(title)
	log.Println("==========================")

	for _, r := range rollups {
		fixed := int64(0)
		statementFailed := false
		for _, stmt := range r.fix {
			result := database.DB.Exec(stmt)
			if result.Error != nil {
				log.Printf("❌ Failed to recompute %s: %v\n", r.name, result.Error)
				statementFailed = true
				break
			}
			fixed += result.RowsAffected
		}
		if statementFailed {
			continue
		}

		if fixed == 0 {
			log.Printf("✅ %s already consistent\n", r.name)
		} else {
			log.Printf("✅ %s: fixed %d rows\n", r.name, fixed)
		}
	}
	log.Println()
}

func dryRun() {
	log.Println("🔍 Dry Run - Checking cached rollups against source rows")
	log.Println("========================================================")
	log.Println()

	var total int64
	for _, r := range append(append([]rollup{}, productRollups...), storeRollups...) {
		var count int64
		if err := database.DB.Raw(r.check).Scan(&count).Error; err != nil {
			log.Printf("❌ Failed to check %s: %v\n", r.name, err)
			continue
		}
		log.Printf("📊 %s: %d drifted rows\n", r.name, count)
		total += count
	}

	log.Println()
	log.Printf("📊 Total drifted rows: %d\n", total)
	log.Println()
	log.Println("💡 Run without 'dry-run' to fix them")
}
