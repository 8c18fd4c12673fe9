package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"encoding/json"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for products and stores",
	Long:  "Commands for searching the catalog with filters for category, tags, price, and rating",
}

var searchProductsCmd = &cobra.Command{
	Use:   "products <query>",
	Short: "Search for products by name, description, or tags",
	Long: `Search the product catalog with full-text search powered by Elasticsearch.
Price filters are in cents.

Examples:
  vendora search products "walnut desk"
  vendora search products "mug" --category ceramics --price-max 3000
  vendora search products "lamp" --tags brass,vintage --rating-min 4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		category, _ := cmd.Flags().GetString("category")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		storeID, _ := cmd.Flags().GetString("store")
		priceMin, _ := cmd.Flags().GetInt64("price-min")
		priceMax, _ := cmd.Flags().GetInt64("price-max")
		ratingMin, _ := cmd.Flags().GetFloat64("rating-min")
		all, _ := cmd.Flags().GetBool("all")
		return searchProducts(args[0], limit, offset, category, tags, storeID, priceMin, priceMax, ratingMin, all)
	},
}

var searchStoresCmd = &cobra.Command{
	Use:   "stores <query>",
	Short: "Search for stores by name or description",
	Long: `Search for vendor stores.

Examples:
  vendora search stores "ceramics"
  vendora search stores "workshop" --limit 50`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		return searchStores(args[0], limit, offset)
	},
}

var searchSuggestCmd = &cobra.Command{
	Use:   "suggest <prefix>",
	Short: "Autocomplete product names from a prefix",
	Long: `Suggest product names matching a typed prefix.

Examples:
  vendora search suggest "wal"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return suggestProducts(args[0], limit)
	},
}

func init() {
	searchCmd.AddCommand(searchProductsCmd)
	searchCmd.AddCommand(searchStoresCmd)
	searchCmd.AddCommand(searchSuggestCmd)

	// Flags for search products
	searchProductsCmd.Flags().IntP("limit", "l", 24, "Maximum number of results")
	searchProductsCmd.Flags().IntP("offset", "o", 0, "Result offset for pagination")
	searchProductsCmd.Flags().String("category", "", "Category filter")
	searchProductsCmd.Flags().StringSlice("tags", []string{}, "Tag filters (comma-separated or repeated)")
	searchProductsCmd.Flags().String("store", "", "Limit results to one store ID")
	searchProductsCmd.Flags().Int64("price-min", 0, "Minimum price in cents")
	searchProductsCmd.Flags().Int64("price-max", 0, "Maximum price in cents")
	searchProductsCmd.Flags().Float64("rating-min", 0, "Minimum average rating (1-5)")
	searchProductsCmd.Flags().Bool("all", false, "Include unavailable products and closed stores")

	// Flags for search stores
	searchStoresCmd.Flags().IntP("limit", "l", 20, "Maximum number of results")
	searchStoresCmd.Flags().IntP("offset", "o", 0, "Result offset for pagination")

	// Flags for suggest
	searchSuggestCmd.Flags().IntP("limit", "l", 8, "Maximum number of suggestions")
}

func searchProducts(query string, limit, offset int, category string, tags []string, storeID string, priceMin, priceMax int64, ratingMin float64, all bool) error {
	if query == "" {
		return fmt.Errorf("search query cannot be empty")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	if category != "" {
		params.Set("category", category)
	}
	if len(tags) > 0 {
		params.Set("tags", strings.Join(tags, ","))
	}
	if storeID != "" {
		params.Set("store_id", storeID)
	}
	if priceMin > 0 {
		params.Set("price_min", strconv.FormatInt(priceMin, 10))
	}
	if priceMax > 0 {
		params.Set("price_max", strconv.FormatInt(priceMax, 10))
	}
	if ratingMin > 0 {
		params.Set("rating_min", strconv.FormatFloat(ratingMin, 'f', -1, 64))
	}
	if all {
		params.Set("available", "false")
	}

	body, err := apiRequest("GET", "/api/v1/search/products", params, nil)
	if err != nil {
		return err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if output == "json" {
		fmt.Println(string(body))
	} else {
		printProductSearchResults(result)
	}

	return nil
}

func searchStores(query string, limit, offset int) error {
	if query == "" {
		return fmt.Errorf("search query cannot be empty")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	body, err := apiRequest("GET", "/api/v1/search/stores", params, nil)
	if err != nil {
		return err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if output == "json" {
		fmt.Println(string(body))
	} else {
		printStoreSearchResults(result)
	}

	return nil
}

func suggestProducts(prefix string, limit int) error {
	if prefix == "" {
		return fmt.Errorf("suggest prefix cannot be empty")
	}

	params := url.Values{}
	params.Set("q", prefix)
	params.Set("limit", strconv.Itoa(limit))

	body, err := apiRequest("GET", "/api/v1/search/suggest", params, nil)
	if err != nil {
		return err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	suggestions, ok := result["suggestions"].([]interface{})
	if !ok || len(suggestions) == 0 {
		fmt.Printf("No suggestions\n")
		return nil
	}

	for _, s := range suggestions {
		if name, ok := s.(string); ok {
			fmt.Printf("%s\n", name)
		}
	}

	return nil
}

func printProductSearchResults(result map[string]interface{}) {
	fmt.Printf("\n🔍 Product Search Results\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	products, ok := result["products"].([]interface{})
	if !ok || len(products) == 0 {
		fmt.Printf("No products found\n\n")
		return
	}

	for i, p := range products {
		product, ok := p.(map[string]interface{})
		if !ok {
			continue
		}

		fmt.Printf("\n%d. ", i+1)
		if name, ok := product["name"].(string); ok {
			fmt.Printf("%s", name)
		}
		if cents, ok := product["price_cents"].(float64); ok {
			currency, _ := product["currency"].(string)
			fmt.Printf(" · %s", formatPrice(int64(cents), currency))
		}
		if available, ok := product["is_available"].(bool); ok && !available {
			fmt.Printf(" (unavailable)")
		}
		fmt.Printf("\n")

		if storeName, ok := product["store_name"].(string); ok && storeName != "" {
			fmt.Printf("   🏪 %s\n", storeName)
		}

		// Category and tags
		var metadata []string
		if category, ok := product["category"].(string); ok && category != "" {
			metadata = append(metadata, category)
		}
		if tags, ok := product["tags"].([]interface{}); ok {
			for _, t := range tags {
				if tag, ok := t.(string); ok {
					metadata = append(metadata, "#"+tag)
				}
			}
		}
		if len(metadata) > 0 {
			fmt.Printf("   %s\n", strings.Join(metadata, " · "))
		}

		// Rating and favorites
		var stats []string
		if ratingCount, ok := product["rating_count"].(float64); ok && ratingCount > 0 {
			ratingAvg, _ := product["rating_avg"].(float64)
			stats = append(stats, fmt.Sprintf("★ %.1f (%d)", ratingAvg, int(ratingCount)))
		}
		if favorites, ok := product["favorite_count"].(float64); ok && favorites > 0 {
			stats = append(stats, fmt.Sprintf("❤️ %d", int(favorites)))
		}
		if len(stats) > 0 {
			fmt.Printf("   %s\n", strings.Join(stats, " "))
		}
	}

	printSearchMeta(result, len(products))
}

func printStoreSearchResults(result map[string]interface{}) {
	fmt.Printf("\n🏪 Store Search Results\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	stores, ok := result["stores"].([]interface{})
	if !ok || len(stores) == 0 {
		fmt.Printf("No stores found\n\n")
		return
	}

	for i, s := range stores {
		store, ok := s.(map[string]interface{})
		if !ok {
			continue
		}

		fmt.Printf("\n%d. ", i+1)
		if name, ok := store["name"].(string); ok {
			fmt.Printf("%s", name)
		}
		if isOpen, ok := store["is_open"].(bool); ok && !isOpen {
			fmt.Printf(" (closed)")
		}
		fmt.Printf("\n")

		var location []string
		if city, ok := store["city"].(string); ok && city != "" {
			location = append(location, city)
		}
		if country, ok := store["country"].(string); ok && country != "" {
			location = append(location, country)
		}
		if len(location) > 0 {
			fmt.Printf("   📍 %s\n", strings.Join(location, ", "))
		}

		var stats []string
		if productCount, ok := store["product_count"].(float64); ok {
			stats = append(stats, fmt.Sprintf("%d products", int(productCount)))
		}
		if ratingCount, ok := store["rating_count"].(float64); ok && ratingCount > 0 {
			ratingAvg, _ := store["rating_avg"].(float64)
			stats = append(stats, fmt.Sprintf("★ %.1f (%d)", ratingAvg, int(ratingCount)))
		}
		if len(stats) > 0 {
			fmt.Printf("   %s\n", strings.Join(stats, " · "))
		}
	}

	printSearchMeta(result, len(stores))
}

// printSearchMeta prints the trailer line with the total and which
// backend answered, search or the SQL fallback
func printSearchMeta(result map[string]interface{}, shown int) {
	meta, ok := result["meta"].(map[string]interface{})
	if !ok {
		fmt.Printf("\n")
		return
	}

	total := shown
	if t, ok := meta["total"].(float64); ok {
		total = int(t)
	}
	source, _ := meta["source"].(string)

	if source != "" {
		fmt.Printf("\nShowing %d of %d (source: %s)\n\n", shown, total, source)
	} else {
		fmt.Printf("\nShowing %d of %d\n\n", shown, total)
	}
}
