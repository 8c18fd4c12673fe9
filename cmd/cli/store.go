package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage your vendor store",
	Long:  "Commands for vendors to inspect their store and toggle it open or closed",
}

var storeGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show your store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		return getStore()
	},
}

var storeOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open your store for business",
	Long: `Open your store. This will:
- Show your products in browse and search results
- Let shoppers add your products to their carts`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		return setStoreOpen(true)
	},
}

var storeCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Close your store temporarily",
	Long: `Close your store. This will:
- Hide your products from browse and search results
- Keep your catalog and design intact for reopening`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		return setStoreOpen(false)
	},
}

func init() {
	storeCmd.AddCommand(storeGetCmd)
	storeCmd.AddCommand(storeOpenCmd)
	storeCmd.AddCommand(storeCloseCmd)
}

type storeInfo struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Description  string  `json:"description"`
	City         string  `json:"city"`
	Country      string  `json:"country"`
	IsOpen       bool    `json:"is_open"`
	ProductCount int     `json:"product_count"`
	RatingAvg    float64 `json:"rating_avg"`
	RatingCount  int     `json:"rating_count"`
}

type storeResponse struct {
	Store storeInfo `json:"store"`
}

// fetchMyStore resolves the caller's store, since the open/close endpoint
// is keyed by store ID rather than "my"
func fetchMyStore() ([]byte, *storeResponse, error) {
	body, err := apiRequest("GET", "/api/v1/my/store", nil, nil)
	if err != nil {
		return nil, nil, err
	}

	var result storeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return body, &result, nil
}

func getStore() error {
	body, result, err := fetchMyStore()
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	store := result.Store

	// Pretty print store
	fmt.Printf("\n🏪 %s\n", store.Name)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	status := "🔴 Closed"
	if store.IsOpen {
		status = "🟢 Open"
	}
	fmt.Printf("Status: %s\n", status)
	fmt.Printf("Slug: %s\n", store.Slug)

	if store.City != "" || store.Country != "" {
		location := store.City
		if location != "" && store.Country != "" {
			location += ", "
		}
		location += store.Country
		fmt.Printf("Location: %s\n", location)
	}

	fmt.Printf("Products: %d\n", store.ProductCount)
	if store.RatingCount > 0 {
		fmt.Printf("Rating: ★ %.1f (%d reviews)\n", store.RatingAvg, store.RatingCount)
	}
	if store.Description != "" {
		fmt.Printf("\n%s\n", store.Description)
	}

	fmt.Printf("\n")
	return nil
}

func setStoreOpen(open bool) error {
	_, result, err := fetchMyStore()
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"is_open": open,
	}

	body, err := apiRequest("PUT", "/api/v1/stores/"+result.Store.ID+"/open", nil, payload)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	if open {
		fmt.Printf("✓ %s is now open\n", result.Store.Name)
	} else {
		fmt.Printf("✓ %s is now closed\n", result.Store.Name)
	}

	return nil
}
