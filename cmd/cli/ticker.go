package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var tickerCmd = &cobra.Command{
	Use:   "ticker",
	Short: "Watch marketplace prices",
	Long:  "Commands for the live price ticker and per-product price history",
}

var tickerShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current ticker frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showTicker()
	},
}

var tickerHistoryCmd = &cobra.Command{
	Use:   "history <product-id>",
	Short: "Show recorded price changes for a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showTickerHistory(args[0])
	},
}

func init() {
	tickerCmd.AddCommand(tickerShowCmd)
	tickerCmd.AddCommand(tickerHistoryCmd)
}

type TickerEntry struct {
	ProductID     string  `json:"product_id"`
	Name          string  `json:"name"`
	StoreID       string  `json:"store_id"`
	StoreName     string  `json:"store_name,omitempty"`
	PriceCents    int64   `json:"price_cents"`
	Currency      string  `json:"currency"`
	ChangeCents   int64   `json:"change_cents"`
	ChangePct     float64 `json:"change_pct"`
	FavoriteCount int     `json:"favorite_count"`
}

type TickerResponse struct {
	Entries     []TickerEntry `json:"entries"`
	RefreshedAt time.Time     `json:"refreshed_at"`
}

type PriceHistoryResponse struct {
	Points []struct {
		PriceCents int64 `json:"price_cents"`
		At         int64 `json:"at"`
	} `json:"points"`
}

func showTicker() error {
	body, err := apiRequest("GET", "/api/v1/ticker", nil, nil)
	if err != nil {
		return err
	}

	var result TickerResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	if len(result.Entries) == 0 {
		fmt.Printf("Ticker is empty\n")
		return nil
	}

	fmt.Printf("\n📈 Price Ticker (refreshed %s)\n", result.RefreshedAt.Local().Format("15:04:05"))
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRODUCT\tSTORE\tPRICE\tCHANGE\tFAVS")

	for _, e := range result.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			truncateString(e.ProductID, 8),
			truncateString(e.Name, 32),
			truncateString(e.StoreName, 20),
			formatPrice(e.PriceCents, e.Currency),
			formatChange(e.ChangeCents, e.ChangePct),
			e.FavoriteCount)
	}

	w.Flush()
	fmt.Printf("\nUse: vendora ticker history <id>\n")

	return nil
}

func showTickerHistory(productID string) error {
	body, err := apiRequest("GET", "/api/v1/ticker/"+productID+"/history", nil, nil)
	if err != nil {
		return err
	}

	var result PriceHistoryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	if len(result.Points) == 0 {
		fmt.Printf("No recorded price changes\n")
		return nil
	}

	fmt.Printf("\n📈 Price History (%d changes)\n", len(result.Points))
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tPRICE")

	for _, p := range result.Points {
		fmt.Fprintf(w, "%s\t%s\n",
			time.Unix(p.At, 0).Local().Format("2006-01-02 15:04"),
			formatPrice(p.PriceCents, ""))
	}

	w.Flush()
	fmt.Printf("\n")

	return nil
}

// formatChange renders a price move with direction, in display dollars
func formatChange(cents int64, pct float64) string {
	switch {
	case cents > 0:
		return fmt.Sprintf("▲ +%.2f (%+.1f%%)", float64(cents)/100, pct)
	case cents < 0:
		return fmt.Sprintf("▼ %.2f (%+.1f%%)", float64(cents)/100, pct)
	default:
		return "="
	}
}
