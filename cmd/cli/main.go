package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	authToken string
	apiURL    string = "http://localhost:8080"
	output    string = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:   "vendora",
	Short: "Vendora CLI - Browse the marketplace and manage your account",
	Long: `Vendora CLI provides command-line access to the Vendora marketplace.
Search the catalog, watch the price ticker, and manage your account and store.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if authToken == "" {
			authToken = os.Getenv("VENDORA_TOKEN")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Authentication token (defaults to VENDORA_TOKEN env var)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API server URL")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	// Add command groups
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(designCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(tickerCmd)
}

// requireToken guards the account, store, and design command groups.
// Search, templates, and the ticker are public endpoints, so they work
// without a login.
func requireToken() error {
	if authToken == "" {
		return fmt.Errorf("not logged in: set VENDORA_TOKEN or pass --token")
	}
	return nil
}

// apiRequest performs one call against the backend and returns the raw
// response body. Non-2xx responses become an error carrying the server's
// message field when it has one.
func apiRequest(method, path string, query url.Values, payload interface{}) ([]byte, error) {
	endpoint := apiURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.Unmarshal(body, &errResp)
		if msg, ok := errResp["message"].(string); ok {
			return nil, fmt.Errorf("API error: %s", msg)
		}
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	return body, nil
}

// formatPrice renders integer cents for display. USD gets the $ sign,
// anything else keeps its currency code as a suffix.
func formatPrice(cents int64, currency string) string {
	amount := float64(cents) / 100
	if currency == "" || strings.EqualFold(currency, "usd") {
		return fmt.Sprintf("$%.2f", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, strings.ToUpper(currency))
}

func truncateString(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
