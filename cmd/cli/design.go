package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var designCmd = &cobra.Command{
	Use:   "design",
	Short: "Manage your storefront design",
}

var designPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish your draft design",
	Long: `Copy your draft block layout to the live storefront.
The draft must pass block validation; invalid blocks are rejected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		return publishDesign()
	},
}

func init() {
	designCmd.AddCommand(designPublishCmd)
}

type designInfo struct {
	ID         string            `json:"id"`
	StoreID    string            `json:"store_id"`
	Blocks     []json.RawMessage `json:"blocks"`
	Version    int64             `json:"version"`
	PreviewURL string            `json:"preview_url"`
}

type publishResponse struct {
	Design      designInfo `json:"design"`
	PublishedAt time.Time  `json:"published_at"`
}

func publishDesign() error {
	_, store, err := fetchMyStore()
	if err != nil {
		return err
	}

	body, err := apiRequest("POST", "/api/v1/stores/"+store.Store.ID+"/design/publish", nil, nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var result publishResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("✓ Published the %s storefront design\n", store.Store.Name)
	fmt.Printf("  Version: %d\n", result.Design.Version)
	fmt.Printf("  Blocks live: %d\n", len(result.Design.Blocks))
	if result.Design.PreviewURL != "" {
		fmt.Printf("  Preview: %s\n", result.Design.PreviewURL)
	}
	fmt.Printf("  Published at: %s\n", result.PublishedAt.Local().Format("2006-01-02 15:04"))

	return nil
}
