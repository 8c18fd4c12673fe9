package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var templateKind string

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Browse policy templates",
	Long: `List the policy boilerplate catalog vendors can instantiate
store policies from. Defaults are listed first within each kind.

Examples:
  vendora templates
  vendora templates --kind shipping`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listTemplates()
	},
}

func init() {
	templatesCmd.Flags().StringVar(&templateKind, "kind", "", "Filter by kind (shipping, returns, refunds)")
}

type policyTemplate struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	IsDefault bool   `json:"is_default"`
}

type templatesResponse struct {
	Templates []policyTemplate `json:"templates"`
}

func listTemplates() error {
	query := url.Values{}
	if templateKind != "" {
		query.Set("kind", templateKind)
	}

	body, err := apiRequest("GET", "/api/v1/policy-templates", query, nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var result templatesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result.Templates) == 0 {
		fmt.Println("No policy templates found")
		return nil
	}

	fmt.Printf("\n📋 Policy Templates (%d)\n", len(result.Templates))
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	for i, tpl := range result.Templates {
		marker := ""
		if tpl.IsDefault {
			marker = " ★ default"
		}
		fmt.Printf("\n%d. %s [%s]%s\n", i+1, tpl.Title, tpl.Kind, marker)
		fmt.Printf("   %s\n", truncateString(tpl.Body, 100))
	}

	fmt.Printf("\n")
	return nil
}
