package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage your Vendora account",
	Long:  "Commands for viewing your profile and withdrawing your account",
}

var accountGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show your account profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		return getAccount()
	},
}

var accountWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Permanently withdraw your account",
	Long: `Withdraw your account from Vendora. This will:
- Empty your cart and remove your favorites
- Delete every review you have written
- Close and take down your store with its products, if you are a vendor

This cannot be undone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		password, _ := cmd.Flags().GetString("password")
		totpCode, _ := cmd.Flags().GetString("totp")
		reason, _ := cmd.Flags().GetString("reason")
		yes, _ := cmd.Flags().GetBool("yes")
		return withdrawAccount(password, totpCode, reason, yes)
	},
}

func init() {
	accountCmd.AddCommand(accountGetCmd)
	accountCmd.AddCommand(accountWithdrawCmd)

	accountWithdrawCmd.Flags().String("password", "", "Account password (required unless you signed up with Google)")
	accountWithdrawCmd.Flags().String("totp", "", "Two-factor code, if two-factor auth is enabled")
	accountWithdrawCmd.Flags().String("reason", "", "Optional reason for leaving")
	accountWithdrawCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}

func getAccount() error {
	body, err := apiRequest("GET", "/api/v1/me", nil, nil)
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

	user, ok := result["user"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("unexpected response format")
	}

	// Pretty print account
	fmt.Printf("\n📋 Account\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	if username, ok := user["username"].(string); ok {
		fmt.Printf("Username: @%s\n", username)
	}
	if displayName, ok := user["display_name"].(string); ok && displayName != "" {
		fmt.Printf("Display Name: %s\n", displayName)
	}
	if email, ok := user["email"].(string); ok {
		fmt.Printf("Email: %s\n", email)
	}
	if role, ok := user["role"].(string); ok {
		fmt.Printf("Role: %s\n", role)
	}
	if verified, ok := user["email_verified"].(bool); ok {
		status := "no"
		if verified {
			status = "✓"
		}
		fmt.Printf("Email Verified: %s\n", status)
	}
	if totpEnabled, ok := user["totp_enabled"].(bool); ok {
		status := "disabled"
		if totpEnabled {
			status = "🔒 enabled"
		}
		fmt.Printf("Two-Factor Auth: %s\n", status)
	}
	if bio, ok := user["bio"].(string); ok && bio != "" {
		fmt.Printf("Bio: %s\n", bio)
	}

	fmt.Printf("\n")
	return nil
}

func withdrawAccount(password, totpCode, reason string, skipConfirm bool) error {
	if !skipConfirm {
		fmt.Printf("⚠️  This permanently withdraws your account. Your cart, favorites\n")
		fmt.Printf("   and reviews are removed, and your store closes if you have one.\n\n")
		fmt.Printf("Type 'withdraw' to continue: ")

		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if strings.TrimSpace(line) != "withdraw" {
			fmt.Printf("Aborted\n")
			return nil
		}
	}

	payload := map[string]interface{}{
		"password":  password,
		"totp_code": totpCode,
		"reason":    reason,
	}

	body, err := apiRequest("POST", "/api/v1/account/withdraw", nil, payload)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var result struct {
		Summary struct {
			CartItemsRemoved int  `json:"cart_items_removed"`
			FavoritesRemoved int  `json:"favorites_removed"`
			ReviewsRemoved   int  `json:"reviews_removed"`
			StoreClosed      bool `json:"store_closed"`
			ProductsRemoved  int  `json:"products_removed"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("✓ Account withdrawn\n")
	fmt.Printf("  Cart items removed: %d\n", result.Summary.CartItemsRemoved)
	fmt.Printf("  Favorites removed: %d\n", result.Summary.FavoritesRemoved)
	fmt.Printf("  Reviews removed: %d\n", result.Summary.ReviewsRemoved)
	if result.Summary.StoreClosed {
		fmt.Printf("  Store closed, %d products taken down\n", result.Summary.ProductsRemoved)
	}

	return nil
}
