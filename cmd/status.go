package cmd

import (
	"fmt"
	"strings"

	"bearer/internal/config"
	"bearer/pkg/auth"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show the current authentication status.

This command displays whether a usable credential exists, where it is
stored, when it expires, and whether it can be renewed without a new
browser login. It never starts a login itself.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}

	if cfg.Mode() == config.ModeStatic {
		printStaticStatus(cfg)
		return nil
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	printOAuthStatus(provider.Status())
	return nil
}

// printStaticStatus reports the static token configuration. The value itself
// is never printed.
func printStaticStatus(cfg config.Config) {
	header := cfg.Static.Header
	if header == "" {
		header = "Authorization"
	}
	fmt.Printf("  Mode:      static\n")
	fmt.Printf("  Header:    %s\n", header)
	fmt.Printf("  Status:    %s\n", text.FgGreen.Sprint("Configured"))
}

// printOAuthStatus reports the stored credential state.
func printOAuthStatus(status auth.Status) {
	if status.Issuer != "" {
		fmt.Printf("  Issuer:    %s\n", status.Issuer)
	}
	fmt.Printf("  Store:     %s\n", status.Store)

	if !status.Authenticated {
		fmt.Printf("  Status:    %s\n", text.FgYellow.Sprint("Not authenticated"))
		fmt.Printf("             Run: bearer login\n")
		return
	}

	fmt.Printf("  Status:    %s\n", text.FgGreen.Sprint("Authenticated"))
	if status.Source != "" {
		fmt.Printf("  Source:    %s\n", status.Source)
	}
	if !status.ExpiresAt.IsZero() {
		fmt.Printf("  Expires:   %s\n", formatExpiryWithDirection(status.ExpiresAt))
	}
	if status.HasRefreshToken {
		fmt.Printf("  Refresh:   %s\n", text.FgGreen.Sprint("Available"))
	} else {
		fmt.Printf("  Refresh:   %s\n", text.FgYellow.Sprint("Not available (re-auth required on expiry)"))
	}
	if len(status.Scopes) > 0 {
		fmt.Printf("  Scopes:    %s\n", strings.Join(status.Scopes, " "))
	}
}
