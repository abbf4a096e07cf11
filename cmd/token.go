package cmd

import (
	"fmt"

	"bearer/internal/config"

	"github.com/spf13/cobra"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a valid access token",
	Long: `Resolve and print a valid access token.

The token is served from memory or the credential store when still valid,
refreshed when expired, and obtained through a browser login when nothing
usable is stored. Use --quiet to print the bare token for scripting:

  curl -H "Authorization: Bearer $(bearer token -q)" https://api.example.com`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}

	// Static mode has nothing to resolve; print the configured value.
	if cfg.Mode() == config.ModeStatic {
		fmt.Println(cfg.Static.Value)
		return nil
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	token, err := provider.Token(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println(token.AccessToken)
	if !token.ExpiresAt.IsZero() {
		outPrint("(expires %s)\n", formatExpiryWithDirection(token.ExpiresAt))
	}
	return nil
}
