package cmd

import (
	"fmt"

	"bearer/internal/config"

	"github.com/spf13/cobra"
)

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored credential",
	Long: `Clear the stored OAuth credential.

This command removes the cached token from the credential store,
requiring a fresh login before the next authenticated request.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}
	if cfg.Mode() == config.ModeStatic {
		outPrintln("A static token is configured; there is nothing to log out.")
		return nil
	}

	store, err := openTokenStore(cfg)
	if err != nil {
		return err
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	outPrint("Logged out (%s store).\n", store.Name())
	return nil
}
