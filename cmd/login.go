package cmd

import (
	"fmt"
	"strings"
	"time"

	"bearer/internal/config"
	"bearer/pkg/oauth"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Login-specific flags
var (
	loginManual bool
	loginScopes []string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate through the system browser",
	Long: `Authenticate to the configured authorization server.

This command always starts a fresh browser-based OAuth login and replaces
any stored credential, even one that is still valid. Use it to switch
accounts or to recover from a broken stored credential.

Examples:
  bearer login                        # Browser-based login
  bearer login --manual               # Paste the redirect URL by hand
  bearer login --scopes read,write    # Override the configured scopes`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().BoolVar(&loginManual, "manual", false, "Skip the local callback listener and paste the redirect URL manually")
	loginCmd.Flags().StringSliceVar(&loginScopes, "scopes", nil, "Scopes to request, overriding the configured ones")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}
	if cfg.Mode() == config.ModeStatic {
		return fmt.Errorf("a static token is configured; login is not needed")
	}

	store, err := openTokenStore(cfg)
	if err != nil {
		return err
	}

	controller := newLoginController(oauth.NewClient(), cfg, loginManual, loginScopes)

	// The manual flow owns the terminal for its paste prompt.
	var s *spinner.Spinner
	if !rootQuiet && !loginManual {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Waiting for login to complete in your browser..."
		s.Start()
	}

	token, err := controller.Run(cmd.Context())
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return err
	}

	if err := store.Save(token); err != nil {
		return fmt.Errorf("login succeeded but the credential could not be stored: %w", err)
	}

	outPrint("%s Logged in.\n", text.FgGreen.Sprint("✓"))
	if !token.ExpiresAt.IsZero() {
		outPrint("  Expires:  %s\n", formatExpiryWithDirection(token.ExpiresAt))
	}
	if token.RefreshToken != "" {
		outPrint("  Refresh:  %s\n", text.FgGreen.Sprint("Available"))
	}
	if scopes := token.Scopes(); len(scopes) > 0 {
		outPrint("  Scopes:   %s\n", strings.Join(scopes, " "))
	}
	return nil
}
