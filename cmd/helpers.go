package cmd

import (
	"fmt"
	"os"
	"time"

	"bearer/internal/authflow"
	"bearer/internal/config"
	"bearer/internal/credstore"
	"bearer/pkg/auth"
	"bearer/pkg/oauth"

	"github.com/jedib0t/go-pretty/v6/text"
)

// loadConfiguration loads and validates the configuration directory given by
// --config-path.
func loadConfiguration() (config.Config, error) {
	cfg, err := config.LoadConfig(rootConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openTokenStore opens the configured credential store, scoped to the
// configured issuer.
func openTokenStore(cfg config.Config) (*credstore.TokenStore, error) {
	store, err := credstore.Open(credstore.Config{
		Backend: cfg.Store.Backend,
		Path:    cfg.Store.Path,
		Service: cfg.Store.Service,
		Account: cfg.Store.Account,
	})
	if err != nil {
		return nil, err
	}
	return credstore.NewTokenStore(store, cfg.Issuer), nil
}

// newLoginController builds the interactive login flow from configuration.
// Explicit scopes override the configured ones.
func newLoginController(client *oauth.Client, cfg config.Config, manual bool, scopes []string) *authflow.Controller {
	if len(scopes) == 0 {
		scopes = cfg.Scopes
	}
	return authflow.NewController(client, authflow.Config{
		IssuerURL:             cfg.Issuer,
		AuthorizationEndpoint: cfg.AuthURL,
		TokenEndpoint:         cfg.TokenURL,
		ClientID:              cfg.ClientID,
		ClientSecret:          cfg.ClientSecret,
		Scopes:                scopes,
		CallbackPort:          cfg.CallbackPort,
		Timeout:               cfg.FlowTimeout,
		Manual:                manual,
		Output:                os.Stderr,
	})
}

// newProvider wires the store, the protocol client, and the interactive flow
// into a credential provider. The same client is shared between the provider
// and the flow so endpoint discovery happens once.
func newProvider(cfg config.Config) (*auth.Provider, error) {
	store, err := openTokenStore(cfg)
	if err != nil {
		return nil, err
	}

	client := oauth.NewClient()
	provider, err := auth.New(auth.Config{
		Store:         store,
		Login:         newLoginController(client, cfg, false, nil),
		Client:        client,
		IssuerURL:     cfg.Issuer,
		TokenEndpoint: cfg.TokenURL,
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
	})
	if err != nil {
		return nil, err
	}

	// Pick up logins and logouts performed by other processes. The watcher
	// lives for the rest of the process.
	store.Watch(provider.Invalidate)

	return provider, nil
}

// outPrint prints output only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func outPrint(format string, args ...interface{}) {
	if !rootQuiet {
		fmt.Printf(format, args...)
	}
}

// outPrintln prints a line only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func outPrintln(a ...interface{}) {
	if !rootQuiet {
		fmt.Println(a...)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// formatExpiryWithDirection formats a time as "in X" or "expired X ago".
func formatExpiryWithDirection(expiresAt time.Time) string {
	remaining := time.Until(expiresAt)
	if remaining > 0 {
		return "in " + formatDuration(remaining)
	}
	// Token is expired
	expiredAgo := -remaining
	return text.FgYellow.Sprintf("expired %s ago", formatDuration(expiredAgo))
}
