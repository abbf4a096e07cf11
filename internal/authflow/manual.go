package authflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/chzyer/readline"

	"bearer/pkg/oauth"
)

// DefaultManualPort is the port embedded in the redirect URI when the flow
// runs without a local listener. Nothing listens on it; the user copies the
// resulting URL out of the browser's address bar instead.
const DefaultManualPort = 8085

// runManual executes the login without a local listener. The user opens the
// authorization URL, signs in, and pastes the redirect URL the browser
// failed to reach (or the bare authorization code) back into the terminal.
func (c *Controller) runManual(ctx context.Context, flowID string, metadata *oauth.Metadata, pkce *oauth.PKCEChallenge, state string) (*oauth.Token, error) {
	port := c.cfg.CallbackPort
	if port == 0 {
		port = DefaultManualPort
	}
	redirectURI := fmt.Sprintf("http://localhost:%d%s", port, CallbackPath)

	authURL, err := c.client.BuildAuthorizationURL(
		metadata.AuthorizationEndpoint, c.cfg.ClientID, redirectURI, state,
		strings.Join(c.cfg.Scopes, " "), pkce)
	if err != nil {
		return nil, fmt.Errorf("failed to build authorization URL: %w", err)
	}

	c.promptUser(authURL)
	fmt.Fprintln(c.output(), "After signing in, the browser will fail to connect. Copy the full URL from the address bar and paste it below.")

	code, err := readAuthorizationInput(state)
	if err != nil {
		return nil, err
	}

	token, err := c.client.ExchangeCode(ctx, metadata.TokenEndpoint, code,
		redirectURI, c.cfg.ClientID, c.cfg.ClientSecret, pkce.CodeVerifier)
	if err != nil {
		slog.Warn("Token exchange failed",
			"flow_id", flowID,
			"error", err.Error(),
		)
		return nil, fmt.Errorf("%w: %w", oauth.ErrTokenExchange, err)
	}

	slog.Info("Interactive login completed",
		"flow_id", flowID,
		"issuer", metadata.Issuer,
		"manual", true,
		"has_refresh_token", token.RefreshToken != "",
		"expires_at", token.ExpiresAt,
	)

	return token, nil
}

// readAuthorizationInput prompts for the pasted redirect URL or code and
// returns the extracted authorization code.
func readAuthorizationInput(expectedState string) (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "Redirect URL or authorization code: ",
		InterruptPrompt: "^C",
		EOFPrompt:       "cancel",
	})
	if err != nil {
		return "", fmt.Errorf("failed to read authorization input: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err == readline.ErrInterrupt || err == io.EOF {
		return "", errors.New("login cancelled")
	}
	if err != nil {
		return "", fmt.Errorf("failed to read authorization input: %w", err)
	}

	return parseAuthorizationInput(strings.TrimSpace(line), expectedState)
}

// parseAuthorizationInput extracts the authorization code from a pasted
// redirect URL, validating the echoed state. A bare code is passed through
// unchanged since it carries no state to check.
func parseAuthorizationInput(input, expectedState string) (string, error) {
	if input == "" {
		return "", errors.New("no authorization code provided")
	}

	if !strings.Contains(input, "://") {
		return input, nil
	}

	parsed, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("could not parse redirect URL: %w", err)
	}
	query := parsed.Query()

	if query.Get("state") != expectedState {
		return "", errors.New("state mismatch in pasted redirect URL")
	}

	if errCode := query.Get("error"); errCode != "" {
		if desc := query.Get("error_description"); desc != "" {
			return "", fmt.Errorf("%w: %s - %s", oauth.ErrAuthorizationDenied, errCode, desc)
		}
		return "", fmt.Errorf("%w: %s", oauth.ErrAuthorizationDenied, errCode)
	}

	code := query.Get("code")
	if code == "" {
		return "", errors.New("redirect URL carries no authorization code")
	}
	return code, nil
}
