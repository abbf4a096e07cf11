package authflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bearer/pkg/oauth"
)

// DefaultFlowTimeout bounds how long an interactive login waits for the
// user to complete authorization in the browser.
const DefaultFlowTimeout = 5 * time.Minute

// Config configures an interactive login flow.
type Config struct {
	// IssuerURL is the identity provider base URL used for endpoint
	// discovery.
	IssuerURL string

	// AuthorizationEndpoint and TokenEndpoint bypass discovery when both
	// are set. Used for providers that serve no metadata document.
	AuthorizationEndpoint string
	TokenEndpoint         string

	// ClientID identifies this application to the provider.
	ClientID string

	// ClientSecret is the confidential client secret, empty for public
	// clients.
	ClientSecret string

	// Scopes are the access scopes to request.
	Scopes []string

	// CallbackPort fixes the local listener port. 0 selects an ephemeral
	// port, which is the default.
	CallbackPort int

	// Timeout bounds the wait for the browser callback.
	// Defaults to DefaultFlowTimeout.
	Timeout time.Duration

	// Manual skips the local listener and prompts for the pasted redirect
	// URL instead.
	Manual bool

	// Output receives user-facing prompts. Defaults to os.Stderr.
	Output io.Writer

	// OpenURL opens the authorization URL in a browser.
	// Defaults to OpenBrowser.
	OpenURL func(url string) error
}

// Controller drives a single interactive authorization-code login: it binds
// the callback listener, sends the user to the provider, waits for the
// redirect, and exchanges the code for tokens. The resulting token is
// returned to the caller; persisting it is the caller's job.
type Controller struct {
	client *oauth.Client
	cfg    Config

	mu      sync.Mutex
	running bool
}

// NewController creates a login flow controller that uses the given protocol
// client for endpoint discovery and token exchange.
func NewController(client *oauth.Client, cfg Config) *Controller {
	return &Controller{client: client, cfg: cfg}
}

// Run executes the authorization-code flow end to end and returns the
// resulting token. Only one flow may run at a time per process; a second
// concurrent call fails with oauth.ErrFlowInProgress. The callback listener
// is torn down on every exit path.
func (c *Controller) Run(ctx context.Context) (*oauth.Token, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: another interactive login is running", oauth.ErrFlowInProgress)
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	flowID := uuid.New().String()

	metadata, err := c.resolveEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	pkce, err := oauth.GeneratePKCE()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE challenge: %w", err)
	}

	state, err := oauth.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	slog.Debug("Starting interactive login",
		"flow_id", flowID,
		"issuer", metadata.Issuer,
		"scopes", strings.Join(c.cfg.Scopes, " "),
	)

	if c.cfg.Manual {
		return c.runManual(ctx, flowID, metadata, pkce, state)
	}

	server := NewCallbackServer(c.cfg.CallbackPort)
	redirectURI, err := server.Start(ctx)
	if err != nil {
		// No loopback listener available (sandbox, port conflict).
		// Degrade to manual code entry rather than failing the login.
		slog.Warn("Callback listener unavailable, falling back to manual entry",
			"flow_id", flowID,
			"error", err.Error(),
		)
		return c.runManual(ctx, flowID, metadata, pkce, state)
	}
	defer server.Stop()

	authURL, err := c.client.BuildAuthorizationURL(
		metadata.AuthorizationEndpoint, c.cfg.ClientID, redirectURI, state,
		strings.Join(c.cfg.Scopes, " "), pkce)
	if err != nil {
		return nil, fmt.Errorf("failed to build authorization URL: %w", err)
	}

	c.promptUser(authURL)

	timeout := c.cfg.Timeout
	if timeout == 0 {
		timeout = DefaultFlowTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := server.WaitForCallback(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: no callback received within %s", oauth.ErrFlowTimeout, timeout)
		}
		return nil, fmt.Errorf("waiting for authorization callback: %w", err)
	}

	// Verify state before anything else. A callback that does not echo our
	// state was not produced by the authorization URL we issued.
	if result.State != state {
		slog.Warn("State mismatch in authorization callback",
			"flow_id", flowID,
			"expected_state_len", len(state),
			"received_state_len", len(result.State),
		)
		return nil, errors.New("state mismatch in authorization callback - possible CSRF attack")
	}

	if result.IsError() {
		slog.Warn("Authorization denied by provider",
			"flow_id", flowID,
			"error", result.Error,
			"error_description", result.ErrorDescription,
		)
		if result.ErrorDescription != "" {
			return nil, fmt.Errorf("%w: %s - %s", oauth.ErrAuthorizationDenied, result.Error, result.ErrorDescription)
		}
		return nil, fmt.Errorf("%w: %s", oauth.ErrAuthorizationDenied, result.Error)
	}

	token, err := c.client.ExchangeCode(ctx, metadata.TokenEndpoint, result.Code,
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
		"has_refresh_token", token.RefreshToken != "",
		"expires_at", token.ExpiresAt,
	)

	return token, nil
}

// InProgress reports whether a login flow is currently running.
func (c *Controller) InProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// resolveEndpoints returns the provider endpoints, either from explicit
// configuration or through metadata discovery.
func (c *Controller) resolveEndpoints(ctx context.Context) (*oauth.Metadata, error) {
	if c.cfg.AuthorizationEndpoint != "" && c.cfg.TokenEndpoint != "" {
		return &oauth.Metadata{
			Issuer:                c.cfg.IssuerURL,
			AuthorizationEndpoint: c.cfg.AuthorizationEndpoint,
			TokenEndpoint:         c.cfg.TokenEndpoint,
		}, nil
	}

	metadata, err := c.client.DiscoverMetadata(ctx, c.cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover provider endpoints: %w", err)
	}
	return metadata, nil
}

// promptUser prints the authorization URL and attempts to open it in the
// system browser. The URL is always printed so the user can open it by hand
// when no browser is reachable.
func (c *Controller) promptUser(authURL string) {
	fmt.Fprintf(c.output(), "\nOpen the following URL in your browser to sign in:\n\n  %s\n\n", authURL)

	if err := c.openURL(authURL); err != nil {
		slog.Debug("Could not open browser automatically", "error", err.Error())
	}
}

func (c *Controller) output() io.Writer {
	if c.cfg.Output != nil {
		return c.cfg.Output
	}
	return os.Stderr
}

func (c *Controller) openURL(url string) error {
	if c.cfg.OpenURL != nil {
		return c.cfg.OpenURL(url)
	}
	return OpenBrowser(url)
}
