package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"bearer/pkg/oauth"
)

// Source identifies where the credential currently in effect was
// materialized from. A refresh renews the token in place and keeps the
// original source.
type Source string

const (
	// SourceMemory means the credential was minted in this process by an
	// interactive login and has not been reloaded since.
	SourceMemory Source = "memory"

	// SourceDiskStore means the credential was loaded from the credential
	// file.
	SourceDiskStore Source = "disk_store"

	// SourceSecretStore means the credential was loaded from the OS secret
	// store.
	SourceSecretStore Source = "secret_store"
)

// storeSource maps a credential store to the source its loads carry.
func storeSource(store CredentialStore) Source {
	if store.Name() == "keyring" {
		return SourceSecretStore
	}
	return SourceDiskStore
}

// Identity is an immutable snapshot of the authenticated state. The provider
// swaps whole Identity values under its lock; readers never observe a
// partially updated credential.
type Identity struct {
	// Token is the credential in effect.
	Token *oauth.Token

	// Source says how the credential was obtained.
	Source Source

	// LoadedAt is when this identity became current.
	LoadedAt time.Time
}

// CredentialStore persists one credential across process restarts.
// Implementations treat corrupt or absent data as a miss, not an error.
type CredentialStore interface {
	// Load returns the stored token, or nil when none is usable.
	Load() (*oauth.Token, error)

	// Save persists the token, replacing any previous credential.
	Save(token *oauth.Token) error

	// Clear removes the stored credential. Clearing an empty store is not
	// an error.
	Clear() error

	// Name identifies the backing medium for logs and status output.
	Name() string
}

// LoginFlow runs an interactive login and returns the resulting token.
type LoginFlow interface {
	Run(ctx context.Context) (*oauth.Token, error)
}

// Config configures a credential provider.
type Config struct {
	// Store persists credentials across restarts. Required.
	Store CredentialStore

	// Login runs the interactive flow when no stored credential is usable.
	// When nil, an unusable credential surfaces as
	// oauth.ErrReauthenticationRequired instead of launching a login.
	Login LoginFlow

	// Client performs refresh exchanges and endpoint discovery.
	// Defaults to oauth.NewClient().
	Client *oauth.Client

	// IssuerURL is the identity provider, used to discover the token
	// endpoint when TokenEndpoint is not set explicitly.
	IssuerURL string

	// TokenEndpoint bypasses discovery for refresh exchanges.
	TokenEndpoint string

	// ClientID identifies this application to the provider. Required.
	ClientID string

	// ClientSecret is the confidential client secret, empty for public
	// clients.
	ClientSecret string

	// ExpiryMargin is how long before nominal expiry a credential is
	// already treated as expired. Defaults to oauth.DefaultExpiryMargin.
	ExpiryMargin time.Duration
}

// Provider resolves credentials for outbound requests: in-memory identity
// first, then the persistent store, then a refresh exchange, and finally one
// interactive login. Concurrent callers share a single in-flight resolution
// rather than racing their own refreshes.
type Provider struct {
	cfg Config

	mu       sync.RWMutex
	identity *Identity

	group singleflight.Group
}

// New creates a credential provider. Missing required configuration is
// reported as oauth.ErrConfig.
func New(cfg Config) (*Provider, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: credential store is required", oauth.ErrConfig)
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: client ID is required", oauth.ErrConfig)
	}
	if cfg.IssuerURL == "" && cfg.TokenEndpoint == "" {
		return nil, fmt.Errorf("%w: either an issuer URL or a token endpoint is required", oauth.ErrConfig)
	}

	if cfg.Client == nil {
		cfg.Client = oauth.NewClient()
	}
	if cfg.ExpiryMargin == 0 {
		cfg.ExpiryMargin = oauth.DefaultExpiryMargin
	}

	return &Provider{cfg: cfg}, nil
}

// Token returns a valid access token, resolving it through the cache, the
// store, a refresh exchange, or one interactive login, in that order.
// Concurrent callers during a refresh or login all receive that single
// resolution's outcome.
func (p *Provider) Token(ctx context.Context) (*oauth.Token, error) {
	// Fast path: fresh in-memory credential
	p.mu.RLock()
	ident := p.identity
	p.mu.RUnlock()

	if ident != nil && !ident.Token.IsExpiredWithMargin(p.cfg.ExpiryMargin) {
		return ident.Token, nil
	}

	v, err, _ := p.group.Do("resolve", func() (interface{}, error) {
		return p.resolve(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth.Token), nil
}

// resolve performs the full credential resolution. It runs inside the
// singleflight group, so at most one resolution is in flight per provider.
func (p *Provider) resolve(ctx context.Context) (*oauth.Token, error) {
	// Re-check memory: the previous group winner may have resolved while
	// this caller was waiting to enter.
	p.mu.RLock()
	ident := p.identity
	p.mu.RUnlock()

	if ident != nil && !ident.Token.IsExpiredWithMargin(p.cfg.ExpiryMargin) {
		return ident.Token, nil
	}

	current := ident
	if current == nil {
		if stored := p.loadStored(); stored != nil {
			current = &Identity{Token: stored, Source: storeSource(p.cfg.Store), LoadedAt: time.Now()}
		}
	}

	if current != nil {
		token, refreshed, err := p.ensureFresh(ctx, current.Token)
		switch {
		case err == nil:
			// A refresh renews the credential in place: the identity
			// keeps the source it was originally materialized from.
			if refreshed || ident == nil {
				p.swap(token, current.Source)
			}
			return token, nil

		case errors.Is(err, oauth.ErrReauthenticationRequired):
			// The credential is beyond saving. Drop it and fall through
			// to the single interactive retry below.
			p.Invalidate()
			slog.Info("Stored credential is no longer usable, starting interactive login",
				"store", p.cfg.Store.Name(),
			)

		default:
			// Transient failure: keep the stored credential, the caller
			// may retry.
			return nil, err
		}
	}

	return p.login(ctx)
}

// loadStored reads the store, treating every failure as a miss.
func (p *Provider) loadStored() *oauth.Token {
	token, err := p.cfg.Store.Load()
	if err != nil {
		slog.Warn("Credential store read failed, treating as absent",
			"store", p.cfg.Store.Name(),
			"error", err.Error(),
		)
		return nil
	}
	return token
}

// login runs the interactive flow once, persists the result, and makes it
// the current identity.
func (p *Provider) login(ctx context.Context) (*oauth.Token, error) {
	if p.cfg.Login == nil {
		return nil, fmt.Errorf("%w: no usable credential and interactive login is not configured", oauth.ErrReauthenticationRequired)
	}

	token, err := p.cfg.Login.Run(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.cfg.Store.Save(token); err != nil {
		// The token is still valid for this process
		slog.Warn("Failed to persist credential",
			"store", p.cfg.Store.Name(),
			"error", err.Error(),
		)
	}

	p.swap(token, SourceMemory)
	return token, nil
}

// swap installs a new identity atomically.
func (p *Provider) swap(token *oauth.Token, source Source) {
	p.mu.Lock()
	p.identity = &Identity{
		Token:    token,
		Source:   source,
		LoadedAt: time.Now(),
	}
	p.mu.Unlock()
}

// Invalidate drops the in-memory identity so the next call re-reads the
// store. Wired to the credential file watcher to pick up logins and logouts
// performed by other processes.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.identity = nil
	p.mu.Unlock()
}

// Logout clears the stored credential and drops the in-memory identity.
func (p *Provider) Logout() error {
	p.Invalidate()

	if err := p.cfg.Store.Clear(); err != nil {
		return err
	}

	slog.Info("Logged out",
		"store", p.cfg.Store.Name(),
	)
	return nil
}

// Identity returns the current in-memory identity, or nil when none is
// cached. The returned value is a snapshot; it is never mutated in place.
func (p *Provider) Identity() *Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.identity
}
