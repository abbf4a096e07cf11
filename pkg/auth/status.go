package auth

import (
	"time"

	"bearer/pkg/oauth"
)

// Status describes the provider's credential state for display. It is
// computed without network calls and never contains token values.
type Status struct {
	// Authenticated is true when a usable credential exists: a valid
	// access token, or an expired one with a refresh token to renew it.
	Authenticated bool `json:"authenticated"`

	// Source says where the credential in effect came from.
	Source Source `json:"source,omitempty"`

	// Issuer is the identity provider the credential belongs to.
	Issuer string `json:"issuer,omitempty"`

	// Store names the backing credential store.
	Store string `json:"store,omitempty"`

	// ExpiresAt is the access token expiry. Zero means no known expiry.
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// HasRefreshToken reports whether silent renewal is possible.
	HasRefreshToken bool `json:"has_refresh_token,omitempty"`

	// Scopes lists the granted scopes when known.
	Scopes []string `json:"scopes,omitempty"`
}

// Status reports the current credential state. It consults the in-memory
// identity first and falls back to the store, but never touches the network
// and never triggers a login.
func (p *Provider) Status() Status {
	p.mu.RLock()
	ident := p.identity
	p.mu.RUnlock()

	status := Status{
		Store:  p.cfg.Store.Name(),
		Issuer: p.cfg.IssuerURL,
	}

	var token *oauth.Token
	source := storeSource(p.cfg.Store)
	if ident != nil {
		token = ident.Token
		source = ident.Source
	} else {
		token = p.loadStored()
	}

	if token == nil {
		return status
	}

	status.Authenticated = !token.IsExpired() || token.RefreshToken != ""
	status.Source = source
	status.ExpiresAt = token.ExpiresAt
	status.HasRefreshToken = token.RefreshToken != ""
	status.Scopes = token.Scopes()

	return status
}
