package auth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"bearer/pkg/oauth"
)

// TokenProvider yields a valid access token for an outgoing request.
// *Provider satisfies it.
type TokenProvider interface {
	Token(ctx context.Context) (*oauth.Token, error)
}

// Transport is an http.RoundTripper that resolves a token for every request
// and attaches it as a bearer Authorization header. Resolution goes through
// the provider, so expired tokens are refreshed transparently between
// requests issued through the same client.
type Transport struct {
	// Provider resolves the token for each request.
	Provider TokenProvider

	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Provider.Token(req.Context())
	if err != nil {
		return nil, err
	}

	// Clone the request to avoid modifying the original
	reqCopy := req.Clone(req.Context())
	reqCopy.Header.Set("Authorization", "Bearer "+token.AccessToken)

	return t.base().RoundTrip(reqCopy)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// Client returns an HTTP client whose requests carry a bearer token resolved
// through the provider. The credential is resolved once before returning so
// a missing or expired login surfaces here instead of on the first request.
func (p *Provider) Client(ctx context.Context) (*http.Client, error) {
	if _, err := p.Token(ctx); err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: &Transport{Provider: p},
	}, nil
}

// TokenSource adapts the provider to the golang.org/x/oauth2 TokenSource
// interface for libraries that consume one.
func (p *Provider) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, provider: p}
}

type tokenSource struct {
	ctx      context.Context
	provider *Provider
}

// Token implements oauth2.TokenSource.
func (s *tokenSource) Token() (*oauth2.Token, error) {
	token, err := s.provider.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	return token.ToOAuth2Token(), nil
}
