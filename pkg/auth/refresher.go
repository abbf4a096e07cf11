package auth

import (
	"context"
	"fmt"
	"log/slog"

	"bearer/pkg/oauth"
)

// ensureFresh returns a token valid for at least the configured expiry
// margin, performing a refresh exchange when needed. The bool reports
// whether a refresh happened.
//
// Failures follow the refresh dichotomy: an invalid_grant rejection clears
// the store and reports oauth.ErrReauthenticationRequired; every other
// failure reports oauth.ErrTransient and leaves the stored credential in
// place, since it may still work once the provider recovers.
func (p *Provider) ensureFresh(ctx context.Context, token *oauth.Token) (*oauth.Token, bool, error) {
	if !token.IsExpiredWithMargin(p.cfg.ExpiryMargin) {
		return token, false, nil
	}

	if token.RefreshToken == "" {
		return nil, false, fmt.Errorf("%w: credential expired and no refresh token is available", oauth.ErrReauthenticationRequired)
	}

	endpoint, err := p.tokenEndpoint(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", oauth.ErrTransient, err)
	}

	slog.Debug("Refreshing access token",
		"issuer", p.cfg.IssuerURL,
		"expires_at", token.ExpiresAt,
	)

	refreshed, err := p.cfg.Client.RefreshToken(ctx, endpoint, token.RefreshToken, p.cfg.ClientID, p.cfg.ClientSecret)
	if err != nil {
		if oauth.IsInvalidGrant(err) {
			// The refresh token is revoked or expired. Drop the stored
			// credential so the next resolution goes interactive.
			if clearErr := p.cfg.Store.Clear(); clearErr != nil {
				slog.Warn("Failed to clear revoked credential",
					"store", p.cfg.Store.Name(),
					"error", clearErr.Error(),
				)
			}
			return nil, false, fmt.Errorf("%w: %w", oauth.ErrReauthenticationRequired, err)
		}
		return nil, false, fmt.Errorf("%w: %w", oauth.ErrTransient, err)
	}

	// Providers may rotate the refresh token or omit it from the response;
	// keep the old one when none is returned.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}

	if err := p.cfg.Store.Save(refreshed); err != nil {
		// The refreshed token is still valid for this process
		slog.Warn("Failed to persist refreshed credential",
			"store", p.cfg.Store.Name(),
			"error", err.Error(),
		)
	}

	slog.Debug("Access token refreshed",
		"issuer", p.cfg.IssuerURL,
		"expires_at", refreshed.ExpiresAt,
		"has_refresh_token", refreshed.RefreshToken != "",
	)

	return refreshed, true, nil
}

// tokenEndpoint returns the refresh exchange endpoint, discovering it from
// the issuer when not configured explicitly. Discovery results are cached
// by the protocol client.
func (p *Provider) tokenEndpoint(ctx context.Context) (string, error) {
	if p.cfg.TokenEndpoint != "" {
		return p.cfg.TokenEndpoint, nil
	}

	metadata, err := p.cfg.Client.DiscoverMetadata(ctx, p.cfg.IssuerURL)
	if err != nil {
		return "", fmt.Errorf("failed to discover token endpoint: %w", err)
	}
	return metadata.TokenEndpoint, nil
}
