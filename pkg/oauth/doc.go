// Package oauth implements the OAuth 2.1 protocol operations used by the
// credential provider: authorization server metadata discovery, authorization
// URL construction, authorization code exchange, and token refresh.
//
// # Core Components
//
//   - Token: access token representation with expiry checking
//   - Metadata: authorization server metadata (RFC 8414)
//   - PKCE: Proof Key for Code Exchange generation (RFC 7636)
//   - Client: metadata discovery and token endpoint operations
//   - Error taxonomy: sentinel errors and TokenEndpointError for
//     classifying failures with errors.Is/errors.As
//
// # Usage
//
// The interactive flow and the refresher both sit on top of this package:
//
//	client := oauth.NewClient()
//	metadata, err := client.DiscoverMetadata(ctx, issuer)
//	pkce, err := oauth.GeneratePKCE()
//	token, err := client.ExchangeCode(ctx, metadata.TokenEndpoint, code, redirectURI, clientID, "", pkce.CodeVerifier)
//
// Token endpoint rejections carry the RFC 6749 error code so callers can
// distinguish a revoked grant (reauthentication needed) from a transient
// server failure (retry later).
package oauth
