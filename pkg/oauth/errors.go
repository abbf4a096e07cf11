package oauth

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying authentication failures. Callers match them
// with errors.Is instead of inspecting message strings.
var (
	// ErrAuthorizationDenied indicates the user or the identity provider
	// rejected the authorization request.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrFlowTimeout indicates the user did not complete the browser flow
	// within the wait window.
	ErrFlowTimeout = errors.New("authorization flow timed out")

	// ErrFlowInProgress indicates an interactive flow is already running in
	// this process.
	ErrFlowInProgress = errors.New("authorization flow already in progress")

	// ErrTokenExchange indicates the token endpoint rejected the
	// authorization code exchange.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrReauthenticationRequired indicates the cached credential is no
	// longer usable and a new interactive login is needed.
	ErrReauthenticationRequired = errors.New("reauthentication required")

	// ErrTransient indicates a temporary failure (network error, server 5xx)
	// where the stored credential may still be valid.
	ErrTransient = errors.New("transient authentication error")

	// ErrStore indicates the credential store failed.
	ErrStore = errors.New("credential store error")

	// ErrConfig indicates invalid or incomplete authentication configuration.
	ErrConfig = errors.New("invalid authentication configuration")
)

// TokenEndpointError is a structured error response from the token endpoint
// as defined in RFC 6749 section 5.2.
type TokenEndpointError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Code is the OAuth error code, e.g. "invalid_grant".
	Code string

	// Description is the optional human-readable error_description.
	Description string
}

// Error returns the error message.
func (e *TokenEndpointError) Error() string {
	switch {
	case e.Code == "":
		return fmt.Sprintf("token request failed with status %d", e.StatusCode)
	case e.Description == "":
		return fmt.Sprintf("token request failed: %s", e.Code)
	default:
		return fmt.Sprintf("token request failed: %s (%s)", e.Code, e.Description)
	}
}

// IsInvalidGrant reports whether err is a token endpoint rejection with the
// "invalid_grant" error code, meaning the refresh token or authorization
// code is expired, revoked, or malformed. The credential it belonged to
// cannot be recovered without a new interactive login.
func IsInvalidGrant(err error) bool {
	var te *TokenEndpointError
	return errors.As(err, &te) && te.Code == "invalid_grant"
}

// IsServerError reports whether err is a token endpoint response with a 5xx
// status. Such failures are transient and the request may succeed later.
func IsServerError(err error) bool {
	var te *TokenEndpointError
	return errors.As(err, &te) && te.StatusCode >= 500
}
