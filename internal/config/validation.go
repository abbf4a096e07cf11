package config

import (
	"fmt"
	"strings"

	"bearer/pkg/oauth"
)

// ValidationError represents a validation error with field context.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// Unwrap classifies every validation failure as a configuration error, so
// errors.Is(err, oauth.ErrConfig) holds for callers mapping exit codes.
func (ve ValidationError) Unwrap() error {
	return oauth.ErrConfig
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (ve ValidationErrors) Unwrap() []error {
	errs := make([]error, len(ve))
	for i, err := range ve {
		errs[i] = err
	}
	return errs
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string) {
	*ve = append(*ve, ValidationError{Field: field, Message: message})
}

// Validate checks the configuration for the selected mode. Static mode only
// needs the token value itself; OAuth mode needs a client registration and
// enough endpoint information to reach the authorization server.
func (c Config) Validate() error {
	var errs ValidationErrors

	if c.CallbackPort < 0 || c.CallbackPort > 65535 {
		errs.Add("callbackPort", fmt.Sprintf("%d is not a valid port", c.CallbackPort))
	}
	if c.FlowTimeout < 0 {
		errs.Add("flowTimeout", "must not be negative")
	}

	switch c.Store.Backend {
	case "", "auto", "keyring", "file":
	default:
		errs.Add("store.backend", fmt.Sprintf("unknown backend %q (expected auto, keyring, or file)", c.Store.Backend))
	}

	if c.Mode() == ModeOAuth {
		if strings.TrimSpace(c.ClientID) == "" {
			errs.Add("clientID", "is required for OAuth mode")
		}
		if c.Issuer == "" && (c.AuthURL == "" || c.TokenURL == "") {
			errs.Add("issuer", "is required unless both authURL and tokenURL are set")
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
