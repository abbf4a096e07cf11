package config

import "time"

// Config is the top-level configuration structure for bearer.
type Config struct {
	Issuer       string        `yaml:"issuer,omitempty"`       // Authorization server base URL, used for endpoint discovery
	AuthURL      string        `yaml:"authURL,omitempty"`      // Explicit authorization endpoint (skips discovery when tokenURL is also set)
	TokenURL     string        `yaml:"tokenURL,omitempty"`     // Explicit token endpoint (skips discovery when authURL is also set)
	ClientID     string        `yaml:"clientID,omitempty"`     // OAuth client identifier
	ClientSecret string        `yaml:"clientSecret,omitempty"` // Client secret, only for confidential clients
	Scopes       []string      `yaml:"scopes,omitempty"`       // Scopes requested during interactive login
	CallbackPort int           `yaml:"callbackPort,omitempty"` // Loopback callback port (default: 0 for an ephemeral port)
	FlowTimeout  time.Duration `yaml:"flowTimeout,omitempty"`  // How long to wait for the browser redirect (default: 5m)

	Store  StoreConfig  `yaml:"store,omitempty"`
	Static StaticConfig `yaml:"static,omitempty"`
}

// StoreConfig selects where the credential is persisted.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"` // One of auto, keyring, file (default: auto)
	Path    string `yaml:"path,omitempty"`    // Credential file location for the file backend
	Service string `yaml:"service,omitempty"` // OS secret store service name (default: bearer)
	Account string `yaml:"account,omitempty"` // OS secret store account name (default: default)
}

// StaticConfig configures a fixed token instead of the OAuth flow. Setting a
// value switches bearer to static mode: no store, no refresh, no browser.
type StaticConfig struct {
	Header string `yaml:"header,omitempty"` // Header the value is written to (default: Authorization)
	Value  string `yaml:"value,omitempty"`  // Complete header value, e.g. "Bearer abc123"
}

// Mode identifies how requests are authenticated.
type Mode string

const (
	// ModeOAuth resolves tokens through the store/refresh/login chain.
	ModeOAuth Mode = "oauth"

	// ModeStatic attaches a fixed configured value to every request.
	ModeStatic Mode = "static"
)

// Mode returns ModeStatic when a static token value is configured,
// ModeOAuth otherwise.
func (c Config) Mode() Mode {
	if c.Static.Value != "" {
		return ModeStatic
	}
	return ModeOAuth
}
