package auth

import (
	"fmt"
	"net/http"
	"strings"

	"bearer/pkg/oauth"
)

// StaticConfig configures the static token transport. It is a pure
// configuration-to-transport transform: no caching, no expiry, no network
// calls of its own.
type StaticConfig struct {
	// Header is the header the value is written to.
	// Defaults to "Authorization".
	Header string

	// Value is the complete header value, e.g. "Bearer abc123". Required.
	Value string
}

// staticTransport sets one fixed header on every request.
type staticTransport struct {
	header string
	value  string
	base   http.RoundTripper
}

// NewStaticTransport returns a RoundTripper that sets the configured header
// on every request issued through it. An empty value is a configuration
// error reported here, at construction, not as silent 401s at request time.
func NewStaticTransport(cfg StaticConfig, base http.RoundTripper) (http.RoundTripper, error) {
	if strings.TrimSpace(cfg.Value) == "" {
		return nil, fmt.Errorf("%w: static token value is empty", oauth.ErrConfig)
	}

	header := cfg.Header
	if header == "" {
		header = "Authorization"
	}
	if base == nil {
		base = http.DefaultTransport
	}

	return &staticTransport{
		header: header,
		value:  cfg.Value,
		base:   base,
	}, nil
}

// NewStaticClient returns an HTTP client that sends the configured header on
// every request.
func NewStaticClient(cfg StaticConfig) (*http.Client, error) {
	transport, err := NewStaticTransport(cfg, nil)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: transport}, nil
}

// RoundTrip implements http.RoundTripper.
func (t *staticTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	reqCopy := req.Clone(req.Context())
	reqCopy.Header.Set(t.header, t.value)

	return t.base.RoundTrip(reqCopy)
}
