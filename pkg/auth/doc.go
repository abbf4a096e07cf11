// Package auth provides the credential provider consumed by request-issuing
// code: one operation that yields an authenticated HTTP caller, backed by
// either the OAuth authorization-code flow or a static bearer token.
//
// # Resolution order
//
// Provider.Token resolves credentials through, in order:
//
//  1. The in-memory identity, when its access token is not within the
//     expiry margin.
//  2. The persistent credential store.
//  3. A refresh exchange, when the credential is expired but carries a
//     refresh token.
//  4. One interactive login, when the refresh token is absent, revoked, or
//     expired.
//
// Concurrent callers share a single in-flight resolution: N goroutines
// hitting an expired token produce exactly one refresh exchange, and all of
// them observe its outcome. The in-memory identity is replaced wholesale,
// never mutated field by field.
//
// Transient failures (network errors, provider 5xx) keep the stored
// credential so a later call can retry. Only an invalid_grant rejection
// clears the store.
//
// # Usage
//
//	provider, err := auth.New(auth.Config{
//	    Store:     store,
//	    Login:     flow,
//	    IssuerURL: "https://idp.example.com",
//	    ClientID:  "my-cli",
//	})
//
//	client, err := provider.Client(ctx)
//	resp, err := client.Get("https://api.example.com/v1/things")
//
// # Static tokens
//
// The static path is a pure configuration-to-transport transform with no
// state machine behind it:
//
//	client, err := auth.NewStaticClient(auth.StaticConfig{
//	    Value: "Bearer " + token,
//	})
package auth
