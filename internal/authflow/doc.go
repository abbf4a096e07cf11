// Package authflow implements the interactive authorization-code login.
//
// A login binds a short-lived HTTP listener to the loopback interface,
// sends the user to the identity provider's authorization endpoint, waits
// for the redirect carrying the authorization code, and exchanges the code
// for tokens. The flow uses PKCE and a random state parameter; callbacks
// that do not echo the issued state are rejected before the code is used.
//
// # Flow
//
//  1. Bind the callback listener on 127.0.0.1 (ephemeral port by default).
//  2. Build the authorization URL with state, scopes, and PKCE challenge.
//  3. Print the URL and open the system browser (best effort).
//  4. Wait for the redirect, a timeout (5 minutes by default), or
//     cancellation.
//  5. Validate state, then exchange the code at the token endpoint.
//  6. Tear the listener down, on every exit path.
//
// Only one flow may run at a time per process. Environments without a
// bindable loopback port fall back to manual entry: the user pastes the
// redirect URL back into the terminal.
//
// # Usage
//
//	ctrl := authflow.NewController(client, authflow.Config{
//	    IssuerURL: "https://idp.example.com",
//	    ClientID:  "my-cli",
//	    Scopes:    []string{"openid", "offline_access"},
//	})
//
//	token, err := ctrl.Run(ctx)
package authflow
