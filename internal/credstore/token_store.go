package credstore

import (
	"log/slog"

	"bearer/pkg/logging"
	"bearer/pkg/oauth"
)

// TokenStore adapts a Store to the token-level interface the credential
// provider consumes, pairing every saved token with the issuer it was
// granted by. A stored credential whose issuer does not match is treated
// as absent so a configuration change can never surface a token minted
// for a different provider.
type TokenStore struct {
	inner  Store
	issuer string
}

// NewTokenStore wraps a Store for the given issuer. An empty issuer
// disables the issuer check.
func NewTokenStore(inner Store, issuer string) *TokenStore {
	return &TokenStore{inner: inner, issuer: issuer}
}

// Load returns the stored token, or nil when none is stored, the record is
// unreadable, or the issuer does not match.
func (s *TokenStore) Load() (*oauth.Token, error) {
	rec, err := s.inner.Load()
	if err != nil || rec == nil {
		return nil, err
	}

	if s.issuer != "" && rec.Issuer != s.issuer {
		slog.Warn("Stored credential belongs to a different issuer, ignoring",
			"store", s.inner.Name(),
			"stored_issuer", rec.Issuer,
			"configured_issuer", s.issuer,
		)
		return nil, nil
	}

	return rec.Token(), nil
}

// Save persists the token, replacing any previous credential.
func (s *TokenStore) Save(token *oauth.Token) error {
	return s.inner.Save(NewRecord(s.issuer, token))
}

// Clear removes the stored credential. Clearing an empty store is not an
// error.
func (s *TokenStore) Clear() error {
	return s.inner.Clear()
}

// Name identifies the backing store for logs and status output.
func (s *TokenStore) Name() string {
	return s.inner.Name()
}

// Watch starts change notification for logins and logouts performed by
// other processes, invoking onChange after every external rewrite of the
// credential file. Keyring-backed stores have no file to watch; Watch
// returns nil for them and onChange never fires.
func (s *TokenStore) Watch(onChange func()) *Watcher {
	fs, ok := s.inner.(*FileStore)
	if !ok {
		return nil
	}

	w := NewWatcher(WatcherConfig{
		Path:     fs.Path(),
		OnChange: onChange,
	})
	if err := w.Start(); err != nil {
		logging.Warn("CredWatcher", "Failed to start credential watcher: %v", err)
		return nil
	}
	return w
}
