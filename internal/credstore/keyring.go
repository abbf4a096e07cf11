package credstore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/zalando/go-keyring"

	"bearer/pkg/oauth"
)

const (
	// DefaultServiceName is the default OS secret store service identifier.
	// Can be overridden with the BEARER_KEYRING_SERVICE environment variable
	// for test isolation.
	DefaultServiceName = "bearer"

	// DefaultAccountName is the default secret store account identifier.
	DefaultAccountName = "default"
)

// KeyringStore persists the credential record as a single entry in the OS
// secret store (macOS Keychain, Windows Credential Manager, or a libsecret
// compatible service on Linux).
//
// The record JSON is base64-encoded before storage because some secret store
// backends mangle non-trivial payloads.
type KeyringStore struct {
	mu      sync.Mutex
	service string
	account string
}

// NewKeyringStore creates a secret store backed credential store.
// Empty service or account select the defaults.
func NewKeyringStore(service, account string) *KeyringStore {
	if service == "" {
		service = DefaultServiceName
	}
	if env := os.Getenv("BEARER_KEYRING_SERVICE"); env != "" {
		service = env
	}
	if account == "" {
		account = DefaultAccountName
	}
	return &KeyringStore{service: service, account: account}
}

// Name identifies the backend.
func (s *KeyringStore) Name() string {
	return "keyring"
}

// available probes the OS secret store. A keyring.ErrNotFound answer counts
// as available: the daemon responded, there is just no entry yet.
func (s *KeyringStore) available() bool {
	_, err := keyring.Get(s.service, s.account)
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// Load reads the stored record. A missing or undecodable entry yields
// (nil, nil).
func (s *KeyringStore) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, err := keyring.Get(s.service, s.account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: keyring get: %w", oauth.ErrStore, err)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		slog.Warn("Ignoring unusable keyring entry",
			"service", s.service,
			"error", err.Error())
		return nil, nil
	}

	rec, err := decodeRecord(data)
	if err != nil {
		slog.Warn("Ignoring unusable keyring entry",
			"service", s.service,
			"error", err.Error())
		return nil, nil
	}

	return rec, nil
}

// Save overwrites the stored record.
// SECURITY: Token values are never logged. Only expiry metadata is logged
// for audit purposes.
func (s *KeyringStore) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", oauth.ErrStore, err)
	}

	if err := keyring.Set(s.service, s.account, base64.StdEncoding.EncodeToString(data)); err != nil {
		slog.Warn("SECURITY_AUDIT: credential storage failed",
			"event", "credential_store_failed",
			"backend", s.Name(),
			"error", err.Error(),
		)
		return fmt.Errorf("%w: keyring set: %w", oauth.ErrStore, err)
	}

	slog.Info("SECURITY_AUDIT: credential stored",
		"event", "credential_stored",
		"backend", s.Name(),
		"issuer", rec.Issuer,
		"expiry", rec.Expiry.Format(time.RFC3339),
		"has_refresh_token", rec.RefreshToken != "",
	)
	return nil
}

// Clear removes the stored record. Clearing an empty store is not an error.
func (s *KeyringStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Delete(s.service, s.account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		slog.Warn("SECURITY_AUDIT: credential deletion failed",
			"event", "credential_delete_failed",
			"backend", s.Name(),
			"error", err.Error(),
		)
		return fmt.Errorf("%w: keyring delete: %w", oauth.ErrStore, err)
	}

	slog.Info("SECURITY_AUDIT: credential deleted",
		"event", "credential_deleted",
		"backend", s.Name(),
	)
	return nil
}
