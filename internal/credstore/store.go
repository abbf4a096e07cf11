// Package credstore persists a single OAuth credential across process
// restarts.
//
// Platform behavior:
//   - macOS: Uses Keychain via the Security framework (works out of the box)
//   - Linux: Requires libsecret (GNOME), kwallet (KDE), or pass (CLI)
//   - Windows: Uses Windows Credential Manager (works out of the box)
//   - Headless/CI: Automatically falls back to a mode-0600 JSON file under
//     ~/.config/bearer
//
// The package attempts the system keychain first. If the keychain is
// unavailable (CI, headless servers, containers), it silently falls back to
// file-based storage with restricted permissions.
//
// Records carry a schema version and a checksum over the token material.
// A record that fails to decode, verify, or that was only partially written
// is treated as absent rather than surfaced as an error, so a damaged store
// degrades to "not logged in" instead of crashing the caller.
package credstore

import (
	"fmt"
	"log/slog"

	"bearer/pkg/oauth"
)

// Store backend identifiers accepted in configuration.
const (
	// BackendAuto prefers the OS secret store and falls back to a file.
	BackendAuto = "auto"

	// BackendKeyring requires the OS secret store.
	BackendKeyring = "keyring"

	// BackendFile uses a mode-0600 JSON file.
	BackendFile = "file"
)

// Store persists a single credential record.
//
// Implementations serialize all operations internally, so a Save followed by
// a Load from another goroutine in the same process observes the saved
// record.
type Store interface {
	// Load returns the stored record, or nil if no usable credential is
	// stored. Absent, corrupt, and partially written records all return
	// (nil, nil).
	Load() (*Record, error)

	// Save overwrites the stored record wholesale.
	Save(rec *Record) error

	// Clear removes the stored record. Clearing an empty store is not an
	// error.
	Clear() error

	// Name identifies the backend for logging and status output.
	Name() string
}

// Config selects and configures the storage backend.
type Config struct {
	// Backend is one of BackendAuto, BackendKeyring, or BackendFile.
	// Empty means BackendAuto.
	Backend string

	// Path is the credential file location for the file backend.
	// Empty means ~/.config/bearer/credentials.json.
	Path string

	// Service is the OS secret store service name. Empty means "bearer".
	Service string

	// Account is the OS secret store account name. Empty means "default".
	Account string
}

// Open creates the credential store selected by cfg.
//
// With BackendAuto the OS secret store is probed first; if it does not
// respond (no keychain daemon, headless session) the file backend is used
// instead.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendAuto:
		ks := NewKeyringStore(cfg.Service, cfg.Account)
		if ks.available() {
			return ks, nil
		}
		slog.Debug("OS secret store unavailable, falling back to file storage")
		return NewFileStore(cfg.Path)

	case BackendKeyring:
		ks := NewKeyringStore(cfg.Service, cfg.Account)
		if !ks.available() {
			return nil, fmt.Errorf("%w: OS secret store is not available", oauth.ErrStore)
		}
		return ks, nil

	case BackendFile:
		return NewFileStore(cfg.Path)

	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", oauth.ErrConfig, cfg.Backend)
	}
}
