package credstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bearer/pkg/oauth"
)

const (
	// DefaultStorageDir is the default directory for the credential file,
	// relative to the user's home directory. This follows XDG conventions.
	DefaultStorageDir = ".config/bearer"

	// defaultFileName is the credential file name inside DefaultStorageDir.
	defaultFileName = "credentials.json"
)

// ErrInsecurePermissions is returned when the credential file is readable by
// other users.
var ErrInsecurePermissions = errors.New("credential file has insecure permissions")

// FileStore persists the credential record as a JSON file.
//
// SECURITY: This store handles sensitive OAuth credentials. The following
// measures are implemented:
//   - The file is created with 0600 permissions (owner read/write only)
//   - The storage directory is created with 0700 permissions (owner only)
//   - Token values are NEVER logged (only expiry and issuer metadata)
//   - Files with loosened permissions are refused on load
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed store at path.
// An empty path means ~/.config/bearer/credentials.json.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to get home directory: %w", oauth.ErrStore, err)
		}
		path = filepath.Join(homeDir, DefaultStorageDir, defaultFileName)
	}

	return &FileStore{path: path}, nil
}

// Name identifies the backend.
func (s *FileStore) Name() string {
	return "file"
}

// Path returns the credential file location. The watcher uses it to monitor
// for changes made by other processes.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the stored record. A missing, corrupt, or partially written
// file yields (nil, nil): a damaged store means "not logged in", never a
// crash. A file readable by other users is refused.
func (s *FileStore) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading credential file: %w", oauth.ErrStore, err)
	}

	// Refuse files with loosened permissions. The credential may have been
	// exposed and should be re-issued, not silently reused.
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return nil, fmt.Errorf("%w: %s has permissions %04o (expected 0600), fix with: chmod 600 %s",
			ErrInsecurePermissions, s.path, perm, s.path)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading credential file: %w", oauth.ErrStore, err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		slog.Warn("Ignoring unusable credential file",
			"path", s.path,
			"error", err.Error())
		return nil, nil
	}

	return rec, nil
}

// Save overwrites the stored record.
// SECURITY: Token values are never logged. Only expiry metadata is logged
// for audit purposes.
func (s *FileStore) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", oauth.ErrStore, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("%w: failed to create storage directory: %w", oauth.ErrStore, err)
	}

	// Write with restricted permissions (owner read/write only)
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		slog.Warn("SECURITY_AUDIT: credential storage failed",
			"event", "credential_store_failed",
			"backend", s.Name(),
			"error", err.Error(),
		)
		return fmt.Errorf("%w: failed to persist credential: %w", oauth.ErrStore, err)
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
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		slog.Warn("SECURITY_AUDIT: credential deletion failed",
			"event", "credential_delete_failed",
			"backend", s.Name(),
			"error", err.Error(),
		)
		return fmt.Errorf("%w: failed to remove credential file: %w", oauth.ErrStore, err)
	}

	slog.Info("SECURITY_AUDIT: credential deleted",
		"event", "credential_deleted",
		"backend", s.Name(),
	)
	return nil
}
