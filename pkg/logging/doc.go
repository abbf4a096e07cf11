// Package logging provides subsystem-tagged structured logging built on
// Go's standard slog package.
//
// # Log Levels
//   - Debug: detailed information for debugging and development
//   - Info: general informational messages about application operation
//   - Warn: warning messages that indicate potential issues
//   - Error: error messages for failures and exceptional conditions
//
// # Usage
//
//	// Initialize once at startup; also installs the slog default logger
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("CredWatcher", "fsnotify not available, falling back to polling")
//	logging.Error("Store", err, "Failed to persist credential")
//
// Packages that take an injected *slog.Logger (the OAuth client) or log
// security audit events through slog directly share the same handler because
// InitForCLI sets the slog default.
package logging
