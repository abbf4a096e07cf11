package config

import "time"

const (
	// DefaultStoreBackend prefers the OS secret store with a file fallback.
	DefaultStoreBackend = "auto"

	// DefaultKeyringService is the OS secret store service name.
	DefaultKeyringService = "bearer"

	// DefaultFlowTimeout bounds how long an interactive login waits for the
	// browser redirect before giving up.
	DefaultFlowTimeout = 5 * time.Minute
)

// GetDefaultConfig returns the default configuration for bearer.
func GetDefaultConfig() Config {
	return Config{
		FlowTimeout: DefaultFlowTimeout,
		Store: StoreConfig{
			Backend: DefaultStoreBackend,
			Service: DefaultKeyringService,
		},
	}
}
