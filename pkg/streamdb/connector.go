package streamdb

import "context"

// Handle is a live connection pool handed to the caller after a successful
// acquisition. The caller owns it and must Close it.
type Handle interface {
	// Ping checks the backend is reachable through the pool.
	Ping(ctx context.Context) error

	// Driver returns the resolved driver name.
	Driver() string

	// Close releases every connection of the pool.
	Close() error
}

// ConnectionFactory produces handles for a configuration. It keeps no
// per-call state beyond idempotent driver loading.
type ConnectionFactory interface {
	// LoadDriver resolves the driver of cfg, loading its library at most once
	// per process. Failures are *DriverLoadError.
	LoadDriver(cfg *ConnectionConfig) error

	// Connect opens and pings a pool. Failures that should be retried are
	// *TransportError; anything else is fatal for the cycle.
	Connect(ctx context.Context, cfg *ConnectionConfig) (Handle, error)
}
