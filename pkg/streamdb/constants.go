package streamdb

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Connection acquired
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration
	ExitConnectionError = 11 // All connection attempts failed
	ExitDriverLoadError = 12 // Driver could not be loaded
	ExitCooldownActive  = 13 // Shared cooldown window rejected the cycle
)

// Defaults mirror the option defaults of the enrichment filter.
const (
	// DefaultValidationTimeout is how long a pooled connection may sit idle
	// before it is validated again on checkout.
	DefaultValidationTimeout = 3600 * time.Second

	// DefaultRetryAttempts disables retries.
	DefaultRetryAttempts = 0

	// DefaultRetryWait is the pause between two attempts of a cycle.
	DefaultRetryWait = 500 * time.Millisecond

	// DefaultRetryDelay is the minimum time between an exhausted cycle and
	// the next one for the same coordination key.
	DefaultRetryDelay = 300 * time.Second

	// DefaultRetryMaxWait caps exponential backoff.
	DefaultRetryMaxWait = 1 * time.Minute

	// DefaultPingTimeout bounds the liveness check of a single attempt.
	DefaultPingTimeout = 10 * time.Second

	// PrivateScopePrefix marks coordination keys generated for coordinators
	// without a configured key.
	PrivateScopePrefix = "private:"
)
