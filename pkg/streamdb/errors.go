package streamdb

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	handle, err := coordinator.Acquire(ctx, cfg)
//	if errors.Is(err, streamdb.ErrCooldownActive) {
//	    // tag the event and continue without a lookup
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrDriverLoad indicates the driver or its library could not be loaded.
	ErrDriverLoad = errors.New("driver load failed")

	// ErrTransport indicates a connection or ping attempt failed at the network or protocol level.
	ErrTransport = errors.New("transport error")

	// ErrCooldownActive indicates a shared cooldown window rejected the cycle without any attempt.
	ErrCooldownActive = errors.New("connection cooldown active")

	// ErrExhausted indicates every attempt of a cycle failed.
	ErrExhausted = errors.New("connection attempts exhausted")

	// ErrConnectionFailed is chained by every terminal acquisition failure
	// caused by the backend (cooldown and exhaustion).
	ErrConnectionFailed = errors.New("connection failed")
)

// DriverLoadError reports a driver that could not be resolved or loaded.
// It is fatal and never retried.
type DriverLoadError struct {
	Driver  string
	Library string
	Err     error
}

func (e *DriverLoadError) Error() string {
	if e.Driver == "" {
		return fmt.Sprintf("load driver library %s: %v", e.Library, e.Err)
	}
	if e.Library != "" {
		return fmt.Sprintf("load driver %q from %s: %v", e.Driver, e.Library, e.Err)
	}
	return fmt.Sprintf("load driver %q: %v", e.Driver, e.Err)
}

func (e *DriverLoadError) Unwrap() []error {
	return []error{ErrDriverLoad, e.Err}
}

// TransportError is a failed connection or ping attempt. It is the only
// error kind the retry loop absorbs.
type TransportError struct {
	// Reason is a coarse category used for logs and metrics
	// (refused, dns, auth, timeout, tls, too_many_connections, other).
	Reason string
	Err    error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// CooldownError is returned when the shared window for Key is still open.
// No attempt was made during the cycle.
type CooldownError struct {
	Key         string
	LastFailure time.Time
	Remaining   time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("connection cooldown active for %q: last failure at %s, retry in %s",
		e.Key, e.LastFailure.Format(time.RFC3339), e.Remaining.Round(time.Millisecond))
}

func (e *CooldownError) Unwrap() []error {
	return []error{ErrCooldownActive, ErrConnectionFailed}
}

// ExhaustedError wraps the last transport error of a cycle whose attempts
// all failed.
type ExhaustedError struct {
	Key      string
	Attempts int
	Elapsed  time.Duration
	Last     *TransportError
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed to connect after %d attempt(s) in %s: %v",
		e.Attempts, e.Elapsed.Round(time.Millisecond), e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	errs := []error{ErrExhausted, ErrConnectionFailed}
	if e.Last != nil {
		errs = append(errs, e.Last)
	}
	return errs
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrDriverLoad):
		return ExitDriverLoadError
	case errors.Is(err, ErrCooldownActive):
		return ExitCooldownActive
	case errors.Is(err, ErrConnectionFailed), errors.Is(err, ErrTransport):
		return ExitConnectionError
	}

	// Cobra reports usage problems as plain errors
	errStr := err.Error()
	for _, pattern := range []string{"unknown flag", "unknown shorthand flag", "unknown command", "accepts ", "required flag", "invalid argument"} {
		if strings.Contains(errStr, pattern) {
			return ExitUsageError
		}
	}

	return ExitGeneralError
}
