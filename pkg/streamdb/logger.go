package streamdb

// Logger provides a pluggable logging interface for streamdb operations.
// Arguments after the message are slog-style key/value pairs.
// Implementations must be safe for concurrent use by multiple goroutines.
type Logger interface {
	// Verbose logs detailed diagnostic information.
	// Only logged when verbose mode is enabled.
	Verbose(msg string, args ...any)

	// Info logs informational messages about normal operations.
	Info(msg string, args ...any)

	// Error logs error messages.
	Error(msg string, args ...any)
}
