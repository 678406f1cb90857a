// Package logging provides concrete implementations of the streamdb.Logger
// interface.
//
// Available implementations:
//   - ConsoleLogger: structured slog output through a tint handler
//   - NullLogger: Discards all messages (useful for testing)
//
// EventLogger turns coordinator events into log lines.
//
// All implementations are safe for concurrent use by multiple goroutines.
package logging
