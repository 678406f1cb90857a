package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// ConsoleLogger writes structured log lines to a terminal or file.
// Safe for concurrent use by multiple goroutines.
type ConsoleLogger struct {
	log *slog.Logger
}

// NewConsoleLogger creates a ConsoleLogger writing to stderr.
// If verbose is true, Verbose() calls are logged at debug level.
// If verbose is false, Verbose() calls are no-ops.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	noColor := !term.IsTerminal(int(os.Stderr.Fd()))
	return NewConsoleLoggerTo(os.Stderr, verbose, noColor)
}

// NewConsoleLoggerTo creates a ConsoleLogger writing to w.
func NewConsoleLoggerTo(w io.Writer, verbose, noColor bool) *ConsoleLogger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
	return &ConsoleLogger{log: slog.New(handler)}
}

// Slog exposes the underlying logger for libraries that accept *slog.Logger.
func (l *ConsoleLogger) Slog() *slog.Logger {
	return l.log
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(msg string, args ...any) {
	l.log.Log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(msg string, args ...any) {
	l.log.Info(msg, args...)
}

// Error logs error messages.
func (l *ConsoleLogger) Error(msg string, args ...any) {
	l.log.Error(msg, args...)
}
