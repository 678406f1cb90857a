package logging

import (
	"errors"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

// EventLogger writes coordinator events through a Logger.
// Failed attempts are verbose; cooldown rejections and exhaustion are errors.
type EventLogger struct {
	logger streamdb.Logger
}

// NewEventLogger creates an observer logging to logger.
func NewEventLogger(logger streamdb.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Observe implements streamdb.Observer.
func (l *EventLogger) Observe(e streamdb.Event) {
	switch e.Kind {
	case streamdb.EventAttemptFailed:
		l.logger.Verbose("connection attempt failed",
			"key", e.Key,
			"attempt", e.Attempt,
			"max_attempts", e.MaxAttempts,
			"elapsed", e.Elapsed,
			"reason", reasonOf(e.Err),
			"error", e.Err)
	case streamdb.EventCooldownActive:
		l.logger.Error("connection skipped, cooldown active",
			"key", e.Key,
			"attempts", e.Attempt,
			"elapsed", e.Elapsed,
			"remaining", e.Remaining)
	case streamdb.EventExhausted:
		l.logger.Error("connection attempts exhausted",
			"key", e.Key,
			"attempts", e.Attempt,
			"elapsed", e.Elapsed,
			"error", e.Err)
	case streamdb.EventAcquired:
		l.logger.Verbose("connection acquired",
			"key", e.Key,
			"attempt", e.Attempt,
			"elapsed", e.Elapsed)
	}
}

func reasonOf(err error) string {
	var te *streamdb.TransportError
	if errors.As(err, &te) && te.Reason != "" {
		return te.Reason
	}
	return "other"
}

var _ streamdb.Observer = (*EventLogger)(nil)
