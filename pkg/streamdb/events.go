package streamdb

import "time"

// EventKind identifies what happened during an acquisition cycle.
type EventKind string

const (
	EventAttemptFailed  EventKind = "attempt_failed"
	EventCooldownActive EventKind = "cooldown_active"
	EventExhausted      EventKind = "exhausted"
	EventAcquired       EventKind = "acquired"
)

// Event is emitted by a Coordinator for an observability collaborator.
type Event struct {
	Kind EventKind
	Key  string

	// Attempt is the number of connection attempts made so far in the cycle.
	Attempt     int
	MaxAttempts int
	Elapsed     time.Duration

	// Err is the transport error for failed attempts and exhaustion.
	Err error

	// Remaining is set for cooldown rejections.
	Remaining time.Duration
}

// Observer consumes acquisition events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans an event out to several observers. Nil entries are skipped.
func Observers(obs ...Observer) Observer {
	return ObserverFunc(func(e Event) {
		for _, o := range obs {
			if o != nil {
				o.Observe(e)
			}
		}
	})
}
