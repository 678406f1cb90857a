package streamdb

import (
	"context"
	"time"
)

// ErrorClassifier determines whether a driver error is a transport failure
// (retried) or a fatal one.
type ErrorClassifier interface {
	// IsTransport returns true if the error came from the network or protocol
	// layer and the attempt should be counted and retried.
	IsTransport(err error) bool
}

// BackoffStrategy calculates the delay before the next attempt of a cycle.
type BackoffStrategy interface {
	// NextDelay returns the duration to wait after the failed attempt.
	// attempt is zero-indexed (0 = wait after the first attempt).
	NextDelay(attempt int) time.Duration
}

// Sleeper blocks the calling goroutine. The inter-attempt wait is not
// cancellable on purpose: it throttles the caller during an outage.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(d time.Duration)

func (f SleeperFunc) Sleep(d time.Duration) { f(d) }

// CooldownStore keeps the last exhaustion time per coordination key.
// Implementations must be safe for concurrent use and must never move a
// key's timestamp backwards.
type CooldownStore interface {
	// LastFailure returns the last recorded failure for key, if any.
	LastFailure(ctx context.Context, key string) (time.Time, bool, error)

	// RecordFailure arms the window for key at the given time.
	RecordFailure(ctx context.Context, key string, at time.Time) error
}
