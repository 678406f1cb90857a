package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/streamdb/internal/cooldown"
	"github.com/vvka-141/streamdb/internal/logging"
	"github.com/vvka-141/streamdb/pkg/streamdb"
)

// Coordinator acquires connections through a ConnectionFactory with a
// bounded number of attempts per cycle and a cooldown window shared by every
// coordinator using the same store and coordination key.
//
// A Coordinator is safe for concurrent use. Each call to Acquire is one
// cycle; the calling goroutine is blocked during inter-attempt waits.
type Coordinator struct {
	factory  streamdb.ConnectionFactory
	shared   streamdb.CooldownStore
	private  *cooldown.MemoryStore
	scope    string
	sleeper  streamdb.Sleeper
	observer streamdb.Observer
	logger   streamdb.Logger
	now      func() time.Time
	backoff  func(cfg *streamdb.ConnectionConfig) streamdb.BackoffStrategy
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSleeper replaces time.Sleep for inter-attempt waits.
func WithSleeper(s streamdb.Sleeper) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.sleeper = s
		}
	}
}

// WithObserver sets the collaborator receiving acquisition events.
func WithObserver(o streamdb.Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

// WithLogger sets the logger for cooldown store problems and cycle tracing.
func WithLogger(l streamdb.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithBackoff overrides the strategy derived from the configuration.
func WithBackoff(b streamdb.BackoffStrategy) Option {
	return func(c *Coordinator) {
		if b != nil {
			c.backoff = func(*streamdb.ConnectionConfig) streamdb.BackoffStrategy { return b }
		}
	}
}

// NewCoordinator creates a coordinator. Coordinators that must share cooldown
// windows have to be given the same store; a nil store gives the coordinator
// a registry of its own. Panics if factory is nil.
func NewCoordinator(factory streamdb.ConnectionFactory, store streamdb.CooldownStore, opts ...Option) *Coordinator {
	if factory == nil {
		panic("retry: nil connection factory")
	}

	private := cooldown.NewMemoryStore()
	if store == nil {
		store = private
	}

	c := &Coordinator{
		factory: factory,
		shared:  store,
		private: private,
		scope:   streamdb.PrivateScopePrefix + uuid.NewString(),
		sleeper: streamdb.SleeperFunc(time.Sleep),
		logger:  logging.NewNullLogger(),
		now:     time.Now,
		backoff: StrategyFor,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ScopeKey returns the key under which cfg's failures are recorded. Without
// a coordination key this is the coordinator's private scope.
func (c *Coordinator) ScopeKey(cfg *streamdb.ConnectionConfig) string {
	if cfg.CoordinationKey == "" {
		return c.scope
	}
	return cfg.CoordinationKey
}

func (c *Coordinator) storeFor(cfg *streamdb.ConnectionConfig) streamdb.CooldownStore {
	if cfg.CoordinationKey == "" {
		return c.private
	}
	return c.shared
}

// Acquire runs one acquisition cycle.
//
// It fails with a *streamdb.CooldownError without any attempt while the
// window for the configuration's key is open, and with a
// *streamdb.ExhaustedError wrapping the last transport error once every
// attempt failed. Driver load errors and errors that are not
// *streamdb.TransportError are returned unchanged on first occurrence.
//
// ctx is passed to the factory and the cooldown store. It does not
// interrupt inter-attempt waits.
func (c *Coordinator) Acquire(ctx context.Context, cfg *streamdb.ConnectionConfig) (streamdb.Handle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil connection config", streamdb.ErrInvalidConfig)
	}

	key := c.ScopeKey(cfg)
	store := c.storeFor(cfg)
	cooldownEnabled := cfg.CooldownEnabled()
	start := c.now()

	if cooldownEnabled {
		if err := c.checkCooldown(ctx, store, key, cfg.RetryDelay, cfg.MaxAttempts(), start); err != nil {
			return nil, err
		}
	}

	if err := c.factory.LoadDriver(cfg); err != nil {
		return nil, err
	}

	maxAttempts := cfg.MaxAttempts()
	backoff := c.backoff(cfg)

	var last *streamdb.TransportError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		handle, err := c.factory.Connect(ctx, cfg)
		if err == nil {
			c.emit(streamdb.Event{
				Kind:        streamdb.EventAcquired,
				Key:         key,
				Attempt:     attempt,
				MaxAttempts: maxAttempts,
				Elapsed:     c.now().Sub(start),
			})
			return handle, nil
		}

		var transportErr *streamdb.TransportError
		if !errors.As(err, &transportErr) {
			return nil, err
		}
		last = transportErr

		c.emit(streamdb.Event{
			Kind:        streamdb.EventAttemptFailed,
			Key:         key,
			Attempt:     attempt,
			MaxAttempts: maxAttempts,
			Elapsed:     c.now().Sub(start),
			Err:         transportErr,
		})

		if attempt < maxAttempts {
			wait := backoff.NextDelay(attempt - 1)
			c.logger.Verbose("waiting before next connection attempt",
				"key", key, "attempt", attempt, "wait", wait)
			c.sleeper.Sleep(wait)
		}
	}

	failedAt := c.now()
	if cooldownEnabled {
		// The window must be armed even if the caller gave up meanwhile.
		if err := store.RecordFailure(context.WithoutCancel(ctx), key, failedAt); err != nil {
			c.logger.Error("failed to arm connection cooldown", "key", key, "error", err)
		}
	}

	exhausted := &streamdb.ExhaustedError{
		Key:      key,
		Attempts: maxAttempts,
		Elapsed:  failedAt.Sub(start),
		Last:     last,
	}
	c.emit(streamdb.Event{
		Kind:        streamdb.EventExhausted,
		Key:         key,
		Attempt:     maxAttempts,
		MaxAttempts: maxAttempts,
		Elapsed:     exhausted.Elapsed,
		Err:         last,
	})
	return nil, exhausted
}

// checkCooldown treats an unreadable store as an open window.
func (c *Coordinator) checkCooldown(ctx context.Context, store streamdb.CooldownStore, key string, delay time.Duration, maxAttempts int, now time.Time) error {
	lastFailure, armed, err := store.LastFailure(ctx, key)
	if err != nil {
		c.logger.Error("failed to read connection cooldown", "key", key, "error", err)
		return nil
	}

	snap := cooldown.Snapshot{LastFailure: lastFailure, Armed: armed}
	active, remaining := snap.Active(now, delay)
	if !active {
		return nil
	}

	c.emit(streamdb.Event{
		Kind:        streamdb.EventCooldownActive,
		Key:         key,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		Elapsed:     c.now().Sub(now),
		Remaining:   remaining,
	})
	return &streamdb.CooldownError{
		Key:         key,
		LastFailure: lastFailure,
		Remaining:   remaining,
	}
}

func (c *Coordinator) emit(e streamdb.Event) {
	if c.observer != nil {
		c.observer.Observe(e)
	}
}
