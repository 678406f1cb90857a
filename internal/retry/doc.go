// Package retry acquires database connections with bounded retries and a
// cooldown window shared between coordinators.
//
// # Example Usage
//
//	store := cooldown.NewMemoryStore()
//	coordinator := retry.NewCoordinator(db.NewFactory(), store,
//	    retry.WithObserver(logging.NewEventLogger(logger)),
//	)
//
//	handle, err := coordinator.Acquire(ctx, cfg)
//	switch {
//	case errors.Is(err, streamdb.ErrCooldownActive):
//	    // another coordinator exhausted its attempts recently
//	case errors.Is(err, streamdb.ErrExhausted):
//	    // every attempt of this cycle failed
//	}
//
// # Cycles
//
// One call to Acquire is a cycle. A cycle first checks the cooldown window of
// its coordination key, then makes up to RetryAttempts+1 attempts, sleeping
// between attempts but never after the last. Only *streamdb.TransportError
// failures are retried; anything else ends the cycle unchanged. An exhausted
// cycle arms the window for every coordinator sharing the key.
//
// # Error Classification
//
// DriverErrorClassifier decides which driver errors are transport failures
// and maps them to a reason used in logs and metrics.
//
// # Backoff Strategies
//
// FixedBackoff waits the same time between attempts. ExponentialBackoff
// grows the wait up to a cap, with optional jitter.
package retry
