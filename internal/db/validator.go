package db

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// checkoutValidator pings pooled connections that sat idle for longer than
// the validation timeout before handing them out. A connection failing the
// ping is discarded and the pool opens a replacement.
type checkoutValidator struct {
	timeout     time.Duration
	pingTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	released map[*pgx.Conn]time.Time
}

func newCheckoutValidator(timeout, pingTimeout time.Duration) *checkoutValidator {
	return &checkoutValidator{
		timeout:     timeout,
		pingTimeout: pingTimeout,
		now:         time.Now,
		released:    make(map[*pgx.Conn]time.Time),
	}
}

// install chains the validator into the pool hooks.
func (v *checkoutValidator) install(poolConfig *pgxpool.Config) {
	poolConfig.BeforeAcquire = v.beforeAcquire
	poolConfig.AfterRelease = v.afterRelease
	poolConfig.BeforeClose = v.forget
}

func (v *checkoutValidator) beforeAcquire(ctx context.Context, conn *pgx.Conn) bool {
	if !v.stale(conn) {
		return true
	}

	pingCtx, cancel := context.WithTimeout(ctx, v.pingTimeout)
	defer cancel()
	return conn.Ping(pingCtx) == nil
}

func (v *checkoutValidator) afterRelease(conn *pgx.Conn) bool {
	v.mu.Lock()
	v.released[conn] = v.now()
	v.mu.Unlock()
	return true
}

func (v *checkoutValidator) forget(conn *pgx.Conn) {
	v.mu.Lock()
	delete(v.released, conn)
	v.mu.Unlock()
}

// stale reports whether conn was idle longer than the timeout. Connections
// never released are fresh from the dialer.
func (v *checkoutValidator) stale(conn *pgx.Conn) bool {
	v.mu.Lock()
	releasedAt, ok := v.released[conn]
	v.mu.Unlock()
	if !ok {
		return false
	}
	return v.now().Sub(releasedAt) > v.timeout
}
