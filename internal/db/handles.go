package db

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

// PoolHandle owns a native pgx pool.
//
// Thread-Safety: Safe for concurrent use (pgxpool.Pool is thread-safe).
type PoolHandle struct {
	Pool *pgxpool.Pool

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// Ping checks out a connection and pings the server.
func (h *PoolHandle) Ping(ctx context.Context) error {
	return h.Pool.Ping(ctx)
}

func (h *PoolHandle) Driver() string { return "pgx" }

// Close closes the pool, then releases resources the pool depended on
// such as a Cloud SQL dialer.
func (h *PoolHandle) Close() error {
	h.closeOnce.Do(func() {
		h.Pool.Close()
		h.closeErr = runClosers(h.closers)
	})
	return h.closeErr
}

// SQLHandle owns a database/sql pool wrapped in sqlx.
type SQLHandle struct {
	DB *sqlx.DB

	driver string
}

func (h *SQLHandle) Ping(ctx context.Context) error {
	return h.DB.PingContext(ctx)
}

func (h *SQLHandle) Driver() string { return h.driver }

func (h *SQLHandle) Close() error {
	return h.DB.Close()
}

func runClosers(closers []func() error) error {
	var errs []error
	for _, c := range closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ streamdb.Handle = (*PoolHandle)(nil)
	_ streamdb.Handle = (*SQLHandle)(nil)
)
