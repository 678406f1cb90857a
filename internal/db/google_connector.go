package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

// googleConnString is used when IAM auth is configured without a
// connection string. The dialer handles TLS.
const googleConnString = "sslmode=disable"

// checkGoogleConfig validates the Cloud SQL settings before a dialer is built.
func checkGoogleConfig(cfg *streamdb.ConnectionConfig, poolConfig *pgxpool.Config) error {
	if cfg.GoogleInstance == "" {
		return fmt.Errorf("%w: Google Cloud SQL IAM auth requires google_instance (project:region:instance)", streamdb.ErrInvalidConfig)
	}
	if poolConfig.ConnConfig.User == "" {
		return fmt.Errorf("%w: Google Cloud SQL IAM auth requires jdbc_user", streamdb.ErrInvalidConfig)
	}
	return nil
}

// useCloudSQL routes every connection of the pool through a Cloud SQL
// dialer with IAM authentication. The returned function closes the dialer
// and must run after the pool is closed.
func useCloudSQL(ctx context.Context, instance string, poolConfig *pgxpool.Config) (func() error, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud SQL dialer: %w", err)
	}

	poolConfig.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, instance)
	}
	poolConfig.ConnConfig.TLSConfig = nil
	poolConfig.ConnConfig.Fallbacks = nil

	return dialer.Close, nil
}
