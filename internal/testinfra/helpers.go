package testinfra

import (
	"context"
	"os"
	"sync"
	"testing"
)

var (
	postgresOnce sync.Once
	postgresConn string
	postgresErr  error
)

func getOrStartPostgres() (string, error) {
	postgresOnce.Do(func() {
		ctr, err := StartPostgres(context.Background())
		if err != nil {
			postgresErr = err
			return
		}
		postgresConn = ctr.ConnString
	})
	return postgresConn, postgresErr
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequirePostgres returns a PostgreSQL connection string for integration tests.
// Priority: STREAMDB_TEST_CONN env var > auto-started testcontainer > skip test.
func RequirePostgres(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)

	if connString := os.Getenv("STREAMDB_TEST_CONN"); connString != "" {
		return connString
	}

	connString, err := getOrStartPostgres()
	if err != nil {
		t.Skipf("STREAMDB_TEST_CONN not set and Docker unavailable: %v", err)
	}
	return connString
}
