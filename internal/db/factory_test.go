package db

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/streamdb/internal/retry"
	"github.com/vvka-141/streamdb/internal/testinfra"
	"github.com/vvka-141/streamdb/pkg/streamdb"
)

func TestFactory_LoadDriver(t *testing.T) {
	f := NewFactory()

	require.NoError(t, f.LoadDriver(&streamdb.ConnectionConfig{DriverClass: "org.postgresql.Driver"}))

	err := f.LoadDriver(&streamdb.ConnectionConfig{DriverClass: "com.example.Missing"})
	var loadErr *streamdb.DriverLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "com.example.Missing", loadErr.Driver)
	assert.ErrorIs(t, err, streamdb.ErrDriverLoad)
}

func TestFactory_LoadDriver_LibraryOpenedOnce(t *testing.T) {
	var calls atomic.Int32
	loader := newLoader(func(string) error {
		calls.Add(1)
		return nil
	})
	f := NewFactory(WithLoader(loader))
	cfg := &streamdb.ConnectionConfig{DriverLibrary: "/opt/drivers/pg.so", DriverClass: "pgx"}

	for i := 0; i < 5; i++ {
		require.NoError(t, f.LoadDriver(cfg))
	}
	assert.Equal(t, int32(1), calls.Load())

	// A second factory sharing the loader does not reopen the library.
	require.NoError(t, NewFactory(WithLoader(loader)).LoadDriver(cfg))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFactory_LoadDriver_MissingLibrary(t *testing.T) {
	f := NewFactory(WithLoader(NewLoader()))
	missing := filepath.Join(t.TempDir(), "nope.so")

	err := f.LoadDriver(&streamdb.ConnectionConfig{DriverLibrary: missing, DriverClass: "pgx"})

	var loadErr *streamdb.DriverLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, missing, loadErr.Library)
	assert.Equal(t, streamdb.ExitDriverLoadError, streamdb.ExitCodeForError(err))
}

func TestFactory_Connect_SQLite(t *testing.T) {
	f := NewFactory()
	cfg := &streamdb.ConnectionConfig{
		DriverClass:        "sqlite",
		ConnectionString:   ":memory:",
		ValidateConnection: true,
		ValidationTimeout:  time.Minute,
		PoolMaxConns:       1,
	}

	handle, err := f.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { handle.Close() })

	assert.Equal(t, "sqlite", handle.Driver())
	require.NoError(t, handle.Ping(context.Background()))

	sqlHandle, ok := handle.(*SQLHandle)
	require.True(t, ok, "expected *SQLHandle, got %T", handle)

	var answer int
	require.NoError(t, sqlHandle.DB.Get(&answer, sqlHandle.DB.Rebind("SELECT ?"), 42))
	assert.Equal(t, 42, answer)
}

func TestFactory_Connect_PingFailureIsTransport(t *testing.T) {
	f := NewFactory()
	cfg := &streamdb.ConnectionConfig{
		DriverClass:      "sqlite",
		ConnectionString: "file:" + filepath.Join(t.TempDir(), "missing", "lookup.db") + "?mode=ro",
	}

	_, err := f.Connect(context.Background(), cfg)

	var transportErr *streamdb.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, streamdb.ErrTransport)
	assert.NotEmpty(t, transportErr.Reason)
}

func TestFactory_Connect_Refused(t *testing.T) {
	f := NewFactory(WithPingTimeout(5 * time.Second))
	cfg := &streamdb.ConnectionConfig{
		DriverClass:      "pgx",
		ConnectionString: "postgres://app@127.0.0.1:1/lookup?sslmode=disable&connect_timeout=2",
		Password:         "hunter2",
	}

	_, err := f.Connect(context.Background(), cfg)

	var transportErr *streamdb.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestFactory_Connect_ParseErrorIsFatal(t *testing.T) {
	f := NewFactory()

	for _, class := range []string{"pgx", "pgx/stdlib", "postgres"} {
		t.Run(class, func(t *testing.T) {
			_, err := f.Connect(context.Background(), &streamdb.ConnectionConfig{
				DriverClass:      class,
				ConnectionString: "postgres://app:hunter2@db:notaport/lookup",
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, streamdb.ErrInvalidConfig)
			assert.NotErrorIs(t, err, streamdb.ErrTransport)
			assert.NotContains(t, err.Error(), "hunter2")
		})
	}
}

func TestFactory_Connect_CanceledIsNotTransport(t *testing.T) {
	f := NewFactory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Connect(ctx, &streamdb.ConnectionConfig{DriverClass: "sqlite", ConnectionString: ":memory:"})

	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, streamdb.ErrTransport)
}

func TestFactory_Connect_UnknownDriver(t *testing.T) {
	_, err := NewFactory().Connect(context.Background(), &streamdb.ConnectionConfig{DriverClass: "oracle.jdbc.OracleDriver"})
	assert.ErrorIs(t, err, streamdb.ErrDriverLoad)
}

func TestFactory_Connect_AuthMethods(t *testing.T) {
	f := NewFactory()

	tests := []struct {
		name string
		cfg  streamdb.ConnectionConfig
		want error
	}{
		{
			name: "cloud auth with database/sql driver",
			cfg:  streamdb.ConnectionConfig{DriverClass: "mysql", ConnectionString: "app@tcp(db:3306)/lookup", AuthMethod: streamdb.AuthMethodAWSIAM},
			want: streamdb.ErrUnsupportedAuthMethod,
		},
		{
			name: "google without instance",
			cfg:  streamdb.ConnectionConfig{DriverClass: "pgx", User: "svc@project.iam", AuthMethod: streamdb.AuthMethodGoogleIAM},
			want: streamdb.ErrInvalidConfig,
		},
		{
			name: "google without user",
			cfg:  streamdb.ConnectionConfig{DriverClass: "pgx", GoogleInstance: "p:r:i", AuthMethod: streamdb.AuthMethodGoogleIAM},
			want: streamdb.ErrInvalidConfig,
		},
		{
			name: "aws without region",
			cfg:  streamdb.ConnectionConfig{DriverClass: "pgx", ConnectionString: "postgres://iam@db:5432/lookup", AuthMethod: streamdb.AuthMethodAWSIAM},
			want: streamdb.ErrInvalidConfig,
		},
		{
			name: "unknown auth method",
			cfg:  streamdb.ConnectionConfig{DriverClass: "pgx", ConnectionString: "postgres://db/lookup", AuthMethod: streamdb.AuthMethod(99)},
			want: streamdb.ErrUnsupportedAuthMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			_, err := f.Connect(context.Background(), &cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.NotErrorIs(t, err, streamdb.ErrTransport)
		})
	}
}

func TestFactory_WithCoordinator_ExhaustsOnUnreachableDatabase(t *testing.T) {
	var sleeps int
	c := retry.NewCoordinator(NewFactory(), nil,
		retry.WithSleeper(streamdb.SleeperFunc(func(time.Duration) { sleeps++ })))

	cfg := &streamdb.ConnectionConfig{
		DriverClass:      "org.sqlite.JDBC",
		ConnectionString: "file:" + filepath.Join(t.TempDir(), "missing", "lookup.db") + "?mode=ro",
		RetryAttempts:    2,
		RetryWait:        time.Millisecond,
		RetryDelay:       time.Minute,
	}

	_, err := c.Acquire(context.Background(), cfg)

	var exhausted *streamdb.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 2, sleeps)

	_, err = c.Acquire(context.Background(), cfg)
	assert.True(t, errors.Is(err, streamdb.ErrCooldownActive), "second cycle should hit the cooldown: %v", err)
}

func TestFactory_Connect_Postgres(t *testing.T) {
	connString := testinfra.RequirePostgres(t)

	f := NewFactory()
	for _, driver := range []string{"pgx", "pgx/stdlib", "postgres"} {
		t.Run(driver, func(t *testing.T) {
			cfg := &streamdb.ConnectionConfig{
				DriverClass:        driver,
				ConnectionString:   connString,
				ValidateConnection: true,
				ValidationTimeout:  time.Minute,
			}

			handle, err := f.Connect(context.Background(), cfg)
			require.NoError(t, err)
			t.Cleanup(func() { handle.Close() })

			require.NoError(t, handle.Ping(context.Background()))
		})
	}
}
