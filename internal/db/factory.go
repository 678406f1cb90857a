package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/vvka-141/streamdb/internal/logging"
	"github.com/vvka-141/streamdb/internal/retry"
	"github.com/vvka-141/streamdb/pkg/streamdb"
)

// Factory opens connection pools for the drivers of a Registry.
// It holds no per-connection state and is safe for concurrent use.
type Factory struct {
	registry    *Registry
	loader      *Loader
	classifier  *retry.DriverErrorClassifier
	logger      streamdb.Logger
	pingTimeout time.Duration
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithRegistry replaces the built-in driver registry.
func WithRegistry(r *Registry) FactoryOption {
	return func(f *Factory) { f.registry = r }
}

// WithLoader replaces the process-wide driver library loader.
func WithLoader(l *Loader) FactoryOption {
	return func(f *Factory) { f.loader = l }
}

// WithLogger sets the logger for server notices and token warnings.
func WithLogger(l streamdb.Logger) FactoryOption {
	return func(f *Factory) { f.logger = l }
}

// WithPingTimeout bounds the liveness check of each attempt.
func WithPingTimeout(d time.Duration) FactoryOption {
	return func(f *Factory) {
		if d > 0 {
			f.pingTimeout = d
		}
	}
}

// NewFactory creates a factory with the built-in drivers.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		registry:    NewRegistry(),
		loader:      processLoader,
		classifier:  retry.NewDriverErrorClassifier(),
		logger:      logging.NewNullLogger(),
		pingTimeout: streamdb.DefaultPingTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Registry returns the drivers this factory can open.
func (f *Factory) Registry() *Registry {
	return f.registry
}

// LoadLibrary opens a driver library without resolving a driver class.
func (f *Factory) LoadLibrary(path string) error {
	if err := f.loader.Load(path); err != nil {
		return &streamdb.DriverLoadError{Library: path, Err: err}
	}
	return nil
}

// LoadDriver opens the configured driver library, if any, and checks that
// the driver class resolves. Libraries are opened once per path.
func (f *Factory) LoadDriver(cfg *streamdb.ConnectionConfig) error {
	if cfg.DriverLibrary != "" {
		if err := f.loader.Load(cfg.DriverLibrary); err != nil {
			return &streamdb.DriverLoadError{Driver: cfg.DriverClass, Library: cfg.DriverLibrary, Err: err}
		}
		f.logger.Verbose("driver library loaded", "library", cfg.DriverLibrary)
	}

	if _, err := f.registry.Resolve(cfg.DriverClass); err != nil {
		return &streamdb.DriverLoadError{Driver: cfg.DriverClass, Library: cfg.DriverLibrary, Err: err}
	}
	return nil
}

// Connect opens a pool and pings it. A pool that opens but fails the ping
// is closed and reported as a *streamdb.TransportError.
func (f *Factory) Connect(ctx context.Context, cfg *streamdb.ConnectionConfig) (streamdb.Handle, error) {
	driver, err := f.registry.Resolve(cfg.DriverClass)
	if err != nil {
		return nil, &streamdb.DriverLoadError{Driver: cfg.DriverClass, Library: cfg.DriverLibrary, Err: err}
	}

	if driver.Pool {
		return f.connectPool(ctx, cfg)
	}
	return f.connectSQL(ctx, cfg, driver)
}

func (f *Factory) connectPool(ctx context.Context, cfg *streamdb.ConnectionConfig) (streamdb.Handle, error) {
	connStr := cfg.ConnectionString
	if connStr == "" && cfg.AuthMethod == streamdb.AuthMethodGoogleIAM {
		connStr = googleConnString
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, f.configError(cfg, "pgx", err)
	}

	if cfg.User != "" {
		poolConfig.ConnConfig.User = cfg.User
	}
	if !cfg.Password.IsZero() {
		poolConfig.ConnConfig.Password = cfg.Password.Value()
	}
	if cfg.PoolMaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.PoolMaxConns)
	}
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		f.logger.Verbose("server notice", "severity", notice.Severity, "message", notice.Message)
	}
	if cfg.ValidateConnection {
		newCheckoutValidator(cfg.ValidationTimeout, f.pingTimeout).install(poolConfig)
	}

	var closers []func() error
	switch cfg.AuthMethod {
	case streamdb.AuthMethodStandard:
	case streamdb.AuthMethodAWSIAM, streamdb.AuthMethodAzureEntraID:
		provider, err := newTokenProvider(cfg, poolConfig.ConnConfig)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", streamdb.ErrInvalidConfig, cfg.AuthMethod, err)
		}
		useTokenAuth(poolConfig, provider, f.logger)
	case streamdb.AuthMethodGoogleIAM:
		if err := checkGoogleConfig(cfg, poolConfig); err != nil {
			return nil, err
		}
		closeDialer, err := useCloudSQL(ctx, cfg.GoogleInstance, poolConfig)
		if err != nil {
			return nil, f.attemptError(cfg, err)
		}
		closers = append(closers, closeDialer)
	default:
		return nil, fmt.Errorf("auth method %v: %w", cfg.AuthMethod, streamdb.ErrUnsupportedAuthMethod)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		_ = runClosers(closers)
		return nil, f.attemptError(cfg, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, f.pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		_ = runClosers(closers)
		return nil, f.attemptError(cfg, err)
	}

	return &PoolHandle{Pool: pool, closers: closers}, nil
}

func (f *Factory) connectSQL(ctx context.Context, cfg *streamdb.ConnectionConfig, driver Driver) (streamdb.Handle, error) {
	if cfg.AuthMethod != streamdb.AuthMethodStandard {
		return nil, fmt.Errorf("auth method %v with driver %s: %w", cfg.AuthMethod, driver.Name, streamdb.ErrUnsupportedAuthMethod)
	}

	sqlDB, err := driver.open(cfg)
	if err != nil {
		return nil, f.configError(cfg, driver.Name, err)
	}

	if cfg.PoolMaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.PoolMaxConns)
	}
	if cfg.ValidateConnection {
		// database/sql validates connections on checkout when the driver
		// supports it; idle ones past the timeout are reopened.
		sqlDB.SetConnMaxIdleTime(cfg.ValidationTimeout)
	}

	pingCtx, cancel := context.WithTimeout(ctx, f.pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, f.attemptError(cfg, err)
	}

	return &SQLHandle{DB: sqlx.NewDb(sqlDB, driver.SQLName()), driver: driver.Name}, nil
}

// attemptError turns a failed attempt into a transport error unless the
// failure cannot improve by retrying.
func (f *Factory) attemptError(cfg *streamdb.ConnectionConfig, err error) error {
	if !f.classifier.IsTransport(err) {
		return err
	}
	reason := f.classifier.Reason(err)
	target := RedactConnectionString(cfg.ConnectionString)
	if target == "" {
		target = cfg.GoogleInstance
	}
	return &streamdb.TransportError{
		Reason: reason,
		Err:    wrapConnectionError(err, reason, target),
	}
}

func (f *Factory) configError(cfg *streamdb.ConnectionConfig, driver string, err error) error {
	if errors.Is(err, streamdb.ErrInvalidConfig) {
		return err
	}
	return &connStringError{
		driver:   driver,
		redacted: RedactConnectionString(cfg.ConnectionString),
		detail:   scrubSecrets(err.Error(), cfg),
		err:      err,
	}
}

// connStringError reports a connection string the driver rejected. Its
// message never contains the raw string, which parsers like to quote.
type connStringError struct {
	driver   string
	redacted string
	detail   string
	err      error
}

func (e *connStringError) Error() string {
	return fmt.Sprintf("invalid %s connection string %q: %s", e.driver, e.redacted, e.detail)
}

func (e *connStringError) Unwrap() []error {
	return []error{streamdb.ErrInvalidConfig, e.err}
}

var _ streamdb.ConnectionFactory = (*Factory)(nil)
