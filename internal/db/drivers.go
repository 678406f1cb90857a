package db

import (
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
	sqlx.BindDriver("snowflake", sqlx.QUESTION)
}

// Driver describes a database driver the factory can open.
type Driver struct {
	// Name is the canonical driver name.
	Name string

	// Aliases are alternative names accepted as driver class, including the
	// JDBC class names users carry over from existing configurations.
	Aliases []string

	Description string

	// Pool is set for the native pgx pool. Other drivers go through database/sql.
	Pool bool

	// open builds a *sql.DB with the configured credentials applied.
	// It does not connect; any error is a configuration error.
	open func(cfg *streamdb.ConnectionConfig) (*sql.DB, error)

	// Plugin is set for drivers registered by a loaded driver library.
	Plugin bool
}

// SQLName is the database/sql driver name, also used for sqlx bind types.
func (d Driver) SQLName() string {
	if d.Pool {
		return "pgx"
	}
	return d.Name
}

var builtinDrivers = []Driver{
	{
		Name:        "pgx",
		Aliases:     []string{"org.postgresql.Driver", "postgresql"},
		Description: "PostgreSQL native pool (jackc/pgx/v5)",
		Pool:        true,
	},
	{
		Name:        "pgx/stdlib",
		Description: "PostgreSQL through database/sql (jackc/pgx/v5/stdlib)",
		open:        openPgxStdlib,
	},
	{
		Name:        "postgres",
		Aliases:     []string{"pq"},
		Description: "PostgreSQL through database/sql (lib/pq)",
		open:        openPQ,
	},
	{
		Name:        "mysql",
		Aliases:     []string{"com.mysql.cj.jdbc.Driver", "com.mysql.jdbc.Driver", "org.mariadb.jdbc.Driver", "mariadb"},
		Description: "MySQL and MariaDB (go-sql-driver/mysql)",
		open:        openMySQL,
	},
	{
		Name:        "sqlite",
		Description: "SQLite, pure Go (modernc.org/sqlite)",
		open:        openPassthrough("sqlite"),
	},
	{
		Name:        "sqlite3",
		Aliases:     []string{"org.sqlite.JDBC"},
		Description: "SQLite, cgo (mattn/go-sqlite3)",
		open:        openPassthrough("sqlite3"),
	},
	{
		Name:        "snowflake",
		Aliases:     []string{"net.snowflake.client.jdbc.SnowflakeDriver"},
		Description: "Snowflake (snowflakedb/gosnowflake)",
		open:        openSnowflake,
	},
}

// Registry resolves driver class names to drivers.
type Registry struct {
	byName map[string]Driver
	list   []Driver
}

// NewRegistry creates a registry with the built-in drivers.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Driver)}
	for _, d := range builtinDrivers {
		r.list = append(r.list, d)
		r.byName[strings.ToLower(d.Name)] = d
		for _, alias := range d.Aliases {
			r.byName[strings.ToLower(alias)] = d
		}
	}
	return r
}

// Resolve finds the driver for class. Names registered with database/sql by
// a driver library are accepted as they are.
func (r *Registry) Resolve(class string) (Driver, error) {
	name := strings.TrimSpace(class)
	if name == "" {
		return Driver{}, fmt.Errorf("driver class is empty")
	}

	if d, ok := r.byName[strings.ToLower(name)]; ok {
		return d, nil
	}

	if slices.Contains(sql.Drivers(), name) {
		return Driver{
			Name:        name,
			Description: "registered by driver library",
			Plugin:      true,
			open:        openPassthrough(name),
		}, nil
	}

	return Driver{}, fmt.Errorf("driver %q is not registered (known: %s)", name, strings.Join(r.Names(), ", "))
}

// Drivers lists the built-in drivers.
func (r *Registry) Drivers() []Driver {
	return slices.Clone(r.list)
}

// Names lists every accepted name and alias, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for _, d := range r.list {
		names = append(names, d.Name)
		names = append(names, d.Aliases...)
	}
	sort.Strings(names)
	return names
}

// PluginDrivers lists database/sql drivers not provided by the registry.
func (r *Registry) PluginDrivers() []string {
	var names []string
	for _, name := range sql.Drivers() {
		if _, ok := r.byName[strings.ToLower(name)]; !ok {
			names = append(names, name)
		}
	}
	return names
}

func openPassthrough(name string) func(*streamdb.ConnectionConfig) (*sql.DB, error) {
	return func(cfg *streamdb.ConnectionConfig) (*sql.DB, error) {
		return sql.Open(name, cfg.ConnectionString)
	}
}

func openPgxStdlib(cfg *streamdb.ConnectionConfig) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}
	if cfg.User != "" {
		connConfig.User = cfg.User
	}
	if !cfg.Password.IsZero() {
		connConfig.Password = cfg.Password.Value()
	}
	return stdlib.OpenDB(*connConfig), nil
}

func openPQ(cfg *streamdb.ConnectionConfig) (*sql.DB, error) {
	dsn := cfg.ConnectionString
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		converted, err := pq.ParseURL(dsn)
		if err != nil {
			return nil, err
		}
		dsn = converted
	}

	// Later keys win in lib/pq key/value strings.
	if cfg.User != "" {
		dsn += " user=" + quotePQValue(cfg.User)
	}
	if !cfg.Password.IsZero() {
		dsn += " password=" + quotePQValue(cfg.Password.Value())
	}

	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

func quotePQValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func openMySQL(cfg *streamdb.ConnectionConfig) (*sql.DB, error) {
	myCfg, err := mysql.ParseDSN(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}
	if cfg.User != "" {
		myCfg.User = cfg.User
	}
	if !cfg.Password.IsZero() {
		myCfg.Passwd = cfg.Password.Value()
	}

	connector, err := mysql.NewConnector(myCfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

func openSnowflake(cfg *streamdb.ConnectionConfig) (*sql.DB, error) {
	sfCfg, err := gosnowflake.ParseDSN(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}
	if cfg.User != "" {
		sfCfg.User = cfg.User
	}
	if !cfg.Password.IsZero() {
		sfCfg.Password = cfg.Password.Value()
	}
	return sql.OpenDB(gosnowflake.NewConnector(gosnowflake.SnowflakeDriver{}, *sfCfg)), nil
}
