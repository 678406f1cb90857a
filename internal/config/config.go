// Package config loads connection settings from a YAML file using the
// option names of the enrichment filter.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConfigFileName is the file looked up when no path is given.
const ConfigFileName = "streamdb.yaml"

// Environment variables overriding file values.
const (
	EnvPassword         = "STREAMDB_PASSWORD"
	EnvConnectionString = "STREAMDB_CONNECTION_STRING"
)

// maxSeconds is the largest number of seconds a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// Seconds is a duration written as a number of seconds (fractions allowed)
// or as a Go duration string such as "500ms".
type Seconds time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Seconds) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("line %d: %q is not a finite number of seconds", node.Line, raw)
		}
		if f < 0 {
			return fmt.Errorf("line %d: negative duration %q", node.Line, raw)
		}
		if f > maxSeconds {
			return fmt.Errorf("line %d: %q seconds is out of range", node.Line, raw)
		}
		*s = Seconds(f * float64(time.Second))
		return nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: %q is neither seconds nor a duration", node.Line, raw)
	}
	if d < 0 {
		return fmt.Errorf("line %d: negative duration %q", node.Line, raw)
	}
	*s = Seconds(d)
	return nil
}

// MarshalYAML writes the value as seconds.
func (s Seconds) MarshalYAML() (interface{}, error) {
	return time.Duration(s).Seconds(), nil
}

// Duration converts to time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

// FileConfig is the on-disk configuration. Optional numeric settings are
// pointers so that an explicit 0 can be told apart from a missing value.
type FileConfig struct {
	DriverLibrary      string          `yaml:"jdbc_driver_library,omitempty"`
	DriverClass        string          `yaml:"jdbc_driver_class"`
	ConnectionString   string          `yaml:"jdbc_connection_string"`
	User               string          `yaml:"jdbc_user,omitempty"`
	Password           streamdb.Secret `yaml:"jdbc_password,omitempty"`
	ValidateConnection bool            `yaml:"jdbc_validate_connection,omitempty"`
	ValidationTimeout  *Seconds        `yaml:"jdbc_validation_timeout,omitempty"`

	RetryAttempts   *int     `yaml:"connection_retry_attempts,omitempty"`
	RetryWait       *Seconds `yaml:"connection_retry_attempts_wait_time,omitempty"`
	RetryDelay      *Seconds `yaml:"connection_retry_delay,omitempty"`
	CoordinationKey string   `yaml:"global_retry_delay_label,omitempty"`

	CooldownPolicy string   `yaml:"cooldown_policy,omitempty"`
	RetryBackoff   string   `yaml:"connection_retry_backoff,omitempty"`
	RetryMaxWait   *Seconds `yaml:"connection_retry_max_wait,omitempty"`
	PoolMaxConns   int      `yaml:"pool_max_conns,omitempty"`

	AuthMethod        string          `yaml:"auth_method,omitempty"`
	AWSRegion         string          `yaml:"aws_region,omitempty"`
	GoogleInstance    string          `yaml:"google_instance,omitempty"`
	AzureTenantID     string          `yaml:"azure_tenant_id,omitempty"`
	AzureClientID     string          `yaml:"azure_client_id,omitempty"`
	AzureClientSecret streamdb.Secret `yaml:"azure_client_secret,omitempty"`
}

// Load reads the file at path, or ConfigFileName inside path when path is a
// directory. ${VAR} references are expanded from the environment before
// parsing; other uses of $ are kept verbatim.
func Load(path string) (*FileConfig, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ConfigFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}
	return Parse(data)
}

// envRef matches ${NAME} references. A bare $ is left alone so that
// passwords and connection strings containing $ are read as written.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${NAME} with the value of the environment variable NAME.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// Parse decodes a configuration document. Unknown keys are rejected.
func Parse(data []byte) (*FileConfig, error) {
	expanded := expandEnv(string(data))

	var cfg FileConfig
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", streamdb.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// ApplyEnv overrides file values with environment variables.
func (c *FileConfig) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPassword); ok && v != "" {
		c.Password = streamdb.Secret(v)
	}
	if v, ok := lookup(EnvConnectionString); ok && v != "" {
		c.ConnectionString = v
	}
	if c.AWSRegion == "" {
		if v, ok := lookup("AWS_REGION"); ok {
			c.AWSRegion = v
		}
	}
}

// ToConnectionConfig applies defaults and validates the result.
func (c *FileConfig) ToConnectionConfig() (*streamdb.ConnectionConfig, error) {
	auth, err := streamdb.ParseAuthMethod(c.AuthMethod)
	if err != nil {
		return nil, err
	}

	cfg := &streamdb.ConnectionConfig{
		DriverLibrary:      c.DriverLibrary,
		DriverClass:        c.DriverClass,
		ConnectionString:   c.ConnectionString,
		User:               c.User,
		Password:           c.Password,
		ValidateConnection: c.ValidateConnection,
		ValidationTimeout:  durationOr(c.ValidationTimeout, streamdb.DefaultValidationTimeout),
		RetryAttempts:      streamdb.DefaultRetryAttempts,
		RetryWait:          durationOr(c.RetryWait, streamdb.DefaultRetryWait),
		RetryBackoff:       streamdb.BackoffKind(strings.ToLower(c.RetryBackoff)),
		RetryMaxWait:       durationOr(c.RetryMaxWait, streamdb.DefaultRetryMaxWait),
		RetryDelay:         durationOr(c.RetryDelay, streamdb.DefaultRetryDelay),
		CoordinationKey:    c.CoordinationKey,
		CooldownPolicy:     streamdb.CooldownPolicy(strings.ToLower(c.CooldownPolicy)),
		PoolMaxConns:       c.PoolMaxConns,
		AuthMethod:         auth,
		AWSRegion:          c.AWSRegion,
		GoogleInstance:     c.GoogleInstance,
		AzureTenantID:      c.AzureTenantID,
		AzureClientID:      c.AzureClientID,
		AzureClientSecret:  c.AzureClientSecret,
	}
	if c.RetryAttempts != nil {
		cfg.RetryAttempts = *c.RetryAttempts
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func durationOr(s *Seconds, def time.Duration) time.Duration {
	if s == nil {
		return def
	}
	return s.Duration()
}
