package streamdb

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ConnectionConfig holds everything needed to acquire a connection for an
// enrichment stage. It is produced by the configuration layer and treated as
// immutable once handed to a Coordinator.
type ConnectionConfig struct {
	// DriverLibrary is an optional path to a driver plugin that registers
	// a database/sql driver when loaded.
	DriverLibrary string

	// DriverClass names the driver, either a registered name ("pgx", "mysql")
	// or a JDBC-style alias ("org.postgresql.Driver").
	DriverClass string

	// ConnectionString is handed to the driver unmodified.
	ConnectionString string

	User     string
	Password Secret

	// ValidateConnection enables a liveness check on checkout for
	// connections idle longer than ValidationTimeout.
	ValidateConnection bool
	ValidationTimeout  time.Duration

	// RetryAttempts is the number of retries after the first attempt (0 = no retry).
	RetryAttempts int

	// RetryWait is the pause between two attempts of the same cycle.
	RetryWait time.Duration

	// RetryBackoff selects how RetryWait grows between attempts.
	RetryBackoff BackoffKind

	// RetryMaxWait caps exponential backoff. Ignored for fixed backoff.
	RetryMaxWait time.Duration

	// RetryDelay is the minimum time between an exhausted cycle and the next
	// cycle for the same coordination key (0 disables the cooldown).
	RetryDelay time.Duration

	// CoordinationKey groups coordinators sharing one cooldown window.
	// Empty means the coordinator keeps a private window.
	CoordinationKey string

	CooldownPolicy CooldownPolicy

	// PoolMaxConns bounds the connection pool (0 = driver default).
	PoolMaxConns int

	AuthMethod AuthMethod

	// Cloud authentication parameters, only used by the pgx driver.
	AWSRegion         string
	GoogleInstance    string
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret Secret
}

// Validate checks required fields and numeric ranges.
// It returns a multi-error if multiple validation failures occur.
func (c *ConnectionConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.DriverClass) == "" {
		errs = append(errs, fmt.Errorf("driver class is required: %w", ErrInvalidConfig))
	}

	if strings.TrimSpace(c.ConnectionString) == "" && c.AuthMethod != AuthMethodGoogleIAM {
		errs = append(errs, fmt.Errorf("connection string is required: %w", ErrInvalidConfig))
	}

	if c.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("retry attempts cannot be negative: %w", ErrInvalidConfig))
	}

	if c.RetryWait < 0 {
		errs = append(errs, fmt.Errorf("retry wait cannot be negative: %w", ErrInvalidConfig))
	}

	if c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry delay cannot be negative: %w", ErrInvalidConfig))
	}

	if c.ValidateConnection && c.ValidationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("validation timeout must be positive when validation is enabled: %w", ErrInvalidConfig))
	}

	if !c.RetryBackoff.IsValid() {
		errs = append(errs, fmt.Errorf("unknown retry backoff %q: %w", c.RetryBackoff, ErrInvalidConfig))
	}

	if !c.CooldownPolicy.IsValid() {
		errs = append(errs, fmt.Errorf("unknown cooldown policy %q: %w", c.CooldownPolicy, ErrInvalidConfig))
	}

	if !c.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("auth method %v: %w", c.AuthMethod, ErrUnsupportedAuthMethod))
	}

	if c.PoolMaxConns < 0 {
		errs = append(errs, fmt.Errorf("pool max conns cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// MaxAttempts is the total number of connection attempts per cycle.
func (c *ConnectionConfig) MaxAttempts() int {
	if c.RetryAttempts < 0 {
		return 1
	}
	return c.RetryAttempts + 1
}

// CooldownEnabled reports whether a cycle for this config is subject to the
// shared cooldown window.
func (c *ConnectionConfig) CooldownEnabled() bool {
	if c.RetryDelay <= 0 {
		return false
	}
	switch c.CooldownPolicy {
	case CooldownAlways:
		return true
	default:
		return c.RetryAttempts > 0
	}
}

// LogValue keeps secrets out of structured logs.
func (c *ConnectionConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("driver", c.DriverClass),
		slog.String("user", c.User),
		slog.Any("password", c.Password),
		slog.Int("retry_attempts", c.RetryAttempts),
		slog.Duration("retry_wait", c.RetryWait),
		slog.Duration("retry_delay", c.RetryDelay),
		slog.String("coordination_key", c.CoordinationKey),
	)
}

// Secret is a credential that never prints in clear text.
type Secret string

const maskedSecret = "<password>"

// Value returns the clear-text secret. Only pass it to a driver.
func (s Secret) Value() string {
	return string(s)
}

// IsZero reports whether no secret was provided.
func (s Secret) IsZero() bool {
	return s == ""
}

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return maskedSecret
}

func (s Secret) GoString() string {
	return fmt.Sprintf("streamdb.Secret(%q)", s.String())
}

func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// MarshalYAML masks the secret when a config is dumped.
func (s Secret) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// BackoffKind selects the inter-attempt wait strategy.
type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffExponential BackoffKind = "exponential"
)

// IsValid returns true for known kinds; empty means fixed.
func (b BackoffKind) IsValid() bool {
	switch b {
	case "", BackoffFixed, BackoffExponential:
		return true
	}
	return false
}

// CooldownPolicy decides whether the cooldown window applies to configs with
// retries disabled.
type CooldownPolicy string

const (
	// CooldownRetriesOnly arms and checks the cooldown only when retries are
	// enabled (RetryAttempts > 0).
	CooldownRetriesOnly CooldownPolicy = "retries-only"

	// CooldownAlways applies the cooldown whenever RetryDelay > 0.
	CooldownAlways CooldownPolicy = "always"
)

// IsValid returns true for known policies; empty means retries-only.
func (p CooldownPolicy) IsValid() bool {
	switch p {
	case "", CooldownRetriesOnly, CooldownAlways:
		return true
	}
	return false
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS RDS IAM token
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod maps a config value to an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws", "aws-iam", "aws_iam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam", "google_iam":
		return AuthMethodGoogleIAM, nil
	case "azure", "azure-entra-id", "azure_entra_id", "entra":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("auth method %q: %w", s, ErrUnsupportedAuthMethod)
	}
}
