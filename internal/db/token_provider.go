package db

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

// TokenProvider abstracts cloud token acquisition for database authentication.
// The token replaces the password of every new physical connection.
type TokenProvider interface {
	// GetToken acquires a token and its expiry time.
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String returns a description for logging. Must not include secrets.
	String() string
}

// AzurePostgreSQLScope is the OAuth scope for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"

// tokenExpiryWarning is the remaining lifetime below which a fresh token is
// reported as suspicious.
const tokenExpiryWarning = 5 * time.Minute

// newTokenProvider builds the provider for token-based auth methods, or nil
// for methods that do not use tokens.
func newTokenProvider(cfg *streamdb.ConnectionConfig, connConfig *pgx.ConnConfig) (TokenProvider, error) {
	switch cfg.AuthMethod {
	case streamdb.AuthMethodAWSIAM:
		endpoint := net.JoinHostPort(connConfig.Host, strconv.Itoa(int(connConfig.Port)))
		provider, err := NewAWSIAMTokenProvider(endpoint, cfg.AWSRegion, connConfig.User)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case streamdb.AuthMethodAzureEntraID:
		var provider *AzureTokenProvider
		var err error
		if cfg.AzureTenantID != "" && cfg.AzureClientID != "" && !cfg.AzureClientSecret.IsZero() {
			provider, err = NewAzureServicePrincipalProvider(cfg.AzureTenantID, cfg.AzureClientID, cfg.AzureClientSecret)
		} else {
			provider, err = NewAzureDefaultCredentialProvider()
		}
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, nil
	}
}

// useTokenAuth makes the pool fetch a fresh token before each new connection.
func useTokenAuth(poolConfig *pgxpool.Config, provider TokenProvider, logger streamdb.Logger) {
	poolConfig.BeforeConnect = func(ctx context.Context, connConfig *pgx.ConnConfig) error {
		token, expiresOn, err := provider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire token from %s: %w", provider, err)
		}
		if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
			logger.Info("database token expires soon", "provider", provider.String(), "remaining", remaining.Round(time.Second))
		}
		connConfig.Password = token
		return nil
	}
}
