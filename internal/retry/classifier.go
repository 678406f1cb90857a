package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

// Transport error reasons reported in logs and metrics.
const (
	ReasonRefused            = "refused"
	ReasonDNS                = "dns"
	ReasonAuth               = "auth"
	ReasonTimeout            = "timeout"
	ReasonTLS                = "tls"
	ReasonTooManyConnections = "too_many_connections"
	ReasonUnavailable        = "unavailable"
	ReasonUnknownDatabase    = "unknown_database"
	ReasonOther              = "other"
)

// PostgreSQL error code classes relevant to connection establishment.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnectionException  = "08"
	pgClassInvalidAuthorization = "28"
	pgClassInsufficientResource = "53"
	pgClassOperatorIntervention = "57"

	pgCodeTooManyConnections = "53300"
	pgCodeInvalidCatalogName = "3D000"
)

// MySQL server error numbers relevant to connection establishment.
const (
	mysqlErrTooManyConnections = 1040
	mysqlErrAccessDenied       = 1045
	mysqlErrBadDatabase        = 1049
)

// DriverErrorClassifier decides which driver errors are transport failures.
//
// Every error raised while opening or pinging a pool counts as a transport
// failure, including authentication errors, except when the caller cancelled
// the attempt or the connection string cannot be parsed at all. Those are
// not going to improve by retrying.
type DriverErrorClassifier struct{}

// NewDriverErrorClassifier creates a classifier for connection attempts.
func NewDriverErrorClassifier() *DriverErrorClassifier {
	return &DriverErrorClassifier{}
}

// IsTransport implements streamdb.ErrorClassifier.
func (c *DriverErrorClassifier) IsTransport(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var parseErr *pgconn.ParseConfigError
	if errors.As(err, &parseErr) {
		return false
	}

	if errors.Is(err, streamdb.ErrInvalidConfig) {
		return false
	}

	return true
}

// Reason maps an error to a coarse category for logs and metrics.
func (c *DriverErrorClassifier) Reason(err error) string {
	if err == nil {
		return ReasonOther
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if reason := pgReason(pgErr.Code); reason != "" {
			return reason
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrAccessDenied:
			return ReasonAuth
		case mysqlErrTooManyConnections:
			return ReasonTooManyConnections
		case mysqlErrBadDatabase:
			return ReasonUnknownDatabase
		}
	}

	if reason := networkReason(err); reason != "" {
		return reason
	}

	return messageReason(err.Error())
}

func pgReason(code string) string {
	switch {
	case code == pgCodeTooManyConnections:
		return ReasonTooManyConnections
	case code == pgCodeInvalidCatalogName:
		return ReasonUnknownDatabase
	case strings.HasPrefix(code, pgClassInvalidAuthorization):
		return ReasonAuth
	case strings.HasPrefix(code, pgClassInsufficientResource),
		strings.HasPrefix(code, pgClassOperatorIntervention):
		return ReasonUnavailable
	case strings.HasPrefix(code, pgClassConnectionException):
		return ReasonRefused
	}
	return ""
}

func networkReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.Timeout() {
			return ReasonTimeout
		}
		return ReasonDNS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return ReasonTimeout
		}
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED),
			errors.Is(opErr.Err, syscall.ECONNRESET),
			errors.Is(opErr.Err, syscall.ENETUNREACH),
			errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return ReasonRefused
		}
	}

	return ""
}

// messageReason is the fallback for drivers that only return strings.
func messageReason(msg string) string {
	msg = strings.ToLower(msg)

	patterns := []struct {
		reason   string
		patterns []string
	}{
		{ReasonRefused, []string{"connection refused", "actively refused", "connection reset", "network is unreachable", "broken pipe", "server closed the connection", "unexpected eof"}},
		{ReasonDNS, []string{"no such host", "no host"}},
		{ReasonAuth, []string{"password authentication failed", "access denied", "authentication failed"}},
		{ReasonTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
		{ReasonTLS, []string{"ssl", "tls", "x509"}},
		{ReasonTooManyConnections, []string{"too many connections"}},
		{ReasonUnknownDatabase, []string{"does not exist", "unknown database"}},
	}

	for _, p := range patterns {
		for _, pattern := range p.patterns {
			if strings.Contains(msg, pattern) {
				return p.reason
			}
		}
	}
	return ReasonOther
}

var _ streamdb.ErrorClassifier = (*DriverErrorClassifier)(nil)
