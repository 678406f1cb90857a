package db

import (
	"fmt"

	"github.com/vvka-141/streamdb/internal/retry"
)

// connectionHint returns a short remediation for a transport error reason.
func connectionHint(reason string) string {
	switch reason {
	case retry.ReasonRefused:
		return "check that the server is running and the host and port are right"
	case retry.ReasonDNS:
		return "check the host name and DNS configuration"
	case retry.ReasonAuth:
		return "check jdbc_user and jdbc_password, or the cloud credentials"
	case retry.ReasonTimeout:
		return "the server is overloaded, unreachable, or a firewall drops packets"
	case retry.ReasonTLS:
		return "check sslmode and the server certificate"
	case retry.ReasonTooManyConnections:
		return "lower pool_max_conns or raise the server connection limit"
	case retry.ReasonUnavailable:
		return "the server is starting, shutting down, or out of resources"
	case retry.ReasonUnknownDatabase:
		return "check the database name in the connection string"
	default:
		return ""
	}
}

// wrapConnectionError adds the target and an actionable hint to a raw
// driver error. target must already be redacted.
func wrapConnectionError(err error, reason, target string) error {
	if hint := connectionHint(reason); hint != "" {
		return fmt.Errorf("connect to %s: %w (%s)", target, err, hint)
	}
	return fmt.Errorf("connect to %s: %w", target, err)
}
