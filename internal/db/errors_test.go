package db

import (
	"errors"
	"strings"
	"testing"

	"github.com/vvka-141/streamdb/internal/retry"
)

func TestWrapConnectionError(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

	tests := []struct {
		reason       string
		wantContains string
	}{
		{retry.ReasonRefused, "server is running"},
		{retry.ReasonDNS, "host name"},
		{retry.ReasonAuth, "jdbc_password"},
		{retry.ReasonTimeout, "firewall"},
		{retry.ReasonTLS, "sslmode"},
		{retry.ReasonTooManyConnections, "pool_max_conns"},
		{retry.ReasonUnavailable, "out of resources"},
		{retry.ReasonUnknownDatabase, "database name"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			err := wrapConnectionError(cause, tt.reason, "postgres://db:5432/lookup")
			if !errors.Is(err, cause) {
				t.Error("wrapped error should unwrap to the cause")
			}
			if !strings.Contains(err.Error(), tt.wantContains) {
				t.Errorf("%q does not contain %q", err.Error(), tt.wantContains)
			}
			if !strings.Contains(err.Error(), "postgres://db:5432/lookup") {
				t.Errorf("%q does not name the target", err.Error())
			}
		})
	}
}

func TestWrapConnectionError_NoHint(t *testing.T) {
	cause := errors.New("something odd")
	err := wrapConnectionError(cause, retry.ReasonOther, "lookup.db")

	if err.Error() != "connect to lookup.db: something odd" {
		t.Errorf("got %q", err.Error())
	}
}
