package logging

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

func TestConsoleLogger_Verbose_WhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, true, true)

	logger.Verbose("test message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "DBG") || !strings.Contains(output, "test message") || !strings.Contains(output, "key=value") {
		t.Errorf("unexpected output %q", output)
	}
}

func TestConsoleLogger_Verbose_WhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, false, true)

	logger.Verbose("test message", "key", "value")

	if buf.Len() != 0 {
		t.Errorf("Expected no output, got %q", buf.String())
	}
}

func TestConsoleLogger_InfoAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, false, true)

	logger.Info("connected", "driver", "pgx")
	logger.Error("failed", "error", errors.New("boom"))

	output := buf.String()
	for _, want := range []string{"INF", "connected", "driver=pgx", "ERR", "failed", "boom"} {
		if !strings.Contains(output, want) {
			t.Errorf("output %q missing %q", output, want)
		}
	}
}

func TestConsoleLogger_MasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, false, true)

	logger.Info("config", "password", streamdb.Secret("hunter2"))

	if strings.Contains(buf.String(), "hunter2") {
		t.Errorf("secret leaked: %q", buf.String())
	}
}

func TestConsoleLogger_ConcurrentWrites(t *testing.T) {
	var buf syncBuffer
	logger := NewConsoleLoggerTo(&buf, true, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Info("line", "n", i)
		}(i)
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "\n"); got != 20 {
		t.Errorf("lines = %d, want 20", got)
	}
}

func TestNullLogger(t *testing.T) {
	logger := NewNullLogger()
	logger.Verbose("ignored", "k", 1)
	logger.Info("ignored")
	logger.Error("ignored")
}

func TestEventLogger(t *testing.T) {
	var buf bytes.Buffer
	obs := NewEventLogger(NewConsoleLoggerTo(&buf, true, true))

	cause := &streamdb.TransportError{Reason: "refused", Err: errors.New("connection refused")}
	obs.Observe(streamdb.Event{Kind: streamdb.EventAttemptFailed, Key: "lookup", Attempt: 1, MaxAttempts: 3, Err: cause})
	obs.Observe(streamdb.Event{Kind: streamdb.EventCooldownActive, Key: "lookup", Elapsed: 2 * time.Millisecond, Remaining: 4 * time.Second})
	obs.Observe(streamdb.Event{Kind: streamdb.EventExhausted, Key: "lookup", Attempt: 3, Err: cause})
	obs.Observe(streamdb.Event{Kind: streamdb.EventAcquired, Key: "lookup", Attempt: 1})

	output := buf.String()
	for _, want := range []string{
		"connection attempt failed", "reason=refused", "attempt=1",
		"cooldown active", "attempts=0", "elapsed=2ms", "remaining=4s",
		"connection attempts exhausted", "attempts=3",
		"connection acquired",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
