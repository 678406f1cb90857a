package metrics

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

func TestObserver_CountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := NewObserver(reg)

	refused := &streamdb.TransportError{Reason: "refused", Err: errors.New("connection refused")}
	o.Observe(streamdb.Event{Kind: streamdb.EventAttemptFailed, Key: "lookup", Err: refused})
	o.Observe(streamdb.Event{Kind: streamdb.EventAttemptFailed, Key: "lookup", Err: refused})
	o.Observe(streamdb.Event{Kind: streamdb.EventAttemptFailed, Key: "lookup", Err: errors.New("plain")})
	o.Observe(streamdb.Event{Kind: streamdb.EventExhausted, Key: "lookup", Elapsed: 2 * time.Second, Err: refused})
	o.Observe(streamdb.Event{Kind: streamdb.EventCooldownActive, Key: "lookup"})
	o.Observe(streamdb.Event{Kind: streamdb.EventCooldownActive, Key: "other"})
	o.Observe(streamdb.Event{Kind: streamdb.EventAcquired, Key: "other", Elapsed: time.Millisecond})

	assert.Equal(t, 2.0, testutil.ToFloat64(o.AttemptFailures.WithLabelValues("lookup", "refused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.AttemptFailures.WithLabelValues("lookup", "other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Exhaustions.WithLabelValues("lookup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.CooldownRejections.WithLabelValues("lookup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.CooldownRejections.WithLabelValues("other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Acquisitions.WithLabelValues("other")))
	assert.Equal(t, 2, testutil.CollectAndCount(o.CycleDuration))
}

func TestObserver_PrivateScopesShareOneSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := NewObserver(reg)

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("%sworker-%d", streamdb.PrivateScopePrefix, i)
		o.Observe(streamdb.Event{Kind: streamdb.EventAcquired, Key: key, Elapsed: time.Millisecond})
		o.Observe(streamdb.Event{Kind: streamdb.EventExhausted, Key: key, Elapsed: time.Second})
	}
	o.Observe(streamdb.Event{Kind: streamdb.EventAcquired, Key: "lookup"})

	assert.Equal(t, 2, testutil.CollectAndCount(o.Acquisitions))
	assert.Equal(t, 1, testutil.CollectAndCount(o.Exhaustions))
	assert.Equal(t, 5.0, testutil.ToFloat64(o.Acquisitions.WithLabelValues("private")))
	assert.Equal(t, 5.0, testutil.ToFloat64(o.Exhaustions.WithLabelValues("private")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Acquisitions.WithLabelValues("lookup")))
}

func TestObserver_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := NewObserver(reg)

	o.Observe(streamdb.Event{Kind: streamdb.EventExhausted, Key: "lookup"})

	expected := `
# HELP streamdb_acquisitions_exhausted_total Total number of acquisitions that used up every attempt
# TYPE streamdb_acquisitions_exhausted_total counter
streamdb_acquisitions_exhausted_total{key="lookup"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "streamdb_acquisitions_exhausted_total"))
}

func TestNewObserver_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewObserver(reg)

	assert.Panics(t, func() { NewObserver(reg) })
}
