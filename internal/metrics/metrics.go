// Package metrics exports coordinator events as Prometheus metrics.
package metrics

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

// Observer counts acquisition events per coordination key.
// Safe for concurrent use.
type Observer struct {
	// AttemptFailures tracks failed connection attempts by key and reason
	AttemptFailures *prometheus.CounterVec

	// CooldownRejections tracks cycles rejected without any attempt
	CooldownRejections *prometheus.CounterVec

	// Exhaustions tracks cycles whose attempts all failed
	Exhaustions *prometheus.CounterVec

	// Acquisitions tracks successful cycles
	Acquisitions *prometheus.CounterVec

	// CycleDuration tracks how long finished cycles took, by outcome
	CycleDuration *prometheus.HistogramVec
}

// NewObserver registers the metrics with reg.
func NewObserver(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)

	return &Observer{
		AttemptFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamdb_connection_attempt_failures_total",
				Help: "Total number of failed connection attempts",
			},
			[]string{"key", "reason"},
		),
		CooldownRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamdb_cooldown_rejections_total",
				Help: "Total number of acquisitions rejected by an active cooldown",
			},
			[]string{"key"},
		),
		Exhaustions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamdb_acquisitions_exhausted_total",
				Help: "Total number of acquisitions that used up every attempt",
			},
			[]string{"key"},
		),
		Acquisitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamdb_acquisitions_succeeded_total",
				Help: "Total number of successful acquisitions",
			},
			[]string{"key"},
		),
		CycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "streamdb_acquisition_duration_seconds",
				Help:    "Acquisition cycle duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"key", "outcome"},
		),
	}
}

// privateKeyLabel replaces private coordination scopes, which are unique
// per coordinator, in the key label.
const privateKeyLabel = "private"

func keyLabel(key string) string {
	if strings.HasPrefix(key, streamdb.PrivateScopePrefix) {
		return privateKeyLabel
	}
	return key
}

// Observe implements streamdb.Observer.
func (o *Observer) Observe(e streamdb.Event) {
	key := keyLabel(e.Key)
	switch e.Kind {
	case streamdb.EventAttemptFailed:
		o.AttemptFailures.WithLabelValues(key, reason(e.Err)).Inc()
	case streamdb.EventCooldownActive:
		o.CooldownRejections.WithLabelValues(key).Inc()
	case streamdb.EventExhausted:
		o.Exhaustions.WithLabelValues(key).Inc()
		o.CycleDuration.WithLabelValues(key, "exhausted").Observe(e.Elapsed.Seconds())
	case streamdb.EventAcquired:
		o.Acquisitions.WithLabelValues(key).Inc()
		o.CycleDuration.WithLabelValues(key, "acquired").Observe(e.Elapsed.Seconds())
	}
}

func reason(err error) string {
	var te *streamdb.TransportError
	if errors.As(err, &te) && te.Reason != "" {
		return te.Reason
	}
	return "other"
}

var _ streamdb.Observer = (*Observer)(nil)
