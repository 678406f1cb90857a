package retry

import (
	"testing"
	"time"

	"github.com/vvka-141/streamdb/pkg/streamdb"
)

func TestExponentialBackoffStrategy_DefaultValues(t *testing.T) {
	strategy := NewExponentialBackoff()

	if strategy.InitialDelay() != 100*time.Millisecond {
		t.Errorf("Expected InitialDelay=100ms, got %v", strategy.InitialDelay())
	}
	if strategy.MaxDelay() != 30*time.Second {
		t.Errorf("Expected MaxDelay=30s, got %v", strategy.MaxDelay())
	}
	if strategy.Multiplier() != 2.0 {
		t.Errorf("Expected Multiplier=2.0, got %v", strategy.Multiplier())
	}
	if strategy.Jitter() != 0.1 {
		t.Errorf("Expected Jitter=0.1, got %v", strategy.Jitter())
	}
}

func TestExponentialBackoffStrategy_NextDelay_WithoutJitter(t *testing.T) {
	strategy := NewExponentialBackoff(
		WithInitialDelay(100*time.Millisecond),
		WithMultiplier(2.0),
		WithJitter(0), // Disable jitter for deterministic testing
	)

	tests := []struct {
		attempt       int
		expectedDelay time.Duration
	}{
		{attempt: 0, expectedDelay: 100 * time.Millisecond},  // 100 * 2^0
		{attempt: 1, expectedDelay: 200 * time.Millisecond},  // 100 * 2^1
		{attempt: 2, expectedDelay: 400 * time.Millisecond},  // 100 * 2^2
		{attempt: 3, expectedDelay: 800 * time.Millisecond},  // 100 * 2^3
		{attempt: 4, expectedDelay: 1600 * time.Millisecond}, // 100 * 2^4
	}

	for _, tt := range tests {
		delay := strategy.NextDelay(tt.attempt)
		if delay != tt.expectedDelay {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, delay, tt.expectedDelay)
		}
	}
}

func TestExponentialBackoffStrategy_NextDelay_MaxDelayCap(t *testing.T) {
	strategy := NewExponentialBackoff(
		WithInitialDelay(100*time.Millisecond),
		WithMultiplier(2.0),
		WithMaxDelay(1*time.Second),
		WithJitter(0),
	)

	// 100ms * 2^10 = 102.4s, capped at 1s
	for attempt := 10; attempt <= 100; attempt += 10 {
		if delay := strategy.NextDelay(attempt); delay != 1*time.Second {
			t.Errorf("NextDelay(%d) = %v, want %v (should be capped at MaxDelay)", attempt, delay, 1*time.Second)
		}
	}
}

func TestExponentialBackoffStrategy_NextDelay_WithJitter(t *testing.T) {
	tests := []struct {
		jitterValue float64
		want        time.Duration
	}{
		// jv=0.0 => randomOffset=-1.0 => factor 0.9
		{0.0, 90 * time.Millisecond},
		// jv=0.5 => randomOffset=0.0 => factor 1.0
		{0.5, 100 * time.Millisecond},
		// jv=1.0 => randomOffset=1.0 => factor 1.1
		{1.0, 110 * time.Millisecond},
	}

	for _, tt := range tests {
		jv := tt.jitterValue
		strategy := NewExponentialBackoff(
			WithInitialDelay(100*time.Millisecond),
			WithMultiplier(2.0),
			WithJitter(0.1),
			WithJitterFunc(func() float64 { return jv }),
		)

		if got := strategy.NextDelay(0); got != tt.want {
			t.Errorf("NextDelay with jv=%v = %v, want %v", jv, got, tt.want)
		}
	}
}

func TestExponentialBackoffStrategy_NextDelay_DifferentMultipliers(t *testing.T) {
	tests := []struct {
		multiplier    float64
		attempt       int
		expectedDelay time.Duration
	}{
		{multiplier: 1.5, attempt: 0, expectedDelay: 100 * time.Millisecond},
		{multiplier: 1.5, attempt: 1, expectedDelay: 150 * time.Millisecond},
		{multiplier: 1.5, attempt: 2, expectedDelay: 225 * time.Millisecond},
		{multiplier: 3.0, attempt: 1, expectedDelay: 300 * time.Millisecond},
		{multiplier: 3.0, attempt: 2, expectedDelay: 900 * time.Millisecond},
	}

	for _, tt := range tests {
		strategy := NewExponentialBackoff(
			WithInitialDelay(100*time.Millisecond),
			WithMultiplier(tt.multiplier),
			WithJitter(0),
		)

		delay := strategy.NextDelay(tt.attempt)
		if delay != tt.expectedDelay {
			t.Errorf("NextDelay(attempt=%d, multiplier=%v) = %v, want %v",
				tt.attempt, tt.multiplier, delay, tt.expectedDelay)
		}
	}
}

func TestExponentialBackoffStrategy_SubMillisecondDelays(t *testing.T) {
	strategy := NewExponentialBackoff(
		WithInitialDelay(250*time.Microsecond),
		WithJitter(0),
	)

	if got := strategy.NextDelay(1); got != 500*time.Microsecond {
		t.Errorf("NextDelay(1) = %v, want 500µs", got)
	}
}

func TestFixedBackoff(t *testing.T) {
	b := NewFixedBackoff(500 * time.Millisecond)
	for attempt := 0; attempt < 5; attempt++ {
		if got := b.NextDelay(attempt); got != 500*time.Millisecond {
			t.Errorf("NextDelay(%d) = %v, want 500ms", attempt, got)
		}
	}

	if got := NewFixedBackoff(-time.Second).NextDelay(0); got != 0 {
		t.Errorf("negative delay should clamp to 0, got %v", got)
	}
}

func TestStrategyFor(t *testing.T) {
	fixed := StrategyFor(&streamdb.ConnectionConfig{RetryWait: 100 * time.Millisecond})
	if _, ok := fixed.(*FixedBackoff); !ok {
		t.Fatalf("default strategy = %T, want *FixedBackoff", fixed)
	}
	if got := fixed.NextDelay(3); got != 100*time.Millisecond {
		t.Errorf("fixed NextDelay(3) = %v, want 100ms", got)
	}

	exp := StrategyFor(&streamdb.ConnectionConfig{
		RetryWait:    time.Second,
		RetryBackoff: streamdb.BackoffExponential,
	})
	eb, ok := exp.(*ExponentialBackoff)
	if !ok {
		t.Fatalf("exponential strategy = %T, want *ExponentialBackoff", exp)
	}
	if eb.InitialDelay() != time.Second {
		t.Errorf("InitialDelay = %v, want 1s", eb.InitialDelay())
	}
	if eb.MaxDelay() != streamdb.DefaultRetryMaxWait {
		t.Errorf("MaxDelay = %v, want default %v", eb.MaxDelay(), streamdb.DefaultRetryMaxWait)
	}
}
