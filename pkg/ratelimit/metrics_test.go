package ratelimit

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/throttle/pkg/ratelimit/storage"
)

// ============================================================================
// Registration
// ============================================================================

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	if m == nil {
		t.Fatal("Expected metrics, got nil")
	}

	m.RecordReservation("client-1", resultAccepted)
	m.RecordReserveDuration("fixed_window", 0.00005)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"mercator_throttle_reservations_total",
		"mercator_throttle_reserve_duration_seconds",
	} {
		if !names[want] {
			t.Errorf("Expected metric %q to be registered", want)
		}
	}
}

func TestNewMetrics_NilRegistry(t *testing.T) {
	m := NewMetrics(nil)
	if m == nil {
		t.Fatal("Expected metrics, got nil")
	}
	// Must not panic recording against the private registry.
	m.RecordReservation("client-1", resultDeferred)
}

// ============================================================================
// Policy integration
// ============================================================================

func TestFixedWindowPolicy_RecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	clock := newFakeClock()
	store := storage.NewInMemoryStorage[FixedWindowState]()
	policy, err := NewFixedWindowPolicy(2, "client-1", time.Second, store,
		WithNowFunc(clock.Now),
		WithMetrics(metrics),
	)
	if err != nil {
		t.Fatalf("NewFixedWindowPolicy failed: %v", err)
	}

	// accepted
	if _, err := policy.Consume(2); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	// deferred
	if _, err := policy.Consume(1); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	// timeout
	if _, err := policy.Reserve(1, 0); !errors.Is(err, ErrMaxWaitExceeded) {
		t.Fatalf("Expected ErrMaxWaitExceeded, got %v", err)
	}
	// rejected
	if _, err := policy.Consume(3); err == nil {
		t.Fatal("Expected TooManyTokensError")
	}

	tests := []struct {
		result string
		want   float64
	}{
		{result: resultAccepted, want: 1},
		{result: resultDeferred, want: 1},
		{result: resultTimeout, want: 1},
		{result: resultRejected, want: 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(metrics.reservations.WithLabelValues("client-1", tt.result))
		if got != tt.want {
			t.Errorf("Expected %s count %v, got %v", tt.result, tt.want, got)
		}
	}
}
