package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDeductionMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDeductionMetrics(reg)

	m.IncSuccess("store-1")
	m.IncSuccess("store-1")
	m.IncFailure("store-1", "INSUFFICIENT_STOCK")
	m.IncConflict()
	m.IncReplay()
	m.ObserveDuration("store-1", 120*time.Millisecond)

	if got := testutil.ToFloat64(m.success.WithLabelValues("store-1")); got != 2 {
		t.Fatalf("success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("store-1", "INSUFFICIENT_STOCK")); got != 1 {
		t.Fatalf("failure = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.conflicts); got != 1 {
		t.Fatalf("conflicts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.replays); got != 1 {
		t.Fatalf("replays = %v, want 1", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *DeductionMetrics
	m.IncSuccess("s")
	m.IncFailure("s", "r")
	m.IncConflict()
	m.IncReplay()
	m.ObserveDuration("s", time.Second)

	empty := NewDeductionMetrics(nil)
	empty.IncSuccess("s")
}
