package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeductionMetrics records outcomes of inventory deduction orders.
type DeductionMetrics struct {
	duration  *prometheus.HistogramVec
	success   *prometheus.CounterVec
	failure   *prometheus.CounterVec
	conflicts prometheus.Counter
	replays   prometheus.Counter
}

// NewDeductionMetrics registers the deduction metrics on the provided registerer.
func NewDeductionMetrics(reg prometheus.Registerer) *DeductionMetrics {
	if reg == nil {
		return &DeductionMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_deduction_duration_seconds",
		Help:    "Duration of order-level deductions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"store"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_deduction_success",
		Help: "Orders fully applied.",
	}, []string{"store"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_deduction_failure",
		Help: "Orders failed and rolled back, by reason.",
	}, []string{"store", "reason"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_deduction_version_conflicts",
		Help: "Compare-and-swap version conflicts observed (including retried ones).",
	})
	replays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_deduction_idempotent_replays",
		Help: "Deductions answered from idempotency records without touching stock.",
	})
	reg.MustRegister(duration, success, failure, conflicts, replays)
	return &DeductionMetrics{
		duration:  duration,
		success:   success,
		failure:   failure,
		conflicts: conflicts,
		replays:   replays,
	}
}

// ObserveDuration records the order-level latency for a store.
func (d *DeductionMetrics) ObserveDuration(store string, duration time.Duration) {
	if d == nil || d.duration == nil {
		return
	}
	d.duration.WithLabelValues(normalizeLabel(store)).Observe(duration.Seconds())
}

// IncSuccess increments the applied-order counter.
func (d *DeductionMetrics) IncSuccess(store string) {
	if d == nil || d.success == nil {
		return
	}
	d.success.WithLabelValues(normalizeLabel(store)).Inc()
}

// IncFailure increments the failed-order counter for the given reason.
func (d *DeductionMetrics) IncFailure(store, reason string) {
	if d == nil || d.failure == nil {
		return
	}
	d.failure.WithLabelValues(normalizeLabel(store), normalizeLabel(reason)).Inc()
}

// IncConflict counts one observed version conflict.
func (d *DeductionMetrics) IncConflict() {
	if d == nil || d.conflicts == nil {
		return
	}
	d.conflicts.Inc()
}

// IncReplay counts one idempotent replay.
func (d *DeductionMetrics) IncReplay() {
	if d == nil || d.replays == nil {
		return
	}
	d.replays.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
