package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transfer outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailure  = "failure"
)

// TransferMetrics records purchase and sale registrations.
type TransferMetrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	units    *prometheus.CounterVec
}

// NewTransferMetrics registers the transfer metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewTransferMetrics(reg prometheus.Registerer) *TransferMetrics {
	if reg == nil {
		return &TransferMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bienes_transfer_duration_seconds",
		Help:    "Duration of transfer registrations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bienes_transfers_total",
		Help: "Transfer registrations by kind and outcome.",
	}, []string{"kind", "outcome"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bienes_transfer_units_total",
		Help: "Units moved by committed transfers.",
	}, []string{"kind"})
	reg.MustRegister(duration, total, units)
	return &TransferMetrics{
		duration: duration,
		total:    total,
		units:    units,
	}
}

// Observe records one transfer attempt.
func (m *TransferMetrics) Observe(kind, outcome string, units int, duration time.Duration) {
	if m == nil || m.total == nil {
		return
	}
	kind = normalizeLabel(kind)
	m.duration.WithLabelValues(kind).Observe(duration.Seconds())
	m.total.WithLabelValues(kind, normalizeLabel(outcome)).Inc()
	if outcome == OutcomeSuccess && units > 0 {
		m.units.WithLabelValues(kind).Add(float64(units))
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
