package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records identity gateway lookups.
type GatewayMetrics struct {
	duration *prometheus.HistogramVec
	lookups  *prometheus.CounterVec
	cache    *prometheus.CounterVec
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bienes_gateway_request_duration_seconds",
		Help:    "Duration of single gateway partition calls.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"partition"})
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bienes_gateway_lookups_total",
		Help: "Identity lookups by resolution.",
	}, []string{"result"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bienes_gateway_cache_total",
		Help: "Identity cache hits and misses.",
	}, []string{"result"})
	reg.MustRegister(duration, lookups, cache)
	return &GatewayMetrics{duration: duration, lookups: lookups, cache: cache}
}

// ObserveCall records the latency of one partition request.
func (m *GatewayMetrics) ObserveCall(partition string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(partition)).Observe(duration.Seconds())
}

// IncLookup counts a resolved lookup (found, not_found, connection_error, ...).
func (m *GatewayMetrics) IncLookup(result string) {
	if m == nil || m.lookups == nil {
		return
	}
	m.lookups.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncCache counts a cache hit or miss.
func (m *GatewayMetrics) IncCache(hit bool) {
	if m == nil || m.cache == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}
