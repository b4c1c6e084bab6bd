package ratelimit

import "github.com/prometheus/client_golang/prometheus"

// Reservation results recorded by Metrics.
const (
	resultAccepted = "accepted"
	resultDeferred = "deferred"
	resultTimeout  = "timeout"
	resultRejected = "rejected"
)

// Metrics contains Prometheus metrics for reservation decisions. Attach one
// to a policy with WithMetrics; policies without metrics record nothing.
type Metrics struct {
	reservations    *prometheus.CounterVec
	reserveDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors with the provided
// registry. If registry is nil, a new private registry is used.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		reservations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mercator_throttle_reservations_total",
				Help: "Total number of reservation decisions by key and result",
			},
			[]string{"key", "result"},
		),

		reserveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mercator_throttle_reserve_duration_seconds",
				Help:    "Duration of reservation decisions in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"policy"},
		),
	}

	registry.MustRegister(m.reservations, m.reserveDuration)
	return m
}

// RecordReservation records one reservation decision.
func (m *Metrics) RecordReservation(key string, result string) {
	m.reservations.WithLabelValues(key, result).Inc()
}

// RecordReserveDuration records how long a reservation decision took.
func (m *Metrics) RecordReserveDuration(policy string, seconds float64) {
	m.reserveDuration.WithLabelValues(policy).Observe(seconds)
}
