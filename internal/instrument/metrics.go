package instrument

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus collectors of the service. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	inFlight   prometheus.Gauge
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	entityOps  *prometheus.CounterVec
	sessionOps *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		entityOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hr_entity_operations_total",
				Help: "Generic entity operations by entity, operation and outcome.",
			},
			[]string{"entity", "op", "outcome"},
		),
		sessionOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hr_session_events_total",
				Help: "Session gate events (issued, rejected, validated, expired, logout, revoked, throttled).",
			},
			[]string{"event"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.inFlight, m.requests, m.duration, m.entityOps, m.sessionOps)
	}
	return m
}

// EntityOp counts one entity operation; err decides the outcome label.
func (m *Metrics) EntityOp(entity, op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.entityOps.WithLabelValues(entity, op, outcome).Inc()
}

// SessionEvent counts one session gate event.
func (m *Metrics) SessionEvent(event string) {
	if m == nil {
		return
	}
	m.sessionOps.WithLabelValues(event).Inc()
}
