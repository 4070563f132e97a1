package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for calls to the to-do list API
// and for route guard decisions.
type Metrics struct {
	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	GuardDecisions     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_spa_api_requests_total",
			Help: "Requests sent to the to-do list API by method and status code",
		}, []string{"method", "code"}),
		APIRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todo_spa_api_request_duration_seconds",
			Help:    "Latency of requests sent to the to-do list API",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		GuardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_spa_guard_decisions_total",
			Help: "Route guard outcomes by required role and result",
		}, []string{"role", "result"}),
	}
}

// InstrumentRoundTripper wraps next so every outgoing request is counted and timed.
func (m *Metrics) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(m.APIRequests,
		promhttp.InstrumentRoundTripperDuration(m.APIRequestDuration, next))
}

// ObserveGuardDecision records one route guard outcome.
func (m *Metrics) ObserveGuardDecision(role string, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.GuardDecisions.WithLabelValues(role, result).Inc()
}
