package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Provider metrics
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	ProviderHealthy         *prometheus.GaugeVec

	// Payment metrics
	PaymentsTotal *prometheus.CounterVec
	StatusChecks  *prometheus.CounterVec

	// Poller metrics
	PollerPolls *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		ProviderRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of gateway calls by provider, operation and outcome",
			},
			[]string{"provider", "operation", "outcome"},
		),
		ProviderRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Gateway call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider", "operation"},
		),
		ProviderHealthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_healthy",
				Help:      "Result of the last health probe (1=healthy, 0=unhealthy)",
			},
			[]string{"provider"},
		),
		PaymentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_total",
				Help:      "Total number of payments created by method, provider and status",
			},
			[]string{"method", "provider", "status"},
		),
		StatusChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_checks_total",
				Help:      "Total number of status lookups by resolution path and outcome",
			},
			[]string{"path", "outcome"},
		),
		PollerPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poller_polls_total",
				Help:      "Total number of status polls by outcome",
			},
			[]string{"outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.ProviderRequestsTotal,
		m.ProviderRequestDuration,
		m.ProviderHealthy,
		m.PaymentsTotal,
		m.StatusChecks,
		m.PollerPolls,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveProviderCall records one gateway call. Safe on a nil receiver.
func (m *Metrics) ObserveProviderCall(provider, operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	m.ProviderRequestDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// SetProviderHealth records a health probe result. Safe on a nil receiver.
func (m *Metrics) SetProviderHealth(provider string, healthy bool) {
	if m == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1
	}
	m.ProviderHealthy.WithLabelValues(provider).Set(v)
}

// SetBreakerState records a circuit breaker transition. Safe on a nil receiver.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// IncPayment counts a created payment. Safe on a nil receiver.
func (m *Metrics) IncPayment(method, provider, status string) {
	if m == nil {
		return
	}
	m.PaymentsTotal.WithLabelValues(method, provider, status).Inc()
}

// IncStatusCheck counts a status lookup. Safe on a nil receiver.
func (m *Metrics) IncStatusCheck(path, outcome string) {
	if m == nil {
		return
	}
	m.StatusChecks.WithLabelValues(path, outcome).Inc()
}

// IncPoll counts a poller tick. Safe on a nil receiver.
func (m *Metrics) IncPoll(outcome string) {
	if m == nil {
		return
	}
	m.PollerPolls.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest records one served request. Safe on a nil receiver.
func (m *Metrics) ObserveHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
