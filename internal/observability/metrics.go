package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	durations     *prometheus.HistogramVec
	errors        *prometheus.CounterVec
	authOutcomes  *prometheus.CounterVec
	activeStreams prometheus.Gauge
	updatesSent   prometheus.Counter
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"path", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP requests that ended in an application error.",
		}, []string{"path", "method", "code"}),
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_outcomes_total",
			Help: "Login, verify and refresh results by outcome.",
		}, []string{"operation", "outcome"}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "update_streams_active",
			Help: "Open update notification streams.",
		}),
		updatesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "update_events_emitted_total",
			Help: "Update events pushed to clients.",
		}),
	}
	reg.MustRegister(m.requests, m.durations, m.errors, m.authOutcomes, m.activeStreams, m.updatesSent)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(path, method, code).Inc()
	m.durations.WithLabelValues(path, method, code).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordAuthOutcome counts an auth operation result.
func (m *Metrics) RecordAuthOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.authOutcomes.WithLabelValues(operation, outcome).Inc()
}

// StreamOpened and StreamClosed track open update streams.
func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.activeStreams.Inc()
}

func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.activeStreams.Dec()
}

// UpdateEmitted counts one pushed update event.
func (m *Metrics) UpdateEmitted() {
	if m == nil {
		return
	}
	m.updatesSent.Inc()
}
