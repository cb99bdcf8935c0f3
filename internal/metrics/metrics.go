package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chorecal"

// Metrics holds the process collectors. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry setup.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests            *prometheus.CounterVec
	httpDuration            *prometheus.HistogramVec
	occurrencesMaterialized prometheus.Counter
	expansionAnomalies      *prometheus.CounterVec
	completionConflicts     prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		occurrencesMaterialized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "occurrences_materialized_total",
			Help:      "Occurrences turned into calendar events.",
		}),
		expansionAnomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expansion_anomalies_total",
			Help:      "Chores skipped during expansion because their stored rule was unusable.",
		}, []string{"reason"}),
		completionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_conflicts_total",
			Help:      "Mark-done requests rejected because the occurrence was already complete.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.occurrencesMaterialized,
		m.expansionAnomalies,
		m.completionConflicts,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) AddMaterialized(n int) {
	if m == nil {
		return
	}
	m.occurrencesMaterialized.Add(float64(n))
}

func (m *Metrics) IncAnomaly(reason string) {
	if m == nil {
		return
	}
	m.expansionAnomalies.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncConflict() {
	if m == nil {
		return
	}
	m.completionConflicts.Inc()
}
