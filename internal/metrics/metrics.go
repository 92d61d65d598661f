package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "surveylens"

// Metrics holds the engine and API collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	filesProcessed   *prometheus.CounterVec
	parseDuration    prometheus.Histogram
	responsesParsed  *prometheus.CounterVec
	defaultedCells   prometheus.Counter
	schemaDetections *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		filesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Spreadsheets run through the engine, by outcome.",
		}, []string{"outcome"}),
		parseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Time spent parsing, validating and analyzing one spreadsheet.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		responsesParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Parsed survey responses, by state.",
		}, []string{"state"}),
		defaultedCells: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "defaulted_cells_total",
			Help:      "Cells whose value fell back to a default during normalization.",
		}),
		schemaDetections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_detections_total",
			Help:      "Detected questionnaire layouts.",
		}, []string{"schema"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// FileProcessed records one engine run.
func (m *Metrics) FileProcessed(success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.filesProcessed.WithLabelValues(outcome).Inc()
	m.parseDuration.Observe(elapsed.Seconds())
}

// Responses records parsed response counts.
func (m *Metrics) Responses(usable, empty, flagged int) {
	if m == nil {
		return
	}
	m.responsesParsed.WithLabelValues("usable").Add(float64(usable))
	m.responsesParsed.WithLabelValues("empty").Add(float64(empty))
	m.responsesParsed.WithLabelValues("flagged").Add(float64(flagged))
}

func (m *Metrics) DefaultedCells(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.defaultedCells.Add(float64(n))
}

func (m *Metrics) SchemaDetected(schema string) {
	if m == nil {
		return
	}
	m.schemaDetections.WithLabelValues(schema).Inc()
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
