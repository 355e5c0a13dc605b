// Package metrics provides Prometheus metrics for policyrag
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes
const (
	OutcomeAnswered = "answered"
	OutcomeNoMatch  = "no_match"
	OutcomeError    = "error"
	OutcomeCached   = "cached"
)

// Metrics holds all Prometheus metrics for policyrag
type Metrics struct {
	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsLimited prometheus.Counter

	// Query engine metrics
	QueriesTotal     *prometheus.CounterVec
	ConflictsTotal   prometheus.Counter
	QueryConfidence  prometheus.Histogram
	DocumentsIndexed prometheus.Gauge

	// Ingestion metrics
	IngestSkippedTotal prometheus.Counter
	ReloadsTotal       *prometheus.CounterVec
}

// New creates all metrics and registers them on reg. A nil reg registers nothing,
// which keeps tests free of global state.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "policyrag_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "policyrag_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		HTTPRequestsLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "policyrag_http_requests_rate_limited_total",
				Help: "Total number of HTTP requests rejected by the rate limiter",
			},
		),
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "policyrag_queries_total",
				Help: "Total number of processed questions by outcome",
			},
			[]string{"outcome"},
		),
		ConflictsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "policyrag_conflicts_total",
				Help: "Total number of answers that resolved competing policy versions",
			},
		),
		QueryConfidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "policyrag_query_confidence",
				Help:    "Confidence of answered questions",
				Buckets: []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
			},
		),
		DocumentsIndexed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "policyrag_documents_indexed",
				Help: "Number of documents currently in the vector store",
			},
		),
		IngestSkippedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "policyrag_ingest_skipped_total",
				Help: "Total number of malformed document records skipped during ingestion",
			},
		),
		ReloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "policyrag_reloads_total",
				Help: "Total number of corpus reloads triggered by the directory watcher",
			},
			[]string{"status"},
		),
	}
}

// RecordHTTPRequest records an HTTP request with its status
func (m *Metrics) RecordHTTPRequest(path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordQuery records a processed question
func (m *Metrics) RecordQuery(outcome string, confidence float64, conflict bool) {
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeAnswered {
		m.QueryConfidence.Observe(confidence)
	}
	if conflict {
		m.ConflictsTotal.Inc()
	}
}

// RecordIngest updates ingestion statistics
func (m *Metrics) RecordIngest(documents, skipped int) {
	m.DocumentsIndexed.Set(float64(documents))
	m.IngestSkippedTotal.Add(float64(skipped))
}
