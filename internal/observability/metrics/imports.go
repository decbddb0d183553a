package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

// ImportMetrics records one observation per finished import. It is shared by
// the API and the worker.
type ImportMetrics struct {
	registry *prometheus.Registry
	service  string

	importTotal    *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
	importInFlight prometheus.Gauge
	importWarnings *prometheus.CounterVec
	payloadBytes   prometheus.Histogram
	submissionLag  prometheus.Histogram
}

// NewImportMetrics registers on registry, or on a fresh registry when nil.
func NewImportMetrics(service string, registry *prometheus.Registry) *ImportMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	importTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "imports_total",
			Help:      "Total finished imports by status.",
		},
		[]string{"service", "status"},
	)
	importDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "import_duration_seconds",
			Help:      "Import duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	importInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "imports_in_flight",
			Help:        "Number of imports currently running.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	importWarnings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "warnings_total",
			Help:      "Warnings attached to finished imports.",
		},
		[]string{"service", "status"},
	)
	payloadBytes := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "payload_bytes",
			Help:        "Size of submitted documents.",
			Buckets:     prometheus.ExponentialBuckets(4<<10, 4, 7),
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	submissionLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "submission_lag_seconds",
			Help:        "Delay between the source file modification and the import.",
			Buckets:     []float64{1, 5, 30, 60, 300, 900, 3600, 21600, 86400},
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	registry.MustRegister(importTotal, importDuration, importInFlight, importWarnings, payloadBytes, submissionLag)

	return &ImportMetrics{
		registry:       registry,
		service:        service,
		importTotal:    importTotal,
		importDuration: importDuration,
		importInFlight: importInFlight,
		importWarnings: importWarnings,
		payloadBytes:   payloadBytes,
		submissionLag:  submissionLag,
	}
}

func (m *ImportMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartImport marks an import as running and returns the func that ends it.
func (m *ImportMetrics) StartImport() func() {
	m.importInFlight.Inc()
	return m.importInFlight.Dec
}

func (m *ImportMetrics) ObserveImport(status domain.ImportStatus, duration time.Duration, inputBytes, warnings int) {
	s := string(status)
	m.importTotal.WithLabelValues(m.service, s).Inc()
	m.importDuration.WithLabelValues(m.service, s).Observe(duration.Seconds())
	m.payloadBytes.Observe(float64(inputBytes))
	if warnings > 0 {
		m.importWarnings.WithLabelValues(m.service, s).Add(float64(warnings))
	}
}

func (m *ImportMetrics) ObserveSubmissionLag(modifiedAt time.Time) {
	if modifiedAt.IsZero() {
		return
	}
	if lag := time.Since(modifiedAt); lag >= 0 {
		m.submissionLag.Observe(lag.Seconds())
	}
}
