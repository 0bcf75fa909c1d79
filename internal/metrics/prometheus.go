package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the feature store
type Metrics struct {
	// Historical retrieval metrics
	historicalRetrievals *prometheus.CounterVec
	historicalRows       prometheus.Counter
	historicalDuration   prometheus.Histogram

	// Online serving metrics
	onlineReads        *prometheus.CounterVec
	onlineReadDuration prometheus.Histogram
	onlineRowsMissing  prometheus.Counter
	onlineRowsStale    prometheus.Counter

	// Materialization metrics
	materializeRuns     *prometheus.CounterVec
	materializedRows    *prometheus.CounterVec
	materializeDuration prometheus.Histogram

	// Training metrics
	trainingRuns     *prometheus.CounterVec
	trainingDuration prometheus.Histogram

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a metrics instance backed by its own registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		historicalRetrievals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feature_store",
				Subsystem: "historical",
				Name:      "retrievals_total",
				Help:      "Total number of historical retrievals by status",
			},
			[]string{"status"},
		),

		historicalRows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "feature_store",
				Subsystem: "historical",
				Name:      "rows_total",
				Help:      "Total number of dataset rows produced",
			},
		),

		historicalDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "feature_store",
				Subsystem: "historical",
				Name:      "duration_seconds",
				Help:      "Histogram of historical retrieval durations",
				Buckets:   prometheus.DefBuckets,
			},
		),

		onlineReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feature_store",
				Subsystem: "online",
				Name:      "reads_total",
				Help:      "Total number of online reads by view",
			},
			[]string{"view"},
		),

		onlineReadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "feature_store",
				Subsystem: "online",
				Name:      "read_duration_seconds",
				Help:      "Histogram of online read durations",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),

		onlineRowsMissing: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "feature_store",
				Subsystem: "online",
				Name:      "rows_missing_total",
				Help:      "Total number of online reads that found no row",
			},
		),

		onlineRowsStale: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "feature_store",
				Subsystem: "online",
				Name:      "rows_stale_total",
				Help:      "Total number of online rows served past their TTL",
			},
		),

		materializeRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feature_store",
				Subsystem: "materialize",
				Name:      "runs_total",
				Help:      "Total number of materialization runs by status",
			},
			[]string{"status"},
		),

		materializedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feature_store",
				Subsystem: "materialize",
				Name:      "rows_total",
				Help:      "Total number of rows written to the online store by view",
			},
			[]string{"view"},
		),

		materializeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "feature_store",
				Subsystem: "materialize",
				Name:      "duration_seconds",
				Help:      "Histogram of materialization run durations",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),

		trainingRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feature_store",
				Subsystem: "training",
				Name:      "runs_total",
				Help:      "Total number of training runs by status",
			},
			[]string{"status"},
		),

		trainingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "feature_store",
				Subsystem: "training",
				Name:      "duration_seconds",
				Help:      "Histogram of training run durations",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feature_store",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "feature_store",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.historicalRetrievals,
		m.historicalRows,
		m.historicalDuration,
		m.onlineReads,
		m.onlineReadDuration,
		m.onlineRowsMissing,
		m.onlineRowsStale,
		m.materializeRuns,
		m.materializedRows,
		m.materializeDuration,
		m.trainingRuns,
		m.trainingDuration,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

// RecordHistoricalRetrieval records one dataset build. Nil receivers
// are tolerated so services can run without metrics in tests.
func (m *Metrics) RecordHistoricalRetrieval(status string, rows int, duration time.Duration) {
	if m == nil {
		return
	}
	m.historicalRetrievals.WithLabelValues(status).Inc()
	m.historicalRows.Add(float64(rows))
	m.historicalDuration.Observe(duration.Seconds())
}

// RecordOnlineRead records one online read against a view
func (m *Metrics) RecordOnlineRead(view string, missing, stale int, duration time.Duration) {
	if m == nil {
		return
	}
	m.onlineReads.WithLabelValues(view).Inc()
	m.onlineReadDuration.Observe(duration.Seconds())
	m.onlineRowsMissing.Add(float64(missing))
	m.onlineRowsStale.Add(float64(stale))
}

// RecordMaterializeRun records one materialization run
func (m *Metrics) RecordMaterializeRun(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.materializeRuns.WithLabelValues(status).Inc()
	m.materializeDuration.Observe(duration.Seconds())
}

// RecordMaterializedRows records rows written for a view
func (m *Metrics) RecordMaterializedRows(view string, rows int) {
	if m == nil {
		return
	}
	m.materializedRows.WithLabelValues(view).Add(float64(rows))
}

// RecordTrainingRun records one training run
func (m *Metrics) RecordTrainingRun(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.trainingRuns.WithLabelValues(status).Inc()
	m.trainingDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
