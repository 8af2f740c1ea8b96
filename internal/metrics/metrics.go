package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the ticker runner.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal      *prometheus.CounterVec // labels: outcome=done|failed
	FailuresTotal  *prometheus.CounterVec // labels: stage
	RowsWritten    *prometheus.CounterVec // labels: ticker
	InvalidRows    prometheus.Counter
	DuplicateRows  prometheus.Counter
	RunDuration    prometheus.Histogram
	LastSuccessUTC *prometheus.GaugeVec // labels: ticker
}

// NewMetrics registers and returns all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockanalytics_runs_total",
			Help: "Ticker runs by outcome",
		}, []string{"outcome"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockanalytics_failures_total",
			Help: "Failed ticker runs by stage",
		}, []string{"stage"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockanalytics_rows_written_total",
			Help: "Enriched rows written to artifacts",
		}, []string{"ticker"}),
		InvalidRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockanalytics_invalid_rows_total",
			Help: "Rows dropped for an unparseable date or missing close",
		}),
		DuplicateRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockanalytics_duplicate_rows_total",
			Help: "Rows replaced by a later row with the same instant",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockanalytics_run_duration_seconds",
			Help:    "Duration of one ticker run including fetch and persistence",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		LastSuccessUTC: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockanalytics_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per ticker",
		}, []string{"ticker"}),
	}

	m.Registry.MustRegister(
		m.RunsTotal,
		m.FailuresTotal,
		m.RowsWritten,
		m.InvalidRows,
		m.DuplicateRows,
		m.RunDuration,
		m.LastSuccessUTC,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSuccess records a completed run.
func (m *Metrics) ObserveSuccess(ticker string, rows, invalid, duplicates int, d time.Duration) {
	m.RunsTotal.WithLabelValues("done").Inc()
	m.RowsWritten.WithLabelValues(ticker).Add(float64(rows))
	m.InvalidRows.Add(float64(invalid))
	m.DuplicateRows.Add(float64(duplicates))
	m.RunDuration.Observe(d.Seconds())
	m.LastSuccessUTC.WithLabelValues(ticker).Set(float64(time.Now().Unix()))
}

// ObserveFailure records a run that failed at stage.
func (m *Metrics) ObserveFailure(stage string, d time.Duration) {
	m.RunsTotal.WithLabelValues("failed").Inc()
	m.FailuresTotal.WithLabelValues(stage).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
