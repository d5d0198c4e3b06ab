// Package metrics provides Prometheus metrics for the sync service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service. It satisfies
// reconcile.MetricsSink.
type Metrics struct {
	CyclesTotal      *prometheus.CounterVec
	CycleDuration    *prometheus.HistogramVec
	ChangesTotal     *prometheus.CounterVec
	ProjectsByStage  *prometheus.GaugeVec
	RequestsTotal    *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	LastCycleSuccess prometheus.Gauge
	DBSizeBytes      prometheus.Gauge
	StoreRetries     prometheus.Counter

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectsync_cycles_total",
				Help: "Total number of sync cycles by result.",
			},
			[]string{"result"},
		),
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "projectsync_cycle_duration_seconds",
				Help:    "Sync cycle duration by result.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		ChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectsync_changes_total",
				Help: "Detected project changes by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		ProjectsByStage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "projectsync_projects",
				Help: "Number of projects by brand and lifecycle stage.",
			},
			[]string{"brand", "stage"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectsync_api_requests_total",
				Help: "Operator API requests by route and status class.",
			},
			[]string{"route", "status"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projectsync_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		LastCycleSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "projectsync_last_success_timestamp_seconds",
				Help: "Unix time of the last successful sync cycle.",
			},
		),
		DBSizeBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "projectsync_db_size_bytes",
				Help: "Size of the SQLite database after the last cycle.",
			},
		),
		StoreRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "projectsync_store_retries_total",
				Help: "Store operations retried after a transient error.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.CyclesTotal)
	reg.MustRegister(m.CycleDuration)
	reg.MustRegister(m.ChangesTotal)
	reg.MustRegister(m.ProjectsByStage)
	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.ErrorsTotal)
	reg.MustRegister(m.LastCycleSuccess)
	reg.MustRegister(m.DBSizeBytes)
	reg.MustRegister(m.StoreRetries)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycle counts a cycle and records its duration.
func (m *Metrics) ObserveCycle(result string, d time.Duration) {
	m.CyclesTotal.WithLabelValues(result).Inc()
	if result == "skipped" {
		return
	}
	m.CycleDuration.WithLabelValues(result).Observe(d.Seconds())
	if result == "success" {
		m.LastCycleSuccess.SetToCurrentTime()
	}
}

// RecordChange counts one processed change.
func (m *Metrics) RecordChange(kind, outcome string) {
	m.ChangesTotal.WithLabelValues(kind, outcome).Inc()
}

// ResetProjectsByStage drops all stage series before a refresh.
func (m *Metrics) ResetProjectsByStage() {
	m.ProjectsByStage.Reset()
}

// SetProjectsByStage sets the project count of one brand and stage.
func (m *Metrics) SetProjectsByStage(brand, stage string, n int) {
	m.ProjectsByStage.WithLabelValues(brand, stage).Set(float64(n))
}

// SetDBSizeBytes records the current database size.
func (m *Metrics) SetDBSizeBytes(n int64) {
	m.DBSizeBytes.Set(float64(n))
}

// RecordRetry counts one retried store operation.
func (m *Metrics) RecordRetry() {
	m.StoreRetries.Inc()
}

// RecordRequest increments the API request counter.
func (m *Metrics) RecordRequest(route, status string) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
