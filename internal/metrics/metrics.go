// Package metrics exposes Prometheus collectors for batch exports.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hochfrequenz/booking-export/internal/batch"
	"github.com/hochfrequenz/booking-export/internal/rowcount"
)

// Metrics holds the export collectors and the registry they live on
type Metrics struct {
	registry      *prometheus.Registry
	batchRuns     *prometheus.CounterVec
	rowsExported  *prometheus.CounterVec
	taskFailures  *prometheus.CounterVec
	batchDuration prometheus.Histogram
}

// New registers the export collectors, plus Go and process collectors, on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		batchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "export_batch_runs_total",
			Help: "Batch export runs by final status.",
		}, []string{"status"}),
		rowsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "export_rows_total",
			Help: "Rows appended to sheets, by export type.",
		}, []string{"type"}),
		taskFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "export_task_failures_total",
			Help: "Exporter failures, by export type.",
		}, []string{"type"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "export_batch_duration_seconds",
			Help:    "Wall time of completed batch exports.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
		}),
	}

	m.registry.MustRegister(
		m.batchRuns,
		m.rowsExported,
		m.taskFailures,
		m.batchDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe records a batch event. It is meant to be passed to Runner.Subscribe.
func (m *Metrics) Observe(ev batch.Event) {
	switch ev.Type {
	case batch.EventCompleted:
		m.batchRuns.WithLabelValues("completed").Inc()
		if ev.Report == nil {
			return
		}
		m.batchDuration.Observe(ev.Report.Duration.Seconds())
		for t, res := range ev.Report.Results() {
			if !res.Success {
				m.taskFailures.WithLabelValues(string(t)).Inc()
				continue
			}
			m.rowsExported.WithLabelValues(string(t)).Add(float64(rowcount.FromResult(res)))
		}
	case batch.EventFailed:
		m.batchRuns.WithLabelValues("failed").Inc()
	}
}
