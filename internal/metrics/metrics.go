// Package metrics exposes Prometheus counters for export and
// reconciliation runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "permits"

// Registry owns the collectors of one process. Each test builds its own.
type Registry struct {
	reg *prometheus.Registry

	SubmissionsFetched prometheus.Counter
	RecordsExported    prometheus.Counter
	RecordsExcluded    prometheus.Counter
	Anomalies          *prometheus.CounterVec
	ResultRows         *prometheus.CounterVec
	Deliveries         *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	RunFailures        *prometheus.CounterVec
}

// NewRegistry creates and registers all collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		SubmissionsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_fetched_total",
			Help:      "Submissions returned by the forms API.",
		}),
		RecordsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_exported_total",
			Help:      "Records written to an export feed.",
		}),
		RecordsExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_excluded_total",
			Help:      "Submissions excluded from export.",
		}),
		Anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Recoverable data anomalies by kind.",
		}, []string{"kind"}),
		ResultRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_rows_total",
			Help:      "Tracker rows produced by reconciliation, by outcome.",
		}, []string{"outcome"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivery attempts by channel and result.",
		}, []string{"channel", "result"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"run"}),
		RunFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Pipeline runs that ended in an error.",
		}, []string{"run"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.SubmissionsFetched,
		r.RecordsExported,
		r.RecordsExcluded,
		r.Anomalies,
		r.ResultRows,
		r.Deliveries,
		r.RunDuration,
		r.RunFailures,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Delivery records the outcome of one delivery attempt.
func (r *Registry) Delivery(channel string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.Deliveries.WithLabelValues(channel, result).Inc()
}
