package aggregation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes recorded on RunsTotal.
const (
	OutcomeSuccess     = "success"
	OutcomeEmpty       = "empty"
	OutcomeLocked      = "locked"
	OutcomeUnprocessed = "unprocessed"
	OutcomeError       = "error"
)

// Metrics holds the pipeline's Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	RunsTotal         *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	EventsFetched     *prometheus.CounterVec
	AggregatesWritten *prometheus.CounterVec
	WriteRetries      *prometheus.CounterVec
	UnprocessedItems  *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollup_runs_total",
				Help: "Total number of aggregation runs",
			},
			[]string{"family", "outcome"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rollup_run_duration_seconds",
				Help:    "Aggregation run duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"family"},
		),
		EventsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollup_events_fetched_total",
				Help: "Total number of raw events fetched",
			},
			[]string{"family"},
		),
		AggregatesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollup_aggregates_written_total",
				Help: "Total number of aggregate records accepted by the store",
			},
			[]string{"family"},
		),
		WriteRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollup_write_retries_total",
				Help: "Total number of chunk resubmissions",
			},
			[]string{"family"},
		),
		UnprocessedItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollup_unprocessed_items_total",
				Help: "Total number of aggregate records left unwritten after retries",
			},
			[]string{"family"},
		),
	}

	registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.EventsFetched,
		m.AggregatesWritten,
		m.WriteRetries,
		m.UnprocessedItems,
	)

	return m
}

func (m *Metrics) recordRun(family, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(family, outcome).Inc()
	m.RunDuration.WithLabelValues(family).Observe(d.Seconds())
}

func (m *Metrics) recordFetched(family string, n int) {
	if m == nil {
		return
	}
	m.EventsFetched.WithLabelValues(family).Add(float64(n))
}

func (m *Metrics) recordWrite(family string, res WriteResult) {
	if m == nil {
		return
	}
	m.AggregatesWritten.WithLabelValues(family).Add(float64(res.Written))
	m.WriteRetries.WithLabelValues(family).Add(float64(res.Retries))
	m.UnprocessedItems.WithLabelValues(family).Add(float64(res.Unprocessed))
}
