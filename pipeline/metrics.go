package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the counters a Runner maintains.
type Metrics struct {
	TaskCounter       *prometheus.CounterVec
	RowsCounter       *prometheus.CounterVec
	DurationHistogram *prometheus.HistogramVec
}

// NewMetrics creates the runner metrics and registers them with reg, which
// may be nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		TaskCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "colframe",
				Subsystem: "pipeline",
				Name:      "tasks_total",
				Help:      "Total number of finished tasks by status.",
			}, []string{"status"}),
		RowsCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "colframe",
				Subsystem: "pipeline",
				Name:      "rows_total",
				Help:      "Total number of rows produced by tasks.",
			}, []string{"task"}),
		DurationHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "colframe",
				Subsystem: "pipeline",
				Name:      "task_duration_seconds",
				Help:      "Bucketed histogram of task run duration.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2.0, 20),
			}, []string{"task"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.TaskCounter, m.RowsCounter, m.DurationHistogram} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
