package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Runs      *prometheus.CounterVec
	Records   *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Contended *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualify_sweep_runs_total",
			Help: "Completed sweep runs",
		}, []string{"sweep"}),
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualify_sweep_records_total",
			Help: "Records handled by sweeps, by outcome",
		}, []string{"sweep", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qualify_sweep_duration_seconds",
			Help:    "Sweep run duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"sweep"}),
		Contended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualify_sweep_lock_contended_total",
			Help: "Sweep fires skipped because another instance held the lock",
		}, []string{"sweep"}),
	}
}

func (m *Metrics) observe(r *Report, took time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(r.Sweep).Inc()
	m.Records.WithLabelValues(r.Sweep, "changed").Add(float64(r.Changed))
	m.Records.WithLabelValues(r.Sweep, "failed").Add(float64(r.Failed))
	m.Duration.WithLabelValues(r.Sweep).Observe(took.Seconds())
}

func (m *Metrics) contended(sweep string) {
	if m == nil {
		return
	}
	m.Contended.WithLabelValues(sweep).Inc()
}
