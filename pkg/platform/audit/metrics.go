package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit trail.
type Metrics struct {
	Recorded        *prometheus.CounterVec
	PersistFailures prometheus.Counter
	Buffered        prometheus.Counter
	BufferDropped   prometheus.Counter
	Replayed        prometheus.Counter
	Invalid         prometheus.Counter
	BreakerState    prometheus.Gauge
}

// NewMetrics registers audit metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Recorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualify_audit_entries_recorded_total",
			Help: "Audit entries persisted, by event type",
		}, []string{"event_type"}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "qualify_audit_persist_failures_total",
			Help: "Audit store writes that failed",
		}),
		Buffered: f.NewCounter(prometheus.CounterOpts{
			Name: "qualify_audit_fallback_buffered_total",
			Help: "Audit entries routed to the fallback buffer",
		}),
		BufferDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "qualify_audit_fallback_dropped_total",
			Help: "Audit entries lost because the fallback buffer was full",
		}),
		Replayed: f.NewCounter(prometheus.CounterOpts{
			Name: "qualify_audit_fallback_replayed_total",
			Help: "Buffered audit entries later persisted by the retry loop",
		}),
		Invalid: f.NewCounter(prometheus.CounterOpts{
			Name: "qualify_audit_invalid_entries_total",
			Help: "Malformed audit entries rejected before persistence",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "qualify_audit_circuit_breaker_state",
			Help: "Audit store circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) incRecorded(t EventType) {
	if m == nil {
		return
	}
	m.Recorded.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) incPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) incBuffered(dropped bool) {
	if m == nil {
		return
	}
	m.Buffered.Inc()
	if dropped {
		m.BufferDropped.Inc()
	}
}

func (m *Metrics) addReplayed(n int) {
	if m == nil {
		return
	}
	m.Replayed.Add(float64(n))
}

func (m *Metrics) incInvalid() {
	if m == nil {
		return
	}
	m.Invalid.Inc()
}

func (m *Metrics) setBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
