package records

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts state-machine activity.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Submissions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualify_record_transitions_total",
			Help: "Training record status transitions",
		}, []string{"from", "to"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualify_record_rejections_total",
			Help: "Rejected training record actions by reason",
		}, []string{"action", "reason"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualify_assessment_submissions_total",
			Help: "Graded assessment submissions by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) transition(from, to Status) {
	if m == nil || from == to {
		return
	}
	m.Transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) rejection(action, reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(action, reason).Inc()
}

func (m *Metrics) submission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}
