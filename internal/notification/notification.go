// Package notification delivers user-facing notices. Delivery is
// best-effort: a failed notice is logged and counted, never returned.
package notification

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	id "qualify/pkg/domain"
)

// Kind names a notice template.
type Kind string

const (
	KindAssigned           Kind = "training_assigned"
	KindRetrainingAssigned Kind = "retraining_assigned"
	KindDueReminder        Kind = "due_reminder"
	KindExpiryReminder     Kind = "expiry_reminder"
	KindOverdue            Kind = "training_overdue"
	KindLocked             Kind = "assessment_locked"
	KindCertificateIssued  Kind = "certificate_issued"
)

// Notice is one message for one user.
type Notice struct {
	UserID  id.UserID
	Kind    Kind
	Context map[string]string
}

// Notifier is the outbound delivery channel.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Metrics counts deliveries by kind and outcome.
type Metrics struct {
	Sent   *prometheus.CounterVec
	Failed *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Sent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualify_notifications_sent_total",
			Help: "Notifications handed to the delivery channel",
		}, []string{"kind"}),
		Failed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualify_notifications_failed_total",
			Help: "Notifications the delivery channel rejected",
		}, []string{"kind"}),
	}
}

// Dispatcher wraps a Notifier and swallows its failures.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher builds a dispatcher. A nil notifier falls back to logging.
func NewDispatcher(notifier Notifier, opts ...Option) *Dispatcher {
	d := &Dispatcher{notifier: notifier, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	if d.notifier == nil {
		d.notifier = NewLogNotifier(d.logger)
	}
	return d
}

// Send delivers n and reports whether it was accepted.
func (d *Dispatcher) Send(ctx context.Context, n Notice) bool {
	if err := d.notifier.Notify(ctx, n); err != nil {
		if d.metrics != nil {
			d.metrics.Failed.WithLabelValues(string(n.Kind)).Inc()
		}
		d.logger.WarnContext(ctx, "notification failed",
			"kind", n.Kind,
			"user_id", n.UserID.String(),
			"error", err,
		)
		return false
	}
	if d.metrics != nil {
		d.metrics.Sent.WithLabelValues(string(n.Kind)).Inc()
	}
	return true
}

// LogNotifier writes notices to the log. It stands in for an email or SMS
// provider.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notice) error {
	attrs := []any{"kind", n.Kind, "user_id", n.UserID.String()}
	for k, v := range n.Context {
		attrs = append(attrs, k, v)
	}
	l.logger.InfoContext(ctx, "notification", attrs...)
	return nil
}
