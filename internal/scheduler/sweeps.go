// Package scheduler runs the time-driven sweeps: overdue marking, expiry,
// and due/expiry reminders. Sweeps read candidates in one query and apply
// each transition through the records sweeper, so a failure on one record
// never stops the rest.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"qualify/internal/notification"
	"qualify/internal/records"
	id "qualify/pkg/domain"
	"qualify/pkg/platform/clock"
	"qualify/pkg/requestcontext"
)

const (
	SweepOverdue   = "overdue"
	SweepExpiry    = "expiry"
	SweepReminders = "reminders"
)

// Reminder lead times in whole UTC days.
const (
	DueReminderDays    = 7
	ExpiryReminderDays = 30
)

// Sweeper is the time-driven side of the records state machine.
type Sweeper interface {
	OverdueCandidates(ctx context.Context, now time.Time) ([]*records.Record, error)
	ExpiryCandidates(ctx context.Context, now time.Time) ([]*records.Record, error)
	DueBetween(ctx context.Context, from, to time.Time) ([]*records.Record, error)
	ExpiringBetween(ctx context.Context, from, to time.Time) ([]*records.Record, error)
	MarkOverdue(ctx context.Context, recordID id.RecordID) (bool, error)
	Expire(ctx context.Context, recordID id.RecordID) (bool, error)
}

// Markers remembers which reminders were sent. Mark returns false when the
// (record, kind, target date) marker already exists.
type Markers interface {
	Mark(ctx context.Context, recordID id.RecordID, kind notification.Kind, target, now time.Time) (bool, error)
}

type Notifier interface {
	Send(ctx context.Context, n notification.Notice) bool
}

// Report summarises one sweep run.
type Report struct {
	Sweep      string
	Candidates int
	Changed    int
	Failed     int
	At         time.Time
}

type Sweeps struct {
	sweeper  Sweeper
	markers  Markers
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Sweeps)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeps) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Sweeps) { s.metrics = m }
}

func WithClock(c clock.Clock) Option {
	return func(s *Sweeps) { s.clock = c }
}

func NewSweeps(sweeper Sweeper, markers Markers, notifier Notifier, opts ...Option) (*Sweeps, error) {
	if sweeper == nil {
		return nil, errors.New("records sweeper is required")
	}
	if markers == nil {
		return nil, errors.New("reminder markers are required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	s := &Sweeps{
		sweeper:  sweeper,
		markers:  markers,
		notifier: notifier,
		clock:    clock.System{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run dispatches a sweep by name.
func (s *Sweeps) Run(ctx context.Context, name string) (*Report, error) {
	switch name {
	case SweepOverdue:
		return s.RunOverdue(ctx)
	case SweepExpiry:
		return s.RunExpiry(ctx)
	case SweepReminders:
		return s.RunReminders(ctx)
	}
	return nil, errors.New("unknown sweep " + name)
}

// RunOverdue marks every past-due PENDING or IN_PROGRESS record OVERDUE.
func (s *Sweeps) RunOverdue(ctx context.Context) (*Report, error) {
	ctx, report := s.begin(ctx, SweepOverdue)
	candidates, err := s.sweeper.OverdueCandidates(ctx, report.At)
	if err != nil {
		return nil, err
	}
	report.Candidates = len(candidates)
	for _, rec := range candidates {
		s.apply(ctx, report, rec.ID, s.sweeper.MarkOverdue)
	}
	return s.end(ctx, report), nil
}

// RunExpiry expires every COMPLETED record whose certificate has lapsed.
func (s *Sweeps) RunExpiry(ctx context.Context) (*Report, error) {
	ctx, report := s.begin(ctx, SweepExpiry)
	candidates, err := s.sweeper.ExpiryCandidates(ctx, report.At)
	if err != nil {
		return nil, err
	}
	report.Candidates = len(candidates)
	for _, rec := range candidates {
		s.apply(ctx, report, rec.ID, s.sweeper.Expire)
	}
	return s.end(ctx, report), nil
}

// RunReminders notifies users of trainings due exactly seven days from
// today and certificates expiring exactly thirty days from today, once per
// target date.
func (s *Sweeps) RunReminders(ctx context.Context) (*Report, error) {
	ctx, report := s.begin(ctx, SweepReminders)

	from, to := dayWindow(report.At, DueReminderDays)
	due, err := s.sweeper.DueBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	from, to = dayWindow(report.At, ExpiryReminderDays)
	expiring, err := s.sweeper.ExpiringBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	report.Candidates = len(due) + len(expiring)

	for _, rec := range due {
		s.remind(ctx, report, rec, notification.KindDueReminder, rec.DueDate)
	}
	for _, rec := range expiring {
		s.remind(ctx, report, rec, notification.KindExpiryReminder, *rec.ExpiryDate)
	}
	return s.end(ctx, report), nil
}

// dayWindow spans the UTC calendar day that lies days after now's.
func dayWindow(now time.Time, days int) (time.Time, time.Time) {
	y, m, d := now.UTC().Date()
	start := time.Date(y, m, d+days, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func (s *Sweeps) remind(ctx context.Context, report *Report, rec *records.Record, kind notification.Kind, target time.Time) {
	fresh, err := s.markers.Mark(ctx, rec.ID, kind, target, report.At)
	if err != nil {
		report.Failed++
		s.logger.WarnContext(ctx, "reminder marker failed",
			"record_id", rec.ID.String(),
			"kind", kind,
			"error", err,
		)
		return
	}
	if !fresh {
		return
	}
	report.Changed++
	s.notifier.Send(ctx, notification.Notice{
		UserID: rec.UserID,
		Kind:   kind,
		Context: map[string]string{
			"training_id": rec.TrainingID.String(),
			"target_date": target.Format(time.DateOnly),
		},
	})
}

func (s *Sweeps) apply(ctx context.Context, report *Report, recordID id.RecordID, fn func(context.Context, id.RecordID) (bool, error)) {
	changed, err := fn(ctx, recordID)
	if err != nil {
		report.Failed++
		s.logger.ErrorContext(ctx, "sweep transition failed",
			"sweep", report.Sweep,
			"record_id", recordID.String(),
			"error", err,
		)
		return
	}
	if changed {
		report.Changed++
	}
}

// begin pins the sweep's "now" on ctx so every record in the batch sees
// the same instant.
func (s *Sweeps) begin(ctx context.Context, name string) (context.Context, *Report) {
	now := s.clock.Now().UTC()
	ctx = requestcontext.WithTime(ctx, now)
	ctx = requestcontext.WithRequestID(ctx, "sweep-"+name+"-"+uuid.NewString())
	return ctx, &Report{Sweep: name, At: now}
}

func (s *Sweeps) end(ctx context.Context, report *Report) *Report {
	s.metrics.observe(report, s.clock.Now().Sub(report.At))
	s.logger.InfoContext(ctx, "sweep finished",
		"sweep", report.Sweep,
		"candidates", report.Candidates,
		"changed", report.Changed,
		"failed", report.Failed,
	)
	return report
}
