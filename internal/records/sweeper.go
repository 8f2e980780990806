package records

import (
	"context"
	"time"

	"qualify/internal/notification"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/requestcontext"
)

// Sweeper exposes the time-driven transitions. It is handed only to the
// scheduler; EXPIRED has no other writer.
type Sweeper struct {
	svc *Service
}

func (s *Service) Sweeper() *Sweeper {
	return &Sweeper{svc: s}
}

// OverdueCandidates returns PENDING and IN_PROGRESS records due before now.
func (w *Sweeper) OverdueCandidates(ctx context.Context, now time.Time) ([]*Record, error) {
	out, err := w.svc.store.ListPastDue(ctx, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list past-due records")
	}
	return out, nil
}

// ExpiryCandidates returns COMPLETED records whose expiry is strictly before now.
func (w *Sweeper) ExpiryCandidates(ctx context.Context, now time.Time) ([]*Record, error) {
	out, err := w.svc.store.ListPastExpiry(ctx, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expiring records")
	}
	return out, nil
}

// DueBetween returns open records due in [from, to).
func (w *Sweeper) DueBetween(ctx context.Context, from, to time.Time) ([]*Record, error) {
	out, err := w.svc.store.ListDueBetween(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list due records")
	}
	return out, nil
}

// ExpiringBetween returns COMPLETED records expiring in [from, to).
func (w *Sweeper) ExpiringBetween(ctx context.Context, from, to time.Time) ([]*Record, error) {
	out, err := w.svc.store.ListExpiringBetween(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expiring records")
	}
	return out, nil
}

// MarkOverdue moves a past-due record to OVERDUE. It reports false when the
// record no longer qualifies.
func (w *Sweeper) MarkOverdue(ctx context.Context, recordID id.RecordID) (bool, error) {
	_, changed, err := w.svc.markOverdue(ctx, recordID, "sweep")
	return changed, err
}

// Expire moves a COMPLETED record past its expiry to EXPIRED.
func (w *Sweeper) Expire(ctx context.Context, recordID id.RecordID) (bool, error) {
	ctx, span := tracer.Start(ctx, "records.Expire")
	var err error
	defer func() { finish(span, err) }()

	changed := false
	_, err = w.svc.mutate(ctx, recordID, actionExpire, func(ctx context.Context, rec *Record, fx *effects) error {
		if rec.Status != StatusCompleted || Derive(rec, requestcontext.Now(ctx)) != StatusExpired {
			return nil
		}
		prev := rec.Status
		rec.Status = StatusExpired
		fx.persist = true
		changed = true
		fx.audit(w.svc.entry(ctx, rec, audit.SourceSystem, audit.EventTrainingExpired, prev, rec.Status,
			audit.ExpiredMetadata{ExpiryDate: *rec.ExpiryDate, CertificateID: rec.CertificateID}))
		return nil
	})
	return changed, err
}

// markOverdue is shared by the read path ("read") and the sweep ("sweep").
func (s *Service) markOverdue(ctx context.Context, recordID id.RecordID, trigger string) (*Record, bool, error) {
	changed := false
	rec, err := s.mutate(ctx, recordID, actionOverdue, func(ctx context.Context, rec *Record, fx *effects) error {
		if rec.Status == StatusOverdue || Derive(rec, requestcontext.Now(ctx)) != StatusOverdue {
			return nil
		}
		prev := rec.Status
		rec.Status = StatusOverdue
		fx.persist = true
		changed = true
		fx.audit(s.entry(ctx, rec, audit.SourceSystem, audit.EventTrainingOverdue, prev, rec.Status,
			audit.OverdueMetadata{DueDate: rec.DueDate, Trigger: trigger}))
		fx.notify(notification.Notice{
			UserID:  rec.UserID,
			Kind:    notification.KindOverdue,
			Context: map[string]string{"due_date": rec.DueDate.Format(time.DateOnly)},
		})
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.logger.InfoContext(ctx, "training record overdue",
			"record_id", recordID.String(),
			"trigger", trigger,
		)
	}
	return rec, changed, nil
}
