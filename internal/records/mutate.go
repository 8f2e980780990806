package records

import (
	"context"
	"errors"

	"qualify/internal/notification"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/platform/sentinel"
	"qualify/pkg/requestcontext"
)

const (
	actionAssign      = "assign"
	actionView        = "view_document"
	actionAcknowledge = "acknowledge"
	actionStart       = "start_assessment"
	actionSubmit      = "submit_assessment"
	actionAdminUpdate = "admin_update"
	actionDelete      = "delete"
	actionOverdue     = "mark_overdue"
	actionExpire      = "expire"
	actionRegenerate  = "regenerate_certificate"
	actionRead        = "read_record"
	actionList        = "list_records"
)

const maxCASAttempts = 3

// effects is what a mutation reports once its write has committed.
type effects struct {
	persist bool
	remove  bool
	entries []audit.Entry
	notices []notification.Notice
}

func (fx *effects) audit(e audit.Entry) {
	fx.entries = append(fx.entries, e)
}

func (fx *effects) notify(n notification.Notice) {
	fx.notices = append(fx.notices, n)
}

type applyFunc func(ctx context.Context, rec *Record, fx *effects) error

// mutate loads the record under its lock, applies fn and writes the result
// with a version check, retrying stale writes. Audit entries and notices
// collected by fn are emitted in order after the write commits. A denial
// from fn aborts the write and is recorded as REJECTED_TRANSITION.
func (s *Service) mutate(ctx context.Context, recordID id.RecordID, action string, fn applyFunc) (*Record, error) {
	var (
		result   *Record
		before   Status
		snapshot *Record
		fx       *effects
		err      error
	)
	for attempt := 1; attempt <= maxCASAttempts; attempt++ {
		fx = &effects{}
		result, snapshot = nil, nil
		err = s.tx.RunInTx(ctx, recordID.String(), func(ctx context.Context) error {
			rec, err := s.store.FindForUpdate(ctx, recordID)
			if err != nil {
				return err
			}
			cp := *rec
			snapshot = &cp
			before = rec.Status
			if err := fn(ctx, rec, fx); err != nil {
				return err
			}
			switch {
			case fx.remove:
				if err := s.store.Delete(ctx, rec.ID); err != nil {
					return err
				}
			case fx.persist:
				rec.UpdatedAt = requestcontext.Now(ctx)
				if err := s.store.Update(ctx, rec); err != nil {
					return err
				}
			}
			result = rec
			return nil
		})
		if !errors.Is(err, sentinel.ErrStale) {
			break
		}
		s.logger.WarnContext(ctx, "stale record write, retrying",
			"record_id", recordID.String(),
			"action", action,
			"attempt", attempt,
		)
	}

	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			err = dErrors.Deny(ReasonRecordNotFound, "training record not found")
			s.reject(ctx, action, audit.Subject{RecordID: recordID}, "", err)
			return nil, err
		case errors.Is(err, sentinel.ErrStale):
			return nil, dErrors.New(dErrors.CodeConflict, "training record changed concurrently")
		case isDenial(err):
			subject := audit.Subject{RecordID: recordID}
			var status Status
			if snapshot != nil {
				subject.UserID, subject.TrainingID, status = snapshot.UserID, snapshot.TrainingID, snapshot.Status
			}
			s.reject(ctx, action, subject, status, err)
			return nil, err
		}
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update training record")
	}

	if !fx.remove {
		s.metrics.transition(before, result.Status)
	}
	for _, e := range fx.entries {
		s.auditor.Record(ctx, e)
	}
	for _, n := range fx.notices {
		s.notifier.Send(ctx, n)
	}
	return result, nil
}

// reject records a refused action. The caller's error is returned as is.
func (s *Service) reject(ctx context.Context, action string, subject audit.Subject, status Status, err error) {
	reason := dErrors.ReasonOf(err)
	s.metrics.rejection(action, reason)
	source := audit.SourceUser
	if requestcontext.Role(ctx).IsPrivileged() {
		source = audit.SourceAdmin
	}
	if requestcontext.UserID(ctx).IsNil() {
		source = audit.SourceSystem
	}
	s.auditor.Record(ctx, audit.Entry{
		Type:           audit.EventRejectedTransition,
		Source:         source,
		ActorID:        requestcontext.UserID(ctx),
		Subject:        subject,
		PreviousStatus: string(status),
		NewStatus:      string(status),
		Metadata: audit.RejectedTransitionMetadata{
			Action: action,
			Reason: reason,
		},
	})
	s.logger.InfoContext(ctx, "transition rejected",
		"action", action,
		"reason", reason,
		"record_id", subject.RecordID.String(),
	)
}

func isDenial(err error) bool {
	if dErrors.ReasonOf(err) == "" {
		return false
	}
	return dErrors.HasCode(err, dErrors.CodeAccessDenied) || dErrors.HasCode(err, dErrors.CodeImmutable)
}
