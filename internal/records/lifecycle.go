package records

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"qualify/internal/assessment"
	"qualify/internal/certificate"
	"qualify/internal/notification"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/platform/sentinel"
	"qualify/pkg/requestcontext"
)

// DocumentView is returned when a trainee opens the training document.
type DocumentView struct {
	Record      *Record
	DocumentURL string
}

// StartResult carries the record and the questions to answer.
type StartResult struct {
	Record     *Record
	Assessment *assessment.TakerView
}

// SubmitResult is the outcome of one graded submission.
type SubmitResult struct {
	Record            *Record
	Attempt           *assessment.Attempt
	Result            assessment.Result
	AttemptsRemaining int
}

// ViewDocument marks the caller's training document as viewed.
func (s *Service) ViewDocument(ctx context.Context, trainingID id.TrainingID) (view *DocumentView, err error) {
	ctx, span := s.startSpan(ctx, "records.ViewDocument", trainingID)
	defer func() { finish(span, err) }()

	recordID, err := s.locate(ctx, trainingID, actionView)
	if err != nil {
		return nil, err
	}
	t, err := s.catalog.Get(ctx, trainingID)
	if err != nil {
		return nil, err
	}
	rec, err := s.mutate(ctx, recordID, actionView, func(ctx context.Context, rec *Record, fx *effects) error {
		if !rec.DocumentViewed {
			now := requestcontext.Now(ctx)
			rec.DocumentViewed = true
			rec.DocumentViewedAt = &now
			fx.persist = true
		}
		fx.audit(s.entry(ctx, rec, audit.SourceUser, audit.EventDocumentViewed, rec.Status, rec.Status,
			audit.DocumentViewedMetadata{DocumentURL: t.DocumentURL}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &DocumentView{Record: rec, DocumentURL: t.DocumentURL}, nil
}

// Acknowledge records that the caller has read the document. It requires a
// prior view and is idempotent once acknowledged.
func (s *Service) Acknowledge(ctx context.Context, trainingID id.TrainingID) (rec *Record, err error) {
	ctx, span := s.startSpan(ctx, "records.Acknowledge", trainingID)
	defer func() { finish(span, err) }()

	recordID, err := s.locate(ctx, trainingID, actionAcknowledge)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, recordID, actionAcknowledge, func(ctx context.Context, rec *Record, fx *effects) error {
		if rec.Status.IsTerminal() {
			return dErrors.Deny(StatusReason(rec.Status), "record is "+string(rec.Status))
		}
		if !rec.DocumentViewed {
			return dErrors.Deny(ReasonDocumentNotViewed, "the document must be viewed before it is acknowledged")
		}
		if rec.DocumentAcknowledged {
			return nil
		}
		now := requestcontext.Now(ctx)
		rec.DocumentAcknowledged = true
		rec.DocumentAcknowledgedAt = &now
		fx.persist = true
		fx.audit(s.entry(ctx, rec, audit.SourceUser, audit.EventDocumentAcknowledged, rec.Status, rec.Status,
			audit.DocumentAcknowledgedMetadata{AcknowledgedAt: now}))
		return nil
	})
}

// StartAssessment moves PENDING or FAILED to IN_PROGRESS and returns the
// questions without their answers. Restarting an IN_PROGRESS record keeps
// its status.
func (s *Service) StartAssessment(ctx context.Context, trainingID id.TrainingID) (res *StartResult, err error) {
	ctx, span := s.startSpan(ctx, "records.StartAssessment", trainingID)
	defer func() { finish(span, err) }()

	recordID, err := s.locate(ctx, trainingID, actionStart)
	if err != nil {
		return nil, err
	}
	var view *assessment.TakerView
	rec, err := s.mutate(ctx, recordID, actionStart, func(ctx context.Context, rec *Record, fx *effects) error {
		now := requestcontext.Now(ctx)
		if !rec.DocumentAcknowledged {
			return dErrors.Deny(ReasonDocumentNotAcknowledged, "the document must be acknowledged first")
		}
		if reason := blockingReason(&Record{Status: Derive(rec, now)}); reason != "" {
			return dErrors.Deny(reason, "assessment cannot be started")
		}
		a, err := s.assessments.Get(ctx, rec.TrainingID)
		if err != nil {
			return err
		}
		if rec.AssessmentAttempts >= a.MaxAttempts {
			return dErrors.Deny(ReasonAttemptsExhausted, "no attempts remaining")
		}

		prev := rec.Status
		if rec.Status == StatusPending || rec.Status == StatusFailed {
			rec.Status = StatusInProgress
			fx.persist = true
		}
		if rec.StartedAt == nil {
			rec.StartedAt = &now
			fx.persist = true
		}
		fx.audit(s.entry(ctx, rec, audit.SourceUser, audit.EventAssessmentStarted, prev, rec.Status,
			audit.AssessmentStartedMetadata{AttemptNumber: rec.AssessmentAttempts + 1}))
		view = assessment.TakerViewOf(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &StartResult{Record: rec, Assessment: view}, nil
}

// SubmitAssessment grades the caller's answers. The attempt is appended
// before the record's aggregates change. A pass completes the record and
// issues its certificate; a fail leaves it FAILED, or LOCKED once the
// attempts are used up.
func (s *Service) SubmitAssessment(ctx context.Context, trainingID id.TrainingID, answers assessment.Answers) (res *SubmitResult, err error) {
	ctx, span := s.startSpan(ctx, "records.SubmitAssessment", trainingID)
	defer func() { finish(span, err) }()

	recordID, err := s.locate(ctx, trainingID, actionSubmit)
	if err != nil {
		return nil, err
	}
	res = &SubmitResult{}
	rec, err := s.mutate(ctx, recordID, actionSubmit, func(ctx context.Context, rec *Record, fx *effects) error {
		now := requestcontext.Now(ctx)
		if !rec.DocumentAcknowledged {
			return dErrors.Deny(ReasonDocumentNotAcknowledged, "the document must be acknowledged first")
		}
		if reason := blockingReason(&Record{Status: Derive(rec, now)}); reason != "" {
			return dErrors.Deny(reason, "assessment cannot be submitted")
		}
		if rec.Status == StatusPending {
			return dErrors.Deny(ReasonAssessmentNotStarted, "the assessment has not been started")
		}
		a, err := s.assessments.Get(ctx, rec.TrainingID)
		if err != nil {
			return err
		}
		if rec.AssessmentAttempts >= a.MaxAttempts {
			return dErrors.Deny(ReasonAttemptsExhausted, "no attempts remaining")
		}

		result := assessment.GradeAnswers(a.Questions, answers)
		attempt := &assessment.Attempt{
			ID:             id.NewAttemptID(),
			RecordID:       rec.ID,
			AssessmentID:   a.ID,
			UserID:         rec.UserID,
			TrainingID:     rec.TrainingID,
			Number:         rec.AssessmentAttempts + 1,
			Answers:        answers,
			CorrectCount:   result.CorrectCount,
			TotalQuestions: result.TotalQuestions,
			Score:          result.Score,
			Passed:         result.Passed,
			Grade:          result.Grade,
			SubmittedAt:    now,
		}
		if err := s.assessments.RecordAttempt(ctx, attempt); err != nil {
			return err
		}

		rec.AssessmentAttempts = attempt.Number
		rec.LastAttemptAt = &now
		score, passed := result.Score, result.Passed
		rec.Score, rec.Passed = &score, &passed
		rec.ResultGrade = string(result.Grade)
		fx.persist = true
		fx.audit(s.entry(ctx, rec, audit.SourceUser, audit.EventAssessmentSubmitted, rec.Status, rec.Status,
			audit.AssessmentSubmittedMetadata{
				AttemptID:      attempt.ID.String(),
				AttemptNumber:  attempt.Number,
				CorrectCount:   result.CorrectCount,
				TotalQuestions: result.TotalQuestions,
				Score:          result.Score,
			}))

		res.Attempt, res.Result = attempt, result
		res.AttemptsRemaining = max(a.MaxAttempts-attempt.Number, 0)
		if result.Passed {
			return s.complete(ctx, rec, attempt, fx)
		}
		s.fail(ctx, rec, a, attempt, fx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Record = rec
	return res, nil
}

func (s *Service) complete(ctx context.Context, rec *Record, attempt *assessment.Attempt, fx *effects) error {
	now := requestcontext.Now(ctx)
	prev := rec.Status
	rec.Status = StatusCompleted
	rec.CompletedAt = &now
	rec.CompletedLate = now.After(rec.DueDate)
	s.metrics.submission("passed")

	fx.audit(s.entry(ctx, rec, audit.SourceUser, audit.EventAssessmentPassed, prev, rec.Status,
		audit.AssessmentPassedMetadata{
			AttemptNumber: attempt.Number,
			Score:         attempt.Score,
			Grade:         string(attempt.Grade),
		}))
	if rec.CompletedLate {
		fx.audit(s.entry(ctx, rec, audit.SourceSystem, audit.EventLateCompletion, rec.Status, rec.Status,
			audit.LateCompletionMetadata{DueDate: rec.DueDate, CompletedAt: now}))
	}
	if rec.CertificateID != "" {
		return nil
	}

	t, err := s.catalog.Get(ctx, rec.TrainingID)
	if err != nil {
		return err
	}
	master, err := s.catalog.Master(ctx, t)
	if err != nil {
		s.logger.WarnContext(ctx, "training master unavailable for certificate", "training_id", t.ID.String(), "error", err)
	}
	issued, err := s.certificates.Issue(ctx, certificate.IssueRequest{
		UserID:      rec.UserID,
		RecordID:    rec.ID,
		TraineeName: s.displayName(ctx, rec.UserID),
		Training:    t,
		Master:      master,
		IssuedAt:    now,
	})
	if err != nil {
		return err
	}
	cert := issued.Certificate
	rec.CertificateID = cert.ID
	rec.CertificateURL = cert.URL
	rec.ExpiryDate = cert.ExpiryDate
	if issued.Existing {
		return nil
	}

	fx.audit(s.entry(ctx, rec, audit.SourceSystem, audit.EventCertificateGenerated, rec.Status, rec.Status,
		audit.CertificateGeneratedMetadata{
			CertificateID: cert.ID,
			ExpiryDate:    cert.ExpiryDate,
			RenderFailed:  issued.RenderFailed,
		}))
	fx.notify(notification.Notice{
		UserID: rec.UserID,
		Kind:   notification.KindCertificateIssued,
		Context: map[string]string{
			"training_code":   t.Code,
			"certificate_id":  cert.ID,
			"certificate_url": cert.URL,
		},
	})
	return nil
}

func (s *Service) fail(ctx context.Context, rec *Record, a *assessment.Assessment, attempt *assessment.Attempt, fx *effects) {
	prev := rec.Status
	remaining := a.MaxAttempts - rec.AssessmentAttempts
	locked := remaining <= 0
	if locked {
		remaining = 0
		rec.Status = StatusLocked
		s.metrics.submission("locked")
	} else {
		rec.Status = StatusFailed
		s.metrics.submission("failed")
	}

	fx.audit(s.entry(ctx, rec, audit.SourceUser, audit.EventAssessmentFailed, prev, rec.Status,
		audit.AssessmentFailedMetadata{
			AttemptNumber:     attempt.Number,
			Score:             attempt.Score,
			AttemptsRemaining: remaining,
			Locked:            locked,
		}))
	if !locked {
		return
	}
	fx.audit(s.entry(ctx, rec, audit.SourceSystem, audit.EventStatusChanged, prev, rec.Status,
		audit.StatusChangedMetadata{Reason: "attempts_exhausted"}))
	fx.notify(notification.Notice{
		UserID: rec.UserID,
		Kind:   notification.KindLocked,
		Context: map[string]string{
			"training_id":  rec.TrainingID.String(),
			"max_attempts": strconv.Itoa(a.MaxAttempts),
		},
	})
}

// locate resolves the caller's record for trainingID, applying the lazy
// overdue check. A missing record is a denial.
func (s *Service) locate(ctx context.Context, trainingID id.TrainingID, action string) (id.RecordID, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return id.RecordID{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	rec, err := s.store.FindByUserTraining(ctx, userID, trainingID)
	if errors.Is(err, sentinel.ErrNotFound) {
		denial := dErrors.Deny(ReasonRecordNotFound, "no training record for this training")
		s.reject(ctx, action, audit.Subject{UserID: userID, TrainingID: trainingID}, "", denial)
		return id.RecordID{}, denial
	}
	if err != nil {
		return id.RecordID{}, translateRead(err)
	}
	if _, err := s.evaluate(ctx, rec); err != nil {
		return id.RecordID{}, err
	}
	return rec.ID, nil
}

func (s *Service) startSpan(ctx context.Context, name string, trainingID id.TrainingID) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("training_id", trainingID.String()),
		attribute.String("user_id", requestcontext.UserID(ctx).String()),
	))
}
