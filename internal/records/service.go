// Package records is the training record state machine. It owns every
// status transition, consults the assessment engine for grading and the
// certificate manager for issuance, and reports each transition to the
// audit trail after it has been written.
package records

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"qualify/internal/assessment"
	"qualify/internal/certificate"
	"qualify/internal/governance"
	"qualify/internal/notification"
	"qualify/internal/training"
	"qualify/internal/users"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/platform/sentinel"
	"qualify/pkg/requestcontext"
)

var tracer = otel.Tracer("qualify/records")

// Store persists training records. Update is a compare-and-swap on
// Version: it fails with sentinel.ErrStale when the stored version differs
// and increments rec.Version on success. FindForUpdate locks the row for
// the surrounding transaction where the backend supports it.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	FindByID(ctx context.Context, recordID id.RecordID) (*Record, error)
	FindForUpdate(ctx context.Context, recordID id.RecordID) (*Record, error)
	FindByUserTraining(ctx context.Context, userID id.UserID, trainingID id.TrainingID) (*Record, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*Record, error)
	ListByTrainings(ctx context.Context, trainingIDs []id.TrainingID) ([]*Record, error)
	List(ctx context.Context) ([]*Record, error)
	ListPastDue(ctx context.Context, now time.Time) ([]*Record, error)
	ListPastExpiry(ctx context.Context, now time.Time) ([]*Record, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*Record, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*Record, error)
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, recordID id.RecordID) error
}

// Assessments grades and stores attempts.
type Assessments interface {
	Get(ctx context.Context, trainingID id.TrainingID) (*assessment.Assessment, error)
	RecordAttempt(ctx context.Context, attempt *assessment.Attempt) error
}

// Certificates issues completion certificates.
type Certificates interface {
	Issue(ctx context.Context, req certificate.IssueRequest) (*certificate.Issued, error)
	RegenerateMissing(ctx context.Context, trainings certificate.TrainingLookup, names func(id.UserID) string) ([]*certificate.Certificate, error)
}

// Catalog resolves trainings and their masters.
type Catalog interface {
	Get(ctx context.Context, trainingID id.TrainingID) (*training.Training, error)
	Master(ctx context.Context, t *training.Training) (*training.Master, error)
}

// Directory resolves users.
type Directory interface {
	Get(ctx context.Context, userID id.UserID) (*users.User, error)
}

// Policy supplies the active governance settings.
type Policy interface {
	Active(ctx context.Context) (*governance.Config, error)
}

// Notifier delivers notices best-effort.
type Notifier interface {
	Send(ctx context.Context, n notification.Notice) bool
}

type Service struct {
	store        Store
	tx           Tx
	assessments  Assessments
	certificates Certificates
	catalog      Catalog
	auditor      audit.Recorder
	directory    Directory
	policy       Policy
	notifier     Notifier
	logger       *slog.Logger
	metrics      *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithDirectory(d Directory) Option {
	return func(s *Service) { s.directory = d }
}

func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func New(
	store Store,
	tx Tx,
	assessments Assessments,
	certificates Certificates,
	catalog Catalog,
	auditor audit.Recorder,
	opts ...Option,
) (*Service, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if tx == nil {
		return nil, errors.New("record tx is required")
	}
	if assessments == nil {
		return nil, errors.New("assessments are required")
	}
	if certificates == nil {
		return nil, errors.New("certificates are required")
	}
	if catalog == nil {
		return nil, errors.New("training catalog is required")
	}
	if auditor == nil {
		return nil, errors.New("audit recorder is required")
	}
	svc := &Service{
		store:        store,
		tx:           tx,
		assessments:  assessments,
		certificates: certificates,
		catalog:      catalog,
		auditor:      auditor,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.notifier == nil {
		svc.notifier = notification.NewDispatcher(nil, notification.WithLogger(svc.logger))
	}
	return svc, nil
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

// Get returns the record for (user, training). A past-due record is moved
// to OVERDUE before it is returned.
func (s *Service) Get(ctx context.Context, userID id.UserID, trainingID id.TrainingID) (*Record, error) {
	ctx, span := tracer.Start(ctx, "records.Get")
	defer span.End()

	if err := s.authorizeSubject(ctx, actionRead, audit.Subject{UserID: userID, TrainingID: trainingID}); err != nil {
		return nil, err
	}
	rec, err := s.store.FindByUserTraining(ctx, userID, trainingID)
	if err != nil {
		return nil, translateRead(err)
	}
	return s.evaluate(ctx, rec)
}

func (s *Service) GetByID(ctx context.Context, recordID id.RecordID) (*Record, error) {
	rec, err := s.store.FindByID(ctx, recordID)
	if err != nil {
		return nil, translateRead(err)
	}
	subject := audit.Subject{UserID: rec.UserID, TrainingID: rec.TrainingID, RecordID: rec.ID}
	if err := s.authorizeSubject(ctx, actionRead, subject); err != nil {
		return nil, err
	}
	return s.evaluate(ctx, rec)
}

// ListForUser returns a user's records with overdue status applied.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID) ([]*Record, error) {
	if err := s.authorizeSubject(ctx, actionList, audit.Subject{UserID: userID}); err != nil {
		return nil, err
	}
	all, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}
	return s.evaluateAll(ctx, all)
}

// List returns every record. Reserved for privileged reporting.
func (s *Service) List(ctx context.Context) ([]*Record, error) {
	if !requestcontext.Role(ctx).IsPrivileged() {
		err := roleRequired("listing all records requires a privileged role")
		s.reject(ctx, actionList, audit.Subject{}, "", err)
		return nil, err
	}
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}
	return s.evaluateAll(ctx, all)
}

// ListByTrainings returns the records held against any of trainingIDs.
func (s *Service) ListByTrainings(ctx context.Context, trainingIDs []id.TrainingID) ([]*Record, error) {
	if len(trainingIDs) == 0 {
		return nil, nil
	}
	all, err := s.store.ListByTrainings(ctx, trainingIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}
	return all, nil
}

func (s *Service) evaluateAll(ctx context.Context, all []*Record) ([]*Record, error) {
	for i, rec := range all {
		updated, err := s.evaluate(ctx, rec)
		if err != nil {
			return nil, err
		}
		all[i] = updated
	}
	return all, nil
}

// evaluate applies the lazy overdue transition on the read path.
func (s *Service) evaluate(ctx context.Context, rec *Record) (*Record, error) {
	if rec.Status == StatusOverdue || Derive(rec, requestcontext.Now(ctx)) != StatusOverdue {
		return rec, nil
	}
	updated, _, err := s.markOverdue(ctx, rec.ID, "read")
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// -----------------------------------------------------------------------------
// Assignment and administration
// -----------------------------------------------------------------------------

// Assign creates a PENDING record. Manual assignment needs a privileged
// role; self-assignment only covers the caller.
func (s *Service) Assign(ctx context.Context, req AssignRequest) (rec *Record, err error) {
	ctx, span := tracer.Start(ctx, "records.Assign", trace.WithAttributes(
		attribute.String("user_id", req.UserID.String()),
		attribute.String("training_id", req.TrainingID.String()),
	))
	defer func() { finish(span, err) }()

	if req.Source == "" {
		req.Source = SourceManual
	}
	if !req.Source.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "assignment source must be manual, retraining or self")
	}
	if err := authorizeAssign(ctx, req); err != nil {
		s.reject(ctx, actionAssign, audit.Subject{UserID: req.UserID, TrainingID: req.TrainingID}, "", err)
		return nil, err
	}
	if req.UserID.IsNil() || req.TrainingID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user_id and training_id are required")
	}

	t, err := s.catalog.Get(ctx, req.TrainingID)
	if err != nil {
		return nil, err
	}
	if s.directory != nil {
		u, err := s.directory.Get(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if !u.Active {
			return nil, dErrors.New(dErrors.CodeValidation, "user is inactive")
		}
	}

	now := requestcontext.Now(ctx)
	due := now.AddDate(0, 0, s.defaultDueDays(ctx))
	if req.DueDate != nil {
		if !req.DueDate.After(now) {
			return nil, dErrors.New(dErrors.CodeValidation, "due_date must be in the future")
		}
		due = req.DueDate.UTC()
	}

	rec = &Record{
		ID:               id.NewRecordID(),
		UserID:           req.UserID,
		TrainingID:       req.TrainingID,
		Status:           StatusPending,
		AssignedAt:       now,
		DueDate:          due,
		AssignmentSource: req.Source,
		Version:          1,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "training is already assigned to this user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create record")
	}

	prior := ""
	if !req.PriorTrainingID.IsNil() {
		prior = req.PriorTrainingID.String()
	}
	s.auditor.Record(ctx, s.entry(ctx, rec, assignSource(req.Source), audit.EventAssignTraining, "", StatusPending,
		audit.AssignMetadata{
			AssignmentSource: string(req.Source),
			DueDate:          due,
			PriorTrainingID:  prior,
		}))
	kind := notification.KindAssigned
	if req.Source == SourceRetraining {
		kind = notification.KindRetrainingAssigned
	}
	s.notifier.Send(ctx, notification.Notice{
		UserID: rec.UserID,
		Kind:   kind,
		Context: map[string]string{
			"training_code":  t.Code,
			"training_title": t.Title,
			"due_date":       due.Format(time.DateOnly),
		},
	})
	s.logger.InfoContext(ctx, "training assigned",
		"record_id", rec.ID.String(),
		"user_id", rec.UserID.String(),
		"training_id", rec.TrainingID.String(),
		"source", rec.AssignmentSource,
	)
	return rec, nil
}

// AdminUpdate applies an administrative patch. System-derived fields and
// statuses are refused before the caller's role or the record is looked at;
// otherwise only the due date may change, and a future due date reopens an
// OVERDUE record.
func (s *Service) AdminUpdate(ctx context.Context, recordID id.RecordID, patch Patch) (rec *Record, err error) {
	ctx, span := tracer.Start(ctx, "records.AdminUpdate", trace.WithAttributes(
		attribute.String("record_id", recordID.String()),
	))
	defer func() { finish(span, err) }()

	if err := guardPatch(patch); err != nil {
		s.reject(ctx, actionAdminUpdate, audit.Subject{RecordID: recordID}, "", err)
		return nil, err
	}
	if !requestcontext.Role(ctx).IsPrivileged() {
		err := roleRequired("record administration requires a privileged role")
		s.reject(ctx, actionAdminUpdate, audit.Subject{RecordID: recordID}, "", err)
		return nil, err
	}
	return s.mutate(ctx, recordID, actionAdminUpdate, func(ctx context.Context, rec *Record, fx *effects) error {
		if rec.Status.IsTerminal() {
			return dErrors.Deny(StatusReason(rec.Status), "record is "+string(rec.Status))
		}

		now := requestcontext.Now(ctx)
		prev := rec.Status
		reopen := false
		if patch.Status != nil && *patch.Status != rec.Status {
			if !(rec.Status == StatusOverdue && *patch.Status == StatusPending) {
				return dErrors.Deny(ReasonIllegalTransition, "status cannot change from "+string(rec.Status)+" to "+string(*patch.Status))
			}
			if patch.DueDate == nil || !patch.DueDate.After(now) {
				return dErrors.New(dErrors.CodeValidation, "reopening requires a future due_date")
			}
			reopen = true
		}
		if patch.DueDate == nil {
			return dErrors.New(dErrors.CodeValidation, "patch changes nothing")
		}

		fields := []string{"due_date"}
		rec.DueDate = patch.DueDate.UTC()
		if rec.Status == StatusOverdue && rec.DueDate.After(now) {
			reopen = true
		}
		if reopen {
			rec.Status = StatusPending
			fields = append(fields, "status")
		}
		fx.persist = true
		fx.audit(s.entry(ctx, rec, audit.SourceAdmin, audit.EventStatusChanged, prev, rec.Status,
			audit.StatusChangedMetadata{Reason: "admin_update", Fields: fields}))
		return nil
	})
}

// Delete removes a non-terminal record.
func (s *Service) Delete(ctx context.Context, recordID id.RecordID) (err error) {
	ctx, span := tracer.Start(ctx, "records.Delete", trace.WithAttributes(
		attribute.String("record_id", recordID.String()),
	))
	defer func() { finish(span, err) }()

	if !requestcontext.Role(ctx).IsPrivileged() {
		err = roleRequired("record administration requires a privileged role")
		s.reject(ctx, actionDelete, audit.Subject{RecordID: recordID}, "", err)
		return err
	}
	_, err = s.mutate(ctx, recordID, actionDelete, func(ctx context.Context, rec *Record, fx *effects) error {
		if rec.Status.IsTerminal() {
			return dErrors.Deny(ReasonRecordTerminal, "terminal records cannot be deleted")
		}
		fx.remove = true
		fx.audit(s.entry(ctx, rec, audit.SourceAdmin, audit.EventStatusChanged, rec.Status, "",
			audit.StatusChangedMetadata{Reason: "record_deleted"}))
		return nil
	})
	return err
}

// RegenerateCertificates re-renders certificates stored without a URL and
// copies the new URL onto their records.
func (s *Service) RegenerateCertificates(ctx context.Context) ([]*certificate.Certificate, error) {
	certs, err := s.certificates.RegenerateMissing(ctx, s.catalog, func(userID id.UserID) string {
		return s.displayName(ctx, userID)
	})
	if err != nil {
		return certs, err
	}
	for _, cert := range certs {
		_, err := s.mutate(ctx, cert.RecordID, actionRegenerate, func(_ context.Context, rec *Record, fx *effects) error {
			if rec.CertificateID != cert.ID || rec.CertificateURL == cert.URL {
				return nil
			}
			rec.CertificateURL = cert.URL
			fx.persist = true
			return nil
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to copy regenerated certificate url",
				"certificate_id", cert.ID,
				"record_id", cert.RecordID.String(),
				"error", err,
			)
		}
	}
	s.logger.InfoContext(ctx, "certificates regenerated", "count", len(certs))
	return certs, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *Service) defaultDueDays(ctx context.Context) int {
	if s.policy == nil {
		return governance.DefaultSettings().DefaultDueDays
	}
	cfg, err := s.policy.Active(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "governance config unavailable, using default due days", "error", err)
		return governance.DefaultSettings().DefaultDueDays
	}
	return cfg.Settings.DefaultDueDays
}

func (s *Service) displayName(ctx context.Context, userID id.UserID) string {
	if s.directory == nil {
		return ""
	}
	u, err := s.directory.Get(ctx, userID)
	if err != nil {
		return ""
	}
	return u.DisplayName
}

func (s *Service) entry(ctx context.Context, rec *Record, source audit.Source, t audit.EventType, prev, next Status, meta audit.Metadata) audit.Entry {
	return audit.Entry{
		Type:    t,
		Source:  source,
		ActorID: requestcontext.UserID(ctx),
		Subject: audit.Subject{
			UserID:     rec.UserID,
			TrainingID: rec.TrainingID,
			RecordID:   rec.ID,
		},
		PreviousStatus: string(prev),
		NewStatus:      string(next),
		Metadata:       meta,
	}
}

// guardPatch refuses writes to system-derived fields and statuses whatever
// the caller's role and whether or not the record exists.
func guardPatch(patch Patch) error {
	if patch.ExpiryDate != nil || patch.CertificateID != nil || patch.CertificateURL != nil {
		return &dErrors.Error{
			Code:    dErrors.CodeImmutable,
			Message: "expiry date and certificate fields are system-derived",
			Reason:  ReasonSystemDerivedField,
		}
	}
	if patch.Status != nil && (*patch.Status == StatusCompleted || *patch.Status == StatusExpired) {
		return &dErrors.Error{
			Code:    dErrors.CodeImmutable,
			Message: string(*patch.Status) + " is set by the system only",
			Reason:  ReasonSystemDerivedStatus,
		}
	}
	return nil
}

func (s *Service) authorizeSubject(ctx context.Context, action string, subject audit.Subject) error {
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if actor != subject.UserID && !requestcontext.Role(ctx).IsPrivileged() {
		err := notOwner("records of other users require a privileged role")
		s.reject(ctx, action, subject, "", err)
		return err
	}
	return nil
}

func authorizeAssign(ctx context.Context, req AssignRequest) error {
	switch req.Source {
	case SourceManual:
		if !requestcontext.Role(ctx).IsPrivileged() {
			return roleRequired("assigning training requires a privileged role")
		}
	case SourceSelf:
		if requestcontext.UserID(ctx) != req.UserID {
			return notOwner("self-assignment covers the caller only")
		}
	}
	return nil
}

func roleRequired(msg string) error {
	return &dErrors.Error{Code: dErrors.CodeForbidden, Message: msg, Reason: ReasonRoleRequired}
}

func notOwner(msg string) error {
	return &dErrors.Error{Code: dErrors.CodeForbidden, Message: msg, Reason: ReasonNotOwner}
}

func assignSource(s Source) audit.Source {
	switch s {
	case SourceRetraining:
		return audit.SourceSystem
	case SourceSelf:
		return audit.SourceUser
	default:
		return audit.SourceAdmin
	}
}

func translateRead(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "training record not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load training record")
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}
