// Package assessment owns assessment configuration, question sets, grading
// and the append-only attempt history.
package assessment

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/platform/sentinel"
	pstrings "qualify/pkg/platform/strings"
	"qualify/pkg/requestcontext"
)

// Store persists assessments with their questions. UpdateConfig and
// ReplaceQuestions must fail with sentinel.ErrImmutable when an attempt
// exists for the assessment, checked atomically with the write.
type Store interface {
	Create(ctx context.Context, a *Assessment) error
	FindByTraining(ctx context.Context, trainingID id.TrainingID) (*Assessment, error)
	UpdateConfig(ctx context.Context, a *Assessment) error
	ReplaceQuestions(ctx context.Context, a *Assessment) error
}

// AttemptStore is the append-only attempt history. Update and Delete must
// fail with an immutability error before touching storage. Append fails
// with sentinel.ErrConflict when the (record, number) pair already exists.
type AttemptStore interface {
	Append(ctx context.Context, attempt *Attempt) error
	ListByRecord(ctx context.Context, recordID id.RecordID) ([]*Attempt, error)
	HasAttempts(ctx context.Context, assessmentID id.AssessmentID) (bool, error)
	Update(ctx context.Context, attempt *Attempt) error
	Delete(ctx context.Context, attemptID id.AttemptID) error
}

type Service struct {
	store    Store
	attempts AttemptStore
	auditor  audit.Recorder
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(r audit.Recorder) Option {
	return func(s *Service) { s.auditor = r }
}

func New(store Store, attempts AttemptStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("assessment store is required")
	}
	if attempts == nil {
		return nil, errors.New("attempt store is required")
	}
	svc := &Service{store: store, attempts: attempts, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create validates and stores an assessment with its full question set in
// one store call. Any invalid question rejects the whole request.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Assessment, error) {
	if req.TrainingID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "training id is required")
	}
	if err := validateSettings(req.PassPercentage, req.MaxAttempts); err != nil {
		return nil, err
	}
	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	a := &Assessment{
		ID:             id.NewAssessmentID(),
		TrainingID:     req.TrainingID,
		PassPercentage: req.PassPercentage,
		MaxAttempts:    req.MaxAttempts,
		CreatedBy:      requestcontext.UserID(ctx),
		GeneratedByAI:  req.GeneratedByAI,
		Questions:      questions,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "training already has an assessment")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create assessment")
	}

	s.logger.InfoContext(ctx, "assessment created",
		"assessment_id", a.ID.String(),
		"training_id", a.TrainingID.String(),
		"questions", len(a.Questions),
	)
	s.recordAIUse(ctx, a, "assessment_create")
	return a, nil
}

// UpdateConfig changes pass percentage or max attempts while no attempt exists.
func (s *Service) UpdateConfig(ctx context.Context, trainingID id.TrainingID, patch ConfigPatch) (*Assessment, error) {
	a, err := s.Get(ctx, trainingID)
	if err != nil {
		return nil, err
	}
	if patch.PassPercentage != nil {
		a.PassPercentage = *patch.PassPercentage
	}
	if patch.MaxAttempts != nil {
		a.MaxAttempts = *patch.MaxAttempts
	}
	if err := validateSettings(a.PassPercentage, a.MaxAttempts); err != nil {
		return nil, err
	}
	if err := s.ensureUnlocked(ctx, a); err != nil {
		return nil, err
	}

	a.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.UpdateConfig(ctx, a); err != nil {
		return nil, s.translateWrite(err)
	}
	return a, nil
}

// ReplaceQuestions swaps the whole question set while no attempt exists.
func (s *Service) ReplaceQuestions(ctx context.Context, trainingID id.TrainingID, inputs []QuestionInput, generatedByAI bool) (*Assessment, error) {
	questions, err := buildQuestions(inputs)
	if err != nil {
		return nil, err
	}
	a, err := s.Get(ctx, trainingID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnlocked(ctx, a); err != nil {
		return nil, err
	}

	a.Questions = questions
	a.GeneratedByAI = generatedByAI
	a.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.ReplaceQuestions(ctx, a); err != nil {
		return nil, s.translateWrite(err)
	}
	s.recordAIUse(ctx, a, "question_replace")
	return a, nil
}

// Get returns the full assessment including answers. It is for internal
// callers such as grading; transports use GetForTaker or GetForReviewer.
func (s *Service) Get(ctx context.Context, trainingID id.TrainingID) (*Assessment, error) {
	a, err := s.store.FindByTraining(ctx, trainingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "assessment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
	}
	return a, nil
}

func (s *Service) GetForTaker(ctx context.Context, trainingID id.TrainingID) (*TakerView, error) {
	a, err := s.Get(ctx, trainingID)
	if err != nil {
		return nil, err
	}
	return TakerViewOf(a), nil
}

// GetForReviewer returns the answer key. Only privileged roles may call it.
func (s *Service) GetForReviewer(ctx context.Context, trainingID id.TrainingID) (*Assessment, error) {
	if !requestcontext.Role(ctx).IsPrivileged() {
		return nil, dErrors.New(dErrors.CodeForbidden, "answer keys require a privileged role")
	}
	return s.Get(ctx, trainingID)
}

// Locked reports whether any attempt exists for the assessment.
func (s *Service) Locked(ctx context.Context, assessmentID id.AssessmentID) (bool, error) {
	locked, err := s.attempts.HasAttempts(ctx, assessmentID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check attempts")
	}
	return locked, nil
}

// RecordAttempt appends a graded attempt. A duplicate attempt number for the
// same record fails with a conflict instead of being counted twice.
func (s *Service) RecordAttempt(ctx context.Context, attempt *Attempt) error {
	if err := s.attempts.Append(ctx, attempt); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "attempt already recorded")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record attempt")
	}
	return nil
}

// Attempts returns a record's attempts in submission order.
func (s *Service) Attempts(ctx context.Context, recordID id.RecordID) ([]*Attempt, error) {
	out, err := s.attempts.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attempts")
	}
	return out, nil
}

func (s *Service) ensureUnlocked(ctx context.Context, a *Assessment) error {
	locked, err := s.Locked(ctx, a.ID)
	if err != nil {
		return err
	}
	if locked {
		return dErrors.New(dErrors.CodeConfigLocked, "assessment is locked after the first attempt")
	}
	return nil
}

func (s *Service) translateWrite(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrImmutable):
		return dErrors.New(dErrors.CodeConfigLocked, "assessment is locked after the first attempt")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "assessment not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update assessment")
	}
}

func (s *Service) recordAIUse(ctx context.Context, a *Assessment, purpose string) {
	if !a.GeneratedByAI || s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		Type:    audit.EventAIUsed,
		Source:  audit.SourceAdmin,
		ActorID: requestcontext.UserID(ctx),
		Subject: audit.Subject{TrainingID: a.TrainingID, AssessmentID: a.ID},
		Metadata: audit.AIUsedMetadata{
			Purpose:       purpose,
			QuestionCount: len(a.Questions),
		},
	})
}

func validateSettings(passPercentage, maxAttempts int) error {
	if passPercentage <= 0 || passPercentage > 100 {
		return dErrors.New(dErrors.CodeValidation, "pass percentage must be between 1 and 100")
	}
	if maxAttempts < 1 {
		return dErrors.New(dErrors.CodeValidation, "max attempts must be at least 1")
	}
	return nil
}

func buildQuestions(inputs []QuestionInput) ([]Question, error) {
	if len(inputs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one question is required")
	}
	out := make([]Question, len(inputs))
	for i, in := range inputs {
		prompt := strings.TrimSpace(in.Prompt)
		if prompt == "" {
			return nil, questionError(i, "prompt is required")
		}
		if len(in.Options) != OptionsPerQuestion {
			return nil, questionError(i, "exactly 4 options are required")
		}
		options := make([]string, len(in.Options))
		for j, o := range in.Options {
			options[j] = strings.TrimSpace(o)
			if options[j] == "" {
				return nil, questionError(i, "options must not be blank")
			}
		}
		if !pstrings.AllDistinct(options) {
			return nil, questionError(i, "options must be distinct")
		}
		answer := strings.TrimSpace(in.CorrectAnswer)
		if !slices.Contains(options, answer) {
			return nil, questionError(i, "correct answer must be one of the options")
		}
		out[i] = Question{ID: id.NewQuestionID(), Prompt: prompt, Options: options, CorrectAnswer: answer}
	}
	return out, nil
}

func questionError(index int, msg string) error {
	return dErrors.New(dErrors.CodeValidation, "question "+strconv.Itoa(index+1)+": "+msg)
}
