package assessment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"qualify/internal/assessment"
	"qualify/internal/assessment/store"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/platform/audit/store/memory"
	txcontext "qualify/pkg/platform/tx"
	"qualify/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store    *store.InMemoryStore
	auditLog *memory.InMemoryStore
	svc      *assessment.Service
	ctx      context.Context
	training id.TrainingID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.auditLog = memory.NewInMemoryStore()
	svc, err := assessment.New(s.store, s.store, assessment.WithAuditor(audit.NewTrail(s.auditLog)))
	s.Require().NoError(err)
	s.svc = svc
	s.ctx = requestcontext.WithIdentity(context.Background(), id.NewUserID(), id.RoleAdmin)
	s.training = id.NewTrainingID()
}

func validQuestions() []assessment.QuestionInput {
	return []assessment.QuestionInput{
		{Prompt: "What does GMP stand for?", Options: []string{"Good Manufacturing Practice", "General Medical Process", "Good Medical Practice", "Global Manufacturing Plan"}, CorrectAnswer: "Good Manufacturing Practice"},
		{Prompt: "Who signs a deviation?", Options: []string{"QA", "Operator", "Vendor", "Nobody"}, CorrectAnswer: "QA"},
	}
}

func (s *ServiceSuite) create() *assessment.Assessment {
	a, err := s.svc.Create(s.ctx, assessment.CreateRequest{
		TrainingID:     s.training,
		PassPercentage: 80,
		MaxAttempts:    3,
		Questions:      validQuestions(),
	})
	s.Require().NoError(err)
	return a
}

// =============================================================================
// Creation
// =============================================================================

func (s *ServiceSuite) TestCreate() {
	s.Run("stores config and questions together", func() {
		a := s.create()
		s.Len(a.Questions, 2)

		got, err := s.svc.Get(s.ctx, s.training)
		s.Require().NoError(err)
		s.Equal(a.ID, got.ID)
		s.Equal(80, got.PassPercentage)
		s.Len(got.Questions, 2)
	})

	s.Run("second assessment for the same training conflicts", func() {
		_, err := s.svc.Create(s.ctx, assessment.CreateRequest{
			TrainingID: s.training, PassPercentage: 50, MaxAttempts: 1, Questions: validQuestions(),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestCreateValidation() {
	bad := func(mutate func(q []assessment.QuestionInput) []assessment.QuestionInput) []assessment.QuestionInput {
		return mutate(validQuestions())
	}
	tests := []struct {
		name string
		req  assessment.CreateRequest
	}{
		{"no questions", assessment.CreateRequest{PassPercentage: 50, MaxAttempts: 1}},
		{"three options", assessment.CreateRequest{PassPercentage: 50, MaxAttempts: 1, Questions: bad(func(q []assessment.QuestionInput) []assessment.QuestionInput {
			q[1].Options = q[1].Options[:3]
			return q
		})}},
		{"duplicate options", assessment.CreateRequest{PassPercentage: 50, MaxAttempts: 1, Questions: bad(func(q []assessment.QuestionInput) []assessment.QuestionInput {
			q[1].Options = []string{"QA", "QA ", "Vendor", "Nobody"}
			return q
		})}},
		{"answer not an option", assessment.CreateRequest{PassPercentage: 50, MaxAttempts: 1, Questions: bad(func(q []assessment.QuestionInput) []assessment.QuestionInput {
			q[1].CorrectAnswer = "Auditor"
			return q
		})}},
		{"zero attempts", assessment.CreateRequest{PassPercentage: 50, MaxAttempts: 0, Questions: validQuestions()}},
		{"pass percentage above 100", assessment.CreateRequest{PassPercentage: 101, MaxAttempts: 1, Questions: validQuestions()}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			tt.req.TrainingID = s.training
			_, err := s.svc.Create(s.ctx, tt.req)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), err)

			_, err = s.svc.Get(s.ctx, s.training)
			s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "nothing may be persisted")
		})
	}
}

func (s *ServiceSuite) TestAIUsage() {
	_, err := s.svc.Create(s.ctx, assessment.CreateRequest{
		TrainingID: s.training, PassPercentage: 50, MaxAttempts: 2, GeneratedByAI: true, Questions: validQuestions(),
	})
	s.Require().NoError(err)

	entries, err := s.auditLog.ListByType(s.ctx, audit.EventAIUsed)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(2, entries[0].Metadata.(audit.AIUsedMetadata).QuestionCount)
}

// =============================================================================
// Configuration lock
// =============================================================================

func (s *ServiceSuite) TestConfigLock() {
	a := s.create()
	five := 5

	s.Run("editable before any attempt", func() {
		got, err := s.svc.UpdateConfig(s.ctx, s.training, assessment.ConfigPatch{MaxAttempts: &five})
		s.Require().NoError(err)
		s.Equal(5, got.MaxAttempts)

		_, err = s.svc.ReplaceQuestions(s.ctx, s.training, validQuestions()[:1], false)
		s.Require().NoError(err)
	})

	s.Require().NoError(s.svc.RecordAttempt(s.ctx, &assessment.Attempt{
		ID:           id.NewAttemptID(),
		RecordID:     id.NewRecordID(),
		AssessmentID: a.ID,
		Number:       1,
		SubmittedAt:  time.Now(),
	}))

	s.Run("locked after the first attempt", func() {
		_, err := s.svc.UpdateConfig(s.ctx, s.training, assessment.ConfigPatch{MaxAttempts: &five})
		s.True(dErrors.HasCode(err, dErrors.CodeConfigLocked))

		_, err = s.svc.ReplaceQuestions(s.ctx, s.training, validQuestions(), false)
		s.True(dErrors.HasCode(err, dErrors.CodeConfigLocked))

		got, err := s.svc.Get(s.ctx, s.training)
		s.Require().NoError(err)
		s.Len(got.Questions, 1)
	})

	s.Run("store rejects a write that raced the first attempt", func() {
		err := s.store.UpdateConfig(s.ctx, a)
		s.Error(err)
	})
}

// =============================================================================
// Views
// =============================================================================

func (s *ServiceSuite) TestViews() {
	s.create()

	s.Run("taker view hides answers", func() {
		view, err := s.svc.GetForTaker(requestcontext.WithIdentity(context.Background(), id.NewUserID(), id.RoleTrainee), s.training)
		s.Require().NoError(err)
		s.Len(view.Questions, 2)
		s.Len(view.Questions[0].Options, 4)
	})

	s.Run("reviewer view requires a privileged role", func() {
		_, err := s.svc.GetForReviewer(requestcontext.WithIdentity(context.Background(), id.NewUserID(), id.RoleTrainee), s.training)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		a, err := s.svc.GetForReviewer(s.ctx, s.training)
		s.Require().NoError(err)
		s.Equal("QA", a.Questions[1].CorrectAnswer)
	})
}

// =============================================================================
// Attempts
// =============================================================================

func (s *ServiceSuite) TestAttemptsAreAppendOnly() {
	a := s.create()
	recordID := id.NewRecordID()
	attempt := &assessment.Attempt{ID: id.NewAttemptID(), RecordID: recordID, AssessmentID: a.ID, Number: 1}
	s.Require().NoError(s.svc.RecordAttempt(s.ctx, attempt))

	s.Run("duplicate attempt number conflicts", func() {
		err := s.svc.RecordAttempt(s.ctx, &assessment.Attempt{ID: id.NewAttemptID(), RecordID: recordID, AssessmentID: a.ID, Number: 1})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("update and delete are rejected", func() {
		s.True(dErrors.HasCode(s.store.Update(s.ctx, attempt), dErrors.CodeImmutable))
		s.True(dErrors.HasCode(s.store.Delete(s.ctx, attempt.ID), dErrors.CodeImmutable))

		got, err := s.svc.Attempts(s.ctx, recordID)
		s.Require().NoError(err)
		s.Len(got, 1)
	})
}

func (s *ServiceSuite) TestAttemptUndoneWithItsUnitOfWork() {
	a := s.create()
	recordID := id.NewRecordID()
	ctx, rollback := txcontext.WithUndo(s.ctx)
	s.Require().NoError(s.svc.RecordAttempt(ctx, &assessment.Attempt{ID: id.NewAttemptID(), RecordID: recordID, AssessmentID: a.ID, Number: 1}))

	locked, err := s.svc.Locked(s.ctx, a.ID)
	s.Require().NoError(err)
	s.True(locked)

	rollback()

	got, err := s.svc.Attempts(s.ctx, recordID)
	s.Require().NoError(err)
	s.Empty(got)
	locked, err = s.svc.Locked(s.ctx, a.ID)
	s.Require().NoError(err)
	s.False(locked, "config unlocks again when the only attempt is undone")

	s.Require().NoError(s.svc.RecordAttempt(s.ctx, &assessment.Attempt{ID: id.NewAttemptID(), RecordID: recordID, AssessmentID: a.ID, Number: 1}),
		"the attempt number is free again")
}
