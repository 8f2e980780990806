package retraining_test

//go:generate mockgen -source=retraining.go -destination=mocks/mocks.go -package=mocks Catalog,Records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"qualify/internal/records"
	"qualify/internal/retraining"
	"qualify/internal/retraining/mocks"
	"qualify/internal/training"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/requestcontext"
)

type TriggerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	catalog  *mocks.MockCatalog
	records  *mocks.MockRecords
	trigger  *retraining.Trigger
	ctx      context.Context
	now      time.Time
	prior    *training.Training
	revision *training.Training
}

func TestTriggerSuite(t *testing.T) {
	suite.Run(t, new(TriggerSuite))
}

func (s *TriggerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.catalog = mocks.NewMockCatalog(s.ctrl)
	s.records = mocks.NewMockRecords(s.ctrl)
	trigger, err := retraining.New(s.catalog, s.records)
	s.Require().NoError(err)
	s.trigger = trigger

	s.now = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(
		requestcontext.WithIdentity(context.Background(), id.NewUserID(), id.RoleQA), s.now)
	s.prior = &training.Training{ID: id.NewTrainingID(), Code: "SOP-010", Revision: 1}
	s.revision = &training.Training{ID: id.NewTrainingID(), Code: "SOP-010", Revision: 2}
}

func (s *TriggerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *TriggerSuite) held(status records.Status) *records.Record {
	return &records.Record{ID: id.NewRecordID(), UserID: id.NewUserID(), TrainingID: s.prior.ID, Status: status}
}

func (s *TriggerSuite) TestPropagate() {
	s.Run("assigns finished, expired and locked holders only", func() {
		completed := s.held(records.StatusCompleted)
		expired := s.held(records.StatusExpired)
		locked := s.held(records.StatusLocked)
		pending := s.held(records.StatusPending)
		failed := s.held(records.StatusFailed)

		s.catalog.EXPECT().PriorRevisions(gomock.Any(), s.revision).Return([]*training.Training{s.prior}, nil)
		s.records.EXPECT().ListByTrainings(gomock.Any(), []id.TrainingID{s.prior.ID}).
			Return([]*records.Record{completed, pending, expired, failed, locked}, nil)
		s.records.EXPECT().ListByTrainings(gomock.Any(), []id.TrainingID{s.revision.ID}).Return(nil, nil)

		due := s.now.Add(retraining.DueIn)
		for _, rec := range []*records.Record{completed, expired, locked} {
			s.records.EXPECT().Assign(gomock.Any(), records.AssignRequest{
				UserID:          rec.UserID,
				TrainingID:      s.revision.ID,
				DueDate:         &due,
				Source:          records.SourceRetraining,
				PriorTrainingID: s.prior.ID,
			}).Return(&records.Record{}, nil)
		}

		out, err := s.trigger.Propagate(s.ctx, s.revision)
		s.Require().NoError(err)
		s.Equal([]id.UserID{completed.UserID, expired.UserID, locked.UserID}, out.Assigned)
	})

	s.Run("users already on the revision are skipped", func() {
		completed := s.held(records.StatusCompleted)

		s.catalog.EXPECT().PriorRevisions(gomock.Any(), s.revision).Return([]*training.Training{s.prior}, nil)
		s.records.EXPECT().ListByTrainings(gomock.Any(), []id.TrainingID{s.prior.ID}).
			Return([]*records.Record{completed}, nil)
		s.records.EXPECT().ListByTrainings(gomock.Any(), []id.TrainingID{s.revision.ID}).
			Return([]*records.Record{{UserID: completed.UserID, TrainingID: s.revision.ID}}, nil)

		out, err := s.trigger.Propagate(s.ctx, s.revision)
		s.Require().NoError(err)
		s.Empty(out.Assigned)
		s.Equal(1, out.Skipped)
	})

	s.Run("a racing assignment conflict counts as skipped", func() {
		completed := s.held(records.StatusCompleted)

		s.catalog.EXPECT().PriorRevisions(gomock.Any(), s.revision).Return([]*training.Training{s.prior}, nil)
		s.records.EXPECT().ListByTrainings(gomock.Any(), gomock.Any()).Return([]*records.Record{completed}, nil)
		s.records.EXPECT().ListByTrainings(gomock.Any(), gomock.Any()).Return(nil, nil)
		s.records.EXPECT().Assign(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "training is already assigned to this user"))

		out, err := s.trigger.Propagate(s.ctx, s.revision)
		s.Require().NoError(err)
		s.Equal(1, out.Skipped)
	})

	s.Run("store failures are returned after the remaining users are tried", func() {
		first, second := s.held(records.StatusCompleted), s.held(records.StatusLocked)

		s.catalog.EXPECT().PriorRevisions(gomock.Any(), s.revision).Return([]*training.Training{s.prior}, nil)
		s.records.EXPECT().ListByTrainings(gomock.Any(), gomock.Any()).Return([]*records.Record{first, second}, nil)
		s.records.EXPECT().ListByTrainings(gomock.Any(), gomock.Any()).Return(nil, nil)
		gomock.InOrder(
			s.records.EXPECT().Assign(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset")),
			s.records.EXPECT().Assign(gomock.Any(), gomock.Any()).Return(&records.Record{}, nil),
		)

		out, err := s.trigger.Propagate(s.ctx, s.revision)
		s.Error(err)
		s.Equal([]id.UserID{second.UserID}, out.Assigned)
	})

	s.Run("a first revision has nothing to propagate", func() {
		s.catalog.EXPECT().PriorRevisions(gomock.Any(), s.prior).Return(nil, nil)

		out, err := s.trigger.Propagate(s.ctx, s.prior)
		s.Require().NoError(err)
		s.Empty(out.Assigned)
	})
}
