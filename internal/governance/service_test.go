package governance_test

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Signer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"qualify/internal/governance"
	"qualify/internal/governance/mocks"
	govstore "qualify/internal/governance/store"
	"qualify/internal/signature"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/platform/audit/store/memory"
	"qualify/pkg/requestcontext"
)

// =============================================================================
// Governance Service Test Suite
// =============================================================================
// Every change appends version N+1 behind a signature; old versions are
// never edited or reactivated.

type GovernanceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	signer   *mocks.MockSigner
	store    *govstore.InMemoryStore
	auditLog *memory.InMemoryStore
	service  *governance.Service
	ctx      context.Context
	adminID  id.UserID
}

func TestGovernanceSuite(t *testing.T) {
	suite.Run(t, new(GovernanceSuite))
}

func (s *GovernanceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.signer = mocks.NewMockSigner(s.ctrl)
	s.store = govstore.NewInMemoryStore()
	s.auditLog = memory.NewInMemoryStore()

	var err error
	s.service, err = governance.New(s.store, s.signer, audit.NewTrail(s.auditLog),
		governance.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)

	s.adminID = id.NewUserID()
	s.ctx = requestcontext.WithTime(
		requestcontext.WithIdentity(context.Background(), s.adminID, id.RoleAdmin),
		time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC),
	)
	_, err = s.service.Bootstrap(s.ctx, governance.DefaultSettings())
	s.Require().NoError(err)
}

func (s *GovernanceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *GovernanceSuite) expectSignature(action signature.Action) *signature.Signature {
	sig := &signature.Signature{ID: id.NewSignatureID(), ActorID: s.adminID, Action: action}
	s.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req signature.Request) (*signature.Signature, error) {
			s.Equal(action, req.Action)
			return sig, nil
		})
	return sig
}

func (s *GovernanceSuite) TestBootstrapIsIdempotent() {
	cfg, err := s.service.Bootstrap(s.ctx, governance.Settings{DefaultDueDays: 10})
	s.Require().NoError(err)
	s.Equal(1, cfg.Version)
	s.Equal(30, cfg.Settings.DefaultDueDays)
}

func (s *GovernanceSuite) TestUpdate() {
	s.Run("appends the next version and deactivates the previous one", func() {
		sig := s.expectSignature(signature.ActionGovernanceUpdate)

		cfg, err := s.service.Update(s.ctx, governance.UpdateRequest{
			Settings:      governance.Settings{DefaultDueDays: 14, EscalationContact: " qa@plant.example "},
			Password:      "pw",
			Justification: "shorter onboarding window",
		})
		s.Require().NoError(err)
		s.Equal(2, cfg.Version)
		s.Equal(sig.ID, cfg.SignatureID)
		s.Equal("qa@plant.example", cfg.Settings.EscalationContact)

		v1, err := s.service.Version(s.ctx, 1)
		s.Require().NoError(err)
		s.False(v1.IsActive)

		active, err := s.service.Active(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, active.Version)

		updated, err := s.auditLog.ListByType(s.ctx, audit.EventGovernanceUpdated)
		s.Require().NoError(err)
		s.Require().Len(updated, 1)
		s.Equal(2, updated[0].Metadata.(audit.GovernanceUpdatedMetadata).Version)
	})

	s.Run("failed signature leaves history untouched", func() {
		s.signer.EXPECT().Sign(gomock.Any(), gomock.Any()).
			Return(nil, &dErrors.Error{Code: dErrors.CodeSignatureRequired, Reason: signature.ReasonInvalidPassword})

		_, err := s.service.Update(s.ctx, governance.UpdateRequest{
			Settings: governance.Settings{DefaultDueDays: 7},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeSignatureRequired))

		history, err := s.service.History(s.ctx)
		s.Require().NoError(err)
		s.Len(history, 2)
	})

	s.Run("invalid settings are rejected before signing", func() {
		_, err := s.service.Update(s.ctx, governance.UpdateRequest{
			Settings: governance.Settings{DefaultDueDays: 0},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("non-admin is forbidden", func() {
		ctx := requestcontext.WithIdentity(context.Background(), id.NewUserID(), id.RoleQA)
		_, err := s.service.Update(ctx, governance.UpdateRequest{Settings: governance.DefaultSettings()})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *GovernanceSuite) TestRollback() {
	s.expectSignature(signature.ActionGovernanceUpdate)
	_, err := s.service.Update(s.ctx, governance.UpdateRequest{
		Settings: governance.Settings{DefaultDueDays: 60},
	})
	s.Require().NoError(err)

	s.Run("restores old settings as a new version", func() {
		s.expectSignature(signature.ActionGovernanceRollback)

		cfg, err := s.service.Rollback(s.ctx, governance.RollbackRequest{
			TargetVersion: 1,
			Password:      "pw",
			Justification: "revert",
		})
		s.Require().NoError(err)
		s.Equal(3, cfg.Version)
		s.Equal(1, cfg.RolledBackFrom)
		s.Equal(30, cfg.Settings.DefaultDueDays)

		v1, err := s.service.Version(s.ctx, 1)
		s.Require().NoError(err)
		s.False(v1.IsActive)

		history, err := s.service.History(s.ctx)
		s.Require().NoError(err)
		s.Equal([]int{3, 2, 1}, []int{history[0].Version, history[1].Version, history[2].Version})

		rolled, err := s.auditLog.ListByType(s.ctx, audit.EventGovernanceRolledBack)
		s.Require().NoError(err)
		s.Require().Len(rolled, 1)
		s.Equal(1, rolled[0].Metadata.(audit.GovernanceRolledBackMetadata).RestoredFrom)
	})

	s.Run("active version cannot be a rollback target", func() {
		_, err := s.service.Rollback(s.ctx, governance.RollbackRequest{TargetVersion: 3})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown version", func() {
		_, err := s.service.Rollback(s.ctx, governance.RollbackRequest{TargetVersion: 42})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestActiveDefaultsBeforeBootstrap(t *testing.T) {
	svc, err := governance.New(govstore.NewInMemoryStore(), mocks.NewMockSigner(gomock.NewController(t)),
		audit.NewTrail(memory.NewInMemoryStore()))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := svc.Active(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Version != 0 || cfg.Settings.DefaultDueDays != 30 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
