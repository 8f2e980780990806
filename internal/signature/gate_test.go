package signature_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"qualify/internal/signature"
	sigstore "qualify/internal/signature/store"
	"qualify/internal/users"
	userstore "qualify/internal/users/store"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/platform/audit/store/memory"
	"qualify/pkg/requestcontext"
)

const signingPassword = "qa lead signing password"

// =============================================================================
// Gate Test Suite
// =============================================================================
// Every signing attempt produces exactly one SIGNATURE_CAPTURED or
// SIGNATURE_FAILED entry; repeated failures lock the signer out.

type GateSuite struct {
	suite.Suite
	auditLog *memory.InMemoryStore
	sigs     *sigstore.InMemoryStore
	gate     *signature.Gate
	signer   *users.User
	now      time.Time
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	userSvc, err := users.New(userstore.NewInMemoryStore())
	s.Require().NoError(err)
	s.signer, err = userSvc.Create(context.Background(), users.CreateRequest{
		Email:    "qa.lead@plant.example",
		Role:     id.RoleQA,
		Password: signingPassword,
	})
	s.Require().NoError(err)

	s.auditLog = memory.NewInMemoryStore()
	s.sigs = sigstore.NewInMemoryStore()
	s.gate, err = signature.NewGate(
		signature.NewPasswordVerifier(userSvc),
		s.sigs,
		sigstore.NewInMemoryLockouts(),
		audit.NewTrail(s.auditLog),
		signature.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		signature.WithPolicy(signature.Policy{MaxFailures: 3, Window: 10 * time.Minute, Lockout: 30 * time.Minute}),
	)
	s.Require().NoError(err)
	s.now = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
}

func (s *GateSuite) ctxAt(t time.Time) context.Context {
	ctx := requestcontext.WithIdentity(context.Background(), s.signer.ID, id.RoleQA)
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.7", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
	return requestcontext.WithTime(ctx, t)
}

func (s *GateSuite) sign(t time.Time, password, justification string) (*signature.Signature, error) {
	return s.gate.Sign(s.ctxAt(t), signature.Request{
		Action:        signature.ActionGovernanceUpdate,
		Password:      password,
		Justification: justification,
	})
}

func (s *GateSuite) failures() []audit.Entry {
	entries, err := s.auditLog.ListByType(context.Background(), audit.EventSignatureFailed)
	s.Require().NoError(err)
	return entries
}

func (s *GateSuite) TestSign() {
	s.Run("valid password and justification produce a signature", func() {
		sig, err := s.sign(s.now, signingPassword, "  annual due-date policy review ")
		s.Require().NoError(err)
		s.Equal(s.signer.ID, sig.ActorID)
		s.Equal("annual due-date policy review", sig.Justification)
		s.Equal("10.0.0.7", sig.IP)
		s.Contains(sig.UserAgent, "Firefox")
		s.Equal(s.now, sig.SignedAt)

		stored, err := s.gate.Get(context.Background(), sig.ID)
		s.Require().NoError(err)
		s.Equal(sig.ID, stored.ID)

		captured, err := s.auditLog.ListByType(context.Background(), audit.EventSignatureCaptured)
		s.Require().NoError(err)
		s.Len(captured, 1)
	})

	s.Run("missing justification fails and is audited", func() {
		_, err := s.sign(s.now, signingPassword, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeSignatureRequired))
		s.Equal(signature.ReasonMissingJustification, dErrors.ReasonOf(err))
		s.Len(s.failures(), 1)
	})

	s.Run("missing password fails", func() {
		_, err := s.sign(s.now, "", "reason")
		s.Equal(signature.ReasonMissingPassword, dErrors.ReasonOf(err))
	})

	s.Run("unauthenticated caller is rejected", func() {
		_, err := s.gate.Sign(context.Background(), signature.Request{Password: "x", Justification: "y"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// brokenVerifier stands in for an unreachable user directory.
type brokenVerifier struct{}

func (brokenVerifier) Verify(context.Context, id.UserID, string) (bool, error) {
	return false, errors.New("user directory unavailable")
}

func (s *GateSuite) TestVerifierOutageIsAudited() {
	gate, err := signature.NewGate(brokenVerifier{}, s.sigs, sigstore.NewInMemoryLockouts(), audit.NewTrail(s.auditLog),
		signature.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)

	_, err = gate.Sign(s.ctxAt(s.now), signature.Request{
		Action:        signature.ActionGovernanceUpdate,
		Password:      signingPassword,
		Justification: "quarterly review",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	failed := s.failures()
	s.Require().Len(failed, 1)
	meta := failed[0].Metadata.(audit.SignatureFailedMetadata)
	s.Equal(signature.ReasonVerifierUnavailable, meta.Reason)
	s.Equal(string(signature.ActionGovernanceUpdate), meta.Action)
}

func (s *GateSuite) TestLockout() {
	for i := 0; i < 3; i++ {
		_, err := s.sign(s.now.Add(time.Duration(i)*time.Minute), "wrong password", "retry")
		s.Equal(signature.ReasonInvalidPassword, dErrors.ReasonOf(err))
	}

	s.Run("correct password is refused while locked", func() {
		_, err := s.sign(s.now.Add(5*time.Minute), signingPassword, "retry")
		s.Equal(signature.ReasonSignerLocked, dErrors.ReasonOf(err))
		s.Len(s.failures(), 4)
	})

	s.Run("lock expires", func() {
		sig, err := s.sign(s.now.Add(40*time.Minute), signingPassword, "retry after cooldown")
		s.Require().NoError(err)
		s.NotNil(sig)
	})
}

func (s *GateSuite) TestFailuresOutsideWindowDoNotAccumulate() {
	_, _ = s.sign(s.now, "wrong", "r")
	_, _ = s.sign(s.now.Add(time.Minute), "wrong", "r")
	_, _ = s.sign(s.now.Add(20*time.Minute), "wrong", "r")

	_, err := s.sign(s.now.Add(21*time.Minute), signingPassword, "r")
	s.NoError(err)
}

func (s *GateSuite) TestSignaturesAreAppendOnly() {
	sig, err := s.sign(s.now, signingPassword, "reason")
	s.Require().NoError(err)

	s.True(dErrors.HasCode(s.sigs.Update(context.Background(), sig), dErrors.CodeImmutable))
	s.True(dErrors.HasCode(s.sigs.Delete(context.Background(), sig.ID), dErrors.CodeImmutable))
}

func TestDescribeUserAgent(t *testing.T) {
	assert.Equal(t, "Unknown Device", signature.DescribeUserAgent(""))

	chrome := signature.DescribeUserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Contains(t, chrome, "Chrome")
	assert.Contains(t, chrome, " on ")
}
