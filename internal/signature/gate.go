// Package signature is the electronic signature gate: password
// re-verification plus a justification, producing an immutable proof that
// governance-sensitive changes require.
package signature

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/platform/sentinel"
	pstrings "qualify/pkg/platform/strings"
	"qualify/pkg/requestcontext"
)

// Denial reasons recorded on SIGNATURE_FAILED.
const (
	ReasonMissingPassword      = "MISSING_PASSWORD"
	ReasonMissingJustification = "MISSING_JUSTIFICATION"
	ReasonInvalidPassword      = "INVALID_PASSWORD"
	ReasonSignerLocked         = "SIGNER_LOCKED"
	ReasonVerifierUnavailable  = "VERIFIER_UNAVAILABLE"
	ReasonStoreUnavailable     = "STORE_UNAVAILABLE"
)

const maxJustification = 1000

// Verifier checks a signer's password.
type Verifier interface {
	Verify(ctx context.Context, userID id.UserID, password string) (bool, error)
}

// Store is the append-only signature log. Update and Delete must fail
// before touching storage.
type Store interface {
	Append(ctx context.Context, sig *Signature) error
	FindByID(ctx context.Context, signatureID id.SignatureID) (*Signature, error)
	Update(ctx context.Context, sig *Signature) error
	Delete(ctx context.Context, signatureID id.SignatureID) error
}

// LockoutStore counts failures per signer. RecordFailure increments
// atomically, restarting the count when the previous window has elapsed.
type LockoutStore interface {
	Get(ctx context.Context, userID id.UserID) (*Lockout, error)
	RecordFailure(ctx context.Context, userID id.UserID, now time.Time, window time.Duration) (*Lockout, error)
	Lock(ctx context.Context, userID id.UserID, until time.Time) error
	Clear(ctx context.Context, userID id.UserID) error
}

// Metrics counts signature outcomes.
type Metrics struct {
	Outcomes *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Outcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "qualify_signatures_total",
			Help: "Electronic signature attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
}

type Gate struct {
	verifier Verifier
	store    Store
	lockouts LockoutStore
	auditor  audit.Recorder
	policy   Policy
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

func WithPolicy(p Policy) Option {
	return func(g *Gate) {
		if p.MaxFailures > 0 && p.Window > 0 && p.Lockout > 0 {
			g.policy = p
		}
	}
}

func NewGate(verifier Verifier, store Store, lockouts LockoutStore, auditor audit.Recorder, opts ...Option) (*Gate, error) {
	if verifier == nil {
		return nil, errors.New("signature verifier is required")
	}
	if store == nil {
		return nil, errors.New("signature store is required")
	}
	if lockouts == nil {
		return nil, errors.New("lockout store is required")
	}
	if auditor == nil {
		return nil, errors.New("audit recorder is required")
	}
	g := &Gate{
		verifier: verifier,
		store:    store,
		lockouts: lockouts,
		auditor:  auditor,
		policy:   DefaultPolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Sign verifies the acting user's password and records a signature. Every
// failure is audited as SIGNATURE_FAILED and aborts the guarded action.
func (g *Gate) Sign(ctx context.Context, req Request) (*Signature, error) {
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "signer is not authenticated")
	}
	now := requestcontext.Now(ctx)
	justification := pstrings.Truncate(strings.TrimSpace(req.Justification), maxJustification)

	if req.Password == "" {
		return nil, g.fail(ctx, actor, req.Action, ReasonMissingPassword, "password is required to sign")
	}
	if justification == "" {
		return nil, g.fail(ctx, actor, req.Action, ReasonMissingJustification, "justification is required to sign")
	}

	lockout, err := g.lockouts.Get(ctx, actor)
	if err != nil {
		g.report(ctx, actor, req.Action, ReasonVerifierUnavailable)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check signer lockout")
	}
	if lockout.IsLocked(now) {
		return nil, g.fail(ctx, actor, req.Action, ReasonSignerLocked, "signer is temporarily locked out")
	}

	ok, err := g.verifier.Verify(ctx, actor, req.Password)
	if err != nil {
		g.report(ctx, actor, req.Action, ReasonVerifierUnavailable)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify signer")
	}
	if !ok {
		g.recordFailure(ctx, actor, now)
		return nil, g.fail(ctx, actor, req.Action, ReasonInvalidPassword, "signature verification failed")
	}

	if err := g.lockouts.Clear(ctx, actor); err != nil {
		g.logger.WarnContext(ctx, "failed to clear signer lockout", "user_id", actor.String(), "error", err)
	}

	sig := &Signature{
		ID:            id.NewSignatureID(),
		ActorID:       actor,
		Action:        req.Action,
		Justification: justification,
		IP:            requestcontext.ClientIP(ctx),
		UserAgent:     DescribeUserAgent(requestcontext.UserAgent(ctx)),
		SignedAt:      now,
	}
	if err := g.store.Append(ctx, sig); err != nil {
		g.report(ctx, actor, req.Action, ReasonStoreUnavailable)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store signature")
	}

	g.metrics.observe("captured")
	g.auditor.Record(ctx, audit.Entry{
		Type:    audit.EventSignatureCaptured,
		Source:  audit.SourceUser,
		ActorID: actor,
		Subject: audit.Subject{UserID: actor},
		Metadata: audit.SignatureCapturedMetadata{
			SignatureID: sig.ID.String(),
			Action:      string(sig.Action),
		},
	})
	return sig, nil
}

// Get returns a stored signature.
func (g *Gate) Get(ctx context.Context, signatureID id.SignatureID) (*Signature, error) {
	sig, err := g.store.FindByID(ctx, signatureID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "signature not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load signature")
	}
	return sig, nil
}

func (g *Gate) recordFailure(ctx context.Context, actor id.UserID, now time.Time) {
	lockout, err := g.lockouts.RecordFailure(ctx, actor, now, g.policy.Window)
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to record signature failure", "user_id", actor.String(), "error", err)
		return
	}
	if lockout.FailureCount < g.policy.MaxFailures {
		return
	}
	until := now.Add(g.policy.Lockout)
	if err := g.lockouts.Lock(ctx, actor, until); err != nil {
		g.logger.ErrorContext(ctx, "failed to lock signer", "user_id", actor.String(), "error", err)
		return
	}
	g.logger.WarnContext(ctx, "signer locked out",
		"user_id", actor.String(),
		"failures", lockout.FailureCount,
		"locked_until", until,
	)
}

func (g *Gate) fail(ctx context.Context, actor id.UserID, action Action, reason, msg string) error {
	g.report(ctx, actor, action, reason)
	return &dErrors.Error{Code: dErrors.CodeSignatureRequired, Message: msg, Reason: reason}
}

// report records a SIGNATURE_FAILED entry. Infrastructure failures are
// reported too, though the caller sees an internal error for them.
func (g *Gate) report(ctx context.Context, actor id.UserID, action Action, reason string) {
	g.metrics.observe(strings.ToLower(reason))
	g.auditor.Record(ctx, audit.Entry{
		Type:    audit.EventSignatureFailed,
		Source:  audit.SourceUser,
		ActorID: actor,
		Subject: audit.Subject{UserID: actor},
		Metadata: audit.SignatureFailedMetadata{
			Action: string(action),
			Reason: reason,
		},
	})
}
