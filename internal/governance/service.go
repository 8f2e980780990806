// Package governance keeps the versioned, signature-gated organisation
// settings.
package governance

import (
	"context"
	"errors"
	"log/slog"

	"qualify/internal/signature"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/platform/sentinel"
	"qualify/pkg/requestcontext"
)

// Store persists governance versions. Append deactivates the current
// active version and inserts cfg in one unit of work; a version number
// that already exists fails with sentinel.ErrConflict.
type Store interface {
	Append(ctx context.Context, cfg *Config) error
	FindActive(ctx context.Context) (*Config, error)
	FindByVersion(ctx context.Context, version int) (*Config, error)
	List(ctx context.Context) ([]*Config, error)
}

// Signer captures an electronic signature for the acting user.
type Signer interface {
	Sign(ctx context.Context, req signature.Request) (*signature.Signature, error)
}

type Service struct {
	store   Store
	signer  Signer
	auditor audit.Recorder
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, signer Signer, auditor audit.Recorder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("governance store is required")
	}
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	if auditor == nil {
		return nil, errors.New("audit recorder is required")
	}
	svc := &Service{
		store:   store,
		signer:  signer,
		auditor: auditor,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Bootstrap writes version 1 with the given settings when no version exists.
// It is an installation step and is not signature-gated.
func (s *Service) Bootstrap(ctx context.Context, settings Settings) (*Config, error) {
	existing, err := s.store.FindActive(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load governance config")
	}
	settings = settings.normalized()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	cfg := &Config{
		Version:   1,
		Settings:  settings,
		IsActive:  true,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Append(ctx, cfg); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return s.Active(ctx)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to bootstrap governance config")
	}
	s.logger.InfoContext(ctx, "governance config bootstrapped", "version", cfg.Version)
	return cfg, nil
}

// Active returns the active version. Before bootstrap it returns version 0
// carrying DefaultSettings.
func (s *Service) Active(ctx context.Context) (*Config, error) {
	cfg, err := s.store.FindActive(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &Config{Settings: DefaultSettings(), IsActive: true}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load governance config")
	}
	return cfg, nil
}

// History returns every version, newest first.
func (s *Service) History(ctx context.Context) ([]*Config, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list governance history")
	}
	return all, nil
}

func (s *Service) Version(ctx context.Context, version int) (*Config, error) {
	cfg, err := s.store.FindByVersion(ctx, version)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "governance version not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load governance version")
	}
	return cfg, nil
}

// Update signs and appends a version carrying the new settings.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Config, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	settings := req.Settings.normalized()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	sig, err := s.signer.Sign(ctx, signature.Request{
		Action:        signature.ActionGovernanceUpdate,
		Password:      req.Password,
		Justification: req.Justification,
	})
	if err != nil {
		return nil, err
	}

	cfg, err := s.appendNext(ctx, settings, sig, 0)
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, audit.Entry{
		Type:    audit.EventGovernanceUpdated,
		Source:  audit.SourceAdmin,
		ActorID: sig.ActorID,
		Metadata: audit.GovernanceUpdatedMetadata{
			Version:     cfg.Version,
			SignatureID: sig.ID.String(),
		},
	})
	s.logger.InfoContext(ctx, "governance config updated",
		"version", cfg.Version,
		"signature_id", sig.ID.String(),
	)
	return cfg, nil
}

// Rollback signs and appends a version that copies the settings of an
// earlier version. The earlier version itself stays inactive.
func (s *Service) Rollback(ctx context.Context, req RollbackRequest) (*Config, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	target, err := s.Version(ctx, req.TargetVersion)
	if err != nil {
		return nil, err
	}
	if target.IsActive {
		return nil, dErrors.New(dErrors.CodeValidation, "target version is already active")
	}

	sig, err := s.signer.Sign(ctx, signature.Request{
		Action:        signature.ActionGovernanceRollback,
		Password:      req.Password,
		Justification: req.Justification,
	})
	if err != nil {
		return nil, err
	}

	cfg, err := s.appendNext(ctx, target.Settings, sig, target.Version)
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, audit.Entry{
		Type:    audit.EventGovernanceRolledBack,
		Source:  audit.SourceAdmin,
		ActorID: sig.ActorID,
		Metadata: audit.GovernanceRolledBackMetadata{
			Version:      cfg.Version,
			RestoredFrom: target.Version,
			SignatureID:  sig.ID.String(),
		},
	})
	s.logger.InfoContext(ctx, "governance config rolled back",
		"version", cfg.Version,
		"restored_from", target.Version,
		"signature_id", sig.ID.String(),
	)
	return cfg, nil
}

func (s *Service) appendNext(ctx context.Context, settings Settings, sig *signature.Signature, rolledBackFrom int) (*Config, error) {
	history, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list governance history")
	}
	next := 1
	if len(history) > 0 {
		next = history[0].Version + 1
	}
	cfg := &Config{
		Version:        next,
		Settings:       settings,
		IsActive:       true,
		CreatedBy:      sig.ActorID,
		SignatureID:    sig.ID,
		RolledBackFrom: rolledBackFrom,
		CreatedAt:      requestcontext.Now(ctx),
	}
	if err := s.store.Append(ctx, cfg); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "governance config changed concurrently")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append governance version")
	}
	return cfg, nil
}

func requireAdmin(ctx context.Context) error {
	if requestcontext.UserID(ctx).IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if requestcontext.Role(ctx) != id.RoleAdmin {
		return dErrors.New(dErrors.CodeForbidden, "governance changes require the admin role")
	}
	return nil
}
