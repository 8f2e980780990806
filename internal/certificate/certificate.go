// Package certificate issues completion certificates and computes their
// expiry. Issuance is idempotent per (user, training); rendering the
// artifact is delegated and allowed to fail.
package certificate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"qualify/internal/training"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/sentinel"
)

// Certificate is the issued proof of completion.
type Certificate struct {
	ID         string
	UserID     id.UserID
	TrainingID id.TrainingID
	RecordID   id.RecordID
	IssuedAt   time.Time
	ExpiryDate *time.Time
	URL        string
}

// RenderInput is everything a renderer may print on the artifact.
type RenderInput struct {
	Certificate   Certificate
	TraineeName   string
	TrainingCode  string
	TrainingTitle string
	MasterCode    string
}

// Renderer produces the certificate artifact and returns its location.
type Renderer interface {
	Render(ctx context.Context, in RenderInput) (string, error)
}

// Store persists certificates. Create fails with sentinel.ErrConflict when
// the (user, training) pair or the id already exists.
type Store interface {
	Create(ctx context.Context, c *Certificate) error
	FindByUserTraining(ctx context.Context, userID id.UserID, trainingID id.TrainingID) (*Certificate, error)
	UpdateURL(ctx context.Context, certificateID, url string) error
	ListWithoutURL(ctx context.Context) ([]*Certificate, error)
}

// TrainingLookup resolves the training printed on a certificate.
type TrainingLookup interface {
	Get(ctx context.Context, trainingID id.TrainingID) (*training.Training, error)
	Master(ctx context.Context, t *training.Training) (*training.Master, error)
}

// IssueRequest describes a passing completion.
type IssueRequest struct {
	UserID      id.UserID
	RecordID    id.RecordID
	TraineeName string
	Training    *training.Training
	Master      *training.Master
	IssuedAt    time.Time
}

// Issued is the outcome of Issue.
type Issued struct {
	Certificate  *Certificate
	Existing     bool
	RenderFailed bool
}

type Service struct {
	store    Store
	renderer Renderer
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, renderer Renderer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("certificate store is required")
	}
	if renderer == nil {
		return nil, errors.New("certificate renderer is required")
	}
	svc := &Service{store: store, renderer: renderer, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// NewID builds the certificate id:
// CERT-<TRAINING CODE>-<first 8 hex of user id>-<8 hex of sha256(training|user|issuedAt)>.
func NewID(trainingCode string, trainingID id.TrainingID, userID id.UserID, issuedAt time.Time) string {
	sum := sha256.Sum256([]byte(trainingID.String() + "|" + userID.String() + "|" + issuedAt.UTC().Format(time.RFC3339Nano)))
	userHex := strings.ReplaceAll(userID.String(), "-", "")[:8]
	return fmt.Sprintf("CERT-%s-%s-%s", strings.ToUpper(trainingCode), userHex, hex.EncodeToString(sum[:])[:8])
}

// Issue creates the certificate for a passing completion, or returns the one
// already issued for the (user, training) pair. Render failures are logged
// and leave the URL empty; issuance still succeeds.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*Issued, error) {
	if req.Training == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "training is required")
	}
	if existing, err := s.find(ctx, req.UserID, req.Training.ID); err != nil || existing != nil {
		if err != nil {
			return nil, err
		}
		return &Issued{Certificate: existing, Existing: true}, nil
	}

	cert := &Certificate{
		ID:         NewID(req.Training.Code, req.Training.ID, req.UserID, req.IssuedAt),
		UserID:     req.UserID,
		TrainingID: req.Training.ID,
		RecordID:   req.RecordID,
		IssuedAt:   req.IssuedAt,
		ExpiryDate: req.Training.ExpiryFrom(req.IssuedAt),
	}
	url, renderErr := s.render(ctx, cert, req.TraineeName, req.Training, req.Master)
	cert.URL = url

	if err := s.store.Create(ctx, cert); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			existing, findErr := s.find(ctx, req.UserID, req.Training.ID)
			if findErr == nil && existing != nil {
				return &Issued{Certificate: existing, Existing: true}, nil
			}
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store certificate")
	}

	s.logger.InfoContext(ctx, "certificate issued",
		"certificate_id", cert.ID,
		"user_id", cert.UserID.String(),
		"training_id", cert.TrainingID.String(),
		"render_failed", renderErr != nil,
	)
	return &Issued{Certificate: cert, RenderFailed: renderErr != nil}, nil
}

// Get returns the certificate for (user, training), or nil when none exists.
func (s *Service) Get(ctx context.Context, userID id.UserID, trainingID id.TrainingID) (*Certificate, error) {
	return s.find(ctx, userID, trainingID)
}

// RegenerateMissing re-renders every certificate stored without a URL. The
// stored issuance instant and expiry are kept as issued.
func (s *Service) RegenerateMissing(ctx context.Context, trainings TrainingLookup, names func(id.UserID) string) ([]*Certificate, error) {
	missing, err := s.store.ListWithoutURL(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}

	var regenerated []*Certificate
	for _, cert := range missing {
		t, err := trainings.Get(ctx, cert.TrainingID)
		if err != nil {
			s.logger.WarnContext(ctx, "certificate training missing", "certificate_id", cert.ID, "error", err)
			continue
		}
		master, err := trainings.Master(ctx, t)
		if err != nil {
			s.logger.WarnContext(ctx, "certificate master missing", "certificate_id", cert.ID, "error", err)
		}
		trainee := ""
		if names != nil {
			trainee = names(cert.UserID)
		}
		url, renderErr := s.render(ctx, cert, trainee, t, master)
		if renderErr != nil {
			continue
		}
		if err := s.store.UpdateURL(ctx, cert.ID, url); err != nil {
			return regenerated, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update certificate url")
		}
		cert.URL = url
		regenerated = append(regenerated, cert)
	}
	return regenerated, nil
}

func (s *Service) render(ctx context.Context, cert *Certificate, trainee string, t *training.Training, master *training.Master) (string, error) {
	in := RenderInput{
		Certificate:   *cert,
		TraineeName:   trainee,
		TrainingCode:  t.Code,
		TrainingTitle: t.Title,
	}
	if master != nil {
		in.MasterCode = master.Code
	}
	url, err := s.renderer.Render(ctx, in)
	if err != nil {
		s.logger.ErrorContext(ctx, "certificate render failed",
			"certificate_id", cert.ID,
			"error", err,
		)
		return "", err
	}
	return url, nil
}

func (s *Service) find(ctx context.Context, userID id.UserID, trainingID id.TrainingID) (*Certificate, error) {
	cert, err := s.store.FindByUserTraining(ctx, userID, trainingID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	return cert, nil
}

// LinkRenderer returns BaseURL/<certificate id> instead of producing a file.
type LinkRenderer struct {
	BaseURL string
}

func (r LinkRenderer) Render(_ context.Context, in RenderInput) (string, error) {
	if r.BaseURL == "" {
		return "", errors.New("certificate base url is not configured")
	}
	return strings.TrimRight(r.BaseURL, "/") + "/" + in.Certificate.ID, nil
}
