// Package training is the catalog of trainings, their masters and revisions.
package training

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/sentinel"
	"qualify/pkg/requestcontext"
)

// Store persists trainings and masters. Codes are unique.
type Store interface {
	CreateMaster(ctx context.Context, m *Master) error
	FindMaster(ctx context.Context, masterID id.MasterID) (*Master, error)
	Create(ctx context.Context, t *Training) error
	FindByID(ctx context.Context, trainingID id.TrainingID) (*Training, error)
	FindByCode(ctx context.Context, code string) (*Training, error)
	ListByMaster(ctx context.Context, masterID id.MasterID) ([]*Training, error)
	List(ctx context.Context) ([]*Training, error)
}

// RevisionListener is told about every training created as a later revision.
// Errors are logged; the revision itself is already committed.
type RevisionListener interface {
	RevisionCreated(ctx context.Context, revision *Training) error
}

type Service struct {
	store     Store
	listeners []RevisionListener
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRevisionListener registers a listener for new revisions.
func WithRevisionListener(l RevisionListener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("training store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// AddRevisionListener registers a listener after construction, for wiring
// cycles where the listener itself depends on the catalog.
func (s *Service) AddRevisionListener(l RevisionListener) {
	s.listeners = append(s.listeners, l)
}

func (s *Service) CreateMaster(ctx context.Context, req CreateMasterRequest) (*Master, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	title := strings.TrimSpace(req.Title)
	if code == "" || title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "master code and title are required")
	}
	m := &Master{ID: id.NewMasterID(), Code: code, Title: title, CreatedAt: requestcontext.Now(ctx)}
	if err := s.store.CreateMaster(ctx, m); err != nil {
		return nil, translate(err, "training master")
	}
	return m, nil
}

// Create adds a training. When it is a later revision of an existing
// training (same master, or same base code for legacy trainings), revision
// listeners run after it is stored.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Training, error) {
	t, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	priors, err := s.PriorRevisions(ctx, t)
	if err != nil {
		return nil, err
	}
	if req.Revision == 0 {
		t.Revision = nextRevision(priors)
	}

	if err := s.store.Create(ctx, t); err != nil {
		return nil, translate(err, "training")
	}
	s.logger.InfoContext(ctx, "training created",
		"training_id", t.ID.String(),
		"code", t.Code,
		"revision", t.Revision,
		"prior_revisions", len(priors),
	)

	if len(priors) > 0 {
		for _, l := range s.listeners {
			if err := l.RevisionCreated(ctx, t); err != nil {
				s.logger.ErrorContext(ctx, "revision listener failed",
					"training_id", t.ID.String(),
					"error", err,
				)
			}
		}
	}
	return t, nil
}

func (s *Service) build(ctx context.Context, req CreateRequest) (*Training, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	title := strings.TrimSpace(req.Title)
	if code == "" || title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "training code and title are required")
	}
	if req.ValidityPeriod < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "validity period must not be negative")
	}
	if req.ValidityPeriod > 0 {
		if _, ok := req.ValidityUnit.Days(); !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "validity unit must be days, months or years")
		}
	}
	if req.Revision < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "revision must not be negative")
	}
	if !req.MasterID.IsNil() {
		if _, err := s.store.FindMaster(ctx, req.MasterID); err != nil {
			return nil, translate(err, "training master")
		}
	}
	return &Training{
		ID:             id.NewTrainingID(),
		Code:           code,
		Title:          title,
		MasterID:       req.MasterID,
		Revision:       req.Revision,
		DocumentURL:    strings.TrimSpace(req.DocumentURL),
		ValidityPeriod: req.ValidityPeriod,
		ValidityUnit:   req.ValidityUnit,
		CreatedAt:      requestcontext.Now(ctx),
	}, nil
}

// PriorRevisions returns the other trainings that t supersedes: every
// training under the same master, or for legacy trainings every training
// whose code shares t's base code.
func (s *Service) PriorRevisions(ctx context.Context, t *Training) ([]*Training, error) {
	var candidates []*Training
	var err error
	if t.HasMaster() {
		candidates, err = s.store.ListByMaster(ctx, t.MasterID)
	} else {
		candidates, err = s.store.List(ctx)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list trainings")
	}

	base := BaseCode(t.Code)
	var priors []*Training
	for _, c := range candidates {
		if c.ID == t.ID {
			continue
		}
		if t.HasMaster() || (!c.HasMaster() && BaseCode(c.Code) == base) {
			priors = append(priors, c)
		}
	}
	return priors, nil
}

func nextRevision(priors []*Training) int {
	next := 1
	for _, p := range priors {
		if p.Revision >= next {
			next = p.Revision + 1
		}
	}
	return next
}

func (s *Service) Get(ctx context.Context, trainingID id.TrainingID) (*Training, error) {
	t, err := s.store.FindByID(ctx, trainingID)
	if err != nil {
		return nil, translate(err, "training")
	}
	return t, nil
}

// Master returns a training's master, or nil for legacy trainings.
func (s *Service) Master(ctx context.Context, t *Training) (*Master, error) {
	if !t.HasMaster() {
		return nil, nil
	}
	m, err := s.store.FindMaster(ctx, t.MasterID)
	if err != nil {
		return nil, translate(err, "training master")
	}
	return m, nil
}

func (s *Service) List(ctx context.Context) ([]*Training, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list trainings")
	}
	return all, nil
}

func translate(err error, entity string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, entity+" code already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+entity)
	}
}
