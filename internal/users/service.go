// Package users manages people and their credentials.
package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/email"
	"qualify/pkg/platform/sentinel"
	"qualify/pkg/requestcontext"
)

// Store persists users.
type Store interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, userID id.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("user store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create registers a user with a hashed password.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	address, ok := email.Normalize(req.Email)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	role, err := id.ParseRole(string(req.Role))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be admin, qa or trainee")
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = email.DisplayName(address)
	}

	user := &User{
		ID:           id.NewUserID(),
		Email:        address,
		DisplayName:  name,
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a user with this email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	s.logger.InfoContext(ctx, "user created",
		"user_id", user.ID.String(),
		"role", user.Role,
	)
	return user, nil
}

// Get returns an active or inactive user by ID.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// ListActive returns users that can currently be assigned training.
func (s *Service) ListActive(ctx context.Context) ([]*User, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	active := make([]*User, 0, len(all))
	for _, u := range all {
		if u.Active {
			active = append(active, u)
		}
	}
	return active, nil
}

// Authenticate checks an email and password pair. Every failure reads the
// same so callers cannot probe which accounts exist.
func (s *Service) Authenticate(ctx context.Context, address, password string) (*User, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	normalized, ok := email.Normalize(address)
	if !ok || password == "" {
		return nil, invalid
	}
	user, err := s.store.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, invalid
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if !user.Active {
		return nil, invalid
	}
	match, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	if !match {
		s.logger.WarnContext(ctx, "login failed", "user_id", user.ID.String())
		return nil, invalid
	}
	return user, nil
}

// PasswordHash returns the stored hash for a signer. Inactive users have no
// usable credential.
func (s *Service) PasswordHash(ctx context.Context, userID id.UserID) (string, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.Active {
		return "", dErrors.New(dErrors.CodeForbidden, "user is inactive")
	}
	return user.PasswordHash, nil
}
