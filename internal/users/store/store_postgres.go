package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"qualify/internal/platform/postgres"
	"qualify/internal/users"
	id "qualify/pkg/domain"
	txcontext "qualify/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, email, display_name, role, password_hash, active, created_at`

func (s *PostgresStore) Create(ctx context.Context, user *users.User) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(user.ID), user.Email, user.DisplayName, string(user.Role), user.PasswordHash, user.Active, user.CreatedAt)
	return postgres.Translate(err, "insert user")
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*users.User, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
	user, err := scanUser(row)
	if err != nil {
		return nil, postgres.Translate(err, "find user")
	}
	return user, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, postgres.Translate(err, "find user by email")
	}
	return user, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*users.User, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*users.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*users.User, error) {
	var (
		u      users.User
		userID uuid.UUID
		role   string
	)
	if err := row.Scan(&userID, &u.Email, &u.DisplayName, &role, &u.PasswordHash, &u.Active, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.ID = id.UserID(userID)
	u.Role = id.Role(role)
	return &u, nil
}
