package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"qualify/internal/platform/postgres"
	"qualify/internal/signature"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/sentinel"
	txcontext "qualify/pkg/platform/tx"
)

// PostgresStore persists signatures and signer lockouts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, sig *signature.Signature) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO signatures (id, actor_id, action, justification, ip, user_agent, signed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(sig.ID), uuid.UUID(sig.ActorID), string(sig.Action), sig.Justification, sig.IP, sig.UserAgent, sig.SignedAt)
	return postgres.Translate(err, "insert signature")
}

func (s *PostgresStore) FindByID(ctx context.Context, signatureID id.SignatureID) (*signature.Signature, error) {
	var (
		sig            signature.Signature
		sigID, actorID uuid.UUID
		action         string
	)
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, actor_id, action, justification, ip, user_agent, signed_at
		FROM signatures WHERE id = $1
	`, uuid.UUID(signatureID)).Scan(&sigID, &actorID, &action, &sig.Justification, &sig.IP, &sig.UserAgent, &sig.SignedAt)
	if err != nil {
		return nil, postgres.Translate(err, "find signature")
	}
	sig.ID, sig.ActorID, sig.Action = id.SignatureID(sigID), id.UserID(actorID), signature.Action(action)
	return &sig, nil
}

// Update always fails before reaching the database.
func (s *PostgresStore) Update(_ context.Context, _ *signature.Signature) error {
	return dErrors.Wrap(sentinel.ErrImmutable, dErrors.CodeImmutable, "signatures are append-only")
}

// Delete always fails before reaching the database.
func (s *PostgresStore) Delete(_ context.Context, _ id.SignatureID) error {
	return dErrors.Wrap(sentinel.ErrImmutable, dErrors.CodeImmutable, "signatures are append-only")
}

// PostgresLockouts counts signer failures in the signature_lockouts table.
type PostgresLockouts struct {
	db *sql.DB
}

func NewPostgresLockouts(db *sql.DB) *PostgresLockouts {
	return &PostgresLockouts{db: db}
}

const lockoutColumns = `user_id, failure_count, window_start, locked_until`

func (s *PostgresLockouts) Get(ctx context.Context, userID id.UserID) (*signature.Lockout, error) {
	rec, err := scanLockout(s.db.QueryRowContext(ctx,
		`SELECT `+lockoutColumns+` FROM signature_lockouts WHERE user_id = $1`, uuid.UUID(userID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get signature lockout: %w", err)
	}
	return rec, nil
}

// RecordFailure increments the counter in one statement, restarting the
// window when it has elapsed.
func (s *PostgresLockouts) RecordFailure(ctx context.Context, userID id.UserID, now time.Time, window time.Duration) (*signature.Lockout, error) {
	query := `
		INSERT INTO signature_lockouts (user_id, failure_count, window_start, locked_until)
		VALUES ($1, 1, $2, NULL)
		ON CONFLICT (user_id) DO UPDATE SET
			failure_count = CASE WHEN signature_lockouts.window_start <= $3 THEN 1 ELSE signature_lockouts.failure_count + 1 END,
			window_start  = CASE WHEN signature_lockouts.window_start <= $3 THEN $2 ELSE signature_lockouts.window_start END
		RETURNING ` + lockoutColumns
	rec, err := scanLockout(s.db.QueryRowContext(ctx, query, uuid.UUID(userID), now, now.Add(-window)))
	if err != nil {
		return nil, fmt.Errorf("record signature failure: %w", err)
	}
	return rec, nil
}

func (s *PostgresLockouts) Lock(ctx context.Context, userID id.UserID, until time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signature_lockouts (user_id, failure_count, window_start, locked_until)
		VALUES ($1, 0, $2, $2)
		ON CONFLICT (user_id) DO UPDATE SET locked_until = EXCLUDED.locked_until
	`, uuid.UUID(userID), until)
	if err != nil {
		return fmt.Errorf("lock signer: %w", err)
	}
	return nil
}

func (s *PostgresLockouts) Clear(ctx context.Context, userID id.UserID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM signature_lockouts WHERE user_id = $1`, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("clear signature lockout: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLockout(row scanner) (*signature.Lockout, error) {
	var (
		rec         signature.Lockout
		userID      uuid.UUID
		lockedUntil sql.NullTime
	)
	if err := row.Scan(&userID, &rec.FailureCount, &rec.WindowStart, &lockedUntil); err != nil {
		return nil, err
	}
	rec.UserID = id.UserID(userID)
	if lockedUntil.Valid {
		t := lockedUntil.Time
		rec.LockedUntil = &t
	}
	return &rec, nil
}
