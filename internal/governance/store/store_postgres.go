package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"qualify/internal/governance"
	"qualify/internal/platform/postgres"
	id "qualify/pkg/domain"
	txcontext "qualify/pkg/platform/tx"
)

// PostgresStore persists governance versions in governance_configs. A
// partial unique index guarantees at most one active row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const configColumns = `version, default_due_days, escalation_contact, is_active, created_by, signature_id, rolled_back_from, created_at`

func (s *PostgresStore) Append(ctx context.Context, cfg *governance.Config) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.Executor(ctx, s.db)
		if _, err := exec.ExecContext(ctx, `UPDATE governance_configs SET is_active = FALSE WHERE is_active`); err != nil {
			return fmt.Errorf("deactivate governance config: %w", err)
		}
		_, err := exec.ExecContext(ctx, `
			INSERT INTO governance_configs (`+configColumns+`)
			VALUES ($1, $2, $3, TRUE, $4, $5, $6, $7)
		`,
			cfg.Version,
			cfg.Settings.DefaultDueDays,
			cfg.Settings.EscalationContact,
			nullableUUID(uuid.UUID(cfg.CreatedBy)),
			nullableUUID(uuid.UUID(cfg.SignatureID)),
			sql.NullInt64{Int64: int64(cfg.RolledBackFrom), Valid: cfg.RolledBackFrom > 0},
			cfg.CreatedAt,
		)
		return postgres.Translate(err, "insert governance config")
	})
}

func (s *PostgresStore) FindActive(ctx context.Context) (*governance.Config, error) {
	cfg, err := scanConfig(txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM governance_configs WHERE is_active`))
	if err != nil {
		return nil, postgres.Translate(err, "find active governance config")
	}
	return cfg, nil
}

func (s *PostgresStore) FindByVersion(ctx context.Context, version int) (*governance.Config, error) {
	cfg, err := scanConfig(txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM governance_configs WHERE version = $1`, version))
	if err != nil {
		return nil, postgres.Translate(err, "find governance config")
	}
	return cfg, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*governance.Config, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT `+configColumns+` FROM governance_configs ORDER BY version DESC`)
	if err != nil {
		return nil, fmt.Errorf("list governance configs: %w", err)
	}
	defer rows.Close()

	var out []*governance.Config
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan governance config: %w", err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConfig(row scanner) (*governance.Config, error) {
	var (
		cfg            governance.Config
		createdBy      *uuid.UUID
		signatureID    *uuid.UUID
		rolledBackFrom sql.NullInt64
	)
	if err := row.Scan(
		&cfg.Version, &cfg.Settings.DefaultDueDays, &cfg.Settings.EscalationContact, &cfg.IsActive,
		&createdBy, &signatureID, &rolledBackFrom, &cfg.CreatedAt,
	); err != nil {
		return nil, err
	}
	if createdBy != nil {
		cfg.CreatedBy = id.UserID(*createdBy)
	}
	if signatureID != nil {
		cfg.SignatureID = id.SignatureID(*signatureID)
	}
	cfg.RolledBackFrom = int(rolledBackFrom.Int64)
	return &cfg, nil
}

func nullableUUID(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}
