package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"qualify/internal/platform/postgres"
	"qualify/internal/training"
	id "qualify/pkg/domain"
	txcontext "qualify/pkg/platform/tx"
)

// PostgresStore persists the training catalog in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const trainingColumns = `id, code, title, master_id, revision, document_url, validity_period, validity_unit, created_at`

func (s *PostgresStore) CreateMaster(ctx context.Context, m *training.Master) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`INSERT INTO training_masters (id, code, title, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(m.ID), m.Code, m.Title, m.CreatedAt)
	return postgres.Translate(err, "insert training master")
}

func (s *PostgresStore) FindMaster(ctx context.Context, masterID id.MasterID) (*training.Master, error) {
	var (
		m   training.Master
		mid uuid.UUID
	)
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, code, title, created_at FROM training_masters WHERE id = $1`, uuid.UUID(masterID),
	).Scan(&mid, &m.Code, &m.Title, &m.CreatedAt)
	if err != nil {
		return nil, postgres.Translate(err, "find training master")
	}
	m.ID = id.MasterID(mid)
	return &m, nil
}

func (s *PostgresStore) Create(ctx context.Context, t *training.Training) error {
	var (
		masterID *uuid.UUID
		period   *int
		unit     *string
	)
	if t.HasMaster() {
		u := uuid.UUID(t.MasterID)
		masterID = &u
	}
	if t.ValidityPeriod > 0 {
		p, u := t.ValidityPeriod, string(t.ValidityUnit)
		period, unit = &p, &u
	}
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO trainings (`+trainingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(t.ID), t.Code, t.Title, masterID, t.Revision, t.DocumentURL, period, unit, t.CreatedAt)
	return postgres.Translate(err, "insert training")
}

func (s *PostgresStore) FindByID(ctx context.Context, trainingID id.TrainingID) (*training.Training, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+trainingColumns+` FROM trainings WHERE id = $1`, uuid.UUID(trainingID))
	t, err := scanTraining(row)
	if err != nil {
		return nil, postgres.Translate(err, "find training")
	}
	return t, nil
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*training.Training, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+trainingColumns+` FROM trainings WHERE code = $1`, code)
	t, err := scanTraining(row)
	if err != nil {
		return nil, postgres.Translate(err, "find training by code")
	}
	return t, nil
}

func (s *PostgresStore) ListByMaster(ctx context.Context, masterID id.MasterID) ([]*training.Training, error) {
	return s.list(ctx, `SELECT `+trainingColumns+` FROM trainings WHERE master_id = $1 ORDER BY revision`, uuid.UUID(masterID))
}

func (s *PostgresStore) List(ctx context.Context) ([]*training.Training, error) {
	return s.list(ctx, `SELECT `+trainingColumns+` FROM trainings ORDER BY code`)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*training.Training, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trainings: %w", err)
	}
	defer rows.Close()

	var out []*training.Training
	for rows.Next() {
		t, err := scanTraining(rows)
		if err != nil {
			return nil, fmt.Errorf("scan training: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTraining(row scanner) (*training.Training, error) {
	var (
		t          training.Training
		trainingID uuid.UUID
		masterID   *uuid.UUID
		period     sql.NullInt64
		unit       sql.NullString
	)
	if err := row.Scan(&trainingID, &t.Code, &t.Title, &masterID, &t.Revision, &t.DocumentURL, &period, &unit, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.ID = id.TrainingID(trainingID)
	if masterID != nil {
		t.MasterID = id.MasterID(*masterID)
	}
	t.ValidityPeriod = int(period.Int64)
	t.ValidityUnit = training.ValidityUnit(unit.String)
	return &t, nil
}
