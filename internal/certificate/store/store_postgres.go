package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"qualify/internal/certificate"
	"qualify/internal/platform/postgres"
	id "qualify/pkg/domain"
	"qualify/pkg/platform/sentinel"
	txcontext "qualify/pkg/platform/tx"
)

// PostgresStore persists certificates in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const certificateColumns = `certificate_id, user_id, training_id, record_id, issued_at, expiry_date, url`

func (s *PostgresStore) Create(ctx context.Context, c *certificate.Certificate) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO certificates (`+certificateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, uuid.UUID(c.UserID), uuid.UUID(c.TrainingID), uuid.UUID(c.RecordID), c.IssuedAt, c.ExpiryDate, c.URL)
	return postgres.Translate(err, "insert certificate")
}

func (s *PostgresStore) FindByUserTraining(ctx context.Context, userID id.UserID, trainingID id.TrainingID) (*certificate.Certificate, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE user_id = $1 AND training_id = $2`,
		uuid.UUID(userID), uuid.UUID(trainingID))
	c, err := scanCertificate(row)
	if err != nil {
		return nil, postgres.Translate(err, "find certificate")
	}
	return c, nil
}

func (s *PostgresStore) UpdateURL(ctx context.Context, certificateID, url string) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE certificates SET url = $2 WHERE certificate_id = $1`, certificateID, url)
	if err != nil {
		return fmt.Errorf("update certificate url: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListWithoutURL(ctx context.Context) ([]*certificate.Certificate, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE url = '' ORDER BY issued_at`)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var out []*certificate.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row scanner) (*certificate.Certificate, error) {
	var (
		c             certificate.Certificate
		uid, tid, rid uuid.UUID
		expiry        sql.NullTime
	)
	if err := row.Scan(&c.ID, &uid, &tid, &rid, &c.IssuedAt, &expiry, &c.URL); err != nil {
		return nil, err
	}
	c.UserID, c.TrainingID, c.RecordID = id.UserID(uid), id.TrainingID(tid), id.RecordID(rid)
	if expiry.Valid {
		t := expiry.Time
		c.ExpiryDate = &t
	}
	return &c, nil
}
