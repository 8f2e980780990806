package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"qualify/internal/platform/postgres"
	"qualify/internal/records"
	id "qualify/pkg/domain"
	"qualify/pkg/platform/sentinel"
	txcontext "qualify/pkg/platform/tx"
)

// PostgresStore persists training records. Writes are version-checked.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `
	id, user_id, training_id, status, assigned_at, due_date, started_at, completed_at,
	document_viewed, document_viewed_at, document_acknowledged, document_acknowledged_at,
	assessment_attempts, last_attempt_at, score, passed, result_grade, completed_late,
	expiry_date, certificate_id, certificate_url, assignment_source, version, updated_at`

const selectRecords = `SELECT ` + recordColumns + ` FROM training_records`

func (s *PostgresStore) Create(ctx context.Context, rec *records.Record) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO training_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`, insertArgs(rec)...)
	return postgres.Translate(err, "insert training record")
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.RecordID) (*records.Record, error) {
	return s.one(ctx, selectRecords+` WHERE id = $1`, uuid.UUID(recordID))
}

// FindForUpdate locks the row until the surrounding transaction ends.
func (s *PostgresStore) FindForUpdate(ctx context.Context, recordID id.RecordID) (*records.Record, error) {
	return s.one(ctx, selectRecords+` WHERE id = $1 FOR UPDATE`, uuid.UUID(recordID))
}

func (s *PostgresStore) FindByUserTraining(ctx context.Context, userID id.UserID, trainingID id.TrainingID) (*records.Record, error) {
	return s.one(ctx, selectRecords+` WHERE user_id = $1 AND training_id = $2`, uuid.UUID(userID), uuid.UUID(trainingID))
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*records.Record, error) {
	return s.many(ctx, selectRecords+` WHERE user_id = $1 ORDER BY assigned_at, id`, uuid.UUID(userID))
}

func (s *PostgresStore) ListByTrainings(ctx context.Context, trainingIDs []id.TrainingID) ([]*records.Record, error) {
	ids := make([]string, len(trainingIDs))
	for i, t := range trainingIDs {
		ids[i] = t.String()
	}
	return s.many(ctx, selectRecords+` WHERE training_id = ANY($1::uuid[]) ORDER BY assigned_at, id`, pq.Array(ids))
}

func (s *PostgresStore) List(ctx context.Context) ([]*records.Record, error) {
	return s.many(ctx, selectRecords+` ORDER BY assigned_at, id`)
}

func (s *PostgresStore) ListPastDue(ctx context.Context, now time.Time) ([]*records.Record, error) {
	return s.many(ctx, selectRecords+`
		WHERE status IN ('PENDING', 'IN_PROGRESS') AND due_date < $1
		ORDER BY due_date, id`, now)
}

func (s *PostgresStore) ListPastExpiry(ctx context.Context, now time.Time) ([]*records.Record, error) {
	return s.many(ctx, selectRecords+`
		WHERE status = 'COMPLETED' AND expiry_date IS NOT NULL AND expiry_date < $1
		ORDER BY expiry_date, id`, now)
}

func (s *PostgresStore) ListDueBetween(ctx context.Context, from, to time.Time) ([]*records.Record, error) {
	return s.many(ctx, selectRecords+`
		WHERE status IN ('PENDING', 'IN_PROGRESS', 'FAILED') AND due_date >= $1 AND due_date < $2
		ORDER BY due_date, id`, from, to)
}

func (s *PostgresStore) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*records.Record, error) {
	return s.many(ctx, selectRecords+`
		WHERE status = 'COMPLETED' AND expiry_date >= $1 AND expiry_date < $2
		ORDER BY expiry_date, id`, from, to)
}

// Update writes rec when the stored version still equals rec.Version.
func (s *PostgresStore) Update(ctx context.Context, rec *records.Record) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE training_records SET
			status = $3, due_date = $4, started_at = $5, completed_at = $6,
			document_viewed = $7, document_viewed_at = $8,
			document_acknowledged = $9, document_acknowledged_at = $10,
			assessment_attempts = $11, last_attempt_at = $12, score = $13, passed = $14,
			result_grade = $15, completed_late = $16, expiry_date = $17,
			certificate_id = $18, certificate_url = $19, updated_at = $20,
			version = version + 1
		WHERE id = $1 AND version = $2
	`,
		uuid.UUID(rec.ID), rec.Version,
		string(rec.Status), rec.DueDate, rec.StartedAt, rec.CompletedAt,
		rec.DocumentViewed, rec.DocumentViewedAt,
		rec.DocumentAcknowledged, rec.DocumentAcknowledgedAt,
		rec.AssessmentAttempts, rec.LastAttemptAt, nullInt(rec.Score), nullBool(rec.Passed),
		rec.ResultGrade, rec.CompletedLate, rec.ExpiryDate,
		nullString(rec.CertificateID), rec.CertificateURL, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update training record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update training record: %w", err)
	}
	if n == 0 {
		return sentinel.ErrStale
	}
	rec.Version++
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, recordID id.RecordID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM training_records WHERE id = $1`, uuid.UUID(recordID))
	if err != nil {
		return fmt.Errorf("delete training record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) one(ctx context.Context, query string, args ...any) (*records.Record, error) {
	rec, err := scanRecord(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, postgres.Translate(err, "find training record")
	}
	return rec, nil
}

func (s *PostgresStore) many(ctx context.Context, query string, args ...any) ([]*records.Record, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query training records: %w", err)
	}
	defer rows.Close()

	var out []*records.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan training record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training records: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*records.Record, error) {
	var (
		rec                                 records.Record
		recordID, userID, trainingID        uuid.UUID
		status, source                      string
		startedAt, completedAt, viewedAt    sql.NullTime
		acknowledgedAt, lastAttempt, expiry sql.NullTime
		score                               sql.NullInt64
		passed                              sql.NullBool
		certificateID                       sql.NullString
	)
	if err := row.Scan(
		&recordID, &userID, &trainingID, &status, &rec.AssignedAt, &rec.DueDate, &startedAt, &completedAt,
		&rec.DocumentViewed, &viewedAt, &rec.DocumentAcknowledged, &acknowledgedAt,
		&rec.AssessmentAttempts, &lastAttempt, &score, &passed, &rec.ResultGrade, &rec.CompletedLate,
		&expiry, &certificateID, &rec.CertificateURL, &source, &rec.Version, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.ID = id.RecordID(recordID)
	rec.UserID = id.UserID(userID)
	rec.TrainingID = id.TrainingID(trainingID)
	rec.Status = records.Status(status)
	rec.AssignmentSource = records.Source(source)
	rec.StartedAt = timePtr(startedAt)
	rec.CompletedAt = timePtr(completedAt)
	rec.DocumentViewedAt = timePtr(viewedAt)
	rec.DocumentAcknowledgedAt = timePtr(acknowledgedAt)
	rec.LastAttemptAt = timePtr(lastAttempt)
	rec.ExpiryDate = timePtr(expiry)
	if score.Valid {
		v := int(score.Int64)
		rec.Score = &v
	}
	if passed.Valid {
		v := passed.Bool
		rec.Passed = &v
	}
	rec.CertificateID = certificateID.String
	return &rec, nil
}

func insertArgs(rec *records.Record) []any {
	return []any{
		uuid.UUID(rec.ID), uuid.UUID(rec.UserID), uuid.UUID(rec.TrainingID), string(rec.Status),
		rec.AssignedAt, rec.DueDate, rec.StartedAt, rec.CompletedAt,
		rec.DocumentViewed, rec.DocumentViewedAt, rec.DocumentAcknowledged, rec.DocumentAcknowledgedAt,
		rec.AssessmentAttempts, rec.LastAttemptAt, nullInt(rec.Score), nullBool(rec.Passed),
		rec.ResultGrade, rec.CompletedLate, rec.ExpiryDate, nullString(rec.CertificateID),
		rec.CertificateURL, string(rec.AssignmentSource), rec.Version, rec.UpdatedAt,
	}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
