package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"qualify/internal/assessment"
	"qualify/internal/platform/postgres"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/sentinel"
	txcontext "qualify/pkg/platform/tx"
)

// PostgresStore persists assessments, questions and attempts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the assessment and all questions in one transaction.
func (s *PostgresStore) Create(ctx context.Context, a *assessment.Assessment) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
			INSERT INTO assessments (id, training_id, pass_percentage, max_attempts, created_by, generated_by_ai, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.UUID(a.ID), uuid.UUID(a.TrainingID), a.PassPercentage, a.MaxAttempts,
			uuid.UUID(a.CreatedBy), a.GeneratedByAI, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return postgres.Translate(err, "insert assessment")
		}
		return s.insertQuestions(ctx, a)
	})
}

func (s *PostgresStore) insertQuestions(ctx context.Context, a *assessment.Assessment) error {
	for i, q := range a.Questions {
		_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
			INSERT INTO assessment_questions (id, assessment_id, position, prompt, options, correct_answer)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.UUID(q.ID), uuid.UUID(a.ID), i, q.Prompt, pq.Array(q.Options), q.CorrectAnswer)
		if err != nil {
			return postgres.Translate(err, "insert assessment question")
		}
	}
	return nil
}

func (s *PostgresStore) FindByTraining(ctx context.Context, trainingID id.TrainingID) (*assessment.Assessment, error) {
	exec := txcontext.Executor(ctx, s.db)
	var (
		a                   assessment.Assessment
		aid, tid, createdBy uuid.UUID
	)
	err := exec.QueryRowContext(ctx, `
		SELECT id, training_id, pass_percentage, max_attempts, created_by, generated_by_ai, created_at, updated_at
		FROM assessments WHERE training_id = $1
	`, uuid.UUID(trainingID)).Scan(&aid, &tid, &a.PassPercentage, &a.MaxAttempts, &createdBy, &a.GeneratedByAI, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, postgres.Translate(err, "find assessment")
	}
	a.ID, a.TrainingID, a.CreatedBy = id.AssessmentID(aid), id.TrainingID(tid), id.UserID(createdBy)

	rows, err := exec.QueryContext(ctx, `
		SELECT id, prompt, options, correct_answer
		FROM assessment_questions WHERE assessment_id = $1 ORDER BY position
	`, aid)
	if err != nil {
		return nil, fmt.Errorf("query assessment questions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			q   assessment.Question
			qid uuid.UUID
		)
		if err := rows.Scan(&qid, &q.Prompt, pq.Array(&q.Options), &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("scan assessment question: %w", err)
		}
		q.ID = id.QuestionID(qid)
		a.Questions = append(a.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessment questions: %w", err)
	}
	return &a, nil
}

// noAttempts guards config writes; the lock check and the update are one statement.
const noAttempts = `NOT EXISTS (SELECT 1 FROM assessment_attempts WHERE assessment_id = $1)`

func (s *PostgresStore) UpdateConfig(ctx context.Context, a *assessment.Assessment) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE assessments SET pass_percentage = $2, max_attempts = $3, updated_at = $4
		WHERE id = $1 AND `+noAttempts,
		uuid.UUID(a.ID), a.PassPercentage, a.MaxAttempts, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update assessment config: %w", err)
	}
	return lockedIfUnchanged(res)
}

// ReplaceQuestions deletes and reinserts the question set in one transaction.
func (s *PostgresStore) ReplaceQuestions(ctx context.Context, a *assessment.Assessment) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.Executor(ctx, s.db)
		res, err := exec.ExecContext(ctx, `
			UPDATE assessments SET generated_by_ai = $2, updated_at = $3
			WHERE id = $1 AND `+noAttempts,
			uuid.UUID(a.ID), a.GeneratedByAI, a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("touch assessment: %w", err)
		}
		if err := lockedIfUnchanged(res); err != nil {
			return err
		}
		if _, err := exec.ExecContext(ctx, `DELETE FROM assessment_questions WHERE assessment_id = $1`, uuid.UUID(a.ID)); err != nil {
			return fmt.Errorf("delete assessment questions: %w", err)
		}
		return s.insertQuestions(ctx, a)
	})
}

func lockedIfUnchanged(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrImmutable
	}
	return nil
}

// -----------------------------------------------------------------------------
// Attempts
// -----------------------------------------------------------------------------

const attemptColumns = `id, record_id, assessment_id, user_id, training_id, attempt_number, answers,
	correct_count, total_questions, score, passed, grade, submitted_at`

func (s *PostgresStore) Append(ctx context.Context, a *assessment.Attempt) error {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO assessment_attempts (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, uuid.UUID(a.ID), uuid.UUID(a.RecordID), uuid.UUID(a.AssessmentID), uuid.UUID(a.UserID), uuid.UUID(a.TrainingID),
		a.Number, string(answers), a.CorrectCount, a.TotalQuestions, a.Score, a.Passed, string(a.Grade), a.SubmittedAt)
	return postgres.Translate(err, "insert assessment attempt")
}

func (s *PostgresStore) ListByRecord(ctx context.Context, recordID id.RecordID) ([]*assessment.Attempt, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM assessment_attempts WHERE record_id = $1 ORDER BY attempt_number`,
		uuid.UUID(recordID))
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []*assessment.Attempt
	for rows.Next() {
		var (
			a                        assessment.Attempt
			aid, rid, asid, uid, tid uuid.UUID
			answers                  []byte
			grade                    string
		)
		if err := rows.Scan(&aid, &rid, &asid, &uid, &tid, &a.Number, &answers,
			&a.CorrectCount, &a.TotalQuestions, &a.Score, &a.Passed, &grade, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		a.ID, a.RecordID, a.AssessmentID = id.AttemptID(aid), id.RecordID(rid), id.AssessmentID(asid)
		a.UserID, a.TrainingID, a.Grade = id.UserID(uid), id.TrainingID(tid), assessment.Grade(grade)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) HasAttempts(ctx context.Context, assessmentID id.AssessmentID) (bool, error) {
	var exists bool
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM assessment_attempts WHERE assessment_id = $1)`,
		uuid.UUID(assessmentID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attempts: %w", err)
	}
	return exists, nil
}

// Update always fails before reaching the database.
func (s *PostgresStore) Update(_ context.Context, _ *assessment.Attempt) error {
	return dErrors.Wrap(sentinel.ErrImmutable, dErrors.CodeImmutable, "assessment attempts are append-only")
}

// Delete always fails before reaching the database.
func (s *PostgresStore) Delete(_ context.Context, _ id.AttemptID) error {
	return dErrors.Wrap(sentinel.ErrImmutable, dErrors.CodeImmutable, "assessment attempts are append-only")
}
