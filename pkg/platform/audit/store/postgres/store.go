package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/platform/sentinel"
	txcontext "qualify/pkg/platform/tx"
)

// Store implements audit.Store on the audit_log table and feeds the
// transactional outbox in the same statement, so an entry and its outbox
// row are committed together.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const appendQuery = `
	WITH ins AS (
		INSERT INTO audit_log (
			id, event_type, actor_id, source, user_id, training_id, record_id,
			assessment_id, previous_status, new_status, metadata, request_id, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	)
	INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
	SELECT $14, $15, $16, $2, $17, $13 FROM ins
`

// Append inserts the entry and its outbox message. Re-appending an entry ID
// that already exists is a no-op.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	env, err := audit.ToEnvelope(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := entry.ID.String()
	if !entry.Subject.RecordID.IsNil() {
		aggregateType = "training_record"
		aggregateID = entry.Subject.RecordID.String()
	} else if !entry.Subject.UserID.IsNil() {
		aggregateType = "user"
		aggregateID = entry.Subject.UserID.String()
	}

	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, appendQuery,
		uuid.UUID(entry.ID),
		string(entry.Type),
		nullable(uuid.UUID(entry.ActorID)),
		string(entry.Source),
		nullable(uuid.UUID(entry.Subject.UserID)),
		nullable(uuid.UUID(entry.Subject.TrainingID)),
		nullable(uuid.UUID(entry.Subject.RecordID)),
		nullable(uuid.UUID(entry.Subject.AssessmentID)),
		entry.PreviousStatus,
		entry.NewStatus,
		string(env.Metadata),
		entry.RequestID,
		entry.Timestamp,
		uuid.New(),
		aggregateType,
		aggregateID,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Update always fails before reaching the database.
func (s *Store) Update(_ context.Context, _ audit.Entry) error {
	return dErrors.Wrap(sentinel.ErrImmutable, dErrors.CodeImmutable, "audit entries are append-only")
}

// Delete always fails before reaching the database.
func (s *Store) Delete(_ context.Context, _ id.EntryID) error {
	return dErrors.Wrap(sentinel.ErrImmutable, dErrors.CodeImmutable, "audit entries are append-only")
}

const selectColumns = `
	SELECT id, event_type, actor_id, source, user_id, training_id, record_id,
		   assessment_id, previous_status, new_status, metadata, request_id, occurred_at
	FROM audit_log
`

// ListByRecord returns a record's entries in chronological order.
func (s *Store) ListByRecord(ctx context.Context, recordID id.RecordID) ([]audit.Entry, error) {
	return s.query(ctx, selectColumns+` WHERE record_id = $1 ORDER BY occurred_at ASC, id ASC`, uuid.UUID(recordID))
}

// ListByUser returns entries about a user in chronological order.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Entry, error) {
	return s.query(ctx, selectColumns+` WHERE user_id = $1 ORDER BY occurred_at ASC, id ASC`, uuid.UUID(userID))
}

// ListRecent returns the N most recent entries.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	return s.query(ctx, selectColumns+` ORDER BY occurred_at DESC LIMIT $1`, limit)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]audit.Entry, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			entryID                                     uuid.UUID
			eventType, source                           string
			actorID, userID, trainingID, recordID, asID *uuid.UUID
			meta                                        []byte
			entry                                       audit.Entry
		)
		if err := rows.Scan(
			&entryID, &eventType, &actorID, &source, &userID, &trainingID, &recordID,
			&asID, &entry.PreviousStatus, &entry.NewStatus, &meta, &entry.RequestID, &entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ID = id.EntryID(entryID)
		entry.Type = audit.EventType(eventType)
		entry.Source = audit.Source(source)
		entry.ActorID = id.UserID(deref(actorID))
		entry.Subject = audit.Subject{
			UserID:       id.UserID(deref(userID)),
			TrainingID:   id.TrainingID(deref(trainingID)),
			RecordID:     id.RecordID(deref(recordID)),
			AssessmentID: id.AssessmentID(deref(asID)),
		}
		entry.Metadata, err = audit.DecodeMetadata(entry.Type, meta)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

// -----------------------------------------------------------------------------
// Outbox
// -----------------------------------------------------------------------------

// FetchUnpublished locks up to limit unpublished rows. Call inside a
// transaction so the lock is held until MarkPublished commits.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]audit.OutboxMessage, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var msgs []audit.OutboxMessage
	for rows.Next() {
		var m audit.OutboxMessage
		if err := rows.Scan(&m.ID, &m.AggregateID, &m.EventType, &m.Payload, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return msgs, nil
}

// MarkPublished stamps the given outbox rows as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`,
		at, pq.Array(uuidStrings(ids)),
	)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// RunInTx runs fn inside a transaction carried by ctx.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn)
}

func nullable(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}

func deref(u *uuid.UUID) uuid.UUID {
	if u == nil {
		return uuid.Nil
	}
	return *u
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, u := range ids {
		out[i] = u.String()
	}
	return out
}
