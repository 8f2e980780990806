package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"qualify/internal/notification"
	id "qualify/pkg/domain"
	txcontext "qualify/pkg/platform/tx"
)

type markerKey struct {
	record id.RecordID
	kind   notification.Kind
	target string
}

func targetDay(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// InMemoryMarkers records sent reminders in process memory.
type InMemoryMarkers struct {
	mu   sync.Mutex
	seen map[markerKey]time.Time
}

func NewInMemoryMarkers() *InMemoryMarkers {
	return &InMemoryMarkers{seen: make(map[markerKey]time.Time)}
}

func (m *InMemoryMarkers) Mark(_ context.Context, recordID id.RecordID, kind notification.Kind, target, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := markerKey{record: recordID, kind: kind, target: targetDay(target)}
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = now
	return true, nil
}

// PostgresMarkers records sent reminders in reminder_markers.
type PostgresMarkers struct {
	db *sql.DB
}

func NewPostgresMarkers(db *sql.DB) *PostgresMarkers {
	return &PostgresMarkers{db: db}
}

func (m *PostgresMarkers) Mark(ctx context.Context, recordID id.RecordID, kind notification.Kind, target, now time.Time) (bool, error) {
	res, err := txcontext.Executor(ctx, m.db).ExecContext(ctx, `
		INSERT INTO reminder_markers (record_id, kind, target_date, sent_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (record_id, kind, target_date) DO NOTHING
	`, uuid.UUID(recordID), string(kind), targetDay(target), now)
	if err != nil {
		return false, fmt.Errorf("insert reminder marker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert reminder marker: %w", err)
	}
	return n == 1, nil
}

const markerKeyPrefix = "qualify:reminder:"

// RedisMarkers records sent reminders as keys that outlive their target
// date by a day.
type RedisMarkers struct {
	client redis.UniversalClient
}

func NewRedisMarkers(client redis.UniversalClient) *RedisMarkers {
	return &RedisMarkers{client: client}
}

func (m *RedisMarkers) Mark(ctx context.Context, recordID id.RecordID, kind notification.Kind, target, now time.Time) (bool, error) {
	key := markerKeyPrefix + recordID.String() + ":" + string(kind) + ":" + targetDay(target)
	ttl := target.Sub(now) + 24*time.Hour
	if ttl < time.Hour {
		ttl = time.Hour
	}
	ok, err := m.client.SetNX(ctx, key, now.UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("set reminder marker: %w", err)
	}
	return ok, nil
}
