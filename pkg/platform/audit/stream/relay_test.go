package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "qualify/pkg/domain"
	audit "qualify/pkg/platform/audit"
)

type fakeOutbox struct {
	pending   []audit.OutboxMessage
	published []uuid.UUID
	txCalls   int
}

func (f *fakeOutbox) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txCalls++
	return fn(ctx)
}

func (f *fakeOutbox) FetchUnpublished(_ context.Context, limit int) ([]audit.OutboxMessage, error) {
	if len(f.pending) < limit {
		limit = len(f.pending)
	}
	return f.pending[:limit], nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	f.published = append(f.published, ids...)
	f.pending = f.pending[len(ids):]
	return nil
}

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func outboxMessage(t *testing.T, recordID id.RecordID) audit.OutboxMessage {
	t.Helper()
	env, err := audit.ToEnvelope(audit.Entry{
		ID:        id.NewEntryID(),
		Type:      audit.EventTrainingExpired,
		Source:    audit.SourceSystem,
		Subject:   audit.Subject{RecordID: recordID},
		NewStatus: "EXPIRED",
		Metadata:  audit.ExpiredMetadata{ExpiryDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		Timestamp: time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	payload, err := json.Marshal(env)
	require.NoError(t, err)
	return audit.OutboxMessage{
		ID:          uuid.New(),
		AggregateID: recordID.String(),
		EventType:   string(audit.EventTrainingExpired),
		Payload:     payload,
		CreatedAt:   time.Now(),
	}
}

func TestNewRelay_Validation(t *testing.T) {
	_, err := NewRelay(nil, &fakeProducer{}, "qualify.audit")
	assert.Error(t, err)
	_, err = NewRelay(&fakeOutbox{}, nil, "qualify.audit")
	assert.Error(t, err)
	_, err = NewRelay(&fakeOutbox{}, &fakeProducer{}, "")
	assert.Error(t, err)
}

func TestRelay_PublishOnce(t *testing.T) {
	recordID := id.NewRecordID()

	t.Run("publishes keyed records and marks them", func(t *testing.T) {
		outbox := &fakeOutbox{pending: []audit.OutboxMessage{
			outboxMessage(t, recordID),
			outboxMessage(t, recordID),
			outboxMessage(t, id.NewRecordID()),
		}}
		producer := &fakeProducer{}
		relay, err := NewRelay(outbox, producer, "qualify.audit", WithBatchSize(2))
		require.NoError(t, err)

		n, err := relay.PublishOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Len(t, outbox.published, 2)
		require.Len(t, producer.records, 2)
		assert.Equal(t, recordID.String(), string(producer.records[0].Key))
		assert.Equal(t, "qualify.audit", producer.records[0].Topic)
		assert.Equal(t, "event_type", producer.records[0].Headers[0].Key)

		entry, err := Decode(producer.records[0])
		require.NoError(t, err)
		assert.Equal(t, audit.EventTrainingExpired, entry.Type)
		assert.Equal(t, recordID, entry.Subject.RecordID)
	})

	t.Run("produce failure leaves rows unpublished", func(t *testing.T) {
		outbox := &fakeOutbox{pending: []audit.OutboxMessage{outboxMessage(t, recordID)}}
		producer := &fakeProducer{err: errors.New("broker unavailable")}
		relay, err := NewRelay(outbox, producer, "qualify.audit")
		require.NoError(t, err)

		n, err := relay.PublishOnce(context.Background())
		require.Error(t, err)
		assert.Equal(t, 0, n)
		assert.Empty(t, outbox.published)
		assert.Len(t, outbox.pending, 1)
	})

	t.Run("empty outbox is a no-op", func(t *testing.T) {
		producer := &fakeProducer{}
		relay, err := NewRelay(&fakeOutbox{}, producer, "qualify.audit")
		require.NoError(t, err)

		n, err := relay.PublishOnce(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, producer.records)
	})
}
