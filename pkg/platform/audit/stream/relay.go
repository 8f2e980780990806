// Package stream relays committed audit entries from the Postgres outbox to
// Kafka. Delivery is at-least-once: a crash between produce and commit
// republishes the batch, and consumers dedupe on the envelope ID.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "qualify/pkg/platform/audit"
)

// Outbox is the relay's view of the outbox table.
type Outbox interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	FetchUnpublished(ctx context.Context, limit int) ([]audit.OutboxMessage, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Producer is satisfied by *kgo.Client.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Relay moves outbox rows to a Kafka topic.
type Relay struct {
	outbox   Outbox
	producer Producer
	topic    string
	batch    int
	interval time.Duration
	logger   *slog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// NewRelay creates a relay publishing to topic.
func NewRelay(outbox Outbox, producer Producer, topic string, opts ...Option) (*Relay, error) {
	if outbox == nil {
		return nil, errors.New("outbox is required")
	}
	if producer == nil {
		return nil, errors.New("producer is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	r := &Relay{
		outbox:   outbox,
		producer: producer,
		topic:    topic,
		batch:    200,
		interval: time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// PublishOnce relays one batch and returns how many messages were published.
func (r *Relay) PublishOnce(ctx context.Context) (int, error) {
	published := 0
	err := r.outbox.RunInTx(ctx, func(ctx context.Context) error {
		msgs, err := r.outbox.FetchUnpublished(ctx, r.batch)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return nil
		}

		records := make([]*kgo.Record, len(msgs))
		ids := make([]uuid.UUID, len(msgs))
		for i, m := range msgs {
			records[i] = &kgo.Record{
				Topic: r.topic,
				// Keyed by aggregate so one record's history stays on one partition.
				Key:   []byte(m.AggregateID),
				Value: m.Payload,
				Headers: []kgo.RecordHeader{
					{Key: "event_type", Value: []byte(m.EventType)},
					{Key: "outbox_id", Value: []byte(m.ID.String())},
				},
				Timestamp: m.CreatedAt,
			}
			ids[i] = m.ID
		}

		if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
			return fmt.Errorf("produce audit batch: %w", err)
		}
		if err := r.outbox.MarkPublished(ctx, ids, time.Now().UTC()); err != nil {
			return err
		}
		published = len(msgs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

// Run relays on an interval until ctx is done. A full batch is followed
// immediately by another attempt.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		n, err := r.PublishOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.WarnContext(ctx, "audit relay batch failed", "log_type", "audit", "error", err)
		}
		if n == r.batch {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// EnsureTopic creates topic if it does not already exist.
func EnsureTopic(ctx context.Context, adm *kadm.Client, topic string, partitions int32, replicationFactor int16) error {
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}

// Decode parses a relayed record back into a typed entry.
func Decode(rec *kgo.Record) (audit.Entry, error) {
	var env audit.Envelope
	if err := json.Unmarshal(rec.Value, &env); err != nil {
		return audit.Entry{}, fmt.Errorf("decode audit envelope: %w", err)
	}
	return env.Entry()
}
