// Package audit is the append-only audit trail.
//
// Trail.Record is best-effort relative to the caller: a failed store write is
// logged, counted, and parked in a bounded fallback buffer that a retry loop
// replays once the store recovers. The caller's transition is never failed or
// rolled back because of the audit sink.
package audit

import (
	"context"
	"log/slog"
	"time"

	id "qualify/pkg/domain"
	"qualify/pkg/platform/circuit"
	"qualify/pkg/requestcontext"
)

const (
	defaultBufferCapacity = 10000
	defaultReplayBatch    = 100
	defaultRetryInterval  = 5 * time.Second
)

// Trail writes entries to a Store with a fallback path.
type Trail struct {
	store         Store
	logger        *slog.Logger
	metrics       *Metrics
	breaker       *circuit.Breaker
	buffer        *RingBuffer
	replayBatch   int
	retryInterval time.Duration
}

// Option configures a Trail.
type Option func(*Trail)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Trail) { t.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(t *Trail) { t.metrics = m }
}

// WithBreaker replaces the default store circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(t *Trail) { t.breaker = b }
}

// WithBufferCapacity bounds the fallback buffer.
func WithBufferCapacity(n int) Option {
	return func(t *Trail) { t.buffer = NewRingBuffer(n) }
}

// WithRetryInterval sets how often the retry loop replays the buffer.
func WithRetryInterval(d time.Duration) Option {
	return func(t *Trail) {
		if d > 0 {
			t.retryInterval = d
		}
	}
}

// NewTrail creates a Trail over store.
func NewTrail(store Store, opts ...Option) *Trail {
	t := &Trail{
		store:         store,
		logger:        slog.Default(),
		breaker:       circuit.New("audit-store", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		buffer:        NewRingBuffer(defaultBufferCapacity),
		replayBatch:   defaultReplayBatch,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record persists entry. It fills ID, timestamp, and request ID when unset
// and never returns an error.
func (t *Trail) Record(ctx context.Context, entry Entry) {
	if entry.ID == (id.EntryID{}) {
		entry.ID = id.NewEntryID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}

	if err := entry.Validate(); err != nil {
		t.metrics.incInvalid()
		t.logger.ErrorContext(ctx, "audit entry rejected",
			"log_type", "audit",
			"event", entry.Type,
			"error", err,
		)
		return
	}

	if t.breaker.IsOpen() {
		t.fallback(ctx, entry, nil)
		return
	}

	// Detached from request cancellation so a client disconnect after the
	// transition committed does not lose its audit entry.
	if err := t.store.Append(context.WithoutCancel(ctx), entry); err != nil {
		t.metrics.incPersistFailures()
		_, change := t.breaker.RecordFailure()
		if change.Opened {
			t.metrics.setBreakerOpen(true)
			t.logger.WarnContext(ctx, "audit store circuit opened", "log_type", "audit")
		}
		t.fallback(ctx, entry, err)
		return
	}
	t.breaker.RecordSuccess()
	t.metrics.incRecorded(entry.Type)
}

func (t *Trail) fallback(ctx context.Context, entry Entry, cause error) {
	kept := t.buffer.Enqueue(entry)
	t.metrics.incBuffered(!kept)
	t.logger.ErrorContext(ctx, "audit write deferred to fallback buffer",
		"log_type", "audit",
		"event", entry.Type,
		"entry_id", entry.ID.String(),
		"actor_id", entry.ActorID.String(),
		"record_id", entry.Subject.RecordID.String(),
		"source", entry.Source,
		"error", cause,
		"buffered", t.buffer.Len(),
		"oldest_dropped", !kept,
	)
}

// Pending returns the number of entries waiting in the fallback buffer.
func (t *Trail) Pending() int {
	return t.buffer.Len()
}

// Replay writes buffered entries back to the store in order, stopping at the
// first failure. It returns how many entries were persisted.
func (t *Trail) Replay(ctx context.Context) (int, error) {
	written := 0
	defer func() { t.metrics.addReplayed(written) }()
	for {
		batch := t.buffer.Peek(t.replayBatch)
		if len(batch) == 0 {
			return written, nil
		}
		for _, item := range batch {
			if err := t.store.Append(ctx, item.entry); err != nil {
				t.breaker.RecordFailure()
				return written, err
			}
			t.buffer.Ack(item.seq)
			written++
			if _, change := t.breaker.RecordSuccess(); change.Closed {
				t.metrics.setBreakerOpen(false)
				t.logger.InfoContext(ctx, "audit store circuit closed", "log_type", "audit")
			}
			t.metrics.incRecorded(item.entry.Type)
		}
		if len(batch) < t.replayBatch {
			return written, nil
		}
	}
}

// RunRetry replays the fallback buffer on an interval until ctx is done.
func (t *Trail) RunRetry(ctx context.Context) error {
	ticker := time.NewTicker(t.retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t.buffer.Len() == 0 {
				continue
			}
			n, err := t.Replay(ctx)
			if err != nil {
				t.logger.WarnContext(ctx, "audit replay interrupted",
					"log_type", "audit",
					"replayed", n,
					"remaining", t.buffer.Len(),
					"error", err,
				)
				continue
			}
			t.logger.InfoContext(ctx, "audit fallback buffer replayed",
				"log_type", "audit",
				"replayed", n,
			)
		}
	}
}
