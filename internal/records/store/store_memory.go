package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"qualify/internal/records"
	id "qualify/pkg/domain"
	"qualify/pkg/platform/sentinel"
)

type pairKey struct {
	user     id.UserID
	training id.TrainingID
}

// InMemoryStore keeps training records in process memory. Pair with
// records.ShardedTx for per-record serialisation.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[id.RecordID]*records.Record
	byPair map[pairKey]id.RecordID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.RecordID]*records.Record),
		byPair: make(map[pairKey]id.RecordID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, rec *records.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{user: rec.UserID, training: rec.TrainingID}
	if _, ok := s.byPair[key]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byID[rec.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *rec
	s.byID[rec.ID] = &cp
	s.byPair[key] = rec.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID id.RecordID) (*records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// FindForUpdate is FindByID; locking is the caller's ShardedTx.
func (s *InMemoryStore) FindForUpdate(ctx context.Context, recordID id.RecordID) (*records.Record, error) {
	return s.FindByID(ctx, recordID)
}

func (s *InMemoryStore) FindByUserTraining(ctx context.Context, userID id.UserID, trainingID id.TrainingID) (*records.Record, error) {
	s.mu.RLock()
	recordID, ok := s.byPair[pairKey{user: userID, training: trainingID}]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByID(ctx, recordID)
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*records.Record, error) {
	return s.filter(func(r *records.Record) bool { return r.UserID == userID }), nil
}

func (s *InMemoryStore) ListByTrainings(_ context.Context, trainingIDs []id.TrainingID) ([]*records.Record, error) {
	want := make(map[id.TrainingID]struct{}, len(trainingIDs))
	for _, t := range trainingIDs {
		want[t] = struct{}{}
	}
	return s.filter(func(r *records.Record) bool {
		_, ok := want[r.TrainingID]
		return ok
	}), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*records.Record, error) {
	return s.filter(func(*records.Record) bool { return true }), nil
}

func (s *InMemoryStore) ListPastDue(_ context.Context, now time.Time) ([]*records.Record, error) {
	return s.filter(func(r *records.Record) bool {
		return (r.Status == records.StatusPending || r.Status == records.StatusInProgress) && r.DueDate.Before(now)
	}), nil
}

func (s *InMemoryStore) ListPastExpiry(_ context.Context, now time.Time) ([]*records.Record, error) {
	return s.filter(func(r *records.Record) bool {
		return r.Status == records.StatusCompleted && r.ExpiryDate != nil && r.ExpiryDate.Before(now)
	}), nil
}

func (s *InMemoryStore) ListDueBetween(_ context.Context, from, to time.Time) ([]*records.Record, error) {
	return s.filter(func(r *records.Record) bool {
		open := r.Status == records.StatusPending || r.Status == records.StatusInProgress || r.Status == records.StatusFailed
		return open && !r.DueDate.Before(from) && r.DueDate.Before(to)
	}), nil
}

func (s *InMemoryStore) ListExpiringBetween(_ context.Context, from, to time.Time) ([]*records.Record, error) {
	return s.filter(func(r *records.Record) bool {
		return r.Status == records.StatusCompleted && r.ExpiryDate != nil &&
			!r.ExpiryDate.Before(from) && r.ExpiryDate.Before(to)
	}), nil
}

// Update stores rec when its version matches the stored one.
func (s *InMemoryStore) Update(_ context.Context, rec *records.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[rec.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != rec.Version {
		return sentinel.ErrStale
	}
	rec.Version++
	cp := *rec
	s.byID[rec.ID] = &cp
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[recordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byPair, pairKey{user: rec.UserID, training: rec.TrainingID})
	delete(s.byID, recordID)
	return nil
}

func (s *InMemoryStore) filter(keep func(*records.Record) bool) []*records.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*records.Record
	for _, r := range s.byID {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
