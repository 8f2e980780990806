package store

import (
	"context"
	"sync"
	"time"

	"qualify/internal/signature"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/sentinel"
)

// InMemoryStore is the append-only signature log in process memory.
type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[id.SignatureID]*signature.Signature
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[id.SignatureID]*signature.Signature)}
}

func (s *InMemoryStore) Append(_ context.Context, sig *signature.Signature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sig.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *sig
	s.byID[sig.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, signatureID id.SignatureID) (*signature.Signature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.byID[signatureID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *sig
	return &cp, nil
}

// Update always fails: signatures are append-only.
func (s *InMemoryStore) Update(_ context.Context, _ *signature.Signature) error {
	return dErrors.Wrap(sentinel.ErrImmutable, dErrors.CodeImmutable, "signatures are append-only")
}

// Delete always fails: signatures are append-only.
func (s *InMemoryStore) Delete(_ context.Context, _ id.SignatureID) error {
	return dErrors.Wrap(sentinel.ErrImmutable, dErrors.CodeImmutable, "signatures are append-only")
}

// InMemoryLockouts counts signer failures in process memory.
type InMemoryLockouts struct {
	mu      sync.Mutex
	records map[id.UserID]*signature.Lockout
}

func NewInMemoryLockouts() *InMemoryLockouts {
	return &InMemoryLockouts{records: make(map[id.UserID]*signature.Lockout)}
}

func (s *InMemoryLockouts) Get(_ context.Context, userID id.UserID) (*signature.Lockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemoryLockouts) RecordFailure(_ context.Context, userID id.UserID, now time.Time, window time.Duration) (*signature.Lockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok || now.Sub(rec.WindowStart) >= window {
		var lockedUntil *time.Time
		if ok {
			lockedUntil = rec.LockedUntil
		}
		rec = &signature.Lockout{UserID: userID, WindowStart: now, LockedUntil: lockedUntil}
		s.records[userID] = rec
	}
	rec.FailureCount++
	cp := *rec
	return &cp, nil
}

func (s *InMemoryLockouts) Lock(_ context.Context, userID id.UserID, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		rec = &signature.Lockout{UserID: userID, WindowStart: until}
		s.records[userID] = rec
	}
	rec.LockedUntil = &until
	return nil
}

func (s *InMemoryLockouts) Clear(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}
