package store

import (
	"context"
	"sort"
	"sync"

	"qualify/internal/certificate"
	id "qualify/pkg/domain"
	"qualify/pkg/platform/sentinel"
	txcontext "qualify/pkg/platform/tx"
)

type pairKey struct {
	user     id.UserID
	training id.TrainingID
}

// InMemoryStore keeps certificates in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*certificate.Certificate
	byPair map[pairKey]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[string]*certificate.Certificate),
		byPair: make(map[pairKey]string),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, c *certificate.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{user: c.UserID, training: c.TrainingID}
	if _, ok := s.byPair[key]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byID[c.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *c
	s.byID[c.ID] = &cp
	s.byPair[key] = c.ID
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byID, c.ID)
		delete(s.byPair, key)
	})
	return nil
}

func (s *InMemoryStore) FindByUserTraining(_ context.Context, userID id.UserID, trainingID id.TrainingID) (*certificate.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	certID, ok := s.byPair[pairKey{user: userID, training: trainingID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[certID]
	return &cp, nil
}

func (s *InMemoryStore) UpdateURL(_ context.Context, certificateID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[certificateID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.URL = url
	return nil
}

// ListWithoutURL returns certificates whose artifact was never rendered, oldest first.
func (s *InMemoryStore) ListWithoutURL(_ context.Context) ([]*certificate.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*certificate.Certificate
	for _, c := range s.byID {
		if c.URL == "" {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}
