package store

import (
	"context"
	"sort"
	"sync"

	"qualify/internal/training"
	id "qualify/pkg/domain"
	"qualify/pkg/platform/sentinel"
)

// InMemoryStore keeps the training catalog in process memory.
type InMemoryStore struct {
	mu        sync.RWMutex
	masters   map[id.MasterID]*training.Master
	trainings map[id.TrainingID]*training.Training
	codes     map[string]id.TrainingID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		masters:   make(map[id.MasterID]*training.Master),
		trainings: make(map[id.TrainingID]*training.Training),
		codes:     make(map[string]id.TrainingID),
	}
}

func (s *InMemoryStore) CreateMaster(_ context.Context, m *training.Master) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.masters {
		if existing.Code == m.Code {
			return sentinel.ErrConflict
		}
	}
	cp := *m
	s.masters[m.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindMaster(_ context.Context, masterID id.MasterID) (*training.Master, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.masters[masterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *InMemoryStore) Create(_ context.Context, t *training.Training) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[t.Code]; ok {
		return sentinel.ErrConflict
	}
	cp := *t
	s.trainings[t.ID] = &cp
	s.codes[t.Code] = t.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, trainingID id.TrainingID) (*training.Training, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trainings[trainingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *InMemoryStore) FindByCode(_ context.Context, code string) (*training.Training, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trainingID, ok := s.codes[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.trainings[trainingID]
	return &cp, nil
}

func (s *InMemoryStore) ListByMaster(_ context.Context, masterID id.MasterID) ([]*training.Training, error) {
	return s.filter(func(t *training.Training) bool { return t.MasterID == masterID }), nil
}

// List returns every training ordered by code.
func (s *InMemoryStore) List(_ context.Context) ([]*training.Training, error) {
	return s.filter(func(*training.Training) bool { return true }), nil
}

func (s *InMemoryStore) filter(keep func(*training.Training) bool) []*training.Training {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*training.Training
	for _, t := range s.trainings {
		if keep(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
