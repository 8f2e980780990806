package store

import (
	"context"
	"sort"
	"sync"

	"qualify/internal/governance"
	"qualify/pkg/platform/sentinel"
)

// InMemoryStore keeps governance versions in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	versions map[int]*governance.Config
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{versions: make(map[int]*governance.Config)}
}

func (s *InMemoryStore) Append(_ context.Context, cfg *governance.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.versions[cfg.Version]; ok {
		return sentinel.ErrConflict
	}
	for _, v := range s.versions {
		v.IsActive = false
	}
	cp := *cfg
	cp.IsActive = true
	s.versions[cfg.Version] = &cp
	return nil
}

func (s *InMemoryStore) FindActive(_ context.Context) (*governance.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.versions {
		if v.IsActive {
			cp := *v
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByVersion(_ context.Context, version int) (*governance.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[version]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// List returns versions newest first.
func (s *InMemoryStore) List(_ context.Context) ([]*governance.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*governance.Config, 0, len(s.versions))
	for _, v := range s.versions {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}
