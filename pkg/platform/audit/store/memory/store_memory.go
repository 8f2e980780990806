package memory

import (
	"context"
	"sort"
	"sync"

	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/platform/sentinel"
)

// InMemoryStore keeps audit entries in insertion order. Appending an entry
// whose ID is already present is a no-op so fallback replays stay idempotent.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
	seen    map[id.EntryID]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{seen: make(map[id.EntryID]struct{})}
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[entry.ID]; ok {
		return nil
	}
	s.seen[entry.ID] = struct{}{}
	s.entries = append(s.entries, entry)
	return nil
}

// Update always fails: entries are append-only.
func (s *InMemoryStore) Update(_ context.Context, _ audit.Entry) error {
	return dErrors.Wrap(sentinel.ErrImmutable, dErrors.CodeImmutable, "audit entries are append-only")
}

// Delete always fails: entries are append-only.
func (s *InMemoryStore) Delete(_ context.Context, _ id.EntryID) error {
	return dErrors.Wrap(sentinel.ErrImmutable, dErrors.CodeImmutable, "audit entries are append-only")
}

func (s *InMemoryStore) ListByRecord(_ context.Context, recordID id.RecordID) ([]audit.Entry, error) {
	return s.filter(func(e audit.Entry) bool { return e.Subject.RecordID == recordID }), nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Entry, error) {
	return s.filter(func(e audit.Entry) bool { return e.Subject.UserID == userID }), nil
}

// ListByType returns entries of one event type in insertion order.
func (s *InMemoryStore) ListByType(_ context.Context, t audit.EventType) ([]audit.Entry, error) {
	return s.filter(func(e audit.Entry) bool { return e.Type == t }), nil
}

// ListRecent returns the most recent N entries, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	all := append([]audit.Entry{}, s.entries...)
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Len returns the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemoryStore) filter(keep func(audit.Entry) bool) []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for _, e := range s.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
