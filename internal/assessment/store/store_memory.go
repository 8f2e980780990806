package store

import (
	"context"
	"sort"
	"sync"

	"qualify/internal/assessment"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/sentinel"
	txcontext "qualify/pkg/platform/tx"
)

// InMemoryStore holds assessments and their attempts behind one lock so the
// locked-config check and the write it guards cannot interleave with an
// attempt append.
type InMemoryStore struct {
	mu          sync.RWMutex
	byTraining  map[id.TrainingID]*assessment.Assessment
	attempts    map[id.RecordID][]*assessment.Attempt
	attemptKeys map[attemptKey]struct{}
	attempted   map[id.AssessmentID]bool
}

type attemptKey struct {
	record id.RecordID
	number int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byTraining:  make(map[id.TrainingID]*assessment.Assessment),
		attempts:    make(map[id.RecordID][]*assessment.Attempt),
		attemptKeys: make(map[attemptKey]struct{}),
		attempted:   make(map[id.AssessmentID]bool),
	}
}

func (s *InMemoryStore) Create(_ context.Context, a *assessment.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byTraining[a.TrainingID]; ok {
		return sentinel.ErrConflict
	}
	s.byTraining[a.TrainingID] = cloneAssessment(a)
	return nil
}

func (s *InMemoryStore) FindByTraining(_ context.Context, trainingID id.TrainingID) (*assessment.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byTraining[trainingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAssessment(a), nil
}

func (s *InMemoryStore) UpdateConfig(_ context.Context, a *assessment.Assessment) error {
	return s.mutate(a, func(cur *assessment.Assessment) {
		cur.PassPercentage = a.PassPercentage
		cur.MaxAttempts = a.MaxAttempts
		cur.UpdatedAt = a.UpdatedAt
	})
}

func (s *InMemoryStore) ReplaceQuestions(_ context.Context, a *assessment.Assessment) error {
	return s.mutate(a, func(cur *assessment.Assessment) {
		cur.Questions = cloneAssessment(a).Questions
		cur.GeneratedByAI = a.GeneratedByAI
		cur.UpdatedAt = a.UpdatedAt
	})
}

func (s *InMemoryStore) mutate(a *assessment.Assessment, apply func(cur *assessment.Assessment)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byTraining[a.TrainingID]
	if !ok || cur.ID != a.ID {
		return sentinel.ErrNotFound
	}
	if s.attempted[a.ID] {
		return sentinel.ErrImmutable
	}
	apply(cur)
	return nil
}

func (s *InMemoryStore) Append(ctx context.Context, attempt *assessment.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey{record: attempt.RecordID, number: attempt.Number}
	if _, ok := s.attemptKeys[key]; ok {
		return sentinel.ErrConflict
	}
	cp := *attempt
	cp.Answers = make(assessment.Answers, len(attempt.Answers))
	for k, v := range attempt.Answers {
		cp.Answers[k] = v
	}
	wasAttempted := s.attempted[attempt.AssessmentID]
	s.attemptKeys[key] = struct{}{}
	s.attempts[attempt.RecordID] = append(s.attempts[attempt.RecordID], &cp)
	s.attempted[attempt.AssessmentID] = true
	txcontext.OnRollback(ctx, func() { s.dropAttempt(key, attempt.ID, attempt.AssessmentID, wasAttempted) })
	return nil
}

func (s *InMemoryStore) dropAttempt(key attemptKey, attemptID id.AttemptID, assessmentID id.AssessmentID, wasAttempted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attemptKeys, key)
	kept := s.attempts[key.record][:0]
	for _, a := range s.attempts[key.record] {
		if a.ID != attemptID {
			kept = append(kept, a)
		}
	}
	s.attempts[key.record] = kept
	if !wasAttempted {
		delete(s.attempted, assessmentID)
	}
}

func (s *InMemoryStore) ListByRecord(_ context.Context, recordID id.RecordID) ([]*assessment.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*assessment.Attempt, 0, len(s.attempts[recordID]))
	for _, a := range s.attempts[recordID] {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *InMemoryStore) HasAttempts(_ context.Context, assessmentID id.AssessmentID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempted[assessmentID], nil
}

// Update always fails: attempts are append-only.
func (s *InMemoryStore) Update(_ context.Context, _ *assessment.Attempt) error {
	return dErrors.Wrap(sentinel.ErrImmutable, dErrors.CodeImmutable, "assessment attempts are append-only")
}

// Delete always fails: attempts are append-only.
func (s *InMemoryStore) Delete(_ context.Context, _ id.AttemptID) error {
	return dErrors.Wrap(sentinel.ErrImmutable, dErrors.CodeImmutable, "assessment attempts are append-only")
}

func cloneAssessment(a *assessment.Assessment) *assessment.Assessment {
	cp := *a
	cp.Questions = make([]assessment.Question, len(a.Questions))
	for i, q := range a.Questions {
		q.Options = append([]string(nil), q.Options...)
		cp.Questions[i] = q
	}
	return &cp
}
