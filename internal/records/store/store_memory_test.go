package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualify/internal/records"
	id "qualify/pkg/domain"
	"qualify/pkg/platform/sentinel"
)

func newRecord(due time.Time) *records.Record {
	return &records.Record{
		ID:               id.NewRecordID(),
		UserID:           id.NewUserID(),
		TrainingID:       id.NewTrainingID(),
		Status:           records.StatusPending,
		AssignedAt:       due.AddDate(0, 0, -30),
		DueDate:          due,
		AssignmentSource: records.SourceManual,
		Version:          1,
	}
}

func TestInMemoryStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	rec := newRecord(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Create(ctx, rec))

	first, err := s.FindForUpdate(ctx, rec.ID)
	require.NoError(t, err)
	second, err := s.FindForUpdate(ctx, rec.ID)
	require.NoError(t, err)

	first.Status = records.StatusInProgress
	require.NoError(t, s.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Status = records.StatusOverdue
	assert.ErrorIs(t, s.Update(ctx, second), sentinel.ErrStale)

	got, err := s.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, records.StatusInProgress, got.Status)
}

func TestInMemoryStore_PairIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	rec := newRecord(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Create(ctx, rec))

	dup := newRecord(rec.DueDate)
	dup.UserID, dup.TrainingID = rec.UserID, rec.TrainingID
	assert.ErrorIs(t, s.Create(ctx, dup), sentinel.ErrConflict)

	require.NoError(t, s.Delete(ctx, rec.ID))
	assert.NoError(t, s.Create(ctx, dup))
}

func TestInMemoryStore_TimeWindows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	s := NewInMemoryStore()

	late := newRecord(now.Add(-time.Hour))
	soon := newRecord(now.AddDate(0, 0, 3))
	done := newRecord(now.AddDate(0, 0, -10))
	done.Status = records.StatusCompleted
	expiry := now
	done.ExpiryDate = &expiry
	for _, r := range []*records.Record{late, soon, done} {
		require.NoError(t, s.Create(ctx, r))
	}

	pastDue, err := s.ListPastDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, pastDue, 1)
	assert.Equal(t, late.ID, pastDue[0].ID)

	pastExpiry, err := s.ListPastExpiry(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, pastExpiry, "expiry instant itself is still valid")

	pastExpiry, err = s.ListPastExpiry(ctx, now.Add(time.Nanosecond))
	require.NoError(t, err)
	require.Len(t, pastExpiry, 1)
	assert.Equal(t, done.ID, pastExpiry[0].ID)

	dueSoon, err := s.ListDueBetween(ctx, now, now.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, dueSoon, 1)
	assert.Equal(t, soon.ID, dueSoon[0].ID)

	expiring, err := s.ListExpiringBetween(ctx, now.Add(-time.Minute), now.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Len(t, expiring, 1)
}
