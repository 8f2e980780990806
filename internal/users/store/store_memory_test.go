package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualify/internal/users"
	id "qualify/pkg/domain"
	"qualify/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	u := &users.User{ID: id.NewUserID(), Email: "x@plant.example", Role: id.RoleTrainee, Active: true}
	require.NoError(t, s.Create(ctx, u))
	assert.ErrorIs(t, s.Create(ctx, &users.User{ID: id.NewUserID(), Email: "x@plant.example"}), sentinel.ErrConflict)

	got, err := s.FindByEmail(ctx, "x@plant.example")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got.DisplayName = "mutated"
	again, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, again.DisplayName, "returned users are copies")

	_, err = s.FindByID(ctx, id.NewUserID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
