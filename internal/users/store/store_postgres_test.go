package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualify/internal/users"
	id "qualify/pkg/domain"
	"qualify/pkg/platform/sentinel"
)

func TestPostgresStore_CreateConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})

	err = NewPostgres(db).Create(context.Background(), &users.User{
		ID:        id.NewUserID(),
		Email:     "dup@plant.example",
		Role:      id.RoleTrainee,
		CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewPostgres(db).FindByID(context.Background(), id.NewUserID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStore_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userID := id.NewUserID()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY email")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "role", "password_hash", "active", "created_at"}).
			AddRow(userID.String(), "a@plant.example", "A", "qa", "$2a$10$hash", true, time.Now()))

	got, err := NewPostgres(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, userID, got[0].ID)
	assert.Equal(t, id.RoleQA, got[0].Role)
}
