package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "qualify/pkg/domain"
)

func TestPostgresLockouts_RecordFailureRestartsExpiredWindow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userID := id.NewUserID()
	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO signature_lockouts")).
		WithArgs(sqlmock.AnyArg(), now, now.Add(-window)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "failure_count", "window_start", "locked_until"}).
			AddRow(userID.String(), 2, now.Add(-time.Minute), nil))

	rec, err := NewPostgresLockouts(db).RecordFailure(context.Background(), userID, now, window)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.FailureCount)
	assert.Nil(t, rec.LockedUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLockouts_GetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM signature_lockouts WHERE user_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	rec, err := NewPostgresLockouts(db).Get(context.Background(), id.NewUserID())
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestPostgresStore_SignaturesNeverTouchTheDatabaseOnMutation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgres(db)
	assert.Error(t, s.Update(context.Background(), nil))
	assert.Error(t, s.Delete(context.Background(), id.NewSignatureID()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
