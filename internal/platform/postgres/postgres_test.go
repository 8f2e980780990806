package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualify/internal/platform/postgres/migrations"
	"qualify/pkg/platform/sentinel"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, Translate(nil, "get record"))
	assert.ErrorIs(t, Translate(sql.ErrNoRows, "get record"), sentinel.ErrNotFound)
	assert.ErrorIs(t, Translate(&pq.Error{Code: "23505"}, "insert record"), sentinel.ErrConflict)

	other := errors.New("connection reset")
	err := Translate(other, "insert record")
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, sentinel.ErrConflict)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.FS.ReadDir(".")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_init.up.sql")
	assert.Contains(t, names, "000001_init.down.sql")
}
