package db

import (
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := Init("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestRunMigrations_UpAndDown(t *testing.T) {
	database := openMemory(t)

	require.NoError(t, RunMigrations(database.DB, "sqlite"))

	version, err := Version(database.DB, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(5), version)

	require.NoError(t, MigrateDown(database.DB, "sqlite"))

	version, err = Version(database.DB, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(4), version)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	database := openMemory(t)
	require.NoError(t, RunMigrations(database.DB, "sqlite"))

	boom := errors.New("boom")
	err := InTx(database, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`INSERT INTO spaces (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
			"s1", "Garden", "garden", time.Now())
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, database.Get(&count, `SELECT COUNT(*) FROM spaces`))
	assert.Zero(t, count)
}
