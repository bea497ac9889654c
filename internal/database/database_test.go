package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return &DB{DB: sqlx.NewDb(sqlDB, "sqlmock")}, mock
}

func TestRunMigrations(t *testing.T) {
	db, mock := newMockDB(t)

	t.Run("файл не найден", func(t *testing.T) {
		err := db.RunMigrations(filepath.Join(t.TempDir(), "missing.sql"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "файл миграций не найден")
	})

	t.Run("миграции применены", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "001.sql")
		require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE IF NOT EXISTS t (id TEXT)"), 0o600))

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS t").WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, db.RunMigrations(path))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHealthCheck(t *testing.T) {
	var nilDB *DB
	assert.Error(t, nilDB.HealthCheck())

	db, mock := newMockDB(t)
	mock.ExpectPing()

	assert.NoError(t, db.HealthCheck())
	assert.NoError(t, mock.ExpectationsWereMet())
}
