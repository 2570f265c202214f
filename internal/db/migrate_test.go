package db

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/002_messages.sql": {Data: []byte("CREATE TABLE messages (id UUID);")},
		"migrations/001_core.sql":     {Data: []byte("CREATE TABLE users (id UUID);")},
		"migrations/README.md":        {Data: []byte("ignored")},
		"migrations/notes.sql":        {Data: []byte("ignored, no version")},
	}
}

func TestLoadMigrations_SortedAndFiltered(t *testing.T) {
	m := &Migrator{files: testFS()}

	migs, err := m.LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, 1, migs[0].Version)
	assert.Equal(t, "001_core.sql", migs[0].Name)
	assert.Equal(t, 2, migs[1].Version)
}

func TestLoadMigrations_EmbeddedCoreSchema(t *testing.T) {
	m := NewMigrator(nil)

	migs, err := m.LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	assert.Equal(t, 1, migs[0].Version)
	assert.Contains(t, migs[0].SQL, "CREATE TABLE IF NOT EXISTS access_grants")
}

func TestUp_AppliesOnlyPending(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	m := &Migrator{db: sqlDB, files: testFS()}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, applied_at FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "applied_at"}).AddRow(1, time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE messages").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs(2, "002_messages.sql").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	count, err := m.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUp_RollsBackOnFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	m := &Migrator{db: sqlDB, files: testFS()}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, applied_at FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "applied_at"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE users").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	count, err := m.Up(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatus(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	m := &Migrator{db: sqlDB, files: testFS()}
	appliedAt := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, applied_at FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "applied_at"}).AddRow(1, appliedAt))

	statuses, err := m.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Applied)
	assert.Equal(t, appliedAt, *statuses[0].AppliedAt)
	assert.False(t, statuses[1].Applied)
}

func TestPQErrorHelpers(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsForeignKeyViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}
