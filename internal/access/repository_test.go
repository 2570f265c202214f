package access

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medconnect/backend/internal/testutil"
)

var grantCols = []string{"id", "patient_id", "doctor_id", "level", "granted_at", "updated_at", "revoked_at"}

func TestRepository_Find(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM access_grants g")).
		WithArgs("p1", "d1").
		WillReturnRows(sqlmock.NewRows(grantCols).AddRow("g1", "p1", "d1", LevelEcriture, now, nil, nil))

	g, err := repo.Find(context.Background(), "p1", "d1")
	require.NoError(t, err)
	assert.Equal(t, "g1", g.ID)
	assert.True(t, g.CanWrite())
	assert.Nil(t, g.UpdatedAt)
}

func TestRepository_FindMissing(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery("FROM access_grants g").WithArgs("p1", "d1").WillReturnRows(sqlmock.NewRows(grantCols))

	_, err := repo.Find(context.Background(), "p1", "d1")
	assert.True(t, errors.Is(err, ErrGrantNotFound))
}

func TestRepository_BetweenNotConnected(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery("FROM access_grants g").WithArgs("a", "b").WillReturnRows(sqlmock.NewRows(grantCols))

	_, err := repo.Between(context.Background(), "a", "b")
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestRepository_ListForDoctorWithSearch(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT").WithArgs("d1", "%lee%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("ILIKE").WithArgs("d1", "%lee%", 20, 0).
		WillReturnRows(sqlmock.NewRows(append(grantCols, "uid", "first_name", "last_name", "email")).
			AddRow("g1", "p1", "d1", LevelLecture, now, nil, nil, "p1", "Ann", "Lee", "ann@example.com"))

	grants, total, err := repo.ListForDoctor(context.Background(), "d1", " lee ", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, grants, 1)
	require.NotNil(t, grants[0].Patient)
	assert.Equal(t, "Lee", grants[0].Patient.LastName)
}

func TestRepository_RevokeMissing(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	mock.ExpectExec("UPDATE access_grants SET revoked_at").WithArgs("p1", "d1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Revoke(context.Background(), "p1", "d1")
	assert.True(t, errors.Is(err, ErrGrantNotFound))
}

func TestUpsertGrant(t *testing.T) {
	db, mock := testutil.NewMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (patient_id, doctor_id)")).
		WithArgs("p1", "d1", LevelLecture).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, UpsertGrant(context.Background(), db, "p1", "d1", LevelLecture))
}

func TestUpsertGrant_InvalidLevel(t *testing.T) {
	db, _ := testutil.NewMockDB(t)
	err := UpsertGrant(context.Background(), db, "p1", "d1", "ADMIN")
	assert.True(t, errors.Is(err, ErrInvalidLevel))
}
