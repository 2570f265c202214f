package users

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medconnect/backend/internal/testutil"
)

var userCols = []string{"id", "email", "password_hash", "first_name", "last_name", "phone_number", "role",
	"specialty", "license_number", "date_of_birth", "is_active", "is_verified", "two_factor_enabled",
	"last_login_at", "created_at", "updated_at"}

func TestRepository_CreatePatientAlsoCreatesDossier(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO dossiers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u := &User{Email: "Ann@Example.com", PasswordHash: "h", FirstName: "Ann", LastName: "Lee", Role: "PATIENT", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.NotEmpty(t, u.ID)
}

func TestRepository_CreateDoctorSkipsDossier(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u := &User{Email: "doc@example.com", Role: "DOCTOR"}
	require.NoError(t, repo.Create(context.Background(), u))
}

func TestRepository_CreateDuplicateEmail(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &User{Email: "dup@example.com", Role: "PATIENT"})
	assert.True(t, errors.Is(err, ErrEmailTaken))
}

func TestRepository_GetByEmail(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(email) = LOWER($1)")).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"u1", "ann@example.com", "hash", "Ann", "Lee", nil, "PATIENT",
			nil, nil, time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC), true, false, true,
			nil, now, nil,
		))

	u, err := repo.GetByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "hash", u.PasswordHash)
	require.NotNil(t, u.DateOfBirth)
	assert.Equal(t, "1990-05-01", *u.DateOfBirth)
	assert.Nil(t, u.PhoneNumber)
	assert.True(t, u.TwoFactorEnabled)
}

func TestRepository_GetByIDNotFound(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery("FROM users WHERE id").WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestRepository_UpdateProfileBuildsSetClause(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	first := " Ann "
	twoFA := true
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET first_name = $1, two_factor_enabled = $2, updated_at = $3 WHERE id = $4")).
		WithArgs("Ann", true, sqlmock.AnyArg(), "u1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"u1", "ann@example.com", "hash", "Ann", "Lee", nil, "PATIENT",
			nil, nil, nil, true, false, true, nil, time.Now(), time.Now(),
		))

	u, err := repo.UpdateProfile(context.Background(), "u1", UpdateProfileRequest{FirstName: &first, TwoFactorEnabled: &twoFA})
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.FirstName)
	assert.NotNil(t, u.UpdatedAt)
}

func TestRepository_SetActiveNotFound(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	mock.ExpectExec("UPDATE users SET is_active").WithArgs(false, "ghost").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), "ghost", false)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestRepository_ListDoctors(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND role = 'DOCTOR'")).
		WithArgs("%card%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("ORDER BY last_name, first_name LIMIT \\$2 OFFSET \\$3").
		WithArgs("%card%", 20, 0).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"d1", "doc@example.com", "hash", "Jean", "Dupont", nil, "DOCTOR",
			"Cardiology", "LIC-1", nil, true, true, false, nil, time.Now(), nil,
		))

	doctors, total, err := repo.ListDoctors(context.Background(), DoctorFilter{Search: "card"}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Cardiology", *doctors[0].Specialty)
}

func TestRepository_Stats(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery("COUNT\\(\\*\\) FILTER").
		WillReturnRows(sqlmock.NewRows([]string{"p", "d", "a", "act", "inact", "pending"}).AddRow(10, 4, 1, 14, 1, 2))

	s, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Patients: 10, Doctors: 4, Admins: 1, ActiveUsers: 14, InactiveUsers: 1, PendingDoctorVerifications: 2}, *s)
}
