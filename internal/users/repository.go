package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medconnect/backend/internal/db"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone_number, role,
	specialty, license_number, date_of_birth, is_active, is_verified, two_factor_enabled,
	last_login_at, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u                         User
		phone, specialty, license sql.NullString
		dob, lastLogin, updatedAt sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &phone, &u.Role,
		&specialty, &license, &dob, &u.IsActive, &u.IsVerified, &u.TwoFactorEnabled,
		&lastLogin, &u.CreatedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		u.PhoneNumber = &phone.String
	}
	if specialty.Valid {
		u.Specialty = &specialty.String
	}
	if license.Valid {
		u.LicenseNumber = &license.String
	}
	if dob.Valid {
		s := dob.Time.Format("2006-01-02")
		u.DateOfBirth = &s
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	if updatedAt.Valid {
		u.UpdatedAt = &updatedAt.Time
	}
	return &u, nil
}

// Create inserts the user. Patients get an empty dossier in the same transaction.
func (r *Repository) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.CreatedAt = time.Now().UTC()

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, password_hash, first_name, last_name, phone_number, role,
				specialty, license_number, date_of_birth, is_active, is_verified, two_factor_enabled, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			u.ID, strings.ToLower(u.Email), u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber, u.Role,
			u.Specialty, u.LicenseNumber, u.DateOfBirth, u.IsActive, u.IsVerified, u.TwoFactorEnabled, u.CreatedAt,
		)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}

		if u.Role == "PATIENT" {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO dossiers (id, patient_id, created_at) VALUES ($1, $2, $3)`,
				uuid.New().String(), u.ID, u.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to create dossier: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("user_id", u.ID).Str("role", u.Role).Msg("created user")
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*User, error) {
	var updates []string
	var args []interface{}
	set := func(column string, value interface{}) {
		args = append(args, value)
		updates = append(updates, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.FirstName != nil {
		set("first_name", strings.TrimSpace(*req.FirstName))
	}
	if req.LastName != nil {
		set("last_name", strings.TrimSpace(*req.LastName))
	}
	if req.PhoneNumber != nil {
		set("phone_number", *req.PhoneNumber)
	}
	if req.Specialty != nil {
		set("specialty", *req.Specialty)
	}
	if req.DateOfBirth != nil {
		set("date_of_birth", *req.DateOfBirth)
	}
	if req.TwoFactorEnabled != nil {
		set("two_factor_enabled", *req.TwoFactorEnabled)
	}
	if len(updates) == 0 {
		return nil, ErrNoFieldsToUpdate
	}
	set("updated_at", time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d AND deleted_at IS NULL RETURNING %s`,
		strings.Join(updates, ", "), len(args), userColumns)

	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, "update password",
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`,
		passwordHash, id)
}

func (r *Repository) TouchLastLogin(ctx context.Context, id string) error {
	return r.execOne(ctx, "touch last login",
		`UPDATE users SET last_login_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	return r.execOne(ctx, "set active",
		`UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`,
		active, id)
}

func (r *Repository) MarkVerified(ctx context.Context, id string) error {
	return r.execOne(ctx, "verify doctor",
		`UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE id = $1 AND role = 'DOCTOR' AND deleted_at IS NULL`,
		id)
}

// SoftDelete marks the user deleted and deactivates it.
func (r *Repository) SoftDelete(ctx context.Context, id string) error {
	return r.execOne(ctx, "delete user",
		`UPDATE users SET deleted_at = NOW(), is_active = FALSE WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *Repository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, f ListFilter, limit, offset int) ([]User, int, error) {
	conds := []string{"deleted_at IS NULL"}
	var args []interface{}
	if f.Role != "" {
		args = append(args, f.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.Active != nil {
		args = append(args, *f.Active)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR email ILIKE $%[1]d)", len(args)))
	}
	return r.listWhere(ctx, strings.Join(conds, " AND "), args, "created_at DESC", limit, offset)
}

// ListDoctors returns verified, active doctors.
func (r *Repository) ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]User, int, error) {
	conds := []string{"deleted_at IS NULL", "role = 'DOCTOR'", "is_verified = TRUE", "is_active = TRUE"}
	var args []interface{}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR specialty ILIKE $%[1]d)", len(args)))
	}
	if s := strings.TrimSpace(f.Specialty); s != "" {
		args = append(args, s)
		conds = append(conds, fmt.Sprintf("LOWER(specialty) = LOWER($%d)", len(args)))
	}
	return r.listWhere(ctx, strings.Join(conds, " AND "), args, "last_name, first_name", limit, offset)
}

func (r *Repository) listWhere(ctx context.Context, where string, args []interface{}, orderBy string, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		userColumns, where, orderBy, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}
	return out, total, nil
}

func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE role = 'PATIENT'),
			COUNT(*) FILTER (WHERE role = 'DOCTOR'),
			COUNT(*) FILTER (WHERE role = 'ADMIN'),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE NOT is_active),
			COUNT(*) FILTER (WHERE role = 'DOCTOR' AND NOT is_verified)
		FROM users
		WHERE deleted_at IS NULL`,
	).Scan(&s.Patients, &s.Doctors, &s.Admins, &s.ActiveUsers, &s.InactiveUsers, &s.PendingDoctorVerifications)
	if err != nil {
		return nil, fmt.Errorf("failed to compute user stats: %w", err)
	}
	return &s, nil
}
