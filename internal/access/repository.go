package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const grantColumns = `g.id, g.patient_id, g.doctor_id, g.level, g.granted_at, g.updated_at, g.revoked_at`

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGrant(row rowScanner, extra ...interface{}) (*Grant, error) {
	var g Grant
	var updatedAt, revokedAt sql.NullTime
	dest := append([]interface{}{&g.ID, &g.PatientID, &g.DoctorID, &g.Level, &g.GrantedAt, &updatedAt, &revokedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		g.UpdatedAt = &updatedAt.Time
	}
	if revokedAt.Valid {
		g.RevokedAt = &revokedAt.Time
	}
	return &g, nil
}

// Find returns the active grant from patientID to doctorID.
func (r *Repository) Find(ctx context.Context, patientID, doctorID string) (*Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants g
		WHERE g.patient_id = $1 AND g.doctor_id = $2 AND g.revoked_at IS NULL`,
		patientID, doctorID)
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get access grant: %w", err)
	}
	return g, nil
}

// Between returns the active grant linking two users in either direction.
func (r *Repository) Between(ctx context.Context, userA, userB string) (*Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants g
		WHERE g.revoked_at IS NULL
		  AND ((g.patient_id = $1 AND g.doctor_id = $2) OR (g.patient_id = $2 AND g.doctor_id = $1))`,
		userA, userB)
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get access grant: %w", err)
	}
	return g, nil
}

func (r *Repository) ListForPatient(ctx context.Context, patientID string) ([]Grant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+`, u.id, u.first_name, u.last_name, u.email, u.specialty
		FROM access_grants g
		JOIN users u ON u.id = g.doctor_id
		WHERE g.patient_id = $1 AND g.revoked_at IS NULL AND u.deleted_at IS NULL
		ORDER BY g.granted_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list access grants: %w", err)
	}
	defer rows.Close()

	var out []Grant
	for rows.Next() {
		var p Party
		var specialty sql.NullString
		g, err := scanGrant(rows, &p.ID, &p.FirstName, &p.LastName, &p.Email, &specialty)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access grant: %w", err)
		}
		if specialty.Valid {
			p.Specialty = &specialty.String
		}
		g.Doctor = &p
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating access grants: %w", err)
	}
	return out, nil
}

// ListForDoctor returns the doctor's patients with an active grant.
func (r *Repository) ListForDoctor(ctx context.Context, doctorID, search string, limit, offset int) ([]Grant, int, error) {
	where := `g.doctor_id = $1 AND g.revoked_at IS NULL AND u.deleted_at IS NULL`
	args := []interface{}{doctorID}
	if s := strings.TrimSpace(search); s != "" {
		args = append(args, "%"+s+"%")
		where += ` AND (u.first_name ILIKE $2 OR u.last_name ILIKE $2 OR u.email ILIKE $2)`
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM access_grants g JOIN users u ON u.id = g.patient_id WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s, u.id, u.first_name, u.last_name, u.email
		FROM access_grants g
		JOIN users u ON u.id = g.patient_id
		WHERE %s
		ORDER BY u.last_name, u.first_name
		LIMIT $%d OFFSET $%d`, grantColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var out []Grant
	for rows.Next() {
		var p Party
		g, err := scanGrant(rows, &p.ID, &p.FirstName, &p.LastName, &p.Email)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan patient: %w", err)
		}
		g.Patient = &p
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating patients: %w", err)
	}
	return out, total, nil
}

func (r *Repository) UpdateLevel(ctx context.Context, patientID, doctorID, level string) (*Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE access_grants g SET level = $3, updated_at = NOW()
		WHERE g.patient_id = $1 AND g.doctor_id = $2 AND g.revoked_at IS NULL
		RETURNING `+grantColumns, patientID, doctorID, level)
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update access level: %w", err)
	}
	return g, nil
}

func (r *Repository) Revoke(ctx context.Context, patientID, doctorID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_grants SET revoked_at = NOW(), updated_at = NOW()
		WHERE patient_id = $1 AND doctor_id = $2 AND revoked_at IS NULL`, patientID, doctorID)
	if err != nil {
		return fmt.Errorf("failed to revoke access: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke access: %w", err)
	}
	if n == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// UpsertGrant creates or reactivates the grant with level. It runs on the
// caller's transaction.
func UpsertGrant(ctx context.Context, q Execer, patientID, doctorID, level string) error {
	if !ValidLevel(level) {
		return ErrInvalidLevel
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO access_grants (patient_id, doctor_id, level, granted_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (patient_id, doctor_id)
		DO UPDATE SET level = EXCLUDED.level, granted_at = NOW(), updated_at = NOW(), revoked_at = NULL`,
		patientID, doctorID, level)
	if err != nil {
		return fmt.Errorf("failed to upsert access grant: %w", err)
	}
	return nil
}
