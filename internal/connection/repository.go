package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medconnect/backend/internal/access"
	"github.com/medconnect/backend/internal/db"
)

const requestColumns = `c.id, c.patient_id, c.doctor_id, c.requested_by, c.requested_level, c.status, c.message, c.created_at, c.responded_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner, extra ...interface{}) (*Request, error) {
	var c Request
	var message sql.NullString
	var respondedAt sql.NullTime
	dest := append([]interface{}{
		&c.ID, &c.PatientID, &c.DoctorID, &c.RequestedBy, &c.RequestedLevel, &c.Status,
		&message, &c.CreatedAt, &respondedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if message.Valid {
		c.Message = &message.String
	}
	if respondedAt.Valid {
		c.RespondedAt = &respondedAt.Time
	}
	return &c, nil
}

func (r *Repository) GetParty(ctx context.Context, id string) (*Party, error) {
	var p Party
	var specialty sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, role, specialty, is_active, is_verified
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`, id,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Role, &specialty, &p.IsActive, &p.IsVerified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTargetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if specialty.Valid {
		p.Specialty = &specialty.String
	}
	return &p, nil
}

// Create inserts a pending request. The partial unique index on pending
// pairs turns a concurrent duplicate into ErrPendingExists.
func (r *Repository) Create(ctx context.Context, c *Request) error {
	c.ID = uuid.New().String()
	var message interface{}
	if c.Message != nil {
		message = *c.Message
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO connection_requests (id, patient_id, doctor_id, requested_by, requested_level, status, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		c.ID, c.PatientID, c.DoctorID, c.RequestedBy, c.RequestedLevel, StatusPending, message,
	).Scan(&c.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrPendingExists
	}
	if err != nil {
		return fmt.Errorf("failed to create connection request: %w", err)
	}
	c.Status = StatusPending
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Request, error) {
	c, err := scanRequest(r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM connection_requests c WHERE c.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection request: %w", err)
	}
	return c, nil
}

// HasPending reports whether the pair already has a pending request.
func (r *Repository) HasPending(ctx context.Context, patientID, doctorID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM connection_requests
			WHERE patient_id = $1 AND doctor_id = $2 AND status = $3
		)`, patientID, doctorID, StatusPending,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending requests: %w", err)
	}
	return exists, nil
}

// List returns requests involving userID, newest first, with both parties.
func (r *Repository) List(ctx context.Context, userID string, f ListFilter, limit, offset int) ([]Request, int, error) {
	where := `(c.patient_id = $1 OR c.doctor_id = $1)`
	args := []interface{}{userID}
	switch f.Direction {
	case DirectionIncoming:
		where += ` AND c.requested_by <> $1`
	case DirectionOutgoing:
		where += ` AND c.requested_by = $1`
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(` AND c.status = $%d`, len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM connection_requests c WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count connection requests: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s,
		       p.first_name, p.last_name, p.email,
		       d.first_name, d.last_name, d.email, d.specialty
		FROM connection_requests c
		JOIN users p ON p.id = c.patient_id
		JOIN users d ON d.id = c.doctor_id
		WHERE %s
		ORDER BY c.created_at DESC
		LIMIT $%d OFFSET $%d`, requestColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list connection requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var p, d Party
		var specialty sql.NullString
		c, err := scanRequest(rows,
			&p.FirstName, &p.LastName, &p.Email,
			&d.FirstName, &d.LastName, &d.Email, &specialty)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan connection request: %w", err)
		}
		p.ID, d.ID = c.PatientID, c.DoctorID
		if specialty.Valid {
			d.Specialty = &specialty.String
		}
		c.Patient, c.Doctor = &p, &d
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating connection requests: %w", err)
	}
	return out, total, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func transition(ctx context.Context, q queryRower, id, status string) (*Request, error) {
	c, err := scanRequest(q.QueryRowContext(ctx, `
		UPDATE connection_requests c SET status = $2, responded_at = NOW()
		WHERE c.id = $1 AND c.status = $3
		RETURNING `+requestColumns, id, status, StatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotPending
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update connection request: %w", err)
	}
	return c, nil
}

// Accept marks a pending request accepted and upserts the access grant in
// the same transaction.
func (r *Repository) Accept(ctx context.Context, id, level string) (*Request, error) {
	var accepted *Request
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		c, err := transition(ctx, tx, id, StatusAccepted)
		if err != nil {
			return err
		}
		if err := access.UpsertGrant(ctx, tx, c.PatientID, c.DoctorID, level); err != nil {
			return err
		}
		accepted = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// SetStatus moves a pending request to status.
func (r *Repository) SetStatus(ctx context.Context, id, status string) (*Request, error) {
	return transition(ctx, r.db, id, status)
}
