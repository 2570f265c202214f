package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/medconnect/backend/internal/db"
)

const table = "appointments"

var columns = []interface{}{
	"id", "patient_id", "doctor_id", "requested_by", "scheduled_at", "duration_minutes",
	"reason", "location", "status", "cancel_reason", "created_at", "updated_at",
}

type Repository struct {
	db   *sql.DB
	goqu *goqu.Database
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, goqu: goqu.New("postgres", db)}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var a Appointment
	var reason, location, cancelReason sql.NullString
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.RequestedBy,
		&a.ScheduledAt,
		&a.DurationMinutes,
		&reason,
		&location,
		&a.Status,
		&cancelReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		a.Reason = &reason.String
	}
	if location.Valid {
		a.Location = &location.String
	}
	if cancelReason.Valid {
		a.CancelReason = &cancelReason.String
	}
	return &a, nil
}

func (r *Repository) Create(ctx context.Context, a *Appointment) error {
	now := time.Now().UTC()
	a.ID = uuid.New().String()
	a.CreatedAt, a.UpdatedAt = now, now

	query, args, err := r.goqu.Insert(table).Rows(goqu.Record{
		"id":               a.ID,
		"patient_id":       a.PatientID,
		"doctor_id":        a.DoctorID,
		"requested_by":     a.RequestedBy,
		"scheduled_at":     a.ScheduledAt,
		"duration_minutes": a.DurationMinutes,
		"reason":           a.Reason,
		"location":         a.Location,
		"status":           a.Status,
		"created_at":       a.CreatedAt,
		"updated_at":       a.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query, args, err := r.goqu.Select(columns...).From(table).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	a, err := scanAppointment(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

func (r *Repository) userScope(userID string, f ListFilter) *goqu.SelectDataset {
	ds := r.goqu.From(table).Where(goqu.Or(
		goqu.C("patient_id").Eq(userID),
		goqu.C("doctor_id").Eq(userID),
	))
	if f.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(f.Status))
	}
	if f.From != nil {
		ds = ds.Where(goqu.C("scheduled_at").Gte(*f.From))
	}
	if f.To != nil {
		ds = ds.Where(goqu.C("scheduled_at").Lt(*f.To))
	}
	return ds
}

// List returns the user's appointments in chronological order.
func (r *Repository) List(ctx context.Context, userID string, f ListFilter, limit, offset int) ([]Appointment, int, error) {
	countQuery, countArgs, err := r.userScope(userID, f).Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	query, args, err := r.userScope(userID, f).
		Select(columns...).
		Order(goqu.C("scheduled_at").Asc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan appointment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating appointments: %w", err)
	}
	return out, total, nil
}

func (r *Repository) transitionQuery(id, to string, from []string, cancelReason *string) (string, []interface{}, error) {
	record := goqu.Record{"status": to, "updated_at": time.Now().UTC()}
	if cancelReason != nil {
		record["cancel_reason"] = *cancelReason
	}
	return r.goqu.Update(table).
		Set(record).
		Where(goqu.C("id").Eq(id), goqu.C("status").In(from)).
		ToSQL()
}

// Transition moves the appointment to status `to` if it is currently in one
// of `from`.
func (r *Repository) Transition(ctx context.Context, id, to string, from []string, cancelReason *string) error {
	query, args, err := r.transitionQuery(id, to, from, cancelReason)
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}
	return execOne(r.db.ExecContext(ctx, query, args...))
}

func execOne(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Confirm checks the doctor's confirmed schedule for an overlap and confirms
// the appointment in one transaction. A per-doctor advisory lock serializes
// concurrent confirmations.
func (r *Repository) Confirm(ctx context.Context, a *Appointment) error {
	end := goqu.L("scheduled_at + make_interval(mins => duration_minutes)")
	overlapQuery, overlapArgs, err := r.goqu.From(table).
		Select(goqu.COUNT("*")).
		Where(
			goqu.C("doctor_id").Eq(a.DoctorID),
			goqu.C("status").Eq(StatusConfirmed),
			goqu.C("id").Neq(a.ID),
			goqu.C("scheduled_at").Lt(a.EndsAt()),
			end.Gt(a.ScheduledAt),
		).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build overlap query: %w", err)
	}
	updateQuery, updateArgs, err := r.transitionQuery(a.ID, StatusConfirmed, []string{StatusRequested}, nil)
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, a.DoctorID); err != nil {
			return fmt.Errorf("failed to lock doctor schedule: %w", err)
		}
		var overlapping int
		if err := tx.QueryRowContext(ctx, overlapQuery, overlapArgs...).Scan(&overlapping); err != nil {
			return fmt.Errorf("failed to check schedule: %w", err)
		}
		if overlapping > 0 {
			return ErrDoctorBusy
		}
		return execOne(tx.ExecContext(ctx, updateQuery, updateArgs...))
	})
}
