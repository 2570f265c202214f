package upload

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

const table = "files"

var columns = []interface{}{
	"id", "owner_id", "patient_id", "file_name", "content_type", "size_bytes",
	"sha256", "storage_key", "created_at", "deleted_at",
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

func scanFile(row rowScanner) (*File, error) {
	var f File
	var patientID sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(
		&f.ID,
		&f.OwnerID,
		&patientID,
		&f.FileName,
		&f.ContentType,
		&f.SizeBytes,
		&f.SHA256,
		&f.StorageKey,
		&f.CreatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}
	if patientID.Valid {
		f.PatientID = &patientID.String
	}
	if deletedAt.Valid {
		f.DeletedAt = &deletedAt.Time
	}
	return &f, nil
}

func scanFiles(rows *sql.Rows) ([]File, error) {
	defer rows.Close()
	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, f *File) error {
	f.ID = uuid.New().String()
	f.CreatedAt = time.Now().UTC()

	query, args, err := r.goqu.Insert(table).Rows(goqu.Record{
		"id":           f.ID,
		"owner_id":     f.OwnerID,
		"patient_id":   f.PatientID,
		"file_name":    f.FileName,
		"content_type": f.ContentType,
		"size_bytes":   f.SizeBytes,
		"sha256":       f.SHA256,
		"storage_key":  f.StorageKey,
		"created_at":   f.CreatedAt,
	}).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// GetByID returns a file that has not been deleted.
func (r *Repository) GetByID(ctx context.Context, id string) (*File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrFileNotFound
	}
	query, args, err := r.goqu.Select(columns...).From(table).
		Where(goqu.Ex{"id": id, "deleted_at": nil}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	f, err := scanFile(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// ListByPatient returns the live files attached to a patient, newest first.
func (r *Repository) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]File, int, error) {
	scope := r.goqu.From(table).Where(goqu.Ex{"patient_id": patientID, "deleted_at": nil})

	countQuery, countArgs, err := scope.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count files: %w", err)
	}

	query, args, err := scope.Select(columns...).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list files: %w", err)
	}
	files, err := scanFiles(rows)
	if err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// SoftDelete marks a live file deleted. The blob stays until Purge.
func (r *Repository) SoftDelete(ctx context.Context, id string) error {
	query, args, err := r.goqu.Update(table).
		Set(goqu.Record{"deleted_at": time.Now().UTC()}).
		Where(goqu.Ex{"id": id, "deleted_at": nil}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if n == 0 {
		return ErrFileNotFound
	}
	return nil
}

// ListPurgeable returns files soft-deleted before the cutoff, oldest first.
func (r *Repository) ListPurgeable(ctx context.Context, before time.Time, limit int) ([]File, error) {
	query, args, err := r.goqu.Select(columns...).From(table).
		Where(goqu.C("deleted_at").Lt(before)).
		Order(goqu.C("deleted_at").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list purgeable files: %w", err)
	}
	return scanFiles(rows)
}

// Purge removes file rows for good, detaching them from chat messages first.
func (r *Repository) Purge(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	detach, detachArgs, err := r.goqu.Update("messages").
		Set(goqu.Record{"attachment_id": nil}).
		Where(goqu.Ex{"attachment_id": ids}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build detach query: %w", err)
	}
	del, delArgs, err := r.goqu.Delete(table).Where(goqu.Ex{"id": ids}).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, detach, detachArgs...); err != nil {
			return fmt.Errorf("failed to detach attachments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
			return fmt.Errorf("failed to purge files: %w", err)
		}
		return nil
	})
}
