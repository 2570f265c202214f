package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
)

const table = "notifications"

type Repository struct {
	db   *sql.DB
	goqu *goqu.Database
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, goqu: goqu.New("postgres", db)}
}

func (r *Repository) Create(ctx context.Context, in Input) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New().String(),
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		CreatedAt: time.Now().UTC(),
	}
	if in.Body != "" {
		n.Body = &in.Body
	}
	if in.ReferenceID != "" {
		n.ReferenceID = &in.ReferenceID
	}

	query, args, err := r.goqu.Insert(table).Rows(goqu.Record{
		"id":           n.ID,
		"user_id":      n.UserID,
		"type":         n.Type,
		"title":        n.Title,
		"body":         n.Body,
		"reference_id": n.ReferenceID,
		"created_at":   n.CreatedAt,
	}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

func (r *Repository) userScope(userID string, f ListFilter) *goqu.SelectDataset {
	ds := r.goqu.From(table).Where(goqu.C("user_id").Eq(userID))
	if f.UnreadOnly {
		ds = ds.Where(goqu.C("read_at").IsNull())
	}
	return ds
}

func (r *Repository) List(ctx context.Context, userID string, f ListFilter, limit, offset int) ([]Notification, int, error) {
	total, err := r.userScope(userID, f).CountContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var out []Notification
	err = r.userScope(userID, f).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ScanStructsContext(ctx, &out)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, int(total), nil
}

func (r *Repository) CountUnread(ctx context.Context, userID string) (int, error) {
	n, err := r.userScope(userID, ListFilter{UnreadOnly: true}).CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return int(n), nil
}

// MarkRead is idempotent: an already read notification keeps its read_at.
func (r *Repository) MarkRead(ctx context.Context, userID, id string) error {
	query, args, err := r.goqu.Update(table).
		Set(goqu.Record{"read_at": goqu.L("COALESCE(read_at, NOW())")}).
		Where(goqu.C("id").Eq(id), goqu.C("user_id").Eq(userID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}
	return r.execOne(ctx, query, args...)
}

func (r *Repository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	query, args, err := r.goqu.Update(table).
		Set(goqu.Record{"read_at": goqu.L("NOW()")}).
		Where(goqu.C("user_id").Eq(userID), goqu.C("read_at").IsNull()).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build update query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	query, args, err := r.goqu.Delete(table).
		Where(goqu.C("id").Eq(id), goqu.C("user_id").Eq(userID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}
	return r.execOne(ctx, query, args...)
}

// PurgeRead deletes notifications read before the cutoff.
func (r *Repository) PurgeRead(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := r.goqu.Delete(table).
		Where(goqu.C("read_at").IsNotNull(), goqu.C("read_at").Lt(before)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build purge query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return res.RowsAffected()
}

func (r *Repository) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
