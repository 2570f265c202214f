package notification

import (
	"context"
	"time"
)

// RepositoryInterface defines the contract for notification storage
type RepositoryInterface interface {
	Create(ctx context.Context, in Input) (*Notification, error)
	List(ctx context.Context, userID string, f ListFilter, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	PurgeRead(ctx context.Context, before time.Time) (int64, error)
}

var _ RepositoryInterface = (*Repository)(nil)
