// Package notificationtest provides a notification.Notifier that records
// calls for use in other packages' tests.
package notificationtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medconnect/backend/internal/notification"
)

type Recorder struct {
	mu     sync.Mutex
	Err    error
	inputs []notification.Input
}

func (r *Recorder) Notify(ctx context.Context, in notification.Input) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	r.inputs = append(r.inputs, in)
	return &notification.Notification{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Sent returns recorded inputs, optionally filtered by type ("" for all).
func (r *Recorder) Sent(notificationType string) []notification.Input {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Input
	for _, in := range r.inputs {
		if notificationType == "" || in.Type == notificationType {
			out = append(out, in)
		}
	}
	return out
}

var _ notification.Notifier = (*Recorder)(nil)
