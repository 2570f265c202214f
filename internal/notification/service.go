package notification

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medconnect/backend/internal/pagination"
)

// MetricsRecorder records created notifications.
type MetricsRecorder interface {
	RecordNotification(ctx context.Context, notificationType string)
}

type Service struct {
	repo        RepositoryInterface
	broadcaster Broadcaster
	metrics     MetricsRecorder
}

func NewService(repo RepositoryInterface, broadcaster Broadcaster, metrics MetricsRecorder) *Service {
	return &Service{repo: repo, broadcaster: broadcaster, metrics: metrics}
}

var _ Notifier = (*Service)(nil)

// Notify stores a notification and pushes it to live streams. A broadcast
// failure is logged; the stored notification is still returned.
func (s *Service) Notify(ctx context.Context, in Input) (*Notification, error) {
	if in.UserID == "" {
		return nil, ErrMissingUser
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrMissingTitle
	}

	n, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordNotification(ctx, n.Type)
	}
	if s.broadcaster != nil {
		if err := s.broadcaster.Publish(ctx, n); err != nil {
			log.Warn().Err(err).Str("user_id", n.UserID).Msg("failed to broadcast notification")
		}
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, userID string, f ListFilter, params pagination.Params) (*pagination.Page[Notification], error) {
	params.Validate()
	items, total, err := s.repo.List(ctx, userID, f, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, err
	}
	page := pagination.NewPage(items, params, total)
	return &page, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

// Subscribe opens a live stream of the user's new notifications.
func (s *Service) Subscribe(ctx context.Context, userID string) (<-chan *Notification, error) {
	if s.broadcaster == nil {
		return nil, ErrStreamBackend
	}
	return s.broadcaster.Subscribe(ctx, userID)
}

// PurgeRead removes read notifications older than retention.
func (s *Service) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.PurgeRead(ctx, time.Now().UTC().Add(-retention))
}
