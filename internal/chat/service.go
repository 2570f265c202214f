package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/medconnect/backend/internal/access"
	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/messaging"
	"github.com/medconnect/backend/internal/notification"
	"github.com/medconnect/backend/internal/pagination"
)

// GrantLookup finds the active access grant between two users.
type GrantLookup interface {
	ActiveGrant(ctx context.Context, userA, userB string) (*access.Grant, error)
}

// AttachmentChecker reports whether a stored file belongs to a user.
type AttachmentChecker interface {
	IsOwner(ctx context.Context, fileID, userID string) (bool, error)
}

// MetricsRecorder records sent messages.
type MetricsRecorder interface {
	RecordMessageSent(ctx context.Context, senderRole string)
}

const previewLength = 80

type Service struct {
	repo        RepositoryInterface
	grants      GrantLookup
	attachments AttachmentChecker
	notifier    notification.Notifier
	publisher   messaging.PublisherInterface
	metrics     MetricsRecorder
}

func NewService(repo RepositoryInterface, grants GrantLookup, attachments AttachmentChecker,
	notifier notification.Notifier, publisher messaging.PublisherInterface, metrics MetricsRecorder) *Service {
	return &Service{
		repo:        repo,
		grants:      grants,
		attachments: attachments,
		notifier:    notifier,
		publisher:   publisher,
		metrics:     metrics,
	}
}

// Send delivers a message to a counterpart connected through an active grant.
func (s *Service) Send(ctx context.Context, principal *auth.Principal, req SendRequest) (*Message, error) {
	req.RecipientID = strings.TrimSpace(req.RecipientID)
	if req.RecipientID == "" {
		return nil, ErrMissingRecipient
	}
	if req.RecipientID == principal.UserID {
		return nil, ErrSelfMessage
	}
	body := strings.TrimSpace(req.Body)
	if n := utf8.RuneCountInString(body); n == 0 || n > maxBodyLength {
		return nil, ErrInvalidBody
	}
	if _, err := s.grants.ActiveGrant(ctx, principal.UserID, req.RecipientID); err != nil {
		return nil, err
	}

	m := &Message{SenderID: principal.UserID, RecipientID: req.RecipientID, Body: body}
	if id := strings.TrimSpace(req.AttachmentID); id != "" {
		if s.attachments == nil {
			return nil, ErrAttachmentNotOwned
		}
		owned, err := s.attachments.IsOwner(ctx, id, principal.UserID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, ErrAttachmentNotOwned
		}
		m.AttachmentID = &id
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordMessageSent(ctx, principal.Role())
	}

	if s.notifier != nil {
		if _, err := s.notifier.Notify(ctx, notification.Input{
			UserID:      m.RecipientID,
			Type:        notification.TypeNewMessage,
			Title:       "New message",
			Body:        preview(m.Body),
			ReferenceID: m.SenderID,
		}); err != nil {
			log.Warn().Err(err).Str("recipient_id", m.RecipientID).Msg("failed to notify new message")
		}
	}
	messaging.Emit(ctx, s.publisher, messaging.EventMessageSent,
		messaging.NewEvent(messaging.EventMessageSent, messaging.MessageSentData{
			MessageID:   m.ID,
			SenderID:    m.SenderID,
			RecipientID: m.RecipientID,
			SentAt:      time.Now().UTC(),
		}))
	return m, nil
}

func preview(body string) string {
	if utf8.RuneCountInString(body) <= previewLength {
		return body
	}
	return string([]rune(body)[:previewLength]) + "…"
}

func (s *Service) Conversations(ctx context.Context, principal *auth.Principal) ([]Conversation, error) {
	list, err := s.repo.ListConversations(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Conversation{}
	}
	return list, nil
}

func (s *Service) Messages(ctx context.Context, principal *auth.Principal, otherID string, params pagination.Params) (*pagination.Page[Message], error) {
	params.Validate()
	list, total, err := s.repo.ListMessages(ctx, principal.UserID, otherID, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, err
	}
	page := pagination.NewPage(list, params, total)
	return &page, nil
}

func (s *Service) MarkRead(ctx context.Context, principal *auth.Principal, otherID string) (int64, error) {
	return s.repo.MarkConversationRead(ctx, principal.UserID, otherID)
}

func (s *Service) UnreadCount(ctx context.Context, principal *auth.Principal) (int, error) {
	return s.repo.CountUnread(ctx, principal.UserID)
}
