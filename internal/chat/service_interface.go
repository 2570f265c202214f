package chat

import (
	"context"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/pagination"
)

type ServiceInterface interface {
	Send(ctx context.Context, principal *auth.Principal, req SendRequest) (*Message, error)
	Conversations(ctx context.Context, principal *auth.Principal) ([]Conversation, error)
	Messages(ctx context.Context, principal *auth.Principal, otherID string, params pagination.Params) (*pagination.Page[Message], error)
	MarkRead(ctx context.Context, principal *auth.Principal, otherID string) (int64, error)
	UnreadCount(ctx context.Context, principal *auth.Principal) (int, error)
}

var _ ServiceInterface = (*Service)(nil)
