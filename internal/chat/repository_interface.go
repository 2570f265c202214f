package chat

import "context"

// RepositoryInterface defines the contract for message persistence
type RepositoryInterface interface {
	Create(ctx context.Context, m *Message) error
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	ListMessages(ctx context.Context, userID, otherID string, limit, offset int) ([]Message, int, error)
	MarkConversationRead(ctx context.Context, userID, otherID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

var _ RepositoryInterface = (*Repository)(nil)
