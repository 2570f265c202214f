package chat

import "time"

const maxBodyLength = 5000

type Message struct {
	ID           string     `json:"id"`
	SenderID     string     `json:"senderId"`
	RecipientID  string     `json:"recipientId"`
	Body         string     `json:"body"`
	AttachmentID *string    `json:"attachmentId,omitempty"`
	ReadAt       *time.Time `json:"readAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Conversation summarizes the exchange with one counterpart.
type Conversation struct {
	UserID      string  `json:"userId"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Role        string  `json:"role"`
	LastMessage Message `json:"lastMessage"`
	UnreadCount int     `json:"unreadCount"`
}

type SendRequest struct {
	RecipientID  string `json:"recipientId"`
	Body         string `json:"body"`
	AttachmentID string `json:"attachmentId,omitempty"`
}
