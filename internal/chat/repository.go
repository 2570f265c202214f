package chat

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const messageColumns = `m.id, m.sender_id, m.recipient_id, m.body, m.attachment_id, m.read_at, m.created_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner, extra ...interface{}) (*Message, error) {
	var m Message
	var attachmentID sql.NullString
	var readAt sql.NullTime
	dest := append([]interface{}{&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &attachmentID, &readAt, &m.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if attachmentID.Valid {
		m.AttachmentID = &attachmentID.String
	}
	if readAt.Valid {
		m.ReadAt = &readAt.Time
	}
	return &m, nil
}

func (r *Repository) Create(ctx context.Context, m *Message) error {
	m.ID = uuid.New().String()
	var attachment interface{}
	if m.AttachmentID != nil {
		attachment = *m.AttachmentID
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, sender_id, recipient_id, body, attachment_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		m.ID, m.SenderID, m.RecipientID, m.Body, attachment,
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListConversations returns one row per counterpart with the latest message
// and the number of unread messages from them, most recent first.
func (r *Repository) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH latest AS (
			SELECT DISTINCT ON (other_id) *
			FROM (
				SELECT CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS other_id, `+messageColumns+`
				FROM messages m
				WHERE m.sender_id = $1 OR m.recipient_id = $1
			) t
			ORDER BY other_id, created_at DESC
		)
		SELECT m.id, m.sender_id, m.recipient_id, m.body, m.attachment_id, m.read_at, m.created_at,
		       u.id, u.first_name, u.last_name, u.role,
		       (SELECT COUNT(*) FROM messages x
		        WHERE x.sender_id = m.other_id AND x.recipient_id = $1 AND x.read_at IS NULL)
		FROM latest m
		JOIN users u ON u.id = m.other_id
		ORDER BY m.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		m, err := scanMessage(rows, &c.UserID, &c.FirstName, &c.LastName, &c.Role, &c.UnreadCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		c.LastMessage = *m
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return out, nil
}

const pairFilter = `((m.sender_id = $1 AND m.recipient_id = $2) OR (m.sender_id = $2 AND m.recipient_id = $1))`

// ListMessages returns the messages exchanged by two users, newest first.
func (r *Repository) ListMessages(ctx context.Context, userID, otherID string, limit, offset int) ([]Message, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages m WHERE `+pairFilter, userID, otherID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE `+pairFilter+`
		ORDER BY m.created_at DESC
		LIMIT $3 OFFSET $4`, userID, otherID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating messages: %w", err)
	}
	return out, total, nil
}

// MarkConversationRead marks every unread message from otherID to userID read.
func (r *Repository) MarkConversationRead(ctx context.Context, userID, otherID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET read_at = NOW()
		WHERE recipient_id = $1 AND sender_id = $2 AND read_at IS NULL`, userID, otherID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return res.RowsAffected()
}

func (r *Repository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND read_at IS NULL`, userID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}
