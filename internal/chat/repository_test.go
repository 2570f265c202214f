package chat

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medconnect/backend/internal/testutil"
)

var messageCols = []string{"id", "sender_id", "recipient_id", "body", "attachment_id", "read_at", "created_at"}

func TestRepository_Create(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)
	att := "f1"

	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(sqlmock.AnyArg(), "p1", "d1", "hello", "f1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	m := &Message{SenderID: "p1", RecipientID: "d1", Body: "hello", AttachmentID: &att}
	require.NoError(t, repo.Create(context.Background(), m))
	assert.NotEmpty(t, m.ID)
}

func TestRepository_ListConversations(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (other_id)")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(append(messageCols, "uid", "first_name", "last_name", "role", "unread")).
			AddRow("m2", "d1", "p1", "see you", nil, nil, now, "d1", "Greg", "House", "DOCTOR", 2).
			AddRow("m1", "p1", "d2", "thanks", nil, now, now.Add(-time.Hour), "d2", "Lisa", "Cuddy", "DOCTOR", 0))

	list, err := repo.ListConversations(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "d1", list[0].UserID)
	assert.Equal(t, 2, list[0].UnreadCount)
	assert.Equal(t, "see you", list[0].LastMessage.Body)
	assert.NotNil(t, list[1].LastMessage.ReadAt)
}

func TestRepository_ListMessages(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery("SELECT COUNT").WithArgs("p1", "d1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY m.created_at DESC")).WithArgs("p1", "d1", 2, 0).
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow("m3", "d1", "p1", "c", nil, nil, time.Now()).
			AddRow("m2", "p1", "d1", "b", "f1", nil, time.Now().Add(-time.Minute)))

	list, total, err := repo.ListMessages(context.Background(), "p1", "d1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 2)
	assert.Equal(t, "f1", *list[1].AttachmentID)
}

func TestRepository_MarkConversationRead(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewRepository(db)

	mock.ExpectExec("UPDATE messages SET read_at").WithArgs("p1", "d1").WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.MarkConversationRead(context.Background(), "p1", "d1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
