package services

import (
	"context"
	"testing"
	"time"

	"chatter/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func (db *fakeDB) SaveMessage(_ context.Context, msg *models.Message) (*models.Message, error) {
	saved := *msg
	saved.ID = uuid.NewString()
	saved.CreatedAt = time.Now()
	if sender, ok := db.users[msg.SenderID]; ok {
		saved.SenderName = sender.FullName
	}
	return &saved, nil
}

func (db *fakeDB) ListChatMessages(_ context.Context, chatID string) ([]*models.Message, error) {
	return nil, nil
}

func newTestMessageService() (*MessageService, *fakeDB, *recordingRouter) {
	db := newFakeDB(testUsers()...)
	router := &recordingRouter{}
	return NewMessageService(db, router), db, router
}

func TestMessageService_SendMessageFansOutAfterPersisting(t *testing.T) {
	req := require.New(t)
	svc, db, router := newTestMessageService()
	ctx := context.Background()

	chat, err := db.CreateGroupChat(ctx, "trio", "u1", []string{"u1", "u2", "u3"})
	req.NoError(err)

	msg, err := svc.SendMessage(ctx, "u2", chat.ID, &models.SendMessageRequest{Text: "hello"})
	req.NoError(err)
	req.NotEmpty(msg.ID)
	req.Equal("Ben", msg.SenderName)

	// Fan-out happened before SendMessage returned
	req.Len(router.calls, 1)
	req.Equal("message", router.calls[0].op)
	req.Equal(chat.ID, router.calls[0].chatID)
	req.Equal("u2", router.calls[0].actorID)
}

func TestMessageService_NonMemberCannotSend(t *testing.T) {
	req := require.New(t)
	svc, db, router := newTestMessageService()
	ctx := context.Background()

	chat, err := db.CreateGroupChat(ctx, "trio", "u1", []string{"u1", "u2", "u3"})
	req.NoError(err)

	_, err = svc.SendMessage(ctx, "u4", chat.ID, &models.SendMessageRequest{Text: "hello"})
	req.Error(err)
	req.Empty(router.calls)
}

func TestMessageService_EmptyMessageRejected(t *testing.T) {
	req := require.New(t)
	svc, db, _ := newTestMessageService()
	ctx := context.Background()

	chat, err := db.CreateGroupChat(ctx, "trio", "u1", []string{"u1", "u2"})
	req.NoError(err)

	_, err = svc.SendMessage(ctx, "u1", chat.ID, &models.SendMessageRequest{})
	req.Error(err)
}

func TestMessageService_NonMemberCannotListHistory(t *testing.T) {
	req := require.New(t)
	svc, db, _ := newTestMessageService()
	ctx := context.Background()

	chat, err := db.CreateGroupChat(ctx, "trio", "u1", []string{"u1", "u2"})
	req.NoError(err)

	_, err = svc.ListMessages(ctx, "u4", chat.ID)
	req.Error(err)
}
