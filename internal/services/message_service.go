package services

import (
	"context"
	"fmt"

	"chatter/internal/database"
	"chatter/internal/models"
)

// MessageService persists messages and triggers live fan-out. Delivery is
// best effort: offline participants get nothing queued and catch up from
// history on their next fetch.
type MessageService struct {
	db     database.Database
	router EventRouter
}

func NewMessageService(db database.Database, router EventRouter) *MessageService {
	return &MessageService{db: db, router: router}
}

func (s *MessageService) SendMessage(ctx context.Context, userID, chatID string, req *models.SendMessageRequest) (*models.Message, error) {
	if req.Text == "" && req.ImageURL == "" {
		return nil, fmt.Errorf("message is empty")
	}

	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("chat not found")
	}

	member, err := s.db.IsChatMember(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, fmt.Errorf("not a member of this chat")
	}

	msg, err := s.db.SaveMessage(ctx, &models.Message{
		ChatID:   chatID,
		SenderID: userID,
		Text:     req.Text,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return nil, err
	}

	s.router.MessageSent(msg, chat)

	return msg, nil
}

func (s *MessageService) ListMessages(ctx context.Context, userID, chatID string) ([]*models.Message, error) {
	member, err := s.db.IsChatMember(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, fmt.Errorf("not a member of this chat")
	}

	return s.db.ListChatMessages(ctx, chatID)
}
