package database

import (
	"context"

	"chatter/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsersExcept(ctx context.Context, userID string) ([]*models.User, error)
}

type ChatRepository interface {
	// FindDirectChat returns (nil, nil) when no direct chat exists between
	// the two users.
	FindDirectChat(ctx context.Context, userA, userB string) (*models.Chat, error)
	CreateDirectChat(ctx context.Context, userA, userB string) (*models.Chat, error)
	CreateGroupChat(ctx context.Context, name, adminID string, memberIDs []string) (*models.Chat, error)
	GetChatByID(ctx context.Context, id string) (*models.Chat, error)
	ListUserChats(ctx context.Context, userID string) ([]*models.Chat, error)
	RenameChat(ctx context.Context, chatID, name string) error
	UpdateChatLogo(ctx context.Context, chatID, logoURL string) error
	SetChatAdmin(ctx context.Context, chatID, adminID string) error
	AddChatMember(ctx context.Context, chatID, userID string) error
	RemoveChatMember(ctx context.Context, chatID, userID string) error
	DeleteChat(ctx context.Context, chatID string) error
	IsChatMember(ctx context.Context, chatID, userID string) (bool, error)
}

type MessageRepository interface {
	SaveMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	ListChatMessages(ctx context.Context, chatID string) ([]*models.Message, error)
}

type Database interface {
	UserRepository
	ChatRepository
	MessageRepository
	Close() error
}
