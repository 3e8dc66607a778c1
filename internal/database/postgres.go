package database

import (
	"context"
	"errors"
	"fmt"

	"chatter/internal/models"
	"chatter/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// User Repository Implementation
func (db *PostgresDB) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (id, full_name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, full_name, email, COALESCE(profile_pic, ''), created_at`

	user := &models.User{}
	err = db.pool.QueryRow(ctx, query, uuid.NewString(), req.FullName, req.Email, string(hash)).Scan(
		&user.ID, &user.FullName, &user.Email, &user.ProfilePic, &user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, full_name, email, password_hash, COALESCE(profile_pic, '') AS profile_pic, created_at FROM users WHERE email = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.FullName, &user.Email, &user.PasswordHash, &user.ProfilePic, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, full_name, email, COALESCE(profile_pic, '') AS profile_pic, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.FullName, &user.Email, &user.ProfilePic, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) ListUsersExcept(ctx context.Context, userID string) ([]*models.User, error) {
	query := `SELECT id, full_name, email, COALESCE(profile_pic, '') AS profile_pic, created_at FROM users WHERE id <> $1 ORDER BY full_name`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.FullName, &user.Email, &user.ProfilePic, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Chat Repository Implementation
func (db *PostgresDB) FindDirectChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	query := `
		SELECT c.id FROM chats c
		WHERE c.is_group = FALSE
		  AND EXISTS (SELECT 1 FROM chat_members WHERE chat_id = c.id AND user_id = $1)
		  AND EXISTS (SELECT 1 FROM chat_members WHERE chat_id = c.id AND user_id = $2)`

	var chatID string
	err := db.pool.QueryRow(ctx, query, userA, userB).Scan(&chatID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return db.GetChatByID(ctx, chatID)
}

func (db *PostgresDB) CreateDirectChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	return db.createChat(ctx, "", false, "", []string{userA, userB})
}

func (db *PostgresDB) CreateGroupChat(ctx context.Context, name, adminID string, memberIDs []string) (*models.Chat, error) {
	return db.createChat(ctx, name, true, adminID, memberIDs)
}

func (db *PostgresDB) createChat(ctx context.Context, name string, isGroup bool, adminID string, memberIDs []string) (*models.Chat, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	chatID := uuid.NewString()
	query := `
		INSERT INTO chats (id, name, is_group, admin_id, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NOW(), NOW())`

	if _, err := tx.Exec(ctx, query, chatID, name, isGroup, adminID); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	for _, userID := range memberIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			chatID, userID); err != nil {
			return nil, fmt.Errorf("failed to add chat member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit chat: %w", err)
	}

	return db.GetChatByID(ctx, chatID)
}

func (db *PostgresDB) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	query := `
		SELECT id, COALESCE(name, ''), is_group, COALESCE(admin_id::text, ''), COALESCE(logo_url, ''), created_at, updated_at
		FROM chats WHERE id = $1`

	chat := &models.Chat{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&chat.ID, &chat.Name, &chat.IsGroup, &chat.AdminID, &chat.LogoURL, &chat.CreatedAt, &chat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	users, err := db.chatUsers(ctx, id)
	if err != nil {
		return nil, err
	}
	chat.Users = users

	return chat, nil
}

func (db *PostgresDB) chatUsers(ctx context.Context, chatID string) ([]*models.User, error) {
	query := `
		SELECT u.id, u.full_name, u.email, COALESCE(u.profile_pic, ''), u.created_at
		FROM users u
		JOIN chat_members m ON m.user_id = u.id
		WHERE m.chat_id = $1
		ORDER BY u.full_name`

	rows, err := db.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.FullName, &user.Email, &user.ProfilePic, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (db *PostgresDB) ListUserChats(ctx context.Context, userID string) ([]*models.Chat, error) {
	query := `
		SELECT c.id
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.updated_at DESC`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	chats := make([]*models.Chat, 0, len(ids))
	for _, id := range ids {
		chat, err := db.GetChatByID(ctx, id)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (db *PostgresDB) RenameChat(ctx context.Context, chatID, name string) error {
	_, err := db.pool.Exec(ctx, `UPDATE chats SET name = $2, updated_at = NOW() WHERE id = $1`, chatID, name)
	return err
}

func (db *PostgresDB) UpdateChatLogo(ctx context.Context, chatID, logoURL string) error {
	_, err := db.pool.Exec(ctx, `UPDATE chats SET logo_url = $2, updated_at = NOW() WHERE id = $1`, chatID, logoURL)
	return err
}

func (db *PostgresDB) SetChatAdmin(ctx context.Context, chatID, adminID string) error {
	_, err := db.pool.Exec(ctx, `UPDATE chats SET admin_id = $2, updated_at = NOW() WHERE id = $1`, chatID, adminID)
	return err
}

func (db *PostgresDB) AddChatMember(ctx context.Context, chatID, userID string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		chatID, userID)
	return err
}

func (db *PostgresDB) RemoveChatMember(ctx context.Context, chatID, userID string) error {
	_, err := db.pool.Exec(ctx,
		`DELETE FROM chat_members WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID)
	return err
}

func (db *PostgresDB) DeleteChat(ctx context.Context, chatID string) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE chat_id = $1`, chatID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chat_members WHERE chat_id = $1`, chatID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chats WHERE id = $1`, chatID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (db *PostgresDB) IsChatMember(ctx context.Context, chatID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM chat_members WHERE chat_id = $1 AND user_id = $2)`

	var exists bool
	if err := db.pool.QueryRow(ctx, query, chatID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Message Repository Implementation
func (db *PostgresDB) SaveMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (id, chat_id, sender_id, text, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, chat_id, sender_id, text, COALESCE(image_url, ''), created_at`

	saved := &models.Message{}
	err := db.pool.QueryRow(ctx, query, uuid.NewString(), msg.ChatID, msg.SenderID, msg.Text, msg.ImageURL).Scan(
		&saved.ID, &saved.ChatID, &saved.SenderID, &saved.Text, &saved.ImageURL, &saved.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	// Surface the chat in recency-sorted listings.
	if _, err := db.pool.Exec(ctx, `UPDATE chats SET updated_at = NOW() WHERE id = $1`, msg.ChatID); err != nil {
		logger.Error("Error touching chat %s: %v", msg.ChatID, err)
	}

	if err := db.pool.QueryRow(ctx, `SELECT full_name FROM users WHERE id = $1`, saved.SenderID).Scan(&saved.SenderName); err != nil {
		logger.Error("Error resolving sender name: %v", err)
	}

	return saved, nil
}

func (db *PostgresDB) ListChatMessages(ctx context.Context, chatID string) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.chat_id, m.sender_id, u.full_name, m.text, COALESCE(m.image_url, ''), m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.chat_id = $1
		ORDER BY m.created_at ASC`

	rows, err := db.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.SenderName, &msg.Text, &msg.ImageURL, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
