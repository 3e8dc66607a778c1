package models

import "time"

type Chat struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	IsGroup   bool      `json:"is_group"`
	AdminID   string    `json:"admin_id,omitempty"`
	LogoURL   string    `json:"logo_url,omitempty"`
	Users     []*User   `json:"users"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberIDs returns the IDs of the chat's current participants.
func (c *Chat) MemberIDs() []string {
	ids := make([]string, 0, len(c.Users))
	for _, u := range c.Users {
		ids = append(ids, u.ID)
	}
	return ids
}

type Message struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chat_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Text       string    `json:"text,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type DirectChatRequest struct {
	UserID string `json:"user_id"`
}

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	UserIDs []string `json:"user_ids"`
}

type RenameGroupRequest struct {
	Name string `json:"name"`
}

type UpdateLogoRequest struct {
	LogoURL string `json:"logo_url"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

type SendMessageRequest struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}
