package realtime

import (
	"encoding/json"

	"chatter/internal/models"
	"chatter/pkg/logger"
)

// Outbound event names on the wire.
const (
	EventPresenceChanged   = "presence-changed"
	EventTyping            = "typing"
	EventStopTyping        = "stop-typing"
	EventNewMessage        = "newMessage"
	EventNotification      = "notification"
	EventMembershipChanged = "membership-changed"
)

// Inbound event names accepted from clients.
const (
	eventJoinRoom = "join-room"
)

type inboundEvent struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId"`
}

// PresenceEvent carries the full set of online identities.
type PresenceEvent struct {
	Type   string   `json:"type"`
	Online []string `json:"online"`
}

// TypingEvent is echoed to the other members of a room.
type TypingEvent struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// MessageEvent delivers a persisted message verbatim.
type MessageEvent struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message"`
}

// NotificationEvent is the suppressible unread-activity signal.
type NotificationEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	ChatID  string `json:"chatId"`
}

// MembershipEvent carries the updated chat entity, or a deletion marker
// when the chat no longer exists.
type MembershipEvent struct {
	Type    string       `json:"type"`
	Chat    *models.Chat `json:"chat,omitempty"`
	Deleted string       `json:"deleted,omitempty"`
}

func encodeEvent(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("Error marshaling event: %v", err)
		return nil
	}
	return data
}
