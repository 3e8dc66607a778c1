package services

import "chatter/internal/models"

// EventRouter is the slice of the realtime dispatch core the CRUD services
// drive. Satisfied by *realtime.Router.
type EventRouter interface {
	MessageSent(msg *models.Message, chat *models.Chat)
	MembershipChanged(chat *models.Chat, actorID, notice string, except ...string)
	MembershipChangedTo(memberIDs []string, chat *models.Chat, actorID, notice string, except ...string)
	GroupDeleted(chatID string, memberIDs []string)
	NotifyIdentity(identity, chatID, text string)
}
