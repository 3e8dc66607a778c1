package realtime

import (
	"fmt"
	"sync"

	"chatter/internal/models"
	"chatter/pkg/logger"

	"github.com/samber/lo"
)

// Router is the dispatch core. It is stateless over the presence registry
// and the room tracker; every public method is one synchronous dispatch
// step, serialized by a single mutex so that events for a room reach each
// target connection in processing order. Nothing here blocks on I/O, and
// nothing is queued for offline targets: a client that missed an event
// recovers by re-fetching persisted state.
type Router struct {
	mu       sync.Mutex
	presence *Presence
	rooms    *Rooms
}

func NewRouter(presence *Presence, rooms *Rooms) *Router {
	return &Router{
		presence: presence,
		rooms:    rooms,
	}
}

// Bind registers a connection's identity and announces the new presence set
// when the identity just came online.
func (r *Router) Bind(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.presence.Register(c) {
		r.broadcastPresenceLocked()
	}
}

// Drop tears a connection down: presence first, then room membership, in one
// step. Idempotent, so repeat teardown (read pump exit racing a failed send)
// is harmless.
func (r *Router) Drop(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(c)
}

// JoinRoom binds the connection to a room. Pure state update, no fan-out.
func (r *Router) JoinRoom(c *Client, roomID string) {
	if c.userID == "" {
		logger.Debug("Ignoring join-room from anonymous connection %s", c.id)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms.Join(c, roomID)
	logger.Debug("User %s viewing chat %s", c.userID, roomID)
}

// Typing echoes input activity to the other connections in the room.
func (r *Router) Typing(c *Client, roomID string) {
	r.echoTyping(c, roomID, EventTyping)
}

// StopTyping echoes the end of input activity to the other connections in
// the room.
func (r *Router) StopTyping(c *Client, roomID string) {
	r.echoTyping(c, roomID, EventStopTyping)
}

func (r *Router) echoTyping(c *Client, roomID, kind string) {
	if c.userID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data := encodeEvent(TypingEvent{Type: kind, ChatID: roomID, UserID: c.userID})
	var dead []*Client
	for _, member := range r.rooms.MembersOf(roomID) {
		if member == c {
			continue
		}
		if !member.trySend(data) {
			dead = append(dead, member)
		}
	}
	r.reapLocked(dead)
}

// MessageSent fans a freshly persisted message out: the raw message to every
// connection of every participant, and an unread-activity notification to
// the connections that are not viewing the chat, actor excepted.
func (r *Router) MessageSent(msg *models.Message, chat *models.Chat) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := encodeEvent(MessageEvent{Type: EventNewMessage, Message: msg})
	note := encodeEvent(NotificationEvent{
		Type:    EventNotification,
		Message: messageNotice(msg, chat),
		ChatID:  chat.ID,
	})

	var dead []*Client
	delivered := make(map[*Client]struct{})

	for _, c := range r.rooms.MembersOf(chat.ID) {
		delivered[c] = struct{}{}
		if !c.trySend(data) {
			dead = append(dead, c)
		}
	}

	for _, id := range chat.MemberIDs() {
		for _, c := range r.presence.ConnectionsFor(id) {
			viewing := r.rooms.RoomOf(c) == chat.ID
			if _, ok := delivered[c]; !ok {
				delivered[c] = struct{}{}
				if !c.trySend(data) {
					dead = append(dead, c)
					continue
				}
			}
			if ShouldNotify(id, msg.SenderID, viewing) {
				if !c.trySend(note) {
					dead = append(dead, c)
				}
			}
		}
	}
	r.reapLocked(dead)
}

// MembershipChanged broadcasts the updated chat to its current roster and,
// when notice is non-empty, fans out suppressible notifications. Identities
// listed in except get the chat update but never the generic notice (they
// usually receive a personal one via NotifyIdentity instead).
func (r *Router) MembershipChanged(chat *models.Chat, actorID, notice string, except ...string) {
	r.MembershipChangedTo(chat.MemberIDs(), chat, actorID, notice, except...)
}

// MembershipChangedTo is MembershipChanged with an explicit target identity
// set. Mutations that shrink the roster (leave, remove) pass the
// pre-mutation member set so departing users' clients can react too.
func (r *Router) MembershipChangedTo(memberIDs []string, chat *models.Chat, actorID, notice string, except ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := encodeEvent(MembershipEvent{Type: EventMembershipChanged, Chat: chat})
	note := encodeEvent(NotificationEvent{
		Type:    EventNotification,
		Message: notice,
		ChatID:  chat.ID,
	})

	var dead []*Client
	delivered := make(map[*Client]struct{})

	// The roster itself changed, so connections viewing the room always get
	// the update, even when their identity is no longer a participant.
	for _, c := range r.rooms.MembersOf(chat.ID) {
		delivered[c] = struct{}{}
		if !c.trySend(data) {
			dead = append(dead, c)
		}
	}

	for _, id := range memberIDs {
		for _, c := range r.presence.ConnectionsFor(id) {
			viewing := r.rooms.RoomOf(c) == chat.ID
			if _, ok := delivered[c]; !ok {
				delivered[c] = struct{}{}
				if !c.trySend(data) {
					dead = append(dead, c)
					continue
				}
			}
			if notice == "" || lo.Contains(except, id) {
				continue
			}
			if ShouldNotify(id, actorID, viewing) {
				if !c.trySend(note) {
					dead = append(dead, c)
				}
			}
		}
	}
	r.reapLocked(dead)
}

// GroupDeleted sends a deletion marker to every online connection of the
// pre-delete member set and drops the room. Offline members receive
// nothing; their clients learn of the deletion on the next fetch.
func (r *Router) GroupDeleted(chatID string, memberIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := encodeEvent(MembershipEvent{Type: EventMembershipChanged, Deleted: chatID})

	var dead []*Client
	delivered := make(map[*Client]struct{})

	for _, c := range r.rooms.MembersOf(chatID) {
		delivered[c] = struct{}{}
		if !c.trySend(data) {
			dead = append(dead, c)
		}
	}
	for _, id := range memberIDs {
		for _, c := range r.presence.ConnectionsFor(id) {
			if _, ok := delivered[c]; ok {
				continue
			}
			delivered[c] = struct{}{}
			if !c.trySend(data) {
				dead = append(dead, c)
			}
		}
	}

	r.rooms.Drop(chatID)
	r.reapLocked(dead)
}

// NotifyIdentity delivers a personal notification to every connection of
// one identity, subject to the suppression policy.
func (r *Router) NotifyIdentity(identity, chatID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	note := encodeEvent(NotificationEvent{
		Type:    EventNotification,
		Message: text,
		ChatID:  chatID,
	})

	var dead []*Client
	for _, c := range r.presence.ConnectionsFor(identity) {
		viewing := r.rooms.RoomOf(c) == chatID
		if !ShouldNotify(identity, "", viewing) {
			continue
		}
		if !c.trySend(note) {
			dead = append(dead, c)
		}
	}
	r.reapLocked(dead)
}

// dropLocked removes a connection from both shared structures and closes
// it. Presence first, then rooms, as one teardown step.
func (r *Router) dropLocked(c *Client) {
	if r.presence.Deregister(c) {
		r.broadcastPresenceLocked()
	}
	r.rooms.Leave(c)
	c.close()
}

// reapLocked handles connections whose send buffer was full: a send failure
// is an implicit disconnect, never an error surfaced to the actor.
func (r *Router) reapLocked(dead []*Client) {
	for _, c := range dead {
		logger.Debug("Dropping unresponsive connection %s (user %s)", c.id, c.userID)
		r.dropLocked(c)
	}
}

// broadcastPresenceLocked pushes the full online identity set to every
// bound connection. Send failures here are left for the pumps to notice;
// the next presence transition rebroadcasts a fresh set anyway.
func (r *Router) broadcastPresenceLocked() {
	data := encodeEvent(PresenceEvent{Type: EventPresenceChanged, Online: r.presence.Online()})
	for _, c := range r.presence.Clients() {
		c.trySend(data)
	}
}

func messageNotice(msg *models.Message, chat *models.Chat) string {
	if chat.IsGroup {
		return fmt.Sprintf("New message in %q", chat.Name)
	}
	return fmt.Sprintf("New message from %s", msg.SenderName)
}
