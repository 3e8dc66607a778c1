package realtime

import (
	"encoding/json"
	"testing"

	"chatter/internal/models"

	"github.com/stretchr/testify/require"
)

func newTestRouter() (*Router, *Presence, *Rooms) {
	presence := NewPresence()
	rooms := NewRooms()
	return NewRouter(presence, rooms), presence, rooms
}

// drain empties a client's send buffer and decodes each queued event.
func drain(t *testing.T, c *Client) []map[string]interface{} {
	t.Helper()
	var events []map[string]interface{}
	for {
		select {
		case data := <-c.send:
			var ev map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &ev))
			events = append(events, ev)
		default:
			return events
		}
	}
}

func eventTypes(events []map[string]interface{}) []string {
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev["type"].(string))
	}
	return types
}

func groupChat(id, name string, userIDs ...string) *models.Chat {
	chat := &models.Chat{ID: id, Name: name, IsGroup: true}
	for _, uid := range userIDs {
		chat.Users = append(chat.Users, &models.User{ID: uid})
	}
	return chat
}

func TestRouter_BindBroadcastsPresenceOnFirstConnectionOnly(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestRouter()

	u1 := newClient(nil, "u1")
	r.Bind(u1)

	events := drain(t, u1)
	req.Equal([]string{EventPresenceChanged}, eventTypes(events))
	req.Equal([]interface{}{"u1"}, events[0]["online"])

	// A second device for the same identity is not a presence transition
	u1b := newClient(nil, "u1")
	r.Bind(u1b)
	req.Empty(drain(t, u1))
	req.Empty(drain(t, u1b))

	// A different identity coming online reaches everyone
	u2 := newClient(nil, "u2")
	r.Bind(u2)
	events = drain(t, u1)
	req.Equal([]string{EventPresenceChanged}, eventTypes(events))
	req.Equal([]interface{}{"u1", "u2"}, events[0]["online"])
}

func TestRouter_DropBroadcastsWhenIdentityGoesOffline(t *testing.T) {
	req := require.New(t)
	r, presence, _ := newTestRouter()

	u1a := newClient(nil, "u1")
	u1b := newClient(nil, "u1")
	u2 := newClient(nil, "u2")
	r.Bind(u1a)
	r.Bind(u1b)
	r.Bind(u2)
	drain(t, u2)

	// First device going away is silent, the identity is still online
	r.Drop(u1a)
	req.Empty(drain(t, u2))
	req.True(presence.IsOnline("u1"))

	// Last device going away announces the shrunken set
	r.Drop(u1b)
	events := drain(t, u2)
	req.Equal([]string{EventPresenceChanged}, eventTypes(events))
	req.Equal([]interface{}{"u2"}, events[0]["online"])
}

func TestRouter_DropIsIdempotent(t *testing.T) {
	r, presence, rooms := newTestRouter()

	c := newClient(nil, "u1")
	r.Bind(c)
	r.JoinRoom(c, "chat-a")

	require.NotPanics(t, func() {
		r.Drop(c)
		r.Drop(c)
	})
	require.False(t, presence.IsOnline("u1"))
	require.Empty(t, rooms.MembersOf("chat-a"))
}

func TestRouter_DropOfNeverRegisteredConnectionIsNoOp(t *testing.T) {
	r, _, _ := newTestRouter()
	c := newClient(nil, "u1")

	require.NotPanics(t, func() { r.Drop(c) })
}

func TestRouter_TypingEchoesToRoomExceptSender(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestRouter()

	sender := newClient(nil, "u1")
	member := newClient(nil, "u2")
	outside := newClient(nil, "u3")
	for _, c := range []*Client{sender, member, outside} {
		r.Bind(c)
	}
	r.JoinRoom(sender, "chat-a")
	r.JoinRoom(member, "chat-a")
	drain(t, sender)
	drain(t, member)
	drain(t, outside)

	r.Typing(sender, "chat-a")
	r.StopTyping(sender, "chat-a")

	req.Empty(drain(t, sender))
	req.Empty(drain(t, outside))

	events := drain(t, member)
	req.Equal([]string{EventTyping, EventStopTyping}, eventTypes(events))
	req.Equal("chat-a", events[0]["chatId"])
	req.Equal("u1", events[0]["userId"])
}

func TestRouter_MessageSentTwoDeviceScenario(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestRouter()

	// U1 has two connections; only the first is viewing the chat
	c1 := newClient(nil, "u1")
	c2 := newClient(nil, "u1")
	sender := newClient(nil, "u2")
	for _, c := range []*Client{c1, c2, sender} {
		r.Bind(c)
	}
	r.JoinRoom(c1, "chat-a")
	drain(t, c1)
	drain(t, c2)
	drain(t, sender)

	chat := groupChat("chat-a", "book club", "u1", "u2")
	msg := &models.Message{ID: "m1", ChatID: "chat-a", SenderID: "u2", SenderName: "Uma", Text: "hi"}
	r.MessageSent(msg, chat)

	// The viewing device gets the message but no notification
	events := drain(t, c1)
	req.Equal([]string{EventNewMessage}, eventTypes(events))

	// The background device gets both
	events = drain(t, c2)
	req.Equal([]string{EventNewMessage, EventNotification}, eventTypes(events))
	req.Equal(`New message in "book club"`, events[1]["message"])
	req.Equal("chat-a", events[1]["chatId"])
}

func TestRouter_MessageSentNeverNotifiesTheActor(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestRouter()

	sender := newClient(nil, "u1")
	senderOther := newClient(nil, "u1")
	r.Bind(sender)
	r.Bind(senderOther)
	drain(t, sender)
	drain(t, senderOther)

	chat := groupChat("chat-a", "", "u1", "u2")
	chat.IsGroup = false
	r.MessageSent(&models.Message{ID: "m1", ChatID: "chat-a", SenderID: "u1", SenderName: "Ann"}, chat)

	// Sender devices see the message itself, never a notification
	req.Equal([]string{EventNewMessage}, eventTypes(drain(t, sender)))
	req.Equal([]string{EventNewMessage}, eventTypes(drain(t, senderOther)))
}

func TestRouter_MessageSentDirectChatNoticeNamesSender(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestRouter()

	other := newClient(nil, "u2")
	r.Bind(other)
	drain(t, other)

	chat := &models.Chat{ID: "chat-d", IsGroup: false, Users: []*models.User{{ID: "u1"}, {ID: "u2"}}}
	r.MessageSent(&models.Message{ID: "m1", ChatID: "chat-d", SenderID: "u1", SenderName: "Ann"}, chat)

	events := drain(t, other)
	req.Equal([]string{EventNewMessage, EventNotification}, eventTypes(events))
	req.Equal("New message from Ann", events[1]["message"])
}

func TestRouter_MessageSentWithNobodyOnlineIsANoOp(t *testing.T) {
	r, _, _ := newTestRouter()
	chat := groupChat("chat-a", "empty", "u1", "u2")

	require.NotPanics(t, func() {
		r.MessageSent(&models.Message{ID: "m1", ChatID: "chat-a", SenderID: "u1"}, chat)
	})
}

func TestRouter_MembershipChangedReachesPreMutationMembers(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestRouter()

	// Three members, one of them (the leaver) still connected
	leaver := newClient(nil, "u1")
	m2 := newClient(nil, "u2")
	m3 := newClient(nil, "u3")
	for _, c := range []*Client{leaver, m2, m3} {
		r.Bind(c)
	}
	drain(t, leaver)
	drain(t, m2)
	drain(t, m3)

	// Post-leave chat no longer lists u1; target set is the pre-leave roster
	after := groupChat("chat-a", "trio", "u2", "u3")
	r.MembershipChangedTo([]string{"u1", "u2", "u3"}, after, "u1", "trio: a member left the group")

	events := drain(t, leaver)
	req.Equal([]string{EventMembershipChanged}, eventTypes(events))

	for _, c := range []*Client{m2, m3} {
		events = drain(t, c)
		req.Equal([]string{EventMembershipChanged, EventNotification}, eventTypes(events))
	}
}

func TestRouter_MembershipChangedExceptSkipsGenericNotice(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestRouter()

	added := newClient(nil, "u3")
	existing := newClient(nil, "u2")
	r.Bind(added)
	r.Bind(existing)
	drain(t, added)
	drain(t, existing)

	chat := groupChat("chat-a", "trio", "u1", "u2", "u3")
	r.MembershipChanged(chat, "u1", "trio: a new member was added", "u3")

	// The added user gets the roster update but not the generic notice
	req.Equal([]string{EventMembershipChanged}, eventTypes(drain(t, added)))
	req.Equal([]string{EventMembershipChanged, EventNotification}, eventTypes(drain(t, existing)))
}

func TestRouter_MembershipChangedSuppressedForViewers(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestRouter()

	viewer := newClient(nil, "u2")
	r.Bind(viewer)
	r.JoinRoom(viewer, "chat-a")
	drain(t, viewer)

	chat := groupChat("chat-a", "trio", "u1", "u2")
	r.MembershipChanged(chat, "u1", "trio: a new member was added")

	// Roster update always lands; the notice is suppressed while viewing
	req.Equal([]string{EventMembershipChanged}, eventTypes(drain(t, viewer)))
}

func TestRouter_GroupDeletedMarksOnlineMembersOnly(t *testing.T) {
	req := require.New(t)
	r, _, rooms := newTestRouter()

	online1 := newClient(nil, "u1")
	online2 := newClient(nil, "u2")
	bystander := newClient(nil, "u9")
	for _, c := range []*Client{online1, online2, bystander} {
		r.Bind(c)
	}
	r.JoinRoom(online1, "chat-a")
	drain(t, online1)
	drain(t, online2)
	drain(t, bystander)

	// u3 is a member but offline; nothing is queued for it
	r.GroupDeleted("chat-a", []string{"u1", "u2", "u3"})

	for _, c := range []*Client{online1, online2} {
		events := drain(t, c)
		req.Equal([]string{EventMembershipChanged}, eventTypes(events))
		req.Equal("chat-a", events[0]["deleted"])
	}
	req.Empty(drain(t, bystander))
	req.Empty(rooms.MembersOf("chat-a"))
}

func TestRouter_NotifyIdentitySuppressedWhileViewing(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestRouter()

	viewing := newClient(nil, "u1")
	background := newClient(nil, "u1")
	r.Bind(viewing)
	r.Bind(background)
	r.JoinRoom(viewing, "chat-a")
	drain(t, viewing)
	drain(t, background)

	r.NotifyIdentity("u1", "chat-a", `You were added to group "trio"`)

	req.Empty(drain(t, viewing))
	events := drain(t, background)
	req.Equal([]string{EventNotification}, eventTypes(events))
	req.Equal(`You were added to group "trio"`, events[0]["message"])
}

func TestRouter_PerRoomOrderingIsPreserved(t *testing.T) {
	req := require.New(t)
	r, _, _ := newTestRouter()

	member := newClient(nil, "u2")
	r.Bind(member)
	r.JoinRoom(member, "chat-a")
	drain(t, member)

	chat := groupChat("chat-a", "ordered", "u1", "u2")
	for _, id := range []string{"m1", "m2", "m3"} {
		r.MessageSent(&models.Message{ID: id, ChatID: "chat-a", SenderID: "u1"}, chat)
	}

	events := drain(t, member)
	var ids []string
	for _, ev := range events {
		if ev["type"] == EventNewMessage {
			ids = append(ids, ev["message"].(map[string]interface{})["id"].(string))
		}
	}
	req.Equal([]string{"m1", "m2", "m3"}, ids)
}

func TestRouter_FullSendBufferIsAnImplicitDisconnect(t *testing.T) {
	req := require.New(t)
	r, presence, rooms := newTestRouter()

	stuck := newClient(nil, "u1")
	healthy := newClient(nil, "u2")
	r.Bind(stuck)
	r.Bind(healthy)
	r.JoinRoom(stuck, "chat-a")
	r.JoinRoom(healthy, "chat-a")

	// Simulate a peer that stopped draining its connection
	for i := 0; i < sendBufferSize; i++ {
		req.True(stuck.trySend([]byte("{}")))
	}

	chat := groupChat("chat-a", "busy", "u1", "u2")
	r.MessageSent(&models.Message{ID: "m1", ChatID: "chat-a", SenderID: "u2"}, chat)

	// The stuck connection was deregistered and unsubscribed, not errored
	req.False(presence.IsOnline("u1"))
	req.Equal([]*Client{healthy}, rooms.MembersOf("chat-a"))

	// The survivors heard about the presence change
	events := drain(t, healthy)
	types := eventTypes(events)
	req.Contains(types, EventNewMessage)
	req.Contains(types, EventPresenceChanged)
}

func TestRouter_AnonymousConnectionCannotJoinRooms(t *testing.T) {
	r, _, rooms := newTestRouter()

	anon := newClient(nil, "")
	r.JoinRoom(anon, "chat-a")

	require.Empty(t, rooms.MembersOf("chat-a"))
}
