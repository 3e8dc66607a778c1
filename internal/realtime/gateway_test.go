package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newWSServer(t *testing.T, g *Gateway) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		g.HandleConnection(conn, r.URL.Query().Get("uid"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?uid=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev map[string]interface{}
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestGateway_ConnectionLifecycle(t *testing.T) {
	req := require.New(t)
	g := NewGateway()
	srv := newWSServer(t, g)

	// First connection brings u1 online
	c1 := dialWS(t, srv, "u1")
	ev := readEvent(t, c1)
	req.Equal(EventPresenceChanged, ev["type"])
	req.Equal([]interface{}{"u1"}, ev["online"])

	// u2 joining is broadcast to everyone
	c2 := dialWS(t, srv, "u2")
	req.Equal([]interface{}{"u1", "u2"}, readEvent(t, c1)["online"])
	req.Equal([]interface{}{"u1", "u2"}, readEvent(t, c2)["online"])

	// Both join the same room; joins are acked only by state
	req.NoError(c1.WriteJSON(map[string]string{"type": "join-room", "chatId": "chat-a"}))
	req.NoError(c2.WriteJSON(map[string]string{"type": "join-room", "chatId": "chat-a"}))
	req.Eventually(func() bool {
		return len(g.rooms.MembersOf("chat-a")) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Typing echoes to the other member but not back to the sender
	req.NoError(c2.WriteJSON(map[string]string{"type": "typing", "chatId": "chat-a"}))
	ev = readEvent(t, c1)
	req.Equal(EventTyping, ev["type"])
	req.Equal("u2", ev["userId"])
	req.Equal("chat-a", ev["chatId"])

	// Disconnect takes u2 offline and cleans up its room subscription
	c2.Close()
	ev = readEvent(t, c1)
	req.Equal(EventPresenceChanged, ev["type"])
	req.Equal([]interface{}{"u1"}, ev["online"])
	req.Eventually(func() bool {
		return len(g.rooms.MembersOf("chat-a")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGateway_AnonymousConnectionIsServedButExcluded(t *testing.T) {
	req := require.New(t)
	g := NewGateway()
	srv := newWSServer(t, g)

	anon := dialWS(t, srv, "")

	// No presence broadcast for an anonymous peer, and no room membership
	req.NoError(anon.WriteJSON(map[string]string{"type": "join-room", "chatId": "chat-a"}))

	observer := dialWS(t, srv, "u1")
	req.Equal([]interface{}{"u1"}, readEvent(t, observer)["online"])
	req.Empty(g.rooms.MembersOf("chat-a"))

	// Tearing it down is clean
	req.NoError(anon.Close())
}

func TestGateway_MalformedEventsAreDropped(t *testing.T) {
	req := require.New(t)
	g := NewGateway()
	srv := newWSServer(t, g)

	c1 := dialWS(t, srv, "u1")
	readEvent(t, c1)

	// Garbage, missing chatId, unknown type: none of these kill the router
	req.NoError(c1.WriteMessage(websocket.TextMessage, []byte("not json")))
	req.NoError(c1.WriteJSON(map[string]string{"type": "join-room"}))
	req.NoError(c1.WriteJSON(map[string]string{"type": "self-destruct", "chatId": "chat-a"}))

	// The connection is still alive and functional afterwards
	req.NoError(c1.WriteJSON(map[string]string{"type": "join-room", "chatId": "chat-b"}))
	req.Eventually(func() bool {
		return len(g.rooms.MembersOf("chat-b")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
