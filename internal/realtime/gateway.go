package realtime

import (
	"chatter/pkg/logger"

	"github.com/gorilla/websocket"
)

// Gateway owns the realtime layer: the presence registry, the room tracker
// and the router, plus the lifecycle of every websocket connection. It is
// process-local; a multi-process deployment would need an external fan-out
// bus between routers, which is out of scope here.
type Gateway struct {
	presence *Presence
	rooms    *Rooms
	router   *Router
}

func NewGateway() *Gateway {
	presence := NewPresence()
	rooms := NewRooms()
	return &Gateway{
		presence: presence,
		rooms:    rooms,
		router:   NewRouter(presence, rooms),
	}
}

// Router exposes the dispatch core to the CRUD layer.
func (g *Gateway) Router() *Router {
	return g.router
}

// HandleConnection runs a freshly upgraded websocket until it disconnects.
// An empty userID means the handshake carried no resolvable identity; the
// connection is still served so it can be torn down cleanly, but it never
// appears in presence and cannot join rooms.
func (g *Gateway) HandleConnection(conn *websocket.Conn, userID string) {
	c := newClient(conn, userID)

	if userID == "" {
		logger.Debug("Anonymous connection %s accepted", c.id)
	} else {
		g.router.Bind(c)
		logger.Info("User %s connected (%s)", userID, c.id)
	}

	go c.writePump()
	c.readPump(g)
}

// Disconnect tears the connection down. Safe to call more than once.
func (g *Gateway) Disconnect(c *Client) {
	g.router.Drop(c)
	if c.userID != "" {
		logger.Info("User %s disconnected (%s)", c.userID, c.id)
	}
}
