package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"chatter/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	sendBufferSize = 256
)

// Client is one live websocket session. UserID is empty for anonymous
// connections, which are served but excluded from presence and rooms.
type Client struct {
	id        string
	userID    string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, userID string) *Client {
	return &Client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
}

func (c *Client) UserID() string {
	return c.userID
}

// trySend queues data without blocking. A false return means the peer is
// not draining its buffer and the connection should be treated as gone.
func (c *Client) trySend(data []byte) bool {
	if data == nil {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) readPump(g *Gateway) {
	defer func() {
		g.Disconnect(c)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			return
		}

		var ev inboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Debug("Dropping malformed event from %s: %v", c.id, err)
			continue
		}
		if ev.ChatID == "" {
			logger.Debug("Dropping %q event without chatId from %s", ev.Type, c.id)
			continue
		}

		switch ev.Type {
		case eventJoinRoom:
			g.router.JoinRoom(c, ev.ChatID)
		case EventTyping:
			g.router.Typing(c, ev.ChatID)
		case EventStopTyping:
			g.router.StopTyping(c, ev.ChatID)
		default:
			logger.Debug("Dropping unknown event %q from %s", ev.Type, c.id)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
