package handlers

import (
	"net/http"

	"chatter/internal/auth"
	"chatter/internal/realtime"
	"chatter/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService *auth.Service
	gateway     *realtime.Gateway
	upgrader    websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, gateway *realtime.Gateway, allowedOrigin string) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService: authService,
		gateway:     gateway,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return allowedOrigin == "*" || r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// HandleWebSocket upgrades the connection and binds it to the identity in
// the handshake token. A missing or invalid token is not fatal: the
// connection stays anonymous and simply never takes part in presence or
// rooms.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if token, err := requestToken(r); err == nil {
		user, err := h.authService.GetUserFromToken(r.Context(), token)
		if err != nil {
			logger.Warn("WebSocket handshake with invalid token: %v", err)
		} else {
			userID = user.ID
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	h.gateway.HandleConnection(conn, userID)
}
