package handlers

import (
	"net/http"

	"chat-gateway/internal/gateway"
	"chat-gateway/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	gw       *gateway.Gateway
	upgrader websocket.Upgrader
}

func NewWebSocketHandlers(gw *gateway.Gateway) *WebSocketHandlers {
	return &WebSocketHandlers{
		gw: gw,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket upgrades the connection and hands it to the gateway. The
// handshake token is optional: absent means anonymous, invalid means the
// gateway closes the transport immediately.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	if _, err := h.gw.Connect(conn, token); err != nil {
		// Connect already closed the transport; nothing to clean up.
		logger.Error("Handshake authentication failed: %v", err)
	}
}
