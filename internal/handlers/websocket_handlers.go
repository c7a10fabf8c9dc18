package handlers

import (
	"net/http"

	"clinic-chat/internal/gateway"
	"clinic-chat/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	gateway  *gateway.Gateway
	upgrader websocket.Upgrader
}

func NewWebSocketHandlers(gw *gateway.Gateway) *WebSocketHandlers {
	return &WebSocketHandlers{
		gateway: gw,
		upgrader: websocket.Upgrader{
			// Browser clients offer "bearer, <token>"; negotiate the
			// subprotocol so the handshake completes.
			Subprotocols: []string{"bearer"},
			CheckOrigin:  func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket upgrades the connection first, then runs the auth
// handshake over it, so rejections reach the client as an error event
// instead of an opaque HTTP status.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := gateway.TokenFromRequest(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := gateway.NewClient(conn)
	go client.WritePump()

	if err := h.gateway.HandleConnect(r.Context(), client, token); err != nil {
		logger.Warn("Handshake rejected for %s: %v", r.RemoteAddr, err)
		return
	}

	go client.ReadPump(h.gateway)
}
