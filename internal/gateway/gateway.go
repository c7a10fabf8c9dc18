package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"clinic-chat/internal/auth"
	"clinic-chat/internal/models"
	"clinic-chat/internal/services"
	"clinic-chat/pkg/logger"
)

// Gateway turns the pool of websocket connections into a room-scoped
// messaging substrate: it authenticates connections, tracks room
// membership per connection and bridges chat actions into the durable
// services before fanning the results back out.
type Gateway struct {
	registry Registry
	router   *Router
	auth     *auth.Service
	rooms    *services.RoomService
	messages *services.MessageService
}

func New(registry Registry, router *Router, authService *auth.Service, rooms *services.RoomService, messages *services.MessageService) *Gateway {
	return &Gateway{
		registry: registry,
		router:   router,
		auth:     authService,
		rooms:    rooms,
		messages: messages,
	}
}

// Router exposes the fan-out surface for out-of-band notifications
// (direct-to-user delivery from HTTP handlers and background jobs).
func (g *Gateway) Router() *Router {
	return g.router
}

// TokenFromRequest extracts the bearer token from the upgrade request.
// Priority order: the "bearer" subprotocol pair (the way browser clients
// smuggle credentials, since they cannot set headers), the Authorization
// header, then the token query parameter.
func TokenFromRequest(r *http.Request) string {
	if proto := r.Header.Get("Sec-Websocket-Protocol"); proto != "" {
		parts := strings.Split(proto, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && parts[0] == "bearer" && parts[1] != "" {
			return parts[1]
		}
	}

	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

// HandleConnect runs the authentication handshake. On failure the client
// receives one error event and is closed; there is no retry.
func (g *Gateway) HandleConnect(ctx context.Context, c *Client, token string) error {
	if token == "" {
		return g.rejectConnection(c, "Authentication failed: no token provided")
	}

	claims, err := g.auth.ValidateToken(token)
	if err != nil {
		return g.rejectConnection(c, "Authentication failed: invalid or expired token")
	}

	user, err := g.auth.ResolveSubject(ctx, claims.Subject)
	if err != nil {
		return g.rejectConnection(c, "Authentication failed: user not found or inactive")
	}

	g.registry.Register(c, user.ID)
	g.registry.Subscribe(c, userScope(user.ID))

	g.router.ToConn(c, models.EventConnected, models.ConnectedPayload{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		Message: "Successfully connected to chat",
	})

	if g.registry.UserConnections(user.ID) == 1 {
		g.setPresence(ctx, user.ID, true)
	}

	logger.Info("User %s connected on %s", user.ID, c.id)
	return nil
}

// HandleDisconnect removes the connection. A handle that never finished
// the handshake has no registry entry; that is normal, not an error.
func (g *Gateway) HandleDisconnect(ctx context.Context, c *Client) {
	userID, ok := g.registry.Remove(c)
	if !ok {
		logger.Debug("Connection %s closed with no session", c.id)
		return
	}

	if g.registry.UserConnections(userID) == 0 {
		g.setPresence(ctx, userID, false)
	}

	logger.Info("User %s disconnected from %s", userID, c.id)
}

// Dispatch routes one inbound event to its handler. Events on unknown
// names are dropped.
func (g *Gateway) Dispatch(ctx context.Context, c *Client, env *models.Envelope) {
	switch env.Event {
	case models.EventJoinRoom:
		g.handleJoinRoom(ctx, c, env.Data)
	case models.EventLeaveRoom:
		g.handleLeaveRoom(ctx, c, env.Data)
	case models.EventSendMessage:
		g.handleSendMessage(ctx, c, env.Data)
	case models.EventTyping:
		g.handleTyping(ctx, c, env.Data)
	default:
		logger.Debug("Ignoring unknown event %q from %s", env.Event, c.id)
	}
}

func (g *Gateway) handleJoinRoom(ctx context.Context, c *Client, data json.RawMessage) {
	userID, ok := g.registry.UserID(c)
	if !ok {
		g.sendError(c, "User not authenticated")
		return
	}

	var req models.JoinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		g.sendError(c, "roomId is required")
		return
	}

	// The gate must allow the join before the room set is touched.
	if err := g.rooms.Authorize(ctx, req.RoomID, userID); err != nil {
		g.sendError(c, g.clientMessage("Join room", err))
		return
	}

	g.registry.JoinRoom(c, req.RoomID)

	g.router.ToRoom(req.RoomID, models.EventUserJoinedRoom, models.UserRoomEventPayload{
		UserID: userID,
		RoomID: req.RoomID,
	}, c)
	g.router.ToConn(c, models.EventJoinedRoom, models.RoomEventPayload{RoomID: req.RoomID})

	logger.Info("User %s joined room %s", userID, req.RoomID)
}

// handleLeaveRoom operates on the live connection's local set only; no
// membership check, since the underlying membership may already be gone.
func (g *Gateway) handleLeaveRoom(ctx context.Context, c *Client, data json.RawMessage) {
	userID, ok := g.registry.UserID(c)
	if !ok {
		g.sendError(c, "User not authenticated")
		return
	}

	var req models.LeaveRoomRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		g.sendError(c, "roomId is required")
		return
	}

	g.registry.LeaveRoom(c, req.RoomID)

	g.router.ToRoom(req.RoomID, models.EventUserLeftRoom, models.UserRoomEventPayload{
		UserID: userID,
		RoomID: req.RoomID,
	}, c)
	g.router.ToConn(c, models.EventLeftRoom, models.RoomEventPayload{RoomID: req.RoomID})

	logger.Info("User %s left room %s", userID, req.RoomID)
}

func (g *Gateway) handleSendMessage(ctx context.Context, c *Client, data json.RawMessage) {
	userID, ok := g.registry.UserID(c)
	if !ok {
		g.sendError(c, "User not authenticated")
		return
	}

	var req models.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		g.sendError(c, "roomId is required")
		return
	}

	msg, err := g.messages.CreateMessage(ctx, req.RoomID, userID, &models.CreateMessageRequest{
		Content:        req.Content,
		Type:           req.Type,
		ReplyToID:      req.ReplyToID,
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
	})
	if err != nil {
		g.sendError(c, g.clientMessage("Send message", err))
		return
	}

	// Room fan-out includes the sender: receiving its own message back
	// confirms persistence.
	g.router.ToRoom(req.RoomID, models.EventMessageReceived, msg, nil)
	g.router.ToConn(c, models.EventMessageSent, models.MessageSentPayload{MessageID: msg.ID})

	logger.Info("Message %s sent by %s in room %s", msg.ID, userID, req.RoomID)
}

// handleTyping is best effort end to end: unauthenticated senders are
// silently ignored and nothing here ever surfaces to the caller.
func (g *Gateway) handleTyping(_ context.Context, c *Client, data json.RawMessage) {
	userID, ok := g.registry.UserID(c)
	if !ok {
		return
	}

	var req models.TypingRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		logger.Debug("Dropping malformed typing event from %s", c.id)
		return
	}

	g.router.ToRoom(req.RoomID, models.EventUserTyping, models.UserTypingPayload{
		UserID:   userID,
		RoomID:   req.RoomID,
		IsTyping: req.IsTyping,
	}, c)
}

// setPresence triggers the durable online-flag write and the global
// presence broadcast. A failed write is logged and the broadcast still
// goes out; the registry remains the source of truth for liveness.
func (g *Gateway) setPresence(ctx context.Context, userID string, online bool) {
	if err := g.auth.SetOnline(ctx, userID, online); err != nil {
		logger.Error("Failed to update presence for %s: %v", userID, err)
	}

	g.router.Broadcast(models.EventUserOnline, models.UserOnlinePayload{
		UserID:   userID,
		IsOnline: online,
	})
}

func (g *Gateway) rejectConnection(c *Client, message string) error {
	g.sendError(c, message)
	c.Close()
	return fmt.Errorf("connection rejected: %s", message)
}

func (g *Gateway) sendError(c *Client, message string) {
	g.router.ToConn(c, models.EventError, models.ErrorPayload{Message: message})
}

// clientMessage maps a service failure to what the requester may see.
// Known classes pass through; anything else is internal and reported
// generically.
func (g *Gateway) clientMessage(op string, err error) string {
	switch {
	case errors.Is(err, services.ErrAccessDenied),
		errors.Is(err, services.ErrInsufficientPermission),
		errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrNotFound):
		return err.Error()
	default:
		logger.Error("%s error: %v", op, err)
		return "internal server error"
	}
}
