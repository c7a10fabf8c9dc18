package models

import "encoding/json"

// Event names exchanged over the websocket. The names and payload shapes
// are a compatibility contract; do not rename fields.
const (
	// Inbound
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventSendMessage = "send-message"
	EventTyping      = "typing"

	// Outbound
	EventConnected       = "connected"
	EventJoinedRoom      = "joined-room"
	EventLeftRoom        = "left-room"
	EventUserJoinedRoom  = "user-joined-room"
	EventUserLeftRoom    = "user-left-room"
	EventMessageReceived = "message-received"
	EventMessageSent     = "message-sent"
	EventUserTyping      = "user-typing"
	EventUserOnline      = "user-online"
	EventError           = "error"
)

// Envelope frames every websocket message in both directions. Outbound
// data always carries a router-added "timestamp" field.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
}

type LeaveRoomRequest struct {
	RoomID string `json:"roomId"`
}

type SendMessageRequest struct {
	RoomID         string      `json:"roomId"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	ReplyToID      string      `json:"replyToId,omitempty"`
	AttachmentURL  string      `json:"attachmentUrl,omitempty"`
	AttachmentName string      `json:"attachmentName,omitempty"`
}

type TypingRequest struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

type ConnectedPayload struct {
	UserID  string   `json:"userId"`
	Email   string   `json:"email"`
	Role    UserRole `json:"role"`
	Message string   `json:"message"`
}

type RoomEventPayload struct {
	RoomID string `json:"roomId"`
}

type UserRoomEventPayload struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

type MessageSentPayload struct {
	MessageID string `json:"messageId"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

type UserOnlinePayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
