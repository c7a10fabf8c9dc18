package models

import "time"

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return true
	}
	return false
}

type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

type Message struct {
	ID             string        `json:"id"`
	RoomID         string        `json:"roomId"`
	SenderID       string        `json:"senderId"`
	Content        string        `json:"content"`
	Type           MessageType   `json:"type"`
	Status         MessageStatus `json:"status"`
	ReplyToID      string        `json:"replyToId,omitempty"`
	AttachmentURL  string        `json:"attachmentUrl,omitempty"`
	AttachmentName string        `json:"attachmentName,omitempty"`
	IsEdited       bool          `json:"isEdited"`
	EditedAt       *time.Time    `json:"editedAt,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`

	// Sender display fields, populated by queries that join the users table.
	Sender *MessageSender `json:"-"`
}

type MessageSender struct {
	ID        string   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Role      UserRole `json:"role"`
}

type CreateMessageRequest struct {
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	ReplyToID      string      `json:"replyToId,omitempty"`
	AttachmentURL  string      `json:"attachmentUrl,omitempty"`
	AttachmentName string      `json:"attachmentName,omitempty"`
}

type UpdateMessageRequest struct {
	Content string `json:"content"`
}

type MessageResponse struct {
	ID             string        `json:"id"`
	Content        string        `json:"content"`
	Type           MessageType   `json:"type"`
	Sender         MessageSender `json:"sender"`
	RoomID         string        `json:"roomId"`
	ReplyToID      string        `json:"replyToId,omitempty"`
	AttachmentURL  string        `json:"attachmentUrl,omitempty"`
	AttachmentName string        `json:"attachmentName,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	IsEdited       bool          `json:"isEdited"`
}
