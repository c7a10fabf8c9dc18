package services

import (
	"context"
	"fmt"
	"time"

	"clinic-chat/internal/database"
	"clinic-chat/internal/models"
)

const (
	maxContentLength = 2000
	editWindow       = 15 * time.Minute
)

type MessageService struct {
	db   database.Database
	gate *RoomService
}

func NewMessageService(db database.Database, gate *RoomService) *MessageService {
	return &MessageService{db: db, gate: gate}
}

// CreateMessage persists one message and its side effects: the room's
// last-activity timestamp and the unread counter of every member except
// the sender. Nothing is persisted when any check fails.
func (s *MessageService) CreateMessage(ctx context.Context, roomID, senderID string, req *models.CreateMessageRequest) (*models.MessageResponse, error) {
	if err := s.gate.Authorize(ctx, roomID, senderID); err != nil {
		return nil, err
	}

	if req.Type == "" {
		req.Type = models.MessageTypeText
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: invalid message type %q", ErrValidation, req.Type)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrValidation)
	}
	if len(req.Content) > maxContentLength {
		return nil, fmt.Errorf("%w: message content exceeds %d characters", ErrValidation, maxContentLength)
	}

	if req.ReplyToID != "" {
		reply, err := s.db.GetRoomMessage(ctx, roomID, req.ReplyToID)
		if err != nil {
			return nil, fmt.Errorf("failed to check reply target: %w", err)
		}
		if reply == nil {
			return nil, fmt.Errorf("%w: reply message not found in this room", ErrValidation)
		}
	}

	sender, err := s.db.GetUserByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("%w: sender", ErrNotFound)
	}

	msg, err := s.db.CreateMessage(ctx, roomID, senderID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	msg.Sender = &models.MessageSender{
		ID:        sender.ID,
		FirstName: sender.FirstName,
		LastName:  sender.LastName,
		Role:      sender.Role,
	}

	if err := s.db.TouchRoomActivity(ctx, roomID, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to update room activity: %w", err)
	}
	if err := s.db.IncrementUnread(ctx, roomID, senderID); err != nil {
		return nil, fmt.Errorf("failed to update unread counts: %w", err)
	}

	return formatMessage(msg), nil
}

// GetRoomMessages returns one page of history, newest page first but
// oldest-first within the page, and resets the reader's unread counter.
func (s *MessageService) GetRoomMessages(ctx context.Context, roomID, userID string, page, limit int) ([]*models.MessageResponse, error) {
	if err := s.gate.Authorize(ctx, roomID, userID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	messages, err := s.db.ListRoomMessages(ctx, roomID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	if err := s.db.MarkRead(ctx, roomID, userID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to mark messages read: %w", err)
	}

	responses := make([]*models.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		responses = append(responses, formatMessage(msg))
	}
	return responses, nil
}

func (s *MessageService) UpdateMessage(ctx context.Context, messageID, userID string, req *models.UpdateMessageRequest) (*models.MessageResponse, error) {
	msg, err := s.db.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("%w: message", ErrNotFound)
	}

	if msg.SenderID != userID {
		return nil, fmt.Errorf("%w: you can only edit your own messages", ErrInsufficientPermission)
	}
	if time.Since(msg.CreatedAt) > editWindow {
		return nil, fmt.Errorf("%w: message is too old to edit", ErrValidation)
	}
	if req.Content == "" || len(req.Content) > maxContentLength {
		return nil, fmt.Errorf("%w: invalid message content", ErrValidation)
	}

	updated, err := s.db.UpdateMessage(ctx, messageID, req.Content, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	return formatMessage(updated), nil
}

func (s *MessageService) DeleteMessage(ctx context.Context, messageID, userID string) error {
	msg, err := s.db.GetMessageByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("%w: message", ErrNotFound)
	}

	if msg.SenderID != userID {
		return fmt.Errorf("%w: you can only delete your own messages", ErrInsufficientPermission)
	}

	return s.db.DeleteMessage(ctx, messageID)
}

func formatMessage(msg *models.Message) *models.MessageResponse {
	resp := &models.MessageResponse{
		ID:             msg.ID,
		Content:        msg.Content,
		Type:           msg.Type,
		RoomID:         msg.RoomID,
		ReplyToID:      msg.ReplyToID,
		AttachmentURL:  msg.AttachmentURL,
		AttachmentName: msg.AttachmentName,
		CreatedAt:      msg.CreatedAt,
		UpdatedAt:      msg.UpdatedAt,
		IsEdited:       msg.IsEdited,
	}
	if msg.Sender != nil {
		resp.Sender = *msg.Sender
	}
	return resp
}
