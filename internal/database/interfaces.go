package database

import (
	"context"
	"time"

	"clinic-chat/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, req *models.RegisterRequest, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SetUserPresence(ctx context.Context, id string, online bool, seenAt time.Time) error
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, req *models.CreateRoomRequest) (*models.Room, error)
	GetRoomByID(ctx context.Context, id string) (*models.Room, error)
	ListUserRooms(ctx context.Context, userID string) ([]*models.Room, error)
	UpdateRoom(ctx context.Context, id string, req *models.UpdateRoomRequest) (*models.Room, error)
	SetRoomStatus(ctx context.Context, id string, status models.RoomStatus) error
	FindPatientDoctorRoom(ctx context.Context, patientID, doctorID string) (*models.Room, error)
	TouchRoomActivity(ctx context.Context, id string, at time.Time) error
}

type MembershipRepository interface {
	AddMembership(ctx context.Context, roomID, userID string, role models.RoomRole) error
	RemoveMembership(ctx context.Context, roomID, userID string) error
	// GetMembership returns (nil, nil) when no row exists.
	GetMembership(ctx context.Context, roomID, userID string) (*models.Membership, error)
	GetRoomMembers(ctx context.Context, roomID string) ([]*models.Participant, error)
	CountRoomMembers(ctx context.Context, roomID string) (int, error)
	IncrementUnread(ctx context.Context, roomID, excludingUserID string) error
	MarkRead(ctx context.Context, roomID, userID string, at time.Time) error
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, roomID, senderID string, req *models.CreateMessageRequest) (*models.Message, error)
	// GetRoomMessage returns (nil, nil) when the message does not exist in the room.
	GetRoomMessage(ctx context.Context, roomID, messageID string) (*models.Message, error)
	GetMessageByID(ctx context.Context, messageID string) (*models.Message, error)
	ListRoomMessages(ctx context.Context, roomID string, page, limit int) ([]*models.Message, error)
	UpdateMessage(ctx context.Context, messageID, content string, at time.Time) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
}

type Database interface {
	UserRepository
	RoomRepository
	MembershipRepository
	MessageRepository
	Close() error
}
