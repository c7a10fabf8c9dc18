package database

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"clinic-chat/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned by the in-memory store where postgres would
// report no rows.
var ErrNotFound = errors.New("record not found")

// MemoryDB is an in-process Database used by tests and local development.
// It mirrors the postgres implementation's contract, including the
// (nil, nil) convention for absent memberships and room messages.
type MemoryDB struct {
	mu          sync.RWMutex
	users       map[string]*models.User
	rooms       map[string]*models.Room
	memberships map[string]map[string]*models.Membership // roomID -> userID
	messages    map[string]*storedMessage
	msgSeq      int
}

type storedMessage struct {
	msg *models.Message
	seq int
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:       make(map[string]*models.User),
		rooms:       make(map[string]*models.Room),
		memberships: make(map[string]map[string]*models.Membership),
		messages:    make(map[string]*storedMessage),
	}
}

func (db *MemoryDB) Close() error { return nil }

// User Repository Implementation

func (db *MemoryDB) CreateUser(_ context.Context, req *models.RegisterRequest, passwordHash string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == req.Email {
			return nil, errors.New("duplicate email")
		}
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         req.Role,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	db.users[user.ID] = user

	out := *user
	return &out, nil
}

func (db *MemoryDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, u := range db.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (db *MemoryDB) GetUserByID(_ context.Context, id string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	u, ok := db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (db *MemoryDB) SetUserPresence(_ context.Context, id string, online bool, seenAt time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsOnline = online
	u.LastSeenAt = &seenAt
	u.UpdatedAt = time.Now()
	return nil
}

// SetUserStatus is a test hook for exercising inactive/suspended accounts.
func (db *MemoryDB) SetUserStatus(id string, status models.UserStatus) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if u, ok := db.users[id]; ok {
		u.Status = status
	}
}

// Room Repository Implementation

func (db *MemoryDB) CreateRoom(_ context.Context, req *models.CreateRoomRequest) (*models.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now()
	room := &models.Room{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Status:      models.RoomStatusActive,
		IsPrivate:   req.IsPrivate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	db.rooms[room.ID] = room

	out := *room
	return &out, nil
}

func (db *MemoryDB) GetRoomByID(_ context.Context, id string) (*models.Room, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	r, ok := db.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

func (db *MemoryDB) ListUserRooms(_ context.Context, userID string) ([]*models.Room, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var rooms []*models.Room
	for roomID, members := range db.memberships {
		if _, ok := members[userID]; !ok {
			continue
		}
		if r, ok := db.rooms[roomID]; ok {
			out := *r
			rooms = append(rooms, &out)
		}
	}

	sort.Slice(rooms, func(i, j int) bool {
		a, b := rooms[i].LastMessageAt, rooms[j].LastMessageAt
		switch {
		case a != nil && b != nil:
			return a.After(*b)
		case a != nil:
			return true
		case b != nil:
			return false
		default:
			return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
		}
	})
	return rooms, nil
}

func (db *MemoryDB) UpdateRoom(_ context.Context, id string, req *models.UpdateRoomRequest) (*models.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Name != nil {
		r.Name = *req.Name
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	r.UpdatedAt = time.Now()

	out := *r
	return &out, nil
}

func (db *MemoryDB) SetRoomStatus(_ context.Context, id string, status models.RoomStatus) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.rooms[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return nil
}

func (db *MemoryDB) FindPatientDoctorRoom(_ context.Context, patientID, doctorID string) (*models.Room, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for roomID, members := range db.memberships {
		r, ok := db.rooms[roomID]
		if !ok || r.Type != models.RoomTypePatientDoctor || r.Status != models.RoomStatusActive {
			continue
		}
		if _, p := members[patientID]; !p {
			continue
		}
		if _, d := members[doctorID]; !d {
			continue
		}
		out := *r
		return &out, nil
	}
	return nil, nil
}

func (db *MemoryDB) TouchRoomActivity(_ context.Context, id string, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.rooms[id]
	if !ok {
		return ErrNotFound
	}
	r.LastMessageAt = &at
	r.UpdatedAt = time.Now()
	return nil
}

// Membership Repository Implementation

func (db *MemoryDB) AddMembership(_ context.Context, roomID, userID string, role models.RoomRole) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	members, ok := db.memberships[roomID]
	if !ok {
		members = make(map[string]*models.Membership)
		db.memberships[roomID] = members
	}
	if _, exists := members[userID]; exists {
		return nil
	}
	members[userID] = &models.Membership{
		RoomID:   roomID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	return nil
}

func (db *MemoryDB) RemoveMembership(_ context.Context, roomID, userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if members, ok := db.memberships[roomID]; ok {
		delete(members, userID)
	}
	return nil
}

func (db *MemoryDB) GetMembership(_ context.Context, roomID, userID string) (*models.Membership, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if members, ok := db.memberships[roomID]; ok {
		if m, ok := members[userID]; ok {
			out := *m
			return &out, nil
		}
	}
	return nil, nil
}

func (db *MemoryDB) GetRoomMembers(_ context.Context, roomID string) ([]*models.Participant, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var members []*models.Participant
	for userID := range db.memberships[roomID] {
		u, ok := db.users[userID]
		if !ok {
			continue
		}
		members = append(members, &models.Participant{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      u.Role,
			IsOnline:  u.IsOnline,
		})
	}

	sort.Slice(members, func(i, j int) bool { return members[i].FirstName < members[j].FirstName })
	return members, nil
}

func (db *MemoryDB) CountRoomMembers(_ context.Context, roomID string) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.memberships[roomID]), nil
}

func (db *MemoryDB) IncrementUnread(_ context.Context, roomID, excludingUserID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for userID, m := range db.memberships[roomID] {
		if userID != excludingUserID {
			m.UnreadCount++
		}
	}
	return nil
}

func (db *MemoryDB) MarkRead(_ context.Context, roomID, userID string, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if members, ok := db.memberships[roomID]; ok {
		if m, ok := members[userID]; ok {
			m.UnreadCount = 0
			m.LastReadAt = &at
		}
	}
	return nil
}

// Message Repository Implementation

func (db *MemoryDB) CreateMessage(_ context.Context, roomID, senderID string, req *models.CreateMessageRequest) (*models.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	sender, ok := db.users[senderID]
	if !ok {
		return nil, ErrNotFound
	}

	now := time.Now()
	msg := &models.Message{
		ID:             uuid.NewString(),
		RoomID:         roomID,
		SenderID:       senderID,
		Content:        req.Content,
		Type:           req.Type,
		Status:         models.MessageStatusSent,
		ReplyToID:      req.ReplyToID,
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
		CreatedAt:      now,
		UpdatedAt:      now,
		Sender: &models.MessageSender{
			ID:        sender.ID,
			FirstName: sender.FirstName,
			LastName:  sender.LastName,
			Role:      sender.Role,
		},
	}
	db.msgSeq++
	db.messages[msg.ID] = &storedMessage{msg: msg, seq: db.msgSeq}

	out := *msg
	return &out, nil
}

func (db *MemoryDB) GetRoomMessage(_ context.Context, roomID, messageID string) (*models.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if s, ok := db.messages[messageID]; ok && s.msg.RoomID == roomID {
		out := *s.msg
		return &out, nil
	}
	return nil, nil
}

func (db *MemoryDB) GetMessageByID(_ context.Context, messageID string) (*models.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s, ok := db.messages[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s.msg
	return &out, nil
}

func (db *MemoryDB) ListRoomMessages(_ context.Context, roomID string, page, limit int) ([]*models.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var stored []*storedMessage
	for _, s := range db.messages {
		if s.msg.RoomID == roomID {
			stored = append(stored, s)
		}
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq > stored[j].seq })

	offset := (page - 1) * limit
	if offset >= len(stored) {
		return nil, nil
	}
	end := offset + limit
	if end > len(stored) {
		end = len(stored)
	}

	pageMsgs := stored[offset:end]
	messages := make([]*models.Message, 0, len(pageMsgs))
	// Reverse to show oldest first
	for i := len(pageMsgs) - 1; i >= 0; i-- {
		out := *pageMsgs[i].msg
		messages = append(messages, &out)
	}
	return messages, nil
}

func (db *MemoryDB) UpdateMessage(_ context.Context, messageID, content string, at time.Time) (*models.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.messages[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	s.msg.Content = content
	s.msg.IsEdited = true
	s.msg.EditedAt = &at
	s.msg.UpdatedAt = at

	out := *s.msg
	return &out, nil
}

func (db *MemoryDB) DeleteMessage(_ context.Context, messageID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.messages, messageID)
	return nil
}

// SetMessageCreatedAt is a test hook for backdating a message.
func (db *MemoryDB) SetMessageCreatedAt(id string, at time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if s, ok := db.messages[id]; ok {
		s.msg.CreatedAt = at
	}
}
