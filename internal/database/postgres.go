package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-chat/internal/models"
	"clinic-chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &PostgresDB{pool: pool}
	if err := db.initSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Connected to database successfully")
	return db, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

func (db *PostgresDB) initSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'patient',
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			is_online BOOLEAN NOT NULL DEFAULT false,
			last_seen_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS chat_rooms (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description VARCHAR(500) NOT NULL DEFAULT '',
			type VARCHAR(30) NOT NULL DEFAULT 'patient_doctor',
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			is_private BOOLEAN NOT NULL DEFAULT false,
			last_message_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS user_rooms (
			room_id UUID NOT NULL REFERENCES chat_rooms(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role VARCHAR(20) NOT NULL DEFAULT 'participant',
			unread_count INT NOT NULL DEFAULT 0,
			last_read_at TIMESTAMPTZ,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (room_id, user_id)
		);
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			room_id UUID NOT NULL REFERENCES chat_rooms(id) ON DELETE CASCADE,
			sender_id UUID NOT NULL REFERENCES users(id),
			content VARCHAR(2000) NOT NULL,
			type VARCHAR(20) NOT NULL DEFAULT 'text',
			status VARCHAR(20) NOT NULL DEFAULT 'sent',
			reply_to_id UUID,
			attachment_url TEXT NOT NULL DEFAULT '',
			attachment_name TEXT NOT NULL DEFAULT '',
			is_edited BOOLEAN NOT NULL DEFAULT false,
			edited_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages (room_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_user_rooms_user ON user_rooms (user_id);`

	_, err := db.pool.Exec(ctx, schema)
	return err
}

// User Repository Implementation

func (db *PostgresDB) CreateUser(ctx context.Context, req *models.RegisterRequest, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (id, first_name, last_name, email, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'active')
		RETURNING id, first_name, last_name, email, role, status, is_online, last_seen_at, created_at, updated_at`

	user := &models.User{PasswordHash: passwordHash}
	err := db.pool.QueryRow(ctx, query, uuid.NewString(), req.FirstName, req.LastName, req.Email, passwordHash, req.Role).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Role, &user.Status,
		&user.IsOnline, &user.LastSeenAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, first_name, last_name, email, password_hash, role, status, is_online, last_seen_at, created_at, updated_at
		FROM users WHERE email = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash, &user.Role,
		&user.Status, &user.IsOnline, &user.LastSeenAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, first_name, last_name, email, password_hash, role, status, is_online, last_seen_at, created_at, updated_at
		FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash, &user.Role,
		&user.Status, &user.IsOnline, &user.LastSeenAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) SetUserPresence(ctx context.Context, id string, online bool, seenAt time.Time) error {
	query := `UPDATE users SET is_online = $2, last_seen_at = $3, updated_at = NOW() WHERE id = $1`
	_, err := db.pool.Exec(ctx, query, id, online, seenAt)
	return err
}

// Room Repository Implementation

func (db *PostgresDB) CreateRoom(ctx context.Context, req *models.CreateRoomRequest) (*models.Room, error) {
	query := `
		INSERT INTO chat_rooms (id, name, description, type, status, is_private)
		VALUES ($1, $2, $3, $4, 'active', $5)
		RETURNING id, name, description, type, status, is_private, last_message_at, created_at, updated_at`

	room := &models.Room{}
	err := db.pool.QueryRow(ctx, query, uuid.NewString(), req.Name, req.Description, req.Type, req.IsPrivate).Scan(
		&room.ID, &room.Name, &room.Description, &room.Type, &room.Status,
		&room.IsPrivate, &room.LastMessageAt, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	return room, nil
}

func (db *PostgresDB) GetRoomByID(ctx context.Context, id string) (*models.Room, error) {
	query := `
		SELECT id, name, description, type, status, is_private, last_message_at, created_at, updated_at
		FROM chat_rooms WHERE id = $1`

	room := &models.Room{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&room.ID, &room.Name, &room.Description, &room.Type, &room.Status,
		&room.IsPrivate, &room.LastMessageAt, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return room, nil
}

func (db *PostgresDB) ListUserRooms(ctx context.Context, userID string) ([]*models.Room, error) {
	query := `
		SELECT r.id, r.name, r.description, r.type, r.status, r.is_private, r.last_message_at, r.created_at, r.updated_at
		FROM chat_rooms r
		JOIN user_rooms ur ON r.id = ur.room_id
		WHERE ur.user_id = $1
		ORDER BY r.last_message_at DESC NULLS LAST, r.created_at DESC`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room := &models.Room{}
		if err := rows.Scan(&room.ID, &room.Name, &room.Description, &room.Type, &room.Status,
			&room.IsPrivate, &room.LastMessageAt, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (db *PostgresDB) UpdateRoom(ctx context.Context, id string, req *models.UpdateRoomRequest) (*models.Room, error) {
	query := `
		UPDATE chat_rooms
		SET name = COALESCE($2, name), description = COALESCE($3, description), updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, description, type, status, is_private, last_message_at, created_at, updated_at`

	room := &models.Room{}
	err := db.pool.QueryRow(ctx, query, id, req.Name, req.Description).Scan(
		&room.ID, &room.Name, &room.Description, &room.Type, &room.Status,
		&room.IsPrivate, &room.LastMessageAt, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return room, nil
}

func (db *PostgresDB) SetRoomStatus(ctx context.Context, id string, status models.RoomStatus) error {
	query := `UPDATE chat_rooms SET status = $2, updated_at = NOW() WHERE id = $1`
	_, err := db.pool.Exec(ctx, query, id, status)
	return err
}

func (db *PostgresDB) FindPatientDoctorRoom(ctx context.Context, patientID, doctorID string) (*models.Room, error) {
	query := `
		SELECT r.id, r.name, r.description, r.type, r.status, r.is_private, r.last_message_at, r.created_at, r.updated_at
		FROM chat_rooms r
		JOIN user_rooms ur1 ON r.id = ur1.room_id AND ur1.user_id = $1
		JOIN user_rooms ur2 ON r.id = ur2.room_id AND ur2.user_id = $2
		WHERE r.type = 'patient_doctor' AND r.status = 'active'
		LIMIT 1`

	room := &models.Room{}
	err := db.pool.QueryRow(ctx, query, patientID, doctorID).Scan(
		&room.ID, &room.Name, &room.Description, &room.Type, &room.Status,
		&room.IsPrivate, &room.LastMessageAt, &room.CreatedAt, &room.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return room, nil
}

func (db *PostgresDB) TouchRoomActivity(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE chat_rooms SET last_message_at = $2, updated_at = NOW() WHERE id = $1`
	_, err := db.pool.Exec(ctx, query, id, at)
	return err
}

// Membership Repository Implementation

func (db *PostgresDB) AddMembership(ctx context.Context, roomID, userID string, role models.RoomRole) error {
	query := `
		INSERT INTO user_rooms (room_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (room_id, user_id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, roomID, userID, role)
	return err
}

func (db *PostgresDB) RemoveMembership(ctx context.Context, roomID, userID string) error {
	query := `DELETE FROM user_rooms WHERE room_id = $1 AND user_id = $2`
	_, err := db.pool.Exec(ctx, query, roomID, userID)
	return err
}

func (db *PostgresDB) GetMembership(ctx context.Context, roomID, userID string) (*models.Membership, error) {
	query := `
		SELECT room_id, user_id, role, unread_count, last_read_at, joined_at
		FROM user_rooms WHERE room_id = $1 AND user_id = $2`

	m := &models.Membership{}
	err := db.pool.QueryRow(ctx, query, roomID, userID).Scan(
		&m.RoomID, &m.UserID, &m.Role, &m.UnreadCount, &m.LastReadAt, &m.JoinedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (db *PostgresDB) GetRoomMembers(ctx context.Context, roomID string) ([]*models.Participant, error) {
	query := `
		SELECT u.id, u.first_name, u.last_name, u.role, u.is_online
		FROM user_rooms ur
		JOIN users u ON ur.user_id = u.id
		WHERE ur.room_id = $1
		ORDER BY u.first_name, u.last_name`

	rows, err := db.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.Participant
	for rows.Next() {
		p := &models.Participant{}
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Role, &p.IsOnline); err != nil {
			return nil, err
		}
		members = append(members, p)
	}

	return members, rows.Err()
}

func (db *PostgresDB) CountRoomMembers(ctx context.Context, roomID string) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_rooms WHERE room_id = $1`, roomID).Scan(&count)
	return count, err
}

func (db *PostgresDB) IncrementUnread(ctx context.Context, roomID, excludingUserID string) error {
	query := `UPDATE user_rooms SET unread_count = unread_count + 1 WHERE room_id = $1 AND user_id != $2`
	_, err := db.pool.Exec(ctx, query, roomID, excludingUserID)
	return err
}

func (db *PostgresDB) MarkRead(ctx context.Context, roomID, userID string, at time.Time) error {
	query := `UPDATE user_rooms SET unread_count = 0, last_read_at = $3 WHERE room_id = $1 AND user_id = $2`
	_, err := db.pool.Exec(ctx, query, roomID, userID, at)
	return err
}

// Message Repository Implementation

const messageColumns = `
	m.id, m.room_id, m.sender_id, m.content, m.type, m.status, COALESCE(m.reply_to_id::text, ''),
	m.attachment_url, m.attachment_name, m.is_edited, m.edited_at, m.created_at, m.updated_at,
	u.id, u.first_name, u.last_name, u.role`

func scanMessage(row pgx.Row) (*models.Message, error) {
	msg := &models.Message{Sender: &models.MessageSender{}}
	err := row.Scan(
		&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Content, &msg.Type, &msg.Status, &msg.ReplyToID,
		&msg.AttachmentURL, &msg.AttachmentName, &msg.IsEdited, &msg.EditedAt, &msg.CreatedAt, &msg.UpdatedAt,
		&msg.Sender.ID, &msg.Sender.FirstName, &msg.Sender.LastName, &msg.Sender.Role,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (db *PostgresDB) CreateMessage(ctx context.Context, roomID, senderID string, req *models.CreateMessageRequest) (*models.Message, error) {
	query := `
		INSERT INTO messages (id, room_id, sender_id, content, type, status, reply_to_id, attachment_url, attachment_name)
		VALUES ($1, $2, $3, $4, $5, 'sent', NULLIF($6, '')::uuid, $7, $8)
		RETURNING id, created_at, updated_at`

	msg := &models.Message{
		RoomID:         roomID,
		SenderID:       senderID,
		Content:        req.Content,
		Type:           req.Type,
		Status:         models.MessageStatusSent,
		ReplyToID:      req.ReplyToID,
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
	}
	err := db.pool.QueryRow(ctx, query, uuid.NewString(), roomID, senderID, req.Content, req.Type,
		req.ReplyToID, req.AttachmentURL, req.AttachmentName).Scan(&msg.ID, &msg.CreatedAt, &msg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return msg, nil
}

func (db *PostgresDB) GetRoomMessage(ctx context.Context, roomID, messageID string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages m JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1 AND m.room_id = $2`

	msg, err := scanMessage(db.pool.QueryRow(ctx, query, messageID, roomID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (db *PostgresDB) GetMessageByID(ctx context.Context, messageID string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages m JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1`

	return scanMessage(db.pool.QueryRow(ctx, query, messageID))
}

func (db *PostgresDB) ListRoomMessages(ctx context.Context, roomID string, page, limit int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages m JOIN users u ON m.sender_id = u.id
		WHERE m.room_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.pool.Query(ctx, query, roomID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (db *PostgresDB) UpdateMessage(ctx context.Context, messageID, content string, at time.Time) (*models.Message, error) {
	query := `
		UPDATE messages SET content = $2, is_edited = true, edited_at = $3, updated_at = $3
		WHERE id = $1`

	if _, err := db.pool.Exec(ctx, query, messageID, content, at); err != nil {
		return nil, err
	}

	return db.GetMessageByID(ctx, messageID)
}

func (db *PostgresDB) DeleteMessage(ctx context.Context, messageID string) error {
	query := `DELETE FROM messages WHERE id = $1`
	_, err := db.pool.Exec(ctx, query, messageID)
	return err
}
