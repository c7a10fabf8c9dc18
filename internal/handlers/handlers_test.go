package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-chat/internal/auth"
	"clinic-chat/internal/config"
	"clinic-chat/internal/database"
	"clinic-chat/internal/models"
	"clinic-chat/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	db       *database.MemoryDB
	auth     *AuthHandlers
	rooms    *RoomHandlers
	messages *MessageHandlers
	authSvc  *auth.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := database.NewMemoryDB()
	cfg := &config.Config{JWT: config.JWTConfig{Secret: []byte("test-secret"), ExpiresIn: time.Hour}}
	authService := auth.NewService(db, cfg)
	roomService := services.NewRoomService(db)
	messageService := services.NewMessageService(db, roomService)

	return &env{
		db:       db,
		auth:     NewAuthHandlers(authService),
		rooms:    NewRoomHandlers(roomService, authService),
		messages: NewMessageHandlers(messageService, authService),
		authSvc:  authService,
	}
}

// newUser creates an account straight through the store and returns the
// user and a valid token, skipping the bcrypt-heavy register path.
func (e *env) newUser(t *testing.T, email string, role models.UserRole) (*models.User, string) {
	t.Helper()
	user, err := e.db.CreateUser(context.Background(), &models.RegisterRequest{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Role:      role,
	}, "not-a-real-hash")
	require.NoError(t, err)

	token, err := e.authSvc.GenerateToken(user)
	require.NoError(t, err)
	return user, token
}

func doJSON(t *testing.T, handler func(http.ResponseWriter, *http.Request), method, url, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, url, &buf)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	e := newEnv(t)

	w := doJSON(t, e.auth.Register, http.MethodPost, "/register", "", models.RegisterRequest{
		FirstName: "Alice",
		LastName:  "Tester",
		Email:     "alice@clinic.test",
		Password:  "correct horse",
		Role:      models.UserRolePatient,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.AuthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "alice@clinic.test", created.User.Email)

	w = doJSON(t, e.auth.Login, http.MethodPost, "/login", "", models.LoginRequest{
		Email:    "alice@clinic.test",
		Password: "correct horse",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, e.auth.Login, http.MethodPost, "/login", "", models.LoginRequest{
		Email:    "alice@clinic.test",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, e.auth.Register, http.MethodPost, "/register", "", models.RegisterRequest{
		Email: "broken@clinic.test",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoomEndpoints(t *testing.T) {
	e := newEnv(t)
	_, ownerToken := e.newUser(t, "owner@clinic.test", models.UserRolePatient)
	member, memberToken := e.newUser(t, "member@clinic.test", models.UserRoleDoctor)

	w := doJSON(t, e.rooms.CreateRoom, http.MethodPost, "/rooms", ownerToken, models.CreateRoomRequest{
		Name:           "Consultation",
		ParticipantIDs: []string{member.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var room models.RoomResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&room))
	assert.Len(t, room.Participants, 2)

	w = doJSON(t, func(rw http.ResponseWriter, r *http.Request) {
		e.rooms.GetRoom(rw, r, room.ID)
	}, http.MethodGet, "/rooms/"+room.ID, memberToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, e.rooms.ListRooms, http.MethodGet, "/rooms", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []*models.RoomResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Len(t, list, 1)

	// A member without a privileged role cannot rename the room.
	name := "Renamed"
	w = doJSON(t, func(rw http.ResponseWriter, r *http.Request) {
		e.rooms.UpdateRoom(rw, r, room.ID)
	}, http.MethodPatch, "/rooms/"+room.ID, memberToken, models.UpdateRoomRequest{Name: &name})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, func(rw http.ResponseWriter, r *http.Request) {
		e.rooms.UpdateRoom(rw, r, room.ID)
	}, http.MethodPatch, "/rooms/"+room.ID, ownerToken, models.UpdateRoomRequest{Name: &name})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoomEndpointsRequireAuth(t *testing.T) {
	e := newEnv(t)

	w := doJSON(t, e.rooms.ListRooms, http.MethodGet, "/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, e.rooms.CreateRoom, http.MethodPost, "/rooms", "garbage-token", models.CreateRoomRequest{Name: "X"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccessDeniedMapsToForbidden(t *testing.T) {
	e := newEnv(t)
	_, ownerToken := e.newUser(t, "owner@clinic.test", models.UserRolePatient)
	_, outsiderToken := e.newUser(t, "outsider@clinic.test", models.UserRolePatient)

	w := doJSON(t, e.rooms.CreateRoom, http.MethodPost, "/rooms", ownerToken, models.CreateRoomRequest{Name: "Private"})
	require.Equal(t, http.StatusCreated, w.Code)
	var room models.RoomResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&room))

	w = doJSON(t, func(rw http.ResponseWriter, r *http.Request) {
		e.rooms.GetRoom(rw, r, room.ID)
	}, http.MethodGet, "/rooms/"+room.ID, outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, func(rw http.ResponseWriter, r *http.Request) {
		e.messages.ListRoomMessages(rw, r, room.ID)
	}, http.MethodGet, "/rooms/"+room.ID+"/messages", outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMessageEndpoints(t *testing.T) {
	e := newEnv(t)
	sender, senderToken := e.newUser(t, "sender@clinic.test", models.UserRolePatient)
	_, otherToken := e.newUser(t, "other@clinic.test", models.UserRoleDoctor)

	w := doJSON(t, e.rooms.CreateRoom, http.MethodPost, "/rooms", senderToken, models.CreateRoomRequest{Name: "Consultation"})
	require.Equal(t, http.StatusCreated, w.Code)
	var room models.RoomResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&room))

	msg, err := e.db.CreateMessage(context.Background(), room.ID, sender.ID, &models.CreateMessageRequest{
		Content: "hello",
		Type:    models.MessageTypeText,
	})
	require.NoError(t, err)

	w = doJSON(t, func(rw http.ResponseWriter, r *http.Request) {
		e.messages.ListRoomMessages(rw, r, room.ID)
	}, http.MethodGet, "/rooms/"+room.ID+"/messages?page=1&limit=10", senderToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []*models.MessageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Content)

	// Only the sender can edit or delete.
	w = doJSON(t, func(rw http.ResponseWriter, r *http.Request) {
		e.messages.UpdateMessage(rw, r, msg.ID)
	}, http.MethodPatch, "/messages/"+msg.ID, otherToken, models.UpdateMessageRequest{Content: "hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, func(rw http.ResponseWriter, r *http.Request) {
		e.messages.UpdateMessage(rw, r, msg.ID)
	}, http.MethodPatch, "/messages/"+msg.ID, senderToken, models.UpdateMessageRequest{Content: "edited"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.MessageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, "edited", updated.Content)
	assert.True(t, updated.IsEdited)

	w = doJSON(t, func(rw http.ResponseWriter, r *http.Request) {
		e.messages.DeleteMessage(rw, r, msg.ID)
	}, http.MethodDelete, "/messages/"+msg.ID, senderToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, func(rw http.ResponseWriter, r *http.Request) {
		e.messages.DeleteMessage(rw, r, msg.ID)
	}, http.MethodDelete, "/messages/"+msg.ID, senderToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
