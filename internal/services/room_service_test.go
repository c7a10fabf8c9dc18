package services

import (
	"context"
	"testing"

	"clinic-chat/internal/database"
	"clinic-chat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser(t *testing.T, db *database.MemoryDB, firstName, email string, role models.UserRole) *models.User {
	t.Helper()
	user, err := db.CreateUser(context.Background(), &models.RegisterRequest{
		FirstName: firstName,
		LastName:  "Tester",
		Email:     email,
		Role:      role,
	}, "not-a-real-hash")
	require.NoError(t, err)
	return user
}

func TestAuthorizeMembershipGate(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewRoomService(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "Alice", "alice@clinic.test", models.UserRolePatient)
	member := newTestUser(t, db, "Bob", "bob@clinic.test", models.UserRoleDoctor)
	outsider := newTestUser(t, db, "Eve", "eve@clinic.test", models.UserRolePatient)

	room, err := svc.CreateRoom(ctx, &models.CreateRoomRequest{
		Name:           "Consultation",
		ParticipantIDs: []string{member.ID},
	}, owner.ID)
	require.NoError(t, err)

	// Plain access check.
	assert.NoError(t, svc.Authorize(ctx, room.ID, owner.ID))
	assert.NoError(t, svc.Authorize(ctx, room.ID, member.ID))
	assert.ErrorIs(t, svc.Authorize(ctx, room.ID, outsider.ID), ErrAccessDenied)

	// Role-gated check. A non-member and a member without a qualifying
	// role fail identically.
	assert.NoError(t, svc.Authorize(ctx, room.ID, owner.ID, models.RoomRoleOwner, models.RoomRoleModerator))
	assert.ErrorIs(t, svc.Authorize(ctx, room.ID, member.ID, models.RoomRoleOwner, models.RoomRoleModerator), ErrInsufficientPermission)
	assert.ErrorIs(t, svc.Authorize(ctx, room.ID, outsider.ID, models.RoomRoleOwner, models.RoomRoleModerator), ErrInsufficientPermission)
}

func TestCreateRoom(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewRoomService(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "Alice", "alice@clinic.test", models.UserRolePatient)
	member := newTestUser(t, db, "Bob", "bob@clinic.test", models.UserRoleDoctor)

	room, err := svc.CreateRoom(ctx, &models.CreateRoomRequest{
		Name:           "Consultation",
		ParticipantIDs: []string{member.ID, owner.ID}, // creator listed twice
	}, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomTypePatientDoctor, room.Type)
	assert.Len(t, room.Participants, 2)

	m, err := db.GetMembership(ctx, room.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.RoomRoleOwner, m.Role)

	m, err = db.GetMembership(ctx, room.ID, member.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.RoomRoleParticipant, m.Role)
}

func TestCreateRoomValidation(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewRoomService(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "Alice", "alice@clinic.test", models.UserRolePatient)

	_, err := svc.CreateRoom(ctx, &models.CreateRoomRequest{}, owner.ID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateRoom(ctx, &models.CreateRoomRequest{Name: "X", Type: "party"}, owner.ID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateRoom(ctx, &models.CreateRoomRequest{Name: "X"}, "no-such-user")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePatientDoctorRoom(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewRoomService(db)
	ctx := context.Background()

	patient := newTestUser(t, db, "Alice", "alice@clinic.test", models.UserRolePatient)
	doctor := newTestUser(t, db, "Bob", "bob@clinic.test", models.UserRoleDoctor)

	room, err := svc.CreatePatientDoctorRoom(ctx, patient.ID, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomTypePatientDoctor, room.Type)
	assert.Equal(t, "Alice Tester - Bob Tester", room.Name)
	assert.Len(t, room.Participants, 2)

	// Creating again returns the existing room instead of a duplicate.
	again, err := svc.CreatePatientDoctorRoom(ctx, patient.ID, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, again.ID)
}

func TestCreatePatientDoctorRoomRoleChecks(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewRoomService(db)
	ctx := context.Background()

	patient := newTestUser(t, db, "Alice", "alice@clinic.test", models.UserRolePatient)
	doctor := newTestUser(t, db, "Bob", "bob@clinic.test", models.UserRoleDoctor)

	_, err := svc.CreatePatientDoctorRoom(ctx, doctor.ID, patient.ID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreatePatientDoctorRoom(ctx, "no-such-user", doctor.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRoomRequiresPrivilegedRole(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewRoomService(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "Alice", "alice@clinic.test", models.UserRolePatient)
	member := newTestUser(t, db, "Bob", "bob@clinic.test", models.UserRoleDoctor)

	room, err := svc.CreateRoom(ctx, &models.CreateRoomRequest{
		Name:           "Consultation",
		ParticipantIDs: []string{member.ID},
	}, owner.ID)
	require.NoError(t, err)

	newName := "Renamed"
	_, err = svc.UpdateRoom(ctx, room.ID, member.ID, &models.UpdateRoomRequest{Name: &newName})
	assert.ErrorIs(t, err, ErrInsufficientPermission)

	updated, err := svc.UpdateRoom(ctx, room.ID, owner.ID, &models.UpdateRoomRequest{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestAddParticipants(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewRoomService(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "Alice", "alice@clinic.test", models.UserRolePatient)
	member := newTestUser(t, db, "Bob", "bob@clinic.test", models.UserRoleDoctor)
	extra := newTestUser(t, db, "Carol", "carol@clinic.test", models.UserRoleDoctor)

	room, err := svc.CreateRoom(ctx, &models.CreateRoomRequest{
		Name:           "Consultation",
		ParticipantIDs: []string{member.ID},
	}, owner.ID)
	require.NoError(t, err)

	err = svc.AddParticipants(ctx, room.ID, member.ID, &models.AddParticipantsRequest{UserIDs: []string{extra.ID}})
	assert.ErrorIs(t, err, ErrInsufficientPermission)

	// An unknown id rejects the whole batch before any write.
	err = svc.AddParticipants(ctx, room.ID, owner.ID, &models.AddParticipantsRequest{UserIDs: []string{extra.ID, "no-such-user"}})
	assert.ErrorIs(t, err, ErrValidation)
	m, err := db.GetMembership(ctx, room.ID, extra.ID)
	require.NoError(t, err)
	assert.Nil(t, m)

	err = svc.AddParticipants(ctx, room.ID, owner.ID, &models.AddParticipantsRequest{UserIDs: []string{extra.ID}})
	require.NoError(t, err)
	m, err = db.GetMembership(ctx, room.ID, extra.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.RoomRoleParticipant, m.Role)
}

func TestRemoveParticipant(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewRoomService(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "Alice", "alice@clinic.test", models.UserRolePatient)
	member := newTestUser(t, db, "Bob", "bob@clinic.test", models.UserRoleDoctor)

	room, err := svc.CreateRoom(ctx, &models.CreateRoomRequest{
		Name:           "Consultation",
		ParticipantIDs: []string{member.ID},
	}, owner.ID)
	require.NoError(t, err)

	// Nobody removes the owner, and participants remove nobody.
	err = svc.RemoveParticipant(ctx, room.ID, member.ID, owner.ID)
	assert.ErrorIs(t, err, ErrInsufficientPermission)
	err = svc.RemoveParticipant(ctx, room.ID, owner.ID, owner.ID)
	assert.ErrorIs(t, err, ErrInsufficientPermission)

	err = svc.RemoveParticipant(ctx, room.ID, owner.ID, "no-such-user")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.RemoveParticipant(ctx, room.ID, owner.ID, member.ID))
	m, err := db.GetMembership(ctx, room.ID, member.ID)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestLeaveRoom(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewRoomService(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "Alice", "alice@clinic.test", models.UserRolePatient)
	member := newTestUser(t, db, "Bob", "bob@clinic.test", models.UserRoleDoctor)
	outsider := newTestUser(t, db, "Eve", "eve@clinic.test", models.UserRolePatient)

	room, err := svc.CreateRoom(ctx, &models.CreateRoomRequest{
		Name:           "Consultation",
		ParticipantIDs: []string{member.ID},
	}, owner.ID)
	require.NoError(t, err)

	err = svc.LeaveRoom(ctx, room.ID, outsider.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The owner is pinned while other members remain.
	err = svc.LeaveRoom(ctx, room.ID, owner.ID)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.LeaveRoom(ctx, room.ID, member.ID))

	// The last owner out archives the room.
	require.NoError(t, svc.LeaveRoom(ctx, room.ID, owner.ID))
	stored, err := db.GetRoomByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusArchived, stored.Status)
}

func TestGetUserRooms(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewRoomService(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "Alice", "alice@clinic.test", models.UserRolePatient)
	other := newTestUser(t, db, "Bob", "bob@clinic.test", models.UserRoleDoctor)

	first, err := svc.CreateRoom(ctx, &models.CreateRoomRequest{Name: "First"}, owner.ID)
	require.NoError(t, err)
	_, err = svc.CreateRoom(ctx, &models.CreateRoomRequest{Name: "Second"}, other.ID)
	require.NoError(t, err)

	rooms, err := svc.GetUserRooms(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, first.ID, rooms[0].ID)

	rooms, err = svc.GetUserRooms(ctx, "no-such-user")
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestGetRoomRequiresMembership(t *testing.T) {
	db := database.NewMemoryDB()
	svc := NewRoomService(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "Alice", "alice@clinic.test", models.UserRolePatient)
	outsider := newTestUser(t, db, "Eve", "eve@clinic.test", models.UserRolePatient)

	room, err := svc.CreateRoom(ctx, &models.CreateRoomRequest{Name: "Consultation"}, owner.ID)
	require.NoError(t, err)

	_, err = svc.GetRoom(ctx, room.ID, outsider.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	got, err := svc.GetRoom(ctx, room.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)
}
