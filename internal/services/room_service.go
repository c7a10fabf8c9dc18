package services

import (
	"context"
	"fmt"

	"clinic-chat/internal/database"
	"clinic-chat/internal/models"
)

type RoomService struct {
	db database.Database
}

func NewRoomService(db database.Database) *RoomService {
	return &RoomService{db: db}
}

// Authorize is the membership gate consulted before every room-scoped
// operation. Without required roles it is a plain access check. With
// required roles, a missing membership and a qualifying-role failure are
// reported identically.
func (s *RoomService) Authorize(ctx context.Context, roomID, userID string, required ...models.RoomRole) error {
	membership, err := s.db.GetMembership(ctx, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}

	if len(required) == 0 {
		if membership == nil {
			return ErrAccessDenied
		}
		return nil
	}

	if membership == nil || !membership.Role.In(required) {
		return ErrInsufficientPermission
	}
	return nil
}

func (s *RoomService) CreateRoom(ctx context.Context, req *models.CreateRoomRequest, creatorID string) (*models.RoomResponse, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}
	if req.Type == "" {
		req.Type = models.RoomTypePatientDoctor
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: invalid room type %q", ErrValidation, req.Type)
	}

	if _, err := s.db.GetUserByID(ctx, creatorID); err != nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	room, err := s.db.CreateRoom(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	if err := s.db.AddMembership(ctx, room.ID, creatorID, models.RoomRoleOwner); err != nil {
		return nil, fmt.Errorf("failed to add room owner: %w", err)
	}

	for _, participantID := range req.ParticipantIDs {
		if participantID == creatorID {
			continue
		}
		if err := s.db.AddMembership(ctx, room.ID, participantID, models.RoomRoleParticipant); err != nil {
			return nil, fmt.Errorf("failed to add participant: %w", err)
		}
	}

	return s.formatRoom(ctx, room)
}

// CreatePatientDoctorRoom creates (or returns the existing) private
// consultation room between one patient and one doctor.
func (s *RoomService) CreatePatientDoctorRoom(ctx context.Context, patientID, doctorID string) (*models.RoomResponse, error) {
	patient, err := s.db.GetUserByID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("%w: patient", ErrNotFound)
	}
	doctor, err := s.db.GetUserByID(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: doctor", ErrNotFound)
	}

	if patient.Role != models.UserRolePatient {
		return nil, fmt.Errorf("%w: first user must be a patient", ErrValidation)
	}
	if doctor.Role != models.UserRoleDoctor {
		return nil, fmt.Errorf("%w: second user must be a doctor", ErrValidation)
	}

	existing, err := s.db.FindPatientDoctorRoom(ctx, patientID, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing room: %w", err)
	}
	if existing != nil {
		return s.formatRoom(ctx, existing)
	}

	room, err := s.db.CreateRoom(ctx, &models.CreateRoomRequest{
		Name:        fmt.Sprintf("%s %s - %s %s", patient.FirstName, patient.LastName, doctor.FirstName, doctor.LastName),
		Description: fmt.Sprintf("Consultation between %s %s and Dr. %s %s", patient.FirstName, patient.LastName, doctor.FirstName, doctor.LastName),
		Type:        models.RoomTypePatientDoctor,
		IsPrivate:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	if err := s.db.AddMembership(ctx, room.ID, patientID, models.RoomRoleParticipant); err != nil {
		return nil, fmt.Errorf("failed to add patient: %w", err)
	}
	if err := s.db.AddMembership(ctx, room.ID, doctorID, models.RoomRoleParticipant); err != nil {
		return nil, fmt.Errorf("failed to add doctor: %w", err)
	}

	return s.formatRoom(ctx, room)
}

func (s *RoomService) GetUserRooms(ctx context.Context, userID string) ([]*models.RoomResponse, error) {
	rooms, err := s.db.ListUserRooms(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		resp, err := s.formatRoom(ctx, room)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomID, userID string) (*models.RoomResponse, error) {
	if err := s.Authorize(ctx, roomID, userID); err != nil {
		return nil, err
	}

	room, err := s.db.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: room", ErrNotFound)
	}

	return s.formatRoom(ctx, room)
}

func (s *RoomService) UpdateRoom(ctx context.Context, roomID, userID string, req *models.UpdateRoomRequest) (*models.RoomResponse, error) {
	if err := s.Authorize(ctx, roomID, userID, models.RoomRoleOwner, models.RoomRoleModerator); err != nil {
		return nil, err
	}

	room, err := s.db.UpdateRoom(ctx, roomID, req)
	if err != nil {
		return nil, fmt.Errorf("%w: room", ErrNotFound)
	}

	return s.formatRoom(ctx, room)
}

func (s *RoomService) AddParticipants(ctx context.Context, roomID, userID string, req *models.AddParticipantsRequest) error {
	if err := s.Authorize(ctx, roomID, userID, models.RoomRoleOwner, models.RoomRoleModerator); err != nil {
		return err
	}

	for _, participantID := range req.UserIDs {
		if _, err := s.db.GetUserByID(ctx, participantID); err != nil {
			return fmt.Errorf("%w: some users not found", ErrValidation)
		}
	}

	for _, participantID := range req.UserIDs {
		if err := s.db.AddMembership(ctx, roomID, participantID, models.RoomRoleParticipant); err != nil {
			return fmt.Errorf("failed to add participant: %w", err)
		}
	}
	return nil
}

func (s *RoomService) RemoveParticipant(ctx context.Context, roomID, userID, participantID string) error {
	if err := s.Authorize(ctx, roomID, userID, models.RoomRoleOwner, models.RoomRoleModerator); err != nil {
		return err
	}

	membership, err := s.db.GetMembership(ctx, roomID, participantID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if membership == nil {
		return fmt.Errorf("%w: participant not found in room", ErrNotFound)
	}
	if membership.Role == models.RoomRoleOwner {
		return fmt.Errorf("%w: cannot remove room owner", ErrInsufficientPermission)
	}

	return s.db.RemoveMembership(ctx, roomID, participantID)
}

func (s *RoomService) LeaveRoom(ctx context.Context, roomID, userID string) error {
	membership, err := s.db.GetMembership(ctx, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if membership == nil {
		return fmt.Errorf("%w: you are not a member of this room", ErrNotFound)
	}

	if membership.Role == models.RoomRoleOwner {
		count, err := s.db.CountRoomMembers(ctx, roomID)
		if err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}
		if count > 1 {
			return fmt.Errorf("%w: room owner cannot leave while other members exist", ErrValidation)
		}
		if err := s.db.SetRoomStatus(ctx, roomID, models.RoomStatusArchived); err != nil {
			return fmt.Errorf("failed to archive room: %w", err)
		}
	}

	return s.db.RemoveMembership(ctx, roomID, userID)
}

func (s *RoomService) formatRoom(ctx context.Context, room *models.Room) (*models.RoomResponse, error) {
	members, err := s.db.GetRoomMembers(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	if members == nil {
		members = []*models.Participant{}
	}

	return &models.RoomResponse{
		ID:            room.ID,
		Name:          room.Name,
		Description:   room.Description,
		Type:          room.Type,
		Participants:  members,
		LastMessageAt: room.LastMessageAt,
		CreatedAt:     room.CreatedAt,
	}, nil
}
