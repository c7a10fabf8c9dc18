package handlers

import (
	"encoding/json"
	"net/http"

	"clinic-chat/internal/auth"
	"clinic-chat/internal/models"
	"clinic-chat/internal/services"
)

type RoomHandlers struct {
	roomService *services.RoomService
	authService *auth.Service
}

func NewRoomHandlers(roomService *services.RoomService, authService *auth.Service) *RoomHandlers {
	return &RoomHandlers{
		roomService: roomService,
		authService: authService,
	}
}

func (h *RoomHandlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.CreateRoom(r.Context(), &req, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomHandlers) CreatePatientDoctorRoom(w http.ResponseWriter, r *http.Request) {
	if _, err := userFromRequest(r, h.authService); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.CreatePatientDoctorRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.CreatePatientDoctorRoom(r.Context(), req.PatientID, req.DoctorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rooms, err := h.roomService.GetUserRooms(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rooms)
}

func (h *RoomHandlers) GetRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	room, err := h.roomService.GetRoom(r.Context(), roomID, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandlers) UpdateRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.UpdateRoom(r.Context(), roomID, user.ID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandlers) AddParticipants(w http.ResponseWriter, r *http.Request, roomID string) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.AddParticipantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.UserIDs) == 0 {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.roomService.AddParticipants(r.Context(), roomID, user.ID, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *RoomHandlers) RemoveParticipant(w http.ResponseWriter, r *http.Request, roomID, participantID string) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.roomService.RemoveParticipant(r.Context(), roomID, user.ID, participantID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *RoomHandlers) LeaveRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.roomService.LeaveRoom(r.Context(), roomID, user.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
