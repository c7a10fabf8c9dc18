package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"clinic-chat/internal/auth"
	"clinic-chat/internal/models"
	"clinic-chat/internal/services"
)

type MessageHandlers struct {
	messageService *services.MessageService
	authService    *auth.Service
}

func NewMessageHandlers(messageService *services.MessageService, authService *auth.Service) *MessageHandlers {
	return &MessageHandlers{
		messageService: messageService,
		authService:    authService,
	}
}

func (h *MessageHandlers) ListRoomMessages(w http.ResponseWriter, r *http.Request, roomID string) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.messageService.GetRoomMessages(r.Context(), roomID, user.ID, page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []*models.MessageResponse{}
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandlers) UpdateMessage(w http.ResponseWriter, r *http.Request, messageID string) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	msg, err := h.messageService.UpdateMessage(r.Context(), messageID, user.ID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandlers) DeleteMessage(w http.ResponseWriter, r *http.Request, messageID string) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.messageService.DeleteMessage(r.Context(), messageID, user.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
