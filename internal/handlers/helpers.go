package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"clinic-chat/internal/auth"
	"clinic-chat/internal/models"
	"clinic-chat/internal/services"
	"clinic-chat/pkg/logger"
)

func userFromRequest(r *http.Request, authService *auth.Service) (*models.User, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errors.New("missing bearer token")
	}
	return authService.GetUserFromToken(r.Context(), strings.TrimPrefix(header, "Bearer "))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service failure classes to HTTP statuses and
// hides internal detail behind a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrAccessDenied), errors.Is(err, services.ErrInsufficientPermission):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		logger.Error("Internal error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
