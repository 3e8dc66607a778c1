package handlers

import (
	"encoding/json"
	"net/http"

	"chatter/internal/auth"
	"chatter/internal/database"
	"chatter/pkg/logger"
)

type UserHandlers struct {
	authService *auth.Service
	db          database.Database
}

func NewUserHandlers(authService *auth.Service, db database.Database) *UserHandlers {
	return &UserHandlers{
		authService: authService,
		db:          db,
	}
}

// ListUsers returns every user except the caller, for the contact sidebar.
func (h *UserHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	users, err := h.db.ListUsersExcept(r.Context(), user.ID)
	if err != nil {
		logger.Error("List users error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}
