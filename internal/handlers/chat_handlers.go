package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"chatter/internal/auth"
	"chatter/internal/models"
	"chatter/internal/services"
	"chatter/pkg/logger"
)

type ChatHandlers struct {
	chatService    *services.ChatService
	messageService *services.MessageService
	authService    *auth.Service
}

func NewChatHandlers(chatService *services.ChatService, messageService *services.MessageService, authService *auth.Service) *ChatHandlers {
	return &ChatHandlers{
		chatService:    chatService,
		messageService: messageService,
		authService:    authService,
	}
}

func (h *ChatHandlers) AccessDirectChat(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.DirectChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	chat, err := h.chatService.AccessDirectChat(r.Context(), user.ID, req.UserID)
	if err != nil {
		logger.Error("Access direct chat error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	chat, err := h.chatService.CreateGroup(r.Context(), user.ID, &req)
	if err != nil {
		logger.Error("Create group error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandlers) ListChats(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chats, err := h.chatService.ListChats(r.Context(), user.ID)
	if err != nil {
		logger.Error("List chats error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, chats)
}

func (h *ChatHandlers) GetChat(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := chatIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid chat ID", http.StatusBadRequest)
		return
	}

	chat, err := h.chatService.GetChat(r.Context(), user.ID, chatID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandlers) RenameGroup(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := chatIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid chat ID", http.StatusBadRequest)
		return
	}

	var req models.RenameGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	chat, err := h.chatService.RenameGroup(r.Context(), user.ID, chatID, req.Name)
	if err != nil {
		logger.Error("Rename group error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandlers) UpdateGroupLogo(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := chatIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid chat ID", http.StatusBadRequest)
		return
	}

	var req models.UpdateLogoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	chat, err := h.chatService.UpdateGroupLogo(r.Context(), user.ID, chatID, req.LogoURL)
	if err != nil {
		logger.Error("Update logo error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandlers) AddMember(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := chatIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid chat ID", http.StatusBadRequest)
		return
	}

	var req models.AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	chat, err := h.chatService.AddMember(r.Context(), user.ID, chatID, req.UserID)
	if err != nil {
		logger.Error("Add member error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := chatIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid chat ID", http.StatusBadRequest)
		return
	}

	parts := strings.Split(r.URL.Path, "/")
	memberID := parts[len(parts)-1]
	if memberID == "" || memberID == "members" {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	chat, err := h.chatService.RemoveMember(r.Context(), user.ID, chatID, memberID)
	if err != nil {
		logger.Error("Remove member error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandlers) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := chatIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid chat ID", http.StatusBadRequest)
		return
	}

	chat, err := h.chatService.LeaveGroup(r.Context(), user.ID, chatID)
	if err != nil {
		logger.Error("Leave group error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if chat == nil {
		// The leaving admin was the last member; the group is gone.
		writeJSON(w, http.StatusOK, map[string]string{"deleted": chatID})
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := chatIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid chat ID", http.StatusBadRequest)
		return
	}

	if err := h.chatService.DeleteGroup(r.Context(), user.ID, chatID); err != nil {
		logger.Error("Delete group error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": chatID})
}

func (h *ChatHandlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := chatIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid chat ID", http.StatusBadRequest)
		return
	}

	messages, err := h.messageService.ListMessages(r.Context(), user.ID, chatID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *ChatHandlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := chatIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid chat ID", http.StatusBadRequest)
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	msg, err := h.messageService.SendMessage(r.Context(), user.ID, chatID, &req)
	if err != nil {
		logger.Error("Send message error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func chatIDFromPath(r *http.Request) (string, error) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 3 || parts[2] == "" {
		return "", fmt.Errorf("invalid path")
	}
	return parts[2], nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
