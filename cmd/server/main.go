package main

import (
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chatter/internal/auth"
	"chatter/internal/config"
	"chatter/internal/database"
	"chatter/internal/handlers"
	"chatter/internal/realtime"
	"chatter/internal/services"
	"chatter/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize the realtime gateway
	gateway := realtime.NewGateway()

	// Initialize services
	authService := auth.NewService(db, cfg)
	chatService := services.NewChatService(db, gateway.Router())
	messageService := services.NewMessageService(db, gateway.Router())

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(authService)
	userHandlers := handlers.NewUserHandlers(authService, db)
	chatHandlers := handlers.NewChatHandlers(chatService, messageService, authService)
	wsHandlers := handlers.NewWebSocketHandlers(authService, gateway, cfg.Server.AllowedOrigin)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, authHandlers, userHandlers, chatHandlers, wsHandlers)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux, cfg.Server.AllowedOrigin),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")
}

func setupRoutes(mux *http.ServeMux, authHandlers *handlers.AuthHandlers, userHandlers *handlers.UserHandlers, chatHandlers *handlers.ChatHandlers, wsHandlers *handlers.WebSocketHandlers) {
	// Auth routes
	mux.HandleFunc("/register", authHandlers.Register)
	mux.HandleFunc("/login", authHandlers.Login)

	// User routes
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		userHandlers.ListUsers(w, r)
	})

	// Chat routes
	mux.HandleFunc("/chats", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chats" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		chatHandlers.ListChats(w, r)
	})

	// Chat sub-routes
	mux.HandleFunc("/chats/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) < 3 || parts[2] == "" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		// /chats/direct and /chats/group
		if len(parts) == 3 && r.Method == http.MethodPost {
			switch parts[2] {
			case "direct":
				chatHandlers.AccessDirectChat(w, r)
				return
			case "group":
				chatHandlers.CreateGroup(w, r)
				return
			}
		}

		// /chats/{id}
		if len(parts) == 3 {
			switch r.Method {
			case http.MethodGet:
				chatHandlers.GetChat(w, r)
			case http.MethodDelete:
				chatHandlers.DeleteGroup(w, r)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		// /chats/{id}/name
		if len(parts) == 4 && parts[3] == "name" && r.Method == http.MethodPut {
			chatHandlers.RenameGroup(w, r)
			return
		}

		// /chats/{id}/logo
		if len(parts) == 4 && parts[3] == "logo" && r.Method == http.MethodPut {
			chatHandlers.UpdateGroupLogo(w, r)
			return
		}

		// /chats/{id}/members
		if len(parts) == 4 && parts[3] == "members" && r.Method == http.MethodPost {
			chatHandlers.AddMember(w, r)
			return
		}

		// /chats/{id}/members/{userId}
		if len(parts) == 5 && parts[3] == "members" && r.Method == http.MethodDelete {
			chatHandlers.RemoveMember(w, r)
			return
		}

		// /chats/{id}/leave
		if len(parts) == 4 && parts[3] == "leave" && r.Method == http.MethodDelete {
			chatHandlers.LeaveGroup(w, r)
			return
		}

		// /chats/{id}/messages
		if len(parts) == 4 && parts[3] == "messages" {
			switch r.Method {
			case http.MethodGet:
				chatHandlers.ListMessages(w, r)
			case http.MethodPost:
				chatHandlers.SendMessage(w, r)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		http.Error(w, "endpoint not found", http.StatusNotFound)
	})

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler, allowedOrigin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func printAPIEndpoints() {
	logger.Info("API endpoints:")
	logger.Info("   POST /register")
	logger.Info("   POST /login")
	logger.Info("   GET  /users")
	logger.Info("   GET  /chats")
	logger.Info("   POST /chats/direct")
	logger.Info("   POST /chats/group")
	logger.Info("   GET  /chats/{id}")
	logger.Info("   PUT  /chats/{id}/name")
	logger.Info("   PUT  /chats/{id}/logo")
	logger.Info("   POST /chats/{id}/members")
	logger.Info("   DELETE /chats/{id}/members/{userId}")
	logger.Info("   DELETE /chats/{id}/leave")
	logger.Info("   DELETE /chats/{id}")
	logger.Info("   GET  /chats/{id}/messages")
	logger.Info("   POST /chats/{id}/messages")
}
