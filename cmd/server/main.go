package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"clinic-chat/internal/auth"
	"clinic-chat/internal/config"
	"clinic-chat/internal/database"
	"clinic-chat/internal/gateway"
	"clinic-chat/internal/handlers"
	"clinic-chat/internal/services"
	"clinic-chat/pkg/logger"
)

func main() {
	defer logger.Sync()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize services
	authService := auth.NewService(db, cfg)
	roomService := services.NewRoomService(db)
	messageService := services.NewMessageService(db, roomService)

	// Initialize the websocket gateway
	registry := gateway.NewRegistry()
	router := gateway.NewRouter(registry)
	chatGateway := gateway.New(registry, router, authService, roomService, messageService)

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(authService)
	roomHandlers := handlers.NewRoomHandlers(roomService, authService)
	messageHandlers := handlers.NewMessageHandlers(messageService, authService)
	wsHandlers := handlers.NewWebSocketHandlers(chatGateway)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, authHandlers, roomHandlers, messageHandlers, wsHandlers)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)

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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

func setupRoutes(mux *http.ServeMux, authHandlers *handlers.AuthHandlers, roomHandlers *handlers.RoomHandlers, messageHandlers *handlers.MessageHandlers, wsHandlers *handlers.WebSocketHandlers) {
	// Auth routes
	mux.HandleFunc("/register", authHandlers.Register)
	mux.HandleFunc("/login", authHandlers.Login)
	mux.HandleFunc("/logout", authHandlers.Logout)

	// Room routes
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet:
			roomHandlers.ListRooms(w, r)
		case http.MethodPost:
			roomHandlers.CreateRoom(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Room sub-routes
	mux.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) < 3 || parts[2] == "" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		// /rooms/patient-doctor
		if len(parts) == 3 && parts[2] == "patient-doctor" && r.Method == http.MethodPost {
			roomHandlers.CreatePatientDoctorRoom(w, r)
			return
		}

		roomID := parts[2]

		// /rooms/{id}
		if len(parts) == 3 {
			switch r.Method {
			case http.MethodGet:
				roomHandlers.GetRoom(w, r, roomID)
			case http.MethodPatch:
				roomHandlers.UpdateRoom(w, r, roomID)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		// /rooms/{id}/participants
		if len(parts) == 4 && parts[3] == "participants" && r.Method == http.MethodPost {
			roomHandlers.AddParticipants(w, r, roomID)
			return
		}

		// /rooms/{id}/participants/{userId}
		if len(parts) == 5 && parts[3] == "participants" && r.Method == http.MethodDelete {
			roomHandlers.RemoveParticipant(w, r, roomID, parts[4])
			return
		}

		// /rooms/{id}/leave
		if len(parts) == 4 && parts[3] == "leave" && r.Method == http.MethodDelete {
			roomHandlers.LeaveRoom(w, r, roomID)
			return
		}

		// /rooms/{id}/messages
		if len(parts) == 4 && parts[3] == "messages" && r.Method == http.MethodGet {
			messageHandlers.ListRoomMessages(w, r, roomID)
			return
		}

		http.Error(w, "endpoint not found", http.StatusNotFound)
	})

	// Message routes
	mux.HandleFunc("/messages/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) != 3 || parts[2] == "" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		switch r.Method {
		case http.MethodPatch:
			messageHandlers.UpdateMessage(w, r, parts[2])
		case http.MethodDelete:
			messageHandlers.DeleteMessage(w, r, parts[2])
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
