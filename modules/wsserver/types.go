package wsserver

import (
	"github.com/example/community-chat/domain/chat"
)

// ErrorResponse is the error body for REST endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RegisterRequest is the body of POST /api/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the token and the account after register or login.
type AuthResponse struct {
	Token string     `json:"token"`
	User  *chat.User `json:"user"`
}

// CreateRoomRequest is the body of POST /api/rooms. All fields are
// optional; missing ones are generated.
type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Topic       string `json:"topic"`
}

// RoomListResponse is the body of GET /api/rooms.
type RoomListResponse struct {
	Rooms []chat.Room `json:"rooms"`
	Total int64       `json:"total"`
}

// HistoryResponse is the body of GET /api/rooms/:id/chats.
type HistoryResponse struct {
	RoomID   uint               `json:"roomId"`
	Messages []chat.MessageView `json:"messages"`
}
