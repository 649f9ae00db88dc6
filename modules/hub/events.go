package hub

import (
	"encoding/json"
	"fmt"

	"github.com/example/community-chat/domain/chat"
)

// Inbound event names.
const (
	EventJoinRoom    = "join:room"
	EventChatMessage = "chat:message"
	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"
)

// Outbound event names.
const (
	EventChatHistory     = "chat:history"
	EventNewMessage      = "chat:new_message"
	EventUsersOnline     = "users:online"
	EventTypingIndicator = "typing:indicator"
	EventUserOnline      = "user:online"
	EventUserOffline     = "user:offline"
	EventRoomCreated     = "room:created"
	EventError           = "error"
)

// Envelope is the frame every event travels in, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrorPayload is sent only to the connection whose event failed.
type ErrorPayload struct {
	Message string `json:"message"`
}

// HistoryPayload carries a room's recent messages in chronological order.
type HistoryPayload struct {
	Messages []chat.MessageView `json:"messages"`
	RoomID   uint               `json:"roomId"`
}

// OnlineUsersPayload carries the current online roster.
type OnlineUsersPayload struct {
	Users []chat.UserPublic `json:"users"`
}

// TypingPayload is the room-scoped typing indicator.
type TypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// PresencePayload is the global online/offline announcement. The user
// projection is attached on the online edge only.
type PresencePayload struct {
	UserID   string           `json:"userId"`
	IsOnline bool             `json:"isOnline"`
	User     *chat.UserPublic `json:"user,omitempty"`
}

// RoomCreatedPayload announces a freshly created room to every client.
type RoomCreatedPayload struct {
	RoomID uint   `json:"roomId"`
	Name   string `json:"name"`
	Topic  string `json:"topic,omitempty"`
}

// encodeEvent marshals an outbound event into its wire frame.
func encodeEvent(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", event, err)
	}
	return frame, nil
}
