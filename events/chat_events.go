package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserPresenceEvent is emitted by the hub when a user's online flag flips.
type UserPresenceEvent struct {
	UserID    string    `json:"user_id"`
	IsOnline  bool      `json:"is_online"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomCreatedEvent is emitted by the REST layer when an admin creates a room.
// The hub consumes it to announce the new room to every connected client.
type RoomCreatedEvent struct {
	RoomID    uint      `json:"room_id"`
	RoomName  string    `json:"room_name"`
	Topic     string    `json:"topic,omitempty"`
	CreatedBy string    `json:"created_by"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	UserOnlineV1 = helper.EventDefinition[UserPresenceEvent](
		"hub",
		"UserOnline",
		"v1",
	)

	UserOfflineV1 = helper.EventDefinition[UserPresenceEvent](
		"hub",
		"UserOffline",
		"v1",
	)

	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"rooms",
		"RoomCreated",
		"v1",
	)
)
