package hub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/community-chat/domain/chat"
	"github.com/example/community-chat/events"
	"github.com/example/community-chat/modules/storage"
	"github.com/example/community-chat/ratelimit"
)

// UserStore is the slice of the user repository the hub needs.
type UserStore interface {
	SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error
	FindOnline(ctx context.Context) ([]chat.UserPublic, error)
}

// RoomFinder resolves rooms by ID. In production this is backed by the
// Redis room cache in front of the room repository.
type RoomFinder interface {
	FindByID(ctx context.Context, id uint) (*chat.Room, error)
}

// MessageStore is the slice of the message repository the hub needs.
type MessageStore interface {
	Create(ctx context.Context, m *chat.Message) error
	FindByIDWithAssociations(ctx context.Context, id uint) (*chat.Message, error)
	ListRecentByRoom(ctx context.Context, roomID uint, limit int) ([]chat.MessageView, error)
}

const historyLimit = 50

// Service runs the per-connection event loop and the event pipelines.
type Service struct {
	hub      *Hub
	limiter  *ratelimit.Limiter
	users    UserStore
	rooms    RoomFinder
	messages MessageStore
	logger   types.Logger
	bus      mono.EventBus

	newConnID func() string
}

func NewService(hub *Hub, limiter *ratelimit.Limiter, users UserStore, rooms RoomFinder, messages MessageStore, newConnID func() string, logger types.Logger) *Service {
	return &Service{
		hub:       hub,
		limiter:   limiter,
		users:     users,
		rooms:     rooms,
		messages:  messages,
		newConnID: newConnID,
		logger:    logger,
	}
}

// SetEventBus attaches the application event bus. The service works
// without one; presence is then broadcast to clients only.
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.bus = bus
}

// HandleConnection owns the connection from after the upgrade until the
// read loop ends. It blocks, so the websocket handler calls it directly.
func (s *Service) HandleConnection(conn wsConn, user *chat.User) {
	sess := newSession(s.newConnID(), user, conn)
	s.hub.register(sess)
	go sess.writePump()

	log := s.logger.With("connection_id", sess.ID, "user_id", user.ID)
	log.Info("websocket connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.dispatch(sess, raw)
	}

	s.disconnect(sess)
	log.Info("websocket disconnected")
}

func (s *Service) dispatch(sess *Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.sendError(sess, "Invalid event format")
		return
	}
	var data map[string]any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			s.sendError(sess, "Invalid event format")
			return
		}
	}

	switch env.Event {
	case EventJoinRoom:
		s.handleJoinRoom(sess, data)
	case EventChatMessage:
		s.handleChatMessage(sess, data)
	case EventTypingStart:
		s.handleTyping(sess, data, true)
	case EventTypingStop:
		s.handleTyping(sess, data, false)
	default:
		s.sendError(sess, "Unknown event")
	}
}

// handleJoinRoom runs the join pipeline: rate limit, validation, room
// lookup, membership, presence flip, history and online roster.
func (s *Service) handleJoinRoom(sess *Session, data map[string]any) {
	if !s.limiter.Allow(sess.ID, ratelimit.ActionJoin) {
		s.sendError(sess, "Too many join requests. Please wait.")
		return
	}
	if reason := joinRoomSchema.Validate(data); reason != "" {
		s.sendError(sess, reason)
		return
	}
	roomID := roomIDFrom(data)

	// Disconnect must not abort a pipeline already past its gates, so
	// every pipeline runs on a fresh context.
	ctx := context.Background()
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			s.sendError(sess, "Room not found")
			return
		}
		s.logger.WithError(err).Error("room lookup failed", "room_id", roomID)
		s.sendError(sess, "Failed to join room")
		return
	}
	if !room.IsActive {
		s.sendError(sess, "Room is inactive")
		return
	}

	s.hub.joinRoom(sess.ID, roomID)
	s.publishPresence(ctx, sess.User, true)

	history, err := s.messages.ListRecentByRoom(ctx, roomID, historyLimit)
	if err != nil {
		s.logger.WithError(err).Error("history load failed", "room_id", roomID)
		s.sendError(sess, "Failed to join room")
		return
	}
	s.sendTo(sess, EventChatHistory, HistoryPayload{Messages: history, RoomID: roomID})

	online, err := s.users.FindOnline(ctx)
	if err != nil {
		s.logger.WithError(err).Error("online roster load failed")
		s.sendError(sess, "Failed to join room")
		return
	}
	s.sendTo(sess, EventUsersOnline, OnlineUsersPayload{Users: online})
}

// handleChatMessage runs the message pipeline. Persist and broadcast
// happen under the room's pipeline lock so every member observes the
// same order per room.
func (s *Service) handleChatMessage(sess *Session, data map[string]any) {
	if !s.limiter.Allow(sess.ID, ratelimit.ActionMessage) {
		s.sendError(sess, "Too many messages. Please slow down.")
		return
	}
	if reason := chatMessageSchema.Validate(data); reason != "" {
		s.sendError(sess, reason)
		return
	}
	roomID := roomIDFrom(data)
	body, _ := data["message"].(string)
	// Schema validation already ran on the sanitized body, so it is
	// non-empty and within the length band here.
	body = SanitizeMessage(body)

	ctx := context.Background()
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			s.sendError(sess, "Room not found")
			return
		}
		s.logger.WithError(err).Error("room lookup failed", "room_id", roomID)
		s.sendError(sess, "Failed to send message")
		return
	}
	if !room.IsActive {
		s.sendError(sess, "Room is inactive")
		return
	}

	lock := s.hub.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	// The author is always the identity bound at upgrade time.
	msg := &chat.Message{UserID: sess.User.ID, RoomID: roomID, Body: body}
	if err := s.messages.Create(ctx, msg); err != nil {
		s.logger.WithError(err).Error("message persist failed", "room_id", roomID)
		s.sendError(sess, "Failed to send message")
		return
	}
	loaded, err := s.messages.FindByIDWithAssociations(ctx, msg.ID)
	if err != nil {
		s.logger.WithError(err).Error("message reload failed", "message_id", msg.ID)
		s.sendError(sess, "Failed to send message")
		return
	}
	s.broadcastRoom(roomID, EventNewMessage, loaded.View(), "")
}

// handleTyping relays typing indicators to the room, excluding the
// sender. Every failure is silent; indicators are best effort.
func (s *Service) handleTyping(sess *Session, data map[string]any, start bool) {
	if start && !s.limiter.Allow(sess.ID, ratelimit.ActionTyping) {
		return
	}
	if reason := typingSchema.Validate(data); reason != "" {
		return
	}
	roomID := roomIDFrom(data)

	if start {
		room, err := s.rooms.FindByID(context.Background(), roomID)
		if err != nil || !room.IsActive {
			return
		}
		s.hub.markTyping(sess.ID, roomID)
	} else {
		s.hub.clearTyping(sess.ID, roomID)
	}
	s.broadcastRoom(roomID, EventTypingIndicator, TypingPayload{UserID: sess.User.ID, IsTyping: start}, sess.ID)
}

// disconnect tears down everything the connection accumulated. Rate
// limit counters drop synchronously so a reconnect starts fresh.
func (s *Service) disconnect(sess *Session) {
	sess.close()
	s.hub.unregister(sess)
	s.limiter.DropConnection(sess.ID)
	s.publishPresence(context.Background(), sess.User, false)
}

// publishPresence persists the presence flip, then announces it to all
// clients and the event bus. Store failures are logged and swallowed;
// presence must never fail a join or a disconnect.
func (s *Service) publishPresence(ctx context.Context, user *chat.User, online bool) {
	now := time.Now()
	if err := s.users.SetPresence(ctx, user.ID, online, now); err != nil {
		s.logger.WithError(err).Warn("presence update failed", "user_id", user.ID)
		return
	}

	payload := PresencePayload{UserID: user.ID, IsOnline: online}
	event := EventUserOffline
	if online {
		public := user.Public()
		public.IsOnline = true
		payload.User = &public
		event = EventUserOnline
	}
	s.broadcastAll(event, payload)

	if s.bus != nil {
		def := events.UserOfflineV1
		if online {
			def = events.UserOnlineV1
		}
		err := def.Publish(s.bus, events.UserPresenceEvent{
			UserID:    user.ID,
			IsOnline:  online,
			Timestamp: now,
		}, nil)
		if err != nil {
			s.logger.WithError(err).Warn("presence event publish failed", "user_id", user.ID)
		}
	}
}

// AnnounceRoom broadcasts a room created announcement to every client.
func (s *Service) AnnounceRoom(roomID uint, name, topic string) {
	s.broadcastAll(EventRoomCreated, RoomCreatedPayload{RoomID: roomID, Name: name, Topic: topic})
}

func (s *Service) sendTo(sess *Session, event string, data any) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		s.logger.WithError(err).Error("event encode failed", "event", event)
		return
	}
	sess.queue(frame)
}

func (s *Service) sendError(sess *Session, message string) {
	s.sendTo(sess, EventError, ErrorPayload{Message: message})
}

func (s *Service) broadcastRoom(roomID uint, event string, data any, exceptID string) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		s.logger.WithError(err).Error("event encode failed", "event", event)
		return
	}
	if dropped := s.hub.broadcastRoom(roomID, frame, exceptID); dropped > 0 {
		s.logger.Warn("dropped frames for slow consumers", "event", event, "room_id", roomID, "dropped", dropped)
	}
}

func (s *Service) broadcastAll(event string, data any) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		s.logger.WithError(err).Error("event encode failed", "event", event)
		return
	}
	if dropped := s.hub.broadcastAll(frame); dropped > 0 {
		s.logger.Warn("dropped frames for slow consumers", "event", event, "dropped", dropped)
	}
}
