package wsserver

import (
	"context"
	"errors"
	"strings"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/example/community-chat/domain/chat"
	"github.com/example/community-chat/events"
	"github.com/example/community-chat/modules/auth"
	"github.com/example/community-chat/modules/genai"
	"github.com/example/community-chat/modules/hub"
	"github.com/example/community-chat/modules/storage"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
	defaultRoomLimit    = 20
	maxRoomLimit        = 100
)

// HubPort is the slice of the hub module the HTTP surface needs.
type HubPort interface {
	Service() *hub.Service
	InvalidateRoom(ctx context.Context, roomID uint)
}

// Handlers contains the REST and websocket handlers.
type Handlers struct {
	auth      *auth.Service
	rooms     *storage.RoomRepository
	messages  *storage.MessageRepository
	hub       HubPort
	generator *genai.Service
	bus       mono.EventBus
	logger    types.Logger
}

func NewHandlers(authService *auth.Service, rooms *storage.RoomRepository, messages *storage.MessageRepository, hubPort HubPort, generator *genai.Service, logger types.Logger) *Handlers {
	return &Handlers{
		auth:      authService,
		rooms:     rooms,
		messages:  messages,
		hub:       hubPort,
		generator: generator,
		logger:    logger,
	}
}

// SetEventBus attaches the application event bus for room announcements.
func (h *Handlers) SetEventBus(bus mono.EventBus) {
	h.bus = bus
}

// Register handles POST /api/register.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return badRequest(c, "Name, email and password are required")
	}

	user, token, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidEmail):
			return badRequest(c, "Invalid email address")
		case errors.Is(err, auth.ErrWeakPassword):
			return badRequest(c, "Password must be at least 6 characters")
		case errors.Is(err, auth.ErrPasswordTooLong):
			return badRequest(c, "Password is too long")
		case errors.Is(err, storage.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
				Error:   "conflict",
				Message: "Email is already registered",
			})
		default:
			h.logger.WithError(err).Error("registration failed")
			return fiber.ErrInternalServerError
		}
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, User: user})
}

// Login handles POST /api/login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	user, token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid email or password",
			})
		}
		h.logger.WithError(err).Error("login failed")
		return fiber.ErrInternalServerError
	}

	return c.JSON(AuthResponse{Token: token, User: user})
}

// ListRooms handles GET /api/rooms.
func (h *Handlers) ListRooms(c *fiber.Ctx) error {
	limit := clamp(c.QueryInt("limit", defaultRoomLimit), 1, maxRoomLimit)
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	activeOnly := c.QueryBool("active", true)

	rooms, total, err := h.rooms.List(c.UserContext(), activeOnly, limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("room list failed")
		return fiber.ErrInternalServerError
	}
	return c.JSON(RoomListResponse{Rooms: rooms, Total: total})
}

// GetRoom handles GET /api/rooms/:id.
func (h *Handlers) GetRoom(c *fiber.Ctx) error {
	roomID, ok := roomIDParam(c)
	if !ok {
		return badRequest(c, "Invalid room ID")
	}
	room, err := h.rooms.FindByID(c.UserContext(), roomID)
	if err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			return notFound(c, "Room not found")
		}
		h.logger.WithError(err).Error("room lookup failed", "room_id", roomID)
		return fiber.ErrInternalServerError
	}
	return c.JSON(room)
}

// GetRoomHistory handles GET /api/rooms/:id/chats.
func (h *Handlers) GetRoomHistory(c *fiber.Ctx) error {
	roomID, ok := roomIDParam(c)
	if !ok {
		return badRequest(c, "Invalid room ID")
	}
	if _, err := h.rooms.FindByID(c.UserContext(), roomID); err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			return notFound(c, "Room not found")
		}
		h.logger.WithError(err).Error("room lookup failed", "room_id", roomID)
		return fiber.ErrInternalServerError
	}

	limit := clamp(c.QueryInt("limit", defaultHistoryLimit), 1, maxHistoryLimit)
	messages, err := h.messages.ListRecentByRoom(c.UserContext(), roomID, limit)
	if err != nil {
		h.logger.WithError(err).Error("history load failed", "room_id", roomID)
		return fiber.ErrInternalServerError
	}
	return c.JSON(HistoryResponse{RoomID: roomID, Messages: messages})
}

// CreateRoom handles POST /api/rooms. Admin only. Missing fields are
// filled by the content generator, and the room opens with a generated
// welcome message.
func (h *Handlers) CreateRoom(c *fiber.Ctx) error {
	user := CurrentUser(c)

	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	topic := strings.TrimSpace(req.Topic)

	if name == "" {
		content := h.generator.GenerateRoomContent(c.UserContext(), user.ID)
		name = content.Name
		if description == "" {
			description = content.Description
		}
		if topic == "" {
			topic = content.Topic
		}
	}

	room := &chat.Room{
		Name:        name,
		Description: description,
		Topic:       topic,
		CreatedBy:   user.ID,
		IsActive:    true,
	}
	if err := h.rooms.Create(c.UserContext(), room); err != nil {
		h.logger.WithError(err).Error("room create failed")
		return fiber.ErrInternalServerError
	}

	opening := h.generator.GenerateOpeningMessage(c.UserContext(), user.ID, room.Name, room.Topic, room.Description)
	msg := &chat.Message{UserID: user.ID, RoomID: room.ID, Body: opening}
	if err := h.messages.Create(c.UserContext(), msg); err != nil {
		h.logger.WithError(err).Warn("opening message persist failed", "room_id", room.ID)
	}

	h.announceRoom(room, user.ID)

	return c.Status(fiber.StatusCreated).JSON(room)
}

// DeleteRoom handles DELETE /api/rooms/:id. Admin only. Rooms are
// deactivated, never removed; history stays queryable.
func (h *Handlers) DeleteRoom(c *fiber.Ctx) error {
	roomID, ok := roomIDParam(c)
	if !ok {
		return badRequest(c, "Invalid room ID")
	}
	if err := h.rooms.Deactivate(c.UserContext(), roomID); err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			return notFound(c, "Room not found")
		}
		h.logger.WithError(err).Error("room deactivate failed", "room_id", roomID)
		return fiber.ErrInternalServerError
	}
	h.hub.InvalidateRoom(c.UserContext(), roomID)
	return c.SendStatus(fiber.StatusNoContent)
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleWebSocket owns an upgraded connection. The account was bound by
// the gatekeeper before the upgrade.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	user, ok := c.Locals(UserContextKey).(*chat.User)
	if !ok {
		c.Close()
		return
	}
	h.hub.Service().HandleConnection(c, user)
}

func (h *Handlers) announceRoom(room *chat.Room, createdBy string) {
	if h.bus == nil {
		return
	}
	err := events.RoomCreatedV1.Publish(h.bus, events.RoomCreatedEvent{
		RoomID:    room.ID,
		RoomName:  room.Name,
		Topic:     room.Topic,
		CreatedBy: createdBy,
		Timestamp: room.CreatedAt,
	}, nil)
	if err != nil {
		h.logger.WithError(err).Warn("room created event publish failed", "room_id", room.ID)
	}
}

func roomIDParam(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "bad_request", Message: message})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not_found", Message: message})
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
