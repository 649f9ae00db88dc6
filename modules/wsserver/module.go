// Package wsserver exposes the HTTP surface: the REST API for accounts
// and rooms, and the authenticated websocket endpoint feeding the hub.
package wsserver

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/community-chat/events"
	"github.com/example/community-chat/modules/auth"
	"github.com/example/community-chat/modules/genai"
	"github.com/example/community-chat/modules/hub"
	"github.com/example/community-chat/modules/storage"
)

const ModuleName = "ws-server"

var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// Module runs the Fiber server.
type Module struct {
	app      *fiber.App
	handlers *Handlers
	addr     string

	authModule    *auth.Module
	storageModule *storage.Module
	hubModule     *hub.Module
	genaiModule   *genai.Module
	bus           mono.EventBus
	logger        types.Logger
}

func NewModule(addr string, authModule *auth.Module, storageModule *storage.Module, hubModule *hub.Module, genaiModule *genai.Module, moduleLogger types.Logger) *Module {
	return &Module{
		addr:          addr,
		authModule:    authModule,
		storageModule: storageModule,
		hubModule:     hubModule,
		genaiModule:   genaiModule,
		logger:        moduleLogger.WithModule(ModuleName),
	}
}

func (m *Module) Name() string {
	return ModuleName
}

func (m *Module) Start(ctx context.Context) error {
	m.app = fiber.New(fiber.Config{
		AppName:               "Community Chat",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.handlers = NewHandlers(m.authModule.Service(), m.storageModule.Rooms(), m.storageModule.Messages(), m.hubModule, m.genaiModule.Service(), m.logger)
	if m.bus != nil {
		m.handlers.SetEventBus(m.bus)
	}

	m.registerRoutes()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("server started", "addr", m.addr)
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	m.logger.Info("server stopped")
	return nil
}

// SetEventBus satisfies mono.EventBusAwareModule.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.bus = bus
	if m.handlers != nil {
		m.handlers.SetEventBus(bus)
	}
}

// EmitEvents satisfies mono.EventEmitterModule.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
	}
}

func (m *Module) registerRoutes() {
	m.app.Get("/health", m.handlers.HealthCheck)

	api := m.app.Group("/api")
	api.Post("/register", m.handlers.Register)
	api.Post("/login", m.handlers.Login)

	authed := api.Group("", AuthMiddleware(m.authModule.Service()))
	authed.Get("/rooms", m.handlers.ListRooms)
	authed.Get("/rooms/:id", m.handlers.GetRoom)
	authed.Get("/rooms/:id/chats", m.handlers.GetRoomHistory)

	admin := authed.Group("", RequireAdmin())
	admin.Post("/rooms", m.handlers.CreateRoom)
	admin.Delete("/rooms/:id", m.handlers.DeleteRoom)

	m.app.Use("/ws", UpgradeGatekeeper(m.authModule.Service()))
	m.app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))
}

func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	m.logger.Error("HTTP error", "code", code, "message", message, "error", err)

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
