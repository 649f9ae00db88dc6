// Package hub is the real-time core: it owns every websocket session,
// room membership, typing state and the message pipelines that fan
// events out to connected clients.
package hub

import (
	"context"
	"fmt"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"

	"github.com/example/community-chat/domain/chat"
	"github.com/example/community-chat/events"
	"github.com/example/community-chat/modules/cache"
	"github.com/example/community-chat/modules/storage"
	"github.com/example/community-chat/ratelimit"
)

const ModuleName = "hub"

var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
)

// Module wires the hub into the application: storage access, the rate
// limiter lifecycle, the Redis room cache and the event bus.
type Module struct {
	storage *storage.Module
	logger  types.Logger

	hub     *Hub
	service *Service
	limiter *ratelimit.Limiter
	cache   *cache.RoomCache
	redis   *redis.Client
	bus     mono.EventBus

	sweepCancel context.CancelFunc
}

func NewModule(storageModule *storage.Module, logger types.Logger) *Module {
	return &Module{
		storage: storageModule,
		logger:  logger.WithModule(ModuleName),
	}
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) Start(ctx context.Context) error {
	newConnID, err := nanoid.Standard(21)
	if err != nil {
		return fmt.Errorf("failed to create connection id generator: %w", err)
	}

	m.limiter = ratelimit.NewLimiter()
	sweepCtx, cancel := context.WithCancel(context.Background())
	m.sweepCancel = cancel
	m.limiter.Start(sweepCtx)

	cacheConfig := cache.DefaultConfig()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cacheConfig.RedisAddr = addr
		m.redis = redis.NewClient(&redis.Options{Addr: addr})
		m.logger.Info("room cache enabled", "redis_addr", addr)
	} else {
		m.logger.Info("room cache running without redis")
	}
	m.cache = cache.New(m.redis, cacheConfig.Prefix, cacheConfig.TTL)

	m.hub = NewHub()
	rooms := &cachedRoomFinder{cache: m.cache, repo: m.storage.Rooms()}
	m.service = NewService(m.hub, m.limiter, m.storage.Users(), rooms, m.storage.Messages(), newConnID, m.logger)
	if m.bus != nil {
		m.service.SetEventBus(m.bus)
	}

	m.logger.Info("hub started")
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	if m.hub != nil {
		m.hub.CloseAll()
	}
	if m.sweepCancel != nil {
		m.sweepCancel()
	}
	if m.limiter != nil {
		m.limiter.Stop()
	}
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			m.logger.WithError(err).Warn("failed to close redis client")
		}
	}
	m.logger.Info("hub stopped")
	return nil
}

// SetEventBus satisfies mono.EventBusAwareModule.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.bus = bus
	if m.service != nil {
		m.service.SetEventBus(bus)
	}
}

// EmitEvents satisfies mono.EventEmitterModule.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserOnlineV1.ToBase(),
		events.UserOfflineV1.ToBase(),
	}
}

// RegisterEventConsumers satisfies mono.EventConsumerModule. Room
// creation happens in the REST layer; the hub fans the announcement out
// to every connected client.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	return helper.RegisterTypedEventConsumer(registry, events.RoomCreatedV1, m.handleRoomCreated, m)
}

func (m *Module) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	m.service.AnnounceRoom(event.RoomID, event.RoomName, event.Topic)
	return nil
}

// Health satisfies mono.HealthCheckableModule.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.hub == nil {
		return mono.HealthStatus{Healthy: false, Message: "hub not started"}
	}
	stats := m.cache.Snapshot()
	return mono.HealthStatus{
		Healthy: true,
		Message: "hub running",
		Details: map[string]any{
			"sessions":     m.hub.SessionCount(),
			"rooms":        m.hub.RoomCount(),
			"limiter_keys": m.limiter.Size(),
			"cache_hits":   stats.Hits,
			"cache_misses": stats.Misses,
			"cache_errors": stats.Errors,
		},
	}
}

// Service exposes the connection handler to the websocket server.
func (m *Module) Service() *Service { return m.service }

// InvalidateRoom drops a room from the cache after an admin change.
func (m *Module) InvalidateRoom(ctx context.Context, roomID uint) {
	if err := m.cache.Invalidate(ctx, roomID); err != nil {
		m.logger.WithError(err).Warn("room cache invalidation failed", "room_id", roomID)
	}
}

// cachedRoomFinder reads rooms through the cache with the repository as
// the authoritative loader.
type cachedRoomFinder struct {
	cache *cache.RoomCache
	repo  *storage.RoomRepository
}

func (f *cachedRoomFinder) FindByID(ctx context.Context, id uint) (*chat.Room, error) {
	return f.cache.Get(ctx, id, func(ctx context.Context) (*chat.Room, error) {
		return f.repo.FindByID(ctx, id)
	})
}
