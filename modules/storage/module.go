// Package storage provides the relational store behind the chat backend:
// users, rooms and messages persisted with GORM over SQLite.
package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/community-chat/domain/chat"
)

// Module owns the database connection and exposes the repositories.
type Module struct {
	db     *gorm.DB
	dbPath string
	logger types.Logger

	users    *UserRepository
	rooms    *RoomRepository
	messages *MessageRepository
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new storage module. The database path comes from
// DB_PATH, defaulting to community-chat.db.
func NewModule(moduleLogger types.Logger) *Module {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "community-chat.db"
	}
	return &Module{
		dbPath: dbPath,
		logger: moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "storage"
}

// Start opens the database, runs migrations and initializes repositories.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Connecting to SQLite database", "path", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&chat.User{}, &chat.Room{}, &chat.Message{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.users = NewUserRepository(m.db)
	m.rooms = NewRoomRepository(m.db)
	m.messages = NewMessageRepository(m.db)

	m.logger.Info("Storage module started")
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	m.logger.Info("Storage module stopped")
	return nil
}

// Health reports database connectivity.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// Users returns the user repository.
func (m *Module) Users() *UserRepository {
	return m.users
}

// Rooms returns the room repository.
func (m *Module) Rooms() *RoomRepository {
	return m.rooms
}

// Messages returns the message repository.
func (m *Module) Messages() *MessageRepository {
	return m.messages
}
