// Package auth issues bearer tokens and resolves them back to users. The hub's
// connection gatekeeper and the REST middleware both authenticate through it.
package auth

import (
	"context"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/community-chat/modules/storage"
)

// Module wires the auth service into the application lifecycle.
type Module struct {
	storage *storage.Module
	service *Service
	logger  types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)

// NewModule creates a new auth module. Configuration comes from JWT_SECRET
// and JWT_TTL (Go duration format).
func NewModule(storageModule *storage.Module, moduleLogger types.Logger) *Module {
	return &Module{
		storage: storageModule,
		logger:  moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "auth"
}

// Start builds the service. The storage module must already be started, which
// registration order guarantees.
func (m *Module) Start(_ context.Context) error {
	cfg := DefaultJWTConfig()
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.SecretKey = secret
	} else {
		m.logger.Warn("JWT_SECRET not set, using development secret")
	}
	if ttl := os.Getenv("JWT_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.TokenDuration = d
		} else {
			m.logger.Warn("Ignoring malformed JWT_TTL", "value", ttl)
		}
	}

	m.service = NewService(
		m.storage.Users(),
		NewPasswordHasher(0),
		NewJWTManager(cfg),
	)

	m.logger.Info("Auth module started", "tokenTTL", cfg.TokenDuration)
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Auth module stopped")
	return nil
}

// Service returns the auth service.
func (m *Module) Service() *Service {
	return m.service
}
