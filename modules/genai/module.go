package genai

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

const ModuleName = "genai"

var _ mono.Module = (*Module)(nil)

// Module wires the generation service into the application and owns
// the lifecycle of its per-user limiter sweep.
type Module struct {
	completer Completer
	logger    types.Logger

	service     *Service
	sweepCancel context.CancelFunc
}

func NewModule(completer Completer, logger types.Logger) *Module {
	return &Module{
		completer: completer,
		logger:    logger.WithModule(ModuleName),
	}
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) Start(ctx context.Context) error {
	m.service = NewService(m.completer, m.logger)

	sweepCtx, cancel := context.WithCancel(context.Background())
	m.sweepCancel = cancel
	m.service.limiter.Start(sweepCtx)

	m.logger.Info("Generation service started")
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	if m.sweepCancel != nil {
		m.sweepCancel()
	}
	if m.service != nil {
		m.service.limiter.Stop()
	}
	m.logger.Info("Generation service stopped")
	return nil
}

// Service returns the generation service. Only valid after Start.
func (m *Module) Service() *Service {
	return m.service
}
