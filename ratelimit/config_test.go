package ratelimit

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		action Action
		max    int
		window time.Duration
	}{
		{ActionMessage, 10, time.Minute},
		{ActionTyping, 30, time.Minute},
		{ActionJoin, 5, time.Minute},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			limit, ok := cfg.Limits[tt.action]
			if !ok {
				t.Fatalf("no limit configured for %s", tt.action)
			}
			if limit.Max != tt.max {
				t.Errorf("Max = %d, want %d", limit.Max, tt.max)
			}
			if limit.Window != tt.window {
				t.Errorf("Window = %v, want %v", limit.Window, tt.window)
			}
		})
	}

	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", cfg.SweepInterval)
	}
}

func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	WithLimit(ActionMessage, 3, 10*time.Second)(&cfg)
	WithSweepInterval(time.Second)(&cfg)
	WithDefaultLimit(7, time.Hour)(&cfg)

	if got := cfg.Limits[ActionMessage]; got.Max != 3 || got.Window != 10*time.Second {
		t.Errorf("WithLimit not applied: %+v", got)
	}
	if cfg.SweepInterval != time.Second {
		t.Errorf("WithSweepInterval not applied: %v", cfg.SweepInterval)
	}
	if cfg.DefaultLimit.Max != 7 || cfg.DefaultLimit.Window != time.Hour {
		t.Errorf("WithDefaultLimit not applied: %+v", cfg.DefaultLimit)
	}
}

func TestWithLimit_NilMap(t *testing.T) {
	var cfg Config
	WithLimit(ActionJoin, 1, time.Minute)(&cfg)

	if got := cfg.Limits[ActionJoin]; got.Max != 1 {
		t.Errorf("WithLimit on zero Config not applied: %+v", got)
	}
}
