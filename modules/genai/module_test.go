package genai

import (
	"context"
	"strings"
	"testing"
)

func TestModuleLifecycle(t *testing.T) {
	m := NewModule(UnavailableCompleter{}, nopLogger{})
	if m.Name() != ModuleName {
		t.Errorf("Name() = %q, want %q", m.Name(), ModuleName)
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	svc := m.Service()
	if svc == nil {
		t.Fatal("Service() returned nil after Start")
	}

	msg := svc.GenerateOpeningMessage(context.Background(), "u1", "Garden Talk", "", "")
	if !strings.Contains(msg, "Welcome to Garden Talk!") {
		t.Errorf("opening message = %q, want the fallback greeting", msg)
	}

	// Stop waits for the sweep goroutine to exit, so returning at all
	// proves the sweep was running.
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
}
