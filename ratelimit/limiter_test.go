package ratelimit

import (
	"testing"
	"time"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestLimiter(opts ...Option) (*Limiter, *fakeClock) {
	l := NewLimiter(opts...)
	clock := &fakeClock{t: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	l.now = clock.now
	return l, clock
}

func TestLimiter_ExactlyMaxWithinWindow(t *testing.T) {
	l, _ := newTestLimiter(WithLimit(ActionMessage, 10, time.Minute))

	for i := 0; i < 10; i++ {
		if !l.Allow("conn-1", ActionMessage) {
			t.Fatalf("action %d should be allowed", i+1)
		}
	}
	if l.Allow("conn-1", ActionMessage) {
		t.Error("11th action within the window should be denied")
	}
	// Denied calls must not consume budget or roll the window.
	if l.Allow("conn-1", ActionMessage) {
		t.Error("12th action within the window should be denied")
	}
}

func TestLimiter_WindowReset(t *testing.T) {
	l, clock := newTestLimiter(WithLimit(ActionJoin, 2, time.Minute))

	if !l.Allow("conn-1", ActionJoin) || !l.Allow("conn-1", ActionJoin) {
		t.Fatal("first two joins should be allowed")
	}
	if l.Allow("conn-1", ActionJoin) {
		t.Fatal("third join within the window should be denied")
	}

	clock.advance(time.Minute + time.Second)

	if !l.Allow("conn-1", ActionJoin) {
		t.Error("join after window elapsed should be allowed")
	}
	if !l.Allow("conn-1", ActionJoin) {
		t.Error("count should have reset to 1 with the new window")
	}
	if l.Allow("conn-1", ActionJoin) {
		t.Error("budget in the new window should again be exhausted")
	}
}

func TestLimiter_IndependentActionClasses(t *testing.T) {
	l, _ := newTestLimiter(
		WithLimit(ActionMessage, 1, time.Minute),
		WithLimit(ActionTyping, 2, time.Minute),
	)

	if !l.Allow("conn-1", ActionMessage) {
		t.Fatal("first message should be allowed")
	}
	if l.Allow("conn-1", ActionMessage) {
		t.Error("second message should be denied")
	}
	// A denied message class must not affect the typing class.
	if !l.Allow("conn-1", ActionTyping) {
		t.Error("typing should still be allowed")
	}
	if !l.Allow("conn-1", ActionTyping) {
		t.Error("second typing signal should still be allowed")
	}
}

func TestLimiter_IndependentConnections(t *testing.T) {
	l, _ := newTestLimiter(WithLimit(ActionMessage, 1, time.Minute))

	if !l.Allow("conn-1", ActionMessage) {
		t.Fatal("conn-1 first message should be allowed")
	}
	if l.Allow("conn-1", ActionMessage) {
		t.Error("conn-1 second message should be denied")
	}
	if !l.Allow("conn-2", ActionMessage) {
		t.Error("conn-2 must not share conn-1's budget")
	}
}

func TestLimiter_BoundaryBurst(t *testing.T) {
	// Fixed window knowingly admits up to 2*max across a window boundary.
	// This test pins that behavior; changing the algorithm must change it.
	l, clock := newTestLimiter(WithLimit(ActionMessage, 3, time.Minute))

	for i := 0; i < 3; i++ {
		if !l.Allow("conn-1", ActionMessage) {
			t.Fatalf("message %d should be allowed", i+1)
		}
	}

	clock.advance(time.Minute + time.Millisecond)

	for i := 0; i < 3; i++ {
		if !l.Allow("conn-1", ActionMessage) {
			t.Errorf("message %d just past the boundary should be allowed", i+1)
		}
	}
}

func TestLimiter_DropConnection(t *testing.T) {
	l, _ := newTestLimiter(WithLimit(ActionMessage, 1, time.Minute))

	l.Allow("conn-1", ActionMessage)
	l.Allow("conn-1", ActionTyping)
	l.Allow("conn-2", ActionMessage)

	if got := l.Size(); got != 3 {
		t.Fatalf("expected 3 counters, got %d", got)
	}

	l.DropConnection("conn-1")

	if got := l.Size(); got != 1 {
		t.Errorf("expected 1 counter after drop, got %d", got)
	}
	// A reconnect under the same ID starts with empty state.
	if !l.Allow("conn-1", ActionMessage) {
		t.Error("fresh connection should have a fresh budget")
	}
}

func TestLimiter_Sweep(t *testing.T) {
	l, clock := newTestLimiter(
		WithLimit(ActionMessage, 5, time.Minute),
		WithDefaultLimit(100, time.Minute),
	)

	l.Allow("conn-1", ActionMessage)
	l.Allow("conn-2", ActionMessage)

	// Not yet stale: inside window plus one extra window.
	clock.advance(90 * time.Second)
	l.Allow("conn-2", ActionMessage) // rolls conn-2's window forward
	l.sweep()
	if got := l.Size(); got != 2 {
		t.Fatalf("expected 2 counters before staleness, got %d", got)
	}

	// conn-1's counter is now expired for more than one extra window.
	clock.advance(2 * time.Minute)
	l.sweep()
	if got := l.Size(); got != 1 {
		t.Errorf("expected stale counter swept, got %d live", got)
	}
}

func TestLimiter_DefaultLimitForUnknownAction(t *testing.T) {
	l, _ := newTestLimiter(WithDefaultLimit(1, time.Minute))

	if !l.Allow("conn-1", Action("presence")) {
		t.Fatal("first action of an unconfigured class should be allowed")
	}
	if l.Allow("conn-1", Action("presence")) {
		t.Error("default budget should apply to unconfigured classes")
	}
}
