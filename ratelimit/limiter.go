// Package ratelimit implements per-connection fixed-window rate limiting for
// the chat hub's action classes.
//
// Fixed window is a deliberate simplification: counts reset atomically at
// window boundaries, so a burst straddling a boundary can briefly exceed the
// nominal rate. That imprecision is traded for O(1) state per key.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

type counter struct {
	count   int
	resetAt time.Time
}

// Limiter tracks fixed-window counters keyed by (connection, action class).
// Counters are created on first use, reset when their window expires, dropped
// synchronously on disconnect and garbage-collected by a periodic sweep once
// stale beyond one extra window.
type Limiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	config   Config

	cancelSweep context.CancelFunc
	sweepDone   chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

// NewLimiter creates a limiter with the given options applied on top of
// DefaultConfig.
func NewLimiter(opts ...Option) *Limiter {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Limiter{
		counters: make(map[string]*counter),
		config:   cfg,
		now:      time.Now,
	}
}

func key(connID string, action Action) string {
	return connID + ":" + string(action)
}

func (l *Limiter) limitFor(action Action) Limit {
	if limit, ok := l.config.Limits[action]; ok {
		return limit
	}
	return l.config.DefaultLimit
}

// Allow reports whether the connection may perform one more action of the
// given class. A denied call does not consume budget.
func (l *Limiter) Allow(connID string, action Action) bool {
	limit := l.limitFor(action)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	k := key(connID, action)
	c, ok := l.counters[k]
	if !ok {
		l.counters[k] = &counter{count: 1, resetAt: now.Add(limit.Window)}
		return true
	}

	if now.After(c.resetAt) {
		c.count = 1
		c.resetAt = now.Add(limit.Window)
		return true
	}

	if c.count >= limit.Max {
		return false
	}

	c.count++
	return true
}

// DropConnection removes every counter belonging to a connection. Called
// synchronously on disconnect so per-connection state never leaks.
func (l *Limiter) DropConnection(connID string) {
	prefix := connID + ":"

	l.mu.Lock()
	defer l.mu.Unlock()

	for k := range l.counters {
		if strings.HasPrefix(k, prefix) {
			delete(l.counters, k)
		}
	}
}

// sweep removes counters whose window expired more than one extra window ago,
// bounding memory independent of traffic bursts.
func (l *Limiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, c := range l.counters {
		// The key's own window length is unknown at sweep time; one extra
		// default window past resetAt is stale for every class.
		if now.After(c.resetAt.Add(l.config.DefaultLimit.Window)) {
			delete(l.counters, k)
		}
	}
}

// Start launches the periodic sweep as a scheduled maintenance task.
func (l *Limiter) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancelSweep = cancel
	l.sweepDone = make(chan struct{})

	go func() {
		defer close(l.sweepDone)
		ticker := time.NewTicker(l.config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}

// Stop terminates the sweep task and waits for it to exit.
func (l *Limiter) Stop() {
	if l.cancelSweep != nil {
		l.cancelSweep()
		<-l.sweepDone
	}
}

// Size returns the number of live counters. Used by health checks and tests.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}
