package ratelimit

import (
	"time"
)

// Action identifies a class of rate-limited operation. Each class carries its
// own independent counter per connection.
type Action string

// Action classes used by the chat hub.
const (
	ActionMessage Action = "message"
	ActionTyping  Action = "typing"
	ActionJoin    Action = "join"
)

// Limit defines the budget for one action class: at most Max actions within
// any single fixed window of Window duration.
type Limit struct {
	Max    int
	Window time.Duration
}

// Config holds limiter configuration.
type Config struct {
	// Limits maps action classes to their budgets.
	Limits map[Action]Limit

	// SweepInterval is how often stale counters are garbage-collected.
	SweepInterval time.Duration

	// DefaultLimit applies to action classes with no explicit entry.
	DefaultLimit Limit
}

// DefaultConfig returns the hub's stock budgets: 10 messages, 30 typing
// signals and 5 joins per minute per connection.
func DefaultConfig() Config {
	return Config{
		Limits: map[Action]Limit{
			ActionMessage: {Max: 10, Window: time.Minute},
			ActionTyping:  {Max: 30, Window: time.Minute},
			ActionJoin:    {Max: 5, Window: time.Minute},
		},
		SweepInterval: 5 * time.Minute,
		DefaultLimit:  Limit{Max: 100, Window: time.Minute},
	}
}

// Option is a function that modifies Config.
type Option func(*Config)

// WithLimit sets the budget for an action class.
func WithLimit(action Action, max int, window time.Duration) Option {
	return func(c *Config) {
		if c.Limits == nil {
			c.Limits = make(map[Action]Limit)
		}
		c.Limits[action] = Limit{Max: max, Window: window}
	}
}

// WithSweepInterval sets how often stale counters are swept.
func WithSweepInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.SweepInterval = interval
	}
}

// WithDefaultLimit sets the budget for unconfigured action classes.
func WithDefaultLimit(max int, window time.Duration) Option {
	return func(c *Config) {
		c.DefaultLimit = Limit{Max: max, Window: window}
	}
}
