// Package cache provides a Redis-backed read cache for room lookups. The hub
// checks room existence and the active flag on every join, send and typing
// event; caching those reads keeps the hot path off the relational store.
//
// The cache degrades, never fails: any Redis error counts as a miss and the
// loader serves the request directly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/example/community-chat/domain/chat"
)

// Loader fetches a room from the authoritative store on a cache miss.
type Loader func(ctx context.Context) (*chat.Room, error)

// Stats tracks cache statistics.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Errors uint64 `json:"errors"`
}

// Config holds room cache configuration.
type Config struct {
	RedisAddr string
	Prefix    string
	TTL       time.Duration
}

// DefaultConfig returns the default cache configuration. The TTL is short so
// a room deactivation takes effect quickly even without invalidation.
func DefaultConfig() Config {
	return Config{
		RedisAddr: "localhost:6379",
		Prefix:    "room:",
		TTL:       30 * time.Second,
	}
}

// RoomCache is a cache-aside layer over the room store. Concurrent misses for
// the same room are collapsed into a single loader call.
type RoomCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	group  singleflight.Group
	stats  Stats
}

// New creates a room cache. A nil client disables Redis entirely; loads still
// flow through singleflight so concurrent misses stay deduplicated.
func New(client *redis.Client, prefix string, ttl time.Duration) *RoomCache {
	return &RoomCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *RoomCache) key(id uint) string {
	return c.prefix + strconv.FormatUint(uint64(id), 10)
}

// Get returns the room, from Redis when fresh, from the loader otherwise.
// Loader errors (including not-found sentinels) pass through unchanged.
func (c *RoomCache) Get(ctx context.Context, id uint, load Loader) (*chat.Room, error) {
	if c.client != nil {
		data, err := c.client.Get(ctx, c.key(id)).Bytes()
		switch {
		case err == nil:
			var room chat.Room
			if jsonErr := json.Unmarshal(data, &room); jsonErr == nil {
				atomic.AddUint64(&c.stats.Hits, 1)
				return &room, nil
			}
			atomic.AddUint64(&c.stats.Errors, 1)
		case errors.Is(err, redis.Nil):
			atomic.AddUint64(&c.stats.Misses, 1)
		default:
			atomic.AddUint64(&c.stats.Errors, 1)
		}
	}

	v, err, _ := c.group.Do(c.key(id), func() (any, error) {
		room, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, room)
		return room, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*chat.Room), nil
}

// store writes a room back to Redis. Failures are counted and dropped.
func (c *RoomCache) store(ctx context.Context, room *chat.Room) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(room)
	if err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return
	}
	if err := c.client.Set(ctx, c.key(room.ID), data, c.ttl).Err(); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
	}
}

// Invalidate drops a room from the cache. Called when the REST layer mutates
// a room so the hub sees the change before the TTL would expire it.
func (c *RoomCache) Invalidate(ctx context.Context, id uint) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return err
	}
	return nil
}

// Snapshot returns current statistics.
func (c *RoomCache) Snapshot() Stats {
	return Stats{
		Hits:   atomic.LoadUint64(&c.stats.Hits),
		Misses: atomic.LoadUint64(&c.stats.Misses),
		Errors: atomic.LoadUint64(&c.stats.Errors),
	}
}
