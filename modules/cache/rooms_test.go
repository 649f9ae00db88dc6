package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/community-chat/domain/chat"
)

func TestRoomCache_DisabledPassthrough(t *testing.T) {
	c := New(nil, "room:", time.Minute)

	want := &chat.Room{ID: 7, Name: "General", IsActive: true}
	got, err := c.Get(context.Background(), 7, func(context.Context) (*chat.Room, error) {
		return want, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.ID)
	assert.Equal(t, "General", got.Name)
}

func TestRoomCache_LoaderErrorPassesThrough(t *testing.T) {
	c := New(nil, "room:", time.Minute)
	sentinel := errors.New("room not found")

	_, err := c.Get(context.Background(), 1, func(context.Context) (*chat.Room, error) {
		return nil, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestRoomCache_Invalidate(t *testing.T) {
	t.Run("disabled cache is a no-op", func(t *testing.T) {
		c := New(nil, "room:", time.Minute)
		assert.NoError(t, c.Invalidate(context.Background(), 7))
	})

	t.Run("redis failure surfaces to the caller", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 100 * time.Millisecond,
			MaxRetries:  -1,
		})
		defer client.Close()

		c := New(client, "room:", time.Minute)
		err := c.Invalidate(context.Background(), 7)
		require.Error(t, err)
		assert.EqualValues(t, 1, c.Snapshot().Errors)
	})
}

func TestRoomCache_SingleflightDedup(t *testing.T) {
	c := New(nil, "room:", time.Minute)
	ctx := context.Background()

	var calls int32
	gate := make(chan struct{})
	load := func(context.Context) (*chat.Room, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return &chat.Room{ID: 3, Name: "Slow", IsActive: true}, nil
	}

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(ctx, 3, load)
			assert.NoError(t, err)
		}()
	}

	// Give every goroutine time to pile onto the same key, then release.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRoomCache_Keying(t *testing.T) {
	c := New(nil, "room:", time.Minute)
	assert.Equal(t, "room:42", c.key(42))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "room:", cfg.Prefix)
	assert.Equal(t, 30*time.Second, cfg.TTL)
}
