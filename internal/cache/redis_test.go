package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real server: REDIS_TEST_URL=redis://localhost:6379/15
func newTestRedisStore(t *testing.T) *RedisStore {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	s, err := NewRedisStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStore_BoundedListAndFlag(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	key := "test:recent:" + t.Name()
	require.NoError(t, s.Del(ctx, key))

	for i := 0; i < 12; i++ {
		require.NoError(t, s.PushBounded(ctx, key, []byte{byte('a' + i)}, 10))
	}
	vals, err := s.RangeList(ctx, key, 10)
	require.NoError(t, err)
	require.Len(t, vals, 10)
	assert.Equal(t, "l", string(vals[0]))

	flag := "test:flag:" + t.Name()
	require.NoError(t, s.Del(ctx, flag))
	live, err := s.GetBool(ctx, flag)
	require.NoError(t, err)
	assert.False(t, live)
}

func TestRedisStore_SubscribeReceivesAfterConfirm(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	channel := "test:chan:" + t.Name()

	sub, err := s.Subscribe(ctx, channel)
	require.NoError(t, err)

	require.NoError(t, s.Publish(ctx, channel, []byte("hello")))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "hello", string(msg.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	require.NoError(t, sub.Close())
	_, ok := <-sub.Channel()
	assert.False(t, ok)
}
