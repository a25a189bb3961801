package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore implements Store on top of a Redis server.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at url (redis://[:password@]host:port[/db]).
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) GetBool(ctx context.Context, key string) (bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "true", nil
}

func (r *RedisStore) SetBool(ctx context.Context, key string, value bool) error {
	val := "false"
	if value {
		val = "true"
	}
	return r.client.Set(ctx, key, val, 0).Err()
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisStore) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// PushBounded runs LPUSH and LTRIM in a single MULTI so concurrent writers never
// observe a list longer than capacity.
func (r *RedisStore) PushBounded(ctx context.Context, key string, value []byte, capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, int64(capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push to %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) RangeList(ctx context.Context, key string, capacity int) ([][]byte, error) {
	if capacity <= 0 {
		return nil, nil
	}
	vals, err := r.client.LRange(ctx, key, 0, int64(capacity-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}

// Pub/Sub

func (r *RedisStore) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a dedicated pub/sub connection for channels.
func (r *RedisStore) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	ps := r.client.Subscribe(ctx, channels...)

	// Wait for the confirmation so publishes after this call are delivered.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %v: %w", channels, err)
	}

	s := &redisSubscription{
		ps:   ps,
		out:  make(chan Message, 64),
		done: make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	out  chan Message
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) Channel() <-chan Message {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

// pump ends on the first receive error so a broken connection closes the
// subscription instead of silently resubscribing.
func (s *redisSubscription) pump() {
	defer close(s.out)
	for {
		msg, err := s.ps.ReceiveMessage(context.Background())
		if err != nil {
			return
		}
		select {
		case s.out <- Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
		case <-s.done:
			return
		}
	}
}

// MarkOnce is SETNX with a TTL.
func (r *RedisStore) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, "1", ttl).Result()
}

// AllowAction implements a Redis-backed token-bucket limiter per key.
// Returns true if the action is allowed, false if rate-limited.
func (r *RedisStore) AllowAction(ctx context.Context, key string, rate int, burst int) (bool, error) {
	key = "rl:" + key
	// Lua script: manage tokens and last timestamp
	script := `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local vals = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(vals[1])
local last = tonumber(vals[2])
if tokens == nil then tokens = burst end
if last == nil then last = now end
local delta = math.max(0, now - last)
local new_tokens = math.min(burst, tokens + (delta * rate / 1000))
local allowed = 0
if new_tokens >= 1 then
	new_tokens = new_tokens - 1
	allowed = 1
end
redis.call('HMSET', key, 'tokens', new_tokens, 'last', now)
redis.call('PEXPIRE', key, 60000)
return allowed
`

	now := time.Now().UnixNano() / int64(time.Millisecond)
	res, err := r.client.Eval(ctx, script, []string{key}, rate, burst, now).Result()
	if err != nil {
		return false, err
	}
	// Eval returns int64 (1 or 0)
	switch v := res.(type) {
	case int64:
		return v == 1, nil
	default:
		return false, fmt.Errorf("unexpected result from rate limiter: %T %v", res, res)
	}
}
