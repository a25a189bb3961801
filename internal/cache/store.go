package cache

import (
	"context"
	"errors"
	"time"
)

// Keys and channels shared by every relay instance.
const (
	KeyStreamLive      = "stream:live"
	KeyStreamStartedAt = "stream:started_at"
	KeyRecentPurchases = "recent:purchases"

	ChannelPurchaseAlerts = "alerts:purchase"
	ChannelStreamStatus   = "stream:status"

	RecentPurchasesCapacity = 10
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("store unavailable")

// Message is one pub/sub delivery.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription is a live pub/sub subscription. Channel is closed once the
// subscription ends, either through Close or because the backend connection broke.
type Subscription interface {
	Channel() <-chan Message
	Close() error
}

// Store is the shared key/value and pub/sub backend.
type Store interface {
	GetBool(ctx context.Context, key string) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error

	// PushBounded prepends value to the list and truncates it to capacity entries.
	PushBounded(ctx context.Context, key string, value []byte, capacity int) error
	// RangeList returns at most capacity entries, newest first.
	RangeList(ctx context.Context, key string, capacity int) ([][]byte, error)

	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns once the backend has confirmed the subscription.
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)

	// MarkOnce sets key if absent and reports whether this call set it.
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)

	Close() error
}
