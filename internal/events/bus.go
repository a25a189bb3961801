// Package events publishes relay events on the shared store's pub/sub channels
// and mirrors them to optional downstream sinks.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tullo/relay/internal/cache"
	"github.com/tullo/relay/internal/models"
)

const mirrorTimeout = 5 * time.Second

// Channels are the channels every alert subscriber listens on.
var Channels = []string{cache.ChannelPurchaseAlerts, cache.ChannelStreamStatus}

// Mirror receives a copy of every published event, e.g. an analytics stream.
type Mirror interface {
	Name() string
	Emit(ctx context.Context, channel string, payload []byte) error
}

// Bus publishes stream status and purchase events.
type Bus struct {
	store   cache.Store
	mirrors []Mirror
	wg      sync.WaitGroup
}

// NewBus creates a Bus publishing through store.
func NewBus(store cache.Store, mirrors ...Mirror) *Bus {
	return &Bus{store: store, mirrors: mirrors}
}

// Publish marshals v and publishes it on channel. Mirrors are fed asynchronously
// and their failures are only logged.
func (b *Bus) Publish(ctx context.Context, channel string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", channel, err)
	}

	if err := b.store.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", channel, err)
	}

	for _, m := range b.mirrors {
		b.wg.Add(1)
		go func(m Mirror) {
			defer b.wg.Done()
			mctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
			defer cancel()
			if err := m.Emit(mctx, channel, payload); err != nil {
				log.Printf("WARN %s mirror failed for %s: %v", m.Name(), channel, err)
			}
		}(m)
	}

	return nil
}

// PublishStreamStatus publishes on the stream status channel.
func (b *Bus) PublishStreamStatus(ctx context.Context, ev models.StreamStatusEvent) error {
	return b.Publish(ctx, cache.ChannelStreamStatus, ev)
}

// PublishPurchase publishes on the purchase alerts channel.
func (b *Bus) PublishPurchase(ctx context.Context, ev models.PurchaseEvent) error {
	return b.Publish(ctx, cache.ChannelPurchaseAlerts, ev)
}

// Subscribe opens a subscription to every alert channel. The caller must Close it.
func (b *Bus) Subscribe(ctx context.Context) (cache.Subscription, error) {
	return b.store.Subscribe(ctx, Channels...)
}

// Wait blocks until in-flight mirror deliveries finish.
func (b *Bus) Wait() {
	b.wg.Wait()
}
