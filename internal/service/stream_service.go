package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tullo/relay/internal/cache"
	"github.com/tullo/relay/internal/events"
	"github.com/tullo/relay/internal/metrics"
	"github.com/tullo/relay/internal/models"
)

// StreamService owns the stream live flag. Only the streaming-provider webhook
// and the manual override write through it.
type StreamService struct {
	store cache.Store
	bus   *events.Bus
}

func NewStreamService(store cache.Store, bus *events.Bus) *StreamService {
	return &StreamService{store: store, bus: bus}
}

// Status reads the current flag. An unset flag reads as offline. The start
// time is best effort and never changes the live answer.
func (s *StreamService) Status(ctx context.Context) (models.StreamStatus, error) {
	live, err := s.store.GetBool(ctx, cache.KeyStreamLive)
	if err != nil {
		return models.StreamStatus{}, fmt.Errorf("failed to read stream status: %w", err)
	}

	status := models.StreamStatus{Live: live}
	if !live {
		return status, nil
	}

	raw, ok, err := s.store.Get(ctx, cache.KeyStreamStartedAt)
	if err != nil {
		log.Printf("WARN stream is live but start time is unreadable: %v", err)
		return status, nil
	}
	if ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			status.StartedAt = &t
		}
	}
	return status, nil
}

// GoLive marks the stream live and publishes the transition.
func (s *StreamService) GoLive(ctx context.Context, startedAt time.Time) error {
	if err := s.store.SetBool(ctx, cache.KeyStreamLive, true); err != nil {
		return fmt.Errorf("failed to set stream live: %w", err)
	}
	metrics.StreamLive.Set(1)

	if err := s.store.Set(ctx, cache.KeyStreamStartedAt, startedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		log.Printf("ERROR failed to store stream start time: %v", err)
	}

	return s.bus.PublishStreamStatus(ctx, models.StreamStatusEvent{Live: true, StartedAt: &startedAt})
}

// GoOffline marks the stream offline and publishes the transition.
func (s *StreamService) GoOffline(ctx context.Context) error {
	if err := s.store.SetBool(ctx, cache.KeyStreamLive, false); err != nil {
		return fmt.Errorf("failed to set stream offline: %w", err)
	}
	metrics.StreamLive.Set(0)

	if err := s.store.Del(ctx, cache.KeyStreamStartedAt); err != nil {
		log.Printf("ERROR failed to clear stream start time: %v", err)
	}

	return s.bus.PublishStreamStatus(ctx, models.StreamStatusEvent{Live: false})
}

// Override is the manual write path.
func (s *StreamService) Override(ctx context.Context, live bool) error {
	if live {
		return s.GoLive(ctx, time.Now())
	}
	return s.GoOffline(ctx)
}
