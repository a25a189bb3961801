package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/tullo/relay/internal/cache"
	"github.com/tullo/relay/internal/events"
	"github.com/tullo/relay/internal/metrics"
	"github.com/tullo/relay/internal/models"
)

// AlertService records purchase events: one publish plus one entry in the
// bounded recent-purchases list per purchase.
type AlertService struct {
	store cache.Store
	bus   *events.Bus
	now   func() time.Time
}

func NewAlertService(store cache.Store, bus *events.Bus) *AlertService {
	return &AlertService{store: store, bus: bus, now: time.Now}
}

// Record publishes the purchase and stores it in the recent list. Invalid
// requests are rejected before anything is published.
func (s *AlertService) Record(ctx context.Context, req models.PurchaseAlertRequest) (models.PurchaseEvent, error) {
	if err := req.Validate(); err != nil {
		return models.PurchaseEvent{}, fmt.Errorf("invalid purchase alert: %w", err)
	}
	ev := models.NewPurchaseEvent(req, s.now())

	if err := s.bus.PublishPurchase(ctx, ev); err != nil {
		return models.PurchaseEvent{}, err
	}
	metrics.PurchaseAlertsTotal.Inc()

	data, err := json.Marshal(ev)
	if err != nil {
		return models.PurchaseEvent{}, fmt.Errorf("failed to marshal purchase: %w", err)
	}
	if err := s.store.PushBounded(ctx, cache.KeyRecentPurchases, data, cache.RecentPurchasesCapacity); err != nil {
		return models.PurchaseEvent{}, fmt.Errorf("failed to store recent purchase: %w", err)
	}

	return ev, nil
}

// Recent returns up to ten purchases, newest first. Entries that do not decode are skipped.
func (s *AlertService) Recent(ctx context.Context) ([]models.PurchaseEvent, error) {
	raw, err := s.store.RangeList(ctx, cache.KeyRecentPurchases, cache.RecentPurchasesCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent purchases: %w", err)
	}

	purchases := make([]models.PurchaseEvent, 0, len(raw))
	for _, r := range raw {
		var ev models.PurchaseEvent
		if err := json.Unmarshal(r, &ev); err != nil {
			log.Printf("WARN skipping malformed recent purchase: %v", err)
			continue
		}
		purchases = append(purchases, ev)
	}
	return purchases, nil
}
