package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tullo/relay/internal/database"
	"github.com/tullo/relay/internal/models"
)

type DeliveryRepository struct {
	db *database.DB
}

func NewDeliveryRepository(db *database.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Record inserts one webhook delivery. ID and ReceivedAt are filled when empty.
func (r *DeliveryRepository) Record(ctx context.Context, d *models.WebhookDelivery) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.ReceivedAt.IsZero() {
		d.ReceivedAt = time.Now()
	}

	query := `
		INSERT INTO webhook_deliveries (id, provider, message_id, event_type, outcome, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.Provider,
		d.MessageID,
		d.EventType,
		d.Outcome,
		d.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record webhook delivery: %w", err)
	}
	return nil
}

// List returns the most recent deliveries, newest first.
func (r *DeliveryRepository) List(ctx context.Context, limit int) ([]models.WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, provider, message_id, event_type, outcome, received_at
		FROM webhook_deliveries
		ORDER BY received_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook deliveries: %w", err)
	}
	defer rows.Close()

	out := make([]models.WebhookDelivery, 0, limit)
	for rows.Next() {
		var d models.WebhookDelivery
		if err := rows.Scan(&d.ID, &d.Provider, &d.MessageID, &d.EventType, &d.Outcome, &d.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook delivery: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
