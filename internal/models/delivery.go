package models

import (
	"time"

	"github.com/google/uuid"
)

// Webhook delivery outcomes
const (
	DeliveryRejected  = "rejected"
	DeliveryAccepted  = "accepted"
	DeliveryDuplicate = "duplicate"
	DeliveryIgnored   = "ignored"
)

// WebhookDelivery is one inbound webhook as recorded in the delivery log.
type WebhookDelivery struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Provider   string    `json:"provider" db:"provider"`
	MessageID  *string   `json:"message_id,omitempty" db:"message_id"`
	EventType  string    `json:"event_type" db:"event_type"`
	Outcome    string    `json:"outcome" db:"outcome"`
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
}
