package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tullo/relay/internal/metrics"
	"github.com/tullo/relay/internal/models"
)

const (
	providerPolar  = "polar"
	providerTwitch = "twitch"

	deliveryRecordTimeout = 2 * time.Second
	deliveryListLimit     = 50
)

// DeliveryRecorder stores the outcome of inbound webhooks.
type DeliveryRecorder interface {
	Record(ctx context.Context, d *models.WebhookDelivery) error
}

// DeliveryLister reads back recorded webhook deliveries.
type DeliveryLister interface {
	List(ctx context.Context, limit int) ([]models.WebhookDelivery, error)
}

// recordDelivery counts the webhook and logs it to the delivery log when one is
// configured. Failures never affect the webhook response.
func recordDelivery(ctx context.Context, rec DeliveryRecorder, provider, messageID, eventType, outcome string) {
	metrics.WebhookRequestsTotal.WithLabelValues(provider, outcome).Inc()
	if rec == nil {
		return
	}

	d := &models.WebhookDelivery{
		Provider:   provider,
		EventType:  eventType,
		Outcome:    outcome,
		ReceivedAt: time.Now().UTC(),
	}
	if messageID != "" {
		d.MessageID = &messageID
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryRecordTimeout)
	defer cancel()
	if err := rec.Record(ctx, d); err != nil {
		log.Printf("WARN failed to record %s webhook delivery: %v", provider, err)
	}
}

type AdminHandler struct {
	deliveries DeliveryLister
}

func NewAdminHandler(deliveries DeliveryLister) *AdminHandler {
	return &AdminHandler{deliveries: deliveries}
}

// ListDeliveries returns the most recent webhook deliveries.
func (h *AdminHandler) ListDeliveries(c *gin.Context) {
	if h.deliveries == nil {
		ErrorResponse(c, http.StatusServiceUnavailable, "Delivery log not configured")
		return
	}

	deliveries, err := h.deliveries.List(c.Request.Context(), deliveryListLimit)
	if err != nil {
		log.Printf("ERROR failed to list webhook deliveries: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list deliveries")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deliveries": deliveries})
}
