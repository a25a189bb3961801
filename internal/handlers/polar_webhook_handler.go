package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tullo/relay/config"
	"github.com/tullo/relay/internal/models"
	"github.com/tullo/relay/internal/service"
	"github.com/tullo/relay/internal/signature"
)

const polarSignatureHeader = "X-Polar-Signature"

// PolarWebhookHandler ingests checkout events from Polar. Once the signature
// checks out the provider always gets 200, whatever happens downstream.
type PolarWebhookHandler struct {
	secret     []byte
	maxBody    int64
	forwarder  *service.AsyncForwarder
	deliveries DeliveryRecorder
}

func NewPolarWebhookHandler(cfg config.WebhookConfig, forwarder *service.AsyncForwarder, deliveries DeliveryRecorder) *PolarWebhookHandler {
	return &PolarWebhookHandler{
		secret:     []byte(cfg.PolarSecret),
		maxBody:    cfg.MaxBodyBytes,
		forwarder:  forwarder,
		deliveries: deliveries,
	}
}

func (h *PolarWebhookHandler) Handle(c *gin.Context) {
	body, ok := readRawBody(c, h.maxBody)
	if !ok {
		return
	}

	if !signature.Verify(h.secret, body, c.GetHeader(polarSignatureHeader)) {
		log.Printf("WARN invalid Polar webhook signature from %s", c.ClientIP())
		recordDelivery(c.Request.Context(), h.deliveries, providerPolar, "", "", models.DeliveryRejected)
		ErrorResponse(c, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event models.PolarEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("WARN unhandled Polar webhook, malformed payload: %v", err)
		recordDelivery(c.Request.Context(), h.deliveries, providerPolar, "", "", models.DeliveryIgnored)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	log.Printf("INFO received Polar webhook: %s", event.Type)
	outcome := h.dispatch(event)
	recordDelivery(c.Request.Context(), h.deliveries, providerPolar, "", event.Type, outcome)

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *PolarWebhookHandler) dispatch(event models.PolarEvent) string {
	switch event.Type {
	case models.PolarCheckoutCreated:
		var checkout models.PolarCheckout
		if err := json.Unmarshal(event.Data, &checkout); err != nil {
			log.Printf("WARN checkout.created with unreadable data: %v", err)
			return models.DeliveryAccepted
		}
		log.Printf("INFO checkout created: %s", checkout.ID)
		return models.DeliveryAccepted

	case models.PolarCheckoutUpdated:
		var checkout models.PolarCheckout
		if err := json.Unmarshal(event.Data, &checkout); err != nil {
			log.Printf("WARN unhandled checkout.updated, malformed data: %v", err)
			return models.DeliveryIgnored
		}
		if checkout.Status != models.PolarCheckoutSucceeded {
			return models.DeliveryAccepted
		}
		return h.checkoutSucceeded(checkout)

	case models.PolarOrderCreated:
		var order models.PolarOrder
		if err := json.Unmarshal(event.Data, &order); err != nil {
			log.Printf("WARN order.created with unreadable data: %v", err)
			return models.DeliveryAccepted
		}
		log.Printf("INFO order created: %s", order.ID)
		return models.DeliveryAccepted

	default:
		log.Printf("INFO unhandled Polar event type: %q", event.Type)
		return models.DeliveryIgnored
	}
}

// checkoutSucceeded forwards the purchase alert. Metadata is informational and
// never blocks the alert.
func (h *PolarWebhookHandler) checkoutSucceeded(checkout models.PolarCheckout) string {
	log.Printf("INFO checkout succeeded: %s", checkout.ID)

	if addr := checkout.Metadata.DecodeShippingAddress(); addr != nil {
		log.Printf("INFO checkout %s cart=%s ships to %s", checkout.ID, checkout.Metadata.CartID(), addr.CountryCode)
	} else if checkout.Metadata.Has("shipping_address") {
		log.Printf("WARN checkout %s has an unreadable shipping address", checkout.ID)
	}

	req := models.PurchaseAlertRequest{
		OrderID:      checkout.ID,
		CustomerName: models.CustomerNameFromEmail(checkout.CustomerEmail),
		Amount:       checkout.Amount,
	}
	if checkout.Product != nil {
		req.Product = checkout.Product.Name
	}
	if err := req.Validate(); err != nil {
		log.Printf("WARN succeeded checkout not forwarded: %v", err)
		return models.DeliveryIgnored
	}

	if h.forwarder != nil {
		h.forwarder.Go(req)
	}
	return models.DeliveryAccepted
}
