package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tullo/relay/internal/events"
	"github.com/tullo/relay/internal/metrics"
	"github.com/tullo/relay/internal/models"
	"github.com/tullo/relay/internal/service"
)

const defaultKeepAlive = 25 * time.Second

type AlertHandler struct {
	alerts    *service.AlertService
	bus       *events.Bus
	keepAlive time.Duration
}

func NewAlertHandler(alerts *service.AlertService, bus *events.Bus) *AlertHandler {
	return &AlertHandler{alerts: alerts, bus: bus, keepAlive: defaultKeepAlive}
}

// PostPurchase publishes a purchase alert and adds it to the recent list.
func (h *AlertHandler) PostPurchase(c *gin.Context) {
	var req models.PurchaseAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	log.Printf("INFO purchase alert received: order=%s product=%q amount=%d", req.OrderID, req.Product, req.Amount)

	alert, err := h.alerts.Record(c.Request.Context(), req)
	if err != nil {
		log.Printf("ERROR failed to process purchase alert: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to process alert")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "alert": alert})
}

// GetRecent lists up to ten recent purchases. Store failures read as an empty list.
func (h *AlertHandler) GetRecent(c *gin.Context) {
	purchases, err := h.alerts.Recent(c.Request.Context())
	if err != nil {
		log.Printf("ERROR failed to get recent purchases: %v", err)
		purchases = []models.PurchaseEvent{}
	}

	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}

// Stream pushes every purchase and stream status event to the client as
// server-sent events until the client goes away or the subscription breaks.
func (h *AlertHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()

	sub, err := h.bus.Subscribe(ctx)
	if err != nil {
		log.Printf("ERROR failed to subscribe alert stream: %v", err)
		ErrorResponse(c, http.StatusServiceUnavailable, "Alert stream unavailable")
		return
	}
	defer sub.Close()

	connID := uuid.New()
	gauge := metrics.StreamConnections.WithLabelValues("sse")
	gauge.Inc()
	defer gauge.Dec()
	log.Printf("INFO alert stream %s opened from %s", connID, c.ClientIP())

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Printf("INFO alert stream %s closed by client", connID)
			return

		case msg, ok := <-messages:
			if !ok {
				log.Printf("WARN alert stream %s subscription ended", connID)
				return
			}
			if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", msg.Channel, msg.Payload); err != nil {
				return
			}
			c.Writer.Flush()

		case <-keepAlive.C:
			if _, err := io.WriteString(c.Writer, ": keepalive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
