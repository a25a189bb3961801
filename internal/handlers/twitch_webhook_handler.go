package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tullo/relay/config"
	"github.com/tullo/relay/internal/cache"
	"github.com/tullo/relay/internal/models"
	"github.com/tullo/relay/internal/service"
	"github.com/tullo/relay/internal/signature"
)

const twitchDedupePrefix = "twitch:msg:"

// TwitchWebhookHandler ingests EventSub webhooks. Once the signature checks out
// the provider always gets 200 so it does not retry.
type TwitchWebhookHandler struct {
	secret     []byte
	maxAge     time.Duration
	dedupeTTL  time.Duration
	maxBody    int64
	store      cache.Store
	streams    *service.StreamService
	deliveries DeliveryRecorder
	now        func() time.Time
}

func NewTwitchWebhookHandler(cfg config.WebhookConfig, store cache.Store, streams *service.StreamService, deliveries DeliveryRecorder) *TwitchWebhookHandler {
	return &TwitchWebhookHandler{
		secret:     []byte(cfg.TwitchSecret),
		maxAge:     cfg.TwitchMaxAge,
		dedupeTTL:  cfg.TwitchDedupeTTL,
		maxBody:    cfg.MaxBodyBytes,
		store:      store,
		streams:    streams,
		deliveries: deliveries,
		now:        time.Now,
	}
}

func (h *TwitchWebhookHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	body, ok := readRawBody(c, h.maxBody)
	if !ok {
		return
	}

	messageID := c.GetHeader(models.TwitchMessageID)
	timestamp := c.GetHeader(models.TwitchMessageTimestamp)
	messageType := c.GetHeader(models.TwitchMessageType)

	message := make([]byte, 0, len(messageID)+len(timestamp)+len(body))
	message = append(message, messageID...)
	message = append(message, timestamp...)
	message = append(message, body...)

	if !signature.VerifyPrefixed(h.secret, message, models.TwitchSignaturePrefix, c.GetHeader(models.TwitchMessageSignature)) {
		log.Printf("WARN invalid Twitch webhook signature for message %q", messageID)
		recordDelivery(ctx, h.deliveries, providerTwitch, messageID, messageType, models.DeliveryRejected)
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	if !h.fresh(timestamp) {
		log.Printf("WARN stale Twitch webhook %q with timestamp %q", messageID, timestamp)
		recordDelivery(ctx, h.deliveries, providerTwitch, messageID, messageType, models.DeliveryRejected)
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	var payload models.EventSubPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("WARN unhandled Twitch webhook %q, malformed payload: %v", messageID, err)
		recordDelivery(ctx, h.deliveries, providerTwitch, messageID, messageType, models.DeliveryIgnored)
		c.String(http.StatusOK, "OK")
		return
	}

	switch messageType {
	case models.TwitchMessageVerification:
		log.Printf("INFO Twitch webhook verification challenge received for %s", payload.Subscription.Type)
		recordDelivery(ctx, h.deliveries, providerTwitch, messageID, messageType, models.DeliveryAccepted)
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(payload.Challenge))
		return

	case models.TwitchMessageRevocation:
		log.Printf("WARN Twitch subscription revoked: %s (%s)", payload.Subscription.Type, payload.Subscription.Status)
		recordDelivery(ctx, h.deliveries, providerTwitch, messageID, messageType, models.DeliveryAccepted)

	case models.TwitchMessageNotification:
		if h.duplicate(c, messageID) {
			log.Printf("INFO duplicate Twitch message %q ignored", messageID)
			recordDelivery(ctx, h.deliveries, providerTwitch, messageID, payload.Subscription.Type, models.DeliveryDuplicate)
			break
		}
		outcome := h.notification(c, payload)
		recordDelivery(ctx, h.deliveries, providerTwitch, messageID, payload.Subscription.Type, outcome)

	default:
		log.Printf("INFO unhandled Twitch message type: %q", messageType)
		recordDelivery(ctx, h.deliveries, providerTwitch, messageID, messageType, models.DeliveryIgnored)
	}

	c.String(http.StatusOK, "OK")
}

// fresh rejects timestamps older than maxAge. A zero maxAge disables the check.
func (h *TwitchWebhookHandler) fresh(timestamp string) bool {
	if h.maxAge <= 0 {
		return true
	}
	sent, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return false
	}
	return h.now().Sub(sent) <= h.maxAge
}

// duplicate marks messageID as seen. Store failures let the message through.
func (h *TwitchWebhookHandler) duplicate(c *gin.Context, messageID string) bool {
	if messageID == "" || h.dedupeTTL <= 0 {
		return false
	}
	first, err := h.store.MarkOnce(c.Request.Context(), twitchDedupePrefix+messageID, h.dedupeTTL)
	if err != nil {
		log.Printf("ERROR failed to dedupe Twitch message %q: %v", messageID, err)
		return false
	}
	return !first
}

func (h *TwitchWebhookHandler) notification(c *gin.Context, payload models.EventSubPayload) string {
	ctx := c.Request.Context()
	eventType := payload.Subscription.Type
	log.Printf("INFO Twitch event received: %s", eventType)

	switch eventType {
	case models.TwitchStreamOnline:
		var ev models.StreamOnlineEvent
		if err := json.Unmarshal(payload.Event, &ev); err != nil {
			log.Printf("WARN stream.online event without readable body: %v", err)
		}
		startedAt := ev.StartedAt
		if startedAt.IsZero() {
			startedAt = h.now()
		}
		if err := h.streams.GoLive(ctx, startedAt); err != nil {
			log.Printf("ERROR failed to mark stream live: %v", err)
		} else {
			log.Printf("INFO stream went online for %s", ev.BroadcasterUserLogin)
		}
		return models.DeliveryAccepted

	case models.TwitchStreamOffline:
		var ev models.StreamOfflineEvent
		if err := json.Unmarshal(payload.Event, &ev); err != nil {
			log.Printf("WARN stream.offline event without readable body: %v", err)
		}
		if err := h.streams.GoOffline(ctx); err != nil {
			log.Printf("ERROR failed to mark stream offline: %v", err)
		} else {
			log.Printf("INFO stream went offline for %s", ev.BroadcasterUserLogin)
		}
		return models.DeliveryAccepted

	default:
		log.Printf("INFO unhandled Twitch event: %s", eventType)
		return models.DeliveryIgnored
	}
}
