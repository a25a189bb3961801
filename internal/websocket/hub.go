package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tullo/relay/internal/cache"
	"github.com/tullo/relay/internal/events"
	"github.com/tullo/relay/internal/metrics"
	"github.com/tullo/relay/internal/models"
)

const resubscribeDelay = 2 * time.Second

// Hub maintains the set of active overlay clients and fans bus events out to them
type Hub struct {
	// Registered clients
	clients map[uuid.UUID]*Client

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	bus        *events.Bus
	retryDelay time.Duration

	mu sync.RWMutex
}

// NewHub creates a new Hub
func NewHub(bus *events.Bus) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		bus:        bus,
		retryDelay: resubscribeDelay,
	}
}

// Run holds one bus subscription for all clients until ctx ends. When the
// subscription breaks every client is disconnected so overlays reconnect, and
// the hub subscribes again after a short delay.
func (h *Hub) Run(ctx context.Context) {
	var (
		sub      cache.Subscription
		messages <-chan cache.Message
	)
	retry := time.NewTimer(0)

	defer func() {
		retry.Stop()
		if sub != nil {
			sub.Close()
		}
		h.closeAll()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-retry.C:
			s, err := h.bus.Subscribe(ctx)
			if err != nil {
				log.Printf("WARN websocket hub failed to subscribe: %v", err)
				retry.Reset(h.retryDelay)
				continue
			}
			sub, messages = s, s.Channel()
			log.Printf("INFO websocket hub subscribed to %v", events.Channels)

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			metrics.StreamConnections.WithLabelValues("websocket").Inc()
			log.Printf("INFO overlay client registered: %s", client.id)

		case client := <-h.unregister:
			h.remove(client)

		case msg, ok := <-messages:
			if !ok {
				log.Printf("WARN websocket hub subscription ended, disconnecting %d clients", h.ClientCount())
				sub.Close()
				sub, messages = nil, nil
				h.closeAll()
				retry.Reset(h.retryDelay)
				continue
			}
			h.broadcast(msg)
		}
	}
}

// Register adds client to the hub. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// broadcast sends msg to every client. Clients whose send buffer is full are dropped.
func (h *Hub) broadcast(msg cache.Message) {
	data, err := json.Marshal(models.WSMessage{
		Event:   msg.Channel,
		Payload: json.RawMessage(msg.Payload),
	})
	if err != nil {
		log.Printf("WARN websocket hub dropped unencodable message on %s: %v", msg.Channel, err)
		return
	}

	h.mu.RLock()
	var slow []*Client
	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		log.Printf("WARN overlay client %s too slow, disconnecting", client.id)
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	delete(h.clients, client.id)
	close(client.send)
	metrics.StreamConnections.WithLabelValues("websocket").Dec()
	log.Printf("INFO overlay client unregistered: %s", client.id)
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.remove(client)
	}
}

// ClientInfo describes one connected overlay.
type ClientInfo struct {
	ID          uuid.UUID `json:"id"`
	ConnectedAt time.Time `json:"connectedAt"`
	Uptime      string    `json:"uptime"`
}

// Clients returns a snapshot of connected overlays, oldest first.
func (h *Hub) Clients() []ClientInfo {
	now := time.Now()
	h.mu.RLock()
	infos := make([]ClientInfo, 0, len(h.clients))
	for _, client := range h.clients {
		infos = append(infos, ClientInfo{
			ID:          client.id,
			ConnectedAt: client.connectedAt.UTC(),
			Uptime:      now.Sub(client.connectedAt).Truncate(time.Second).String(),
		})
	}
	h.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})
	return infos
}

// ClientCount returns the number of connected overlay clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
