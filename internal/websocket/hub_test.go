package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tullo/relay/internal/cache"
	"github.com/tullo/relay/internal/events"
	"github.com/tullo/relay/internal/models"
)

func startHub(t *testing.T, store *cache.MemoryStore) (*Hub, *events.Bus) {
	t.Helper()
	bus := events.NewBus(store)
	h := NewHub(bus)
	h.retryDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.done
	})

	waitFor(t, func() bool { return store.SubscriberCount() == 1 })
	return h, bus
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func fakeClient(h *Hub, buffer int) *Client {
	return &Client{hub: h, id: uuid.New(), send: make(chan []byte, buffer)}
}

func receive(t *testing.T, c *Client) models.WSMessage {
	t.Helper()
	select {
	case b, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var msg models.WSMessage
		if err := json.Unmarshal(b, &msg); err != nil {
			t.Fatalf("unexpected frame %q: %v", b, err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return models.WSMessage{}
}

func TestHubFansOutToAllClients(t *testing.T) {
	store := cache.NewMemoryStore()
	h, bus := startHub(t, store)

	c1 := fakeClient(h, 4)
	c2 := fakeClient(h, 4)
	h.Register(c1)
	h.Register(c2)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := bus.PublishStreamStatus(context.Background(), models.StreamStatusEvent{Live: true}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, c := range []*Client{c1, c2} {
		msg := receive(t, c)
		if msg.Event != models.EventStreamStatus {
			t.Fatalf("expected event %s, got %s", models.EventStreamStatus, msg.Event)
		}
		if string(msg.Payload) != `{"live":true}` {
			t.Fatalf("unexpected payload: %s", msg.Payload)
		}
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	store := cache.NewMemoryStore()
	h, bus := startHub(t, store)

	slow := fakeClient(h, 0)
	fast := fakeClient(h, 4)
	h.Register(slow)
	h.Register(fast)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := bus.PublishPurchase(context.Background(), models.PurchaseEvent{OrderID: "ord_1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if msg := receive(t, fast); msg.Event != models.EventPurchase {
		t.Fatalf("expected purchase event, got %s", msg.Event)
	}
	waitFor(t, func() bool { return h.ClientCount() == 1 })
	if _, ok := <-slow.send; ok {
		t.Fatal("expected slow client channel to be closed")
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	store := cache.NewMemoryStore()
	h, _ := startHub(t, store)

	c := fakeClient(h, 1)
	h.Register(c)
	h.Unregister(c)
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	if _, ok := <-c.send; ok {
		t.Fatal("expected send channel to be closed")
	}
}

func TestHubStoppedRejectsRegister(t *testing.T) {
	h := NewHub(events.NewBus(cache.NewMemoryStore()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)

	if h.Register(fakeClient(h, 1)) {
		t.Fatal("expected register to fail on a stopped hub")
	}
}

func TestHubDisconnectsClientsWhenSubscriptionBreaks(t *testing.T) {
	store := cache.NewMemoryStore()
	h, bus := startHub(t, store)

	c := fakeClient(h, 4)
	h.Register(c)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	store.SetUnavailable(true)
	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatal("expected send channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("client not disconnected after subscription loss")
	}
	if n := h.ClientCount(); n != 0 {
		t.Fatalf("expected no clients, got %d", n)
	}

	store.SetUnavailable(false)
	waitFor(t, func() bool { return store.SubscriberCount() == 1 })

	reconnected := fakeClient(h, 4)
	h.Register(reconnected)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	if err := bus.PublishStreamStatus(context.Background(), models.StreamStatusEvent{Live: false}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if msg := receive(t, reconnected); msg.Event != models.EventStreamStatus {
		t.Fatalf("expected stream status event, got %s", msg.Event)
	}
}

func TestHubClientsSnapshot(t *testing.T) {
	store := cache.NewMemoryStore()
	h, _ := startHub(t, store)

	older := fakeClient(h, 1)
	older.connectedAt = time.Now().Add(-90 * time.Second)
	newer := fakeClient(h, 1)
	newer.connectedAt = time.Now()
	h.Register(newer)
	h.Register(older)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	infos := h.Clients()
	if len(infos) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(infos))
	}
	if infos[0].ID != older.id || infos[1].ID != newer.id {
		t.Fatalf("expected oldest first, got %v then %v", infos[0].ID, infos[1].ID)
	}
	if infos[0].Uptime != "1m30s" {
		t.Fatalf("unexpected uptime %q", infos[0].Uptime)
	}
}

func TestHandlerStatsReportsConnections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore()
	h, _ := startHub(t, store)

	c := fakeClient(h, 1)
	c.connectedAt = time.Now().Add(-time.Minute)
	h.Register(c)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	r := gin.New()
	r.GET("/admin/overlay/clients", NewHandler(h, nil).Stats)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/overlay/clients", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Clients     int          `json:"clients"`
		Connections []ClientInfo `json:"connections"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Clients != 1 || len(body.Connections) != 1 {
		t.Fatalf("unexpected stats: %s", w.Body.String())
	}
	if body.Connections[0].ID != c.id || body.Connections[0].Uptime != "1m0s" {
		t.Fatalf("unexpected connection: %+v", body.Connections[0])
	}
}

func TestHandlerDeliversToWebsocketClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore()
	h, bus := startHub(t, store)

	r := gin.New()
	r.GET("/alerts/ws", NewHandler(h, []string{"https://overlay.example.com"}).HandleWebSocket)
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/alerts/ws"

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example.com"}}); err == nil {
		t.Fatal("expected foreign origin to be rejected")
	} else if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://overlay.example.com"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	if err := bus.PublishPurchase(context.Background(), models.PurchaseEvent{OrderID: "ord_ws"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg models.WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Event != models.EventPurchase || !strings.Contains(string(msg.Payload), "ord_ws") {
		t.Fatalf("unexpected message: %s %s", msg.Event, msg.Payload)
	}

	conn.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}
