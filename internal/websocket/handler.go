package websocket

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tullo/relay/internal/middleware"
)

// Handler upgrades overlay connections and attaches them to the hub
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. With no allowed origins every
// origin is accepted.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return false
				}
				return middleware.OriginAllowed(allowedOrigins, origin)
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WARN failed to upgrade overlay connection: %v", err)
		return
	}

	client := NewClient(h.hub, conn)
	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// Stats reports connected overlay clients and how long each has been connected
func (h *Handler) Stats(c *gin.Context) {
	connections := h.hub.Clients()
	c.JSON(http.StatusOK, gin.H{
		"clients":     len(connections),
		"connections": connections,
	})
}
