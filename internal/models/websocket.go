package models

import "encoding/json"

// Websocket overlay event types
const (
	EventPurchase     = "alerts:purchase"
	EventStreamStatus = "stream:status"
)

// WSMessage is one frame sent to websocket overlay clients. Event is the bus channel
// the payload was published on.
type WSMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}
