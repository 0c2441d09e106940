// Package realtime fans shipment change events out to live dashboard
// connections over SSE and WebSocket.
package realtime

import "encoding/json"

// Channel names a logical event stream.
const ChannelShipments = "shipments"

// Event kinds published on the shipments channel.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Envelope is the wire form of a single change event. Payload is the
// already-encoded resource body so the bus never re-marshals per subscriber.
type Envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope encodes payload and wraps it for publishing.
func NewEnvelope(channel, event string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Channel: channel, Event: event, Payload: raw}, nil
}
