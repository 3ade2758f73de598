// Package bus carries the server-side event fan-out used by the WebSocket
// session layer (§4.10) and the analytics events the orchestrator emits
// (§4.5 step 6, "message_processed").
package bus

// InboundMessage represents a message received off a channel before it
// enters the core pipeline (§4.1 NORMALIZE).
type InboundMessage struct {
	Channel  string            `json:"channel"`
	SenderID string            `json:"sender_id"`
	ChatID   string            `json:"chat_id"`
	Content  string            `json:"content"`
	UserID   string            `json:"user_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// OutboundMessage represents a message handed to the Send Queue for
// delivery out a channel (§4.9).
type OutboundMessage struct {
	Channel  string            `json:"channel"`
	ChatID   string            `json:"chat_id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Event represents a server-side event: a WebSocket push (§4.10) or an
// analytics event the orchestrator emits (§4.5).
type Event struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventHandler handles a broadcast event.
type EventHandler func(Event)

// EventPublisher abstracts event broadcast + per-connection subscription,
// decoupling the orchestrator and WebSocket session layer from a concrete
// message bus implementation.
type EventPublisher interface {
	Subscribe(id string, handler EventHandler)
	Unsubscribe(id string)
	Broadcast(event Event)
}
