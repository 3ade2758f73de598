// Package protocol names the bus.Event values pushed across the system:
// analytics events the orchestrator emits (§4.5 step 6) and WebSocket
// pushes the session layer fans out (§4.10).
package protocol

const (
	// EventMessageProcessed is emitted once per turn after the assistant's
	// reply is persisted, carrying usage/cost/tool-execution accounting.
	EventMessageProcessed = "message_processed"
)
