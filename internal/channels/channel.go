// Package channels provides the channel adapter abstraction for the
// multi-channel messaging hub (§4.8): one adapter per transport
// (WhatsApp, Telegram, email), each capable of sending already-composed
// content out its transport and, where the transport requires polling
// rather than a webhook, of running its own receive loop.
//
// Adapted from the teacher's internal/channels/channel.go Channel/
// BaseChannel split. The teacher's DM/group policy engine (pairing
// codes, mention gating, per-peer allowlists) has no equivalent in
// spec.md, whose channel model is adapter-only: inbound normalization
// happens in internal/ingress, not per-channel policy evaluation, so
// that machinery is not carried.
package channels

import (
	"context"
)

// Channel is the interface every outbound channel adapter satisfies. It
// also implements sendqueue.Adapter (the Send method) so a Registry of
// Channels can be handed directly to sendqueue.Dispatch.
type Channel interface {
	// Name returns the adapter's transport name ("whatsapp", "telegram",
	// "email"); the WhatsApp adapter reports "whatsapp" for every
	// whatsapp_* channel_type it is registered under.
	Name() string

	// Start begins any background receive loop the channel needs (polling
	// channels only; webhook-driven channels are no-ops here since
	// internal/ingress owns their HTTP endpoint).
	Start(ctx context.Context) error

	// Stop gracefully shuts the channel down.
	Stop(ctx context.Context) error

	// Send delivers already-composed content to channelUserID.
	Send(ctx context.Context, channelUserID, content string) error

	// IsRunning reports whether Start has completed and Stop has not.
	IsRunning() bool
}

// BaseChannel holds the running-state bookkeeping shared by every
// adapter.
type BaseChannel struct {
	name    string
	running bool
}

// NewBaseChannel creates a BaseChannel identified by name.
func NewBaseChannel(name string) *BaseChannel {
	return &BaseChannel{name: name}
}

// Name returns the channel name.
func (c *BaseChannel) Name() string { return c.name }

// IsRunning returns whether the channel is running.
func (c *BaseChannel) IsRunning() bool { return c.running }

// SetRunning updates the running state.
func (c *BaseChannel) SetRunning(running bool) { c.running = running }

// Truncate shortens a string to maxLen, appending "..." if truncated. Kept
// from the teacher verbatim — used when logging outbound content previews.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
