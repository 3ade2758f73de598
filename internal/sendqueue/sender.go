package sendqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/orchhub/internal/errkind"
)

// QueueName is the single outbound queue this hub drains; per-channel
// routing happens inside the payload, not via separate queues.
const QueueName = "outbound"

// Adapter delivers already-composed content out one channel's transport.
// Each concrete channel package (whatsapp, telegram, email, webchat)
// implements this.
type Adapter interface {
	Send(ctx context.Context, channelUserID, content string) error
}

// Registry maps a channel_type to the adapter that serves it.
type Registry map[string]Adapter

type sendPayload struct {
	ChannelType   string `json:"channelType"`
	ChannelUserID string `json:"channelUserId"`
	Content       string `json:"content"`
}

// Sender implements ingress.Deliverer by durably enqueueing; the actual
// transport call happens in a worker pulled off the queue by Dispatch.
type Sender struct {
	Queue               *Queue
	UseQueueForWhatsApp bool
}

func isWhatsAppChannel(channelType string) bool {
	return strings.HasPrefix(channelType, "whatsapp_")
}

// Deliver enqueues content for channelUserID on channelType. Per the Open
// Question resolution in §9, a WhatsApp channel with
// USE_QUEUE_FOR_WHATSAPP=false is a hard configuration failure, never a
// silent synchronous send.
func (s *Sender) Deliver(ctx context.Context, channelType, channelUserID, content string) error {
	if isWhatsAppChannel(channelType) && !s.UseQueueForWhatsApp {
		return errkind.ErrQueueDisabledForWhatsApp
	}
	return s.Queue.Enqueue(ctx, QueueName, "send_message", sendPayload{
		ChannelType:   channelType,
		ChannelUserID: channelUserID,
		Content:       content,
	}, Options{})
}

// Dispatch builds the Handler that workers run to actually deliver a
// dequeued job through the matching adapter in registry.
func Dispatch(registry Registry) Handler {
	return func(ctx context.Context, job Job) error {
		var p sendPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("sendqueue: decode send payload: %w", err)
		}
		adapter, ok := registry[p.ChannelType]
		if !ok {
			return fmt.Errorf("sendqueue: no adapter registered for channel %q", p.ChannelType)
		}
		return adapter.Send(ctx, p.ChannelUserID, p.Content)
	}
}
