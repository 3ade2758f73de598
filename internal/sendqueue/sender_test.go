package sendqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nextlevelbuilder/orchhub/internal/errkind"
)

func TestDeliver_WhatsAppWithQueueDisabledFailsFast(t *testing.T) {
	s := &Sender{Queue: newTestQueue(newFakeStore()), UseQueueForWhatsApp: false}

	err := s.Deliver(context.Background(), "whatsapp_360dialog", "593...@c.us", "hi")
	if !errors.Is(err, errkind.ErrQueueDisabledForWhatsApp) {
		t.Fatalf("expected ErrQueueDisabledForWhatsApp, got %v", err)
	}
}

func TestDeliver_WhatsAppWithQueueEnabledEnqueues(t *testing.T) {
	fs := newFakeStore()
	s := &Sender{Queue: newTestQueue(fs), UseQueueForWhatsApp: true}

	if err := s.Deliver(context.Background(), "whatsapp_360dialog", "593...@c.us", "hi"); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	jobs, err := fs.dequeueReady(context.Background(), QueueName, time.Now(), 10)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("expected 1 enqueued job, got %d (err=%v)", len(jobs), err)
	}
}

func TestDeliver_NonWhatsAppChannelIgnoresQueueFlag(t *testing.T) {
	s := &Sender{Queue: newTestQueue(newFakeStore()), UseQueueForWhatsApp: false}

	if err := s.Deliver(context.Background(), "webchat", "user-1", "hi"); err != nil {
		t.Fatalf("deliver: %v", err)
	}
}

type fakeAdapter struct {
	sent []string
}

func (f *fakeAdapter) Send(_ context.Context, channelUserID, content string) error {
	f.sent = append(f.sent, channelUserID+":"+content)
	return nil
}

func TestDispatch_RoutesToRegisteredAdapter(t *testing.T) {
	adapter := &fakeAdapter{}
	handler := Dispatch(Registry{"webchat": adapter})

	payload := sendPayload{ChannelType: "webchat", ChannelUserID: "user-1", Content: "hello"}
	data, _ := json.Marshal(payload)
	job := Job{Payload: data}

	if err := handler(context.Background(), job); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(adapter.sent) != 1 || adapter.sent[0] != "user-1:hello" {
		t.Fatalf("unexpected adapter calls: %+v", adapter.sent)
	}
}

func TestDispatch_UnregisteredChannelErrors(t *testing.T) {
	handler := Dispatch(Registry{})
	payload := sendPayload{ChannelType: "telegram", ChannelUserID: "42", Content: "hi"}
	data, _ := json.Marshal(payload)

	if err := handler(context.Background(), Job{Payload: data}); err == nil {
		t.Fatal("expected error for unregistered channel")
	}
}
