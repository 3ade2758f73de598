package bus

import "testing"

func TestBroker_BroadcastReachesSubscribers(t *testing.T) {
	b := NewBroker()
	var got Event
	b.Subscribe("a", func(e Event) { got = e })

	b.Broadcast(Event{Name: "message_processed", Payload: 1})

	if got.Name != "message_processed" {
		t.Fatalf("got %+v", got)
	}
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker()
	calls := 0
	b.Subscribe("a", func(Event) { calls++ })
	b.Unsubscribe("a")

	b.Broadcast(Event{Name: "x"})

	if calls != 0 {
		t.Fatalf("expected no calls after unsubscribe, got %d", calls)
	}
}
