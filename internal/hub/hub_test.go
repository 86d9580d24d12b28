package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func mustFrame(t *testing.T, sub *Subscriber) []byte {
	t.Helper()
	select {
	case frame := <-sub.Events():
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("expected frame not received")
		return nil
	}
}

func TestBroadcastReachesAllRoomSubscribers(t *testing.T) {
	h := New(8, testLogger())

	a := h.Subscribe("482913")
	b := h.Subscribe("482913")

	h.Broadcast("482913", map[string]string{"type": "player_joined", "name": "Aigerim"})

	for _, sub := range []*Subscriber{a, b} {
		var msg map[string]string
		if err := json.Unmarshal(mustFrame(t, sub), &msg); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		if msg["name"] != "Aigerim" {
			t.Fatalf("unexpected frame: %v", msg)
		}
	}
}

func TestBroadcastIsolatedBetweenRooms(t *testing.T) {
	h := New(8, testLogger())

	a := h.Subscribe("111111")
	b := h.Subscribe("222222")

	h.Broadcast("111111", map[string]string{"type": "player_joined"})

	mustFrame(t, a)

	select {
	case frame := <-b.Events():
		t.Fatalf("room 222222 subscriber received foreign frame: %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcastPreservesOrder(t *testing.T) {
	h := New(8, testLogger())
	sub := h.Subscribe("482913")

	for i := 0; i < 5; i++ {
		h.Broadcast("482913", map[string]int{"seq": i})
	}

	for i := 0; i < 5; i++ {
		var msg map[string]int
		if err := json.Unmarshal(mustFrame(t, sub), &msg); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		if msg["seq"] != i {
			t.Fatalf("expected seq %d, got %d", i, msg["seq"])
		}
	}
}

func TestSlowSubscriberDropped(t *testing.T) {
	h := New(1, testLogger())
	sub := h.Subscribe("482913")

	// Fill the queue, then overflow it.
	h.Broadcast("482913", map[string]int{"seq": 0})
	h.Broadcast("482913", map[string]int{"seq": 1})

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected slow subscriber to be dropped")
	}
	if got := h.Subscribers("482913"); got != 0 {
		t.Fatalf("expected 0 subscribers after drop, got %d", got)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	h := New(8, testLogger())
	sub := h.Subscribe("482913")

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)

	if got := h.Subscribers("482913"); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
	select {
	case <-sub.Done():
	default:
		t.Fatal("expected done channel closed after unsubscribe")
	}
}

func TestEvictIdle(t *testing.T) {
	h := New(8, testLogger())

	idle := h.Subscribe("482913")
	fresh := h.Subscribe("482913")

	// Backdate the idle subscriber; the fresh one just pinged.
	idle.mu.Lock()
	idle.lastSeen = time.Now().Add(-time.Hour)
	idle.mu.Unlock()
	fresh.Touch()

	if evicted := h.EvictIdle(time.Minute); evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	select {
	case <-idle.Done():
	default:
		t.Fatal("expected idle subscriber closed")
	}
	if got := h.Subscribers("482913"); got != 1 {
		t.Fatalf("expected 1 remaining subscriber, got %d", got)
	}
}

func TestDeliverAfterCloseReturnsFalse(t *testing.T) {
	h := New(8, testLogger())
	sub := h.Subscribe("482913")
	h.Unsubscribe(sub)

	if sub.Deliver([]byte(`{}`)) {
		t.Fatal("expected Deliver to fail on closed subscriber")
	}
}
