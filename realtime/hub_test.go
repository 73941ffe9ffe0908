package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kazeca/holyfit-sub000/core"
)

func TestHubSubscribeBroadcastUnsubscribe(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1)

	ev := core.NewStreakEvent(core.EventStreakIncreased, "bob", 7)
	h.Broadcast(context.Background(), ev)

	received := <-ch
	if received.UserID != "bob" || received.Type != core.EventStreakIncreased || received.Streak != 7 {
		t.Fatalf("unexpected event: %+v", received)
	}

	h.Unsubscribe(id)
	_, ok := <-ch
	if ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe(1)

	h.Broadcast(context.Background(), core.NewLevelUp("alice", 2))
	h.Broadcast(context.Background(), core.NewLevelUp("alice", 3))

	first := <-ch
	if first.Level != 2 {
		t.Fatalf("want first buffered event, got %+v", first)
	}
	select {
	case ev := <-ch:
		t.Fatalf("overflow event should have been dropped, got %+v", ev)
	default:
	}
}

func TestMarshalJSON(t *testing.T) {
	ev := core.NewBadgeUnlocked("alice", "first_workout")
	b := MarshalJSON(ev)
	var out core.Event
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Badge != "first_workout" {
		t.Fatalf("unexpected badge: %s", out.Badge)
	}
}
