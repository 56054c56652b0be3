package events

import "testing"

func TestBus_DeliversMatchingKind(t *testing.T) {
	var b Bus
	var got []Kind
	b.Subscribe(EntityDestroyed, func(e Event) { got = append(got, e.Kind) })

	b.Publish(Event{Kind: EntityCreated})
	b.Publish(Event{Kind: EntityDestroyed, EntityID: 3})

	if len(got) != 1 || got[0] != EntityDestroyed {
		t.Fatalf("got %v, want [entity:destroyed]", got)
	}
}

func TestBus_AnyReceivesEverything(t *testing.T) {
	var b Bus
	count := 0
	b.Subscribe(Any, func(Event) { count++ })
	b.Publish(Event{Kind: GameAction})
	b.Publish(Event{Kind: EntityTurnStarted})
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestBus_SubscriptionOrder(t *testing.T) {
	var b Bus
	var order []int
	b.Subscribe(GameReady, func(Event) { order = append(order, 1) })
	b.Subscribe(GameReady, func(Event) { order = append(order, 2) })
	b.Publish(Event{Kind: GameReady})
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v", order)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	var b Bus
	count := 0
	s := b.Subscribe(GameAction, func(Event) { count++ })
	if !b.Unsubscribe(s) {
		t.Fatal("Unsubscribe = false")
	}
	if b.Unsubscribe(s) {
		t.Error("second Unsubscribe should report false")
	}
	b.Publish(Event{Kind: GameAction})
	if count != 0 {
		t.Errorf("handler ran after unsubscribe")
	}
}

func TestBus_UnsubscribeDuringPublish(t *testing.T) {
	var b Bus
	var second int
	var first *Subscription
	first = b.Subscribe(EntityTurnStarted, func(Event) { b.Unsubscribe(first) })
	b.Subscribe(EntityTurnStarted, func(Event) { second++ })

	b.Publish(Event{Kind: EntityTurnStarted})
	b.Publish(Event{Kind: EntityTurnStarted})

	if second != 2 {
		t.Errorf("second handler ran %d times, want 2", second)
	}
	if b.Len() != 1 {
		t.Errorf("Len = %d, want 1", b.Len())
	}
}

func TestKind_String(t *testing.T) {
	if GameAction.String() != "game:action" {
		t.Errorf("GameAction = %q", GameAction.String())
	}
	if Kind(999).String() != "Kind(999)" {
		t.Errorf("unknown kind = %q", Kind(999).String())
	}
}
