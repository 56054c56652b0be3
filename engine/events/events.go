// Package events implements typed, synchronous publish/subscribe used by
// entities and the session. Each aggregate owns its own Bus.
package events

import (
	"fmt"

	"github.com/nathoo/isotactics/types"
)

// Kind discriminates events.
type Kind int

const (
	// Any matches every kind when subscribing.
	Any Kind = iota

	EntityCreated
	EntityDestroyed
	EntityBeforeMove
	EntityAfterMove
	EntityBeforeDealDamage
	EntityAfterDealDamage
	EntityBeforeTakeDamage
	EntityAfterTakeDamage
	EntityTurnStarted
	EntityTurnEnded
	ModifierAdded
	ModifierRemoved

	GameReady
	GameAction
	GamePhaseChanged
	GameTurnStarted
)

var kindNames = map[Kind]string{
	Any:                    "*",
	EntityCreated:          "entity:created",
	EntityDestroyed:        "entity:destroyed",
	EntityBeforeMove:       "entity:before_move",
	EntityAfterMove:        "entity:after_move",
	EntityBeforeDealDamage: "entity:before_deal_damage",
	EntityAfterDealDamage:  "entity:after_deal_damage",
	EntityBeforeTakeDamage: "entity:before_take_damage",
	EntityAfterTakeDamage:  "entity:after_take_damage",
	EntityTurnStarted:      "entity:turn_started",
	EntityTurnEnded:        "entity:turn_ended",
	ModifierAdded:          "entity:modifier_added",
	ModifierRemoved:        "entity:modifier_removed",
	GameReady:              "game:ready",
	GameAction:             "game:action",
	GamePhaseChanged:       "game:phase_changed",
	GameTurnStarted:        "game:turn_started",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is a notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind       Kind
	EntityID   int
	OtherID    int
	Amount     int
	From       types.Point
	To         types.Point
	ModifierID string
	Phase      string
	Action     *types.SerializedAction
}

// Handler receives published events.
type Handler func(Event)

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	kind Kind
	fn   Handler
}

// Bus dispatches events to handlers in subscription order.
type Bus struct {
	subs []*Subscription
}

// Subscribe registers fn for kind. Use Any to receive everything.
func (b *Bus) Subscribe(kind Kind, fn Handler) *Subscription {
	s := &Subscription{kind: kind, fn: fn}
	b.subs = append(b.subs, s)
	return s
}

// Unsubscribe removes a subscription. Reports whether it was registered.
func (b *Bus) Unsubscribe(s *Subscription) bool {
	for i, existing := range b.subs {
		if existing == s {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers e synchronously. Handlers may subscribe or unsubscribe
// while running; changes apply from the next Publish.
func (b *Bus) Publish(e Event) {
	snapshot := b.subs
	for _, s := range snapshot {
		if s.kind == Any || s.kind == e.Kind {
			s.fn(e)
		}
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	return len(b.subs)
}
