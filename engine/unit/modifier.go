package unit

import (
	"github.com/nathoo/isotactics/engine/events"
	"github.com/nathoo/isotactics/types"
)

// Hook is a modifier lifecycle callback.
type Hook func(e *Entity, m *Modifier)

// Modifier is a buff or debuff owned by one entity. OnApplied registers
// whatever interceptors and listeners the modifier needs and OnRemoved must
// unregister exactly those.
type Modifier struct {
	ID        string
	Name      string
	IconID    string
	Keywords  []string
	Stackable bool
	Stacks    int
	// Remaining counts down owner turns when positive.
	Remaining int

	OnApplied Hook
	OnRemoved Hook
	// OnReapply runs when a non-stackable modifier is applied again.
	OnReapply Hook
	// OnStack runs after a stackable modifier gains a stack.
	OnStack Hook

	// Data holds per-instance handles registered by the hooks.
	Data map[string]any
}

// State returns a snapshot of the modifier.
func (m *Modifier) State() types.ModifierState {
	return types.ModifierState{
		ID:        m.ID,
		Name:      m.Name,
		IconID:    m.IconID,
		Keywords:  append([]string(nil), m.Keywords...),
		Stackable: m.Stackable,
		Stacks:    m.Stacks,
		Remaining: m.Remaining,
	}
}

// Modifier returns the attached modifier with the given id, or nil.
func (e *Entity) Modifier(id string) *Modifier {
	for _, m := range e.modifiers {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Modifiers returns the attached modifiers in attach order.
func (e *Entity) Modifiers() []*Modifier {
	return append([]*Modifier(nil), e.modifiers...)
}

// HasKeyword reports whether any attached modifier carries keyword.
func (e *Entity) HasKeyword(keyword string) bool {
	for _, m := range e.modifiers {
		for _, k := range m.Keywords {
			if k == keyword {
				return true
			}
		}
	}
	return false
}

// AddModifier attaches m. A second application of the same id adds a stack
// to a stackable modifier or runs OnReapply on a non-stackable one; OnApplied
// only ever runs once per attachment. Returns the attached instance.
func (e *Entity) AddModifier(m *Modifier) *Modifier {
	if existing := e.Modifier(m.ID); existing != nil {
		if existing.Stackable {
			existing.Stacks++
			if existing.OnStack != nil {
				existing.OnStack(e, existing)
			}
		} else if existing.OnReapply != nil {
			existing.OnReapply(e, existing)
		}
		e.emit(events.Event{Kind: events.ModifierAdded, ModifierID: m.ID, Amount: existing.Stacks})
		return existing
	}

	if m.Stacks < 1 {
		m.Stacks = 1
	}
	e.modifiers = append(e.modifiers, m)
	if m.OnApplied != nil {
		m.OnApplied(e, m)
	}
	e.emit(events.Event{Kind: events.ModifierAdded, ModifierID: m.ID, Amount: m.Stacks})
	return m
}

// RemoveModifier detaches the modifier with id and runs OnRemoved. Reports
// whether it was attached.
func (e *Entity) RemoveModifier(id string) bool {
	for i, m := range e.modifiers {
		if m.ID != id {
			continue
		}
		e.modifiers = append(e.modifiers[:i], e.modifiers[i+1:]...)
		if m.OnRemoved != nil {
			m.OnRemoved(e, m)
		}
		e.emit(events.Event{Kind: events.ModifierRemoved, ModifierID: id})
		return true
	}
	return false
}
