package unit

import (
	"testing"

	"github.com/nathoo/isotactics/engine/grid"
	"github.com/nathoo/isotactics/engine/intercept"
)

// toughModifier registers a damage-taken reduction and counts hook calls.
func toughModifier(stackable bool, calls map[string]int) *Modifier {
	m := &Modifier{ID: "tough", Name: "Tough", Keywords: []string{"tough"}, Stackable: stackable}
	m.OnApplied = func(e *Entity, m *Modifier) {
		calls["applied"]++
		m.Data = map[string]any{
			"link": e.Intercept(DamageTaken, func(v int, _ Context) int { return v - m.Stacks }, false),
		}
	}
	m.OnRemoved = func(e *Entity, m *Modifier) {
		calls["removed"]++
		e.Unintercept(DamageTaken, m.Data["link"].(*intercept.Link[int, Context]))
	}
	m.OnReapply = func(*Entity, *Modifier) { calls["reapply"]++ }
	return m
}

func TestAddModifier_StackableIncrementsStacks(t *testing.T) {
	f := newTestField(t, 3, 3)
	e := f.spawn(1, "p1", knight(), grid.Point{})
	calls := map[string]int{}

	e.AddModifier(toughModifier(true, calls))
	e.AddModifier(toughModifier(true, calls))

	m := e.Modifier("tough")
	if m == nil || m.Stacks != 2 {
		t.Fatalf("modifier = %+v, want 2 stacks", m)
	}
	if calls["applied"] != 1 {
		t.Errorf("OnApplied ran %d times, want 1", calls["applied"])
	}
	if calls["reapply"] != 0 {
		t.Errorf("OnReapply ran for a stackable modifier")
	}
	if got := e.TakeDamage(5, nil); got != 3 {
		t.Errorf("damage with 2 stacks = %d, want 3", got)
	}
}

func TestAddModifier_NonStackableReapplies(t *testing.T) {
	f := newTestField(t, 3, 3)
	e := f.spawn(1, "p1", knight(), grid.Point{})
	calls := map[string]int{}

	e.AddModifier(toughModifier(false, calls))
	e.AddModifier(toughModifier(false, calls))

	if calls["applied"] != 1 || calls["reapply"] != 1 {
		t.Errorf("applied=%d reapply=%d, want 1/1", calls["applied"], calls["reapply"])
	}
	if len(e.Modifiers()) != 1 {
		t.Errorf("%d modifiers attached", len(e.Modifiers()))
	}
	if e.Modifier("tough").Stacks != 1 {
		t.Errorf("Stacks = %d", e.Modifier("tough").Stacks)
	}
}

func TestRemoveModifier_UnregistersSymmetrically(t *testing.T) {
	f := newTestField(t, 3, 3)
	e := f.spawn(1, "p1", knight(), grid.Point{})
	calls := map[string]int{}
	e.AddModifier(toughModifier(false, calls))
	if e.InterceptorCount() != 1 {
		t.Fatalf("InterceptorCount = %d", e.InterceptorCount())
	}

	if !e.RemoveModifier("tough") {
		t.Fatal("RemoveModifier = false")
	}
	if e.RemoveModifier("tough") {
		t.Error("second remove should report false")
	}
	if calls["removed"] != 1 {
		t.Errorf("OnRemoved ran %d times", calls["removed"])
	}
	if e.InterceptorCount() != 0 {
		t.Errorf("InterceptorCount = %d after removal", e.InterceptorCount())
	}
	if e.HasKeyword("tough") {
		t.Error("keyword still present")
	}
}
