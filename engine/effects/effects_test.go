package effects

import (
	"testing"

	"github.com/nathoo/isotactics/engine/grid"
	"github.com/nathoo/isotactics/engine/unit"
	"github.com/nathoo/isotactics/types"
)

type field struct {
	m        *grid.Map
	entities []*unit.Entity
}

func (f *field) Map() *grid.Map             { return f.m }
func (f *field) ObstacleAt(grid.Point) bool { return false }

func (f *field) EntityAt(p grid.Point) *unit.Entity {
	for _, e := range f.entities {
		if e.Position == p {
			return e
		}
	}
	return nil
}

func (f *field) EntityByID(id int) *unit.Entity {
	for _, e := range f.entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (f *field) RemoveEntity(e *unit.Entity) {
	for i, x := range f.entities {
		if x == e {
			f.entities = append(f.entities[:i], f.entities[i+1:]...)
			return
		}
	}
}

// testCtx: 4x1 strip, caster (p1) at x=0, enemies at x=1 and x=2.
func testCtx(t *testing.T) (Context, *field) {
	t.Helper()
	def := types.MapDef{Width: 4, Height: 1, Levels: 1}
	for x := 0; x < 4; x++ {
		def.Cells = append(def.Cells, types.CellDef{Position: grid.Point{X: x}, Terrain: "grass"})
	}
	m, err := grid.NewMap(def)
	if err != nil {
		t.Fatal(err)
	}
	f := &field{m: m}
	bp := &unit.Blueprint{ID: "b", MaxHP: 6, MaxAP: 2, Attack: 2, Speed: 2, Initiative: 5}
	caster := unit.New(f, 1, "p1", bp, grid.Point{}, 0)
	f.entities = []*unit.Entity{
		caster,
		unit.New(f, 2, "p2", bp, grid.Point{X: 1}, 0),
		unit.New(f, 3, "p2", bp, grid.Point{X: 2}, 0),
	}
	ctx := Context{
		Field:   f,
		Source:  caster,
		Targets: []grid.Point{{X: 1}},
		Cells:   []grid.Point{{X: 1}, {X: 2}},
		Modifiers: func(id string) (*unit.Modifier, bool) {
			if id != "burn" {
				return nil, false
			}
			return &unit.Modifier{ID: "burn", Stackable: true}, true
		},
	}
	return ctx, f
}

func TestApply_DamageAffected(t *testing.T) {
	ctx, f := testCtx(t)
	out := Apply(ctx, []types.Effect{{Type: "damage", Params: map[string]any{"amount": 4}}})
	if len(out) != 2 {
		t.Fatalf("outcomes = %+v", out)
	}
	for _, id := range []int{2, 3} {
		if hp := f.EntityByID(id).HP(); hp != 2 {
			t.Errorf("entity %d HP = %d, want 2", id, hp)
		}
	}
	if ctx.Source.ActionsTaken != 0 {
		t.Error("effect damage must not consume the caster's action")
	}
}

func TestApply_DamageDestroys(t *testing.T) {
	ctx, f := testCtx(t)
	out := Apply(ctx, []types.Effect{{Type: "damage", Params: map[string]any{"amount": float64(10), "target": "targets"}}})
	if len(out) != 2 || out[1].Type != "destroyed" {
		t.Fatalf("outcomes = %+v", out)
	}
	if f.EntityByID(2) != nil {
		t.Error("destroyed entity still indexed")
	}
}

func TestApply_HealCaster(t *testing.T) {
	ctx, _ := testCtx(t)
	ctx.Source.TakeDamage(3, nil)
	out := Apply(ctx, []types.Effect{{Type: "heal", Params: map[string]any{"amount": 2, "target": "caster"}}})
	if len(out) != 1 || out[0].Amount != 2 {
		t.Fatalf("outcomes = %+v", out)
	}
	if ctx.Source.HP() != 5 {
		t.Errorf("HP = %d, want 5", ctx.Source.HP())
	}
}

func TestApply_AddAndRemoveModifier(t *testing.T) {
	ctx, f := testCtx(t)
	Apply(ctx, []types.Effect{{Type: "add_modifier", Params: map[string]any{"modifier": "burn", "target": "targets"}}})
	Apply(ctx, []types.Effect{{Type: "add_modifier", Params: map[string]any{"modifier": "burn", "target": "targets"}}})
	m := f.EntityByID(2).Modifier("burn")
	if m == nil || m.Stacks != 2 {
		t.Fatalf("modifier = %+v", m)
	}
	out := Apply(ctx, []types.Effect{{Type: "remove_modifier", Params: map[string]any{"modifier": "burn", "target": "entity", "entity": 2}}})
	if len(out) != 1 || f.EntityByID(2).Modifier("burn") != nil {
		t.Errorf("remove failed: %+v", out)
	}
	out = Apply(ctx, []types.Effect{{Type: "add_modifier", Params: map[string]any{"modifier": "missing"}}})
	if len(out) != 0 {
		t.Errorf("unknown modifier produced %+v", out)
	}
}

func TestApply_Teleport(t *testing.T) {
	ctx, _ := testCtx(t)
	ctx.Targets = []grid.Point{{X: 3}}
	out := Apply(ctx, []types.Effect{{Type: "teleport", Params: map[string]any{"target": "caster"}}})
	if len(out) != 1 || ctx.Source.Position != (grid.Point{X: 3}) {
		t.Fatalf("teleport failed: %+v at %v", out, ctx.Source.Position)
	}
	ctx.Targets = []grid.Point{{X: 1}}
	if out := Apply(ctx, []types.Effect{{Type: "teleport", Params: map[string]any{"target": "caster"}}}); len(out) != 0 {
		t.Errorf("teleport onto an occupied cell: %+v", out)
	}
}

func TestApply_StopHaltsProcessing(t *testing.T) {
	ctx, _ := testCtx(t)
	out := Apply(ctx, []types.Effect{
		{Type: "say", Params: map[string]any{"text": "Hah!"}},
		{Type: "stop"},
		{Type: "damage", Params: map[string]any{"amount": 1}},
	})
	if len(out) != 1 || out[0].Text != "Hah!" {
		t.Errorf("outcomes = %+v", out)
	}
}

func TestApply_UnknownIgnored(t *testing.T) {
	ctx, _ := testCtx(t)
	if out := Apply(ctx, []types.Effect{{Type: "bogus"}}); len(out) != 0 {
		t.Errorf("outcomes = %+v", out)
	}
}
