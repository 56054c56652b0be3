package catalog

import (
	"strings"
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

func newField(t *testing.T, w int) *field {
	t.Helper()
	def := types.MapDef{Width: w, Height: 1, Levels: 1}
	for x := 0; x < w; x++ {
		def.Cells = append(def.Cells, types.CellDef{Position: grid.Point{X: x}, Terrain: "grass"})
	}
	m, err := grid.NewMap(def)
	if err != nil {
		t.Fatal(err)
	}
	return &field{m: m}
}

func (f *field) spawn(c *Catalog, id int, player, bp string, x int) *unit.Entity {
	b, _ := c.Blueprint(bp)
	e := unit.New(f, id, player, b, grid.Point{X: x}, 0)
	f.entities = append(f.entities, e)
	return e
}

func TestDefault_Builds(t *testing.T) {
	c := Default()
	if len(c.Blueprints()) != 4 {
		t.Errorf("blueprints = %d", len(c.Blueprints()))
	}
	knight, ok := c.Blueprint("knight")
	if !ok || knight.Skill("shield_bash") == nil {
		t.Fatal("knight missing shield_bash")
	}
	if _, ok := c.NewModifier("nope"); ok {
		t.Error("unknown modifier resolved")
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content types.Content
		want    string
	}{
		{"unknown skill", types.Content{Blueprints: []types.BlueprintDef{{ID: "a", Skills: []string{"x"}}}}, "unknown skill"},
		{"duplicate blueprint", types.Content{Blueprints: []types.BlueprintDef{{ID: "a"}, {ID: "a"}}}, "duplicate blueprint"},
		{"duplicate skill", types.Content{Skills: []types.SkillDef{{ID: "s"}, {ID: "s"}}}, "duplicate skill"},
		{"bad stat", types.Content{Modifiers: []types.ModifierDef{{ID: "m", Intercepts: []types.InterceptDef{{Stat: "luck"}}}}}, "unknown stat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.content)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Build error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestModifier_ToughStacksAndRemoves(t *testing.T) {
	c := Default()
	f := newField(t, 3)
	e := f.spawn(c, 1, "p1", "knight", 0)

	m1, _ := c.NewModifier("tough")
	m2, _ := c.NewModifier("tough")
	e.AddModifier(m1)
	e.AddModifier(m2)

	if got := e.TakeDamage(5, nil); got != 3 {
		t.Errorf("damage with two tough stacks = %d, want 3", got)
	}
	e.RemoveModifier("tough")
	if e.InterceptorCount() != 0 {
		t.Errorf("interceptors left after removal: %d", e.InterceptorCount())
	}
}

func TestModifier_ElusiveBlocksAttack(t *testing.T) {
	c := Default()
	f := newField(t, 3)
	a := f.spawn(c, 1, "p1", "knight", 0)
	b := f.spawn(c, 2, "p2", "knight", 1)
	m, _ := c.NewModifier("elusive")
	b.AddModifier(m)
	if a.CanAttack(b) {
		t.Error("elusive target must not be attackable")
	}
	// Duration 1: removed at the end of the owner's next turn.
	b.StartTurn()
	b.EndTurn()
	if b.Modifier("elusive") != nil {
		t.Error("elusive should expire after one turn")
	}
	if !a.CanAttack(b) {
		t.Error("target attackable again after expiry")
	}
}

func TestModifier_AppliedInOwnTurnSkipsThatTurn(t *testing.T) {
	c := Default()
	f := newField(t, 3)
	e := f.spawn(c, 1, "p1", "archer", 0)

	e.StartTurn()
	m, _ := c.NewModifier("elusive")
	e.AddModifier(m)
	e.EndTurn()
	if e.Modifier("elusive") == nil {
		t.Fatal("elusive applied during the owner's turn must survive that turn")
	}

	e.StartTurn()
	e.EndTurn()
	if e.Modifier("elusive") != nil {
		t.Error("elusive should expire at the end of the owner's next turn")
	}
}

func TestModifier_ReapplyInOwnTurnSkipsThatTurn(t *testing.T) {
	c := Default()
	f := newField(t, 3)
	e := f.spawn(c, 1, "p1", "knight", 0)
	m, _ := c.NewModifier("rooted")
	e.AddModifier(m)

	e.StartTurn()
	again, _ := c.NewModifier("rooted")
	e.AddModifier(again)
	e.EndTurn()
	if e.Modifier("rooted") == nil {
		t.Fatal("refreshed rooted must survive the turn it was refreshed in")
	}
	e.StartTurn()
	e.EndTurn()
	if e.Modifier("rooted") != nil {
		t.Error("rooted should expire one full turn after the refresh")
	}
}

func TestModifier_BurnTicksOnTurnStart(t *testing.T) {
	c := Default()
	f := newField(t, 3)
	e := f.spawn(c, 1, "p1", "knight", 0)
	for i := 0; i < 2; i++ {
		m, _ := c.NewModifier("burn")
		e.AddModifier(m)
	}
	e.StartTurn()
	if e.HP() != 12 {
		t.Errorf("HP after burn tick = %d, want 12", e.HP())
	}
}

func TestModifier_ReapplyRefreshesDuration(t *testing.T) {
	c := Default()
	f := newField(t, 3)
	e := f.spawn(c, 1, "p1", "knight", 0)
	m, _ := c.NewModifier("rooted")
	e.AddModifier(m)
	if e.CanMove(1) {
		t.Error("rooted entity can move")
	}
	m.Remaining = 0
	again, _ := c.NewModifier("rooted")
	e.AddModifier(again)
	if e.Modifier("rooted").Remaining != 1 {
		t.Errorf("Remaining = %d, want refreshed to 1", e.Modifier("rooted").Remaining)
	}
}

func TestSkill_Fireball(t *testing.T) {
	c := Default()
	f := newField(t, 6)
	mage := f.spawn(c, 1, "p1", "mage", 0)
	f.spawn(c, 2, "p2", "knight", 3)
	f.spawn(c, 3, "p2", "knight", 4)
	fireball, _ := c.Skill("fireball")

	target := []grid.Point{{X: 3}}
	if err := mage.CheckSkill(fireball, target); err != nil {
		t.Fatalf("CheckSkill: %v", err)
	}
	cells, effs := mage.UseSkill(fireball, target)
	if len(cells) != 3 {
		t.Errorf("affected cells = %v, want x=2..4", cells)
	}
	if len(effs) != 1 || effs[0].Type != "damage" {
		t.Errorf("effects = %+v", effs)
	}
}

func TestSkill_FireArrowRange(t *testing.T) {
	c := Default()
	f := newField(t, 6)
	archer := f.spawn(c, 1, "p1", "archer", 0)
	f.spawn(c, 2, "p2", "knight", 1)
	f.spawn(c, 3, "p2", "knight", 4)
	arrow, _ := c.Skill("fire_arrow")
	if archer.CanUseSkill(arrow, []grid.Point{{X: 1}}) {
		t.Error("fire arrow must not hit adjacent targets")
	}
	if !archer.CanUseSkill(arrow, []grid.Point{{X: 4}}) {
		t.Error("fire arrow should reach x=4")
	}
}
