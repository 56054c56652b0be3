// Package catalog compiles declarative content into the runtime blueprints,
// skills and modifier factories the session materializes entities from.
package catalog

import (
	"fmt"

	"github.com/nathoo/isotactics/engine/effects"
	"github.com/nathoo/isotactics/engine/events"
	"github.com/nathoo/isotactics/engine/grid"
	"github.com/nathoo/isotactics/engine/intercept"
	"github.com/nathoo/isotactics/engine/rules"
	"github.com/nathoo/isotactics/engine/unit"
	"github.com/nathoo/isotactics/types"
)

// Catalog holds compiled content. It is immutable after Build.
type Catalog struct {
	Title string

	blueprints map[string]*unit.Blueprint
	order      []string
	skills     map[string]*unit.Skill
	modifiers  map[string]types.ModifierDef
}

// Build compiles content. Unknown skill references, duplicate ids and
// invalid interceptor stats are errors.
func Build(content types.Content) (*Catalog, error) {
	c := &Catalog{
		Title:      content.Title,
		blueprints: map[string]*unit.Blueprint{},
		skills:     map[string]*unit.Skill{},
		modifiers:  map[string]types.ModifierDef{},
	}

	for _, md := range content.Modifiers {
		if _, dup := c.modifiers[md.ID]; dup {
			return nil, fmt.Errorf("duplicate modifier %q", md.ID)
		}
		for _, ic := range md.Intercepts {
			if _, ok := unit.ParseStat(ic.Stat); ok {
				continue
			}
			if _, ok := unit.ParseGate(ic.Stat); ok {
				continue
			}
			return nil, fmt.Errorf("modifier %q: unknown stat %q", md.ID, ic.Stat)
		}
		c.modifiers[md.ID] = md
	}

	for _, sd := range content.Skills {
		if _, dup := c.skills[sd.ID]; dup {
			return nil, fmt.Errorf("duplicate skill %q", sd.ID)
		}
		c.skills[sd.ID] = c.compileSkill(sd)
	}

	for _, bd := range content.Blueprints {
		if _, dup := c.blueprints[bd.ID]; dup {
			return nil, fmt.Errorf("duplicate blueprint %q", bd.ID)
		}
		bp := &unit.Blueprint{
			ID:         bd.ID,
			Name:       bd.Name,
			SpriteID:   bd.SpriteID,
			MaxHP:      bd.MaxHP,
			MaxAP:      bd.MaxAP,
			Attack:     bd.Attack,
			Speed:      bd.Speed,
			Initiative: bd.Initiative,
		}
		for _, sid := range bd.Skills {
			s, ok := c.skills[sid]
			if !ok {
				return nil, fmt.Errorf("blueprint %q: unknown skill %q", bd.ID, sid)
			}
			bp.Skills = append(bp.Skills, s)
		}
		c.blueprints[bd.ID] = bp
		c.order = append(c.order, bd.ID)
	}
	return c, nil
}

// Blueprint returns the blueprint with id.
func (c *Catalog) Blueprint(id string) (*unit.Blueprint, bool) {
	bp, ok := c.blueprints[id]
	return bp, ok
}

// Blueprints returns every blueprint in content order.
func (c *Catalog) Blueprints() []*unit.Blueprint {
	out := make([]*unit.Blueprint, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.blueprints[id])
	}
	return out
}

// Skill returns the compiled skill with id.
func (c *Catalog) Skill(id string) (*unit.Skill, bool) {
	s, ok := c.skills[id]
	return s, ok
}

// ModifierDef returns the declarative definition of a modifier.
func (c *Catalog) ModifierDef(id string) (types.ModifierDef, bool) {
	md, ok := c.modifiers[id]
	return md, ok
}

func (c *Catalog) compileSkill(sd types.SkillDef) *unit.Skill {
	s := &unit.Skill{
		ID:         sd.ID,
		Name:       sd.Name,
		IconID:     sd.IconID,
		APCost:     sd.APCost,
		MinTargets: sd.MinTargets,
		MaxTargets: sd.MaxTargets,
		Keywords:   sd.Keywords,
	}
	targeting := sd.Targeting
	s.IsTargetable = func(bf unit.Battlefield, caster *unit.Entity, p grid.Point, chosen []grid.Point) bool {
		return rules.EvalAllConditions(targeting, rules.Target{Field: bf, Caster: caster, Point: p, Targets: chosen})
	}
	if len(sd.Area) > 0 {
		area := sd.Area
		s.InArea = func(bf unit.Battlefield, caster *unit.Entity, p grid.Point, targets []grid.Point) bool {
			return rules.EvalAllConditions(area, rules.Target{Field: bf, Caster: caster, Point: p, Targets: targets})
		}
	}
	effs := sd.Effects
	s.Effect = func(unit.Battlefield, *unit.Entity, []grid.Point, []grid.Point) []types.Effect {
		return cloneEffects(effs, 1)
	}
	return s
}

// NewModifier builds a fresh, unattached instance of modifier id. It has the
// shape of effects.ModifierFactory.
func (c *Catalog) NewModifier(id string) (*unit.Modifier, bool) {
	md, ok := c.modifiers[id]
	if !ok {
		return nil, false
	}
	m := &unit.Modifier{
		ID:        md.ID,
		Name:      md.Name,
		IconID:    md.IconID,
		Keywords:  append([]string(nil), md.Keywords...),
		Stackable: md.Stackable,
		Remaining: md.Duration,
	}

	// A modifier applied during its owner's turn does not count that turn.
	var (
		undo []func()
		skip bool
	)
	m.OnApplied = func(e *unit.Entity, m *unit.Modifier) {
		skip = e.InTurn()
		for _, ic := range md.Intercepts {
			undo = append(undo, register(e, m, ic))
		}
		if len(md.OnTurnStart) > 0 {
			sub := e.Subscribe(events.EntityTurnStarted, func(events.Event) {
				effects.Apply(effects.Context{
					Field:     e.Battlefield(),
					Source:    e,
					Cells:     []grid.Point{e.Position},
					Modifiers: c.NewModifier,
				}, cloneEffects(md.OnTurnStart, m.Stacks))
			})
			undo = append(undo, func() { e.Unsubscribe(sub) })
		}
		if md.Duration > 0 {
			sub := e.Subscribe(events.EntityTurnEnded, func(events.Event) {
				if skip {
					skip = false
					return
				}
				m.Remaining--
				if m.Remaining <= 0 {
					e.RemoveModifier(m.ID)
				}
			})
			undo = append(undo, func() { e.Unsubscribe(sub) })
		}
	}
	m.OnRemoved = func(*unit.Entity, *unit.Modifier) {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		undo = nil
	}
	refresh := func(e *unit.Entity, m *unit.Modifier) {
		m.Remaining = md.Duration
		skip = e.InTurn()
	}
	m.OnReapply = refresh
	m.OnStack = refresh
	return m, true
}

// register installs one interceptor and returns its removal.
func register(e *unit.Entity, m *unit.Modifier, ic types.InterceptDef) func() {
	scale := func() int {
		if ic.PerStack {
			return ic.Value * m.Stacks
		}
		return ic.Value
	}
	if stat, ok := unit.ParseStat(ic.Stat); ok {
		var fn intercept.Func[int, unit.Context]
		switch ic.Op {
		case "mul_pct":
			fn = func(v int, _ unit.Context) int { return v * scale() / 100 }
		case "set":
			fn = func(int, unit.Context) int { return ic.Value }
		default:
			fn = func(v int, _ unit.Context) int { return v + scale() }
		}
		link := e.Intercept(stat, fn, ic.Final)
		return func() { e.Unintercept(stat, link) }
	}
	gate, _ := unit.ParseGate(ic.Stat)
	allow := ic.Op == "allow"
	link := e.Gate(gate, func(bool, unit.Context) bool { return allow }, ic.Final)
	return func() { e.Ungate(gate, link) }
}

// cloneEffects copies effect templates, multiplying amounts marked
// per_stack by stacks.
func cloneEffects(effs []types.Effect, stacks int) []types.Effect {
	out := make([]types.Effect, len(effs))
	for i, eff := range effs {
		params := make(map[string]any, len(eff.Params))
		for k, v := range eff.Params {
			params[k] = v
		}
		if perStack, _ := params["per_stack"].(bool); perStack {
			params["amount"] = toInt(params["amount"]) * stacks
		}
		out[i] = types.Effect{Type: eff.Type, Params: params}
	}
	return out
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}
