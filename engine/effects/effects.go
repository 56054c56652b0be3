// Package effects implements centralized battlefield mutation via the Apply
// function. Every effect type is one atomic operation. No logic in effects.
package effects

import (
	"github.com/nathoo/isotactics/engine/grid"
	"github.com/nathoo/isotactics/engine/unit"
	"github.com/nathoo/isotactics/types"
)

// ModifierFactory builds a fresh modifier instance by id.
type ModifierFactory func(id string) (*unit.Modifier, bool)

// Context carries what effects are resolved against.
type Context struct {
	Field     unit.Battlefield
	Source    *unit.Entity // caster, or the owner of a modifier
	Targets   []grid.Point
	Cells     []grid.Point
	Modifiers ModifierFactory
}

// Outcome describes one applied effect, for presentation.
type Outcome struct {
	Type       string
	SourceID   int
	EntityID   int
	Amount     int
	ModifierID string
	Text       string
	From       grid.Point
	To         grid.Point
}

// Apply applies effects in order and returns what happened.
func Apply(ctx Context, effs []types.Effect) []Outcome {
	var out []Outcome
	sourceID := 0
	if ctx.Source != nil {
		sourceID = ctx.Source.ID
	}

	for _, eff := range effs {
		switch eff.Type {
		case "damage":
			amount := toInt(eff.Params["amount"])
			for _, e := range selectEntities(ctx, eff) {
				var dealt int
				if ctx.Source != nil && !ctx.Source.Destroyed() && ctx.Source != e {
					dealt = ctx.Source.DealDamage(amount, e, false)
				} else {
					dealt = e.TakeDamage(amount, nil)
				}
				out = append(out, Outcome{Type: "damage", SourceID: sourceID, EntityID: e.ID, Amount: dealt})
				if e.Destroyed() {
					out = append(out, Outcome{Type: "destroyed", SourceID: sourceID, EntityID: e.ID})
				}
			}

		case "heal":
			amount := toInt(eff.Params["amount"])
			for _, e := range selectEntities(ctx, eff) {
				healed := e.Heal(amount)
				out = append(out, Outcome{Type: "heal", SourceID: sourceID, EntityID: e.ID, Amount: healed})
			}

		case "add_modifier":
			id, _ := eff.Params["modifier"].(string)
			if ctx.Modifiers == nil {
				continue
			}
			for _, e := range selectEntities(ctx, eff) {
				m, ok := ctx.Modifiers(id)
				if !ok {
					break
				}
				attached := e.AddModifier(m)
				out = append(out, Outcome{Type: "modifier_added", SourceID: sourceID, EntityID: e.ID, ModifierID: id, Amount: attached.Stacks})
			}

		case "remove_modifier":
			id, _ := eff.Params["modifier"].(string)
			for _, e := range selectEntities(ctx, eff) {
				if e.RemoveModifier(id) {
					out = append(out, Outcome{Type: "modifier_removed", SourceID: sourceID, EntityID: e.ID, ModifierID: id})
				}
			}

		case "teleport":
			if len(ctx.Targets) == 0 {
				continue
			}
			dest := ctx.Targets[0]
			if !free(ctx.Field, dest) {
				continue
			}
			if es := selectEntities(ctx, eff); len(es) > 0 {
				e := es[0]
				from := e.Position
				e.Position = dest
				out = append(out, Outcome{Type: "teleport", SourceID: sourceID, EntityID: e.ID, From: from, To: dest})
			}

		case "say":
			text, _ := eff.Params["text"].(string)
			out = append(out, Outcome{Type: "text", SourceID: sourceID, EntityID: sourceID, Text: text})

		case "stop":
			return out

		default:
			// Unknown effect types are ignored.
		}
	}

	return out
}

// selectEntities resolves the "target" parameter of an effect to live
// entities, de-duplicated, in point order.
func selectEntities(ctx Context, eff types.Effect) []*unit.Entity {
	selector, _ := eff.Params["target"].(string)
	var points []grid.Point
	switch selector {
	case "caster", "self":
		if ctx.Source != nil && !ctx.Source.Destroyed() {
			return []*unit.Entity{ctx.Source}
		}
		return nil
	case "entity":
		if e := ctx.Field.EntityByID(toInt(eff.Params["entity"])); e != nil {
			return []*unit.Entity{e}
		}
		return nil
	case "targets":
		points = ctx.Targets
	default:
		points = ctx.Cells
	}

	seen := map[*unit.Entity]bool{}
	var out []*unit.Entity
	for _, p := range points {
		e := ctx.Field.EntityAt(p)
		if e == nil || e.Destroyed() || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func free(f unit.Battlefield, p grid.Point) bool {
	cell := f.Map().CellAt(p)
	return cell != nil && cell.Walkable() && f.EntityAt(p) == nil && !f.ObstacleAt(p)
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
