// Package rules evaluates the declarative conditions that decide where a
// skill may be aimed and which cells it affects.
package rules

import (
	"github.com/nathoo/isotactics/engine/grid"
	"github.com/nathoo/isotactics/engine/unit"
	"github.com/nathoo/isotactics/types"
)

// Target is the point being tested and what it is tested against.
// Targets holds the targets chosen so far when deciding targetability, and
// the final targets when deciding the area of effect.
type Target struct {
	Field   unit.Battlefield
	Caster  *unit.Entity
	Point   grid.Point
	Targets []grid.Point
}

func (t Target) occupant() *unit.Entity {
	return t.Field.EntityAt(t.Point)
}

// EvalCondition evaluates a single condition.
func EvalCondition(c types.Condition, t Target) bool {
	switch c.Type {
	case "enemy":
		return t.Caster.IsEnemy(t.occupant())

	case "ally":
		return t.Caster.IsAlly(t.occupant())

	case "self":
		return t.occupant() == t.Caster

	case "occupied":
		return t.occupant() != nil

	case "empty":
		cell := t.Field.Map().CellAt(t.Point)
		return cell != nil && cell.Walkable() && t.occupant() == nil && !t.Field.ObstacleAt(t.Point)

	case "walkable":
		cell := t.Field.Map().CellAt(t.Point)
		return cell != nil && cell.Walkable()

	case "in_melee":
		return t.Field.Map().CanAttackAt(t.Caster.Position, t.Point)

	case "within_range":
		d := Distance(t.Caster.Position, t.Point)
		return d >= toInt(c.Params["min"]) && d <= toInt(c.Params["max"])

	case "is_target":
		return contains(t.Targets, t.Point)

	case "not_chosen":
		return !contains(t.Targets, t.Point)

	case "near_target":
		radius := toInt(c.Params["radius"])
		for _, target := range t.Targets {
			if Distance(target, t.Point) <= radius {
				return true
			}
		}
		return false

	case "has_keyword":
		keyword, _ := c.Params["keyword"].(string)
		occ := t.occupant()
		return occ != nil && occ.HasKeyword(keyword)

	case "not":
		if c.Inner == nil {
			return true
		}
		return !EvalCondition(*c.Inner, t)

	default:
		return false
	}
}

// EvalAllConditions returns true if all conditions pass (AND logic).
// An empty condition list is vacuously true.
func EvalAllConditions(conditions []types.Condition, t Target) bool {
	for _, c := range conditions {
		if !EvalCondition(c, t) {
			return false
		}
	}
	return true
}

// Distance is the 3D manhattan distance between two points.
func Distance(a, b grid.Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y) + abs(a.Z-b.Z)
}

func contains(ps []grid.Point, p grid.Point) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// toInt converts an any value to int, handling float64 from JSON/Lua.
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
