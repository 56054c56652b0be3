package unit

import (
	"github.com/nathoo/isotactics/engine/grid"
	"github.com/nathoo/isotactics/types"
)

// Blueprint is the base stat sheet a character is materialized from.
type Blueprint struct {
	ID         string
	Name       string
	SpriteID   string
	MaxHP      int
	MaxAP      int
	Attack     int
	Speed      int
	Initiative int
	Skills     []*Skill
}

// Skill returns the blueprint's skill with the given id, or nil.
func (b *Blueprint) Skill(id string) *Skill {
	for _, s := range b.Skills {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Skill is a targeted ability. The predicates and Effect must not mutate
// the battlefield; Effect returns deferred mutations for the caller to apply.
type Skill struct {
	ID         string
	Name       string
	IconID     string
	APCost     int
	MinTargets int
	MaxTargets int
	Keywords   []string

	// IsTargetable reports whether p may be picked given the targets
	// already chosen.
	IsTargetable func(bf Battlefield, caster *Entity, p grid.Point, chosen []grid.Point) bool
	// InArea reports whether p is affected once targets are final.
	InArea func(bf Battlefield, caster *Entity, p grid.Point, targets []grid.Point) bool
	Effect func(bf Battlefield, caster *Entity, targets, cells []grid.Point) []types.Effect
}

// AffectedCells returns the cells in InArea, in map order.
func (s *Skill) AffectedCells(bf Battlefield, caster *Entity, targets []grid.Point) []grid.Point {
	var out []grid.Point
	for _, c := range bf.Map().Cells() {
		if s.InArea == nil {
			if containsPoint(targets, c.Position) {
				out = append(out, c.Position)
			}
			continue
		}
		if s.InArea(bf, caster, c.Position, targets) {
			out = append(out, c.Position)
		}
	}
	return out
}

func containsPoint(ps []grid.Point, p grid.Point) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}
