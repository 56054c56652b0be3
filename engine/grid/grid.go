// Package grid implements the multi-level battle map: cell lookup, the
// vertical-priority step rule, and Dijkstra distance maps over it.
package grid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/isotactics/types"
)

// Point is a grid position. Z is the level.
type Point = types.Point

// Key returns the canonical "x:y:z" form of p.
func Key(p Point) string {
	return fmt.Sprintf("%d:%d:%d", p.X, p.Y, p.Z)
}

// ParseKey parses a "x:y:z" key back into a point.
func ParseKey(s string) (Point, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Point{}, fmt.Errorf("cell key %q: want x:y:z", s)
	}
	var v [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Point{}, fmt.Errorf("cell key %q: %w", s, err)
		}
		v[i] = n
	}
	return Point{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Add returns a+b.
func Add(a, b Point) Point {
	return Point{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

// Up and Down are the level offsets used by the step rule.
var (
	Up   = Point{Z: 1}
	Down = Point{Z: -1}
)

// Terrains that can never be stood on.
var blockingTerrain = map[string]bool{
	"water": true,
	"void":  true,
	"wall":  true,
}

// Cell is one addressable grid cell.
type Cell struct {
	Position           Point
	Terrain            string
	AvailableForDeploy *int
}

// Walkable reports whether a unit may stand on the cell.
func (c *Cell) Walkable() bool {
	return !blockingTerrain[c.Terrain]
}

// DeployableBy reports whether the player in the given slot may deploy here.
func (c *Cell) DeployableBy(slot int) bool {
	return c.AvailableForDeploy != nil && *c.AvailableForDeploy == slot
}

// Map is the fixed battlefield. Cells are never mutated after construction.
type Map struct {
	Width  int
	Height int
	Levels int

	cells map[Point]*Cell
	order []*Cell
}

// NewMap builds a map from its definition. Cells outside the declared
// bounds and duplicate positions are errors.
func NewMap(def types.MapDef) (*Map, error) {
	if def.Width <= 0 || def.Height <= 0 || def.Levels <= 0 {
		return nil, fmt.Errorf("map dimensions %dx%dx%d must be positive", def.Width, def.Height, def.Levels)
	}
	m := &Map{
		Width:  def.Width,
		Height: def.Height,
		Levels: def.Levels,
		cells:  make(map[Point]*Cell, len(def.Cells)),
		order:  make([]*Cell, 0, len(def.Cells)),
	}
	for _, cd := range def.Cells {
		if !m.InBounds(cd.Position) {
			return nil, fmt.Errorf("cell %s outside map bounds", Key(cd.Position))
		}
		if _, dup := m.cells[cd.Position]; dup {
			return nil, fmt.Errorf("duplicate cell %s", Key(cd.Position))
		}
		c := &Cell{Position: cd.Position, Terrain: cd.Terrain}
		if cd.AvailableForDeploy != nil {
			slot := *cd.AvailableForDeploy
			c.AvailableForDeploy = &slot
		}
		m.cells[cd.Position] = c
		m.order = append(m.order, c)
	}
	return m, nil
}

// InBounds reports whether p lies inside the declared dimensions.
func (m *Map) InBounds(p Point) bool {
	return p.X >= 0 && p.X < m.Width &&
		p.Y >= 0 && p.Y < m.Height &&
		p.Z >= 0 && p.Z < m.Levels
}

// CellAt returns the cell at p, or nil.
func (m *Map) CellAt(p Point) *Cell {
	return m.cells[p]
}

// Cells returns all cells in declaration order.
func (m *Map) Cells() []*Cell {
	return m.order
}

// walkable reports whether p is an existing walkable cell.
func (m *Map) walkable(p Point) bool {
	c := m.cells[p]
	return c != nil && c.Walkable()
}

// Destination resolves a single step from `from` in direction d. The
// candidates are tried one level above the lateral target, then the lateral
// target, then one level below; the first walkable one wins.
func (m *Map) Destination(from Point, d Direction) (Point, bool) {
	if !m.walkable(from) {
		return Point{}, false
	}
	lateral := Add(from, d.Offset())
	for _, candidate := range [...]Point{Add(lateral, Up), lateral, Add(lateral, Down)} {
		if m.walkable(candidate) {
			return candidate, true
		}
	}
	return Point{}, false
}

// NeighborsDestinations returns every cell reachable by one step or by two
// perpendicular steps, de-duplicated in first-seen order.
func (m *Map) NeighborsDestinations(p Point) []Point {
	seen := make(map[Point]bool, 12)
	var out []Point
	add := func(q Point) {
		if q == p || seen[q] {
			return
		}
		seen[q] = true
		out = append(out, q)
	}
	for _, d := range Directions {
		if q, ok := m.Destination(p, d); ok {
			add(q)
		}
	}
	for _, d := range Directions {
		first, ok := m.Destination(p, d)
		if !ok {
			continue
		}
		for _, side := range d.Perpendicular() {
			if q, ok := m.Destination(first, side); ok {
				add(q)
			}
		}
	}
	return out
}

// CanAttackAt reports whether `to` is within melee reach of `from`.
func (m *Map) CanAttackAt(from, to Point) bool {
	for _, q := range m.NeighborsDestinations(from) {
		if q == to {
			return true
		}
	}
	return false
}

// Def returns a copy of the map definition.
func (m *Map) Def() types.MapDef {
	def := types.MapDef{
		Width:  m.Width,
		Height: m.Height,
		Levels: m.Levels,
		Cells:  make([]types.CellDef, 0, len(m.order)),
	}
	for _, c := range m.order {
		cd := types.CellDef{Position: c.Position, Terrain: c.Terrain}
		if c.AvailableForDeploy != nil {
			slot := *c.AvailableForDeploy
			cd.AvailableForDeploy = &slot
		}
		def.Cells = append(def.Cells, cd)
	}
	return def
}
