package grid

import (
	"testing"

	"github.com/nathoo/isotactics/types"
)

// flatMap builds a w×h single-level grass map, with optional extra cells.
func flatMap(t *testing.T, w, h, levels int, extra ...types.CellDef) *Map {
	t.Helper()
	def := types.MapDef{Width: w, Height: h, Levels: levels}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			def.Cells = append(def.Cells, types.CellDef{Position: Point{X: x, Y: y}, Terrain: "grass"})
		}
	}
	def.Cells = append(def.Cells, extra...)
	m, err := NewMap(def)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	return m
}

func TestKey_RoundTrip(t *testing.T) {
	p := Point{X: 3, Y: -1, Z: 2}
	got, err := ParseKey(Key(p))
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if got != p {
		t.Errorf("ParseKey(Key(%v)) = %v", p, got)
	}
	if _, err := ParseKey("1:2"); err == nil {
		t.Error("expected error for short key")
	}
}

func TestNewMap_RejectsDuplicatesAndOutOfBounds(t *testing.T) {
	tests := []struct {
		name  string
		cells []types.CellDef
	}{
		{"duplicate", []types.CellDef{{Position: Point{}}, {Position: Point{}}}},
		{"out of bounds", []types.CellDef{{Position: Point{X: 5}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMap(types.MapDef{Width: 2, Height: 2, Levels: 1, Cells: tt.cells})
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCell_Walkable(t *testing.T) {
	tests := []struct {
		terrain string
		want    bool
	}{
		{"grass", true},
		{"stone", true},
		{"water", false},
		{"void", false},
		{"wall", false},
	}
	for _, tt := range tests {
		c := &Cell{Terrain: tt.terrain}
		if got := c.Walkable(); got != tt.want {
			t.Errorf("Walkable(%q) = %v, want %v", tt.terrain, got, tt.want)
		}
	}
}

func TestDestination_Lateral(t *testing.T) {
	m := flatMap(t, 3, 3, 1)
	got, ok := m.Destination(Point{X: 1, Y: 1}, North)
	if !ok || got != (Point{X: 1, Y: 0}) {
		t.Errorf("Destination north = %v, %v", got, ok)
	}
	if _, ok := m.Destination(Point{X: 0, Y: 0}, West); ok {
		t.Error("expected no destination off the map edge")
	}
}

func TestDestination_PrefersAbove(t *testing.T) {
	// Lateral cell (1,0,0) is walkable, and so is (1,0,1) above it.
	m := flatMap(t, 3, 1, 2, types.CellDef{Position: Point{X: 1, Z: 1}, Terrain: "stone"})
	got, ok := m.Destination(Point{}, East)
	if !ok {
		t.Fatal("expected a destination")
	}
	if got != (Point{X: 1, Z: 1}) {
		t.Errorf("Destination = %v, want the raised cell", got)
	}
}

func TestDestination_StepsDown(t *testing.T) {
	def := types.MapDef{Width: 2, Height: 1, Levels: 2, Cells: []types.CellDef{
		{Position: Point{X: 0, Z: 1}, Terrain: "stone"},
		{Position: Point{X: 1, Z: 0}, Terrain: "grass"},
	}}
	m, err := NewMap(def)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := m.Destination(Point{Z: 1}, East)
	if !ok || got != (Point{X: 1}) {
		t.Errorf("Destination = %v, %v; want step down to (1,0,0)", got, ok)
	}
}

func TestDestination_UnwalkableOriginOrTarget(t *testing.T) {
	m := flatMap(t, 2, 1, 1)
	if _, ok := m.Destination(Point{X: 5}, East); ok {
		t.Error("missing origin must not resolve")
	}

	def := types.MapDef{Width: 2, Height: 1, Levels: 1, Cells: []types.CellDef{
		{Position: Point{X: 0}, Terrain: "grass"},
		{Position: Point{X: 1}, Terrain: "water"},
	}}
	wm, err := NewMap(def)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := wm.Destination(Point{}, East); ok {
		t.Error("water must not be a destination")
	}
}

func TestNeighborsDestinations(t *testing.T) {
	m := flatMap(t, 5, 5, 1)
	got := m.NeighborsDestinations(Point{X: 2, Y: 2})
	if len(got) != 8 {
		t.Fatalf("expected 8 neighbours on a flat map, got %d: %v", len(got), got)
	}
	want := map[Point]bool{}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx != 0 || dy != 0 {
				want[Point{X: 2 + dx, Y: 2 + dy}] = true
			}
		}
	}
	for _, p := range got {
		if !want[p] {
			t.Errorf("unexpected neighbour %v", p)
		}
	}
	if m.CanAttackAt(Point{X: 2, Y: 2}, Point{X: 2, Y: 4}) {
		t.Error("a cell two steps away must be out of reach")
	}
	if !m.CanAttackAt(Point{X: 2, Y: 2}, Point{X: 3, Y: 3}) {
		t.Error("diagonal cell must be in reach")
	}
}

func TestDistanceMap_FlatCosts(t *testing.T) {
	m := flatMap(t, 4, 4, 1)
	dm := m.DistanceMap(Point{}, 0, nil)
	if got := dm.Get(Point{X: 3, Y: 3}); got != 6 {
		t.Errorf("cost to corner = %d, want 6", got)
	}
	if got := dm.Get(Point{X: 9}); got != Unreachable {
		t.Errorf("cost off map = %d, want Unreachable", got)
	}
	if got := dm.Get(Point{}); got != 0 {
		t.Errorf("origin cost = %d", got)
	}
}

func TestDistanceMap_Blocked(t *testing.T) {
	m := flatMap(t, 3, 1, 1)
	blocked := func(p Point) bool { return p == Point{X: 1} }
	dm := m.DistanceMap(Point{}, 0, blocked)
	if dm.Get(Point{X: 2}) != Unreachable {
		t.Error("cell behind a blocker must be unreachable in a corridor")
	}
}

func TestDistanceMap_BoundingBox(t *testing.T) {
	m := flatMap(t, 6, 1, 1)
	dm := m.DistanceMap(Point{}, 2, nil)
	if dm.Get(Point{X: 2}) != 2 {
		t.Errorf("cost inside box = %d", dm.Get(Point{X: 2}))
	}
	if dm.Get(Point{X: 3}) != Unreachable {
		t.Error("cell outside the box must not be settled")
	}
	if got := len(dm.Within(2)); got != 2 {
		t.Errorf("Within(2) = %d points, want 2", got)
	}
}

func TestPathTo_LengthMatchesDistanceMap(t *testing.T) {
	m := flatMap(t, 5, 5, 2,
		types.CellDef{Position: Point{X: 2, Y: 1, Z: 1}, Terrain: "stone"},
		types.CellDef{Position: Point{X: 2, Y: 2, Z: 1}, Terrain: "stone"},
	)
	blocked := func(p Point) bool { return p == Point{X: 1, Y: 1} }
	origin := Point{}
	dm := m.DistanceMap(origin, 0, blocked)
	for _, c := range m.Cells() {
		cost := dm.Get(c.Position)
		path := m.PathTo(origin, c.Position, 0, blocked)
		if cost == Unreachable {
			if path != nil {
				t.Errorf("path to unreachable %v", c.Position)
			}
			continue
		}
		if path == nil {
			t.Fatalf("no path to reachable %v", c.Position)
		}
		if path.Distance != cost || len(path.Points) != cost {
			t.Errorf("path to %v: distance %d, len %d, cost %d", c.Position, path.Distance, len(path.Points), cost)
		}
		if cost > 0 && path.Points[len(path.Points)-1] != c.Position {
			t.Errorf("path to %v ends at %v", c.Position, path.Points[len(path.Points)-1])
		}
	}
}

func TestPathTo_Deterministic(t *testing.T) {
	m := flatMap(t, 6, 6, 1)
	a := m.PathTo(Point{}, Point{X: 5, Y: 5}, 0, nil)
	for i := 0; i < 20; i++ {
		b := m.PathTo(Point{}, Point{X: 5, Y: 5}, 0, nil)
		for j := range a.Points {
			if a.Points[j] != b.Points[j] {
				t.Fatalf("run %d diverged at step %d: %v vs %v", i, j, a.Points[j], b.Points[j])
			}
		}
	}
}

func TestPathTo_Unreachable(t *testing.T) {
	def := types.MapDef{Width: 3, Height: 1, Levels: 1, Cells: []types.CellDef{
		{Position: Point{X: 0}, Terrain: "grass"},
		{Position: Point{X: 1}, Terrain: "void"},
		{Position: Point{X: 2}, Terrain: "grass"},
	}}
	m, err := NewMap(def)
	if err != nil {
		t.Fatal(err)
	}
	if p := m.PathTo(Point{}, Point{X: 2}, 0, nil); p != nil {
		t.Errorf("expected nil path, got %+v", p)
	}
}
