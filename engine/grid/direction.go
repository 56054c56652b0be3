package grid

import "fmt"

// Direction is one of the four lateral step directions.
type Direction int

const (
	North Direction = iota
	South
	West
	East
)

// Directions lists the step directions in expansion order.
var Directions = [...]Direction{North, South, West, East}

var directionNames = map[Direction]string{
	North: "north",
	South: "south",
	West:  "west",
	East:  "east",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Offset is the lateral unit vector for d. North is -Y.
func (d Direction) Offset() Point {
	switch d {
	case North:
		return Point{Y: -1}
	case South:
		return Point{Y: 1}
	case West:
		return Point{X: -1}
	case East:
		return Point{X: 1}
	}
	return Point{}
}

// Perpendicular returns the two directions at right angles to d.
func (d Direction) Perpendicular() [2]Direction {
	if d == North || d == South {
		return [2]Direction{East, West}
	}
	return [2]Direction{North, South}
}

// ParseDirection accepts full names and single-letter abbreviations.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "north", "n":
		return North, true
	case "south", "s":
		return South, true
	case "west", "w":
		return West, true
	case "east", "e":
		return East, true
	}
	return 0, false
}
