package unit

import "github.com/nathoo/isotactics/engine/grid"

// Battlefield is the view of the session an entity needs to act.
type Battlefield interface {
	Map() *grid.Map
	EntityAt(p grid.Point) *Entity
	EntityByID(id int) *Entity
	ObstacleAt(p grid.Point) bool
	// RemoveEntity drops a destroyed entity from the index.
	RemoveEntity(e *Entity)
}
