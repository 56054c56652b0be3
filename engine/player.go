package engine

import "github.com/nathoo/isotactics/types"

// Player is a participant. Slot is the declaration index, used to match
// deploy zones on the map.
type Player struct {
	ID         string
	Name       string
	Slot       int
	Roster     []string
	Deployment []types.DeploymentEntry
}

func newPlayer(def types.PlayerDef, slot int) *Player {
	return &Player{
		ID:         def.ID,
		Name:       def.Name,
		Slot:       slot,
		Roster:     append([]string(nil), def.Roster...),
		Deployment: append([]types.DeploymentEntry(nil), def.Deployment...),
	}
}

// Deployed reports whether the player has committed a deployment.
func (p *Player) Deployed() bool {
	return len(p.Deployment) > 0
}

// rosterCounts returns how many of each character the player may field.
func (p *Player) rosterCounts() map[string]int {
	counts := make(map[string]int, len(p.Roster))
	for _, id := range p.Roster {
		counts[id]++
	}
	return counts
}

// Def returns a detached copy of the player record.
func (p *Player) Def() types.PlayerDef {
	return types.PlayerDef{
		ID:         p.ID,
		Name:       p.Name,
		Roster:     append([]string(nil), p.Roster...),
		Deployment: append([]types.DeploymentEntry(nil), p.Deployment...),
	}
}

// Obstacle is a positioned blocker that is not an entity.
type Obstacle struct {
	ID       int
	SpriteID string
	Position types.Point
}

func (o *Obstacle) def() types.ObstacleDef {
	return types.ObstacleDef{ID: o.ID, SpriteID: o.SpriteID, Position: o.Position}
}
