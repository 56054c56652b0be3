// Package types defines the shared data records for the isotactics engine.
// This package contains only type definitions: no logic, no methods.
package types

import "encoding/json"

// Point is an integer position on the battle grid. Z is the level.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// SerializedAction is the wire form of a command. Payload is kept exactly
// as received so history can be replayed verbatim.
type SerializedAction struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// CellDef describes one map cell.
type CellDef struct {
	Position Point  `json:"position"`
	Terrain  string `json:"terrain"`
	// AvailableForDeploy restricts deployment on this cell to a player slot.
	// Nil means nobody may deploy here.
	AvailableForDeploy *int `json:"availableForDeploy,omitempty"`
}

// MapDef is the fixed battlefield geometry.
type MapDef struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Levels int       `json:"levels"`
	Cells  []CellDef `json:"cells"`
}

// DeploymentEntry places one roster character on a cell.
type DeploymentEntry struct {
	CharacterID string `json:"characterId"`
	Position    Point  `json:"position"`
}

// PlayerDef is a participant and the characters it may field.
type PlayerDef struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Roster     []string          `json:"roster"`
	Deployment []DeploymentEntry `json:"deployment,omitempty"`
}

// ObstacleDef is a non-entity blocker.
type ObstacleDef struct {
	ID       int    `json:"id"`
	SpriteID string `json:"spriteId"`
	Position Point  `json:"position"`
}

// Setup is everything a session is constructed from: the initial snapshot
// plus the ordered action history to replay.
type Setup struct {
	ID        string             `json:"id"`
	Seed      string             `json:"seed"`
	Map       MapDef             `json:"map"`
	Players   []PlayerDef        `json:"players"`
	Obstacles []ObstacleDef      `json:"obstacles,omitempty"`
	History   []SerializedAction `json:"history,omitempty"`
}

// Condition is a predicate evaluated by skill targeting and area rules.
type Condition struct {
	Type   string         `json:"type"`             // "enemy", "ally", "empty", "within_range", etc.
	Params map[string]any `json:"params,omitempty"` // condition-specific parameters
	Inner  *Condition     `json:"inner,omitempty"`  // for Not(): the negated inner condition
}

// Effect is a single deferred mutation produced by a skill or modifier.
type Effect struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// BlueprintDef is the base stat sheet of a character.
type BlueprintDef struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	SpriteID   string   `json:"spriteId,omitempty"`
	MaxHP      int      `json:"maxHp"`
	MaxAP      int      `json:"maxAp"`
	Attack     int      `json:"attack"`
	Speed      int      `json:"speed"`
	Initiative int      `json:"initiative"`
	Skills     []string `json:"skills,omitempty"`
}

// SkillDef is a declarative skill.
type SkillDef struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	IconID     string      `json:"iconId,omitempty"`
	APCost     int         `json:"apCost"`
	MinTargets int         `json:"minTargets"`
	MaxTargets int         `json:"maxTargets"`
	Keywords   []string    `json:"keywords,omitempty"`
	Targeting  []Condition `json:"targeting,omitempty"`
	Area       []Condition `json:"area,omitempty"`
	Effects    []Effect    `json:"effects,omitempty"`
}

// InterceptDef is one stat or gate override registered by a modifier.
type InterceptDef struct {
	Stat     string `json:"stat"`
	Op       string `json:"op"` // "add", "mul_pct", "set", "deny"
	Value    int    `json:"value,omitempty"`
	PerStack bool   `json:"perStack,omitempty"`
	Final    bool   `json:"final,omitempty"`
}

// ModifierDef is a declarative buff or debuff.
type ModifierDef struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	IconID      string         `json:"iconId,omitempty"`
	Keywords    []string       `json:"keywords,omitempty"`
	Stackable   bool           `json:"stackable"`
	Duration    int            `json:"duration,omitempty"` // turns; 0 lasts until removed
	Intercepts  []InterceptDef `json:"intercepts,omitempty"`
	OnTurnStart []Effect       `json:"onTurnStart,omitempty"`
}

// Content is a full content catalog as loaded from disk.
type Content struct {
	Title      string
	Blueprints []BlueprintDef
	Skills     []SkillDef
	Modifiers  []ModifierDef
}

// ModifierState is the snapshot of an attached modifier.
type ModifierState struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	IconID    string   `json:"iconId,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Stackable bool     `json:"stackable"`
	Stacks    int      `json:"stacks"`
	Remaining int      `json:"remaining,omitempty"`
}

// EntityState is the snapshot of a deployed unit with resolved stats.
type EntityState struct {
	ID            int             `json:"id"`
	PlayerID      string          `json:"playerId"`
	BlueprintID   string          `json:"blueprintId"`
	Name          string          `json:"name"`
	SpriteID      string          `json:"spriteId,omitempty"`
	Position      Point           `json:"position"`
	HP            int             `json:"hp"`
	MaxHP         int             `json:"maxHp"`
	AP            int             `json:"ap"`
	MaxAP         int             `json:"maxAp"`
	Attack        int             `json:"attack"`
	Speed         int             `json:"speed"`
	Initiative    int             `json:"initiative"`
	ATB           float64         `json:"atb"`
	ATBSeed       float64         `json:"atbSeed"`
	MovementSpent int             `json:"movementSpent"`
	ActionsTaken  int             `json:"actionsTaken"`
	Skills        []string        `json:"skills,omitempty"`
	Modifiers     []ModifierState `json:"modifiers,omitempty"`
}

// GameState is the immutable snapshot handed to observers.
type GameState struct {
	ID             string             `json:"id"`
	Seed           string             `json:"seed"`
	Phase          string             `json:"phase"`
	Map            MapDef             `json:"map"`
	Entities       []EntityState      `json:"entities"`
	Players        []PlayerDef        `json:"players"`
	Obstacles      []ObstacleDef      `json:"obstacles"`
	ActiveEntityID int                `json:"activeEntityId,omitempty"`
	Timeline       []int              `json:"timeline,omitempty"`
	History        []SerializedAction `json:"history"`
}

// Intent is a parsed hot-seat command line. Only the fields relevant to
// Verb are set.
type Intent struct {
	Verb      string  // canonical verb: "move", "attack", "skill", ...
	Object    string  // skill id, inspected name, or file name
	Direction string  // for single-step moves: "north", "south", ...
	EntityID  int     // attack target or inspected entity
	Points    []Point // move destination, skill targets, deploy cells
	Names     []string
}
