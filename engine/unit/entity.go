// Package unit models deployed characters: interceptable stats, HP and AP
// pools, per-turn counters, and the modifier lifecycle.
package unit

import (
	"errors"

	"github.com/nathoo/isotactics/engine/events"
	"github.com/nathoo/isotactics/engine/grid"
	"github.com/nathoo/isotactics/engine/intercept"
	"github.com/nathoo/isotactics/types"
)

// MaxActions is the number of attacks or skills an entity gets per turn.
const MaxActions = 1

// Reasons an attack or skill is refused.
var (
	ErrDestroyed      = errors.New("entity is destroyed")
	ErrActionTaken    = errors.New("action already taken this turn")
	ErrOutOfRange     = errors.New("target out of range")
	ErrNotEnemy       = errors.New("target is not an enemy")
	ErrAttackVetoed   = errors.New("attack prevented")
	ErrUntargetable   = errors.New("target cannot be attacked")
	ErrNotEnoughAP    = errors.New("not enough AP")
	ErrTargetCount    = errors.New("wrong number of targets")
	ErrInvalidTarget  = errors.New("invalid target")
	ErrSkillPrevented = errors.New("skill prevented")
)

// Entity is a deployed unit.
type Entity struct {
	ID        int
	PlayerID  string
	Blueprint *Blueprint
	Position  grid.Point

	MovementSpent int
	ActionsTaken  int

	hp      int
	ap      int
	atb     float64
	atbSeed float64

	bf        Battlefield
	stats     [numStats]intercept.Chain[int, Context]
	gates     [numGates]intercept.Chain[bool, Context]
	modifiers []*Modifier
	bus       events.Bus
	destroyed bool
	inTurn    bool
}

// New materializes an entity at full HP and AP with its accumulator at seed.
func New(bf Battlefield, id int, playerID string, bp *Blueprint, pos grid.Point, atbSeed float64) *Entity {
	return &Entity{
		ID:        id,
		PlayerID:  playerID,
		Blueprint: bp,
		Position:  pos,
		hp:        bp.MaxHP,
		ap:        bp.MaxAP,
		atb:       atbSeed,
		atbSeed:   atbSeed,
		bf:        bf,
	}
}

// --- resolved stats ---

func (e *Entity) stat(s Stat, base int) int {
	return e.stats[s].Value(base, Context{Entity: e})
}

func (e *Entity) Attack() int     { return e.stat(Attack, e.Blueprint.Attack) }
func (e *Entity) Speed() int      { return e.stat(Speed, e.Blueprint.Speed) }
func (e *Entity) Initiative() int { return e.stat(Initiative, e.Blueprint.Initiative) }
func (e *Entity) MaxHP() int      { return e.stat(MaxHP, e.Blueprint.MaxHP) }
func (e *Entity) MaxAP() int      { return e.stat(MaxAP, e.Blueprint.MaxAP) }

// HP is the current hit points, never above MaxHP.
func (e *Entity) HP() int {
	if max := e.MaxHP(); e.hp > max {
		return max
	}
	return e.hp
}

// AP is the current action points.
func (e *Entity) AP() int { return e.ap }

func (e *Entity) ATB() float64             { return e.atb }
func (e *Entity) SetATB(v float64)         { e.atb = v }
func (e *Entity) ATBSeed() float64         { return e.atbSeed }
func (e *Entity) Destroyed() bool          { return e.destroyed }
func (e *Entity) Battlefield() Battlefield { return e.bf }

// RemainingMovement is the movement budget left this turn.
func (e *Entity) RemainingMovement() int {
	if r := e.Speed() - e.MovementSpent; r > 0 {
		return r
	}
	return 0
}

// IsEnemy reports whether other belongs to a different player.
func (e *Entity) IsEnemy(other *Entity) bool {
	return other != nil && other.PlayerID != e.PlayerID
}

// IsAlly reports whether other belongs to the same player.
func (e *Entity) IsAlly(other *Entity) bool {
	return other != nil && other.PlayerID == e.PlayerID
}

// --- interceptors and events ---

// Intercept registers a transform on a numeric stat.
func (e *Entity) Intercept(s Stat, fn intercept.Func[int, Context], final bool) *intercept.Link[int, Context] {
	return e.stats[s].Add(fn, final)
}

// Unintercept removes a transform registered with Intercept.
func (e *Entity) Unintercept(s Stat, l *intercept.Link[int, Context]) bool {
	return e.stats[s].Remove(l)
}

// Gate registers a transform on a permission.
func (e *Entity) Gate(g Gate, fn intercept.Func[bool, Context], final bool) *intercept.Link[bool, Context] {
	return e.gates[g].Add(fn, final)
}

// Ungate removes a transform registered with Gate.
func (e *Entity) Ungate(g Gate, l *intercept.Link[bool, Context]) bool {
	return e.gates[g].Remove(l)
}

// InterceptorCount returns the number of links on a stat and a gate chain.
func (e *Entity) InterceptorCount() int {
	n := 0
	for i := range e.stats {
		n += e.stats[i].Len()
	}
	for i := range e.gates {
		n += e.gates[i].Len()
	}
	return n
}

// Subscribe registers fn for events of this entity.
func (e *Entity) Subscribe(kind events.Kind, fn events.Handler) *events.Subscription {
	return e.bus.Subscribe(kind, fn)
}

// Unsubscribe removes a subscription made with Subscribe.
func (e *Entity) Unsubscribe(s *events.Subscription) bool {
	return e.bus.Unsubscribe(s)
}

func (e *Entity) emit(ev events.Event) {
	ev.EntityID = e.ID
	e.bus.Publish(ev)
}

// --- turn lifecycle ---

// StartTurn resets the per-turn counters and restores AP.
func (e *Entity) StartTurn() {
	e.MovementSpent = 0
	e.ActionsTaken = 0
	e.ap = e.MaxAP()
	e.inTurn = true
	e.emit(events.Event{Kind: events.EntityTurnStarted})
}

// EndTurn resets the turn-order accumulator to the entity's seed.
func (e *Entity) EndTurn() {
	e.atb = e.atbSeed
	e.inTurn = false
	e.emit(events.Event{Kind: events.EntityTurnEnded})
}

// InTurn reports whether the entity is between StartTurn and EndTurn.
func (e *Entity) InTurn() bool { return e.inTurn }

// --- movement ---

// CanMove reports whether the entity may travel distance steps now.
func (e *Entity) CanMove(distance int) bool {
	if e.destroyed || distance > e.RemainingMovement() {
		return false
	}
	return e.gates[CanMove].Value(true, Context{Entity: e, Amount: distance})
}

// Move walks the path one waypoint at a time and stops when the budget is
// spent. Returns the waypoints actually taken.
func (e *Entity) Move(path []grid.Point) []grid.Point {
	var taken []grid.Point
	for _, p := range path {
		if e.RemainingMovement() <= 0 {
			break
		}
		from := e.Position
		e.emit(events.Event{Kind: events.EntityBeforeMove, From: from, To: p})
		e.Position = p
		e.MovementSpent++
		taken = append(taken, p)
		e.emit(events.Event{Kind: events.EntityAfterMove, From: from, To: p})
	}
	return taken
}

// --- combat ---

// CheckAttack explains why the entity may not attack target, or returns nil.
// Both the attacker's and the target's gates must agree.
func (e *Entity) CheckAttack(target *Entity) error {
	switch {
	case e.destroyed || target == nil || target.destroyed:
		return ErrDestroyed
	case e.ActionsTaken >= MaxActions:
		return ErrActionTaken
	case !e.bf.Map().CanAttackAt(e.Position, target.Position):
		return ErrOutOfRange
	case !e.IsEnemy(target):
		return ErrNotEnemy
	case !e.gates[CanAttack].Value(true, Context{Entity: e, Other: target}):
		return ErrAttackVetoed
	case !target.CanBeAttacked(e):
		return ErrUntargetable
	}
	return nil
}

// CanAttack reports whether CheckAttack passes.
func (e *Entity) CanAttack(target *Entity) bool {
	return e.CheckAttack(target) == nil
}

// CanBeAttacked asks the entity's own gate whether source may attack it.
func (e *Entity) CanBeAttacked(source *Entity) bool {
	return e.gates[CanBeAttacked].Value(true, Context{Entity: e, Other: source})
}

// PerformAttack deals the attack stat to target and consumes the action.
// Returns the damage actually taken.
func (e *Entity) PerformAttack(target *Entity) int {
	return e.DealDamage(e.Attack(), target, true)
}

// DealDamage applies amount to target with e as the source. When
// consumeAction is true the entity's action for the turn is spent.
func (e *Entity) DealDamage(amount int, target *Entity, consumeAction bool) int {
	if consumeAction {
		e.ActionsTaken++
	}
	e.emit(events.Event{Kind: events.EntityBeforeDealDamage, OtherID: target.ID, Amount: amount})
	taken := target.TakeDamage(amount, e)
	e.emit(events.Event{Kind: events.EntityAfterDealDamage, OtherID: target.ID, Amount: taken})
	return taken
}

// TakeDamage runs amount through the damage-taken chain, subtracts it from
// HP and destroys the entity at 0. Returns the damage applied.
func (e *Entity) TakeDamage(amount int, source *Entity) int {
	if e.destroyed {
		return 0
	}
	adjusted := e.stats[DamageTaken].Value(amount, Context{Entity: e, Other: source, Amount: amount})
	if adjusted < 0 {
		adjusted = 0
	}
	srcID := 0
	if source != nil {
		srcID = source.ID
	}
	e.emit(events.Event{Kind: events.EntityBeforeTakeDamage, OtherID: srcID, Amount: adjusted})
	e.hp = clamp(e.HP()-adjusted, 0, e.MaxHP())
	e.emit(events.Event{Kind: events.EntityAfterTakeDamage, OtherID: srcID, Amount: adjusted})
	if e.hp == 0 {
		e.destroy()
	}
	return adjusted
}

// Heal restores up to amount HP. Returns the HP actually gained.
func (e *Entity) Heal(amount int) int {
	if e.destroyed || amount <= 0 {
		return 0
	}
	before := e.HP()
	e.hp = clamp(before+amount, 0, e.MaxHP())
	return e.hp - before
}

func (e *Entity) destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.bf.RemoveEntity(e)
	e.emit(events.Event{Kind: events.EntityDestroyed})
}

// --- skills ---

// CheckSkill explains why skill cannot be used on targets, or returns nil.
func (e *Entity) CheckSkill(skill *Skill, targets []grid.Point) error {
	switch {
	case e.destroyed:
		return ErrDestroyed
	case e.ActionsTaken >= MaxActions:
		return ErrActionTaken
	case e.ap < skill.APCost:
		return ErrNotEnoughAP
	case len(targets) < skill.MinTargets || len(targets) > skill.MaxTargets:
		return ErrTargetCount
	}
	for i, t := range targets {
		if e.bf.Map().CellAt(t) == nil {
			return ErrInvalidTarget
		}
		if skill.IsTargetable != nil && !skill.IsTargetable(e.bf, e, t, targets[:i]) {
			return ErrInvalidTarget
		}
	}
	if !e.gates[CanUseSkill].Value(true, Context{Entity: e, Skill: skill}) {
		return ErrSkillPrevented
	}
	return nil
}

// CanUseSkill reports whether CheckSkill passes.
func (e *Entity) CanUseSkill(skill *Skill, targets []grid.Point) bool {
	return e.CheckSkill(skill, targets) == nil
}

// UseSkill spends the AP cost, consumes the action and returns the affected
// cells with the effects the skill produced for them.
func (e *Entity) UseSkill(skill *Skill, targets []grid.Point) ([]grid.Point, []types.Effect) {
	e.ap -= skill.APCost
	e.ActionsTaken++
	cells := skill.AffectedCells(e.bf, e, targets)
	if skill.Effect == nil {
		return cells, nil
	}
	return cells, skill.Effect(e.bf, e, targets, cells)
}

// --- snapshot ---

// State returns a detached snapshot of the entity.
func (e *Entity) State() types.EntityState {
	st := types.EntityState{
		ID:            e.ID,
		PlayerID:      e.PlayerID,
		BlueprintID:   e.Blueprint.ID,
		Name:          e.Blueprint.Name,
		SpriteID:      e.Blueprint.SpriteID,
		Position:      e.Position,
		HP:            e.HP(),
		MaxHP:         e.MaxHP(),
		AP:            e.ap,
		MaxAP:         e.MaxAP(),
		Attack:        e.Attack(),
		Speed:         e.Speed(),
		Initiative:    e.Initiative(),
		ATB:           e.atb,
		ATBSeed:       e.atbSeed,
		MovementSpent: e.MovementSpent,
		ActionsTaken:  e.ActionsTaken,
	}
	for _, s := range e.Blueprint.Skills {
		st.Skills = append(st.Skills, s.ID)
	}
	for _, m := range e.modifiers {
		st.Modifiers = append(st.Modifiers, m.State())
	}
	return st
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
