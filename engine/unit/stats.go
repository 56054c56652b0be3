package unit

import "fmt"

// Stat names an interceptable numeric value.
type Stat int

const (
	Attack Stat = iota
	Speed
	Initiative
	MaxHP
	MaxAP
	DamageTaken
	numStats
)

// Gate names an interceptable permission.
type Gate int

const (
	CanMove Gate = iota
	CanAttack
	CanBeAttacked
	CanUseSkill
	numGates
)

var statNames = [numStats]string{"attack", "speed", "initiative", "max_hp", "max_ap", "damage_taken"}

var gateNames = [numGates]string{"can_move", "can_attack", "can_be_attacked", "can_use_skill"}

func (s Stat) String() string {
	if s >= 0 && s < numStats {
		return statNames[s]
	}
	return fmt.Sprintf("Stat(%d)", int(s))
}

func (g Gate) String() string {
	if g >= 0 && g < numGates {
		return gateNames[g]
	}
	return fmt.Sprintf("Gate(%d)", int(g))
}

// ParseStat resolves a stat name as used in content files.
func ParseStat(name string) (Stat, bool) {
	for i, n := range statNames {
		if n == name {
			return Stat(i), true
		}
	}
	return 0, false
}

// ParseGate resolves a gate name as used in content files.
func ParseGate(name string) (Gate, bool) {
	for i, n := range gateNames {
		if n == name {
			return Gate(i), true
		}
	}
	return 0, false
}

// Context is passed to every interceptor. Entity is the owner of the chain;
// Other is the counterpart (attack target, damage source) when there is one.
type Context struct {
	Entity *Entity
	Other  *Entity
	Skill  *Skill
	Amount int
}
