package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/isotactics/engine/unit"
	"github.com/nathoo/isotactics/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Known effect types.
var validEffectTypes = map[string]bool{
	"damage":          true,
	"heal":            true,
	"add_modifier":    true,
	"remove_modifier": true,
	"teleport":        true,
	"say":             true,
	"stop":            true,
}

// Known condition types.
var validConditionTypes = map[string]bool{
	"enemy":        true,
	"ally":         true,
	"self":         true,
	"occupied":     true,
	"empty":        true,
	"walkable":     true,
	"in_melee":     true,
	"within_range": true,
	"is_target":    true,
	"not_chosen":   true,
	"near_target":  true,
	"has_keyword":  true,
	"not":          true,
}

var validTargets = map[string]bool{
	"": true, "caster": true, "self": true, "entity": true, "targets": true, "affected": true,
}

var statOps = map[string]bool{"add": true, "mul_pct": true, "set": true}

var gateOps = map[string]bool{"deny": true, "allow": true}

// validate checks the compiled content for referential integrity and
// consistency. Warnings never fail a load.
func validate(c types.Content) ([]string, error) {
	ve := &ValidationError{}

	if c.Title == "" {
		ve.errorf("Game.title is required")
	}
	if len(c.Blueprints) == 0 {
		ve.errorf("at least one Character is required")
	}

	modifiers := map[string]bool{}
	for _, md := range c.Modifiers {
		if modifiers[md.ID] {
			ve.errorf("duplicate modifier %q", md.ID)
		}
		modifiers[md.ID] = true
		if md.Duration < 0 {
			ve.errorf("modifier %q: negative duration", md.ID)
		}
		for _, ic := range md.Intercepts {
			_, isStat := unit.ParseStat(ic.Stat)
			_, isGate := unit.ParseGate(ic.Stat)
			switch {
			case isStat:
				if !statOps[ic.Op] {
					ve.errorf("modifier %q: op %q is not valid for stat %q", md.ID, ic.Op, ic.Stat)
				}
			case isGate:
				if !gateOps[ic.Op] {
					ve.errorf("modifier %q: op %q is not valid for gate %q", md.ID, ic.Op, ic.Stat)
				}
			default:
				ve.errorf("modifier %q: unknown stat %q", md.ID, ic.Stat)
			}
		}
		if len(md.Intercepts) == 0 && len(md.OnTurnStart) == 0 {
			ve.warnf("modifier %q has no intercepts and no turn-start effects", md.ID)
		}
	}

	skills := map[string]bool{}
	usedSkills := map[string]bool{}
	usedModifiers := map[string]bool{}
	for _, md := range c.Modifiers {
		validateEffects("modifier "+md.ID, md.OnTurnStart, modifiers, usedModifiers, ve)
	}
	for _, sd := range c.Skills {
		where := "skill " + sd.ID
		if skills[sd.ID] {
			ve.errorf("duplicate skill %q", sd.ID)
		}
		skills[sd.ID] = true
		if sd.APCost < 0 {
			ve.errorf("%s: negative ap_cost", where)
		}
		if sd.MinTargets < 0 || sd.MaxTargets < sd.MinTargets {
			ve.errorf("%s: invalid target counts %d..%d", where, sd.MinTargets, sd.MaxTargets)
		}
		validateConditions(where, sd.Targeting, ve)
		validateConditions(where, sd.Area, ve)
		validateEffects(where, sd.Effects, modifiers, usedModifiers, ve)
		if len(sd.Effects) == 0 {
			ve.warnf("%s has no effects", where)
		}
	}

	characters := map[string]bool{}
	for _, bd := range c.Blueprints {
		where := "character " + bd.ID
		if characters[bd.ID] {
			ve.errorf("duplicate character %q", bd.ID)
		}
		characters[bd.ID] = true
		if bd.MaxHP <= 0 {
			ve.errorf("%s: hp must be positive", where)
		}
		if bd.MaxAP < 0 || bd.Attack < 0 || bd.Speed < 0 {
			ve.errorf("%s: ap, attack and speed must not be negative", where)
		}
		if bd.Initiative <= 0 {
			ve.errorf("%s: initiative must be positive", where)
		}
		for _, sid := range bd.Skills {
			if !skills[sid] {
				ve.errorf("%s references undefined skill %q", where, sid)
			}
			usedSkills[sid] = true
		}
	}

	for _, sd := range c.Skills {
		if !usedSkills[sd.ID] {
			ve.warnf("skill %q is not used by any character", sd.ID)
		}
	}
	for _, md := range c.Modifiers {
		if !usedModifiers[md.ID] {
			ve.warnf("modifier %q is never applied", md.ID)
		}
	}

	if len(ve.Errors) > 0 {
		return ve.Warnings, ve
	}
	return ve.Warnings, nil
}

func validateConditions(where string, conditions []types.Condition, ve *ValidationError) {
	for _, cond := range conditions {
		if !validConditionTypes[cond.Type] {
			ve.errorf("%s: unknown condition type %q", where, cond.Type)
			continue
		}
		switch cond.Type {
		case "within_range":
			if _, ok := cond.Params["max"]; !ok {
				ve.errorf("%s: within_range needs a max", where)
			}
		case "has_keyword":
			if kw, _ := cond.Params["keyword"].(string); kw == "" {
				ve.errorf("%s: has_keyword needs a keyword", where)
			}
		case "not":
			if cond.Inner == nil {
				ve.errorf("%s: Not() needs a condition", where)
			} else {
				validateConditions(where, []types.Condition{*cond.Inner}, ve)
			}
		}
	}
}

func validateEffects(where string, effects []types.Effect, modifiers, used map[string]bool, ve *ValidationError) {
	for _, eff := range effects {
		if !validEffectTypes[eff.Type] {
			ve.errorf("%s: unknown effect type %q", where, eff.Type)
			continue
		}
		if target, _ := eff.Params["target"].(string); !validTargets[target] {
			ve.errorf("%s: effect %s has unknown target %q", where, eff.Type, target)
		}
		switch eff.Type {
		case "add_modifier", "remove_modifier":
			id, _ := eff.Params["modifier"].(string)
			if !modifiers[id] {
				ve.errorf("%s: effect %s references undefined modifier %q", where, eff.Type, id)
			}
			used[id] = true
		}
	}
}
