package catalog

import "github.com/nathoo/isotactics/types"

// Default returns the built-in content catalog.
func Default() *Catalog {
	c, err := Build(Builtin())
	if err != nil {
		panic("catalog: built-in content is invalid: " + err.Error())
	}
	return c
}

func cond(t string, params map[string]any) types.Condition {
	return types.Condition{Type: t, Params: params}
}

func not(c types.Condition) types.Condition {
	return types.Condition{Type: "not", Inner: &c}
}

func effect(t string, params map[string]any) types.Effect {
	return types.Effect{Type: t, Params: params}
}

// Builtin returns the definitions behind Default.
func Builtin() types.Content {
	return types.Content{
		Title: "Skirmish",
		Modifiers: []types.ModifierDef{
			{
				ID: "tough", Name: "Tough", Keywords: []string{"tough"}, Stackable: true,
				Intercepts: []types.InterceptDef{{Stat: "damage_taken", Op: "add", Value: -1, PerStack: true}},
			},
			{
				ID: "vulnerable", Name: "Vulnerable", Keywords: []string{"vulnerable"}, Stackable: true, Duration: 2,
				Intercepts: []types.InterceptDef{{Stat: "damage_taken", Op: "add", Value: 1, PerStack: true}},
			},
			{
				ID: "elusive", Name: "Elusive", Keywords: []string{"elusive"}, Duration: 1,
				Intercepts: []types.InterceptDef{{Stat: "can_be_attacked", Op: "deny", Final: true}},
			},
			{
				ID: "rooted", Name: "Rooted", Keywords: []string{"rooted"}, Duration: 1,
				Intercepts: []types.InterceptDef{{Stat: "can_move", Op: "deny", Final: true}},
			},
			{
				ID: "burn", Name: "Burn", Keywords: []string{"burn"}, Stackable: true, Duration: 3,
				OnTurnStart: []types.Effect{effect("damage", map[string]any{"amount": 1, "per_stack": true, "target": "self"})},
			},
			{
				ID: "regeneration", Name: "Regeneration", Keywords: []string{"regeneration"}, Stackable: true, Duration: 3,
				OnTurnStart: []types.Effect{effect("heal", map[string]any{"amount": 1, "per_stack": true, "target": "self"})},
			},
			{
				ID: "haste", Name: "Haste", Keywords: []string{"haste"}, Duration: 2,
				Intercepts: []types.InterceptDef{
					{Stat: "initiative", Op: "mul_pct", Value: 150},
					{Stat: "speed", Op: "add", Value: 1},
				},
			},
		},
		Skills: []types.SkillDef{
			{
				ID: "shield_bash", Name: "Shield Bash", APCost: 2, MinTargets: 1, MaxTargets: 1,
				Targeting: []types.Condition{cond("enemy", nil), cond("in_melee", nil)},
				Effects: []types.Effect{
					effect("damage", map[string]any{"amount": 2, "target": "targets"}),
					effect("add_modifier", map[string]any{"modifier": "rooted", "target": "targets"}),
				},
			},
			{
				ID: "fortify", Name: "Fortify", APCost: 1, MinTargets: 1, MaxTargets: 1,
				Targeting: []types.Condition{cond("self", nil)},
				Effects:   []types.Effect{effect("add_modifier", map[string]any{"modifier": "tough", "target": "caster"})},
			},
			{
				ID: "fire_arrow", Name: "Fire Arrow", APCost: 2, MinTargets: 1, MaxTargets: 1, Keywords: []string{"ranged", "burn"},
				Targeting: []types.Condition{cond("enemy", nil), cond("within_range", map[string]any{"min": 2, "max": 5})},
				Effects: []types.Effect{
					effect("damage", map[string]any{"amount": 2, "target": "targets"}),
					effect("add_modifier", map[string]any{"modifier": "burn", "target": "targets"}),
				},
			},
			{
				ID: "smoke", Name: "Smoke Step", APCost: 1, MinTargets: 0, MaxTargets: 0,
				Effects: []types.Effect{effect("add_modifier", map[string]any{"modifier": "elusive", "target": "caster"})},
			},
			{
				ID: "fireball", Name: "Fireball", APCost: 3, MinTargets: 1, MaxTargets: 1, Keywords: []string{"area", "ranged"},
				Targeting: []types.Condition{cond("within_range", map[string]any{"min": 1, "max": 4})},
				Area:      []types.Condition{cond("near_target", map[string]any{"radius": 1})},
				Effects:   []types.Effect{effect("damage", map[string]any{"amount": 3})},
			},
			{
				ID: "blink", Name: "Blink", APCost: 1, MinTargets: 1, MaxTargets: 1,
				Targeting: []types.Condition{cond("empty", nil), cond("within_range", map[string]any{"min": 1, "max": 3})},
				Effects:   []types.Effect{effect("teleport", map[string]any{"target": "caster"})},
			},
			{
				ID: "mend", Name: "Mend", APCost: 2, MinTargets: 1, MaxTargets: 2,
				Targeting: []types.Condition{cond("ally", nil), cond("within_range", map[string]any{"min": 0, "max": 3}), cond("not_chosen", nil)},
				Effects: []types.Effect{
					effect("heal", map[string]any{"amount": 3, "target": "targets"}),
					effect("add_modifier", map[string]any{"modifier": "regeneration", "target": "targets"}),
				},
			},
			{
				ID: "expose", Name: "Expose", APCost: 1, MinTargets: 1, MaxTargets: 1,
				Targeting: []types.Condition{cond("enemy", nil), cond("within_range", map[string]any{"min": 1, "max": 3}), not(cond("has_keyword", map[string]any{"keyword": "elusive"}))},
				Effects:   []types.Effect{effect("add_modifier", map[string]any{"modifier": "vulnerable", "target": "targets"})},
			},
			{
				ID: "quicken", Name: "Quicken", APCost: 1, MinTargets: 1, MaxTargets: 1,
				Targeting: []types.Condition{cond("ally", nil), cond("within_range", map[string]any{"min": 0, "max": 2})},
				Effects:   []types.Effect{effect("add_modifier", map[string]any{"modifier": "haste", "target": "targets"})},
			},
		},
		Blueprints: []types.BlueprintDef{
			{ID: "knight", Name: "Knight", SpriteID: "knight", MaxHP: 14, MaxAP: 3, Attack: 3, Speed: 3, Initiative: 8, Skills: []string{"shield_bash", "fortify"}},
			{ID: "archer", Name: "Archer", SpriteID: "archer", MaxHP: 9, MaxAP: 3, Attack: 2, Speed: 4, Initiative: 11, Skills: []string{"fire_arrow", "smoke"}},
			{ID: "mage", Name: "Mage", SpriteID: "mage", MaxHP: 8, MaxAP: 4, Attack: 1, Speed: 3, Initiative: 9, Skills: []string{"fireball", "blink", "expose"}},
			{ID: "cleric", Name: "Cleric", SpriteID: "cleric", MaxHP: 10, MaxAP: 3, Attack: 2, Speed: 3, Initiative: 10, Skills: []string{"mend", "quicken"}},
		},
	}
}
