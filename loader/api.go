package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
	registerEffectHelpers(L)
	registerInterceptHelpers(L)
}

// curried returns a constructor used as `Name "id" { ... }`.
func curried(L *lua.LState, add func(id string, tbl *lua.LTable)) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			add(id, L.CheckTable(1))
			return 0
		}))
		return 1
	})
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "..." }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// Character "id" { name = "...", hp = 10, ... }
	L.SetGlobal("Character", curried(L, func(id string, tbl *lua.LTable) {
		coll.characters = append(coll.characters, raw{id: id, table: tbl, order: coll.nextSourceOrder()})
	}))

	// Skill "id" { ap_cost = 2, targeting = {...}, effects = {...} }
	L.SetGlobal("Skill", curried(L, func(id string, tbl *lua.LTable) {
		coll.skills = append(coll.skills, raw{id: id, table: tbl, order: coll.nextSourceOrder()})
	}))

	// Modifier "id" { stackable = true, intercepts = {...} }
	L.SetGlobal("Modifier", curried(L, func(id string, tbl *lua.LTable) {
		coll.modifiers = append(coll.modifiers, raw{id: id, table: tbl, order: coll.nextSourceOrder()})
	}))
}

// marker builds a {type = kind, ...} table from alternating key/value pairs.
func marker(L *lua.LState, kind string, kv ...any) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("type", lua.LString(kind))
	for i := 0; i+1 < len(kv); i += 2 {
		key := kv[i].(string)
		switch v := kv[i+1].(type) {
		case string:
			tbl.RawSetString(key, lua.LString(v))
		case lua.LValue:
			if v != lua.LNil {
				tbl.RawSetString(key, v)
			}
		}
	}
	return tbl
}

// mergeOptions copies string-keyed fields of an optional options table.
func mergeOptions(dst *lua.LTable, opts lua.LValue) {
	src, ok := opts.(*lua.LTable)
	if !ok {
		return
	}
	src.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok && string(ks) != "type" {
			dst.RawSetString(string(ks), v)
		}
	})
}

func registerConditionHelpers(L *lua.LState) {
	// Argument-less predicates: Enemy(), Ally(), Empty(), ...
	simple := map[string]string{
		"Enemy":     "enemy",
		"Ally":      "ally",
		"Self":      "self",
		"Occupied":  "occupied",
		"Empty":     "empty",
		"Walkable":  "walkable",
		"InMelee":   "in_melee",
		"IsTarget":  "is_target",
		"NotChosen": "not_chosen",
	}
	for name, kind := range simple {
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			L.Push(marker(L, kind))
			return 1
		}))
	}

	// WithinRange(min, max)
	L.SetGlobal("WithinRange", L.NewFunction(func(L *lua.LState) int {
		minR := L.CheckNumber(1)
		maxR := L.CheckNumber(2)
		L.Push(marker(L, "within_range", "min", minR, "max", maxR))
		return 1
	}))

	// NearTarget(radius)
	L.SetGlobal("NearTarget", L.NewFunction(func(L *lua.LState) int {
		L.Push(marker(L, "near_target", "radius", L.CheckNumber(1)))
		return 1
	}))

	// HasKeyword("keyword")
	L.SetGlobal("HasKeyword", L.NewFunction(func(L *lua.LState) int {
		L.Push(marker(L, "has_keyword", "keyword", L.CheckString(1)))
		return 1
	}))

	// Not(condition)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		L.Push(marker(L, "not", "inner", L.CheckTable(1)))
		return 1
	}))
}

func registerEffectHelpers(L *lua.LState) {
	// Damage(amount [, target [, opts]])
	L.SetGlobal("Damage", L.NewFunction(func(L *lua.LState) int {
		tbl := marker(L, "damage", "amount", L.CheckNumber(1), "target", L.Get(2))
		mergeOptions(tbl, L.Get(3))
		L.Push(tbl)
		return 1
	}))

	// Heal(amount [, target [, opts]])
	L.SetGlobal("Heal", L.NewFunction(func(L *lua.LState) int {
		tbl := marker(L, "heal", "amount", L.CheckNumber(1), "target", L.Get(2))
		mergeOptions(tbl, L.Get(3))
		L.Push(tbl)
		return 1
	}))

	// AddModifier("id" [, target])
	L.SetGlobal("AddModifier", L.NewFunction(func(L *lua.LState) int {
		L.Push(marker(L, "add_modifier", "modifier", L.CheckString(1), "target", L.Get(2)))
		return 1
	}))

	// RemoveModifier("id" [, target])
	L.SetGlobal("RemoveModifier", L.NewFunction(func(L *lua.LState) int {
		L.Push(marker(L, "remove_modifier", "modifier", L.CheckString(1), "target", L.Get(2)))
		return 1
	}))

	// Teleport([target]) moves the selected entity to the first chosen cell.
	L.SetGlobal("Teleport", L.NewFunction(func(L *lua.LState) int {
		target := L.Get(1)
		if target == lua.LNil {
			target = lua.LString("caster")
		}
		L.Push(marker(L, "teleport", "target", target))
		return 1
	}))

	// Say("text")
	L.SetGlobal("Say", L.NewFunction(func(L *lua.LState) int {
		L.Push(marker(L, "say", "text", L.CheckString(1)))
		return 1
	}))

	// Stop()
	L.SetGlobal("Stop", L.NewFunction(func(L *lua.LState) int {
		L.Push(marker(L, "stop"))
		return 1
	}))
}

func registerInterceptHelpers(L *lua.LState) {
	// Intercept("stat", "op" [, value [, opts]])
	L.SetGlobal("Intercept", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("stat", lua.LString(L.CheckString(1)))
		tbl.RawSetString("op", lua.LString(L.CheckString(2)))
		if v, ok := L.Get(3).(lua.LNumber); ok {
			tbl.RawSetString("value", v)
		}
		mergeOptions(tbl, L.Get(4))
		L.Push(tbl)
		return 1
	}))

	// Deny("gate") vetoes a gate for as long as the modifier is attached.
	L.SetGlobal("Deny", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("stat", lua.LString(L.CheckString(1)))
		tbl.RawSetString("op", lua.LString("deny"))
		tbl.RawSetString("final", lua.LTrue)
		L.Push(tbl)
		return 1
	}))
}
