// Package loader loads Lua content and YAML scenarios into Go structs at
// startup. The Lua VM is discarded after loading; zero Lua at runtime.
package loader

import (
	"sort"

	"github.com/nathoo/isotactics/types"
	lua "github.com/yuin/gopher-lua"
)

// raw holds a constructor table before compilation.
type raw struct {
	id    string
	table *lua.LTable
	order int
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStrings returns the array part of a table field as strings.
func getStrings(tbl *lua.LTable, key string) []string {
	arr := getTable(tbl, key)
	if arr == nil {
		return nil
	}
	var out []string
	for i := 1; i <= arr.MaxN(); i++ {
		if s, ok := arr.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Check if it's an array (sequential integer keys starting at 1).
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// arrayTables returns the table elements of an array in index order.
func arrayTables(tbl *lua.LTable) []*lua.LTable {
	if tbl == nil {
		return nil
	}
	var out []*lua.LTable
	for i := 1; i <= tbl.MaxN(); i++ {
		if t, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			out = append(out, t)
		}
	}
	return out
}

// compile converts all collected Lua data into a Content record. Each kind
// keeps declaration order.
func compile(coll *collector) types.Content {
	content := types.Content{}
	if coll.game != nil {
		content.Title = getString(coll.game, "title")
	}

	byOrder := func(rs []raw) []raw {
		sorted := append([]raw(nil), rs...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].order < sorted[j].order })
		return sorted
	}
	for _, r := range byOrder(coll.modifiers) {
		content.Modifiers = append(content.Modifiers, compileModifier(r))
	}
	for _, r := range byOrder(coll.skills) {
		content.Skills = append(content.Skills, compileSkill(r))
	}
	for _, r := range byOrder(coll.characters) {
		content.Blueprints = append(content.Blueprints, compileCharacter(r))
	}
	return content
}

func compileCharacter(r raw) types.BlueprintDef {
	tbl := r.table
	bd := types.BlueprintDef{
		ID:         r.id,
		Name:       getString(tbl, "name"),
		SpriteID:   getString(tbl, "sprite"),
		MaxHP:      getInt(tbl, "hp"),
		MaxAP:      getInt(tbl, "ap"),
		Attack:     getInt(tbl, "attack"),
		Speed:      getInt(tbl, "speed"),
		Initiative: getInt(tbl, "initiative"),
		Skills:     getStrings(tbl, "skills"),
	}
	if bd.Name == "" {
		bd.Name = r.id
	}
	if bd.SpriteID == "" {
		bd.SpriteID = r.id
	}
	return bd
}

func compileSkill(r raw) types.SkillDef {
	tbl := r.table
	sd := types.SkillDef{
		ID:         r.id,
		Name:       getString(tbl, "name"),
		IconID:     getString(tbl, "icon"),
		APCost:     getInt(tbl, "ap_cost"),
		MinTargets: getInt(tbl, "min_targets"),
		MaxTargets: getInt(tbl, "max_targets"),
		Keywords:   getStrings(tbl, "keywords"),
		Targeting:  compileConditions(getTable(tbl, "targeting")),
		Area:       compileConditions(getTable(tbl, "area")),
		Effects:    compileEffects(getTable(tbl, "effects")),
	}
	if sd.Name == "" {
		sd.Name = r.id
	}
	// A single target is the common case.
	if tbl.RawGetString("max_targets") == lua.LNil && tbl.RawGetString("min_targets") == lua.LNil {
		sd.MinTargets, sd.MaxTargets = 1, 1
	}
	return sd
}

func compileModifier(r raw) types.ModifierDef {
	tbl := r.table
	md := types.ModifierDef{
		ID:          r.id,
		Name:        getString(tbl, "name"),
		IconID:      getString(tbl, "icon"),
		Keywords:    getStrings(tbl, "keywords"),
		Stackable:   getBool(tbl, "stackable", false),
		Duration:    getInt(tbl, "duration"),
		OnTurnStart: compileEffects(getTable(tbl, "on_turn_start")),
	}
	if md.Name == "" {
		md.Name = r.id
	}
	for _, it := range arrayTables(getTable(tbl, "intercepts")) {
		md.Intercepts = append(md.Intercepts, types.InterceptDef{
			Stat:     getString(it, "stat"),
			Op:       getString(it, "op"),
			Value:    getInt(it, "value"),
			PerStack: getBool(it, "per_stack", false),
			Final:    getBool(it, "final", false),
		})
	}
	return md
}

func compileConditions(tbl *lua.LTable) []types.Condition {
	var conditions []types.Condition
	for _, ct := range arrayTables(tbl) {
		conditions = append(conditions, compileCondition(ct))
	}
	return conditions
}

func compileCondition(tbl *lua.LTable) types.Condition {
	condType := getString(tbl, "type")

	if condType == "not" {
		if innerTbl := getTable(tbl, "inner"); innerTbl != nil {
			inner := compileCondition(innerTbl)
			return types.Condition{Type: "not", Inner: &inner}
		}
	}

	return types.Condition{Type: condType, Params: params(tbl)}
}

func compileEffects(tbl *lua.LTable) []types.Effect {
	var effects []types.Effect
	for _, et := range arrayTables(tbl) {
		effects = append(effects, types.Effect{Type: getString(et, "type"), Params: params(et)})
	}
	return effects
}

// params collects every string-keyed field except "type".
func params(tbl *lua.LTable) map[string]any {
	out := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok && string(ks) != "type" {
			out[string(ks)] = toGoValue(v)
		}
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

// sortedLuaFiles returns .lua files with game.lua first and the rest
// sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
