package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/engine/unit"
	"github.com/nathoo/isotactics/types"
)

// Board glyphs. Entities are drawn with the first letter of their name,
// upper case for the first player and lower case for the others.
var terrainGlyph = map[string]rune{
	"grass": '.',
	"sand":  ':',
	"stone": '^',
	"water": '~',
	"wall":  '#',
	"void":  'x',
}

const (
	glyphObstacle  = 'o'
	glyphReachable = '*'
	glyphUnknown   = '?'
)

// EntityName is the display name used in narration: "Knight #1".
func EntityName(e *unit.Entity) string {
	return fmt.Sprintf("%s #%d", e.Blueprint.Name, e.ID)
}

// Board draws every level of the map as text. Cells in marks are drawn
// as reachable unless something stands on them.
func Board(s *engine.Session, marks []types.Point) string {
	def := s.Map().Def()
	marked := make(map[types.Point]bool, len(marks))
	for _, p := range marks {
		marked[p] = true
	}
	slots := map[string]int{}
	for _, p := range s.Players() {
		slots[p.ID] = p.Slot
	}
	pending := map[types.Point]rune{}
	if s.Phase() == engine.PhaseDeploy {
		for _, p := range s.Players() {
			for _, d := range p.Deployment {
				pending[d.Position] = unitGlyph(d.CharacterID, p.Slot)
			}
		}
	}

	var b strings.Builder
	for z := 0; z < def.Levels; z++ {
		if def.Levels > 1 {
			fmt.Fprintf(&b, "level %d\n", z)
		}
		b.WriteString("   ")
		for x := 0; x < def.Width; x++ {
			fmt.Fprintf(&b, "%d", x%10)
		}
		b.WriteByte('\n')
		for y := 0; y < def.Height; y++ {
			fmt.Fprintf(&b, "%2d ", y)
			for x := 0; x < def.Width; x++ {
				b.WriteRune(cellGlyph(s, types.Point{X: x, Y: y, Z: z}, marked, pending, slots))
			}
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func cellGlyph(s *engine.Session, p types.Point, marked map[types.Point]bool, pending map[types.Point]rune, slots map[string]int) rune {
	c := s.Map().CellAt(p)
	if c == nil {
		return ' '
	}
	if e := s.EntityAt(p); e != nil {
		return unitGlyph(e.Blueprint.Name, slots[e.PlayerID])
	}
	if g, ok := pending[p]; ok {
		return g
	}
	if s.ObstacleAt(p) {
		return glyphObstacle
	}
	if marked[p] {
		return glyphReachable
	}
	if g, ok := terrainGlyph[c.Terrain]; ok {
		return g
	}
	return glyphUnknown
}

func unitGlyph(name string, slot int) rune {
	if name == "" {
		return glyphUnknown
	}
	r := []rune(name)[0]
	if slot == 0 {
		return []rune(strings.ToUpper(string(r)))[0]
	}
	return []rune(strings.ToLower(string(r)))[0]
}

// UnitsTable lists the live entities.
func UnitsTable(s *engine.Session) string {
	active := s.Active()
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"", "ID", "Unit", "Player", "Pos", "HP", "AP", "Move", "ATB", "Modifiers"})
	for _, e := range s.Entities() {
		marker := ""
		if e == active {
			marker = ">"
		}
		tw.AppendRow(table.Row{
			marker,
			e.ID,
			e.Blueprint.Name,
			e.PlayerID,
			pointString(e.Position),
			fmt.Sprintf("%d/%d", e.HP(), e.MaxHP()),
			fmt.Sprintf("%d/%d", e.AP(), e.MaxAP()),
			e.RemainingMovement(),
			fmt.Sprintf("%.0f", e.ATB()),
			modifierList(e),
		})
	}
	tw.SetStyle(table.StyleLight)
	return tw.Render()
}

// RosterTable lists each player's roster and deployment during deployment.
func RosterTable(s *engine.Session) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Player", "Slot", "Roster", "Deployed"})
	for _, p := range s.Players() {
		deployed := "no"
		if p.Deployed() {
			var cells []string
			for _, d := range p.Deployment {
				cells = append(cells, d.CharacterID+"@"+pointString(d.Position))
			}
			deployed = strings.Join(cells, " ")
		}
		tw.AppendRow(table.Row{p.Name, p.Slot + 1, strings.Join(p.Roster, ", "), deployed})
	}
	tw.SetStyle(table.StyleLight)
	return tw.Render()
}

// TimelineTable shows the forecast turn order.
func TimelineTable(s *engine.Session) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"#", "Unit", "Player"})
	for i, e := range s.Timeline() {
		tw.AppendRow(table.Row{i + 1, EntityName(e), e.PlayerID})
	}
	tw.SetStyle(table.StyleLight)
	return tw.Render()
}

// EntityDetail describes one entity: stats, skills and modifiers.
func EntityDetail(e *unit.Entity) string {
	tw := table.NewWriter()
	tw.SetTitle(EntityName(e))
	tw.AppendRows([]table.Row{
		{"Player", e.PlayerID},
		{"Position", pointString(e.Position)},
		{"HP", fmt.Sprintf("%d/%d", e.HP(), e.MaxHP())},
		{"AP", fmt.Sprintf("%d/%d", e.AP(), e.MaxAP())},
		{"Attack", e.Attack()},
		{"Speed", e.Speed()},
		{"Initiative", e.Initiative()},
		{"Moved", e.MovementSpent},
		{"Actions", e.ActionsTaken},
	})
	for _, sk := range e.Blueprint.Skills {
		tw.AppendRow(table.Row{"Skill", fmt.Sprintf("%s (%s) %d AP, %s targets", sk.Name, sk.ID, sk.APCost, targetRange(sk))})
	}
	for _, m := range e.Modifiers() {
		tw.AppendRow(table.Row{"Modifier", modifierLabel(m)})
	}
	tw.SetStyle(table.StyleLight)
	return tw.Render()
}

// GlossaryTable lists the keyword glossary alphabetically.
func GlossaryTable() string {
	ids := make([]string, 0, len(unit.Keywords))
	for id := range unit.Keywords {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Keyword", "Meaning"})
	for _, id := range ids {
		k := unit.Keywords[id]
		tw.AppendRow(table.Row{k.Name, k.Description})
	}
	tw.SetStyle(table.StyleLight)
	return tw.Render()
}

func targetRange(sk *unit.Skill) string {
	if sk.MinTargets == sk.MaxTargets {
		return fmt.Sprintf("%d", sk.MinTargets)
	}
	return fmt.Sprintf("%d-%d", sk.MinTargets, sk.MaxTargets)
}

func modifierList(e *unit.Entity) string {
	var out []string
	for _, m := range e.Modifiers() {
		out = append(out, modifierLabel(m))
	}
	return strings.Join(out, ", ")
}

func modifierLabel(m *unit.Modifier) string {
	st := m.State()
	label := st.Name
	if st.Stackable && st.Stacks > 1 {
		label = fmt.Sprintf("%s x%d", label, st.Stacks)
	}
	if st.Remaining > 0 {
		label = fmt.Sprintf("%s (%d)", label, st.Remaining)
	}
	return label
}

func pointString(p types.Point) string {
	return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z)
}
