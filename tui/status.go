package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/isotactics/cli"
	"github.com/nathoo/isotactics/engine"
)

// timelinePreview is how many upcoming turns the status bar shows.
const timelinePreview = 4

// statusText builds the left and right halves of the status bar.
func (m Model) statusText() (left, right string) {
	s := m.console.Session
	if winner, ok := s.Winner(); ok {
		name := winner
		if p := s.Player(winner); p != nil && p.Name != "" {
			name = p.Name
		}
		return fmt.Sprintf(" %s wins", name), fmt.Sprintf("Actions: %d ", len(s.History()))
	}

	if s.Phase() == engine.PhaseDeploy {
		left = " Deploy"
		if p := m.console.CurrentPlayer(); p != nil {
			left += fmt.Sprintf(" | %s to place %d units", p.Name, len(p.Roster))
		}
		return left, fmt.Sprintf("Actions: %d ", len(s.History()))
	}

	left = " Battle"
	if e := s.Active(); e != nil {
		owner := e.PlayerID
		if p := s.Player(e.PlayerID); p != nil && p.Name != "" {
			owner = p.Name
		}
		left += fmt.Sprintf(" | %s (%s) HP %d/%d AP %d/%d Move %d",
			cli.EntityName(e), owner, e.HP(), e.MaxHP(), e.AP(), e.MaxAP(), e.RemainingMovement())
	}
	var next []string
	for i, e := range s.Timeline() {
		if i == timelinePreview {
			break
		}
		next = append(next, fmt.Sprintf("#%d", e.ID))
	}
	right = fmt.Sprintf("Next: %s ", strings.Join(next, " "))
	return left, right
}

// renderStatusBar produces a full-width inverted status line.
func (m Model) renderStatusBar() string {
	left, right := m.statusText()
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	style := styleStatusBar
	if _, ok := m.console.Session.Winner(); ok {
		style = styleStatusWinner
	}
	return style.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
