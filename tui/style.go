package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/isotactics/cli"
)

var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleStatusWinner = styleStatusBar.
				Foreground(lipgloss.Color("220"))

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleBoard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleDamage = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	styleDestroyed = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	styleModifier = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141"))

	styleTurn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))
)

// narrationKind refines cli.LineNarration for styling.
type narrationKind int

const (
	kindPlain narrationKind = iota
	kindDamage
	kindDestroyed
	kindModifier
)

// classifyNarration picks a style for one narration line.
func classifyNarration(line string) narrationKind {
	switch {
	case strings.HasSuffix(line, " is destroyed."):
		return kindDestroyed
	case strings.Contains(line, " takes ") && strings.HasSuffix(line, " damage."):
		return kindDamage
	case strings.Contains(line, " gains "), strings.Contains(line, " loses "):
		return kindModifier
	}
	return kindPlain
}

// renderLine styles one console line that has already been wrapped.
func renderLine(text string, kind cli.LineKind) string {
	switch kind {
	case cli.LineTurn:
		return styleTurn.Render(text)
	case cli.LineError:
		return styleError.Render(text)
	case cli.LineSystem:
		if strings.HasPrefix(text, "[trace]") {
			return styleTrace.Render(text)
		}
		return styleSystem.Render("[" + text + "]")
	case cli.LineBlock:
		return text
	}
	switch classifyNarration(text) {
	case kindDamage:
		return styleDamage.Render(text)
	case kindDestroyed:
		return styleDestroyed.Render(text)
	case kindModifier:
		return styleModifier.Render(text)
	}
	return styleNarration.Render(text)
}
