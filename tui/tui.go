// Package tui provides a Bubble Tea terminal UI for hot-seat battles.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/isotactics/cli"
)

// rawLine stores an unstyled output line so it can be re-wrapped and
// re-styled when the terminal is resized.
type rawLine struct {
	text    string
	kind    cli.LineKind
	isInput bool
}

// Model is the Bubble Tea model for the battle console.
type Model struct {
	ctx     context.Context
	console *cli.Console

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine

	width     int
	height    int
	ready     bool
	showBoard bool
	quitting  bool
}

// outputMsg carries console output into the Update loop.
type outputMsg struct {
	input string
	lines []cli.Line
}

// New creates a TUI model driving console.
func New(ctx context.Context, console *cli.Console) Model {
	ti := textinput.New()
	ti.Prompt = console.Prompt()
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		ctx:       ctx,
		console:   console,
		input:     ti,
		history:   NewHistory(100),
		showBoard: true,
	}
}

// Run starts the Bubble Tea program.
func Run(ctx context.Context, console *cli.Console) error {
	p := tea.NewProgram(New(ctx, console), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init shows the battle intro.
func (m Model) Init() tea.Cmd {
	intro := m.console.Intro()
	return tea.Batch(textinput.Blink, func() tea.Msg {
		return outputMsg{lines: intro}
	})
}

// Update handles key presses, resizes and console output.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(m.width, 1)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		}
		m.layout()
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "tab":
			m.showBoard = !m.showBoard
			m.layout()
			m.refreshViewport()
			return m, nil

		case "up", "down":
			m.recall(msg.String() == "up")
			return m, nil

		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case outputMsg:
		m = m.appendOutput(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// recall replaces the input with an older (or newer) command. Stepping
// past the newest clears the input.
func (m *Model) recall(older bool) {
	var (
		entry string
		ok    bool
	)
	if older {
		if entry, ok = m.history.Prev(); !ok {
			return
		}
	} else if entry, ok = m.history.Next(); !ok {
		m.history.ResetCursor()
	}
	m.input.SetValue(entry)
	m.input.CursorEnd()
}

// handleEnter sends the submitted line to the console.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if input == "" {
		return m, nil
	}
	m.history.Push(input)
	m.history.ResetCursor()

	prompt := m.input.Prompt
	result := m.console.Step(m.ctx, input)
	m.input.Prompt = m.console.Prompt()
	m = m.appendOutput(outputMsg{input: prompt + input, lines: result.Lines})
	m.layout()
	m.refreshViewport()
	if result.Quit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// appendOutput adds lines to the log.
func (m Model) appendOutput(msg outputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: msg.input, isInput: true})
	}
	for _, l := range msg.lines {
		m.rawLines = append(m.rawLines, rawLine{text: l.Text, kind: l.Kind})
	}
	m.rawLines = append(m.rawLines, rawLine{})
	m.refreshViewport()
	return m
}

// boardPane renders the live battlefield.
func (m Model) boardPane() string {
	return styleBoard.Render(cli.Board(m.console.Session, nil))
}

// layout sizes the viewport to what the board, status bar and input
// leave over.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	h := m.height - 2
	if m.showBoard {
		h -= lipgloss.Height(m.boardPane())
	}
	if h < 1 {
		h = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
}

// refreshViewport re-wraps and re-styles the log at the current width.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		switch {
		case rl.text == "":
			styled = append(styled, "")
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wordWrap(rl.text, width)))
		case rl.kind == cli.LineBlock:
			styled = append(styled, rl.text)
		default:
			styled = append(styled, renderLine(wordWrap(rl.text, width), rl.kind))
		}
	}
	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text at word boundaries to fit width.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		wLen := len(word)
		switch {
		case i == 0:
			lineLen = wLen
		case lineLen+1+wLen > width:
			result.WriteString("\n")
			lineLen = wLen
		default:
			result.WriteString(" ")
			lineLen += 1 + wLen
		}
		result.WriteString(word)
	}
	return result.String()
}

// View renders the board, log, status bar and input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	parts := make([]string, 0, 4)
	if m.showBoard {
		parts = append(parts, m.boardPane())
	}
	parts = append(parts, m.viewport.View(), m.renderStatusBar(), m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// viewportKeyMap disables Up/Down on the viewport; they drive input
// history.
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
