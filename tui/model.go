package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"ghosttab/engine"
	"ghosttab/logger"
	"ghosttab/suggest"
	"ghosttab/text"
)

// Suggestions is the part of the engine the view drives.
type Suggestions interface {
	HandleTransaction(tr text.Transaction)
	Accept() bool
	AcceptWord() bool
	Trigger()
	Cancel() bool
}

var _ Suggestions = (*engine.Engine)(nil)

// RefreshMsg asks the view to redraw after the ghost text changed outside
// of Update.
type RefreshMsg struct{}

const tabWidth = 4

var (
	ghostStyle  = lipgloss.NewStyle().Faint(true).Italic(true)
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	gutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
)

type Model struct {
	editor *Editor
	engine Suggestions
	keys   KeyMap
	help   help.Model

	width, height int
	status        string
}

func NewModel(editor *Editor, eng Suggestions, keys engine.Keys) *Model {
	return &Model{
		editor: editor,
		engine: eng,
		keys:   NewKeyMap(keys),
		help:   help.New(),
		width:  80,
		height: 24,
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
	case RefreshMsg:
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		m.handleKey(msg)
	}
	return m, nil
}

// handleKey runs suggestion keys first; a suggestion key with nothing to
// act on falls through to its editing meaning (Tab still indents).
func (m *Model) handleKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Accept) && m.engine.Accept():
		m.status = "accepted"
		return
	case key.Matches(msg, m.keys.AcceptWord) && m.engine.AcceptWord():
		m.status = "accepted word"
		return
	case key.Matches(msg, m.keys.Trigger):
		m.engine.Trigger()
		m.status = "fetching..."
		return
	case key.Matches(msg, m.keys.Cancel):
		if m.engine.Cancel() {
			m.status = "dismissed"
			return
		}
	}

	var tr text.Transaction
	var err error
	switch {
	case key.Matches(msg, m.keys.Left):
		tr = m.editor.Left()
	case key.Matches(msg, m.keys.Right):
		tr = m.editor.Right()
	case key.Matches(msg, m.keys.Up):
		tr = m.editor.Up()
	case key.Matches(msg, m.keys.Down):
		tr = m.editor.Down()
	case key.Matches(msg, m.keys.Home):
		tr = m.editor.Home()
	case key.Matches(msg, m.keys.End):
		tr = m.editor.End()
	case key.Matches(msg, m.keys.Backspace):
		tr, err = m.editor.Backspace()
	case key.Matches(msg, m.keys.Delete):
		tr, err = m.editor.Delete()
	case key.Matches(msg, m.keys.Enter):
		tr, err = m.editor.Insert("\n")
	case key.Matches(msg, m.keys.Tab):
		tr, err = m.editor.Insert("\t")
	case msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace:
		tr, err = m.editor.Insert(string(msg.Runes))
	default:
		return
	}
	if err != nil {
		logger.Error("tui: edit failed: %v", err)
		return
	}
	m.status = ""
	m.engine.HandleTransaction(tr)
}

func (m *Model) View() string {
	st := m.editor.State()
	ghost := m.editor.Ghost()

	lines := renderLines(st, ghost)

	// keep the cursor line on screen
	bodyHeight := max(m.height-3, 1)
	cursorRow, _ := st.Doc.Position(st.Head)
	cursorIdx := visualIndex(lines, cursorRow)
	start := max(0, cursorIdx-bodyHeight+1)
	end := min(len(lines), start+bodyHeight)

	var b strings.Builder
	b.WriteString(titleStyle.Render("ghosttab demo"))
	b.WriteString("\n")
	for _, l := range lines[start:end] {
		gutter := "   "
		if l.number > 0 {
			gutter = fmt.Sprintf("%3d", l.number)
		}
		row := gutterStyle.Render(gutter) + " " + l.content
		b.WriteString(truncate.String(row, uint(max(m.width, 1))))
		b.WriteString("\n")
	}
	status := m.status
	if status != "" {
		status += "  "
	}
	b.WriteString(statusStyle.Render(status) + m.help.View(m.keys))
	return b.String()
}

type visualLine struct {
	number  int // document line, 0 for virtual ghost lines
	content string
}

func visualIndex(lines []visualLine, row int) int {
	for i, l := range lines {
		if l.number == row {
			return i
		}
	}
	return 0
}

// renderLines draws the document with the cursor and the ghost text: its
// first line inline at the decoration offset, the rest as virtual lines.
func renderLines(st text.State, ghost *suggest.Decoration) []visualLine {
	var out []visualLine
	for n := 1; n <= st.Doc.Lines(); n++ {
		line, _ := st.Doc.Line(n)

		cursorCol, ghostCol := -1, -1
		if st.Head >= line.From && st.Head <= line.To {
			cursorCol = st.Head - line.From
		}
		var inline string
		if ghost != nil && ghost.Line == n && len(ghost.Lines) > 0 {
			ghostCol = ghost.Column
			inline = ghostStyle.Render(expandTabs(ghost.Lines[0]))
		}

		var b strings.Builder
		for i, r := range line.Text {
			if i == ghostCol {
				b.WriteString(inline)
			}
			s := expandTabs(string(r))
			if i == cursorCol {
				s = cursorStyle.Render(s)
			}
			b.WriteString(s)
		}
		if cursorCol == len(line.Text) {
			b.WriteString(cursorStyle.Render(" "))
		}
		if ghostCol == len(line.Text) {
			b.WriteString(inline)
		}
		out = append(out, visualLine{number: n, content: b.String()})

		if ghostCol >= 0 {
			for _, extra := range ghost.Lines[1:] {
				out = append(out, visualLine{content: ghostStyle.Render(expandTabs(extra))})
			}
		}
	}
	return out
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}
