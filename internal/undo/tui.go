package undo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/burl-vcs/burl/internal/eventlog"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true)
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

// ScrubModel is the interactive event-log browser. The user moves a
// cursor through history; at each position the commit graph of that
// moment is shown. Pressing enter selects the position to restore.
type ScrubModel struct {
	ctx      context.Context
	undoer   *Undoer
	replayer *eventlog.Replayer

	cursor     eventlog.Cursor
	graphLines []string
	info       string
	renderErr  error

	// jump mode: the user is typing an absolute event number.
	jumping   bool
	jumpInput string
	jumpErr   string

	selected bool
	quitting bool
}

// NewScrubModel starts at the present moment.
func NewScrubModel(ctx context.Context, undoer *Undoer, replayer *eventlog.Replayer) ScrubModel {
	m := ScrubModel{
		ctx:      ctx,
		undoer:   undoer,
		replayer: replayer,
		cursor:   replayer.DefaultCursor(),
	}
	m.refresh()
	return m
}

// Selection returns the chosen cursor, if the user confirmed one.
func (m ScrubModel) Selection() (eventlog.Cursor, bool) {
	return m.cursor, m.selected
}

func (m *ScrubModel) refresh() {
	lines, err := m.undoer.RenderAtCursor(m.ctx, m.cursor)
	if err != nil {
		m.renderErr = err
		return
	}
	m.renderErr = nil
	m.graphLines = lines

	event, ok := m.replayer.EventBefore(m.cursor)
	if !ok {
		m.info = "There are no previous available events."
		return
	}
	m.info = fmt.Sprintf("Repo after event %d. Press 'q' to quit.\n%s",
		m.cursor.Index, DescribeEvent(m.undoer.Objects, event))
}

func (m ScrubModel) Init() tea.Cmd {
	return nil
}

func (m ScrubModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.jumping {
		return m.updateJump(keyMsg)
	}

	switch keyMsg.String() {
	case "q", "Q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "n", "N", "right":
		m.cursor = m.replayer.AdvanceCursor(m.cursor, 1)
		m.refresh()
	case "p", "P", "left":
		m.cursor = m.replayer.AdvanceCursor(m.cursor, -1)
		m.refresh()
	case "g", "G":
		m.jumping = true
		m.jumpInput = ""
		m.jumpErr = ""
	case "enter":
		m.selected = true
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// updateJump handles keys while the user is entering an event number.
func (m ScrubModel) updateJump(keyMsg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := keyMsg.String(); key {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.jumping = false
		m.jumpInput = ""
		m.jumpErr = ""
	case "enter":
		index, err := strconv.Atoi(m.jumpInput)
		if err != nil {
			m.jumpErr = fmt.Sprintf("invalid event number %q", m.jumpInput)
			m.jumpInput = ""
			return m, nil
		}
		m.jumping = false
		m.jumpInput = ""
		m.jumpErr = ""
		m.cursor = m.replayer.MakeCursor(index)
		m.refresh()
	case "backspace":
		if len(m.jumpInput) > 0 {
			m.jumpInput = m.jumpInput[:len(m.jumpInput)-1]
		}
	default:
		if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
			m.jumpInput += key
		}
	}
	return m, nil
}

func (m ScrubModel) View() string {
	if m.quitting {
		return ""
	}
	if m.renderErr != nil {
		return panelStyle.Render(fmt.Sprintf("error: %v", m.renderErr))
	}

	graphPanel := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Commit graph"),
		panelStyle.Render(strings.Join(m.graphLines, "\n")),
	)
	infoPanel := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Events"),
		panelStyle.Render(m.info),
	)
	help := helpStyle.Render("p/n or left/right: step  g: go to event  enter: restore  q: quit")
	if m.jumping {
		prompt := "Go to event: " + m.jumpInput
		if m.jumpErr != "" {
			prompt += "  (" + m.jumpErr + ")"
		}
		help = helpStyle.Render(prompt + "  enter: jump  esc: cancel")
	}
	return lipgloss.JoinVertical(lipgloss.Left, graphPanel, infoPanel, help)
}

// Scrub runs the interactive browser and returns the cursor the user
// selected, if any.
func Scrub(ctx context.Context, undoer *Undoer, replayer *eventlog.Replayer) (eventlog.Cursor, bool, error) {
	model := NewScrubModel(ctx, undoer, replayer)
	program := tea.NewProgram(model)
	final, err := program.Run()
	if err != nil {
		return eventlog.Cursor{}, false, fmt.Errorf("failed to run undo browser: %w", err)
	}
	result, ok := final.(ScrubModel)
	if !ok {
		return eventlog.Cursor{}, false, nil
	}
	cursor, selected := result.Selection()
	return cursor, selected, nil
}
