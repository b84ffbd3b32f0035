// Package tui is an interactive terminal host for a grid.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tliron/commonlog"

	"github.com/colelawrence/spreadsheet/packages/spreadsheet"
)

var tuiLog = commonlog.GetLogger("livegrid.tui")

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	cursorStyle  = lipgloss.NewStyle().Background(lipgloss.Color("4")).Foreground(lipgloss.Color("15"))
	formulaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const cellWidth = 10

type mode int

const (
	modeNormal mode = iota
	modeEdit
)

// previewMsg carries a preview emitted by the open edit session.
type previewMsg struct {
	session *spreadsheet.EditSession
	preview spreadsheet.Preview
}

// Model is the bubbletea model of the grid UI.
type Model struct {
	grid *spreadsheet.Grid
	snap spreadsheet.Snapshot

	width  int
	height int
	cx, cy int
	err    error

	mode          mode
	session       *spreadsheet.EditSession
	editBuf       string
	preview       spreadsheet.Preview
	cancelPreview func()

	// previews arrive from grid callbacks, which must not block; only the
	// newest undelivered one is kept
	updates chan previewMsg
}

// New returns a model showing g.
func New(g *spreadsheet.Grid) Model {
	return Model{
		grid:    g,
		snap:    g.Snapshot(),
		updates: make(chan previewMsg, 1),
	}
}

// Run shows g until the user quits.
func Run(g *spreadsheet.Grid) error {
	p := tea.NewProgram(New(g), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return m.waitForPreview() }

// waitForPreview delivers the next preview. Exactly one is pending at any
// time: Init starts it and every previewMsg re-arms it.
func (m Model) waitForPreview() tea.Cmd {
	return func() tea.Msg { return <-m.updates }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case previewMsg:
		if m.mode == modeEdit && msg.session == m.session {
			m.preview = msg.preview
		}
		return m, m.waitForPreview()
	case tea.KeyMsg:
		if m.mode == modeEdit {
			return m.updateEdit(msg)
		}
		return m.updateGrid(msg)
	}
	return m, nil
}

// --- Grid (normal) ---

func (m Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols, rows := m.snap.Columns, m.snap.Rows
	col, row := cols[m.cx], rows[m.cy]
	m.err = nil

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		if m.cx > 0 {
			m.cx--
		}
	case "right", "l":
		if m.cx < len(cols)-1 {
			m.cx++
		}
	case "up", "k":
		if m.cy > 0 {
			m.cy--
		}
	case "down", "j":
		if m.cy < len(rows)-1 {
			m.cy++
		}
	case "enter", "e":
		return m.startEdit(col, row)
	case "H":
		if m.cx > 0 {
			m.err = m.grid.MoveColumnBefore(col, cols[m.cx-1])
			m.cx--
		}
	case "L":
		if m.cx < len(cols)-1 {
			m.err = m.grid.MoveColumnAfter(col, cols[m.cx+1])
			m.cx++
		}
	case "K":
		if m.cy > 0 {
			m.err = m.grid.MoveRowBefore(row, rows[m.cy-1])
			m.cy--
		}
	case "J":
		if m.cy < len(rows)-1 {
			m.err = m.grid.MoveRowAfter(row, rows[m.cy+1])
			m.cy++
		}
	case "c":
		_, m.err = m.grid.CopyColumnToAfter(col, col)
	case "C":
		_, m.err = m.grid.CopyRowToAfter(row, row)
	case "i":
		_, m.err = m.grid.InsertColumnBefore(col)
	case "I":
		_, m.err = m.grid.InsertRowBefore(row)
	case "x":
		m.err = m.grid.RemoveColumn(col)
	case "X":
		m.err = m.grid.RemoveRow(row)
	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

// refresh re-reads the grid and keeps the cursor inside it.
func (m *Model) refresh() {
	m.snap = m.grid.Snapshot()
	m.cx = min(m.cx, len(m.snap.Columns)-1)
	m.cy = min(m.cy, len(m.snap.Rows)-1)
	if m.err != nil {
		tuiLog.Errorf("%s", m.err)
	}
}

// --- Edit mode ---

func (m Model) startEdit(col spreadsheet.ColumnID, row spreadsheet.RowID) (tea.Model, tea.Cmd) {
	session, err := m.grid.EditCell(col, row)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.mode = modeEdit
	m.session = session
	m.editBuf = session.Input().Get()
	m.preview = spreadsheet.Preview{}

	updates := m.updates
	m.cancelPreview = session.Preview().Subscribe(func(p spreadsheet.Preview) {
		offer(updates, previewMsg{session: session, preview: p})
	})
	return m, nil
}

// offer puts msg on ch without blocking, replacing a pending message that
// has not been picked up yet.
func offer(ch chan previewMsg, msg previewMsg) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.err = m.session.Apply()
		m.endEdit()
		m.refresh()
		if m.cy < len(m.snap.Rows)-1 {
			m.cy++
		}
		return m, nil
	case "esc":
		m.session.Cancel()
		m.endEdit()
		return m, nil
	case "ctrl+c":
		m.session.Cancel()
		m.endEdit()
		return m, tea.Quit
	case "backspace":
		if r := []rune(m.editBuf); len(r) > 0 {
			m.editBuf = string(r[:len(r)-1])
		}
	default:
		switch msg.Type {
		case tea.KeyRunes:
			m.editBuf += string(msg.Runes)
		case tea.KeySpace:
			m.editBuf += " "
		default:
			return m, nil
		}
	}
	m.err = m.session.UpdateInputText(m.editBuf)
	return m, nil
}

func (m *Model) endEdit() {
	if m.cancelPreview != nil {
		m.cancelPreview()
		m.cancelPreview = nil
	}
	m.mode = modeNormal
	m.session = nil
	m.editBuf = ""
	m.preview = spreadsheet.Preview{}
}

// --- View ---

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" livegrid"))
	b.WriteString("\n")

	// header
	b.WriteString(headerStyle.Render(fit("", 4)))
	for ci := range m.snap.Columns {
		b.WriteString(dimStyle.Render("│"))
		b.WriteString(headerStyle.Render(fit(spreadsheet.ColumnName(ci), cellWidth)))
	}
	b.WriteString("\n")

	for ri, line := range m.snap.Cells {
		b.WriteString(headerStyle.Render(fit(spreadsheet.RowName(ri), 4)))
		for ci, cell := range line {
			b.WriteString(dimStyle.Render("│"))
			text := fit(cellText(cell.View), cellWidth)
			switch {
			case ri == m.cy && ci == m.cx:
				b.WriteString(cursorStyle.Render(text))
			case !cell.View.OK:
				b.WriteString(errorStyle.Render(text))
			case cell.View.Formula:
				b.WriteString(formulaStyle.Render(text))
			default:
				b.WriteString(text)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render(m.status()))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(" error: "+m.err.Error()) + "\n")
	}

	help := " hjkl move  enter edit  HJKL move line  c/C copy  i/I insert  x/X remove  q quit"
	if m.mode == modeEdit {
		help = " enter apply  esc cancel"
	}
	b.WriteString(dimStyle.Render(help))
	return b.String()
}

func (m Model) status() string {
	address := spreadsheet.ColumnName(m.cx) + spreadsheet.RowName(m.cy)
	if m.mode != modeEdit {
		cell := m.snap.Cell(m.cx, m.cy)
		return fmt.Sprintf(" %s  %s%s", address, cell.Input, m.links(cell.Key))
	}
	preview := ""
	if m.preview.Present {
		preview = "  → " + cellText(m.preview.View)
	}
	return fmt.Sprintf(" %s  EDIT  %s_%s", address, m.editBuf, preview)
}

// links summarises the live dependencies of key, e.g. "  reads 2, read by 3".
func (m Model) links(key spreadsheet.CellKey) string {
	precs, err := m.grid.Precedents(key.Column, key.Row)
	if err != nil {
		return ""
	}
	deps, err := m.grid.Dependents(key.Column, key.Row)
	if err != nil {
		return ""
	}
	var parts []string
	if len(precs) > 0 {
		parts = append(parts, fmt.Sprintf("reads %d", len(precs)))
	}
	if len(deps) > 0 {
		parts = append(parts, fmt.Sprintf("read by %d", len(deps)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  " + strings.Join(parts, ", ")
}

func cellText(v spreadsheet.CellView) string {
	if !v.OK {
		return strings.ReplaceAll(v.Short(), "\n", " ")
	}
	return v.Display
}

// fit pads or truncates s to width runes.
func fit(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(r))
}
