package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/colelawrence/spreadsheet/packages/spreadsheet"
)

func newModel(t *testing.T, cols, rows int, opts ...spreadsheet.Option) Model {
	t.Helper()
	g, err := spreadsheet.New(spreadsheet.Size{Rows: rows, Cols: cols}, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return New(g)
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		m = press(m, string(r))
	}
	return m
}

func cellView(t *testing.T, m Model, col, row int) spreadsheet.CellView {
	t.Helper()
	return m.grid.Snapshot().Cell(col, row).View
}

func TestEditAndApply(t *testing.T) {
	m := newModel(t, 2, 2)
	m = press(m, "enter")
	if m.mode != modeEdit {
		t.Fatal("enter did not open an edit session")
	}
	m = typeText(m, "=1+2")
	m = press(m, "enter")

	if m.mode != modeNormal || m.cy != 1 {
		t.Errorf("after apply mode=%v cy=%d, want normal mode on the next row", m.mode, m.cy)
	}
	if v := cellView(t, m, 0, 0); v.Value != 3.0 {
		t.Errorf("A1 = %+v, want 3", v)
	}
	if !strings.Contains(m.View(), "3") {
		t.Errorf("view does not show the result:\n%s", m.View())
	}
}

func TestEditCancel(t *testing.T) {
	m := newModel(t, 1, 1)
	m = press(m, "enter")
	m = typeText(m, "42")
	m = press(m, "backspace", "esc")

	if m.mode != modeNormal {
		t.Error("esc did not leave edit mode")
	}
	if v := cellView(t, m, 0, 0); v.Display != "" {
		t.Errorf("A1 = %+v, want untouched", v)
	}
}

func TestStructuralKeys(t *testing.T) {
	m := newModel(t, 2, 1)
	m = press(m, "enter")
	m = typeText(m, "7")
	m = press(m, "enter")

	// A1 holds 7; move it right, then copy it
	m = press(m, "L")
	if m.cx != 1 {
		t.Errorf("cursor at column %d, want it to follow the moved column", m.cx)
	}
	if v := cellView(t, m, 1, 0); v.Value != 7.0 {
		t.Errorf("B1 = %+v, want 7", v)
	}
	m = press(m, "c")
	if len(m.snap.Columns) != 3 {
		t.Fatalf("copy left %d columns, want 3", len(m.snap.Columns))
	}
	if v := cellView(t, m, 2, 0); v.Value != 7.0 {
		t.Errorf("C1 = %+v, want the copied 7", v)
	}

	m = press(m, "x", "x", "x")
	if len(m.snap.Columns) != 1 || m.err == nil {
		t.Errorf("removing every column left %d columns, err %v", len(m.snap.Columns), m.err)
	}
}

func TestPreview(t *testing.T) {
	m := newModel(t, 1, 1, spreadsheet.WithDebounce(time.Millisecond))
	m = press(m, "enter")
	m = typeText(m, "=6*7")

	deadline := time.After(5 * time.Second)
	// earlier keystrokes may preview first; wait for the full text
	for !m.preview.Present || m.preview.View.Value != 42.0 {
		select {
		case msg := <-m.updates:
			next, _ := m.Update(msg)
			m = next.(Model)
		case <-deadline:
			t.Fatal("no preview within 5s")
		}
	}
	if !strings.Contains(m.View(), "→ 42") {
		t.Errorf("status line does not show the preview:\n%s", m.View())
	}
	press(m, "esc")
}

func TestOfferKeepsNewest(t *testing.T) {
	ch := make(chan previewMsg, 1)
	for i := 1; i <= 3; i++ {
		offer(ch, previewMsg{preview: spreadsheet.Preview{
			Present: true,
			View:    spreadsheet.CellView{OK: true, Value: float64(i)},
		}})
	}
	select {
	case msg := <-ch:
		if msg.preview.View.Value != 3.0 {
			t.Errorf("pending preview = %v, want the newest (3)", msg.preview.View.Value)
		}
	default:
		t.Fatal("no preview pending")
	}
	select {
	case msg := <-ch:
		t.Errorf("stale preview %v still pending", msg.preview.View.Value)
	default:
	}
}

func TestStatusShowsLinks(t *testing.T) {
	m := newModel(t, 2, 2)
	m = press(m, "enter")
	m = typeText(m, "1")
	m = press(m, "enter", "l", "k", "enter")
	m = typeText(m, "=A1")
	m = press(m, "enter")

	if got := cellView(t, m, 1, 0); got.Value != 1.0 {
		t.Fatalf("B1 = %+v, want 1", got)
	}

	m = press(m, "h", "k")
	if got := m.status(); !strings.Contains(got, "read by 1") {
		t.Errorf("status of A1 = %q, want it read by B1", got)
	}
	m = press(m, "l")
	if got := m.status(); !strings.Contains(got, "reads 1") {
		t.Errorf("status of B1 = %q, want it reading A1", got)
	}
}
