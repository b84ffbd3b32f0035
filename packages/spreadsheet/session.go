package spreadsheet

import (
	"strings"

	"github.com/tliron/commonlog"
)

var sessionLog = commonlog.GetLogger("livegrid.session")

// Preview is the debounced evaluation of the text being edited. Present is
// false while the text is not a formula or has not been evaluated yet.
type Preview struct {
	View    CellView
	Present bool
}

// EditSession is one interactive edit of a cell. It holds the text being
// typed and a preview of what that text evaluates to. Nothing reaches the
// cell until Apply.
type EditSession struct {
	grid *Grid
	cell *Cell

	input   *Live[string]
	preview *Live[Preview]

	debounce      *debouncer
	cancelPreview func()
	closed        bool
}

func newEditSession(g *Grid, c *Cell) *EditSession {
	s := &EditSession{
		grid:     g,
		cell:     c,
		input:    NewLive(g.binder().InputText(c.props.Get(), c.key)),
		preview:  NewLive(Preview{}),
		debounce: newDebouncer(g.clock, g.debounce),
	}
	s.schedule()
	return s
}

// Input is the live text being edited.
func (s *EditSession) Input() Stream[string] {
	return guard(s.grid, Stream[string](s.input))
}

// Preview is the live debounced preview of Input.
func (s *EditSession) Preview() Stream[Preview] {
	return guard(s.grid, Stream[Preview](s.preview))
}

// UpdateInputText replaces the text being edited. The preview follows once
// the text has been left alone for the grid's debounce interval.
func (s *EditSession) UpdateInputText(text string) error {
	var err error
	s.grid.do(func() {
		if s.closed {
			err = ErrSessionClosed
			return
		}
		s.input.Set(text)
		s.schedule()
	})
	return err
}

func (s *EditSession) schedule() {
	s.debounce.Enqueue(func(gen uint64) {
		s.grid.do(func() {
			// a newer keystroke or Apply may have won the race for the lock
			if s.closed || !s.debounce.Latest(gen) {
				return
			}
			s.refresh()
		})
	})
}

// refresh evaluates the current input as if it were stored in the cell,
// without claiming dependency edges.
func (s *EditSession) refresh() {
	if s.cancelPreview != nil {
		s.cancelPreview()
		s.cancelPreview = nil
	}

	text := s.input.Get()
	if !strings.HasPrefix(text, "=") {
		s.preview.Set(Preview{})
		return
	}

	props, err := s.grid.binder().Parse(text, s.cell.key)
	if err != nil {
		sessionLog.Debugf("preview of %q: %s", text, err)
	}
	env := Env{Self: s.cell.key, Resolver: s.grid.resolver(), Graph: s.grid.graph}
	s.cancelPreview = Evaluate(props, env).Subscribe(func(v CellView) {
		if !s.closed {
			s.preview.Set(Preview{View: v, Present: true})
		}
	})
}

// Apply commits the current input to the cell and closes the session.
// Input that does not parse is still stored, as an invalid cell that keeps
// the text for the next edit.
func (s *EditSession) Apply() error {
	var err error
	s.grid.do(func() {
		if s.closed {
			err = ErrSessionClosed
			return
		}
		if s.cell.state == cellDisposed {
			s.close()
			err = ErrCellNotFound
			return
		}
		s.grid.commit(s.cell, s.input.Get())
		s.close()
	})
	return err
}

// Cancel closes the session without touching the cell. It is safe to call
// more than once.
func (s *EditSession) Cancel() {
	s.grid.do(s.close)
}

// Closed reports whether Apply or Cancel has run.
func (s *EditSession) Closed() bool {
	s.grid.mu.Lock()
	defer s.grid.mu.Unlock()
	return s.closed
}

func (s *EditSession) close() {
	if s.closed {
		return
	}
	s.closed = true
	s.debounce.Stop()
	if s.cancelPreview != nil {
		s.cancelPreview()
		s.cancelPreview = nil
	}
}
