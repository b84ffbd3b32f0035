package spreadsheet

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock only fires timers from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type sessionFixture struct {
	t     *testing.T
	clock *fakeClock
	grid  *Grid
}

func newSessionFixture(t *testing.T, cols, rows int) *sessionFixture {
	clock := newFakeClock()
	g, err := New(Size{Rows: rows, Cols: cols}, WithClock(clock))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return &sessionFixture{t: t, clock: clock, grid: g}
}

func (f *sessionFixture) key(address string) CellKey {
	key, err := f.grid.Address(address)
	if err != nil {
		f.t.Fatalf("Address(%s) failed: %v", address, err)
	}
	return key
}

func (f *sessionFixture) set(address, text string) {
	key := f.key(address)
	if err := f.grid.SetCell(key.Column, key.Row, text); err != nil {
		f.t.Fatalf("SetCell(%s) failed: %v", address, err)
	}
}

func (f *sessionFixture) view(address string) CellView {
	key := f.key(address)
	view, err := f.grid.View(key.Column, key.Row)
	if err != nil {
		f.t.Fatalf("View(%s) failed: %v", address, err)
	}
	return view
}

func (f *sessionFixture) edit(address string) *EditSession {
	key := f.key(address)
	s, err := f.grid.EditCell(key.Column, key.Row)
	if err != nil {
		f.t.Fatalf("EditCell(%s) failed: %v", address, err)
	}
	return s
}

func (f *sessionFixture) update(s *EditSession, text string) {
	if err := s.UpdateInputText(text); err != nil {
		f.t.Fatalf("UpdateInputText(%q) failed: %v", text, err)
	}
}

func recordPreviews(s *EditSession) (*[]Preview, func()) {
	var previews []Preview
	cancel := s.Preview().Subscribe(func(p Preview) { previews = append(previews, p) })
	return &previews, cancel
}

func TestEditSessionInitialPreview(t *testing.T) {
	f := newSessionFixture(t, 2, 1)
	f.set("A1", "1")
	f.set("B1", "=A1+1")

	s := f.edit("B1")
	if got := s.Input().Get(); got != "=A1+1" {
		t.Errorf("Input() = %q, want =A1+1", got)
	}
	if s.Preview().Get().Present {
		t.Error("preview present before the debounce interval")
	}

	f.clock.Advance(DefaultDebounce - time.Millisecond)
	if s.Preview().Get().Present {
		t.Error("preview present before the debounce interval")
	}
	f.clock.Advance(time.Millisecond)
	p := s.Preview().Get()
	if !p.Present || p.View.Display != "2" || !p.View.Formula {
		t.Errorf("Preview() = %+v, want formula displaying 2", p)
	}
}

func TestEditSessionDebounce(t *testing.T) {
	f := newSessionFixture(t, 1, 1)
	s := f.edit("A1")
	previews, cancel := recordPreviews(s)
	defer cancel()

	f.update(s, "=1")
	f.clock.Advance(100 * time.Millisecond)
	f.update(s, "=1+")
	f.clock.Advance(100 * time.Millisecond)
	f.update(s, "=1+2")
	f.clock.Advance(DefaultDebounce)

	// the subscription's current value, then a single evaluation of the last text
	if len(*previews) != 2 {
		t.Fatalf("recorded %d previews, want 2: %+v", len(*previews), *previews)
	}
	if (*previews)[0].Present {
		t.Errorf("first preview = %+v, want absent", (*previews)[0])
	}
	if last := (*previews)[1]; !last.Present || last.View.Value != 3.0 {
		t.Errorf("last preview = %+v, want 3", last)
	}
}

func TestEditSessionNonFormula(t *testing.T) {
	f := newSessionFixture(t, 1, 1)
	s := f.edit("A1")

	f.update(s, "=5")
	f.clock.Advance(DefaultDebounce)
	if p := s.Preview().Get(); !p.Present || p.View.Value != 5.0 {
		t.Errorf("Preview() = %+v, want 5", p)
	}

	f.update(s, "hello")
	f.clock.Advance(DefaultDebounce)
	if p := s.Preview().Get(); p.Present {
		t.Errorf("Preview() = %+v, want absent for plain text", p)
	}
}

func TestEditSessionApply(t *testing.T) {
	f := newSessionFixture(t, 2, 1)
	f.set("A1", "2")
	s := f.edit("B1")
	f.update(s, "=A1*3")

	if err := s.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !s.Closed() {
		t.Error("session still open after Apply")
	}
	if v := f.view("B1"); v.Value != 6.0 {
		t.Errorf("B1 = %+v, want 6", v)
	}

	if err := s.UpdateInputText("=1"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("UpdateInputText after Apply = %v, want ErrSessionClosed", err)
	}
	if err := s.Apply(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("second Apply = %v, want ErrSessionClosed", err)
	}
}

func TestEditSessionApplyInvalid(t *testing.T) {
	f := newSessionFixture(t, 1, 1)
	s := f.edit("A1")
	f.update(s, "=1+")
	if err := s.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	key := f.key("A1")
	text, err := f.grid.InputText(key.Column, key.Row)
	if err != nil || text != "=1+" {
		t.Errorf("InputText = %q, %v, want =1+", text, err)
	}
	if v := f.view("A1"); v.OK || !strings.HasPrefix(v.Error, "Parse error") {
		t.Errorf("A1 = %+v, want parse error", v)
	}
}

func TestEditSessionCancel(t *testing.T) {
	f := newSessionFixture(t, 1, 1)
	f.set("A1", "7")
	s := f.edit("A1")
	previews, cancel := recordPreviews(s)
	defer cancel()

	f.update(s, "=100")
	s.Cancel()
	s.Cancel()
	f.clock.Advance(DefaultDebounce)

	if len(*previews) != 1 {
		t.Errorf("closed session emitted previews: %+v", *previews)
	}
	if v := f.view("A1"); v.Value != 7.0 {
		t.Errorf("A1 = %+v, want 7 after Cancel", v)
	}
	if err := s.Apply(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Apply after Cancel = %v, want ErrSessionClosed", err)
	}
}

func TestEditSessionLivePreview(t *testing.T) {
	f := newSessionFixture(t, 2, 1)
	f.set("A1", "1")
	s := f.edit("B1")
	defer s.Cancel()

	f.update(s, "=A1*10")
	f.clock.Advance(DefaultDebounce)
	if p := s.Preview().Get(); p.View.Value != 10.0 {
		t.Errorf("Preview() = %+v, want 10", p)
	}

	f.set("A1", "2")
	if p := s.Preview().Get(); p.View.Value != 20.0 {
		t.Errorf("Preview() = %+v, want 20 after A1 changed", p)
	}

	// previews read cells without claiming dependency edges
	if precedents := f.grid.Graph().GetDirectPrecedents(f.key("B1")); len(precedents) != 0 {
		t.Errorf("preview added edges %v", precedents)
	}
}

func TestEditSessionPreviewCycle(t *testing.T) {
	f := newSessionFixture(t, 2, 1)
	f.set("A1", "=B1")
	f.view("A1")

	s := f.edit("B1")
	defer s.Cancel()
	f.update(s, "=A1")
	f.clock.Advance(DefaultDebounce)

	p := s.Preview().Get()
	if !p.Present || p.View.OK || p.View.Code != ErrorCodeRef || p.View.Error != msgCircularReference {
		t.Errorf("Preview() = %+v, want circular reference", p)
	}
	if v := f.view("B1"); !v.OK {
		t.Errorf("B1 = %+v, want the untouched empty cell", v)
	}
}

func TestEditSessionPreviewParseError(t *testing.T) {
	f := newSessionFixture(t, 1, 1)
	s := f.edit("A1")
	defer s.Cancel()

	f.update(s, "=1+")
	f.clock.Advance(DefaultDebounce)
	p := s.Preview().Get()
	if !p.Present || p.View.OK || !strings.HasPrefix(p.View.Error, "Parse error") {
		t.Errorf("Preview() = %+v, want parse error", p)
	}
}

func TestEditSessionRemovedCell(t *testing.T) {
	f := newSessionFixture(t, 2, 1)
	s := f.edit("B1")
	f.update(s, "1")

	key := f.key("B1")
	if err := f.grid.RemoveColumn(key.Column); err != nil {
		t.Fatalf("RemoveColumn failed: %v", err)
	}
	if err := s.Apply(); !errors.Is(err, ErrCellNotFound) {
		t.Errorf("Apply on a removed cell = %v, want ErrCellNotFound", err)
	}
	if !s.Closed() {
		t.Error("session still open after failed Apply")
	}
}

func TestEditSessionWallClock(t *testing.T) {
	g, err := New(Size{Rows: 1, Cols: 1}, WithDebounce(time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	cols, rows := g.ColumnOrder(), g.RowOrder()
	s, err := g.EditCell(cols[0], rows[0])
	if err != nil {
		t.Fatalf("EditCell failed: %v", err)
	}
	defer s.Cancel()

	ready := make(chan CellView, 1)
	cancel := s.Preview().Subscribe(func(p Preview) {
		if p.Present {
			select {
			case ready <- p.View:
			default:
			}
		}
	})
	defer cancel()

	if err := s.UpdateInputText("=6*7"); err != nil {
		t.Fatalf("UpdateInputText failed: %v", err)
	}
	select {
	case v := <-ready:
		if v.Value != 42.0 {
			t.Errorf("preview = %+v, want 42", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no preview within 5s")
	}
}
