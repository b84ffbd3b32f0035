package spreadsheet

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var gridLog = commonlog.GetLogger("livegrid.grid")

// Size is the initial shape of a grid.
type Size struct {
	Rows int
	Cols int
}

// Option configures a Grid at construction.
type Option func(*Grid)

// WithClock replaces the wall clock used to debounce edit previews.
func WithClock(clock Clock) Option {
	return func(g *Grid) { g.clock = clock }
}

// WithDebounce sets how long edit input must be idle before the preview is
// recomputed.
func WithDebounce(d time.Duration) Option {
	return func(g *Grid) { g.debounce = d }
}

// WithIDGenerator replaces the generators of column and row ids.
func WithIDGenerator(columns func() ColumnID, rows func() RowID) Option {
	return func(g *Grid) {
		g.newColumnID = columns
		g.newRowID = rows
	}
}

// WithSeed fills the initial cells with the text fn returns for each
// (column, row) index pair.
func WithSeed(fn func(col, row int) string) Option {
	return func(g *Grid) { g.seed = fn }
}

// WithLogger replaces the package logger.
func WithLogger(log commonlog.Logger) Option {
	return func(g *Grid) { g.log = log }
}

// DemoSeed returns a seed that numbers the first 26 cells in column order
// and writes the even ones, leaving everything else empty.
func DemoSeed() func(col, row int) string {
	i := 0
	return func(col, row int) string {
		i++
		if i > 26 || i%2 != 0 {
			return ""
		}
		return fmt.Sprint(i)
	}
}

// Grid owns the column and row orderings and every cell. All state sits
// behind one mutex; reactive notifications are delivered while it is held,
// so a listener must never call back into the Grid synchronously.
type Grid struct {
	mu sync.Mutex

	columns *Live[[]ColumnID]
	rows    *Live[[]RowID]
	store   *cellStore
	graph   *DependencyGraph

	clock       Clock
	debounce    time.Duration
	newColumnID func() ColumnID
	newRowID    func() RowID
	seed        func(col, row int) string
	log         commonlog.Logger
}

// New creates a grid of the given size.
func New(size Size, opts ...Option) (*Grid, error) {
	if size.Rows < 1 || size.Cols < 1 {
		return nil, newApplicationErrorf(InvalidArgument, "grid needs at least one row and one column, got %dx%d", size.Cols, size.Rows)
	}

	g := &Grid{
		store:       newCellStore(),
		graph:       NewDependencyGraph(),
		clock:       &WallClock{},
		debounce:    DefaultDebounce,
		newColumnID: newColumnID,
		newRowID:    newRowID,
		log:         gridLog,
	}
	for _, opt := range opts {
		opt(g)
	}

	cols := make([]ColumnID, size.Cols)
	for i := range cols {
		cols[i] = g.newColumnID()
	}
	rows := make([]RowID, size.Rows)
	for i := range rows {
		rows[i] = g.newRowID()
	}
	g.columns = NewLive(cols)
	g.rows = NewLive(rows)

	binder := g.binder()
	for ci, col := range cols {
		for ri, row := range rows {
			props := emptyProperties
			if g.seed != nil {
				key := CellKey{Column: col, Row: row}
				props, _ = binder.Parse(g.seed(ci, ri), key)
			}
			g.store.put(g.newCell(CellKey{Column: col, Row: row}, props))
		}
	}

	g.log.Debugf("created %dx%d grid", size.Cols, size.Rows)
	return g, nil
}

// do runs fn with the lock held, then runs any cycle retries fn released.
func (g *Grid) do(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
	g.graph.Drain()
	if g.log.AllowLevel(commonlog.Debug) && g.graph.HasCycle() {
		g.log.Errorf("dependency graph of %d cells has a cycle", g.graph.NodeCount())
	}
}

func (g *Grid) binder() Binder {
	return Binder{Columns: g.columns.Get(), Rows: g.rows.Get()}
}

//
// Read side
//

// Columns is the live column ordering. Emitted slices are copies.
func (g *Grid) Columns() Stream[[]ColumnID] {
	return guard(g, Map[[]ColumnID, []ColumnID](g.columns, slices.Clone[[]ColumnID]))
}

// Rows is the live row ordering. Emitted slices are copies.
func (g *Grid) Rows() Stream[[]RowID] {
	return guard(g, Map[[]RowID, []RowID](g.rows, slices.Clone[[]RowID]))
}

// ColumnOrder returns a copy of the current column ordering.
func (g *Grid) ColumnOrder() []ColumnID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.columns.Get())
}

// RowOrder returns a copy of the current row ordering.
func (g *Grid) RowOrder() []RowID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.rows.Get())
}

// GetCell looks up the cell at (col, row). It fails with ErrCellNotFound
// when either id is not part of the grid.
func (g *Grid) GetCell(col ColumnID, row RowID) (*Cell, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cell(CellKey{Column: col, Row: row})
}

func (g *Grid) cell(key CellKey) (*Cell, error) {
	if c, ok := g.store.get(key); ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: column %s, row %s", ErrCellNotFound, key.Column, key.Row)
}

// View returns the current view of the cell at (col, row).
func (g *Grid) View(col ColumnID, row RowID) (CellView, error) {
	var (
		view CellView
		err  error
	)
	g.do(func() {
		var c *Cell
		if c, err = g.cell(CellKey{Column: col, Row: row}); err == nil {
			view = c.liveView().Get()
		}
	})
	return view, err
}

// InputText returns the text a user would edit for the cell at (col, row),
// with references named as seen from that cell today.
func (g *Grid) InputText(col ColumnID, row RowID) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := g.cell(CellKey{Column: col, Row: row})
	if err != nil {
		return "", err
	}
	return g.binder().InputText(c.props.Get(), c.key), nil
}

// Address resolves a display address such as "B3" (a $ marker is allowed
// and ignored) to the cell currently at that position.
func (g *Grid) Address(name string) (CellKey, error) {
	ref, ok := ParseReference(name)
	if !ok {
		return CellKey{}, fmt.Errorf("%w: %q", ErrInvalidAddress, name)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	cols, rows := g.columns.Get(), g.rows.Get()
	ci, _ := ColumnIndex(ref.Column.Name)
	ri, ok := RowIndex(ref.Row.Name)
	if !ok || ci >= len(cols) || ri >= len(rows) {
		return CellKey{}, fmt.Errorf("%w: %q is outside the %dx%d grid", ErrInvalidAddress, name, len(cols), len(rows))
	}
	return CellKey{Column: cols[ci], Row: rows[ri]}, nil
}

// AddressOf names the current position of key, e.g. "B3".
func (g *Grid) AddressOf(key CellKey) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ci := slices.Index(g.columns.Get(), key.Column)
	ri := slices.Index(g.rows.Get(), key.Row)
	if ci < 0 || ri < 0 {
		return "", fmt.Errorf("%w: column %s, row %s", ErrCellNotFound, key.Column, key.Row)
	}
	return ColumnName(ci) + RowName(ri), nil
}

// Precedents lists the cells the cell at (col, row) reads right now. Only
// cells with a live view take part, so an unobserved formula has none.
func (g *Grid) Precedents(col ColumnID, row RowID) ([]CellKey, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := CellKey{Column: col, Row: row}
	if _, err := g.cell(key); err != nil {
		return nil, err
	}
	return g.graph.GetDirectPrecedents(key), nil
}

// Dependents lists every live cell that reads the cell at (col, row),
// directly or through other cells.
func (g *Grid) Dependents(col ColumnID, row RowID) ([]CellKey, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := CellKey{Column: col, Row: row}
	if _, err := g.cell(key); err != nil {
		return nil, err
	}
	return g.graph.GetAllDependents(key), nil
}

//
// Resolver
//

// gridResolver resolves locations for evaluations running under the
// grid lock.
type gridResolver struct {
	g *Grid
}

func (g *Grid) resolver() Resolver {
	return gridResolver{g: g}
}

// Resolve follows loc from the cell at from against the live orderings.
// Absolute ids that left the grid fail; relative offsets clamp to the
// grid's edges.
func (r gridResolver) Resolve(from CellKey, loc Location) Stream[Resolution] {
	return Combine[[]ColumnID, []RowID](r.g.columns, r.g.rows, func(cols []ColumnID, rows []RowID) Resolution {
		col, failure := resolveAxis(cols, from.Column, loc.Column.Position, loc.Column.ID, loc.Column.Offset)
		if failure != "" {
			return Resolution{Failure: "Column " + failure}
		}
		row, failure := resolveAxis(rows, from.Row, loc.Row.Position, loc.Row.ID, loc.Row.Offset)
		if failure != "" {
			return Resolution{Failure: "Row " + failure}
		}
		return Resolution{Key: CellKey{Column: col, Row: row}}
	})
}

func (r gridResolver) View(key CellKey) (Stream[CellView], error) {
	c, err := r.g.cell(key)
	if err != nil {
		return nil, err
	}
	return c.liveView(), nil
}

func resolveAxis[ID comparable](order []ID, from ID, pos Position, id ID, offset int) (ID, string) {
	var zero ID
	if pos == Absolute {
		if !slices.Contains(order, id) {
			return zero, "no longer exists"
		}
		return id, ""
	}
	fromIndex := slices.Index(order, from)
	if fromIndex < 0 {
		return zero, "of the referencing cell no longer exists"
	}
	index := min(max(fromIndex+offset, 0), len(order)-1)
	return order[index], ""
}

// guarded makes a stream safe to use from any goroutine by taking the grid
// lock around Get, Subscribe and cancel. Callbacks run with the lock held.
type guarded[T any] struct {
	g *Grid
	s Stream[T]
}

func guard[T any](g *Grid, s Stream[T]) Stream[T] {
	return guarded[T]{g: g, s: s}
}

func (s guarded[T]) Get() T {
	var v T
	s.g.do(func() { v = s.s.Get() })
	return v
}

func (s guarded[T]) Subscribe(fn func(T)) func() {
	var cancel func()
	s.g.do(func() { cancel = s.s.Subscribe(fn) })
	var once sync.Once
	return func() { once.Do(func() { s.g.do(cancel) }) }
}

//
// Write side
//

// SetCell parses text and stores it in the cell at (col, row), as if an
// edit session had applied it.
func (g *Grid) SetCell(col ColumnID, row RowID, text string) error {
	var err error
	g.do(func() {
		var c *Cell
		if c, err = g.cell(CellKey{Column: col, Row: row}); err == nil {
			g.commit(c, text)
		}
	})
	return err
}

func (g *Grid) commit(c *Cell, text string) {
	props, err := g.binder().Parse(text, c.key)
	if err != nil {
		g.log.Errorf("parse error for %q: %s", text, err)
	}
	c.props.Set(props)
}

// EditCell opens an edit session over the cell at (col, row).
func (g *Grid) EditCell(col ColumnID, row RowID) (*EditSession, error) {
	var (
		s   *EditSession
		err error
	)
	g.do(func() {
		var c *Cell
		if c, err = g.cell(CellKey{Column: col, Row: row}); err == nil {
			s = newEditSession(g, c)
		}
	})
	return s, err
}

func (g *Grid) requireColumns(ids ...ColumnID) error {
	for _, id := range ids {
		if !slices.Contains(g.columns.Get(), id) {
			return fmt.Errorf("%w: column %s", ErrCellNotFound, id)
		}
	}
	return nil
}

func (g *Grid) requireRows(ids ...RowID) error {
	for _, id := range ids {
		if !slices.Contains(g.rows.Get(), id) {
			return fmt.Errorf("%w: row %s", ErrCellNotFound, id)
		}
	}
	return nil
}

// MoveColumnBefore moves col to sit directly before anchor.
func (g *Grid) MoveColumnBefore(col, anchor ColumnID) error {
	return g.moveColumn(col, anchor, moveBefore[ColumnID])
}

// MoveColumnAfter moves col to sit directly after anchor.
func (g *Grid) MoveColumnAfter(col, anchor ColumnID) error {
	return g.moveColumn(col, anchor, moveAfter[ColumnID])
}

func (g *Grid) moveColumn(col, anchor ColumnID, place func([]ColumnID, ColumnID, ColumnID) []ColumnID) error {
	var err error
	g.do(func() {
		if err = g.requireColumns(col, anchor); err != nil || col == anchor {
			return
		}
		g.log.Debugf("move column %s next to %s", col, anchor)
		g.columns.Set(place(g.columns.Get(), col, anchor))
	})
	return err
}

// MoveRowBefore moves row to sit directly before anchor.
func (g *Grid) MoveRowBefore(row, anchor RowID) error {
	return g.moveRow(row, anchor, moveBefore[RowID])
}

// MoveRowAfter moves row to sit directly after anchor.
func (g *Grid) MoveRowAfter(row, anchor RowID) error {
	return g.moveRow(row, anchor, moveAfter[RowID])
}

func (g *Grid) moveRow(row, anchor RowID, place func([]RowID, RowID, RowID) []RowID) error {
	var err error
	g.do(func() {
		if err = g.requireRows(row, anchor); err != nil || row == anchor {
			return
		}
		g.log.Debugf("move row %s next to %s", row, anchor)
		g.rows.Set(place(g.rows.Get(), row, anchor))
	})
	return err
}

// CopyColumnToBefore duplicates col under a new id, placed before anchor.
// Copied formulas keep their absolute targets; relative references resolve
// from the copy's own position.
func (g *Grid) CopyColumnToBefore(col, anchor ColumnID) (ColumnID, error) {
	return g.copyColumn(col, anchor, moveBefore[ColumnID])
}

// CopyColumnToAfter duplicates col under a new id, placed after anchor.
func (g *Grid) CopyColumnToAfter(col, anchor ColumnID) (ColumnID, error) {
	return g.copyColumn(col, anchor, moveAfter[ColumnID])
}

func (g *Grid) copyColumn(from, anchor ColumnID, place func([]ColumnID, ColumnID, ColumnID) []ColumnID) (ColumnID, error) {
	var (
		id  ColumnID
		err error
	)
	g.do(func() {
		if err = g.requireColumns(from, anchor); err != nil {
			return
		}
		id = g.newColumnID()
		for _, row := range g.rows.Get() {
			src, _ := g.store.get(CellKey{Column: from, Row: row})
			g.store.put(g.newCell(CellKey{Column: id, Row: row}, src.props.Get().Clone()))
		}
		g.log.Debugf("copy column %s to %s", from, id)
		g.columns.Set(place(g.columns.Get(), id, anchor))
	})
	return id, err
}

// CopyRowToBefore duplicates row under a new id, placed before anchor.
func (g *Grid) CopyRowToBefore(row, anchor RowID) (RowID, error) {
	return g.copyRow(row, anchor, moveBefore[RowID])
}

// CopyRowToAfter duplicates row under a new id, placed after anchor.
func (g *Grid) CopyRowToAfter(row, anchor RowID) (RowID, error) {
	return g.copyRow(row, anchor, moveAfter[RowID])
}

func (g *Grid) copyRow(from, anchor RowID, place func([]RowID, RowID, RowID) []RowID) (RowID, error) {
	var (
		id  RowID
		err error
	)
	g.do(func() {
		if err = g.requireRows(from, anchor); err != nil {
			return
		}
		id = g.newRowID()
		for _, col := range g.columns.Get() {
			src, _ := g.store.get(CellKey{Column: col, Row: from})
			g.store.put(g.newCell(CellKey{Column: col, Row: id}, src.props.Get().Clone()))
		}
		g.log.Debugf("copy row %s to %s", from, id)
		g.rows.Set(place(g.rows.Get(), id, anchor))
	})
	return id, err
}

// InsertColumnBefore adds an empty column before anchor.
func (g *Grid) InsertColumnBefore(anchor ColumnID) (ColumnID, error) {
	return g.insertColumn(anchor, moveBefore[ColumnID])
}

// InsertColumnAfter adds an empty column after anchor.
func (g *Grid) InsertColumnAfter(anchor ColumnID) (ColumnID, error) {
	return g.insertColumn(anchor, moveAfter[ColumnID])
}

func (g *Grid) insertColumn(anchor ColumnID, place func([]ColumnID, ColumnID, ColumnID) []ColumnID) (ColumnID, error) {
	var (
		id  ColumnID
		err error
	)
	g.do(func() {
		if err = g.requireColumns(anchor); err != nil {
			return
		}
		id = g.newColumnID()
		for _, row := range g.rows.Get() {
			g.store.put(g.newCell(CellKey{Column: id, Row: row}, emptyProperties))
		}
		g.log.Debugf("insert column %s", id)
		g.columns.Set(place(g.columns.Get(), id, anchor))
	})
	return id, err
}

// InsertRowBefore adds an empty row before anchor.
func (g *Grid) InsertRowBefore(anchor RowID) (RowID, error) {
	return g.insertRow(anchor, moveBefore[RowID])
}

// InsertRowAfter adds an empty row after anchor.
func (g *Grid) InsertRowAfter(anchor RowID) (RowID, error) {
	return g.insertRow(anchor, moveAfter[RowID])
}

func (g *Grid) insertRow(anchor RowID, place func([]RowID, RowID, RowID) []RowID) (RowID, error) {
	var (
		id  RowID
		err error
	)
	g.do(func() {
		if err = g.requireRows(anchor); err != nil {
			return
		}
		id = g.newRowID()
		for _, col := range g.columns.Get() {
			g.store.put(g.newCell(CellKey{Column: col, Row: id}, emptyProperties))
		}
		g.log.Debugf("insert row %s", id)
		g.rows.Set(place(g.rows.Get(), id, anchor))
	})
	return id, err
}

// RemoveColumn drops col and its cells. Absolute references to it start
// failing with #REF!. The last column cannot be removed.
func (g *Grid) RemoveColumn(col ColumnID) error {
	var err error
	g.do(func() {
		if err = g.requireColumns(col); err != nil {
			return
		}
		cols := g.columns.Get()
		if len(cols) == 1 {
			err = newApplicationErrorf(FailedPrecondition, "cannot remove the last column")
			return
		}
		g.log.Debugf("remove column %s", col)
		g.columns.Set(slices.DeleteFunc(slices.Clone(cols), func(id ColumnID) bool { return id == col }))
		g.dispose(g.store.removeColumn(col))
	})
	return err
}

// RemoveRow drops row and its cells. The last row cannot be removed.
func (g *Grid) RemoveRow(row RowID) error {
	var err error
	g.do(func() {
		if err = g.requireRows(row); err != nil {
			return
		}
		rows := g.rows.Get()
		if len(rows) == 1 {
			err = newApplicationErrorf(FailedPrecondition, "cannot remove the last row")
			return
		}
		g.log.Debugf("remove row %s", row)
		g.rows.Set(slices.DeleteFunc(slices.Clone(rows), func(id RowID) bool { return id == row }))
		g.dispose(g.store.removeRow(row))
	})
	return err
}

// dispose tears down removed cells once nothing resolves to them anymore.
func (g *Grid) dispose(cells []*Cell) {
	for _, c := range cells {
		c.deactivate()
		g.graph.RemoveNode(c.key)
	}
}

//
// Snapshots
//

// CellSnapshot is one cell of a Snapshot.
type CellSnapshot struct {
	Key     CellKey
	Address string
	Input   string
	View    CellView
}

// Snapshot is a consistent copy of the whole grid, rows first.
type Snapshot struct {
	Columns []ColumnID
	Rows    []RowID
	Cells   [][]CellSnapshot
}

// Cell returns the snapshot of the cell at the given indices.
func (s Snapshot) Cell(col, row int) CellSnapshot {
	return s.Cells[row][col]
}

// Snapshot evaluates every cell and copies the result.
func (g *Grid) Snapshot() Snapshot {
	var snap Snapshot
	g.do(func() {
		cols, rows := g.columns.Get(), g.rows.Get()
		binder := g.binder()
		snap.Columns = slices.Clone(cols)
		snap.Rows = slices.Clone(rows)
		snap.Cells = make([][]CellSnapshot, len(rows))
		for ri, row := range rows {
			line := make([]CellSnapshot, len(cols))
			for ci, col := range cols {
				c, _ := g.store.get(CellKey{Column: col, Row: row})
				line[ci] = CellSnapshot{
					Key:     c.key,
					Address: ColumnName(ci) + RowName(ri),
					Input:   binder.InputText(c.props.Get(), c.key),
					View:    c.liveView().Get(),
				}
			}
			snap.Cells[ri] = line
		}
	})
	return snap
}

// Graph exposes the dependency graph for diagnostics. It must only be read
// while no other goroutine uses the grid.
func (g *Grid) Graph() *DependencyGraph {
	return g.graph
}

//
// Ordering helpers
//

// moveBefore returns order with item placed directly before anchor. item
// does not need to be part of order yet.
func moveBefore[T comparable](order []T, item, anchor T) []T {
	out := make([]T, 0, len(order)+1)
	for _, v := range order {
		if v == item {
			continue
		}
		if v == anchor {
			out = append(out, item)
		}
		out = append(out, v)
	}
	return out
}

// moveAfter returns order with item placed directly after anchor.
func moveAfter[T comparable](order []T, item, anchor T) []T {
	out := make([]T, 0, len(order)+1)
	for _, v := range order {
		if v == item {
			continue
		}
		out = append(out, v)
		if v == anchor {
			out = append(out, item)
		}
	}
	return out
}

//
// Cells
//

type cellState uint8

const (
	cellInactive cellState = iota
	cellActivating
	cellActive
	cellDisposed
)

// Cell is one cell of a Grid. Its view is evaluated lazily, the first time
// anything reads it, and then kept up to date for as long as the cell is
// part of the grid.
type Cell struct {
	grid  *Grid
	key   CellKey
	props *Live[CellProperties]
	view  *Live[CellView]

	state  cellState
	cancel func()
}

func (g *Grid) newCell(key CellKey, props CellProperties) *Cell {
	return &Cell{grid: g, key: key, props: NewLive(props)}
}

// Key is the identity of the cell.
func (c *Cell) Key() CellKey {
	return c.key
}

// View is the live view of the cell.
func (c *Cell) View() Stream[CellView] {
	return guard(c.grid, Stream[CellView](streamFunc[CellView](func(fn func(CellView)) func() {
		return c.liveView().Subscribe(fn)
	})))
}

// Properties is the live persistent state of the cell.
func (c *Cell) Properties() Stream[CellProperties] {
	return guard(c.grid, Stream[CellProperties](c.props))
}

// Edit opens an edit session over the cell.
func (c *Cell) Edit() (*EditSession, error) {
	return c.grid.EditCell(c.key.Column, c.key.Row)
}

// liveView returns the view, evaluating the cell on first use. Reading a
// cell from inside its own activation can only happen through a cycle.
func (c *Cell) liveView() Stream[CellView] {
	switch c.state {
	case cellActivating:
		return Const(CellView{Formula: true, Error: msgCircularReference, Code: ErrorCodeRef})
	case cellDisposed:
		return Const(CellView{Formula: true, Error: "Cell does not exist", Code: ErrorCodeRef})
	case cellInactive:
		c.activate()
	}
	return c.view
}

func (c *Cell) activate() {
	c.state = cellActivating
	c.view = NewLive(CellView{})

	env := Env{Self: c.key, Resolver: c.grid.resolver(), Graph: c.grid.graph, Track: true}
	evaluated := Switch[CellProperties, CellView](c.props, func(p CellProperties) Stream[CellView] {
		return Evaluate(p, env)
	})
	c.cancel = evaluated.Subscribe(func(v CellView) {
		if v == c.view.Get() {
			return
		}
		c.view.Set(v)
	})
	c.state = cellActive
}

func (c *Cell) deactivate() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = cellDisposed
}
