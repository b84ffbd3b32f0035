package spreadsheet

import (
	"fmt"
	"strings"
)

// RunnableGrid provides a chainable interface for grid operations
// addressed by display names ("B3", column "B", row "3"). It wraps a Grid
// and tracks the first error; every later call is a no-op.
type RunnableGrid struct {
	grid    *Grid
	err     error
	printLn func(string)
}

// NewRunnableGrid creates a grid of the given size wrapped in a
// RunnableGrid. printLn is required and will be used for all logging
// operations (Log, CheckError)
func NewRunnableGrid(size Size, printLn func(string), opts ...Option) *RunnableGrid {
	g, err := New(size, opts...)
	return &RunnableGrid{grid: g, err: err, printLn: printLn}
}

// WrapGrid wraps an existing grid.
func WrapGrid(g *Grid, printLn func(string)) *RunnableGrid {
	return &RunnableGrid{grid: g, printLn: printLn}
}

func (r *RunnableGrid) column(name string) (ColumnID, error) {
	index, ok := ColumnIndex(strings.TrimPrefix(name, "$"))
	cols := r.grid.ColumnOrder()
	if !ok || index >= len(cols) {
		return "", fmt.Errorf("%w: column %q", ErrInvalidAddress, name)
	}
	return cols[index], nil
}

func (r *RunnableGrid) row(name string) (RowID, error) {
	index, ok := RowIndex(strings.TrimPrefix(name, "$"))
	rows := r.grid.RowOrder()
	if !ok || index >= len(rows) {
		return "", fmt.Errorf("%w: row %q", ErrInvalidAddress, name)
	}
	return rows[index], nil
}

// Set stores cell text (chainable)
func (r *RunnableGrid) Set(address, text string) *RunnableGrid {
	if r.err != nil {
		return r // no-op if there's already an error
	}
	key, err := r.grid.Address(address)
	if err != nil {
		r.err = err
		return r
	}
	r.err = r.grid.SetCell(key.Column, key.Row, text)
	return r
}

// SetBatch sets multiple cells at once (chainable)
func (r *RunnableGrid) SetBatch(cells map[string]string) *RunnableGrid {
	for address, text := range cells {
		if r.Set(address, text); r.err != nil {
			return r
		}
	}
	return r
}

// Edit goes through a full edit session: open, type, apply (chainable)
func (r *RunnableGrid) Edit(address, text string) *RunnableGrid {
	if r.err != nil {
		return r // no-op if there's already an error
	}
	key, err := r.grid.Address(address)
	if err != nil {
		r.err = err
		return r
	}
	session, err := r.grid.EditCell(key.Column, key.Row)
	if err != nil {
		r.err = err
		return r
	}
	if err := session.UpdateInputText(text); err != nil {
		session.Cancel()
		r.err = err
		return r
	}
	r.err = session.Apply()
	return r
}

func (r *RunnableGrid) columnPair(col, anchor string, fn func(ColumnID, ColumnID) error) *RunnableGrid {
	if r.err != nil {
		return r // no-op if there's already an error
	}
	c, err := r.column(col)
	if err != nil {
		r.err = err
		return r
	}
	a, err := r.column(anchor)
	if err != nil {
		r.err = err
		return r
	}
	r.err = fn(c, a)
	return r
}

func (r *RunnableGrid) rowPair(row, anchor string, fn func(RowID, RowID) error) *RunnableGrid {
	if r.err != nil {
		return r // no-op if there's already an error
	}
	c, err := r.row(row)
	if err != nil {
		r.err = err
		return r
	}
	a, err := r.row(anchor)
	if err != nil {
		r.err = err
		return r
	}
	r.err = fn(c, a)
	return r
}

// MoveColumnBefore moves a column before another (chainable)
func (r *RunnableGrid) MoveColumnBefore(col, anchor string) *RunnableGrid {
	return r.columnPair(col, anchor, r.grid.MoveColumnBefore)
}

// MoveColumnAfter moves a column after another (chainable)
func (r *RunnableGrid) MoveColumnAfter(col, anchor string) *RunnableGrid {
	return r.columnPair(col, anchor, r.grid.MoveColumnAfter)
}

// MoveRowBefore moves a row before another (chainable)
func (r *RunnableGrid) MoveRowBefore(row, anchor string) *RunnableGrid {
	return r.rowPair(row, anchor, r.grid.MoveRowBefore)
}

// MoveRowAfter moves a row after another (chainable)
func (r *RunnableGrid) MoveRowAfter(row, anchor string) *RunnableGrid {
	return r.rowPair(row, anchor, r.grid.MoveRowAfter)
}

// CopyColumnToBefore copies a column before another (chainable)
func (r *RunnableGrid) CopyColumnToBefore(col, anchor string) *RunnableGrid {
	return r.columnPair(col, anchor, func(c, a ColumnID) error {
		_, err := r.grid.CopyColumnToBefore(c, a)
		return err
	})
}

// CopyColumnToAfter copies a column after another (chainable)
func (r *RunnableGrid) CopyColumnToAfter(col, anchor string) *RunnableGrid {
	return r.columnPair(col, anchor, func(c, a ColumnID) error {
		_, err := r.grid.CopyColumnToAfter(c, a)
		return err
	})
}

// CopyRowToBefore copies a row before another (chainable)
func (r *RunnableGrid) CopyRowToBefore(row, anchor string) *RunnableGrid {
	return r.rowPair(row, anchor, func(c, a RowID) error {
		_, err := r.grid.CopyRowToBefore(c, a)
		return err
	})
}

// CopyRowToAfter copies a row after another (chainable)
func (r *RunnableGrid) CopyRowToAfter(row, anchor string) *RunnableGrid {
	return r.rowPair(row, anchor, func(c, a RowID) error {
		_, err := r.grid.CopyRowToAfter(c, a)
		return err
	})
}

// InsertColumnBefore inserts an empty column (chainable)
func (r *RunnableGrid) InsertColumnBefore(anchor string) *RunnableGrid {
	return r.columnPair(anchor, anchor, func(_, a ColumnID) error {
		_, err := r.grid.InsertColumnBefore(a)
		return err
	})
}

// InsertColumnAfter inserts an empty column (chainable)
func (r *RunnableGrid) InsertColumnAfter(anchor string) *RunnableGrid {
	return r.columnPair(anchor, anchor, func(_, a ColumnID) error {
		_, err := r.grid.InsertColumnAfter(a)
		return err
	})
}

// InsertRowBefore inserts an empty row (chainable)
func (r *RunnableGrid) InsertRowBefore(anchor string) *RunnableGrid {
	return r.rowPair(anchor, anchor, func(_, a RowID) error {
		_, err := r.grid.InsertRowBefore(a)
		return err
	})
}

// InsertRowAfter inserts an empty row (chainable)
func (r *RunnableGrid) InsertRowAfter(anchor string) *RunnableGrid {
	return r.rowPair(anchor, anchor, func(_, a RowID) error {
		_, err := r.grid.InsertRowAfter(a)
		return err
	})
}

// RemoveColumn removes a column (chainable)
func (r *RunnableGrid) RemoveColumn(col string) *RunnableGrid {
	return r.columnPair(col, col, func(c, _ ColumnID) error {
		return r.grid.RemoveColumn(c)
	})
}

// RemoveRow removes a row (chainable)
func (r *RunnableGrid) RemoveRow(row string) *RunnableGrid {
	return r.rowPair(row, row, func(c, _ RowID) error {
		return r.grid.RemoveRow(c)
	})
}

// View is a helper to get the current view of a single cell.
// example: v := NewRunnableGrid(size, printLn).Set("A1", "10").Set("A2", "=A1*2").View("A2")
func (r *RunnableGrid) View(address string) CellView {
	if r.err != nil {
		return CellView{}
	}
	key, err := r.grid.Address(address)
	if err != nil {
		r.err = err
		return CellView{}
	}
	view, err := r.grid.View(key.Column, key.Row)
	if err != nil {
		r.err = err
	}
	return view
}

// Value is a helper to get the value of a single cell
func (r *RunnableGrid) Value(address string) Primitive {
	return r.View(address).Value
}

// Input is a helper to get the editable text of a single cell
func (r *RunnableGrid) Input(address string) string {
	if r.err != nil {
		return ""
	}
	key, err := r.grid.Address(address)
	if err != nil {
		r.err = err
		return ""
	}
	text, err := r.grid.InputText(key.Column, key.Row)
	if err != nil {
		r.err = err
	}
	return text
}

// Log logs the view of a cell using the provided PrintLn function (chainable)
func (r *RunnableGrid) Log(address string) *RunnableGrid {
	view := r.View(address)
	if r.err != nil {
		return r
	}

	var output string
	switch {
	case !view.OK:
		output = fmt.Sprintf("%s: %s", address, strings.ReplaceAll(view.Short(), "\n", " "))
	case view.Display == "":
		output = fmt.Sprintf("%s: <empty>", address)
	default:
		output = fmt.Sprintf("%s: %s", address, view.Display)
	}

	r.printLn(output)
	return r
}

// Run returns the grid and any error. typically the last method in the
// chain
func (r *RunnableGrid) Run() (*Grid, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.grid, nil
}

// Error returns the current error state
func (r *RunnableGrid) Error() error {
	return r.err
}

// CheckError logs the current error using the PrintLn function (chainable)
func (r *RunnableGrid) CheckError() *RunnableGrid {
	if r.err != nil {
		r.printLn(fmt.Sprintf("ERROR: %v", r.err))
	} else {
		r.printLn("No errors")
	}
	return r
}

// Grid returns the underlying grid. use with caution as it bypasses error
// tracking.
func (r *RunnableGrid) Grid() *Grid {
	return r.grid
}

// Reset clears the error state (chainable)
func (r *RunnableGrid) Reset() *RunnableGrid {
	if r.grid != nil {
		r.err = nil
	}
	return r
}

// OnError allows error handling in the chain
func (r *RunnableGrid) OnError(fn func(error) error) *RunnableGrid {
	if r.err != nil {
		r.err = fn(r.err)
	}
	return r
}

// Must panics if there's an error (chainable). useful for ensuring
// critical operations succeed
func (r *RunnableGrid) Must() *RunnableGrid {
	if r.err != nil {
		panic(r.err)
	}
	return r
}
