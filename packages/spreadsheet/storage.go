package spreadsheet

// cellStore is the arena owning every cell, keyed by column then row. A
// cell exists exactly as long as both of its ids are in the grid; removal
// is explicit.
type cellStore struct {
	columns map[ColumnID]map[RowID]*Cell
}

func newCellStore() *cellStore {
	return &cellStore{columns: make(map[ColumnID]map[RowID]*Cell)}
}

func (s *cellStore) get(key CellKey) (*Cell, bool) {
	rows, ok := s.columns[key.Column]
	if !ok {
		return nil, false
	}
	c, ok := rows[key.Row]
	return c, ok
}

func (s *cellStore) put(c *Cell) {
	rows, ok := s.columns[c.key.Column]
	if !ok {
		rows = make(map[RowID]*Cell)
		s.columns[c.key.Column] = rows
	}
	rows[c.key.Row] = c
}

// removeColumn drops every cell of col and returns them.
func (s *cellStore) removeColumn(col ColumnID) []*Cell {
	rows := s.columns[col]
	removed := make([]*Cell, 0, len(rows))
	for _, c := range rows {
		removed = append(removed, c)
	}
	delete(s.columns, col)
	return removed
}

// removeRow drops the cell of row in every column and returns them.
func (s *cellStore) removeRow(row RowID) []*Cell {
	var removed []*Cell
	for _, rows := range s.columns {
		if c, ok := rows[row]; ok {
			removed = append(removed, c)
			delete(rows, row)
		}
	}
	return removed
}
