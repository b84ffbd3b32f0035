package spreadsheet

import (
	"fmt"
	"slices"
)

// Binder converts between references as written ("B3", "$B$3") and
// structural locations, against one snapshot of the grid ordering.
type Binder struct {
	Columns []ColumnID
	Rows    []RowID
}

// Bind converts ref into a Location as seen from the cell at ctx. Absolute
// axes are frozen to the identity currently at that position, relative axes
// become an offset from ctx.
func (b Binder) Bind(ref SymbolicRef, ctx CellKey) (Location, error) {
	col, err := b.bindColumn(ref.Column, ctx.Column)
	if err != nil {
		return Location{}, &BindError{Reference: ref.String(), Reason: err.Error()}
	}
	row, err := b.bindRow(ref.Row, ctx.Row)
	if err != nil {
		return Location{}, &BindError{Reference: ref.String(), Reason: err.Error()}
	}
	return Location{Column: col, Row: row}, nil
}

func (b Binder) bindColumn(name AxisName, from ColumnID) (ColumnLocation, error) {
	index, ok := ColumnIndex(name.Name)
	if !ok {
		return ColumnLocation{}, fmt.Errorf("invalid column name %q", name.Name)
	}
	if name.Position == Absolute {
		if index >= len(b.Columns) {
			return ColumnLocation{}, fmt.Errorf("column %s is out of range", name.Name)
		}
		return ColumnLocation{Position: Absolute, ID: b.Columns[index]}, nil
	}
	fromIndex := slices.Index(b.Columns, from)
	if fromIndex < 0 {
		return ColumnLocation{}, fmt.Errorf("current column no longer exists")
	}
	return ColumnLocation{Position: Relative, Offset: index - fromIndex}, nil
}

func (b Binder) bindRow(name AxisName, from RowID) (RowLocation, error) {
	index, ok := RowIndex(name.Name)
	if !ok {
		return RowLocation{}, fmt.Errorf("invalid row name %q", name.Name)
	}
	if name.Position == Absolute {
		if index >= len(b.Rows) {
			return RowLocation{}, fmt.Errorf("row %s is out of range", name.Name)
		}
		return RowLocation{Position: Absolute, ID: b.Rows[index]}, nil
	}
	fromIndex := slices.Index(b.Rows, from)
	if fromIndex < 0 {
		return RowLocation{}, fmt.Errorf("current row no longer exists")
	}
	return RowLocation{Position: Relative, Offset: index - fromIndex}, nil
}

// BindCell binds every reference of a parsed cell.
func (b Binder) BindCell(node CellNode[SymbolicRef], ctx CellKey) (CellNode[Location], error) {
	out := CellNode[Location]{Kind: node.Kind, Number: node.Number, Text: node.Text}
	if node.Kind != KindExpression {
		return out, nil
	}
	expr, err := MapReferences(node.Expr, func(ref SymbolicRef) (Location, error) {
		return b.Bind(ref, ctx)
	})
	if err != nil {
		return CellNode[Location]{}, err
	}
	out.Expr = expr
	return out, nil
}

// Unbind is the inverse of Bind: the reference as it would be typed in the
// cell at ctx today. Absolute identities that left the grid render as
// "#REF!". Relative offsets pointing above or left of the grid have no name
// and render as the first row or column, so re-applying the text shortens
// them. Offsets past the last row or column keep their name and survive.
func (b Binder) Unbind(loc Location, ctx CellKey) SymbolicRef {
	return SymbolicRef{Column: b.unbindColumn(loc.Column, ctx.Column), Row: b.unbindRow(loc.Row, ctx.Row)}
}

func (b Binder) unbindColumn(loc ColumnLocation, from ColumnID) AxisName {
	if loc.Position == Absolute {
		index := slices.Index(b.Columns, loc.ID)
		if index < 0 {
			return AxisName{Position: Absolute, Name: ErrorCodeRef.String()}
		}
		return AxisName{Position: Absolute, Name: ColumnName(index)}
	}
	index := max(slices.Index(b.Columns, from)+loc.Offset, 0)
	return AxisName{Position: Relative, Name: ColumnName(index)}
}

func (b Binder) unbindRow(loc RowLocation, from RowID) AxisName {
	if loc.Position == Absolute {
		index := slices.Index(b.Rows, loc.ID)
		if index < 0 {
			return AxisName{Position: Absolute, Name: ErrorCodeRef.String()}
		}
		return AxisName{Position: Absolute, Name: RowName(index)}
	}
	index := max(slices.Index(b.Rows, from)+loc.Offset, 0)
	return AxisName{Position: Relative, Name: RowName(index)}
}

// InputText re-renders stored cell properties as the text a user would
// edit: the raw text of invalid input, or the formula with references
// named as seen from ctx.
func (b Binder) InputText(props CellProperties, ctx CellKey) string {
	if !props.Valid {
		return props.Raw
	}
	switch props.Node.Kind {
	case KindNumber:
		return formatNumber(props.Node.Number)
	case KindText:
		return props.Node.Text
	case KindExpression:
		return "=" + renderExpression(props.Node.Expr, func(loc Location) string {
			return b.Unbind(loc, ctx).String()
		})
	default:
		return ""
	}
}

// Parse runs the parser and binds the result for the cell at ctx. Any
// failure becomes invalid properties carrying the raw input, so a bad
// edit never leaves the cell unusable.
func (b Binder) Parse(input string, ctx CellKey) (CellProperties, error) {
	parsed, err := ParseCell(input)
	if err != nil {
		return invalidProperties(input, fmt.Sprintf("Parse error\nFailed to parse [%s]", input)), err
	}
	node, err := b.BindCell(parsed, ctx)
	if err != nil {
		return invalidProperties(input, fmt.Sprintf("Reference error\n%s", err)), err
	}
	return CellProperties{Valid: true, Node: node}, nil
}
