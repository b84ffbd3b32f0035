package spreadsheet

import (
	"strings"

	"github.com/google/uuid"
)

// Primitive represents basic cell value types.
// types:
//   - float64: numeric values
//   - string: text values
//   - bool: boolean literals (true/false)
//   - nil: the null literal
type Primitive any

// ErrorCode represents standard spreadsheet error codes following
// Excel conventions. A failed CellView carries one next to its message.
type ErrorCode uint8

const (
	ErrorCodeNone  ErrorCode = 0
	ErrorCodeValue ErrorCode = 3 // #VALUE! - malformed input or wrong operand type
	ErrorCodeRef   ErrorCode = 4 // #REF! - invalid, circular or vanished reference
	ErrorCodeOther ErrorCode = 8 // #ERROR! - all other errors
)

// ErrorMapper maps error code numbers to their string representations
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeValue: "#VALUE!",
	ErrorCodeRef:   "#REF!",
	ErrorCodeOther: "#ERROR!",
}

func (c ErrorCode) String() string {
	if s, ok := ErrorMapper[c]; ok {
		return s
	}
	return ""
}

// ColumnID identifies a column independently of its position. IDs are never
// reused, even after the column is removed from the grid.
type ColumnID string

// RowID identifies a row independently of its position.
type RowID string

// CellKey is the (column, row) identity pair that owns a cell.
type CellKey struct {
	Column ColumnID
	Row    RowID
}

func newColumnID() ColumnID {
	return ColumnID("col_" + uuid.New().String())
}

func newRowID() RowID {
	return RowID("row_" + uuid.New().String())
}

// Position tells whether one axis of a reference is pinned to an identity
// (written with a leading $) or relative to the cell holding the formula.
type Position uint8

const (
	Relative Position = iota
	Absolute
)

// AxisName is one axis of a parsed reference: the display name as typed
// ("B", "12") and whether it carried a $ marker.
type AxisName struct {
	Position Position
	Name     string
}

func (a AxisName) String() string {
	if a.Position == Absolute {
		return "$" + a.Name
	}
	return a.Name
}

// SymbolicRef is a reference as written in cell text, not yet bound to the
// grid structure.
type SymbolicRef struct {
	Column AxisName
	Row    AxisName
}

func (r SymbolicRef) String() string {
	return r.Column.String() + r.Row.String()
}

// ColumnLocation is the bound column half of a reference: either a concrete
// ColumnID or a signed offset from the column of the evaluating cell.
type ColumnLocation struct {
	Position Position
	ID       ColumnID
	Offset   int
}

// RowLocation is the bound row half of a reference.
type RowLocation struct {
	Position Position
	ID       RowID
	Offset   int
}

// Location is a structural location: what a reference means once bound.
type Location struct {
	Column ColumnLocation
	Row    RowLocation
}

// CellKind tags the variants of CellNode.
type CellKind uint8

const (
	KindEmpty CellKind = iota
	KindNumber
	KindText
	KindExpression
)

// CellNode is the top level result of parsing cell text. Ref is SymbolicRef
// right after parsing and Location once bound.
type CellNode[Ref any] struct {
	Kind   CellKind
	Number float64
	Text   string
	Expr   *ExprNode[Ref]
}

// ExprKind tags the variants of ExprNode.
type ExprKind uint8

const (
	ExprLiteral ExprKind = iota
	ExprReference
	ExprBinaryOp
)

// Operator is one of the binary operators understood in formulas.
type Operator string

const (
	OpAdd      Operator = "+"
	OpSubtract Operator = "-"
	OpMultiply Operator = "*"
	OpDivide   Operator = "/"
	OpPower    Operator = "**"
)

// ExprNode is a formula expression tree.
type ExprNode[Ref any] struct {
	Kind ExprKind

	// ExprLiteral
	Literal Primitive

	// ExprReference
	Ref Ref

	// ExprBinaryOp
	Left  *ExprNode[Ref]
	Op    Operator
	Right *ExprNode[Ref]
}

// MapReferences rebuilds expr with every reference converted by fn. The
// first error returned by fn aborts the conversion.
func MapReferences[A, B any](expr *ExprNode[A], fn func(A) (B, error)) (*ExprNode[B], error) {
	switch expr.Kind {
	case ExprReference:
		ref, err := fn(expr.Ref)
		if err != nil {
			return nil, err
		}
		return &ExprNode[B]{Kind: ExprReference, Ref: ref}, nil
	case ExprBinaryOp:
		left, err := MapReferences(expr.Left, fn)
		if err != nil {
			return nil, err
		}
		right, err := MapReferences(expr.Right, fn)
		if err != nil {
			return nil, err
		}
		return &ExprNode[B]{Kind: ExprBinaryOp, Left: left, Op: expr.Op, Right: right}, nil
	default:
		return &ExprNode[B]{Kind: ExprLiteral, Literal: expr.Literal}, nil
	}
}

// CellProperties is the persistent state of a cell. Invalid input keeps the
// raw text so it stays editable.
type CellProperties struct {
	Valid bool
	Node  CellNode[Location]

	Raw   string
	Error string
}

var emptyProperties = CellProperties{Valid: true, Node: CellNode[Location]{Kind: KindEmpty}}

func invalidProperties(raw, message string) CellProperties {
	return CellProperties{Raw: raw, Error: message}
}

// Clone returns a deep copy of p. Column and row identities embedded in
// references are copied as-is, so absolute references keep their targets.
func (p CellProperties) Clone() CellProperties {
	out := p
	if p.Node.Expr != nil {
		out.Node.Expr, _ = MapReferences(p.Node.Expr, func(loc Location) (Location, error) {
			return loc, nil
		})
	}
	return out
}

// CellView is the derived display value of a cell. It is never stored,
// only computed from CellProperties and the views of referenced cells.
type CellView struct {
	Formula bool
	OK      bool
	Value   Primitive
	Display string
	Error   string
	Code    ErrorCode
}

// Short returns a single line for compact displays: the display text, or
// the error code followed by the first line of the error message.
func (v CellView) Short() string {
	if v.OK {
		return v.Display
	}
	first, _, _ := strings.Cut(v.Error, "\n")
	if v.Code == ErrorCodeNone {
		return first
	}
	return v.Code.String() + " " + first
}
