package spreadsheet

import (
	"fmt"
	"math"
)

const (
	msgSelfReference     = "Self-Reference"
	msgCircularReference = "Circular reference"
	msgReferenceError    = "Reference has error\n"
	msgDependencyError   = "Dependency has error"
)

// ExprValue is the result of one expression node: a value, or an error
// message carried by value.
type ExprValue struct {
	OK    bool
	Value Primitive
	Error string
	Code  ErrorCode
}

func failed(code ErrorCode, message string) ExprValue {
	return ExprValue{Error: message, Code: code}
}

// Resolution is the concrete cell a structural location points at right
// now, or the reason it points at nothing.
type Resolution struct {
	Key     CellKey
	Failure string
}

// Resolver maps structural locations to cells. The Grid implements it.
type Resolver interface {
	// Resolve follows loc as seen from the cell at from, emitting again
	// whenever the ordering moves the target.
	Resolve(from CellKey, loc Location) Stream[Resolution]
	// View returns the live view of a cell.
	View(key CellKey) (Stream[CellView], error)
}

// Env is what an evaluation needs besides the cell's own properties.
type Env struct {
	Self     CellKey
	Resolver Resolver
	Graph    *DependencyGraph

	// Track records the references of this evaluation as graph edges. Edit
	// previews only check for cycles without claiming edges.
	Track bool
}

// Evaluate builds the live view of a cell from its properties.
func Evaluate(props CellProperties, env Env) Stream[CellView] {
	if !props.Valid {
		return Const(CellView{Formula: true, Error: props.Error, Code: ErrorCodeValue})
	}

	node := props.Node
	switch node.Kind {
	case KindNumber:
		return Const(CellView{OK: true, Value: node.Number, Display: formatNumber(node.Number)})
	case KindText:
		return Const(CellView{OK: true, Value: node.Text, Display: node.Text})
	case KindExpression:
		return Map(compile(node.Expr, env), func(v ExprValue) CellView {
			if !v.OK {
				return CellView{Formula: true, Error: v.Error, Code: v.Code}
			}
			return CellView{Formula: true, OK: true, Value: v.Value, Display: displayString(v.Value)}
		})
	default:
		return Const(CellView{OK: true, Value: 0.0, Display: ""})
	}
}

// compile turns an expression tree into a tree of streams, one per node.
func compile(expr *ExprNode[Location], env Env) Stream[ExprValue] {
	switch expr.Kind {
	case ExprReference:
		return compileReference(expr.Ref, env)
	case ExprBinaryOp:
		op := expr.Op
		return Combine(compile(expr.Left, env), compile(expr.Right, env), func(l, r ExprValue) ExprValue {
			return applyOperator(op, l, r)
		})
	default:
		return Const(ExprValue{OK: true, Value: expr.Literal})
	}
}

func compileReference(loc Location, env Env) Stream[ExprValue] {
	resolved := Distinct(env.Resolver.Resolve(env.Self, loc))
	return Switch(resolved, func(r Resolution) Stream[ExprValue] {
		switch {
		case r.Failure != "":
			return Const(failed(ErrorCodeRef, r.Failure))
		case r.Key == env.Self:
			return Const(failed(ErrorCodeRef, msgSelfReference))
		}
		return referenceTo(r.Key, env)
	})
}

// referenceTo subscribes to the view of target. If target already reads
// the evaluating cell, directly or through other cells, subscribing would
// close a cycle: a circular error is emitted instead, and the check is
// retried whenever the graph loses an edge.
func referenceTo(target CellKey, env Env) Stream[ExprValue] {
	return streamFunc[ExprValue](func(emit func(ExprValue)) func() {
		var (
			inner   func()
			unwatch func()
			edge    bool
			done    bool
			attach  func()
		)
		attach = func() {
			unwatch = nil
			if done {
				return
			}
			if env.Graph != nil && env.Graph.Reaches(target, env.Self) {
				emit(failed(ErrorCodeRef, msgCircularReference))
				unwatch = env.Graph.OnRelease(attach)
				return
			}
			if env.Graph != nil && env.Track {
				env.Graph.AddCellDependency(env.Self, target)
				edge = true
			}
			view, err := env.Resolver.View(target)
			if err != nil {
				emit(failed(ErrorCodeRef, "Cell does not exist"))
				return
			}
			inner = view.Subscribe(func(v CellView) {
				if v.OK {
					emit(ExprValue{OK: true, Value: v.Value})
					return
				}
				code := v.Code
				if code == ErrorCodeNone {
					code = ErrorCodeRef
				}
				emit(failed(code, msgReferenceError+v.Error))
			})
		}
		attach()

		return func() {
			done = true
			if unwatch != nil {
				unwatch()
			}
			if inner != nil {
				inner()
			}
			if edge {
				env.Graph.RemoveCellDependency(env.Self, target)
			}
		}
	})
}

// applyOperator evaluates a binary operator over two operand results. A
// failed operand short-circuits without trying the operator.
func applyOperator(op Operator, left, right ExprValue) ExprValue {
	if !left.OK || !right.OK {
		code := left.Code
		if left.OK {
			code = right.Code
		}
		return failed(code, msgDependencyError)
	}

	value, err := operate(op, left.Value, right.Value)
	if err != nil {
		return failed(ErrorCodeValue, fmt.Sprintf("%s error\nCould not evaluate (%s %s %s)",
			op, displayString(left.Value), op, displayString(right.Value)))
	}
	return ExprValue{OK: true, Value: value}
}

func operate(op Operator, left, right Primitive) (result Primitive, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operator %s panicked: %v", op, r)
		}
	}()

	if op == OpAdd {
		_, leftText := left.(string)
		_, rightText := right.(string)
		if leftText || rightText {
			return displayString(left) + displayString(right), nil
		}
	}

	l, ok := toNumber(left)
	if !ok {
		return nil, fmt.Errorf("left operand %v is not a number", left)
	}
	r, ok := toNumber(right)
	if !ok {
		return nil, fmt.Errorf("right operand %v is not a number", right)
	}

	switch op {
	case OpAdd:
		return l + r, nil
	case OpSubtract:
		return l - r, nil
	case OpMultiply:
		return l * r, nil
	case OpDivide:
		// IEEE semantics: x/0 is ±Inf, 0/0 is NaN
		return l / r, nil
	case OpPower:
		return math.Pow(l, r), nil
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}
