package spreadsheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// referenceRe matches a single cell reference, each axis optionally
	// pinned with $.
	referenceRe = regexp.MustCompile(`^\s*(\$?)([A-Z]{1,3})(\$?)([0-9]+)\s*$`)

	// operationRe splits at the leftmost operator. The left side is lazy, so
	// "1+2+3" splits into "1" and "2+3".
	operationRe = regexp.MustCompile(`^(.+?)\s*([+\-/]|\*{1,2})\s*(.+)$`)
)

// ParseCell parses raw cell text. Text starting with "=" is a formula, text
// that reads as a number is a number and anything else is kept as text.
// Only formulas can fail to parse.
func ParseCell(input string) (CellNode[SymbolicRef], error) {
	switch {
	case input == "":
		return CellNode[SymbolicRef]{Kind: KindEmpty}, nil
	case input[0] == '=':
		expr, err := ParseExpression(input[1:])
		if err != nil {
			return CellNode[SymbolicRef]{}, err
		}
		return CellNode[SymbolicRef]{Kind: KindExpression, Expr: expr}, nil
	}

	if n, ok := parseNumber(input); ok {
		return CellNode[SymbolicRef]{Kind: KindNumber, Number: n}, nil
	}
	return CellNode[SymbolicRef]{Kind: KindText, Text: input}, nil
}

// ParseExpression parses formula text without its leading "=". An operator
// split takes precedence over a reference, which takes precedence over a
// literal.
func ParseExpression(input string) (*ExprNode[SymbolicRef], error) {
	if m := operationRe.FindStringSubmatch(input); m != nil {
		left, err := ParseExpression(m[1])
		if err != nil {
			return nil, err
		}
		right, err := ParseExpression(m[3])
		if err != nil {
			return nil, err
		}
		return &ExprNode[SymbolicRef]{Kind: ExprBinaryOp, Left: left, Op: Operator(m[2]), Right: right}, nil
	}

	if ref, ok := ParseReference(input); ok {
		return &ExprNode[SymbolicRef]{Kind: ExprReference, Ref: ref}, nil
	}

	if lit, ok := parseLiteral(input); ok {
		return &ExprNode[SymbolicRef]{Kind: ExprLiteral, Literal: lit}, nil
	}

	return nil, newParseError(input)
}

// ParseReference parses a single reference like "B3", "$B3" or "$B$3".
func ParseReference(input string) (SymbolicRef, bool) {
	m := referenceRe.FindStringSubmatch(input)
	if m == nil {
		return SymbolicRef{}, false
	}
	return SymbolicRef{
		Column: AxisName{Position: positionOf(m[1]), Name: m[2]},
		Row:    AxisName{Position: positionOf(m[3]), Name: m[4]},
	}, true
}

func positionOf(marker string) Position {
	if marker == "$" {
		return Absolute
	}
	return Relative
}

// parseLiteral accepts JSON scalars: numbers, strings, booleans and null.
// Numbers too large for a float64 saturate to ±Inf.
func parseLiteral(input string) (Primitive, bool) {
	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	// anything after the value, e.g. `1 2` or `1)`
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	switch v := v.(type) {
	case json.Number:
		n, err := strconv.ParseFloat(v.String(), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, false
		}
		return n, true
	case nil, bool, string:
		return v, true
	default:
		return nil, false
	}
}

// parseNumber reads non-formula cell text as a number with the lenient
// rules of a JavaScript Number() conversion: surrounding whitespace is
// ignored, "Infinity" is a number and hex/octal/binary prefixes are
// accepted.
func parseNumber(input string) (float64, bool) {
	s := strings.TrimSpace(input)
	if s == "" || strings.ContainsRune(s, '_') {
		return 0, false
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return 0, false
			}
			return float64(n), true
		}
	}

	lower := strings.ToLower(s)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(lower, "x") || strings.Contains(lower, "p") {
		return 0, false
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// overflow saturates to ±Inf and underflow to 0
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return n, true
		}
		return 0, false
	}
	return n, true
}

// literalText renders a literal so that parseLiteral reads it back to the
// same value.
func literalText(v Primitive) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err != nil {
			return strconv.Quote(x)
		}
		return strings.TrimSuffix(buf.String(), "\n")
	default:
		return displayString(v)
	}
}

// ExpressionString renders a parsed expression back to formula text
// (without the leading "=").
func ExpressionString(expr *ExprNode[SymbolicRef]) string {
	return renderExpression(expr, SymbolicRef.String)
}

func renderExpression[R any](expr *ExprNode[R], ref func(R) string) string {
	switch expr.Kind {
	case ExprReference:
		return ref(expr.Ref)
	case ExprBinaryOp:
		return renderExpression(expr.Left, ref) + string(expr.Op) + renderExpression(expr.Right, ref)
	default:
		return literalText(expr.Literal)
	}
}
