package spreadsheet

import (
	"math"
	"strconv"
	"strings"
)

// displayString converts a value to its display text. Numbers print like a
// JavaScript String(number): integers without a fraction, exponent form
// only for very large or very small magnitudes.
func displayString(v Primitive) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatNumber(x)
	case string:
		return x
	default:
		return ""
	}
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		// covers -0 too
		return "0"
	}

	abs := math.Abs(n)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(n, 'e', -1, 64)
		// Go pads the exponent to two digits ("1e-07"); drop the padding
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		exp = strings.TrimLeft(exp[1:], "0")
		if exp == "" {
			exp = "0"
		}
		return mantissa + "e" + sign + exp
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// toNumber coerces an operand for arithmetic. Numeric strings convert the
// way a number cell would, booleans count as 1 and 0, null as 0.
func toNumber(value Primitive) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, true
		}
		return parseNumber(v)
	case nil:
		return 0, true
	default:
		return 0, false
	}
}
