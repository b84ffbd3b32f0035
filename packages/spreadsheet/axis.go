package spreadsheet

import (
	"strconv"
	"strings"
)

// ColumnName converts a zero-based column index to its display name
// (A=0, B=1, ..., Z=25, AA=26, AB=27, ...). Negative indices have no name.
func ColumnName(index int) string {
	if index < 0 {
		return ""
	}
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append(b, byte('A'+(n-1)%26))
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// ColumnIndex converts a column display name back to its zero-based index.
// Lower case letters are accepted.
func ColumnIndex(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	index := 0
	for _, ch := range strings.ToUpper(name) {
		if ch < 'A' || ch > 'Z' {
			return 0, false
		}
		index = index*26 + int(ch-'A'+1)
	}
	return index - 1, true
}

// RowName converts a zero-based row index to its display name ("1", "2", ...).
func RowName(index int) string {
	if index < 0 {
		return ""
	}
	return strconv.Itoa(index + 1)
}

// RowIndex converts a row display name back to its zero-based index. Row
// names start at 1, so "0" is not a row.
func RowIndex(name string) (int, bool) {
	n, err := strconv.Atoi(name)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}
