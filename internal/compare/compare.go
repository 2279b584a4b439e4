// Package compare normalizes tabular query output and compares two result
// sets cell by cell with numeric tolerance.
package compare

import (
	"fmt"
	"math"
	"strconv"
)

// Tolerance is the absolute difference under which two numeric cells are
// considered equal. It absorbs floating-point round-trip noise from the
// database.
const Tolerance = 1e-6

// Normalize converts raw driver rows to their canonical string form.
// NULL becomes the empty string; every other scalar is stringified.
func Normalize(rows [][]any) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = normalizeCell(cell)
		}
		out[i] = cells
	}
	return out
}

func normalizeCell(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Rows compares actual against expected row by row, column by column.
// Cells that both parse as numbers are compared with absolute Tolerance;
// everything else is exact string equality. Row order matters. The first
// discrepancy short-circuits with an addressed diagnostic.
func Rows(actual, expected [][]string) (bool, string) {
	if len(actual) != len(expected) {
		return false, fmt.Sprintf("row count mismatch: expected %d rows, got %d", len(expected), len(actual))
	}
	for i := range actual {
		if len(actual[i]) != len(expected[i]) {
			return false, fmt.Sprintf("row %d: column count mismatch: expected %d columns, got %d", i+1, len(expected[i]), len(actual[i]))
		}
		for j := range actual[i] {
			av, ev := actual[i][j], expected[i][j]
			if cellsEqual(av, ev) {
				continue
			}
			return false, fmt.Sprintf("row %d col %d: expected %q, got %q", i+1, j+1, ev, av)
		}
	}
	return true, ""
}

func cellsEqual(actual, expected string) bool {
	an, aerr := strconv.ParseFloat(actual, 64)
	en, eerr := strconv.ParseFloat(expected, 64)
	if aerr == nil && eerr == nil {
		return math.Abs(an-en) <= Tolerance
	}
	return actual == expected
}
