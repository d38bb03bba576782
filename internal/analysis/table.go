package analysis

import (
	"strconv"
	"strings"
)

// Table is the in-memory tabular structure handed to the engine by the
// ingestion layer. Cells are kept as raw strings; the engine parses them
// on demand so that a single bad cell never poisons a whole column.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Cell returns the raw value at (row, col), trimmed. Rows shorter than the
// header are treated as padded with empty cells.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}

	r := t.Rows[row]

	if col >= len(r) {
		return ""
	}

	return strings.TrimSpace(r[col])
}

// Float parses the cell at (row, col) as a plain float. The second return
// is false for missing or unparseable cells.
func (t *Table) Float(row, col int) (float64, bool) {
	raw := t.Cell(row, col)

	if raw == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(raw, 64)

	if err != nil {
		return 0, false
	}

	return v, true
}

// ColumnResolver locates a column within a Table. Resolvers are tried in
// order and the first match wins, so an exact-name resolver can be backed
// by a fuzzier fallback without scattering string probing through the
// engine.
type ColumnResolver interface {
	Resolve(t *Table) (int, bool)
	Describe() string
}

type exactColumn string

func (e exactColumn) Resolve(t *Table) (int, bool) {
	for i, name := range t.Columns {
		if strings.TrimSpace(name) == string(e) {
			return i, true
		}
	}

	return 0, false
}

func (e exactColumn) Describe() string {
	return string(e)
}

type containsColumn string

func (c containsColumn) Resolve(t *Table) (int, bool) {
	needle := strings.ToLower(string(c))

	for i, name := range t.Columns {
		if strings.Contains(strings.ToLower(strings.TrimSpace(name)), needle) {
			return i, true
		}
	}

	return 0, false
}

func (c containsColumn) Describe() string {
	return "*" + string(c) + "*"
}

// ExactColumn matches a trimmed header name exactly.
func ExactColumn(name string) ColumnResolver {
	return exactColumn(name)
}

// ContainsColumn matches the first header containing the given substring,
// case-insensitively.
func ContainsColumn(substr string) ColumnResolver {
	return containsColumn(substr)
}

// ResolveColumn tries each resolver in turn, returning the index of the
// first match. When nothing matches it fails with a MalformedInputError,
// since a missing required column is a contract violation by the producer
// of the table rather than dirty row data.
func ResolveColumn(t *Table, resolvers ...ColumnResolver) (int, error) {
	descriptions := make([]string, 0, len(resolvers))

	for _, resolver := range resolvers {
		if index, ok := resolver.Resolve(t); ok {
			return index, nil
		}

		descriptions = append(descriptions, resolver.Describe())
	}

	return 0, &MalformedInputError{Column: strings.Join(descriptions, ", ")}
}
