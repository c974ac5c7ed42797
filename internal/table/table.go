// Package table holds spreadsheet data in memory as string cells with an
// optional index column.
package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrMissingColumn = errors.New("no such column")
	ErrNotNumeric    = errors.New("value is not numeric")
)

// Table is a header plus rows of string cells. Every row has exactly one
// cell per column.
type Table struct {
	columns []string
	rows    [][]string
	index   int // position in columns, -1 when no index is set
}

// New builds a table, padding or truncating rows to the header width.
func New(columns []string, rows [][]string) *Table {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = strings.TrimSpace(c)
	}

	t := &Table{columns: cols, index: -1}
	for _, row := range rows {
		r := make([]string, len(cols))
		copy(r, row)
		t.rows = append(t.rows, r)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Columns returns the non-index column names in sheet order.
func (t *Table) Columns() []string {
	out := make([]string, 0, len(t.columns))
	for i, c := range t.columns {
		if i != t.index {
			out = append(out, c)
		}
	}
	return out
}

// HasColumn reports whether name is a non-index column.
func (t *Table) HasColumn(name string) bool {
	i := t.position(name)
	return i >= 0 && i != t.index
}

// SetIndex moves the named column into the index. It no longer shows up in
// Columns or HasColumn but can still be read by name.
func (t *Table) SetIndex(name string) error {
	i := t.position(name)
	if i < 0 || i == t.index {
		return fmt.Errorf("set index %q: %w", name, ErrMissingColumn)
	}
	t.index = i
	return nil
}

// IndexName returns the index column name, or "" when no index is set.
func (t *Table) IndexName() string {
	if t.index < 0 {
		return ""
	}
	return t.columns[t.index]
}

// Index returns the row labels. Without an index they are row ordinals.
func (t *Table) Index() []string {
	out := make([]string, len(t.rows))
	for r, row := range t.rows {
		if t.index < 0 {
			out[r] = strconv.Itoa(r)
		} else {
			out[r] = row[t.index]
		}
	}
	return out
}

// Strings returns the cells of a column or of the index, by name.
func (t *Table) Strings(name string) ([]string, error) {
	i := t.position(name)
	if i < 0 {
		return nil, fmt.Errorf("column %q: %w", name, ErrMissingColumn)
	}
	out := make([]string, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, nil
}

// Floats parses a column as numbers. Empty cells become NaN.
func (t *Table) Floats(name string) ([]float64, error) {
	cells, err := t.Strings(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for r, cell := range cells {
		v, err := ParseNumber(cell)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, r+1, err)
		}
		out[r] = v
	}
	return out, nil
}

// Filter returns a new table with the rows whose cell in column equals value.
// The index setting is kept.
func (t *Table) Filter(column, value string) (*Table, error) {
	i := t.position(column)
	if i < 0 {
		return nil, fmt.Errorf("filter on %q: %w", column, ErrMissingColumn)
	}
	value = strings.TrimSpace(value)

	out := &Table{columns: t.columns, index: t.index}
	for _, row := range t.rows {
		if strings.TrimSpace(row[i]) == value {
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// Unique returns the distinct trimmed values of a column in order of first
// appearance.
func (t *Table) Unique(column string) ([]string, error) {
	cells, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(cells))
	var out []string
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

func (t *Table) position(name string) int {
	name = strings.TrimSpace(name)
	for i, c := range t.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ParseNumber parses a spreadsheet cell. A comma is accepted as the decimal
// separator and an empty cell is NaN.
func ParseNumber(val string) (float64, error) {
	val = strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
	if val == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", val, ErrNotNumeric)
	}
	return v, nil
}
