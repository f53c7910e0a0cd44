package loader

import (
	"math"
	"strconv"
	"strings"
)

// Table is the raw header + cells view of an uploaded sheet.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t *Table) Len() int {
	return len(t.Rows)
}

func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

func (t *Table) HasColumn(column string) bool {
	return t.Index(column) >= 0
}

// Column returns the cells of column, or nil when the column does not exist.
func (t *Table) Column(column string) []string {
	idx := t.Index(column)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// Select returns a table holding only the rows at the given indices, in that order.
func (t *Table) Select(indices []int) *Table {
	rows := make([][]string, 0, len(indices))
	for _, i := range indices {
		rows = append(rows, t.Rows[i])
	}
	return &Table{Columns: t.Columns, Rows: rows}
}

// NumericColumns lists columns, except the excluded ones, whose every non-empty
// cell is a number and that hold at least one number.
func (t *Table) NumericColumns(exclude ...string) []string {
	var out []string
	for ci, name := range t.Columns {
		if name == "" || contains(exclude, name) {
			continue
		}
		present, numeric := 0, true
		for _, row := range t.Rows {
			_, ok, err := ParseNumber(row[ci])
			if err != nil {
				numeric = false
				break
			}
			if ok {
				present++
			}
		}
		if numeric && present > 0 {
			out = append(out, name)
		}
	}
	return out
}

// ParseNumber reads a numeric cell. ok is false for empty or NaN-like cells.
func ParseNumber(cell string) (v float64, ok bool, err error) {
	s := strings.TrimSpace(cell)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "n/a", "#n/a":
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
