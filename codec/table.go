package codec

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Table is a row-indexed grid of string cells, the value type of the .csv
// codec. Index[i] labels Rows[i]; every row has len(Columns) cells.
type Table struct {
	IndexName string
	Columns   []string
	Index     []string
	Rows      [][]string
}

// NewTable builds a table labelled 0..n-1, the default row index.
func NewTable(columns []string, rows ...[]string) *Table {
	t := &Table{
		Columns: slices.Clone(columns),
		Index:   make([]string, len(rows)),
		Rows:    make([][]string, len(rows)),
	}
	for i, r := range rows {
		t.Index[i] = strconv.Itoa(i)
		t.Rows[i] = slices.Clone(r)
	}
	return t
}

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]string, bool) {
	j := slices.Index(t.Columns, name)
	if j < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[j]
	}
	return out, true
}

// Equal reports row and column equality, index included.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.IndexName != o.IndexName || !slices.Equal(t.Columns, o.Columns) || !slices.Equal(t.Index, o.Index) {
		return false
	}
	return slices.EqualFunc(t.Rows, o.Rows, slices.Equal[[]string])
}

func (t *Table) validate() error {
	if len(t.Index) != len(t.Rows) {
		return fmt.Errorf("table has %d index labels for %d rows", len(t.Index), len(t.Rows))
	}
	for i, r := range t.Rows {
		if len(r) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(r), len(t.Columns))
		}
	}
	return nil
}

var errEmptyCSV = errors.New("csv has no header row")
