package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Table is an ordered set of uniquely named numeric columns that share one
// time axis. Rows are timepoints.
//
// A Table is never mutated after construction: every method that changes
// the shape or content returns a new Table.
type Table struct {
	columns []string
	index   map[string]int
	rows    int

	// data is rows×len(columns). It is nil when the table has no columns
	// or no rows, since gonum matrices cannot be empty.
	data *mat.Dense
}

// NewTable builds a table from column names and column vectors.
// All columns must have the same length and names must be unique.
func NewTable(names []string, cols [][]float64) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("%d names for %d columns: %w", len(names), len(cols), ErrDataShape)
	}
	if len(cols) == 0 {
		return EmptyTable(0), nil
	}
	rows := len(cols[0])
	for i, c := range cols {
		if len(c) != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d: %w", names[i], len(c), rows, ErrDataShape)
		}
	}
	t := &Table{
		columns: append([]string(nil), names...),
		index:   make(map[string]int, len(names)),
		rows:    rows,
	}
	for i, n := range names {
		if _, dup := t.index[n]; dup {
			return nil, fmt.Errorf("duplicate column %q: %w", n, ErrDataShape)
		}
		t.index[n] = i
	}
	if rows > 0 {
		t.data = mat.NewDense(rows, len(cols), nil)
		for j, c := range cols {
			t.data.SetCol(j, c)
		}
	}
	return t, nil
}

// NewTableFromMatrix wraps a rows×len(names) matrix. The matrix is copied.
func NewTableFromMatrix(names []string, m mat.Matrix) (*Table, error) {
	r, c := m.Dims()
	if c != len(names) {
		return nil, fmt.Errorf("%d names for %d columns: %w", len(names), c, ErrDataShape)
	}
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = mat.Col(nil, j, m)
	}
	t, err := NewTable(names, cols)
	if err != nil {
		return nil, err
	}
	t.rows = r
	return t, nil
}

// EmptyTable returns a table with the given number of rows and no columns.
func EmptyTable(rows int) *Table {
	return &Table{index: map[string]int{}, rows: rows}
}

// Rows returns the number of timepoints.
func (t *Table) Rows() int { return t.rows }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrMissingData)
	}
	return t.ColumnAt(j), nil
}

// ColumnAt returns a copy of column j.
func (t *Table) ColumnAt(j int) []float64 {
	if t.data == nil {
		return make([]float64, t.rows)
	}
	return mat.Col(nil, j, t.data)
}

// Matrix returns a copy of the underlying rows×columns matrix, or nil for
// an empty table.
func (t *Table) Matrix() *mat.Dense {
	if t.data == nil {
		return nil
	}
	return mat.DenseCopyOf(t.data)
}

// Select returns a table holding only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([][]float64, len(names))
	for i, n := range names {
		c, err := t.Column(n)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	if len(names) == 0 {
		return EmptyTable(t.rows), nil
	}
	return NewTable(names, cols)
}

// With returns a copy of the table with an extra column appended.
func (t *Table) With(name string, values []float64) (*Table, error) {
	if len(values) != t.rows && t.NumColumns() > 0 {
		return nil, fmt.Errorf("column %q has %d rows, want %d: %w", name, len(values), t.rows, ErrDataShape)
	}
	names, cols := t.split()
	return NewTable(append(names, name), append(cols, values))
}

// Join concatenates the columns of other onto t. Row counts must match and
// column names must stay unique.
func (t *Table) Join(other *Table) (*Table, error) {
	if other == nil || other.NumColumns() == 0 {
		return t, nil
	}
	if t.NumColumns() == 0 {
		if t.rows != other.rows && t.rows != 0 {
			return nil, fmt.Errorf("joining %d rows onto %d: %w", other.rows, t.rows, ErrDataShape)
		}
		return other, nil
	}
	if t.rows != other.rows {
		return nil, fmt.Errorf("joining %d rows onto %d: %w", other.rows, t.rows, ErrDataShape)
	}
	names, cols := t.split()
	on, oc := other.split()
	return NewTable(append(names, on...), append(cols, oc...))
}

// SelectRows returns the rows at the given indices, in order.
func (t *Table) SelectRows(idx []int) *Table {
	names, cols := t.split()
	for j, c := range cols {
		sub := make([]float64, len(idx))
		for i, r := range idx {
			sub[i] = c[r]
		}
		cols[j] = sub
	}
	if len(names) == 0 {
		return EmptyTable(len(idx))
	}
	out, _ := NewTable(names, cols)
	out.rows = len(idx)
	return out
}

// DropLeading removes the first n rows.
func (t *Table) DropLeading(n int) *Table {
	if n <= 0 {
		return t
	}
	if n > t.rows {
		n = t.rows
	}
	idx := make([]int, t.rows-n)
	for i := range idx {
		idx[i] = i + n
	}
	return t.SelectRows(idx)
}

func (t *Table) split() ([]string, [][]float64) {
	names := t.Columns()
	cols := make([][]float64, len(names))
	for j := range cols {
		cols[j] = t.ColumnAt(j)
	}
	return names, cols
}
