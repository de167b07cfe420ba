// Package table holds the in-memory tabular data model and the column and row
// selection operations over it. Tables are immutable: every operation returns a new
// Table and leaves its input untouched.
package table

// Table is an ordered set of uniquely named, equal-length columns.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New assembles a table. Column names must be unique and all columns must have the
// same length.
func New(cols ...*Column) (*Table, error) {
	t := &Table{cols: make([]*Column, 0, len(cols)), index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := t.index[c.name]; dup {
			return nil, &DuplicateColumnError{Name: c.name}
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, &LengthMismatchError{Column: c.name, Want: t.rows, Got: c.Len()}
		}
		t.index[c.name] = i
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is New that panics on error; intended for fixtures.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// withRows builds a table from columns already known to be consistent.
func withRows(cols []*Column, rows int) *Table {
	t := &Table{cols: cols, index: make(map[string]int, len(cols)), rows: rows}
	for i, c := range cols {
		t.index[c.name] = i
	}
	return t
}

func (t *Table) NumRows() int { return t.rows }
func (t *Table) NumCols() int { return len(t.cols) }

// Shape returns (rows, columns).
func (t *Table) Shape() (int, int) { return t.rows, len(t.cols) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}
	return out
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, notFound(t.Columns(), name)
	}
	return t.cols[i], nil
}

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// Descriptors returns every column's descriptor in order.
func (t *Table) Descriptors() []Descriptor {
	out := make([]Descriptor, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Descriptor()
	}
	return out
}

// Row returns a view of the i-th row.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Records renders every row as display strings; missing cells are "".
func (t *Table) Records() [][]string {
	out := make([][]string, t.rows)
	for i := range out {
		out[i] = t.Row(i).Strings()
	}
	return out
}

// lookup resolves names to column indexes, failing on the first unknown name.
func (t *Table) lookup(names []string) ([]int, error) {
	idx := make([]int, len(names))
	for k, n := range names {
		i, ok := t.index[n]
		if !ok {
			return nil, notFound(t.Columns(), n)
		}
		idx[k] = i
	}
	return idx, nil
}

func (t *Table) take(rows []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.take(rows)
	}
	return withRows(cols, len(rows))
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// Get returns the cell in the named column.
func (r Row) Get(name string) (Value, bool) {
	j, ok := r.t.index[name]
	if !ok {
		return Value{}, false
	}
	return r.t.cols[j].vals[r.i], true
}

// At returns the cell in the j-th column.
func (r Row) At(j int) Value { return r.t.cols[j].vals[r.i] }

// Strings renders the row's cells for display.
func (r Row) Strings() []string {
	out := make([]string, len(r.t.cols))
	for j, c := range r.t.cols {
		out[j] = c.vals[r.i].String()
	}
	return out
}

// Predicate decides whether a row is kept by FilterRows. It must not retain the Row.
type Predicate func(Row) bool
