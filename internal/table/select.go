package table

import (
	"sort"
	"strings"
)

// SelectColumns projects the table onto names, in the order given. Rows are
// untouched. Any unknown name fails with a ColumnNotFoundError.
func SelectColumns(t *Table, names []string) (*Table, error) {
	idx, err := t.lookup(names)
	if err != nil {
		return nil, err
	}
	cols := make([]*Column, len(idx))
	seen := make(map[string]struct{}, len(idx))
	for k, i := range idx {
		c := t.cols[i]
		if _, dup := seen[c.name]; dup {
			return nil, &DuplicateColumnError{Name: c.name}
		}
		seen[c.name] = struct{}{}
		cols[k] = c
	}
	return withRows(cols, t.rows), nil
}

// DropColumns removes the named columns. Any unknown name fails with a
// ColumnNotFoundError.
func DropColumns(t *Table, names []string) (*Table, error) {
	idx, err := t.lookup(names)
	if err != nil {
		return nil, err
	}
	drop := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		drop[i] = struct{}{}
	}
	cols := make([]*Column, 0, len(t.cols)-len(drop))
	for i, c := range t.cols {
		if _, ok := drop[i]; !ok {
			cols = append(cols, c)
		}
	}
	return withRows(cols, t.rows), nil
}

// SelectKinds keeps the columns whose kind is one of kinds, in table order.
func SelectKinds(t *Table, kinds ...Kind) *Table {
	want := make(map[Kind]struct{}, len(kinds))
	for _, k := range kinds {
		want[k] = struct{}{}
	}
	var cols []*Column
	for _, c := range t.cols {
		if _, ok := want[c.kind]; ok {
			cols = append(cols, c)
		}
	}
	return withRows(cols, t.rows)
}

// FilterRows keeps the rows for which keep returns true, in their original order.
// A nil predicate keeps every row.
func FilterRows(t *Table, keep Predicate) *Table {
	if keep == nil {
		return t.take(allRows(t.rows))
	}
	rows := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(t.Row(i)) {
			rows = append(rows, i)
		}
	}
	return t.take(rows)
}

// Duplicated marks every row whose key tuple was already seen earlier in the table.
// With no keys the whole row is the key. Missing values compare equal to each other.
func Duplicated(t *Table, keys []string) ([]bool, error) {
	idx, err := t.keyIndexes(keys)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, t.rows)
	out := make([]bool, t.rows)
	for i := 0; i < t.rows; i++ {
		k := t.rowKey(i, idx)
		if _, ok := seen[k]; ok {
			out[i] = true
			continue
		}
		seen[k] = struct{}{}
	}
	return out, nil
}

// DropDuplicates keeps the first row for each distinct key tuple. With no keys the
// whole row is compared. The result is stable with respect to input order, which
// makes the operation idempotent.
func DropDuplicates(t *Table, keys []string) (*Table, error) {
	dup, err := Duplicated(t, keys)
	if err != nil {
		return nil, err
	}
	rows := make([]int, 0, t.rows)
	for i, d := range dup {
		if !d {
			rows = append(rows, i)
		}
	}
	return t.take(rows), nil
}

// RenameColumns renames columns according to mapping (old name to new name).
// Unmapped columns keep their names. An unknown source name fails with a
// ColumnNotFoundError; a collision in the resulting names fails with a
// DuplicateColumnError.
func RenameColumns(t *Table, mapping map[string]string) (*Table, error) {
	from := make([]string, 0, len(mapping))
	for k := range mapping {
		from = append(from, k)
	}
	sort.Strings(from)
	if _, err := t.lookup(from); err != nil {
		return nil, err
	}
	cols := make([]*Column, len(t.cols))
	seen := make(map[string]struct{}, len(t.cols))
	for i, c := range t.cols {
		name := c.name
		if to, ok := mapping[name]; ok {
			name = to
		}
		if _, dup := seen[name]; dup {
			return nil, &DuplicateColumnError{Name: name}
		}
		seen[name] = struct{}{}
		if name != c.name {
			cols[i] = c.renamed(name)
		} else {
			cols[i] = c
		}
	}
	return withRows(cols, t.rows), nil
}

// Head returns the first n rows (all rows if n exceeds the row count).
func Head(t *Table, n int) *Table {
	n = clampRows(n, t.rows)
	return t.take(allRows(n))
}

// Tail returns the last n rows.
func Tail(t *Table, n int) *Table {
	n = clampRows(n, t.rows)
	rows := make([]int, n)
	for i := range rows {
		rows[i] = t.rows - n + i
	}
	return t.take(rows)
}

// SortKey names a sort column and direction.
type SortKey struct {
	Column     string `yaml:"column" json:"column"`
	Descending bool   `yaml:"desc" json:"desc"`
}

// SortBy orders rows by keys, earlier keys taking precedence. The sort is stable and
// missing values always go last, whatever the direction.
func SortBy(t *Table, keys ...SortKey) (*Table, error) {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Column
	}
	idx, err := t.lookup(names)
	if err != nil {
		return nil, err
	}
	rows := allRows(t.rows)
	sort.SliceStable(rows, func(a, b int) bool {
		ra, rb := rows[a], rows[b]
		for k, j := range idx {
			va, vb := t.cols[j].vals[ra], t.cols[j].vals[rb]
			if va.IsNull() || vb.IsNull() {
				if va.IsNull() == vb.IsNull() {
					continue
				}
				return vb.IsNull()
			}
			c := Compare(va, vb)
			if c == 0 {
				continue
			}
			if keys[k].Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return t.take(rows), nil
}

func (t *Table) keyIndexes(keys []string) ([]int, error) {
	if len(keys) == 0 {
		return allRows(len(t.cols)), nil
	}
	return t.lookup(keys)
}

func (t *Table) rowKey(i int, idx []int) string {
	var b strings.Builder
	for _, j := range idx {
		writeKey(&b, t.cols[j].vals[i])
	}
	return b.String()
}

func allRows(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func clampRows(n, rows int) int {
	if n < 0 {
		return 0
	}
	if n > rows {
		return rows
	}
	return n
}
