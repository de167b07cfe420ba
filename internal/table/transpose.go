package table

import "fmt"

// Transpose swaps rows and columns. The values of the header column name the new
// columns, one per input row; the first output column, named after header, lists
// the remaining input column names. A new column keeps the shared kind of the cells
// it receives, or becomes text when they differ.
func Transpose(t *Table, header string) (*Table, error) {
	h, err := t.Column(header)
	if err != nil {
		return nil, err
	}
	var rest []*Column
	for _, c := range t.cols {
		if c.name != header {
			rest = append(rest, c)
		}
	}
	names := make([]Value, len(rest))
	kind, mixed := KindNumeric, false
	for j, c := range rest {
		names[j] = Text(c.name)
		if j == 0 {
			kind = c.kind
		} else if c.kind != kind {
			mixed = true
		}
	}
	first, err := ColumnOf(header, KindText, names)
	if err != nil {
		return nil, err
	}
	cols := []*Column{first}
	for i := 0; i < t.rows; i++ {
		v := h.vals[i]
		if v.IsNull() {
			return nil, fmt.Errorf("transpose: header column %q is missing a value at row %d", header, i)
		}
		vals := make([]Value, len(rest))
		for j, c := range rest {
			vals[j] = c.vals[i]
			if mixed && !vals[j].IsNull() {
				vals[j] = Text(vals[j].String())
			}
		}
		k := kind
		if mixed || len(rest) == 0 {
			k = KindText
		}
		cols = append(cols, &Column{name: v.String(), kind: k, vals: retag(vals, k)})
	}
	return New(cols...)
}

func retag(vals []Value, kind Kind) []Value {
	for i, v := range vals {
		if v.IsNull() {
			vals[i] = Null(kind)
		}
	}
	return vals
}
