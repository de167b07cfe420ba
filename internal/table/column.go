package table

import (
	"fmt"
	"math"
	"time"
)

// Column is an immutable, named sequence of values of one kind.
type Column struct {
	name string
	kind Kind
	unit string
	vals []Value
}

// Descriptor summarizes a column's identity and type.
type Descriptor struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Unit     string `json:"unit,omitempty"`
	Nullable bool   `json:"nullable"`
}

// NewColumn builds a column from Go values. nil means missing; otherwise each value
// must be convertible to kind (any Go number for numeric, string for text, bool for
// boolean, time.Time for datetime, or a Value of the same kind).
func NewColumn(name string, kind Kind, values ...any) (*Column, error) {
	vals := make([]Value, len(values))
	for i, raw := range values {
		v, err := toValue(kind, raw)
		if err != nil {
			return nil, &TypeMismatchError{Column: name, Want: kind, Got: err.Error(), Row: i}
		}
		vals[i] = v
	}
	return &Column{name: name, kind: kind, vals: vals}, nil
}

// MustColumn is NewColumn that panics on error; intended for fixtures.
func MustColumn(name string, kind Kind, values ...any) *Column {
	c, err := NewColumn(name, kind, values...)
	if err != nil {
		panic(err)
	}
	return c
}

// ColumnOf builds a column from already-typed values. Every non-missing value must
// be of the column's kind; missing values are re-tagged with it.
func ColumnOf(name string, kind Kind, vals []Value) (*Column, error) {
	out := make([]Value, len(vals))
	for i, v := range vals {
		if v.IsNull() {
			out[i] = Null(kind)
			continue
		}
		if v.kind != kind {
			return nil, &TypeMismatchError{Column: name, Want: kind, Got: v.kind.String(), Row: i}
		}
		out[i] = v
	}
	return &Column{name: name, kind: kind, vals: out}, nil
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) Unit() string { return c.unit }
func (c *Column) Len() int     { return len(c.vals) }

// Value returns the i-th cell.
func (c *Column) Value(i int) Value { return c.vals[i] }

// Values returns a copy of the cells.
func (c *Column) Values() []Value {
	out := make([]Value, len(c.vals))
	copy(out, c.vals)
	return out
}

// Floats returns the non-missing numeric payloads in row order.
func (c *Column) Floats() []float64 {
	if c.kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.vals))
	for _, v := range c.vals {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.vals {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// Nullable reports whether the column holds any missing cell.
func (c *Column) Nullable() bool { return c.NullCount() > 0 }

// Descriptor returns the column's descriptor.
func (c *Column) Descriptor() Descriptor {
	return Descriptor{Name: c.name, Kind: c.kind, Unit: c.unit, Nullable: c.Nullable()}
}

// WithUnit returns a copy of the column carrying the given unit label.
func (c *Column) WithUnit(unit string) *Column {
	cp := *c
	cp.unit = unit
	return &cp
}

func (c *Column) renamed(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

func (c *Column) take(idx []int) *Column {
	vals := make([]Value, len(idx))
	for i, j := range idx {
		vals[i] = c.vals[j]
	}
	return &Column{name: c.name, kind: c.kind, unit: c.unit, vals: vals}
}

func toValue(kind Kind, raw any) (Value, error) {
	if raw == nil {
		return Null(kind), nil
	}
	if v, ok := raw.(Value); ok {
		if v.IsNull() {
			return Null(kind), nil
		}
		if v.kind != kind {
			return Value{}, fmt.Errorf("%s value", v.kind)
		}
		return v, nil
	}
	switch kind {
	case KindNumeric:
		if f, ok := asFloat(raw); ok {
			return Num(f), nil
		}
	case KindText:
		if s, ok := raw.(string); ok {
			return Text(s), nil
		}
	case KindBool:
		if b, ok := raw.(bool); ok {
			return Bool(b), nil
		}
	case KindDatetime:
		if t, ok := raw.(time.Time); ok {
			return Time(t), nil
		}
	}
	return Value{}, fmt.Errorf("%T", raw)
}

func asFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return math.NaN(), false
}
