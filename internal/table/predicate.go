package table

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Op is a comparison operator usable in a Condition.
type Op string

const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpGe       Op = "ge"
	OpLt       Op = "lt"
	OpLe       Op = "le"
	OpContains Op = "contains"
	OpIn       Op = "in"
	OpIsNull   Op = "isnull"
	OpNotNull  Op = "notnull"
)

var opAliases = map[string]Op{
	"==": OpEq, "=": OpEq, "!=": OpNe, "<>": OpNe,
	">": OpGt, ">=": OpGe, "<": OpLt, "<=": OpLe,
}

// Condition is a declarative row test against one column, e.g. {tree_dbh gt 50}.
type Condition struct {
	Column string `yaml:"column" json:"column"`
	Op     Op     `yaml:"op" json:"op"`
	Value  any    `yaml:"value,omitempty" json:"value,omitempty"`
}

// Compile resolves the condition against t's schema and returns a predicate. The
// literal is converted to the column's kind up front. Missing cells never satisfy a
// comparison except "ne" and "isnull".
func (c Condition) Compile(t *Table) (Predicate, error) {
	j, ok := t.index[c.Column]
	if !ok {
		return nil, notFound(t.Columns(), c.Column)
	}
	col := t.cols[j]
	op := c.Op
	if a, ok := opAliases[string(op)]; ok {
		op = a
	}
	switch op {
	case OpIsNull:
		return func(r Row) bool { return r.At(j).IsNull() }, nil
	case OpNotNull:
		return func(r Row) bool { return !r.At(j).IsNull() }, nil
	case OpContains:
		if col.kind != KindText {
			return nil, NewTypeMismatch(c.Column, KindText, col.kind)
		}
		needle := fmt.Sprint(c.Value)
		return func(r Row) bool {
			s, ok := r.At(j).Str()
			return ok && strings.Contains(s, needle)
		}, nil
	case OpIn:
		items, err := literalList(c.Value)
		if err != nil {
			return nil, fmt.Errorf("condition on %q: %w", c.Column, err)
		}
		set := make(map[string]struct{}, len(items))
		for _, it := range items {
			v, err := literal(col.kind, it)
			if err != nil {
				return nil, &TypeMismatchError{Column: c.Column, Want: col.kind, Got: err.Error(), Row: -1}
			}
			set[v.Key()] = struct{}{}
		}
		return func(r Row) bool {
			v := r.At(j)
			if v.IsNull() {
				return false
			}
			_, ok := set[v.Key()]
			return ok
		}, nil
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
	default:
		return nil, fmt.Errorf("condition on %q: unknown operator %q", c.Column, c.Op)
	}

	want, err := literal(col.kind, c.Value)
	if err != nil {
		return nil, &TypeMismatchError{Column: c.Column, Want: col.kind, Got: err.Error(), Row: -1}
	}
	if col.kind == KindBool && op != OpEq && op != OpNe {
		return nil, fmt.Errorf("condition on %q: operator %q not defined for boolean", c.Column, op)
	}
	return func(r Row) bool {
		v := r.At(j)
		if v.IsNull() {
			return op == OpNe
		}
		switch op {
		case OpEq:
			return v.Equal(want)
		case OpNe:
			return !v.Equal(want)
		}
		cmp := Compare(v, want)
		switch op {
		case OpGt:
			return cmp > 0
		case OpGe:
			return cmp >= 0
		case OpLt:
			return cmp < 0
		default:
			return cmp <= 0
		}
	}, nil
}

// Where compiles conditions and joins them with a logical AND.
func Where(t *Table, conds ...Condition) (Predicate, error) {
	preds := make([]Predicate, len(conds))
	for i, c := range conds {
		p, err := c.Compile(t)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	return All(preds...), nil
}

// All is true when every predicate is true.
func All(preds ...Predicate) Predicate {
	return func(r Row) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Any is true when at least one predicate is true.
func Any(preds ...Predicate) Predicate {
	return func(r Row) bool {
		for _, p := range preds {
			if p(r) {
				return true
			}
		}
		return false
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate { return func(r Row) bool { return !p(r) } }

// literal converts a condition literal (typically decoded from YAML) to kind.
func literal(kind Kind, raw any) (Value, error) {
	if raw == nil {
		return Value{}, fmt.Errorf("missing literal")
	}
	switch kind {
	case KindNumeric:
		if f, ok := asFloat(raw); ok {
			return Num(f), nil
		}
		if s, ok := raw.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return Num(f), nil
			}
		}
	case KindText:
		if s, ok := raw.(string); ok {
			return Text(s), nil
		}
		return Text(fmt.Sprint(raw)), nil
	case KindBool:
		if b, ok := raw.(bool); ok {
			return Bool(b), nil
		}
		if s, ok := raw.(string); ok {
			if b, ok := ParseBool(s); ok {
				return Bool(b), nil
			}
		}
	case KindDatetime:
		switch x := raw.(type) {
		case time.Time:
			return Time(x), nil
		case string:
			if tm, ok := ParseTime(x, nil); ok {
				return Time(tm), nil
			}
		}
	}
	return Value{}, fmt.Errorf("literal %v (%T)", raw, raw)
}

func literalList(raw any) ([]any, error) {
	rv := reflect.ValueOf(raw)
	if raw == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("operator %q needs a list literal, got %T", OpIn, raw)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
