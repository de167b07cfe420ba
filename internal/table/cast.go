package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// CastOptions tunes Cast.
type CastOptions struct {
	// Layouts used when text becomes datetime; nil means DefaultTimeLayouts.
	Layouts []string
	// Coerce turns values that cannot be converted into missing values instead of
	// failing.
	Coerce bool
}

// Cast returns a table in which the named column has been converted to kind. This is
// the only way a column's kind changes after load, e.g. to treat a digit-valued
// identifier as text or to parse date strings.
func Cast(t *Table, name string, kind Kind, opt CastOptions) (*Table, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, notFound(t.Columns(), name)
	}
	src := t.cols[i]
	if src.kind == kind {
		return t, nil
	}
	vals := make([]Value, len(src.vals))
	for r, v := range src.vals {
		if v.IsNull() {
			vals[r] = Null(kind)
			continue
		}
		out, ok := convert(v, kind, opt)
		if !ok {
			if !opt.Coerce {
				return nil, &TypeMismatchError{Column: name, Want: kind, Got: strconv.Quote(v.String()), Row: r}
			}
			out = Null(kind)
		}
		vals[r] = out
	}
	cols := make([]*Column, len(t.cols))
	copy(cols, t.cols)
	cols[i] = &Column{name: src.name, kind: kind, unit: src.unit, vals: vals}
	return withRows(cols, t.rows), nil
}

func convert(v Value, kind Kind, opt CastOptions) (Value, bool) {
	if kind == KindText {
		return Text(v.String()), true
	}
	switch v.kind {
	case KindText:
		s := strings.TrimSpace(v.str)
		switch kind {
		case KindNumeric:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return Value{}, false
			}
			return Num(f), true
		case KindBool:
			if s == "1" || s == "0" {
				return Bool(s == "1"), true
			}
			b, ok := ParseBool(s)
			if !ok {
				return Value{}, false
			}
			return Bool(b), true
		case KindDatetime:
			tm, ok := ParseTime(s, opt.Layouts)
			if !ok {
				return Value{}, false
			}
			return Time(tm), true
		}
	case KindNumeric:
		switch kind {
		case KindBool:
			return Bool(v.num != 0), true
		case KindDatetime:
			sec, frac := math.Modf(v.num)
			return Time(time.Unix(int64(sec), int64(frac*1e9)).UTC()), true
		}
	case KindBool:
		if kind == KindNumeric {
			if v.b {
				return Num(1), true
			}
			return Num(0), true
		}
	case KindDatetime:
		if kind == KindNumeric {
			return Num(float64(v.t.UnixNano()) / 1e9), true
		}
	}
	return Value{}, false
}
