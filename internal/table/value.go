package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the semantic type of a column.
type Kind int

const (
	KindNumeric Kind = iota
	KindText
	KindBool
	KindDatetime
)

var kindNames = map[Kind]string{
	KindNumeric:  "numeric",
	KindText:     "text",
	KindBool:     "boolean",
	KindDatetime: "datetime",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name so it reads well in JSON and YAML.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText accepts any name understood by ParseKind.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseKind maps a kind name, including a few common aliases, to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "number", "float", "int", "integer":
		return KindNumeric, nil
	case "text", "string", "object", "categorical", "category":
		return KindText, nil
	case "boolean", "bool":
		return KindBool, nil
	case "datetime", "date", "time", "timestamp":
		return KindDatetime, nil
	}
	return 0, fmt.Errorf("unknown kind %q (use numeric|text|boolean|datetime)", s)
}

// Value is a single cell. The zero Value is a missing numeric cell.
type Value struct {
	kind  Kind
	valid bool
	num   float64
	str   string
	b     bool
	t     time.Time
}

// Null returns a missing value of kind k.
func Null(k Kind) Value { return Value{kind: k} }

// Num returns a numeric value. NaN is treated as missing.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Null(KindNumeric)
	}
	return Value{kind: KindNumeric, valid: true, num: f}
}

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, valid: true, str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, valid: true, b: b} }

// Time returns a datetime value.
func Time(t time.Time) Value { return Value{kind: KindDatetime, valid: true, t: t} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return !v.valid }

// Float returns the numeric payload; ok is false for non-numeric or missing values.
func (v Value) Float() (float64, bool) {
	if !v.valid || v.kind != KindNumeric {
		return 0, false
	}
	return v.num, true
}

// Str returns the text payload; ok is false for non-text or missing values.
func (v Value) Str() (string, bool) {
	if !v.valid || v.kind != KindText {
		return "", false
	}
	return v.str, true
}

// Truth returns the boolean payload; ok is false for non-boolean or missing values.
func (v Value) Truth() (bool, bool) {
	if !v.valid || v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Timestamp returns the datetime payload; ok is false for non-datetime or missing values.
func (v Value) Timestamp() (time.Time, bool) {
	if !v.valid || v.kind != KindDatetime {
		return time.Time{}, false
	}
	return v.t, true
}

// String formats the value for display. Missing values format as "".
func (v Value) String() string {
	if !v.valid {
		return ""
	}
	switch v.kind {
	case KindNumeric:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDatetime:
		return formatTime(v.t)
	default:
		return v.str
	}
}

// Key is a canonical identity string. Two values are equal iff their keys are equal;
// all missing values share one key.
func (v Value) Key() string {
	if !v.valid {
		return "\x00"
	}
	switch v.kind {
	case KindNumeric:
		if v.num == 0 {
			return "n:0" // folds -0
		}
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return "b:" + strconv.FormatBool(v.b)
	case KindDatetime:
		return "d:" + v.t.UTC().Format(time.RFC3339Nano)
	default:
		return "s:" + v.str
	}
}

// Equal reports whether v and o are the same value (missing equals missing).
func (v Value) Equal(o Value) bool { return v.Key() == o.Key() }

// TupleKey is the identity of a sequence of values. Components are length-prefixed,
// so text containing any separator cannot make two different tuples collide.
func TupleKey(vals ...Value) string {
	var b strings.Builder
	for _, v := range vals {
		writeKey(&b, v)
	}
	return b.String()
}

func writeKey(b *strings.Builder, v Value) {
	k := v.Key()
	b.WriteString(strconv.Itoa(len(k)))
	b.WriteByte(':')
	b.WriteString(k)
}

// MarshalJSON emits null for missing values and the natural JSON type otherwise.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	switch v.kind {
	case KindNumeric:
		if math.IsInf(v.num, 0) {
			return json.Marshal(v.String())
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.String())
	}
}

// Compare orders two non-missing values of the same kind. Missing values sort after
// everything else; values of different kinds compare by kind.
func Compare(a, b Value) int {
	switch {
	case !a.valid && !b.valid:
		return 0
	case !a.valid:
		return 1
	case !b.valid:
		return -1
	}
	if a.kind != b.kind {
		return cmpInt(int(a.kind), int(b.kind))
	}
	switch a.kind {
	case KindNumeric:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case KindBool:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	case KindDatetime:
		return a.t.Compare(b.t)
	default:
		return strings.Compare(a.str, b.str)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	h, m, s := t.Clock()
	if h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// DefaultTimeLayouts are tried in order when text is parsed as a datetime.
var DefaultTimeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

// ParseTime tries each layout in turn. A nil layouts slice means DefaultTimeLayouts.
func ParseTime(s string, layouts []string) (time.Time, bool) {
	if layouts == nil {
		layouts = DefaultTimeLayouts
	}
	s = strings.TrimSpace(s)
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseBool accepts the usual spellings of true and false.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y":
		return true, true
	case "false", "f", "no", "n":
		return false, true
	}
	return false, false
}
