package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabscope/internal/table"
)

// Agg names a per-group aggregate.
type Agg string

const (
	AggSize  Agg = "size"  // rows in the group
	AggCount Agg = "count" // non-missing values of the column
	AggSum   Agg = "sum"
	AggMean  Agg = "mean"
	AggMin   Agg = "min"
	AggMax   Agg = "max"
	AggStd   Agg = "std"
)

// ParseAgg accepts an aggregate name, case-insensitively.
func ParseAgg(s string) (Agg, error) {
	a := Agg(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case AggSize, AggCount, AggSum, AggMean, AggMin, AggMax, AggStd:
		return a, nil
	case "avg", "average":
		return AggMean, nil
	}
	return "", fmt.Errorf("unknown aggregate %q", s)
}

func (a Agg) numeric() bool { return a != AggSize && a != AggCount }

// GroupOptions shapes a GroupBy result.
type GroupOptions struct {
	// MinCount drops groups with fewer rows.
	MinCount int
	// SortBy orders groups by one of the requested aggregates of SortColumn; empty
	// keeps the order in which groups were first seen. SortColumn may be left empty
	// when there is a single value column or SortBy is size.
	SortBy     Agg
	SortColumn string
	Descending bool
	// Limit keeps the first n groups after sorting; 0 keeps all.
	Limit int
}

// Group is one key tuple with its aggregates.
type Group struct {
	Key  []table.Value
	Size int
	// Stats holds aggregates per value column.
	Stats map[string]map[Agg]float64
}

// Stat returns aggregate a of column; size ignores the column. Aggregates that were
// not computed read as NaN.
func (g Group) Stat(column string, a Agg) float64 {
	if a == AggSize {
		return float64(g.Size)
	}
	if v, ok := g.Stats[column][a]; ok {
		return v
	}
	return math.NaN()
}

// Label renders the key as "a=x | b=y" using the given key column names.
func (g Group) Label(keys []string) string {
	parts := make([]string, len(g.Key))
	for i, v := range g.Key {
		name := ""
		if i < len(keys) {
			name = keys[i]
		}
		parts[i] = fmt.Sprintf("%s=%s", name, v.String())
	}
	return strings.Join(parts, " | ")
}

func (g Group) MarshalJSON() ([]byte, error) {
	stats := make(map[string]json.RawMessage, len(g.Stats))
	for col, m := range g.Stats {
		plain := make(map[string]float64, len(m))
		for k, v := range m {
			plain[string(k)] = v
		}
		raw, err := marshalFinite(plain)
		if err != nil {
			return nil, err
		}
		stats[col] = raw
	}
	return json.Marshal(struct {
		Key   []table.Value              `json:"key"`
		Size  int                        `json:"size"`
		Stats map[string]json.RawMessage `json:"stats,omitempty"`
	}{g.Key, g.Size, stats})
}

// GroupResult is the output of GroupBy.
type GroupResult struct {
	Keys    []string `json:"keys"`
	Columns []string `json:"columns,omitempty"`
	Aggs    []Agg    `json:"aggs"`
	Groups  []Group  `json:"groups"`

	keyKinds []table.Kind
}

// StatColumns lists the (column, aggregate) pairs of the result in output order,
// size excluded.
func (r *GroupResult) StatColumns() (cols []string, aggs []Agg) {
	for _, c := range r.Columns {
		for _, a := range r.Aggs {
			if a != AggSize {
				cols = append(cols, c)
				aggs = append(aggs, a)
			}
		}
	}
	return cols, aggs
}

// Table lays the result out with one row per group: the key columns, size, then
// one numeric column per aggregate named "<column> <agg>".
func (r *GroupResult) Table() (*table.Table, error) {
	cols := make([]*table.Column, 0, len(r.Keys)+1+len(r.Columns)*len(r.Aggs))
	for i, k := range r.Keys {
		vals := make([]table.Value, len(r.Groups))
		for j, g := range r.Groups {
			vals[j] = g.Key[i]
		}
		c, err := table.ColumnOf(k, r.keyKinds[i], vals)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	sizes := make([]table.Value, len(r.Groups))
	for j, g := range r.Groups {
		sizes[j] = table.Num(float64(g.Size))
	}
	c, err := table.ColumnOf("size", table.KindNumeric, sizes)
	if err != nil {
		return nil, err
	}
	cols = append(cols, c)
	names, aggs := r.StatColumns()
	for i, name := range names {
		vals := make([]table.Value, len(r.Groups))
		for j, g := range r.Groups {
			vals[j] = table.Num(g.Stat(name, aggs[i]))
		}
		c, err := table.ColumnOf(name+" "+string(aggs[i]), table.KindNumeric, vals)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return table.New(cols...)
}

// Transposed lays the result out with one column per group, named by the group's
// key, and one row per aggregate. Several key columns are joined with " | ".
func (r *GroupResult) Transposed() (*table.Table, error) {
	t, err := r.Table()
	if err != nil {
		return nil, err
	}
	header := r.Keys[0]
	if len(r.Keys) > 1 {
		header = strings.Join(r.Keys, " | ")
		labels := make([]table.Value, len(r.Groups))
		for j, g := range r.Groups {
			parts := make([]string, len(g.Key))
			for i, v := range g.Key {
				parts[i] = v.String()
			}
			labels[j] = table.Text(strings.Join(parts, " | "))
		}
		if t, err = table.DropColumns(t, r.Keys); err != nil {
			return nil, err
		}
		label, err := table.ColumnOf(header, table.KindText, labels)
		if err != nil {
			return nil, err
		}
		cols := []*table.Column{label}
		for j := 0; j < t.NumCols(); j++ {
			cols = append(cols, t.ColumnAt(j))
		}
		if t, err = table.New(cols...); err != nil {
			return nil, err
		}
	}
	return table.Transpose(t, header)
}

// GroupBy partitions rows by the values of the key columns and aggregates each
// value column within each partition. Rows with a missing key join no group.
//
// With no value columns, numeric aggregates apply to every numeric non-key column
// and a bare call reports only group sizes. With value columns but no aggregates,
// count, mean, min and max are computed.
func GroupBy(t *table.Table, keys, columns []string, aggs []Agg, opt GroupOptions) (*GroupResult, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("group by: no key columns")
	}
	keyCols := make([]*table.Column, len(keys))
	keyKinds := make([]table.Kind, len(keys))
	isKey := make(map[string]bool, len(keys))
	for i, k := range keys {
		c, err := t.Column(k)
		if err != nil {
			return nil, err
		}
		keyCols[i] = c
		keyKinds[i] = c.Kind()
		isKey[k] = true
	}
	if len(aggs) == 0 {
		aggs = []Agg{AggSize}
		if len(columns) > 0 {
			aggs = []Agg{AggCount, AggMean, AggMin, AggMax}
		}
	}
	needVal := false
	for _, a := range aggs {
		if a != AggSize {
			needVal = true
		}
	}
	var vals []*table.Column
	if needVal {
		if len(columns) == 0 {
			for j := 0; j < t.NumCols(); j++ {
				c := t.ColumnAt(j)
				if c.Kind() == table.KindNumeric && !isKey[c.Name()] {
					columns = append(columns, c.Name())
				}
			}
			if len(columns) == 0 {
				return nil, fmt.Errorf("group by: aggregates %v need a value column and the table has no numeric column outside the keys", aggs)
			}
		}
		seen := make(map[string]bool, len(columns))
		for _, name := range columns {
			if seen[name] {
				return nil, &table.DuplicateColumnError{Name: name}
			}
			seen[name] = true
			c, err := t.Column(name)
			if err != nil {
				return nil, err
			}
			for _, a := range aggs {
				if a.numeric() && c.Kind() != table.KindNumeric {
					return nil, table.NewTypeMismatch(name, table.KindNumeric, c.Kind())
				}
			}
			vals = append(vals, c)
		}
	} else {
		columns = nil
	}
	sortCol := opt.SortColumn
	if opt.SortBy != "" && opt.SortBy != AggSize {
		if !containsAgg(aggs, opt.SortBy) {
			return nil, fmt.Errorf("group by: sort aggregate %q was not requested", opt.SortBy)
		}
		if sortCol == "" {
			if len(columns) != 1 {
				return nil, fmt.Errorf("group by: sorting by %q over %d value columns needs a sort column", opt.SortBy, len(columns))
			}
			sortCol = columns[0]
		} else if !containsString(columns, sortCol) {
			return nil, fmt.Errorf("group by: sort column %q is not a value column", sortCol)
		}
	}

	type acc struct {
		key   []table.Value
		size  int
		count []int
		w     []welford
	}
	index := make(map[string]int)
	var accs []*acc
rows:
	for r := 0; r < t.NumRows(); r++ {
		key := make([]table.Value, len(keyCols))
		for i, c := range keyCols {
			v := c.Value(r)
			if v.IsNull() {
				continue rows
			}
			key[i] = v
		}
		k := table.TupleKey(key...)
		i, ok := index[k]
		if !ok {
			i = len(accs)
			index[k] = i
			a := &acc{key: key, count: make([]int, len(vals)), w: make([]welford, len(vals))}
			for j := range a.w {
				a.w[j] = newWelford()
			}
			accs = append(accs, a)
		}
		a := accs[i]
		a.size++
		for j, c := range vals {
			v := c.Value(r)
			if v.IsNull() {
				continue
			}
			a.count[j]++
			if x, ok := v.Float(); ok {
				a.w[j].add(x)
			}
		}
	}

	res := &GroupResult{
		Keys:     append([]string(nil), keys...),
		Columns:  columns,
		Aggs:     aggs,
		keyKinds: keyKinds,
	}
	for _, a := range accs {
		if a.size < opt.MinCount {
			continue
		}
		g := Group{Key: a.key, Size: a.size}
		if len(vals) > 0 {
			g.Stats = make(map[string]map[Agg]float64, len(vals))
		}
		for j, name := range columns {
			m := make(map[Agg]float64, len(aggs))
			w := &a.w[j]
			for _, ag := range aggs {
				switch ag {
				case AggCount:
					m[ag] = float64(a.count[j])
				case AggSum:
					m[ag] = w.sum
				case AggMean:
					m[ag] = w.meanOrNaN()
				case AggMin:
					m[ag] = w.minOrNaN()
				case AggMax:
					m[ag] = w.maxOrNaN()
				case AggStd:
					m[ag] = w.std()
				}
			}
			g.Stats[name] = m
		}
		res.Groups = append(res.Groups, g)
	}
	if opt.SortBy != "" {
		by := opt.SortBy
		sort.SliceStable(res.Groups, func(i, j int) bool {
			a, b := res.Groups[i].Stat(sortCol, by), res.Groups[j].Stat(sortCol, by)
			// NaN sorts last either way
			if math.IsNaN(a) || math.IsNaN(b) {
				return !math.IsNaN(a) && math.IsNaN(b)
			}
			if opt.Descending {
				return a > b
			}
			return a < b
		})
	}
	if opt.Limit > 0 && len(res.Groups) > opt.Limit {
		res.Groups = res.Groups[:opt.Limit]
	}
	return res, nil
}

func containsAgg(aggs []Agg, a Agg) bool {
	for _, x := range aggs {
		if x == a {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
