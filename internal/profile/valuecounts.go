package profile

import (
	"sort"

	"github.com/KaramelBytes/tabscope/internal/table"
)

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value table.Value `json:"value"`
	Count int         `json:"count"`
}

// ValueCounts tallies the non-missing values of a column, most frequent first. Ties
// keep the order in which values were first encountered.
func ValueCounts(t *table.Table, column string) ([]ValueCount, error) {
	c, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	return tally(c), nil
}

func tally(c *table.Column) []ValueCount {
	pos := make(map[string]int)
	var out []ValueCount
	for r := 0; r < c.Len(); r++ {
		v := c.Value(r)
		if v.IsNull() {
			continue
		}
		k := v.Key()
		if i, ok := pos[k]; ok {
			out[i].Count++
			continue
		}
		pos[k] = len(out)
		out = append(out, ValueCount{Value: v, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// CrossCounts tabulates value frequencies of several columns over one shared value
// axis: Counts[i][j] is how often Values[i] occurs in Columns[j].
type CrossCounts struct {
	Columns []string      `json:"columns"`
	Values  []table.Value `json:"values"`
	Counts  [][]int       `json:"counts"`
}

// ValueCountsAcross counts values for several columns at once, which suits groups of
// columns that share the same answers (e.g. a set of Yes/No flags). Values are
// ordered by first appearance, scanning columns left to right.
func ValueCountsAcross(t *table.Table, columns []string) (*CrossCounts, error) {
	sel, err := table.SelectColumns(t, columns)
	if err != nil {
		return nil, err
	}
	res := &CrossCounts{Columns: sel.Columns()}
	pos := make(map[string]int)
	for j := 0; j < sel.NumCols(); j++ {
		for _, vc := range tally(sel.ColumnAt(j)) {
			k := vc.Value.Key()
			i, ok := pos[k]
			if !ok {
				i = len(res.Values)
				pos[k] = i
				res.Values = append(res.Values, vc.Value)
				res.Counts = append(res.Counts, make([]int, sel.NumCols()))
			}
			res.Counts[i][j] = vc.Count
		}
	}
	return res, nil
}
