package profile

import (
	"encoding/json"
	"sort"

	"github.com/KaramelBytes/tabscope/internal/table"
)

// Summary holds descriptive statistics of a numeric column. Statistics that are
// undefined (no observations, or std with fewer than two) are NaN and encode as
// JSON null.
type Summary struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"count": s.Count,
		"mean":  finite(s.Mean),
		"std":   finite(s.Std),
		"min":   finite(s.Min),
		"25%":   finite(s.Q25),
		"50%":   finite(s.Q50),
		"75%":   finite(s.Q75),
		"max":   finite(s.Max),
	})
}

// Description is one column's Summary.
type Description struct {
	Column string  `json:"column"`
	Unit   string  `json:"unit,omitempty"`
	Stats  Summary `json:"stats"`
}

// DescribeNumeric summarizes every numeric column, in table order. Non-numeric
// columns are skipped. A table with no rows fails with EmptyTableError.
func DescribeNumeric(t *table.Table) ([]Description, error) {
	if t.NumRows() == 0 {
		return nil, &table.EmptyTableError{Op: "describe"}
	}
	var out []Description
	for i := 0; i < t.NumCols(); i++ {
		c := t.ColumnAt(i)
		if c.Kind() != table.KindNumeric {
			continue
		}
		out = append(out, Description{Column: c.Name(), Unit: c.Unit(), Stats: summarize(c.Floats())})
	}
	return out, nil
}

// DescribeColumn summarizes one named column, which must be numeric.
func DescribeColumn(t *table.Table, name string) (Description, error) {
	c, err := t.Column(name)
	if err != nil {
		return Description{}, err
	}
	if c.Kind() != table.KindNumeric {
		return Description{}, table.NewTypeMismatch(name, table.KindNumeric, c.Kind())
	}
	if t.NumRows() == 0 {
		return Description{}, &table.EmptyTableError{Op: "describe " + name}
	}
	return Description{Column: c.Name(), Unit: c.Unit(), Stats: summarize(c.Floats())}, nil
}

func summarize(vals []float64) Summary {
	w := newWelford()
	for _, x := range vals {
		w.add(x)
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	return Summary{
		Count: w.n,
		Mean:  w.meanOrNaN(),
		Std:   w.std(),
		Min:   w.minOrNaN(),
		Q25:   quantile(sorted, 0.25),
		Q50:   quantile(sorted, 0.5),
		Q75:   quantile(sorted, 0.75),
		Max:   w.maxOrNaN(),
	}
}
