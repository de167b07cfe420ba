package profile

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/KaramelBytes/tabscope/internal/table"
)

// CorrOptions controls Correlation.
type CorrOptions struct {
	// DropNA restricts every pair to rows where all selected columns are present.
	// Otherwise each pair uses the rows where both of its columns are present.
	DropNA bool
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

func (m *CorrMatrix) MarshalJSON() ([]byte, error) {
	vals := make([][]any, len(m.Values))
	for i, row := range m.Values {
		vals[i] = finiteSlice(row)
	}
	return json.Marshal(struct {
		Columns []string `json:"columns"`
		Values  [][]any  `json:"values"`
	}{m.Columns, vals})
}

// At returns r for the named pair.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return m.Values[i][j], true
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
}

func (p PairCorr) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"a": p.A, "b": p.B, "r": finite(p.R)})
}

// TopPairs lists the off-diagonal pairs by descending |r|, ties by name. Undefined
// coefficients are left out. limit <= 0 means all.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := m.Values[i][j]
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r})
		}
	}
	sortPairs(pairs)
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

func sortPairs(pairs []PairCorr) {
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
}

// Correlation computes the Pearson matrix over the named columns, or over every
// numeric column when none are named. Naming a non-numeric column is an error.
// Coefficients that cannot be computed (fewer than two pairs, zero variance) are
// NaN, including the diagonal of a constant column.
func Correlation(t *table.Table, columns []string, opt CorrOptions) (*CorrMatrix, error) {
	var cols []*table.Column
	if len(columns) == 0 {
		for i := 0; i < t.NumCols(); i++ {
			if c := t.ColumnAt(i); c.Kind() == table.KindNumeric {
				cols = append(cols, c)
			}
		}
	} else {
		for _, name := range columns {
			c, err := numericColumn(t, name)
			if err != nil {
				return nil, err
			}
			cols = append(cols, c)
		}
	}
	keep := allTrue(t.NumRows())
	if opt.DropNA {
		for _, c := range cols {
			for r := range keep {
				if c.Value(r).IsNull() {
					keep[r] = false
				}
			}
		}
	}
	return corrOf(cols, keep), nil
}

func corrOf(cols []*table.Column, keep []bool) *CorrMatrix {
	n := len(cols)
	m := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for i, c := range cols {
		m.Columns[i] = c.Name()
		m.Values[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			xs, ys := paired(cols[a], cols[b], keep)
			r := pearson(xs, ys)
			if a == b && !math.IsNaN(r) {
				r = 1
			}
			m.Values[a][b] = r
			m.Values[b][a] = r
		}
	}
	return m
}

func paired(ca, cb *table.Column, keep []bool) (xs, ys []float64) {
	for r, ok := range keep {
		if !ok {
			continue
		}
		x, okX := ca.Value(r).Float()
		y, okY := cb.Value(r).Float()
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

func allTrue(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}
