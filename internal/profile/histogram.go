package profile

import (
	"encoding/json"
	"math"

	"github.com/KaramelBytes/tabscope/internal/table"
)

// DefaultBins is used when a histogram is requested with bins <= 0.
const DefaultBins = 10

// Bin is one half-open interval [Lo, Hi) of a histogram; the last bin also holds Hi.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram bins the non-missing values of a numeric column into equal-width bins
// spanning [min, max]. A constant column is widened to [x-0.5, x+0.5], or further
// for magnitudes where 0.5 is below float resolution.
func Histogram(t *table.Table, column string, bins int) ([]Bin, error) {
	c, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	if c.Kind() != table.KindNumeric {
		return nil, table.NewTypeMismatch(column, table.KindNumeric, c.Kind())
	}
	vals := c.Floats()
	if len(vals) == 0 {
		return nil, &table.EmptyTableError{Op: "histogram " + column}
	}
	if bins <= 0 {
		bins = DefaultBins
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range vals {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if lo == hi || lo+(hi-lo)/float64(bins) == lo {
		// widen by at least 0.5, and by enough to stay above float resolution
		mid := lo + (hi-lo)/2
		half := math.Max(0.5, math.Abs(mid)*1e-9)
		lo, hi = mid-half, mid+half
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi
	for _, x := range vals {
		i := int((x - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		out[i].Count++
	}
	return out, nil
}

// Point is one (x, y) observation.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{finite(p.X), finite(p.Y)})
}

// Scatter pairs two numeric columns row by row, skipping rows where either is missing.
func Scatter(t *table.Table, x, y string) ([]Point, error) {
	cx, err := numericColumn(t, x)
	if err != nil {
		return nil, err
	}
	cy, err := numericColumn(t, y)
	if err != nil {
		return nil, err
	}
	var out []Point
	for r := 0; r < t.NumRows(); r++ {
		a, okA := cx.Value(r).Float()
		b, okB := cy.Value(r).Float()
		if okA && okB {
			out = append(out, Point{X: a, Y: b})
		}
	}
	return out, nil
}

func numericColumn(t *table.Table, name string) (*table.Column, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind() != table.KindNumeric {
		return nil, table.NewTypeMismatch(name, table.KindNumeric, c.Kind())
	}
	return c, nil
}
