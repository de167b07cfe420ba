package profile

import (
	"encoding/json"
	"math"
	"sort"
)

// welford accumulates count, mean, variance, min and max in one pass.
type welford struct {
	n        int
	mean, m2 float64
	min, max float64
	sum      float64
}

func newWelford() welford { return welford{min: math.Inf(1), max: math.Inf(-1)} }

func (w *welford) add(x float64) {
	w.n++
	w.sum += x
	if x < w.min {
		w.min = x
	}
	if x > w.max {
		w.max = x
	}
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (x - w.mean)
}

// std is the sample standard deviation; NaN with fewer than two observations.
func (w *welford) std() float64 {
	if w.n < 2 {
		return math.NaN()
	}
	return math.Sqrt(w.m2 / float64(w.n-1))
}

func (w *welford) meanOrNaN() float64 {
	if w.n == 0 {
		return math.NaN()
	}
	return w.mean
}

func (w *welford) minOrNaN() float64 {
	if w.n == 0 {
		return math.NaN()
	}
	return w.min
}

func (w *welford) maxOrNaN() float64 {
	if w.n == 0 {
		return math.NaN()
	}
	return w.max
}

// quantile interpolates linearly between closest ranks of an ascending slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// medianMAD computes the median and the median absolute deviation of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// pearson computes r over paired observations. It returns NaN with fewer than two
// pairs or when either side has zero variance.
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return math.NaN()
	}
	var mx, my float64
	for i := 0; i < n; i++ {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	r := sxy / math.Sqrt(sxx*syy)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// finite maps NaN and infinities to nil so results stay JSON-encodable.
func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func finiteSlice(fs []float64) []any {
	out := make([]any, len(fs))
	for i, f := range fs {
		out[i] = finite(f)
	}
	return out
}

func marshalFinite(m map[string]float64) ([]byte, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = finite(v)
	}
	return json.Marshal(out)
}
