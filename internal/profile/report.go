package profile

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/tabscope/internal/table"
)

// Options controls the combined dataset report.
type Options struct {
	// SampleRows determines how many example rows to include in the report; 0
	// disables samples and a negative value uses the default.
	SampleRows int
	// TopValues caps the frequency list of categorical columns.
	TopValues int
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// MaxGroups caps the groups kept, largest first.
	MaxGroups int
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// CorrPerGroup computes correlations per group key.
	CorrPerGroup bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset reports.
func DefaultOptions() Options {
	return Options{SampleRows: 5, TopValues: 8, MaxGroups: 20, OutlierThreshold: DefaultOutlierThreshold}
}

// Report is a markdown-friendly analysis of a table.
type Report struct {
	Name string `json:"name"`
	// Rows is the row count of the source; Processed is how many were profiled.
	Rows      int             `json:"rows"`
	Processed int             `json:"processed"`
	Cols      []ColumnSummary `json:"columns"`
	Samples   [][]string      `json:"samples,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
	Groups    []GroupSummary  `json:"groups,omitempty"`
	Corr      *CorrMatrix     `json:"correlations,omitempty"`
}

// ColumnSummary captures the kind and statistics of one column.
type ColumnSummary struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // numeric|datetime|boolean|categorical|text|unknown
	Unit    string `json:"unit,omitempty"`
	NonNull int    `json:"non_null"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`
	// Numeric stats
	Stats *Summary `json:"stats,omitempty"`
	// Outliers (robust Z via MAD)
	Outliers *OutlierSummary `json:"outliers,omitempty"`
	// Datetime range
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	// Categorical top values
	TopValues    []ValueCount `json:"top_values,omitempty"`
	ExampleTexts []string     `json:"examples,omitempty"`
}

// GroupSummary captures aggregated metrics per group key.
type GroupSummary struct {
	Key       string                 `json:"key"`
	Size      int                    `json:"size"`
	Metrics   map[string]GroupMetric `json:"metrics"` // by column name
	CorrPairs []PairCorr             `json:"corr_pairs,omitempty"`
}

// GroupMetric summarizes one numeric column inside a group.
type GroupMetric struct {
	Count          int
	Min, Max, Mean float64
}

func (m GroupMetric) MarshalJSON() ([]byte, error) {
	return marshalFinite(map[string]float64{"count": float64(m.Count), "min": m.Min, "max": m.Max, "mean": m.Mean})
}

// maxCategoryLen is the longest value still treated as a category label.
const maxCategoryLen = 64

// Build profiles every column of t into a Report. Group-by names are matched
// case-insensitively.
func Build(t *table.Table, name string, opt Options) (*Report, error) {
	def := DefaultOptions()
	if opt.SampleRows < 0 {
		opt.SampleRows = def.SampleRows
	}
	if opt.TopValues <= 0 {
		opt.TopValues = def.TopValues
	}
	if opt.MaxGroups <= 0 {
		opt.MaxGroups = def.MaxGroups
	}
	rep := &Report{Name: name, Rows: t.NumRows(), Processed: t.NumRows()}

	var numeric []*table.Column
	for i := 0; i < t.NumCols(); i++ {
		c := t.ColumnAt(i)
		s, err := summarizeColumn(t, c, opt)
		if err != nil {
			return nil, err
		}
		if s.Kind == "numeric" {
			numeric = append(numeric, c)
		}
		rep.Cols = append(rep.Cols, s)
	}
	for r := 0; r < t.NumRows() && r < opt.SampleRows; r++ {
		rep.Samples = append(rep.Samples, t.Row(r).Strings())
	}

	if len(opt.GroupBy) > 0 {
		keys, err := resolveFold(t, opt.GroupBy)
		if err != nil {
			return nil, err
		}
		rep.Groups = groupSummaries(t, keys, numeric, opt)
	}
	if opt.Correlations && len(numeric) >= 2 {
		rep.Corr = corrOf(numeric, allTrue(t.NumRows()))
	}
	return rep, nil
}

func summarizeColumn(t *table.Table, c *table.Column, opt Options) (ColumnSummary, error) {
	s := ColumnSummary{Name: c.Name(), Unit: c.Unit(), Missing: c.NullCount()}
	s.NonNull = c.Len() - s.Missing
	counts := tally(c)
	s.Unique = len(counts)
	if s.NonNull == 0 {
		s.Kind = "unknown"
		return s, nil
	}
	switch c.Kind() {
	case table.KindNumeric:
		s.Kind = "numeric"
		sum := summarize(c.Floats())
		s.Stats = &sum
		if opt.Outliers {
			o, err := Outliers(t, c.Name(), opt.OutlierThreshold)
			if err != nil {
				return s, err
			}
			s.Outliers = &o
		}
	case table.KindDatetime:
		s.Kind = "datetime"
		var lo, hi table.Value
		for r := 0; r < c.Len(); r++ {
			v := c.Value(r)
			if v.IsNull() {
				continue
			}
			if lo.IsNull() || table.Compare(v, lo) < 0 {
				lo = v
			}
			if hi.IsNull() || table.Compare(v, hi) > 0 {
				hi = v
			}
		}
		s.First, s.Last = lo.String(), hi.String()
	case table.KindBool:
		s.Kind = "boolean"
		s.TopValues = counts
	default:
		if isCategorical(counts) {
			s.Kind = "categorical"
			s.TopValues = topValues(counts, opt.TopValues)
			break
		}
		s.Kind = "text"
		for r := 0; r < c.Len() && len(s.ExampleTexts) < 3; r++ {
			if v := c.Value(r); !v.IsNull() {
				s.ExampleTexts = append(s.ExampleTexts, v.String())
			}
		}
	}
	return s, nil
}

func isCategorical(counts []ValueCount) bool {
	for _, vc := range counts {
		if len(vc.Value.String()) > maxCategoryLen {
			return false
		}
	}
	return len(counts) > 0
}

// topValues orders by count desc with ties by value, then truncates.
func topValues(counts []ValueCount, n int) []ValueCount {
	tops := append([]ValueCount(nil), counts...)
	sort.SliceStable(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value.String() < tops[j].Value.String()
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > n {
		tops = tops[:n]
	}
	return tops
}

func resolveFold(t *table.Table, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if t.Has(n) {
			out = append(out, n)
			continue
		}
		found := ""
		for _, c := range t.Columns() {
			if strings.EqualFold(c, n) {
				found = c
				break
			}
		}
		if found == "" {
			_, err := t.Column(n)
			return nil, err
		}
		out = append(out, found)
	}
	return out, nil
}

func groupSummaries(t *table.Table, keys []string, numeric []*table.Column, opt Options) []GroupSummary {
	keyCols := make([]*table.Column, len(keys))
	for i, k := range keys {
		keyCols[i], _ = t.Column(k)
	}
	type gAcc struct {
		label string
		size  int
		rows  []int
	}
	groups := map[string]*gAcc{}
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
		ga := groups[k]
		if ga == nil {
			ga = &gAcc{label: Group{Key: key}.Label(keys)}
			groups[k] = ga
		}
		ga.size++
		ga.rows = append(ga.rows, r)
	}

	out := make([]GroupSummary, 0, len(groups))
	for _, ga := range groups {
		gr := GroupSummary{Key: ga.label, Size: ga.size, Metrics: map[string]GroupMetric{}}
		keep := make([]bool, t.NumRows())
		for _, r := range ga.rows {
			keep[r] = true
		}
		for _, c := range numeric {
			w := newWelford()
			for _, r := range ga.rows {
				if x, ok := c.Value(r).Float(); ok {
					w.add(x)
				}
			}
			if w.n == 0 {
				continue
			}
			gr.Metrics[c.Name()] = GroupMetric{Count: w.n, Min: w.min, Max: w.max, Mean: w.mean}
		}
		if opt.CorrPerGroup && len(numeric) >= 2 {
			gr.CorrPairs = corrOf(numeric, keep).TopPairs(10)
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > opt.MaxGroups {
		out = out[:opt.MaxGroups]
	}
	return out
}
