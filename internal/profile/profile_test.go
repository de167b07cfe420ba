package profile_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabscope/internal/profile"
	"github.com/KaramelBytes/tabscope/internal/table"
)

func scoreTable() *table.Table {
	return table.MustNew(
		table.MustColumn("id", table.KindNumeric, 1, 2, 3),
		table.MustColumn("score", table.KindNumeric, 10, nil, 10),
	)
}

func coasters() *table.Table {
	return table.MustNew(
		table.MustColumn("coaster_name", table.KindText, "Cyclone", "Comet", "Cyclone", "Racer", "Boomerang"),
		table.MustColumn("Type", table.KindText, "Wooden", "Steel", "Wooden", "Steel", "Wooden"),
		table.MustColumn("speed_mph", table.KindNumeric, 60, 70, nil, 50, 40),
		table.MustColumn("height_ft", table.KindNumeric, 85, 100, 85, 70, 60),
		table.MustColumn("operating", table.KindBool, true, false, true, nil, true),
	)
}

func TestScenarioScores(t *testing.T) {
	miss := profile.MissingCounts(scoreTable())
	assert.Equal(t, map[string]int{"id": 0, "score": 1}, miss.Map())

	vc, err := profile.ValueCounts(scoreTable(), "score")
	require.NoError(t, err)
	require.Len(t, vc, 1)
	f, _ := vc[0].Value.Float()
	assert.Equal(t, 10.0, f)
	assert.Equal(t, 2, vc[0].Count)
}

func TestMissingCountsBoundedByRows(t *testing.T) {
	src := coasters()
	for _, cc := range profile.MissingCounts(src) {
		assert.LessOrEqual(t, cc.Count, src.NumRows(), cc.Column)
	}
	assert.Empty(t, profile.MissingCounts(table.MustNew()))
}

func TestValueCountsSumToNonMissing(t *testing.T) {
	src := coasters()
	miss := profile.MissingCounts(src).Map()
	for _, name := range src.Columns() {
		vc, err := profile.ValueCounts(src, name)
		require.NoError(t, err)
		total := 0
		for _, e := range vc {
			total += e.Count
		}
		assert.Equal(t, src.NumRows()-miss[name], total, name)
	}
}

func TestValueCountsTiesKeepFirstSeen(t *testing.T) {
	src := table.MustNew(table.MustColumn("v", table.KindText, "b", "a", "b", "a", "c", nil))
	vc, err := profile.ValueCounts(src, "v")
	require.NoError(t, err)
	var got []string
	for _, e := range vc {
		got = append(got, e.Value.String())
	}
	assert.Equal(t, []string{"b", "a", "c"}, got)

	_, err = profile.ValueCounts(src, "w")
	require.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestValueCountsAcross(t *testing.T) {
	src := table.MustNew(
		table.MustColumn("q1", table.KindText, "Yes", "No", "Yes"),
		table.MustColumn("q2", table.KindText, "No", "No", nil),
	)
	cc, err := profile.ValueCountsAcross(src, []string{"q1", "q2"})
	require.NoError(t, err)
	require.Len(t, cc.Values, 2)
	assert.Equal(t, "Yes", cc.Values[0].String())
	assert.Equal(t, [][]int{{2, 0}, {1, 2}}, cc.Counts)
}

func TestDescribeNumeric(t *testing.T) {
	src := table.MustNew(
		table.MustColumn("x", table.KindNumeric, 1, 2, 3, 4),
		table.MustColumn("label", table.KindText, "a", "b", "c", "d"),
	)
	desc, err := profile.DescribeNumeric(src)
	require.NoError(t, err)
	require.Len(t, desc, 1)
	s := desc[0].Stats
	assert.Equal(t, "x", desc[0].Column)
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std, 1e-12)
	assert.InDelta(t, 1.75, s.Q25, 1e-12)
	assert.InDelta(t, 2.5, s.Q50, 1e-12)
	assert.InDelta(t, 3.25, s.Q75, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)

	_, err = profile.DescribeColumn(src, "label")
	require.ErrorIs(t, err, table.ErrTypeMismatch)

	empty, err := table.SelectColumns(table.Head(src, 0), []string{"x"})
	require.NoError(t, err)
	_, err = profile.DescribeNumeric(empty)
	require.ErrorIs(t, err, table.ErrEmptyTable)
}

func TestDescribeSingleValueHasNullStd(t *testing.T) {
	src := table.MustNew(table.MustColumn("x", table.KindNumeric, 7, nil))
	d, err := profile.DescribeColumn(src, "x")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(d.Stats.Std))

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"std":null`)
}

func TestDTypesAndNUnique(t *testing.T) {
	kinds := profile.DTypes(coasters())
	assert.Equal(t, table.KindText, kinds[0].Kind)
	assert.Equal(t, table.KindNumeric, kinds[2].Kind)
	assert.Equal(t, table.KindBool, kinds[4].Kind)

	nu := profile.NUnique(coasters()).Map()
	assert.Equal(t, 4, nu["coaster_name"])
	assert.Equal(t, 2, nu["Type"])
	assert.Equal(t, 4, nu["speed_mph"])

	info := profile.Info(coasters())
	assert.Equal(t, 5, info.Rows)
	assert.Equal(t, 4, info.Columns[2].NonNull)
	assert.True(t, info.Columns[2].Nullable)
}

func TestHistogram(t *testing.T) {
	src := table.MustNew(table.MustColumn("x", table.KindNumeric, 0, 2.5, 5, 7.5, 10, nil))
	bins, err := profile.Histogram(src, "x", 2)
	require.NoError(t, err)
	require.Len(t, bins, 2)
	assert.Equal(t, 2, bins[0].Count)
	assert.Equal(t, 3, bins[1].Count)
	assert.Equal(t, 10.0, bins[1].Hi)

	flat := table.MustNew(table.MustColumn("x", table.KindNumeric, 3, 3))
	bins, err = profile.Histogram(flat, "x", 0)
	require.NoError(t, err)
	require.Len(t, bins, profile.DefaultBins)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, 2.5, bins[0].Lo)

	huge := table.MustNew(table.MustColumn("x", table.KindNumeric, 1e17, 1e17))
	bins, err = profile.Histogram(huge, "x", 3)
	require.NoError(t, err)
	require.Len(t, bins, 3)
	for _, b := range bins {
		assert.Less(t, b.Lo, b.Hi)
	}
	assert.Less(t, bins[0].Lo, 1e17)
	assert.Greater(t, bins[2].Hi, 1e17)
	assert.Equal(t, 2, bins[1].Count)

	_, err = profile.Histogram(coasters(), "Type", 5)
	require.ErrorIs(t, err, table.ErrTypeMismatch)
	_, err = profile.Histogram(table.MustNew(table.MustColumn("x", table.KindNumeric, nil)), "x", 5)
	require.ErrorIs(t, err, table.ErrEmptyTable)
}

func TestScatterSkipsMissing(t *testing.T) {
	pts, err := profile.Scatter(coasters(), "height_ft", "speed_mph")
	require.NoError(t, err)
	assert.Len(t, pts, 4)
	assert.Equal(t, profile.Point{X: 85, Y: 60}, pts[0])
}

func TestCorrelation(t *testing.T) {
	src := table.MustNew(
		table.MustColumn("x", table.KindNumeric, 1, 2, 3, 4),
		table.MustColumn("y", table.KindNumeric, 2, 4, 6, 8),
		table.MustColumn("z", table.KindNumeric, 4, 3, 2, 1),
		table.MustColumn("c", table.KindNumeric, 5, 5, 5, 5),
		table.MustColumn("s", table.KindText, "a", "b", "c", "d"),
	)
	m, err := profile.Correlation(src, nil, profile.CorrOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z", "c"}, m.Columns)
	r, _ := m.At("x", "y")
	assert.InDelta(t, 1, r, 1e-12)
	r, _ = m.At("z", "x")
	assert.InDelta(t, -1, r, 1e-12)
	r, _ = m.At("c", "c")
	assert.True(t, math.IsNaN(r))
	r, _ = m.At("x", "x")
	assert.Equal(t, 1.0, r)

	top := m.TopPairs(0)
	require.Len(t, top, 3)
	for _, p := range top {
		assert.InDelta(t, 1, math.Abs(p.R), 1e-12)
	}

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "null")

	_, err = profile.Correlation(src, []string{"x", "s"}, profile.CorrOptions{})
	require.ErrorIs(t, err, table.ErrTypeMismatch)
}

func TestCorrelationDropNA(t *testing.T) {
	src := table.MustNew(
		table.MustColumn("a", table.KindNumeric, 1, 2, 3, 4),
		table.MustColumn("b", table.KindNumeric, 1, 2, 3, 100),
		table.MustColumn("c", table.KindNumeric, 1, 2, 3, nil),
	)
	pairwise, err := profile.Correlation(src, []string{"a", "b", "c"}, profile.CorrOptions{})
	require.NoError(t, err)
	complete, err := profile.Correlation(src, []string{"a", "b", "c"}, profile.CorrOptions{DropNA: true})
	require.NoError(t, err)
	rp, _ := pairwise.At("a", "b")
	rc, _ := complete.At("a", "b")
	assert.Less(t, rp, 0.99)
	assert.InDelta(t, 1, rc, 1e-12)
}

func TestGroupBy(t *testing.T) {
	speed := []string{"speed_mph"}
	res, err := profile.GroupBy(coasters(), []string{"Type"}, speed,
		[]profile.Agg{profile.AggCount, profile.AggMean, profile.AggMax}, profile.GroupOptions{})
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)
	wooden := res.Groups[0]
	assert.Equal(t, "Type=Wooden", wooden.Label(res.Keys))
	assert.Equal(t, 3, wooden.Size)
	assert.Equal(t, 2.0, wooden.Stat("speed_mph", profile.AggCount))
	assert.Equal(t, 50.0, wooden.Stat("speed_mph", profile.AggMean))
	assert.Equal(t, 60.0, wooden.Stat("speed_mph", profile.AggMax))
	assert.True(t, math.IsNaN(wooden.Stat("speed_mph", profile.AggStd)))

	res, err = profile.GroupBy(coasters(), []string{"Type"}, speed,
		[]profile.Agg{profile.AggMean}, profile.GroupOptions{SortBy: profile.AggMean, Descending: true})
	require.NoError(t, err)
	assert.Equal(t, "Steel", res.Groups[0].Key[0].String())

	res, err = profile.GroupBy(coasters(), []string{"Type"}, nil, nil, profile.GroupOptions{MinCount: 3})
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, 3.0, res.Groups[0].Stat("", profile.AggSize))
	assert.Empty(t, res.Columns)

	_, err = profile.GroupBy(coasters(), []string{"Type"}, []string{"coaster_name"}, []profile.Agg{profile.AggMean}, profile.GroupOptions{})
	require.ErrorIs(t, err, table.ErrTypeMismatch)
	_, err = profile.GroupBy(coasters(), []string{"type"}, speed, nil, profile.GroupOptions{})
	require.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestGroupBySeveralColumns(t *testing.T) {
	// no value columns: every numeric non-key column
	res, err := profile.GroupBy(coasters(), []string{"Type"}, nil, []profile.Agg{profile.AggMean}, profile.GroupOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"speed_mph", "height_ft"}, res.Columns)
	steel := res.Groups[1]
	assert.Equal(t, 60.0, steel.Stat("speed_mph", profile.AggMean))
	assert.Equal(t, 85.0, steel.Stat("height_ft", profile.AggMean))

	cols := []string{"speed_mph", "height_ft"}
	_, err = profile.GroupBy(coasters(), []string{"Type"}, cols, []profile.Agg{profile.AggMean}, profile.GroupOptions{SortBy: profile.AggMean})
	assert.ErrorContains(t, err, "needs a sort column")
	_, err = profile.GroupBy(coasters(), []string{"Type"}, cols, []profile.Agg{profile.AggMean}, profile.GroupOptions{SortBy: profile.AggMean, SortColumn: "operating"})
	assert.ErrorContains(t, err, `sort column "operating"`)

	res, err = profile.GroupBy(coasters(), []string{"Type"}, cols, []profile.Agg{profile.AggMean},
		profile.GroupOptions{SortBy: profile.AggMean, SortColumn: "height_ft"})
	require.NoError(t, err)
	assert.Equal(t, "Wooden", res.Groups[0].Key[0].String())

	tb, err := res.Table()
	require.NoError(t, err)
	assert.Equal(t, []string{"Type", "size", "speed_mph mean", "height_ft mean"}, tb.Columns())
	assert.Equal(t, 2, tb.NumRows())

	tr, err := res.Transposed()
	require.NoError(t, err)
	assert.Equal(t, []string{"Type", "Wooden", "Steel"}, tr.Columns())
	labels, _ := tr.Column("Type")
	assert.Equal(t, "height_ft mean", labels.Value(2).String())
	steelCol, _ := tr.Column("Steel")
	h, _ := steelCol.Value(2).Float()
	assert.Equal(t, 85.0, h)

	raw, err := json.Marshal(res.Groups[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"height_ft":{"mean":`)

	_, err = profile.GroupBy(coasters(), []string{"Type"}, []string{"speed_mph", "speed_mph"}, nil, profile.GroupOptions{})
	assert.ErrorContains(t, err, "duplicate column")
}

func TestGroupByKeysDoNotCollide(t *testing.T) {
	src := table.MustNew(
		table.MustColumn("a", table.KindText, "x\x1fs:y", "x"),
		table.MustColumn("b", table.KindText, "z", "y\x1fs:z"),
	)
	res, err := profile.GroupBy(src, []string{"a", "b"}, nil, nil, profile.GroupOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Groups, 2)

	tr, err := res.Transposed()
	require.NoError(t, err)
	assert.Equal(t, 3, tr.NumCols())
}

func TestGroupByNullKeysFormNoGroup(t *testing.T) {
	src := table.MustNew(
		table.MustColumn("k", table.KindText, "a", nil, "a"),
		table.MustColumn("v", table.KindNumeric, 1, 2, 3),
	)
	res, err := profile.GroupBy(src, []string{"k"}, []string{"v"}, []profile.Agg{profile.AggSum}, profile.GroupOptions{})
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, 4.0, res.Groups[0].Stat("v", profile.AggSum))
}

func TestOutliersMAD(t *testing.T) {
	src := table.MustNew(table.MustColumn("x", table.KindNumeric, 10, 11, 12, 10, 11, 12, 10, 11, 100))
	o, err := profile.Outliers(src, "x", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, o.Count)
	assert.Equal(t, []int{8}, o.Rows)
	assert.Equal(t, 11.0, o.Median)
	assert.Equal(t, 1.0, o.MAD)
	assert.InDelta(t, 0.6745*89, o.MaxAbsZ, 1e-9)

	small, err := profile.Outliers(table.Head(src, 4), "x", 0)
	require.NoError(t, err)
	assert.Zero(t, small.Count)
}

func TestBuildReport(t *testing.T) {
	opt := profile.DefaultOptions()
	opt.GroupBy = []string{"type"}
	opt.Correlations = true
	opt.Outliers = true
	rep, err := profile.Build(coasters(), "coasters.csv", opt)
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Rows)
	require.Len(t, rep.Cols, 5)

	kinds := map[string]string{}
	for _, c := range rep.Cols {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, "categorical", kinds["Type"])
	assert.Equal(t, "numeric", kinds["speed_mph"])
	assert.Equal(t, "boolean", kinds["operating"])

	typ := rep.Cols[1]
	require.NotEmpty(t, typ.TopValues)
	assert.Equal(t, "Wooden", typ.TopValues[0].Value.String())
	assert.Equal(t, 3, typ.TopValues[0].Count)

	// Groups sorted by size desc
	require.Len(t, rep.Groups, 2)
	assert.Equal(t, "Type=Wooden", rep.Groups[0].Key)
	assert.Equal(t, 3, rep.Groups[0].Size)
	assert.Equal(t, 2, rep.Groups[0].Metrics["speed_mph"].Count)

	require.NotNil(t, rep.Corr)
	assert.Equal(t, []string{"speed_mph", "height_ft"}, rep.Corr.Columns)
	assert.Len(t, rep.Samples, 5)

	_, err = profile.Build(coasters(), "x", profile.Options{GroupBy: []string{"nope"}})
	require.ErrorIs(t, err, table.ErrColumnNotFound)
}
