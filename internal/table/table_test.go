package table_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
		table.MustColumn("coaster_name", table.KindText, "Cyclone", "Comet", "Cyclone", "Cyclone", "Boomerang"),
		table.MustColumn("Location", table.KindText, "Crystal Beach", "Lake", "Crystal Beach", "Coney", nil),
		table.MustColumn("year_introduced", table.KindNumeric, 1927, 1948, 1927, 1927, 1984),
		table.MustColumn("speed_mph", table.KindNumeric, 60, nil, 60, 55, 47),
	)
}

func TestNewRejectsInconsistentColumns(t *testing.T) {
	_, err := table.New(
		table.MustColumn("a", table.KindNumeric, 1, 2),
		table.MustColumn("b", table.KindNumeric, 1),
	)
	var lm *table.LengthMismatchError
	require.ErrorAs(t, err, &lm)
	assert.Equal(t, "b", lm.Column)

	_, err = table.New(
		table.MustColumn("a", table.KindNumeric, 1),
		table.MustColumn("a", table.KindText, "x"),
	)
	var dup *table.DuplicateColumnError
	require.ErrorAs(t, err, &dup)
}

func TestNewColumnTypeMismatch(t *testing.T) {
	_, err := table.NewColumn("score", table.KindNumeric, 1, "two")
	require.ErrorIs(t, err, table.ErrTypeMismatch)
	var tm *table.TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, 1, tm.Row)
}

func TestSelectColumnsKeepsRowsAndExactColumns(t *testing.T) {
	src := coasters()
	for _, names := range [][]string{
		{"coaster_name"},
		{"speed_mph", "coaster_name"},
		{"coaster_name", "Location", "year_introduced", "speed_mph"},
		{},
	} {
		out, err := table.SelectColumns(src, names)
		require.NoError(t, err)
		assert.Equal(t, src.NumRows(), out.NumRows())
		assert.Equal(t, names, append([]string{}, out.Columns()...))
	}
}

func TestSelectColumnsUnknownName(t *testing.T) {
	_, err := table.SelectColumns(coasters(), []string{"coaster_name", "Speed_mph"})
	require.ErrorIs(t, err, table.ErrColumnNotFound)
	var nf *table.ColumnNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Speed_mph", nf.Name)
	assert.Equal(t, "speed_mph", nf.Suggestion)
}

func TestDropDuplicatesScenario(t *testing.T) {
	out, err := table.DropDuplicates(scoreTable(), []string{"score"})
	require.NoError(t, err)
	require.Equal(t, 2, out.NumRows())
	assert.Equal(t, [][]string{{"1", "10"}, {"2", ""}}, out.Records())
}

func TestDropDuplicatesIdempotent(t *testing.T) {
	for _, keys := range [][]string{nil, {"coaster_name"}, {"coaster_name", "Location"}} {
		once, err := table.DropDuplicates(coasters(), keys)
		require.NoError(t, err)
		twice, err := table.DropDuplicates(once, keys)
		require.NoError(t, err)
		assert.Equal(t, once.Records(), twice.Records(), "keys=%v", keys)
	}
}

func TestDropDuplicatesFullRow(t *testing.T) {
	out, err := table.DropDuplicates(coasters(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, out.NumRows())

	dup, err := table.Duplicated(coasters(), []string{"coaster_name"})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, true, false}, dup)
}

func TestRenameThenSelect(t *testing.T) {
	renamed, err := table.RenameColumns(coasters(), map[string]string{
		"coaster_name": "Coaster_Name",
		"speed_mph":    "Speed_MPH",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Coaster_Name", "Location", "year_introduced", "Speed_MPH"}, renamed.Columns())

	_, err = table.SelectColumns(renamed, []string{"Coaster_Name"})
	require.NoError(t, err)
	_, err = table.SelectColumns(renamed, []string{"coaster_name"})
	require.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestRenameErrors(t *testing.T) {
	_, err := table.RenameColumns(coasters(), map[string]string{"nope": "x"})
	require.ErrorIs(t, err, table.ErrColumnNotFound)

	_, err = table.RenameColumns(coasters(), map[string]string{"speed_mph": "Location"})
	var dup *table.DuplicateColumnError
	require.ErrorAs(t, err, &dup)

	swapped, err := table.RenameColumns(coasters(), map[string]string{"speed_mph": "Location", "Location": "speed_mph"})
	require.NoError(t, err)
	assert.Equal(t, []string{"coaster_name", "speed_mph", "year_introduced", "Location"}, swapped.Columns())
}

func TestFilterRowsWithConditions(t *testing.T) {
	src := coasters()
	pred, err := table.Where(src,
		table.Condition{Column: "speed_mph", Op: table.OpGe, Value: 55},
		table.Condition{Column: "Location", Op: "!=", Value: "Coney"},
	)
	require.NoError(t, err)
	out := table.FilterRows(src, pred)
	assert.Equal(t, src.Columns(), out.Columns())
	assert.Equal(t, 2, out.NumRows())

	pred, err = (table.Condition{Column: "Location", Op: table.OpContains, Value: "Beach"}).Compile(src)
	require.NoError(t, err)
	assert.Equal(t, 2, table.FilterRows(src, pred).NumRows())

	pred, err = (table.Condition{Column: "Location", Op: table.OpIsNull}).Compile(src)
	require.NoError(t, err)
	assert.Equal(t, 1, table.FilterRows(src, pred).NumRows())

	pred, err = (table.Condition{Column: "year_introduced", Op: table.OpIn, Value: []any{1948, "1984"}}).Compile(src)
	require.NoError(t, err)
	assert.Equal(t, 2, table.FilterRows(src, pred).NumRows())

	_, err = (table.Condition{Column: "speed_mph", Op: table.OpContains, Value: "5"}).Compile(src)
	require.ErrorIs(t, err, table.ErrTypeMismatch)

	_, err = (table.Condition{Column: "speed", Op: table.OpGt, Value: 1}).Compile(src)
	require.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestFilterRowsNeverGrows(t *testing.T) {
	src := coasters()
	all := table.FilterRows(src, func(table.Row) bool { return true })
	none := table.FilterRows(src, func(table.Row) bool { return false })
	assert.Equal(t, src.NumRows(), all.NumRows())
	assert.Equal(t, 0, none.NumRows())
	assert.Equal(t, src.NumCols(), none.NumCols())
}

func TestSortByNullsLast(t *testing.T) {
	out, err := table.SortBy(coasters(), table.SortKey{Column: "speed_mph", Descending: true})
	require.NoError(t, err)
	speeds := make([]string, out.NumRows())
	for i := range speeds {
		v, _ := out.Row(i).Get("speed_mph")
		speeds[i] = v.String()
	}
	assert.Equal(t, []string{"60", "60", "55", "47", ""}, speeds)

	out, err = table.SortBy(coasters(), table.SortKey{Column: "speed_mph"})
	require.NoError(t, err)
	last, _ := out.Row(out.NumRows() - 1).Get("speed_mph")
	assert.True(t, last.IsNull())
}

func TestHeadTailAndKinds(t *testing.T) {
	src := coasters()
	assert.Equal(t, 3, table.Head(src, 3).NumRows())
	assert.Equal(t, 5, table.Head(src, 50).NumRows())
	tail := table.Tail(src, 2)
	require.Equal(t, 2, tail.NumRows())
	v, _ := tail.Row(1).Get("coaster_name")
	assert.Equal(t, "Boomerang", v.String())

	nums := table.SelectKinds(src, table.KindNumeric)
	assert.Equal(t, []string{"year_introduced", "speed_mph"}, nums.Columns())
}

func TestCastDigitIDToText(t *testing.T) {
	out, err := table.Cast(scoreTable(), "id", table.KindText, table.CastOptions{})
	require.NoError(t, err)
	c, err := out.Column("id")
	require.NoError(t, err)
	assert.Equal(t, table.KindText, c.Kind())
	s, ok := c.Value(0).Str()
	assert.True(t, ok)
	assert.Equal(t, "1", s)

	orig, _ := scoreTable().Column("id")
	assert.Equal(t, table.KindNumeric, orig.Kind())
}

func TestCastTextToDatetime(t *testing.T) {
	src := table.MustNew(table.MustColumn("opening_date_clean", table.KindText, "1927-05-30", nil, "bogus"))
	_, err := table.Cast(src, "opening_date_clean", table.KindDatetime, table.CastOptions{})
	var tm *table.TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, 2, tm.Row)

	out, err := table.Cast(src, "opening_date_clean", table.KindDatetime, table.CastOptions{Coerce: true})
	require.NoError(t, err)
	c, _ := out.Column("opening_date_clean")
	ts, ok := c.Value(0).Timestamp()
	require.True(t, ok)
	assert.Equal(t, time.Date(1927, 5, 30, 0, 0, 0, 0, time.UTC), ts)
	assert.Equal(t, 2, c.NullCount())
}

func TestValueKeysAndCompare(t *testing.T) {
	assert.True(t, table.Num(0).Equal(table.Num(-0.0)))
	assert.False(t, table.Num(1).Equal(table.Text("1")))
	assert.True(t, table.Null(table.KindNumeric).Equal(table.Null(table.KindText)))
	assert.Equal(t, -1, table.Compare(table.Num(1), table.Num(2)))
	assert.Equal(t, 1, table.Compare(table.Null(table.KindNumeric), table.Num(2)))
	assert.True(t, errors.Is(&table.EmptyTableError{Op: "describe"}, table.ErrEmptyTable))
}

func TestDuplicateKeysDoNotCollideOnSeparators(t *testing.T) {
	src := table.MustNew(
		table.MustColumn("a", table.KindText, "x\x1fs:y", "x", "x"),
		table.MustColumn("b", table.KindText, "z", "y\x1fs:z", "y\x1fs:z"),
	)
	out, err := table.DropDuplicates(src, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())

	assert.NotEqual(t, table.TupleKey(table.Text("ab"), table.Text("c")), table.TupleKey(table.Text("a"), table.Text("bc")))
	assert.Equal(t, table.TupleKey(table.Num(0), table.Null(table.KindText)), table.TupleKey(table.Num(-0.0), table.Null(table.KindNumeric)))
}

func TestTranspose(t *testing.T) {
	src := table.MustNew(
		table.MustColumn("Continent", table.KindText, "Asia", "Africa"),
		table.MustColumn("2022 Population", table.KindNumeric, 100, nil),
		table.MustColumn("1970 Population", table.KindNumeric, 40, 10),
	)
	out, err := table.Transpose(src, "Continent")
	require.NoError(t, err)
	assert.Equal(t, []string{"Continent", "Asia", "Africa"}, out.Columns())
	assert.Equal(t, 2, out.NumRows())
	africa, err := out.Column("Africa")
	require.NoError(t, err)
	assert.Equal(t, table.KindNumeric, africa.Kind())
	assert.True(t, africa.Value(0).IsNull())
	x, _ := africa.Value(1).Float()
	assert.Equal(t, 10.0, x)

	mixed, err := table.Transpose(coasters(), "coaster_name")
	require.Error(t, err)
	var dup *table.DuplicateColumnError
	assert.ErrorAs(t, err, &dup)
	assert.Nil(t, mixed)

	out, err = table.Transpose(table.Head(coasters(), 2), "coaster_name")
	require.NoError(t, err)
	comet, _ := out.Column("Comet")
	assert.Equal(t, table.KindText, comet.Kind())
	assert.Equal(t, "1948", comet.Value(1).String())

	_, err = table.Transpose(src, "continent")
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestCastRejectsNonFiniteText(t *testing.T) {
	src := table.MustNew(table.MustColumn("x", table.KindText, "1", "NaN", "-Inf"))
	_, err := table.Cast(src, "x", table.KindNumeric, table.CastOptions{})
	var tm *table.TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, 1, tm.Row)

	out, err := table.Cast(src, "x", table.KindNumeric, table.CastOptions{Coerce: true})
	require.NoError(t, err)
	c, _ := out.Column("x")
	assert.Equal(t, 2, c.NullCount())
}
