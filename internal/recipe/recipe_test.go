package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabscope/internal/loader"
	"github.com/KaramelBytes/tabscope/internal/profile"
	"github.com/KaramelBytes/tabscope/internal/report"
	"github.com/KaramelBytes/tabscope/internal/table"
)

func newRunner(out *bytes.Buffer, sink report.ChartSink) *Runner {
	return &Runner{Out: out, Sink: sink, Load: loader.DefaultOptions(), Report: profile.DefaultOptions()}
}

func TestParseStepShapes(t *testing.T) {
	rec, err := Parse([]byte(`
steps:
  - id: a
    load: data.csv
  - describe:
  - id: vc
    from: a
    value_counts: Type
    chart: {title: Types}
`))
	require.NoError(t, err)
	require.Len(t, rec.Steps, 3)
	assert.Equal(t, "load", rec.Steps[0].Op)
	assert.Equal(t, "describe", rec.Steps[1].Op)
	assert.Equal(t, "#2", rec.Steps[1].name(1))
	assert.Equal(t, "a", rec.Steps[2].From)
	require.NotNil(t, rec.Steps[2].Chart)
	assert.Equal(t, "Types", rec.Steps[2].Chart.Title)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, doc, want string
	}{
		{"unknown op", "steps:\n  - describ:\n", `did you mean "describe"`},
		{"two ops", "steps:\n  - missing:\n    dtypes:\n", "two operations"},
		{"no op", "steps:\n  - id: x\n", "no operation"},
		{"duplicate id", "steps:\n  - id: a\n    missing:\n  - id: a\n    info:\n", `duplicate id "a"`},
		{"chart on table op", "steps:\n  - head: 3\n    chart: {title: x}\n", "chart is not available for head"},
		{"empty", "name: nothing\n", "no steps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunCoastersRecipe(t *testing.T) {
	rec, err := Load("testdata/coasters.yaml")
	require.NoError(t, err)

	var out bytes.Buffer
	sink := &report.MemorySink{}
	res, err := newRunner(&out, sink).Run(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, 9, res.Tables["raw"].NumRows())
	assert.Equal(t, 8, res.Tables["unique"].NumRows())
	assert.True(t, res.Tables["clean"].Has("Speed_MPH"))
	assert.False(t, res.Tables["clean"].Has("coaster_name"))

	fast := res.Tables["fast"]
	require.NotNil(t, fast)
	assert.Equal(t, 4, fast.NumRows())
	assert.Same(t, fast, res.Last)

	text := out.String()
	assert.Contains(t, text, "== #5: duplicated ==")
	assert.Contains(t, text, "1 duplicated rows of 9")
	assert.Contains(t, text, "== by_location: groupby ==")
	assert.Contains(t, text, "... 1 more rows")
	assert.Contains(t, text, "[4 rows x 9 columns]")
	groups := text[strings.Index(text, "== by_location"):strings.Index(text, "== #14: show")]
	assert.Less(t, strings.Index(groups, "Kings Island"), strings.Index(groups, "Cedar Point"))
	assert.NotContains(t, groups, "Crystal Beach Park")

	reqs := sink.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, report.ChartBar, reqs[0].Kind)
	assert.Equal(t, "Years Introduced", reqs[0].Title)
	assert.Equal(t, report.ChartHistogram, reqs[1].Kind)
	assert.Equal(t, report.ChartHeatmap, reqs[2].Kind)
	assert.Equal(t, 3, res.Charts)
}

func TestRunTreesRecipeJSON(t *testing.T) {
	rec, err := Load("testdata/trees.yaml")
	require.NoError(t, err)

	var out bytes.Buffer
	r := newRunner(&out, &report.MemorySink{})
	r.Format = "json"
	res, err := r.Run(context.Background(), rec)
	require.NoError(t, err)

	ids, err := res.Tables["ids"].Column("tree_id")
	require.NoError(t, err)
	assert.Equal(t, table.KindText, ids.Kind())
	assert.Equal(t, 4, res.Tables["big"].NumRows())
	assert.Equal(t, 1, res.Tables["stumps"].NumRows())

	dec := json.NewDecoder(&out)
	var steps []string
	for dec.More() {
		var msg struct {
			Step   string          `json:"step"`
			Op     string          `json:"op"`
			Result json.RawMessage `json:"result"`
		}
		require.NoError(t, dec.Decode(&msg))
		steps = append(steps, msg.Step+":"+msg.Op)
		if msg.Op == "dtypes" {
			assert.Contains(t, string(msg.Result), `"kind": "text"`)
		}
	}
	assert.Equal(t, []string{"#3:dtypes", "species:value_counts", "problems:value_counts_across", "#7:scatter", "#9:nunique"}, steps)
}

func TestRunReportsFailingStep(t *testing.T) {
	rec, err := Parse([]byte(`
steps:
  - load: testdata/coasters.csv
  - id: pick
    select: [coaster_name, Speeed]
`))
	require.NoError(t, err)
	res, err := newRunner(&bytes.Buffer{}, nil).Run(context.Background(), rec)
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "pick", stepErr.Step)
	assert.Equal(t, "select", stepErr.Op)
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
	assert.Contains(t, err.Error(), `did you mean "Speed"`)
	assert.Equal(t, 9, res.Tables["#1"].NumRows())
}

func TestRunNeedsTable(t *testing.T) {
	rec, err := Parse([]byte("steps:\n  - missing:\n"))
	require.NoError(t, err)
	_, err = newRunner(&bytes.Buffer{}, nil).Run(context.Background(), rec)
	assert.ErrorContains(t, err, "no table loaded")

	rec, err = Parse([]byte("steps:\n  - load: testdata/trees.csv\n  - from: nope\n    info:\n"))
	require.NoError(t, err)
	_, err = newRunner(&bytes.Buffer{}, nil).Run(context.Background(), rec)
	assert.ErrorContains(t, err, `unknown table "nope"`)
}

func TestRunUsesCache(t *testing.T) {
	cache, err := loader.NewCache(4)
	require.NoError(t, err)
	rec, err := Load("testdata/trees.yaml")
	require.NoError(t, err)
	r := newRunner(&bytes.Buffer{}, nil)
	r.Cache = cache
	_, err = r.Run(context.Background(), rec)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}

func TestFilterAnyOf(t *testing.T) {
	rec, err := Parse([]byte(`
steps:
  - load: testdata/coasters.csv
  - id: either
    filter:
      any:
        - {column: Location, op: eq, value: Other}
        - {column: Speed, op: ge, value: 100}
`))
	require.NoError(t, err)
	res, err := newRunner(&bytes.Buffer{}, nil).Run(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Tables["either"].NumRows())
}

func TestRunWorldRecipeGroupsSeveralColumns(t *testing.T) {
	rec, err := Load("testdata/world.yaml")
	require.NoError(t, err)
	var out bytes.Buffer
	res, err := newRunner(&out, nil).Run(context.Background(), rec)
	require.NoError(t, err)
	assert.Same(t, res.Tables["world"], res.Last)

	by := res.Tables["by_continent"]
	require.NotNil(t, by)
	assert.Equal(t, []string{"Continent", "size", "1970 Population mean", "2020 Population mean", "2022 Population mean"}, by.Columns())
	cont, err := by.Column("Continent")
	require.NoError(t, err)
	var order []string
	for _, v := range cont.Values() {
		order = append(order, v.String())
	}
	assert.Equal(t, []string{"Africa", "North America", "Asia"}, order)
	pop, err := by.Column("2022 Population mean")
	require.NoError(t, err)
	africa, _ := pop.Value(0).Float()
	assert.Equal(t, 170960568.0, africa)

	means := res.Tables["continent_means"]
	require.NotNil(t, means)
	assert.Equal(t, []string{"Continent", "Asia", "North America", "Africa"}, means.Columns())
	stat, err := means.Column("Continent")
	require.NoError(t, err)
	asia, err := means.Column("Asia")
	require.NoError(t, err)
	found := false
	for i, v := range stat.Values() {
		if v.String() == "2022 Population mean" {
			x, _ := asia.Value(i).Float()
			assert.InDelta(t, 1039520616.33, x, 0.01)
			found = true
		}
		assert.NotEqual(t, "Continent mean", v.String())
	}
	assert.True(t, found)
	assert.Contains(t, out.String(), "== continent_means: groupby ==")
	assert.Contains(t, out.String(), "Area mean")
}

func TestFilterNoneOf(t *testing.T) {
	rec, err := Parse([]byte(`
steps:
  - load: testdata/coasters.csv
  - id: neither
    filter:
      none:
        - {column: Location, op: eq, value: Cedar Point}
        - {column: Type, op: eq, value: Wooden}
  - id: fast_neither
    from: "#1"
    filter:
      all: [{column: Speed, op: ge, value: 60}]
      none: [{column: Location, op: eq, value: Cedar Point}, {column: Type, op: eq, value: Wooden}]
`))
	require.NoError(t, err)
	res, err := newRunner(&bytes.Buffer{}, nil).Run(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Tables["neither"].NumRows())
	assert.Equal(t, 1, res.Tables["fast_neither"].NumRows())
}
