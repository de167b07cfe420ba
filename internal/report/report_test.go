package report

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabscope/internal/profile"
	"github.com/KaramelBytes/tabscope/internal/table"
)

func coasters() *table.Table {
	return table.MustNew(
		table.MustColumn("coaster_name", table.KindText, "Cyclone", "Comet", "Cyclone", "Racer", "Boomerang"),
		table.MustColumn("Type", table.KindText, "Wooden", "Steel", "Wooden", "Steel", "Wooden"),
		table.MustColumn("speed_mph", table.KindNumeric, 60, 70, nil, 50, 40),
		table.MustColumn("height_ft", table.KindNumeric, 85, 100, 85, 70, 60),
	)
}

func TestWriteTableTruncatesRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, coasters(), TableOptions{MaxRows: 2}))
	out := buf.String()
	assert.Contains(t, out, "coaster_name")
	assert.Contains(t, out, "Cyclone")
	assert.Contains(t, out, "Comet")
	assert.NotContains(t, out, "Boomerang")
	assert.Contains(t, out, "... 3 more rows")
	assert.Contains(t, out, "[5 rows x 4 columns]")
}

func TestWriteTableShowsMissingAsNaN(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, table.Tail(coasters(), 3), TableOptions{}))
	assert.Contains(t, buf.String(), "NaN")
}

func TestWriteProfileOutputs(t *testing.T) {
	tb := coasters()
	var buf bytes.Buffer

	require.NoError(t, WriteCounts(&buf, "missing", profile.MissingCounts(tb)))
	assert.Contains(t, buf.String(), "missing")
	assert.Contains(t, buf.String(), "speed_mph")

	buf.Reset()
	desc, err := profile.DescribeNumeric(tb)
	require.NoError(t, err)
	require.NoError(t, WriteDescribe(&buf, desc))
	for _, s := range []string{"count", "mean", "std", "25%", "75%", "max", "height_ft"} {
		assert.Contains(t, buf.String(), s)
	}

	buf.Reset()
	vc, err := profile.ValueCounts(tb, "Type")
	require.NoError(t, err)
	require.NoError(t, WriteValueCounts(&buf, "Type", vc))
	assert.Contains(t, buf.String(), "Wooden")

	buf.Reset()
	m, err := profile.Correlation(tb, nil, profile.CorrOptions{})
	require.NoError(t, err)
	require.NoError(t, WriteMatrix(&buf, m))
	assert.Contains(t, buf.String(), "height_ft")

	buf.Reset()
	g, err := profile.GroupBy(tb, []string{"Type"}, []string{"speed_mph"}, nil, profile.GroupOptions{})
	require.NoError(t, err)
	require.NoError(t, WriteGroups(&buf, g))
	assert.Contains(t, buf.String(), "speed_mph mean")
	assert.Contains(t, buf.String(), "Steel")

	buf.Reset()
	bins, err := profile.Histogram(tb, "height_ft", 2)
	require.NoError(t, err)
	require.NoError(t, WriteBins(&buf, "height_ft", bins))
	assert.Contains(t, buf.String(), "[60, 80)")
	assert.Contains(t, buf.String(), "[80, 100]")

	buf.Reset()
	require.NoError(t, WriteInfo(&buf, profile.Info(tb)))
	assert.Contains(t, buf.String(), "5 rows x 4 columns")

	buf.Reset()
	require.NoError(t, WriteKinds(&buf, profile.DTypes(tb)))
	assert.Contains(t, buf.String(), "numeric")
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "NaN", FormatFloat(math.NaN()))
	assert.Equal(t, "10", FormatFloat(10))
	assert.Equal(t, "0.333333", FormatFloat(1.0/3))
	assert.Equal(t, "-inf", FormatFloat(math.Inf(-1)))
}

func TestMarkdownSections(t *testing.T) {
	opt := profile.DefaultOptions()
	opt.GroupBy = []string{"Type"}
	opt.Correlations = true
	opt.CorrPerGroup = true
	rep, err := profile.Build(coasters(), "coasters.csv", opt)
	require.NoError(t, err)
	rep.Warnings = []string{"processed only 5/9 rows due to MaxRows"}

	md := Markdown(rep)
	for _, section := range []string{"[DATASET SUMMARY]", "[SCHEMA]", "[GROUP-BY SUMMARY]", "[CORRELATIONS]", "[HEAD AND SAMPLE ROWS]", "[NOTES]"} {
		assert.Contains(t, md, section)
	}
	assert.Contains(t, md, "File: coasters.csv")
	assert.Contains(t, md, "- Type: categorical")
	assert.Contains(t, md, "Wooden(3)")
	assert.Contains(t, md, "- speed_mph: numeric (non-null 4, missing 20.0%)")
	assert.Contains(t, md, "| coaster_name | Type | speed_mph | height_ft |")
	assert.NotContains(t, md, "—")
}

func TestJSONEncodesNaNAsNull(t *testing.T) {
	desc, err := profile.DescribeColumn(table.MustNew(table.MustColumn("x", table.KindNumeric, 3)), "x")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, desc))
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	stats := got["stats"].(map[string]any)
	assert.Nil(t, stats["std"])
	assert.Equal(t, 3.0, stats["mean"])
}

func TestJSONLinesSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts.jsonl")
	sink, err := OpenJSONLinesSink(path)
	require.NoError(t, err)

	vc, err := profile.ValueCounts(coasters(), "Type")
	require.NoError(t, err)
	bar := BarChart("types", "Type", vc)
	require.NoError(t, sink.Submit(context.Background(), bar))
	pts, err := profile.Scatter(coasters(), "speed_mph", "height_ft")
	require.NoError(t, err)
	require.NoError(t, sink.Submit(context.Background(), ScatterChart("speed vs height", "speed_mph", "height_ft", pts)))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "bar", first["kind"])
	assert.Equal(t, bar.ID.String(), first["id"])
	assert.Equal(t, "Type", first["x_label"])
	rows := first["data"].([]any)
	assert.Equal(t, "Wooden", rows[0].(map[string]any)["label"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "scatter", second["kind"])
	assert.Len(t, second["data"], 4)
}

func TestMemoryAndDiscardSinks(t *testing.T) {
	ctx := context.Background()
	var mem MemorySink
	bins, err := profile.Histogram(coasters(), "speed_mph", 3)
	require.NoError(t, err)
	req := HistogramChart("speed", "speed_mph", bins)
	require.NoError(t, mem.Submit(ctx, req))
	require.Len(t, mem.Requests(), 1)
	assert.Equal(t, ChartHistogram, mem.Requests()[0].Kind)
	assert.NotEqual(t, req.ID, HistogramChart("speed", "speed_mph", bins).ID)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, mem.Submit(cancelled, req))
	assert.NoError(t, DiscardSink{}.Submit(ctx, req))
}

func TestBoxChartCarriesQuartiles(t *testing.T) {
	desc, err := profile.DescribeNumeric(coasters())
	require.NoError(t, err)
	req := BoxChart("spread", desc)
	assert.Equal(t, ChartBox, req.Kind)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	var got struct {
		Kind string `json:"kind"`
		Data []struct {
			Column string             `json:"column"`
			Stats  map[string]float64 `json:"stats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "box", got.Kind)
	require.Len(t, got.Data, len(desc))
	assert.Equal(t, desc[0].Column, got.Data[0].Column)
	assert.Equal(t, desc[0].Stats.Q25, got.Data[0].Stats["25%"])
	assert.Equal(t, desc[0].Stats.Q75, got.Data[0].Stats["75%"])
}
