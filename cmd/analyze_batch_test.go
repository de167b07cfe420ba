package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabscope/internal/workspace"
)

func TestAnalyzeBatch_AttachAndSuppressSamples(t *testing.T) {
	home := isolate(t)

	// Two CSV files with the same basename in different directories
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	writeFile(t, filepath.Join(home, "d1", "metrics.csv"), csv)
	writeFile(t, filepath.Join(home, "d2", "metrics.csv"), csv+"D,4\n")

	runCmd(t, "init", "batchp", "-d", "batch workspace")
	out := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), "-w", "batchp", "--sample-rows-workspace", "0")
	assert.Contains(t, out, "[1/2] Processing metrics.csv...")
	assert.Contains(t, out, "[2/2] Processing metrics.csv...")

	dir, err := resolveWorkspaceDir("batchp")
	require.NoError(t, err)
	w, err := workspace.Load(dir)
	require.NoError(t, err)
	datasets := w.List()
	require.Len(t, datasets, 2)

	// input order is kept regardless of which load finished first
	assert.Equal(t, 3, datasets[0].Rows)
	assert.Equal(t, 4, datasets[1].Rows)
	for _, d := range datasets {
		assert.Equal(t, "metrics.csv", d.Name)
		assert.NotContains(t, d.Summary, "[HEAD AND SAMPLE ROWS]")
	}
}

func TestAnalyzeBatch_PrintsInInputOrder(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, "b.csv"), "x\n1\n2\n")
	writeFile(t, filepath.Join(home, "a.tsv"), "y\tz\n1\t2\n")

	out := runCmd(t, "analyze-batch", filepath.Join(home, "*.csv"), filepath.Join(home, "a.tsv"), filepath.Join(home, "b.csv"), "--workers", "2")
	first := strings.Index(out, "a.tsv")
	second := strings.Index(out, "b.csv")
	require.True(t, first >= 0 && second >= 0)
	assert.Less(t, first, second)
	assert.Equal(t, 2, strings.Count(out, "[DATASET SUMMARY]"))

	out = runCmd(t, "analyze-batch", filepath.Join(home, "*.csv"), "--quiet")
	assert.Empty(t, out)

	_, err := tryCmd("analyze-batch", filepath.Join(home, "nothing*.csv"))
	assert.ErrorContains(t, err, "no input files matched")
}

func TestExpandInputs(t *testing.T) {
	home := t.TempDir()
	a := writeFile(t, filepath.Join(home, "a.csv"), "x\n1\n")
	b := writeFile(t, filepath.Join(home, "b.csv"), "x\n1\n")

	got := expandInputs([]string{filepath.Join(home, "*.csv"), a, "s3://bucket/data.csv", filepath.Join(home, "missing.csv")})
	assert.Equal(t, []string{a, b, "s3://bucket/data.csv"}, got)
}
