package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabscope/internal/loader"
	"github.com/KaramelBytes/tabscope/internal/profile"
	"github.com/KaramelBytes/tabscope/internal/workspace"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAddSaveLoadSummary(t *testing.T) {
	tdir := t.TempDir()
	p1 := writeFile(t, tdir, "scores.csv", "id,score\n1,10\n2,\n3,10\n")
	p2 := writeFile(t, tdir, "trees.tsv", "species\theight (m)\noak\t20\nelm\t15\n")

	ws := workspace.New("eda", "park survey", filepath.Join(tdir, "ws"))
	for _, p := range []struct{ path, desc string }{{p1, "first"}, {p2, "second"}} {
		ds, err := loader.Open(context.Background(), p.path, loader.DefaultOptions())
		require.NoError(t, err)
		_, err = ws.Add(ds, p.desc, profile.DefaultOptions())
		require.NoError(t, err)
	}
	require.NoError(t, ws.Save())

	loaded, err := workspace.Load(filepath.Join(tdir, "ws"))
	require.NoError(t, err)
	require.Len(t, loaded.Datasets, 2)
	list := loaded.List()
	assert.Equal(t, "scores.csv", list[0].Name)
	assert.Equal(t, 3, list[0].Rows)
	assert.Equal(t, 2, list[1].Cols)

	summary, err := loaded.Summary()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(summary, "[WORKSPACE]\neda (park survey)"))
	assert.Contains(t, summary, "--- Dataset: scores.csv (first) ---")
	assert.Contains(t, summary, "[DATASET SUMMARY]")
	assert.Contains(t, summary, "height [m]")
}

func TestGetRemoveAndFind(t *testing.T) {
	tdir := t.TempDir()
	p := writeFile(t, tdir, "a.csv", "x\n1\n2\n")
	root := filepath.Join(tdir, "ws")
	ws := workspace.New("w", "", root)
	ds, err := loader.Open(context.Background(), p, loader.DefaultOptions())
	require.NoError(t, err)
	added, err := ws.Add(ds, "", profile.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, ws.Save())

	got, err := ws.Get(added.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, added.ID, got.ID)
	_, err = ws.Get("zzzz")
	assert.Error(t, err)

	sub := filepath.Join(root, "notes")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	found, err := workspace.Find(sub)
	require.NoError(t, err)
	assert.Equal(t, root, found.RootDir())

	require.NoError(t, ws.Remove(added.ID))
	assert.Empty(t, ws.List())
	_, err = ws.Summary()
	assert.Error(t, err)
}

func TestLoadMissing(t *testing.T) {
	_, err := workspace.Load(t.TempDir())
	assert.ErrorContains(t, err, "workspace not found")
}
