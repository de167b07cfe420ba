package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := SafeWriteFile(path, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := SafeWriteFile(path, []byte("two")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "two" {
		t.Fatalf("got %q, want %q", b, "two")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := EnsureDir(nested); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "workspace.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(nested, "data.csv")
	if err := os.WriteFile(file, []byte("x\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, start := range []string{nested, file} {
		got, err := FindRoot(start, "workspace.json")
		if err != nil {
			t.Fatalf("FindRoot(%s): %v", start, err)
		}
		if got != root {
			t.Fatalf("FindRoot(%s) = %s, want %s", start, got, root)
		}
	}
	if _, err := FindRoot(nested, "missing.json"); err == nil {
		t.Fatal("expected error for missing marker")
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"rows": 3})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{\n  \"rows\": 3\n}" {
		t.Fatalf("unexpected json: %s", b)
	}
}
