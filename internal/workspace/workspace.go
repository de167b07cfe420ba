// Package workspace persists a named collection of profiled datasets.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/tabscope/internal/loader"
	"github.com/KaramelBytes/tabscope/internal/profile"
	"github.com/KaramelBytes/tabscope/internal/report"
	"github.com/KaramelBytes/tabscope/internal/utils"
)

// FileName is the workspace metadata file inside a workspace directory.
const FileName = "workspace.json"

// Workspace is a tabscope workspace persisted on disk.
type Workspace struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Datasets    map[string]*Dataset `json:"datasets"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	// Not serialized: on-disk location of the workspace.json
	rootDir string `json:"-"`
}

// Dataset holds provenance and the cached Markdown report of one dataset.
type Dataset struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Summary     string    `json:"summary"`
	Rows        int       `json:"rows"`
	Cols        int       `json:"cols"`
	Warnings    []string  `json:"warnings,omitempty"`
	AddedAt     time.Time `json:"added_at"`
	// Seq orders datasets by insertion.
	Seq int `json:"seq"`
}

// New constructs an in-memory workspace. Call Save to persist.
func New(name, description, rootDir string) *Workspace {
	now := time.Now()
	return &Workspace{
		Name:        name,
		Description: description,
		Datasets:    make(map[string]*Dataset),
		CreatedAt:   now,
		UpdatedAt:   now,
		rootDir:     rootDir,
	}
}

// Load reads workspace.json from dir.
func Load(dir string) (*Workspace, error) {
	path := filepath.Join(dir, FileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("workspace not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	var w Workspace
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("parse workspace: %w", err)
	}
	if w.Datasets == nil {
		w.Datasets = make(map[string]*Dataset)
	}
	w.rootDir = dir
	return &w, nil
}

// Find loads the workspace enclosing start, walking up parent directories.
func Find(start string) (*Workspace, error) {
	dir, err := utils.FindRoot(start, FileName)
	if err != nil {
		return nil, err
	}
	return Load(dir)
}

// RootDir returns the on-disk workspace directory path.
func (w *Workspace) RootDir() string { return w.rootDir }

// Save writes workspace.json using atomic write.
func (w *Workspace) Save() error {
	if w.rootDir == "" {
		return errors.New("workspace root directory not set")
	}
	if err := utils.EnsureDir(w.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	w.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(w)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(w.rootDir, FileName), data)
}

// Add profiles a loaded dataset and records it with its Markdown report.
func (w *Workspace) Add(ds *loader.Dataset, description string, opt profile.Options) (*Dataset, error) {
	rep, err := ds.Report(opt)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", ds.Name, err)
	}
	d := &Dataset{
		ID:          uuid.NewString(),
		Source:      ds.Source,
		Name:        ds.Name,
		Description: strings.TrimSpace(description),
		Summary:     report.Markdown(rep),
		Rows:        rep.Rows,
		Cols:        ds.Table.NumCols(),
		Warnings:    ds.Warnings,
		AddedAt:     time.Now(),
	}
	if w.Datasets == nil {
		w.Datasets = make(map[string]*Dataset)
	}
	for _, other := range w.Datasets {
		if other.Seq >= d.Seq {
			d.Seq = other.Seq + 1
		}
	}
	w.Datasets[d.ID] = d
	w.UpdatedAt = time.Now()
	return d, nil
}

// Get returns the dataset whose id starts with prefix. Ambiguous prefixes fail.
func (w *Workspace) Get(prefix string) (*Dataset, error) {
	if d, ok := w.Datasets[prefix]; ok {
		return d, nil
	}
	var found *Dataset
	for id, d := range w.Datasets {
		if prefix != "" && strings.HasPrefix(id, prefix) {
			if found != nil {
				return nil, fmt.Errorf("dataset id prefix %q is ambiguous", prefix)
			}
			found = d
		}
	}
	if found == nil {
		return nil, fmt.Errorf("dataset %q not found", prefix)
	}
	return found, nil
}

// Remove deletes a dataset by id or unique id prefix.
func (w *Workspace) Remove(prefix string) error {
	d, err := w.Get(prefix)
	if err != nil {
		return err
	}
	delete(w.Datasets, d.ID)
	w.UpdatedAt = time.Now()
	return nil
}

// List returns datasets in the order they were added.
func (w *Workspace) List() []*Dataset {
	out := make([]*Dataset, 0, len(w.Datasets))
	for _, d := range w.Datasets {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Summary concatenates the dataset reports into one Markdown document.
func (w *Workspace) Summary() (string, error) {
	if len(w.Datasets) == 0 {
		return "", errors.New("no datasets added to workspace")
	}
	var sb strings.Builder
	sb.WriteString("[WORKSPACE]\n")
	sb.WriteString(w.Name)
	if w.Description != "" {
		sb.WriteString(" (")
		sb.WriteString(w.Description)
		sb.WriteString(")")
	}
	sb.WriteString("\n\n")
	for _, d := range w.List() {
		sb.WriteString("--- Dataset: ")
		sb.WriteString(d.Name)
		if d.Description != "" {
			sb.WriteString(" (")
			sb.WriteString(d.Description)
			sb.WriteString(")")
		}
		sb.WriteString(" ---\n")
		sb.WriteString(d.Summary)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
