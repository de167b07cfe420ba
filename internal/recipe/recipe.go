// Package recipe runs an analysis written as a YAML list of named steps. Each step
// performs exactly one table or profile operation, so a recipe replays the cells of
// an exploratory notebook as explicit function calls.
package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tabscope/internal/table"
)

// Recipe is a parsed recipe file.
type Recipe struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`

	// dir resolves relative load paths; empty means the working directory.
	dir string
}

// ChartSpec asks for a step's result to be handed to the chart sink.
type ChartSpec struct {
	Title string `yaml:"title"`
}

// Step is one operation. Exactly one operation key is set per step; the other keys
// are id, from and chart.
type Step struct {
	ID    string
	From  string
	Chart *ChartSpec
	Op    string

	args yaml.Node
}

// UnmarshalYAML reads the reserved keys and treats the single remaining key as the
// operation.
func (s *Step) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: step must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, n.Content[i+1]
		switch key {
		case "id":
			if err := val.Decode(&s.ID); err != nil {
				return err
			}
		case "from":
			if err := val.Decode(&s.From); err != nil {
				return err
			}
		case "chart":
			s.Chart = &ChartSpec{}
			if err := val.Decode(s.Chart); err != nil {
				return err
			}
		default:
			if _, ok := ops[key]; !ok {
				msg := fmt.Sprintf("line %d: unknown operation %q", n.Content[i].Line, key)
				if near := closestOp(key); near != "" {
					msg += fmt.Sprintf(" (did you mean %q?)", near)
				}
				return fmt.Errorf("%s", msg)
			}
			if s.Op != "" {
				return fmt.Errorf("line %d: step has two operations (%s, %s)", n.Line, s.Op, key)
			}
			s.Op = key
			s.args = *val
		}
	}
	if s.Op == "" {
		return fmt.Errorf("line %d: step has no operation", n.Line)
	}
	return nil
}

// decode fills dst from the operation's arguments. A bare key leaves dst unchanged.
func (s *Step) decode(dst any) error {
	if s.args.Kind == 0 || s.args.Tag == "!!null" {
		return nil
	}
	if err := s.args.Decode(dst); err != nil {
		return fmt.Errorf("arguments: %w", err)
	}
	return nil
}

// Name is the step's id, or its 1-based position when no id was given.
func (s *Step) name(i int) string {
	if s.ID != "" {
		return s.ID
	}
	return fmt.Sprintf("#%d", i+1)
}

// Parse decodes a recipe and checks step ids.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse recipe: %w", err)
	}
	if len(r.Steps) == 0 {
		return nil, fmt.Errorf("parse recipe: no steps")
	}
	seen := map[string]bool{}
	for i, s := range r.Steps {
		if s.Chart != nil && !ops[s.Op].charts {
			return nil, fmt.Errorf("step %d: chart is not available for %s", i+1, s.Op)
		}
		if s.ID == "" {
			continue
		}
		if strings.HasPrefix(s.ID, "#") {
			return nil, fmt.Errorf("step %d: id %q must not start with '#'", i+1, s.ID)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("step %d: duplicate id %q", i+1, s.ID)
		}
		seen[s.ID] = true
	}
	return &r, nil
}

// Load reads and parses a recipe file. Relative load paths inside it are resolved
// against the file's directory.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.dir = filepath.Dir(path)
	return r, nil
}

func closestOp(name string) string {
	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)
	return table.Suggest(names, name)
}
