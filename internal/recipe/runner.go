package recipe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tabscope/internal/loader"
	"github.com/KaramelBytes/tabscope/internal/profile"
	"github.com/KaramelBytes/tabscope/internal/report"
	"github.com/KaramelBytes/tabscope/internal/table"
)

// StepError reports which step of a recipe failed.
type StepError struct {
	Step string
	Op   string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s (%s): %v", e.Step, e.Op, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Runner executes recipes. The zero value prints text to nowhere and discards charts.
type Runner struct {
	Out io.Writer
	// Format is "text" (default) or "json".
	Format string
	Sink   report.ChartSink
	// Cache is optional; without it every load reads the source.
	Cache  *loader.Cache
	Load   loader.Options
	Report profile.Options
	Log    *slog.Logger
}

// Result holds every table a run produced, by step name.
type Result struct {
	Tables   map[string]*table.Table
	Last     *table.Table
	Charts   int
	Warnings []string
}

// provenance follows a table from its load step.
type provenance struct {
	source   string
	warnings []string
}

type env struct {
	r        *Runner
	step     *Step
	name     string
	in       *table.Table
	source   string
	warnings []string
}

// Run executes the steps in order and stops at the first failing step.
func (r *Runner) Run(ctx context.Context, rec *Recipe) (*Result, error) {
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	sink := r.Sink
	if sink == nil {
		sink = report.DiscardSink{}
	}
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	format := strings.ToLower(r.Format)
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("unknown output format %q (want text or json)", r.Format)
	}

	res := &Result{Tables: map[string]*table.Table{}}
	prov := map[string]provenance{}
	var last string
	for i := range rec.Steps {
		step := &rec.Steps[i]
		name := step.name(i)
		fail := func(err error) (*Result, error) {
			return res, &StepError{Step: name, Op: step.Op, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		spec := ops[step.Op]
		if step.Chart != nil && !spec.charts {
			return fail(fmt.Errorf("chart is not available for %s", step.Op))
		}
		log.Debug("recipe step", "step", name, "op", step.Op)

		if step.Op == "load" {
			ds, err := r.load(ctx, rec, step)
			if err != nil {
				return fail(err)
			}
			for _, w := range ds.Warnings {
				log.Warn("load warning", "step", name, "warning", w)
			}
			res.Warnings = append(res.Warnings, ds.Warnings...)
			res.Tables[name] = ds.Table
			prov[name] = provenance{source: ds.Name, warnings: ds.Warnings}
			last = name
			continue
		}

		from := step.From
		if from == "" {
			from = last
		}
		if from == "" {
			return fail(fmt.Errorf("no table loaded; start the recipe with a load step"))
		}
		in, ok := res.Tables[from]
		if !ok {
			return fail(fmt.Errorf("unknown table %q", from))
		}
		e := &env{r: r, step: step, name: name, in: in, source: prov[from].source, warnings: prov[from].warnings}
		o, err := spec.run(e)
		if err != nil {
			return fail(err)
		}
		if spec.produces {
			res.Tables[name] = o.table
			prov[name] = prov[from]
			last = name
			log.Debug("recipe table", "step", name, "rows", o.table.NumRows(), "cols", o.table.NumCols())
			continue
		}
		if err := r.emit(out, format, name, step.Op, o); err != nil {
			return fail(err)
		}
		if o.table != nil {
			res.Tables[name] = o.table
			prov[name] = prov[from]
		}
		if step.Chart != nil && o.chart != nil {
			title := step.Chart.Title
			if title == "" {
				title = name
			}
			if err := sink.Submit(ctx, o.chart(title)); err != nil {
				return fail(err)
			}
			res.Charts++
		}
	}
	if last != "" {
		res.Last = res.Tables[last]
	}
	return res, nil
}

func (r *Runner) emit(w io.Writer, format, name, op string, o output) error {
	if format == "json" {
		return report.JSON(w, struct {
			Step   string `json:"step"`
			Op     string `json:"op"`
			Result any    `json:"result"`
		}{name, op, o.value})
	}
	if _, err := fmt.Fprintf(w, "== %s: %s ==\n", name, op); err != nil {
		return err
	}
	return o.text(w)
}

// loadArgs names a source. A bare scalar is the path.
type loadArgs struct {
	Path       string `yaml:"path"`
	Format     string `yaml:"format"`
	Sheet      string `yaml:"sheet"`
	SheetIndex int    `yaml:"sheet_index"`
	Query      string `yaml:"query"`
	MaxRows    int    `yaml:"max_rows"`
	Delimiter  string `yaml:"delimiter"`
}

func (r *Runner) load(ctx context.Context, rec *Recipe, step *Step) (*loader.Dataset, error) {
	var args loadArgs
	var err error
	if step.args.Kind == yaml.ScalarNode {
		err = step.decode(&args.Path)
	} else {
		err = step.decode(&args)
	}
	if err != nil {
		return nil, err
	}
	if args.Path == "" {
		return nil, fmt.Errorf("load needs a path")
	}
	location := args.Path
	if !strings.Contains(location, "://") && !filepath.IsAbs(location) && rec.dir != "" {
		location = filepath.Join(rec.dir, location)
	}
	opt := r.Load
	if args.Format != "" {
		opt.Format = args.Format
	}
	if args.Sheet != "" {
		opt.Sheet = args.Sheet
	}
	if args.SheetIndex > 0 {
		opt.SheetIndex = args.SheetIndex
	}
	if args.Query != "" {
		opt.Query = args.Query
	}
	if args.MaxRows > 0 {
		opt.MaxRows = args.MaxRows
	}
	if args.Delimiter != "" {
		d := []rune(args.Delimiter)
		if args.Delimiter == `\t` {
			d = []rune{'\t'}
		}
		if len(d) != 1 {
			return nil, fmt.Errorf("delimiter must be one character, got %q", args.Delimiter)
		}
		opt.Delimiter = d[0]
	}
	if r.Cache != nil {
		return r.Cache.Open(ctx, location, opt)
	}
	return loader.Open(ctx, location, opt)
}
