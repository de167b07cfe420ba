package recipe

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tabscope/internal/profile"
	"github.com/KaramelBytes/tabscope/internal/report"
	"github.com/KaramelBytes/tabscope/internal/table"
)

// output is what a step hands back to the runner. Table-producing steps set table;
// profile steps set value, text and, when chartable, chart. A profile step may also
// set table to make its result addressable by later steps.
type output struct {
	table *table.Table
	value any
	text  func(w io.Writer) error
	chart func(title string) report.ChartRequest
}

type opSpec struct {
	// produces marks steps whose table becomes the default input of later steps.
	produces bool
	// charts marks steps that accept a chart block.
	charts bool
	run    func(e *env) (output, error)
}

// ops is the operation registry. load is handled by the runner since it has no
// input table.
var ops = map[string]opSpec{
	"load":                {produces: true},
	"select":              {produces: true, run: runSelect},
	"drop":                {produces: true, run: runDrop},
	"filter":              {produces: true, run: runFilter},
	"rename":              {produces: true, run: runRename},
	"cast":                {produces: true, run: runCast},
	"dedupe":              {produces: true, run: runDedupe},
	"sort":                {produces: true, run: runSort},
	"head":                {produces: true, run: runHead},
	"tail":                {produces: true, run: runTail},
	"kinds":               {produces: true, run: runKinds},
	"duplicated":          {run: runDuplicated},
	"show":                {run: runShow},
	"missing":             {run: runMissing},
	"dtypes":              {run: runDTypes},
	"describe":            {charts: true, run: runDescribe},
	"nunique":             {run: runNUnique},
	"info":                {run: runInfo},
	"value_counts":        {charts: true, run: runValueCounts},
	"value_counts_across": {run: runValueCountsAcross},
	"histogram":           {charts: true, run: runHistogram},
	"scatter":             {charts: true, run: runScatter},
	"corr":                {charts: true, run: runCorr},
	"groupby":             {run: runGroupBy},
	"report":              {run: runReport},
}

func tableOut(t *table.Table, err error) (output, error) {
	if err != nil {
		return output{}, err
	}
	return output{table: t}, nil
}

func runSelect(e *env) (output, error) {
	var names []string
	if err := e.step.decode(&names); err != nil {
		return output{}, err
	}
	return tableOut(table.SelectColumns(e.in, names))
}

func runDrop(e *env) (output, error) {
	var names []string
	if err := e.step.decode(&names); err != nil {
		return output{}, err
	}
	return tableOut(table.DropColumns(e.in, names))
}

// filterArgs combines an all-of, an any-of and a none-of list. A bare list means
// all-of.
type filterArgs struct {
	All  []table.Condition `yaml:"all"`
	Any  []table.Condition `yaml:"any"`
	None []table.Condition `yaml:"none"`
}

func (f *filterArgs) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.SequenceNode {
		return n.Decode(&f.All)
	}
	type plain filterArgs
	return n.Decode((*plain)(f))
}

func compileEach(t *table.Table, conds []table.Condition) ([]table.Predicate, error) {
	preds := make([]table.Predicate, len(conds))
	for i, c := range conds {
		p, err := c.Compile(t)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	return preds, nil
}

func runFilter(e *env) (output, error) {
	var args filterArgs
	if err := e.step.decode(&args); err != nil {
		return output{}, err
	}
	if len(args.All) == 0 && len(args.Any) == 0 && len(args.None) == 0 {
		return output{}, fmt.Errorf("filter needs at least one condition")
	}
	all, err := table.Where(e.in, args.All...)
	if err != nil {
		return output{}, err
	}
	keep := []table.Predicate{all}
	if len(args.Any) > 0 {
		preds, err := compileEach(e.in, args.Any)
		if err != nil {
			return output{}, err
		}
		keep = append(keep, table.Any(preds...))
	}
	if len(args.None) > 0 {
		preds, err := compileEach(e.in, args.None)
		if err != nil {
			return output{}, err
		}
		keep = append(keep, table.Not(table.Any(preds...)))
	}
	return output{table: table.FilterRows(e.in, table.All(keep...))}, nil
}

func runRename(e *env) (output, error) {
	var mapping map[string]string
	if err := e.step.decode(&mapping); err != nil {
		return output{}, err
	}
	return tableOut(table.RenameColumns(e.in, mapping))
}

type castArgs struct {
	Column  string     `yaml:"column"`
	Kind    table.Kind `yaml:"kind"`
	Coerce  bool       `yaml:"coerce"`
	Layouts []string   `yaml:"layouts"`
}

func runCast(e *env) (output, error) {
	var args castArgs
	if err := e.step.decode(&args); err != nil {
		return output{}, err
	}
	if args.Column == "" {
		return output{}, fmt.Errorf("cast needs a column")
	}
	return tableOut(table.Cast(e.in, args.Column, args.Kind, table.CastOptions{Layouts: args.Layouts, Coerce: args.Coerce}))
}

func runDedupe(e *env) (output, error) {
	var keys []string
	if err := e.step.decode(&keys); err != nil {
		return output{}, err
	}
	return tableOut(table.DropDuplicates(e.in, keys))
}

func runSort(e *env) (output, error) {
	var keys []table.SortKey
	if err := e.step.decode(&keys); err != nil {
		return output{}, err
	}
	return tableOut(table.SortBy(e.in, keys...))
}

func rowCount(e *env, def int) (int, error) {
	n := def
	if err := e.step.decode(&n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("row count must not be negative, got %d", n)
	}
	return n, nil
}

func runHead(e *env) (output, error) {
	n, err := rowCount(e, 5)
	if err != nil {
		return output{}, err
	}
	return output{table: table.Head(e.in, n)}, nil
}

func runTail(e *env) (output, error) {
	n, err := rowCount(e, 5)
	if err != nil {
		return output{}, err
	}
	return output{table: table.Tail(e.in, n)}, nil
}

func runKinds(e *env) (output, error) {
	var kinds []table.Kind
	if err := e.step.decode(&kinds); err != nil {
		return output{}, err
	}
	if len(kinds) == 0 {
		return output{}, fmt.Errorf("kinds needs at least one kind")
	}
	return output{table: table.SelectKinds(e.in, kinds...)}, nil
}

type duplicatedResult struct {
	Count int   `json:"count"`
	Rows  []int `json:"rows"`
}

func runDuplicated(e *env) (output, error) {
	var keys []string
	if err := e.step.decode(&keys); err != nil {
		return output{}, err
	}
	mask, err := table.Duplicated(e.in, keys)
	if err != nil {
		return output{}, err
	}
	res := duplicatedResult{Rows: []int{}}
	for i, dup := range mask {
		if dup {
			res.Rows = append(res.Rows, i)
		}
	}
	res.Count = len(res.Rows)
	return output{value: res, text: func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%d duplicated rows of %d\n", res.Count, len(mask))
		return err
	}}, nil
}

func runShow(e *env) (output, error) {
	n, err := rowCount(e, 10)
	if err != nil {
		return output{}, err
	}
	t := e.in
	return output{
		value: tableJSON(table.Head(t, n)),
		text:  func(w io.Writer) error { return report.WriteTable(w, t, report.TableOptions{MaxRows: n}) },
	}, nil
}

// tableJSON turns rows into objects keyed by column name.
func tableJSON(t *table.Table) []map[string]table.Value {
	rows := make([]map[string]table.Value, t.NumRows())
	names := t.Columns()
	for i := range rows {
		r := t.Row(i)
		rows[i] = make(map[string]table.Value, len(names))
		for j, name := range names {
			rows[i][name] = r.At(j)
		}
	}
	return rows
}

func runMissing(e *env) (output, error) {
	counts := profile.MissingCounts(e.in)
	return output{value: counts, text: func(w io.Writer) error { return report.WriteCounts(w, "", counts) }}, nil
}

func runNUnique(e *env) (output, error) {
	counts := profile.NUnique(e.in)
	return output{value: counts, text: func(w io.Writer) error { return report.WriteCounts(w, "", counts) }}, nil
}

func runDTypes(e *env) (output, error) {
	kinds := profile.DTypes(e.in)
	return output{value: kinds, text: func(w io.Writer) error { return report.WriteKinds(w, kinds) }}, nil
}

func runInfo(e *env) (output, error) {
	info := profile.Info(e.in)
	return output{value: info, text: func(w io.Writer) error { return report.WriteInfo(w, info) }}, nil
}

// runDescribe describes every numeric column, or one named column.
func runDescribe(e *env) (output, error) {
	var column string
	if err := e.step.decode(&column); err != nil {
		return output{}, err
	}
	var (
		desc []profile.Description
		err  error
	)
	if column != "" {
		var d profile.Description
		d, err = profile.DescribeColumn(e.in, column)
		desc = []profile.Description{d}
	} else {
		desc, err = profile.DescribeNumeric(e.in)
	}
	if err != nil {
		return output{}, err
	}
	return output{
		value: desc,
		text:  func(w io.Writer) error { return report.WriteDescribe(w, desc) },
		chart: func(title string) report.ChartRequest { return report.BoxChart(title, desc) },
	}, nil
}

func runValueCounts(e *env) (output, error) {
	var column string
	if err := e.step.decode(&column); err != nil {
		return output{}, err
	}
	counts, err := profile.ValueCounts(e.in, column)
	if err != nil {
		return output{}, err
	}
	return output{
		value: counts,
		text:  func(w io.Writer) error { return report.WriteValueCounts(w, column, counts) },
		chart: func(title string) report.ChartRequest { return report.BarChart(title, column, counts) },
	}, nil
}

func runValueCountsAcross(e *env) (output, error) {
	var columns []string
	if err := e.step.decode(&columns); err != nil {
		return output{}, err
	}
	cc, err := profile.ValueCountsAcross(e.in, columns)
	if err != nil {
		return output{}, err
	}
	return output{value: cc, text: func(w io.Writer) error { return report.WriteCrossCounts(w, cc) }}, nil
}

type histArgs struct {
	Column string `yaml:"column"`
	Bins   int    `yaml:"bins"`
}

func runHistogram(e *env) (output, error) {
	args := histArgs{Bins: profile.DefaultBins}
	if e.step.args.Kind == yaml.ScalarNode {
		if err := e.step.decode(&args.Column); err != nil {
			return output{}, err
		}
	} else if err := e.step.decode(&args); err != nil {
		return output{}, err
	}
	bins, err := profile.Histogram(e.in, args.Column, args.Bins)
	if err != nil {
		return output{}, err
	}
	return output{
		value: bins,
		text:  func(w io.Writer) error { return report.WriteBins(w, args.Column, bins) },
		chart: func(title string) report.ChartRequest { return report.HistogramChart(title, args.Column, bins) },
	}, nil
}

type scatterArgs struct {
	X string `yaml:"x"`
	Y string `yaml:"y"`
}

func runScatter(e *env) (output, error) {
	var args scatterArgs
	if err := e.step.decode(&args); err != nil {
		return output{}, err
	}
	pts, err := profile.Scatter(e.in, args.X, args.Y)
	if err != nil {
		return output{}, err
	}
	return output{
		value: pts,
		text: func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "%d points (%s, %s)\n", len(pts), args.X, args.Y)
			return err
		},
		chart: func(title string) report.ChartRequest { return report.ScatterChart(title, args.X, args.Y, pts) },
	}, nil
}

type corrArgs struct {
	Columns []string `yaml:"columns"`
	DropNA  bool     `yaml:"dropna"`
}

func runCorr(e *env) (output, error) {
	var args corrArgs
	if err := e.step.decode(&args); err != nil {
		return output{}, err
	}
	m, err := profile.Correlation(e.in, args.Columns, profile.CorrOptions{DropNA: args.DropNA})
	if err != nil {
		return output{}, err
	}
	return output{
		value: m,
		text:  func(w io.Writer) error { return report.WriteMatrix(w, m) },
		chart: func(title string) report.ChartRequest { return report.HeatmapChart(title, m) },
	}, nil
}

type groupArgs struct {
	Keys []string `yaml:"keys"`
	// Column is shorthand for a single entry in Columns.
	Column     string   `yaml:"column"`
	Columns    []string `yaml:"columns"`
	Aggs       []string `yaml:"aggs"`
	MinCount   int      `yaml:"min_count"`
	SortBy     string   `yaml:"sort_by"`
	SortColumn string   `yaml:"sort_column"`
	Desc       bool     `yaml:"desc"`
	Limit      int      `yaml:"limit"`
	Transpose  bool     `yaml:"transpose"`
}

// runGroupBy aggregates per group. The laid-out result is also kept as a table
// under the step's name, so later steps can read it with from.
func runGroupBy(e *env) (output, error) {
	var args groupArgs
	if err := e.step.decode(&args); err != nil {
		return output{}, err
	}
	aggs := make([]profile.Agg, len(args.Aggs))
	for i, a := range args.Aggs {
		agg, err := profile.ParseAgg(a)
		if err != nil {
			return output{}, err
		}
		aggs[i] = agg
	}
	opt := profile.GroupOptions{MinCount: args.MinCount, SortColumn: args.SortColumn, Descending: args.Desc, Limit: args.Limit}
	if args.SortBy != "" {
		agg, err := profile.ParseAgg(args.SortBy)
		if err != nil {
			return output{}, err
		}
		opt.SortBy = agg
	}
	columns := args.Columns
	if args.Column != "" {
		columns = append([]string{args.Column}, columns...)
	}
	res, err := profile.GroupBy(e.in, args.Keys, columns, aggs, opt)
	if err != nil {
		return output{}, err
	}
	if args.Transpose {
		t, err := res.Transposed()
		if err != nil {
			return output{}, err
		}
		return output{
			table: t,
			value: tableJSON(t),
			text:  func(w io.Writer) error { return report.WriteTable(w, t, report.TableOptions{}) },
		}, nil
	}
	t, err := res.Table()
	if err != nil {
		return output{}, err
	}
	return output{table: t, value: res, text: func(w io.Writer) error { return report.WriteGroups(w, res) }}, nil
}

type reportArgs struct {
	GroupBy      []string `yaml:"group_by"`
	Correlations bool     `yaml:"correlations"`
	CorrPerGroup bool     `yaml:"corr_per_group"`
	Outliers     bool     `yaml:"outliers"`
}

func runReport(e *env) (output, error) {
	var args reportArgs
	if err := e.step.decode(&args); err != nil {
		return output{}, err
	}
	opt := e.r.Report
	opt.GroupBy = args.GroupBy
	opt.Correlations = args.Correlations
	opt.CorrPerGroup = args.CorrPerGroup
	opt.Outliers = args.Outliers
	name := e.source
	if name == "" {
		name = e.name
	}
	rep, err := profile.Build(e.in, name, opt)
	if err != nil {
		return output{}, err
	}
	rep.Warnings = append(append([]string(nil), e.warnings...), rep.Warnings...)
	return output{value: rep, text: func(w io.Writer) error {
		_, err := io.WriteString(w, report.Markdown(rep))
		return err
	}}, nil
}
