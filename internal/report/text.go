// Package report renders tables and profile results as text, Markdown and JSON, and
// hands chart requests to a ChartSink.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/KaramelBytes/tabscope/internal/profile"
	"github.com/KaramelBytes/tabscope/internal/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numStyle    = cellStyle.Align(lipgloss.Right)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

// TableOptions limits how much of a table is printed.
type TableOptions struct {
	// MaxRows caps printed rows; 0 prints all. Hidden rows are summarized below.
	MaxRows int
	// MaxWidth truncates long cells; 0 means 40.
	MaxWidth int
}

// render draws a bordered grid. Columns listed in numeric are right-aligned.
func render(w io.Writer, title string, headers []string, rows [][]string, numeric map[int]bool) error {
	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerStyle
			}
			if numeric[col] {
				return numStyle
			}
			return cellStyle
		})
	if title != "" {
		if _, err := fmt.Fprintln(w, titleStyle.Render(title)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// WriteTable prints the rows of t with a header of column names.
func WriteTable(w io.Writer, t *table.Table, opt TableOptions) error {
	width := opt.MaxWidth
	if width <= 0 {
		width = 40
	}
	n := t.NumRows()
	if opt.MaxRows > 0 && n > opt.MaxRows {
		n = opt.MaxRows
	}
	headers := append([]string{""}, t.Columns()...)
	numeric := map[int]bool{0: true}
	for j := 0; j < t.NumCols(); j++ {
		if t.ColumnAt(j).Kind() == table.KindNumeric {
			numeric[j+1] = true
		}
	}
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		r := t.Row(i)
		row := make([]string, t.NumCols()+1)
		row[0] = strconv.Itoa(i)
		for j := 0; j < t.NumCols(); j++ {
			v := r.At(j)
			if v.IsNull() {
				row[j+1] = "NaN"
				continue
			}
			row[j+1] = truncate(v.String(), width)
		}
		rows[i] = row
	}
	if err := render(w, "", headers, rows, numeric); err != nil {
		return err
	}
	if n < t.NumRows() {
		_, err := fmt.Fprintf(w, "... %d more rows\n", t.NumRows()-n)
		if err != nil {
			return err
		}
	}
	nr, nc := t.Shape()
	_, err := fmt.Fprintf(w, "[%d rows x %d columns]\n", nr, nc)
	return err
}

// WriteCounts prints one count per column, e.g. missing or distinct counts.
func WriteCounts(w io.Writer, title string, counts profile.ColumnCounts) error {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Column, strconv.Itoa(c.Count)}
	}
	return render(w, title, []string{"column", "count"}, rows, map[int]bool{1: true})
}

// WriteKinds prints the kind of every column.
func WriteKinds(w io.Writer, kinds []profile.ColumnKind) error {
	rows := make([][]string, len(kinds))
	for i, k := range kinds {
		rows[i] = []string{k.Column, k.Kind.String()}
	}
	return render(w, "", []string{"column", "kind"}, rows, nil)
}

// WriteInfo prints the shape and per-column schema.
func WriteInfo(w io.Writer, info profile.InfoResult) error {
	if _, err := fmt.Fprintf(w, "%d rows x %d columns\n", info.Rows, info.Cols); err != nil {
		return err
	}
	rows := make([][]string, len(info.Columns))
	for i, c := range info.Columns {
		rows[i] = []string{strconv.Itoa(i), c.Name, strconv.Itoa(c.NonNull), c.Kind.String(), c.Unit}
	}
	return render(w, "", []string{"#", "column", "non-null", "kind", "unit"}, rows, map[int]bool{0: true, 2: true})
}

// WriteDescribe prints statistics with one column per described column, the way
// describe() output is usually read.
func WriteDescribe(w io.Writer, desc []profile.Description) error {
	headers := []string{""}
	for _, d := range desc {
		headers = append(headers, d.Column)
	}
	stat := []struct {
		name string
		get  func(profile.Summary) float64
	}{
		{"count", func(s profile.Summary) float64 { return float64(s.Count) }},
		{"mean", func(s profile.Summary) float64 { return s.Mean }},
		{"std", func(s profile.Summary) float64 { return s.Std }},
		{"min", func(s profile.Summary) float64 { return s.Min }},
		{"25%", func(s profile.Summary) float64 { return s.Q25 }},
		{"50%", func(s profile.Summary) float64 { return s.Q50 }},
		{"75%", func(s profile.Summary) float64 { return s.Q75 }},
		{"max", func(s profile.Summary) float64 { return s.Max }},
	}
	numeric := map[int]bool{}
	for j := range desc {
		numeric[j+1] = true
	}
	rows := make([][]string, len(stat))
	for i, st := range stat {
		row := []string{st.name}
		for _, d := range desc {
			row = append(row, FormatFloat(st.get(d.Stats)))
		}
		rows[i] = row
	}
	return render(w, "", headers, rows, numeric)
}

// WriteValueCounts prints a frequency table for one column.
func WriteValueCounts(w io.Writer, column string, counts []profile.ValueCount) error {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Value.String(), strconv.Itoa(c.Count)}
	}
	return render(w, "", []string{column, "count"}, rows, map[int]bool{1: true})
}

// WriteCrossCounts prints value counts of several columns side by side. Values
// absent from a column print as NaN.
func WriteCrossCounts(w io.Writer, cc *profile.CrossCounts) error {
	headers := append([]string{""}, cc.Columns...)
	numeric := map[int]bool{}
	for j := range cc.Columns {
		numeric[j+1] = true
	}
	rows := make([][]string, len(cc.Values))
	for i, v := range cc.Values {
		row := []string{v.String()}
		for _, n := range cc.Counts[i] {
			if n == 0 {
				row = append(row, "NaN")
				continue
			}
			row = append(row, strconv.Itoa(n))
		}
		rows[i] = row
	}
	return render(w, "", headers, rows, numeric)
}

// WriteMatrix prints a correlation matrix.
func WriteMatrix(w io.Writer, m *profile.CorrMatrix) error {
	headers := append([]string{""}, m.Columns...)
	numeric := map[int]bool{}
	rows := make([][]string, len(m.Columns))
	for i, name := range m.Columns {
		numeric[i+1] = true
		row := []string{name}
		for _, r := range m.Values[i] {
			row = append(row, FormatFloat(r))
		}
		rows[i] = row
	}
	return render(w, "", headers, rows, numeric)
}

// WriteGroups prints one line per group with its aggregates.
func WriteGroups(w io.Writer, res *profile.GroupResult) error {
	cols, aggs := res.StatColumns()
	headers := append([]string{}, res.Keys...)
	headers = append(headers, "size")
	for i, c := range cols {
		headers = append(headers, c+" "+string(aggs[i]))
	}
	numeric := map[int]bool{}
	for j := len(res.Keys); j < len(headers); j++ {
		numeric[j] = true
	}
	rows := make([][]string, len(res.Groups))
	for i, g := range res.Groups {
		var row []string
		for _, k := range g.Key {
			row = append(row, k.String())
		}
		row = append(row, strconv.Itoa(g.Size))
		for j, c := range cols {
			row = append(row, FormatFloat(g.Stat(c, aggs[j])))
		}
		rows[i] = row
	}
	return render(w, "", headers, rows, numeric)
}

// WriteBins prints histogram bins.
func WriteBins(w io.Writer, column string, bins []profile.Bin) error {
	rows := make([][]string, len(bins))
	for i, b := range bins {
		closing := ")"
		if i == len(bins)-1 {
			closing = "]"
		}
		rows[i] = []string{fmt.Sprintf("[%s, %s%s", FormatFloat(b.Lo), FormatFloat(b.Hi), closing), strconv.Itoa(b.Count)}
	}
	return render(w, "", []string{column, "count"}, rows, map[int]bool{1: true})
}

// WriteOutliers prints a robust z-score summary.
func WriteOutliers(w io.Writer, o profile.OutlierSummary) error {
	_, err := fmt.Fprintf(w, "%s: %d above |z|>%.1f (median %s, MAD %s, max |z| %s)\n",
		o.Column, o.Count, o.Threshold, FormatFloat(o.Median), FormatFloat(o.MAD), FormatFloat(o.MaxAbsZ))
	return err
}

// FormatFloat prints integers without a fraction, other values with up to six
// significant digits, and undefined values as NaN.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
