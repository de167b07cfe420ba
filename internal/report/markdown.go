package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabscope/internal/profile"
)

// Markdown renders a compact dataset report for standalone docs.
func Markdown(r *profile.Report) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if r.Rows > 0 {
		if r.Processed > 0 && r.Processed < r.Rows {
			b.WriteString(fmt.Sprintf("Rows: ~%d (processed %d)\n", r.Rows, r.Processed))
		} else {
			b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
		}
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		writeSchemaLine(&b, c)
	}

	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			// print up to 6 metrics
			if len(keys) > 6 {
				keys = keys[:6]
			}
			for _, k := range keys {
				m := g.Metrics[k]
				b.WriteString(fmt.Sprintf("  • %s: mean %s (min %s, max %s)\n", k, short(m.Mean), short(m.Min), short(m.Max)))
			}
		}
	}

	hasGroupCorr := false
	for _, g := range r.Groups {
		if len(g.CorrPairs) > 0 {
			hasGroupCorr = true
			break
		}
	}
	if hasGroupCorr {
		b.WriteString("\n[PER-GROUP CORRELATIONS]\n")
		for _, g := range r.Groups {
			if len(g.CorrPairs) == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("- %s:\n", g.Key))
			pairs := g.CorrPairs
			if len(pairs) > 8 {
				pairs = pairs[:8]
			}
			for _, p := range pairs {
				b.WriteString(fmt.Sprintf("  • %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
			}
		}
	}

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		if pairs := r.Corr.TopPairs(10); len(pairs) > 0 {
			b.WriteString("\n[CORRELATIONS]\n")
			for _, p := range pairs {
				b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
			}
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		names := make([]string, len(r.Cols))
		sep := make([]string, len(r.Cols))
		for i, c := range r.Cols {
			names[i] = safeName(c.Name)
			sep[i] = "---"
		}
		b.WriteString("| " + strings.Join(names, " | ") + " |\n")
		b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
		for _, row := range r.Samples {
			cells := make([]string, len(r.Cols))
			for i := range r.Cols {
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				cells[i] = safeVal(val)
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeSchemaLine(b *strings.Builder, c profile.ColumnSummary) {
	total := c.NonNull + c.Missing
	missPct := 0.0
	if total > 0 {
		missPct = float64(c.Missing) * 100.0 / float64(total)
	}
	name := safeName(c.Name)
	if c.Unit != "" {
		name = fmt.Sprintf("%s [%s]", name, c.Unit)
	}
	b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct))
	switch c.Kind {
	case "numeric":
		if s := c.Stats; s != nil {
			b.WriteString(fmt.Sprintf("; min %s, max %s, mean %s, std %s", short(s.Min), short(s.Max), short(s.Mean), short(s.Std)))
		}
		if o := c.Outliers; o != nil {
			b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", o.Count, o.Threshold))
			if o.MaxAbsZ > 0 {
				b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", o.MaxAbsZ))
			}
		}
	case "datetime":
		b.WriteString(fmt.Sprintf("; from %s to %s", c.First, c.Last))
	case "categorical", "boolean":
		if len(c.TopValues) > 0 {
			tops := make([]string, len(c.TopValues))
			for i, kv := range c.TopValues {
				tops[i] = fmt.Sprintf("%s(%d)", safeVal(kv.Value.String()), kv.Count)
			}
			b.WriteString("; top: " + strings.Join(tops, ", "))
			if c.Unique > len(c.TopValues) {
				b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
			}
		}
	case "text":
		if len(c.ExampleTexts) > 0 {
			ex := make([]string, len(c.ExampleTexts))
			for i, s := range c.ExampleTexts {
				ex[i] = safeVal(s)
			}
			b.WriteString("; e.g., " + strings.Join(ex, " / "))
		}
	}
	b.WriteString("\n")
}

// short formats like %.4g but keeps NaN readable.
func short(f float64) string {
	if f != f {
		return "NaN"
	}
	return fmt.Sprintf("%.4g", f)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
