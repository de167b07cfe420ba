// Package profile computes descriptive summaries of a table: missing counts, kinds,
// numeric statistics, value frequencies, correlations and group aggregates. Every
// function is pure and leaves its input untouched.
package profile

import (
	"github.com/KaramelBytes/tabscope/internal/table"
)

// ColumnCount pairs a column with a count.
type ColumnCount struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// ColumnCounts is ordered like the table's columns.
type ColumnCounts []ColumnCount

// Map returns the counts keyed by column name.
func (cc ColumnCounts) Map() map[string]int {
	out := make(map[string]int, len(cc))
	for _, c := range cc {
		out[c.Column] = c.Count
	}
	return out
}

// MissingCounts counts missing cells per column. It never fails; a table with no
// columns yields an empty result.
func MissingCounts(t *table.Table) ColumnCounts {
	out := make(ColumnCounts, t.NumCols())
	for i := range out {
		c := t.ColumnAt(i)
		out[i] = ColumnCount{Column: c.Name(), Count: c.NullCount()}
	}
	return out
}

// NUnique counts distinct non-missing values per column.
func NUnique(t *table.Table) ColumnCounts {
	out := make(ColumnCounts, t.NumCols())
	for i := range out {
		c := t.ColumnAt(i)
		seen := make(map[string]struct{})
		for r := 0; r < c.Len(); r++ {
			v := c.Value(r)
			if !v.IsNull() {
				seen[v.Key()] = struct{}{}
			}
		}
		out[i] = ColumnCount{Column: c.Name(), Count: len(seen)}
	}
	return out
}

// ColumnKind pairs a column with its kind.
type ColumnKind struct {
	Column string     `json:"column"`
	Kind   table.Kind `json:"kind"`
}

// DTypes reports each column's kind. Kinds are taken as stored: a column of
// digit-valued identifiers stays numeric until the caller casts it.
func DTypes(t *table.Table) []ColumnKind {
	out := make([]ColumnKind, t.NumCols())
	for i := range out {
		c := t.ColumnAt(i)
		out[i] = ColumnKind{Column: c.Name(), Kind: c.Kind()}
	}
	return out
}

// ColumnInfo is one line of Info.
type ColumnInfo struct {
	table.Descriptor
	NonNull int `json:"non_null"`
}

// InfoResult is the table's shape with per-column descriptors.
type InfoResult struct {
	Rows    int          `json:"rows"`
	Cols    int          `json:"cols"`
	Columns []ColumnInfo `json:"columns"`
}

// Info summarizes shape and schema.
func Info(t *table.Table) InfoResult {
	res := InfoResult{Rows: t.NumRows(), Cols: t.NumCols(), Columns: make([]ColumnInfo, t.NumCols())}
	for i := range res.Columns {
		c := t.ColumnAt(i)
		res.Columns[i] = ColumnInfo{Descriptor: c.Descriptor(), NonNull: c.Len() - c.NullCount()}
	}
	return res
}
