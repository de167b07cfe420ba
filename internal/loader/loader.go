// Package loader turns files, object-store keys and SQL queries into typed tables.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tabscope/internal/profile"
	"github.com/KaramelBytes/tabscope/internal/table"
)

// Options controls how a source is read and typed.
type Options struct {
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, sniffed from the first line.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, auto-detect common separators (',' '.' space)
	// NullTokens are cell values read as missing, matched case-insensitively.
	// Empty cells are always missing.
	NullTokens []string
	// Unit normalization: convert values to target units using simple mappings.
	UnitNormalize bool
	UnitTargets   map[string]string // map[fromUnit]toUnit, e.g., {"g/L":"mg/L", "ug/L":"mg/L", "°F":"°C"}
	// TimeLayouts replaces the default datetime layouts when set.
	TimeLayouts []string
	// Sheet selects an XLSX sheet by name; SheetIndex is 1-based and used when Sheet is empty.
	Sheet      string
	SheetIndex int
	// Query is required for SQL sources.
	Query string
	// Format overrides extension-based detection: csv, tsv, xlsx or parquet.
	Format string
	// S3 holds object-store credentials for s3:// locations.
	S3 S3Config
}

// DefaultNullTokens are the cell values read as missing unless overridden.
var DefaultNullTokens = []string{"NA", "N/A", "NaN", "null", "None"}

// DefaultOptions returns reasonable defaults for loading.
func DefaultOptions() Options {
	return Options{
		MaxRows:          100000,
		DecimalSeparator: '.',
		NullTokens:       DefaultNullTokens,
		UnitNormalize:    true,
		UnitTargets: map[string]string{
			"g/L":  "mg/L",
			"ug/L": "mg/L",
			"°F":   "°C",
		},
	}
}

func (o Options) isNull(v string) bool {
	if v == "" {
		return true
	}
	for _, tok := range o.NullTokens {
		if strings.EqualFold(v, tok) {
			return true
		}
	}
	return false
}

// Dataset is a loaded table with provenance.
type Dataset struct {
	Name   string
	Source string
	Table  *table.Table
	// TotalRows counts source rows, including any beyond MaxRows.
	TotalRows int
	Warnings  []string
}

// Report profiles the dataset, carrying over its row total and load warnings.
func (d *Dataset) Report(opt profile.Options) (*profile.Report, error) {
	rep, err := profile.Build(d.Table, d.Name, opt)
	if err != nil {
		return nil, err
	}
	if d.TotalRows > rep.Rows {
		rep.Rows = d.TotalRows
	}
	rep.Warnings = append(append([]string(nil), d.Warnings...), rep.Warnings...)
	return rep, nil
}

// Source opens one family of locations.
type Source interface {
	CanOpen(location string) bool
	Open(ctx context.Context, location string, opt Options) (*Dataset, error)
}

var registry []Source

// Register adds a source implementation to the registry. Later registrations are
// consulted first.
func Register(s Source) {
	registry = append([]Source{s}, registry...)
}

// ErrUnsupported indicates a location no source can open.
var ErrUnsupported = errors.New("unsupported data source")

// Open selects a source for location and loads it.
func Open(ctx context.Context, location string, opt Options) (*Dataset, error) {
	for _, s := range registry {
		if s.CanOpen(location) {
			return s.Open(ctx, location, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, location)
}

func init() {
	Register(fileSource{})
	Register(s3Source{})
	Register(sqlSource{})
}

// format resolves the decoder for a name, honoring an explicit override.
func format(name string, opt Options) string {
	if opt.Format != "" {
		return strings.ToLower(opt.Format)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return "csv"
	case ".tsv", ".tab":
		return "tsv"
	case ".xlsx":
		return "xlsx"
	case ".parquet", ".pq":
		return "parquet"
	}
	return ""
}

// decode dispatches raw bytes to the decoder for their format.
func decode(name string, data []byte, opt Options) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	switch format(name, opt) {
	case "csv":
		ds, err = ReadCSV(data, opt)
	case "tsv":
		if opt.Delimiter == 0 {
			opt.Delimiter = '\t'
		}
		ds, err = ReadCSV(data, opt)
	case "xlsx":
		ds, err = ReadXLSX(data, opt)
	case "parquet":
		ds, err = ReadParquet(data, opt)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	if err != nil {
		return nil, err
	}
	ds.Name = filepath.Base(name)
	return ds, nil
}

// fromRecords applies MaxRows to raw rows and builds the dataset.
func fromRecords(header []string, rows [][]string, opt Options) (*Dataset, error) {
	ds := &Dataset{TotalRows: len(rows)}
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		rows = rows[:opt.MaxRows]
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", opt.MaxRows, ds.TotalRows))
	}
	t, warns, err := FromRecords(header, rows, opt)
	if err != nil {
		return nil, err
	}
	ds.Table = t
	ds.Warnings = append(ds.Warnings, warns...)
	return ds, nil
}
