package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/tabscope/internal/loader"
	"github.com/KaramelBytes/tabscope/internal/profile"
	"github.com/KaramelBytes/tabscope/internal/report"
	"github.com/spf13/cobra"
)

// sourceFlags are the loading flags shared by every command that reads a dataset.
type sourceFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	maxRows    int
	sheetName  string
	sheetIndex int
	query      string
	format     string
}

func addSourceFlags(c *cobra.Command, f *sourceFlags) {
	c.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab' (sniffed if omitted)")
	c.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (config default if omitted)")
	c.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	c.Flags().IntVar(&f.maxRows, "max-rows", 0, "maximum rows to process (0 = config default)")
	c.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	c.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	c.Flags().StringVar(&f.query, "query", "", "SQL sources: query to run")
	c.Flags().StringVar(&f.format, "format", "", "override format detection: csv|tsv|xlsx|parquet")
}

// options layers the flags over the configured loader defaults.
func (f *sourceFlags) options() (loader.Options, error) {
	opt := baseLoaderOptions()
	if f.maxRows > 0 {
		opt.MaxRows = f.maxRows
	}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
		if opt.ThousandsSeparator == ',' {
			opt.ThousandsSeparator = 0
		}
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	if opt.ThousandsSeparator != 0 && opt.ThousandsSeparator == opt.DecimalSeparator {
		return opt, fmt.Errorf("decimal and thousands separators must differ")
	}
	opt.Sheet = f.sheetName
	opt.SheetIndex = f.sheetIndex
	opt.Query = f.query
	opt.Format = f.format
	return opt, nil
}

func baseLoaderOptions() loader.Options {
	opt := loader.DefaultOptions()
	if cfg == nil {
		return opt
	}
	if cfg.MaxRows > 0 {
		opt.MaxRows = cfg.MaxRows
	}
	if len(cfg.NullTokens) > 0 {
		opt.NullTokens = cfg.NullTokens
	}
	opt.DecimalSeparator = firstRune(cfg.DecimalSeparator)
	opt.ThousandsSeparator = firstRune(cfg.ThousandsSeparator)
	opt.UnitNormalize = cfg.UnitNormalize
	opt.S3 = loader.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
	}
	return opt
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func baseReportOptions() profile.Options {
	opt := profile.DefaultOptions()
	opt.Outliers = true
	if cfg == nil {
		return opt
	}
	if cfg.SampleRows >= 0 {
		opt.SampleRows = cfg.SampleRows
	}
	if cfg.TopValues > 0 {
		opt.TopValues = cfg.TopValues
	}
	return opt
}

// openSource loads one dataset and prints its load warnings to stderr.
func openSource(ctx context.Context, location string, f *sourceFlags) (*loader.Dataset, error) {
	opt, err := f.options()
	if err != nil {
		return nil, err
	}
	ds, err := loader.Open(ctx, location, opt)
	if err != nil {
		return nil, err
	}
	printWarnings(ds.Warnings)
	return ds, nil
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %s\n", w)
	}
}

func newCache() (*loader.Cache, error) {
	size := 0
	if cfg != nil {
		size = cfg.CacheSize
	}
	return loader.NewCache(size)
}

// openChartSink resolves where chart requests go: the flag, then config. "-" is stdout.
// Without either, charts are discarded.
func openChartSink(c *cobra.Command, path string) (report.ChartSink, func() error, error) {
	if path == "" && cfg != nil {
		path = cfg.ChartSink
	}
	noop := func() error { return nil }
	switch path {
	case "":
		return report.DiscardSink{}, noop, nil
	case "-":
		return report.NewJSONLinesSink(c.OutOrStdout()), noop, nil
	}
	s, err := report.OpenJSONLinesSink(path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// emit prints v as JSON or through its text renderer.
func emit(c *cobra.Command, asJSON bool, v any, text func(w io.Writer) error) error {
	if asJSON {
		return report.JSON(c.OutOrStdout(), v)
	}
	return text(c.OutOrStdout())
}
