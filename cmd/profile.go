package cmd

import (
	"fmt"
	"io"

	"github.com/KaramelBytes/tabscope/internal/profile"
	"github.com/KaramelBytes/tabscope/internal/report"
	"github.com/KaramelBytes/tabscope/internal/table"
	"github.com/spf13/cobra"
)

// profileFlags are shared by the single-operation profiling commands.
type profileFlags struct {
	src    sourceFlags
	json   bool
	charts string
}

func (p *profileFlags) register(c *cobra.Command, chartable bool) {
	addSourceFlags(c, &p.src)
	c.Flags().BoolVar(&p.json, "json", false, "print the result as JSON")
	if chartable {
		c.Flags().StringVar(&p.charts, "charts", "", "append a chart request to this JSON-lines file ('-' for stdout)")
	}
}

func (p *profileFlags) table(c *cobra.Command, location string) (*table.Table, error) {
	ds, err := openSource(c.Context(), location, &p.src)
	if err != nil {
		return nil, err
	}
	return ds.Table, nil
}

// submitChart hands req to the sink chosen by --charts. Without the flag nothing is sent.
func (p *profileFlags) submitChart(c *cobra.Command, req report.ChartRequest) error {
	if p.charts == "" {
		return nil
	}
	sink, closeSink, err := openChartSink(c, p.charts)
	if err != nil {
		return err
	}
	defer closeSink()
	return sink.Submit(c.Context(), req)
}

var (
	missingFlags profileFlags
	dtypesFlags  profileFlags
	nuniqueFlags profileFlags
	infoFlags    profileFlags
)

var missingCmd = &cobra.Command{
	Use:   "missing <source>",
	Short: "Count missing values per column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := missingFlags.table(cmd, args[0])
		if err != nil {
			return err
		}
		counts := profile.MissingCounts(t)
		return emit(cmd, missingFlags.json, counts, func(w io.Writer) error { return report.WriteCounts(w, "missing", counts) })
	},
}

var dtypesCmd = &cobra.Command{
	Use:   "dtypes <source>",
	Short: "Show the inferred kind of each column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := dtypesFlags.table(cmd, args[0])
		if err != nil {
			return err
		}
		kinds := profile.DTypes(t)
		return emit(cmd, dtypesFlags.json, kinds, func(w io.Writer) error { return report.WriteKinds(w, kinds) })
	},
}

var nuniqueCmd = &cobra.Command{
	Use:   "nunique <source>",
	Short: "Count distinct non-missing values per column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := nuniqueFlags.table(cmd, args[0])
		if err != nil {
			return err
		}
		counts := profile.NUnique(t)
		return emit(cmd, nuniqueFlags.json, counts, func(w io.Writer) error { return report.WriteCounts(w, "unique", counts) })
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <source>",
	Short: "Show shape, kinds and non-missing counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := infoFlags.table(cmd, args[0])
		if err != nil {
			return err
		}
		info := profile.Info(t)
		return emit(cmd, infoFlags.json, info, func(w io.Writer) error { return report.WriteInfo(w, info) })
	},
}

var (
	describeFlags  profileFlags
	describeColumn string
)

var describeCmd = &cobra.Command{
	Use:   "describe <source>",
	Short: "Summary statistics of numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := describeFlags.table(cmd, args[0])
		if err != nil {
			return err
		}
		var desc []profile.Description
		if describeColumn != "" {
			d, err := profile.DescribeColumn(t, describeColumn)
			if err != nil {
				return err
			}
			desc = []profile.Description{d}
		} else if desc, err = profile.DescribeNumeric(t); err != nil {
			return err
		}
		err = emit(cmd, describeFlags.json, desc, func(w io.Writer) error { return report.WriteDescribe(w, desc) })
		if err != nil {
			return err
		}
		return describeFlags.submitChart(cmd, report.BoxChart("describe", desc))
	},
}

var vcFlags profileFlags

var valueCountsCmd = &cobra.Command{
	Use:   "value-counts <source> <column> [column...]",
	Short: "Frequency of each value in a column, or across several columns",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := vcFlags.table(cmd, args[0])
		if err != nil {
			return err
		}
		if columns := args[1:]; len(columns) > 1 {
			cc, err := profile.ValueCountsAcross(t, columns)
			if err != nil {
				return err
			}
			return emit(cmd, vcFlags.json, cc, func(w io.Writer) error { return report.WriteCrossCounts(w, cc) })
		}
		column := args[1]
		counts, err := profile.ValueCounts(t, column)
		if err != nil {
			return err
		}
		if err := emit(cmd, vcFlags.json, counts, func(w io.Writer) error { return report.WriteValueCounts(w, column, counts) }); err != nil {
			return err
		}
		return vcFlags.submitChart(cmd, report.BarChart(column, column, counts))
	},
}

var (
	headFlags   profileFlags
	headRows    int
	headTail    bool
	headColumns []string
)

var headCmd = &cobra.Command{
	Use:   "head <source>",
	Short: "Print the first (or last) rows of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if headRows < 0 {
			return fmt.Errorf("--rows must not be negative")
		}
		t, err := headFlags.table(cmd, args[0])
		if err != nil {
			return err
		}
		if len(headColumns) > 0 {
			if t, err = table.SelectColumns(t, headColumns); err != nil {
				return err
			}
		}
		if headTail {
			t = table.Tail(t, headRows)
		} else {
			t = table.Head(t, headRows)
		}
		if headFlags.json {
			return report.JSON(cmd.OutOrStdout(), rowObjects(t))
		}
		return report.WriteTable(cmd.OutOrStdout(), t, report.TableOptions{MaxRows: headRows})
	},
}

// rowObjects turns rows into objects keyed by column name.
func rowObjects(t *table.Table) []map[string]table.Value {
	names := t.Columns()
	rows := make([]map[string]table.Value, t.NumRows())
	for i := range rows {
		r := t.Row(i)
		rows[i] = make(map[string]table.Value, len(names))
		for j, name := range names {
			rows[i][name] = r.At(j)
		}
	}
	return rows
}

var (
	corrFlags   profileFlags
	corrColumns []string
	corrDropNA  bool
	corrTop     int
)

var corrCmd = &cobra.Command{
	Use:   "corr <source>",
	Short: "Pearson correlations among numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := corrFlags.table(cmd, args[0])
		if err != nil {
			return err
		}
		m, err := profile.Correlation(t, corrColumns, profile.CorrOptions{DropNA: corrDropNA})
		if err != nil {
			return err
		}
		if corrTop > 0 {
			pairs := m.TopPairs(corrTop)
			err = emit(cmd, corrFlags.json, pairs, func(w io.Writer) error {
				for _, p := range pairs {
					if _, err := fmt.Fprintf(w, "%s ~ %s: r=%s\n", p.A, p.B, report.FormatFloat(p.R)); err != nil {
						return err
					}
				}
				return nil
			})
		} else {
			err = emit(cmd, corrFlags.json, m, func(w io.Writer) error { return report.WriteMatrix(w, m) })
		}
		if err != nil {
			return err
		}
		return corrFlags.submitChart(cmd, report.HeatmapChart("correlations", m))
	},
}

var (
	groupFlags    profileFlags
	groupKeys      []string
	groupColumns   []string
	groupAggs      []string
	groupMinCount  int
	groupSort      string
	groupSortCol   string
	groupDesc      bool
	groupLimit     int
	groupTranspose bool
)

var groupbyCmd = &cobra.Command{
	Use:   "groupby <source>",
	Short: "Aggregate columns per group of key columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(groupKeys) == 0 {
			return fmt.Errorf("--by is required")
		}
		aggs := make([]profile.Agg, 0, len(groupAggs))
		for _, a := range groupAggs {
			agg, err := profile.ParseAgg(a)
			if err != nil {
				return err
			}
			aggs = append(aggs, agg)
		}
		opt := profile.GroupOptions{MinCount: groupMinCount, SortColumn: groupSortCol, Descending: groupDesc, Limit: groupLimit}
		if groupSort != "" {
			agg, err := profile.ParseAgg(groupSort)
			if err != nil {
				return err
			}
			opt.SortBy = agg
		}
		t, err := groupFlags.table(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := profile.GroupBy(t, groupKeys, groupColumns, aggs, opt)
		if err != nil {
			return err
		}
		if groupTranspose {
			tt, err := res.Transposed()
			if err != nil {
				return err
			}
			return emit(cmd, groupFlags.json, rowObjects(tt), func(w io.Writer) error {
				return report.WriteTable(w, tt, report.TableOptions{})
			})
		}
		return emit(cmd, groupFlags.json, res, func(w io.Writer) error { return report.WriteGroups(w, res) })
	},
}

var (
	histFlags    profileFlags
	histBins     int
	histOutliers bool
	histThr      float64
)

var histCmd = &cobra.Command{
	Use:   "hist <source> <column>",
	Short: "Equal-width histogram of a numeric column",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := histFlags.table(cmd, args[0])
		if err != nil {
			return err
		}
		column := args[1]
		bins, err := profile.Histogram(t, column, histBins)
		if err != nil {
			return err
		}
		var out struct {
			Bins     []profile.Bin           `json:"bins"`
			Outliers *profile.OutlierSummary `json:"outliers,omitempty"`
		}
		out.Bins = bins
		if histOutliers {
			o, err := profile.Outliers(t, column, histThr)
			if err != nil {
				return err
			}
			out.Outliers = &o
		}
		err = emit(cmd, histFlags.json, out, func(w io.Writer) error {
			if err := report.WriteBins(w, column, bins); err != nil {
				return err
			}
			if out.Outliers != nil {
				return report.WriteOutliers(w, *out.Outliers)
			}
			return nil
		})
		if err != nil {
			return err
		}
		return histFlags.submitChart(cmd, report.HistogramChart(column, column, bins))
	},
}

func init() {
	for _, c := range []struct {
		cmd       *cobra.Command
		flags     *profileFlags
		chartable bool
	}{
		{missingCmd, &missingFlags, false},
		{dtypesCmd, &dtypesFlags, false},
		{nuniqueCmd, &nuniqueFlags, false},
		{infoCmd, &infoFlags, false},
		{describeCmd, &describeFlags, true},
		{valueCountsCmd, &vcFlags, true},
		{headCmd, &headFlags, false},
		{corrCmd, &corrFlags, true},
		{groupbyCmd, &groupFlags, false},
		{histCmd, &histFlags, true},
	} {
		rootCmd.AddCommand(c.cmd)
		c.flags.register(c.cmd, c.chartable)
	}

	describeCmd.Flags().StringVar(&describeColumn, "column", "", "describe only this column")

	headCmd.Flags().IntVarP(&headRows, "rows", "n", 5, "number of rows")
	headCmd.Flags().BoolVar(&headTail, "tail", false, "print the last rows instead")
	headCmd.Flags().StringSliceVar(&headColumns, "columns", nil, "columns to show (default all)")

	corrCmd.Flags().StringSliceVar(&corrColumns, "columns", nil, "numeric columns to correlate (default all numeric)")
	corrCmd.Flags().BoolVar(&corrDropNA, "dropna", false, "use only rows where every selected column is present")
	corrCmd.Flags().IntVar(&corrTop, "top", 0, "print only the n strongest pairs")

	groupbyCmd.Flags().StringSliceVar(&groupKeys, "by", nil, "key columns (repeatable)")
	groupbyCmd.Flags().StringArrayVar(&groupColumns, "column", nil, "column to aggregate (repeatable; default all numeric when --agg needs one)")
	groupbyCmd.Flags().StringSliceVar(&groupAggs, "agg", nil, "aggregates: size|count|sum|mean|min|max|std (default size, or count,mean,min,max with --column)")
	groupbyCmd.Flags().IntVar(&groupMinCount, "min-count", 0, "drop groups with fewer rows")
	groupbyCmd.Flags().StringVar(&groupSort, "sort", "", "order groups by this aggregate")
	groupbyCmd.Flags().StringVar(&groupSortCol, "sort-column", "", "value column whose aggregate orders groups (needed with several --column)")
	groupbyCmd.Flags().BoolVar(&groupTranspose, "transpose", false, "print one column per group and one row per aggregate")
	groupbyCmd.Flags().BoolVar(&groupDesc, "desc", false, "sort descending")
	groupbyCmd.Flags().IntVar(&groupLimit, "limit", 0, "keep the first n groups (0 = all)")

	histCmd.Flags().IntVar(&histBins, "bins", 10, "number of bins")
	histCmd.Flags().BoolVar(&histOutliers, "outliers", false, "also count robust outliers (MAD)")
	histCmd.Flags().Float64Var(&histThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers")
}
