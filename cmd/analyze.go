package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/tabscope/internal/loader"
	"github.com/KaramelBytes/tabscope/internal/profile"
	"github.com/KaramelBytes/tabscope/internal/report"
	"github.com/spf13/cobra"
)

var (
	anaSource      sourceFlags
	anaWorkspace   string
	anaOutputPath  string
	anaDescription string
	anaJSON        bool
	anaSampleRows  int
	anaGroupBy     []string
	anaCorr        bool
	anaCorrGroups  bool
	anaOutliers    bool
	anaOutlierThr  float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <source>",
	Short: "Profile a dataset and produce a Markdown summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := anaReportOptions(cmd)
		ds, err := openSource(cmd.Context(), args[0], &anaSource)
		if err != nil {
			return err
		}
		rep, err := ds.Report(opt)
		if err != nil {
			return err
		}
		if anaJSON {
			return report.JSON(cmd.OutOrStdout(), rep)
		}
		md := report.Markdown(rep)

		// Decide where to write: --output path, or attach to workspace, or stdout
		written := false
		if anaOutputPath != "" {
			if err := os.WriteFile(anaOutputPath, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			written = true
		}
		if anaWorkspace != "" {
			if err := attachDataset(cmd, anaWorkspace, ds, anaDescription, opt); err != nil {
				return err
			}
			written = true
		}
		if !written {
			fmt.Fprintln(cmd.OutOrStdout(), md)
		}
		return nil
	},
}

func anaReportOptions(cmd *cobra.Command) profile.Options {
	opt := baseReportOptions()
	if cmd.Flags().Changed("sample-rows") {
		opt.SampleRows = anaSampleRows
	}
	opt.GroupBy = anaGroupBy
	opt.Correlations = anaCorr
	opt.CorrPerGroup = anaCorrGroups
	opt.Outliers = anaOutliers
	if anaOutlierThr > 0 {
		opt.OutlierThreshold = anaOutlierThr
	}
	return opt
}

// attachDataset records ds in the named workspace.
func attachDataset(cmd *cobra.Command, name string, ds *loader.Dataset, desc string, opt profile.Options) error {
	w, err := loadWorkspace(name)
	if err != nil {
		return err
	}
	d, err := w.Add(ds, desc, opt)
	if err != nil {
		return err
	}
	if err := w.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s to workspace '%s' as %s\n", d.Name, w.Name, shortID(d.ID))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addSourceFlags(analyzeCmd, &anaSource)
	analyzeCmd.Flags().StringVarP(&anaWorkspace, "workspace", "w", "", "workspace name to attach the summary")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	analyzeCmd.Flags().StringVar(&anaDescription, "desc", "", "description when attaching to a workspace")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "print the report as JSON")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeCmd.Flags().StringSliceVar(&anaGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	analyzeCmd.Flags().BoolVar(&anaCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	analyzeCmd.Flags().BoolVar(&anaCorrGroups, "corr-per-group", false, "compute correlation pairs within each group (may be slower)")
	analyzeCmd.Flags().BoolVar(&anaOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	analyzeCmd.Flags().Float64Var(&anaOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
}
