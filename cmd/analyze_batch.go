package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabscope/internal/loader"
	"github.com/KaramelBytes/tabscope/internal/logging"
	"github.com/KaramelBytes/tabscope/internal/report"
	"github.com/KaramelBytes/tabscope/internal/workspace"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	abSource            sourceFlags
	abWorkspace         string
	abDescription       string
	abSampleRows        int
	abGroupBy           []string
	abCorr              bool
	abCorrGroups        bool
	abOutliers          bool
	abOutlierThr        float64
	abSampleRowsProject int
	abWorkers           int
	abQuiet             bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX/Parquet files concurrently with optional workspace attachment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		opt, err := abSource.options()
		if err != nil {
			return err
		}
		repOpt := baseReportOptions()
		if cmd.Flags().Changed("sample-rows") {
			repOpt.SampleRows = abSampleRows
		}
		repOpt.GroupBy = abGroupBy
		repOpt.Correlations = abCorr
		repOpt.CorrPerGroup = abCorrGroups
		repOpt.Outliers = abOutliers
		if abOutlierThr > 0 {
			repOpt.OutlierThreshold = abOutlierThr
		}

		var w *workspace.Workspace
		if abWorkspace != "" {
			if w, err = loadWorkspace(abWorkspace); err != nil {
				return err
			}
			if abSampleRowsProject >= 0 {
				repOpt.SampleRows = abSampleRowsProject
			}
		}

		workers := abWorkers
		if workers <= 0 {
			workers = 4
			if cfg != nil {
				workers = cfg.BatchWorkers
			}
		}
		log := logging.With("analyze-batch")
		out := cmd.OutOrStdout()
		total := len(files)

		// Load concurrently; report in input order once every file is in.
		datasets := make([]*loader.Dataset, total)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(workers)
		for i, path := range files {
			i, path := i, path
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			g.Go(func() error {
				ds, err := loader.Open(ctx, path, opt)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				log.Debug("loaded", "path", path, "rows", ds.Table.NumRows())
				datasets[i] = ds
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, ds := range datasets {
			printWarnings(ds.Warnings)
			if w != nil {
				d, err := w.Add(ds, abDescription, repOpt)
				if err != nil {
					return err
				}
				if !abQuiet {
					fmt.Fprintf(out, "✓ Added %s to workspace '%s' as %s\n", d.Name, w.Name, shortID(d.ID))
				}
				continue
			}
			rep, err := ds.Report(repOpt)
			if err != nil {
				return err
			}
			if !abQuiet {
				fmt.Fprintln(out, report.Markdown(rep))
			}
		}
		if w != nil {
			return w.Save()
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist, and returns a sorted
// list without duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists, or as a remote location
			if _, err := os.Stat(arg); err == nil || strings.Contains(arg, "://") {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	addSourceFlags(analyzeBatchCmd, &abSource)
	analyzeBatchCmd.Flags().StringVarP(&abWorkspace, "workspace", "w", "", "workspace name to attach summaries")
	analyzeBatchCmd.Flags().StringVar(&abDescription, "desc", "", "description when attaching to a workspace")
	analyzeBatchCmd.Flags().IntVar(&abSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeBatchCmd.Flags().StringSliceVar(&abGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	analyzeBatchCmd.Flags().BoolVar(&abCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	analyzeBatchCmd.Flags().BoolVar(&abCorrGroups, "corr-per-group", false, "compute correlation pairs within each group (may be slower)")
	analyzeBatchCmd.Flags().BoolVar(&abOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	analyzeBatchCmd.Flags().Float64Var(&abOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	analyzeBatchCmd.Flags().IntVar(&abSampleRowsProject, "sample-rows-workspace", -1, "when attaching (-w), override sample rows for dataset summaries (0 disables samples)")
	analyzeBatchCmd.Flags().IntVar(&abWorkers, "workers", 0, "concurrent loads (0 = config batch_workers)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
