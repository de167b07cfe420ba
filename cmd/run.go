package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/tabscope/internal/logging"
	"github.com/KaramelBytes/tabscope/internal/recipe"
	"github.com/spf13/cobra"
)

var (
	runJSON   bool
	runCharts string
	runSource sourceFlags
)

var recipeCmd = &cobra.Command{
	Use:   "run <recipe.yaml>",
	Short: "Run a YAML recipe of table and profile steps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := recipe.Load(args[0])
		if err != nil {
			return err
		}
		loadOpt, err := runSource.options()
		if err != nil {
			return err
		}
		cache, err := newCache()
		if err != nil {
			return err
		}
		sink, closeSink, err := openChartSink(cmd, runCharts)
		if err != nil {
			return err
		}
		defer closeSink()

		r := &recipe.Runner{
			Out:    cmd.OutOrStdout(),
			Sink:   sink,
			Cache:  cache,
			Load:   loadOpt,
			Report: baseReportOptions(),
			Log:    logging.With("recipe"),
		}
		if runJSON {
			r.Format = "json"
		}
		res, err := r.Run(cmd.Context(), rec)
		if err != nil {
			return err
		}
		if res.Charts > 0 && !runJSON {
			fmt.Fprintf(os.Stderr, "✓ Submitted %d chart request(s)\n", res.Charts)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recipeCmd)
	addSourceFlags(recipeCmd, &runSource)
	recipeCmd.Flags().BoolVar(&runJSON, "json", false, "emit one JSON object per reporting step")
	recipeCmd.Flags().StringVar(&runCharts, "charts", "", "append chart requests to this JSON-lines file ('-' for stdout)")
}
